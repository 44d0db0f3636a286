package statements

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/rvt-fleet/fleetledger/internal/platform/httpx"
	"github.com/rvt-fleet/fleetledger/internal/shared"
)

// Handler exposes statement operations. Failures use the {success:false, error} envelope.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler builds a statement handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers statement routes. Mutating routes are gated on the
// admin role before the request body is read.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/statements", func(r chi.Router) {
		r.Get("/", h.list)
		r.Get("/{id}", h.get)
		r.Group(func(r chi.Router) {
			r.Use(h.requireAdmin)
			r.Post("/", h.create)
			r.Put("/{id}", h.update)
			r.Delete("/{id}", h.delete)
			r.Post("/{id}/invoices", h.addInvoice)
			r.Post("/{id}/payments", h.addPayment)
			r.Put("/{id}/order", h.reorder)
		})
	})
}

func (h *Handler) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := shared.RequireAdmin(r.Context()); err != nil {
			h.fail(w, r, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var input CreateStatementInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		h.fail(w, r, httpx.NewError(httpx.ErrValidation, "invalid request body"))
		return
	}
	stmt, err := h.service.CreateStatement(r.Context(), input)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.Success(w, http.StatusCreated, map[string]any{"statementId": stmt.ID, "statement": stmt})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	var contractorID *int64
	if raw := r.URL.Query().Get("contractor_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			h.fail(w, r, httpx.NewError(httpx.ErrValidation, "invalid contractor_id"))
			return
		}
		contractorID = &id
	}
	stmts, err := h.service.ListStatements(r.Context(), contractorID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if stmts == nil {
		stmts = []Statement{}
	}
	httpx.Success(w, http.StatusOK, map[string]any{"statements": stmts})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	stmt, err := h.service.GetStatement(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.Success(w, http.StatusOK, map[string]any{"statement": stmt})
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req updateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		h.fail(w, r, ErrInvalidDetails)
		return
	}
	if _, err := h.service.UpdateStatement(r.Context(), id, req.detailsJSON()); err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.Success(w, http.StatusOK, nil)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteStatement(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.Success(w, http.StatusOK, nil)
}

func (h *Handler) addInvoice(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req addInvoiceRequest
	if err := h.decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	stmt, err := h.service.AddInvoiceToStatement(r.Context(), id, req.InvoiceID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.Success(w, http.StatusOK, map[string]any{"statement": stmt})
}

func (h *Handler) addPayment(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req addPaymentRequest
	if err := h.decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	stmt, err := h.service.AddPaymentToStatement(r.Context(), id, req.PaymentID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.Success(w, http.StatusOK, map[string]any{"statement": stmt})
}

func (h *Handler) reorder(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req reorderRequest
	if err := h.decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	stmt, err := h.service.ReorderItems(r.Context(), id, req.IDs)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.Success(w, http.StatusOK, map[string]any{"statement": stmt})
}

func (h *Handler) decode(r *http.Request, target any) error {
	if err := httpx.DecodeJSON(r, target); err != nil {
		return httpx.NewError(httpx.ErrValidation, "invalid request body")
	}
	return httpx.Validate(h.validator, target)
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		h.fail(w, r, httpx.NewError(httpx.ErrValidation, "invalid statement id"))
		return 0, false
	}
	return id, true
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if httpx.StatusFor(err) == http.StatusInternalServerError {
		h.logger.Error("statement operation failed", slog.String("path", r.URL.Path), slog.Any("error", err))
	}
	httpx.Failure(w, err, httpx.FieldError)
}
