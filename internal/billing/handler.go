package billing

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/rvt-fleet/fleetledger/internal/platform/httpx"
	"github.com/rvt-fleet/fleetledger/internal/shared"
)

// Handler exposes invoice and payment operations. Failures use the
// {success:false, message} envelope.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler builds a billing handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers invoice and payment routes. Mutating routes are gated
// on the admin role before the request body is read.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/invoices", func(r chi.Router) {
		r.Get("/", h.list)
		r.Get("/{id}", h.get)
		r.Get("/{id}/metadata", h.getMetadata)
		r.Get("/{id}/payments", h.listPayments)
		r.Group(func(r chi.Router) {
			r.Use(h.requireAdmin)
			r.Post("/", h.generate)
			r.Delete("/{id}", h.deleteInvoice)
			r.Put("/{id}/metadata", h.updateMetadata)
			r.Put("/{id}/reception", h.reception)
			r.Post("/{id}/payments", h.recordPayment)
		})
	})
	r.Route("/payments", func(r chi.Router) {
		r.Use(h.requireAdmin)
		r.Put("/{id}", h.updatePayment)
		r.Delete("/{id}", h.deletePayment)
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

func (h *Handler) generate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := h.decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	if len(req.TripIDs) == 0 {
		h.fail(w, r, ErrNoTrips)
		return
	}
	input, err := req.input()
	if err != nil {
		h.fail(w, r, err)
		return
	}
	inv, err := h.service.GenerateInvoice(r.Context(), input)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.Success(w, http.StatusCreated, map[string]any{"invoiceId": inv.ID, "invoiceNumber": inv.Number})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := ListFilter{Status: Status(q.Get("status"))}
	if raw := q.Get("contractor_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			h.fail(w, r, httpx.NewError(httpx.ErrValidation, "invalid contractor_id"))
			return
		}
		filter.ContractorID = id
	}
	filter.Page, filter.PerPage = shared.PageFromQuery(q)
	page, err := h.service.ListInvoices(r.Context(), filter)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.Success(w, http.StatusOK, map[string]any{"invoices": page.Invoices, "pagination": page.Pagination})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	inv, err := h.service.GetInvoice(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.Success(w, http.StatusOK, map[string]any{"invoice": inv})
}

func (h *Handler) deleteInvoice(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteInvoice(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.Success(w, http.StatusOK, nil)
}

func (h *Handler) getMetadata(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	meta, err := h.service.GetInvoiceMetadata(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.Success(w, http.StatusOK, map[string]any{"metadata": meta})
}

func (h *Handler) updateMetadata(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req metadataRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		h.fail(w, r, ErrInvalidMetadata)
		return
	}
	if err := h.service.UpdateInvoiceMetadata(r.Context(), id, req.metadataJSON(), req.TotalAmount); err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.Success(w, http.StatusOK, nil)
}

func (h *Handler) reception(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req receptionRequest
	if err := h.decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	input, err := req.input()
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.service.MarkReceived(r.Context(), id, input); err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.Success(w, http.StatusOK, nil)
}

func (h *Handler) listPayments(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	payments, err := h.service.ListPayments(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.Success(w, http.StatusOK, map[string]any{"payments": payments})
}

func (h *Handler) recordPayment(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	input, err := h.paymentInput(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	pay, err := h.service.RecordPayment(r.Context(), id, input)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.Success(w, http.StatusCreated, map[string]any{"paymentId": pay.ID})
}

func (h *Handler) updatePayment(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	input, err := h.paymentInput(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	pay, err := h.service.UpdatePayment(r.Context(), id, input)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.Success(w, http.StatusOK, map[string]any{"payment": pay})
}

func (h *Handler) deletePayment(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeletePayment(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.Success(w, http.StatusOK, nil)
}

func (h *Handler) paymentInput(r *http.Request) (PaymentInput, error) {
	var req paymentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		return PaymentInput{}, httpx.NewError(httpx.ErrValidation, "invalid request body")
	}
	return req.input()
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
		h.fail(w, r, httpx.NewError(httpx.ErrValidation, "invalid id"))
		return 0, false
	}
	return id, true
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if httpx.StatusFor(err) == http.StatusInternalServerError {
		h.logger.Error("billing operation failed", slog.String("path", r.URL.Path), slog.Any("error", err))
	}
	httpx.Failure(w, err, httpx.FieldMessage)
}
