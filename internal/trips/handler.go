package trips

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/rvt-fleet/fleetledger/internal/platform/httpx"
	"github.com/rvt-fleet/fleetledger/internal/pricing"
)

// Handler exposes trip queries over JSON.
type Handler struct {
	service *Service
}

// NewHandler builds a trip handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// MountRoutes registers trip routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/trips/uninvoiced", h.listUninvoiced)
}

func (h *Handler) listUninvoiced(w http.ResponseWriter, r *http.Request) {
	filter, err := filterFromQuery(r)
	if err != nil {
		httpx.Failure(w, err, httpx.FieldMessage)
		return
	}
	trips, err := h.service.ListUninvoiced(r.Context(), filter)
	if err != nil {
		httpx.Failure(w, err, httpx.FieldMessage)
		return
	}
	if trips == nil {
		trips = []Trip{}
	}
	httpx.Success(w, http.StatusOK, map[string]any{"trips": trips})
}

func filterFromQuery(r *http.Request) (Filter, error) {
	q := r.URL.Query()
	var filter Filter
	filter.ContractorID, _ = strconv.ParseInt(q.Get("contractor_id"), 10, 64)
	filter.Material = q.Get("material")
	if raw := q.Get("route"); raw != "" {
		route, err := pricing.ParseRoute(raw)
		if err != nil {
			return Filter{}, httpx.NewError(httpx.ErrValidation, err.Error())
		}
		filter.From, filter.To = route.From, route.To
	}
	var err error
	if filter.DateFrom, err = parseDate(q.Get("from")); err != nil {
		return Filter{}, err
	}
	if filter.DateTo, err = parseDate(q.Get("to")); err != nil {
		return Filter{}, err
	}
	if filter.DateTo != nil {
		end := filter.DateTo.Add(24*time.Hour - time.Nanosecond)
		filter.DateTo = &end
	}
	return filter, nil
}

func parseDate(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return nil, httpx.NewError(httpx.ErrValidation, "dates must be formatted as YYYY-MM-DD")
	}
	return &t, nil
}
