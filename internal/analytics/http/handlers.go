package analytichttp

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/rvt-fleet/fleetledger/internal/analytics"
	"github.com/rvt-fleet/fleetledger/internal/analytics/export"
	"github.com/rvt-fleet/fleetledger/internal/platform/httpx"
)

const requestTimeout = 2 * time.Second

// RevenueService defines the analytics data contract used by the handler.
type RevenueService interface {
	TripRevenue(ctx context.Context, filter analytics.RevenueFilter) (analytics.TripRevenue, error)
}

// Handler serves trip revenue estimates.
type Handler struct {
	logger  *slog.Logger
	service RevenueService
}

// NewHandler constructs the analytics HTTP handler.
func NewHandler(logger *slog.Logger, service RevenueService) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service}
}

func (h *Handler) handleTripRevenue(w http.ResponseWriter, r *http.Request) {
	revenue, ok := h.load(w, r)
	if !ok {
		return
	}
	httpx.Success(w, http.StatusOK, map[string]any{"revenue": revenue})
}

func (h *Handler) handleTripRevenueCSV(w http.ResponseWriter, r *http.Request) {
	revenue, ok := h.load(w, r)
	if !ok {
		return
	}
	buf := &bytes.Buffer{}
	if err := export.WriteTripRevenueCSV(buf, revenue); err != nil {
		h.logger.Error("trip revenue csv failed", slog.Any("error", err))
		httpx.Failure(w, err, httpx.FieldMessage)
		return
	}
	filename := fmt.Sprintf("trip-revenue-%d.csv", revenue.ContractorID)
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (h *Handler) load(w http.ResponseWriter, r *http.Request) (analytics.TripRevenue, bool) {
	filter, err := parseFilter(r)
	if err != nil {
		httpx.Failure(w, err, httpx.FieldMessage)
		return analytics.TripRevenue{}, false
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	revenue, err := h.service.TripRevenue(ctx, filter)
	if err != nil {
		if httpx.StatusFor(err) == http.StatusInternalServerError {
			h.logger.Error("trip revenue failed", slog.Int64("contractor_id", filter.ContractorID), slog.Any("error", err))
		}
		httpx.Failure(w, err, httpx.FieldMessage)
		return analytics.TripRevenue{}, false
	}
	return revenue, true
}

func parseFilter(r *http.Request) (analytics.RevenueFilter, error) {
	q := r.URL.Query()
	var filter analytics.RevenueFilter
	if raw := q.Get("contractor_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return filter, httpx.NewError(httpx.ErrValidation, "invalid contractor_id")
		}
		filter.ContractorID = id
	}
	var err error
	if filter.From, err = parseDay(q.Get("from"), false); err != nil {
		return filter, err
	}
	if filter.To, err = parseDay(q.Get("to"), true); err != nil {
		return filter, err
	}
	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return filter, httpx.NewError(httpx.ErrValidation, "to must not be before from")
	}
	return filter, nil
}

func parseDay(raw string, endOfDay bool) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, httpx.NewError(httpx.ErrValidation, "dates must be YYYY-MM-DD")
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}
