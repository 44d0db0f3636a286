package trips

import (
	"context"
	"log/slog"

	"github.com/go-playground/validator/v10"

	"github.com/rvt-fleet/fleetledger/internal/platform/httpx"
	"github.com/rvt-fleet/fleetledger/internal/shared"
)

// Service answers trip queries for the billing screens.
type Service struct {
	repo      Repository
	validator *validator.Validate
	logger    *slog.Logger
}

// NewService constructs a trip service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, validator: validator.New(), logger: logger}
}

// ListUninvoiced returns the contractor's trips that are not linked to any invoice.
func (s *Service) ListUninvoiced(ctx context.Context, filter Filter) ([]Trip, error) {
	if err := shared.RequireActor(ctx); err != nil {
		return nil, err
	}
	if err := httpx.Validate(s.validator, filter); err != nil {
		return nil, err
	}
	if filter.DateFrom != nil && filter.DateTo != nil && filter.DateTo.Before(*filter.DateFrom) {
		return nil, ErrInvalidDateRange
	}
	filter.UninvoicedOnly = true
	trips, err := s.repo.List(ctx, filter)
	if err != nil {
		s.logger.Error("list uninvoiced trips", slog.Int64("contractor_id", filter.ContractorID), slog.Any("error", err))
		return nil, err
	}
	return trips, nil
}
