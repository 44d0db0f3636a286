package analytics

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rvt-fleet/fleetledger/internal/platform/httpx"
	"github.com/rvt-fleet/fleetledger/internal/pricing"
	"github.com/rvt-fleet/fleetledger/internal/shared"
	"github.com/rvt-fleet/fleetledger/internal/trips"
)

// TripLister lists a contractor's trips.
type TripLister interface {
	List(ctx context.Context, filter trips.Filter) ([]trips.Trip, error)
}

// ContractorReader loads a contractor with its price list.
type ContractorReader interface {
	GetContractor(ctx context.Context, id int64) (pricing.Contractor, error)
}

// Service estimates revenue from trips using the contractor price list.
type Service struct {
	trips       TripLister
	contractors ContractorReader
	cache       *Cache
	logger      *slog.Logger
}

// NewService wires the data sources with a Cache helper.
func NewService(trips TripLister, contractors ContractorReader, cache *Cache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{trips: trips, contractors: contractors, cache: cache, logger: logger}
}

// RevenueFilter scopes the estimate to one contractor and an optional date window.
type RevenueFilter struct {
	ContractorID int64
	From         *time.Time
	To           *time.Time
}

// MaterialRevenue aggregates priced trips of one material.
type MaterialRevenue struct {
	Material string  `json:"material"`
	Trips    int     `json:"trips"`
	Net      float64 `json:"net"`
	Gross    float64 `json:"gross"`
}

// TripRevenue is the revenue estimate for a contractor.
type TripRevenue struct {
	ContractorID int64             `json:"contractorId"`
	Materials    []MaterialRevenue `json:"materials"`
	Matched      int               `json:"matched"`
	Skipped      int               `json:"skipped"`
	Net          float64           `json:"net"`
	Gross        float64           `json:"gross"`
}

var errContractorRequired = httpx.NewError(httpx.ErrValidation, "contractor_id is required")

// TripRevenue prices every trip in the window. Matching ignores case and
// surrounding whitespace, and trips without a price are counted as skipped.
func (s *Service) TripRevenue(ctx context.Context, filter RevenueFilter) (TripRevenue, error) {
	if err := shared.RequireActor(ctx); err != nil {
		return TripRevenue{}, err
	}
	if filter.ContractorID <= 0 {
		return TripRevenue{}, errContractorRequired
	}
	loader := func(ctx context.Context) (interface{}, error) {
		return s.computeRevenue(ctx, filter)
	}
	if s.cache == nil {
		value, err := loader(ctx)
		if err != nil {
			return TripRevenue{}, err
		}
		return value.(TripRevenue), nil
	}
	key, err := s.cache.BuildKey(ctx, keyTripRevenue(filter)...)
	if err != nil {
		return TripRevenue{}, err
	}
	var out TripRevenue
	if err := s.cache.FetchJSON(ctx, key, &out, loader); err != nil {
		return TripRevenue{}, err
	}
	return out, nil
}

func (s *Service) computeRevenue(ctx context.Context, filter RevenueFilter) (TripRevenue, error) {
	contractor, err := s.contractors.GetContractor(ctx, filter.ContractorID)
	if err != nil {
		return TripRevenue{}, err
	}
	list, err := s.trips.List(ctx, trips.Filter{ContractorID: filter.ContractorID, DateFrom: filter.From, DateTo: filter.To})
	if err != nil {
		return TripRevenue{}, err
	}

	resolver := pricing.NewResolver(contractor, pricing.NormalizeInsensitive)
	type bucket struct {
		label string
		trips int
		net   decimal.Decimal
	}
	buckets := make(map[string]*bucket)
	out := TripRevenue{ContractorID: contractor.ID, Materials: []MaterialRevenue{}}
	for _, trip := range list {
		rate, ok := resolver.Resolve(trip.MaterialType, trip.FromLocation, trip.ToLocation)
		if !ok {
			out.Skipped++
			continue
		}
		out.Matched++
		key := pricing.NormalizeInsensitive(trip.MaterialType)
		b, ok := buckets[key]
		if !ok {
			b = &bucket{label: strings.TrimSpace(trip.MaterialType)}
			buckets[key] = b
		}
		b.trips++
		b.net = b.net.Add(pricing.ValueOf(trip, rate))
	}

	totalNet, totalGross := decimal.Zero, decimal.Zero
	for _, b := range buckets {
		gross := pricing.Gross(b.net)
		out.Materials = append(out.Materials, MaterialRevenue{
			Material: b.label,
			Trips:    b.trips,
			Net:      b.net.Round(2).InexactFloat64(),
			Gross:    gross.InexactFloat64(),
		})
		totalNet = totalNet.Add(b.net)
		totalGross = totalGross.Add(gross)
	}
	sort.Slice(out.Materials, func(i, j int) bool { return out.Materials[i].Material < out.Materials[j].Material })
	out.Net = totalNet.Round(2).InexactFloat64()
	out.Gross = totalGross.InexactFloat64()
	if out.Skipped > 0 {
		s.logger.Debug("trip revenue skipped unpriced trips",
			slog.Int64("contractor_id", contractor.ID), slog.Int("skipped", out.Skipped))
	}
	return out, nil
}
