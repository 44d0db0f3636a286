package analytics

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/rvt-fleet/fleetledger/internal/pricing"
	"github.com/rvt-fleet/fleetledger/internal/shared"
	"github.com/rvt-fleet/fleetledger/internal/trips"
)

type mockTrips struct {
	trips []trips.Trip
	calls int
	last  trips.Filter
}

func (m *mockTrips) List(ctx context.Context, filter trips.Filter) ([]trips.Trip, error) {
	m.calls++
	m.last = filter
	return m.trips, nil
}

type mockContractors struct {
	contractor pricing.Contractor
}

func (m mockContractors) GetContractor(ctx context.Context, id int64) (pricing.Contractor, error) {
	if id != m.contractor.ID {
		return pricing.Contractor{}, pricing.ErrContractorNotFound
	}
	return m.contractor, nil
}

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCache(client, time.Minute)
}

func viewerCtx() context.Context {
	return shared.ContextWithActor(context.Background(), shared.Actor{UserID: 5, Role: shared.RoleViewer})
}

func fixtureTrips() *mockTrips {
	return &mockTrips{trips: []trips.Trip{
		{ID: 1, MaterialType: "Sand", FromLocation: "SiteA", ToLocation: "SiteB"},
		{ID: 2, MaterialType: " sand", FromLocation: "sitea", ToLocation: "SITEB "},
		{ID: 3, MaterialType: "Gravel", FromLocation: "SiteA", ToLocation: "SiteB", Vehicle: trips.Vehicle{Capacity: "20 tons"}},
		{ID: 4, MaterialType: "Clay", FromLocation: "SiteA", ToLocation: "SiteB"},
	}}
}

func fixtureContractor() mockContractors {
	return mockContractors{contractor: pricing.Contractor{ID: 7, Sites: []pricing.Site{{Rules: []pricing.PriceRule{
		{Material: "Sand", From: "SiteA", To: "SiteB", Price: 50, Unit: "Per Trip"},
		{Material: "Gravel", From: "SiteA", To: "SiteB", Price: 3, Unit: "Per Ton"},
	}}}}}
}

func TestTripRevenueMatchesInsensitively(t *testing.T) {
	svc := NewService(fixtureTrips(), fixtureContractor(), nil, nil)

	revenue, err := svc.TripRevenue(viewerCtx(), RevenueFilter{ContractorID: 7})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if revenue.Matched != 3 || revenue.Skipped != 1 {
		t.Fatalf("expected 3 matched and 1 skipped, got %d/%d", revenue.Matched, revenue.Skipped)
	}
	if len(revenue.Materials) != 2 {
		t.Fatalf("expected 2 materials got %d", len(revenue.Materials))
	}
	gravel, sand := revenue.Materials[0], revenue.Materials[1]
	if gravel.Material != "Gravel" || gravel.Net != 60 || gravel.Gross != 63 {
		t.Fatalf("unexpected gravel row %+v", gravel)
	}
	if sand.Material != "Sand" || sand.Trips != 2 || sand.Net != 100 || sand.Gross != 105 {
		t.Fatalf("unexpected sand row %+v", sand)
	}
	if revenue.Net != 160 || revenue.Gross != 168 {
		t.Fatalf("unexpected totals %.2f/%.2f", revenue.Net, revenue.Gross)
	}
}

func TestTripRevenueRequiresScope(t *testing.T) {
	svc := NewService(fixtureTrips(), fixtureContractor(), nil, nil)

	if _, err := svc.TripRevenue(context.Background(), RevenueFilter{ContractorID: 7}); !errors.Is(err, shared.ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if _, err := svc.TripRevenue(viewerCtx(), RevenueFilter{}); err == nil {
		t.Fatalf("expected contractor validation error")
	}
	if _, err := svc.TripRevenue(viewerCtx(), RevenueFilter{ContractorID: 404}); !errors.Is(err, pricing.ErrContractorNotFound) {
		t.Fatalf("expected contractor not found, got %v", err)
	}
}

func TestTripRevenueCaches(t *testing.T) {
	repo := fixtureTrips()
	cache := newTestCache(t)
	svc := NewService(repo, fixtureContractor(), cache, nil)
	ctx := viewerCtx()
	from := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	filter := RevenueFilter{ContractorID: 7, From: &from}

	if _, err := svc.TripRevenue(ctx, filter); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.last.DateFrom == nil || !repo.last.DateFrom.Equal(from) {
		t.Fatalf("expected date window to reach the trip query")
	}

	// Second call should hit cache.
	if _, err := svc.TripRevenue(ctx, filter); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.calls != 1 {
		t.Fatalf("expected cached result, repo called %d times", repo.calls)
	}

	// Bumping the cache should trigger reload.
	if err := cache.Bump(ctx); err != nil {
		t.Fatalf("bump failed: %v", err)
	}
	repo.trips = repo.trips[:1]
	revenue, err := svc.TripRevenue(ctx, filter)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.calls != 2 || revenue.Matched != 1 {
		t.Fatalf("expected refreshed value, calls %d matched %d", repo.calls, revenue.Matched)
	}
}

func TestCacheVersioning(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()

	first, err := cache.BuildKey(ctx, "billing", "invoices", "7")
	if err != nil {
		t.Fatalf("build key: %v", err)
	}
	if first != "billing:invoices:7:1" {
		t.Fatalf("unexpected key %q", first)
	}
	if err := cache.Bump(ctx); err != nil {
		t.Fatalf("bump failed: %v", err)
	}
	second, err := cache.BuildKey(ctx, "billing", "invoices", "7")
	if err != nil {
		t.Fatalf("build key: %v", err)
	}
	if second != "billing:invoices:7:2" {
		t.Fatalf("unexpected key after bump %q", second)
	}
}

func TestFetchJSONCollapsesConcurrentMisses(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()
	var calls int32
	release := make(chan struct{})
	loader := func(context.Context) (interface{}, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return map[string]int{"value": 42}, nil
	}

	const callers = 8
	var (
		wg      sync.WaitGroup
		started sync.WaitGroup
		errs    = make(chan error, callers)
	)
	started.Add(callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			started.Done()
			var out map[string]int
			if err := cache.FetchJSON(ctx, "k", &out, loader); err != nil {
				errs <- err
				return
			}
			if out["value"] != 42 {
				errs <- errors.New("unexpected value")
			}
		}()
	}
	started.Wait()
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("fetch failed: %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("expected one loader call, got %d", got)
	}
}

func TestFetchJSONWithoutClient(t *testing.T) {
	var cache *Cache
	var out []string
	err := cache.FetchJSON(context.Background(), "k", &out, func(context.Context) (interface{}, error) {
		return []string{"a"}, nil
	})
	if err != nil || len(out) != 1 {
		t.Fatalf("expected passthrough load, got %v %v", out, err)
	}
	if err := cache.Bump(context.Background()); err != nil {
		t.Fatalf("nil cache bump should be a no-op: %v", err)
	}
}
