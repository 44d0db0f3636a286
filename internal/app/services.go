package app

import (
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/rvt-fleet/fleetledger/internal/analytics"
	"github.com/rvt-fleet/fleetledger/internal/billing"
	"github.com/rvt-fleet/fleetledger/internal/observability"
	"github.com/rvt-fleet/fleetledger/internal/pricing"
	"github.com/rvt-fleet/fleetledger/internal/shared"
	"github.com/rvt-fleet/fleetledger/internal/statements"
	"github.com/rvt-fleet/fleetledger/internal/trips"
)

// Services is the wired domain layer shared by the API server and the worker.
type Services struct {
	Cache      *analytics.Cache
	Sessions   *shared.SessionStore
	Trips      *trips.Service
	Billing    *billing.Service
	Statements *statements.Service
	Analytics  *analytics.Service
}

// BuildServices wires repositories and services. metrics may be nil.
func BuildServices(cfg *Config, pool *pgxpool.Pool, redisClient *redis.Client, logger *slog.Logger, metrics *observability.Metrics) *Services {
	cache := analytics.NewCache(redisClient, cfg.CacheTTL)
	tripRepo := trips.NewRepository(pool)
	contractorRepo := pricing.NewRepository(pool)
	billingRepo := billing.NewRepository(pool)
	sources := billing.NewStatementSources(billingRepo)

	statementService := statements.NewService(statements.NewRepository(pool), sources, sources, logger)

	var billingMetrics *observability.BillingMetrics
	if metrics != nil {
		billingMetrics = metrics.Billing
	}
	billingService := billing.NewService(billingRepo, billing.Dependencies{
		Trips:         tripRepo,
		Contractors:   contractorRepo,
		Statements:    statementService,
		Cache:         cache,
		Audit:         shared.NewAuditLogger(pool),
		Metrics:       billingMetrics,
		Logger:        logger,
		InvoicePrefix: cfg.InvoicePrefix,
	})

	return &Services{
		Cache:      cache,
		Sessions:   shared.NewSessionStore(redisClient, cfg.SessionTTL),
		Trips:      trips.NewService(tripRepo, logger),
		Billing:    billingService,
		Statements: statementService,
		Analytics:  analytics.NewService(tripRepo, contractorRepo, cache, logger),
	}
}
