package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/rvt-fleet/fleetledger/internal/jobs"
	"github.com/rvt-fleet/fleetledger/internal/statements"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// Reconciler repairs statements that drifted from their source documents.
type Reconciler interface {
	ReconcileAll(ctx context.Context) (statements.ReconcileResult, error)
}

// StatementReconcileJob runs the statement reconciliation sweep.
type StatementReconcileJob struct {
	Service Reconciler
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewStatementReconcileJob constructs the job handler.
func NewStatementReconcileJob(service Reconciler, logger *slog.Logger, metrics *jobmetrics.Metrics) *StatementReconcileJob {
	return &StatementReconcileJob{
		Service: service,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle executes the reconcile sweep.
func (j *StatementReconcileJob) Handle(ctx context.Context, task *asynq.Task) error {
	if j == nil || j.Service == nil {
		return errors.New("statements reconcile: dependencies not configured")
	}
	var payload StatementsReconcilePayload
	if len(task.Payload()) > 0 {
		if err := json.Unmarshal(task.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}

	tracker := j.metrics().Track(TaskStatementsReconcile)
	start := j.now()
	result, err := j.Service.ReconcileAll(ctx)
	// a partial sweep still reports what it repaired before failing
	j.metrics().AddRepaired(TaskStatementsReconcile, result.Repaired)
	if err != nil {
		j.log().Error("reconcile statements", slog.String("trigger", payload.Trigger),
			slog.String("result", result.String()), slog.Any("error", err))
		return tracker.End(err)
	}

	j.log().Info("reconciled statements",
		slog.String("trigger", payload.Trigger),
		slog.Int("scanned", result.Scanned),
		slog.Int("repaired", result.Repaired),
		slog.Int("skipped", result.Skipped),
		slog.Duration("duration", j.now().Sub(start)))
	return tracker.End(nil)
}

func (j *StatementReconcileJob) metrics() *jobmetrics.Metrics {
	if j != nil && j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *StatementReconcileJob) log() *slog.Logger {
	if j != nil && j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskStatementsReconcile))
	}
	return slog.Default().With(slog.String("job", TaskStatementsReconcile))
}

func (j *StatementReconcileJob) now() time.Time {
	if j != nil && j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}

// WithClock overrides the internal clock for deterministic tests.
func (j *StatementReconcileJob) WithClock(clock func() time.Time) {
	if j != nil && clock != nil {
		j.clock = clock
	}
}
