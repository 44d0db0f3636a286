package jobs

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jobmetrics "github.com/rvt-fleet/fleetledger/internal/jobs"
	"github.com/rvt-fleet/fleetledger/internal/statements"
)

type stubReconciler struct {
	result statements.ReconcileResult
	err    error
	calls  int
}

func (s *stubReconciler) ReconcileAll(context.Context) (statements.ReconcileResult, error) {
	s.calls++
	return s.result, s.err
}

func TestStatementReconcileJobRecordsRepairs(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := jobmetrics.NewMetrics(reg)
	svc := &stubReconciler{result: statements.ReconcileResult{Scanned: 5, Repaired: 2, Skipped: 1}}
	job := NewStatementReconcileJob(svc, nil, metrics)

	task, err := NewStatementsReconcileTask("")
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))

	assert.Equal(t, 1, svc.calls)
	expected := `
# HELP fleetledger_jobs_repaired_total Documents rewritten by repair jobs such as statement reconciliation.
# TYPE fleetledger_jobs_repaired_total counter
fleetledger_jobs_repaired_total{job="statements:reconcile"} 2
# HELP fleetledger_jobs_total Total job executions partitioned by job name and status.
# TYPE fleetledger_jobs_total counter
fleetledger_jobs_total{job="statements:reconcile",status="success"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"fleetledger_jobs_repaired_total", "fleetledger_jobs_total"))
}

func TestStatementReconcileJobFailure(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := jobmetrics.NewMetrics(reg)
	svc := &stubReconciler{result: statements.ReconcileResult{Scanned: 3, Repaired: 1}, err: errors.New("db down")}
	job := NewStatementReconcileJob(svc, nil, metrics)

	task, err := NewStatementsReconcileTask("cli")
	require.NoError(t, err)
	err = job.Handle(context.Background(), task)
	require.Error(t, err)

	expected := `
# HELP fleetledger_jobs_failures_total Total failures observed for background jobs.
# TYPE fleetledger_jobs_failures_total counter
fleetledger_jobs_failures_total{job="statements:reconcile"} 1
# HELP fleetledger_jobs_repaired_total Documents rewritten by repair jobs such as statement reconciliation.
# TYPE fleetledger_jobs_repaired_total counter
fleetledger_jobs_repaired_total{job="statements:reconcile"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"fleetledger_jobs_failures_total", "fleetledger_jobs_repaired_total"))
}

func TestStatementReconcileJobSkipsBadPayload(t *testing.T) {
	job := NewStatementReconcileJob(&stubReconciler{}, nil, jobmetrics.NewMetrics(prometheus.NewRegistry()))
	err := job.Handle(context.Background(), asynq.NewTask(TaskStatementsReconcile, []byte("{")))
	assert.Error(t, err)
}

func TestStatementReconcileJobRequiresService(t *testing.T) {
	var job *StatementReconcileJob
	task, err := NewStatementsReconcileTask("")
	require.NoError(t, err)
	assert.Error(t, job.Handle(context.Background(), task))
}

func TestJobsHealthWithoutInspector(t *testing.T) {
	router := chi.NewRouter()
	NewHandler(nil, nil).MountRoutes(router)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"queue":"default","pending":0}`, rec.Body.String())
}
