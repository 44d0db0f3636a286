package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskStatementsReconcile re-syncs every statement against its source documents.
	TaskStatementsReconcile = "statements:reconcile"
)

// StatementsReconcilePayload carries the trigger source for logging.
type StatementsReconcilePayload struct {
	Trigger string `json:"trigger"`
}

// NewStatementsReconcileTask constructs the reconcile task. An empty trigger means cron.
func NewStatementsReconcileTask(trigger string) (*asynq.Task, error) {
	if trigger == "" {
		trigger = "cron"
	}
	body, err := json.Marshal(StatementsReconcilePayload{Trigger: trigger})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskStatementsReconcile, body, asynq.Queue(QueueDefault)), nil
}
