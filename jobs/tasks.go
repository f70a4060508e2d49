package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskIntegrityScan cross-checks running balances against their sources.
	TaskIntegrityScan = "consistency:integrity_scan"
	// TaskIdempotencyCleanup prunes expired idempotency keys.
	TaskIdempotencyCleanup = "consistency:idempotency_cleanup"
)

// IntegrityScanPayload tunes what the scan flags.
type IntegrityScanPayload struct {
	// DebtTolerance is the largest acceptable gap, in pesos, between a
	// supplier's running debt and the sum of its open account balances.
	DebtTolerance float64 `json:"debt_tolerance"`
}

// NewIntegrityScanTask constructs an Asynq task.
func NewIntegrityScanTask(debtTolerance float64) (*asynq.Task, error) {
	data, err := json.Marshal(IntegrityScanPayload{DebtTolerance: debtTolerance})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskIntegrityScan, data), nil
}

// IdempotencyCleanupPayload bounds how long processed keys are retained.
type IdempotencyCleanupPayload struct {
	MaxAge time.Duration `json:"max_age"`
}

// NewIdempotencyCleanupTask constructs an Asynq task.
func NewIdempotencyCleanupTask(maxAge time.Duration) (*asynq.Task, error) {
	data, err := json.Marshal(IdempotencyCleanupPayload{MaxAge: maxAge})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskIdempotencyCleanup, data), nil
}
