// Package jobs schedules and processes the background work of the bot: the
// nightly booking run and periodic history cleanup.
package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	TaskTypeBookingRun     = "booking:run"
	TaskTypeHistoryCleanup = "history:cleanup"
)

const (
	QueueCritical = "critical"
	QueueDefault  = "default"
	QueueLow      = "low"
)

type BookingRunPayload struct {
	Trigger string `json:"trigger"`
}

type HistoryCleanupPayload struct {
	OlderThan time.Duration `json:"older_than"`
}

// NewBookingRunTask builds the nightly booking task. A run is never retried by
// the queue: the pipeline reports its own failures, and a second pass could
// double-book.
func NewBookingRunTask(trigger string) (*asynq.Task, error) {
	payload, err := json.Marshal(BookingRunPayload{Trigger: trigger})
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(TaskTypeBookingRun, payload,
		asynq.Queue(QueueCritical),
		asynq.MaxRetry(0),
		asynq.Timeout(15*time.Minute),
	), nil
}

func NewHistoryCleanupTask(olderThan time.Duration) (*asynq.Task, error) {
	payload, err := json.Marshal(HistoryCleanupPayload{OlderThan: olderThan})
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(TaskTypeHistoryCleanup, payload, asynq.Queue(QueueLow)), nil
}
