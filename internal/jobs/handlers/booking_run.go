// Package handlers holds the asynq task handlers.
package handlers

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/courtbot/tennis-bot/internal/jobs"
	"github.com/courtbot/tennis-bot/internal/pipeline"
)

// BookingRunner is the part of the pipeline the handler needs.
type BookingRunner interface {
	Run(ctx context.Context, trigger string) *pipeline.RunReport
}

type BookingRunHandler struct {
	runner BookingRunner
	log    *slog.Logger
}

func NewBookingRunHandler(runner BookingRunner, log *slog.Logger) *BookingRunHandler {
	return &BookingRunHandler{runner: runner, log: log}
}

// ProcessTask executes one booking run. The pipeline reports failures to
// subscribers itself, so a failed outcome is still a processed task: returning
// an error here would make asynq re-run a flow that may already have booked.
func (h *BookingRunHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload jobs.BookingRunPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		if h.log != nil {
			h.log.ErrorContext(ctx, "booking run: failed to decode payload",
				slog.String("task_type", t.Type()), slog.String("error", err.Error()))
		}
		return err
	}

	report := h.runner.Run(ctx, payload.Trigger)

	if h.log != nil {
		h.log.InfoContext(ctx, "booking run task processed",
			slog.String("trigger", payload.Trigger),
			slog.String("outcome", report.Outcome),
		)
	}

	return nil
}
