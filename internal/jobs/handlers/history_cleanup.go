package handlers

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/courtbot/tennis-bot/internal/history"
	"github.com/courtbot/tennis-bot/internal/jobs"
)

type HistoryCleanupHandler struct {
	attempts history.Repository
	log      *slog.Logger
}

func NewHistoryCleanupHandler(attempts history.Repository, log *slog.Logger) *HistoryCleanupHandler {
	return &HistoryCleanupHandler{attempts: attempts, log: log}
}

func (h *HistoryCleanupHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload jobs.HistoryCleanupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		if h.log != nil {
			h.log.ErrorContext(ctx, "history cleanup: failed to decode payload",
				slog.String("task_type", t.Type()), slog.String("error", err.Error()))
		}
		return err
	}

	deleted, err := h.attempts.PurgeOlderThan(ctx, payload.OlderThan)
	if err != nil {
		return err
	}

	if h.log != nil {
		h.log.InfoContext(ctx, "purged booking history",
			slog.Int64("deleted", deleted),
			slog.Duration("older_than", payload.OlderThan),
		)
	}
	return nil
}
