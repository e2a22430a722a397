package errors

import (
	"context"
	"errors"
	"log/slog"

	"github.com/getsentry/sentry-go"

	"github.com/courtbot/tennis-bot/pkg/logger"
)

const fallbackUserMessage = "Something went wrong. Please try again later."

// Handler centralizes error logging, Sentry capture, and user messaging.
type Handler struct {
	log           *slog.Logger
	sentryEnabled bool
}

func NewHandler(log *slog.Logger, sentryEnabled bool) *Handler {
	return &Handler{
		log:           log,
		sentryEnabled: sentryEnabled,
	}
}

// Handle logs err, forwards severe application errors to Sentry, and returns
// the message that should be shown to the chat user.
func (h *Handler) Handle(ctx context.Context, err error) string {
	if err == nil {
		return ""
	}

	if ctx == nil {
		ctx = context.Background()
	}

	var appErr *AppError
	if !errors.As(err, &appErr) || appErr == nil {
		h.report(ctx, "unknown error",
			slog.String("message", err.Error()),
			slog.String("severity", string(SeverityHigh)),
		)
		if h.sentryEnabled {
			h.sendToSentry(err)
		}

		return fallbackUserMessage
	}

	h.report(ctx, "application error",
		slog.String("code", appErr.Code),
		slog.String("message", appErr.Message),
		slog.String("severity", string(appErr.Severity)),
	)
	if h.sentryEnabled && (appErr.Severity == SeverityCritical || appErr.Severity == SeverityHigh) {
		h.sendToSentry(err)
	}

	if appErr.UserMessage != "" {
		return appErr.UserMessage
	}
	return fallbackUserMessage
}

func (h *Handler) report(ctx context.Context, msg string, attrs ...slog.Attr) {
	log := h.log
	if log == nil {
		log = slog.Default()
	}

	if correlationID := logger.CorrelationIDFromContext(ctx); correlationID != "" {
		attrs = append(attrs, slog.String("correlation_id", correlationID))
	}

	log.LogAttrs(ctx, slog.LevelError, msg, attrs...)
}

func (h *Handler) sendToSentry(err error) {
	sentry.WithScope(func(scope *sentry.Scope) {
		var appErr *AppError
		if errors.As(err, &appErr) && appErr != nil {
			if appErr.Code != "" {
				scope.SetTag("code", appErr.Code)
			}
			if appErr.Severity != "" {
				scope.SetTag("severity", string(appErr.Severity))
			}
		}

		sentry.CaptureException(err)
	})
}
