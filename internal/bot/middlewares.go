package bot

import (
	"context"
	stdErrors "errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	telebot "gopkg.in/telebot.v3"

	"github.com/courtbot/tennis-bot/internal/bot/handlers"
	apperrors "github.com/courtbot/tennis-bot/internal/errors"
	"github.com/courtbot/tennis-bot/internal/idempotency"
	"github.com/courtbot/tennis-bot/internal/ratelimit"
	"github.com/courtbot/tennis-bot/pkg/config"
	"github.com/courtbot/tennis-bot/pkg/metrics"
)

// RecoveryMiddleware catches panics, reports them via the centralized
// handler, and notifies the user.
func RecoveryMiddleware(log *slog.Logger, errHandler *apperrors.Handler) handlers.Middleware {
	if log == nil {
		log = slog.Default()
	}

	return func(next handlers.Handler) handlers.Handler {
		if next == nil {
			return nil
		}

		return func(c telebot.Context) (err error) {
			defer func() {
				if r := recover(); r != nil {
					log.Error("panic recovered in handler",
						slog.Any("panic", r), slog.String("stack", string(debug.Stack())))

					userMsg := "⚠️ Something went wrong. Please try again later."
					if errHandler != nil {
						if msg := errHandler.Handle(context.Background(), fmt.Errorf("panic recovered: %v", r)); msg != "" {
							userMsg = msg
						}
					}

					if c != nil {
						if sendErr := c.Send(userMsg); sendErr != nil {
							log.Error("failed to notify user about panic", slog.Any("error", sendErr))
						}
					}

					err = nil
				}
			}()

			return next(c)
		}
	}
}

// ErrorHandlingMiddleware centralizes error reporting and user messaging for
// handler failures.
func ErrorHandlingMiddleware(errHandler *apperrors.Handler) handlers.Middleware {
	return func(next handlers.Handler) handlers.Handler {
		if next == nil {
			return nil
		}

		return func(c telebot.Context) error {
			err := next(c)
			if err == nil {
				return nil
			}

			userMsg := "Something went wrong. Please try again later."
			if errHandler != nil {
				if msg := errHandler.Handle(context.Background(), err); msg != "" {
					userMsg = msg
				}
			}

			if c != nil {
				_ = c.Send(userMsg)
			}

			return nil
		}
	}
}

// LoggingMiddleware logs basic telemetry about incoming updates.
func LoggingMiddleware(log *slog.Logger) handlers.Middleware {
	if log == nil {
		log = slog.Default()
	}

	return func(next handlers.Handler) handlers.Handler {
		if next == nil {
			return nil
		}

		return func(c telebot.Context) error {
			start := time.Now()
			userID := senderID(c)
			action := updateAction(c)

			log.Info("handling update", slog.Int64("user_id", userID), slog.String("action", action))
			err := next(c)
			log.Info("handled update",
				slog.Int64("user_id", userID),
				slog.String("action", action),
				slog.Duration("duration", time.Since(start)),
				slog.Any("error", err),
			)

			return err
		}
	}
}

// AuthMiddleware rejects updates from users outside the authorized allowlist.
// The bot drives a shared club account and pays with a shared card; there is
// no such thing as a guest user.
func AuthMiddleware(authorizedIDs []int64, log *slog.Logger) handlers.Middleware {
	if log == nil {
		log = slog.Default()
	}

	allowed := make(map[int64]struct{}, len(authorizedIDs))
	for _, id := range authorizedIDs {
		allowed[id] = struct{}{}
	}

	return func(next handlers.Handler) handlers.Handler {
		if next == nil {
			return nil
		}

		return func(c telebot.Context) error {
			userID := senderID(c)
			if _, ok := allowed[userID]; !ok {
				log.Warn("rejecting update from unauthorized user", slog.Int64("user_id", userID))
				return c.Send("You are not authorized to use this bot.")
			}

			return next(c)
		}
	}
}

// RateLimitMiddleware enforces the per-user command budget.
func RateLimitMiddleware(limiter ratelimit.Limiter, cfg config.RateLimitConfig, log *slog.Logger) handlers.Middleware {
	if log == nil {
		log = slog.Default()
	}

	return func(next handlers.Handler) handlers.Handler {
		if next == nil {
			return nil
		}

		return func(c telebot.Context) error {
			if limiter == nil || cfg.Limit <= 0 {
				return next(c)
			}

			userID := senderID(c)
			key := fmt.Sprintf("user:%d", userID)

			result, err := limiter.Check(context.Background(), key, cfg.Limit, cfg.Window)
			if err != nil && result == nil {
				// Limiter backend failure: let the update through rather than
				// locking out the operator.
				log.Warn("rate limiter error", slog.Int64("user_id", userID), slog.Any("error", err))
				return next(c)
			}

			if !result.Allowed {
				log.Warn("rate limit exceeded", slog.Int64("user_id", userID))
				return c.Send("Slow down a little. Try again in a minute.")
			}

			return next(c)
		}
	}
}

// IdempotencyMiddleware drops redelivered Telegram updates.
func IdempotencyMiddleware(manager idempotency.Manager, log *slog.Logger) handlers.Middleware {
	if manager == nil {
		return func(next handlers.Handler) handlers.Handler {
			return next
		}
	}
	if log == nil {
		log = slog.Default()
	}

	return func(next handlers.Handler) handlers.Handler {
		if next == nil {
			return nil
		}

		return func(c telebot.Context) error {
			key := updateKey(c)
			if key == "" {
				return next(c)
			}

			err := manager.Execute(context.Background(), key, 24*time.Hour, func(context.Context) error {
				return next(c)
			})
			if stdErrors.Is(err, idempotency.ErrDuplicate) {
				return nil
			}
			return err
		}
	}
}

// MetricsMiddleware measures execution time and status for bot handlers.
func MetricsMiddleware(next handlers.Handler) handlers.Handler {
	if next == nil {
		return nil
	}

	return func(c telebot.Context) error {
		start := time.Now()
		err := next(c)

		status := "ok"
		if err != nil {
			status = "error"
		}
		metrics.RecordCommand(updateAction(c), status, time.Since(start))

		return err
	}
}

func senderID(c telebot.Context) int64 {
	if c != nil && c.Sender() != nil {
		return c.Sender().ID
	}
	return 0
}

func updateAction(c telebot.Context) string {
	if c == nil {
		return "unknown"
	}

	if cb := c.Callback(); cb != nil && cb.Data != "" {
		return cb.Data
	}
	if text := c.Text(); text != "" {
		return commandName(text)
	}
	return "unknown"
}

// updateKey derives the idempotency key for an update: callbacks by their
// unique identifier, messages by chat and message id.
func updateKey(c telebot.Context) string {
	if c == nil {
		return ""
	}

	if cb := c.Callback(); cb != nil && cb.ID != "" {
		return "cb:" + cb.ID
	}

	if msg := c.Message(); msg != nil && msg.ID != 0 {
		chat := int64(0)
		if msg.Chat != nil {
			chat = msg.Chat.ID
		}
		return idempotency.GenerateKey("msg", chat, msg.ID)
	}

	return ""
}
