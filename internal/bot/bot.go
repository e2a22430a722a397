// Package bot wires the Telegram front end: command routing, middleware, and
// the poller lifecycle.
package bot

import (
	"fmt"
	"log/slog"

	telebot "gopkg.in/telebot.v3"

	"github.com/courtbot/tennis-bot/internal/booking"
	"github.com/courtbot/tennis-bot/internal/bot/handlers"
	"github.com/courtbot/tennis-bot/internal/bot/keyboard"
	apperrors "github.com/courtbot/tennis-bot/internal/errors"
	"github.com/courtbot/tennis-bot/internal/history"
	"github.com/courtbot/tennis-bot/internal/idempotency"
	"github.com/courtbot/tennis-bot/internal/pipeline"
	"github.com/courtbot/tennis-bot/internal/prefs"
	"github.com/courtbot/tennis-bot/internal/ratelimit"
	"github.com/courtbot/tennis-bot/internal/subscribers"
	"github.com/courtbot/tennis-bot/pkg/config"
)

// Deps bundles everything the bot's handlers need.
type Deps struct {
	Subscribers subscribers.Store
	Preferences *prefs.Store
	Agent       *booking.Agent
	LastRun     func() *pipeline.RunReport
	TriggerRun  handlers.RunTrigger
	// Attempts is nil when the history database is disabled.
	Attempts history.Repository
	// Limiter and Idempotency are optional; nil disables the middleware.
	Limiter     ratelimit.Limiter
	Idempotency idempotency.Manager
	ErrHandler  *apperrors.Handler
}

// Bot wraps telebot.Bot with the application's routing and middleware.
type Bot struct {
	telebot  *telebot.Bot
	router   *Router
	keyboard *keyboard.Builder
	log      *slog.Logger
}

// New builds a telegram bot instance configured according to the application
// settings.
func New(cfg *config.Config, deps Deps, log *slog.Logger) (*Bot, error) {
	if log == nil {
		log = slog.Default()
	}

	tb, err := telebot.NewBot(telebot.Settings{
		Token:  cfg.Bot.Token,
		Poller: &telebot.LongPoller{Timeout: cfg.Bot.Timeout},
	})
	if err != nil {
		return nil, fmt.Errorf("initialize telebot: %w", err)
	}

	b := &Bot{
		telebot:  tb,
		router:   NewRouter(log),
		keyboard: keyboard.NewBuilder(log),
		log:      log,
	}

	b.setupRouter(cfg, deps)

	tb.Handle(telebot.OnText, b.router.Route)
	tb.Handle(telebot.OnCallback, b.router.Route)

	return b, nil
}

func (b *Bot) setupRouter(cfg *config.Config, deps Deps) {
	b.router.Use(RecoveryMiddleware(b.log, deps.ErrHandler))
	b.router.Use(AuthMiddleware(cfg.Bot.AuthorizedIDs, b.log))
	b.router.Use(IdempotencyMiddleware(deps.Idempotency, b.log))
	b.router.Use(RateLimitMiddleware(deps.Limiter, cfg.Bot.RateLimit, b.log))
	b.router.Use(ErrorHandlingMiddleware(deps.ErrHandler))
	b.router.Use(LoggingMiddleware(b.log))
	b.router.Use(MetricsMiddleware)

	b.router.RegisterCommand(CommandStart, handlers.NewStartHandler(deps.Subscribers, b.keyboard, b.log))
	b.router.RegisterCommand(CommandStop, handlers.NewStopHandler(deps.Subscribers, b.log))
	b.router.RegisterCommand(CommandBookNow, handlers.NewBookNowHandler(b.keyboard))
	b.router.RegisterCommand(CommandSchedule, handlers.NewScheduleHandler(deps.Preferences))
	b.router.RegisterCommand(CommandBookings, handlers.NewBookingsHandler(deps.Agent, b.log))
	b.router.RegisterCommand(CommandStatus, handlers.NewStatusHandler(deps.LastRun))
	b.router.RegisterCommand(CommandHistory, handlers.NewHistoryHandler(deps.Attempts, b.keyboard))
	b.router.RegisterCommand(CommandHelp, handlers.NewHelpHandler())

	b.router.RegisterCallback(keyboard.ActionBookRun, handlers.NewBookRunCallback(deps.TriggerRun, b.log))
	b.router.RegisterCallback(keyboard.ActionHistoryPage, handlers.NewHistoryPageCallback(deps.Attempts, b.keyboard))

	help := handlers.NewHelpHandler()
	b.router.SetDefault(func(c telebot.Context) error {
		return help(c)
	})
}

// Start runs the telegram bot event loop. It blocks until Stop is called.
func (b *Bot) Start() {
	b.telebot.Start()
}

// Stop gracefully stops the telegram bot.
func (b *Bot) Stop() {
	b.log.Info("stopping telegram bot")
	b.telebot.Stop()
}

// Telebot exposes the underlying telebot.Bot instance for integrations such
// as the notifier and health checks.
func (b *Bot) Telebot() *telebot.Bot {
	return b.telebot
}
