package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	goredis "github.com/redis/go-redis/v9"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/courtbot/tennis-bot/internal/booking"
	"github.com/courtbot/tennis-bot/internal/bot"
	"github.com/courtbot/tennis-bot/internal/bot/handlers"
	"github.com/courtbot/tennis-bot/internal/database"
	apperrors "github.com/courtbot/tennis-bot/internal/errors"
	"github.com/courtbot/tennis-bot/internal/health"
	"github.com/courtbot/tennis-bot/internal/history"
	"github.com/courtbot/tennis-bot/internal/idempotency"
	"github.com/courtbot/tennis-bot/internal/jobs"
	jobhandlers "github.com/courtbot/tennis-bot/internal/jobs/handlers"
	"github.com/courtbot/tennis-bot/internal/lifecycle"
	"github.com/courtbot/tennis-bot/internal/notify"
	"github.com/courtbot/tennis-bot/internal/pipeline"
	"github.com/courtbot/tennis-bot/internal/prefs"
	"github.com/courtbot/tennis-bot/internal/ratelimit"
	"github.com/courtbot/tennis-bot/internal/slots"
	"github.com/courtbot/tennis-bot/internal/subscribers"
	"github.com/courtbot/tennis-bot/pkg/config"
	"github.com/courtbot/tennis-bot/pkg/graceful"
	"github.com/courtbot/tennis-bot/pkg/logger"
	appredis "github.com/courtbot/tennis-bot/pkg/redis"

	_ "github.com/lib/pq"
)

const memoryLimiterCleanupInterval = 10 * time.Minute

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	if err := logger.InitSentry(*cfg); err != nil {
		slog.Warn("sentry initialization failed", slog.Any("error", err))
	}

	log := logger.New(*cfg)
	log.Info("starting tennis booking bot",
		slog.String("env", cfg.AppEnv),
		slog.Bool("dry_run", cfg.Booking.DryRun),
		slog.Int("advance_days", cfg.Booking.AdvanceDays),
	)

	shutdown := lifecycle.NewShutdown(log)
	errHandler := apperrors.NewHandler(log, cfg.Sentry.Enabled)

	prefsStore, err := prefs.NewStore(cfg.Booking.PreferencesFile, log)
	if err != nil {
		log.Error("failed to load booking preferences", slog.Any("error", err))
		os.Exit(1)
	}
	prefsStore.Watch()

	var redisClient *goredis.Client
	if cfg.Redis.Enabled {
		redisClient, err = appredis.New(ctx, cfg.Redis)
		if err != nil {
			log.Error("failed to connect to redis", slog.Any("error", err))
			os.Exit(1)
		}
		shutdown.Register("redis", func(context.Context) error {
			return redisClient.Close()
		})
	}

	subs, err := newSubscriberStore(cfg, redisClient, log)
	if err != nil {
		log.Error("failed to open subscriber store", slog.Any("error", err))
		os.Exit(1)
	}

	var db *sql.DB
	var attempts history.Repository
	if cfg.Database.Enabled {
		db, err = openDatabase(ctx, cfg, log)
		if err != nil {
			log.Error("failed to prepare database", slog.Any("error", err))
			os.Exit(1)
		}
		shutdown.Register("database", func(context.Context) error {
			return db.Close()
		})
		attempts = history.NewRepository(db, log)
	}

	var card booking.Card
	if cfg.Club.Card != "" {
		card, err = booking.ParseCard(cfg.Club.Card)
		if err != nil {
			log.Error("invalid card secret", slog.Any("error", err))
			os.Exit(1)
		}
	}

	driver := booking.NewChromeDriver(cfg.Browser, cfg.Club.BaseURL, log)
	agent := booking.NewAgent(
		driver,
		slots.NewParser(log),
		booking.Credentials{Username: cfg.Club.Username, Password: cfg.Club.Password},
		card,
		cfg.Booking.DryRun,
		log,
	)

	// The pipeline needs the bot's sender for notifications and the bot needs
	// the pipeline for /status and /book_now, so those two dependencies are
	// bound after both exist.
	var pipe *pipeline.Pipeline
	var triggerRun handlers.RunTrigger

	deps := bot.Deps{
		Subscribers: subs,
		Preferences: prefsStore,
		Agent:       agent,
		Attempts:    attempts,
		ErrHandler:  errHandler,
		LastRun: func() *pipeline.RunReport {
			if pipe == nil {
				return nil
			}
			return pipe.LastRun()
		},
		TriggerRun: func(ctx context.Context) error {
			return triggerRun(ctx)
		},
	}

	if redisClient != nil {
		deps.Limiter = ratelimit.NewRedisLimiter(redisClient, log)
		deps.Idempotency = idempotency.NewManager(idempotency.NewRedisStore(redisClient), log)
	} else {
		memLimiter := ratelimit.NewMemoryLimiter()
		deps.Limiter = memLimiter
		go cleanupLoop(ctx, memLimiter)
	}

	b, err := bot.New(cfg, deps, log)
	if err != nil {
		log.Error("failed to initialize telegram bot", slog.Any("error", err))
		os.Exit(1)
	}

	ownerID := cfg.Bot.OwnerID
	if ownerID == 0 && len(cfg.Bot.AuthorizedIDs) > 0 {
		ownerID = cfg.Bot.AuthorizedIDs[0]
	}
	notifier := notify.NewTelegramNotifier(b.Telebot(), subs, ownerID, log)
	pipe = pipeline.New(agent, prefsStore, notifier, attempts, errHandler, cfg.Booking.AdvanceDays, log)

	triggerRun, err = startJobs(ctx, cfg, pipe, attempts, shutdown, log)
	if err != nil {
		log.Error("failed to start job scheduling", slog.Any("error", err))
		os.Exit(1)
	}

	checker := health.NewChecker(log)
	checker.AddCheck("telegram", health.NewTelegramChecker(b.Telebot()))
	checker.AddCheck("preferences", health.CheckFunc(func(context.Context) error {
		_, statErr := os.Stat(cfg.Booking.PreferencesFile)
		return statErr
	}))
	if redisClient != nil {
		checker.AddCheck("redis", health.NewRedisChecker(redisClient))
	}
	if db != nil {
		checker.AddCheck("database", health.NewDBChecker(db))
	}

	httpServer := graceful.NewServer(log, &http.Server{
		Addr:    cfg.Server.Port,
		Handler: logger.Middleware(newMux(checker)),
	}, cfg.Server.ShutdownTimeout)
	go func() {
		if err := httpServer.ListenAndServe(ctx); err != nil {
			log.Error("http server stopped", slog.Any("error", err))
		}
	}()

	shutdown.Register("telegram-bot", func(context.Context) error {
		b.Stop()
		return nil
	})
	go b.Start()

	log.Info("tennis booking bot is running")
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := shutdown.Execute(shutdownCtx); err != nil {
		log.Error("shutdown finished with errors", slog.Any("error", err))
	}
	log.Info("tennis booking bot stopped")
}

func newSubscriberStore(cfg *config.Config, redisClient *goredis.Client, log *slog.Logger) (subscribers.Store, error) {
	if redisClient != nil {
		return subscribers.NewRedisStore(redisClient, log), nil
	}
	return subscribers.NewFileStore(cfg.Booking.SubscribersFile, log)
}

func openDatabase(ctx context.Context, cfg *config.Config, log *slog.Logger) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		return nil, err
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	migrator := database.NewMigrator(db, log)
	if err := migrator.ApplyDir(ctx, cfg.Database.MigrationsDir); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

// startJobs wires the scheduled booking run. With Redis the asynq scheduler,
// worker and client carry it; without Redis an in-process cron loop fires the
// pipeline directly.
func startJobs(
	ctx context.Context,
	cfg *config.Config,
	pipe *pipeline.Pipeline,
	attempts history.Repository,
	shutdown *lifecycle.Shutdown,
	log *slog.Logger,
) (handlers.RunTrigger, error) {
	if !cfg.Redis.Enabled {
		loop, err := jobs.NewLoop(cfg.Booking.Cron, func(ctx context.Context, trigger string) {
			pipe.Run(ctx, trigger)
		}, log)
		if err != nil {
			return nil, err
		}
		go loop.Run(ctx)

		return func(context.Context) error {
			go pipe.Run(context.WithoutCancel(ctx), pipeline.TriggerManual)
			return nil
		}, nil
	}

	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}

	worker := jobs.NewWorker(redisOpt, map[string]int{
		jobs.QueueCritical: 6,
		jobs.QueueDefault:  3,
		jobs.QueueLow:      1,
	}, log)
	worker.RegisterHandler(jobs.TaskTypeBookingRun, jobhandlers.NewBookingRunHandler(pipe, log))
	if attempts != nil {
		worker.RegisterHandler(jobs.TaskTypeHistoryCleanup, jobhandlers.NewHistoryCleanupHandler(attempts, log))
	}
	go func() {
		if err := worker.Run(); err != nil {
			log.Error("jobs worker stopped", slog.Any("error", err))
		}
	}()
	shutdown.Register("jobs-worker", func(context.Context) error {
		worker.Shutdown()
		return nil
	})

	scheduler := jobs.NewScheduler(redisOpt, log)
	if err := scheduler.RegisterTasks(cfg.Booking.Cron, attempts != nil); err != nil {
		return nil, err
	}
	scheduler.Run()
	shutdown.Register("jobs-scheduler", func(context.Context) error {
		scheduler.Shutdown()
		return nil
	})

	manager := jobs.NewManager(redisOpt, log)
	shutdown.Register("jobs-client", func(context.Context) error {
		return manager.Close()
	})

	return func(ctx context.Context) error {
		return manager.EnqueueBookingRun(ctx, pipeline.TriggerManual)
	}, nil
}

func cleanupLoop(ctx context.Context, limiter *ratelimit.MemoryLimiter) {
	ticker := time.NewTicker(memoryLimiterCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			limiter.Cleanup(time.Hour)
		}
	}
}

func newMux(checker *health.Checker) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		results := checker.Check(r.Context())

		status := http.StatusOK
		for _, result := range results {
			if result != "OK" {
				status = http.StatusServiceUnavailable
				break
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(results)
	})
	return mux
}
