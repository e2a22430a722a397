package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

// retainHistoryFor bounds how long booking attempts stay queryable.
const retainHistoryFor = 90 * 24 * time.Hour

type Scheduler interface {
	RegisterTasks(bookingCron string, withCleanup bool) error
	Run()
	Shutdown()
}

type scheduler struct {
	asynqScheduler *asynq.Scheduler
	log            *slog.Logger
}

func NewScheduler(redisOpt asynq.RedisConnOpt, log *slog.Logger) Scheduler {
	return &scheduler{
		asynqScheduler: asynq.NewScheduler(redisOpt, nil),
		log:            log,
	}
}

// RegisterTasks wires the recurring tasks: the booking run on the configured
// cron spec and, when the history database is enabled, a weekly cleanup.
func (s *scheduler) RegisterTasks(bookingCron string, withCleanup bool) error {
	bookingTask, err := NewBookingRunTask("schedule")
	if err != nil {
		return err
	}
	if _, err := s.asynqScheduler.Register(bookingCron, bookingTask); err != nil {
		return err
	}

	if withCleanup {
		cleanupTask, err := NewHistoryCleanupTask(retainHistoryFor)
		if err != nil {
			return err
		}
		if _, err := s.asynqScheduler.Register("0 4 * * 1", cleanupTask); err != nil {
			return err
		}
	}

	if s.log != nil {
		s.log.InfoContext(context.Background(), "scheduler: registered booking run",
			slog.String("cron", bookingCron))
	}

	return nil
}

func (s *scheduler) Run() {
	if s.log != nil {
		s.log.InfoContext(context.Background(), "scheduler: starting")
	}

	go func() {
		if err := s.asynqScheduler.Run(); err != nil && s.log != nil {
			s.log.ErrorContext(context.Background(), "scheduler: run failed", "error", err)
		}
	}()
}

func (s *scheduler) Shutdown() {
	if s.log != nil {
		s.log.InfoContext(context.Background(), "scheduler: shutting down")
	}

	s.asynqScheduler.Shutdown()
}
