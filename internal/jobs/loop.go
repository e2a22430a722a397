package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// RunFunc executes one booking run.
type RunFunc func(ctx context.Context, trigger string)

// Loop is the in-process fallback scheduler used when Redis, and with it the
// asynq queue, is disabled. It fires the booking run on the same cron spec the
// queue scheduler would use.
type Loop struct {
	schedule cron.Schedule
	run      RunFunc
	log      *slog.Logger
}

// NewLoop parses a standard 5-field cron spec.
func NewLoop(spec string, run RunFunc, log *slog.Logger) (*Loop, error) {
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, err
	}

	if log == nil {
		log = slog.Default()
	}

	return &Loop{schedule: schedule, run: run, log: log}, nil
}

// Run blocks, firing the booking run at each cron tick, until ctx is done.
func (l *Loop) Run(ctx context.Context) {
	for {
		next := l.schedule.Next(time.Now())
		l.log.Info("next scheduled booking run", slog.Time("at", next))

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			l.log.Info("schedule loop stopped")
			return
		case <-timer.C:
			l.run(ctx, "schedule")
		}
	}
}
