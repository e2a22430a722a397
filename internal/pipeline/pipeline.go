// Package pipeline runs the nightly fetch → match → book → notify sequence.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/courtbot/tennis-bot/internal/booking"
	"github.com/courtbot/tennis-bot/internal/domain"
	apperrors "github.com/courtbot/tennis-bot/internal/errors"
	"github.com/courtbot/tennis-bot/internal/history"
	"github.com/courtbot/tennis-bot/internal/notify"
	"github.com/courtbot/tennis-bot/internal/prefs"
	"github.com/courtbot/tennis-bot/internal/slots"
	"github.com/courtbot/tennis-bot/pkg/logger"
	"github.com/courtbot/tennis-bot/pkg/metrics"
)

// Trigger identifies what started a run.
const (
	TriggerSchedule = "schedule"
	TriggerManual   = "manual"
)

// RunReport is the outcome of one pipeline run, kept for the /status command.
type RunReport struct {
	Trigger    string
	TargetDate time.Time
	Outcome    string
	Message    string
	Result     booking.Result
	StartedAt  time.Time
	FinishedAt time.Time
}

// Pipeline owns the sequential booking run. A run never kills the process:
// every failure ends in a notification and a report.
type Pipeline struct {
	agent       *booking.Agent
	prefsStore  *prefs.Store
	notifier    notify.Notifier
	attempts    history.Repository
	errHandler  *apperrors.Handler
	log         *slog.Logger
	advanceDays int
	now         func() time.Time

	mu      sync.Mutex
	lastRun *RunReport
}

// New assembles a Pipeline. The attempts repository may be nil when no
// history database is configured.
func New(
	agent *booking.Agent,
	prefsStore *prefs.Store,
	notifier notify.Notifier,
	attempts history.Repository,
	errHandler *apperrors.Handler,
	advanceDays int,
	log *slog.Logger,
) *Pipeline {
	if log == nil {
		log = slog.Default()
	}

	return &Pipeline{
		agent:       agent,
		prefsStore:  prefsStore,
		notifier:    notifier,
		attempts:    attempts,
		errHandler:  errHandler,
		log:         log,
		advanceDays: advanceDays,
		now:         time.Now,
	}
}

// LastRun returns the most recent run report, or nil before the first run.
func (p *Pipeline) LastRun() *RunReport {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastRun
}

// Run executes one booking cycle and reports its outcome to subscribers.
func (p *Pipeline) Run(ctx context.Context, trigger string) *RunReport {
	ctx = logger.WithCorrelationID(ctx)

	target := p.now().AddDate(0, 0, p.advanceDays)
	dateStr := target.Format("2006-01-02")
	log := p.log.With(
		slog.String("trigger", trigger),
		slog.String("target_date", dateStr),
		slog.String("correlation_id", logger.CorrelationIDFromContext(ctx)),
	)

	report := &RunReport{Trigger: trigger, TargetDate: target, StartedAt: p.now()}
	log.Info("starting booking run", slog.String("weekday", target.Weekday().String()))

	p.execute(ctx, log, report, target, dateStr)

	report.FinishedAt = p.now()
	metrics.RecordPipelineRun(trigger, report.Outcome, report.FinishedAt.Sub(report.StartedAt))
	p.record(ctx, log, report)

	p.mu.Lock()
	p.lastRun = report
	p.mu.Unlock()

	log.Info("booking run finished", slog.String("outcome", report.Outcome))
	return report
}

func (p *Pipeline) execute(ctx context.Context, log *slog.Logger, report *RunReport, target time.Time, dateStr string) {
	applicable := p.prefsStore.ForWeekday(target.Weekday())
	if len(applicable) == 0 {
		report.Outcome = "no_preferences"
		report.Message = fmt.Sprintf("No booking preferences for %s. Skipping booking for %s.",
			target.Weekday(), dateStr)
		p.notifier.BroadcastSilent(ctx, report.Message)
		return
	}

	session, err := p.agent.OpenSession(ctx)
	if err != nil {
		p.fail(ctx, log, report, dateStr, nil, err)
		return
	}
	defer func() { _ = session.Close() }()

	alreadyBooked, err := p.agent.HasBookingAt(ctx, session, target, applicable)
	if err != nil {
		p.fail(ctx, log, report, dateStr, session, err)
		return
	}
	if alreadyBooked {
		report.Outcome = "already_booked"
		report.Message = fmt.Sprintf("Already have a booking for %s, nothing to do.", dateStr)
		p.notifier.BroadcastSilent(ctx, report.Message)
		return
	}

	available, err := p.agent.FetchAvailable(ctx, session, target)
	if err != nil {
		p.fail(ctx, log, report, dateStr, session, err)
		return
	}
	log.Info("fetched available slots", slog.Int("count", len(available)))

	candidates := slots.MatchForDay(available, applicable, target)
	if len(candidates) == 0 {
		report.Outcome = "no_slot"
		report.Message = fmt.Sprintf("No suitable slot found for %s.", dateStr)
		p.notifier.Broadcast(ctx, report.Message)
		return
	}
	log.Info("matched candidate slots", slog.Int("count", len(candidates)))

	result := p.agent.BookFirst(ctx, session, candidates)
	report.Result = result

	switch {
	case result.Success:
		report.Outcome = "booked"
		report.Message = fmt.Sprintf("✅ Booked Court %d for %s at %s.",
			result.Slot.Court, dateStr, slots.FormatClock(result.Slot.Start))
		p.notifier.Broadcast(ctx, report.Message)
	case result.Err != nil:
		p.fail(ctx, log, report, dateStr, session, result.Err)
	default:
		report.Outcome = "failed"
		report.Message = fmt.Sprintf("❌ Could not book a court for %s: %s.", dateStr, result.Reason)
		p.notifier.Broadcast(ctx, report.Message)
		p.notifier.Broadcast(ctx, "You can retry via /book_now.")
	}
}

// fail closes a run on an aborting error: log it, tell the subscribers, and
// leave the next attempt to the following scheduled run. When a session is
// still open its page state goes to the owner for diagnosis.
func (p *Pipeline) fail(ctx context.Context, log *slog.Logger, report *RunReport, dateStr string, session booking.Session, err error) {
	report.Outcome = "aborted"
	if report.Result.Err == nil {
		report.Result.Err = err
	}

	detail := err.Error()
	if p.errHandler != nil {
		detail = p.errHandler.Handle(ctx, err)
	} else {
		log.Error("booking run failed", slog.Any("error", err))
	}

	report.Message = fmt.Sprintf("❌ Failed to book a court for %s: %s", dateStr, detail)
	p.notifier.Broadcast(ctx, report.Message)
	p.notifier.Broadcast(ctx, "You can retry via /book_now.")

	p.sendDebugSnapshot(ctx, log, report, session)
}

// sendDebugSnapshot forwards the failing page's HTML and screenshot to the
// owner chat when the notifier supports it and a session is still open.
func (p *Pipeline) sendDebugSnapshot(ctx context.Context, log *slog.Logger, report *RunReport, session booking.Session) {
	sink, ok := p.notifier.(notify.DebugSink)
	if !ok || session == nil {
		return
	}

	artifacts, err := session.DebugArtifacts(ctx)
	if err != nil {
		log.Error("failed to capture page state", slog.Any("error", err))
		return
	}

	caption := fmt.Sprintf("Page state of the failed %s run for %s.",
		report.Trigger, report.TargetDate.Format("2006-01-02"))
	sink.SendDebugSnapshot(ctx, caption, artifacts.PageHTML, artifacts.Screenshot)
}

func (p *Pipeline) record(ctx context.Context, log *slog.Logger, report *RunReport) {
	if p.attempts == nil {
		return
	}

	attempt := &domain.BookingAttempt{
		TargetDate: report.TargetDate,
		Success:    report.Result.Success,
		Trigger:    report.Trigger,
		Attempts:   report.Result.Attempts,
		CreatedAt:  report.FinishedAt,
	}
	if report.Result.Slot != nil {
		attempt.SlotKey = report.Result.Slot.Key
		attempt.Court = report.Result.Slot.Court
		attempt.StartMinute = report.Result.Slot.Start
	}
	if report.Result.Err != nil {
		attempt.ErrorDetail = report.Result.Err.Error()
	} else if !report.Result.Success {
		attempt.ErrorDetail = report.Outcome
	}

	if err := apperrors.WithRetry(ctx, func() error {
		if err := p.attempts.Record(ctx, attempt); err != nil {
			return apperrors.NewStorageError(err)
		}
		return nil
	}); err != nil {
		log.Error("failed to record booking attempt", slog.Any("error", err))
	}
}

// Describe renders a run report for the /status command.
func (r *RunReport) Describe() string {
	if r == nil {
		return "No booking run has happened yet."
	}

	return fmt.Sprintf("Last run: %s (trigger %s) for %s: %s\n%s",
		r.FinishedAt.Format("2006-01-02 15:04"),
		r.Trigger,
		r.TargetDate.Format("2006-01-02"),
		r.Outcome,
		r.Message,
	)
}
