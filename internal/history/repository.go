// Package history persists booking attempt outcomes for later inspection.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/courtbot/tennis-bot/internal/domain"
)

// Repository defines persistence operations for booking attempts.
type Repository interface {
	Record(ctx context.Context, attempt *domain.BookingAttempt) error
	Recent(ctx context.Context, limit int) ([]domain.BookingAttempt, error)
	// PurgeOlderThan deletes attempts older than the given age and reports how
	// many rows went away.
	PurgeOlderThan(ctx context.Context, age time.Duration) (int64, error)
}

type repository struct {
	db  *sql.DB
	log *slog.Logger
}

// NewRepository creates a SQL-backed attempt repository.
func NewRepository(db *sql.DB, log *slog.Logger) Repository {
	if log == nil {
		log = slog.Default()
	}

	return &repository{
		db:  db,
		log: log,
	}
}

// Record inserts one booking attempt row.
func (r *repository) Record(ctx context.Context, attempt *domain.BookingAttempt) error {
	const query = `
		INSERT INTO booking_attempts
			(target_date, slot_key, court, start_minute, success, error_detail, trigger_source, attempts, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	if attempt.CreatedAt.IsZero() {
		attempt.CreatedAt = time.Now().UTC()
	}

	if _, err := r.db.ExecContext(
		ctx,
		query,
		attempt.TargetDate,
		attempt.SlotKey,
		attempt.Court,
		attempt.StartMinute,
		attempt.Success,
		attempt.ErrorDetail,
		attempt.Trigger,
		attempt.Attempts,
		attempt.CreatedAt,
	); err != nil {
		r.log.Error("failed to record booking attempt",
			slog.String("slot", attempt.SlotKey), slog.Any("error", err))
		return fmt.Errorf("insert booking attempt: %w", err)
	}

	return nil
}

// Recent returns the newest attempts, most recent first.
func (r *repository) Recent(ctx context.Context, limit int) ([]domain.BookingAttempt, error) {
	const query = `
		SELECT id, target_date, slot_key, court, start_minute, success, error_detail, trigger_source, attempts, created_at
		FROM booking_attempts
		ORDER BY created_at DESC
		LIMIT $1
	`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("select booking attempts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var attempts []domain.BookingAttempt
	for rows.Next() {
		var a domain.BookingAttempt
		if err := rows.Scan(
			&a.ID,
			&a.TargetDate,
			&a.SlotKey,
			&a.Court,
			&a.StartMinute,
			&a.Success,
			&a.ErrorDetail,
			&a.Trigger,
			&a.Attempts,
			&a.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan booking attempt: %w", err)
		}
		attempts = append(attempts, a)
	}

	return attempts, rows.Err()
}

// PurgeOlderThan trims old attempt rows.
func (r *repository) PurgeOlderThan(ctx context.Context, age time.Duration) (int64, error) {
	const query = `DELETE FROM booking_attempts WHERE created_at < $1`

	res, err := r.db.ExecContext(ctx, query, time.Now().UTC().Add(-age))
	if err != nil {
		return 0, fmt.Errorf("purge booking attempts: %w", err)
	}

	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge booking attempts: %w", err)
	}
	return deleted, nil
}
