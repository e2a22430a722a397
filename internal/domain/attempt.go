package domain

import "time"

// BookingAttempt represents one recorded outcome of a booking run, stored in
// the optional history database.
type BookingAttempt struct {
	ID          int64
	TargetDate  time.Time
	SlotKey     string
	Court       int
	StartMinute int
	Success     bool
	ErrorDetail string
	Trigger     string
	Attempts    int
	CreatedAt   time.Time
}
