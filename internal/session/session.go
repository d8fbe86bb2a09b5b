package session

import (
	"time"

	"github.com/google/uuid"
)

// Outcome is the final result of a session
type Outcome int

const (
	// Pending means the session has not ended
	Pending Outcome = iota
	// Success means the session completed normally
	Success
	// Failure means acquisition or transfer failed
	Failure
	// Aborted means the session was cut short by shutdown
	Aborted
	// TooShort means a recording ended before the minimum duration
	TooShort
)

// String returns the string representation of the outcome
func (o Outcome) String() string {
	switch o {
	case Pending:
		return "Pending"
	case Success:
		return "Success"
	case Failure:
		return "Failure"
	case Aborted:
		return "Aborted"
	case TooShort:
		return "TooShort"
	default:
		return "Unknown"
	}
}

// Session is one record or play run. It is created on a start request and
// mutated only by the worker.
type Session struct {
	ID        uuid.UUID
	Direction Direction
	Mode      Mode
	File      string
	Started   time.Time
	Stopped   time.Time
	Bytes     int64
	Outcome   Outcome
	Err       error
}

// New creates a pending session with a fresh id
func New(d Direction, m Mode) *Session {
	return &Session{
		ID:        uuid.New(),
		Direction: d,
		Mode:      m,
		Outcome:   Pending,
	}
}

// Duration returns the wall time between start and stop, or zero if either is unset
func (s *Session) Duration() time.Duration {
	if s.Started.IsZero() || s.Stopped.IsZero() {
		return 0
	}
	return s.Stopped.Sub(s.Started)
}

// LongEnough reports whether a recording strictly exceeds the minimum duration
func LongEnough(elapsed, minimum time.Duration) bool {
	return elapsed > minimum
}
