package poller

import (
	"context"
	"time"

	"hwbot/internal/homework"
)

// DefaultFailureFormat is the diagnostic sent after a failed iteration.
const DefaultFailureFormat = "Сбой в работе программы: %s"

// Fetcher returns the decoded response body for changes since from.
type Fetcher interface {
	Fetch(ctx context.Context, from int64) (any, error)
}

// Translator turns one raw response item into a notification text.
type Translator interface {
	Translate(raw any) (homework.Item, string, error)
}

// Notifier delivers one text to the chat.
type Notifier interface {
	Send(ctx context.Context, text string) error
}

type Config struct {
	Schedule Schedule
	// Lookback moves the initial cursor into the past.
	Lookback time.Duration
	// InitialCursor overrides the start cursor when > 0.
	InitialCursor int64
	// SuppressRepeatedErrors skips a diagnostic identical to the previous one.
	SuppressRepeatedErrors bool
	// FailureFormat has exactly one %s for the error text.
	FailureFormat string
}

type Outcome int

const (
	OutcomeOK Outcome = iota
	OutcomeNoUpdates
	// OutcomeIncomplete means some notification was not delivered; the
	// cursor stays put so the next iteration retries.
	OutcomeIncomplete
	OutcomeFailed
	OutcomeCanceled
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeNoUpdates:
		return "no_updates"
	case OutcomeIncomplete:
		return "incomplete"
	case OutcomeFailed:
		return "failed"
	case OutcomeCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// Result describes one iteration. Diagnostic is true when a failure message
// was handed to the notifier.
type Result struct {
	RunID      string        `json:"run_id"`
	Outcome    Outcome       `json:"-"`
	From       int64         `json:"from"`
	Cursor     int64         `json:"cursor"`
	Items      int           `json:"items"`
	Sent       []string      `json:"sent,omitempty"`
	Skipped    int           `json:"skipped"`
	Err        error         `json:"-"`
	Diagnostic bool          `json:"diagnostic"`
	Took       time.Duration `json:"took"`
}

// Snapshot is a point-in-time view of the loop state.
type Snapshot struct {
	Cursor              int64     `json:"cursor"`
	Iterations          uint64    `json:"iterations"`
	Failures            uint64    `json:"failures"`
	ConsecutiveFailures uint64    `json:"consecutive_failures"`
	Delivered           uint64    `json:"delivered"`
	Skipped             uint64    `json:"skipped"`
	Tracked             int       `json:"tracked"`
	LastOutcome         string    `json:"last_outcome,omitempty"`
	LastError           string    `json:"last_error,omitempty"`
	LastRunAt           time.Time `json:"last_run_at"`
	LastSuccessAt       time.Time `json:"last_success_at"`
	NextRunAt           time.Time `json:"next_run_at"`
}
