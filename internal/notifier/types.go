package notifier

import (
	"time"

	"hwbot/internal/transport"
)

const (
	DefaultRatePerSec  = 1
	DefaultSendTimeout = 10 * time.Second

	historyLimit = 50
)

// Config controls delivery. Target is fixed at construction; the rest can be
// hot-applied.
type Config struct {
	Target         transport.ChatTarget
	RatePerSec     float64
	SendTimeout    time.Duration
	DisablePreview bool
	Silent         bool
}

type HistoryItem struct {
	At   time.Time
	Text string
}

// NotificationEvent is emitted on the event bus for notifier lifecycle events.
type NotificationEvent struct {
	ChatID   int64     `json:"chat_id"`
	ThreadID int       `json:"thread_id,omitempty"`
	Runes    int       `json:"runes"`
	At       time.Time `json:"at"`
	Error    string    `json:"error,omitempty"`
}
