package config

// Config is the on-disk configuration merged with the environment.
//
// All durations are Go duration strings (e.g. "500ms", "10s", "1m").
// Credentials normally come from the environment (see env.go) rather than
// the file.
type Config struct {
	Practicum PracticumConfig `json:"practicum"`
	Telegram  TelegramConfig  `json:"telegram"`
	Poller    PollerConfig    `json:"poller"`
	Notifier  NotifierConfig  `json:"notifier"`
	Messages  MessagesConfig  `json:"messages"`
	Logging   LoggingConfig   `json:"logging"`
}

type PracticumConfig struct {
	Token string `json:"token,omitempty"`
	// Endpoint defaults to the public homework statuses API.
	Endpoint       string `json:"endpoint,omitempty"`
	RequestTimeout string `json:"request_timeout,omitempty"`
}

type TelegramConfig struct {
	Token    string `json:"token,omitempty"`
	ChatID   int64  `json:"chat_id,omitempty"`
	ThreadID int    `json:"thread_id,omitempty"`
	// APIURL points at a self-hosted Bot API server.
	APIURL         string `json:"api_url,omitempty"`
	DisablePreview bool   `json:"disable_preview,omitempty"`
	Silent         bool   `json:"silent,omitempty"`
}

// PollerConfig controls the poll loop.
//
// Interval accepts a duration ("10m"), HH:MM ("00:10") or a cron expression
// ("*/10 * * * *", "@every 10m"). Lookback moves the first from_date into
// the past so changes made while the daemon was down are reported.
type PollerConfig struct {
	Interval               string `json:"interval,omitempty"`
	Lookback               string `json:"lookback,omitempty"`
	SuppressRepeatedErrors bool   `json:"suppress_repeated_errors,omitempty"`
}

type NotifierConfig struct {
	RatePerSec  float64 `json:"rate_per_sec,omitempty"`
	SendTimeout string  `json:"send_timeout,omitempty"`
}

// MessagesConfig replaces notification texts. StatusChanged takes the
// homework name and the verdict; Failure takes the error text. Verdicts may
// only override approved, reviewing and rejected.
type MessagesConfig struct {
	StatusChanged string            `json:"status_changed,omitempty"`
	Failure       string            `json:"failure,omitempty"`
	Verdicts      map[string]string `json:"verdicts,omitempty"`
}

type LoggingConfig struct {
	Level string `json:"level,omitempty"`
	// Console defaults to true when omitted.
	Console  *bool           `json:"console,omitempty"`
	File     LoggingFile     `json:"file"`
	Telegram LoggingTelegram `json:"telegram"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path,omitempty"`
}

// LoggingTelegram forwards warn+ log lines to an operator chat. ChatID
// defaults to telegram.chat_id.
type LoggingTelegram struct {
	Enabled    bool   `json:"enabled"`
	ChatID     int64  `json:"chat_id,omitempty"`
	ThreadID   int    `json:"thread_id,omitempty"`
	MinLevel   string `json:"min_level,omitempty"`
	RatePerSec int    `json:"rate_per_sec,omitempty"`
}

// ConsoleEnabled reports the effective logging.console value.
func (l LoggingConfig) ConsoleEnabled() bool {
	return l.Console == nil || *l.Console
}
