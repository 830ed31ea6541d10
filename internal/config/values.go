package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"hwbot/internal/homework"
	"hwbot/internal/notifier"
	"hwbot/internal/poller"
	"hwbot/internal/practicum"
)

// ParseDurationField parses an optional duration field; empty means zero.
// path names the field in error messages.
func ParseDurationField(path, raw string) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", path, raw, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: duration must be >= 0", path)
	}
	return d, nil
}

// ParseDurationOrDefault is ParseDurationField with def for empty or zero values.
func ParseDurationOrDefault(path, raw string, def time.Duration) (time.Duration, error) {
	d, err := ParseDurationField(path, raw)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return def, nil
	}
	return d, nil
}

func (c *Config) Endpoint() string {
	if e := strings.TrimSpace(c.Practicum.Endpoint); e != "" {
		return e
	}
	return practicum.DefaultEndpoint
}

func (c *Config) RequestTimeout() (time.Duration, error) {
	return ParseDurationOrDefault("practicum.request_timeout", c.Practicum.RequestTimeout, practicum.DefaultTimeout)
}

func (c *Config) SendTimeout() (time.Duration, error) {
	return ParseDurationOrDefault("notifier.send_timeout", c.Notifier.SendTimeout, notifier.DefaultSendTimeout)
}

func (c *Config) Lookback() (time.Duration, error) {
	return ParseDurationField("poller.lookback", c.Poller.Lookback)
}

func (c *Config) Schedule() (poller.Schedule, error) {
	s, err := poller.ParseSchedule(c.Poller.Interval)
	if err != nil {
		return poller.Schedule{}, fmt.Errorf("poller.interval: %w", err)
	}
	return s, nil
}

func (c *Config) Verdicts() (homework.VerdictTable, error) {
	t, err := homework.NewVerdictTable(c.Messages.Verdicts)
	if err != nil {
		return homework.VerdictTable{}, fmt.Errorf("messages.verdicts: %w", err)
	}
	return t, nil
}

func (c *Config) StatusFormat() string {
	if f := c.Messages.StatusChanged; strings.TrimSpace(f) != "" {
		return f
	}
	return homework.DefaultMessageFormat
}

func (c *Config) FailureFormat() string {
	if f := c.Messages.Failure; strings.TrimSpace(f) != "" {
		return f
	}
	return poller.DefaultFailureFormat
}

func checkEndpoint(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("practicum.endpoint: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("practicum.endpoint: want an http(s) URL, got %q", raw)
	}
	return nil
}
