package config

import (
	"errors"
	"fmt"
	"strings"

	"hwbot/internal/errkind"
	"hwbot/internal/homework"
	logx "hwbot/pkg/logx"
)

// MissingVariables lists the required environment variables whose values
// are absent after merging file and environment.
func (c *Config) MissingVariables() []string {
	var missing []string
	if strings.TrimSpace(c.Practicum.Token) == "" {
		missing = append(missing, EnvPracticumToken)
	}
	if strings.TrimSpace(c.Telegram.Token) == "" {
		missing = append(missing, EnvTelegramToken)
	}
	if c.Telegram.ChatID == 0 {
		missing = append(missing, EnvTelegramChatID)
	}
	return missing
}

// Validate checks credentials and every field the services will parse.
// Missing credentials are reported as errkind.ErrMissingConfiguration.
func (c *Config) Validate() error {
	var errs []error
	if missing := c.MissingVariables(); len(missing) > 0 {
		errs = append(errs, errkind.Wrap(errkind.ErrMissingConfiguration, "config",
			"required variables not set: "+strings.Join(missing, ", "), nil))
	}
	errs = append(errs, c.validateSettings()...)
	return errors.Join(errs...)
}

// validateSettings covers everything but credentials. Hot reloads use it so a
// file without tokens does not get rejected.
func (c *Config) validateSettings() []error {
	var errs []error
	if err := checkEndpoint(c.Endpoint()); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.RequestTimeout(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.SendTimeout(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.Lookback(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.Schedule(); err != nil {
		errs = append(errs, err)
	}
	if c.Notifier.RatePerSec < 0 {
		errs = append(errs, fmt.Errorf("notifier.rate_per_sec: must be >= 0"))
	}
	if _, err := c.Verdicts(); err != nil {
		errs = append(errs, err)
	}
	if err := homework.CheckFormat(c.StatusFormat(), 2); err != nil {
		errs = append(errs, fmt.Errorf("messages.status_changed: %w", err))
	}
	if err := homework.CheckFormat(c.FailureFormat(), 1); err != nil {
		errs = append(errs, fmt.Errorf("messages.failure: %w", err))
	}
	if lv := c.Logging.Level; lv != "" && !logx.ValidLevel(lv) {
		errs = append(errs, fmt.Errorf("logging.level: unknown level %q", lv))
	}
	if lt := c.Logging.Telegram; lt.Enabled {
		if lt.MinLevel != "" && !logx.ValidLevel(lt.MinLevel) {
			errs = append(errs, fmt.Errorf("logging.telegram.min_level: unknown level %q", lt.MinLevel))
		}
		if lt.RatePerSec < 0 {
			errs = append(errs, fmt.Errorf("logging.telegram.rate_per_sec: must be >= 0"))
		}
	}
	return errs
}
