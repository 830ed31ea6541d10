package app

import (
	"hwbot/internal/config"
	"hwbot/internal/homework"
	"hwbot/internal/notifier"
	"hwbot/internal/poller"
	"hwbot/internal/practicum"
	"hwbot/internal/transport"
	telegram "hwbot/internal/transport/telegram/adapter"
	logx "hwbot/pkg/logx"
)

func mapLoggingConfig(cfg *config.Config) logx.Config {
	lt := cfg.Logging.Telegram
	target := transport.ChatTarget{ChatID: lt.ChatID, ThreadID: lt.ThreadID}
	if target.IsZero() {
		target = transport.ChatTarget{ChatID: cfg.Telegram.ChatID, ThreadID: lt.ThreadID}
	}
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.ConsoleEnabled(),
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
		Telegram: logx.TelegramConfig{
			Enabled:    lt.Enabled,
			Target:     target,
			MinLevel:   lt.MinLevel,
			RatePerSec: lt.RatePerSec,
		},
	}
}

// mapTelegramConfig bounds each Bot API call by notifier.send_timeout, the
// same limit the notifier puts on a whole send.
func mapTelegramConfig(cfg *config.Config) (telegram.Config, error) {
	timeout, err := cfg.SendTimeout()
	if err != nil {
		return telegram.Config{}, err
	}
	return telegram.Config{
		Token:   cfg.Telegram.Token,
		APIURL:  cfg.Telegram.APIURL,
		Timeout: timeout,
	}, nil
}

func mapPracticumConfig(cfg *config.Config) (practicum.Config, error) {
	timeout, err := cfg.RequestTimeout()
	if err != nil {
		return practicum.Config{}, err
	}
	return practicum.Config{
		Endpoint: cfg.Endpoint(),
		Token:    cfg.Practicum.Token,
		Timeout:  timeout,
	}, nil
}

func mapNotifierConfig(cfg *config.Config) (notifier.Config, error) {
	timeout, err := cfg.SendTimeout()
	if err != nil {
		return notifier.Config{}, err
	}
	return notifier.Config{
		Target:         transport.ChatTarget{ChatID: cfg.Telegram.ChatID, ThreadID: cfg.Telegram.ThreadID},
		RatePerSec:     cfg.Notifier.RatePerSec,
		SendTimeout:    timeout,
		DisablePreview: cfg.Telegram.DisablePreview,
		Silent:         cfg.Telegram.Silent,
	}, nil
}

func mapPollerConfig(cfg *config.Config) (poller.Config, error) {
	sch, err := cfg.Schedule()
	if err != nil {
		return poller.Config{}, err
	}
	lookback, err := cfg.Lookback()
	if err != nil {
		return poller.Config{}, err
	}
	return poller.Config{
		Schedule:               sch,
		Lookback:               lookback,
		SuppressRepeatedErrors: cfg.Poller.SuppressRepeatedErrors,
		FailureFormat:          cfg.FailureFormat(),
	}, nil
}

func newTranslator(cfg *config.Config, log logx.Logger) (*homework.Translator, error) {
	verdicts, err := cfg.Verdicts()
	if err != nil {
		return nil, err
	}
	return homework.NewTranslator(verdicts, cfg.StatusFormat(), log), nil
}
