package config

import (
	"reflect"
	"slices"
	"strings"

	logx "hwbot/pkg/logx"
)

// Change is a summary of a config reload, safe to log: tokens are never
// included, only whether they changed.
type Change struct {
	// Sections lists the top-level blocks that differ.
	Sections []string
	// RestartRequired lists the fields that only take effect after restart.
	RestartRequired []string
	Fields          []logx.Field
}

func (c Change) Empty() bool { return len(c.Sections) == 0 }

// SummarizeChange compares two configs section by section.
func SummarizeChange(oldCfg, newCfg *Config) Change {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}
	var ch Change
	trim := strings.TrimSpace

	// Practicum (never log token)
	tokenChanged := trim(oldCfg.Practicum.Token) != trim(newCfg.Practicum.Token)
	endpointChanged := oldCfg.Endpoint() != newCfg.Endpoint()
	timeoutChanged := trim(oldCfg.Practicum.RequestTimeout) != trim(newCfg.Practicum.RequestTimeout)
	if tokenChanged || endpointChanged || timeoutChanged {
		ch.Sections = append(ch.Sections, "practicum")
		ch.Fields = append(ch.Fields,
			logx.String("practicum.endpoint", newCfg.Endpoint()),
			logx.String("practicum.request_timeout", trim(newCfg.Practicum.RequestTimeout)),
			logx.Bool("practicum.token_changed", tokenChanged),
		)
		if tokenChanged {
			ch.RestartRequired = append(ch.RestartRequired, "practicum.token")
		}
		if endpointChanged {
			ch.RestartRequired = append(ch.RestartRequired, "practicum.endpoint")
		}
		if timeoutChanged {
			ch.RestartRequired = append(ch.RestartRequired, "practicum.request_timeout")
		}
	}

	// Telegram (never log token)
	ot, nt := oldCfg.Telegram, newCfg.Telegram
	if trim(ot.Token) != trim(nt.Token) || ot.ChatID != nt.ChatID || ot.ThreadID != nt.ThreadID || trim(ot.APIURL) != trim(nt.APIURL) {
		ch.Sections = append(ch.Sections, "telegram")
		ch.RestartRequired = append(ch.RestartRequired, "telegram")
		ch.Fields = append(ch.Fields,
			logx.Int64("telegram.chat_id", nt.ChatID),
			logx.Int("telegram.thread_id", nt.ThreadID),
			logx.Bool("telegram.token_changed", trim(ot.Token) != trim(nt.Token)),
		)
	}
	if ot.DisablePreview != nt.DisablePreview || ot.Silent != nt.Silent {
		if !slices.Contains(ch.Sections, "telegram") {
			ch.Sections = append(ch.Sections, "telegram")
		}
		ch.Fields = append(ch.Fields,
			logx.Bool("telegram.disable_preview", nt.DisablePreview),
			logx.Bool("telegram.silent", nt.Silent),
		)
	}

	if oldCfg.Poller != newCfg.Poller {
		ch.Sections = append(ch.Sections, "poller")
		ch.Fields = append(ch.Fields,
			logx.String("poller.interval", newCfg.Poller.Interval),
			logx.String("poller.lookback", newCfg.Poller.Lookback),
			logx.Bool("poller.suppress_repeated_errors", newCfg.Poller.SuppressRepeatedErrors),
		)
		if oldCfg.Poller.Lookback != newCfg.Poller.Lookback {
			ch.RestartRequired = append(ch.RestartRequired, "poller.lookback")
		}
	}

	if oldCfg.Notifier != newCfg.Notifier {
		ch.Sections = append(ch.Sections, "notifier")
		ch.Fields = append(ch.Fields,
			logx.Any("notifier.rate_per_sec", newCfg.Notifier.RatePerSec),
			logx.String("notifier.send_timeout", newCfg.Notifier.SendTimeout),
		)
	}

	if !reflect.DeepEqual(oldCfg.Messages, newCfg.Messages) {
		ch.Sections = append(ch.Sections, "messages")
		ch.Fields = append(ch.Fields, logx.Int("messages.verdict_overrides", len(newCfg.Messages.Verdicts)))
	}

	ol, nl := oldCfg.Logging, newCfg.Logging
	if ol.Level != nl.Level || ol.ConsoleEnabled() != nl.ConsoleEnabled() || ol.File != nl.File || ol.Telegram != nl.Telegram {
		ch.Sections = append(ch.Sections, "logging")
		ch.Fields = append(ch.Fields,
			logx.String("logging.level", nl.Level),
			logx.Bool("logging.console", nl.ConsoleEnabled()),
			logx.Bool("logging.file_enabled", nl.File.Enabled),
			logx.Bool("logging.telegram_enabled", nl.Telegram.Enabled),
		)
	}

	if len(ch.Sections) > 0 {
		ch.Fields = append([]logx.Field{logx.String("changed", strings.Join(ch.Sections, ","))}, ch.Fields...)
	}
	return ch
}
