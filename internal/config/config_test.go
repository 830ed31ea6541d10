package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"hwbot/internal/errkind"
	"hwbot/internal/poller"
)

func envMap(m map[string]string) LookupFunc {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

var fullEnv = map[string]string{
	EnvPracticumToken: "p-token",
	EnvTelegramToken:  "123:abc",
	EnvTelegramChatID: "424242",
}

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
		t.Fatalf("write %s: %v", p, err)
	}
	return p
}

func newTestManager(path string, env map[string]string) *Manager {
	m := NewManager(path)
	m.SetEnvFile("")
	m.SetLookupEnv(envMap(env))
	return m
}

func TestLoadYAML(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	p := writeFile(t, dir, "config.yaml", `
poller:
  interval: "*/10 * * * *"
  suppress_repeated_errors: true
notifier:
  rate_per_sec: 2
  send_timeout: 5s
messages:
  verdicts:
    approved: "Принято!"
logging:
  level: debug
  console: false
`)
	cfg, err := newTestManager(p, fullEnv).Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Poller.Interval != "*/10 * * * *" || !cfg.Poller.SuppressRepeatedErrors {
		t.Fatalf("poller = %+v", cfg.Poller)
	}
	if d, _ := cfg.SendTimeout(); d != 5*time.Second {
		t.Fatalf("SendTimeout = %v, want 5s", d)
	}
	if cfg.Logging.ConsoleEnabled() {
		t.Fatal("console enabled, want false")
	}
	table, err := cfg.Verdicts()
	if err != nil {
		t.Fatalf("Verdicts error: %v", err)
	}
	if v, _ := table.Lookup("approved"); v != "Принято!" {
		t.Fatalf("approved verdict = %q", v)
	}
	if cfg.Telegram.ChatID != 424242 || cfg.Practicum.Token != "p-token" {
		t.Fatalf("credentials not taken from env: %+v %+v", cfg.Telegram, cfg.Practicum)
	}
}

func TestLoadJSONRejectsUnknownFields(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	p := writeFile(t, dir, "config.json", `{"poller":{"interval":"10m","retry":3}}`)
	if _, err := newTestManager(p, fullEnv).Load(); err == nil || !strings.Contains(err.Error(), "retry") {
		t.Fatalf("Load err = %v, want unknown field error", err)
	}
}

func TestLoadRejectsTrailingJSON(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	p := writeFile(t, dir, "config.json", `{} {}`)
	if _, err := newTestManager(p, fullEnv).Load(); err == nil {
		t.Fatal("expected error for trailing data")
	}
}

func TestEnvWinsOverFile(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	p := writeFile(t, dir, "config.yaml", `
practicum:
  token: file-token
  endpoint: https://file.example/api/
telegram:
  token: "1:file"
  chat_id: 1
poller:
  interval: 5m
`)
	env := map[string]string{
		EnvPracticumToken: "env-token",
		EnvTelegramChatID: "99",
		EnvPollInterval:   "00:10",
		EnvEndpoint:       "https://env.example/api/",
	}
	cfg, err := newTestManager(p, env).Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Practicum.Token != "env-token" || cfg.Telegram.ChatID != 99 || cfg.Poller.Interval != "00:10" {
		t.Fatalf("env did not win: %+v", cfg)
	}
	if cfg.Telegram.Token != "1:file" {
		t.Fatalf("telegram token = %q, want file value when env unset", cfg.Telegram.Token)
	}
	if cfg.Endpoint() != "https://env.example/api/" {
		t.Fatalf("Endpoint = %q", cfg.Endpoint())
	}
}

func TestDotEnvDoesNotOverrideProcessEnv(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	envFile := writeFile(t, dir, ".env", "PRACTICUM_TOKEN=dotenv-token\nTELEGRAM_TOKEN=2:dotenv\nTELEGRAM_CHAT_ID=7\n")

	m := NewManager(filepath.Join(dir, "absent.yaml"))
	m.SetOptional(true)
	m.SetEnvFile(envFile)
	m.SetLookupEnv(envMap(map[string]string{EnvTelegramChatID: "8"}))

	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Practicum.Token != "dotenv-token" || cfg.Telegram.Token != "2:dotenv" {
		t.Fatalf(".env values not applied: %+v", cfg)
	}
	if cfg.Telegram.ChatID != 8 {
		t.Fatalf("chat id = %d, want process env value 8", cfg.Telegram.ChatID)
	}
}

func TestMissingFile(t *testing.T) {
	t.Parallel()
	p := filepath.Join(t.TempDir(), "config.yaml")
	if _, err := newTestManager(p, fullEnv).Load(); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("required file: err = %v, want not exist", err)
	}
	m := newTestManager(p, fullEnv)
	m.SetOptional(true)
	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("optional file: err = %v", err)
	}
	sch, _ := cfg.Schedule()
	if sch.Interval() != poller.DefaultInterval {
		t.Fatalf("default interval = %v, want %v", sch.Interval(), poller.DefaultInterval)
	}
}

func TestValidateNamesMissingVariables(t *testing.T) {
	t.Parallel()
	p := filepath.Join(t.TempDir(), "config.yaml")
	m := newTestManager(p, map[string]string{EnvTelegramToken: "1:x"})
	m.SetOptional(true)
	_, err := m.Load()
	if !errors.Is(err, errkind.ErrMissingConfiguration) {
		t.Fatalf("err = %v, want ErrMissingConfiguration", err)
	}
	msg := err.Error()
	for _, name := range []string{EnvPracticumToken, EnvTelegramChatID} {
		if !strings.Contains(msg, name) {
			t.Fatalf("error %q does not name %s", msg, name)
		}
	}
	if strings.Contains(msg, EnvTelegramToken) {
		t.Fatalf("error %q names a variable that is set", msg)
	}
}

func TestInvalidChatIDInEnv(t *testing.T) {
	t.Parallel()
	m := newTestManager(filepath.Join(t.TempDir(), "c.yaml"), map[string]string{EnvTelegramChatID: "@channel"})
	m.SetOptional(true)
	if _, err := m.Parse(); err == nil || !strings.Contains(err.Error(), EnvTelegramChatID) {
		t.Fatalf("err = %v, want chat id error", err)
	}
}

func TestValidateSettings(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		mut  func(c *Config)
		want string
	}{
		{name: "interval", mut: func(c *Config) { c.Poller.Interval = "soon" }, want: "poller.interval"},
		{name: "lookback", mut: func(c *Config) { c.Poller.Lookback = "-1h" }, want: "poller.lookback"},
		{name: "timeout", mut: func(c *Config) { c.Practicum.RequestTimeout = "fast" }, want: "practicum.request_timeout"},
		{name: "endpoint", mut: func(c *Config) { c.Practicum.Endpoint = "ftp://x" }, want: "practicum.endpoint"},
		{name: "verdict", mut: func(c *Config) { c.Messages.Verdicts = map[string]string{"pending": "x"} }, want: "messages.verdicts"},
		{name: "format", mut: func(c *Config) { c.Messages.StatusChanged = "%s" }, want: "messages.status_changed"},
		{name: "failure", mut: func(c *Config) { c.Messages.Failure = "failed" }, want: "messages.failure"},
		{name: "level", mut: func(c *Config) { c.Logging.Level = "loud" }, want: "logging.level"},
		{name: "rate", mut: func(c *Config) { c.Notifier.RatePerSec = -1 }, want: "notifier.rate_per_sec"},
	}
	for _, tt := range tests {
		cfg := &Config{Practicum: PracticumConfig{Token: "t"}, Telegram: TelegramConfig{Token: "1:x", ChatID: 1}}
		if err := cfg.Validate(); err != nil {
			t.Fatalf("%s: base config invalid: %v", tt.name, err)
		}
		tt.mut(cfg)
		err := cfg.Validate()
		if err == nil || !strings.Contains(err.Error(), tt.want) {
			t.Fatalf("%s: err = %v, want mention of %s", tt.name, err, tt.want)
		}
		if errors.Is(err, errkind.ErrMissingConfiguration) {
			t.Fatalf("%s: settings error classified as missing configuration", tt.name)
		}
	}
}

func TestSummarizeChange(t *testing.T) {
	t.Parallel()
	oldCfg := &Config{Practicum: PracticumConfig{Token: "secret-a"}, Poller: PollerConfig{Interval: "10m"}}
	newCfg := &Config{Practicum: PracticumConfig{Token: "secret-b"}, Poller: PollerConfig{Interval: "5m"}}

	ch := SummarizeChange(oldCfg, newCfg)
	if !slices.Equal(ch.Sections, []string{"practicum", "poller"}) {
		t.Fatalf("Sections = %v", ch.Sections)
	}
	if !slices.Contains(ch.RestartRequired, "practicum.token") {
		t.Fatalf("RestartRequired = %v, want practicum.token", ch.RestartRequired)
	}
	if SummarizeChange(oldCfg, oldCfg).Empty() != true {
		t.Fatal("identical configs reported a change")
	}
}

func TestWatchPublishesValidChanges(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	p := writeFile(t, dir, "config.yaml", "poller:\n  interval: 10m\n")
	m := newTestManager(p, fullEnv)
	m.debounce = 20 * time.Millisecond
	if _, err := m.Load(); err != nil {
		t.Fatalf("Load error: %v", err)
	}
	sub := m.Subscribe(4)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = m.Watch(ctx)
	}()
	defer func() {
		cancel()
		<-done
	}()

	// Give the watcher a moment to register the directory.
	time.Sleep(100 * time.Millisecond)
	writeFile(t, dir, "config.yaml", "poller:\n  interval: soon\n")
	time.Sleep(200 * time.Millisecond)
	writeFile(t, dir, "config.yaml", "poller:\n  interval: 5m\n")

	deadline := time.After(5 * time.Second)
	for {
		select {
		case cfg := <-sub:
			if cfg.Poller.Interval == "soon" {
				t.Fatal("invalid config was published")
			}
			if cfg.Poller.Interval == "5m" {
				if m.Get().Poller.Interval != "5m" {
					t.Fatal("published config not committed")
				}
				return
			}
		case <-deadline:
			t.Fatal("no config published after change")
		}
	}
}
