package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Environment variables read on top of the config file. They win over file
// values.
const (
	EnvPracticumToken = "PRACTICUM_TOKEN"
	EnvTelegramToken  = "TELEGRAM_TOKEN"
	EnvTelegramChatID = "TELEGRAM_CHAT_ID"
	EnvEndpoint       = "HWBOT_ENDPOINT"
	EnvPollInterval   = "HWBOT_POLL_INTERVAL"
	EnvLogLevel       = "HWBOT_LOG_LEVEL"
)

// DefaultEnvFile is read when present; a missing file is not an error.
const DefaultEnvFile = ".env"

// LookupFunc has the signature of os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// envLookup layers the process environment over the variables of a .env
// file, so the real environment always wins.
func envLookup(envFile string, process LookupFunc) (LookupFunc, error) {
	if process == nil {
		process = os.LookupEnv
	}
	fileVars := map[string]string{}
	if envFile != "" {
		vars, err := godotenv.Read(envFile)
		switch {
		case err == nil:
			fileVars = vars
		case errors.Is(err, fs.ErrNotExist):
		default:
			return nil, fmt.Errorf("read env file %s: %w", envFile, err)
		}
	}
	return func(key string) (string, bool) {
		if v, ok := process(key); ok {
			return v, true
		}
		v, ok := fileVars[key]
		return v, ok
	}, nil
}

// applyEnv overlays non-empty environment values onto cfg.
func applyEnv(cfg *Config, lookup LookupFunc) error {
	get := func(key string) (string, bool) {
		v, ok := lookup(key)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}
	if v, ok := get(EnvPracticumToken); ok {
		cfg.Practicum.Token = v
	}
	if v, ok := get(EnvTelegramToken); ok {
		cfg.Telegram.Token = v
	}
	if v, ok := get(EnvTelegramChatID); ok {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%s: invalid chat id %q", EnvTelegramChatID, v)
		}
		cfg.Telegram.ChatID = id
	}
	if v, ok := get(EnvEndpoint); ok {
		cfg.Practicum.Endpoint = v
	}
	if v, ok := get(EnvPollInterval); ok {
		cfg.Poller.Interval = v
	}
	if v, ok := get(EnvLogLevel); ok {
		cfg.Logging.Level = v
	}
	return nil
}
