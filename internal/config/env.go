package config

import (
	"errors"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Environment variables that fill empty secrets in the config file.
const (
	EnvTelegramToken = "HABITBOT_TELEGRAM_TOKEN"
	EnvLegacyToken   = "TG_BOT_TOKEN"
	EnvDatabaseDSN   = "HABITBOT_DATABASE_DSN"
)

// LoadDotEnv loads KEY=VALUE pairs from the given files into the process
// environment without overriding variables that are already set.
// Missing files are ignored.
func LoadDotEnv(files ...string) error {
	for _, f := range files {
		if strings.TrimSpace(f) == "" {
			continue
		}
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}

// applyEnv fills secrets that are empty in cfg from the environment.
func applyEnv(cfg *Config) {
	if strings.TrimSpace(cfg.Telegram.Token) == "" {
		if v := os.Getenv(EnvTelegramToken); v != "" {
			cfg.Telegram.Token = v
		} else {
			cfg.Telegram.Token = os.Getenv(EnvLegacyToken)
		}
	}
	if strings.TrimSpace(cfg.Storage.DSN) == "" {
		cfg.Storage.DSN = os.Getenv(EnvDatabaseDSN)
	}
}
