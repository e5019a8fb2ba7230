package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Validate checks values that cannot be expressed by the decoder.
// It is run before a config is committed, both at startup and on hot reload.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	for key, raw := range map[string]string{
		"telegram.poll_timeout":    cfg.Telegram.PollTimeout,
		"telegram.send_timeout":    cfg.Telegram.SendTimeout,
		"telegram.command_timeout": cfg.Telegram.CommandTimeout,
		"scheduler.timeout":        cfg.Scheduler.Timeout,
		"reminder.window":          cfg.Reminder.Window,
		"storage.busy_timeout":     cfg.Storage.BusyTimeout,
	} {
		if _, err := ParseDurationField(key, raw); err != nil {
			return err
		}
	}
	if g := strings.TrimSpace(cfg.Telegram.GroupLog); g != "" {
		if _, err := strconv.ParseInt(g, 10, 64); err != nil {
			return fmt.Errorf("telegram.group_log: invalid chat id %q", g)
		}
	}
	if tz := strings.TrimSpace(cfg.Scheduler.Timezone); tz != "" {
		if _, err := time.LoadLocation(tz); err != nil {
			return fmt.Errorf("scheduler.timezone: invalid %q: %w", tz, err)
		}
	}
	if cfg.Scheduler.HistorySize < 0 {
		return fmt.Errorf("scheduler.history_size must be >= 0")
	}
	if cfg.Reminder.RatePerSec < 0 {
		return fmt.Errorf("reminder.rate_per_sec must be >= 0")
	}
	if w, _ := ParseDurationField("reminder.window", cfg.Reminder.Window); w >= 24*time.Hour {
		return fmt.Errorf("reminder.window must be shorter than 24h")
	}
	if cfg.Habits.PageSize < 0 {
		return fmt.Errorf("habits.page_size must be >= 0")
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Storage.Driver)) {
	case "", "sqlite", "sqlite3":
	case "postgres", "postgresql":
		if strings.TrimSpace(cfg.Storage.DSN) == "" {
			return fmt.Errorf("storage.dsn is required for driver %q", cfg.Storage.Driver)
		}
	default:
		return fmt.Errorf("storage.driver: unknown driver %q", cfg.Storage.Driver)
	}
	return nil
}

// TelegramGroupLog returns the parsed operator log chat id (0 if unset).
func (c *Config) TelegramGroupLog() int64 {
	id, err := strconv.ParseInt(strings.TrimSpace(c.Telegram.GroupLog), 10, 64)
	if err != nil {
		return 0
	}
	return id
}
