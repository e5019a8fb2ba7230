package app

import (
	"strings"
	"time"

	"habitbot/internal/config"
	"habitbot/internal/reminder"
	"habitbot/internal/storage"
	"habitbot/internal/task/scheduler"
	telegram "habitbot/internal/transport/telegram/adapter"
	"habitbot/internal/transport/telegram/router"
	logx "habitbot/pkg/logx"
)

const (
	defaultReminderSpec    = "* * * * *"
	defaultReminderTimeout = 50 * time.Second
	defaultPollTimeout     = 10 * time.Second
	defaultBusyTimeout     = 5 * time.Second

	pruneJob      = "deliveries.prune"
	pruneSpec     = "@daily"
	pruneTimeout  = time.Minute
	deliveriesTTL = 30 * 24 * time.Hour
)

func mapTelegramConfig(cfg *config.Config) (telegram.Config, error) {
	poll, err := config.ParseDurationOrDefault("telegram.poll_timeout", cfg.Telegram.PollTimeout, defaultPollTimeout)
	if err != nil {
		return telegram.Config{}, err
	}
	return telegram.Config{Token: cfg.Telegram.Token, PollTimeout: poll}, nil
}

func mapCommandTimeout(cfg *config.Config) (time.Duration, error) {
	return config.ParseDurationOrDefault("telegram.command_timeout", cfg.Telegram.CommandTimeout, router.DefaultTimeout)
}

func mapLogConfig(cfg *config.Config) logx.Config {
	lc := cfg.Logging
	return logx.Config{
		Level:   lc.Level,
		Console: lc.Console,
		File: logx.FileConfig{
			Enabled:    lc.File.Enabled,
			Path:       lc.File.Path,
			MaxSizeMB:  lc.File.MaxSizeMB,
			MaxBackups: lc.File.MaxBackups,
			MaxAgeDays: lc.File.MaxAgeDays,
			Compress:   lc.File.Compress,
		},
		Telegram: logx.TelegramConfig{
			Enabled:    lc.Telegram.Enabled,
			ThreadID:   lc.Telegram.ThreadID,
			MinLevel:   lc.Telegram.MinLevel,
			RatePerSec: lc.Telegram.RatePerSec,
		},
	}
}

func mapStorageConfig(cfg *config.Config) (storage.Config, error) {
	sc := cfg.Storage
	busy, err := config.ParseDurationOrDefault("storage.busy_timeout", sc.BusyTimeout, defaultBusyTimeout)
	if err != nil {
		return storage.Config{}, err
	}
	return storage.Config{
		Driver:      strings.ToLower(strings.TrimSpace(sc.Driver)),
		Path:        strings.TrimSpace(sc.Path),
		DSN:         strings.TrimSpace(sc.DSN),
		BusyTimeout: busy,
	}, nil
}

func mapSchedulerConfig(cfg *config.Config) scheduler.Config {
	return scheduler.Config{
		Enabled:     cfg.Scheduler.Enabled,
		Timezone:    strings.TrimSpace(cfg.Scheduler.Timezone),
		HistorySize: cfg.Scheduler.HistorySize,
	}
}

// reminderJob is the schedule and per-firing timeout of the reminder scan.
type reminderJob struct {
	spec    string
	timeout time.Duration
}

func mapReminderJob(cfg *config.Config) (reminderJob, error) {
	spec := strings.TrimSpace(cfg.Scheduler.Spec)
	if spec == "" {
		spec = defaultReminderSpec
	}
	if _, err := scheduler.ParseSchedule(spec); err != nil {
		return reminderJob{}, err
	}
	timeout, err := config.ParseDurationOrDefault("scheduler.timeout", cfg.Scheduler.Timeout, defaultReminderTimeout)
	if err != nil {
		return reminderJob{}, err
	}
	return reminderJob{spec: spec, timeout: timeout}, nil
}

// mapReminderConfig builds the scanner config. loc is the scheduler
// timezone so habit times and cron firings agree.
func mapReminderConfig(cfg *config.Config, loc *time.Location) (reminder.Config, error) {
	window, err := config.ParseDurationOrDefault("reminder.window", cfg.Reminder.Window, reminder.DefaultWindow)
	if err != nil {
		return reminder.Config{}, err
	}
	sendTimeout, err := config.ParseDurationOrDefault("telegram.send_timeout", cfg.Telegram.SendTimeout, reminder.DefaultSendTimeout)
	if err != nil {
		return reminder.Config{}, err
	}
	return reminder.Config{
		Window:      window,
		RatePerSec:  float64(cfg.Reminder.RatePerSec),
		SendTimeout: sendTimeout,
		Dedup:       cfg.Reminder.Dedup,
		Location:    loc,
		HistorySize: cfg.Scheduler.HistorySize,
	}, nil
}
