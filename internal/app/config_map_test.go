package app

import (
	"testing"
	"time"

	"habitbot/internal/config"
	"habitbot/internal/reminder"
	"habitbot/internal/transport/telegram/router"
)

func TestMapReminderDefaults(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{}
	rc, err := mapReminderConfig(cfg, time.UTC)
	if err != nil {
		t.Fatalf("mapReminderConfig: %v", err)
	}
	if rc.Window != reminder.DefaultWindow || rc.SendTimeout != reminder.DefaultSendTimeout || rc.Location != time.UTC {
		t.Fatalf("unexpected defaults: %+v", rc)
	}

	job, err := mapReminderJob(cfg)
	if err != nil {
		t.Fatalf("mapReminderJob: %v", err)
	}
	if job.spec != defaultReminderSpec || job.timeout != defaultReminderTimeout {
		t.Fatalf("job=%+v", job)
	}
}

func TestMapReminderOverrides(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{
		Telegram:  config.TelegramConfig{SendTimeout: "3s"},
		Scheduler: config.SchedulerConfig{Spec: "every:30s", Timeout: "20s", HistorySize: 7},
		Reminder:  config.ReminderConfig{Window: "10m", RatePerSec: 4, Dedup: true},
	}
	rc, err := mapReminderConfig(cfg, time.UTC)
	if err != nil {
		t.Fatalf("mapReminderConfig: %v", err)
	}
	if rc.Window != 10*time.Minute || rc.SendTimeout != 3*time.Second || rc.RatePerSec != 4 || !rc.Dedup || rc.HistorySize != 7 {
		t.Fatalf("rc=%+v", rc)
	}
	job, err := mapReminderJob(cfg)
	if err != nil {
		t.Fatalf("mapReminderJob: %v", err)
	}
	if job.spec != "every:30s" || job.timeout != 20*time.Second {
		t.Fatalf("job=%+v", job)
	}
}

func TestMapReminderJobRejectsBadSpec(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{Scheduler: config.SchedulerConfig{Spec: "every:nope"}}
	if _, err := mapReminderJob(cfg); err == nil {
		t.Fatalf("expected error")
	}
}

func TestMapStorageConfig(t *testing.T) {
	t.Parallel()

	sc, err := mapStorageConfig(&config.Config{Storage: config.StorageConfig{Driver: " SQLite ", Path: " ./x.db "}})
	if err != nil {
		t.Fatalf("mapStorageConfig: %v", err)
	}
	if sc.Driver != "sqlite" || sc.Path != "./x.db" || sc.BusyTimeout != defaultBusyTimeout {
		t.Fatalf("sc=%+v", sc)
	}
	if _, err := mapStorageConfig(&config.Config{Storage: config.StorageConfig{BusyTimeout: "soon"}}); err == nil {
		t.Fatalf("expected duration error")
	}
}

func TestMapCommandTimeout(t *testing.T) {
	t.Parallel()

	d, err := mapCommandTimeout(&config.Config{})
	if err != nil || d != router.DefaultTimeout {
		t.Fatalf("default = %v, %v", d, err)
	}
	d, err = mapCommandTimeout(&config.Config{Telegram: config.TelegramConfig{CommandTimeout: "2m"}})
	if err != nil || d != 2*time.Minute {
		t.Fatalf("override = %v, %v", d, err)
	}
	if _, err := mapCommandTimeout(&config.Config{Telegram: config.TelegramConfig{CommandTimeout: "later"}}); err == nil {
		t.Fatalf("expected duration error")
	}
}

func TestMapLogConfig(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{Logging: config.LoggingConfig{
		Level: "debug",
		File:  config.LoggingFile{Enabled: true, Path: "bot.log", MaxSizeMB: 5, Compress: true},
	}}
	lc := mapLogConfig(cfg)
	if lc.Level != "debug" || !lc.File.Enabled || lc.File.MaxSizeMB != 5 || !lc.File.Compress {
		t.Fatalf("lc=%+v", lc)
	}
}
