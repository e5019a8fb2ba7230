package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const sampleYAML = `
telegram:
  token: "123:abc"
  owner_user_ids: [1001]
logging:
  level: info
  console: true
scheduler:
  enabled: true
  timezone: UTC
  spec: "* * * * *"
reminder:
  window: 5m
storage:
  driver: sqlite
  path: ./data/habitbot.db
`

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
		t.Fatalf("write %s: %v", p, err)
	}
	return p
}

func TestLoadYAML(t *testing.T) {
	t.Parallel()
	p := writeFile(t, t.TempDir(), "config.yaml", sampleYAML)

	cfg, err := NewManager(p).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Telegram.Token != "123:abc" {
		t.Fatalf("token = %q", cfg.Telegram.Token)
	}
	if len(cfg.Telegram.OwnerUserIDs) != 1 || cfg.Telegram.OwnerUserIDs[0] != 1001 {
		t.Fatalf("owners = %v", cfg.Telegram.OwnerUserIDs)
	}
	if cfg.Reminder.Window != "5m" || !cfg.Scheduler.Enabled {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	t.Parallel()
	p := writeFile(t, t.TempDir(), "config.json", `{"telegram":{"token":"x"},"nope":1}`)
	if _, err := NewManager(p).Load(); err == nil {
		t.Fatal("expected error for unknown key")
	}
}

func TestLoadRejectsTrailingData(t *testing.T) {
	t.Parallel()
	p := writeFile(t, t.TempDir(), "config.json", `{"telegram":{"token":"x"}}{}`)
	if _, err := NewManager(p).Load(); err == nil || !strings.Contains(err.Error(), "trailing") {
		t.Fatalf("expected trailing data error, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		cfg  Config
		ok   bool
	}{
		{name: "empty", cfg: Config{}, ok: true},
		{name: "bad window", cfg: Config{Reminder: ReminderConfig{Window: "five"}}},
		{name: "window too long", cfg: Config{Reminder: ReminderConfig{Window: "24h"}}},
		{name: "bad timezone", cfg: Config{Scheduler: SchedulerConfig{Timezone: "Mars/Base"}}},
		{name: "bad group log", cfg: Config{Telegram: TelegramConfig{GroupLog: "chat"}}},
		{name: "postgres without dsn", cfg: Config{Storage: StorageConfig{Driver: "postgres"}}},
		{name: "postgres", cfg: Config{Storage: StorageConfig{Driver: "postgres", DSN: "postgres://localhost/db"}}, ok: true},
		{name: "unknown driver", cfg: Config{Storage: StorageConfig{Driver: "mongo"}}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := Validate(&tt.cfg)
			if tt.ok && err != nil {
				t.Fatalf("Validate: %v", err)
			}
			if !tt.ok && err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestEnvFillsEmptyToken(t *testing.T) {
	t.Setenv(EnvTelegramToken, "from-env")
	p := writeFile(t, t.TempDir(), "config.json", `{"telegram":{"token":""}}`)
	cfg, err := NewManager(p).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Telegram.Token != "from-env" {
		t.Fatalf("token = %q, want from-env", cfg.Telegram.Token)
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, ".env", "HABITBOT_TEST_DOTENV=yes\n")
	t.Setenv("HABITBOT_TEST_DOTENV", "")
	os.Unsetenv("HABITBOT_TEST_DOTENV")
	if err := LoadDotEnv(p, filepath.Join(dir, "missing.env")); err != nil {
		t.Fatalf("LoadDotEnv: %v", err)
	}
	if got := os.Getenv("HABITBOT_TEST_DOTENV"); got != "yes" {
		t.Fatalf("env = %q, want yes", got)
	}
}

func TestWatchPublishesChanges(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "config.json", `{"reminder":{"window":"5m"}}`)
	m := NewManager(p)
	if _, err := m.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	sub := m.Subscribe(1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		_ = m.Watch(ctx)
		close(done)
	}()

	// give the watcher a moment to register the directory
	time.Sleep(200 * time.Millisecond)
	writeFile(t, dir, "config.json", `{"reminder":{"window":"2m"}}`)

	select {
	case cfg := <-sub:
		if cfg.Reminder.Window != "2m" {
			t.Fatalf("window = %q, want 2m", cfg.Reminder.Window)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for config publish")
	}
	if got := m.Get().Reminder.Window; got != "2m" {
		t.Fatalf("committed window = %q", got)
	}
	cancel()
	<-done
}
