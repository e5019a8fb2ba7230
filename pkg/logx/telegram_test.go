package logx

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestFormatTelegramJSON(t *testing.T) {
	t.Parallel()
	got := formatTelegramJSON([]byte(`{"level":"warn","time":"x","message":"send failed","habit_id":7,"comp":"reminder"}` + "\n"))
	want := "[WARN] send failed\n- comp=reminder\n- habit_id=7"
	if got != want {
		t.Fatalf("formatTelegramJSON = %q, want %q", got, want)
	}
}

func TestFormatTelegramJSONRaw(t *testing.T) {
	t.Parallel()
	if got := formatTelegramJSON([]byte("  plain line \n")); got != "plain line" {
		t.Fatalf("formatTelegramJSON = %q", got)
	}
}

func TestTruncate(t *testing.T) {
	t.Parallel()
	if got := truncate(strings.Repeat("a", 20), 12); got != "aaaaaaaaa..." {
		t.Fatalf("truncate = %q", got)
	}
	if got := truncate("short", 12); got != "short" {
		t.Fatalf("truncate = %q", got)
	}
}

func TestTelegramSinkRespectsMinLevel(t *testing.T) {
	var (
		mu   sync.Mutex
		sent []string
	)
	sender := func(_ context.Context, chatID int64, _ int, text string) error {
		mu.Lock()
		defer mu.Unlock()
		if chatID != 42 {
			t.Errorf("chatID = %d, want 42", chatID)
		}
		sent = append(sent, text)
		return nil
	}

	svc, log := New(Config{Level: "debug", Telegram: TelegramConfig{MinLevel: "warn", RatePerSec: 10}}, sender)
	svc.SetTelegramTarget(42, 0)
	svc.Apply(Config{Level: "debug", File: FileConfig{Enabled: true, Path: t.TempDir() + "/test.log"}, Telegram: TelegramConfig{Enabled: true, MinLevel: "warn", RatePerSec: 10}})
	t.Cleanup(func() { _ = svc.Close() })

	log.Info("ignored")
	log.Warn("delivered", String("k", "v"))

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		n := len(sent)
		mu.Unlock()
		if n > 0 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(sent) != 1 {
		t.Fatalf("sent %d messages, want 1: %q", len(sent), sent)
	}
	if !strings.HasPrefix(sent[0], "[WARN] delivered") {
		t.Fatalf("unexpected message %q", sent[0])
	}
}
