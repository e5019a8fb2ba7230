package config

import (
	"slices"
	"testing"
)

func TestChanges(t *testing.T) {
	t.Parallel()

	base := &Config{
		Telegram:  TelegramConfig{Token: "a", OwnerUserIDs: []int64{1}},
		Scheduler: SchedulerConfig{Enabled: true, Spec: "* * * * *"},
		Reminder:  ReminderConfig{Window: "5m"},
		Storage:   StorageConfig{Driver: "sqlite", Path: "a.db"},
	}

	if got, _ := Changes(base, base); len(got) != 0 {
		t.Fatalf("same config: changed=%v", got)
	}

	next := *base
	next.Telegram.OwnerUserIDs = []int64{1, 2}
	next.Reminder.Dedup = true
	next.Storage.DSN = "postgres://x"
	got, fields := Changes(base, &next)
	want := []string{"telegram", "reminder", "storage"}
	if !slices.Equal(got, want) {
		t.Fatalf("changed=%v want %v", got, want)
	}
	if len(fields) == 0 {
		t.Fatalf("expected fields")
	}
	if !Changed(got, "storage") || Changed(got, "logging") {
		t.Fatalf("Changed lookup wrong for %v", got)
	}

	if got, _ := Changes(nil, base); !slices.Contains(got, "scheduler") {
		t.Fatalf("nil old: changed=%v", got)
	}
}
