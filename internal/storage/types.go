package storage

import (
	"errors"
	"time"

	"habitbot/internal/habit"
)

var ErrDisabled = errors.New("storage disabled")

// Config configures storage.
//
// Driver values:
//   - "sqlite" (default): database file at Path
//   - "postgres": server at DSN
type Config struct {
	Driver      string
	Path        string
	DSN         string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// ReminderTarget is a habit joined with what a reminder needs from other rows.
// ChatID is 0 when the owner has no private chat with the bot.
type ReminderTarget struct {
	Habit         habit.Habit
	ChatID        int64
	RelatedAction string
}

// Delivery is one reminder send attempt.
type Delivery struct {
	RunID   string
	HabitID int64
	UserID  int64
	ChatID  int64
	At      time.Time
	OK      bool
	Error   string
}
