package habit

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	ErrNotFound      = errors.New("habit not found")
	ErrForbidden     = errors.New("habit belongs to another user")
	ErrNotRegistered = errors.New("user not registered")
)

const (
	MaxDurationSec = 120
	MinPeriodicity = 1
	MaxPeriodicity = 7

	minutesPerDay = 24 * 60
)

// Habit is a user-defined recurring action.
//
// Reward and RelatedID are mutually exclusive; "" and 0 mean unset.
type Habit struct {
	ID          int64
	OwnerID     int64
	Place       string
	Action      string
	Time        TimeOfDay
	Periodicity int // days between reinforcements
	Reward      string
	RelatedID   int64
	DurationSec int // time to complete
	Public      bool
	Pleasant    bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (h Habit) HasReward() bool  { return strings.TrimSpace(h.Reward) != "" }
func (h Habit) HasRelated() bool { return h.RelatedID != 0 }

// User is a registered Telegram user. ChatID is 0 until the user has
// talked to the bot in a private chat.
type User struct {
	ID           int64
	Username     string
	ChatID       int64
	RegisteredAt time.Time
}

// TimeOfDay is a wall-clock time at minute resolution (minutes after midnight).
type TimeOfDay int

// ParseTimeOfDay accepts "H:MM", "HH:MM" and "HH:MM:SS" (seconds are dropped).
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("invalid time %q (use HH:MM)", s)
	}
	hh, err := strconv.Atoi(parts[0])
	if err != nil || hh < 0 || hh > 23 || len(parts[0]) > 2 {
		return 0, fmt.Errorf("invalid hour in %q", s)
	}
	mm, err := strconv.Atoi(parts[1])
	if err != nil || mm < 0 || mm > 59 || len(parts[1]) != 2 {
		return 0, fmt.Errorf("invalid minutes in %q", s)
	}
	if len(parts) == 3 {
		if ss, err := strconv.Atoi(parts[2]); err != nil || ss < 0 || ss > 59 {
			return 0, fmt.Errorf("invalid seconds in %q", s)
		}
	}
	return TimeOfDay(hh*60 + mm), nil
}

// ClockOf returns the time of day of t in t's location.
func ClockOf(t time.Time) TimeOfDay {
	return TimeOfDay(t.Hour()*60 + t.Minute())
}

func (t TimeOfDay) Hour() int   { return int(t) / 60 }
func (t TimeOfDay) Minute() int { return int(t) % 60 }

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

// Within reports whether t lies in the window [now-lookback, now].
// Both ends are inclusive and the window wraps across midnight.
func (t TimeOfDay) Within(now TimeOfDay, lookback time.Duration) bool {
	span := int(lookback / time.Minute)
	if span < 0 {
		span = 0
	}
	if span >= minutesPerDay {
		return true
	}
	d := (int(now) - int(t)) % minutesPerDay
	if d < 0 {
		d += minutesPerDay
	}
	return d <= span
}
