package config

// Config is the on-disk configuration (JSON or YAML).
//
// All durations are Go duration strings (e.g. "500ms", "10s", "5m").
type Config struct {
	Telegram  TelegramConfig  `json:"telegram"`
	Logging   LoggingConfig   `json:"logging"`
	Scheduler SchedulerConfig `json:"scheduler"`
	Reminder  ReminderConfig  `json:"reminder"`
	Storage   StorageConfig   `json:"storage"`
	Habits    HabitsConfig    `json:"habits,omitempty"`
}

type TelegramConfig struct {
	Token string `json:"token"`
	// OwnerUserIDs may use operator commands (/status, /remind_now).
	OwnerUserIDs []int64 `json:"owner_user_ids"`
	// GroupLog is the chat id that receives operator log lines.
	GroupLog    string `json:"group_log,omitempty"`
	PollTimeout string `json:"poll_timeout,omitempty"`
	// SendTimeout bounds a single outbound message. Default 10s.
	SendTimeout string `json:"send_timeout,omitempty"`
	// CommandTimeout bounds one bot command handler. Default 30s.
	CommandTimeout string `json:"command_timeout,omitempty"`
}

type LoggingConfig struct {
	Level    string          `json:"level"`
	Console  bool            `json:"console"`
	File     LoggingFile     `json:"file"`
	Telegram LoggingTelegram `json:"telegram"`
}

type LoggingFile struct {
	Enabled    bool   `json:"enabled"`
	Path       string `json:"path"`
	MaxSizeMB  int    `json:"max_size_mb,omitempty"`
	MaxBackups int    `json:"max_backups,omitempty"`
	MaxAgeDays int    `json:"max_age_days,omitempty"`
	Compress   bool   `json:"compress,omitempty"`
}

type LoggingTelegram struct {
	Enabled    bool   `json:"enabled"`
	ThreadID   int    `json:"thread_id"`
	MinLevel   string `json:"min_level"`
	RatePerSec int    `json:"rate_per_sec"`
}

// SchedulerConfig controls the in-process reminder trigger.
//
// Defaults (when fields are omitted/zero):
//   - spec: "* * * * *" (every minute)
//   - timeout: "50s"
//   - history_size: 50
type SchedulerConfig struct {
	Enabled     bool   `json:"enabled"`
	Timezone    string `json:"timezone,omitempty"` // IANA TZ, e.g. "Europe/Moscow"
	Spec        string `json:"spec,omitempty"`
	Timeout     string `json:"timeout,omitempty"`
	HistorySize int    `json:"history_size,omitempty"`
}

// ReminderConfig controls one firing of the reminder scan.
type ReminderConfig struct {
	// Window is the lookback: a habit matches when its time is within
	// [now-window, now]. Default "5m".
	Window     string `json:"window,omitempty"`
	RatePerSec int    `json:"rate_per_sec,omitempty"`
	// Dedup suppresses a habit already reminded inside the current window.
	Dedup bool `json:"dedup,omitempty"`
}

// StorageConfig selects the SQL backend.
//
// Example:
//
//	"storage": { "driver": "sqlite", "path": "./data/habitbot.db" }
//	"storage": { "driver": "postgres", "dsn": "postgres://bot@localhost/habits?sslmode=disable" }
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path,omitempty"`
	DSN         string `json:"dsn,omitempty"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // sqlite only
}

type HabitsConfig struct {
	PageSize int `json:"page_size,omitempty"`
}
