package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	logx "habitbot/pkg/logx"
)

const DefaultHistorySize = 50

type Config struct {
	Enabled     bool
	Timezone    string // IANA TZ, e.g. "Europe/Moscow"; empty means local
	HistorySize int
}

// Job is the work run on each firing. ctx carries the job timeout.
type Job func(ctx context.Context) error

type scheduleDef struct {
	name    string
	spec    ParsedSpec
	timeout time.Duration
	job     Job
	entryID cron.EntryID
	running *atomic.Bool
}

type Service struct {
	mu sync.Mutex

	log    logx.Logger
	cfg    Config
	loc    *time.Location
	parser cron.Parser
	c      *cron.Cron
	defs   []scheduleDef

	// runCtx is cancelled by Stop so in-flight jobs see shutdown.
	runCtx    context.Context
	runCancel context.CancelFunc

	hmu     sync.Mutex
	history []HistoryItem
}

// HistoryItem is one finished or skipped firing.
type HistoryItem struct {
	Name    string
	Manual  bool
	Started time.Time
	Took    time.Duration
	Skipped bool
	Err     string
}

type ScheduleInfo struct {
	Name    string
	Spec    string
	Timeout time.Duration
	Running bool
	Next    time.Time
	Prev    time.Time
}

type Snapshot struct {
	Enabled   bool
	Started   bool
	Timezone  string
	Schedules []ScheduleInfo
	History   []HistoryItem
}
