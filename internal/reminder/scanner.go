package reminder

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"habitbot/internal/habit"
	"habitbot/internal/storage"
	logx "habitbot/pkg/logx"
)

const (
	DefaultWindow      = 5 * time.Minute
	DefaultSendTimeout = 10 * time.Second
	DefaultHistorySize = 20
)

// Sender delivers a text message to a chat.
type Sender interface {
	Send(ctx context.Context, chatID int64, text string) error
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(ctx context.Context, chatID int64, text string) error

func (f SenderFunc) Send(ctx context.Context, chatID int64, text string) error {
	return f(ctx, chatID, text)
}

// Store is the storage the scanner reads targets from and logs deliveries to.
type Store interface {
	ListReminderTargets(ctx context.Context) ([]storage.ReminderTarget, error)
	AppendDelivery(ctx context.Context, d storage.Delivery) error
	LastDelivery(ctx context.Context, habitID int64) (time.Time, bool, error)
}

type Config struct {
	Window      time.Duration
	RatePerSec  float64 // <= 0 means unlimited
	SendTimeout time.Duration
	Dedup       bool
	Location    *time.Location
	HistorySize int
}

// Report summarizes one firing.
type Report struct {
	RunID   string
	At      time.Time
	Window  time.Duration
	Scanned int
	Matched int
	Sent    int
	Skipped int // owner has no chat
	Deduped int
	Failed  int
	Took    time.Duration
	Err     string
}

func (r Report) String() string {
	s := fmt.Sprintf("%s at %s: scanned=%d matched=%d sent=%d skipped=%d failed=%d",
		shortID(r.RunID), r.At.Format("15:04"), r.Scanned, r.Matched, r.Sent, r.Skipped, r.Failed)
	if r.Deduped > 0 {
		s += fmt.Sprintf(" deduped=%d", r.Deduped)
	}
	if r.Err != "" {
		s += " err=" + r.Err
	}
	return s
}

type Scanner struct {
	store  Store
	sender Sender
	log    logx.Logger

	mu      sync.Mutex
	cfg     Config
	limiter *rate.Limiter
	history []Report
}

func New(cfg Config, store Store, sender Sender, log logx.Logger) *Scanner {
	if log.IsZero() {
		log = logx.Nop()
	}
	s := &Scanner{store: store, sender: sender, log: log}
	s.Apply(cfg)
	return s
}

// Apply replaces the scanner configuration. It is safe to call while a
// firing is in progress; the firing keeps the config it started with.
func (s *Scanner) Apply(cfg Config) {
	if cfg.Window < 0 {
		cfg.Window = 0
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = DefaultSendTimeout
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = DefaultHistorySize
	}
	lim := rate.NewLimiter(rate.Inf, 1)
	if cfg.RatePerSec > 0 {
		lim = rate.NewLimiter(rate.Limit(cfg.RatePerSec), 1)
	}
	s.mu.Lock()
	s.cfg = cfg
	s.limiter = lim
	s.mu.Unlock()
}

func (s *Scanner) Config() Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

// RunOnce performs one firing at now. Send failures are counted and logged;
// the returned error is set only when targets could not be loaded or ctx
// ended before the batch finished.
func (s *Scanner) RunOnce(ctx context.Context, now time.Time) (Report, error) {
	start := time.Now()
	s.mu.Lock()
	cfg := s.cfg
	lim := s.limiter
	s.mu.Unlock()

	now = now.In(cfg.Location).Truncate(time.Minute)
	rep := Report{RunID: uuid.NewString(), At: now, Window: cfg.Window}
	log := s.log.With(logx.String("run_id", rep.RunID))

	finish := func(err error) (Report, error) {
		rep.Took = time.Since(start)
		lf := []logx.Field{
			logx.Time("at", rep.At), logx.Int("scanned", rep.Scanned), logx.Int("matched", rep.Matched),
			logx.Int("sent", rep.Sent), logx.Int("skipped", rep.Skipped), logx.Int("failed", rep.Failed),
			logx.Duration("took", rep.Took),
		}
		if err != nil {
			rep.Err = err.Error()
			log.Error("reminder run failed", append(lf, logx.Err(err))...)
		} else if rep.Matched > 0 {
			log.Info("reminder run done", lf...)
		} else {
			log.Debug("reminder run done", lf...)
		}
		s.record(rep, cfg.HistorySize)
		return rep, err
	}

	targets, err := s.store.ListReminderTargets(ctx)
	if err != nil {
		return finish(fmt.Errorf("load habits: %w", err))
	}
	rep.Scanned = len(targets)
	clock := habit.ClockOf(now)

	for _, t := range targets {
		if !t.Habit.Time.Within(clock, cfg.Window) {
			continue
		}
		rep.Matched++
		if t.ChatID == 0 {
			rep.Skipped++
			log.Debug("owner has no chat", logx.Int64("habit_id", t.Habit.ID), logx.Int64("owner_id", t.Habit.OwnerID))
			continue
		}
		if cfg.Dedup && s.recentlySent(ctx, log, t.Habit.ID, now, cfg.Window) {
			rep.Deduped++
			continue
		}
		if err := lim.Wait(ctx); err != nil {
			return finish(err)
		}

		sctx, cancel := context.WithTimeout(ctx, cfg.SendTimeout)
		sendErr := s.sender.Send(sctx, t.ChatID, Message(t))
		cancel()

		d := storage.Delivery{
			RunID:   rep.RunID,
			HabitID: t.Habit.ID,
			UserID:  t.Habit.OwnerID,
			ChatID:  t.ChatID,
			At:      time.Now(),
			OK:      sendErr == nil,
		}
		if sendErr != nil {
			rep.Failed++
			d.Error = sendErr.Error()
			log.Warn("reminder send failed",
				logx.Int64("habit_id", t.Habit.ID), logx.Int64("chat_id", t.ChatID), logx.Err(sendErr))
			if ctx.Err() != nil {
				return finish(ctx.Err())
			}
		} else {
			rep.Sent++
		}
		if err := s.store.AppendDelivery(ctx, d); err != nil && !errors.Is(err, storage.ErrDisabled) {
			log.Debug("delivery log append failed", logx.Err(err))
		}
	}
	return finish(nil)
}

func (s *Scanner) record(rep Report, size int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, rep)
	if n := len(s.history); n > size {
		s.history = append([]Report(nil), s.history[n-size:]...)
	}
}

// Recent returns the latest reports, oldest first.
func (s *Scanner) Recent() []Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Report(nil), s.history...)
}

func (s *Scanner) recentlySent(ctx context.Context, log logx.Logger, habitID int64, now time.Time, window time.Duration) bool {
	last, ok, err := s.store.LastDelivery(ctx, habitID)
	if err != nil {
		log.Debug("dedup lookup failed", logx.Int64("habit_id", habitID), logx.Err(err))
		return false
	}
	if !ok {
		return false
	}
	// A replayed firing (remind --at) can be hours behind deliveries
	// stamped with the wall clock; only a delivery near now counts.
	d := now.Sub(last)
	return d <= window && d >= -window
}

// Message renders the reminder text for a target.
func Message(t storage.ReminderTarget) string {
	h := t.Habit
	var b strings.Builder
	fmt.Fprintf(&b, "I will %s at %s in %s", h.Action, h.Time, h.Place)
	switch {
	case h.HasReward():
		b.WriteString("\nReward: " + h.Reward)
	case strings.TrimSpace(t.RelatedAction) != "":
		b.WriteString("\nThen: " + t.RelatedAction)
	}
	return b.String()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
