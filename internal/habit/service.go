package habit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	logx "habitbot/pkg/logx"
)

// Store is the persistence the service needs. Lookups return ErrNotFound
// for missing rows.
type Store interface {
	GetUser(ctx context.Context, id int64) (User, error)
	UpsertUser(ctx context.Context, u User) (User, error)

	GetHabit(ctx context.Context, id int64) (Habit, error)
	CreateHabit(ctx context.Context, h Habit) (Habit, error)
	UpdateHabit(ctx context.Context, h Habit) (Habit, error)
	// DeleteHabit removes the habit and clears RelatedID on habits that point to it.
	DeleteHabit(ctx context.Context, id int64) error
	// CountReferrers counts habits whose RelatedID is id.
	CountReferrers(ctx context.Context, id int64) (int, error)
	// CountForeignReferrers counts habits whose RelatedID is id and whose
	// owner is not ownerID.
	CountForeignReferrers(ctx context.Context, id, ownerID int64) (int, error)

	ListHabitsByOwner(ctx context.Context, ownerID int64, limit, offset int) ([]Habit, int, error)
	ListPublicHabits(ctx context.Context, limit, offset int) ([]Habit, int, error)
}

const DefaultPageSize = 10

// Page is a 1-based page request.
type Page struct {
	Number int
	Size   int
}

func (p Page) normalize(def int) Page {
	if p.Size <= 0 {
		p.Size = def
	}
	if p.Number <= 0 {
		p.Number = 1
	}
	return p
}

type PageResult struct {
	Items []Habit
	Total int
	Page  int
	Pages int
}

// Service is the habit write path: every create and update passes the rule set.
type Service struct {
	store    Store
	log      logx.Logger
	pageSize int
	now      func() time.Time
}

type Option func(*Service)

func WithPageSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.pageSize = n
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(store Store, log logx.Logger, opts ...Option) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	s := &Service{store: store, log: log, pageSize: DefaultPageSize, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Register records a Telegram user. chatID 0 keeps a previously stored chat.
func (s *Service) Register(ctx context.Context, userID int64, username string, chatID int64) (User, error) {
	u := User{ID: userID, Username: strings.TrimPrefix(username, "@"), ChatID: chatID, RegisteredAt: s.now()}
	if prev, err := s.store.GetUser(ctx, userID); err == nil {
		u.RegisteredAt = prev.RegisteredAt
		if chatID == 0 {
			u.ChatID = prev.ChatID
		}
	} else if !errors.Is(err, ErrNotFound) {
		return User{}, err
	}
	out, err := s.store.UpsertUser(ctx, u)
	if err != nil {
		return User{}, fmt.Errorf("register user %d: %w", userID, err)
	}
	return out, nil
}

func (s *Service) User(ctx context.Context, userID int64) (User, error) {
	u, err := s.store.GetUser(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return User{}, ErrNotRegistered
	}
	return u, err
}

// Create validates h and stores it for ownerID.
func (s *Service) Create(ctx context.Context, ownerID int64, h Habit) (Habit, error) {
	if _, err := s.User(ctx, ownerID); err != nil {
		return Habit{}, err
	}
	h.ID = 0
	h.OwnerID = ownerID
	if err := s.check(ctx, h); err != nil {
		return Habit{}, err
	}
	now := s.now()
	h.CreatedAt, h.UpdatedAt = now, now
	out, err := s.store.CreateHabit(ctx, h)
	if err != nil {
		return Habit{}, fmt.Errorf("create habit: %w", err)
	}
	s.log.Info("habit created", logx.Int64("habit_id", out.ID), logx.Int64("owner_id", ownerID))
	return out, nil
}

// Update applies p to the owner's habit. The merged habit must pass the
// same rules as a new one.
func (s *Service) Update(ctx context.Context, ownerID, id int64, p Patch) (Habit, error) {
	cur, err := s.owned(ctx, ownerID, id)
	if err != nil {
		return Habit{}, err
	}
	next := p.Apply(cur)
	if err := s.check(ctx, next); err != nil {
		return Habit{}, err
	}
	if cur.Pleasant && !next.Pleasant {
		n, err := s.store.CountReferrers(ctx, id)
		if err != nil {
			return Habit{}, err
		}
		if n > 0 {
			return Habit{}, &Rejection{Violations: []Violation{{
				Rule:    RulePleasantInUse,
				Message: fmt.Sprintf("habit is the pleasant habit of %d other habit(s)", n),
			}}}
		}
	}
	if cur.Public && !next.Public {
		n, err := s.store.CountForeignReferrers(ctx, id, ownerID)
		if err != nil {
			return Habit{}, err
		}
		if n > 0 {
			return Habit{}, &Rejection{Violations: []Violation{{
				Rule:    RulePublicInUse,
				Message: fmt.Sprintf("habit is linked from %d habit(s) of other users", n),
			}}}
		}
	}
	next.UpdatedAt = s.now()
	out, err := s.store.UpdateHabit(ctx, next)
	if err != nil {
		return Habit{}, fmt.Errorf("update habit %d: %w", id, err)
	}
	s.log.Info("habit updated", logx.Int64("habit_id", id), logx.Int64("owner_id", ownerID))
	return out, nil
}

// Delete removes the owner's habit.
func (s *Service) Delete(ctx context.Context, ownerID, id int64) error {
	if _, err := s.owned(ctx, ownerID, id); err != nil {
		return err
	}
	if err := s.store.DeleteHabit(ctx, id); err != nil {
		return fmt.Errorf("delete habit %d: %w", id, err)
	}
	s.log.Info("habit deleted", logx.Int64("habit_id", id), logx.Int64("owner_id", ownerID))
	return nil
}

// Get returns a habit visible to viewerID: their own or a public one.
func (s *Service) Get(ctx context.Context, viewerID, id int64) (Habit, error) {
	h, err := s.store.GetHabit(ctx, id)
	if err != nil {
		return Habit{}, err
	}
	if h.OwnerID != viewerID && !h.Public {
		return Habit{}, ErrForbidden
	}
	return h, nil
}

func (s *Service) ListOwn(ctx context.Context, ownerID int64, p Page) (PageResult, error) {
	p = p.normalize(s.pageSize)
	items, total, err := s.store.ListHabitsByOwner(ctx, ownerID, p.Size, (p.Number-1)*p.Size)
	if err != nil {
		return PageResult{}, err
	}
	return newPageResult(items, total, p), nil
}

func (s *Service) ListPublic(ctx context.Context, p Page) (PageResult, error) {
	p = p.normalize(s.pageSize)
	items, total, err := s.store.ListPublicHabits(ctx, p.Size, (p.Number-1)*p.Size)
	if err != nil {
		return PageResult{}, err
	}
	return newPageResult(items, total, p), nil
}

func newPageResult(items []Habit, total int, p Page) PageResult {
	pages := (total + p.Size - 1) / p.Size
	if pages == 0 {
		pages = 1
	}
	return PageResult{Items: items, Total: total, Page: p.Number, Pages: pages}
}

func (s *Service) owned(ctx context.Context, ownerID, id int64) (Habit, error) {
	h, err := s.store.GetHabit(ctx, id)
	if err != nil {
		return Habit{}, err
	}
	if h.OwnerID != ownerID {
		return Habit{}, ErrForbidden
	}
	return h, nil
}

// check resolves the related habit and runs the rule set.
func (s *Service) check(ctx context.Context, h Habit) error {
	c := Candidate{Habit: h}
	if h.HasRelated() {
		rel, err := s.store.GetHabit(ctx, h.RelatedID)
		switch {
		case err == nil:
			c.Related = &rel
		case !errors.Is(err, ErrNotFound):
			return err
		}
	}
	return Validate(c)
}
