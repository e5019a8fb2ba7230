package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"habitbot/internal/habit"
	logx "habitbot/pkg/logx"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()
	st, err := Open(ctx, Config{Driver: "sqlite", Path: filepath.Join(t.TempDir(), "test.db")}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	if err := st.Migrate(ctx); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	// Migrate is idempotent.
	if err := st.Migrate(ctx); err != nil {
		t.Fatalf("second Migrate: %v", err)
	}
	return st
}

func mustCreate(t *testing.T, st *Store, h habit.Habit) habit.Habit {
	t.Helper()
	out, err := st.CreateHabit(context.Background(), h)
	if err != nil {
		t.Fatalf("CreateHabit: %v", err)
	}
	return out
}

func TestUsers(t *testing.T) {
	t.Parallel()
	st := openTestStore(t)
	ctx := context.Background()

	if _, err := st.GetUser(ctx, 1); !errors.Is(err, habit.ErrNotFound) {
		t.Fatalf("missing user: %v", err)
	}
	reg := time.Unix(1700000000, 0)
	if _, err := st.UpsertUser(ctx, habit.User{ID: 1, Username: "ann", RegisteredAt: reg}); err != nil {
		t.Fatal(err)
	}
	if _, err := st.UpsertUser(ctx, habit.User{ID: 1, Username: "anna", ChatID: 77, RegisteredAt: time.Now()}); err != nil {
		t.Fatal(err)
	}
	u, err := st.GetUser(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if u.Username != "anna" || u.ChatID != 77 || !u.RegisteredAt.Equal(reg) {
		t.Fatalf("unexpected user: %+v", u)
	}
}

func TestHabitsCRUD(t *testing.T) {
	t.Parallel()
	st := openTestStore(t)
	ctx := context.Background()
	now := time.Unix(1700000000, 0)

	if _, err := st.UpsertUser(ctx, habit.User{ID: 1, ChatID: 10, RegisteredAt: now}); err != nil {
		t.Fatal(err)
	}
	tea := mustCreate(t, st, habit.Habit{OwnerID: 1, Place: "home", Action: "tea", Time: 600, Periodicity: 1, DurationSec: 60, Pleasant: true, Public: true, CreatedAt: now, UpdatedAt: now})
	walk := mustCreate(t, st, habit.Habit{OwnerID: 1, Place: "park", Action: "walk", Time: 540, Periodicity: 2, DurationSec: 90, RelatedID: tea.ID, CreatedAt: now, UpdatedAt: now})

	got, err := st.GetHabit(ctx, walk.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.RelatedID != tea.ID || got.Time != 540 || got.Public || got.Pleasant || !got.CreatedAt.Equal(now) {
		t.Fatalf("unexpected habit: %+v", got)
	}

	n, err := st.CountReferrers(ctx, tea.ID)
	if err != nil || n != 1 {
		t.Fatalf("CountReferrers = %d, %v", n, err)
	}

	got.Reward = "cake"
	got.RelatedID = 0
	if _, err := st.UpdateHabit(ctx, got); err != nil {
		t.Fatal(err)
	}
	got, _ = st.GetHabit(ctx, walk.ID)
	if got.Reward != "cake" || got.HasRelated() {
		t.Fatalf("update not applied: %+v", got)
	}

	if _, err := st.UpdateHabit(ctx, habit.Habit{ID: 999}); !errors.Is(err, habit.ErrNotFound) {
		t.Fatalf("update missing: %v", err)
	}

	own, total, err := st.ListHabitsByOwner(ctx, 1, 1, 1)
	if err != nil {
		t.Fatal(err)
	}
	if total != 2 || len(own) != 1 || own[0].ID != walk.ID {
		t.Fatalf("ListHabitsByOwner = %+v total=%d", own, total)
	}
	pub, total, err := st.ListPublicHabits(ctx, 10, 0)
	if err != nil {
		t.Fatal(err)
	}
	if total != 1 || len(pub) != 1 || pub[0].ID != tea.ID {
		t.Fatalf("ListPublicHabits = %+v total=%d", pub, total)
	}
}

func TestDeleteClearsReferences(t *testing.T) {
	t.Parallel()
	st := openTestStore(t)
	ctx := context.Background()
	now := time.Now()

	if _, err := st.UpsertUser(ctx, habit.User{ID: 1, RegisteredAt: now}); err != nil {
		t.Fatal(err)
	}
	tea := mustCreate(t, st, habit.Habit{OwnerID: 1, Place: "home", Action: "tea", Periodicity: 1, DurationSec: 60, Pleasant: true})
	walk := mustCreate(t, st, habit.Habit{OwnerID: 1, Place: "park", Action: "walk", Periodicity: 1, DurationSec: 60, RelatedID: tea.ID})

	if err := st.DeleteHabit(ctx, tea.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := st.GetHabit(ctx, tea.ID); !errors.Is(err, habit.ErrNotFound) {
		t.Fatalf("deleted habit still present: %v", err)
	}
	got, err := st.GetHabit(ctx, walk.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.HasRelated() {
		t.Fatalf("reference not cleared: %+v", got)
	}
	if err := st.DeleteHabit(ctx, tea.ID); !errors.Is(err, habit.ErrNotFound) {
		t.Fatalf("second delete: %v", err)
	}
}

func TestReminderTargetsHidePrivateForeignAction(t *testing.T) {
	t.Parallel()
	st := openTestStore(t)
	ctx := context.Background()
	now := time.Unix(1700000000, 0)

	for _, id := range []int64{1, 2} {
		if _, err := st.UpsertUser(ctx, habit.User{ID: id, ChatID: id * 10, RegisteredAt: now}); err != nil {
			t.Fatal(err)
		}
	}
	tea := mustCreate(t, st, habit.Habit{OwnerID: 1, Place: "home", Action: "secret tea", Time: 600, Periodicity: 1, DurationSec: 60, Pleasant: true, Public: true})
	mine := mustCreate(t, st, habit.Habit{OwnerID: 1, Place: "desk", Action: "read", Time: 500, Periodicity: 1, DurationSec: 60, RelatedID: tea.ID})
	walk := mustCreate(t, st, habit.Habit{OwnerID: 2, Place: "park", Action: "walk", Time: 540, Periodicity: 1, DurationSec: 60, RelatedID: tea.ID})

	n, err := st.CountForeignReferrers(ctx, tea.ID, 1)
	if err != nil || n != 1 {
		t.Fatalf("CountForeignReferrers = %d, %v", n, err)
	}

	tea.Public = false
	if _, err := st.UpdateHabit(ctx, tea); err != nil {
		t.Fatal(err)
	}
	targets, err := st.ListReminderTargets(ctx)
	if err != nil {
		t.Fatal(err)
	}
	related := map[int64]string{}
	for _, tg := range targets {
		related[tg.Habit.ID] = tg.RelatedAction
	}
	if related[mine.ID] != "secret tea" {
		t.Fatalf("owner lost own related action: %q", related[mine.ID])
	}
	if related[walk.ID] != "" {
		t.Fatalf("private action leaked to another user: %q", related[walk.ID])
	}
}

func TestReminderTargetsAndDeliveries(t *testing.T) {
	t.Parallel()
	st := openTestStore(t)
	ctx := context.Background()
	now := time.Unix(1700000000, 0)

	if _, err := st.UpsertUser(ctx, habit.User{ID: 1, ChatID: 10, RegisteredAt: now}); err != nil {
		t.Fatal(err)
	}
	if _, err := st.UpsertUser(ctx, habit.User{ID: 2, RegisteredAt: now}); err != nil {
		t.Fatal(err)
	}
	tea := mustCreate(t, st, habit.Habit{OwnerID: 1, Place: "home", Action: "tea", Time: 900, Periodicity: 1, DurationSec: 60, Pleasant: true})
	walk := mustCreate(t, st, habit.Habit{OwnerID: 1, Place: "park", Action: "walk", Time: 898, Periodicity: 1, DurationSec: 60, RelatedID: tea.ID})
	mustCreate(t, st, habit.Habit{OwnerID: 2, Place: "desk", Action: "stretch", Time: 899, Periodicity: 1, DurationSec: 30})

	targets, err := st.ListReminderTargets(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(targets) != 3 {
		t.Fatalf("got %d targets", len(targets))
	}
	first := targets[0]
	if first.Habit.ID != walk.ID || first.ChatID != 10 || first.RelatedAction != "tea" {
		t.Fatalf("unexpected first target: %+v", first)
	}
	if targets[1].ChatID != 0 || targets[1].RelatedAction != "" {
		t.Fatalf("unexpected second target: %+v", targets[1])
	}

	if _, ok, err := st.LastDelivery(ctx, walk.ID); err != nil || ok {
		t.Fatalf("LastDelivery on empty log: ok=%v err=%v", ok, err)
	}
	if err := st.AppendDelivery(ctx, Delivery{RunID: "r1", HabitID: walk.ID, UserID: 1, ChatID: 10, At: now, OK: true}); err != nil {
		t.Fatal(err)
	}
	if err := st.AppendDelivery(ctx, Delivery{RunID: "r2", HabitID: walk.ID, UserID: 1, ChatID: 10, At: now.Add(time.Minute), Error: "boom"}); err != nil {
		t.Fatal(err)
	}
	at, ok, err := st.LastDelivery(ctx, walk.ID)
	if err != nil || !ok || !at.Equal(now) {
		t.Fatalf("LastDelivery = %v %v %v", at, ok, err)
	}

	n, err := st.PruneDeliveries(ctx, now.Add(30*time.Second))
	if err != nil || n != 1 {
		t.Fatalf("PruneDeliveries = %d, %v", n, err)
	}
}

func TestRebind(t *testing.T) {
	t.Parallel()
	s := &Store{dialect: dialectPostgres}
	if got := s.q("SELECT ? FROM t WHERE a = ? AND b = ?"); got != "SELECT $1 FROM t WHERE a = $2 AND b = $3" {
		t.Fatalf("q = %q", got)
	}
	s.dialect = dialectSQLite
	if got := s.q("a = ?"); got != "a = ?" {
		t.Fatalf("sqlite q = %q", got)
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	t.Parallel()
	if _, err := Open(context.Background(), Config{Driver: "mysql"}, logx.Nop()); err == nil {
		t.Fatal("expected error")
	}
}
