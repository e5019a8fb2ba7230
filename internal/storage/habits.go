package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"habitbot/internal/habit"
)

const habitColumns = `h.id, h.owner_id, h.place, h.action, h.time_min, h.periodicity, h.reward,
	h.related_id, h.duration_sec, h.public, h.pleasant, h.created_at, h.updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanHabit(r rowScanner, extra ...any) (habit.Habit, error) {
	var (
		h         habit.Habit
		timeMin   int
		relatedID sql.NullInt64
		createdAt int64
		updatedAt int64
	)
	dest := []any{
		&h.ID, &h.OwnerID, &h.Place, &h.Action, &timeMin, &h.Periodicity, &h.Reward,
		&relatedID, &h.DurationSec, &h.Public, &h.Pleasant, &createdAt, &updatedAt,
	}
	if err := r.Scan(append(dest, extra...)...); err != nil {
		return habit.Habit{}, err
	}
	h.Time = habit.TimeOfDay(timeMin)
	h.RelatedID = relatedID.Int64
	h.CreatedAt = fromUnix(createdAt)
	h.UpdatedAt = fromUnix(updatedAt)
	return h, nil
}

func (s *Store) GetHabit(ctx context.Context, id int64) (habit.Habit, error) {
	if s == nil || s.db == nil {
		return habit.Habit{}, ErrDisabled
	}
	row := s.db.QueryRowContext(ctx, s.q(`SELECT `+habitColumns+` FROM habits h WHERE h.id = ?`), id)
	h, err := scanHabit(row)
	if errors.Is(err, sql.ErrNoRows) {
		return habit.Habit{}, habit.ErrNotFound
	}
	return h, err
}

func (s *Store) CreateHabit(ctx context.Context, h habit.Habit) (habit.Habit, error) {
	if s == nil || s.db == nil {
		return habit.Habit{}, ErrDisabled
	}
	err := s.db.QueryRowContext(ctx,
		s.q(`INSERT INTO habits(owner_id, place, action, time_min, periodicity, reward, related_id,
			duration_sec, public, pleasant, created_at, updated_at)
		 VALUES(?,?,?,?,?,?,?,?,?,?,?,?) RETURNING id`),
		h.OwnerID, h.Place, h.Action, int(h.Time), h.Periodicity, h.Reward, nullInt(h.RelatedID),
		h.DurationSec, h.Public, h.Pleasant, unix(h.CreatedAt), unix(h.UpdatedAt),
	).Scan(&h.ID)
	if err != nil {
		return habit.Habit{}, err
	}
	return h, nil
}

func (s *Store) UpdateHabit(ctx context.Context, h habit.Habit) (habit.Habit, error) {
	if s == nil || s.db == nil {
		return habit.Habit{}, ErrDisabled
	}
	res, err := s.db.ExecContext(ctx,
		s.q(`UPDATE habits SET place = ?, action = ?, time_min = ?, periodicity = ?, reward = ?,
			related_id = ?, duration_sec = ?, public = ?, pleasant = ?, updated_at = ?
		 WHERE id = ?`),
		h.Place, h.Action, int(h.Time), h.Periodicity, h.Reward, nullInt(h.RelatedID),
		h.DurationSec, h.Public, h.Pleasant, unix(h.UpdatedAt), h.ID,
	)
	if err != nil {
		return habit.Habit{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return habit.Habit{}, habit.ErrNotFound
	}
	return h, nil
}

// DeleteHabit removes a habit and clears references to it in one transaction.
func (s *Store) DeleteHabit(ctx context.Context, id int64) error {
	if s == nil || s.db == nil {
		return ErrDisabled
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, s.q(`UPDATE habits SET related_id = NULL WHERE related_id = ?`), id); err != nil {
		return fmt.Errorf("clear references: %w", err)
	}
	res, err := tx.ExecContext(ctx, s.q(`DELETE FROM habits WHERE id = ?`), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return habit.ErrNotFound
	}
	return tx.Commit()
}

func (s *Store) CountReferrers(ctx context.Context, id int64) (int, error) {
	if s == nil || s.db == nil {
		return 0, ErrDisabled
	}
	var n int
	err := s.db.QueryRowContext(ctx, s.q(`SELECT COUNT(*) FROM habits WHERE related_id = ?`), id).Scan(&n)
	return n, err
}

func (s *Store) CountForeignReferrers(ctx context.Context, id, ownerID int64) (int, error) {
	if s == nil || s.db == nil {
		return 0, ErrDisabled
	}
	var n int
	err := s.db.QueryRowContext(ctx,
		s.q(`SELECT COUNT(*) FROM habits WHERE related_id = ? AND owner_id <> ?`), id, ownerID,
	).Scan(&n)
	return n, err
}

func (s *Store) ListHabitsByOwner(ctx context.Context, ownerID int64, limit, offset int) ([]habit.Habit, int, error) {
	return s.listHabits(ctx, `h.owner_id = ?`, ownerID, limit, offset)
}

func (s *Store) ListPublicHabits(ctx context.Context, limit, offset int) ([]habit.Habit, int, error) {
	return s.listHabits(ctx, `h.public = ?`, true, limit, offset)
}

func (s *Store) listHabits(ctx context.Context, where string, arg any, limit, offset int) ([]habit.Habit, int, error) {
	if s == nil || s.db == nil {
		return nil, 0, ErrDisabled
	}
	var total int
	if err := s.db.QueryRowContext(ctx, s.q(`SELECT COUNT(*) FROM habits h WHERE `+where), arg).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := s.db.QueryContext(ctx,
		s.q(`SELECT `+habitColumns+` FROM habits h WHERE `+where+` ORDER BY h.id LIMIT ? OFFSET ?`),
		arg, limit, offset,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []habit.Habit
	for rows.Next() {
		h, err := scanHabit(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, h)
	}
	return out, total, rows.Err()
}

// ListReminderTargets returns every habit with its owner's chat id and the
// action of its related habit, if the owner can still see it.
func (s *Store) ListReminderTargets(ctx context.Context) ([]ReminderTarget, error) {
	if s == nil || s.db == nil {
		return nil, ErrDisabled
	}
	rows, err := s.db.QueryContext(ctx,
		s.q(`SELECT `+habitColumns+`, u.chat_id, r.action
		 FROM habits h
		 JOIN users u ON u.id = h.owner_id
		 LEFT JOIN habits r ON r.id = h.related_id AND (r.owner_id = h.owner_id OR r.public = ?)
		 ORDER BY h.time_min, h.id`),
		true,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ReminderTarget
	for rows.Next() {
		var (
			chatID  sql.NullInt64
			related sql.NullString
		)
		h, err := scanHabit(rows, &chatID, &related)
		if err != nil {
			return nil, err
		}
		out = append(out, ReminderTarget{Habit: h, ChatID: chatID.Int64, RelatedAction: related.String})
	}
	return out, rows.Err()
}
