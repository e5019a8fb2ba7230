package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

func (s *Store) AppendDelivery(ctx context.Context, d Delivery) error {
	if s == nil || s.db == nil {
		return ErrDisabled
	}
	if d.At.IsZero() {
		d.At = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		s.q(`INSERT INTO deliveries(run_id, habit_id, user_id, chat_id, at, ok, err) VALUES(?,?,?,?,?,?,?)`),
		d.RunID, d.HabitID, d.UserID, d.ChatID, d.At.Unix(), d.OK, nullStr(d.Error),
	)
	return err
}

// LastDelivery returns the time of the latest successful delivery for a habit.
func (s *Store) LastDelivery(ctx context.Context, habitID int64) (time.Time, bool, error) {
	if s == nil || s.db == nil {
		return time.Time{}, false, ErrDisabled
	}
	var at sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		s.q(`SELECT MAX(at) FROM deliveries WHERE habit_id = ? AND ok = ?`), habitID, true,
	).Scan(&at)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && !at.Valid) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	return time.Unix(at.Int64, 0), true, nil
}

// PruneDeliveries drops log rows older than before.
func (s *Store) PruneDeliveries(ctx context.Context, before time.Time) (int64, error) {
	if s == nil || s.db == nil {
		return 0, ErrDisabled
	}
	res, err := s.db.ExecContext(ctx, s.q(`DELETE FROM deliveries WHERE at < ?`), before.Unix())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
