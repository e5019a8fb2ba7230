package storage

import (
	"context"
	"database/sql"
	"errors"

	"habitbot/internal/habit"
)

func (s *Store) GetUser(ctx context.Context, id int64) (habit.User, error) {
	if s == nil || s.db == nil {
		return habit.User{}, ErrDisabled
	}
	var (
		u      habit.User
		chatID sql.NullInt64
		regAt  int64
	)
	err := s.db.QueryRowContext(ctx,
		s.q(`SELECT id, username, chat_id, registered_at FROM users WHERE id = ?`), id,
	).Scan(&u.ID, &u.Username, &chatID, &regAt)
	if errors.Is(err, sql.ErrNoRows) {
		return habit.User{}, habit.ErrNotFound
	}
	if err != nil {
		return habit.User{}, err
	}
	u.ChatID = chatID.Int64
	u.RegisteredAt = fromUnix(regAt)
	return u, nil
}

func (s *Store) UpsertUser(ctx context.Context, u habit.User) (habit.User, error) {
	if s == nil || s.db == nil {
		return habit.User{}, ErrDisabled
	}
	_, err := s.db.ExecContext(ctx,
		s.q(`INSERT INTO users(id, username, chat_id, registered_at) VALUES(?,?,?,?)
		 ON CONFLICT(id) DO UPDATE SET username = excluded.username, chat_id = excluded.chat_id`),
		u.ID, u.Username, nullInt(u.ChatID), unix(u.RegisteredAt),
	)
	if err != nil {
		return habit.User{}, err
	}
	return u, nil
}
