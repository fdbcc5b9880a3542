package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// GetPref reads a preference. ok is false when the key was never set.
func (s *SQLiteStore) GetPref(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.GetContext(ctx, &value, "SELECT value FROM preferences WHERE key = ?", key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("getting preference %s: %w", key, err)
	}
	return value, true, nil
}

// SetPref writes a preference.
func (s *SQLiteStore) SetPref(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO preferences (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("setting preference %s: %w", key, err)
	}
	return nil
}

// DeletePref removes a preference.
func (s *SQLiteStore) DeletePref(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM preferences WHERE key = ?", key); err != nil {
		return fmt.Errorf("deleting preference %s: %w", key, err)
	}
	return nil
}

// MarkFetched records when key was last loaded from the API.
func (s *SQLiteStore) MarkFetched(ctx context.Context, key string, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO cache_meta (scope, fetched_at) VALUES (?, ?)",
		key, at.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("marking %s fetched: %w", key, err)
	}
	return nil
}

func markFetchedTx(ctx context.Context, tx *sqlx.Tx, key string, at time.Time) error {
	_, err := tx.ExecContext(ctx,
		"INSERT OR REPLACE INTO cache_meta (scope, fetched_at) VALUES (?, ?)",
		key, at.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("marking %s fetched: %w", key, err)
	}
	return nil
}

// LastFetched returns when key was last loaded, or the zero time.
func (s *SQLiteStore) LastFetched(ctx context.Context, key string) (time.Time, error) {
	var ms int64
	err := s.db.GetContext(ctx, &ms, "SELECT fetched_at FROM cache_meta WHERE scope = ?", key)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("reading fetch time of %s: %w", key, err)
	}
	return time.UnixMilli(ms), nil
}

// IsStale reports whether key was never fetched or is older than maxAge.
func (s *SQLiteStore) IsStale(ctx context.Context, key string, maxAge time.Duration, now time.Time) (bool, error) {
	last, err := s.LastFetched(ctx, key)
	if err != nil {
		return true, err
	}
	return last.IsZero() || now.Sub(last) > maxAge, nil
}

// InvalidateTasks forgets the fetch time of every task scope.
func (s *SQLiteStore) InvalidateTasks(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM cache_meta WHERE scope LIKE 'tasks:%'"); err != nil {
		return fmt.Errorf("invalidating task lists: %w", err)
	}
	return nil
}

// InvalidateGoals forgets the fetch time of the goal list.
func (s *SQLiteStore) InvalidateGoals(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM cache_meta WHERE scope = ?", GoalsKey); err != nil {
		return fmt.Errorf("invalidating goals: %w", err)
	}
	return nil
}
