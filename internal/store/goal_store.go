package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/nhle/miledo/internal/model"
)

const goalColumns = "id, title, color, category_type, is_archived, created_at"

// UpsertGoals inserts or replaces a batch of goals.
func (s *SQLiteStore) UpsertGoals(ctx context.Context, goals []model.Goal) error {
	if len(goals) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := upsertGoalsTx(ctx, tx, goals); err != nil {
		return err
	}
	return tx.Commit()
}

// ReplaceGoals swaps the whole cached goal list and records the fetch time.
func (s *SQLiteStore) ReplaceGoals(ctx context.Context, goals []model.Goal) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM goals"); err != nil {
		return fmt.Errorf("clearing goals: %w", err)
	}
	if err := upsertGoalsTx(ctx, tx, goals); err != nil {
		return err
	}
	if err := markFetchedTx(ctx, tx, GoalsKey, time.Now()); err != nil {
		return err
	}
	return tx.Commit()
}

func upsertGoalsTx(ctx context.Context, tx *sqlx.Tx, goals []model.Goal) error {
	for _, g := range goals {
		_, err := tx.ExecContext(ctx, `
			INSERT OR REPLACE INTO goals (id, title, color, category_type, is_archived, created_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			g.ID, g.Title, g.Color, g.CategoryType, boolToInt(g.IsArchived), g.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("upserting goal %d: %w", g.ID, err)
		}
	}
	return nil
}

// GetGoalByID retrieves a single goal by ID.
func (s *SQLiteStore) GetGoalByID(ctx context.Context, id int64) (*model.Goal, error) {
	var goal model.Goal
	err := s.db.GetContext(ctx, &goal, "SELECT "+goalColumns+" FROM goals WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("getting goal %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting goal %d: %w", id, err)
	}
	return &goal, nil
}

// GetGoals retrieves all goals, optionally including archived ones.
func (s *SQLiteStore) GetGoals(ctx context.Context, includeArchived bool) ([]model.Goal, error) {
	query := "SELECT " + goalColumns + " FROM goals"
	if !includeArchived {
		query += " WHERE is_archived = 0"
	}
	query += " ORDER BY id"

	goals := []model.Goal{}
	if err := s.db.SelectContext(ctx, &goals, query); err != nil {
		return nil, fmt.Errorf("querying goals: %w", err)
	}
	return goals, nil
}

// DeleteGoal removes a cached goal. Its tasks stay cached until the next
// task refetch, since the API decides what happens to them.
func (s *SQLiteStore) DeleteGoal(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM goals WHERE id = ?", id); err != nil {
		return fmt.Errorf("deleting goal %d: %w", id, err)
	}
	return nil
}
