package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/nhle/miledo/internal/model"
	"github.com/nhle/miledo/internal/schedule"
)

const taskColumns = `id, goal_id, title, is_done, scheduled_date, has_time,
	scheduled_time, duration_minutes, reschedule_count, created_at`

const upsertTaskSQL = `
	INSERT OR REPLACE INTO tasks (
		id, goal_id, title, is_done,
		scheduled_date, has_time, scheduled_time, scheduled_day,
		duration_minutes, reschedule_count, created_at, stale
	) VALUES (
		?, ?, ?, ?,
		?, ?, ?, ?,
		?, ?, ?, 0
	)`

// UpsertTasks inserts or replaces a batch of tasks.
func (s *SQLiteStore) UpsertTasks(ctx context.Context, tasks []model.Task) error {
	if len(tasks) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := upsertTasksTx(ctx, tx, tasks); err != nil {
		return err
	}
	return tx.Commit()
}

// ReplaceTasks swaps the cached rows of scope for tasks and records the
// fetch time. Rows outside the scope are untouched.
func (s *SQLiteStore) ReplaceTasks(ctx context.Context, scope Scope, tasks []model.Task) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	where, args := buildTaskWhere(scope.Filter())
	if _, err := tx.ExecContext(ctx, "DELETE FROM tasks"+where, args...); err != nil {
		return fmt.Errorf("clearing scope %s: %w", scope.Key(), err)
	}

	if err := upsertTasksTx(ctx, tx, tasks); err != nil {
		return err
	}

	if err := markFetchedTx(ctx, tx, scope.Key(), time.Now()); err != nil {
		return err
	}

	return tx.Commit()
}

func upsertTasksTx(ctx context.Context, tx *sqlx.Tx, tasks []model.Task) error {
	if len(tasks) == 0 {
		return nil
	}

	stmt, err := tx.PreparexContext(ctx, upsertTaskSQL)
	if err != nil {
		return fmt.Errorf("preparing upsert statement: %w", err)
	}
	defer stmt.Close()

	for _, t := range tasks {
		_, err = stmt.ExecContext(ctx,
			t.ID, t.GoalID, t.Title, boolToInt(t.IsDone),
			t.ScheduledDate, boolToInt(t.HasTime), t.ScheduledTime, schedule.ExtractDate(t.ScheduledDate),
			t.DurationMinutes, t.RescheduleCount, t.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("upserting task %d: %w", t.ID, err)
		}
	}
	return nil
}

// GetTasks retrieves tasks matching the provided filter, ordered by
// scheduled day and start time. Unscheduled tasks come first.
func (s *SQLiteStore) GetTasks(ctx context.Context, opts TaskFilter) ([]model.Task, error) {
	where, args := buildTaskWhere(opts)
	query := "SELECT " + taskColumns + " FROM tasks" + where +
		" ORDER BY scheduled_day, scheduled_time, id"
	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", opts.Limit)
	}

	tasks := []model.Task{}
	if err := s.db.SelectContext(ctx, &tasks, query, args...); err != nil {
		return nil, fmt.Errorf("querying tasks: %w", err)
	}
	return tasks, nil
}

// GetTaskByID retrieves a single task by its ID.
func (s *SQLiteStore) GetTaskByID(ctx context.Context, id int64) (*model.Task, error) {
	var task model.Task
	err := s.db.GetContext(ctx, &task, "SELECT "+taskColumns+" FROM tasks WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("getting task %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting task %d: %w", id, err)
	}
	return &task, nil
}

// DeleteTask removes a cached task. Deleting a missing row is not an error.
func (s *SQLiteStore) DeleteTask(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM tasks WHERE id = ?", id); err != nil {
		return fmt.Errorf("deleting task %d: %w", id, err)
	}
	return nil
}

// InvalidateTask marks a task stale and forces every task list to be
// refetched. The row stays readable until it is replaced.
func (s *SQLiteStore) InvalidateTask(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, "UPDATE tasks SET stale = 1 WHERE id = ?", id); err != nil {
		return fmt.Errorf("invalidating task %d: %w", id, err)
	}
	return s.InvalidateTasks(ctx)
}

// StaleTaskIDs lists tasks invalidated since their last fetch.
func (s *SQLiteStore) StaleTaskIDs(ctx context.Context) ([]int64, error) {
	ids := []int64{}
	if err := s.db.SelectContext(ctx, &ids, "SELECT id FROM tasks WHERE stale = 1 ORDER BY id"); err != nil {
		return nil, fmt.Errorf("listing stale tasks: %w", err)
	}
	return ids, nil
}

func buildTaskWhere(filter TaskFilter) (string, []any) {
	var conditions []string
	var args []any

	if filter.GoalID != nil {
		conditions = append(conditions, "goal_id = ?")
		args = append(args, *filter.GoalID)
	}
	if filter.Inbox {
		conditions = append(conditions, "scheduled_day = ''")
	}
	if filter.Date != nil {
		conditions = append(conditions, "scheduled_day = ?")
		args = append(args, *filter.Date)
	}
	if filter.After != nil {
		conditions = append(conditions, "scheduled_day != '' AND scheduled_day >= ?")
		args = append(args, *filter.After)
	}
	if filter.Before != nil {
		conditions = append(conditions, "scheduled_day != '' AND scheduled_day < ?")
		args = append(args, *filter.Before)
	}
	if filter.IsDone != nil {
		conditions = append(conditions, "is_done = ?")
		args = append(args, boolToInt(*filter.IsDone))
	}
	if filter.Query != nil && *filter.Query != "" {
		conditions = append(conditions, "title LIKE ?")
		args = append(args, "%"+*filter.Query+"%")
	}

	if len(conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
