package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

type HabitLogRepo struct {
	db DBTX
}

func NewHabitLogRepo(db DBTX) *HabitLogRepo {
	return &HabitLogRepo{db: db}
}

func (r *HabitLogRepo) Insert(ctx context.Context, l HabitLog) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO habit_logs (habit_id, user_id, positive, created_at)
		VALUES (?, ?, ?, ?)
	`, l.HabitID, l.UserID, boolToInt(l.Positive), l.CreatedAt.UTC())
	if err != nil {
		return 0, fmt.Errorf("habit log insert: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("habit log last insert id: %w", err)
	}
	return id, nil
}

// CountBetween counts the user's habit events in [from, to).
func (r *HabitLogRepo) CountBetween(ctx context.Context, userID string, from, to time.Time) (int, error) {
	return countBetween(ctx, r.db, "habit_logs", userID, from, to)
}

// MostPositiveBetween returns the title and count of the habit with the most
// positive events in [from, to). The title is empty when there are none.
func (r *HabitLogRepo) MostPositiveBetween(ctx context.Context, userID string, from, to time.Time) (string, int, error) {
	var (
		title string
		n     int
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT h.title, COUNT(*) AS n
		FROM habit_logs l
		JOIN habits h ON h.id = l.habit_id
		WHERE l.user_id = ? AND l.positive = 1 AND l.created_at >= ? AND l.created_at < ?
		GROUP BY l.habit_id
		ORDER BY n DESC, l.habit_id ASC
		LIMIT 1
	`, userID, from.UTC(), to.UTC()).Scan(&title, &n)
	if err == sql.ErrNoRows {
		return "", 0, nil
	}
	if err != nil {
		return "", 0, fmt.Errorf("habit log most positive: %w", err)
	}
	return title, n, nil
}

func (r *HabitLogRepo) ListForHabit(ctx context.Context, habitID int64) ([]HabitLog, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT l.id, l.habit_id, h.title, l.user_id, l.positive, l.created_at
		FROM habit_logs l
		JOIN habits h ON h.id = l.habit_id
		WHERE l.habit_id = ?
		ORDER BY l.id ASC
	`, habitID)
	if err != nil {
		return nil, fmt.Errorf("habit log list: %w", err)
	}
	defer rows.Close()

	var out []HabitLog
	for rows.Next() {
		var (
			l        HabitLog
			positive int
		)
		if err := rows.Scan(&l.ID, &l.HabitID, &l.HabitTitle, &l.UserID, &positive, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("habit log scan: %w", err)
		}
		l.Positive = positive != 0
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("habit log rows: %w", err)
	}
	return out, nil
}

type TaskLogRepo struct {
	db DBTX
}

func NewTaskLogRepo(db DBTX) *TaskLogRepo {
	return &TaskLogRepo{db: db}
}

func (r *TaskLogRepo) Insert(ctx context.Context, l TaskLog) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO task_logs (task_id, user_id, xp_earned, coins_earned, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, l.TaskID, l.UserID, l.XPEarned, l.CoinsEarned, l.CreatedAt.UTC())
	if err != nil {
		return 0, fmt.Errorf("task log insert: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("task log last insert id: %w", err)
	}
	return id, nil
}

// Latest returns the most recent log for the task, or nil.
func (r *TaskLogRepo) Latest(ctx context.Context, taskID int64) (*TaskLog, error) {
	var l TaskLog
	err := r.db.QueryRowContext(ctx, `
		SELECT id, task_id, user_id, xp_earned, coins_earned, created_at
		FROM task_logs
		WHERE task_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`, taskID).Scan(&l.ID, &l.TaskID, &l.UserID, &l.XPEarned, &l.CoinsEarned, &l.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("task log latest: %w", err)
	}
	return &l, nil
}

// ExistsSince reports whether the task has a log created at or after since.
func (r *TaskLogRepo) ExistsSince(ctx context.Context, taskID int64, since time.Time) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM task_logs WHERE task_id = ? AND created_at >= ?
	`, taskID, since.UTC()).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("task log exists: %w", err)
	}
	return n > 0, nil
}

// ExistsBetween reports whether the task has a log created in [from, to).
func (r *TaskLogRepo) ExistsBetween(ctx context.Context, taskID int64, from, to time.Time) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM task_logs WHERE task_id = ? AND created_at >= ? AND created_at < ?
	`, taskID, from.UTC(), to.UTC()).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("task log exists between: %w", err)
	}
	return n > 0, nil
}

func (r *TaskLogRepo) Delete(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM task_logs WHERE id = ?`, id); err != nil {
		return fmt.Errorf("task log delete: %w", err)
	}
	return nil
}

func (r *TaskLogRepo) CountForTask(ctx context.Context, taskID int64) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM task_logs WHERE task_id = ?`, taskID).Scan(&n); err != nil {
		return 0, fmt.Errorf("task log count: %w", err)
	}
	return n, nil
}

// CountBetween counts the user's task completions in [from, to).
func (r *TaskLogRepo) CountBetween(ctx context.Context, userID string, from, to time.Time) (int, error) {
	return countBetween(ctx, r.db, "task_logs", userID, from, to)
}

type LevelLogRepo struct {
	db DBTX
}

func NewLevelLogRepo(db DBTX) *LevelLogRepo {
	return &LevelLogRepo{db: db}
}

func (r *LevelLogRepo) Insert(ctx context.Context, l LevelLog) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO level_logs (user_id, level, created_at) VALUES (?, ?, ?)
	`, l.UserID, l.Level, l.CreatedAt.UTC())
	if err != nil {
		return 0, fmt.Errorf("level log insert: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("level log last insert id: %w", err)
	}
	return id, nil
}

// CountBetween counts the user's level-ups in [from, to).
func (r *LevelLogRepo) CountBetween(ctx context.Context, userID string, from, to time.Time) (int, error) {
	return countBetween(ctx, r.db, "level_logs", userID, from, to)
}

func countBetween(ctx context.Context, db DBTX, table, userID string, from, to time.Time) (int, error) {
	var n int
	err := db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM `+table+` WHERE user_id = ? AND created_at >= ? AND created_at < ?
	`, userID, from.UTC(), to.UTC()).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("%s count: %w", table, err)
	}
	return n, nil
}
