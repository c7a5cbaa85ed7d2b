package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

type TaskRepo struct {
	db DBTX
}

func NewTaskRepo(db DBTX) *TaskRepo {
	return &TaskRepo{db: db}
}

type TaskInsert struct {
	UserID     string
	Title      string
	Details    string
	Difficulty string
	Kind       string
	Due        *time.Time
	CreatedAt  time.Time
}

const taskColumns = `id, user_id, title, details, difficulty, kind, due,
	completed, completed_at, streak, last_completed, created_at`

func (r *TaskRepo) Insert(ctx context.Context, in TaskInsert) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO tasks (user_id, title, details, difficulty, kind, due, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, in.UserID, in.Title, in.Details, in.Difficulty, in.Kind, nullTime(in.Due), in.CreatedAt.UTC())
	if err != nil {
		return 0, fmt.Errorf("task insert: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("task last insert id: %w", err)
	}
	return id, nil
}

// Get returns the task only when it belongs to userID.
func (r *TaskRepo) Get(ctx context.Context, userID string, id int64) (*Task, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ? AND user_id = ?`, id, userID)
	t, err := scanTaskRow(row)
	if err != nil || t == nil {
		return t, err
	}
	t.Tags, err = loadTagNames(ctx, r.db, "task_tags", "task_id", t.ID)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// List returns the user's tasks. kind filters by task kind when non-empty.
func (r *TaskRepo) List(ctx context.Context, userID string, kind string, f ListFilter) ([]Task, error) {
	extra, args := f.where("k", "task_tags", "task_id")
	query := `SELECT ` + prefixColumns("k", taskColumns) + ` FROM tasks k WHERE k.user_id = ?`
	params := []any{userID}
	if kind != "" {
		query += ` AND k.kind = ?`
		params = append(params, kind)
	}
	query += extra + ` ORDER BY k.id ASC`
	params = append(params, args...)

	out, err := r.queryTasks(ctx, query, params...)
	if err != nil {
		return nil, err
	}
	for i := range out {
		tags, err := loadTagNames(ctx, r.db, "task_tags", "task_id", out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].Tags = tags
	}
	return out, nil
}

// ListOpenScheduledDueBetween returns uncompleted scheduled tasks whose due
// date falls in [from, to).
func (r *TaskRepo) ListOpenScheduledDueBetween(ctx context.Context, userID string, kind string, from, to time.Time) ([]Task, error) {
	return r.queryTasks(ctx, `
		SELECT `+taskColumns+`
		FROM tasks
		WHERE user_id = ? AND kind = ? AND completed = 0 AND due >= ? AND due < ?
		ORDER BY id ASC
	`, userID, kind, from.UTC(), to.UTC())
}

func (r *TaskRepo) queryTasks(ctx context.Context, query string, args ...any) ([]Task, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("task list: %w", err)
	}
	defer rows.Close()

	var out []Task
	for rows.Next() {
		t, err := scanTaskRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("task list rows: %w", err)
	}
	return out, nil
}

func (r *TaskRepo) Update(ctx context.Context, t *Task) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE tasks
		SET title = ?, details = ?, difficulty = ?, kind = ?, due = ?,
			completed = ?, completed_at = ?, streak = ?, last_completed = ?
		WHERE id = ? AND user_id = ?
	`, t.Title, t.Details, t.Difficulty, t.Kind, nullTime(t.Due),
		boolToInt(t.Completed), nullTime(t.CompletedAt), t.Streak, nullTime(t.LastCompleted),
		t.ID, t.UserID)
	if err != nil {
		return fmt.Errorf("task update: %w", err)
	}
	return nil
}

// Delete removes the task and reports whether a row owned by userID existed.
func (r *TaskRepo) Delete(ctx context.Context, userID string, id int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return false, fmt.Errorf("task delete: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("task delete rows: %w", err)
	}
	return n > 0, nil
}

// MaxStreak returns the highest current streak among the user's tasks of kind.
func (r *TaskRepo) MaxStreak(ctx context.Context, userID string, kind string) (int, error) {
	var n int
	row := r.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(streak), 0) FROM tasks WHERE user_id = ? AND kind = ?`, userID, kind)
	if err := row.Scan(&n); err != nil {
		return 0, fmt.Errorf("task max streak: %w", err)
	}
	return n, nil
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}

func scanTaskRow(row scanner) (*Task, error) {
	var (
		t             Task
		due           sql.NullTime
		completed     int
		completedAt   sql.NullTime
		lastCompleted sql.NullTime
	)

	if err := row.Scan(
		&t.ID, &t.UserID, &t.Title, &t.Details, &t.Difficulty, &t.Kind, &due,
		&completed, &completedAt, &t.Streak, &lastCompleted, &t.CreatedAt,
	); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("task scan: %w", err)
	}

	t.Completed = completed != 0
	if due.Valid {
		v := due.Time
		t.Due = &v
	}
	if completedAt.Valid {
		v := completedAt.Time
		t.CompletedAt = &v
	}
	if lastCompleted.Valid {
		v := lastCompleted.Time
		t.LastCompleted = &v
	}
	return &t, nil
}
