package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

type StudyRepo struct {
	db DBTX
}

func NewStudyRepo(db DBTX) *StudyRepo {
	return &StudyRepo{db: db}
}

const sessionColumns = `id, user_id, subject, color, start_time, end_time, duration_minutes, active`

func (r *StudyRepo) InsertSession(ctx context.Context, s StudySession) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO study_sessions (user_id, subject, color, start_time, active)
		VALUES (?, ?, ?, ?, 1)
	`, s.UserID, s.Subject, s.Color, s.StartTime.UTC())
	if err != nil {
		return 0, fmt.Errorf("study session insert: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("study session last insert id: %w", err)
	}
	return id, nil
}

// Active returns the user's active session, or nil.
func (r *StudyRepo) Active(ctx context.Context, userID string) (*StudySession, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+sessionColumns+` FROM study_sessions
		WHERE user_id = ? AND active = 1
		ORDER BY start_time DESC, id DESC
		LIMIT 1
	`, userID)
	return scanSessionRow(row)
}

// DeactivateAll flips every active session of the user to inactive without
// recording an end time.
func (r *StudyRepo) DeactivateAll(ctx context.Context, userID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE study_sessions SET active = 0 WHERE user_id = ? AND active = 1`, userID)
	if err != nil {
		return 0, fmt.Errorf("study session deactivate: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("study session deactivate rows: %w", err)
	}
	return n, nil
}

// Finish stores the end time and duration of s and marks it inactive.
func (r *StudyRepo) Finish(ctx context.Context, s *StudySession) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE study_sessions SET end_time = ?, duration_minutes = ?, active = 0
		WHERE id = ? AND user_id = ?
	`, nullTime(s.EndTime), nullInt(s.DurationMinutes), s.ID, s.UserID)
	if err != nil {
		return fmt.Errorf("study session finish: %w", err)
	}
	return nil
}

// ListFinishedBetween returns inactive sessions that started in [from, to).
func (r *StudyRepo) ListFinishedBetween(ctx context.Context, userID string, from, to time.Time) ([]StudySession, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+sessionColumns+` FROM study_sessions
		WHERE user_id = ? AND active = 0 AND start_time >= ? AND start_time < ?
		ORDER BY start_time ASC, id ASC
	`, userID, from.UTC(), to.UTC())
	if err != nil {
		return nil, fmt.Errorf("study session list: %w", err)
	}
	defer rows.Close()

	var out []StudySession
	for rows.Next() {
		s, err := scanSessionRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("study session rows: %w", err)
	}
	return out, nil
}

// HasFinishedBetween reports whether any inactive session started in [from, to).
func (r *StudyRepo) HasFinishedBetween(ctx context.Context, userID string, from, to time.Time) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM study_sessions
		WHERE user_id = ? AND active = 0 AND start_time >= ? AND start_time < ?
	`, userID, from.UTC(), to.UTC()).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("study session exists: %w", err)
	}
	return n > 0, nil
}

// RenameSubject renames sessions that started in [from, to).
func (r *StudyRepo) RenameSubject(ctx context.Context, userID, oldName, newName string, from, to time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE study_sessions SET subject = ?
		WHERE user_id = ? AND subject = ? AND start_time >= ? AND start_time < ?
	`, newName, userID, oldName, from.UTC(), to.UTC())
	if err != nil {
		return fmt.Errorf("study session rename: %w", err)
	}
	return nil
}

const colorColumns = `id, user_id, subject, color, year, month, created_at`

func (r *StudyRepo) ListColors(ctx context.Context, userID string, year, month int) ([]SubjectColor, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+colorColumns+` FROM subject_colors
		WHERE user_id = ? AND year = ? AND month = ?
		ORDER BY subject ASC
	`, userID, year, month)
	if err != nil {
		return nil, fmt.Errorf("subject color list: %w", err)
	}
	defer rows.Close()

	var out []SubjectColor
	for rows.Next() {
		c, err := scanColorRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("subject color rows: %w", err)
	}
	return out, nil
}

func (r *StudyRepo) ColorForSubject(ctx context.Context, userID, subject string, year, month int) (*SubjectColor, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+colorColumns+` FROM subject_colors
		WHERE user_id = ? AND subject = ? AND year = ? AND month = ?
	`, userID, subject, year, month)
	return scanColorRow(row)
}

// ColorOwner returns the mapping that holds color for a subject other than
// exceptSubject, or nil.
func (r *StudyRepo) ColorOwner(ctx context.Context, userID, color, exceptSubject string, year, month int) (*SubjectColor, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+colorColumns+` FROM subject_colors
		WHERE user_id = ? AND color = ? AND year = ? AND month = ? AND subject <> ?
		ORDER BY id ASC
		LIMIT 1
	`, userID, color, year, month, exceptSubject)
	return scanColorRow(row)
}

// InsertColorIfMissing creates the mapping unless the subject already has one
// for the month. It reports whether a row was created.
func (r *StudyRepo) InsertColorIfMissing(ctx context.Context, c SubjectColor) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO subject_colors (user_id, subject, color, year, month, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, c.UserID, c.Subject, c.Color, c.Year, c.Month, c.CreatedAt.UTC())
	if err != nil {
		return false, fmt.Errorf("subject color insert: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("subject color insert rows: %w", err)
	}
	return n > 0, nil
}

func (r *StudyRepo) UpsertColor(ctx context.Context, c SubjectColor) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO subject_colors (user_id, subject, color, year, month, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, subject, year, month) DO UPDATE SET color = excluded.color
	`, c.UserID, c.Subject, c.Color, c.Year, c.Month, c.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("subject color upsert: %w", err)
	}
	return nil
}

// RenameColorSubject moves a mapping to newName, replacing any mapping that
// newName already had for the month.
func (r *StudyRepo) RenameColorSubject(ctx context.Context, userID, oldName, newName string, year, month int) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE OR REPLACE subject_colors SET subject = ?
		WHERE user_id = ? AND subject = ? AND year = ? AND month = ?
	`, newName, userID, oldName, year, month)
	if err != nil {
		return fmt.Errorf("subject color rename: %w", err)
	}
	return nil
}

func (r *StudyRepo) DeleteColor(ctx context.Context, userID, subject string, year, month int) error {
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM subject_colors WHERE user_id = ? AND subject = ? AND year = ? AND month = ?
	`, userID, subject, year, month)
	if err != nil {
		return fmt.Errorf("subject color delete: %w", err)
	}
	return nil
}

func nullInt(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

func scanSessionRow(row scanner) (*StudySession, error) {
	var (
		s        StudySession
		endTime  sql.NullTime
		duration sql.NullInt64
		active   int
	)
	if err := row.Scan(&s.ID, &s.UserID, &s.Subject, &s.Color, &s.StartTime, &endTime, &duration, &active); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("study session scan: %w", err)
	}
	s.Active = active != 0
	if endTime.Valid {
		v := endTime.Time
		s.EndTime = &v
	}
	if duration.Valid {
		v := int(duration.Int64)
		s.DurationMinutes = &v
	}
	return &s, nil
}

func scanColorRow(row scanner) (*SubjectColor, error) {
	var c SubjectColor
	if err := row.Scan(&c.ID, &c.UserID, &c.Subject, &c.Color, &c.Year, &c.Month, &c.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("subject color scan: %w", err)
	}
	return &c, nil
}
