package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

type HabitRepo struct {
	db DBTX
}

func NewHabitRepo(db DBTX) *HabitRepo {
	return &HabitRepo{db: db}
}

type HabitInsert struct {
	UserID         string
	Title          string
	Details        string
	Difficulty     string
	AllowPositive  bool
	AllowNegative  bool
	ResetFrequency string
	CreatedAt      time.Time
}

const habitColumns = `id, user_id, title, details, difficulty, allow_positive, allow_negative,
	pos_count, neg_count, reset_frequency, last_reset, created_at`

func (r *HabitRepo) Insert(ctx context.Context, in HabitInsert) (int64, error) {
	created := in.CreatedAt.UTC()
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO habits (
			user_id, title, details, difficulty,
			allow_positive, allow_negative, reset_frequency,
			last_reset, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, in.UserID, in.Title, in.Details, in.Difficulty,
		boolToInt(in.AllowPositive), boolToInt(in.AllowNegative), in.ResetFrequency,
		created, created)
	if err != nil {
		return 0, fmt.Errorf("habit insert: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("habit last insert id: %w", err)
	}
	return id, nil
}

// Get returns the habit only when it belongs to userID.
func (r *HabitRepo) Get(ctx context.Context, userID string, id int64) (*Habit, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+habitColumns+` FROM habits WHERE id = ? AND user_id = ?`, id, userID)
	h, err := scanHabitRow(row)
	if err != nil || h == nil {
		return h, err
	}
	h.Tags, err = loadTagNames(ctx, r.db, "habit_tags", "habit_id", h.ID)
	if err != nil {
		return nil, err
	}
	return h, nil
}

func (r *HabitRepo) List(ctx context.Context, userID string, f ListFilter) ([]Habit, error) {
	extra, args := f.where("h", "habit_tags", "habit_id")
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+prefixColumns("h", habitColumns)+`
		FROM habits h
		WHERE h.user_id = ?`+extra+`
		ORDER BY h.id ASC
	`, append([]any{userID}, args...)...)
	if err != nil {
		return nil, fmt.Errorf("habit list: %w", err)
	}

	var out []Habit
	for rows.Next() {
		h, err := scanHabitRow(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, *h)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("habit list rows: %w", err)
	}
	rows.Close()

	for i := range out {
		tags, err := loadTagNames(ctx, r.db, "habit_tags", "habit_id", out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].Tags = tags
	}
	return out, nil
}

func (r *HabitRepo) Update(ctx context.Context, h *Habit) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE habits
		SET title = ?, details = ?, difficulty = ?, allow_positive = ?, allow_negative = ?,
			pos_count = ?, neg_count = ?, reset_frequency = ?, last_reset = ?
		WHERE id = ? AND user_id = ?
	`, h.Title, h.Details, h.Difficulty, boolToInt(h.AllowPositive), boolToInt(h.AllowNegative),
		h.PosCount, h.NegCount, h.ResetFrequency, h.LastReset.UTC(), h.ID, h.UserID)
	if err != nil {
		return fmt.Errorf("habit update: %w", err)
	}
	return nil
}

// Delete removes the habit and reports whether a row owned by userID existed.
func (r *HabitRepo) Delete(ctx context.Context, userID string, id int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM habits WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return false, fmt.Errorf("habit delete: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("habit delete rows: %w", err)
	}
	return n > 0, nil
}

func scanHabitRow(row scanner) (*Habit, error) {
	var (
		h             Habit
		allowPositive int
		allowNegative int
	)
	if err := row.Scan(
		&h.ID, &h.UserID, &h.Title, &h.Details, &h.Difficulty, &allowPositive, &allowNegative,
		&h.PosCount, &h.NegCount, &h.ResetFrequency, &h.LastReset, &h.CreatedAt,
	); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("habit scan: %w", err)
	}
	h.AllowPositive = allowPositive != 0
	h.AllowNegative = allowNegative != 0
	return &h, nil
}
