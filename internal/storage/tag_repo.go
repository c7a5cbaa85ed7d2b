package storage

import (
	"context"
	"fmt"
	"strings"
)

type TagRepo struct {
	db DBTX
}

func NewTagRepo(db DBTX) *TagRepo {
	return &TagRepo{db: db}
}

// Ensure returns the id of the named tag, creating it when missing.
func (r *TagRepo) Ensure(ctx context.Context, name string) (int64, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, fmt.Errorf("tag name is required")
	}
	if _, err := r.db.ExecContext(ctx, `INSERT OR IGNORE INTO tags (name) VALUES (?)`, name); err != nil {
		return 0, fmt.Errorf("tag insert: %w", err)
	}
	var id int64
	if err := r.db.QueryRowContext(ctx, `SELECT id FROM tags WHERE name = ?`, name).Scan(&id); err != nil {
		return 0, fmt.Errorf("tag lookup: %w", err)
	}
	return id, nil
}

// SetHabitTags replaces the habit's tags with names.
func (r *TagRepo) SetHabitTags(ctx context.Context, habitID int64, names []string) error {
	return r.setTags(ctx, "habit_tags", "habit_id", habitID, names)
}

// SetTaskTags replaces the task's tags with names.
func (r *TagRepo) SetTaskTags(ctx context.Context, taskID int64, names []string) error {
	return r.setTags(ctx, "task_tags", "task_id", taskID, names)
}

func (r *TagRepo) setTags(ctx context.Context, table, column string, ownerID int64, names []string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM `+table+` WHERE `+column+` = ?`, ownerID); err != nil {
		return fmt.Errorf("%s clear: %w", table, err)
	}
	for _, name := range names {
		if strings.TrimSpace(name) == "" {
			continue
		}
		tagID, err := r.Ensure(ctx, name)
		if err != nil {
			return err
		}
		if _, err := r.db.ExecContext(ctx, `INSERT OR IGNORE INTO `+table+` (`+column+`, tag_id) VALUES (?, ?)`, ownerID, tagID); err != nil {
			return fmt.Errorf("%s insert: %w", table, err)
		}
	}
	return nil
}

// ListForUser returns the names of tags attached to any of the user's habits or tasks.
func (r *TagRepo) ListForUser(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT DISTINCT t.name FROM tags t
		JOIN habit_tags ht ON ht.tag_id = t.id
		JOIN habits h ON h.id = ht.habit_id
		WHERE h.user_id = ?
		UNION
		SELECT DISTINCT t.name FROM tags t
		JOIN task_tags tt ON tt.tag_id = t.id
		JOIN tasks k ON k.id = tt.task_id
		WHERE k.user_id = ?
		ORDER BY 1
	`, userID, userID)
	if err != nil {
		return nil, fmt.Errorf("tag list: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("tag scan: %w", err)
		}
		out = append(out, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("tag rows: %w", err)
	}
	return out, nil
}

func loadTagNames(ctx context.Context, db DBTX, table, column string, ownerID int64) ([]string, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT t.name FROM tags t
		JOIN `+table+` x ON x.tag_id = t.id
		WHERE x.`+column+` = ?
		ORDER BY t.name ASC
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("%s load: %w", table, err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("%s scan: %w", table, err)
		}
		out = append(out, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s rows: %w", table, err)
	}
	return out, nil
}

// ListFilter narrows habit/task listings. Empty fields match everything.
type ListFilter struct {
	Search string // case-insensitive substring of title or details
	Tag    string // exact tag name
}

func (f ListFilter) where(alias, tagTable, tagColumn string) (string, []any) {
	var (
		clauses []string
		args    []any
	)
	if s := strings.TrimSpace(f.Search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		clauses = append(clauses, `(LOWER(`+alias+`.title) LIKE ? OR LOWER(`+alias+`.details) LIKE ?)`)
		args = append(args, like, like)
	}
	if tag := strings.TrimSpace(f.Tag); tag != "" {
		clauses = append(clauses, `EXISTS (SELECT 1 FROM `+tagTable+` x JOIN tags t ON t.id = x.tag_id WHERE x.`+tagColumn+` = `+alias+`.id AND t.name = ?)`)
		args = append(args, tag)
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " AND " + strings.Join(clauses, " AND "), args
}
