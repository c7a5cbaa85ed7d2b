package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx so repos can run inside or
// outside a transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Repos bundles every repo bound to the same DBTX.
type Repos struct {
	Profiles  *ProfileRepo
	Habits    *HabitRepo
	Tasks     *TaskRepo
	Tags      *TagRepo
	HabitLogs *HabitLogRepo
	TaskLogs  *TaskLogRepo
	LevelLogs *LevelLogRepo
	Study     *StudyRepo
	Shop      *ShopRepo
}

func NewRepos(q DBTX) *Repos {
	return &Repos{
		Profiles:  NewProfileRepo(q),
		Habits:    NewHabitRepo(q),
		Tasks:     NewTaskRepo(q),
		Tags:      NewTagRepo(q),
		HabitLogs: NewHabitLogRepo(q),
		TaskLogs:  NewTaskLogRepo(q),
		LevelLogs: NewLevelLogRepo(q),
		Study:     NewStudyRepo(q),
		Shop:      NewShopRepo(q),
	}
}

// WithTx runs fn inside a SQL transaction.
func WithTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	committed = true
	return nil
}

// Atomic runs fn with a Repos bundle scoped to one transaction.
func Atomic(ctx context.Context, db *sql.DB, fn func(r *Repos) error) error {
	return WithTx(ctx, db, func(tx *sql.Tx) error {
		return fn(NewRepos(tx))
	})
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

type scanner interface {
	Scan(dest ...any) error
}

// prefixColumns qualifies a comma-separated column list with a table alias.
func prefixColumns(alias, columns string) string {
	parts := strings.Split(columns, ",")
	for i, p := range parts {
		parts[i] = alias + "." + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}
