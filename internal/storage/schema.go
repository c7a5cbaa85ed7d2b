package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

func Migrate(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS profiles (
			user_id TEXT PRIMARY KEY,
			level INTEGER NOT NULL DEFAULT 1,
			xp INTEGER NOT NULL DEFAULT 0,
			max_xp INTEGER NOT NULL DEFAULT 30,
			hp INTEGER NOT NULL DEFAULT 50,
			max_hp INTEGER NOT NULL DEFAULT 50,
			coins INTEGER NOT NULL DEFAULT 0,

			avatar_state TEXT NOT NULL DEFAULT 'idle',
			avatar_background TEXT NOT NULL DEFAULT '#d8b9b9',
			avatar_floor TEXT NOT NULL DEFAULT '#d8aeae',
			avatar_character TEXT NOT NULL DEFAULT 'default_girl',
			avatar_clothes TEXT NOT NULL DEFAULT 'default',
			avatar_shirt TEXT NOT NULL DEFAULT 'default',
			avatar_pants TEXT NOT NULL DEFAULT 'default',
			avatar_socks TEXT NOT NULL DEFAULT 'default',
			avatar_shoes TEXT NOT NULL DEFAULT 'default',

			all_time_hours_studied REAL NOT NULL DEFAULT 0,
			all_time_tasks_completed INTEGER NOT NULL DEFAULT 0,
			all_time_habits_completed INTEGER NOT NULL DEFAULT 0,
			longest_daily_streak INTEGER NOT NULL DEFAULT 0,
			all_time_coins_earned INTEGER NOT NULL DEFAULT 0,
			highest_level_ever INTEGER NOT NULL DEFAULT 1,

			last_daily_reset DATETIME,
			created_at DATETIME NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS habits (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id TEXT NOT NULL,
			title TEXT NOT NULL,
			details TEXT NOT NULL DEFAULT '',
			difficulty TEXT NOT NULL DEFAULT 'trivial',
			allow_positive INTEGER NOT NULL DEFAULT 1,
			allow_negative INTEGER NOT NULL DEFAULT 1,
			pos_count INTEGER NOT NULL DEFAULT 0,
			neg_count INTEGER NOT NULL DEFAULT 0,
			reset_frequency TEXT NOT NULL DEFAULT 'never',
			last_reset DATETIME NOT NULL,
			created_at DATETIME NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS tasks (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id TEXT NOT NULL,
			title TEXT NOT NULL,
			details TEXT NOT NULL DEFAULT '',
			difficulty TEXT NOT NULL DEFAULT 'trivial',
			kind TEXT NOT NULL DEFAULT 'scheduled',
			due DATETIME,
			completed INTEGER NOT NULL DEFAULT 0,
			completed_at DATETIME,
			streak INTEGER NOT NULL DEFAULT 0,
			last_completed DATETIME,
			created_at DATETIME NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS tags (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL UNIQUE
		);`,
		`CREATE TABLE IF NOT EXISTS habit_tags (
			habit_id INTEGER NOT NULL,
			tag_id INTEGER NOT NULL,
			PRIMARY KEY (habit_id, tag_id),
			FOREIGN KEY(habit_id) REFERENCES habits(id) ON DELETE CASCADE,
			FOREIGN KEY(tag_id) REFERENCES tags(id) ON DELETE CASCADE
		);`,
		`CREATE TABLE IF NOT EXISTS task_tags (
			task_id INTEGER NOT NULL,
			tag_id INTEGER NOT NULL,
			PRIMARY KEY (task_id, tag_id),
			FOREIGN KEY(task_id) REFERENCES tasks(id) ON DELETE CASCADE,
			FOREIGN KEY(tag_id) REFERENCES tags(id) ON DELETE CASCADE
		);`,
		`CREATE TABLE IF NOT EXISTS habit_logs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			habit_id INTEGER NOT NULL,
			user_id TEXT NOT NULL,
			positive INTEGER NOT NULL,
			created_at DATETIME NOT NULL,
			FOREIGN KEY(habit_id) REFERENCES habits(id) ON DELETE CASCADE
		);`,
		// Exact grant of the latest completion; deleted again on uncompletion.
		`CREATE TABLE IF NOT EXISTS task_logs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			task_id INTEGER NOT NULL,
			user_id TEXT NOT NULL,
			xp_earned INTEGER NOT NULL DEFAULT 0,
			coins_earned INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL,
			FOREIGN KEY(task_id) REFERENCES tasks(id) ON DELETE CASCADE
		);`,
		`CREATE TABLE IF NOT EXISTS level_logs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id TEXT NOT NULL,
			level INTEGER NOT NULL,
			created_at DATETIME NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS study_sessions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id TEXT NOT NULL,
			subject TEXT NOT NULL,
			color TEXT NOT NULL DEFAULT '',
			start_time DATETIME NOT NULL,
			end_time DATETIME,
			duration_minutes INTEGER,
			active INTEGER NOT NULL DEFAULT 1
		);`,
		`CREATE TABLE IF NOT EXISTS subject_colors (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id TEXT NOT NULL,
			subject TEXT NOT NULL,
			color TEXT NOT NULL,
			year INTEGER NOT NULL,
			month INTEGER NOT NULL,
			created_at DATETIME NOT NULL,
			UNIQUE(user_id, subject, year, month)
		);`,
		`CREATE TABLE IF NOT EXISTS stat_slots (
			user_id TEXT NOT NULL,
			slot_number INTEGER NOT NULL,
			stat_type TEXT,
			PRIMARY KEY (user_id, slot_number)
		);`,
		`CREATE TABLE IF NOT EXISTS shop_items (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id TEXT,
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			item_type TEXT NOT NULL,
			price INTEGER NOT NULL,
			image_url TEXT NOT NULL DEFAULT '',
			active INTEGER NOT NULL DEFAULT 1
		);`,
		`CREATE TABLE IF NOT EXISTS owned_items (
			user_id TEXT NOT NULL,
			item_id TEXT NOT NULL,
			acquired_at DATETIME NOT NULL,
			PRIMARY KEY (user_id, item_id)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_habits_user ON habits(user_id);`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_user_kind ON tasks(user_id, kind);`,
		`CREATE INDEX IF NOT EXISTS idx_habit_logs_user_created ON habit_logs(user_id, created_at);`,
		`CREATE INDEX IF NOT EXISTS idx_task_logs_task_created ON task_logs(task_id, created_at);`,
		`CREATE INDEX IF NOT EXISTS idx_task_logs_user_created ON task_logs(user_id, created_at);`,
		`CREATE INDEX IF NOT EXISTS idx_level_logs_user_created ON level_logs(user_id, created_at);`,
		`CREATE INDEX IF NOT EXISTS idx_study_sessions_user_start ON study_sessions(user_id, start_time);`,
		`CREATE INDEX IF NOT EXISTS idx_subject_colors_user_month ON subject_colors(user_id, year, month);`,
	}

	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	// Columns added after the first release (ignore if already present).
	alterStmts := []string{
		`ALTER TABLE profiles ADD COLUMN last_daily_reset DATETIME;`,
	}
	for _, stmt := range alterStmts {
		_, err := db.ExecContext(ctx, stmt)
		if err != nil && !strings.Contains(err.Error(), "duplicate column") {
			return fmt.Errorf("migrate alter: %w", err)
		}
	}

	return nil
}
