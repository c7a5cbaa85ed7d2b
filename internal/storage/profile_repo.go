package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

type ProfileRepo struct {
	db DBTX
}

func NewProfileRepo(db DBTX) *ProfileRepo {
	return &ProfileRepo{db: db}
}

const profileColumns = `user_id, level, xp, max_xp, hp, max_hp, coins,
	avatar_state, avatar_background, avatar_floor, avatar_character, avatar_clothes,
	avatar_shirt, avatar_pants, avatar_socks, avatar_shoes,
	all_time_hours_studied, all_time_tasks_completed, all_time_habits_completed,
	longest_daily_streak, all_time_coins_earned, highest_level_ever,
	last_daily_reset, created_at`

func (r *ProfileRepo) Get(ctx context.Context, userID string) (*Profile, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+profileColumns+` FROM profiles WHERE user_id = ?`, userID)

	var (
		p         Profile
		lastReset sql.NullTime
	)
	if err := row.Scan(
		&p.UserID, &p.Level, &p.XP, &p.MaxXP, &p.HP, &p.MaxHP, &p.Coins,
		&p.AvatarState, &p.AvatarBackground, &p.AvatarFloor, &p.AvatarCharacter, &p.AvatarClothes,
		&p.AvatarShirt, &p.AvatarPants, &p.AvatarSocks, &p.AvatarShoes,
		&p.AllTimeHoursStudied, &p.AllTimeTasksCompleted, &p.AllTimeHabitsCompleted,
		&p.LongestDailyStreak, &p.AllTimeCoinsEarned, &p.HighestLevelEver,
		&lastReset, &p.CreatedAt,
	); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("profile get: %w", err)
	}
	if lastReset.Valid {
		v := lastReset.Time
		p.LastDailyReset = &v
	}
	return &p, nil
}

// GetOrCreate returns the profile for userID, inserting a default row first if
// none exists. created reports whether the row was inserted by this call.
func (r *ProfileRepo) GetOrCreate(ctx context.Context, userID string, now time.Time) (p *Profile, created bool, err error) {
	p, err = r.Get(ctx, userID)
	if err != nil {
		return nil, false, err
	}
	if p != nil {
		return p, false, nil
	}

	if _, err := r.db.ExecContext(ctx, `INSERT INTO profiles (user_id, created_at) VALUES (?, ?)`, userID, now.UTC()); err != nil {
		return nil, false, fmt.Errorf("profile insert: %w", err)
	}
	p, err = r.Get(ctx, userID)
	if err != nil {
		return nil, false, err
	}
	return p, true, nil
}

func (r *ProfileRepo) Update(ctx context.Context, p *Profile) error {
	var lastReset any
	if p.LastDailyReset != nil {
		lastReset = p.LastDailyReset.UTC()
	}
	_, err := r.db.ExecContext(ctx, `
		UPDATE profiles
		SET level = ?, xp = ?, max_xp = ?, hp = ?, max_hp = ?, coins = ?,
			avatar_state = ?, avatar_background = ?, avatar_floor = ?, avatar_character = ?,
			avatar_clothes = ?, avatar_shirt = ?, avatar_pants = ?, avatar_socks = ?, avatar_shoes = ?,
			all_time_hours_studied = ?, all_time_tasks_completed = ?, all_time_habits_completed = ?,
			longest_daily_streak = ?, all_time_coins_earned = ?, highest_level_ever = ?,
			last_daily_reset = ?
		WHERE user_id = ?
	`, p.Level, p.XP, p.MaxXP, p.HP, p.MaxHP, p.Coins,
		p.AvatarState, p.AvatarBackground, p.AvatarFloor, p.AvatarCharacter,
		p.AvatarClothes, p.AvatarShirt, p.AvatarPants, p.AvatarSocks, p.AvatarShoes,
		p.AllTimeHoursStudied, p.AllTimeTasksCompleted, p.AllTimeHabitsCompleted,
		p.LongestDailyStreak, p.AllTimeCoinsEarned, p.HighestLevelEver,
		lastReset, p.UserID)
	if err != nil {
		return fmt.Errorf("profile update: %w", err)
	}
	return nil
}
