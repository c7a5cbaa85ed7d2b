package engine

import (
	"context"
	"time"

	"go.uber.org/zap"

	"tracktivity/internal/storage"
)

// TaskResult is returned by CompleteTask and UncompleteTask. On uncompletion
// XPEarned and CoinsEarned are the negated amounts taken back. Changed is
// false when the task was already in the requested state.
type TaskResult struct {
	TaskID      int64 `json:"task_id"`
	Completed   bool  `json:"completed"`
	Changed     bool  `json:"changed"`
	XPEarned    int   `json:"xp_earned"`
	CoinsEarned int   `json:"coins_earned"`
	LevelUp     bool  `json:"level_up"`
	LevelDown   bool  `json:"level_down"`
	HPLost      int   `json:"hp_lost"`
	KnockedOut  bool  `json:"knocked_out"`
	Streak      int   `json:"streak"`
}

// nextStreak applies the daily streak rule for a completion on today.
func nextStreak(streak int, lastCompleted *time.Time, today time.Time) int {
	if lastCompleted == nil {
		return 1
	}
	last := startOfDay(*lastCompleted)
	yesterday := today.AddDate(0, 0, -1)
	switch {
	case last.Equal(yesterday):
		return streak + 1
	case last.Before(yesterday):
		return 1
	default:
		return streak
	}
}

func daysOverdue(due, now time.Time) int {
	if !due.Before(now) {
		return 0
	}
	return int(now.Sub(due) / (24 * time.Hour))
}

// CompleteTask marks a task done and grants its reward. A TaskLog row keeps
// the exact grant so UncompleteTask can take it back.
func (s *Service) CompleteTask(ctx context.Context, userID string, id int64) (*TaskResult, error) {
	res := &TaskResult{TaskID: id}
	err := s.atomic(ctx, func(r *storage.Repos) error {
		t, err := r.Tasks.Get(ctx, userID, id)
		if err != nil {
			return err
		}
		if t == nil {
			return notFound("task", id)
		}
		res.Completed = true
		res.Streak = t.Streak
		if t.Completed {
			return nil
		}

		now := s.now()
		today := startOfDay(now)
		kind := TaskKind(t.Kind)
		diff := Difficulty(t.Difficulty)

		// A daily already rewarded today only gets its flag back.
		if kind == TaskDaily && t.LastCompleted != nil && sameDay(*t.LastCompleted, now) {
			granted, err := r.TaskLogs.ExistsSince(ctx, t.ID, today)
			if err != nil {
				return err
			}
			if granted {
				t.Completed = true
				t.CompletedAt = &now
				res.Changed = true
				return r.Tasks.Update(ctx, t)
			}
		}

		p, err := s.getProfile(ctx, r, userID)
		if err != nil {
			return err
		}

		var reward Reward
		if kind == TaskDaily {
			t.Streak = nextStreak(t.Streak, t.LastCompleted, today)
			t.LastCompleted = &today
			reward = DailyTaskReward(s.rng, diff, t.Streak)
		} else {
			reward = ScheduledTaskReward(s.rng, diff)
		}
		t.Completed = true
		t.CompletedAt = &now
		if err := r.Tasks.Update(ctx, t); err != nil {
			return err
		}

		levelUps, err := s.grantXP(ctx, r, p, reward.XP)
		if err != nil {
			return err
		}
		AddCoins(p, reward.Coins)
		p.AllTimeTasksCompleted++
		if kind == TaskDaily {
			if err := s.ratchetLongestStreak(ctx, r, p); err != nil {
				return err
			}
		}
		celebrate(p, levelUps > 0, reward.XP, reward.Coins)
		if err := r.Profiles.Update(ctx, p); err != nil {
			return err
		}

		// The log holds every coin this completion credited, level-up
		// bonuses included, so reversal restores the balance exactly.
		if _, err := r.TaskLogs.Insert(ctx, storage.TaskLog{
			TaskID:      t.ID,
			UserID:      userID,
			XPEarned:    reward.XP,
			CoinsEarned: reward.Coins + levelUps*LevelUpCoins,
			CreatedAt:   now,
		}); err != nil {
			return err
		}

		s.metrics.Reward(string(kind), reward.XP, reward.Coins)
		res.Changed = true
		res.XPEarned = reward.XP
		res.CoinsEarned = reward.Coins
		res.LevelUp = levelUps > 0
		res.Streak = t.Streak
		return nil
	})
	if err != nil {
		return nil, err
	}
	if res.Changed {
		s.log.Info("task_completed",
			zap.String("user", userID),
			zap.Int64("task_id", id),
			zap.Int("xp", res.XPEarned),
			zap.Int("coins", res.CoinsEarned),
			zap.Int("streak", res.Streak),
			zap.Bool("level_up", res.LevelUp),
		)
	}
	return res, nil
}

// UncompleteTask reverses the latest completion. Without a TaskLog the reward
// part is skipped but the task is still reopened. Reopening an overdue
// scheduled task applies the overdue penalty.
func (s *Service) UncompleteTask(ctx context.Context, userID string, id int64) (*TaskResult, error) {
	res := &TaskResult{TaskID: id}
	reversed := false
	err := s.atomic(ctx, func(r *storage.Repos) error {
		t, err := r.Tasks.Get(ctx, userID, id)
		if err != nil {
			return err
		}
		if t == nil {
			return notFound("task", id)
		}
		res.Streak = t.Streak
		if !t.Completed {
			return nil
		}

		now := s.now()
		kind := TaskKind(t.Kind)
		p, err := s.getProfile(ctx, r, userID)
		if err != nil {
			return err
		}

		log, err := r.TaskLogs.Latest(ctx, t.ID)
		if err != nil {
			return err
		}
		if log != nil {
			lost := RemoveXP(p, log.XPEarned)
			RemoveCoins(p, log.CoinsEarned)
			p.AllTimeTasksCompleted = max(0, p.AllTimeTasksCompleted-1)

			// last_completed is not rolled back; only the increment is.
			if kind == TaskDaily && t.LastCompleted != nil && sameDay(*t.LastCompleted, now) && t.Streak > 0 {
				t.Streak--
			}
			if p.AvatarState == string(AvatarCelebrating) {
				p.AvatarState = string(AvatarIdle)
			}
			if err := r.TaskLogs.Delete(ctx, log.ID); err != nil {
				return err
			}
			res.XPEarned = -log.XPEarned
			res.CoinsEarned = -log.CoinsEarned
			res.LevelDown = lost > 0
			reversed = true
		}

		t.Completed = false
		t.CompletedAt = nil

		if kind == TaskScheduled && t.Due != nil && t.Due.Before(now) {
			hp := OverduePenalty(Difficulty(t.Difficulty), daysOverdue(*t.Due, now))
			res.KnockedOut = s.damage(p, "overdue", hp)
			p.AvatarState = string(AvatarHurt)
			res.HPLost = hp
		}

		if err := r.Tasks.Update(ctx, t); err != nil {
			return err
		}
		if err := r.Profiles.Update(ctx, p); err != nil {
			return err
		}
		res.Changed = true
		res.Streak = t.Streak
		return nil
	})
	if err != nil {
		return nil, err
	}
	if res.Changed {
		s.metrics.Reversal(reversed)
		s.log.Info("task_uncompleted",
			zap.String("user", userID),
			zap.Int64("task_id", id),
			zap.Bool("reward_reversed", reversed),
			zap.Int("xp", res.XPEarned),
			zap.Int("hp_lost", res.HPLost),
		)
	}
	return res, nil
}

// ratchetLongestStreak raises longest_daily_streak to the best current daily
// streak. It never lowers it.
func (s *Service) ratchetLongestStreak(ctx context.Context, r *storage.Repos, p *storage.Profile) error {
	best, err := r.Tasks.MaxStreak(ctx, p.UserID, string(TaskDaily))
	if err != nil {
		return err
	}
	if best > p.LongestDailyStreak {
		p.LongestDailyStreak = best
	}
	return nil
}
