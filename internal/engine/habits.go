package engine

import (
	"context"
	"time"

	"go.uber.org/zap"

	"tracktivity/internal/storage"
)

// HabitResult is returned by CompleteHabit. Applied is false when the habit
// does not track the requested direction; nothing changes in that case.
type HabitResult struct {
	HabitID     int64 `json:"habit_id"`
	Positive    bool  `json:"positive"`
	Applied     bool  `json:"applied"`
	XPEarned    int   `json:"xp_earned"`
	CoinsEarned int   `json:"coins_earned"`
	HPLost      int   `json:"hp_lost"`
	LevelUp     bool  `json:"level_up"`
	KnockedOut  bool  `json:"knocked_out"`
	PosCount    int   `json:"pos_count"`
	NegCount    int   `json:"neg_count"`
}

// HabitView is a habit with its derived display state.
type HabitView struct {
	storage.Habit
	Color  string
	Strong bool
	Weak   bool
}

type HabitFilter string

const (
	HabitFilterAll    HabitFilter = "all"
	HabitFilterWeak   HabitFilter = "weak"
	HabitFilterStrong HabitFilter = "strong"
)

// resetCountersIfDue zeroes the counters once a full period has elapsed since
// the last reset. It reports whether a reset happened.
func resetCountersIfDue(h *storage.Habit, now time.Time) bool {
	period, ok := ResetFrequency(h.ResetFrequency).Period()
	if !ok {
		return false
	}
	if now.Sub(h.LastReset) < period {
		return false
	}
	h.PosCount = 0
	h.NegCount = 0
	h.LastReset = now
	return true
}

// CompleteHabit records one positive or negative event.
func (s *Service) CompleteHabit(ctx context.Context, userID string, id int64, positive bool) (*HabitResult, error) {
	res := &HabitResult{HabitID: id, Positive: positive}
	err := s.atomic(ctx, func(r *storage.Repos) error {
		h, err := r.Habits.Get(ctx, userID, id)
		if err != nil {
			return err
		}
		if h == nil {
			return notFound("habit", id)
		}
		res.PosCount, res.NegCount = h.PosCount, h.NegCount
		if positive && !h.AllowPositive || !positive && !h.AllowNegative {
			return nil
		}

		p, err := s.getProfile(ctx, r, userID)
		if err != nil {
			return err
		}
		now := s.now()
		diff := Difficulty(h.Difficulty)

		resetCountersIfDue(h, now)
		if positive {
			h.PosCount++
		} else {
			h.NegCount++
		}
		if err := r.Habits.Update(ctx, h); err != nil {
			return err
		}
		if _, err := r.HabitLogs.Insert(ctx, storage.HabitLog{
			HabitID:   h.ID,
			UserID:    userID,
			Positive:  positive,
			CreatedAt: now,
		}); err != nil {
			return err
		}

		if positive {
			reward := HabitReward(s.rng, diff)
			levelUps, err := s.grantXP(ctx, r, p, reward.XP)
			if err != nil {
				return err
			}
			levelUp := levelUps > 0
			AddCoins(p, reward.Coins)
			p.AllTimeHabitsCompleted++
			celebrate(p, levelUp, reward.XP, reward.Coins)
			s.metrics.Reward("habit", reward.XP, reward.Coins)

			res.XPEarned = reward.XP
			res.CoinsEarned = reward.Coins
			res.LevelUp = levelUp
		} else {
			hp := HabitDamage(s.rng, diff)
			res.KnockedOut = s.damage(p, "habit", hp)
			p.AvatarState = string(AvatarHurt)
			res.HPLost = hp
		}

		res.Applied = true
		res.PosCount, res.NegCount = h.PosCount, h.NegCount
		return r.Profiles.Update(ctx, p)
	})
	if err != nil {
		return nil, err
	}
	if res.Applied {
		s.log.Info("habit_completed",
			zap.String("user", userID),
			zap.Int64("habit_id", id),
			zap.Bool("positive", positive),
			zap.Int("xp", res.XPEarned),
			zap.Int("coins", res.CoinsEarned),
			zap.Int("hp_lost", res.HPLost),
		)
	}
	return res, nil
}

// ListHabits returns the user's habits, resetting any counters that are due
// first. Weak and strong filters apply to the post-reset counts.
func (s *Service) ListHabits(ctx context.Context, userID string, filter HabitFilter, lf storage.ListFilter) ([]HabitView, error) {
	var out []HabitView
	err := s.atomic(ctx, func(r *storage.Repos) error {
		habits, err := r.Habits.List(ctx, userID, lf)
		if err != nil {
			return err
		}
		now := s.now()
		for i := range habits {
			h := habits[i]
			if resetCountersIfDue(&h, now) {
				if err := r.Habits.Update(ctx, &h); err != nil {
					return err
				}
			}
			v := HabitView{
				Habit:  h,
				Color:  HabitColor(h.PosCount, h.NegCount),
				Strong: HabitStrong(h.PosCount, h.NegCount),
				Weak:   HabitWeak(h.PosCount, h.NegCount),
			}
			switch filter {
			case HabitFilterWeak:
				if !v.Weak {
					continue
				}
			case HabitFilterStrong:
				if !v.Strong {
					continue
				}
			}
			out = append(out, v)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
