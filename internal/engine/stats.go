package engine

import (
	"context"
	"math"

	"tracktivity/internal/storage"
)

type StatType string

const (
	StatHoursStudied    StatType = "hours_studied"
	StatTasksCompleted  StatType = "tasks_completed"
	StatHabitsCompleted StatType = "habits_completed"
	StatCurrentStreak   StatType = "current_streak"
	StatLongestStreak   StatType = "longest_streak"
	StatCoinsEarned     StatType = "coins_earned"
	StatLevel           StatType = "level"
)

// StatTypes lists every stat in display order.
var StatTypes = []StatType{
	StatHoursStudied,
	StatTasksCompleted,
	StatHabitsCompleted,
	StatCurrentStreak,
	StatLongestStreak,
	StatCoinsEarned,
	StatLevel,
}

func (t StatType) IsValid() bool {
	for _, v := range StatTypes {
		if v == t {
			return true
		}
	}
	return false
}

// MaxStatSlots is the number of stat slots shown on a profile.
const MaxStatSlots = 4

// Profile returns the user's profile, creating it on first use.
func (s *Service) Profile(ctx context.Context, userID string) (*storage.Profile, error) {
	userID, err := normalizeUser(userID)
	if err != nil {
		return nil, err
	}
	var out *storage.Profile
	err = s.atomic(ctx, func(r *storage.Repos) error {
		out, err = s.getProfile(ctx, r, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// StatValue reports one lifetime stat. Unknown types report 0. Reading
// longest_streak ratchets the stored value up to the best current streak.
func (s *Service) StatValue(ctx context.Context, userID string, t StatType) (float64, error) {
	var v float64
	err := s.atomic(ctx, func(r *storage.Repos) error {
		p, err := s.getProfile(ctx, r, userID)
		if err != nil {
			return err
		}
		switch t {
		case StatHoursStudied:
			v = math.Round(p.AllTimeHoursStudied*10) / 10
		case StatTasksCompleted:
			v = float64(p.AllTimeTasksCompleted)
		case StatHabitsCompleted:
			v = float64(p.AllTimeHabitsCompleted)
		case StatCurrentStreak:
			n, err := r.Tasks.MaxStreak(ctx, userID, string(TaskDaily))
			if err != nil {
				return err
			}
			v = float64(n)
		case StatLongestStreak:
			before := p.LongestDailyStreak
			if err := s.ratchetLongestStreak(ctx, r, p); err != nil {
				return err
			}
			v = float64(p.LongestDailyStreak)
			if p.LongestDailyStreak != before {
				return r.Profiles.Update(ctx, p)
			}
		case StatCoinsEarned:
			v = float64(p.AllTimeCoinsEarned)
		case StatLevel:
			v = float64(p.HighestLevelEver)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return v, nil
}

// SetStatSlot shows t in slot. An empty t clears the slot.
func (s *Service) SetStatSlot(ctx context.Context, userID string, slot int, t StatType) error {
	if slot < 1 || slot > MaxStatSlots {
		return ValidationError{Field: "slot", Reason: "must be between 1 and 4"}
	}
	var v *string
	if t != "" {
		if !t.IsValid() {
			return ValidationError{Field: "stat_type", Reason: "unknown stat " + string(t)}
		}
		str := string(t)
		v = &str
	}
	return s.Repos().Shop.SetStatSlot(ctx, userID, slot, v)
}

// StatSlots maps slot numbers to their stat. Cleared slots are omitted.
func (s *Service) StatSlots(ctx context.Context, userID string) (map[int]StatType, error) {
	slots, err := s.Repos().Shop.StatSlots(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make(map[int]StatType, len(slots))
	for _, sl := range slots {
		if sl.StatType != nil {
			out[sl.Slot] = StatType(*sl.StatType)
		}
	}
	return out, nil
}
