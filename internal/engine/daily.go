package engine

import (
	"context"
	"time"

	"go.uber.org/zap"

	"tracktivity/internal/storage"
)

type PendingItem struct {
	ID        int64
	Title     string
	Completed bool
	Kind      TaskKind
}

// CheckResult lists what the daily review should ask the user about.
type CheckResult struct {
	PendingDailies []PendingItem
	PendingTasks   []PendingItem
	NeedsCheck     bool
	// Cleared counts dailies whose stale completed flag was dropped.
	Cleared int
}

type ResetResult struct {
	AlreadyRan    bool `json:"already_ran"`
	MissedDailies int  `json:"missed_dailies"`
	OverdueTasks  int  `json:"overdue_tasks"`
	HPLost        int  `json:"hp_lost"`
	KnockedOut    bool `json:"knocked_out"`
	HabitsReset   int  `json:"habits_reset"`
}

// CheckDailies clears stale completion flags on dailies and reports dailies
// that were not completed yesterday plus scheduled tasks that fell due
// yesterday and are still open. Dailies created today are ignored.
func (s *Service) CheckDailies(ctx context.Context, userID string) (*CheckResult, error) {
	res := &CheckResult{}
	err := s.atomic(ctx, func(r *storage.Repos) error {
		now := s.now()
		today := startOfDay(now)
		yesterday := today.AddDate(0, 0, -1)

		dailies, err := r.Tasks.List(ctx, userID, string(TaskDaily), storage.ListFilter{})
		if err != nil {
			return err
		}
		for i := range dailies {
			d := &dailies[i]
			if !d.CreatedAt.Before(today) {
				continue
			}
			stale := d.LastCompleted == nil || startOfDay(*d.LastCompleted).Before(today)
			if d.Completed && stale {
				d.Completed = false
				d.CompletedAt = nil
				if err := r.Tasks.Update(ctx, d); err != nil {
					return err
				}
				res.Cleared++
			}

			if d.LastCompleted != nil && startOfDay(*d.LastCompleted).Equal(yesterday) {
				continue
			}
			res.PendingDailies = append(res.PendingDailies, PendingItem{
				ID: d.ID, Title: d.Title, Completed: d.Completed, Kind: TaskDaily,
			})
		}

		open, err := r.Tasks.ListOpenScheduledDueBetween(ctx, userID, string(TaskScheduled), yesterday, today)
		if err != nil {
			return err
		}
		for _, t := range open {
			res.PendingTasks = append(res.PendingTasks, PendingItem{
				ID: t.ID, Title: t.Title, Completed: t.Completed, Kind: TaskScheduled,
			})
		}
		res.NeedsCheck = len(res.PendingDailies) > 0 || len(res.PendingTasks) > 0
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// completedAround reports whether a daily counts as done for yesterday or today.
func completedAround(d storage.Task, today time.Time) bool {
	yesterday := today.AddDate(0, 0, -1)
	if d.LastCompleted != nil {
		lc := startOfDay(*d.LastCompleted)
		return lc.Equal(yesterday) || lc.Equal(today)
	}
	if d.Completed {
		if d.CompletedAt == nil {
			return true
		}
		ca := startOfDay(*d.CompletedAt)
		return ca.Equal(yesterday) || ca.Equal(today)
	}
	return false
}

// ResetDailies runs the day-boundary job: it penalizes missed dailies and
// tasks that fell due yesterday, clears daily completion flags, resets habit
// counters that are due and ratchets the longest streak. It runs at most once
// per UTC day per user; later calls that day report AlreadyRan.
func (s *Service) ResetDailies(ctx context.Context, userID string) (*ResetResult, error) {
	res := &ResetResult{}
	err := s.atomic(ctx, func(r *storage.Repos) error {
		p, err := s.getProfile(ctx, r, userID)
		if err != nil {
			return err
		}
		now := s.now()
		today := startOfDay(now)
		yesterday := today.AddDate(0, 0, -1)

		if p.LastDailyReset != nil && sameDay(*p.LastDailyReset, now) {
			res.AlreadyRan = true
			return nil
		}

		hurt := func(source string, hp int) {
			if s.damage(p, source, hp) {
				res.KnockedOut = true
			}
			if p.AvatarState != string(AvatarCelebrating) {
				p.AvatarState = string(AvatarHurt)
			}
			res.HPLost += hp
		}

		dailies, err := r.Tasks.List(ctx, userID, string(TaskDaily), storage.ListFilter{})
		if err != nil {
			return err
		}
		for i := range dailies {
			d := &dailies[i]
			if sameDay(d.CreatedAt, now) {
				continue
			}
			if completedAround(*d, today) {
				continue
			}
			hurt("missed_daily", MissedPenalty(Difficulty(d.Difficulty)))
			d.Streak = 0
			res.MissedDailies++
		}

		overdue, err := r.Tasks.ListOpenScheduledDueBetween(ctx, userID, string(TaskScheduled), yesterday, today)
		if err != nil {
			return err
		}
		for _, t := range overdue {
			hurt("overdue", OverduePenalty(Difficulty(t.Difficulty), daysOverdue(*t.Due, now)))
			res.OverdueTasks++
		}

		for i := range dailies {
			d := &dailies[i]
			d.Completed = false
			d.CompletedAt = nil
			if d.LastCompleted == nil {
				d.Streak = 0
			}
			if err := r.Tasks.Update(ctx, d); err != nil {
				return err
			}
		}

		habits, err := r.Habits.List(ctx, userID, storage.ListFilter{})
		if err != nil {
			return err
		}
		for i := range habits {
			if resetCountersIfDue(&habits[i], now) {
				if err := r.Habits.Update(ctx, &habits[i]); err != nil {
					return err
				}
				res.HabitsReset++
			}
		}

		if err := s.ratchetLongestStreak(ctx, r, p); err != nil {
			return err
		}
		p.LastDailyReset = &now
		return r.Profiles.Update(ctx, p)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.DailyReset(res.AlreadyRan)
	if res.AlreadyRan {
		s.log.Debug("daily_reset_skipped", zap.String("user", userID))
	} else {
		s.log.Info("daily_reset_applied",
			zap.String("user", userID),
			zap.Int("missed_dailies", res.MissedDailies),
			zap.Int("overdue_tasks", res.OverdueTasks),
			zap.Int("hp_lost", res.HPLost),
			zap.Int("habits_reset", res.HabitsReset),
		)
	}
	return res, nil
}
