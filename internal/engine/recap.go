package engine

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"go.uber.org/zap"

	"tracktivity/internal/storage"
)

// RecapOptions shapes the standout list. The zero value keeps every item and
// adds no placeholders.
type RecapOptions struct {
	// MaxItems caps the ranked list; 0 means no cap.
	MaxItems int
	// Placeholders appends weekly summary cards after the ranked items.
	Placeholders bool
}

type StandoutItem struct {
	Type        string `json:"type"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	Score       int    `json:"score"`
}

type Recap struct {
	WeekStart          time.Time      `json:"week_start"`
	WeekEnd            time.Time      `json:"week_end"`
	Text               string         `json:"recap"`
	HabitsCompleted    int            `json:"habits_completed"`
	TasksCompleted     int            `json:"tasks_completed"`
	HoursStudied       float64        `json:"hours_studied"`
	MissedDailies      int            `json:"missed_dailies"`
	LevelUps           int            `json:"level_ups"`
	Items              []StandoutItem `json:"items"`
	BestHabitTitle     string         `json:"best_habit_title"`
	MostCompletedHabit string         `json:"most_completed_habit,omitempty"`
	MostCompletedCount int            `json:"most_completed_count,omitempty"`
}

const (
	DefaultBestHabitTitle = "Stopped Procrastination"

	recapTextHighlights = "Last week highlights:"
	recapTextEmpty      = "No standout stats last week. Let's aim higher this week!"

	streakStandoutMin    = 5
	subjectWeekMinutes   = 600
	subjectDayMinutes    = 150
	perfectWeekScore     = 100
	levelMasterMinLevels = 5
	levelMasterPerLevel  = 15
)

// RecapWindow returns the Monday-to-Monday window of the last full week
// before now.
func RecapWindow(now time.Time) (start, end time.Time) {
	end = startOfWeek(now)
	return end.AddDate(0, 0, -7), end
}

type recapFacts struct {
	topStreakTitle string
	topStreak      int
	sessions       []storage.StudySession
	dailies        int
	missedDailies  int
	levelUps       int
}

// rankStandouts evaluates the streak, study, perfect-week and level rules in
// that order and sorts the hits by score, highest first.
func rankStandouts(f recapFacts) []StandoutItem {
	var items []StandoutItem

	if f.topStreak >= streakStandoutMin {
		items = append(items, StandoutItem{
			Type:        "streak",
			Title:       f.topStreakTitle,
			Description: fmt.Sprintf("%d day streak!", f.topStreak),
			Icon:        "flame",
			Score:       f.topStreak * 10,
		})
	}

	if item, ok := studyStandout(f.sessions); ok {
		items = append(items, item)
	}

	if f.dailies > 0 && f.missedDailies == 0 {
		items = append(items, StandoutItem{
			Type:        "perfect_week",
			Title:       "Perfect Week",
			Description: "No missed dailies!",
			Icon:        "star",
			Score:       perfectWeekScore,
		})
	}

	if f.levelUps > levelMasterMinLevels {
		items = append(items, StandoutItem{
			Type:        "level_up",
			Title:       "Level Master",
			Description: fmt.Sprintf("Leveled up %d times!", f.levelUps),
			Icon:        "star",
			Score:       f.levelUps * levelMasterPerLevel,
		})
	}

	sort.SliceStable(items, func(i, j int) bool { return items[i].Score > items[j].Score })
	return items
}

// studyStandout picks a subject with ten hours in the week, or failing that
// the best single subject-day of at least two and a half hours.
func studyStandout(sessions []storage.StudySession) (StandoutItem, bool) {
	type dayKey struct {
		subject string
		day     time.Time
	}
	bySubject := map[string]int{}
	byDay := map[dayKey]int{}
	for _, s := range sessions {
		if s.DurationMinutes == nil {
			continue
		}
		bySubject[s.Subject] += *s.DurationMinutes
		byDay[dayKey{s.Subject, startOfDay(s.StartTime)}] += *s.DurationMinutes
	}

	bestSubject, bestMinutes := "", 0
	for subject, m := range bySubject {
		if m < subjectWeekMinutes {
			continue
		}
		if m > bestMinutes || m == bestMinutes && subject < bestSubject {
			bestSubject, bestMinutes = subject, m
		}
	}
	if bestSubject != "" {
		return StandoutItem{
			Type:        "study",
			Title:       bestSubject,
			Description: fmt.Sprintf("%.1f hours total", float64(bestMinutes)/60),
			Icon:        "clock",
			Score:       bestMinutes,
		}, true
	}

	var best dayKey
	bestMinutes = 0
	for k, m := range byDay {
		if m < subjectDayMinutes {
			continue
		}
		if m > bestMinutes || m == bestMinutes && (k.day.Before(best.day) || k.day.Equal(best.day) && k.subject < best.subject) {
			best, bestMinutes = k, m
		}
	}
	if bestMinutes == 0 {
		return StandoutItem{}, false
	}
	return StandoutItem{
		Type:        "study",
		Title:       best.subject,
		Description: fmt.Sprintf("%.1f hours in one day", float64(bestMinutes)/60),
		Icon:        "clock",
		Score:       bestMinutes,
	}, true
}

// BestHabitTitle picks the positive-only habit with the most completions, or
// a two-way habit with at least 70% positive over three or more events,
// scored by ratio*100 + total*0.1. It falls back to DefaultBestHabitTitle.
func BestHabitTitle(habits []storage.Habit) string {
	title := DefaultBestHabitTitle
	bestScore := 0.0
	for _, h := range habits {
		switch {
		case h.AllowPositive && !h.AllowNegative:
			if float64(h.PosCount) > bestScore {
				bestScore = float64(h.PosCount)
				title = h.Title
			}
		case h.AllowPositive && h.AllowNegative:
			total := h.PosCount + h.NegCount
			if total < 3 {
				continue
			}
			ratio := float64(h.PosCount) / float64(total)
			if ratio < 0.7 {
				continue
			}
			if score := ratio*100 + float64(total)*0.1; score > bestScore {
				bestScore = score
				title = h.Title
			}
		}
	}
	return title
}

func recapCacheKey(userID string, weekStart time.Time, o RecapOptions) string {
	return fmt.Sprintf("recap:%s:%s:%d:%t", userID, weekStart.Format("2006-01-02"), o.MaxItems, o.Placeholders)
}

// WeeklyRecap summarizes the last full Monday-to-Sunday week.
func (s *Service) WeeklyRecap(ctx context.Context, userID string) (*Recap, error) {
	userID, err := normalizeUser(userID)
	if err != nil {
		return nil, err
	}
	start, end := RecapWindow(s.now())
	key := recapCacheKey(userID, start, s.recap)

	if s.cache != nil {
		var cached Recap
		hit, err := s.cache.Get(ctx, key, &cached)
		if err != nil {
			s.log.Warn("recap_cache_get_failed", zap.String("user", userID), zap.Error(err))
		} else if hit {
			s.log.Debug("recap_cache_hit", zap.String("user", userID), zap.String("key", key))
			return &cached, nil
		}
	}

	rec, err := s.computeRecap(ctx, userID, start, end)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, rec); err != nil {
			s.log.Warn("recap_cache_set_failed", zap.String("user", userID), zap.Error(err))
		}
	}
	s.log.Info("recap_computed", zap.String("user", userID), zap.Int("items", len(rec.Items)))
	return rec, nil
}

// InvalidateRecap drops the cached recap for the current window so the next
// WeeklyRecap recomputes it. It is a no-op without a cache.
func (s *Service) InvalidateRecap(ctx context.Context, userID string) error {
	userID, err := normalizeUser(userID)
	if err != nil {
		return err
	}
	if s.cache == nil {
		return nil
	}
	start, _ := RecapWindow(s.now())
	if err := s.cache.Delete(ctx, recapCacheKey(userID, start, s.recap)); err != nil {
		return fmt.Errorf("recap invalidate: %w", err)
	}
	return nil
}

func (s *Service) computeRecap(ctx context.Context, userID string, start, end time.Time) (*Recap, error) {
	r := s.Repos()
	rec := &Recap{WeekStart: start, WeekEnd: end}

	var err error
	if rec.HabitsCompleted, err = r.HabitLogs.CountBetween(ctx, userID, start, end); err != nil {
		return nil, err
	}
	if rec.TasksCompleted, err = r.TaskLogs.CountBetween(ctx, userID, start, end); err != nil {
		return nil, err
	}
	if rec.LevelUps, err = r.LevelLogs.CountBetween(ctx, userID, start, end); err != nil {
		return nil, err
	}
	if rec.MostCompletedHabit, rec.MostCompletedCount, err = r.HabitLogs.MostPositiveBetween(ctx, userID, start, end); err != nil {
		return nil, err
	}

	sessions, err := r.Study.ListFinishedBetween(ctx, userID, start, end)
	if err != nil {
		return nil, err
	}
	minutes := 0
	for _, sess := range sessions {
		if sess.DurationMinutes != nil {
			minutes += *sess.DurationMinutes
		}
	}
	rec.HoursStudied = math.Round(float64(minutes)/60*10) / 10

	dailies, err := r.Tasks.List(ctx, userID, string(TaskDaily), storage.ListFilter{})
	if err != nil {
		return nil, err
	}
	facts := recapFacts{sessions: sessions}
	for _, d := range dailies {
		if d.Streak > facts.topStreak {
			facts.topStreak = d.Streak
			facts.topStreakTitle = d.Title
		}
		if !d.CreatedAt.Before(end) {
			continue
		}
		facts.dailies++
		// last_completed moves on once the daily is done again after the
		// window, so the completion logs decide.
		inWindow := d.LastCompleted != nil && !d.LastCompleted.Before(start) && d.LastCompleted.Before(end)
		if !inWindow {
			inWindow, err = r.TaskLogs.ExistsBetween(ctx, d.ID, start, end)
			if err != nil {
				return nil, err
			}
		}
		if !inWindow {
			facts.missedDailies++
		}
	}
	facts.levelUps = rec.LevelUps
	rec.MissedDailies = facts.missedDailies

	habits, err := r.Habits.List(ctx, userID, storage.ListFilter{})
	if err != nil {
		return nil, err
	}
	rec.BestHabitTitle = BestHabitTitle(habits)

	items := rankStandouts(facts)
	if len(items) > 0 {
		rec.Text = recapTextHighlights
	} else {
		rec.Text = recapTextEmpty
	}
	if s.recap.Placeholders {
		items = append(items,
			StandoutItem{
				Type:        "hours",
				Title:       "Study",
				Description: fmt.Sprintf("%.1f hours studied last week", rec.HoursStudied),
				Icon:        "clock",
			},
			StandoutItem{
				Type:        "tasks",
				Title:       "Tasks",
				Description: fmt.Sprintf("%d tasks completed", rec.TasksCompleted),
				Icon:        "clipboard",
			},
		)
	}
	if s.recap.MaxItems > 0 && len(items) > s.recap.MaxItems {
		items = items[:s.recap.MaxItems]
	}
	rec.Items = items
	return rec, nil
}
