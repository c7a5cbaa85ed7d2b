package engine

import (
	"context"
	"sort"
	"time"

	"tracktivity/internal/storage"
)

// TaskView is a task with its derived display state.
type TaskView struct {
	storage.Task
	Color   string
	Overdue bool
}

type TaskFilter string

const (
	TaskFilterAll       TaskFilter = "all"
	TaskFilterScheduled TaskFilter = "scheduled"
	TaskFilterDailies   TaskFilter = "dailies"
)

// DefaultTags are always offered alongside the user's own tags.
var DefaultTags = []string{"Work", "Health", "Creativity", "Study", "Exercise", "Hobby", "Chores"}

func (s *Service) ListTasks(ctx context.Context, userID string, filter TaskFilter, lf storage.ListFilter) ([]TaskView, error) {
	var kind string
	switch filter {
	case TaskFilterScheduled:
		kind = string(TaskScheduled)
	case TaskFilterDailies:
		kind = string(TaskDaily)
	}

	tasks, err := s.Repos().Tasks.List(ctx, userID, kind, lf)
	if err != nil {
		return nil, err
	}
	now := s.now()
	out := make([]TaskView, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, TaskView{
			Task:    t,
			Color:   TaskColor(TaskKind(t.Kind), t.Due, t.Streak, now),
			Overdue: isOverdue(t, now),
		})
	}
	return out, nil
}

// isOverdue holds for an open scheduled task past its due time.
func isOverdue(t storage.Task, now time.Time) bool {
	return TaskKind(t.Kind) == TaskScheduled && t.Due != nil && now.After(*t.Due) && !t.Completed
}

// ListTags returns DefaultTags merged with the user's tags, sorted.
func (s *Service) ListTags(ctx context.Context, userID string) ([]string, error) {
	userTags, err := s.Repos().Tags.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(DefaultTags)+len(userTags))
	var out []string
	for _, name := range append(append([]string{}, DefaultTags...), userTags...) {
		if seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}
