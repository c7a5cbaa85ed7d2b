package engine

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"tracktivity/internal/storage"
)

// UpdateHabitInput changes only the non-nil fields. A non-nil Tags replaces
// the habit's tags.
type UpdateHabitInput struct {
	Title          *string     `validate:"omitempty,max=100"`
	Details        *string     `validate:"omitempty,max=2000"`
	Difficulty     *Difficulty `validate:"omitempty,oneof=trivial easy medium hard"`
	AllowPositive  *bool
	AllowNegative  *bool
	ResetFrequency *ResetFrequency `validate:"omitempty,oneof=daily weekly monthly never"`
	Tags           []string        `validate:"omitempty,dive,max=50"`
}

// UpdateTaskInput changes only the non-nil fields. Switching a task to daily
// clears its due date.
type UpdateTaskInput struct {
	Title      *string     `validate:"omitempty,max=100"`
	Details    *string     `validate:"omitempty,max=2000"`
	Difficulty *Difficulty `validate:"omitempty,oneof=trivial easy medium hard"`
	Kind       *TaskKind   `validate:"omitempty,oneof=scheduled daily"`
	Due        *time.Time
	Tags       []string `validate:"omitempty,dive,max=50"`
}

func (s *Service) UpdateHabit(ctx context.Context, userID string, id int64, in UpdateHabitInput) error {
	if err := validateInput(in); err != nil {
		return err
	}
	var title string
	if in.Title != nil {
		t, err := normalizeTitle(*in.Title)
		if err != nil {
			return err
		}
		title = t
	}

	err := s.atomic(ctx, func(r *storage.Repos) error {
		h, err := r.Habits.Get(ctx, userID, id)
		if err != nil {
			return err
		}
		if h == nil {
			return notFound("habit", id)
		}

		if in.Title != nil {
			h.Title = title
		}
		if in.Details != nil {
			h.Details = strings.TrimSpace(*in.Details)
		}
		if in.Difficulty != nil {
			h.Difficulty = string(*in.Difficulty)
		}
		if in.AllowPositive != nil {
			h.AllowPositive = *in.AllowPositive
		}
		if in.AllowNegative != nil {
			h.AllowNegative = *in.AllowNegative
		}
		if in.ResetFrequency != nil {
			h.ResetFrequency = string(*in.ResetFrequency)
		}
		if err := r.Habits.Update(ctx, h); err != nil {
			return err
		}
		if in.Tags != nil {
			return r.Tags.SetHabitTags(ctx, id, in.Tags)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.log.Info("habit_updated", zap.String("user", userID), zap.Int64("habit_id", id))
	return nil
}

func (s *Service) UpdateTask(ctx context.Context, userID string, id int64, in UpdateTaskInput) error {
	if err := validateInput(in); err != nil {
		return err
	}
	var title string
	if in.Title != nil {
		t, err := normalizeTitle(*in.Title)
		if err != nil {
			return err
		}
		title = t
	}

	err := s.atomic(ctx, func(r *storage.Repos) error {
		t, err := r.Tasks.Get(ctx, userID, id)
		if err != nil {
			return err
		}
		if t == nil {
			return notFound("task", id)
		}

		if in.Title != nil {
			t.Title = title
		}
		if in.Details != nil {
			t.Details = strings.TrimSpace(*in.Details)
		}
		if in.Difficulty != nil {
			t.Difficulty = string(*in.Difficulty)
		}
		if in.Kind != nil {
			t.Kind = string(*in.Kind)
		}
		if in.Due != nil {
			due := in.Due.UTC()
			t.Due = &due
		}
		if TaskKind(t.Kind) == TaskDaily {
			t.Due = nil
		}
		if err := r.Tasks.Update(ctx, t); err != nil {
			return err
		}
		if in.Tags != nil {
			return r.Tags.SetTaskTags(ctx, id, in.Tags)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.log.Info("task_updated", zap.String("user", userID), zap.Int64("task_id", id))
	return nil
}

func (s *Service) DeleteHabit(ctx context.Context, userID string, id int64) error {
	ok, err := s.Repos().Habits.Delete(ctx, userID, id)
	if err != nil {
		return err
	}
	if !ok {
		return notFound("habit", id)
	}
	s.log.Info("habit_deleted", zap.String("user", userID), zap.Int64("habit_id", id))
	return nil
}

func (s *Service) DeleteTask(ctx context.Context, userID string, id int64) error {
	ok, err := s.Repos().Tasks.Delete(ctx, userID, id)
	if err != nil {
		return err
	}
	if !ok {
		return notFound("task", id)
	}
	s.log.Info("task_deleted", zap.String("user", userID), zap.Int64("task_id", id))
	return nil
}
