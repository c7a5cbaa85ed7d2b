package engine

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"tracktivity/internal/storage"
)

type CreateHabitInput struct {
	Title          string     `validate:"required,max=100"`
	Details        string     `validate:"max=2000"`
	Difficulty     Difficulty `validate:"omitempty,oneof=trivial easy medium hard"`
	AllowPositive  bool
	AllowNegative  bool
	ResetFrequency ResetFrequency `validate:"omitempty,oneof=daily weekly monthly never"`
	Tags           []string       `validate:"dive,max=50"`
}

type CreateTaskInput struct {
	Title      string     `validate:"required,max=100"`
	Details    string     `validate:"max=2000"`
	Difficulty Difficulty `validate:"omitempty,oneof=trivial easy medium hard"`
	Kind       TaskKind   `validate:"omitempty,oneof=scheduled daily"`
	Due        *time.Time
	Tags       []string `validate:"dive,max=50"`
}

type CreateResult struct {
	ID int64
}

// CreateUserResult lists the starter entities seeded for a new user.
type CreateUserResult struct {
	Created bool
	HabitID int64
	TaskID  int64
}

const (
	starterHabitTitle   = "Study/Procrastinate"
	starterHabitDetails = "Track whether you studied or procrastinated today"
	starterTaskTitle    = "Add a task"
)

// CreateUser creates the profile and seeds a starter habit and task. It is a
// no-op for an existing user.
func (s *Service) CreateUser(ctx context.Context, userID string) (*CreateUserResult, error) {
	userID, err := normalizeUser(userID)
	if err != nil {
		return nil, err
	}

	res := &CreateUserResult{}
	err = s.atomic(ctx, func(r *storage.Repos) error {
		_, created, err := r.Profiles.GetOrCreate(ctx, userID, s.now())
		if err != nil {
			return err
		}
		if !created {
			return nil
		}
		res.Created = true

		now := s.now()
		res.HabitID, err = r.Habits.Insert(ctx, storage.HabitInsert{
			UserID:         userID,
			Title:          starterHabitTitle,
			Details:        starterHabitDetails,
			Difficulty:     string(DifficultyMedium),
			AllowPositive:  true,
			AllowNegative:  true,
			ResetFrequency: string(ResetMonthly),
			CreatedAt:      now,
		})
		if err != nil {
			return err
		}
		res.TaskID, err = r.Tasks.Insert(ctx, storage.TaskInsert{
			UserID:     userID,
			Title:      starterTaskTitle,
			Difficulty: string(DifficultyEasy),
			Kind:       string(TaskScheduled),
			CreatedAt:  now,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	if res.Created {
		s.log.Info("user_created", zap.String("user", userID), zap.Int64("habit_id", res.HabitID), zap.Int64("task_id", res.TaskID))
	}
	return res, nil
}

func (s *Service) CreateHabit(ctx context.Context, userID string, in CreateHabitInput) (*CreateResult, error) {
	userID, err := normalizeUser(userID)
	if err != nil {
		return nil, err
	}
	if err := validateInput(in); err != nil {
		return nil, err
	}
	title, err := normalizeTitle(in.Title)
	if err != nil {
		return nil, err
	}
	diff := in.Difficulty
	if diff == "" {
		diff = DifficultyTrivial
	}
	freq := in.ResetFrequency
	if freq == "" {
		freq = ResetNever
	}

	var id int64
	err = s.atomic(ctx, func(r *storage.Repos) error {
		if _, err := s.getProfile(ctx, r, userID); err != nil {
			return err
		}
		id, err = r.Habits.Insert(ctx, storage.HabitInsert{
			UserID:         userID,
			Title:          title,
			Details:        strings.TrimSpace(in.Details),
			Difficulty:     string(diff),
			AllowPositive:  in.AllowPositive,
			AllowNegative:  in.AllowNegative,
			ResetFrequency: string(freq),
			CreatedAt:      s.now(),
		})
		if err != nil {
			return err
		}
		return r.Tags.SetHabitTags(ctx, id, in.Tags)
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("habit_created", zap.String("user", userID), zap.Int64("habit_id", id))
	return &CreateResult{ID: id}, nil
}

func (s *Service) CreateTask(ctx context.Context, userID string, in CreateTaskInput) (*CreateResult, error) {
	userID, err := normalizeUser(userID)
	if err != nil {
		return nil, err
	}
	if err := validateInput(in); err != nil {
		return nil, err
	}
	title, err := normalizeTitle(in.Title)
	if err != nil {
		return nil, err
	}
	diff := in.Difficulty
	if diff == "" {
		diff = DifficultyTrivial
	}
	kind := in.Kind
	if kind == "" {
		kind = TaskScheduled
	}
	due := in.Due
	if kind == TaskDaily {
		due = nil
	}

	var id int64
	err = s.atomic(ctx, func(r *storage.Repos) error {
		if _, err := s.getProfile(ctx, r, userID); err != nil {
			return err
		}
		id, err = r.Tasks.Insert(ctx, storage.TaskInsert{
			UserID:     userID,
			Title:      title,
			Details:    strings.TrimSpace(in.Details),
			Difficulty: string(diff),
			Kind:       string(kind),
			Due:        due,
			CreatedAt:  s.now(),
		})
		if err != nil {
			return err
		}
		return r.Tags.SetTaskTags(ctx, id, in.Tags)
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("task_created", zap.String("user", userID), zap.Int64("task_id", id), zap.String("kind", string(kind)))
	return &CreateResult{ID: id}, nil
}
