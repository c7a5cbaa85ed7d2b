package engine

import "time"

type Difficulty string

const (
	DifficultyTrivial Difficulty = "trivial"
	DifficultyEasy    Difficulty = "easy"
	DifficultyMedium  Difficulty = "medium"
	DifficultyHard    Difficulty = "hard"
)

func (d Difficulty) IsValid() bool {
	switch d {
	case DifficultyTrivial, DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	default:
		return false
	}
}

type ResetFrequency string

const (
	ResetDaily   ResetFrequency = "daily"
	ResetWeekly  ResetFrequency = "weekly"
	ResetMonthly ResetFrequency = "monthly"
	ResetNever   ResetFrequency = "never"
)

func (f ResetFrequency) IsValid() bool {
	switch f {
	case ResetDaily, ResetWeekly, ResetMonthly, ResetNever:
		return true
	default:
		return false
	}
}

// Period returns the reset period. ok is false for never.
func (f ResetFrequency) Period() (d time.Duration, ok bool) {
	switch f {
	case ResetDaily:
		return 24 * time.Hour, true
	case ResetWeekly:
		return 7 * 24 * time.Hour, true
	case ResetMonthly:
		return 30 * 24 * time.Hour, true
	default:
		return 0, false
	}
}

type TaskKind string

const (
	TaskScheduled TaskKind = "scheduled"
	TaskDaily     TaskKind = "daily"
)

func (k TaskKind) IsValid() bool {
	return k == TaskScheduled || k == TaskDaily
}

type AvatarState string

const (
	AvatarIdle        AvatarState = "idle"
	AvatarStudying    AvatarState = "studying"
	AvatarCelebrating AvatarState = "celebrating"
	AvatarHurt        AvatarState = "hurt"
)
