package engine

import "math"

// difficultyBonus is added to both ends of every XP range (and habit damage).
var difficultyBonus = map[Difficulty]int{
	DifficultyTrivial: 0,
	DifficultyEasy:    2,
	DifficultyMedium:  4,
	DifficultyHard:    6,
}

// difficultyPenalty is added to the base penalty for missed dailies and
// overdue tasks.
var difficultyPenalty = map[Difficulty]int{
	DifficultyTrivial: 0,
	DifficultyEasy:    1,
	DifficultyMedium:  2,
	DifficultyHard:    3,
}

const (
	basePenalty          = 2
	streakWeekBonus      = 5
	studyXPPerHour       = 5
	studyXPPerHourBoost  = 10
	studyBoostAfterHours = 5.0
)

type coinRange struct{ min, max int }

var (
	habitCoins = map[Difficulty]coinRange{
		DifficultyEasy:   {1, 2},
		DifficultyMedium: {2, 4},
		DifficultyHard:   {4, 6},
	}
	scheduledCoins = map[Difficulty]coinRange{
		DifficultyMedium: {1, 3},
		DifficultyHard:   {3, 5},
	}
	dailyCoins = map[Difficulty]coinRange{
		DifficultyEasy:   {1, 3},
		DifficultyMedium: {3, 5},
		DifficultyHard:   {5, 7},
	}
)

// Reward is an XP and coin grant.
type Reward struct {
	XP    int
	Coins int
}

func drawCoins(rng Random, table map[Difficulty]coinRange, d Difficulty) int {
	r, ok := table[d]
	if !ok {
		return 0
	}
	return rng.IntRange(r.min, r.max)
}

// HabitReward is the grant for a positive habit event.
func HabitReward(rng Random, d Difficulty) Reward {
	b := difficultyBonus[d]
	xp := rng.IntRange(3+b, 5+b)
	return Reward{XP: xp, Coins: drawCoins(rng, habitCoins, d)}
}

// HabitDamage is the hp lost on a negative habit event.
func HabitDamage(rng Random, d Difficulty) int {
	b := difficultyBonus[d]
	return rng.IntRange(3+b, 5+b)
}

// ScheduledTaskReward is the grant for completing a scheduled task.
func ScheduledTaskReward(rng Random, d Difficulty) Reward {
	b := difficultyBonus[d]
	xp := rng.IntRange(5+b, 10+b)
	return Reward{XP: xp, Coins: drawCoins(rng, scheduledCoins, d)}
}

// DailyTaskReward is the grant for completing a daily whose streak already
// includes this completion. Every full week of streak adds 5 XP and 5 coins.
func DailyTaskReward(rng Random, d Difficulty, streak int) Reward {
	b := difficultyBonus[d]
	weeks := max(0, streak) / 7
	xp := rng.IntRange(5+b, 7+b) + weeks*streakWeekBonus
	coins := drawCoins(rng, dailyCoins, d) + weeks*streakWeekBonus
	return Reward{XP: xp, Coins: coins}
}

// StudyReward is the grant for a finished session of hours, where totalToday
// already includes it. Coins are one per whole hour boundary crossed today.
func StudyReward(hours, totalToday float64) Reward {
	if hours <= 0 {
		return Reward{}
	}
	rate := studyXPPerHour
	if totalToday >= studyBoostAfterHours {
		rate = studyXPPerHourBoost
	}
	xp := int(math.Floor(hours * float64(rate)))

	before := math.Max(0, totalToday-hours)
	coins := int(math.Floor(totalToday)) - int(math.Floor(before))
	return Reward{XP: xp, Coins: max(0, coins)}
}

// MissedPenalty is the hp lost for a missed daily.
func MissedPenalty(d Difficulty) int {
	return basePenalty + difficultyPenalty[d]
}

// OverduePenalty is the hp lost for a task that is daysOverdue days late.
// Each full week multiplies the base by two times the week count.
func OverduePenalty(d Difficulty, daysOverdue int) int {
	p := basePenalty + difficultyPenalty[d]
	if weeks := daysOverdue / 7; weeks > 0 {
		p *= 2 * weeks
	}
	return p
}
