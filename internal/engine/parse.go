package engine

import "strings"

// ParseDifficulty parses user input. Empty input means trivial.
func ParseDifficulty(input string) (Difficulty, error) {
	s := strings.TrimSpace(strings.ToLower(input))
	if s == "" {
		return DifficultyTrivial, nil
	}
	d := Difficulty(s)
	if !d.IsValid() {
		return "", ValidationError{Field: "difficulty", Reason: "must be trivial, easy, medium or hard"}
	}
	return d, nil
}

// ParseResetFrequency parses user input. Empty input means never.
func ParseResetFrequency(input string) (ResetFrequency, error) {
	s := strings.TrimSpace(strings.ToLower(input))
	if s == "" {
		return ResetNever, nil
	}
	f := ResetFrequency(s)
	if !f.IsValid() {
		return "", ValidationError{Field: "reset_frequency", Reason: "must be daily, weekly, monthly or never"}
	}
	return f, nil
}

// ParseTaskKind parses user input. Empty input means scheduled.
func ParseTaskKind(input string) (TaskKind, error) {
	switch strings.TrimSpace(strings.ToLower(input)) {
	case "", "scheduled", "todo":
		return TaskScheduled, nil
	case "daily", "dailies":
		return TaskDaily, nil
	default:
		return "", ValidationError{Field: "kind", Reason: "must be scheduled or daily"}
	}
}
