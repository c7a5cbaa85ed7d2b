package engine

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"tracktivity/internal/storage"
)

const testUser = "main_user"

// testNow is a Wednesday.
var testNow = time.Date(2026, 3, 11, 10, 0, 0, 0, time.UTC)

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time { return c.now }

func (c *testClock) advance(d time.Duration) { c.now = c.now.Add(d) }

type minRandom struct{}

func (minRandom) IntRange(min, max int) int { return min }

type maxRandom struct{}

func (maxRandom) IntRange(min, max int) int { return max }

func newTestService(t *testing.T, opts ...Option) (*Service, *testClock, func()) {
	t.Helper()
	ctx := context.Background()

	dir := t.TempDir()
	path := filepath.Join(dir, "test.db")
	db, err := storage.Open(ctx, path)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}

	clock := &testClock{now: testNow}
	opts = append([]Option{WithClock(clock), WithRandom(minRandom{})}, opts...)
	svc := NewService(db, opts...)
	cleanup := func() {
		_ = db.Close()
	}
	return svc, clock, cleanup
}

func getProfile(t *testing.T, svc *Service) *storage.Profile {
	t.Helper()
	p, err := svc.Profile(context.Background(), testUser)
	if err != nil {
		t.Fatalf("Profile: %v", err)
	}
	return p
}

func updateProfile(t *testing.T, svc *Service, fn func(p *storage.Profile)) {
	t.Helper()
	p := getProfile(t, svc)
	fn(p)
	if err := svc.Repos().Profiles.Update(context.Background(), p); err != nil {
		t.Fatalf("update profile: %v", err)
	}
}

func getTask(t *testing.T, svc *Service, id int64) *storage.Task {
	t.Helper()
	task, err := svc.Repos().Tasks.Get(context.Background(), testUser, id)
	if err != nil {
		t.Fatalf("get task: %v", err)
	}
	if task == nil {
		t.Fatalf("task %d missing", id)
	}
	return task
}

func mustCreateTask(t *testing.T, svc *Service, in CreateTaskInput) int64 {
	t.Helper()
	res, err := svc.CreateTask(context.Background(), testUser, in)
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	return res.ID
}

func mustCreateHabit(t *testing.T, svc *Service, in CreateHabitInput) int64 {
	t.Helper()
	res, err := svc.CreateHabit(context.Background(), testUser, in)
	if err != nil {
		t.Fatalf("CreateHabit: %v", err)
	}
	return res.ID
}

func TestXPRequiredForLevel(t *testing.T) {
	if got := XPRequiredForLevel(1); got != 30 {
		t.Fatalf("XPRequiredForLevel(1)=%d, want 30", got)
	}
	if got := XPRequiredForLevel(2); got != 90 {
		t.Fatalf("XPRequiredForLevel(2)=%d, want 90", got)
	}
	prev := 0
	for l := 1; l <= 100; l++ {
		got := XPRequiredForLevel(l)
		if want := (2*l - 1) * 30; got != want {
			t.Fatalf("XPRequiredForLevel(%d)=%d, want %d", l, got, want)
		}
		if got <= prev {
			t.Fatalf("XPRequiredForLevel(%d)=%d not above %d", l, got, prev)
		}
		prev = got
	}
}

func TestAddXPThenRemoveXPRestoresState(t *testing.T) {
	deltas := []int{1, 29, 30, 89, 90, 500, 2000}
	for level := 1; level <= 6; level++ {
		req := XPRequiredForLevel(level)
		for _, xp := range []int{0, req / 2, req - 1} {
			for _, d := range deltas {
				p := &storage.Profile{Level: level, XP: xp, MaxXP: req, HP: 20, MaxHP: 50}
				AddXP(p, d)
				RemoveXP(p, d)
				if p.Level != level || p.XP != xp || p.MaxXP != req {
					t.Fatalf("level=%d xp=%d delta=%d: got (%d,%d,%d)", level, xp, d, p.Level, p.XP, p.MaxXP)
				}
			}
		}
	}
}

func TestAddXPLevelUpGrantsCoinsAndRefillsHP(t *testing.T) {
	p := &storage.Profile{Level: 1, XP: 25, MaxXP: 30, HP: 10, MaxHP: 50, HighestLevelEver: 1}
	levels := AddXP(p, 100)
	// 125 -> level 2 with 95 -> level 3 with 5
	if len(levels) != 2 || levels[0] != 2 || levels[1] != 3 {
		t.Fatalf("levels=%v, want [2 3]", levels)
	}
	if p.Level != 3 || p.XP != 5 || p.MaxXP != 150 {
		t.Fatalf("got level=%d xp=%d max=%d", p.Level, p.XP, p.MaxXP)
	}
	if p.HP != 50 || p.Coins != 2*LevelUpCoins || p.HighestLevelEver != 3 {
		t.Fatalf("hp=%d coins=%d highest=%d", p.HP, p.Coins, p.HighestLevelEver)
	}
}

func TestRemoveXPClampsAtLevelOne(t *testing.T) {
	p := &storage.Profile{Level: 2, XP: 10, MaxXP: 90}
	if lost := RemoveXP(p, 1000); lost != 1 {
		t.Fatalf("lost=%d, want 1", lost)
	}
	if p.Level != 1 || p.XP != 0 || p.MaxXP != 30 {
		t.Fatalf("got level=%d xp=%d max=%d", p.Level, p.XP, p.MaxXP)
	}
}

func TestLoseHealthAtLevelOne(t *testing.T) {
	p := &storage.Profile{Level: 1, XP: 10, MaxXP: 30, HP: 0, MaxHP: 50, Coins: 7}
	if !LoseHealth(p, 5) {
		t.Fatalf("expected knock-out")
	}
	if p.Level != 1 || p.HP != 50 || p.XP != 0 || p.Coins != 0 {
		t.Fatalf("got level=%d hp=%d xp=%d coins=%d", p.Level, p.HP, p.XP, p.Coins)
	}

	p.HP = 3
	if LoseHealth(p, 0) || p.HP != 3 {
		t.Fatalf("zero damage changed hp to %d", p.HP)
	}
}

func TestLoseHealthKnockoutDropsOneLevel(t *testing.T) {
	p := &storage.Profile{Level: 4, XP: 100, MaxXP: 210, HP: 4, MaxHP: 50, Coins: 30, AllTimeCoinsEarned: 80}
	if !LoseHealth(p, 4) {
		t.Fatalf("expected knock-out")
	}
	if p.Level != 3 || p.MaxXP != XPRequiredForLevel(3) || p.XP != 0 || p.HP != 50 || p.Coins != 0 {
		t.Fatalf("got level=%d max=%d xp=%d hp=%d coins=%d", p.Level, p.MaxXP, p.XP, p.HP, p.Coins)
	}
	if p.AllTimeCoinsEarned != 80 {
		t.Fatalf("lifetime coins changed: %d", p.AllTimeCoinsEarned)
	}
}

func TestCreateUserSeedsStarterEntities(t *testing.T) {
	svc, _, cleanup := newTestService(t)
	defer cleanup()
	ctx := context.Background()

	res, err := svc.CreateUser(ctx, testUser)
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if !res.Created || res.HabitID == 0 || res.TaskID == 0 {
		t.Fatalf("unexpected result: %+v", res)
	}
	h, err := svc.Repos().Habits.Get(ctx, testUser, res.HabitID)
	if err != nil || h == nil {
		t.Fatalf("starter habit: %v", err)
	}
	if h.Title != "Study/Procrastinate" || !h.AllowPositive || !h.AllowNegative || h.ResetFrequency != "monthly" {
		t.Fatalf("starter habit: %+v", h)
	}
	task := getTask(t, svc, res.TaskID)
	if task.Kind != "scheduled" || task.Difficulty != "easy" {
		t.Fatalf("starter task: %+v", task)
	}

	again, err := svc.CreateUser(ctx, testUser)
	if err != nil {
		t.Fatalf("CreateUser again: %v", err)
	}
	if again.Created {
		t.Fatalf("second CreateUser should be a no-op")
	}
}

func TestParseHelpers(t *testing.T) {
	if d, err := ParseDifficulty(""); err != nil || d != DifficultyTrivial {
		t.Fatalf("ParseDifficulty(\"\")=%q,%v", d, err)
	}
	if d, err := ParseDifficulty("HARD"); err != nil || d != DifficultyHard {
		t.Fatalf("ParseDifficulty(HARD)=%q,%v", d, err)
	}
	if _, err := ParseDifficulty("epic"); !IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := ParseTaskKind("weekly"); !IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestValidationErrors(t *testing.T) {
	svc, _, cleanup := newTestService(t)
	defer cleanup()
	ctx := context.Background()

	_, err := svc.CreateTask(ctx, testUser, CreateTaskInput{Title: "   "})
	if !IsValidation(err) {
		t.Fatalf("expected validation error for blank title, got %v", err)
	}
	_, err = svc.CreateHabit(ctx, testUser, CreateHabitInput{Title: "x", Difficulty: "epic"})
	var ve ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if ve.Field != "difficulty" {
		t.Fatalf("field=%q, want difficulty", ve.Field)
	}
	if _, err := svc.CreateTask(ctx, "", CreateTaskInput{Title: "x"}); !IsValidation(err) {
		t.Fatalf("expected validation error for empty user, got %v", err)
	}
}

