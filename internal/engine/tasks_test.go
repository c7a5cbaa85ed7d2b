package engine

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"tracktivity/internal/metrics"
	"tracktivity/internal/storage"
)

func TestCompleteThenUncompleteRestoresProfile(t *testing.T) {
	rec := metrics.New()
	svc, _, cleanup := newTestService(t, WithMetrics(rec))
	defer cleanup()
	ctx := context.Background()

	id := mustCreateTask(t, svc, CreateTaskInput{Title: "Ship release", Difficulty: DifficultyHard})
	// 25 xp + 11 crosses the level 1 threshold.
	updateProfile(t, svc, func(p *storage.Profile) { p.XP = 25 })
	before := getProfile(t, svc)

	done, err := svc.CompleteTask(ctx, testUser, id)
	if err != nil {
		t.Fatalf("CompleteTask: %v", err)
	}
	if !done.Changed || !done.LevelUp || done.XPEarned != 11 || done.CoinsEarned != 3 {
		t.Fatalf("unexpected completion: %+v", done)
	}
	mid := getProfile(t, svc)
	if mid.Level != 2 || mid.XP != 6 || mid.Coins != 3+LevelUpCoins || mid.AllTimeTasksCompleted != 1 {
		t.Fatalf("unexpected profile after completion: %+v", mid)
	}

	undo, err := svc.UncompleteTask(ctx, testUser, id)
	if err != nil {
		t.Fatalf("UncompleteTask: %v", err)
	}
	if !undo.Changed || !undo.LevelDown || undo.XPEarned != -11 || undo.CoinsEarned != -(3+LevelUpCoins) {
		t.Fatalf("unexpected reversal: %+v", undo)
	}

	after := getProfile(t, svc)
	if after.Level != before.Level || after.XP != before.XP || after.MaxXP != before.MaxXP {
		t.Fatalf("level/xp not restored: before %d/%d/%d after %d/%d/%d",
			before.Level, before.XP, before.MaxXP, after.Level, after.XP, after.MaxXP)
	}
	if after.Coins != before.Coins || after.AllTimeCoinsEarned != before.AllTimeCoinsEarned {
		t.Fatalf("coins not restored: before %d/%d after %d/%d",
			before.Coins, before.AllTimeCoinsEarned, after.Coins, after.AllTimeCoinsEarned)
	}
	if after.AllTimeTasksCompleted != before.AllTimeTasksCompleted {
		t.Fatalf("tasks completed=%d, want %d", after.AllTimeTasksCompleted, before.AllTimeTasksCompleted)
	}
	n, err := svc.Repos().TaskLogs.CountForTask(ctx, id)
	if err != nil {
		t.Fatalf("CountForTask: %v", err)
	}
	if n != 0 {
		t.Fatalf("task logs=%d, want 0", n)
	}
	task := getTask(t, svc, id)
	if task.Completed || task.CompletedAt != nil {
		t.Fatalf("task still completed: %+v", task)
	}

	const want = `
# HELP tracktivity_level_ups_total Level-ups
# TYPE tracktivity_level_ups_total counter
tracktivity_level_ups_total 1
# HELP tracktivity_reversals_total Uncompletions, by whether a reward was reversed
# TYPE tracktivity_reversals_total counter
tracktivity_reversals_total{outcome="reversed"} 1
`
	if err := testutil.GatherAndCompare(rec.Registry(), strings.NewReader(want),
		"tracktivity_level_ups_total", "tracktivity_reversals_total"); err != nil {
		t.Fatalf("metrics: %v", err)
	}
}

func TestDailyCompletedTwiceSameDayGrantsOnce(t *testing.T) {
	svc, _, cleanup := newTestService(t)
	defer cleanup()
	ctx := context.Background()

	id := mustCreateTask(t, svc, CreateTaskInput{Title: "Meditate", Difficulty: DifficultyEasy, Kind: TaskDaily})
	first, err := svc.CompleteTask(ctx, testUser, id)
	if err != nil {
		t.Fatalf("CompleteTask: %v", err)
	}
	if !first.Changed || first.Streak != 1 || first.XPEarned != 7 || first.CoinsEarned != 1 {
		t.Fatalf("unexpected first completion: %+v", first)
	}
	p1 := getProfile(t, svc)

	second, err := svc.CompleteTask(ctx, testUser, id)
	if err != nil {
		t.Fatalf("CompleteTask again: %v", err)
	}
	if second.Changed || second.XPEarned != 0 {
		t.Fatalf("second completion should be a no-op: %+v", second)
	}
	p2 := getProfile(t, svc)
	if p2.XP != p1.XP || p2.Coins != p1.Coins || p2.AllTimeTasksCompleted != p1.AllTimeTasksCompleted {
		t.Fatalf("profile changed on repeat completion")
	}
	n, err := svc.Repos().TaskLogs.CountForTask(ctx, id)
	if err != nil {
		t.Fatalf("CountForTask: %v", err)
	}
	if n != 1 {
		t.Fatalf("task logs=%d, want 1", n)
	}
}

// Uncompleting a daily keeps last_completed, so completing it again the same
// day leaves the streak where the uncomplete put it.
func TestDailyRecompleteSameDayKeepsDecrementedStreak(t *testing.T) {
	svc, _, cleanup := newTestService(t)
	defer cleanup()
	ctx := context.Background()

	id := mustCreateTask(t, svc, CreateTaskInput{Title: "Journal", Kind: TaskDaily})
	if _, err := svc.CompleteTask(ctx, testUser, id); err != nil {
		t.Fatalf("CompleteTask: %v", err)
	}
	undo, err := svc.UncompleteTask(ctx, testUser, id)
	if err != nil {
		t.Fatalf("UncompleteTask: %v", err)
	}
	if undo.Streak != 0 {
		t.Fatalf("streak after uncomplete=%d, want 0", undo.Streak)
	}
	task := getTask(t, svc, id)
	if task.LastCompleted == nil || !task.LastCompleted.Equal(startOfDay(testNow)) {
		t.Fatalf("last_completed=%v, want today", task.LastCompleted)
	}

	again, err := svc.CompleteTask(ctx, testUser, id)
	if err != nil {
		t.Fatalf("CompleteTask again: %v", err)
	}
	if !again.Changed || again.Streak != 0 {
		t.Fatalf("unexpected recompletion: %+v", again)
	}
}

func TestDailyStreakProgression(t *testing.T) {
	svc, clock, cleanup := newTestService(t)
	defer cleanup()
	ctx := context.Background()

	id := mustCreateTask(t, svc, CreateTaskInput{Title: "Push-ups", Kind: TaskDaily})
	complete := func(wantStreak int) {
		t.Helper()
		if _, err := svc.CheckDailies(ctx, testUser); err != nil {
			t.Fatalf("CheckDailies: %v", err)
		}
		res, err := svc.CompleteTask(ctx, testUser, id)
		if err != nil {
			t.Fatalf("CompleteTask: %v", err)
		}
		if res.Streak != wantStreak {
			t.Fatalf("streak=%d, want %d", res.Streak, wantStreak)
		}
	}

	complete(1)
	clock.advance(24 * time.Hour)
	complete(2)
	clock.advance(24 * time.Hour)
	complete(3)
	clock.advance(48 * time.Hour)
	complete(1)

	if p := getProfile(t, svc); p.LongestDailyStreak != 3 {
		t.Fatalf("longest streak=%d, want 3", p.LongestDailyStreak)
	}
}

func TestUncompleteOverdueTaskAppliesPenalty(t *testing.T) {
	svc, _, cleanup := newTestService(t)
	defer cleanup()
	ctx := context.Background()

	due := testNow.Add(-48 * time.Hour)
	id := mustCreateTask(t, svc, CreateTaskInput{Title: "File taxes", Difficulty: DifficultyMedium, Due: &due})
	if _, err := svc.CompleteTask(ctx, testUser, id); err != nil {
		t.Fatalf("CompleteTask: %v", err)
	}
	res, err := svc.UncompleteTask(ctx, testUser, id)
	if err != nil {
		t.Fatalf("UncompleteTask: %v", err)
	}
	// base 2 + medium 2, two days late is under a week
	if res.HPLost != 4 {
		t.Fatalf("hp lost=%d, want 4", res.HPLost)
	}
	p := getProfile(t, svc)
	if p.HP != 46 || p.XP != 0 || p.AvatarState != string(AvatarHurt) {
		t.Fatalf("unexpected profile: hp=%d xp=%d avatar=%q", p.HP, p.XP, p.AvatarState)
	}
}

func TestUncompleteWithoutLogStillReopens(t *testing.T) {
	rec := metrics.New()
	svc, _, cleanup := newTestService(t, WithMetrics(rec))
	defer cleanup()
	ctx := context.Background()

	id := mustCreateTask(t, svc, CreateTaskInput{Title: "Call mom", Difficulty: DifficultyHard})
	if _, err := svc.CompleteTask(ctx, testUser, id); err != nil {
		t.Fatalf("CompleteTask: %v", err)
	}
	log, err := svc.Repos().TaskLogs.Latest(ctx, id)
	if err != nil || log == nil {
		t.Fatalf("Latest: %v", err)
	}
	if err := svc.Repos().TaskLogs.Delete(ctx, log.ID); err != nil {
		t.Fatalf("Delete log: %v", err)
	}
	before := getProfile(t, svc)

	res, err := svc.UncompleteTask(ctx, testUser, id)
	if err != nil {
		t.Fatalf("UncompleteTask: %v", err)
	}
	if !res.Changed || res.XPEarned != 0 || res.CoinsEarned != 0 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if task := getTask(t, svc, id); task.Completed {
		t.Fatalf("task still completed")
	}
	after := getProfile(t, svc)
	if after.XP != before.XP || after.Coins != before.Coins || after.AllTimeTasksCompleted != before.AllTimeTasksCompleted {
		t.Fatalf("profile changed without a log")
	}

	const want = `
# HELP tracktivity_reversals_total Uncompletions, by whether a reward was reversed
# TYPE tracktivity_reversals_total counter
tracktivity_reversals_total{outcome="no_log"} 1
`
	if err := testutil.GatherAndCompare(rec.Registry(), strings.NewReader(want), "tracktivity_reversals_total"); err != nil {
		t.Fatalf("metrics: %v", err)
	}
}

func TestTaskOperationsNotFound(t *testing.T) {
	svc, _, cleanup := newTestService(t)
	defer cleanup()
	ctx := context.Background()

	if _, err := svc.CompleteTask(ctx, testUser, 99); !IsNotFound(err) {
		t.Fatalf("CompleteTask: expected not found, got %v", err)
	}
	if _, err := svc.UncompleteTask(ctx, testUser, 99); !IsNotFound(err) {
		t.Fatalf("UncompleteTask: expected not found, got %v", err)
	}
	id := mustCreateTask(t, svc, CreateTaskInput{Title: "Private"})
	if _, err := svc.CompleteTask(ctx, "intruder", id); !IsNotFound(err) {
		t.Fatalf("expected not found for another user, got %v", err)
	}
	if err := svc.DeleteTask(ctx, "intruder", id); !IsNotFound(err) {
		t.Fatalf("DeleteTask: expected not found, got %v", err)
	}
}

func TestUpdateTaskToDailyClearsDue(t *testing.T) {
	svc, _, cleanup := newTestService(t)
	defer cleanup()
	ctx := context.Background()

	due := testNow.Add(72 * time.Hour)
	id := mustCreateTask(t, svc, CreateTaskInput{Title: "Floss", Due: &due})
	daily := TaskDaily
	if err := svc.UpdateTask(ctx, testUser, id, UpdateTaskInput{Kind: &daily}); err != nil {
		t.Fatalf("UpdateTask: %v", err)
	}
	task := getTask(t, svc, id)
	if task.Kind != "daily" || task.Due != nil {
		t.Fatalf("unexpected task: %+v", task)
	}
}

func TestListTasksFlagsOverdue(t *testing.T) {
	svc, _, cleanup := newTestService(t)
	defer cleanup()
	ctx := context.Background()

	past := testNow.Add(-time.Hour)
	overdue := mustCreateTask(t, svc, CreateTaskInput{Title: "Late", Due: &past, Tags: []string{"Work"}})
	mustCreateTask(t, svc, CreateTaskInput{Title: "Habitual", Kind: TaskDaily})

	views, err := svc.ListTasks(ctx, testUser, TaskFilterScheduled, storage.ListFilter{})
	if err != nil {
		t.Fatalf("ListTasks: %v", err)
	}
	if len(views) != 1 || views[0].ID != overdue || !views[0].Overdue || views[0].Color != ColorRed {
		t.Fatalf("unexpected views: %+v", views)
	}
	dailies, err := svc.ListTasks(ctx, testUser, TaskFilterDailies, storage.ListFilter{})
	if err != nil {
		t.Fatalf("ListTasks: %v", err)
	}
	if len(dailies) != 1 || dailies[0].Overdue {
		t.Fatalf("unexpected dailies: %+v", dailies)
	}

	tags, err := svc.ListTags(ctx, testUser)
	if err != nil {
		t.Fatalf("ListTags: %v", err)
	}
	if len(tags) != len(DefaultTags) || tags[0] != "Chores" {
		t.Fatalf("tags=%v", tags)
	}
}

func TestTaskColor(t *testing.T) {
	day := 24 * time.Hour
	cases := []struct {
		name   string
		kind   TaskKind
		due    *time.Time
		streak int
		want   string
	}{
		{"daily none", TaskDaily, nil, 0, ColorOrange},
		{"daily 3", TaskDaily, nil, 3, ColorOrange},
		{"daily 4", TaskDaily, nil, 4, ColorAmber},
		{"daily 8", TaskDaily, nil, 8, ColorCyan},
		{"daily 12", TaskDaily, nil, 12, ColorBlue},
		{"daily 30", TaskDaily, nil, 30, ColorBlue},
		{"no due", TaskScheduled, nil, 0, ColorOrange},
		{"overdue", TaskScheduled, ptrTime(testNow.Add(-day)), 0, ColorRed},
		{"today", TaskScheduled, ptrTime(testNow.Add(12 * time.Hour)), 0, ColorRed},
		{"soon", TaskScheduled, ptrTime(testNow.Add(2 * day)), 0, ColorDueSoon},
		{"later", TaskScheduled, ptrTime(testNow.Add(5 * day)), 0, ColorOrange},
	}
	for _, c := range cases {
		if got := TaskColor(c.kind, c.due, c.streak, testNow); got != c.want {
			t.Fatalf("%s: TaskColor=%s, want %s", c.name, got, c.want)
		}
	}
}

func ptrTime(t time.Time) *time.Time { return &t }

func TestRewardFormulas(t *testing.T) {
	if r := DailyTaskReward(minRandom{}, DifficultyEasy, 7); r.XP != 12 || r.Coins != 6 {
		t.Fatalf("easy daily at 7 days=%+v, want 12/6", r)
	}
	if r := DailyTaskReward(maxRandom{}, DifficultyTrivial, 14); r.XP != 17 || r.Coins != 10 {
		t.Fatalf("trivial daily at 14 days=%+v, want 17/10", r)
	}
	if r := ScheduledTaskReward(maxRandom{}, DifficultyMedium); r.XP != 14 || r.Coins != 3 {
		t.Fatalf("medium scheduled=%+v, want 14/3", r)
	}

	penalties := []struct {
		d    Difficulty
		days int
		want int
	}{
		{DifficultyHard, 3, 5},
		{DifficultyHard, 7, 10},
		{DifficultyHard, 14, 20},
		{DifficultyTrivial, 21, 12},
	}
	for _, p := range penalties {
		if got := OverduePenalty(p.d, p.days); got != p.want {
			t.Fatalf("OverduePenalty(%s,%d)=%d, want %d", p.d, p.days, got, p.want)
		}
	}
	if got := MissedPenalty(DifficultyMedium); got != 4 {
		t.Fatalf("MissedPenalty(medium)=%d, want 4", got)
	}

	if r := StudyReward(1.5, 1.5); r.XP != 7 || r.Coins != 1 {
		t.Fatalf("study 1.5h=%+v, want 7/1", r)
	}
	if r := StudyReward(0.5, 5.5); r.XP != 5 || r.Coins != 0 {
		t.Fatalf("study boost=%+v, want 5/0", r)
	}
	if r := StudyReward(1, 6); r.XP != 10 || r.Coins != 1 {
		t.Fatalf("study crossing=%+v, want 10/1", r)
	}
}
