package engine

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"tracktivity/internal/storage"
)

func intPtr(v int) *int { return &v }

func TestRecapWindow(t *testing.T) {
	start, end := RecapWindow(testNow)
	wantStart := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	wantEnd := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
	if !start.Equal(wantStart) || !end.Equal(wantEnd) {
		t.Fatalf("window=[%v,%v), want [%v,%v)", start, end, wantStart, wantEnd)
	}

	// On a Monday the window is the week that just ended.
	monday := time.Date(2026, 3, 9, 8, 0, 0, 0, time.UTC)
	start, end = RecapWindow(monday)
	if !start.Equal(wantStart) || !end.Equal(wantEnd) {
		t.Fatalf("monday window=[%v,%v)", start, end)
	}
}

func TestStreakStandoutThreshold(t *testing.T) {
	items := rankStandouts(recapFacts{topStreakTitle: "Meditate", topStreak: 5})
	if len(items) != 1 || items[0].Type != "streak" || items[0].Score != 50 {
		t.Fatalf("streak of 5: %+v", items)
	}
	if items[0].Description != "5 day streak!" || items[0].Icon != "flame" {
		t.Fatalf("unexpected item: %+v", items[0])
	}

	if items := rankStandouts(recapFacts{topStreakTitle: "Meditate", topStreak: 4}); len(items) != 0 {
		t.Fatalf("streak of 4 should not stand out: %+v", items)
	}
}

func TestStandoutsSortedByScore(t *testing.T) {
	items := rankStandouts(recapFacts{
		topStreakTitle: "Run",
		topStreak:      12,
		dailies:        2,
		levelUps:       7,
	})
	want := []struct {
		typ   string
		score int
	}{
		{"streak", 120},
		{"level_up", 105},
		{"perfect_week", 100},
	}
	if len(items) != len(want) {
		t.Fatalf("items=%+v", items)
	}
	for i, w := range want {
		if items[i].Type != w.typ || items[i].Score != w.score {
			t.Fatalf("item %d = %s/%d, want %s/%d", i, items[i].Type, items[i].Score, w.typ, w.score)
		}
	}

	if items := rankStandouts(recapFacts{levelUps: 5, dailies: 1, missedDailies: 1}); len(items) != 0 {
		t.Fatalf("five level-ups and a missed daily should not stand out: %+v", items)
	}
}

func TestStudyStandout(t *testing.T) {
	day1 := time.Date(2026, 3, 3, 9, 0, 0, 0, time.UTC)
	day2 := day1.AddDate(0, 0, 1)
	weekly := []storage.StudySession{
		{Subject: "Math", StartTime: day1, DurationMinutes: intPtr(300)},
		{Subject: "Math", StartTime: day2, DurationMinutes: intPtr(320)},
		{Subject: "Art", StartTime: day1, DurationMinutes: intPtr(200)},
	}
	item, ok := studyStandout(weekly)
	if !ok || item.Title != "Math" || item.Score != 620 || item.Description != "10.3 hours total" {
		t.Fatalf("weekly standout: %+v %v", item, ok)
	}

	daily := []storage.StudySession{
		{Subject: "Math", StartTime: day1, DurationMinutes: intPtr(100)},
		{Subject: "Math", StartTime: day1.Add(3 * time.Hour), DurationMinutes: intPtr(60)},
		{Subject: "Art", StartTime: day2, DurationMinutes: intPtr(140)},
		{Subject: "Art", StartTime: day2, DurationMinutes: nil},
	}
	item, ok = studyStandout(daily)
	if !ok || item.Title != "Math" || item.Score != 160 || item.Description != "2.7 hours in one day" {
		t.Fatalf("daily standout: %+v %v", item, ok)
	}

	if _, ok := studyStandout(daily[2:]); ok {
		t.Fatalf("140 minutes should not stand out")
	}
}

func TestBestHabitTitle(t *testing.T) {
	if got := BestHabitTitle(nil); got != DefaultBestHabitTitle {
		t.Fatalf("empty=%q", got)
	}
	habits := []storage.Habit{
		{Title: "Gym", AllowPositive: true, PosCount: 4},
		{Title: "Focus", AllowPositive: true, AllowNegative: true, PosCount: 9, NegCount: 1},
		{Title: "Sugar", AllowPositive: true, AllowNegative: true, PosCount: 2, NegCount: 0},
		{Title: "Scroll", AllowNegative: true, NegCount: 50},
	}
	// Focus: 0.9*100 + 10*0.1 = 91 beats Gym's 4.
	if got := BestHabitTitle(habits); got != "Focus" {
		t.Fatalf("best=%q, want Focus", got)
	}
	habits[1].NegCount = 5 // ratio 0.64
	if got := BestHabitTitle(habits); got != "Gym" {
		t.Fatalf("best=%q, want Gym", got)
	}
}

type memoryCache struct {
	data map[string][]byte
	gets int
	hits int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{data: map[string][]byte{}}
}

func (c *memoryCache) Get(_ context.Context, key string, dest any) (bool, error) {
	c.gets++
	b, ok := c.data[key]
	if !ok {
		return false, nil
	}
	c.hits++
	return true, json.Unmarshal(b, dest)
}

func (c *memoryCache) Set(_ context.Context, key string, value any) error {
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.data[key] = b
	return nil
}

func (c *memoryCache) Delete(_ context.Context, key string) error {
	delete(c.data, key)
	return nil
}

// seedRecapWeek fills the week of 2026-03-02 with a five-day daily streak, a
// habit event and a 160 minute study day.
func seedRecapWeek(t *testing.T, svc *Service, clock *testClock) {
	t.Helper()
	ctx := context.Background()

	clock.now = time.Date(2026, 3, 3, 9, 0, 0, 0, time.UTC)
	daily := mustCreateTask(t, svc, CreateTaskInput{Title: "Meditate", Kind: TaskDaily})
	habit := mustCreateHabit(t, svc, CreateHabitInput{Title: "Run", AllowPositive: true})
	if _, err := svc.CompleteHabit(ctx, testUser, habit, true); err != nil {
		t.Fatalf("CompleteHabit: %v", err)
	}

	task := getTask(t, svc, daily)
	task.Streak = 5
	last := time.Date(2026, 3, 6, 0, 0, 0, 0, time.UTC)
	task.LastCompleted = &last
	if err := svc.Repos().Tasks.Update(ctx, task); err != nil {
		t.Fatalf("update task: %v", err)
	}

	start := time.Date(2026, 3, 5, 9, 0, 0, 0, time.UTC)
	id, err := svc.Repos().Study.InsertSession(ctx, storage.StudySession{
		UserID: testUser, Subject: "Math", Color: "#ff0000", StartTime: start,
	})
	if err != nil {
		t.Fatalf("InsertSession: %v", err)
	}
	end := start.Add(160 * time.Minute)
	if err := svc.Repos().Study.Finish(ctx, &storage.StudySession{
		ID: id, UserID: testUser, EndTime: &end, DurationMinutes: intPtr(160),
	}); err != nil {
		t.Fatalf("Finish: %v", err)
	}

	clock.now = testNow
}

func TestWeeklyRecap(t *testing.T) {
	svc, clock, cleanup := newTestService(t)
	defer cleanup()
	ctx := context.Background()
	seedRecapWeek(t, svc, clock)

	rec, err := svc.WeeklyRecap(ctx, testUser)
	if err != nil {
		t.Fatalf("WeeklyRecap: %v", err)
	}
	if rec.HabitsCompleted != 1 || rec.TasksCompleted != 0 || rec.HoursStudied != 2.7 || rec.MissedDailies != 0 {
		t.Fatalf("unexpected counts: %+v", rec)
	}
	if rec.BestHabitTitle != "Run" || rec.MostCompletedHabit != "Run" || rec.MostCompletedCount != 1 {
		t.Fatalf("unexpected habits: best=%q most=%q/%d", rec.BestHabitTitle, rec.MostCompletedHabit, rec.MostCompletedCount)
	}
	if rec.Text != "Last week highlights:" {
		t.Fatalf("text=%q", rec.Text)
	}
	wantTypes := []string{"study", "perfect_week", "streak"}
	if len(rec.Items) != len(wantTypes) {
		t.Fatalf("items=%+v", rec.Items)
	}
	for i, typ := range wantTypes {
		if rec.Items[i].Type != typ {
			t.Fatalf("item %d type=%s, want %s", i, rec.Items[i].Type, typ)
		}
	}
	if rec.Items[2].Score != 50 {
		t.Fatalf("streak score=%d, want 50", rec.Items[2].Score)
	}
}

func TestWeeklyRecapEmptyWeek(t *testing.T) {
	svc, _, cleanup := newTestService(t)
	defer cleanup()

	rec, err := svc.WeeklyRecap(context.Background(), testUser)
	if err != nil {
		t.Fatalf("WeeklyRecap: %v", err)
	}
	if len(rec.Items) != 0 || rec.BestHabitTitle != DefaultBestHabitTitle {
		t.Fatalf("unexpected recap: %+v", rec)
	}
	if rec.Text != "No standout stats last week. Let's aim higher this week!" {
		t.Fatalf("text=%q", rec.Text)
	}
}

func TestWeeklyRecapOptions(t *testing.T) {
	svc, clock, cleanup := newTestService(t, WithRecapOptions(RecapOptions{MaxItems: 3, Placeholders: true}))
	defer cleanup()
	seedRecapWeek(t, svc, clock)

	rec, err := svc.WeeklyRecap(context.Background(), testUser)
	if err != nil {
		t.Fatalf("WeeklyRecap: %v", err)
	}
	if len(rec.Items) != 3 {
		t.Fatalf("items=%d, want 3", len(rec.Items))
	}

	svc.recap = RecapOptions{Placeholders: true}
	rec, err = svc.WeeklyRecap(context.Background(), testUser)
	if err != nil {
		t.Fatalf("WeeklyRecap: %v", err)
	}
	if len(rec.Items) != 5 {
		t.Fatalf("items=%d, want 5", len(rec.Items))
	}
	last := rec.Items[4]
	if last.Icon != "clipboard" || last.Score != 0 || rec.Items[3].Icon != "clock" {
		t.Fatalf("unexpected placeholders: %+v %+v", rec.Items[3], last)
	}
}

func TestWeeklyRecapUsesCache(t *testing.T) {
	cache := newMemoryCache()
	svc, clock, cleanup := newTestService(t, WithRecapCache(cache))
	defer cleanup()
	ctx := context.Background()
	seedRecapWeek(t, svc, clock)

	first, err := svc.WeeklyRecap(ctx, testUser)
	if err != nil {
		t.Fatalf("WeeklyRecap: %v", err)
	}
	if cache.hits != 0 || len(cache.data) != 1 {
		t.Fatalf("expected a miss then a store, hits=%d entries=%d", cache.hits, len(cache.data))
	}

	// A habit event inside last week would change the counts, but the cached
	// recap is served.
	clock.now = time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC)
	h := mustCreateHabit(t, svc, CreateHabitInput{Title: "Swim", AllowPositive: true})
	if _, err := svc.CompleteHabit(ctx, testUser, h, true); err != nil {
		t.Fatalf("CompleteHabit: %v", err)
	}
	clock.now = testNow

	second, err := svc.WeeklyRecap(ctx, testUser)
	if err != nil {
		t.Fatalf("WeeklyRecap: %v", err)
	}
	if cache.hits != 1 {
		t.Fatalf("hits=%d, want 1", cache.hits)
	}
	if second.HabitsCompleted != first.HabitsCompleted || len(second.Items) != len(first.Items) {
		t.Fatalf("cached recap differs: %+v vs %+v", second, first)
	}
	if _, ok := cache.data["recap:main_user:2026-03-02:0:false"]; !ok {
		t.Fatalf("unexpected cache keys: %v", cache.data)
	}
}

func TestInvalidateRecap(t *testing.T) {
	cache := newMemoryCache()
	svc, clock, cleanup := newTestService(t, WithRecapCache(cache))
	defer cleanup()
	ctx := context.Background()
	seedRecapWeek(t, svc, clock)

	first, err := svc.WeeklyRecap(ctx, testUser)
	if err != nil {
		t.Fatalf("WeeklyRecap: %v", err)
	}

	clock.now = time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC)
	h := mustCreateHabit(t, svc, CreateHabitInput{Title: "Swim", AllowPositive: true})
	if _, err := svc.CompleteHabit(ctx, testUser, h, true); err != nil {
		t.Fatalf("CompleteHabit: %v", err)
	}
	clock.now = testNow

	if err := svc.InvalidateRecap(ctx, testUser); err != nil {
		t.Fatalf("InvalidateRecap: %v", err)
	}
	if len(cache.data) != 0 {
		t.Fatalf("entry survived invalidation: %v", cache.data)
	}
	second, err := svc.WeeklyRecap(ctx, testUser)
	if err != nil {
		t.Fatalf("WeeklyRecap: %v", err)
	}
	if second.HabitsCompleted != first.HabitsCompleted+1 {
		t.Fatalf("habits completed=%d, want %d", second.HabitsCompleted, first.HabitsCompleted+1)
	}

	plain, _, done := newTestService(t)
	defer done()
	if err := plain.InvalidateRecap(ctx, testUser); err != nil {
		t.Fatalf("InvalidateRecap without cache: %v", err)
	}
}

func TestWeeklyRecapCountsDailyDoneAgainToday(t *testing.T) {
	svc, clock, cleanup := newTestService(t)
	defer cleanup()
	ctx := context.Background()

	clock.now = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	id := mustCreateTask(t, svc, CreateTaskInput{Title: "Meditate", Kind: TaskDaily})
	clock.now = time.Date(2026, 3, 3, 9, 0, 0, 0, time.UTC)
	if _, err := svc.CompleteTask(ctx, testUser, id); err != nil {
		t.Fatalf("CompleteTask: %v", err)
	}

	// Done again today: last_completed now lies after the recap window.
	clock.now = testNow
	task := getTask(t, svc, id)
	task.Completed = false
	if err := svc.Repos().Tasks.Update(ctx, task); err != nil {
		t.Fatalf("update task: %v", err)
	}
	if _, err := svc.CompleteTask(ctx, testUser, id); err != nil {
		t.Fatalf("CompleteTask today: %v", err)
	}
	if task := getTask(t, svc, id); task.LastCompleted == nil || !task.LastCompleted.Equal(time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("last completed=%v", task.LastCompleted)
	}

	rec, err := svc.WeeklyRecap(ctx, testUser)
	if err != nil {
		t.Fatalf("WeeklyRecap: %v", err)
	}
	if rec.MissedDailies != 0 {
		t.Fatalf("missed dailies=%d, want 0", rec.MissedDailies)
	}
	found := false
	for _, it := range rec.Items {
		found = found || it.Type == "perfect_week"
	}
	if !found {
		t.Fatalf("perfect week missing: %+v", rec.Items)
	}
}
