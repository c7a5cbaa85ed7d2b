package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

const user = "main_user"

var now = time.Date(2026, 3, 11, 10, 0, 0, 0, time.UTC)

func openTestDB(t *testing.T) (*Repos, func(fn func(r *Repos) error) error) {
	t.Helper()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	atomic := func(fn func(r *Repos) error) error { return Atomic(ctx, db, fn) }
	return NewRepos(db), atomic
}

func TestOpenIsIdempotent(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "test.db")
	for i := 0; i < 2; i++ {
		db, err := Open(ctx, path)
		if err != nil {
			t.Fatalf("open %d: %v", i, err)
		}
		_ = db.Close()
	}
}

func TestResolveDBPath(t *testing.T) {
	if got, err := ResolveDBPath(" /tmp/x.db "); err != nil || got != "/tmp/x.db" {
		t.Fatalf("got %q, %v", got, err)
	}
	got, err := ResolveDBPath("")
	if err != nil {
		t.Fatalf("ResolveDBPath: %v", err)
	}
	if filepath.Base(got) != ".tracktivity.db" {
		t.Fatalf("default path=%q", got)
	}
}

func TestProfileDefaults(t *testing.T) {
	r, _ := openTestDB(t)
	ctx := context.Background()

	p, created, err := r.Profiles.GetOrCreate(ctx, user, now)
	if err != nil || !created {
		t.Fatalf("GetOrCreate: created=%v err=%v", created, err)
	}
	if p.Level != 1 || p.XP != 0 || p.MaxXP != 30 || p.HP != 50 || p.MaxHP != 50 {
		t.Fatalf("unexpected defaults: %+v", p)
	}
	if p.AvatarBackground != "#d8b9b9" || p.AvatarFloor != "#d8aeae" || p.HighestLevelEver != 1 {
		t.Fatalf("unexpected avatar defaults: %+v", p)
	}
	if p.LastDailyReset != nil {
		t.Fatalf("fresh profile has a reset time")
	}

	reset := now.Add(-time.Hour)
	p.Coins = 12
	p.LastDailyReset = &reset
	if err := r.Profiles.Update(ctx, p); err != nil {
		t.Fatalf("Update: %v", err)
	}
	again, created, err := r.Profiles.GetOrCreate(ctx, user, now)
	if err != nil || created {
		t.Fatalf("second GetOrCreate: created=%v err=%v", created, err)
	}
	if again.Coins != 12 || again.LastDailyReset == nil || !again.LastDailyReset.Equal(reset) {
		t.Fatalf("update not persisted: %+v", again)
	}
}

func TestAtomicRollsBack(t *testing.T) {
	r, atomic := openTestDB(t)
	ctx := context.Background()

	boom := errors.New("boom")
	err := atomic(func(tx *Repos) error {
		if _, _, err := tx.Profiles.GetOrCreate(ctx, user, now); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err=%v, want boom", err)
	}
	p, err := r.Profiles.Get(ctx, user)
	if err != nil || p != nil {
		t.Fatalf("profile survived rollback: %+v %v", p, err)
	}
}

func TestHabitListFilters(t *testing.T) {
	r, _ := openTestDB(t)
	ctx := context.Background()

	insert := func(title, details string, tags ...string) int64 {
		id, err := r.Habits.Insert(ctx, HabitInsert{
			UserID: user, Title: title, Details: details, Difficulty: "easy",
			AllowPositive: true, ResetFrequency: "never", CreatedAt: now,
		})
		if err != nil {
			t.Fatalf("Insert: %v", err)
		}
		if err := r.Tags.SetHabitTags(ctx, id, tags); err != nil {
			t.Fatalf("SetHabitTags: %v", err)
		}
		return id
	}
	run := insert("Morning run", "", "Health", "Outdoor")
	insert("Read", "a chapter of something RUNic", "Mind")
	insert("Floss", "", "Health")

	got, err := r.Habits.List(ctx, user, ListFilter{Search: "run"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("search matched %d habits, want 2", len(got))
	}

	got, err = r.Habits.List(ctx, user, ListFilter{Search: "run", Tag: "Health"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 1 || got[0].ID != run {
		t.Fatalf("filtered=%+v", got)
	}
	if len(got[0].Tags) != 2 || got[0].Tags[0] != "Health" || got[0].Tags[1] != "Outdoor" {
		t.Fatalf("tags=%v", got[0].Tags)
	}

	tags, err := r.Tags.ListForUser(ctx, user)
	if err != nil {
		t.Fatalf("ListForUser: %v", err)
	}
	if len(tags) != 3 {
		t.Fatalf("tags=%v", tags)
	}

	other, err := r.Habits.List(ctx, "someone_else", ListFilter{})
	if err != nil || len(other) != 0 {
		t.Fatalf("other user sees %d habits, err=%v", len(other), err)
	}
}

func TestCountBetweenIsHalfOpen(t *testing.T) {
	r, _ := openTestDB(t)
	ctx := context.Background()

	id, err := r.Habits.Insert(ctx, HabitInsert{UserID: user, Title: "Walk", Difficulty: "easy", AllowPositive: true, ResetFrequency: "never", CreatedAt: now})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	from := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 7)
	for _, at := range []time.Time{from.Add(-time.Second), from, to.Add(-time.Second), to} {
		if _, err := r.HabitLogs.Insert(ctx, HabitLog{HabitID: id, UserID: user, Positive: true, CreatedAt: at}); err != nil {
			t.Fatalf("log insert: %v", err)
		}
	}
	n, err := r.HabitLogs.CountBetween(ctx, user, from, to)
	if err != nil || n != 2 {
		t.Fatalf("count=%d err=%v, want 2", n, err)
	}
	title, count, err := r.HabitLogs.MostPositiveBetween(ctx, user, from, to)
	if err != nil || title != "Walk" || count != 2 {
		t.Fatalf("most positive=%q/%d err=%v", title, count, err)
	}
	title, _, err = r.HabitLogs.MostPositiveBetween(ctx, user, to.AddDate(0, 1, 0), to.AddDate(0, 2, 0))
	if err != nil || title != "" {
		t.Fatalf("empty window=%q err=%v", title, err)
	}
}

func TestSubjectColors(t *testing.T) {
	r, _ := openTestDB(t)
	ctx := context.Background()

	c := SubjectColor{UserID: user, Subject: "Math", Color: "#ff0000", Year: 2026, Month: 3, CreatedAt: now}
	if err := r.Study.UpsertColor(ctx, c); err != nil {
		t.Fatalf("UpsertColor: %v", err)
	}
	created, err := r.Study.InsertColorIfMissing(ctx, SubjectColor{UserID: user, Subject: "Math", Color: "#00ff00", Year: 2026, Month: 3, CreatedAt: now})
	if err != nil || created {
		t.Fatalf("InsertColorIfMissing overwrote: created=%v err=%v", created, err)
	}

	owner, err := r.Study.ColorOwner(ctx, user, "#ff0000", "Physics", 2026, 3)
	if err != nil || owner == nil || owner.Subject != "Math" {
		t.Fatalf("owner=%+v err=%v", owner, err)
	}
	owner, err = r.Study.ColorOwner(ctx, user, "#ff0000", "Math", 2026, 3)
	if err != nil || owner != nil {
		t.Fatalf("subject owns its own color: %+v %v", owner, err)
	}
	owner, err = r.Study.ColorOwner(ctx, user, "#ff0000", "Physics", 2026, 4)
	if err != nil || owner != nil {
		t.Fatalf("color leaked across months: %+v %v", owner, err)
	}

	if err := r.Study.RenameColorSubject(ctx, user, "Math", "Algebra", 2026, 3); err != nil {
		t.Fatalf("RenameColorSubject: %v", err)
	}
	colors, err := r.Study.ListColors(ctx, user, 2026, 3)
	if err != nil || len(colors) != 1 || colors[0].Subject != "Algebra" || colors[0].Color != "#ff0000" {
		t.Fatalf("colors=%+v err=%v", colors, err)
	}
}

func TestStudySessionLifecycle(t *testing.T) {
	r, _ := openTestDB(t)
	ctx := context.Background()

	id, err := r.Study.InsertSession(ctx, StudySession{UserID: user, Subject: "Math", Color: "#ff0000", StartTime: now})
	if err != nil {
		t.Fatalf("InsertSession: %v", err)
	}
	active, err := r.Study.Active(ctx, user)
	if err != nil || active == nil || active.ID != id || !active.Active {
		t.Fatalf("active=%+v err=%v", active, err)
	}
	has, err := r.Study.HasFinishedBetween(ctx, user, now.Add(-time.Hour), now.Add(time.Hour))
	if err != nil || has {
		t.Fatalf("running session counted as finished")
	}

	end := now.Add(45 * time.Minute)
	minutes := 45
	active.EndTime, active.DurationMinutes = &end, &minutes
	if err := r.Study.Finish(ctx, active); err != nil {
		t.Fatalf("Finish: %v", err)
	}
	if a, err := r.Study.Active(ctx, user); err != nil || a != nil {
		t.Fatalf("still active: %+v %v", a, err)
	}
	done, err := r.Study.ListFinishedBetween(ctx, user, now, now.Add(time.Hour))
	if err != nil || len(done) != 1 || *done[0].DurationMinutes != 45 || !done[0].EndTime.Equal(end) {
		t.Fatalf("finished=%+v err=%v", done, err)
	}
}

func TestOwnedItems(t *testing.T) {
	r, _ := openTestDB(t)
	ctx := context.Background()

	added, err := r.Shop.AddOwned(ctx, user, "bg_blue_background", now)
	if err != nil || !added {
		t.Fatalf("AddOwned: added=%v err=%v", added, err)
	}
	added, err = r.Shop.AddOwned(ctx, user, "bg_blue_background", now.Add(time.Minute))
	if err != nil || added {
		t.Fatalf("duplicate AddOwned: added=%v err=%v", added, err)
	}
	ok, err := r.Shop.IsOwned(ctx, user, "bg_blue_background")
	if err != nil || !ok {
		t.Fatalf("IsOwned=%v err=%v", ok, err)
	}
	ids, err := r.Shop.Owned(ctx, user)
	if err != nil || len(ids) != 1 {
		t.Fatalf("owned=%v err=%v", ids, err)
	}
}
