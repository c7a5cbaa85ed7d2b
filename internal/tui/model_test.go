package tui

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"tracktivity/internal/engine"
	"tracktivity/internal/storage"
)

const testUser = "main_user"

func newTestModel(t *testing.T) (boardModel, *engine.Service) {
	t.Helper()
	ctx := context.Background()
	db, err := storage.Open(ctx, filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	now := time.Date(2026, 3, 11, 10, 0, 0, 0, time.UTC)
	svc := engine.NewService(db, engine.WithClock(engine.ClockFunc(func() time.Time { return now })))
	if _, err := svc.CreateUser(ctx, testUser); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	return newBoardModel(ctx, svc, testUser), svc
}

// run executes cmd and feeds its message back until the chain settles.
func run(t *testing.T, m boardModel, cmd tea.Cmd) boardModel {
	t.Helper()
	for i := 0; cmd != nil && i < 4; i++ {
		next, c := m.Update(cmd())
		m = next.(boardModel)
		cmd = c
	}
	return m
}

func key(s string) tea.KeyMsg {
	if s == " " {
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune(" ")}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestBoardLoadsStarterItems(t *testing.T) {
	m, _ := newTestModel(t)
	m = run(t, m, m.Init())

	if m.err != nil || m.profile == nil {
		t.Fatalf("load failed: %v", m.err)
	}
	lines := m.boardLines()
	if len(lines) != 2 || !lines[0].habit || lines[1].habit {
		t.Fatalf("lines=%+v", lines)
	}
	view := m.View()
	if !strings.Contains(view, "Level 1") || !strings.Contains(view, lines[0].title) {
		t.Fatalf("view missing header or rows:\n%s", view)
	}
}

func TestBoardCompletesSelectedTask(t *testing.T) {
	m, svc := newTestModel(t)
	m = run(t, m, m.Init())

	next, _ := m.Update(key("j"))
	m = next.(boardModel)
	line, ok := m.current()
	if !ok || line.habit {
		t.Fatalf("expected the task row, got %+v", line)
	}

	next, cmd := m.Update(key(" "))
	m = run(t, next.(boardModel), cmd)
	if !strings.HasPrefix(m.lastLog, "Completed") {
		t.Fatalf("lastLog=%q", m.lastLog)
	}
	if line, _ := m.current(); !line.done {
		t.Fatalf("row not marked done after reload")
	}

	p, err := svc.Profile(context.Background(), testUser)
	if err != nil || p.XP == 0 {
		t.Fatalf("no xp granted: %+v %v", p, err)
	}

	next, cmd = m.Update(key("u"))
	m = run(t, next.(boardModel), cmd)
	if !strings.HasPrefix(m.lastLog, "Reopened") {
		t.Fatalf("lastLog=%q", m.lastLog)
	}
}

func TestBoardNegativeKeyNeedsHabit(t *testing.T) {
	m, _ := newTestModel(t)
	m = run(t, m, m.Init())

	m.selected = 1
	next, cmd := m.Update(key("-"))
	m = next.(boardModel)
	if cmd != nil || m.lastLog != "Select a habit to mark negative." {
		t.Fatalf("lastLog=%q", m.lastLog)
	}
}
