package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"tracktivity/internal/engine"
	"tracktivity/internal/storage"
	"tracktivity/internal/ui"
)

type boardModel struct {
	ctx    context.Context
	svc    *engine.Service
	userID string

	width  int
	height int

	profile *storage.Profile
	habits  []engine.HabitView
	tasks   []engine.TaskView

	selected int

	lastLog string
	loading bool
	err     error
}

type loadedMsg struct {
	profile *storage.Profile
	habits  []engine.HabitView
	tasks   []engine.TaskView
	err     error
}

type actionMsg struct {
	log string
	err error
}

func newBoardModel(ctx context.Context, svc *engine.Service, userID string) boardModel {
	return boardModel{
		ctx:     ctx,
		svc:     svc,
		userID:  userID,
		loading: true,
		lastLog: "Loaded.",
	}
}

func (m boardModel) Init() tea.Cmd {
	return m.loadCmd()
}

func (m boardModel) loadCmd() tea.Cmd {
	return func() tea.Msg {
		p, err := m.svc.Profile(m.ctx, m.userID)
		if err != nil {
			return loadedMsg{err: err}
		}
		habits, err := m.svc.ListHabits(m.ctx, m.userID, engine.HabitFilterAll, storage.ListFilter{})
		if err != nil {
			return loadedMsg{err: err}
		}
		tasks, err := m.svc.ListTasks(m.ctx, m.userID, engine.TaskFilterAll, storage.ListFilter{})
		if err != nil {
			return loadedMsg{err: err}
		}
		return loadedMsg{profile: p, habits: habits, tasks: tasks}
	}
}

func (m boardModel) habitCmd(id int64, positive bool) tea.Cmd {
	return func() tea.Msg {
		res, err := m.svc.CompleteHabit(m.ctx, m.userID, id, positive)
		if err != nil {
			return actionMsg{err: err}
		}
		if !res.Applied {
			return actionMsg{log: fmt.Sprintf("Habit %d does not allow that direction.", id)}
		}
		if positive {
			return actionMsg{log: fmt.Sprintf("Habit %d: %s%s", id, ui.Rewards(res.XPEarned, res.CoinsEarned), levelNote(res.LevelUp, false, false))}
		}
		return actionMsg{log: fmt.Sprintf("Habit %d: -%d HP%s", id, res.HPLost, levelNote(false, false, res.KnockedOut))}
	}
}

func (m boardModel) completeCmd(id int64, undo bool) tea.Cmd {
	return func() tea.Msg {
		var (
			res *engine.TaskResult
			err error
		)
		if undo {
			res, err = m.svc.UncompleteTask(m.ctx, m.userID, id)
		} else {
			res, err = m.svc.CompleteTask(m.ctx, m.userID, id)
		}
		if err != nil {
			return actionMsg{err: err}
		}
		if !res.Changed {
			return actionMsg{log: fmt.Sprintf("Task %d unchanged.", id)}
		}
		verb := "Completed"
		if undo {
			verb = "Reopened"
		}
		return actionMsg{log: fmt.Sprintf("%s %d: %s%s", verb, id, ui.Rewards(res.XPEarned, res.CoinsEarned), levelNote(res.LevelUp, res.LevelDown, res.KnockedOut))}
	}
}

func (m boardModel) resetCmd() tea.Cmd {
	return func() tea.Msg {
		res, err := m.svc.ResetDailies(m.ctx, m.userID)
		if err != nil {
			return actionMsg{err: err}
		}
		if res.AlreadyRan {
			return actionMsg{log: "Daily reset already ran today."}
		}
		return actionMsg{log: fmt.Sprintf("Reset: %d missed, %d overdue, -%d HP%s", res.MissedDailies, res.OverdueTasks, res.HPLost, levelNote(false, false, res.KnockedOut))}
	}
}

func levelNote(up, down, knockedOut bool) string {
	switch {
	case knockedOut:
		return " (knocked out)"
	case up:
		return " (level up)"
	case down:
		return " (level down)"
	}
	return ""
}

func (m boardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case loadedMsg:
		m.loading = false
		m.err = msg.err
		if msg.err != nil {
			m.lastLog = "Load failed: " + msg.err.Error()
			return m, nil
		}
		m.profile = msg.profile
		m.habits = msg.habits
		m.tasks = msg.tasks
		if n := len(m.boardLines()); m.selected >= n {
			m.selected = max(0, n-1)
		}
		m.lastLog = fmt.Sprintf("Refreshed at %s.", time.Now().Format("15:04:05"))
		return m, nil
	case actionMsg:
		if msg.err != nil {
			m.lastLog = "Failed: " + msg.err.Error()
			return m, nil
		}
		m.lastLog = msg.log
		return m, m.loadCmd()
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "r":
			m.loading = true
			m.lastLog = "Refreshing…"
			return m, m.loadCmd()
		case "d":
			m.lastLog = "Running daily reset…"
			return m, m.resetCmd()
		case "up", "k":
			if m.selected > 0 {
				m.selected--
			}
			return m, nil
		case "down", "j":
			if m.selected < len(m.boardLines())-1 {
				m.selected++
			}
			return m, nil
		case "+", "c", " ":
			line, ok := m.current()
			if !ok {
				return m, nil
			}
			if line.habit {
				return m, m.habitCmd(line.id, true)
			}
			if line.done {
				m.lastLog = "Already done."
				return m, nil
			}
			return m, m.completeCmd(line.id, false)
		case "-":
			line, ok := m.current()
			if !ok {
				return m, nil
			}
			if !line.habit {
				m.lastLog = "Select a habit to mark negative."
				return m, nil
			}
			return m, m.habitCmd(line.id, false)
		case "u":
			line, ok := m.current()
			if !ok || line.habit {
				m.lastLog = "Select a completed task to reopen."
				return m, nil
			}
			return m, m.completeCmd(line.id, true)
		}
	}
	return m, nil
}

type boardLine struct {
	id     int64
	habit  bool
	kind   string
	title  string
	color  string
	done   bool
	detail string
}

// boardLines lists habits first, then dailies and scheduled tasks in the
// order the engine returned them.
func (m boardModel) boardLines() []boardLine {
	out := make([]boardLine, 0, len(m.habits)+len(m.tasks))
	for _, h := range m.habits {
		out = append(out, boardLine{
			id:     h.ID,
			habit:  true,
			kind:   "habit",
			title:  h.Title,
			color:  h.Color,
			detail: fmt.Sprintf("+%d/-%d", h.PosCount, h.NegCount),
		})
	}
	for _, t := range m.tasks {
		detail := ""
		switch {
		case t.Kind == string(engine.TaskDaily):
			detail = fmt.Sprintf("streak %d", t.Streak)
		case t.Due != nil:
			detail = "due " + t.Due.Local().Format("Jan 2 15:04")
		}
		if t.Overdue {
			detail += " overdue"
		}
		out = append(out, boardLine{
			id:     t.ID,
			kind:   t.Kind,
			title:  t.Title,
			color:  t.Color,
			done:   t.Completed,
			detail: detail,
		})
	}
	return out
}

func (m boardModel) current() (boardLine, bool) {
	lines := m.boardLines()
	if m.selected < 0 || m.selected >= len(lines) {
		return boardLine{}, false
	}
	return lines[m.selected], true
}

func (m boardModel) View() string {
	if m.err != nil {
		return "Error: " + m.err.Error() + "\n\nPress q to quit.\n"
	}

	leftW := 26
	if m.width > 0 {
		leftW = max(min(leftW, m.width/2), 18)
	}
	sidebar := lipgloss.NewStyle().Width(leftW).MarginRight(2).Render(m.renderSidebar())
	body := lipgloss.JoinHorizontal(lipgloss.Top, sidebar, m.renderMain())

	return m.renderHeader() + "\n" + body + "\n" + m.renderFooter()
}

func (m boardModel) renderHeader() string {
	if m.profile == nil {
		return "Tracktivity | loading…"
	}
	p := m.profile
	return fmt.Sprintf("Tracktivity | %s | Level %d | XP %d/%d %s | HP %d/%d %s | %d coins",
		p.UserID, p.Level,
		p.XP, p.MaxXP, ui.Bar(p.XP, p.MaxXP, 20),
		p.HP, p.MaxHP, ui.Bar(p.HP, p.MaxHP, 12),
		p.Coins)
}

func (m boardModel) renderSidebar() string {
	lines := []string{"Avatar"}
	if m.profile != nil {
		lines = append(lines, "- "+m.profile.AvatarState)
		lines = append(lines, fmt.Sprintf("- best streak %d", m.profile.LongestDailyStreak))
		lines = append(lines, fmt.Sprintf("- %.1f h studied", m.profile.AllTimeHoursStudied))
	}
	lines = append(lines, "")
	lines = append(lines, "Keys")
	lines = append(lines, "- ↑/↓ or j/k: move")
	lines = append(lines, "- +/c/space: do")
	lines = append(lines, "- -: habit slip")
	lines = append(lines, "- u: reopen task")
	lines = append(lines, "- d: daily reset")
	lines = append(lines, "- r: refresh")
	lines = append(lines, "- q: quit")
	return strings.Join(lines, "\n")
}

func (m boardModel) renderMain() string {
	if m.loading {
		return "Loading…"
	}
	out := []string{"Board"}
	lines := m.boardLines()
	if len(lines) == 0 {
		out = append(out, "(empty: tt habit add / tt task add)")
		return strings.Join(out, "\n")
	}
	for i, bl := range lines {
		cursor := "  "
		if i == m.selected {
			cursor = "> "
		}
		check := "[ ]"
		if bl.habit {
			check = "   "
		} else if bl.done {
			check = "[x]"
		}
		row := fmt.Sprintf("%s%s %s %d %s", cursor, check, ui.KindIcon(bl.kind), bl.id, ui.Swatch(bl.color, bl.title))
		if bl.detail != "" {
			row += " " + ui.Muted.Render("("+bl.detail+")")
		}
		out = append(out, row)
	}
	return strings.Join(out, "\n")
}

func (m boardModel) renderFooter() string {
	return "\n" + m.lastLog
}
