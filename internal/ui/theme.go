package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Tracktivity theme (CLI + TUI).

const (
	IconSparkle   = "✨"
	IconPlus      = "➕"
	IconDone      = "✅"
	IconUndo      = "↩️"
	IconTrophy    = "🏆"
	IconInfo      = "ℹ️"
	IconWarn      = "⚠️"
	IconError     = "🧨"
	IconHabit     = "🔁"
	IconTask      = "📌"
	IconDaily     = "📅"
	IconCoin      = "🪙"
	IconHeart     = "❤️"
	IconFlame     = "🔥"
	IconClock     = "⏱️"
	IconStar      = "⭐"
	IconClipboard = "📋"
	IconBook      = "📚"
	IconShop      = "🛒"
	IconSkull     = "💀"
)

var (
	cPrimary = lipgloss.Color("63")  // blue
	cAccent  = lipgloss.Color("205") // magenta
	cGood    = lipgloss.Color("42")  // green
	cWarn    = lipgloss.Color("214") // orange
	cBad     = lipgloss.Color("196") // red
	cMuted   = lipgloss.Color("244") // gray
	cGold    = lipgloss.Color("220") // gold
)

var (
	Title = lipgloss.NewStyle().Bold(true).Foreground(cAccent)
	H2    = lipgloss.NewStyle().Bold(true).Foreground(cPrimary)
	Muted = lipgloss.NewStyle().Foreground(cMuted)
	Key   = lipgloss.NewStyle().Bold(true).Foreground(cPrimary)
	Good  = lipgloss.NewStyle().Bold(true).Foreground(cGood)
	Warn  = lipgloss.NewStyle().Bold(true).Foreground(cWarn)
	Bad   = lipgloss.NewStyle().Bold(true).Foreground(cBad)
	Gold  = lipgloss.NewStyle().Bold(true).Foreground(cGold)

	Panel       = lipgloss.NewStyle().BorderStyle(lipgloss.RoundedBorder()).BorderForeground(cMuted).Padding(0, 1)
	PanelTitle  = lipgloss.NewStyle().Bold(true).Foreground(cPrimary)
	SelectedRow = lipgloss.NewStyle().Bold(true).Foreground(cGold).Background(cPrimary)

	BadgeLevelUp   = lipgloss.NewStyle().Bold(true).Foreground(cGold).Render("LEVEL UP")
	BadgeLevelDown = lipgloss.NewStyle().Bold(true).Foreground(cBad).Render("LEVEL DOWN")
)

func Heading(icon string, title string) string {
	icon = strings.TrimSpace(icon)
	if icon != "" {
		icon += " "
	}
	return Title.Render(icon + title)
}

func LabelValue(label string, value any) string {
	return fmt.Sprintf("%s %v", Key.Render(label+":"), value)
}

// Swatch renders text in a #rrggbb color.
func Swatch(hex, text string) string {
	if hex == "" {
		return text
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color(hex)).Render(text)
}

// Bar renders a fixed-width meter such as an XP or HP bar.
func Bar(value, total, width int) string {
	if total <= 0 {
		total = 1
	}
	if width < 3 {
		width = 3
	}
	value = max(0, min(value, total))
	filled := value * width / total
	return "[" + strings.Repeat("#", filled) + strings.Repeat("-", width-filled) + "]"
}

func Signed(n int) string {
	if n >= 0 {
		return fmt.Sprintf("+%d", n)
	}
	return fmt.Sprintf("%d", n)
}

// Rewards formats an xp/coin delta, e.g. "+9 XP +4 coins".
func Rewards(xp, coins int) string {
	return fmt.Sprintf("%s XP %s coins", Signed(xp), Signed(coins))
}

func KindIcon(kind string) string {
	switch kind {
	case "daily":
		return IconDaily
	case "habit":
		return IconHabit
	default:
		return IconTask
	}
}

// RecapIcon maps recap icon names to emoji.
func RecapIcon(name string) string {
	switch name {
	case "flame":
		return IconFlame
	case "clock":
		return IconClock
	case "star":
		return IconStar
	case "clipboard":
		return IconClipboard
	default:
		return IconSparkle
	}
}

func DifficultyText(d string) string {
	switch d {
	case "hard":
		return Bad.Render(d)
	case "medium":
		return Warn.Render(d)
	case "easy":
		return Good.Render(d)
	default:
		return Muted.Render(d)
	}
}
