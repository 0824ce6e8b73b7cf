package tui

import "github.com/charmbracelet/lipgloss"

var (
	ColorXP      = lipgloss.Color("#a855f7")
	ColorPoints  = lipgloss.Color("#f59e0b")
	ColorStreak  = lipgloss.Color("#ef4444")
	ColorGold    = lipgloss.Color("#facc15")
	ColorBorder  = lipgloss.Color("#4b5563")
	ColorDimmed  = lipgloss.Color("#6b7280")
	ColorHealthy = lipgloss.Color("#22c55e")
	ColorDanger  = lipgloss.Color("#dc2626")
)

var (
	StyleTitle = lipgloss.NewStyle().Bold(true).Foreground(ColorXP)

	StyleDimmed = lipgloss.NewStyle().Foreground(ColorDimmed)

	StylePanel = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder).
			Padding(0, 1)

	StyleLevelUp = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorGold).
			Border(lipgloss.DoubleBorder()).
			BorderForeground(ColorGold).
			Padding(0, 2)

	StyleAchievement = lipgloss.NewStyle().
				Foreground(ColorHealthy).
				Border(lipgloss.RoundedBorder()).
				BorderForeground(ColorHealthy).
				Padding(0, 2)

	StyleNotice = lipgloss.NewStyle().Bold(true).Foreground(ColorDanger)
)
