package tui

import "github.com/charmbracelet/lipgloss"

var (
	colorRed     = lipgloss.Color("#FF5F5F")
	colorGreen   = lipgloss.Color("#5FD787")
	colorYellow  = lipgloss.Color("#FFD75F")
	colorCyan    = lipgloss.Color("#5FD7FF")
	colorGray    = lipgloss.Color("#767676")
	colorDimGray = lipgloss.Color("#444444")
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorCyan)

	userLabelStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorGreen)

	assistantLabelStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(colorCyan)

	systemStyle = lipgloss.NewStyle().
			Italic(true).
			Foreground(colorGray)

	errorStyle = lipgloss.NewStyle().
			Foreground(colorRed)

	listeningStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorRed)

	statusStyle = lipgloss.NewStyle().
			Foreground(colorYellow)

	labelStyle = lipgloss.NewStyle().
			Foreground(colorGray)

	activeLabelStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(colorCyan)

	footerKeyStyle = lipgloss.NewStyle().
			Foreground(colorYellow).
			Bold(true)

	footerDescStyle = lipgloss.NewStyle().
			Foreground(colorGray)

	dividerStyle = lipgloss.NewStyle().
			Foreground(colorDimGray)
)
