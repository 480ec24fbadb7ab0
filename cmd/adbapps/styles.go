package main

import "github.com/charmbracelet/lipgloss"

const (
	colorForeground = "#F8F8F2"
	colorCyan       = "#8BE9FD"
	colorGreen      = "#50FA7B"
	colorOrange     = "#FFB86C"
	colorPink       = "#FF79C6"
	colorPurple     = "#BD93F9"
	colorRed        = "#FF5555"
	colorYellow     = "#F1FA8C"
	colorComment    = "#6272A4"
)

type styles struct {
	title, label, value, help, warning, success, error, selected, system, app lipgloss.Style
}

func newStyles() styles {
	return styles{
		title: lipgloss.NewStyle().
			Foreground(lipgloss.Color(colorPink)).
			Bold(true),
		label: lipgloss.NewStyle().
			Foreground(lipgloss.Color(colorYellow)),
		value: lipgloss.NewStyle().
			Foreground(lipgloss.Color(colorForeground)),
		help: lipgloss.NewStyle().
			Foreground(lipgloss.Color(colorComment)),
		warning: lipgloss.NewStyle().
			Foreground(lipgloss.Color(colorOrange)),
		success: lipgloss.NewStyle().
			Foreground(lipgloss.Color(colorGreen)),
		error: lipgloss.NewStyle().
			Foreground(lipgloss.Color(colorRed)).
			Bold(true),
		selected: lipgloss.NewStyle().
			Foreground(lipgloss.Color(colorCyan)).
			Bold(true),
		system: lipgloss.NewStyle().
			Foreground(lipgloss.Color(colorPurple)),
		app: lipgloss.NewStyle().
			Padding(0, 1).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(colorCyan)),
	}
}
