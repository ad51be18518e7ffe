package main

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/tehqua/QuantFlow/internal/types"
)

// Style definitions.
var (
	// TitleStyle for headers.
	TitleStyle = lipgloss.NewStyle().Bold(true)

	// HelpStyle for help text.
	HelpStyle = lipgloss.NewStyle().Faint(true)

	// ErrorStyle for error messages.
	ErrorStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))

	// RunningStyle marks an active session.
	RunningStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))

	// IdleStyle marks an idle session.
	IdleStyle = lipgloss.NewStyle().Faint(true)

	logLevelStyles = map[types.LogLevel]lipgloss.Style{
		types.LogLevelInfo:    lipgloss.NewStyle(),
		types.LogLevelSuccess: lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		types.LogLevelWarning: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		types.LogLevelError:   lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
	}
)

// RenderLogLevel styles a log message by its level.
func RenderLogLevel(level types.LogLevel, message string) string {
	style, ok := logLevelStyles[level]
	if !ok {
		return message
	}

	return style.Render(message)
}
