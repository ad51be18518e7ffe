package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"

	"github.com/tehqua/QuantFlow/internal/types"
)

// logTailLines is how many recent log entries the monitor shows.
const logTailLines = 12

// NewPositionsTable creates the open positions table.
func NewPositionsTable() table.Model {
	columns := []table.Column{
		{Title: "Symbol", Width: 12},
		{Title: "Side", Width: 6},
		{Title: "Qty", Width: 12},
		{Title: "Entry", Width: 14},
		{Title: "Mark", Width: 14},
		{Title: "Unrealized", Width: 14},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithHeight(5),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.NoColor{}).
		Background(lipgloss.NoColor{}).
		Bold(false)

	t.SetStyles(s)

	return t
}

// UpdatePositionRows replaces the table rows with the snapshot's positions.
func UpdatePositionRows(t table.Model, positions []types.Position) table.Model {
	rows := make([]table.Row, 0, len(positions))

	for _, position := range positions {
		unrealized, _ := position.UnrealizedPnL().Float64()

		rows = append(rows, table.Row{
			position.Symbol,
			string(position.Side),
			fmt.Sprintf("%.4f", position.Quantity),
			fmt.Sprintf("%.4f", position.EntryPrice),
			fmt.Sprintf("%.4f", position.CurrentPrice),
			fmt.Sprintf("%+.4f", unrealized),
		})
	}

	t.SetRows(rows)

	return t
}

// RenderLogTail renders the newest entries of the session log, oldest first.
func RenderLogTail(entries []types.LogEntry) string {
	if len(entries) == 0 {
		return HelpStyle.Render("No activity yet")
	}

	if len(entries) > logTailLines {
		entries = entries[len(entries)-logTailLines:]
	}

	var s strings.Builder

	for i, entry := range entries {
		if i > 0 {
			s.WriteString("\n")
		}

		line := fmt.Sprintf("%s  %s", entry.Timestamp.Format("15:04:05"), entry.Message)
		s.WriteString(RenderLogLevel(entry.Level, line))
	}

	return s.String()
}
