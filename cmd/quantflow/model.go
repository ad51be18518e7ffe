package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/tehqua/QuantFlow/internal/live"
)

// snapshotInterval is how often the monitor polls the controller.
const snapshotInterval = 500 * time.Millisecond

// killTimeout bounds how long a kill may spend cancelling venue orders.
const killTimeout = 10 * time.Second

// Model is the Bubble Tea model for the live session monitor.
type Model struct {
	controller     *live.Controller
	snapshot       live.Snapshot
	positionsTable table.Model
	err            error
	width          int
	height         int
	quitting       bool
}

// NewModel creates a monitor over a started controller.
func NewModel(controller *live.Controller) Model {
	return Model{
		controller:     controller,
		snapshot:       controller.Snapshot(),
		positionsTable: NewPositionsTable(),
	}
}

func tick() tea.Cmd {
	return tea.Tick(snapshotInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tick()
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.controller.Stop()
			m.quitting = true

			return m, tea.Quit
		case "s":
			m.controller.Stop()

			return m, m.refresh()
		case "k":
			ctx, cancel := context.WithTimeout(context.Background(), killTimeout)
			defer cancel()

			m.controller.Kill(ctx)

			return m, m.refresh()
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.positionsTable.SetWidth(msg.Width)

		return m, nil

	case tickMsg:
		return m, tea.Batch(m.refresh(), tick())

	case snapshotMsg:
		m.snapshot = msg.Snapshot
		m.positionsTable = UpdatePositionRows(m.positionsTable, m.snapshot.Positions)

		return m, nil

	case sessionErrorMsg:
		m.err = msg.Err

		return m, nil
	}

	var cmd tea.Cmd
	m.positionsTable, cmd = m.positionsTable.Update(msg)

	return m, cmd
}

// refresh returns a command that takes a fresh controller snapshot.
func (m Model) refresh() tea.Cmd {
	return func() tea.Msg {
		return snapshotMsg{Snapshot: m.controller.Snapshot()}
	}
}

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return "Session stopped.\n"
	}

	var s strings.Builder

	s.WriteString(TitleStyle.Render("QuantFlow Live Monitor"))
	s.WriteString("\n\n")

	state := IdleStyle.Render(string(m.snapshot.State))
	if m.snapshot.IsRunning {
		state = RunningStyle.Render(string(m.snapshot.State))
	}

	s.WriteString(fmt.Sprintf("State: %s  Mode: %s  Equity: %.2f\n\n",
		state, m.snapshot.Mode, m.snapshot.Equity))

	if m.err != nil {
		s.WriteString(ErrorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		s.WriteString("\n\n")
	}

	s.WriteString(TitleStyle.Render("Positions"))
	s.WriteString("\n")

	if len(m.snapshot.Positions) == 0 {
		s.WriteString(HelpStyle.Render("No open positions"))
		s.WriteString("\n")
	} else {
		s.WriteString(m.positionsTable.View())
		s.WriteString("\n")
	}

	s.WriteString("\n")
	s.WriteString(TitleStyle.Render("Activity"))
	s.WriteString("\n")
	s.WriteString(RenderLogTail(m.snapshot.RecentLogs))
	s.WriteString("\n\n")
	s.WriteString(HelpStyle.Render("s: stop | k: kill switch | q: quit"))

	return s.String()
}
