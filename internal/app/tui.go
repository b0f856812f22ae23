// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	log "github.com/sirupsen/logrus"

	"github.com/relabs-tech/feedme/internal/config"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	fedStyle    = lipgloss.NewStyle().Bold(true)
	openStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F87"))
	buttonStyle = lipgloss.NewStyle().Padding(0, 2).Border(lipgloss.RoundedBorder())
	boxStyle    = lipgloss.NewStyle().Padding(1, 3)
)

type keyMap struct {
	Toggle key.Binding
	Quit   key.Binding
}

func (k keyMap) ShortHelp() []key.Binding  { return []key.Binding{k.Toggle, k.Quit} }
func (k keyMap) FullHelp() [][]key.Binding { return [][]key.Binding{k.ShortHelp()} }

var keys = keyMap{
	Toggle: key.NewBinding(key.WithKeys(" ", "enter"), key.WithHelp("space", "start/stop sensors")),
	Quit:   key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

type statusMsg Status
type tickMsg time.Time

// tuiModel is the Bubbletea model of the feeder screen.
type tuiModel struct {
	ctl     controller
	updates <-chan Status
	status  Status
	now     time.Time
	err     error
	help    help.Model
}

func newTUIModel(ctl controller, updates <-chan Status) tuiModel {
	return tuiModel{
		ctl:     ctl,
		updates: updates,
		status:  ctl.Status(),
		now:     time.Now(),
		help:    help.New(),
	}
}

func waitForStatus(ch <-chan Status) tea.Cmd {
	return func() tea.Msg {
		s, ok := <-ch
		if !ok {
			return nil
		}
		return statusMsg(s)
	}
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m tuiModel) Init() tea.Cmd {
	return tea.Batch(waitForStatus(m.updates), tick())
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, keys.Toggle):
			if _, err := m.ctl.Toggle(); err != nil {
				m.err = err
			} else {
				m.err = nil
			}
			m.status = m.ctl.Status()
		}
		return m, nil

	case statusMsg:
		m.status = Status(msg)
		return m, waitForStatus(m.updates)

	case tickMsg:
		m.now = time.Time(msg)
		return m, tick()
	}
	return m, nil
}

func (m tuiModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("FeedMe"))
	b.WriteString("\n\n")
	b.WriteString(labelStyle.Render("Last fed:"))
	b.WriteString("\n")
	b.WriteString(fedStyle.Render(m.status.LastFedText(m.now)))
	b.WriteString("\n\n")

	lid := "closed"
	if m.status.Open {
		lid = openStyle.Render("open")
	}
	fmt.Fprintf(&b, "%s %s   %s %d\n\n", labelStyle.Render("Lid:"), lid, labelStyle.Render("Feeds:"), m.status.Feeds)

	button := "▶ Start"
	if m.status.Active {
		button = "■ Stop"
	}
	b.WriteString(buttonStyle.Render(button))
	b.WriteString("\n")

	if m.err != nil {
		b.WriteString(errorStyle.Render(m.err.Error()))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(m.help.View(keys))

	return boxStyle.Render(b.String())
}

// RunTUI runs the detector in-process behind a terminal feeder screen.
// Log output below warning level is muted while the screen is up.
func RunTUI() error {
	cfg := config.Get()

	det, mgr, err := newDetector(cfg)
	if err != nil {
		return err
	}
	defer mgr.Close()

	mon := NewMonitor(det)
	defer mon.Stop()

	updates := make(chan Status, 8)
	cancel := mon.Subscribe(func(s Status) {
		select {
		case updates <- s:
		default:
		}
	})
	defer cancel()

	level := log.GetLevel()
	if level > log.WarnLevel {
		log.SetLevel(log.WarnLevel)
		defer log.SetLevel(level)
	}

	p := tea.NewProgram(newTUIModel(mon, updates), tea.WithAltScreen())
	_, err = p.Run()
	return err
}
