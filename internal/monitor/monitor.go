// Package monitor is a terminal front end showing the console state.
package monitor

import (
	"fmt"
	"strings"
	"time"

	"github.com/gdamore/tcell"
	"github.com/nevisdale/vectic/internal/vectrex"
)

// p - pause
// s - one step and stop
// f - one frame and stop
// q, Esc - quit

const (
	frameInterval = time.Second / 50

	// anomalies kept on screen, oldest dropped first
	maxAnomalies = 8
)

type Monitor struct {
	console   *vectrex.Console
	screen    tcell.Screen
	lastErr   error
	anomalies []string
}

func New(console *vectrex.Console, screen tcell.Screen) *Monitor {
	return &Monitor{
		console: console,
		screen:  screen,
	}
}

// Run initializes the screen and drives the console until the user quits.
// Events are read on their own goroutine, the console is only touched from
// the loop in Run.
func (m *Monitor) Run() error {
	tcell.SetEncodingFallback(tcell.EncodingFallbackASCII)
	if err := m.screen.Init(); err != nil {
		return fmt.Errorf("couldn't init the terminal: %w", err)
	}
	defer m.screen.Fini()

	events := make(chan tcell.Event, 16)
	go func() {
		for {
			ev := m.screen.PollEvent()
			if ev == nil {
				close(events)
				return
			}
			events <- ev
		}
	}()

	ticker := time.NewTicker(frameInterval)
	defer ticker.Stop()
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			switch ev := ev.(type) {
			case *tcell.EventKey:
				if m.handleKey(ev) {
					return nil
				}
			case *tcell.EventResize:
				m.screen.Sync()
			}
		case <-ticker.C:
			m.console.Tic()
			m.draw()
		}
	}
}

// handleKey applies a key press and reports whether the monitor should quit.
func (m *Monitor) handleKey(ev *tcell.EventKey) bool {
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return true
	case tcell.KeyRune:
	default:
		return false
	}

	switch ev.Rune() {
	case 'q':
		return true
	case 'p':
		m.console.TogglePause()
	case 's':
		m.console.OneStepAndStop()
	case 'f':
		if !m.console.Paused() {
			m.console.TogglePause()
		}
		m.lastErr = m.console.RunFrame()
	}
	return false
}

func (m *Monitor) draw() {
	m.screen.Clear()

	info := m.console.DebugInfo()
	lines := strings.Split(strings.TrimRight(info.String(), "\n"), "\n")
	if h := m.console.Header(); h != nil {
		lines = append([]string{"CART: " + h.String()}, lines...)
	}
	m.collectAnomalies()
	for _, a := range m.anomalies {
		lines = append(lines, "ANOMALY: "+a)
	}
	if m.lastErr != nil {
		lines = append(lines, "", m.lastErr.Error())
	}
	lines = append(lines, "", "p pause  s step  f frame  q quit")

	style := tcell.StyleDefault
	for y, line := range lines {
		m.print(0, y, style, line)
	}
	m.screen.Show()
}

// collectAnomalies moves new anomalies from the console into the list
// shown on screen.
func (m *Monitor) collectAnomalies() {
	for _, a := range m.console.Anomalies() {
		m.anomalies = append(m.anomalies, a.String())
	}
	if n := len(m.anomalies) - maxAnomalies; n > 0 {
		m.anomalies = m.anomalies[n:]
	}
}

func (m *Monitor) print(x, y int, style tcell.Style, s string) {
	for _, r := range s {
		m.screen.SetContent(x, y, r, nil, style)
		x++
	}
}
