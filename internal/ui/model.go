// ABOUTME: Bubbletea model for the oscilloscope TUI
// ABOUTME: Polls the engine scope buffer and renders a waveform with playback status
package ui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Soundline-Audio/soundline-go/pkg/stream"
	"github.com/Soundline-Audio/soundline-go/pkg/track"
)

const (
	scopeWidth  = 64
	scopeHeight = 12
	tickRate    = 50 * time.Millisecond
)

var (
	frameStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	titleStyle    = lipgloss.NewStyle().Bold(true)
	subtitleStyle = lipgloss.NewStyle().Italic(true)
	helpStyle     = lipgloss.NewStyle().Faint(true)
)

// Model represents the TUI state
type Model struct {
	engine *stream.Engine
	player *track.Player

	scope  []int
	active bool

	volume int
	paused bool

	width  int
	height int

	controls *Controls
}

type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(tickRate, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return tick()
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case tickMsg:
		n := m.engine.RenderScope(stream.MusicSource, m.scope, scopeWidth, scopeHeight, true)
		m.active = n > 0
		return m, tick()
	}
	return m, nil
}

// View renders the TUI
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Soundline"))
	b.WriteString("\n")
	b.WriteString(m.renderScope())
	b.WriteString("\n")
	b.WriteString(m.renderStatus())

	if m.player != nil {
		if text := m.player.SubtitleText(nil); text != "" {
			b.WriteString("\n")
			b.WriteString(subtitleStyle.Render(text))
		}
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render("↑/↓:Volume  space:Pause  s:Stop  q:Quit"))

	return frameStyle.Render(b.String())
}

// renderScope draws the waveform grid, one column per scope coordinate.
func (m Model) renderScope() string {
	rows := make([][]rune, scopeHeight)
	for y := range rows {
		rows[y] = []rune(strings.Repeat(" ", scopeWidth))
	}

	if m.active {
		for x := 0; x < scopeWidth; x++ {
			y := m.scope[x]
			if y >= 0 && y < scopeHeight {
				rows[y][x] = '█'
			}
		}
	} else {
		mid := []rune(strings.Repeat("─", scopeWidth))
		rows[scopeHeight/2] = mid
	}

	var b strings.Builder
	for _, row := range rows {
		b.WriteString(string(row))
		b.WriteString("\n")
	}
	return b.String()
}

// renderStatus shows playback state and volume.
func (m Model) renderStatus() string {
	state := "idle"
	switch {
	case m.paused:
		state = "paused"
	case m.engine.Playing(stream.SpeechSource):
		state = "speech"
	case m.engine.Playing(stream.MusicSource):
		state = "music"
	}

	pos := m.engine.Position(stream.MusicSource)
	if m.engine.Playing(stream.SpeechSource) {
		pos = m.engine.Position(stream.SpeechSource)
	}

	return fmt.Sprintf("%s  %s  vol %d%%", state, formatDuration(pos), m.volume)
}

// handleKey handles keyboard input
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.controls.quit()
		return m, tea.Quit
	case "up":
		m.volume += 5
		if m.volume > 100 {
			m.volume = 100
		}
		m.controls.setVolume(m.volume)
	case "down":
		m.volume -= 5
		if m.volume < 0 {
			m.volume = 0
		}
		m.controls.setVolume(m.volume)
	case " ":
		m.paused = !m.paused
		m.controls.setPaused(m.paused)
	case "s":
		m.controls.stop()
	}
	return m, nil
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	return fmt.Sprintf("%02d:%02d", int(d.Minutes()), int(d.Seconds())%60)
}
