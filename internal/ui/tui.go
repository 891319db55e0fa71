// ABOUTME: TUI initialization and control channels
// ABOUTME: Wraps the bubbletea program and relays user actions to the app
package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Soundline-Audio/soundline-go/pkg/stream"
	"github.com/Soundline-Audio/soundline-go/pkg/track"
)

// Controls holds channels carrying user actions out of the TUI.
type Controls struct {
	Volume chan int
	Pause  chan bool
	Stop   chan struct{}
	Quit   chan struct{}
}

// NewControls creates the TUI action channels.
func NewControls() *Controls {
	return &Controls{
		Volume: make(chan int, 10),
		Pause:  make(chan bool, 4),
		Stop:   make(chan struct{}, 1),
		Quit:   make(chan struct{}, 1),
	}
}

func (c *Controls) setVolume(v int) {
	select {
	case c.Volume <- v:
	default:
	}
}

func (c *Controls) setPaused(p bool) {
	select {
	case c.Pause <- p:
	default:
	}
}

func (c *Controls) stop() {
	select {
	case c.Stop <- struct{}{}:
	default:
	}
}

func (c *Controls) quit() {
	select {
	case c.Quit <- struct{}{}:
	default:
	}
}

// NewModel creates a new TUI model. player may be nil when no track is
// loaded.
func NewModel(engine *stream.Engine, player *track.Player, controls *Controls) Model {
	return Model{
		engine:   engine,
		player:   player,
		scope:    make([]int, scopeWidth),
		volume:   100,
		controls: controls,
	}
}

// Run starts the TUI
func Run(engine *stream.Engine, player *track.Player, controls *Controls) (*tea.Program, error) {
	p := tea.NewProgram(NewModel(engine, player, controls), tea.WithAltScreen())
	return p, nil
}
