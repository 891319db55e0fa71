// ABOUTME: Entry point for the Soundline demo player
// ABOUTME: Parses CLI flags and starts the audio stack with an optional scope TUI
package main

import (
	"flag"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Soundline-Audio/soundline-go/internal/app"
	"github.com/Soundline-Audio/soundline-go/internal/ui"
)

var (
	file     = flag.String("file", "", "Audio file to play (wav/ogg/mp3/flac/opus)")
	subtitle = flag.String("subtitle", "", "Play -file as a speech track with this subtitle text")
	backend  = flag.String("backend", "oto", "Output backend: oto, beep, or virtual")
	loop     = flag.Bool("loop", false, "Loop playback")
	volume   = flag.Float64("volume", 1.0, "Initial volume (0.0-1.0)")
	logFile  = flag.String("log-file", "soundline.log", "Log file path")
	noTUI    = flag.Bool("no-tui", false, "Disable TUI, use streaming logs instead")
)

func main() {
	flag.Parse()

	useTUI := !*noTUI

	// Set up logging
	f, err := os.OpenFile(*logFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		log.Fatalf("error opening log file: %v", err)
	}
	defer func() { _ = f.Close() }()

	if useTUI {
		// TUI mode: log only to file so output stays clean
		log.SetOutput(f)
	} else {
		log.SetOutput(io.MultiWriter(os.Stdout, f))
		log.Printf("TUI disabled - logging to stdout")
	}

	a, err := app.New(app.Config{
		Backend:  *backend,
		File:     *file,
		Subtitle: *subtitle,
		Loop:     *loop,
		Volume:   float32(*volume),
	})
	if err != nil {
		log.Fatalf("Failed to create player: %v", err)
	}

	if err := a.Start(); err != nil {
		log.Fatalf("Playback failed: %v", err)
	}

	var tuiProg *tea.Program
	var controls *ui.Controls
	if useTUI {
		controls = ui.NewControls()
		tuiProg, err = ui.Run(a.Engine, a.Track, controls)
		if err != nil {
			log.Fatalf("Failed to start TUI: %v", err)
		}
		go tuiProg.Run()
		go handleControls(a, controls)
	}

	// Handle shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	if controls != nil {
		select {
		case <-controls.Quit:
			log.Printf("Received quit signal from TUI")
		case <-sigChan:
			log.Printf("Shutdown signal received")
		}
	} else {
		<-sigChan
		log.Printf("Shutdown signal received")
	}

	if tuiProg != nil {
		tuiProg.Quit()
	}
	a.Close()
	log.Printf("Player stopped")
}

// handleControls applies TUI actions to the audio stack
func handleControls(a *app.App, controls *ui.Controls) {
	for {
		select {
		case v := <-controls.Volume:
			a.SetVolume(v)
		case p := <-controls.Pause:
			a.SetPaused(p)
		case <-controls.Stop:
			a.Stop()
		}
	}
}
