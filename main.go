// ABOUTME: Entry point for the standalone audio player
// ABOUTME: Parses CLI flags and wires the manager, control server, and TUI
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/Factorio-Access/launcher-audio/internal/control"
	"github.com/Factorio-Access/launcher-audio/internal/ui"
	"github.com/Factorio-Access/launcher-audio/pkg/launcheraudio"
)

var (
	listenAddr = flag.String("listen", ":8973", "Control server listen address")
	soundsDir  = flag.String("sounds", "sounds", "Directory holding encoded sound files")
	device     = flag.String("device", "malgo", "Audio output: malgo, oto, or none")
	logFile    = flag.String("log-file", "fa-audio-player.log", "Log file path")
	noTUI      = flag.Bool("no-tui", false, "Disable TUI, use streaming logs and the stdin command pipe")
	streamLogs = flag.Bool("stream-logs", false, "Alias for -no-tui")
	noCache    = flag.Bool("no-cache", false, "Reload sound bytes on every use")
	advertise  = flag.Bool("advertise", false, "Advertise the control endpoint over mDNS")
	name       = flag.String("name", "", "mDNS instance name (default: hostname-fa-audio)")
)

func main() {
	flag.Parse()

	useTUI := !(*noTUI || *streamLogs)

	// Set up logging
	f, err := os.OpenFile(*logFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		log.Fatalf("error opening log file: %v", err)
	}
	defer func() { _ = f.Close() }()

	if useTUI {
		// TUI mode: log only to file, the terminal belongs to bubbletea
		log.SetOutput(f)
	} else {
		log.SetOutput(io.MultiWriter(os.Stdout, f))
	}

	playerName := *name
	if playerName == "" {
		hostname, err := os.Hostname()
		if err != nil {
			hostname = "unknown"
		}
		playerName = fmt.Sprintf("%s-fa-audio", hostname)
	}

	log.Printf("Starting audio player %s (sounds: %s, device: %s)", playerName, *soundsDir, *device)

	manager, err := launcheraudio.NewManager(launcheraudio.Config{
		Loader:       dirLoader(*soundsDir),
		DisableCache: *noCache,
		Device:       *device,
	})
	if err != nil {
		log.Fatalf("Failed to start audio engine: %v", err)
	}

	ctrl := control.New(control.Config{
		Addr:      *listenAddr,
		Advertise: *advertise,
		Name:      playerName,
	}, manager)
	if err := ctrl.Start(); err != nil {
		log.Fatalf("Failed to start control server: %v", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	if useTUI {
		// The TUI blocks until the user quits; signals still interrupt.
		done := make(chan struct{})
		go func() {
			defer close(done)
			if err := ui.Run(manager, playerName, ctrl.Addr().String()); err != nil {
				log.Printf("TUI error: %v", err)
			}
		}()
		select {
		case <-done:
			log.Printf("TUI quit")
		case <-sigChan:
			log.Printf("Shutdown signal received")
		}
	} else {
		// Headless mode reads line-delimited JSON commands from stdin,
		// the launcher's one-way pipe. A closed pipe shuts us down.
		stdinDone := make(chan struct{})
		go func() {
			defer close(stdinDone)
			runStdinPipe(manager)
		}()
		select {
		case <-stdinDone:
			log.Printf("Command pipe closed")
		case <-sigChan:
			log.Printf("Shutdown signal received")
		}
	}

	ctrl.Stop()
	if err := manager.Close(); err != nil {
		log.Printf("Error closing audio engine: %v", err)
	}
	log.Printf("Player stopped")
}

// runStdinPipe submits each non-empty stdin line as one JSON command.
func runStdinPipe(manager *launcheraudio.Manager) {
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if err := manager.Submit(line); err != nil {
			log.Printf("Rejected stdin command: %v", err)
		}
	}
	if err := scanner.Err(); err != nil {
		log.Printf("Stdin read error: %v", err)
	}
}

// dirLoader resolves sound names inside a directory, rejecting names
// that escape it.
func dirLoader(dir string) launcheraudio.Loader {
	return func(name string) ([]byte, error) {
		clean := filepath.Clean(name)
		if filepath.IsAbs(clean) || strings.HasPrefix(clean, "..") {
			return nil, fmt.Errorf("invalid sound name %q", name)
		}
		data, err := os.ReadFile(filepath.Join(dir, clean))
		if err != nil {
			return nil, fmt.Errorf("failed to load sound %q: %w", name, err)
		}
		return data, nil
	}
}
