package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gordonklaus/portaudio"

	"github.com/audiolibrelab/fourtrack/internal/engine"
	"github.com/audiolibrelab/fourtrack/internal/playback"
)

// openEngine builds an engine on the current session directory. withAudio
// opens the capture and playback devices; headless commands (bounce, export,
// tracks) skip device setup entirely. The returned closeFn tears everything
// down and must run even on error paths.
func openEngine(withAudio bool) (*engine.Engine, func(), error) {
	cfg := engine.DefaultConfig()

	var output *playback.Output
	var paInit bool
	closeFn := func() {}

	if withAudio {
		if err := portaudio.Initialize(); err != nil {
			return nil, nil, fmt.Errorf("audio system init: %w", err)
		}
		paInit = true

		var err error
		output, err = playback.NewOutput(cfg.SampleRate)
		if err != nil {
			_ = portaudio.Terminate()
			return nil, nil, err
		}
	}

	e := engine.New(cfg, store, output)
	closeFn = func() {
		e.Close()
		if paInit {
			if err := portaudio.Terminate(); err != nil {
				slog.Debug("Audio system teardown", "error", err)
			}
		}
	}

	if err := loadSessionIfPresent(e); err != nil {
		closeFn()
		return nil, nil, err
	}
	return e, closeFn, nil
}

// loadSessionIfPresent restores the session directory when it exists; a
// missing directory just means a fresh session.
func loadSessionIfPresent(e *engine.Engine) error {
	if _, err := os.Stat(filepath.Join(sessionDir, "session.yaml")); os.IsNotExist(err) {
		slog.Debug("No session to load", "dir", sessionDir)
		return nil
	}
	if err := e.LoadSession(sessionDir); err != nil {
		return fmt.Errorf("failed to load session %s: %w", sessionDir, err)
	}
	return nil
}

// saveSession persists the engine state back to the session directory.
func saveSession(e *engine.Engine) error {
	if err := e.SaveSession(sessionDir); err != nil {
		return fmt.Errorf("failed to save session %s: %w", sessionDir, err)
	}
	return nil
}
