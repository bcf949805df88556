package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/audiolibrelab/fourtrack/internal/engine"
)

var playFromMs float64

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Play back the session",
	Long: `Play every track with audio through the mixer: per-track fader and
pan applied live byte by byte. All tracks start sample-synchronized.

Playback stops on Ctrl+C or when the longest track ends.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, closeEngine, err := openEngine(true)
		if err != nil {
			return err
		}
		defer closeEngine()

		if playFromMs > 0 {
			if err := e.Scrub(playFromMs); err != nil {
				return err
			}
		}

		longest := longestTrackMs(e)
		slog.Info("Play command started", "from_ms", playFromMs, "longest_track_ms", longest)
		if err := e.Play(); err != nil {
			return fmt.Errorf("failed to start playback: %w", err)
		}
		fmt.Println("▶️  Playing - Press Ctrl+C to stop")

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(sigChan)

		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
	wait:
		for {
			select {
			case <-sigChan:
				break wait
			case <-ticker.C:
				pos := e.Position()
				fmt.Printf("\r  %6.1fs", pos/1000)
				if pos >= longest {
					break wait
				}
			}
		}
		fmt.Println()

		return e.Stop()
	},
}

func init() {
	playCmd.Flags().Float64Var(&playFromMs, "from", 0, "start position in milliseconds")
}

// longestTrackMs returns the duration of the longest recorded track.
func longestTrackMs(e *engine.Engine) float64 {
	var longest float64
	for _, s := range e.TrackStates() {
		if s.DurationMs > longest {
			longest = s.DurationMs
		}
	}
	return longest
}
