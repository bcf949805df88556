package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/audiolibrelab/fourtrack/internal/engine"
)

var recordPunchInMs float64

var recordCmd = &cobra.Command{
	Use:   "record [track]",
	Short: "Record onto a track",
	Long: `Record from the configured input device onto one of the four tracks.
A fresh recording replaces the track's audio. With --punch-in the new take
is spliced into the existing audio at the given position; everything
outside the punched window is preserved.

Recording stops on Ctrl+C or at the 60 second ceiling.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		track, err := parseTrackID(args[0])
		if err != nil {
			return err
		}

		e, closeEngine, err := openEngine(true)
		if err != nil {
			return err
		}
		defer closeEngine()

		if err := e.ToggleArm(track); err != nil {
			return err
		}
		if recordPunchInMs > 0 {
			if err := e.Scrub(recordPunchInMs); err != nil {
				return err
			}
		}

		if s := e.Settings(); s.ShowFeedbackWarning {
			fmt.Println("⚠️  Use headphones while recording to avoid feedback from track monitoring.")
		}

		e.SetCallbacks(engine.Callbacks{
			OnLevel: printLevel,
			OnPunchInRange: func(startMs, endMs float64) {
				slog.Debug("Punch-in window", "start_ms", startMs, "end_ms", endMs)
			},
		})

		slog.Info("Record command started", "track", track, "punch_in_ms", recordPunchInMs)
		if err := e.Record(); err != nil {
			return fmt.Errorf("failed to start recording: %w", err)
		}
		fmt.Printf("🔴 Recording on track %d - Press Ctrl+C to stop\n", track)

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
				// The transport auto-stops at the duration ceiling
				if e.State() != engine.TransportRecording {
					break wait
				}
			}
		}
		fmt.Println()

		if err := e.Stop(); err != nil {
			return fmt.Errorf("recording failed: %w", err)
		}
		if err := saveSession(e); err != nil {
			return err
		}
		fmt.Printf("✅ Take saved to track %d\n", track)
		return nil
	},
}

func init() {
	recordCmd.Flags().Float64Var(&recordPunchInMs, "punch-in", 0, "splice the take into the track at this position (milliseconds)")
}

// parseTrackID validates a 1-4 track argument.
func parseTrackID(arg string) (int, error) {
	id, err := strconv.Atoi(arg)
	if err != nil || id < 1 || id > engine.TrackCount {
		return 0, fmt.Errorf("track must be 1-%d, got %q", engine.TrackCount, arg)
	}
	return id, nil
}

// printLevel draws a one-line input meter.
func printLevel(level float64) {
	const width = 30
	filled := int(level * float64(width))
	if filled > width {
		filled = width
	}
	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	fmt.Printf("\r  IN [%s] %3.0f%%", bar, level*100)
}
