package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/audiolibrelab/fourtrack/internal/engine"
)

var tracksCmd = &cobra.Command{
	Use:   "tracks",
	Short: "Show and adjust the four tracks",
	Long:  `Show the mixer state of the four tracks, or adjust one with the subcommands.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, closeEngine, err := openEngine(false)
		if err != nil {
			return err
		}
		defer closeEngine()

		fmt.Println("🎚️  Tracks")
		fmt.Println("───────────────────────────────────────────────")
		for _, s := range e.TrackStates() {
			audio := "empty"
			if s.HasAudio {
				audio = fmt.Sprintf("%.1fs", s.DurationMs/1000)
				if s.Reversed {
					audio += " (reversed)"
				}
			}
			muted := " "
			if s.ManuallyMuted {
				muted = "M"
			}
			fmt.Printf("  %d [%s] fader %3.0f  pan %3.0f  %s\n", s.ID, muted, s.Fader, s.Pan, audio)
		}
		fmt.Printf("  out  fader %3.0f\n", e.MasterFader())
		if e.HasMaster() {
			fmt.Println("  ★ master present (bounced)")
		}
		return nil
	},
}

// trackOp runs a single mixer mutation and persists the session.
func trackOp(arg string, op func(e *engine.Engine, id int) error) error {
	id, err := parseTrackID(arg)
	if err != nil {
		return err
	}

	e, closeEngine, err := openEngine(false)
	if err != nil {
		return err
	}
	defer closeEngine()

	if err := op(e, id); err != nil {
		return err
	}
	return saveSession(e)
}

var tracksMuteCmd = &cobra.Command{
	Use:   "mute [track]",
	Short: "Toggle a track's mute",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return trackOp(args[0], func(e *engine.Engine, id int) error {
			return e.ToggleMute(id)
		})
	},
}

var tracksFaderCmd = &cobra.Command{
	Use:   "fader [track] [value]",
	Short: "Set a track's fader (0-100, 80 is unity)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return fmt.Errorf("fader value must be a number, got %q", args[1])
		}
		return trackOp(args[0], func(e *engine.Engine, id int) error {
			return e.SetFader(id, v)
		})
	},
}

var tracksPanCmd = &cobra.Command{
	Use:   "pan [track] [value]",
	Short: "Set a track's pan (0-100, 50 is center)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return fmt.Errorf("pan value must be a number, got %q", args[1])
		}
		return trackOp(args[0], func(e *engine.Engine, id int) error {
			return e.SetPan(id, v)
		})
	},
}

var tracksMasterCmd = &cobra.Command{
	Use:   "master [value]",
	Short: "Set the output master fader (0-100, 80 is unity)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			return fmt.Errorf("fader value must be a number, got %q", args[0])
		}

		e, closeEngine, err := openEngine(false)
		if err != nil {
			return err
		}
		defer closeEngine()

		if err := e.SetMasterFader(v); err != nil {
			return err
		}
		return saveSession(e)
	},
}

var tracksReverseCmd = &cobra.Command{
	Use:   "reverse [track]",
	Short: "Toggle a track's reverse playback",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return trackOp(args[0], func(e *engine.Engine, id int) error {
			return e.ToggleReverse(id)
		})
	},
}

var tracksClearCmd = &cobra.Command{
	Use:   "clear [track]",
	Short: "Clear a track, or everything with --all",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		all, _ := cmd.Flags().GetBool("all")
		if all {
			e, closeEngine, err := openEngine(false)
			if err != nil {
				return err
			}
			defer closeEngine()
			if err := e.ClearAll(); err != nil {
				return err
			}
			return saveSession(e)
		}
		if len(args) != 1 {
			return fmt.Errorf("specify a track or --all")
		}
		return trackOp(args[0], func(e *engine.Engine, id int) error {
			return e.ClearTrack(id)
		})
	},
}

var tracksImportCmd = &cobra.Command{
	Use:   "import [track] [file]",
	Short: "Load a WAV file onto a track",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return trackOp(args[0], func(e *engine.Engine, id int) error {
			return e.ImportTrack(id, args[1])
		})
	},
}

var tracksExportCmd = &cobra.Command{
	Use:   "export [track] [file]",
	Short: "Write one track's audio as a WAV file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseTrackID(args[0])
		if err != nil {
			return err
		}

		e, closeEngine, err := openEngine(false)
		if err != nil {
			return err
		}
		defer closeEngine()

		f, err := os.Create(args[1])
		if err != nil {
			return fmt.Errorf("create track file: %w", err)
		}
		if err := e.ExportTrack(id, f); err != nil {
			f.Close()
			os.Remove(args[1])
			return err
		}
		return f.Close()
	},
}

func init() {
	tracksClearCmd.Flags().Bool("all", false, "clear all tracks, the master and the mixer state")

	tracksCmd.AddCommand(tracksMuteCmd)
	tracksCmd.AddCommand(tracksFaderCmd)
	tracksCmd.AddCommand(tracksPanCmd)
	tracksCmd.AddCommand(tracksMasterCmd)
	tracksCmd.AddCommand(tracksReverseCmd)
	tracksCmd.AddCommand(tracksClearCmd)
	tracksCmd.AddCommand(tracksImportCmd)
	tracksCmd.AddCommand(tracksExportCmd)
}
