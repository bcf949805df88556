package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/audiolibrelab/fourtrack/internal/settings"
)

var (
	store        *settings.Store
	settingsFile string
	sessionDir   string
	verboseLevel int
)

var rootCmd = &cobra.Command{
	Use:   "fourtrack",
	Short: "Four-track audio recorder and mixer",
	Long: `FourTrack is a CLI four-track recorder: capture takes onto four
tracks, punch in over mistakes, mix with per-track fader and pan, bounce
everything down to a stereo master and keep layering on the freed tracks.

All commands operate on a session directory (see --session) holding one
WAV per track, the bounced master and the mixer state.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		setupLogging(verboseLevel)

		// Device listing works without persisted settings
		if cmd.Name() == "devices" {
			return nil
		}

		var err error
		store, err = settings.Load(settingsFile)
		if err != nil {
			return fmt.Errorf("failed to load settings: %w", err)
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&settingsFile, "settings", "", "settings file (default is $HOME/.config/fourtrack.yaml)")
	rootCmd.PersistentFlags().StringVarP(&sessionDir, "session", "s", "fourtrack-session", "session directory holding tracks, master and mixer state")
	rootCmd.PersistentFlags().IntVarP(&verboseLevel, "verbose", "v", 0, "verbose level: 0=info, 1=debug")

	rootCmd.AddCommand(recordCmd)
	rootCmd.AddCommand(playCmd)
	rootCmd.AddCommand(bounceCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(tracksCmd)
	rootCmd.AddCommand(devicesCmd)
	rootCmd.AddCommand(configCmd)
}

// setupLogging configures slog based on the verbose level
func setupLogging(level int) {
	slogLevel := slog.LevelInfo
	if level >= 1 {
		slogLevel = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slogLevel})
	slog.SetDefault(slog.New(handler))
}
