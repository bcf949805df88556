package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
)

var bounceSoloTrack int

var bounceCmd = &cobra.Command{
	Use:   "bounce",
	Short: "Bounce all tracks down to the master",
	Long: `Mix every audible track - plus any previously bounced master - into a
single stereo master, then clear the four tracks for the next layer.

Bouncing is destructive: the individual takes are gone afterwards, the
mix lives on only in the master. With --solo only the soloed track is
mixed; the others are discarded.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, closeEngine, err := openEngine(false)
		if err != nil {
			return err
		}
		defer closeEngine()

		if bounceSoloTrack > 0 {
			if err := e.ToggleSolo(bounceSoloTrack); err != nil {
				return err
			}
		}

		slog.Info("Bounce command started", "solo", bounceSoloTrack)
		if err := e.Bounce(cmd.Context()); err != nil {
			return fmt.Errorf("bounce failed: %w", err)
		}
		if err := saveSession(e); err != nil {
			return err
		}
		fmt.Println("✅ Bounced to master - tracks are free for the next layer")
		return nil
	},
}

func init() {
	bounceCmd.Flags().IntVar(&bounceSoloTrack, "solo", 0, "bounce only this track")
}
