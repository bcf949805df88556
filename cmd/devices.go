package cmd

import (
	"fmt"
	"log/slog"

	"github.com/gordonklaus/portaudio"
	"github.com/spf13/cobra"

	"github.com/audiolibrelab/fourtrack/internal/audio"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List available input devices",
	Long:  `List all capture devices the engine can record from. The device id goes into 'config device'.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := portaudio.Initialize(); err != nil {
			return fmt.Errorf("audio system init: %w", err)
		}
		defer func() {
			if err := portaudio.Terminate(); err != nil {
				slog.Debug("Audio system teardown", "error", err)
			}
		}()

		devices, err := audio.ListInputDevices()
		if err != nil {
			return fmt.Errorf("failed to list devices: %w", err)
		}

		fmt.Printf("🎤 Input devices (%d found):\n", len(devices))
		for i, d := range devices {
			marker := " "
			if d.Default {
				marker = "*"
			}
			fmt.Printf("  %s %d. %s (%d ch, %.0f Hz)\n",
				marker, i+1, d.Name, d.MaxInputChannels, d.DefaultSampleRate)
		}
		if len(devices) > 0 {
			fmt.Println("\n  * default device")
		}
		return nil
	},
}
