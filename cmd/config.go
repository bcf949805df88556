package cmd

import (
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage settings",
	Long:  `View and manage the persisted FourTrack settings.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		s := store.Get()
		out, err := yaml.Marshal(map[string]any{
			"input_device_id":       s.InputDeviceID,
			"echo_cancellation":     s.EchoCancellation,
			"noise_suppression":     s.NoiseSuppression,
			"auto_gain_control":     s.AutoGainControl,
			"show_feedback_warning": s.ShowFeedbackWarning,
		})
		if err != nil {
			return fmt.Errorf("error marshaling settings: %w", err)
		}
		fmt.Printf("# %s\n%s", store.Path(), out)
		return nil
	},
}

var configDeviceCmd = &cobra.Command{
	Use:   "device [id]",
	Short: "Select the input device (empty id for the system default)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := ""
		if len(args) == 1 {
			id = args[0]
		}
		if err := store.SetInputDevice(id); err != nil {
			return err
		}
		if id == "" {
			fmt.Println("Using the system default input device")
		} else {
			fmt.Printf("Input device set to %q\n", id)
		}
		return nil
	},
}

var configProcessingCmd = &cobra.Command{
	Use:   "processing [echo|noise|gain|warning] [on|off]",
	Short: "Toggle a capture processing flag",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		on, err := strconv.ParseBool(normalizeSwitch(args[1]))
		if err != nil {
			return fmt.Errorf("value must be on or off, got %q", args[1])
		}

		switch args[0] {
		case "echo":
			err = store.SetEchoCancellation(on)
		case "noise":
			err = store.SetNoiseSuppression(on)
		case "gain":
			err = store.SetAutoGainControl(on)
		case "warning":
			err = store.SetShowFeedbackWarning(on)
		default:
			return fmt.Errorf("unknown flag %q (echo, noise, gain, warning)", args[0])
		}
		if err != nil {
			return err
		}
		fmt.Printf("%s set to %v\n", args[0], on)
		return nil
	},
}

func normalizeSwitch(v string) string {
	switch v {
	case "on":
		return "true"
	case "off":
		return "false"
	}
	return v
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configDeviceCmd)
	configCmd.AddCommand(configProcessingCmd)
}
