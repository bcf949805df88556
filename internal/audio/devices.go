package audio

import (
	"fmt"

	"github.com/gordonklaus/portaudio"
)

// Device describes a capture device exposed by the host.
type Device struct {
	ID                string  `json:"id"`
	Name              string  `json:"name"`
	MaxInputChannels  int     `json:"max_input_channels"`
	DefaultSampleRate float64 `json:"default_sample_rate"`
	Default           bool    `json:"default"`
}

// ListInputDevices enumerates devices with at least one input channel. The
// portaudio library must already be initialized.
func ListInputDevices() ([]Device, error) {
	infos, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	defaultDev, err := portaudio.DefaultInputDevice()
	if err != nil {
		// No default input is not fatal, the list is still useful
		defaultDev = nil
	}

	var devices []Device
	for _, info := range infos {
		if info.MaxInputChannels < 1 {
			continue
		}
		devices = append(devices, Device{
			ID:                info.Name,
			Name:              info.Name,
			MaxInputChannels:  info.MaxInputChannels,
			DefaultSampleRate: info.DefaultSampleRate,
			Default:           defaultDev != nil && info.Name == defaultDev.Name,
		})
	}
	return devices, nil
}

// findInputDevice resolves a device id to its portaudio info. An empty id
// selects the default input device.
func findInputDevice(id string) (*portaudio.DeviceInfo, error) {
	if id == "" {
		info, err := portaudio.DefaultInputDevice()
		if err != nil {
			return nil, fmt.Errorf("default input device: %w", err)
		}
		return info, nil
	}

	infos, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	for _, info := range infos {
		if info.Name == id && info.MaxInputChannels > 0 {
			return info, nil
		}
	}
	return nil, fmt.Errorf("input device not found: %s", id)
}
