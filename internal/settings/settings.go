// Package settings persists the small set of user preferences the engine
// consumes: the selected input device and the capture processing flags.
package settings

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

const (
	keyInputDevice      = "input_device_id"
	keyEchoCancellation = "echo_cancellation"
	keyNoiseSuppression = "noise_suppression"
	keyAutoGainControl  = "auto_gain_control"
	keyFeedbackWarning  = "show_feedback_warning"
)

// Settings is the snapshot the engine reads at construction.
type Settings struct {
	InputDeviceID       string
	EchoCancellation    bool
	NoiseSuppression    bool
	AutoGainControl     bool
	ShowFeedbackWarning bool
}

// Store reads and writes settings through a single YAML file. Writes are
// flushed immediately; there is no schema versioning, just flat keys.
type Store struct {
	v    *viper.Viper
	path string
}

// DefaultPath returns the conventional settings location.
func DefaultPath() string {
	return os.ExpandEnv("$HOME/.config/fourtrack.yaml")
}

// Load opens the store, creating the file with defaults when missing.
func Load(path string) (*Store, error) {
	if path == "" {
		path = DefaultPath()
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("FOURTRACK")
	v.AutomaticEnv()

	v.SetDefault(keyInputDevice, "")
	v.SetDefault(keyEchoCancellation, true)
	v.SetDefault(keyNoiseSuppression, true)
	v.SetDefault(keyAutoGainControl, true)
	v.SetDefault(keyFeedbackWarning, true)

	if err := v.ReadInConfig(); err != nil {
		if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
			if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
				return nil, fmt.Errorf("create settings directory: %w", err)
			}
			if err := v.SafeWriteConfig(); err != nil {
				return nil, fmt.Errorf("write default settings: %w", err)
			}
		} else {
			return nil, fmt.Errorf("read settings %s: %w", path, err)
		}
	}

	return &Store{v: v, path: path}, nil
}

// Get returns the current settings snapshot.
func (s *Store) Get() Settings {
	return Settings{
		InputDeviceID:       s.v.GetString(keyInputDevice),
		EchoCancellation:    s.v.GetBool(keyEchoCancellation),
		NoiseSuppression:    s.v.GetBool(keyNoiseSuppression),
		AutoGainControl:     s.v.GetBool(keyAutoGainControl),
		ShowFeedbackWarning: s.v.GetBool(keyFeedbackWarning),
	}
}

// SetInputDevice persists a new input device id.
func (s *Store) SetInputDevice(id string) error {
	return s.write(keyInputDevice, id)
}

// SetEchoCancellation persists the echo cancellation flag.
func (s *Store) SetEchoCancellation(on bool) error {
	return s.write(keyEchoCancellation, on)
}

// SetNoiseSuppression persists the noise suppression flag.
func (s *Store) SetNoiseSuppression(on bool) error {
	return s.write(keyNoiseSuppression, on)
}

// SetAutoGainControl persists the auto gain flag.
func (s *Store) SetAutoGainControl(on bool) error {
	return s.write(keyAutoGainControl, on)
}

// SetShowFeedbackWarning persists whether the feedback warning should show.
func (s *Store) SetShowFeedbackWarning(on bool) error {
	return s.write(keyFeedbackWarning, on)
}

func (s *Store) write(key string, value any) error {
	s.v.Set(key, value)
	if err := s.v.WriteConfig(); err != nil {
		return fmt.Errorf("write settings %s: %w", s.path, err)
	}
	return nil
}

// Path returns the backing file location.
func (s *Store) Path() string {
	return s.path
}
