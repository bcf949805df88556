package engine

import (
	"github.com/audiolibrelab/fourtrack/internal/audio"
)

// TrackCount is fixed: this is a four-track.
const TrackCount = 4

const (
	// DefaultFader is the unity fader position.
	DefaultFader = 80.0
	// DefaultPan is centered.
	DefaultPan = 50.0
)

// Track is one of the four recording destinations. Muted is the effective
// mute applied to the strip; ManuallyMuted is the user's intent, which solo
// overrides without destroying.
type Track struct {
	ID            int
	Armed         bool
	Solo          bool
	Muted         bool
	ManuallyMuted bool
	Reversed      bool
	Fader         float64
	Pan           float64

	buffer   *audio.Buffer
	original *audio.Buffer
}

func newTrack(id int) *Track {
	return &Track{ID: id, Fader: DefaultFader, Pan: DefaultPan}
}

// HasAudio reports whether the track holds a recorded buffer.
func (t *Track) HasAudio() bool {
	return t.buffer != nil && t.buffer.Frames() > 0
}

func (t *Track) resetMixerState() {
	t.Armed = false
	t.Solo = false
	t.Muted = false
	t.ManuallyMuted = false
	t.Reversed = false
	t.Fader = DefaultFader
	t.Pan = DefaultPan
}

// TrackState is the read-only snapshot exposed to presentation layers.
type TrackState struct {
	ID            int     `json:"id" yaml:"id"`
	Armed         bool    `json:"armed" yaml:"armed"`
	Solo          bool    `json:"solo" yaml:"solo"`
	Muted         bool    `json:"muted" yaml:"muted"`
	ManuallyMuted bool    `json:"manually_muted" yaml:"manually_muted"`
	Reversed      bool    `json:"reversed" yaml:"reversed"`
	Fader         float64 `json:"fader" yaml:"fader"`
	Pan           float64 `json:"pan" yaml:"pan"`
	HasAudio      bool    `json:"has_audio" yaml:"has_audio"`
	DurationMs    float64 `json:"duration_ms" yaml:"duration_ms"`
}

func (t *Track) state() TrackState {
	s := TrackState{
		ID:            t.ID,
		Armed:         t.Armed,
		Solo:          t.Solo,
		Muted:         t.Muted,
		ManuallyMuted: t.ManuallyMuted,
		Reversed:      t.Reversed,
		Fader:         t.Fader,
		Pan:           t.Pan,
		HasAudio:      t.HasAudio(),
	}
	if t.buffer != nil {
		s.DurationMs = float64(t.buffer.Duration().Milliseconds())
	}
	return s
}
