// Package engine owns all mutable four-track state: the tracks, the mixer
// graph, the transport, the capture session and the bounce master. One
// Engine instance is constructed per session and handed to collaborators;
// presentation layers observe it through state getters and callbacks, never
// the reverse.
package engine

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/audiolibrelab/fourtrack/internal/audio"
	"github.com/audiolibrelab/fourtrack/internal/meter"
	"github.com/audiolibrelab/fourtrack/internal/mixer"
	"github.com/audiolibrelab/fourtrack/internal/playback"
	"github.com/audiolibrelab/fourtrack/internal/settings"
	"github.com/audiolibrelab/fourtrack/internal/waveform"
	"github.com/audiolibrelab/fourtrack/internal/wavio"
)

// Config carries the fixed engine parameters.
type Config struct {
	SampleRate    int
	MaxDurationMs float64
	// LookaheadMs is the scheduling margin so all sources of one transport
	// start begin in the same quantum.
	LookaheadMs float64
	// PixelsPerMs maps playhead time to waveform point positions.
	PixelsPerMs float64
}

// DefaultConfig returns the stock four-track parameters.
func DefaultConfig() Config {
	return Config{
		SampleRate:    48000,
		MaxDurationMs: 60000,
		LookaheadMs:   100,
		PixelsPerMs:   0.1,
	}
}

// Callbacks are the observer hooks consumed by presentation layers. All are
// optional.
type Callbacks struct {
	OnTransport    func(TransportState)
	OnPosition     func(ms float64)
	OnLevel        func(level float64)
	OnWaveform     func(track int, p waveform.Point)
	OnPunchInRange func(startMs, endMs float64)
}

// Engine is the multitrack audio engine.
type Engine struct {
	mutex sync.Mutex

	cfg    Config
	tracks [TrackCount]*Track
	graph  *mixer.Graph
	waves  *waveform.Model
	meter  *meter.Meter

	session captureSession
	store   *settings.Store
	output  *playback.Output

	callbacks Callbacks

	state          TransportState
	recordMode     RecordMode
	playheadMs     float64
	punchInStartMs float64
	masterBuffer   *audio.Buffer
	masterFader    float64

	previousMuteStates [TrackCount]bool

	sources   []source
	startedAt time.Time
	pollStop  chan struct{}
	bouncing  bool

	// injectable for tests; defaults to the playback-backed factory
	newSource sourceFunc
	now       func() time.Time
}

// captureSession is the slice of the capture lifecycle the engine drives.
// Implemented by audio.Session; faked in transport tests.
type captureSession interface {
	State() audio.SessionState
	Acquire(audio.Constraints) error
	SetFrameTap(func([]float32))
	Start() error
	Finalize() (*audio.Buffer, error)
	Teardown()
}

// Precondition failures surfaced to the user. All abort cleanly with no
// state mutation.
var (
	ErrNoArmedTrack     = fmt.Errorf("no track is armed for recording")
	ErrBusy             = fmt.Errorf("transport is busy")
	ErrNothingToBounce  = fmt.Errorf("no audio to bounce")
	ErrNothingToExport  = fmt.Errorf("no audio to export")
	ErrMuteWhileSoloed  = fmt.Errorf("cannot change mute while a track is soloed")
	ErrScrubWhileRecord = fmt.Errorf("cannot move the playhead while recording")
)

// New constructs the engine. The settings store provides the capture device
// and processing flags; output may be nil for headless use (bounce, export
// and mixer state still work, transport playback returns an error).
func New(cfg Config, store *settings.Store, output *playback.Output) *Engine {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = DefaultConfig().SampleRate
	}
	if cfg.MaxDurationMs <= 0 {
		cfg.MaxDurationMs = DefaultConfig().MaxDurationMs
	}
	if cfg.LookaheadMs <= 0 {
		cfg.LookaheadMs = DefaultConfig().LookaheadMs
	}
	if cfg.PixelsPerMs <= 0 {
		cfg.PixelsPerMs = DefaultConfig().PixelsPerMs
	}

	e := &Engine{
		cfg:     cfg,
		graph:   mixer.NewGraph(TrackCount),
		waves:   waveform.NewModel(TrackCount),
		meter:   meter.New(),
		session: audio.NewSession(),
		store:   store,
		output:  output,
		state:   TransportStopped,
		now:     time.Now,
	}
	e.masterFader = DefaultFader
	e.graph.SetMasterFader(DefaultFader)
	for i := range e.tracks {
		e.tracks[i] = newTrack(i + 1)
	}
	if output != nil {
		e.newSource = e.playbackSource
	}
	e.refreshRoutingLocked()
	return e
}

func (e *Engine) playbackSource(trackIndex int, buf *audio.Buffer, startFrame int, monitor bool) source {
	return e.output.NewSource(buf, e.graph.Strip(trackIndex), e.graph, startFrame, monitor)
}

// SetCallbacks installs the observer hooks.
func (e *Engine) SetCallbacks(cb Callbacks) {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	e.callbacks = cb
}

// Settings returns the engine's persisted-settings snapshot.
func (e *Engine) Settings() settings.Settings {
	if e.store == nil {
		return settings.Settings{}
	}
	return e.store.Get()
}

// captureConstraints builds the session constraints from settings.
func (e *Engine) captureConstraints() audio.Constraints {
	s := e.Settings()
	return audio.Constraints{
		DeviceID:         s.InputDeviceID,
		SampleRate:       e.cfg.SampleRate,
		EchoCancellation: s.EchoCancellation,
		NoiseSuppression: s.NoiseSuppression,
		AutoGainControl:  s.AutoGainControl,
	}
}

// AcquireCapture (re)opens the capture session for the configured device.
func (e *Engine) AcquireCapture() error {
	return e.session.Acquire(e.captureConstraints())
}

// SetInputDevice persists a new device id and re-acquires the session so the
// new device is authoritative for subsequent captures.
func (e *Engine) SetInputDevice(id string) error {
	if e.store != nil {
		if err := e.store.SetInputDevice(id); err != nil {
			return err
		}
	}
	if e.session.State() == audio.SessionNone {
		return nil
	}
	return e.AcquireCapture()
}

// track returns the 1-based track or an error.
func (e *Engine) track(id int) (*Track, error) {
	if id < 1 || id > TrackCount {
		return nil, fmt.Errorf("track id must be 1-%d, got %d", TrackCount, id)
	}
	return e.tracks[id-1], nil
}

// ToggleArm arms a track for recording, disarming any other. Arming an armed
// track disarms it.
func (e *Engine) ToggleArm(id int) error {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	t, err := e.track(id)
	if err != nil {
		return err
	}

	wasArmed := t.Armed
	for _, tr := range e.tracks {
		tr.Armed = false
	}
	t.Armed = !wasArmed

	e.refreshRoutingLocked()
	slog.Debug("Arm toggled", "track", id, "armed", t.Armed)
	return nil
}

// ToggleSolo solos a track exclusively, or un-solos it. On first engagement
// the manual mute pattern is snapshotted; disengaging restores it exactly.
func (e *Engine) ToggleSolo(id int) error {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	t, err := e.track(id)
	if err != nil {
		return err
	}

	if t.Solo {
		for i, tr := range e.tracks {
			tr.Solo = false
			tr.Muted = e.previousMuteStates[i]
			tr.ManuallyMuted = e.previousMuteStates[i]
		}
	} else {
		if !e.anySoloLocked() {
			for i, tr := range e.tracks {
				e.previousMuteStates[i] = tr.ManuallyMuted
			}
		}
		for _, tr := range e.tracks {
			tr.Solo = false
			tr.Muted = tr.ID != id
		}
		t.Solo = true
	}

	e.refreshRoutingLocked()
	slog.Debug("Solo toggled", "track", id, "solo", t.Solo)
	return nil
}

// ToggleMute flips a track's manual mute. Rejected while any track is
// soloed, because solo owns the effective mutes.
func (e *Engine) ToggleMute(id int) error {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	t, err := e.track(id)
	if err != nil {
		return err
	}
	if e.anySoloLocked() {
		return ErrMuteWhileSoloed
	}

	t.ManuallyMuted = !t.ManuallyMuted
	t.Muted = t.ManuallyMuted

	e.refreshRoutingLocked()
	return nil
}

// SetFader sets a track's fader position (0-100).
func (e *Engine) SetFader(id int, v float64) error {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	t, err := e.track(id)
	if err != nil {
		return err
	}
	if v < 0 || v > 100 {
		return fmt.Errorf("fader must be 0-100, got %v", v)
	}
	t.Fader = v
	e.refreshRoutingLocked()
	return nil
}

// SetPan sets a track's pan position (0-100, 50 center).
func (e *Engine) SetPan(id int, v float64) error {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	t, err := e.track(id)
	if err != nil {
		return err
	}
	if v < 0 || v > 100 {
		return fmt.Errorf("pan must be 0-100, got %v", v)
	}
	t.Pan = v
	e.refreshRoutingLocked()
	return nil
}

// SetMasterFader sets the output master fader (0-100, 80 unity). Applied
// live during playback; the bounce render itself always sums at unity.
func (e *Engine) SetMasterFader(v float64) error {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	if v < 0 || v > 100 {
		return fmt.Errorf("fader must be 0-100, got %v", v)
	}
	e.masterFader = v
	e.graph.SetMasterFader(v)
	return nil
}

// MasterFader returns the master fader position.
func (e *Engine) MasterFader() float64 {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	return e.masterFader
}

// ToggleReverse reverses a track's audio in place, keeping the original for
// un-reversing.
func (e *Engine) ToggleReverse(id int) error {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	t, err := e.track(id)
	if err != nil {
		return err
	}
	if !t.HasAudio() {
		return fmt.Errorf("track %d has no audio to reverse", id)
	}

	if t.Reversed {
		if t.original != nil {
			t.buffer = t.original
		} else {
			t.buffer = t.buffer.Reversed()
		}
		t.original = nil
		t.Reversed = false
	} else {
		t.original = t.buffer
		t.buffer = t.buffer.Reversed()
		t.Reversed = true
	}
	return nil
}

// ClearTrack discards a track's audio and waveform.
func (e *Engine) ClearTrack(id int) error {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	t, err := e.track(id)
	if err != nil {
		return err
	}
	t.buffer = nil
	t.original = nil
	t.Reversed = false
	e.waves.ClearTrack(id - 1)
	slog.Info("Track cleared", "track", id)
	return nil
}

// ClearAll resets the whole machine: every track's audio and mixer state,
// the bounce master and all waveform data.
func (e *Engine) ClearAll() error {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	if e.state != TransportStopped {
		return fmt.Errorf("can only clear while stopped, current: %s", e.state)
	}

	for _, t := range e.tracks {
		t.buffer = nil
		t.original = nil
		t.resetMixerState()
	}
	e.masterBuffer = nil
	e.masterFader = DefaultFader
	e.graph.SetMasterFader(DefaultFader)
	e.playheadMs = 0
	e.waves.ClearAll()
	e.refreshRoutingLocked()
	slog.Info("Cleared everything")
	return nil
}

// ImportTrack loads a WAV file into a track, replacing its audio.
func (e *Engine) ImportTrack(id int, path string) error {
	buf, err := audio.DecodeFile(path)
	if err != nil {
		return err
	}
	if buf.SampleRate != e.cfg.SampleRate {
		return fmt.Errorf("import %s: sample rate %d does not match engine rate %d",
			path, buf.SampleRate, e.cfg.SampleRate)
	}

	e.mutex.Lock()
	defer e.mutex.Unlock()

	t, err := e.track(id)
	if err != nil {
		return err
	}
	t.buffer = buf
	t.original = nil
	t.Reversed = false
	e.waves.ClearTrack(id - 1)
	slog.Info("Track imported", "track", id, "file", path, "duration", buf.Duration())
	return nil
}

// ExportTrack writes one track's audio as WAV.
func (e *Engine) ExportTrack(id int, w io.Writer) error {
	e.mutex.Lock()
	t, err := e.track(id)
	if err != nil {
		e.mutex.Unlock()
		return err
	}
	if t.buffer == nil {
		e.mutex.Unlock()
		return fmt.Errorf("track %d has no audio to export", id)
	}
	buf := t.buffer.Clone()
	e.mutex.Unlock()

	return wavio.Encode(w, buf.Data, buf.SampleRate)
}

// anySoloLocked reports whether any track is soloed. Caller holds the mutex.
func (e *Engine) anySoloLocked() bool {
	for _, t := range e.tracks {
		if t.Solo {
			return true
		}
	}
	return false
}

// refreshRoutingLocked pushes every track's effective gain and pan into its
// strip. Runs after every arm/solo/mute/fader change.
func (e *Engine) refreshRoutingLocked() {
	for i, t := range e.tracks {
		e.graph.Strip(i).Set(t.Fader, t.Pan, t.Muted)
	}
}

// TrackStates returns a snapshot of all four tracks.
func (e *Engine) TrackStates() []TrackState {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	out := make([]TrackState, 0, TrackCount)
	for _, t := range e.tracks {
		out = append(out, t.state())
	}
	return out
}

// ArmedTrack returns the armed track id, or 0 when none is armed.
func (e *Engine) ArmedTrack() int {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	return e.armedTrackLocked()
}

func (e *Engine) armedTrackLocked() int {
	for _, t := range e.tracks {
		if t.Armed {
			return t.ID
		}
	}
	return 0
}

// HasMaster reports whether a bounce master exists.
func (e *Engine) HasMaster() bool {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	return e.masterBuffer != nil
}

// Waveform exposes the waveform point model.
func (e *Engine) Waveform() *waveform.Model {
	return e.waves
}

// Level returns the current input meter level.
func (e *Engine) Level() float64 {
	return e.meter.Level()
}

// SampleRate returns the engine rate.
func (e *Engine) SampleRate() int {
	return e.cfg.SampleRate
}

// Close tears down the capture session and output.
func (e *Engine) Close() {
	_ = e.Stop()
	e.session.Teardown()
	if e.output != nil {
		if err := e.output.Close(); err != nil {
			slog.Debug("Output close", "error", err)
		}
	}
}
