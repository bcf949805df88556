package engine

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/audiolibrelab/fourtrack/internal/audio"
	"github.com/audiolibrelab/fourtrack/internal/playback"
	"github.com/audiolibrelab/fourtrack/internal/waveform"
)

// TransportState is the transport position in its state machine.
type TransportState string

const (
	TransportStopped   TransportState = "STOPPED"
	TransportPlaying   TransportState = "PLAYING"
	TransportPaused    TransportState = "PAUSED"
	TransportRecording TransportState = "RECORDING"
)

// RecordMode distinguishes a wholesale re-record from a punch-in overdub.
type RecordMode string

const (
	RecordFresh   RecordMode = "FRESH"
	RecordPunchIn RecordMode = "PUNCH_IN"
)

// pollInterval drives playhead updates and the duration-ceiling auto-stop.
const pollInterval = 50 * time.Millisecond

// source is the one-shot playback a transport start schedules. Implemented
// by playback.Source; faked in tests.
type source interface {
	StartAt(time.Time)
	Stop()
	State() playback.SourceState
}

type sourceFunc func(trackIndex int, buf *audio.Buffer, startFrame int, monitor bool) source

// State returns the transport state.
func (e *Engine) State() TransportState {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	return e.state
}

// Position returns the playhead in milliseconds.
func (e *Engine) Position() float64 {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	return e.currentPositionLocked()
}

func (e *Engine) currentPositionLocked() float64 {
	pos := e.playheadMs
	if e.state == TransportPlaying || e.state == TransportRecording {
		if elapsed := e.now().Sub(e.startedAt); elapsed > 0 {
			pos += float64(elapsed.Milliseconds())
		}
	}
	if pos > e.cfg.MaxDurationMs {
		pos = e.cfg.MaxDurationMs
	}
	return pos
}

func (e *Engine) frameAt(ms float64) int {
	return int(ms / 1000 * float64(e.cfg.SampleRate))
}

// Play starts synchronized playback of every track with audio. Pressing play
// while already playing restarts the set from position zero.
func (e *Engine) Play() error {
	e.mutex.Lock()

	if e.bouncing {
		e.mutex.Unlock()
		return ErrBusy
	}
	if e.state == TransportRecording {
		e.mutex.Unlock()
		return fmt.Errorf("can only play from stopped or paused state, current: %s", e.state)
	}
	if e.state == TransportPlaying {
		// Restart: stop, rewind, fall through to a fresh start
		e.stopSourcesLocked()
		e.stopPollingLocked()
		e.playheadMs = 0
	}
	if e.output == nil && e.newSource == nil {
		e.mutex.Unlock()
		return fmt.Errorf("no output device available")
	}

	if err := e.buildSourcesLocked(false); err != nil {
		e.mutex.Unlock()
		return err
	}

	e.startScheduledLocked()
	e.state = TransportPlaying
	e.startPollingLocked()
	cb := e.callbacks.OnTransport
	e.mutex.Unlock()

	slog.Info("Transport playing", "position_ms", e.Position())
	if cb != nil {
		cb(TransportPlaying)
	}
	return nil
}

// buildSourcesLocked creates one source per track with audio, starting at
// the current playhead. forRecording includes only non-armed tracks at
// monitoring gain, plus the armed track's prior audio during a punch-in.
func (e *Engine) buildSourcesLocked(forRecording bool) error {
	if e.newSource == nil {
		return fmt.Errorf("no output device available")
	}

	startFrame := e.frameAt(e.playheadMs)
	e.sources = nil
	for i, t := range e.tracks {
		if !t.HasAudio() {
			continue
		}
		if forRecording && t.Armed && e.recordMode != RecordPunchIn {
			continue
		}
		e.sources = append(e.sources, e.newSource(i, t.buffer, startFrame, forRecording))
	}
	if !forRecording && len(e.sources) == 0 {
		return fmt.Errorf("no audio to play")
	}
	return nil
}

// startScheduledLocked starts every built source at one shared deadline so
// they begin in the same processing quantum.
func (e *Engine) startScheduledLocked() {
	deadline := e.now().Add(time.Duration(e.cfg.LookaheadMs) * time.Millisecond)
	for _, s := range e.sources {
		s.StartAt(deadline)
	}
	e.startedAt = deadline
}

// stopSourcesLocked cancels all sources. Sources are one-shot; stopping an
// already-ended source is a no-op.
func (e *Engine) stopSourcesLocked() {
	for _, s := range e.sources {
		s.Stop()
	}
	e.sources = nil
}

// Pause suspends playback, retaining the playhead. The discarded sources
// cannot be reused; Play rebuilds them at the retained position.
func (e *Engine) Pause() error {
	e.mutex.Lock()

	if e.state != TransportPlaying {
		e.mutex.Unlock()
		return fmt.Errorf("can only pause while playing, current: %s", e.state)
	}

	e.playheadMs = e.currentPositionLocked()
	e.stopSourcesLocked()
	e.stopPollingLocked()
	e.state = TransportPaused
	cb := e.callbacks.OnTransport
	e.mutex.Unlock()

	slog.Info("Transport paused", "position_ms", e.playheadMs)
	if cb != nil {
		cb(TransportPaused)
	}
	return nil
}

// Stop cancels playback and any in-flight recording, rewinding to zero. An
// in-flight capture is finalized, never discarded; its decode error, if any,
// is returned after the transport has fully stopped.
func (e *Engine) Stop() error {
	e.mutex.Lock()

	recording := e.state == TransportRecording
	var mode RecordMode
	var punchStart float64
	if recording {
		mode = e.recordMode
		punchStart = e.punchInStartMs
		e.session.SetFrameTap(nil)
	}

	e.stopSourcesLocked()
	e.stopPollingLocked()
	e.graph.SetMonitoring(false)
	e.playheadMs = 0
	changed := e.state != TransportStopped
	e.state = TransportStopped
	cb := e.callbacks.OnTransport
	e.mutex.Unlock()

	var finalizeErr error
	if recording {
		finalizeErr = e.commitRecording(mode, punchStart, 0)
	}

	if changed {
		slog.Info("Transport stopped")
		if cb != nil {
			cb(TransportStopped)
		}
	}
	return finalizeErr
}

// Record starts capturing into the armed track, or stops the capture when
// already recording. Mode is punch-in exactly when the playhead is past
// zero at record-press time.
func (e *Engine) Record() error {
	e.mutex.Lock()

	if e.bouncing {
		e.mutex.Unlock()
		return ErrBusy
	}
	if e.state == TransportRecording {
		e.mutex.Unlock()
		return e.StopRecording()
	}
	if e.state == TransportPlaying {
		e.mutex.Unlock()
		return fmt.Errorf("can only record from stopped or paused state, current: %s", e.state)
	}
	if e.armedTrackLocked() == 0 {
		e.mutex.Unlock()
		return ErrNoArmedTrack
	}

	if e.session.State() != audio.SessionReady {
		e.mutex.Unlock()
		if err := e.AcquireCapture(); err != nil {
			return fmt.Errorf("capture device unavailable: %w", err)
		}
		e.mutex.Lock()
		// The mutex was dropped for the acquire; the preconditions must
		// still hold
		if e.bouncing {
			e.mutex.Unlock()
			return ErrBusy
		}
		if e.state != TransportStopped && e.state != TransportPaused {
			e.mutex.Unlock()
			return fmt.Errorf("can only record from stopped or paused state, current: %s", e.state)
		}
		if e.armedTrackLocked() == 0 {
			e.mutex.Unlock()
			return ErrNoArmedTrack
		}
	}

	if e.playheadMs > 0 {
		e.recordMode = RecordPunchIn
	} else {
		e.recordMode = RecordFresh
		// A fresh take replaces the track wholesale, old peaks included
		e.waves.ClearTrack(e.armedTrackLocked() - 1)
	}
	e.punchInStartMs = e.playheadMs

	e.session.SetFrameTap(e.captureTap)
	if err := e.session.Start(); err != nil {
		e.session.SetFrameTap(nil)
		e.mutex.Unlock()
		return err
	}

	// Existing tracks play at reduced monitoring gain to limit bleed; in
	// punch-in mode that includes the armed track's prior audio.
	e.graph.SetMonitoring(true)
	if e.newSource != nil {
		if err := e.buildSourcesLocked(true); err != nil {
			slog.Warn("Monitoring unavailable", "error", err)
		}
	}
	e.startScheduledLocked()
	e.meter.Reset()
	e.state = TransportRecording
	e.startPollingLocked()
	mode := e.recordMode
	cb := e.callbacks.OnTransport
	punchCb := e.callbacks.OnPunchInRange
	start := e.punchInStartMs
	e.mutex.Unlock()

	slog.Info("Recording started", "mode", mode, "punch_in_start_ms", start)
	if cb != nil {
		cb(TransportRecording)
	}
	if punchCb != nil && mode == RecordPunchIn {
		punchCb(start, start)
	}
	return nil
}

// StopRecording finalizes the capture and writes the result into the armed
// track. A decode failure leaves the track buffer untouched and is returned
// to the caller.
func (e *Engine) StopRecording() error {
	e.mutex.Lock()

	if e.state != TransportRecording {
		e.mutex.Unlock()
		return fmt.Errorf("no recording in progress")
	}

	mode := e.recordMode
	punchStart := e.punchInStartMs
	endPos := e.currentPositionLocked()
	e.session.SetFrameTap(nil)

	e.stopSourcesLocked()
	e.stopPollingLocked()
	e.graph.SetMonitoring(false)
	e.state = TransportStopped
	cb := e.callbacks.OnTransport
	e.mutex.Unlock()

	err := e.commitRecording(mode, punchStart, endPos)
	if cb != nil {
		cb(TransportStopped)
	}
	return err
}

// commitRecording finalizes the capture session and splices or replaces the
// armed track's audio. It must run WITHOUT the engine mutex: Finalize blocks
// until the capture worker exits, and the worker may be inside a frame tap
// that needs the mutex before it can observe the stop.
func (e *Engine) commitRecording(mode RecordMode, punchStartMs, endPosMs float64) error {
	buf, err := e.session.Finalize()
	if err != nil {
		// The armed track keeps its previous audio; no partial write
		slog.Error("Recording finalize failed", "error", err)
		return fmt.Errorf("recording lost: %w", err)
	}

	e.mutex.Lock()
	defer e.mutex.Unlock()

	armed := e.armedTrackLocked()
	if armed == 0 {
		return fmt.Errorf("recording finished with no armed track")
	}
	t := e.tracks[armed-1]

	if mode == RecordPunchIn {
		t.buffer = splice(t.buffer, buf, punchStartMs, e.cfg.SampleRate)
		// punch-in leaves the playhead where the take ended
		e.playheadMs = endPosMs
	} else {
		t.buffer = buf
		e.playheadMs = 0
	}
	t.original = nil
	t.Reversed = false

	slog.Info("Recording committed", "track", armed, "mode", mode,
		"frames", buf.Frames(), "duration", buf.Duration())
	return nil
}

// Scrub moves the playhead directly. Disabled while recording. While
// playing, the one-shot sources are discarded and rebuilt at the new
// position.
func (e *Engine) Scrub(ms float64) error {
	e.mutex.Lock()

	if e.state == TransportRecording {
		e.mutex.Unlock()
		return ErrScrubWhileRecord
	}
	if ms < 0 {
		ms = 0
	}
	if ms > e.cfg.MaxDurationMs {
		ms = e.cfg.MaxDurationMs
	}
	e.playheadMs = ms

	if e.state == TransportPlaying {
		e.stopSourcesLocked()
		if err := e.buildSourcesLocked(false); err != nil {
			e.stopPollingLocked()
			e.state = TransportStopped
			e.mutex.Unlock()
			return err
		}
		e.startScheduledLocked()
	}
	cb := e.callbacks.OnPosition
	e.mutex.Unlock()

	if cb != nil {
		cb(ms)
	}
	return nil
}

// captureTap runs on every captured chunk: level metering plus waveform
// peak capture into the armed track's point list.
func (e *Engine) captureTap(samples []float32) {
	level := e.meter.Process(samples)

	var chunkPeak float64
	for _, s := range samples {
		v := float64(s)
		if v < 0 {
			v = -v
		}
		if v > chunkPeak {
			chunkPeak = v
		}
	}

	e.mutex.Lock()
	levelCb := e.callbacks.OnLevel
	waveCb := e.callbacks.OnWaveform
	var point waveform.Point
	var armed int
	if e.state == TransportRecording {
		if armed = e.armedTrackLocked(); armed != 0 {
			point = waveform.Point{
				Position: e.currentPositionLocked() * e.cfg.PixelsPerMs,
				Peak:     chunkPeak,
			}
			e.waves.Append(armed-1, point)
		}
	}
	e.mutex.Unlock()

	if levelCb != nil {
		levelCb(level)
	}
	if waveCb != nil && armed != 0 {
		waveCb(armed, point)
	}
}

// startPollingLocked begins the coarse transport ticker: playhead updates,
// punch-in region updates and the duration-ceiling auto-stop.
func (e *Engine) startPollingLocked() {
	if e.pollStop != nil {
		return
	}
	stop := make(chan struct{})
	e.pollStop = stop

	go func() {
		ticker := time.NewTicker(pollInterval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				e.mutex.Lock()
				pos := e.currentPositionLocked()
				atCeiling := pos >= e.cfg.MaxDurationMs
				posCb := e.callbacks.OnPosition
				punchCb := e.callbacks.OnPunchInRange
				recording := e.state == TransportRecording
				punchStart := e.punchInStartMs
				punchIn := e.recordMode == RecordPunchIn
				e.mutex.Unlock()

				if posCb != nil {
					posCb(pos)
				}
				if punchCb != nil && recording && punchIn {
					punchCb(punchStart, pos)
				}
				if atCeiling {
					slog.Info("Duration ceiling reached, stopping", "ms", pos)
					if err := e.Stop(); err != nil {
						slog.Error("Auto-stop failed", "error", err)
					}
					return
				}
			}
		}
	}()
}

// stopPollingLocked cancels the ticker. Safe to call twice.
func (e *Engine) stopPollingLocked() {
	if e.pollStop != nil {
		close(e.pollStop)
		e.pollStop = nil
	}
}
