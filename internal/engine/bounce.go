package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/audiolibrelab/fourtrack/internal/mixer"
	"github.com/audiolibrelab/fourtrack/internal/waveform"
	"github.com/audiolibrelab/fourtrack/internal/wavio"
)

// masterWavePoints is the resolution of a master waveform derived without
// prior per-track points.
const masterWavePoints = 200

// Bounce renders all audible tracks plus any prior master into a single
// stereo master buffer, then destructively clears the tracks. Bounce is
// additive: earlier bounced content is part of every later bounce. When any
// track is soloed, only soloed tracks are mixed.
func (e *Engine) Bounce(ctx context.Context) error {
	e.mutex.Lock()

	if e.state == TransportPlaying || e.state == TransportRecording {
		e.mutex.Unlock()
		return fmt.Errorf("can only bounce while stopped or paused, current: %s", e.state)
	}
	if e.bouncing {
		e.mutex.Unlock()
		return ErrBusy
	}

	// A paused transport bounces too; the pending sources are gone along
	// with the tracks they played
	var transportCb func(TransportState)
	if e.state == TransportPaused {
		e.stopSourcesLocked()
		e.playheadMs = 0
		e.state = TransportStopped
		transportCb = e.callbacks.OnTransport
	}

	soloed := e.anySoloLocked()
	var sources []mixer.RenderSource
	for _, t := range e.tracks {
		if !t.HasAudio() {
			continue
		}
		if soloed && !t.Solo {
			continue
		}
		sources = append(sources, mixer.RenderSource{
			Buffer: t.buffer,
			Fader:  t.Fader,
			Pan:    t.Pan,
		})
	}
	prior := e.masterBuffer
	if len(sources) == 0 && prior == nil {
		e.mutex.Unlock()
		return ErrNothingToBounce
	}

	e.bouncing = true
	e.mutex.Unlock()

	if transportCb != nil {
		transportCb(TransportStopped)
	}

	started := time.Now()
	rendered, err := mixer.RenderOffline(ctx, prior, sources, e.cfg.SampleRate)

	e.mutex.Lock()
	defer e.mutex.Unlock()
	e.bouncing = false

	if err != nil {
		return fmt.Errorf("bounce render: %w", err)
	}

	e.masterBuffer = rendered
	e.remapMasterWaveformLocked()

	// Destructive reset: track audio, mixer state and per-track waveforms
	// are gone, the mix lives on only in the master
	for _, t := range e.tracks {
		t.buffer = nil
		t.original = nil
		t.resetMixerState()
	}
	e.waves.ClearTracks()
	e.refreshRoutingLocked()

	slog.Info("Bounce complete",
		"duration", rendered.Duration(),
		"render_time", time.Since(started),
		"tracks_mixed", len(sources),
		"had_prior_master", prior != nil)
	return nil
}

// remapMasterWaveformLocked derives the master waveform from the rendered
// buffer. When prior per-track points exist their exact timeline positions
// are re-sampled, preserving the visual layout across the bounce; otherwise
// evenly spaced peaks are taken.
func (e *Engine) remapMasterWaveformLocked() {
	buf := e.masterBuffer
	if buf == nil || buf.Frames() == 0 {
		return
	}

	positions := e.waves.Positions()
	if len(positions) > 0 {
		points := make([]waveform.Point, 0, len(positions))
		window := e.frameAt(1 / e.cfg.PixelsPerMs)
		if window < 1 {
			window = 1
		}
		for _, pos := range positions {
			frame := e.frameAt(pos / e.cfg.PixelsPerMs)
			points = append(points, waveform.Point{
				Position: pos,
				Peak:     float64(buf.Peak(frame, frame+window)),
			})
		}
		e.waves.SetMaster(points)
		return
	}

	points := make([]waveform.Point, 0, masterWavePoints)
	step := buf.Frames() / masterWavePoints
	if step < 1 {
		step = 1
	}
	msPerFrame := 1000 / float64(e.cfg.SampleRate)
	for frame := 0; frame < buf.Frames(); frame += step {
		points = append(points, waveform.Point{
			Position: float64(frame) * msPerFrame * e.cfg.PixelsPerMs,
			Peak:     float64(buf.Peak(frame, frame+step)),
		})
	}
	e.waves.SetMaster(points)
}

// Export writes the final mix as a PCM16 WAV: the bounce master when one
// exists, otherwise a live mix of the current tracks rendered on the fly.
func (e *Engine) Export(ctx context.Context, w io.Writer) error {
	e.mutex.Lock()
	master := e.masterBuffer
	var sources []mixer.RenderSource
	if master == nil {
		soloed := e.anySoloLocked()
		for _, t := range e.tracks {
			if !t.HasAudio() || (soloed && !t.Solo) {
				continue
			}
			sources = append(sources, mixer.RenderSource{Buffer: t.buffer, Fader: t.Fader, Pan: t.Pan})
		}
	}
	e.mutex.Unlock()

	if master == nil {
		if len(sources) == 0 {
			return ErrNothingToExport
		}
		mix, err := mixer.RenderOffline(ctx, nil, sources, e.cfg.SampleRate)
		if err != nil {
			return fmt.Errorf("export render: %w", err)
		}
		master = mix
	}

	return wavio.Encode(w, master.Data, master.SampleRate)
}

// ExportFilename returns the conventional timestamped export name.
func ExportFilename(now time.Time) string {
	return "fourtrack-mix-" + now.Format("20060102-150405") + ".wav"
}
