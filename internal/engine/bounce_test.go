package engine

import (
	"bytes"
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/audiolibrelab/fourtrack/internal/waveform"
)

// center pan sends cos(pi/4) of the signal to each side
const centerPanGain = 0.70710678

func TestBounceDurationIsLongestTrack(t *testing.T) {
	e := newTestEngine()
	loadTrack(e, 1, 48000, 0.1) // 1s
	loadTrack(e, 2, 96000, 0.2) // 2s

	if err := e.Bounce(context.Background()); err != nil {
		t.Fatalf("bounce failed: %v", err)
	}
	if !e.HasMaster() {
		t.Fatal("no master after bounce")
	}
	if e.masterBuffer.Frames() != 96000 {
		t.Errorf("master frames = %d, want 96000", e.masterBuffer.Frames())
	}
	if e.masterBuffer.Channels() != 2 {
		t.Errorf("master channels = %d, want 2", e.masterBuffer.Channels())
	}
}

func TestBounceIsDestructive(t *testing.T) {
	e := newTestEngine()
	loadTrack(e, 1, 48000, 0.1)
	if err := e.SetFader(1, 40); err != nil {
		t.Fatalf("fader failed: %v", err)
	}
	if err := e.ToggleMute(2); err != nil {
		t.Fatalf("mute failed: %v", err)
	}
	e.waves.Append(0, waveform.Point{Position: 10, Peak: 0.5})

	if err := e.Bounce(context.Background()); err != nil {
		t.Fatalf("bounce failed: %v", err)
	}

	for _, s := range e.TrackStates() {
		if s.HasAudio {
			t.Errorf("track %d still has audio after bounce", s.ID)
		}
		if s.Fader != DefaultFader || s.Pan != DefaultPan {
			t.Errorf("track %d mixer state not reset: fader=%v pan=%v", s.ID, s.Fader, s.Pan)
		}
		if s.Muted || s.ManuallyMuted || s.Solo || s.Armed {
			t.Errorf("track %d flags not reset: %+v", s.ID, s)
		}
	}
	if pts := e.Waveform().Track(0); len(pts) != 0 {
		t.Errorf("per-track waveform survived bounce: %d points", len(pts))
	}
	if pts := e.Waveform().Master(); len(pts) == 0 {
		t.Error("no master waveform after bounce")
	}
}

func TestBounceIsAdditive(t *testing.T) {
	e := newTestEngine()
	loadTrack(e, 1, 48000, 0.1)
	if err := e.Bounce(context.Background()); err != nil {
		t.Fatalf("first bounce failed: %v", err)
	}

	loadTrack(e, 2, 48000, 0.2)
	if err := e.Bounce(context.Background()); err != nil {
		t.Fatalf("second bounce failed: %v", err)
	}

	// Fader default is unity, pan centered; prior master mixes at unity
	want := 0.1*centerPanGain + 0.2*centerPanGain
	got := float64(e.masterBuffer.Data[0][24000])
	if math.Abs(got-want) > 1e-3 {
		t.Errorf("additive master sample = %v, want %v", got, want)
	}
}

func TestBounceHonorsSolo(t *testing.T) {
	e := newTestEngine()
	loadTrack(e, 1, 48000, 0.1)
	loadTrack(e, 2, 96000, 0.2)
	if err := e.ToggleSolo(2); err != nil {
		t.Fatalf("solo failed: %v", err)
	}

	if err := e.Bounce(context.Background()); err != nil {
		t.Fatalf("bounce failed: %v", err)
	}

	want := 0.2 * centerPanGain
	got := float64(e.masterBuffer.Data[0][24000])
	if math.Abs(got-want) > 1e-3 {
		t.Errorf("soloed bounce sample = %v, want only the soloed track (%v)", got, want)
	}
}

func TestBouncePreconditions(t *testing.T) {
	e := newTestEngine()

	if err := e.Bounce(context.Background()); !errors.Is(err, ErrNothingToBounce) {
		t.Errorf("expected ErrNothingToBounce, got %v", err)
	}

	e.mutex.Lock()
	e.state = TransportPlaying
	e.mutex.Unlock()
	if err := e.Bounce(context.Background()); err == nil {
		t.Error("expected error bouncing while playing")
	}
	e.mutex.Lock()
	e.state = TransportStopped
	e.mutex.Unlock()
}

func TestBounceFromPaused(t *testing.T) {
	e, _, _ := newPlaybackTestEngine(t)
	loadTrack(e, 1, 96000, 0.2)
	if err := e.Play(); err != nil {
		t.Fatalf("play failed: %v", err)
	}
	if err := e.Pause(); err != nil {
		t.Fatalf("pause failed: %v", err)
	}

	if err := e.Bounce(context.Background()); err != nil {
		t.Fatalf("bounce from paused failed: %v", err)
	}
	if e.State() != TransportStopped {
		t.Errorf("state = %s after bounce, want STOPPED", e.State())
	}
	if !e.HasMaster() {
		t.Fatal("no master after bounce")
	}
	if pos := e.Position(); pos != 0 {
		t.Errorf("position = %v after bounce, want 0", pos)
	}
}

func TestBounceCancellation(t *testing.T) {
	e := newTestEngine()
	loadTrack(e, 1, 480000, 0.1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := e.Bounce(ctx); err == nil {
		t.Fatal("expected cancellation error")
	}
	// A cancelled bounce must not have committed anything
	if e.HasMaster() {
		t.Error("cancelled bounce still produced a master")
	}
	if !e.TrackStates()[0].HasAudio {
		t.Error("cancelled bounce destroyed track audio")
	}
}

func TestMasterWaveformKeepsPointPositions(t *testing.T) {
	e := newTestEngine()
	loadTrack(e, 1, 96000, 0.3)
	e.waves.Append(0, waveform.Point{Position: 50, Peak: 0.9})
	e.waves.Append(0, waveform.Point{Position: 150, Peak: 0.4})

	if err := e.Bounce(context.Background()); err != nil {
		t.Fatalf("bounce failed: %v", err)
	}

	master := e.Waveform().Master()
	if len(master) != 2 {
		t.Fatalf("master waveform has %d points, want 2", len(master))
	}
	if master[0].Position != 50 || master[1].Position != 150 {
		t.Errorf("master positions %v/%v, want 50/150", master[0].Position, master[1].Position)
	}
	for _, p := range master {
		if p.Peak <= 0 {
			t.Errorf("master point at %v has no peak", p.Position)
		}
	}
}

func TestExportMaster(t *testing.T) {
	e := newTestEngine()
	loadTrack(e, 1, 48000, 0.25)
	if err := e.Bounce(context.Background()); err != nil {
		t.Fatalf("bounce failed: %v", err)
	}

	var out bytes.Buffer
	if err := e.Export(context.Background(), &out); err != nil {
		t.Fatalf("export failed: %v", err)
	}
	data := out.Bytes()
	if string(data[:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		t.Fatal("export is not a WAV file")
	}
	wantLen := 44 + 48000*2*2 // header + stereo PCM16
	if len(data) != wantLen {
		t.Errorf("export size = %d, want %d", len(data), wantLen)
	}
}

func TestExportLiveMixWithoutMaster(t *testing.T) {
	e := newTestEngine()
	loadTrack(e, 1, 48000, 0.25)

	var out bytes.Buffer
	if err := e.Export(context.Background(), &out); err != nil {
		t.Fatalf("export failed: %v", err)
	}
	if out.Len() != 44+48000*2*2 {
		t.Errorf("export size = %d", out.Len())
	}
	// Export is non-destructive
	if !e.TrackStates()[0].HasAudio {
		t.Error("export destroyed track audio")
	}
}

func TestExportNothing(t *testing.T) {
	e := newTestEngine()
	var out bytes.Buffer
	if err := e.Export(context.Background(), &out); !errors.Is(err, ErrNothingToExport) {
		t.Errorf("expected ErrNothingToExport, got %v", err)
	}
}

func TestExportFilename(t *testing.T) {
	at := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	if got, want := ExportFilename(at), "fourtrack-mix-20260314-092653.wav"; got != want {
		t.Errorf("filename = %q, want %q", got, want)
	}
}
