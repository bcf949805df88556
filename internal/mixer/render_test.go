package mixer

import (
	"context"
	"math"
	"testing"

	"github.com/audiolibrelab/fourtrack/internal/audio"
)

func constantBuffer(channels, frames int, value float32) *audio.Buffer {
	buf := audio.NewBuffer(channels, frames, 48000)
	for c := range buf.Data {
		for i := range buf.Data[c] {
			buf.Data[c][i] = value
		}
	}
	return buf
}

func TestRenderOfflineSizedToLongestInput(t *testing.T) {
	prior := constantBuffer(2, 1000, 0.1)
	short := constantBuffer(1, 400, 0.2)
	long := constantBuffer(2, 2500, 0.3)

	out, err := RenderOffline(context.Background(), prior, []RenderSource{
		{Buffer: short, Fader: 80, Pan: 50},
		{Buffer: long, Fader: 80, Pan: 50},
	}, 48000)
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}

	if out.Frames() != 2500 {
		t.Errorf("expected 2500 frames, got %d", out.Frames())
	}
	if out.Channels() != 2 {
		t.Errorf("expected stereo output, got %d channels", out.Channels())
	}
}

func TestRenderOfflineAdditive(t *testing.T) {
	prior := constantBuffer(2, 100, 0.25)
	src := constantBuffer(2, 100, 0.25)

	out, err := RenderOffline(context.Background(), prior, []RenderSource{
		{Buffer: src, Fader: 80, Pan: 50},
	}, 48000)
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}

	// Prior master routes at unity; source at unity fader through center pan
	_, panR := PanGains(50)
	want := 0.25 + 0.25*float32(panR)
	if got := out.Data[1][50]; math.Abs(float64(got-want)) > 1e-6 {
		t.Errorf("expected additive sample %v, got %v", want, got)
	}
}

func TestRenderOfflineMonoSpreadsToBothChannels(t *testing.T) {
	mono := constantBuffer(1, 10, 0.5)

	out, err := RenderOffline(context.Background(), nil, []RenderSource{
		{Buffer: mono, Fader: 80, Pan: 50},
	}, 48000)
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}

	if out.Data[0][5] == 0 || out.Data[1][5] == 0 {
		t.Errorf("mono source should reach both channels: l=%v r=%v", out.Data[0][5], out.Data[1][5])
	}
}

func TestRenderOfflineMutedFader(t *testing.T) {
	src := constantBuffer(2, 10, 0.5)

	out, err := RenderOffline(context.Background(), nil, []RenderSource{
		{Buffer: src, Fader: 0, Pan: 50},
	}, 48000)
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}
	if out.Data[0][0] != 0 || out.Data[1][0] != 0 {
		t.Error("fader at 0 should contribute silence")
	}
}

func TestRenderOfflineNothingToMix(t *testing.T) {
	if _, err := RenderOffline(context.Background(), nil, nil, 48000); err == nil {
		t.Error("expected error with no inputs")
	}
}

func TestRenderOfflineCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := constantBuffer(2, 200000, 0.1)
	if _, err := RenderOffline(ctx, nil, []RenderSource{{Buffer: src, Fader: 80, Pan: 50}}, 48000); err == nil {
		t.Error("expected cancelled render to fail")
	}
}
