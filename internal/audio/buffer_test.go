package audio

import (
	"testing"

	"github.com/audiolibrelab/fourtrack/internal/wavio"
)

func TestBufferReversedTwice(t *testing.T) {
	buf := NewBuffer(2, 5, 48000)
	for i := 0; i < 5; i++ {
		buf.Data[0][i] = float32(i) * 0.1
		buf.Data[1][i] = -float32(i) * 0.1
	}

	rev := buf.Reversed()
	if rev.Data[0][0] != buf.Data[0][4] {
		t.Errorf("expected first reversed sample %v, got %v", buf.Data[0][4], rev.Data[0][0])
	}

	back := rev.Reversed()
	for c := range buf.Data {
		for i := range buf.Data[c] {
			if back.Data[c][i] != buf.Data[c][i] {
				t.Fatalf("channel %d frame %d: reverse twice changed %v to %v",
					c, i, buf.Data[c][i], back.Data[c][i])
			}
		}
	}
}

func TestBufferSampleClampsChannel(t *testing.T) {
	buf := NewBuffer(1, 3, 48000)
	buf.Data[0][1] = 0.5

	// Channel 3 of a mono buffer clamps to channel 0
	if got := buf.Sample(3, 1); got != 0.5 {
		t.Errorf("expected clamped channel read 0.5, got %v", got)
	}
	// Out-of-range frames are silence
	if got := buf.Sample(0, 10); got != 0 {
		t.Errorf("expected silence past end, got %v", got)
	}
	if got := buf.Sample(0, -1); got != 0 {
		t.Errorf("expected silence before start, got %v", got)
	}
}

func TestBufferPeak(t *testing.T) {
	buf := NewBuffer(2, 10, 48000)
	buf.Data[0][3] = 0.25
	buf.Data[1][7] = -0.75

	if got := buf.Peak(0, 10); got != 0.75 {
		t.Errorf("expected peak 0.75, got %v", got)
	}
	if got := buf.Peak(0, 5); got != 0.25 {
		t.Errorf("expected windowed peak 0.25, got %v", got)
	}
	if got := buf.Peak(-5, 100); got != 0.75 {
		t.Errorf("expected clipped-range peak 0.75, got %v", got)
	}
}

func TestBufferClone(t *testing.T) {
	buf := NewBuffer(1, 4, 44100)
	buf.Data[0][0] = 0.5

	clone := buf.Clone()
	clone.Data[0][0] = -0.5

	if buf.Data[0][0] != 0.5 {
		t.Error("mutating a clone changed the original buffer")
	}
	if clone.SampleRate != 44100 {
		t.Errorf("expected sample rate 44100, got %d", clone.SampleRate)
	}
}

func TestDecodeBytesRoundTrip(t *testing.T) {
	src := NewBuffer(2, 4800, 48000)
	for i := range src.Data[0] {
		src.Data[0][i] = float32(i%100) / 200
		src.Data[1][i] = -float32(i%100) / 200
	}

	blob, err := wavio.EncodeBytes(src.Data, src.SampleRate)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	decoded, err := DecodeBytes(blob)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	if decoded.Channels() != 2 || decoded.SampleRate != 48000 {
		t.Errorf("unexpected format: %d channels at %d Hz", decoded.Channels(), decoded.SampleRate)
	}
	if diff := decoded.Frames() - src.Frames(); diff < -1 || diff > 1 {
		t.Errorf("expected %d frames within rounding, got %d", src.Frames(), decoded.Frames())
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	if _, err := DecodeBytes([]byte("definitely not RIFF data")); err == nil {
		t.Error("expected error decoding garbage bytes")
	}
}

