package wavio

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"

	"github.com/go-audio/wav"
)

func TestHeaderOneSecondMono(t *testing.T) {
	// 1 second, mono, 44100 Hz, 16-bit
	header := Header(44100, 1, 44100)

	if len(header) != HeaderSize {
		t.Fatalf("expected %d byte header, got %d", HeaderSize, len(header))
	}
	if string(header[0:4]) != "RIFF" || string(header[8:12]) != "WAVE" {
		t.Errorf("bad RIFF/WAVE magic: %q %q", header[0:4], header[8:12])
	}

	riffSize := binary.LittleEndian.Uint32(header[4:8])
	if riffSize != 88236 {
		t.Errorf("expected RIFF chunk size 88236, got %d", riffSize)
	}

	dataSize := binary.LittleEndian.Uint32(header[40:44])
	if dataSize != 88200 {
		t.Errorf("expected data size 88200, got %d", dataSize)
	}

	if format := binary.LittleEndian.Uint16(header[20:22]); format != 1 {
		t.Errorf("expected PCM format 1, got %d", format)
	}
	if byteRate := binary.LittleEndian.Uint32(header[28:32]); byteRate != 88200 {
		t.Errorf("expected byte rate 88200, got %d", byteRate)
	}
	if blockAlign := binary.LittleEndian.Uint16(header[32:34]); blockAlign != 2 {
		t.Errorf("expected block align 2, got %d", blockAlign)
	}
	if bits := binary.LittleEndian.Uint16(header[34:36]); bits != 16 {
		t.Errorf("expected 16 bits per sample, got %d", bits)
	}
}

func TestEncodeTotalSize(t *testing.T) {
	samples := make([]float32, 44100)
	data, err := EncodeBytes([][]float32{samples}, 44100)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	if len(data) != 88244 {
		t.Errorf("expected total file size 88244, got %d", len(data))
	}
}

func TestEncodeIdempotent(t *testing.T) {
	samples := make([]float32, 4800)
	for i := range samples {
		samples[i] = float32(math.Sin(float64(i) / 30))
	}
	channels := [][]float32{samples, samples}

	first, err := EncodeBytes(channels, 48000)
	if err != nil {
		t.Fatalf("first encode failed: %v", err)
	}
	second, err := EncodeBytes(channels, 48000)
	if err != nil {
		t.Fatalf("second encode failed: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Error("encoding the same buffer twice produced different bytes")
	}
}

func TestEncodeClampsSamples(t *testing.T) {
	tests := []struct {
		name string
		in   float32
		want int16
	}{
		{"positive overflow", 2.5, 32767},
		{"negative overflow", -2.5, -32767},
		{"zero", 0, 0},
		{"unity", 1.0, 32767},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SampleToInt16(tt.in); got != tt.want {
				t.Errorf("SampleToInt16(%v) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestEncodeRejectsRaggedChannels(t *testing.T) {
	_, err := EncodeBytes([][]float32{make([]float32, 10), make([]float32, 9)}, 48000)
	if err == nil {
		t.Error("expected error for channels of unequal length")
	}
}

func TestRoundTrip(t *testing.T) {
	left := make([]float32, 48000)
	right := make([]float32, 48000)
	for i := range left {
		left[i] = float32(math.Sin(float64(i)/20)) * 0.5
		right[i] = float32(math.Cos(float64(i)/20)) * 0.5
	}

	data, err := EncodeBytes([][]float32{left, right}, 48000)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	decoder := wav.NewDecoder(bytes.NewReader(data))
	pcm, err := decoder.FullPCMBuffer()
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	if pcm.Format.NumChannels != 2 {
		t.Errorf("expected 2 channels, got %d", pcm.Format.NumChannels)
	}
	if pcm.Format.SampleRate != 48000 {
		t.Errorf("expected sample rate 48000, got %d", pcm.Format.SampleRate)
	}

	frames := len(pcm.Data) / pcm.Format.NumChannels
	if diff := frames - 48000; diff < -1 || diff > 1 {
		t.Errorf("expected 48000 frames within rounding, got %d", frames)
	}

	// Spot-check a few samples against the 16-bit quantization
	for _, i := range []int{0, 100, 47999} {
		want := int(SampleToInt16(left[i]))
		got := pcm.Data[i*2]
		if got < want-1 || got > want+1 {
			t.Errorf("frame %d left: got %d, want %d", i, got, want)
		}
	}
}

func TestAppendPCM16(t *testing.T) {
	out := AppendPCM16(nil, []float32{0, 1, -1})
	if len(out) != 6 {
		t.Fatalf("expected 6 bytes, got %d", len(out))
	}
	if v := int16(binary.LittleEndian.Uint16(out[2:4])); v != 32767 {
		t.Errorf("expected 32767, got %d", v)
	}
	if v := int16(binary.LittleEndian.Uint16(out[4:6])); v != -32767 {
		t.Errorf("expected -32767, got %d", v)
	}
}
