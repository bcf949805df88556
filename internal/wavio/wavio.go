// Package wavio encodes float sample data as PCM16 little-endian RIFF/WAVE.
package wavio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

const (
	// HeaderSize is the size of the canonical PCM header this package writes.
	HeaderSize = 44

	bytesPerSample = 2
	pcmFormat      = 1
)

// Header returns a 44-byte RIFF/WAVE header for PCM16 audio with the given
// frame count, channel count and sample rate.
func Header(frames, channels, sampleRate int) []byte {
	dataSize := uint32(frames * channels * bytesPerSample)

	header := make([]byte, HeaderSize)
	copy(header[0:4], "RIFF")
	binary.LittleEndian.PutUint32(header[4:8], 36+dataSize)
	copy(header[8:12], "WAVE")

	copy(header[12:16], "fmt ")
	binary.LittleEndian.PutUint32(header[16:20], 16)
	binary.LittleEndian.PutUint16(header[20:22], pcmFormat)
	binary.LittleEndian.PutUint16(header[22:24], uint16(channels))
	binary.LittleEndian.PutUint32(header[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(header[28:32], uint32(sampleRate*channels*bytesPerSample))
	binary.LittleEndian.PutUint16(header[32:34], uint16(channels*bytesPerSample))
	binary.LittleEndian.PutUint16(header[34:36], 8*bytesPerSample)

	copy(header[36:40], "data")
	binary.LittleEndian.PutUint32(header[40:44], dataSize)

	return header
}

// Encode writes a complete WAV file to w. channels holds one sample slice per
// channel; all channels must have equal length. Samples are clamped to [-1, 1]
// and scaled to int16.
func Encode(w io.Writer, channels [][]float32, sampleRate int) error {
	if len(channels) == 0 {
		return fmt.Errorf("encode: no channels")
	}
	if sampleRate <= 0 {
		return fmt.Errorf("encode: invalid sample rate %d", sampleRate)
	}
	frames := len(channels[0])
	for c, ch := range channels {
		if len(ch) != frames {
			return fmt.Errorf("encode: channel %d has %d frames, expected %d", c, len(ch), frames)
		}
	}

	if _, err := w.Write(Header(frames, len(channels), sampleRate)); err != nil {
		return fmt.Errorf("encode: write header: %w", err)
	}

	interleaved := make([]int16, frames*len(channels))
	for i := 0; i < frames; i++ {
		for c := range channels {
			interleaved[i*len(channels)+c] = SampleToInt16(channels[c][i])
		}
	}
	if err := binary.Write(w, binary.LittleEndian, interleaved); err != nil {
		return fmt.Errorf("encode: write samples: %w", err)
	}
	return nil
}

// EncodeBytes is Encode into a fresh byte slice.
func EncodeBytes(channels [][]float32, sampleRate int) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := Encode(buf, channels, sampleRate); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// SampleToInt16 clamps v to [-1, 1] and scales it to the int16 range.
func SampleToInt16(v float32) int16 {
	clamped := math.Max(-1, math.Min(1, float64(v)))
	return int16(clamped * 32767)
}

// AppendPCM16 converts float samples to interleaved PCM16 LE bytes, appending
// to dst. Used by the capture path to accumulate chunks in wire format.
func AppendPCM16(dst []byte, samples []float32) []byte {
	for _, v := range samples {
		s := SampleToInt16(v)
		dst = append(dst, byte(s), byte(s>>8))
	}
	return dst
}
