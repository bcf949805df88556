package audio

import (
	"bytes"
	"fmt"
	"io"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// Decode reads a WAV stream and converts it to a float Buffer.
func Decode(r io.ReadSeeker) (*Buffer, error) {
	decoder := wav.NewDecoder(r)
	if !decoder.IsValidFile() {
		return nil, fmt.Errorf("decode: not a valid WAV stream")
	}

	pcm, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if pcm.Format == nil || pcm.Format.NumChannels == 0 {
		return nil, fmt.Errorf("decode: missing format information")
	}

	channels := pcm.Format.NumChannels
	frames := len(pcm.Data) / channels
	scale := float32(1 << 15)
	if pcm.SourceBitDepth > 0 {
		scale = float32(int(1) << (pcm.SourceBitDepth - 1))
	}

	out := NewBuffer(channels, frames, pcm.Format.SampleRate)
	for i := 0; i < frames; i++ {
		for c := 0; c < channels; c++ {
			out.Data[c][i] = float32(pcm.Data[i*channels+c]) / scale
		}
	}
	return out, nil
}

// DecodeBytes decodes an in-memory WAV blob.
func DecodeBytes(data []byte) (*Buffer, error) {
	return Decode(bytes.NewReader(data))
}

// DecodeFile decodes a WAV file from disk.
func DecodeFile(path string) (*Buffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

// WriteFile writes a Buffer to disk as a 16-bit WAV file.
func WriteFile(path string, buf *Buffer) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("write wav: %w", err)
	}
	defer f.Close()

	enc := wav.NewEncoder(f, buf.SampleRate, 16, buf.Channels(), 1)
	defer enc.Close()

	channels := buf.Channels()
	frames := buf.Frames()
	intBuf := &goaudio.IntBuffer{
		Format: &goaudio.Format{
			NumChannels: channels,
			SampleRate:  buf.SampleRate,
		},
		Data:           make([]int, frames*channels),
		SourceBitDepth: 16,
	}
	for i := 0; i < frames; i++ {
		for c := 0; c < channels; c++ {
			v := buf.Data[c][i]
			if v > 1 {
				v = 1
			} else if v < -1 {
				v = -1
			}
			intBuf.Data[i*channels+c] = int(v * 32767)
		}
	}
	if err := enc.Write(intBuf); err != nil {
		return fmt.Errorf("write wav: %w", err)
	}
	return nil
}
