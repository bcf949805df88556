// Package audio provides the sample buffer type shared across the engine and
// the capture session that fills it from an input device.
package audio

import "time"

// Buffer holds uncompressed float samples, one slice per channel. All
// channels have the same length.
type Buffer struct {
	SampleRate int
	Data       [][]float32
}

// NewBuffer allocates a silent buffer.
func NewBuffer(channels, frames, sampleRate int) *Buffer {
	data := make([][]float32, channels)
	for c := range data {
		data[c] = make([]float32, frames)
	}
	return &Buffer{SampleRate: sampleRate, Data: data}
}

func (b *Buffer) Channels() int {
	return len(b.Data)
}

func (b *Buffer) Frames() int {
	if len(b.Data) == 0 {
		return 0
	}
	return len(b.Data[0])
}

func (b *Buffer) Duration() time.Duration {
	if b.SampleRate == 0 {
		return 0
	}
	return time.Duration(float64(b.Frames()) / float64(b.SampleRate) * float64(time.Second))
}

// Sample returns the sample at frame i of channel ch. A channel index past
// the last channel clamps to the last channel; frames outside the buffer are
// silence.
func (b *Buffer) Sample(ch, i int) float32 {
	if len(b.Data) == 0 || i < 0 || i >= b.Frames() {
		return 0
	}
	if ch >= len(b.Data) {
		ch = len(b.Data) - 1
	}
	return b.Data[ch][i]
}

// Clone returns a deep copy.
func (b *Buffer) Clone() *Buffer {
	out := &Buffer{SampleRate: b.SampleRate, Data: make([][]float32, len(b.Data))}
	for c := range b.Data {
		out.Data[c] = make([]float32, len(b.Data[c]))
		copy(out.Data[c], b.Data[c])
	}
	return out
}

// Reversed returns a copy with every channel's samples in reverse order.
func (b *Buffer) Reversed() *Buffer {
	out := NewBuffer(b.Channels(), b.Frames(), b.SampleRate)
	frames := b.Frames()
	for c := range b.Data {
		for i, v := range b.Data[c] {
			out.Data[c][frames-1-i] = v
		}
	}
	return out
}

// Peak returns the maximum absolute sample magnitude across all channels in
// the frame range [from, to). The range is clipped to the buffer.
func (b *Buffer) Peak(from, to int) float32 {
	if from < 0 {
		from = 0
	}
	if to > b.Frames() {
		to = b.Frames()
	}
	var peak float32
	for _, ch := range b.Data {
		for i := from; i < to; i++ {
			v := ch[i]
			if v < 0 {
				v = -v
			}
			if v > peak {
				peak = v
			}
		}
	}
	return peak
}
