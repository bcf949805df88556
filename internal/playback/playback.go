// Package playback drives the output device. Track buffers are wrapped in
// one-shot sources: once started a source can never be restarted, so pause
// and resume are implemented by the transport as discard-and-recreate.
package playback

import (
	"fmt"
	"io"

	"github.com/ebitengine/oto/v3"

	"github.com/audiolibrelab/fourtrack/internal/audio"
	"github.com/audiolibrelab/fourtrack/internal/mixer"
)

// Output owns the process-wide audio output context.
type Output struct {
	ctx        *oto.Context
	sampleRate int
}

// NewOutput opens the output device at the given sample rate, stereo PCM16.
func NewOutput(sampleRate int) (*Output, error) {
	op := &oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 2,
		Format:       oto.FormatSignedInt16LE,
	}
	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		return nil, fmt.Errorf("open output device: %w", err)
	}
	<-ready
	return &Output{ctx: ctx, sampleRate: sampleRate}, nil
}

// SampleRate returns the output rate.
func (o *Output) SampleRate() int {
	return o.sampleRate
}

// NewSource builds a source streaming buf from startFrame through the
// track's strip and the graph's master stage. monitor routes the source
// through the monitor stage as well, for reduced-bleed playback during
// recording.
func (o *Output) NewSource(buf *audio.Buffer, strip *mixer.Strip, graph *mixer.Graph, startFrame int, monitor bool) *Source {
	reader := &stripReader{
		buf:     buf,
		strip:   strip,
		graph:   graph,
		monitor: monitor,
		frame:   startFrame,
	}
	return newSource(o.ctx.NewPlayer(reader))
}

// stripReader streams a track buffer as interleaved stereo PCM16 LE,
// applying the live strip and master gains per frame so fader moves are
// audible during playback.
type stripReader struct {
	buf     *audio.Buffer
	strip   *mixer.Strip
	graph   *mixer.Graph
	monitor bool
	frame   int
}

func (r *stripReader) Read(p []byte) (int, error) {
	const frameBytes = 4 // 2 channels x int16
	total := r.buf.Frames()
	if r.frame >= total {
		return 0, io.EOF
	}

	frames := len(p) / frameBytes
	if remaining := total - r.frame; frames > remaining {
		frames = remaining
	}
	if frames == 0 {
		return 0, nil
	}

	var monitorGain float32 = 1
	if r.monitor {
		monitorGain = float32(r.graph.MonitorGain())
	}

	for i := 0; i < frames; i++ {
		left := r.buf.Sample(0, r.frame)
		right := r.buf.Sample(1, r.frame)
		r.frame++

		left, right = r.strip.Apply(left, right)
		left, right = r.graph.ApplyMaster(left, right)
		left *= monitorGain
		right *= monitorGain

		l := sampleToInt16(left)
		rr := sampleToInt16(right)
		p[i*frameBytes+0] = byte(l)
		p[i*frameBytes+1] = byte(l >> 8)
		p[i*frameBytes+2] = byte(rr)
		p[i*frameBytes+3] = byte(rr >> 8)
	}
	return frames * frameBytes, nil
}

func sampleToInt16(v float32) int16 {
	if v > 1 {
		v = 1
	} else if v < -1 {
		v = -1
	}
	return int16(v * 32767)
}

// Close releases the output device.
func (o *Output) Close() error {
	// oto contexts cannot be closed; suspend instead
	return o.ctx.Suspend()
}
