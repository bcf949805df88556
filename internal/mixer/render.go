package mixer

import (
	"context"
	"fmt"

	"github.com/audiolibrelab/fourtrack/internal/audio"
)

// RenderSource is one track's contribution to an offline mixdown: its buffer
// plus the gain/pan staging mirroring the live strip settings.
type RenderSource struct {
	Buffer *audio.Buffer
	Fader  float64
	Pan    float64
}

// RenderOffline mixes the prior master buffer (routed at unity, may be nil)
// and every source through gain and pan stages into a fresh stereo buffer
// sized to the longest input. The context is checked between blocks so a
// caller can abandon a long render.
func RenderOffline(ctx context.Context, prior *audio.Buffer, sources []RenderSource, sampleRate int) (*audio.Buffer, error) {
	frames := 0
	if prior != nil && prior.Frames() > frames {
		frames = prior.Frames()
	}
	for _, src := range sources {
		if src.Buffer != nil && src.Buffer.Frames() > frames {
			frames = src.Buffer.Frames()
		}
	}
	if frames == 0 {
		return nil, fmt.Errorf("render: no audio to mix")
	}

	out := audio.NewBuffer(2, frames, sampleRate)

	const block = 65536
	for start := 0; start < frames; start += block {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("render cancelled: %w", err)
		}
		end := start + block
		if end > frames {
			end = frames
		}

		if prior != nil {
			for i := start; i < end && i < prior.Frames(); i++ {
				out.Data[0][i] += prior.Sample(0, i)
				out.Data[1][i] += prior.Sample(1, i)
			}
		}

		for _, src := range sources {
			if src.Buffer == nil {
				continue
			}
			gain := FaderToGain(src.Fader)
			panL, panR := PanGains(src.Pan)
			gl := float32(gain * panL)
			gr := float32(gain * panR)
			for i := start; i < end && i < src.Buffer.Frames(); i++ {
				out.Data[0][i] += src.Buffer.Sample(0, i) * gl
				out.Data[1][i] += src.Buffer.Sample(1, i) * gr
			}
		}
	}

	return out, nil
}
