package engine

import (
	"math"

	"github.com/audiolibrelab/fourtrack/internal/audio"
)

// splice merges a new capture into an existing track buffer for punch-in
// overdubs. The incoming audio overwrites [punchStart, punchStart+len);
// existing samples outside that window are preserved, gaps are silence. A
// source with fewer channels than the result clamps its channel index to the
// last channel it has.
func splice(existing, incoming *audio.Buffer, punchInStartMs float64, sampleRate int) *audio.Buffer {
	punchStart := int(math.Floor(punchInStartMs / 1000 * float64(sampleRate)))
	punchEnd := punchStart + incoming.Frames()

	existingFrames := 0
	existingChannels := 1
	if existing != nil {
		existingFrames = existing.Frames()
		if existing.Channels() > existingChannels {
			existingChannels = existing.Channels()
		}
	}

	finalFrames := existingFrames
	if punchEnd > finalFrames {
		finalFrames = punchEnd
	}
	finalChannels := existingChannels
	if incoming.Channels() > finalChannels {
		finalChannels = incoming.Channels()
	}

	out := audio.NewBuffer(finalChannels, finalFrames, sampleRate)
	for c := 0; c < finalChannels; c++ {
		if existing != nil {
			for i := 0; i < punchStart && i < existingFrames; i++ {
				out.Data[c][i] = existing.Sample(c, i)
			}
			for i := punchEnd; i < existingFrames; i++ {
				out.Data[c][i] = existing.Sample(c, i)
			}
		}
		for i := 0; i < incoming.Frames(); i++ {
			out.Data[c][punchStart+i] = incoming.Sample(c, i)
		}
	}
	return out
}
