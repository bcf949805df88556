// Package meter implements the input level meter used while monitoring a
// capture: blended peak/RMS detection with a peak hold that decays after a
// fixed window.
package meter

import (
	"math"
	"sync"
	"time"
)

const (
	peakWeight = 0.8
	rmsWeight  = 2.0
	// perceptual compression exponent applied to the blended level
	compression = 0.7

	// DefaultHold is how long a held peak persists before decaying.
	DefaultHold = 200 * time.Millisecond
	// DefaultDecay is the per-frame multiplier applied to an expired hold.
	DefaultDecay = 0.95
)

// Meter tracks the display level of the capture path.
type Meter struct {
	hold  time.Duration
	decay float64
	now   func() time.Time

	mutex  sync.Mutex
	held   float64
	heldAt time.Time
	level  float64
}

// New returns a meter with the default hold window and decay rate.
func New() *Meter {
	return &Meter{hold: DefaultHold, decay: DefaultDecay, now: time.Now}
}

// Process folds one frame of samples into the meter and returns the display
// level in [0, 1].
func (m *Meter) Process(samples []float32) float64 {
	var peak, sumSquares float64
	for _, s := range samples {
		v := math.Abs(float64(s))
		if v > peak {
			peak = v
		}
		sumSquares += v * v
	}
	var rms float64
	if len(samples) > 0 {
		rms = math.Sqrt(sumSquares / float64(len(samples)))
	}

	level := math.Max(peak*peakWeight, rms*rmsWeight)
	level = math.Pow(level, compression)
	if level > 1 {
		level = 1
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	now := m.now()
	if level >= m.held {
		m.held = level
		m.heldAt = now
	} else if now.Sub(m.heldAt) > m.hold {
		m.held *= m.decay
	}

	m.level = math.Max(level, m.held)
	return m.level
}

// Level returns the last display level.
func (m *Meter) Level() float64 {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return m.level
}

// Reset clears the meter state.
func (m *Meter) Reset() {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.held = 0
	m.level = 0
	m.heldAt = time.Time{}
}
