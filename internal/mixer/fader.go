// Package mixer implements the gain staging of the four-track: the
// perceptual fader taper, the pan law, the per-track processing strips the
// transport plays through, and the offline mixdown render used by bounce.
package mixer

import "math"

const (
	// FaderUnity is the fader position that maps to 0 dB.
	FaderUnity = 80.0
	// FaderMax maps to +12 dB.
	FaderMax = 100.0
	// PanCenter is the centered pan position.
	PanCenter = 50.0
)

// FaderToGain maps a fader position in [0, 100] to a linear gain multiplier.
// Zero is silence; (0, 80] is a logarithmic taper over -60 dB..0 dB;
// (80, 100] is a linear taper over 0 dB..+12 dB. Out-of-range values clamp.
func FaderToGain(v float64) float64 {
	if v <= 0 {
		return 0
	}
	if v > FaderMax {
		v = FaderMax
	}

	var db float64
	if v <= FaderUnity {
		db = -60 + 60*math.Pow(v/FaderUnity, 0.25)
	} else {
		db = 12 * (v - FaderUnity) / (FaderMax - FaderUnity)
	}
	return math.Pow(10, db/20)
}

// PanPosition maps a pan value in [0, 100] to a stereo position in [-1, 1],
// 50 being center.
func PanPosition(p float64) float64 {
	if p < 0 {
		p = 0
	} else if p > 100 {
		p = 100
	}
	return (p - PanCenter) / PanCenter
}

// PanGains returns equal-power left/right gains for a pan value in [0, 100].
func PanGains(p float64) (left, right float64) {
	pos := PanPosition(p)
	angle := (pos + 1) * math.Pi / 4
	return math.Cos(angle), math.Sin(angle)
}
