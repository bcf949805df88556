package mixer

import (
	"math"
	"sync/atomic"
)

// stage holds one gain coefficient readable from the audio render path while
// the control path updates it.
type stage struct {
	bits atomic.Uint64
}

func (s *stage) set(v float64) {
	s.bits.Store(math.Float64bits(v))
}

func (s *stage) get() float64 {
	return math.Float64frombits(s.bits.Load())
}

// Strip is the two-stage processing chain of one track: a gain stage followed
// by a pan stage. The gain stage carries the effective value after mute
// resolution, so a muted track's strip reads zero regardless of its fader.
type Strip struct {
	gain stage
	panL stage
	panR stage
}

// Set installs the strip's effective gain and pan. muted forces the gain
// stage to zero while leaving the fader position untouched at the caller.
func (s *Strip) Set(fader, pan float64, muted bool) {
	if muted {
		s.gain.set(0)
	} else {
		s.gain.set(FaderToGain(fader))
	}
	l, r := PanGains(pan)
	s.panL.set(l)
	s.panR.set(r)
}

// Apply runs one frame through the strip.
func (s *Strip) Apply(left, right float32) (float32, float32) {
	g := s.gain.get()
	return left * float32(g*s.panL.get()), right * float32(g*s.panR.get())
}

// Gain returns the current effective gain of the strip.
func (s *Strip) Gain() float64 {
	return s.gain.get()
}

// Graph is the live mixer graph: one strip per track feeding a shared master
// stage, which feeds the main output and a monitor stage. The monitor stage
// is silenced outside recording and set to a reduced level while recording so
// existing tracks bleed less into the capture path.
type Graph struct {
	strips  []*Strip
	master  stage
	monitor stage
}

// MonitorLevel is the reduced playback gain used while recording.
const MonitorLevel = 0.6

// NewGraph builds a graph with the given number of strips, master at unity
// and monitor silenced.
func NewGraph(tracks int) *Graph {
	g := &Graph{strips: make([]*Strip, tracks)}
	for i := range g.strips {
		g.strips[i] = &Strip{}
		g.strips[i].Set(FaderUnity, PanCenter, false)
	}
	g.master.set(1)
	g.monitor.set(0)
	return g
}

// Strip returns the processing strip for a track index.
func (g *Graph) Strip(i int) *Strip {
	return g.strips[i]
}

// SetMasterFader sets the master stage from a fader position.
func (g *Graph) SetMasterFader(v float64) {
	g.master.set(FaderToGain(v))
}

// MasterGain returns the master stage's linear gain.
func (g *Graph) MasterGain() float64 {
	return g.master.get()
}

// SetMonitoring silences or enables the monitor stage.
func (g *Graph) SetMonitoring(on bool) {
	if on {
		g.monitor.set(MonitorLevel)
	} else {
		g.monitor.set(0)
	}
}

// MonitorGain returns the monitor stage's linear gain.
func (g *Graph) MonitorGain() float64 {
	return g.monitor.get()
}

// ApplyMaster runs one stereo frame through the master stage.
func (g *Graph) ApplyMaster(left, right float32) (float32, float32) {
	m := float32(g.master.get())
	return left * m, right * m
}
