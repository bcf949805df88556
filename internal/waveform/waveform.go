// Package waveform stores the peak points captured while recording, one
// ordered list per track plus one for the bounced master. Order is the
// left-to-right timeline; presentation layers draw these, the engine only
// appends and clears.
package waveform

import "sync"

// Point is one captured peak at a timeline position. Position is expressed
// in presentation pixels to keep prior points drawable across a bounce.
type Point struct {
	Position float64 `json:"position" yaml:"position"`
	Peak     float64 `json:"peak" yaml:"peak"`
}

// Model holds the per-track and master point lists.
type Model struct {
	mutex  sync.Mutex
	tracks [][]Point
	master []Point
}

// NewModel creates a model for the given track count.
func NewModel(tracks int) *Model {
	return &Model{tracks: make([][]Point, tracks)}
}

// Append adds a point to the end of a track's timeline.
func (m *Model) Append(track int, p Point) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if track < 0 || track >= len(m.tracks) {
		return
	}
	m.tracks[track] = append(m.tracks[track], p)
}

// Track returns a copy of a track's points in timeline order.
func (m *Model) Track(track int) []Point {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if track < 0 || track >= len(m.tracks) {
		return nil
	}
	return append([]Point(nil), m.tracks[track]...)
}

// Master returns a copy of the master points.
func (m *Model) Master() []Point {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return append([]Point(nil), m.master...)
}

// SetMaster replaces the master point list.
func (m *Model) SetMaster(points []Point) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.master = append([]Point(nil), points...)
}

// Positions returns the timeline positions of every point across all tracks,
// deduplicated and in insertion order per track. Bounce uses these to
// re-sample master peaks at the prior visual layout.
func (m *Model) Positions() []float64 {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	seen := make(map[float64]bool)
	var out []float64
	for _, points := range m.tracks {
		for _, p := range points {
			if !seen[p.Position] {
				seen[p.Position] = true
				out = append(out, p.Position)
			}
		}
	}
	return out
}

// ClearTrack discards one track's points.
func (m *Model) ClearTrack(track int) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if track < 0 || track >= len(m.tracks) {
		return
	}
	m.tracks[track] = nil
}

// ClearTracks discards every track's points, leaving the master intact.
func (m *Model) ClearTracks() {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	for i := range m.tracks {
		m.tracks[i] = nil
	}
}

// ClearAll discards everything including the master.
func (m *Model) ClearAll() {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	for i := range m.tracks {
		m.tracks[i] = nil
	}
	m.master = nil
}
