package waveform

import "testing"

func TestAppendKeepsTimelineOrder(t *testing.T) {
	m := NewModel(4)
	m.Append(1, Point{Position: 10, Peak: 0.2})
	m.Append(1, Point{Position: 20, Peak: 0.8})
	m.Append(1, Point{Position: 30, Peak: 0.4})

	points := m.Track(1)
	if len(points) != 3 {
		t.Fatalf("expected 3 points, got %d", len(points))
	}
	for i := 1; i < len(points); i++ {
		if points[i].Position <= points[i-1].Position {
			t.Errorf("points out of timeline order at %d: %v after %v",
				i, points[i].Position, points[i-1].Position)
		}
	}
}

func TestTrackReturnsCopy(t *testing.T) {
	m := NewModel(4)
	m.Append(0, Point{Position: 1, Peak: 0.5})

	points := m.Track(0)
	points[0].Peak = 0
	if m.Track(0)[0].Peak != 0.5 {
		t.Error("mutating the returned slice changed the model")
	}
}

func TestPositionsAcrossTracks(t *testing.T) {
	m := NewModel(4)
	m.Append(0, Point{Position: 5, Peak: 0.1})
	m.Append(2, Point{Position: 5, Peak: 0.3})
	m.Append(2, Point{Position: 15, Peak: 0.3})

	positions := m.Positions()
	if len(positions) != 2 {
		t.Fatalf("expected 2 deduplicated positions, got %d: %v", len(positions), positions)
	}
}

func TestClearTracksKeepsMaster(t *testing.T) {
	m := NewModel(2)
	m.Append(0, Point{Position: 1, Peak: 0.5})
	m.SetMaster([]Point{{Position: 1, Peak: 0.9}})

	m.ClearTracks()
	if len(m.Track(0)) != 0 {
		t.Error("expected track points cleared")
	}
	if len(m.Master()) != 1 {
		t.Error("expected master points preserved")
	}

	m.ClearAll()
	if len(m.Master()) != 0 {
		t.Error("expected master cleared by ClearAll")
	}
}

func TestOutOfRangeTrackIgnored(t *testing.T) {
	m := NewModel(2)
	m.Append(7, Point{Position: 1, Peak: 0.5})
	if got := m.Track(7); got != nil {
		t.Errorf("expected nil for out-of-range track, got %v", got)
	}
}
