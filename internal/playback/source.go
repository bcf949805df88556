package playback

import (
	"log/slog"
	"sync"
	"time"
)

// SourceState tracks the one-shot lifecycle of a buffer source.
type SourceState string

const (
	SourceIdle      SourceState = "IDLE"
	SourceScheduled SourceState = "SCHEDULED"
	SourcePlaying   SourceState = "PLAYING"
	SourceEnded     SourceState = "ENDED"
)

// player is the subset of the device player a source drives. *oto.Player
// satisfies it.
type player interface {
	Play()
	IsPlaying() bool
	Close() error
}

// Source is a one-shot playback of a track buffer. It moves Idle →
// Scheduled → Playing → Ended and never back; a transport that wants to
// resume must discard the source and build a new one.
type Source struct {
	mutex  sync.Mutex
	state  SourceState
	player player
	timer  *time.Timer
}

func newSource(p player) *Source {
	return &Source{state: SourceIdle, player: p}
}

// State returns the source's lifecycle state.
func (s *Source) State() SourceState {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.state
}

// StartAt schedules the source to begin at the deadline. All sources of a
// transport start share one deadline so they begin in the same quantum.
func (s *Source) StartAt(deadline time.Time) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.state != SourceIdle {
		return
	}
	s.state = SourceScheduled
	s.timer = time.AfterFunc(time.Until(deadline), func() {
		s.mutex.Lock()
		defer s.mutex.Unlock()
		if s.state != SourceScheduled {
			return
		}
		s.player.Play()
		s.state = SourcePlaying
	})
}

// Stop ends the source. Stopping an already-stopped source is a no-op, not
// an error.
func (s *Source) Stop() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.state == SourceEnded {
		return
	}
	if s.timer != nil {
		s.timer.Stop()
	}
	if err := s.player.Close(); err != nil {
		// Closing a finished player is expected noise
		slog.Debug("Source close", "error", err)
	}
	s.state = SourceEnded
}
