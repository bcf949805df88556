package audio

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/gordonklaus/portaudio"

	"github.com/audiolibrelab/fourtrack/internal/wavio"
)

// SessionState tracks the capture session lifecycle.
type SessionState string

const (
	SessionNone        SessionState = "NO_SESSION"
	SessionAcquiring   SessionState = "ACQUIRING"
	SessionReady       SessionState = "READY"
	SessionTearingDown SessionState = "TEARING_DOWN"
)

const captureFrames = 512

// Constraints describe the capture configuration requested from the device.
// DeviceID empty means the default input device. The processing flags mirror
// the persisted settings; they are carried with the session so collaborators
// can inspect what the capture was opened with.
type Constraints struct {
	DeviceID         string
	SampleRate       int
	EchoCancellation bool
	NoiseSuppression bool
	AutoGainControl  bool
}

// Session owns one capture stream at a time. Changing devices requires a full
// teardown of the previous stream before the next one is authoritative, which
// Acquire performs. An Acquire superseded by a newer Acquire abandons its
// stream instead of installing it.
type Session struct {
	mutex       sync.Mutex
	state       SessionState
	constraints Constraints
	generation  int

	stream *portaudio.Stream
	in     []float32

	capturing bool
	chunks    [][]byte
	frameTap  func([]float32)
	stopChan  chan struct{}
	doneChan  chan struct{}
}

// NewSession returns a session with no device attached.
func NewSession() *Session {
	return &Session{state: SessionNone}
}

// State returns the current lifecycle state.
func (s *Session) State() SessionState {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.state
}

// Constraints returns the constraints of the current session.
func (s *Session) Constraints() Constraints {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.constraints
}

// SetFrameTap installs a callback invoked with every captured chunk of float
// samples, used for level metering and waveform capture. Pass nil to remove.
func (s *Session) SetFrameTap(tap func([]float32)) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.frameTap = tap
}

// Acquire tears down any existing stream and opens a new one matching the
// constraints. If another Acquire starts while this one is opening the
// device, the superseded stream is closed and ErrSuperseded returned.
func (s *Session) Acquire(c Constraints) error {
	s.mutex.Lock()
	if s.capturing {
		s.mutex.Unlock()
		return fmt.Errorf("cannot acquire device while capture is running")
	}
	s.generation++
	gen := s.generation

	// Full teardown first so the new device is authoritative
	if s.stream != nil {
		s.state = SessionTearingDown
		s.closeStreamLocked()
	}
	s.state = SessionAcquiring
	s.mutex.Unlock()

	dev, err := findInputDevice(c.DeviceID)
	if err != nil {
		s.failAcquire(gen)
		return err
	}

	if c.SampleRate <= 0 {
		c.SampleRate = int(dev.DefaultSampleRate)
	}

	params := portaudio.LowLatencyParameters(dev, nil)
	params.Input.Channels = 1
	params.SampleRate = float64(c.SampleRate)
	params.FramesPerBuffer = captureFrames

	in := make([]float32, captureFrames)
	stream, err := portaudio.OpenStream(params, in)
	if err != nil {
		s.failAcquire(gen)
		return fmt.Errorf("open capture stream: %w", err)
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()
	if gen != s.generation {
		// A newer Acquire superseded this one while the device was opening
		stream.Close()
		return ErrSuperseded
	}
	s.stream = stream
	s.in = in
	s.constraints = c
	s.state = SessionReady

	slog.Info("Capture session ready",
		"device", dev.Name,
		"sample_rate", c.SampleRate,
		"echo_cancellation", c.EchoCancellation,
		"noise_suppression", c.NoiseSuppression,
		"auto_gain", c.AutoGainControl)
	return nil
}

// ErrSuperseded is returned by an Acquire that lost to a newer one.
var ErrSuperseded = fmt.Errorf("capture acquisition superseded by a newer device request")

func (s *Session) failAcquire(gen int) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if gen == s.generation {
		s.state = SessionNone
	}
}

// Start begins accumulating capture chunks. The session must be Ready.
func (s *Session) Start() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.state != SessionReady {
		return fmt.Errorf("can only start capture from ready session, current: %s", s.state)
	}
	if s.capturing {
		return fmt.Errorf("capture already running")
	}

	if err := s.stream.Start(); err != nil {
		return fmt.Errorf("start capture stream: %w", err)
	}

	s.capturing = true
	s.chunks = nil
	s.stopChan = make(chan struct{})
	s.doneChan = make(chan struct{})
	go s.captureWorker()

	slog.Debug("Capture started", "device", s.constraints.DeviceID)
	return nil
}

// captureWorker reads chunks from the stream until stopped. Chunks are stored
// as PCM16 LE bytes in arrival order.
func (s *Session) captureWorker() {
	defer close(s.doneChan)

	for {
		select {
		case <-s.stopChan:
			return
		default:
		}

		if err := s.stream.Read(); err != nil {
			slog.Debug("Capture read ended", "error", err)
			return
		}

		s.mutex.Lock()
		tap := s.frameTap
		chunk := wavio.AppendPCM16(make([]byte, 0, len(s.in)*2), s.in)
		s.chunks = append(s.chunks, chunk)
		s.mutex.Unlock()

		if tap != nil {
			tap(s.in)
		}
	}
}

// Finalize stops the capture, concatenates the accumulated chunks and
// decodes them into a sample buffer. Stopping always finalizes; captured
// data is never discarded on the stop path.
func (s *Session) Finalize() (*Buffer, error) {
	s.mutex.Lock()
	if !s.capturing {
		s.mutex.Unlock()
		return nil, fmt.Errorf("no capture in progress")
	}
	close(s.stopChan)
	done := s.doneChan
	s.mutex.Unlock()

	<-done

	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.capturing = false

	// Stopping an already-stopped stream is not an error worth surfacing
	if err := s.stream.Stop(); err != nil {
		slog.Debug("Capture stream stop", "error", err)
	}

	var size int
	for _, c := range s.chunks {
		size += len(c)
	}
	blob := make([]byte, 0, wavio.HeaderSize+size)
	blob = append(blob, wavio.Header(size/2, 1, s.constraints.SampleRate)...)
	for _, c := range s.chunks {
		blob = append(blob, c...)
	}
	s.chunks = nil

	buf, err := DecodeBytes(blob)
	if err != nil {
		return nil, fmt.Errorf("decode captured audio: %w", err)
	}

	slog.Info("Capture finalized", "frames", buf.Frames(), "duration", buf.Duration())
	return buf, nil
}

// Teardown closes the stream and returns the session to NO_SESSION. Safe to
// call with no stream open.
func (s *Session) Teardown() {
	s.mutex.Lock()
	if s.capturing {
		close(s.stopChan)
		done := s.doneChan
		s.capturing = false
		s.mutex.Unlock()
		<-done
		s.mutex.Lock()
	}
	s.state = SessionTearingDown
	s.closeStreamLocked()
	s.state = SessionNone
	s.mutex.Unlock()
}

func (s *Session) closeStreamLocked() {
	if s.stream == nil {
		return
	}
	if err := s.stream.Close(); err != nil {
		slog.Debug("Capture stream close", "error", err)
	}
	s.stream = nil
	s.in = nil
}
