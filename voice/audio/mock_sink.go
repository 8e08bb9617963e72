package audio

import (
	"errors"
	"sync"
)

// errWriteInjected is the default failure for FailWrites when WriteErr is
// left unset.
var errWriteInjected = errors.New("injected write failure")

// MockSink implements Sink for tests: it records every call and keeps the
// concatenated PCM stream for inspection, with optional error injection.
type MockSink struct {
	mu sync.Mutex

	started    bool
	sampleRate int
	stream     []byte
	writes     [][]byte

	startCalls int
	drainCalls int
	closeCalls int

	// Error injection. FailWrites makes the next N writes fail; StartErr
	// fails Start until cleared.
	StartErr   error
	WriteErr   error
	FailWrites int
}

// NewMockSink creates an idle mock sink.
func NewMockSink() *MockSink {
	return &MockSink{}
}

func (s *MockSink) Start(sampleRate int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.startCalls++
	if s.StartErr != nil {
		return s.StartErr
	}
	s.started = true
	s.sampleRate = sampleRate
	return nil
}

func (s *MockSink) Write(pcm []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return 0, errBufferClosed
	}
	if s.FailWrites > 0 {
		s.FailWrites--
		if s.WriteErr != nil {
			return 0, s.WriteErr
		}
		return 0, errWriteInjected
	}
	cp := make([]byte, len(pcm))
	copy(cp, pcm)
	s.writes = append(s.writes, cp)
	s.stream = append(s.stream, cp...)
	return len(pcm), nil
}

func (s *MockSink) Drain() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drainCalls++
	return nil
}

func (s *MockSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.started = false
	s.closeCalls++
	return nil
}

// Stream returns a copy of every byte written so far, in order.
func (s *MockSink) Stream() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]byte, len(s.stream))
	copy(cp, s.stream)
	return cp
}

// Writes returns the individual write payloads.
func (s *MockSink) Writes() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]byte, len(s.writes))
	copy(out, s.writes)
	return out
}

// Counts reports how many times Start, Drain and Close were called.
func (s *MockSink) Counts() (starts, drains, closes int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.startCalls, s.drainCalls, s.closeCalls
}

// Started reports whether the sink is currently open.
func (s *MockSink) Started() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started
}
