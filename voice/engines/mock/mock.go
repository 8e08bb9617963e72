// Package mock provides a deterministic in-memory synthesis engine for tests.
package mock

import (
	"context"
	"encoding/binary"
	"sync"
	"time"

	"github.com/dgnsrekt/voicepipe/voice"
)

// Call records one Synthesize invocation.
type Call struct {
	Text  string
	Voice voice.Voice
}

// Engine implements voice.Engine without any network or device dependency.
// Each call produces a constant-amplitude tone derived from the text length,
// which makes splice points easy to assert on in playback tests.
type Engine struct {
	mu    sync.Mutex
	calls []Call

	// SegmentSamples is the sample count generated per sentence.
	SegmentSamples int
	// Amplitude is the sample value used; 0 picks one from the text length.
	Amplitude int16
	// Delay simulates synthesis latency.
	Delay time.Duration
	// FailOn makes the nth call (1-based) fail with Err; 0 disables.
	FailOn int
	// Err is returned for failing calls.
	Err error

	rate int
}

// New creates a mock engine at 24 kHz with 240-sample segments.
func New() *Engine {
	return &Engine{
		SegmentSamples: 240,
		rate:           24000,
	}
}

// NewWithRate creates a mock engine with a specific sample rate.
func NewWithRate(rate int) *Engine {
	e := New()
	e.rate = rate
	return e
}

func (e *Engine) Name() string    { return "mock" }
func (e *Engine) SampleRate() int { return e.rate }

// Synthesize produces deterministic PCM, honoring Delay and FailOn.
func (e *Engine) Synthesize(ctx context.Context, text string, v voice.Voice) ([]byte, error) {
	e.mu.Lock()
	e.calls = append(e.calls, Call{Text: text, Voice: v})
	n := len(e.calls)
	e.mu.Unlock()

	if e.Delay > 0 {
		select {
		case <-time.After(e.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if e.FailOn != 0 && n == e.FailOn {
		err := e.Err
		if err == nil {
			err = voice.ErrSynthesisFailed
		}
		return nil, err
	}

	amp := e.Amplitude
	if amp == 0 {
		amp = int16(100 + len(text))
	}
	pcm := make([]byte, e.SegmentSamples*2)
	for i := 0; i < e.SegmentSamples; i++ {
		binary.LittleEndian.PutUint16(pcm[i*2:i*2+2], uint16(amp))
	}
	return pcm, nil
}

// Calls returns every recorded invocation in order.
func (e *Engine) Calls() []Call {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Call, len(e.calls))
	copy(out, e.calls)
	return out
}
