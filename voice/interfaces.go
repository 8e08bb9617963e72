package voice

import "context"

// Engine is the synthesis boundary: text plus a voice in, decoded PCM out.
// Implementations return s16le mono samples at SampleRate. Failures are
// per-call; the engine stays usable afterwards.
type Engine interface {
	// Synthesize converts one sentence to PCM samples.
	Synthesize(ctx context.Context, text string, v Voice) ([]byte, error)

	// SampleRate reports the fixed output rate in Hz.
	SampleRate() int

	// Name identifies the engine in logs.
	Name() string
}

// ErrorHandler receives per-sentence synthesis failures. seq is the sentence's
// enqueue sequence number. Called from the worker goroutine, exactly once per
// failed sentence.
type ErrorHandler func(seq uint64, text string, err error)
