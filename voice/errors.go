package voice

import "errors"

// Errors reported by the pipeline, grouped by the component that raises them.
var (
	// Configuration errors: fatal at construction time.
	ErrMissingAPIKey     = errors.New("API key is required")
	ErrInvalidVoice      = errors.New("invalid voice")
	ErrInvalidSampleRate = errors.New("invalid sample rate")
	ErrInvalidConfig     = errors.New("invalid configuration")

	// Coordinator errors.
	ErrQueueFull       = errors.New("sentence queue is full")
	ErrProcessorClosed = errors.New("processor has been closed")

	// Synthesis errors: recovered per item, the pipeline keeps going.
	ErrSynthesisFailed = errors.New("speech synthesis failed")
	ErrAuthFailed      = errors.New("synthesis authentication failed")
	ErrRateLimited     = errors.New("synthesis rate limited")
	ErrEmptyAudio      = errors.New("synthesis returned no audio")
)

// IsRecoverable reports whether processing can continue past err. Per-item
// synthesis failures are recoverable; configuration and lifecycle errors and
// exhausted device retries are not.
func IsRecoverable(err error) bool {
	if err == nil {
		return true
	}
	switch {
	case errors.Is(err, ErrMissingAPIKey),
		errors.Is(err, ErrInvalidVoice),
		errors.Is(err, ErrInvalidSampleRate),
		errors.Is(err, ErrInvalidConfig),
		errors.Is(err, ErrProcessorClosed):
		return false
	}
	return true
}
