package voice

import (
	"fmt"
	"testing"
)

func TestIsRecoverable(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, true},
		{ErrSynthesisFailed, true},
		{ErrRateLimited, true},
		{ErrEmptyAudio, true},
		{ErrQueueFull, true},
		{ErrMissingAPIKey, false},
		{ErrInvalidVoice, false},
		{ErrInvalidSampleRate, false},
		{ErrInvalidConfig, false},
		{ErrProcessorClosed, false},
		{fmt.Errorf("wrapped: %w", ErrInvalidVoice), false},
		{fmt.Errorf("wrapped: %w", ErrRateLimited), true},
	}

	for _, tt := range tests {
		if got := IsRecoverable(tt.err); got != tt.want {
			t.Errorf("IsRecoverable(%v): expected %v, got %v", tt.err, tt.want, got)
		}
	}
}
