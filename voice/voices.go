package voice

import (
	"fmt"
	"strconv"
	"strings"
)

// Voice is one of the six known synthesis voices. The zero value is invalid.
type Voice int

// The closed voice set, in canonical order. Indices are 1-based to match the
// numbering the service documentation uses.
const (
	Alloy Voice = iota + 1
	Echo
	Fable
	Onyx
	Nova
	Shimmer
)

var voiceNames = [...]string{"alloy", "echo", "fable", "onyx", "nova", "shimmer"}

// String returns the canonical lowercase name.
func (v Voice) String() string {
	if !v.Valid() {
		return fmt.Sprintf("voice(%d)", int(v))
	}
	return voiceNames[v-1]
}

// Valid reports whether v is one of the six known voices.
func (v Voice) Valid() bool {
	return v >= Alloy && v <= Shimmer
}

// ParseVoice resolves a canonical name (case-insensitive) or a 1-based index
// rendered as a decimal string. Invalid input is a configuration error, not a
// silent fallback.
func ParseVoice(s string) (Voice, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if name == "" {
		return 0, fmt.Errorf("%w: empty selector", ErrInvalidVoice)
	}
	for i, n := range voiceNames {
		if n == name {
			return Voice(i + 1), nil
		}
	}
	if idx, err := strconv.Atoi(name); err == nil {
		return VoiceFromIndex(idx)
	}
	return 0, fmt.Errorf("%w: %q (want one of %s, or an index 1-%d)",
		ErrInvalidVoice, s, strings.Join(voiceNames[:], ", "), len(voiceNames))
}

// VoiceFromIndex resolves a 1-based index into the canonical voice order.
func VoiceFromIndex(i int) (Voice, error) {
	v := Voice(i)
	if !v.Valid() {
		return 0, fmt.Errorf("%w: index %d out of range 1-%d", ErrInvalidVoice, i, len(voiceNames))
	}
	return v, nil
}

// Voices returns the canonical voice order.
func Voices() []Voice {
	return []Voice{Alloy, Echo, Fable, Onyx, Nova, Shimmer}
}
