// Package sentence provides incremental sentence segmentation for streaming
// text-to-speech.
//
// The boundary grammar is deterministic:
//
//   - A run of sentence-ending punctuation (".", "!", "?"), optionally
//     followed by closing quotes or brackets, ends a sentence when it is
//     followed by whitespace already present in the buffer.
//   - A terminator sitting at the very end of the buffer never emits; it is
//     confirmed by later input or by Flush. This keeps "Mr." and trailing
//     decimals intact while tokens are still arriving.
//   - A period only terminates when the next word starts with an uppercase
//     letter, and never after a known abbreviation ("dr.", "i.e.", ...), a
//     multi-dot token ("U.S.", "Ph.D."), a single-letter initial, a decimal
//     digit pair, or as part of an ellipsis.
//   - A blank line is always a paragraph boundary, regardless of punctuation.
//
// Emission order is strictly feed order and a sentence is never split across
// two emissions.
package sentence

import (
	"strings"
	"unicode"
)

// Segmenter accumulates text fragments and emits complete sentences.
// It is not safe for concurrent use; callers serialize access.
type Segmenter struct {
	buf           []rune
	abbreviations map[string]bool
}

// NewSegmenter creates a segmenter with the default abbreviation set.
func NewSegmenter() *Segmenter {
	return &Segmenter{
		abbreviations: makeAbbreviationMap(),
	}
}

// Feed appends fragment to the internal buffer and returns every complete
// sentence detected, trimmed of surrounding whitespace, in order. A fragment
// containing several boundaries yields several sentences; a fragment with
// none yields nil and stays buffered.
func (s *Segmenter) Feed(fragment string) []string {
	if fragment == "" {
		return nil
	}
	s.buf = append(s.buf, []rune(fragment)...)

	var units []string
	for {
		end, ok := s.nextBoundary()
		if !ok {
			break
		}
		unit := strings.TrimSpace(string(s.buf[:end]))
		s.buf = s.buf[end:]
		if unit != "" {
			units = append(units, unit)
		}
	}
	return units
}

// Flush emits the remaining buffered text as one final sentence and clears
// the buffer. The second return value is false when nothing was pending.
func (s *Segmenter) Flush() (string, bool) {
	unit := strings.TrimSpace(string(s.buf))
	s.buf = s.buf[:0]
	if unit == "" {
		return "", false
	}
	return unit, true
}

// Pending reports how many runes are buffered without a confirmed boundary.
func (s *Segmenter) Pending() int {
	return len(s.buf)
}

// nextBoundary scans the buffer for the first confirmed sentence boundary and
// returns the index just past it.
func (s *Segmenter) nextBoundary() (int, bool) {
	r := s.buf
	for i := 0; i < len(r); i++ {
		// Paragraph break: newline, optional intra-line whitespace, newline.
		if r[i] == '\n' {
			j := i + 1
			for j < len(r) && (r[j] == ' ' || r[j] == '\t' || r[j] == '\r') {
				j++
			}
			if j < len(r) && r[j] == '\n' {
				return j + 1, true
			}
			continue
		}

		if r[i] != '.' && r[i] != '!' && r[i] != '?' {
			continue
		}

		// Collect the whole punctuation run plus trailing closers.
		end := i + 1
		for end < len(r) && (r[end] == '.' || r[end] == '!' || r[end] == '?') {
			end++
		}
		punctEnd := end
		for end < len(r) && isClosing(r[end]) {
			end++
		}

		if end >= len(r) {
			// Terminator at the buffer edge: wait for confirmation.
			return 0, false
		}
		if !unicode.IsSpace(r[end]) {
			i = end - 1
			continue
		}
		if !s.isSentenceEnd(r, i, punctEnd, end) {
			i = end - 1
			continue
		}
		return end, true
	}
	return 0, false
}

// isSentenceEnd decides whether the punctuation run starting at i really ends
// a sentence. r[end] is known to be whitespace.
func (s *Segmenter) isSentenceEnd(r []rune, i, punctEnd, end int) bool {
	if r[i] == '!' || r[i] == '?' {
		return true
	}

	// A run of periods is an ellipsis, not a terminator.
	if punctEnd-i > 1 {
		return false
	}

	// Decimal numbers: "3.14" never splits.
	if i > 0 && i+1 < len(r) && unicode.IsDigit(r[i-1]) && unicode.IsDigit(r[i+1]) {
		return false
	}

	word := wordBefore(r, i)
	if word != "" {
		if s.abbreviations[word] || s.abbreviations[strings.TrimSuffix(word, ".")] {
			return false
		}
		// Multi-dot tokens like "u.s." or "ph.d." and single-letter
		// initials like "J." do not end sentences.
		if strings.Count(word, ".") > 1 {
			return false
		}
		if len([]rune(word)) == 2 && unicode.IsLetter([]rune(word)[0]) {
			return false
		}
	}

	// A period needs a capitalized follow-up to count as a terminator.
	next := end
	for next < len(r) && unicode.IsSpace(r[next]) {
		next++
	}
	if next >= len(r) {
		return true
	}
	return unicode.IsUpper(r[next]) || unicode.IsDigit(r[next]) || isOpening(r[next])
}

// wordBefore returns the lowercased word ending at the punctuation position,
// period included.
func wordBefore(r []rune, pos int) string {
	start := pos - 1
	for start >= 0 && !unicode.IsSpace(r[start]) {
		start--
	}
	if start+1 > pos {
		return ""
	}
	return strings.ToLower(string(r[start+1 : pos+1]))
}

func isClosing(c rune) bool {
	switch c {
	case '"', '\'', ')', ']', '”', '’':
		return true
	}
	return false
}

func isOpening(c rune) bool {
	switch c {
	case '"', '\'', '(', '[', '“', '‘':
		return true
	}
	return false
}

// makeAbbreviationMap builds the set of tokens whose trailing period does not
// end a sentence.
func makeAbbreviationMap() map[string]bool {
	abbrevs := []string{
		"mr", "mrs", "ms", "dr", "prof", "sr", "jr", "st",
		"ph.d", "m.d", "b.a", "m.a", "b.s",
		"llc", "inc", "ltd", "co", "corp",
		"i.e", "e.g", "etc", "vs", "cf", "al", "approx",
		"jan", "feb", "mar", "apr", "jun", "jul", "aug",
		"sep", "sept", "oct", "nov", "dec",
		"mon", "tue", "wed", "thu", "fri", "sat", "sun",
		"rd", "ave", "blvd", "ln", "ct",
		"u.s", "u.k", "u.n", "e.u", "n.y", "l.a",
		"ft", "lbs", "oz", "kg", "km", "cm", "mm", "mi", "yd",
		"hr", "hrs", "min", "mins", "sec", "secs", "no", "vol",
	}

	m := make(map[string]bool, len(abbrevs)*2)
	for _, a := range abbrevs {
		m[a] = true
		if !strings.Contains(a, ".") {
			m[a+"."] = true
		}
	}
	return m
}
