// Package audio renders synthesized PCM segments to an output device with
// crossfaded splices between consecutive segments.
package audio

import (
	"errors"
	"io"
	"sync"
)

// Sink is the audio device boundary: a stream of s16le mono PCM frames at a
// fixed sample rate. Implementations own the device handle exclusively.
type Sink interface {
	// Start opens the device for the given sample rate. Calling Start on an
	// open sink is a no-op.
	Start(sampleRate int) error

	// Write submits PCM bytes for rendering. It may buffer; Drain flushes.
	Write(pcm []byte) (int, error)

	// Drain blocks until everything written has been rendered.
	Drain() error

	// Close releases the device. The sink cannot be restarted afterwards
	// except through Start, which may reopen it after a transient failure.
	Close() error
}

var errBufferClosed = errors.New("pcm buffer is closed")

// pcmBuffer is an unbounded byte queue bridging Write calls to the device's
// pull-based reader. When empty it yields silence instead of blocking, so the
// device stream never underruns into an error state.
type pcmBuffer struct {
	mu     sync.Mutex
	cond   *sync.Cond
	data   []byte
	closed bool
}

func newPCMBuffer() *pcmBuffer {
	b := &pcmBuffer{}
	b.cond = sync.NewCond(&b.mu)
	return b
}

func (b *pcmBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return 0, errBufferClosed
	}
	b.data = append(b.data, p...)
	b.cond.Broadcast()
	return len(p), nil
}

// Read never blocks: pending data is returned first, and an empty open buffer
// produces silence. After Close and exhaustion it reports io.EOF.
func (b *pcmBuffer) Read(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.data) > 0 {
		n := copy(p, b.data)
		b.data = b.data[n:]
		if len(b.data) == 0 {
			b.cond.Broadcast()
		}
		return n, nil
	}
	if b.closed {
		return 0, io.EOF
	}
	for i := range p {
		p[i] = 0
	}
	return len(p), nil
}

// WaitEmpty blocks until every written byte has been consumed by the reader.
func (b *pcmBuffer) WaitEmpty() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for len(b.data) > 0 && !b.closed {
		b.cond.Wait()
	}
}

func (b *pcmBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.data)
}

func (b *pcmBuffer) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.cond.Broadcast()
}
