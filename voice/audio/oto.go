//go:build !nocgo
// +build !nocgo

package audio

import (
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/ebitengine/oto/v3"
)

// deviceBuffer is oto's internal buffer length. Drain waits this long after
// the stream buffer empties so the device finishes rendering the tail.
const deviceBuffer = 50 * time.Millisecond

// oto permits one context per process, so it is shared across sinks.
var (
	otoCtx     *oto.Context
	otoCtxRate int
	otoCtxErr  error
	otoCtxOnce sync.Once
)

func sharedContext(sampleRate int) (*oto.Context, error) {
	otoCtxOnce.Do(func() {
		ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
			SampleRate:   sampleRate,
			ChannelCount: Channels,
			Format:       oto.FormatSignedInt16LE,
			BufferSize:   deviceBuffer,
		})
		if err != nil {
			otoCtxErr = fmt.Errorf("opening audio context: %w", err)
			return
		}
		<-ready
		otoCtx = ctx
		otoCtxRate = sampleRate
	})
	if otoCtxErr != nil {
		return nil, otoCtxErr
	}
	if sampleRate != otoCtxRate {
		return nil, fmt.Errorf("audio context is fixed at %d Hz, got %d", otoCtxRate, sampleRate)
	}
	return otoCtx, nil
}

// OtoSink renders PCM through an ebitengine/oto stream player. One long-lived
// player reads from an internal buffer that substitutes silence when idle, so
// consecutive writes stay gapless.
type OtoSink struct {
	mu     sync.Mutex
	buf    *pcmBuffer
	player *oto.Player
}

// NewOtoSink returns a sink backed by the platform audio device. The device
// is not touched until the first Start.
func NewOtoSink() *OtoSink {
	return &OtoSink{}
}

// Start opens the device stream. Repeated calls on an open sink are no-ops.
func (s *OtoSink) Start(sampleRate int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.player != nil {
		return nil
	}

	ctx, err := sharedContext(sampleRate)
	if err != nil {
		return err
	}

	s.buf = newPCMBuffer()
	s.player = ctx.NewPlayer(s.buf)
	s.player.Play()
	log.Debug("audio device opened", "sample_rate", sampleRate)
	return nil
}

func (s *OtoSink) Write(pcm []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.player == nil {
		return 0, errBufferClosed
	}
	if err := s.player.Err(); err != nil {
		return 0, fmt.Errorf("audio device: %w", err)
	}
	return s.buf.Write(pcm)
}

// Drain blocks until the stream buffer empties, then waits out the device
// buffer so the tail is audible before returning.
func (s *OtoSink) Drain() error {
	s.mu.Lock()
	buf := s.buf
	player := s.player
	s.mu.Unlock()
	if buf == nil {
		return nil
	}

	buf.WaitEmpty()
	time.Sleep(deviceBuffer)
	if player != nil {
		if err := player.Err(); err != nil {
			return fmt.Errorf("audio device: %w", err)
		}
	}
	return nil
}

// Close stops the stream. The shared context stays open for the process.
func (s *OtoSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.player == nil {
		return nil
	}
	s.buf.Close()
	err := s.player.Close()
	s.player = nil
	s.buf = nil
	if err != nil {
		return fmt.Errorf("closing audio device: %w", err)
	}
	return nil
}
