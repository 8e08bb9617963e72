package audio

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// Player errors.
var (
	// ErrOutOfOrder reports a segment submitted with a non-increasing
	// sequence number.
	ErrOutOfOrder = errors.New("audio segment out of order")
	// ErrEmptySegment reports a segment without playable samples.
	ErrEmptySegment = errors.New("empty audio segment")
	// ErrDeviceFailed reports a device failure that survived every retry.
	ErrDeviceFailed = errors.New("audio device failed")
)

// Segment is one synthesized sentence worth of PCM, tagged with the sequence
// number assigned at enqueue time.
type Segment struct {
	Seq        uint64
	PCM        []byte
	SampleRate int
}

// Config tunes the player.
type Config struct {
	SampleRate    int           // device sample rate
	Crossfade     time.Duration // splice overlap between consecutive segments
	RetryAttempts int           // device reopen attempts per write
	RetryDelay    time.Duration // pause between reopen attempts
}

// DefaultConfig returns the player defaults: 24 kHz, 20 ms splices, three
// recovery attempts half a second apart.
func DefaultConfig() Config {
	return Config{
		SampleRate:    24000,
		Crossfade:     20 * time.Millisecond,
		RetryAttempts: 3,
		RetryDelay:    500 * time.Millisecond,
	}
}

// Player renders segments to a Sink strictly in sequence order, blending each
// splice so consecutive sentences play back-to-back without clicks. The
// device is opened lazily on the first Play; transient write failures reopen
// it a bounded number of times before becoming fatal.
//
// Playback state (the held crossfade tail, the device handle) is owned
// exclusively by the player.
type Player struct {
	mu      sync.Mutex
	sink    Sink
	cfg     Config
	started bool

	lastSeq  uint64
	havePrev bool
	tail     []byte // trailing fade window of the previous segment
}

// NewPlayer wraps sink with crossfaded sequential playback.
func NewPlayer(sink Sink, cfg Config) *Player {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = DefaultConfig().SampleRate
	}
	return &Player{sink: sink, cfg: cfg}
}

// Play renders one segment. Segments must arrive with strictly increasing
// sequence numbers; the player never reorders. The leading fade window of the
// segment is blended with the held tail of its predecessor, and its own tail
// is withheld for the next splice (Drain flushes it).
func (p *Player) Play(seg Segment) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := len(seg.PCM) - len(seg.PCM)%BytesPerSample
	if n == 0 {
		return ErrEmptySegment
	}
	pcm := seg.PCM[:n]

	if p.havePrev && seg.Seq <= p.lastSeq {
		return fmt.Errorf("%w: got %d after %d", ErrOutOfOrder, seg.Seq, p.lastSeq)
	}

	if err := p.ensureStarted(); err != nil {
		return err
	}

	fade := ClampFade(FadeBytes(p.cfg.Crossfade, p.cfg.SampleRate), n)

	// Splice: the last o bytes of the previous segment overlap the first o
	// bytes of this one.
	o := len(p.tail)
	if fade < o {
		o = fade
	}
	if o > 0 {
		if len(p.tail) > o {
			if err := p.write(p.tail[:len(p.tail)-o]); err != nil {
				return err
			}
		}
		if err := p.write(Crossfade(p.tail[len(p.tail)-o:], pcm[:o])); err != nil {
			return err
		}
	} else if len(p.tail) > 0 {
		if err := p.write(p.tail); err != nil {
			return err
		}
	}

	if err := p.write(pcm[o : n-fade]); err != nil {
		return err
	}

	p.tail = append(p.tail[:0], pcm[n-fade:]...)
	p.lastSeq = seg.Seq
	p.havePrev = true
	log.Debug("segment rendered", "seq", seg.Seq, "bytes", n, "splice_bytes", o)
	return nil
}

// Drain flushes the held tail and blocks until the sink has rendered all
// submitted audio.
func (p *Player) Drain() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.drainLocked(false)
}

// Close flushes pending audio with a fade to silence and releases the device.
func (p *Player) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	drainErr := p.drainLocked(true)
	if !p.started {
		return drainErr
	}
	p.started = false
	if err := p.sink.Close(); err != nil {
		return err
	}
	return drainErr
}

func (p *Player) drainLocked(fadeOut bool) error {
	if len(p.tail) > 0 && p.started {
		tail := p.tail
		if fadeOut {
			tail = FadeOut(tail)
		}
		p.tail = nil
		if err := p.write(tail); err != nil {
			return err
		}
	}
	p.tail = nil
	if !p.started {
		return nil
	}
	return p.sink.Drain()
}

func (p *Player) ensureStarted() error {
	if p.started {
		return nil
	}
	if err := p.sink.Start(p.cfg.SampleRate); err != nil {
		return fmt.Errorf("%w: %v", ErrDeviceFailed, err)
	}
	p.started = true
	return nil
}

// write pushes bytes to the sink, reopening the device on transient errors.
// Exhausting the retry budget is fatal.
func (p *Player) write(pcm []byte) error {
	if len(pcm) == 0 {
		return nil
	}
	_, err := p.sink.Write(pcm)
	if err == nil {
		return nil
	}

	for attempt := 1; attempt <= p.cfg.RetryAttempts; attempt++ {
		log.Warn("audio write failed, reopening device",
			"attempt", attempt, "err", err)
		_ = p.sink.Close()
		p.started = false
		time.Sleep(p.cfg.RetryDelay)

		if serr := p.sink.Start(p.cfg.SampleRate); serr != nil {
			err = serr
			continue
		}
		p.started = true
		_, err = p.sink.Write(pcm)
		if err == nil {
			return nil
		}
	}
	return fmt.Errorf("%w: %v", ErrDeviceFailed, err)
}
