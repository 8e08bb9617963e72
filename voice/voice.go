// Package voice converts an incrementally produced text stream into
// continuously playing speech audio.
//
// Text arrives either as whole blocks (AddText) or as generation tokens
// (AddToken); both paths segment it into sentences, queue the sentences, and
// a single background worker synthesizes and plays them strictly in enqueue
// order. Wait blocks until everything queued has been heard.
package voice

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/voicepipe/voice/audio"
	"github.com/dgnsrekt/voicepipe/voice/sentence"
)

// workItem is one queued sentence: its enqueue sequence number, its text, and
// the voice it will be spoken with. Discarded after synthesis dispatch.
type workItem struct {
	seq   uint64
	text  string
	voice Voice
}

// Processor is the streaming coordinator. It owns the sentence queue, the
// pending-work latch, and the token segmenter; the player owns the audio
// device. Processors are independent: several can coexist in one process.
type Processor struct {
	cfg    Config
	voice  Voice
	engine Engine
	player *audio.Player

	seg   *sentence.Segmenter
	segMu sync.Mutex

	queue   chan workItem
	seq     atomic.Uint64
	pending *latch

	onError ErrorHandler

	mu     sync.Mutex // guards closed and queue sends against Close
	closed bool

	fatalMu sync.Mutex
	fatal   error // first unrecoverable playback failure

	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
	closeErr  error
}

// Option configures a Processor beyond its Config.
type Option func(*Processor)

// WithSink substitutes the audio output device. Tests use this to capture the
// rendered stream.
func WithSink(sink audio.Sink) Option {
	return func(p *Processor) {
		p.player = audio.NewPlayer(sink, playerConfig(p.cfg))
	}
}

// WithErrorHandler registers a callback for per-sentence synthesis failures.
func WithErrorHandler(h ErrorHandler) Option {
	return func(p *Processor) { p.onError = h }
}

// NewProcessor validates cfg, resolves the voice, and starts the background
// worker. The audio device itself is not opened until the first sentence is
// played. Construction fails fast on an invalid voice or missing credential.
func NewProcessor(cfg Config, engine Engine, opts ...Option) (*Processor, error) {
	if engine == nil {
		return nil, fmt.Errorf("%w: engine is required", ErrInvalidConfig)
	}
	if cfg.Voice == "" {
		cfg.Voice = DefaultConfig().Voice
	}
	if cfg.QueueSize < 1 {
		cfg.QueueSize = DefaultConfig().QueueSize
	}
	v, err := ParseVoice(cfg.Voice)
	if err != nil {
		return nil, err
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = engine.SampleRate()
	}
	if cfg.SampleRate != engine.SampleRate() {
		return nil, fmt.Errorf("%w: configured %d Hz but engine %q produces %d Hz",
			ErrInvalidSampleRate, cfg.SampleRate, engine.Name(), engine.SampleRate())
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &Processor{
		cfg:     cfg,
		voice:   v,
		engine:  engine,
		seg:     sentence.NewSegmenter(),
		queue:   make(chan workItem, cfg.QueueSize),
		pending: newLatch(),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.player == nil {
		p.player = audio.NewPlayer(audio.NewOtoSink(), playerConfig(cfg))
	}

	go p.worker()
	log.Debug("processor started", "voice", v, "engine", engine.Name(), "queue", cfg.QueueSize)
	return p, nil
}

func playerConfig(cfg Config) audio.Config {
	pc := audio.DefaultConfig()
	if cfg.SampleRate > 0 {
		pc.SampleRate = cfg.SampleRate
	}
	if cfg.CrossfadeMs >= 0 {
		pc.Crossfade = time.Duration(cfg.CrossfadeMs) * time.Millisecond
	}
	if cfg.RetryAttempts > 0 {
		pc.RetryAttempts = cfg.RetryAttempts
	}
	if cfg.RetryDelay > 0 {
		pc.RetryDelay = cfg.RetryDelay
	}
	return pc
}

// AddText segments text immediately (an ephemeral segmentation pass with a
// final flush) and enqueues every resulting sentence. It returns the number
// of sentences enqueued and never blocks on synthesis or playback.
func (p *Processor) AddText(text string) (int, error) {
	if p.isClosed() {
		return 0, ErrProcessorClosed
	}
	seg := sentence.NewSegmenter()
	units := seg.Feed(text)
	if rest, ok := seg.Flush(); ok {
		units = append(units, rest)
	}
	return p.enqueueAll(units)
}

// AddToken feeds one generation token into the shared segmenter and enqueues
// any sentences it completes. Designed for many small, high-frequency calls;
// the call only appends to the token buffer and pushes onto the queue.
func (p *Processor) AddToken(token string) (int, error) {
	if p.isClosed() {
		return 0, ErrProcessorClosed
	}
	p.segMu.Lock()
	units := p.seg.Feed(token)
	p.segMu.Unlock()
	return p.enqueueAll(units)
}

// FinalizeTokens flushes the shared segmenter, enqueueing whatever trailing
// text never reached a sentence boundary.
func (p *Processor) FinalizeTokens() (int, error) {
	if p.isClosed() {
		return 0, ErrProcessorClosed
	}
	p.segMu.Lock()
	unit, ok := p.seg.Flush()
	p.segMu.Unlock()
	if !ok {
		return 0, nil
	}
	return p.enqueueAll([]string{unit})
}

func (p *Processor) enqueueAll(units []string) (int, error) {
	n := 0
	for _, u := range units {
		if err := p.enqueue(u); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

func (p *Processor) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

func (p *Processor) enqueue(text string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrProcessorClosed
	}

	item := workItem{seq: p.seq.Add(1), text: text, voice: p.voice}
	p.pending.add(1)
	select {
	case p.queue <- item:
		log.Debug("sentence queued", "seq", item.seq, "len", len(text))
		return nil
	default:
		// The queue absorbs the gap between text arrival and audio
		// rendering; hitting the bound means the producer is running far
		// ahead and must be told, not silently stalled.
		p.pending.done()
		return fmt.Errorf("%w (capacity %d)", ErrQueueFull, cap(p.queue))
	}
}

// Wait blocks until every enqueued sentence has been handled and the player
// has rendered all submitted audio. It returns immediately on an idle
// pipeline, and returns the first fatal playback error if one occurred.
func (p *Processor) Wait() error {
	p.pending.wait()
	drainErr := p.player.Drain()
	if err := p.fatalErr(); err != nil {
		return err
	}
	return drainErr
}

// Close stops the worker and releases the audio device. Pending sentences are
// abandoned; call Wait first to let them finish. Safe to call more than once.
func (p *Processor) Close() error {
	p.closeOnce.Do(func() {
		p.mu.Lock()
		p.closed = true
		close(p.queue)
		p.mu.Unlock()

		p.cancel()
		<-p.done
		p.closeErr = p.player.Close()
	})
	return p.closeErr
}

// Pending reports how many sentences are queued or in flight.
func (p *Processor) Pending() int {
	return p.pending.value()
}

// Voice returns the resolved voice the processor speaks with.
func (p *Processor) Voice() Voice {
	return p.voice
}

// worker is the single consumer: it drains the queue in FIFO order and drives
// synthesis and playback. Playback is strictly sequential, so there is
// exactly one worker, never a pool.
func (p *Processor) worker() {
	defer close(p.done)
	for item := range p.queue {
		p.process(item)
	}
}

func (p *Processor) process(item workItem) {
	// The latch decrements exactly once per item: success, failure, or skip.
	defer p.pending.done()

	if p.fatalErr() != nil || p.ctx.Err() != nil {
		return
	}

	pcm, err := p.engine.Synthesize(p.ctx, item.text, item.voice)
	if err != nil {
		// A failed sentence is dropped; later sentences keep their order.
		log.Error("synthesis failed", "seq", item.seq, "err", err)
		p.reportError(item, err)
		return
	}

	seg := audio.Segment{Seq: item.seq, PCM: pcm, SampleRate: p.engine.SampleRate()}
	if err := p.player.Play(seg); err != nil {
		if errors.Is(err, audio.ErrEmptySegment) {
			log.Warn("skipping empty segment", "seq", item.seq)
			p.reportError(item, fmt.Errorf("%w: %v", ErrEmptyAudio, err))
			return
		}
		// The player already exhausted its device retries; losing all
		// playback must be loud, not silent.
		log.Error("playback failed", "seq", item.seq, "err", err)
		p.setFatal(err)
		p.reportError(item, err)
	}
}

func (p *Processor) reportError(item workItem, err error) {
	if p.onError != nil {
		p.onError(item.seq, item.text, err)
	}
}

func (p *Processor) setFatal(err error) {
	p.fatalMu.Lock()
	defer p.fatalMu.Unlock()
	if p.fatal == nil {
		p.fatal = err
	}
}

func (p *Processor) fatalErr() error {
	p.fatalMu.Lock()
	defer p.fatalMu.Unlock()
	return p.fatal
}

// latch counts outstanding sentences: enqueued minus completed. wait blocks
// until it hits zero. The counter can never go negative; that would mean a
// completion without an enqueue.
type latch struct {
	mu   sync.Mutex
	cond *sync.Cond
	n    int
}

func newLatch() *latch {
	l := &latch{}
	l.cond = sync.NewCond(&l.mu)
	return l
}

func (l *latch) add(delta int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.n += delta
}

func (l *latch) done() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.n--
	if l.n < 0 {
		panic("voice: completion latch went negative")
	}
	if l.n == 0 {
		l.cond.Broadcast()
	}
}

func (l *latch) wait() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for l.n > 0 {
		l.cond.Wait()
	}
}

func (l *latch) value() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.n
}
