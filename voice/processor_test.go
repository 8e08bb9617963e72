package voice_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dgnsrekt/voicepipe/voice"
	"github.com/dgnsrekt/voicepipe/voice/audio"
	"github.com/dgnsrekt/voicepipe/voice/engines/mock"
)

func testConfig() voice.Config {
	cfg := voice.DefaultConfig()
	cfg.QueueSize = 16
	cfg.RetryAttempts = 1
	cfg.RetryDelay = time.Millisecond
	return cfg
}

func newTestProcessor(t *testing.T, cfg voice.Config, engine *mock.Engine, opts ...voice.Option) (*voice.Processor, *audio.MockSink) {
	t.Helper()
	sink := audio.NewMockSink()
	opts = append([]voice.Option{voice.WithSink(sink)}, opts...)
	p, err := voice.NewProcessor(cfg, engine, opts...)
	if err != nil {
		t.Fatalf("NewProcessor failed: %v", err)
	}
	t.Cleanup(func() { _ = p.Close() })
	return p, sink
}

func callTexts(engine *mock.Engine) []string {
	var texts []string
	for _, c := range engine.Calls() {
		texts = append(texts, c.Text)
	}
	return texts
}

func TestProcessorAddText(t *testing.T) {
	engine := mock.New()
	p, sink := newTestProcessor(t, testConfig(), engine)

	n, err := p.AddText("First sentence. Second sentence! Third trails off")
	if err != nil {
		t.Fatalf("AddText failed: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3 sentences enqueued, got %d", n)
	}
	if err := p.Wait(); err != nil {
		t.Fatalf("Wait failed: %v", err)
	}

	expected := []string{"First sentence.", "Second sentence!", "Third trails off"}
	got := callTexts(engine)
	if len(got) != len(expected) {
		t.Fatalf("expected %d synthesis calls, got %d: %q", len(expected), len(got), got)
	}
	for i := range got {
		if got[i] != expected[i] {
			t.Errorf("call %d: expected %q, got %q", i, expected[i], got[i])
		}
	}

	// Three 480 byte segments with two 240 byte splices merged.
	segBytes := engine.SegmentSamples * audio.BytesPerSample
	fade := audio.ClampFade(audio.FadeBytes(20*time.Millisecond, 24000), segBytes)
	if want := 3*segBytes - 2*fade; len(sink.Stream()) != want {
		t.Errorf("expected %d rendered bytes, got %d", want, len(sink.Stream()))
	}
}

func TestProcessorStreamsTokens(t *testing.T) {
	engine := mock.New()
	p, _ := newTestProcessor(t, testConfig(), engine)

	tokens := []string{"The ", "sky ", "is ", "blue", ".", " Water ", "is ", "wet", ".", " Mostly"}
	enqueued := 0
	for _, tok := range tokens {
		n, err := p.AddToken(tok)
		if err != nil {
			t.Fatalf("AddToken(%q) failed: %v", tok, err)
		}
		enqueued += n
	}

	n, err := p.FinalizeTokens()
	if err != nil {
		t.Fatalf("FinalizeTokens failed: %v", err)
	}
	enqueued += n
	if enqueued != 3 {
		t.Fatalf("expected 3 sentences from token stream, got %d", enqueued)
	}
	if err := p.Wait(); err != nil {
		t.Fatalf("Wait failed: %v", err)
	}

	expected := []string{"The sky is blue.", "Water is wet.", "Mostly"}
	got := callTexts(engine)
	if len(got) != len(expected) {
		t.Fatalf("expected calls %q, got %q", expected, got)
	}
	for i := range got {
		if got[i] != expected[i] {
			t.Errorf("call %d: expected %q, got %q", i, expected[i], got[i])
		}
	}

	// Finalize with nothing pending is a no-op.
	if n, err := p.FinalizeTokens(); err != nil || n != 0 {
		t.Errorf("expected empty finalize to enqueue nothing, got n=%d err=%v", n, err)
	}
}

func TestProcessorWaitIdle(t *testing.T) {
	engine := mock.New()
	p, _ := newTestProcessor(t, testConfig(), engine)

	// Empty and whitespace-only input enqueues nothing.
	if n, err := p.AddText(""); err != nil || n != 0 {
		t.Fatalf("AddText(\"\"): got n=%d err=%v", n, err)
	}
	if n, err := p.AddText("   \n  "); err != nil || n != 0 {
		t.Fatalf("whitespace AddText: got n=%d err=%v", n, err)
	}

	done := make(chan error, 1)
	go func() { done <- p.Wait() }()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("idle Wait returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Wait blocked on an idle processor")
	}

	if got := len(engine.Calls()); got != 0 {
		t.Errorf("expected no synthesis calls, got %d", got)
	}
}

func TestProcessorWaitThenMore(t *testing.T) {
	engine := mock.New()
	p, _ := newTestProcessor(t, testConfig(), engine)

	if _, err := p.AddText("Round one."); err != nil {
		t.Fatal(err)
	}
	if err := p.Wait(); err != nil {
		t.Fatalf("first Wait failed: %v", err)
	}

	if _, err := p.AddText("Round two."); err != nil {
		t.Fatal(err)
	}
	if err := p.Wait(); err != nil {
		t.Fatalf("second Wait failed: %v", err)
	}

	if got := len(engine.Calls()); got != 2 {
		t.Errorf("expected 2 synthesis calls across both rounds, got %d", got)
	}
	if p.Pending() != 0 {
		t.Errorf("expected no pending work after Wait, got %d", p.Pending())
	}
}

func TestProcessorSynthesisFailureContinues(t *testing.T) {
	engine := mock.New()
	engine.FailOn = 2
	engine.Err = errors.New("service unavailable")

	var mu sync.Mutex
	var failedSeqs []uint64
	var failedTexts []string
	handler := func(seq uint64, text string, err error) {
		mu.Lock()
		defer mu.Unlock()
		failedSeqs = append(failedSeqs, seq)
		failedTexts = append(failedTexts, text)
	}

	p, sink := newTestProcessor(t, testConfig(), engine, voice.WithErrorHandler(handler))

	if _, err := p.AddText("One works. Two breaks. Three works."); err != nil {
		t.Fatal(err)
	}
	if err := p.Wait(); err != nil {
		t.Fatalf("Wait should succeed past a dropped sentence, got %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(failedSeqs) != 1 || failedSeqs[0] != 2 {
		t.Errorf("expected exactly sentence 2 reported, got %v", failedSeqs)
	}
	if len(failedTexts) != 1 || failedTexts[0] != "Two breaks." {
		t.Errorf("expected failing text reported, got %v", failedTexts)
	}

	// Sentences one and three still render.
	segBytes := engine.SegmentSamples * audio.BytesPerSample
	fade := audio.ClampFade(audio.FadeBytes(20*time.Millisecond, 24000), segBytes)
	if want := 2*segBytes - fade; len(sink.Stream()) != want {
		t.Errorf("expected %d rendered bytes from two sentences, got %d", want, len(sink.Stream()))
	}
}

func TestProcessorQueueFull(t *testing.T) {
	engine := mock.New()
	engine.Delay = 100 * time.Millisecond

	cfg := testConfig()
	cfg.QueueSize = 1
	p, _ := newTestProcessor(t, cfg, engine)

	n, err := p.AddText("One here. Two here. Three here. Four here.")
	if !errors.Is(err, voice.ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got n=%d err=%v", n, err)
	}
	if n >= 4 {
		t.Errorf("expected the bound to reject at least one sentence, got %d accepted", n)
	}

	// Everything accepted before the rejection still plays out.
	if werr := p.Wait(); werr != nil {
		t.Errorf("Wait after queue rejection failed: %v", werr)
	}
	if got := len(engine.Calls()); got != n {
		t.Errorf("expected %d synthesized sentences, got %d", n, got)
	}
}

func TestProcessorClosed(t *testing.T) {
	p, _ := newTestProcessor(t, testConfig(), mock.New())

	if err := p.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Errorf("second Close should be a no-op, got %v", err)
	}

	if _, err := p.AddText("too late."); !errors.Is(err, voice.ErrProcessorClosed) {
		t.Errorf("expected ErrProcessorClosed from AddText, got %v", err)
	}
	// A fragment with no sentence boundary must be rejected too, not
	// silently buffered.
	if _, err := p.AddToken("too "); !errors.Is(err, voice.ErrProcessorClosed) {
		t.Errorf("expected ErrProcessorClosed from AddToken, got %v", err)
	}
	if _, err := p.FinalizeTokens(); !errors.Is(err, voice.ErrProcessorClosed) {
		t.Errorf("expected ErrProcessorClosed from FinalizeTokens, got %v", err)
	}
}

func TestProcessorFatalPlaybackError(t *testing.T) {
	engine := mock.New()
	sink := audio.NewMockSink()
	sink.WriteErr = errors.New("device gone")
	sink.FailWrites = 100

	p, err := voice.NewProcessor(testConfig(), engine, voice.WithSink(sink))
	if err != nil {
		t.Fatalf("NewProcessor failed: %v", err)
	}
	defer p.Close()

	if _, err := p.AddText("First dies. Second skipped. Third skipped."); err != nil {
		t.Fatal(err)
	}

	werr := p.Wait()
	if !errors.Is(werr, audio.ErrDeviceFailed) {
		t.Fatalf("expected ErrDeviceFailed from Wait, got %v", werr)
	}

	// The worker stops synthesizing once playback is gone for good.
	if got := len(engine.Calls()); got != 1 {
		t.Errorf("expected synthesis to stop after the fatal failure, got %d calls", got)
	}
}

func TestProcessorConstructionErrors(t *testing.T) {
	t.Run("nil engine", func(t *testing.T) {
		_, err := voice.NewProcessor(testConfig(), nil)
		if !errors.Is(err, voice.ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})

	t.Run("unknown voice", func(t *testing.T) {
		cfg := testConfig()
		cfg.Voice = "robot"
		_, err := voice.NewProcessor(cfg, mock.New())
		if !errors.Is(err, voice.ErrInvalidVoice) {
			t.Errorf("expected ErrInvalidVoice, got %v", err)
		}
	})

	t.Run("sample rate mismatch", func(t *testing.T) {
		cfg := testConfig()
		cfg.SampleRate = 16000
		_, err := voice.NewProcessor(cfg, mock.New())
		if !errors.Is(err, voice.ErrInvalidSampleRate) {
			t.Errorf("expected ErrInvalidSampleRate, got %v", err)
		}
	})
}

func TestProcessorVoiceSelection(t *testing.T) {
	cfg := testConfig()
	cfg.Voice = "3"
	engine := mock.New()
	p, _ := newTestProcessor(t, cfg, engine)

	if p.Voice() != voice.Fable {
		t.Fatalf("expected index 3 to resolve to fable, got %v", p.Voice())
	}

	if _, err := p.AddText("Say it."); err != nil {
		t.Fatal(err)
	}
	if err := p.Wait(); err != nil {
		t.Fatal(err)
	}

	calls := engine.Calls()
	if len(calls) != 1 || calls[0].Voice != voice.Fable {
		t.Errorf("expected synthesis with fable, got %+v", calls)
	}
}

func TestProcessorPending(t *testing.T) {
	engine := mock.New()
	engine.Delay = 50 * time.Millisecond
	p, _ := newTestProcessor(t, testConfig(), engine)

	if _, err := p.AddText("Slow one. Slow two."); err != nil {
		t.Fatal(err)
	}
	if p.Pending() == 0 {
		t.Error("expected pending work while synthesis is in flight")
	}
	if err := p.Wait(); err != nil {
		t.Fatal(err)
	}
	if p.Pending() != 0 {
		t.Errorf("expected no pending work after Wait, got %d", p.Pending())
	}
}
