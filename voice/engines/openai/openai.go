// Package openai implements the synthesis boundary against the OpenAI speech
// endpoint. Responses are requested as raw PCM (24 kHz, s16le, mono) so no
// decoding step sits between synthesis and playback.
package openai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"golang.org/x/time/rate"

	"github.com/dgnsrekt/voicepipe/voice"
)

// SampleRate is fixed by the service: PCM responses are 24 kHz s16le mono.
const SampleRate = 24000

// Config holds the engine settings.
type Config struct {
	APIKey            string
	Model             string        // speech model, e.g. "tts-1"
	BaseURL           string        // override for compatible endpoints
	RequestTimeout    time.Duration // per-request ceiling
	RequestsPerSecond float64       // client-side throttle
	Burst             int           // throttle burst
}

// DefaultConfig returns the engine defaults.
func DefaultConfig() Config {
	return Config{
		Model:             "tts-1",
		RequestTimeout:    60 * time.Second,
		RequestsPerSecond: 2,
		Burst:             2,
	}
}

// Engine synthesizes speech via the OpenAI API. Requests are throttled
// client-side so a fast token producer cannot trip the account rate limit.
type Engine struct {
	client  *oai.Client
	cfg     Config
	limiter *rate.Limiter
}

// New validates cfg and builds the engine. A missing credential fails here.
func New(cfg Config) (*Engine, error) {
	if cfg.APIKey == "" {
		return nil, voice.ErrMissingAPIKey
	}
	if cfg.Model == "" {
		cfg.Model = DefaultConfig().Model
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultConfig().RequestTimeout
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = DefaultConfig().RequestsPerSecond
	}
	if cfg.Burst < 1 {
		cfg.Burst = 1
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	client := oai.NewClient(opts...)

	return &Engine{
		client:  &client,
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
	}, nil
}

// Name identifies the engine in logs.
func (e *Engine) Name() string { return "openai" }

// SampleRate reports the fixed PCM output rate.
func (e *Engine) SampleRate() int { return SampleRate }

// Synthesize converts one sentence to PCM samples.
func (e *Engine) Synthesize(ctx context.Context, text string, v voice.Voice) ([]byte, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", voice.ErrSynthesisFailed, err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, e.cfg.RequestTimeout)
	defer cancel()

	start := time.Now()
	res, err := e.client.Audio.Speech.New(reqCtx, oai.AudioSpeechNewParams{
		Model:          oai.SpeechModel(e.cfg.Model),
		Input:          text,
		Voice:          speechVoice(v),
		ResponseFormat: oai.AudioSpeechNewParamsResponseFormatPCM,
	})
	if err != nil {
		return nil, classify(err)
	}
	defer res.Body.Close()

	pcm, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", voice.ErrSynthesisFailed, err)
	}
	if len(pcm) < 2 {
		return nil, voice.ErrEmptyAudio
	}
	// Keep samples aligned; a trailing odd byte would skew every sample after.
	pcm = pcm[:len(pcm)-len(pcm)%2]

	log.Debug("synthesized sentence",
		"voice", v, "chars", len(text), "bytes", len(pcm),
		"took", time.Since(start).Round(time.Millisecond))
	return pcm, nil
}

// classify folds API failures into the pipeline's error taxonomy while
// preserving the underlying detail.
func classify(err error) error {
	var apierr *oai.Error
	if errors.As(err, &apierr) {
		switch apierr.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%w: %v", voice.ErrAuthFailed, err)
		case http.StatusTooManyRequests:
			return fmt.Errorf("%w: %v", voice.ErrRateLimited, err)
		}
	}
	return fmt.Errorf("%w: %v", voice.ErrSynthesisFailed, err)
}

// speechVoice maps the pipeline's closed voice set onto the API value. The
// API takes the canonical lowercase name directly; the SDK only declares
// constants for a subset of them.
func speechVoice(v voice.Voice) oai.AudioSpeechNewParamsVoice {
	if !v.Valid() {
		return oai.AudioSpeechNewParamsVoiceAlloy
	}
	return oai.AudioSpeechNewParamsVoice(v.String())
}
