package voice

import (
	"fmt"
	"time"
)

// Config contains the pipeline configuration. Fields carry both YAML tags for
// the config file and env tags so every knob can be set from the environment.
type Config struct {
	// Credentials and voice selection
	APIKey string `yaml:"api_key" env:"VOICEPIPE_API_KEY"`
	Voice  string `yaml:"voice" env:"VOICEPIPE_VOICE" envDefault:"alloy"`
	Model  string `yaml:"model" env:"VOICEPIPE_MODEL" envDefault:"tts-1"`

	// Audio settings
	SampleRate  int `yaml:"sample_rate" env:"VOICEPIPE_SAMPLE_RATE" envDefault:"24000"`
	CrossfadeMs int `yaml:"crossfade_ms" env:"VOICEPIPE_CROSSFADE_MS" envDefault:"20"`

	// Pipeline settings
	QueueSize     int           `yaml:"queue_size" env:"VOICEPIPE_QUEUE_SIZE" envDefault:"256"`
	RetryAttempts int           `yaml:"retry_attempts" env:"VOICEPIPE_RETRY_ATTEMPTS" envDefault:"3"`
	RetryDelay    time.Duration `yaml:"retry_delay" env:"VOICEPIPE_RETRY_DELAY" envDefault:"500ms"`

	// Synthesis request settings
	RequestTimeout    time.Duration `yaml:"request_timeout" env:"VOICEPIPE_REQUEST_TIMEOUT" envDefault:"60s"`
	RequestsPerSecond float64       `yaml:"requests_per_second" env:"VOICEPIPE_REQUESTS_PER_SECOND" envDefault:"2"`
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		Voice:             "alloy",
		Model:             "tts-1",
		SampleRate:        24000,
		CrossfadeMs:       20,
		QueueSize:         256,
		RetryAttempts:     3,
		RetryDelay:        500 * time.Millisecond,
		RequestTimeout:    60 * time.Second,
		RequestsPerSecond: 2,
	}
}

// Validate checks the configuration. A bad voice or missing credential fails
// here, at construction, never at first use.
func (c Config) Validate() error {
	if c.APIKey == "" {
		return ErrMissingAPIKey
	}
	if _, err := ParseVoice(c.Voice); err != nil {
		return err
	}
	if c.SampleRate <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidSampleRate, c.SampleRate)
	}
	if c.CrossfadeMs < 0 {
		return fmt.Errorf("%w: crossfade_ms must not be negative, got %d", ErrInvalidConfig, c.CrossfadeMs)
	}
	if c.QueueSize < 1 {
		return fmt.Errorf("%w: queue_size must be at least 1, got %d", ErrInvalidConfig, c.QueueSize)
	}
	if c.RetryAttempts < 0 {
		return fmt.Errorf("%w: retry_attempts must not be negative, got %d", ErrInvalidConfig, c.RetryAttempts)
	}
	if c.RequestsPerSecond <= 0 {
		return fmt.Errorf("%w: requests_per_second must be positive, got %g", ErrInvalidConfig, c.RequestsPerSecond)
	}
	return nil
}
