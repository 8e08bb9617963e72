package voice

import (
	"time"

	"github.com/spf13/viper"
)

// FromViper overlays the voice.* keys of the loaded Viper configuration onto
// base and returns the result. Only keys present in the configuration are
// applied; callers validate the final config once every source (file, env,
// flags) has been merged.
func FromViper(base Config) Config {
	cfg := base

	if viper.IsSet("voice.api_key") {
		cfg.APIKey = viper.GetString("voice.api_key")
	}
	if viper.IsSet("voice.voice") {
		cfg.Voice = viper.GetString("voice.voice")
	}
	if viper.IsSet("voice.model") {
		cfg.Model = viper.GetString("voice.model")
	}

	if viper.IsSet("voice.sample_rate") {
		cfg.SampleRate = viper.GetInt("voice.sample_rate")
	}
	if viper.IsSet("voice.crossfade_ms") {
		cfg.CrossfadeMs = viper.GetInt("voice.crossfade_ms")
	}

	if viper.IsSet("voice.queue_size") {
		cfg.QueueSize = viper.GetInt("voice.queue_size")
	}
	if viper.IsSet("voice.retry_attempts") {
		cfg.RetryAttempts = viper.GetInt("voice.retry_attempts")
	}
	if viper.IsSet("voice.retry_delay") {
		cfg.RetryDelay = getDuration("voice.retry_delay", cfg.RetryDelay)
	}

	if viper.IsSet("voice.request_timeout") {
		cfg.RequestTimeout = getDuration("voice.request_timeout", cfg.RequestTimeout)
	}
	if viper.IsSet("voice.requests_per_second") {
		cfg.RequestsPerSecond = viper.GetFloat64("voice.requests_per_second")
	}

	return cfg
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if d := viper.GetDuration(key); d > 0 {
		return d
	}
	return fallback
}
