package main

import (
	"fmt"
	"io"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/charmbracelet/log"
)

type logEnv struct {
	Debug   bool   `env:"VOICEPIPE_DEBUG"`
	LogFile string `env:"VOICEPIPE_LOGFILE"`
}

// setupLog routes log output: discarded by default so playback output stays
// clean, to a file when VOICEPIPE_LOGFILE is set, to stderr when only
// VOICEPIPE_DEBUG is set. The returned closer flushes the log target.
func setupLog() (func() error, error) {
	cfg, err := env.ParseAs[logEnv]()
	if err != nil {
		return nil, fmt.Errorf("error parsing log environment: %w", err)
	}

	if cfg.Debug {
		log.SetLevel(log.DebugLevel)
	}
	log.SetReportTimestamp(true)

	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644) //nolint:gosec
		if err != nil {
			return nil, fmt.Errorf("error opening log file: %w", err)
		}
		log.SetOutput(f)
		return f.Close, nil
	}

	if cfg.Debug {
		log.SetOutput(os.Stderr)
	} else {
		log.SetOutput(io.Discard)
	}
	return func() error { return nil }, nil
}
