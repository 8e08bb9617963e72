//go:build nocgo
// +build nocgo

package audio

import "errors"

// Stub implementation for static analysis and builds without CGO

var errNoAudio = errors.New("audio not available in nocgo build")

// OtoSink stub for nocgo builds.
type OtoSink struct{}

// NewOtoSink returns a sink whose Start always fails.
func NewOtoSink() *OtoSink {
	return &OtoSink{}
}

func (s *OtoSink) Start(sampleRate int) error {
	return errNoAudio
}

func (s *OtoSink) Write(pcm []byte) (int, error) {
	return 0, errNoAudio
}

func (s *OtoSink) Drain() error {
	return nil
}

func (s *OtoSink) Close() error {
	return nil
}
