package audio

import (
	"encoding/binary"
	"time"
)

// PCM format shared by the whole pipeline: signed 16-bit little-endian mono.
const (
	BytesPerSample = 2
	Channels       = 1
)

// Crossfade blends the tail of one segment into the head of the next with a
// linear fade. The result is as long as the shorter input, sample-aligned.
func Crossfade(tail, head []byte) []byte {
	n := len(tail)
	if len(head) < n {
		n = len(head)
	}
	n -= n % BytesPerSample

	mixed := make([]byte, n)
	samples := n / BytesPerSample
	for i := 0; i < samples; i++ {
		a := int16(binary.LittleEndian.Uint16(tail[i*2 : i*2+2]))
		b := int16(binary.LittleEndian.Uint16(head[i*2 : i*2+2]))

		fadeOut := float64(samples-i) / float64(samples)
		fadeIn := float64(i) / float64(samples)

		v := int16(float64(a)*fadeOut + float64(b)*fadeIn)
		binary.LittleEndian.PutUint16(mixed[i*2:i*2+2], uint16(v))
	}
	return mixed
}

// FadeOut returns a copy of pcm with amplitude ramped linearly to silence,
// used when tearing the stream down so the last buffer does not end in a pop.
func FadeOut(pcm []byte) []byte {
	n := len(pcm) - len(pcm)%BytesPerSample
	out := make([]byte, n)
	samples := n / BytesPerSample
	if samples == 0 {
		return out
	}
	for i := 0; i < samples; i++ {
		v := int16(binary.LittleEndian.Uint16(pcm[i*2 : i*2+2]))
		gain := float64(samples-i) / float64(samples)
		binary.LittleEndian.PutUint16(out[i*2:i*2+2], uint16(int16(float64(v)*gain)))
	}
	return out
}

// FadeBytes converts a fade duration to a sample-aligned byte count.
func FadeBytes(d time.Duration, sampleRate int) int {
	samples := int(d.Milliseconds()) * sampleRate / 1000
	return samples * BytesPerSample
}

// ClampFade limits a fade window to half the segment, sample-aligned, so a
// short segment still has room for both an inbound and an outbound fade.
func ClampFade(fade, segLen int) int {
	if limit := segLen / 2; fade > limit {
		fade = limit
	}
	return fade - fade%BytesPerSample
}

// Duration reports the playback time of n bytes of PCM at the given rate.
func Duration(n, sampleRate int) time.Duration {
	if sampleRate <= 0 {
		return 0
	}
	samples := n / BytesPerSample
	return time.Duration(samples) * time.Second / time.Duration(sampleRate)
}
