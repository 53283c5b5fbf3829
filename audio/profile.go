// Package audio holds the fixed PCM profile scribe records in, the WAV
// container header written at the head of every recording, and PCM decoding.
package audio

import (
	"fmt"
	"time"
)

// FrameSamples is the number of samples per captured frame.
const FrameSamples = 1024

// Profile describes interleaved little-endian integer PCM.
type Profile struct {
	SampleRate    int `yaml:"sample_rate" mapstructure:"sample_rate" json:"sample_rate"`
	Channels      int `yaml:"channels" mapstructure:"channels" json:"channels"`
	BitsPerSample int `yaml:"bits_per_sample" mapstructure:"bits_per_sample" json:"bits_per_sample"`
}

// DefaultProfile is 16 kHz mono s16le.
var DefaultProfile = Profile{SampleRate: 16000, Channels: 1, BitsPerSample: 16}

func (p Profile) BytesPerSample() int { return p.BitsPerSample / 8 }

// BlockAlign is the size of one sample across all channels.
func (p Profile) BlockAlign() int { return p.Channels * p.BytesPerSample() }

func (p Profile) ByteRate() int { return p.SampleRate * p.BlockAlign() }

// FrameBytes is the size of one captured frame.
func (p Profile) FrameBytes() int { return FrameSamples * p.BlockAlign() }

// WindowBytes is the byte length of d worth of audio.
func (p Profile) WindowBytes(d time.Duration) int {
	return int(int64(p.ByteRate()) * int64(d) / int64(time.Second))
}

// Seconds is the duration of n bytes of audio.
func (p Profile) Seconds(n int) float64 {
	return float64(n) / float64(p.ByteRate())
}

// Validate accepts only what the recorder and decoder support: 16-bit mono.
func (p Profile) Validate() error {
	if p.SampleRate <= 0 {
		return fmt.Errorf("audio: sample rate must be positive (got: %d)", p.SampleRate)
	}
	if p.Channels != 1 {
		return fmt.Errorf("audio: only mono is supported (got: %d channels)", p.Channels)
	}
	if p.BitsPerSample != 16 {
		return fmt.Errorf("audio: only 16-bit samples are supported (got: %d)", p.BitsPerSample)
	}
	return nil
}

func (p Profile) String() string {
	return fmt.Sprintf("%dHz/%dch/s%dle", p.SampleRate, p.Channels, p.BitsPerSample)
}

// Frame is one chunk of captured PCM.
type Frame struct {
	Bytes      []byte
	CapturedAt time.Time
}
