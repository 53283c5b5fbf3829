package capture

import (
	"fmt"
	"runtime"
	"time"
)

// Device kinds.
const (
	KindFFmpeg = "ffmpeg"
	KindFile   = "file"
)

// Config is the capture section of the agent config.
type Config struct {
	Kind string `yaml:"kind" mapstructure:"kind"`
	// QueueSize bounds the hand-off queue in frames.
	QueueSize int `yaml:"queue_size" mapstructure:"queue_size"`
	// PushTimeout is how long a frame may wait for queue space before it is dropped.
	PushTimeout time.Duration `yaml:"push_timeout" mapstructure:"push_timeout"`

	FFmpeg FFmpegConfig `yaml:"ffmpeg" mapstructure:"ffmpeg"`
	File   FileConfig   `yaml:"file" mapstructure:"file"`
}

// FFmpegConfig selects the platform input ffmpeg records from.
type FFmpegConfig struct {
	Binary string `yaml:"binary" mapstructure:"binary"`
	// Format is the ffmpeg input device format: avfoundation, pulse, alsa, dshow.
	Format string `yaml:"format" mapstructure:"format"`
	// Input is the device name within Format, e.g. ":0" or "default".
	Input string `yaml:"input" mapstructure:"input"`
}

// FileConfig plays a PCM or WAV file as if it were a microphone.
type FileConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
	// Realtime paces reads at the profile's byte rate.
	Realtime bool `yaml:"realtime" mapstructure:"realtime"`
}

func (c *Config) ApplyDefaults() {
	if c.Kind == "" {
		c.Kind = KindFFmpeg
	}
	if c.QueueSize == 0 {
		c.QueueSize = 256
	}
	if c.PushTimeout == 0 {
		c.PushTimeout = 500 * time.Millisecond
	}
	if c.FFmpeg.Binary == "" {
		c.FFmpeg.Binary = "ffmpeg"
	}
	if c.FFmpeg.Format == "" {
		c.FFmpeg.Format, c.FFmpeg.Input = defaultInput(runtime.GOOS)
	}
}

func defaultInput(goos string) (format, input string) {
	switch goos {
	case "darwin":
		return "avfoundation", ":0"
	case "windows":
		return "dshow", "audio=default"
	default:
		return "pulse", "default"
	}
}

func (c *Config) Validate() error {
	switch c.Kind {
	case KindFFmpeg:
		if c.FFmpeg.Input == "" {
			return fmt.Errorf("capture.ffmpeg.input is required")
		}
	case KindFile:
		if c.File.Path == "" {
			return fmt.Errorf("capture.file.path is required for kind %q", KindFile)
		}
	default:
		return fmt.Errorf("capture.kind must be %q or %q (got: %s)", KindFFmpeg, KindFile, c.Kind)
	}
	if c.QueueSize <= 0 {
		return fmt.Errorf("capture.queue_size must be positive")
	}
	if c.PushTimeout <= 0 {
		return fmt.Errorf("capture.push_timeout must be positive")
	}
	return nil
}
