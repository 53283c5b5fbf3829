package transcript

import (
	"fmt"
	"time"
)

// Config is the transcription section of the agent config.
type Config struct {
	// Window is the length of audio sent to the models per call.
	Window time.Duration `yaml:"window" mapstructure:"window"`
	// TargetRate is the sample rate the models expect.
	TargetRate int `yaml:"target_rate" mapstructure:"target_rate"`
	// Language is passed to the transcription model as a hint.
	Language string `yaml:"language" mapstructure:"language"`
	// Decoder is "pcm" (in process) or "ffmpeg".
	Decoder string `yaml:"decoder" mapstructure:"decoder"`

	Transcription ProviderConfig `yaml:"transcription" mapstructure:"transcription"`
	Diarization   ProviderConfig `yaml:"diarization" mapstructure:"diarization"`
}

// ProviderConfig names the backend to use and carries its settings.
// With Fallbacks set, each call goes to the first available instance in
// order: the primary, then each fallback.
type ProviderConfig struct {
	Provider  string             `yaml:"provider" mapstructure:"provider"`
	Options   map[string]any     `yaml:"options" mapstructure:"options"`
	Fallbacks []ProviderInstance `yaml:"fallbacks" mapstructure:"fallbacks"`
}

// ProviderInstance is a named backend instance, for example a second
// sidecar of the same kind.
type ProviderInstance struct {
	Name     string         `yaml:"name" mapstructure:"name"`
	Provider string         `yaml:"provider" mapstructure:"provider"`
	Options  map[string]any `yaml:"options" mapstructure:"options"`
}

// Instances returns the primary, named after its provider, followed by the
// fallbacks.
func (c ProviderConfig) Instances() []ProviderInstance {
	out := make([]ProviderInstance, 0, 1+len(c.Fallbacks))
	out = append(out, ProviderInstance{Name: c.Provider, Provider: c.Provider, Options: c.Options})
	return append(out, c.Fallbacks...)
}

// Priority is the instance names in selection order.
func (c ProviderConfig) Priority() []string {
	instances := c.Instances()
	names := make([]string, len(instances))
	for i, inst := range instances {
		names[i] = inst.Name
	}
	return names
}

func (c ProviderConfig) validate(section string) error {
	seen := map[string]bool{}
	for _, inst := range c.Instances() {
		if inst.Name == "" || inst.Provider == "" {
			return fmt.Errorf("transcript.%s.fallbacks: name and provider are required", section)
		}
		if seen[inst.Name] {
			return fmt.Errorf("transcript.%s: duplicate instance name %q", section, inst.Name)
		}
		seen[inst.Name] = true
	}
	return nil
}

func (c *Config) ApplyDefaults() {
	if c.Window == 0 {
		c.Window = 30 * time.Second
	}
	if c.TargetRate == 0 {
		c.TargetRate = 16000
	}
	if c.Decoder == "" {
		c.Decoder = "pcm"
	}
	if c.Transcription.Provider == "" {
		c.Transcription.Provider = "whisper"
	}
	if c.Diarization.Provider == "" {
		c.Diarization.Provider = "pyannote"
	}
}

func (c *Config) Validate() error {
	if c.Window < time.Second {
		return fmt.Errorf("transcript.window must be at least 1s (got: %s)", c.Window)
	}
	if c.TargetRate <= 0 {
		return fmt.Errorf("transcript.target_rate must be positive")
	}
	switch c.Decoder {
	case "pcm", "ffmpeg":
	default:
		return fmt.Errorf("transcript.decoder must be pcm or ffmpeg (got: %s)", c.Decoder)
	}
	if err := c.Transcription.validate("transcription"); err != nil {
		return err
	}
	return c.Diarization.validate("diarization")
}
