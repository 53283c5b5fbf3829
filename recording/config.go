package recording

import (
	"fmt"
	"strings"
	"time"

	"github.com/kbukum/scribe/audio"
	"github.com/kbukum/scribe/capture"
)

// Config is the recorder section of the agent config.
type Config struct {
	Profile audio.Profile  `yaml:"profile" mapstructure:"profile"`
	Capture capture.Config `yaml:"capture" mapstructure:"capture"`
	// KeyPrefix is the sink directory recordings are written under.
	KeyPrefix string `yaml:"key_prefix" mapstructure:"key_prefix"`
	// PopTimeout bounds each wait for a frame so the writer notices an idle queue.
	PopTimeout time.Duration `yaml:"pop_timeout" mapstructure:"pop_timeout"`
	// ProgressInterval is how often the writer logs size and duration.
	ProgressInterval time.Duration `yaml:"progress_interval" mapstructure:"progress_interval"`
	// StatusTimeout bounds each status publish.
	StatusTimeout time.Duration `yaml:"status_timeout" mapstructure:"status_timeout"`
}

func (c *Config) ApplyDefaults() {
	if c.Profile == (audio.Profile{}) {
		c.Profile = audio.DefaultProfile
	}
	c.Capture.ApplyDefaults()
	if c.KeyPrefix == "" {
		c.KeyPrefix = "/recordings"
	}
	if c.PopTimeout == 0 {
		c.PopTimeout = time.Second
	}
	if c.ProgressInterval == 0 {
		c.ProgressInterval = 5 * time.Second
	}
	if c.StatusTimeout == 0 {
		c.StatusTimeout = 2 * time.Second
	}
}

func (c *Config) Validate() error {
	if err := c.Profile.Validate(); err != nil {
		return fmt.Errorf("recorder.profile: %w", err)
	}
	if err := c.Capture.Validate(); err != nil {
		return fmt.Errorf("recorder: %w", err)
	}
	if !strings.HasPrefix(c.KeyPrefix, "/") {
		return fmt.Errorf("recorder.key_prefix must start with / (got: %s)", c.KeyPrefix)
	}
	if c.PopTimeout <= 0 {
		return fmt.Errorf("recorder.pop_timeout must be positive")
	}
	if c.StatusTimeout <= 0 {
		return fmt.Errorf("recorder.status_timeout must be positive")
	}
	return nil
}

// SinkKey is where a recording for meetingID started at start is stored.
func (c *Config) SinkKey(meetingID string, start time.Time) string {
	return fmt.Sprintf("%s/meeting_%s_%d.wav", strings.TrimSuffix(c.KeyPrefix, "/"), meetingID, start.Unix())
}
