// Package process runs external tools (ffmpeg) either to completion or as a
// long-lived stream whose stdout is consumed incrementally.
package process

import (
	"io"
	"time"
)

// Command describes a subprocess.
type Command struct {
	// Binary is resolved via PATH when not absolute.
	Binary string
	Args   []string
	Dir    string
	// Env entries (key=value) are appended to the parent environment.
	Env   []string
	Stdin io.Reader
	// GracePeriod is the delay between SIGTERM and SIGKILL. Defaults to 5s.
	GracePeriod time.Duration
}

func (c Command) gracePeriod() time.Duration {
	if c.GracePeriod == 0 {
		return 5 * time.Second
	}
	return c.GracePeriod
}
