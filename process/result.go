package process

import "time"

// Result is the outcome of Run.
type Result struct {
	Stdout []byte
	Stderr []byte
	// ExitCode is -1 when the process was killed.
	ExitCode int
	Duration time.Duration
}
