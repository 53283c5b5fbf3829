package process

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
)

// maxStderr caps the stderr tail kept for diagnostics.
const maxStderr = 8 << 10

// Stream is a running subprocess whose stdout is read incrementally.
type Stream struct {
	cmd    Command
	stdout io.ReadCloser
	stderr *tailBuffer
	cancel context.CancelFunc
	wait   func() error

	once    sync.Once
	waitErr error
	stopped bool
	mu      sync.Mutex
}

// Start launches cmd without waiting for it. The caller reads Stdout and
// calls Stop (or Wait) exactly when done with it.
func Start(ctx context.Context, cmd Command) (*Stream, error) {
	ctx, cancel := context.WithCancel(ctx)
	c, err := build(ctx, cmd)
	if err != nil {
		cancel()
		return nil, err
	}

	stdout, err := c.StdoutPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("process: stdout pipe: %w", err)
	}
	stderr := &tailBuffer{limit: maxStderr}
	c.Stderr = stderr

	if err := c.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("process: start %s: %w", cmd.Binary, err)
	}

	return &Stream{
		cmd:    cmd,
		stdout: stdout,
		stderr: stderr,
		cancel: cancel,
		wait:   c.Wait,
	}, nil
}

// Stdout is the process's standard output.
func (s *Stream) Stdout() io.Reader { return s.stdout }

// Stderr returns the most recent stderr output.
func (s *Stream) Stderr() string { return s.stderr.String() }

// Wait blocks until the process exits. Exit caused by Stop is not an error.
func (s *Stream) Wait() error {
	s.once.Do(func() {
		err := s.wait()
		s.cancel()
		s.mu.Lock()
		stopped := s.stopped
		s.mu.Unlock()
		if err != nil && !stopped {
			s.waitErr = fmt.Errorf("process: %s: %w (stderr: %s)", s.cmd.Binary, err, s.Stderr())
		}
	})
	return s.waitErr
}

// Stop terminates the process and waits for it to exit.
func (s *Stream) Stop() error {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()
	s.cancel()
	return s.Wait()
}

// tailBuffer keeps the last limit bytes written to it.
type tailBuffer struct {
	mu    sync.Mutex
	buf   bytes.Buffer
	limit int
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf.Write(p)
	if over := t.buf.Len() - t.limit; over > 0 {
		t.buf.Next(over)
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.buf.String()
}
