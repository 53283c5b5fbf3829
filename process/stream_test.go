package process_test

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/kbukum/scribe/process"
)

func TestStart_ReadsStdout(t *testing.T) {
	s, err := process.Start(context.Background(), process.Command{
		Binary: "sh",
		Args:   []string{"-c", "printf 'pcm-bytes'; echo warn >&2"},
	})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	out, err := io.ReadAll(s.Stdout())
	if err != nil {
		t.Fatalf("read stdout: %v", err)
	}
	if string(out) != "pcm-bytes" {
		t.Errorf("stdout = %q", out)
	}
	if err := s.Wait(); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if strings.TrimSpace(s.Stderr()) != "warn" {
		t.Errorf("stderr = %q", s.Stderr())
	}
}

func TestStart_StopTerminates(t *testing.T) {
	s, err := process.Start(context.Background(), process.Command{
		Binary:      "sleep",
		Args:        []string{"30"},
		GracePeriod: 500 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- s.Stop() }()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Stop: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Stop did not terminate the process")
	}
}

func TestStart_FailureReportsStderr(t *testing.T) {
	s, err := process.Start(context.Background(), process.Command{
		Binary: "sh",
		Args:   []string{"-c", "echo 'device busy' >&2; exit 3"},
	})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	_, _ = io.ReadAll(s.Stdout())
	err = s.Wait()
	if err == nil || !strings.Contains(err.Error(), "device busy") {
		t.Fatalf("Wait error = %v", err)
	}
}

func TestStart_MissingBinary(t *testing.T) {
	if _, err := process.Start(context.Background(), process.Command{Binary: "scribe-no-such-binary"}); err == nil {
		t.Fatal("expected error for missing binary")
	}
	if _, err := process.Start(context.Background(), process.Command{}); err == nil {
		t.Fatal("expected error for empty binary")
	}
}
