package process_test

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/kbukum/scribe/process"
)

func TestRun(t *testing.T) {
	pcm := []byte{0x00, 0x01, 0xff, 0x7f, 0x00, 0x80}

	tests := []struct {
		name       string
		cmd        process.Command
		wantErr    bool
		wantExit   int
		wantStdout []byte
		wantStderr string
	}{
		{
			name:       "binary stdin passes through",
			cmd:        process.Command{Binary: "cat", Stdin: bytes.NewReader(pcm)},
			wantStdout: pcm,
		},
		{
			name:       "extra env is visible",
			cmd:        process.Command{Binary: "sh", Args: []string{"-c", "printf %s \"$SCRIBE_TEST\""}, Env: []string{"SCRIBE_TEST=rate16000"}},
			wantStdout: []byte("rate16000"),
		},
		{
			name:       "stderr kept on failure",
			cmd:        process.Command{Binary: "sh", Args: []string{"-c", "echo 'invalid sample format' >&2; exit 3"}},
			wantErr:    true,
			wantExit:   3,
			wantStderr: "invalid sample format",
		},
		{
			name:    "missing binary",
			cmd:     process.Command{Binary: "scribe-no-such-binary"},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := process.Run(context.Background(), tt.cmd)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if res == nil {
				return
			}
			if tt.wantExit != 0 && res.ExitCode != tt.wantExit {
				t.Errorf("exit code = %d, want %d", res.ExitCode, tt.wantExit)
			}
			if tt.wantStdout != nil && !bytes.Equal(res.Stdout, tt.wantStdout) {
				t.Errorf("stdout = %v, want %v", res.Stdout, tt.wantStdout)
			}
			if got := strings.TrimSpace(string(res.Stderr)); got != tt.wantStderr {
				t.Errorf("stderr = %q, want %q", got, tt.wantStderr)
			}
		})
	}
}

func TestRun_EmptyBinary(t *testing.T) {
	if _, err := process.Run(context.Background(), process.Command{}); err == nil {
		t.Fatal("expected error")
	}
}

func TestRun_CancelKillsProcessGroup(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	res, err := process.Run(ctx, process.Command{
		Binary:      "sh",
		Args:        []string{"-c", "sleep 10 & wait"},
		GracePeriod: 500 * time.Millisecond,
	})
	if err == nil {
		t.Fatal("expected error after cancel")
	}
	if res.Duration > 5*time.Second {
		t.Errorf("took %v to stop", res.Duration)
	}
}
