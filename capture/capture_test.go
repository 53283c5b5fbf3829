package capture

import (
	"context"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/kbukum/scribe/audio"
	apperrors "github.com/kbukum/scribe/errors"
	"github.com/kbukum/scribe/logger"
)

// seqDevice writes an increasing sequence number into each frame. After
// limit frames (when limit > 0) it returns failErr.
type seqDevice struct {
	mu      sync.Mutex
	n       uint32
	limit   uint32
	failErr error
	delay   time.Duration
	closed  bool
}

func (d *seqDevice) ReadFrame(buf []byte) error {
	if d.delay > 0 {
		time.Sleep(d.delay)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.limit > 0 && d.n >= d.limit {
		return d.failErr
	}
	binary.LittleEndian.PutUint32(buf, d.n)
	d.n++
	return nil
}

func (d *seqDevice) Close() error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	return nil
}

func testConfig(queue int, timeout time.Duration) Config {
	return Config{Kind: KindFile, QueueSize: queue, PushTimeout: timeout}
}

func TestLoop_DeliversFramesInOrder(t *testing.T) {
	dev := &seqDevice{delay: time.Millisecond}
	loop := NewLoop(dev, audio.DefaultProfile, testConfig(16, time.Second), nil, logger.NewNop())
	loop.Start(context.Background())

	var got []uint32
	for f := range loop.Frames() {
		if len(f.Bytes) != audio.DefaultProfile.FrameBytes() {
			t.Fatalf("frame size = %d", len(f.Bytes))
		}
		if f.CapturedAt.IsZero() {
			t.Fatal("frame without capture time")
		}
		got = append(got, binary.LittleEndian.Uint32(f.Bytes))
		if len(got) == 5 {
			loop.Stop()
		}
	}

	if err := loop.Err(); err != nil {
		t.Fatalf("Err = %v", err)
	}
	if len(got) < 5 {
		t.Fatalf("received %d frames", len(got))
	}
	for i, seq := range got {
		if seq != uint32(i) {
			t.Fatalf("frame %d has sequence %d", i, seq)
		}
	}
	if loop.Dropped() != 0 {
		t.Errorf("dropped = %d", loop.Dropped())
	}
	if int64(len(got)) != loop.Captured() {
		t.Errorf("received %d, captured %d", len(got), loop.Captured())
	}
}

func TestLoop_ReadErrorEndsLoop(t *testing.T) {
	dev := &seqDevice{limit: 3, failErr: errors.New("device unplugged")}
	loop := NewLoop(dev, audio.DefaultProfile, testConfig(16, time.Second), nil, logger.NewNop())
	loop.Start(context.Background())

	var n int
	for range loop.Frames() {
		n++
	}
	if n != 3 {
		t.Errorf("frames = %d, want 3", n)
	}
	err := loop.Err()
	if !apperrors.HasCode(err, apperrors.ErrCodeDevice) {
		t.Fatalf("Err = %v, want DEVICE_ERROR", err)
	}
	if !errors.Is(err, dev.failErr) {
		t.Errorf("cause not preserved: %v", err)
	}
}

func TestLoop_DropsWhenQueueFull(t *testing.T) {
	dev := &seqDevice{limit: 5, failErr: errors.New("done")}
	loop := NewLoop(dev, audio.DefaultProfile, testConfig(1, 5*time.Millisecond), nil, logger.NewNop())
	loop.Start(context.Background())

	select {
	case <-loop.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("capture loop blocked on a full queue")
	}

	if loop.Captured() != 5 || loop.Dropped() != 4 {
		t.Errorf("captured = %d dropped = %d, want 5 and 4", loop.Captured(), loop.Dropped())
	}

	var first []audio.Frame
	for f := range loop.Frames() {
		first = append(first, f)
	}
	if len(first) != 1 || binary.LittleEndian.Uint32(first[0].Bytes) != 0 {
		t.Errorf("queued frames = %d", len(first))
	}
}

func TestLoop_ContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	loop := NewLoop(&seqDevice{delay: time.Millisecond}, audio.DefaultProfile, testConfig(4, time.Second), nil, logger.NewNop())
	loop.Start(ctx)
	cancel()

	go func() {
		for range loop.Frames() {
		}
	}()
	select {
	case <-loop.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("loop ignored context cancel")
	}
	if err := loop.Err(); err != nil {
		t.Errorf("Err = %v", err)
	}
}

func TestFileDevice_SkipsHeaderAndLoops(t *testing.T) {
	path := filepath.Join(t.TempDir(), "input.wav")
	pcm := make([]byte, 3000)
	for i := range pcm {
		pcm[i] = byte(i % 251)
	}
	data := append(audio.EncodeHeader(audio.DefaultProfile, uint32(len(pcm))), pcm...)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}

	dev, err := OpenFile(FileConfig{Path: path}, audio.DefaultProfile)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	defer dev.Close()

	buf := make([]byte, 2048)
	if err := dev.ReadFrame(buf); err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	if buf[0] != 0 || buf[1] != 1 {
		t.Errorf("header not skipped: % x", buf[:4])
	}
	if err := dev.ReadFrame(buf); err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	// 952 bytes remain before wrapping to the first data byte.
	if buf[951] != pcm[2999] || buf[952] != pcm[0] {
		t.Errorf("wrap mismatch: %d %d", buf[951], buf[952])
	}

	if _, err := OpenFile(FileConfig{Path: path}, audio.Profile{SampleRate: 8000, Channels: 1, BitsPerSample: 16}); err == nil {
		t.Error("expected profile mismatch error")
	}
}

func TestConfig(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()
	if cfg.Kind != KindFFmpeg || cfg.QueueSize != 256 || cfg.PushTimeout != 500*time.Millisecond {
		t.Errorf("defaults = %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}

	cfg.Kind = KindFile
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for file kind without path")
	}

	if f, in := defaultInput("darwin"); f != "avfoundation" || in != ":0" {
		t.Errorf("darwin input = %s %s", f, in)
	}
}
