package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/kbukum/scribe/audio"
	"github.com/kbukum/scribe/process"
)

// Device is an open audio input.
type Device interface {
	// ReadFrame fills buf completely or returns an error.
	ReadFrame(buf []byte) error
	Close() error
}

// Opener opens the configured device for one recording.
type Opener func(ctx context.Context) (Device, error)

// NewOpener returns an Opener for cfg.Kind.
func NewOpener(cfg Config, profile audio.Profile) Opener {
	return func(ctx context.Context) (Device, error) {
		switch cfg.Kind {
		case KindFile:
			return OpenFile(cfg.File, profile)
		default:
			return OpenFFmpeg(ctx, cfg.FFmpeg, profile)
		}
	}
}

// FFmpegDevice reads s16le PCM from an ffmpeg process recording the system input.
type FFmpegDevice struct {
	stream *process.Stream
}

// OpenFFmpeg starts ffmpeg. The process lives until Close, independent of ctx
// cancellation after Open returns.
func OpenFFmpeg(ctx context.Context, cfg FFmpegConfig, profile audio.Profile) (*FFmpegDevice, error) {
	stream, err := process.Start(context.WithoutCancel(ctx), process.Command{
		Binary: cfg.Binary,
		Args: []string{
			"-hide_banner", "-loglevel", "error", "-nostdin",
			"-f", cfg.Format, "-i", cfg.Input,
			"-f", fmt.Sprintf("s%dle", profile.BitsPerSample),
			"-ac", strconv.Itoa(profile.Channels),
			"-ar", strconv.Itoa(profile.SampleRate),
			"pipe:1",
		},
		GracePeriod: 2 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("capture: open ffmpeg input %s %s: %w", cfg.Format, cfg.Input, err)
	}
	return &FFmpegDevice{stream: stream}, nil
}

func (d *FFmpegDevice) ReadFrame(buf []byte) error {
	if _, err := io.ReadFull(d.stream.Stdout(), buf); err != nil {
		if stderr := d.stream.Stderr(); stderr != "" {
			return fmt.Errorf("capture: ffmpeg read: %w (stderr: %s)", err, stderr)
		}
		return fmt.Errorf("capture: ffmpeg read: %w", err)
	}
	return nil
}

func (d *FFmpegDevice) Close() error {
	return d.stream.Stop()
}

// FileDevice replays a file in a loop. WAV files have their header skipped.
type FileDevice struct {
	f         *os.File
	dataStart int64
	frameDur  time.Duration
	realtime  bool
	next      time.Time
}

// OpenFile opens cfg.Path. A WAV header, when present, must match profile.
func OpenFile(cfg FileConfig, profile audio.Profile) (*FileDevice, error) {
	f, err := os.Open(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("capture: open %s: %w", cfg.Path, err)
	}

	var dataStart int64
	head := make([]byte, audio.HeaderSize)
	if n, _ := io.ReadFull(f, head); n == audio.HeaderSize {
		if hdr, err := audio.ParseHeader(head); err == nil {
			if hdr.Profile != profile {
				_ = f.Close()
				return nil, fmt.Errorf("capture: %s is %s, want %s", cfg.Path, hdr.Profile, profile)
			}
			dataStart = audio.HeaderSize
		}
	}
	if _, err := f.Seek(dataStart, io.SeekStart); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("capture: seek %s: %w", cfg.Path, err)
	}

	return &FileDevice{
		f:         f,
		dataStart: dataStart,
		frameDur:  time.Duration(float64(time.Second) * profile.Seconds(profile.FrameBytes())),
		realtime:  cfg.Realtime,
	}, nil
}

func (d *FileDevice) ReadFrame(buf []byte) error {
	if d.realtime {
		if d.next.IsZero() {
			d.next = time.Now()
		}
		time.Sleep(time.Until(d.next))
		d.next = d.next.Add(d.frameDur)
	}

	filled := 0
	for filled < len(buf) {
		n, err := d.f.Read(buf[filled:])
		filled += n
		switch {
		case errors.Is(err, io.EOF):
			if n == 0 && filled == 0 && d.isEmpty() {
				return fmt.Errorf("capture: %s has no audio data", d.f.Name())
			}
			if _, err := d.f.Seek(d.dataStart, io.SeekStart); err != nil {
				return fmt.Errorf("capture: rewind %s: %w", d.f.Name(), err)
			}
		case err != nil:
			return fmt.Errorf("capture: read %s: %w", d.f.Name(), err)
		}
	}
	return nil
}

func (d *FileDevice) isEmpty() bool {
	st, err := d.f.Stat()
	return err != nil || st.Size() <= d.dataStart
}

func (d *FileDevice) Close() error {
	return d.f.Close()
}
