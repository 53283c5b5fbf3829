package audio

import (
	"bytes"
	"context"
	"fmt"
	"strconv"

	"github.com/kbukum/scribe/process"
)

// FFmpegDecoder converts through an ffmpeg subprocess, for recordings whose
// profile PCMDecoder does not handle (multi-channel, other rates).
type FFmpegDecoder struct {
	Binary string
}

func (d FFmpegDecoder) Decode(ctx context.Context, pcm []byte, src Profile, targetRate int) ([]float32, error) {
	bin := d.Binary
	if bin == "" {
		bin = "ffmpeg"
	}
	res, err := process.Run(ctx, process.Command{
		Binary: bin,
		Args: []string{
			"-hide_banner", "-loglevel", "error",
			"-f", fmt.Sprintf("s%dle", src.BitsPerSample),
			"-ac", strconv.Itoa(src.Channels),
			"-ar", strconv.Itoa(src.SampleRate),
			"-i", "pipe:0",
			"-f", "s16le", "-ac", "1", "-ar", strconv.Itoa(targetRate),
			"pipe:1",
		},
		Stdin: bytes.NewReader(pcm),
	})
	if err != nil {
		var stderr string
		if res != nil {
			stderr = string(res.Stderr)
		}
		return nil, fmt.Errorf("audio: ffmpeg decode: %w (stderr: %s)", err, stderr)
	}
	return DecodePCM16(res.Stdout), nil
}
