package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/wav"
)

// HeaderSize is the length of a canonical single-subchunk PCM WAV header.
const HeaderSize = 44

// Streaming recordings declare the largest representable sizes because the
// true length is unknown when the header is written and the sink cannot
// seek back. The fields are never corrected.
const (
	PlaceholderDataSize uint32 = 0xFFFFFFFF - 36
	PlaceholderRIFFSize uint32 = 36 + PlaceholderDataSize
)

const formatPCM = 1

// ErrInvalidHeader is wrapped by ParseHeader failures.
var ErrInvalidHeader = errors.New("audio: invalid wav header")

// Header is the decoded form of a 44-byte WAV header.
type Header struct {
	Profile  Profile
	RIFFSize uint32
	DataSize uint32
}

// StreamingHeader returns the header written at the start of every recording.
func StreamingHeader(p Profile) []byte {
	return encodeHeader(p, PlaceholderRIFFSize, PlaceholderDataSize)
}

// EncodeHeader returns a header with exact sizes for dataSize bytes of PCM.
func EncodeHeader(p Profile, dataSize uint32) []byte {
	return encodeHeader(p, 36+dataSize, dataSize)
}

func encodeHeader(p Profile, riffSize, dataSize uint32) []byte {
	b := make([]byte, HeaderSize)
	copy(b[0:4], "RIFF")
	binary.LittleEndian.PutUint32(b[4:8], riffSize)
	copy(b[8:12], "WAVE")
	copy(b[12:16], "fmt ")
	binary.LittleEndian.PutUint32(b[16:20], 16)
	binary.LittleEndian.PutUint16(b[20:22], formatPCM)
	binary.LittleEndian.PutUint16(b[22:24], uint16(p.Channels))
	binary.LittleEndian.PutUint32(b[24:28], uint32(p.SampleRate))
	binary.LittleEndian.PutUint32(b[28:32], uint32(p.ByteRate()))
	binary.LittleEndian.PutUint16(b[32:34], uint16(p.BlockAlign()))
	binary.LittleEndian.PutUint16(b[34:36], uint16(p.BitsPerSample))
	copy(b[36:40], "data")
	binary.LittleEndian.PutUint32(b[40:44], dataSize)
	return b
}

// ParseHeader decodes and checks the first HeaderSize bytes of b.
func ParseHeader(b []byte) (Header, error) {
	if len(b) < HeaderSize {
		return Header{}, fmt.Errorf("%w: %d bytes, need %d", ErrInvalidHeader, len(b), HeaderSize)
	}
	switch {
	case !bytes.Equal(b[0:4], []byte("RIFF")):
		return Header{}, fmt.Errorf("%w: missing RIFF tag", ErrInvalidHeader)
	case !bytes.Equal(b[8:12], []byte("WAVE")):
		return Header{}, fmt.Errorf("%w: missing WAVE tag", ErrInvalidHeader)
	case !bytes.Equal(b[12:16], []byte("fmt ")):
		return Header{}, fmt.Errorf("%w: missing fmt chunk", ErrInvalidHeader)
	case !bytes.Equal(b[36:40], []byte("data")):
		return Header{}, fmt.Errorf("%w: missing data chunk", ErrInvalidHeader)
	}
	if f := binary.LittleEndian.Uint16(b[20:22]); f != formatPCM {
		return Header{}, fmt.Errorf("%w: format %d is not PCM", ErrInvalidHeader, f)
	}
	return Header{
		Profile: Profile{
			SampleRate:    int(binary.LittleEndian.Uint32(b[24:28])),
			Channels:      int(binary.LittleEndian.Uint16(b[22:24])),
			BitsPerSample: int(binary.LittleEndian.Uint16(b[34:36])),
		},
		RIFFSize: binary.LittleEndian.Uint32(b[4:8]),
		DataSize: binary.LittleEndian.Uint32(b[40:44]),
	}, nil
}

// EncodeWAV wraps float samples in a complete mono 16-bit WAV file.
func EncodeWAV(samples []float32, sampleRate int) ([]byte, error) {
	format := beep.Format{SampleRate: beep.SampleRate(sampleRate), NumChannels: 1, Precision: 2}
	var buf seekBuffer
	if err := wav.Encode(&buf, sampleStreamer(samples), format); err != nil {
		return nil, fmt.Errorf("audio: encode wav: %w", err)
	}
	return buf.data, nil
}

// sampleStreamer plays samples once on both beep channels.
func sampleStreamer(samples []float32) beep.Streamer {
	return beep.StreamerFunc(func(out [][2]float64) (int, bool) {
		if len(samples) == 0 {
			return 0, false
		}
		n := min(len(out), len(samples))
		for i, v := range samples[:n] {
			out[i][0], out[i][1] = float64(v), float64(v)
		}
		samples = samples[n:]
		return n, true
	})
}

// seekBuffer is an in-memory io.WriteSeeker; the encoder seeks back to
// patch the header sizes once the data is written.
type seekBuffer struct {
	data []byte
	pos  int
}

func (b *seekBuffer) Write(p []byte) (int, error) {
	if end := b.pos + len(p); end > len(b.data) {
		b.data = append(b.data, make([]byte, end-len(b.data))...)
	}
	n := copy(b.data[b.pos:], p)
	b.pos += n
	return n, nil
}

func (b *seekBuffer) Seek(offset int64, whence int) (int64, error) {
	var base int64
	switch whence {
	case io.SeekStart:
	case io.SeekCurrent:
		base = int64(b.pos)
	case io.SeekEnd:
		base = int64(len(b.data))
	default:
		return 0, fmt.Errorf("audio: invalid whence %d", whence)
	}
	next := base + offset
	if next < 0 {
		return 0, fmt.Errorf("audio: negative seek position %d", next)
	}
	b.pos = int(next)
	return next, nil
}
