package audio

import (
	"context"
	"encoding/binary"
	"math"
)

// Decoder turns raw PCM in profile src into mono float samples in [-1, 1)
// at targetRate.
type Decoder interface {
	Decode(ctx context.Context, pcm []byte, src Profile, targetRate int) ([]float32, error)
}

// PCMDecoder decodes s16le mono in process.
type PCMDecoder struct{}

func (PCMDecoder) Decode(_ context.Context, pcm []byte, src Profile, targetRate int) ([]float32, error) {
	if err := src.Validate(); err != nil {
		return nil, err
	}
	return Resample(DecodePCM16(pcm), src.SampleRate, targetRate), nil
}

// DecodePCM16 converts s16le samples by dividing by 32768. A trailing odd
// byte is ignored.
func DecodePCM16(b []byte) []float32 {
	out := make([]float32, len(b)/2)
	for i := range out {
		out[i] = float32(int16(binary.LittleEndian.Uint16(b[2*i:]))) / 32768
	}
	return out
}

// EncodePCM16 is the inverse of DecodePCM16; values are clamped to [-1, 1).
func EncodePCM16(samples []float32) []byte {
	out := make([]byte, 2*len(samples))
	for i, s := range samples {
		v := math.Round(float64(s) * 32768)
		v = max(math.MinInt16, min(math.MaxInt16, v))
		binary.LittleEndian.PutUint16(out[2*i:], uint16(int16(v)))
	}
	return out
}

// Resample converts between rates by linear interpolation. Equal rates return
// the input unchanged.
func Resample(in []float32, from, to int) []float32 {
	if from == to || from <= 0 || to <= 0 || len(in) == 0 {
		return in
	}
	n := int(int64(len(in)) * int64(to) / int64(from))
	out := make([]float32, n)
	ratio := float64(from) / float64(to)
	last := len(in) - 1
	for i := range out {
		pos := float64(i) * ratio
		j := int(pos)
		if j >= last {
			out[i] = in[last]
			continue
		}
		frac := float32(pos - float64(j))
		out[i] = in[j] + (in[j+1]-in[j])*frac
	}
	return out
}
