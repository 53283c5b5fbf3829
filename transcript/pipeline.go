package transcript

import (
	"context"
	"io"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/kbukum/scribe/audio"
	"github.com/kbukum/scribe/diarization"
	"github.com/kbukum/scribe/errors"
	"github.com/kbukum/scribe/logger"
	"github.com/kbukum/scribe/observability"
	"github.com/kbukum/scribe/provider"
	"github.com/kbukum/scribe/storage"
	"github.com/kbukum/scribe/transcription"
)

// Pipeline transcribes finished recordings window by window.
type Pipeline struct {
	cfg          Config
	sink         storage.Storage
	decoder      audio.Decoder
	transcribers *provider.Manager[transcription.Provider]
	diarizers    *provider.Manager[diarization.Provider]
	metrics      *observability.RecorderMetrics
	log          *logger.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

func WithDecoder(d audio.Decoder) Option {
	return func(p *Pipeline) { p.decoder = d }
}

func WithMetrics(m *observability.RecorderMetrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

func NewPipeline(
	cfg Config,
	sink storage.Storage,
	transcribers *provider.Manager[transcription.Provider],
	diarizers *provider.Manager[diarization.Provider],
	log *logger.Logger,
	opts ...Option,
) *Pipeline {
	p := &Pipeline{
		cfg:          cfg,
		sink:         sink,
		decoder:      audio.PCMDecoder{},
		transcribers: transcribers,
		diarizers:    diarizers,
		metrics:      observability.NopRecorderMetrics(),
		log:          log.WithComponent("transcript"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run downloads the recording at key and returns its transcript in
// window order. The object must start with a WAV header.
func (p *Pipeline) Run(ctx context.Context, key string) ([]Segment, error) {
	start := time.Now()
	ctx, span := observability.StartSpan(ctx, observability.SpanPipelineRun,
		attribute.String(observability.AttrSinkKey, key))

	segments, windows, err := p.run(ctx, key)
	observability.EndSpan(span, err)

	status := "ok"
	if err != nil {
		status = "error"
	}
	elapsed := time.Since(start)
	p.metrics.PipelineFinished(ctx, status, elapsed)

	log := p.log.WithContext(ctx).WithFields(map[string]interface{}{logger.FieldSinkKey: key})
	if err != nil {
		log.Error("Transcription failed", map[string]interface{}{
			logger.FieldError: err.Error(),
			"windows":         windows,
		})
		return nil, err
	}
	log.Info("Transcription is ready", map[string]interface{}{
		"windows":           windows,
		"segments":          len(segments),
		logger.FieldDuration: elapsed.Milliseconds(),
	})
	return segments, nil
}

func (p *Pipeline) run(ctx context.Context, key string) ([]Segment, int, error) {
	transcriber, err := p.transcribers.Get(ctx)
	if err != nil {
		return nil, 0, errors.TranscriptionError("transcribe", err)
	}
	diarizer, err := p.diarizers.Get(ctx)
	if err != nil {
		return nil, 0, errors.TranscriptionError("diarize", err)
	}

	rc, err := p.sink.Download(ctx, key)
	if err != nil {
		return nil, 0, errors.TranscriptionError("download", err)
	}
	defer func() { _ = rc.Close() }()

	hdr := make([]byte, audio.HeaderSize)
	if _, err := io.ReadFull(rc, hdr); err != nil {
		return nil, 0, errors.TranscriptionError("header", err)
	}
	h, err := audio.ParseHeader(hdr)
	if err != nil {
		return nil, 0, errors.TranscriptionError("header", err)
	}
	if err := h.Profile.Validate(); err != nil {
		return nil, 0, errors.TranscriptionError("header", err)
	}

	segments := make([]Segment, 0)
	buf := make([]byte, h.Profile.WindowBytes(p.cfg.Window))
	offset := 0.0
	index := 0
	for {
		n, readErr := io.ReadFull(rc, buf)
		if n > 0 {
			w, err := p.window(ctx, transcriber, diarizer, h.Profile, buf[:n], index, offset)
			if err != nil {
				return nil, index, err
			}
			segments = append(segments, MergeWindow(w)...)
			offset += h.Profile.Seconds(n)
			index++
		}
		if readErr == io.EOF || readErr == io.ErrUnexpectedEOF {
			return segments, index, nil
		}
		if readErr != nil {
			return nil, index, errors.TranscriptionError("download", readErr)
		}
	}
}

func (p *Pipeline) window(
	ctx context.Context,
	transcriber transcription.Provider,
	diarizer diarization.Provider,
	src audio.Profile,
	pcm []byte,
	index int,
	offset float64,
) (w Window, err error) {
	ctx, span := observability.StartSpan(ctx, observability.SpanPipelineWindow,
		attribute.Int(observability.AttrWindow, index),
		attribute.Float64(observability.AttrOffset, offset))
	defer func() { observability.EndSpan(span, err) }()

	log := p.log.WithContext(ctx).WithFields(map[string]interface{}{logger.FieldWindow: index})
	log.Info("Transcribing window", map[string]interface{}{"bytes": len(pcm), "offset_s": offset})

	samples, err := p.decoder.Decode(ctx, pcm, src, p.cfg.TargetRate)
	if err != nil {
		return Window{}, errors.TranscriptionError("decode", err)
	}

	diar, err := p.diarize(ctx, diarizer, samples)
	if err != nil {
		return Window{}, err
	}
	log.Debug("Diarization finished", map[string]interface{}{"turns": len(diar.Turns)})

	translated, err := p.transcribe(ctx, transcriber, samples, transcription.TaskTranslate)
	if err != nil {
		return Window{}, err
	}
	original, err := p.transcribe(ctx, transcriber, samples, transcription.TaskTranscribe)
	if err != nil {
		return Window{}, err
	}
	p.metrics.WindowTranscribed(ctx)

	w = Window{Offset: offset, Lang: translated.Language}
	if w.Lang == "" {
		w.Lang = original.Language
	}
	for _, t := range diar.Turns {
		w.Turns = append(w.Turns, Turn{Start: t.Start, End: t.End, Speaker: t.Speaker})
	}
	w.Translated = textSegments(translated.Segments)
	w.Transcribed = textSegments(original.Segments)
	return w, nil
}

func (p *Pipeline) diarize(ctx context.Context, d diarization.Provider, samples []float32) (resp *diarization.Response, err error) {
	ctx, span := observability.StartSpan(ctx, observability.SpanModelCall,
		attribute.String(observability.AttrProvider, d.Name()),
		attribute.String(observability.AttrTask, "diarize"))
	defer func() { observability.EndSpan(span, err) }()

	resp, err = d.Diarize(ctx, diarization.Request{Audio: samples, SampleRate: p.cfg.TargetRate})
	if err != nil {
		return nil, errors.TranscriptionError("diarize", err)
	}
	return resp, nil
}

func (p *Pipeline) transcribe(ctx context.Context, t transcription.Provider, samples []float32, task transcription.Task) (resp *transcription.Response, err error) {
	ctx, span := observability.StartSpan(ctx, observability.SpanModelCall,
		attribute.String(observability.AttrProvider, t.Name()),
		attribute.String(observability.AttrTask, string(task)))
	defer func() { observability.EndSpan(span, err) }()

	resp, err = t.Transcribe(ctx, transcription.Request{
		Audio:      samples,
		SampleRate: p.cfg.TargetRate,
		Task:       task,
		Language:   p.cfg.Language,
	})
	if err != nil {
		return nil, errors.TranscriptionError(string(task), err)
	}
	return resp, nil
}

func textSegments(in []transcription.Segment) []TextSegment {
	out := make([]TextSegment, len(in))
	for i, s := range in {
		out[i] = TextSegment{Start: s.Start, End: s.End, Text: s.Text}
	}
	return out
}
