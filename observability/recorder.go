package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// Recording outcomes.
const (
	OutcomeFinalized = "finalized"
	OutcomeAborted   = "aborted"
)

// RecorderMetrics are the instruments of the capture → sink → transcript path.
type RecorderMetrics struct {
	framesCaptured   metric.Int64Counter
	framesDropped    metric.Int64Counter
	bytesWritten     metric.Int64Counter
	recordings       metric.Int64Counter
	windows          metric.Int64Counter
	pipelineDuration metric.Float64Histogram
}

// NewRecorderMetrics creates the instruments on meter.
func NewRecorderMetrics(meter metric.Meter) (*RecorderMetrics, error) {
	m := &RecorderMetrics{}
	var err error

	if m.framesCaptured, err = meter.Int64Counter("scribe.capture.frames",
		metric.WithDescription("Frames read from the capture device"),
	); err != nil {
		return nil, fmt.Errorf("creating scribe.capture.frames counter: %w", err)
	}
	if m.framesDropped, err = meter.Int64Counter("scribe.capture.frames_dropped",
		metric.WithDescription("Frames dropped because the writer did not keep up"),
	); err != nil {
		return nil, fmt.Errorf("creating scribe.capture.frames_dropped counter: %w", err)
	}
	if m.bytesWritten, err = meter.Int64Counter("scribe.sink.bytes",
		metric.WithDescription("Bytes written to recording sinks"),
		metric.WithUnit("By"),
	); err != nil {
		return nil, fmt.Errorf("creating scribe.sink.bytes counter: %w", err)
	}
	if m.recordings, err = meter.Int64Counter("scribe.recordings",
		metric.WithDescription("Completed recording phases by outcome"),
	); err != nil {
		return nil, fmt.Errorf("creating scribe.recordings counter: %w", err)
	}
	if m.windows, err = meter.Int64Counter("scribe.transcript.windows",
		metric.WithDescription("Audio windows transcribed"),
	); err != nil {
		return nil, fmt.Errorf("creating scribe.transcript.windows counter: %w", err)
	}
	if m.pipelineDuration, err = meter.Float64Histogram("scribe.transcript.duration",
		metric.WithDescription("Duration of transcription pipeline runs"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, fmt.Errorf("creating scribe.transcript.duration histogram: %w", err)
	}
	return m, nil
}

// NopRecorderMetrics returns instruments that record nothing.
func NopRecorderMetrics() *RecorderMetrics {
	m, _ := NewRecorderMetrics(noop.NewMeterProvider().Meter(meterName))
	return m
}

func (m *RecorderMetrics) FrameCaptured(ctx context.Context) {
	m.framesCaptured.Add(ctx, 1)
}

func (m *RecorderMetrics) FrameDropped(ctx context.Context) {
	m.framesDropped.Add(ctx, 1)
}

func (m *RecorderMetrics) BytesWritten(ctx context.Context, n int) {
	m.bytesWritten.Add(ctx, int64(n))
}

// RecordingFinished counts a recording phase under outcome.
func (m *RecorderMetrics) RecordingFinished(ctx context.Context, outcome string) {
	m.recordings.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func (m *RecorderMetrics) WindowTranscribed(ctx context.Context) {
	m.windows.Add(ctx, 1)
}

// PipelineFinished records a pipeline run's duration under status ("ok" or "error").
func (m *RecorderMetrics) PipelineFinished(ctx context.Context, status string, d time.Duration) {
	m.pipelineDuration.Record(ctx, d.Seconds(), metric.WithAttributes(attribute.String("status", status)))
}
