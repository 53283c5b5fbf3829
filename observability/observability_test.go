package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/kbukum/scribe/logger"
)

func TestConfig_Defaults(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()
	if cfg.Endpoint != "localhost:4318" || cfg.SampleRate != 1.0 || cfg.MetricInterval != 15*time.Second {
		t.Errorf("defaults = %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("disabled config should validate: %v", err)
	}

	cfg.Enabled = true
	cfg.SampleRate = 1.5
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for sample rate above 1")
	}
}

func TestRecorderMetrics(t *testing.T) {
	ctx := context.Background()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = mp.Shutdown(ctx) }()

	m, err := NewRecorderMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatalf("NewRecorderMetrics: %v", err)
	}
	m.FrameCaptured(ctx)
	m.FrameCaptured(ctx)
	m.FrameDropped(ctx)
	m.BytesWritten(ctx, 2048)
	m.BytesWritten(ctx, 2048)
	m.RecordingFinished(ctx, OutcomeFinalized)
	m.WindowTranscribed(ctx)
	m.PipelineFinished(ctx, "ok", 3*time.Second)

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}

	sums := map[string]int64{}
	var sawHistogram bool
	for _, sm := range rm.ScopeMetrics {
		for _, md := range sm.Metrics {
			switch data := md.Data.(type) {
			case metricdata.Sum[int64]:
				for _, dp := range data.DataPoints {
					sums[md.Name] += dp.Value
				}
			case metricdata.Histogram[float64]:
				sawHistogram = md.Name == "scribe.transcript.duration"
			}
		}
	}

	want := map[string]int64{
		"scribe.capture.frames":         2,
		"scribe.capture.frames_dropped": 1,
		"scribe.sink.bytes":             4096,
		"scribe.recordings":             1,
		"scribe.transcript.windows":     1,
	}
	for name, v := range want {
		if sums[name] != v {
			t.Errorf("%s = %d, want %d", name, sums[name], v)
		}
	}
	if !sawHistogram {
		t.Error("pipeline duration histogram not recorded")
	}
}

func TestNopRecorderMetrics(t *testing.T) {
	m := NopRecorderMetrics()
	ctx := context.Background()
	m.FrameCaptured(ctx)
	m.FrameDropped(ctx)
	m.RecordingFinished(ctx, OutcomeAborted)
}

func TestSpans(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	defer otel.SetTracerProvider(prev)

	ctx, span := StartSpan(context.Background(), SpanPipelineWindow, attribute.Int(AttrWindow, 2))
	traceID, spanID := TraceIDs(ctx)
	if traceID == "" || spanID == "" {
		t.Error("expected trace ids from an active span")
	}
	EndSpan(span, errors.New("model down"))

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("spans = %d", len(spans))
	}
	if spans[0].Name != SpanPipelineWindow {
		t.Errorf("name = %q", spans[0].Name)
	}
	if spans[0].Status.Code != codes.Error {
		t.Errorf("status = %v, want error", spans[0].Status.Code)
	}

	if a, b := TraceIDs(context.Background()); a != "" || b != "" {
		t.Error("expected empty ids without a span")
	}
}

func TestComponent_Disabled(t *testing.T) {
	c := NewComponent(Config{}, "scribe-agent", "dev", "development", logger.NewNop())
	ctx := context.Background()
	if err := c.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := c.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if d := c.Describe(); d.Details != "disabled" {
		t.Errorf("Describe = %+v", d)
	}
}
