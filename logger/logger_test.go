package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func newJSONLogger(t *testing.T, level string) (*Logger, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	cfg := Config{Level: level, Format: FormatJSON}
	cfg.ApplyDefaults()
	return newWithWriter(&cfg, "scribe-agent", &buf), &buf
}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var rec map[string]interface{}
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &rec); err != nil {
		t.Fatalf("decode log line %q: %v", buf.String(), err)
	}
	return rec
}

func TestLogger_ComponentAndMeeting(t *testing.T) {
	l, buf := newJSONLogger(t, "info")
	l.WithComponent("recording").WithMeeting("m-1").Info("recording started", Fields("frames", 3))

	rec := decodeLine(t, buf)
	if rec[FieldComponent] != "recording" {
		t.Errorf("component = %v, want recording", rec[FieldComponent])
	}
	if rec[FieldMeetingID] != "m-1" {
		t.Errorf("meeting_id = %v, want m-1", rec[FieldMeetingID])
	}
	if rec[FieldService] != "scribe-agent" {
		t.Errorf("service = %v, want scribe-agent", rec[FieldService])
	}
	if rec["frames"] != float64(3) {
		t.Errorf("frames = %v, want 3", rec["frames"])
	}
	if rec["message"] != "recording started" {
		t.Errorf("message = %v", rec["message"])
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	l, buf := newJSONLogger(t, "warn")
	l.Info("dropped")
	if buf.Len() != 0 {
		t.Fatalf("info should be filtered at warn level, got %q", buf.String())
	}
	l.Warn("kept")
	if buf.Len() == 0 {
		t.Fatal("warn should be written at warn level")
	}
}

func TestLogger_InvalidLevelFallsBackToInfo(t *testing.T) {
	l, buf := newJSONLogger(t, "nope")
	l.Debug("hidden")
	l.Info("shown")
	rec := decodeLine(t, buf)
	if rec["message"] != "shown" {
		t.Fatalf("expected only the info record, got %q", buf.String())
	}
}

func TestLogger_WithContext(t *testing.T) {
	l, buf := newJSONLogger(t, "info")
	ctx := ContextWithCorrelationID(context.Background(), "corr-1")
	ctx = ContextWithMeetingID(ctx, "m-9")
	l.WithContext(ctx).Info("handled")

	rec := decodeLine(t, buf)
	if rec[FieldCorrelationID] != "corr-1" {
		t.Errorf("correlation_id = %v", rec[FieldCorrelationID])
	}
	if rec[FieldMeetingID] != "m-9" {
		t.Errorf("meeting_id = %v", rec[FieldMeetingID])
	}
}

func TestLogger_WithError(t *testing.T) {
	l, buf := newJSONLogger(t, "info")
	l.WithError(errors.New("boom")).Error("failed")
	rec := decodeLine(t, buf)
	if rec["error"] != "boom" {
		t.Errorf("error = %v, want boom", rec["error"])
	}
}

func TestFields(t *testing.T) {
	tests := []struct {
		name string
		in   []interface{}
		want int
	}{
		{"pairs", []interface{}{"a", 1, "b", 2}, 2},
		{"odd trailing key ignored", []interface{}{"a", 1, "b"}, 1},
		{"non-string key skipped", []interface{}{1, "x", "b", 2}, 1},
		{"empty", nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Fields(tt.in...); len(got) != tt.want {
				t.Errorf("len(Fields) = %d, want %d", len(got), tt.want)
			}
		})
	}
}

func TestDurationAndErrorFields(t *testing.T) {
	d := DurationFields("decode", 1500*time.Millisecond)
	if d[FieldDuration] != int64(1500) {
		t.Errorf("duration_ms = %v", d[FieldDuration])
	}
	e := ErrorFields("upload", errors.New("denied"))
	if e[FieldError] != "denied" || e[FieldOperation] != "upload" {
		t.Errorf("unexpected fields %v", e)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"defaults", Config{}, false},
		{"bad level", Config{Level: "loud"}, true},
		{"bad format", Config{Format: "xml"}, true},
		{"json", Config{Format: FormatJSON, Level: "debug"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.cfg.ApplyDefaults()
			if err := tt.cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestGlobalLogger(t *testing.T) {
	prev := GetGlobalLogger()
	t.Cleanup(func() { SetGlobalLogger(prev) })

	Init(Config{ServiceName: "scribectl", Level: "debug"})
	if GetGlobalLogger() == prev {
		t.Fatal("Init should replace the global logger")
	}
	if WithComponent("cli") == nil {
		t.Fatal("expected component logger")
	}
}
