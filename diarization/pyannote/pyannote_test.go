package pyannote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kbukum/scribe/diarization"
	apperrors "github.com/kbukum/scribe/errors"
)

func TestProvider_Diarize(t *testing.T) {
	var gotMax string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/diarize" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if err := r.ParseMultipartForm(8 << 20); err != nil {
			t.Errorf("ParseMultipartForm() error = %v", err)
			return
		}
		gotMax = r.FormValue("max_speakers")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"num_speakers": 2,
			"segments": []map[string]any{
				{"speaker_id": "SPEAKER_00", "start_time": 0.0, "end_time": 4.2},
				{"speaker_id": "SPEAKER_01", "start_time": 4.2, "end_time": 9.0},
			},
		})
	}))
	defer srv.Close()

	p, err := NewProvider(Config{BaseURL: srv.URL, MaxSpeakers: 4})
	if err != nil {
		t.Fatalf("NewProvider() error = %v", err)
	}
	resp, err := p.Diarize(context.Background(), diarization.Request{Audio: make([]float32, 160), SampleRate: 16000})
	if err != nil {
		t.Fatalf("Diarize() error = %v", err)
	}
	if gotMax != "4" {
		t.Errorf("max_speakers = %q, want 4", gotMax)
	}
	want := []diarization.Turn{
		{Start: 0, End: 4.2, Speaker: "SPEAKER_00"},
		{Start: 4.2, End: 9.0, Speaker: "SPEAKER_01"},
	}
	if resp.NumSpeakers != 2 || len(resp.Turns) != len(want) {
		t.Fatalf("response = %+v", resp)
	}
	for i := range want {
		if resp.Turns[i] != want[i] {
			t.Errorf("turn %d = %+v, want %+v", i, resp.Turns[i], want[i])
		}
	}
}

func TestProvider_SidecarReportsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"error":"CUDA out of memory"}`))
	}))
	defer srv.Close()

	p, _ := NewProvider(Config{BaseURL: srv.URL})
	_, err := p.Diarize(context.Background(), diarization.Request{Audio: []float32{0}, SampleRate: 16000})
	if !apperrors.HasCode(err, apperrors.ErrCodeExternalService) {
		t.Errorf("err = %v, want external service error", err)
	}
}
