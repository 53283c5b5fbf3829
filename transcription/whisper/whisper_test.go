package whisper

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/kbukum/scribe/audio"
	apperrors "github.com/kbukum/scribe/errors"
	"github.com/kbukum/scribe/transcription"
)

type sidecar struct {
	mu    sync.Mutex
	tasks []string
	wavs  [][]byte
}

func (s *sidecar) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/transcribe", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(8 << 20); err != nil {
			t.Errorf("ParseMultipartForm() error = %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f, _, err := r.FormFile("audio")
		if err != nil {
			t.Errorf("FormFile() error = %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		data, _ := io.ReadAll(f)
		task := r.FormValue("task")

		s.mu.Lock()
		s.tasks = append(s.tasks, task)
		s.wavs = append(s.wavs, data)
		s.mu.Unlock()

		text := " hallo welt "
		if task == "translate" {
			text = " hello world "
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"language": "de",
			"segments": []map[string]any{{"start": 0.0, "end": 1.5, "text": text}},
		})
	})
	return mux
}

func TestProvider_Transcribe(t *testing.T) {
	sc := &sidecar{}
	srv := httptest.NewServer(sc.handler(t))
	defer srv.Close()

	p, err := NewProvider(Config{URL: srv.URL})
	if err != nil {
		t.Fatalf("NewProvider() error = %v", err)
	}
	if !p.IsAvailable(context.Background()) {
		t.Error("IsAvailable() = false")
	}

	samples := []float32{0, 0.5, -0.5, 0.25}
	tests := []struct {
		task transcription.Task
		want string
	}{
		{transcription.TaskTranscribe, "hallo welt"},
		{transcription.TaskTranslate, "hello world"},
	}
	for _, tt := range tests {
		t.Run(string(tt.task), func(t *testing.T) {
			resp, err := p.Transcribe(context.Background(), transcription.Request{Audio: samples, SampleRate: 16000, Task: tt.task})
			if err != nil {
				t.Fatalf("Transcribe() error = %v", err)
			}
			if resp.Language != "de" || len(resp.Segments) != 1 {
				t.Fatalf("response = %+v", resp)
			}
			if resp.Segments[0].Text != tt.want {
				t.Errorf("text = %q, want %q", resp.Segments[0].Text, tt.want)
			}
		})
	}

	sc.mu.Lock()
	defer sc.mu.Unlock()
	if len(sc.tasks) != 2 || sc.tasks[0] != "transcribe" || sc.tasks[1] != "translate" {
		t.Errorf("tasks = %v", sc.tasks)
	}
	h, err := audio.ParseHeader(sc.wavs[0])
	if err != nil {
		t.Fatalf("uploaded audio is not wav: %v", err)
	}
	if h.Profile.SampleRate != 16000 || int(h.DataSize) != len(samples)*2 {
		t.Errorf("header = %+v", h)
	}
}

func TestProvider_SidecarError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	p, _ := NewProvider(Config{URL: srv.URL})
	_, err := p.Transcribe(context.Background(), transcription.Request{Audio: []float32{0}, SampleRate: 16000})
	if !apperrors.HasCode(err, apperrors.ErrCodeExternalService) {
		t.Errorf("err = %v, want external service error", err)
	}
}

func TestFactory_DecodesConfig(t *testing.T) {
	p, err := Factory()(map[string]any{"url": "http://whisper:9000", "model": "large-v3", "timeout": "45s"})
	if err != nil {
		t.Fatalf("Factory() error = %v", err)
	}
	wp := p.(*Provider)
	if wp.cfg.URL != "http://whisper:9000" || wp.cfg.Model != "large-v3" || wp.cfg.Timeout.Seconds() != 45 {
		t.Errorf("cfg = %+v", wp.cfg)
	}
}
