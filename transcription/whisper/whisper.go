// Package whisper is a transcription backend that talks to a
// faster-whisper HTTP sidecar.
package whisper

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/kbukum/scribe/audio"
	"github.com/kbukum/scribe/errors"
	"github.com/kbukum/scribe/httpclient"
	"github.com/kbukum/scribe/provider"
	"github.com/kbukum/scribe/resilience"
	"github.com/kbukum/scribe/transcription"
)

// ProviderName is the registered name.
const ProviderName = "whisper"

// Config is the whisper section of the transcription config.
type Config struct {
	URL      string        `yaml:"url" mapstructure:"url"`
	Model    string        `yaml:"model" mapstructure:"model"`
	Language string        `yaml:"language" mapstructure:"language"`
	Timeout  time.Duration `yaml:"timeout" mapstructure:"timeout"`
	// BeamSize is passed through when positive.
	BeamSize int                     `yaml:"beam_size" mapstructure:"beam_size"`
	Retry    resilience.RetryConfig `yaml:"retry" mapstructure:"retry"`
}

func (c *Config) ApplyDefaults() {
	if c.URL == "" {
		c.URL = "http://localhost:8387"
	}
	if c.Model == "" {
		c.Model = "base"
	}
	if c.Timeout == 0 {
		c.Timeout = 120 * time.Second
	}
}

// Provider implements transcription.Provider.
type Provider struct {
	cfg    Config
	client *httpclient.Client
}

var _ transcription.Provider = (*Provider)(nil)

func NewProvider(cfg Config) (*Provider, error) {
	cfg.ApplyDefaults()
	retry := cfg.Retry
	breaker := resilience.DefaultCircuitBreakerConfig(ProviderName)
	client, err := httpclient.New(httpclient.Config{
		BaseURL: cfg.URL,
		Timeout: cfg.Timeout,
		Retry:   &retry,
		Breaker: &breaker,
	})
	if err != nil {
		return nil, err
	}
	return &Provider{cfg: cfg, client: client}, nil
}

// Factory builds a Provider from a config map.
func Factory() provider.Factory[transcription.Provider] {
	return func(raw map[string]any) (transcription.Provider, error) {
		var cfg Config
		if err := provider.DecodeConfig(raw, &cfg); err != nil {
			return nil, err
		}
		return NewProvider(cfg)
	}
}

func (p *Provider) Name() string { return ProviderName }

func (p *Provider) IsAvailable(ctx context.Context) bool {
	resp, err := p.client.Do(ctx, httpclient.Request{Method: http.MethodGet, Path: "/health"})
	return err == nil && resp.IsSuccess()
}

type whisperResponse struct {
	Language string           `json:"language"`
	Segments []whisperSegment `json:"segments"`
}

type whisperSegment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Transcribe uploads the window as a WAV file.
func (p *Provider) Transcribe(ctx context.Context, req transcription.Request) (*transcription.Response, error) {
	task := req.Task
	if task == "" {
		task = transcription.TaskTranscribe
	}
	fields := map[string]string{
		"model": p.cfg.Model,
		"task":  string(task),
	}
	lang := p.cfg.Language
	if req.Language != "" {
		lang = req.Language
	}
	if lang != "" {
		fields["language"] = lang
	}
	if p.cfg.BeamSize > 0 {
		fields["beam_size"] = strconv.Itoa(p.cfg.BeamSize)
	}

	var out whisperResponse
	data, err := audio.EncodeWAV(req.Audio, req.SampleRate)
	if err != nil {
		return nil, errors.Internal(err)
	}
	err = p.client.DoJSON(ctx, httpclient.Request{
		Method: http.MethodPost,
		Path:   "/transcribe",
		Body: &httpclient.MultipartBody{
			Fields: fields,
			Files: []httpclient.FileField{{
				FieldName:   "audio",
				FileName:    "window.wav",
				ContentType: "audio/wav",
				Data:        data,
			}},
		},
	}, &out)
	if err != nil {
		return nil, errors.ExternalServiceError(ProviderName, err)
	}

	resp := &transcription.Response{Language: out.Language, Segments: make([]transcription.Segment, 0, len(out.Segments))}
	for _, s := range out.Segments {
		resp.Segments = append(resp.Segments, transcription.Segment{
			Start: s.Start,
			End:   s.End,
			Text:  strings.TrimSpace(s.Text),
		})
	}
	return resp, nil
}
