// Package pyannote is a diarization backend that talks to a pyannote.audio
// HTTP sidecar.
package pyannote

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/kbukum/scribe/audio"
	"github.com/kbukum/scribe/diarization"
	"github.com/kbukum/scribe/errors"
	"github.com/kbukum/scribe/httpclient"
	"github.com/kbukum/scribe/provider"
	"github.com/kbukum/scribe/resilience"
)

const ProviderName = "pyannote"

type Config struct {
	BaseURL string        `yaml:"base_url" mapstructure:"base_url"`
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
	// MinSpeakers and MaxSpeakers bound the model when the request leaves them unset.
	MinSpeakers int                    `yaml:"min_speakers" mapstructure:"min_speakers"`
	MaxSpeakers int                    `yaml:"max_speakers" mapstructure:"max_speakers"`
	Retry       resilience.RetryConfig `yaml:"retry" mapstructure:"retry"`
}

func (c *Config) ApplyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = "http://localhost:8388"
	}
	if c.Timeout == 0 {
		c.Timeout = 300 * time.Second
	}
}

type Provider struct {
	cfg    Config
	client *httpclient.Client
}

var _ diarization.Provider = (*Provider)(nil)

func NewProvider(cfg Config) (*Provider, error) {
	cfg.ApplyDefaults()
	retry := cfg.Retry
	breaker := resilience.DefaultCircuitBreakerConfig(ProviderName)
	client, err := httpclient.New(httpclient.Config{
		BaseURL: cfg.BaseURL,
		Timeout: cfg.Timeout,
		Retry:   &retry,
		Breaker: &breaker,
	})
	if err != nil {
		return nil, err
	}
	return &Provider{cfg: cfg, client: client}, nil
}

func Factory() provider.Factory[diarization.Provider] {
	return func(raw map[string]any) (diarization.Provider, error) {
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

type pyannoteResponse struct {
	Segments    []pyannoteSegment `json:"segments"`
	NumSpeakers int               `json:"num_speakers"`
	Error       string            `json:"error,omitempty"`
}

type pyannoteSegment struct {
	SpeakerID string  `json:"speaker_id"`
	StartTime float64 `json:"start_time"`
	EndTime   float64 `json:"end_time"`
}

// Diarize returns turns in the order the sidecar reports them.
func (p *Provider) Diarize(ctx context.Context, req diarization.Request) (*diarization.Response, error) {
	fields := map[string]string{}
	setInt := func(key string, v, fallback int) {
		if v <= 0 {
			v = fallback
		}
		if v > 0 {
			fields[key] = strconv.Itoa(v)
		}
	}
	setInt("num_speakers", req.NumSpeakers, 0)
	setInt("min_speakers", req.MinSpeakers, p.cfg.MinSpeakers)
	setInt("max_speakers", req.MaxSpeakers, p.cfg.MaxSpeakers)

	var out pyannoteResponse
	data, err := audio.EncodeWAV(req.Audio, req.SampleRate)
	if err != nil {
		return nil, errors.Internal(err)
	}
	err = p.client.DoJSON(ctx, httpclient.Request{
		Method: http.MethodPost,
		Path:   "/diarize",
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
	if out.Error != "" {
		return nil, errors.ExternalServiceError(ProviderName, fmt.Errorf("sidecar: %s", out.Error))
	}

	resp := &diarization.Response{NumSpeakers: out.NumSpeakers, Turns: make([]diarization.Turn, 0, len(out.Segments))}
	for _, s := range out.Segments {
		resp.Turns = append(resp.Turns, diarization.Turn{Start: s.StartTime, End: s.EndTime, Speaker: s.SpeakerID})
	}
	return resp, nil
}
