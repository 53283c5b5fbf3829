package main

import (
	"context"
	"fmt"

	"github.com/kbukum/scribe/audio"
	"github.com/kbukum/scribe/capture"
	"github.com/kbukum/scribe/command"
	"github.com/kbukum/scribe/component"
	"github.com/kbukum/scribe/database"
	"github.com/kbukum/scribe/diarization"
	"github.com/kbukum/scribe/diarization/pyannote"
	"github.com/kbukum/scribe/kafka"
	"github.com/kbukum/scribe/kafka/consumer"
	"github.com/kbukum/scribe/logger"
	"github.com/kbukum/scribe/meeting"
	"github.com/kbukum/scribe/observability"
	"github.com/kbukum/scribe/provider"
	"github.com/kbukum/scribe/recording"
	"github.com/kbukum/scribe/redis"
	"github.com/kbukum/scribe/server"
	"github.com/kbukum/scribe/sse"
	"github.com/kbukum/scribe/storage"
	"github.com/kbukum/scribe/transcript"
	"github.com/kbukum/scribe/transcription"
	"github.com/kbukum/scribe/transcription/whisper"
)

// recorder wires the recording controller from the infrastructure
// components started before it. It is registered after storage, database
// and redis and before kafka and the server, so commands and ops routes
// exist before they are served and a live recording is finalized before
// storage goes away. The status stream hub is registered last so open
// streams end before the server shuts down.
type recorder struct {
	cfg   *AgentConfig
	db    *database.Component
	store *storage.Component
	cache *redis.Component // nil when redis is disabled
	bus   *kafka.Component
	srv   *server.Server // nil when the ops server is disabled
	hub   *sse.Hub       // set with srv
	log   *logger.Logger

	controller *recording.Controller
}

var (
	_ component.Component   = (*recorder)(nil)
	_ component.Describable = (*recorder)(nil)
)

func (r *recorder) Name() string { return "recorder" }

func (r *recorder) Start(ctx context.Context) error {
	metrics, err := observability.NewRecorderMetrics(observability.Meter())
	if err != nil {
		return fmt.Errorf("recorder metrics: %w", err)
	}
	sink := r.store.Storage()
	meetings := meeting.NewStore(r.db.DB())

	transcribers, diarizers, err := newModels(r.cfg.Transcript, r.log)
	if err != nil {
		return err
	}
	opts := []transcript.Option{transcript.WithMetrics(metrics)}
	if r.cfg.Transcript.Decoder == "ffmpeg" {
		opts = append(opts, transcript.WithDecoder(audio.FFmpegDecoder{Binary: r.cfg.Recorder.Capture.FFmpeg.Binary}))
	}
	pipeline := transcript.NewPipeline(r.cfg.Transcript, sink, transcribers, diarizers, r.log, opts...)

	deps := recording.Deps{
		Opener:   capture.NewOpener(r.cfg.Recorder.Capture, r.cfg.Recorder.Profile),
		Sink:     sink,
		Meetings: meetings,
		Pipeline: pipeline,
		Metrics:  metrics,
	}
	var status recording.StatusPublishers
	if r.cache != nil {
		status = append(status, redis.NewStatusStore(r.cache.Client(), r.cfg.AgentID, r.log))
	}
	if r.hub != nil {
		status = append(status, sse.NewStatusBroadcaster(r.hub))
	}
	if len(status) > 0 {
		deps.Status = status
	}
	r.controller = recording.NewController(r.cfg.Recorder, deps, r.log)

	listener := command.NewListener(r.controller, r.cfg.StopTimeout, r.log)
	c, err := consumer.New(r.cfg.Kafka, listener.Handle, r.log)
	if err != nil {
		return fmt.Errorf("command consumer: %w", err)
	}
	r.bus.AddConsumer(c)

	if r.srv != nil {
		r.srv.RegisterOps(r.controller, meeting.NewService(meetings, nil, sink, r.log))
		r.srv.RegisterStatusStream(r.controller, r.hub)
	}

	r.log.Info("Recorder ready", map[string]interface{}{
		"agent_id":      r.cfg.AgentID,
		"capture":       r.cfg.Recorder.Capture.Kind,
		"transcription": r.cfg.Transcript.Transcription.Provider,
		"diarization":   r.cfg.Transcript.Diarization.Provider,
	})
	return nil
}

func (r *recorder) Stop(ctx context.Context) error {
	if r.controller == nil {
		return nil
	}
	return r.controller.Lifecycle().Stop(ctx)
}

func (r *recorder) Health(ctx context.Context) component.Health {
	if r.controller == nil {
		return component.Health{Name: r.Name(), Status: component.StatusUnhealthy, Message: "not started"}
	}
	return r.controller.Lifecycle().Health(ctx)
}

func (r *recorder) Describe() component.Description {
	return component.Description{
		Name:    "Recorder",
		Type:    "controller",
		Details: fmt.Sprintf("agent=%s %s capture=%s", r.cfg.AgentID, r.cfg.Recorder.Profile, r.cfg.Recorder.Capture.Kind),
	}
}

// newModels initializes the configured transcription and diarization
// backends.
func newModels(cfg transcript.Config, log *logger.Logger) (
	*provider.Manager[transcription.Provider],
	*provider.Manager[diarization.Provider],
	error,
) {
	transcribers, err := newManager(cfg.Transcription, transcription.NewManager,
		map[string]provider.Factory[transcription.Provider]{whisper.ProviderName: whisper.Factory()}, log)
	if err != nil {
		return nil, nil, fmt.Errorf("transcription: %w", err)
	}
	diarizers, err := newManager(cfg.Diarization, diarization.NewManager,
		map[string]provider.Factory[diarization.Provider]{pyannote.ProviderName: pyannote.Factory()}, log)
	if err != nil {
		return nil, nil, fmt.Errorf("diarization: %w", err)
	}
	return transcribers, diarizers, nil
}

// newManager initializes every instance in cfg. A single instance is pinned
// as the default; with fallbacks the first available one in priority order
// serves each call.
func newManager[T provider.Provider](
	cfg transcript.ProviderConfig,
	build func(provider.Selector[T], *logger.Logger) *provider.Manager[T],
	factories map[string]provider.Factory[T],
	log *logger.Logger,
) (*provider.Manager[T], error) {
	var selector provider.Selector[T]
	if len(cfg.Fallbacks) > 0 {
		selector = &provider.PrioritySelector[T]{Priority: cfg.Priority()}
	}
	m := build(selector, log)
	for _, inst := range cfg.Instances() {
		factory, ok := factories[inst.Provider]
		if !ok {
			return nil, fmt.Errorf("unknown provider %q", inst.Provider)
		}
		m.Register(inst.Name, factory)
		if err := m.Initialize(inst.Name, inst.Options); err != nil {
			return nil, err
		}
	}
	if len(cfg.Fallbacks) == 0 {
		if err := m.SetDefault(cfg.Provider); err != nil {
			return nil, err
		}
	}
	return m, nil
}
