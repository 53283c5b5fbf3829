// Package recording owns a meeting recording from device open to saved
// transcript: the streaming writer moves captured frames into the sink and
// the controller sequences capture, finalize and transcription.
package recording

import (
	"context"
	"sync"
	"time"

	"github.com/kbukum/scribe/capture"
	"github.com/kbukum/scribe/component"
	"github.com/kbukum/scribe/errors"
	"github.com/kbukum/scribe/logger"
	"github.com/kbukum/scribe/observability"
	"github.com/kbukum/scribe/storage"
	"github.com/kbukum/scribe/transcript"
)

// MeetingUpdater applies the two post-recording updates to a meeting.
type MeetingUpdater interface {
	MarkRecordingReady(ctx context.Context, meetingID string, stoppedAt time.Time, recordingFile string) error
	SaveTranscription(ctx context.Context, meetingID string, segments []transcript.Segment) error
}

// Transcriber produces the transcript of a finalized recording.
type Transcriber interface {
	Run(ctx context.Context, key string) ([]transcript.Segment, error)
}

// Deps are the collaborators a Controller drives.
type Deps struct {
	Opener   capture.Opener
	Sink     storage.Storage
	Meetings MeetingUpdater
	Pipeline Transcriber
	Status   StatusPublisher
	Metrics  *observability.RecorderMetrics
}

type session struct {
	meetingID string
	key       string
	startedAt time.Time
	loop      *capture.Loop

	recorded chan struct{}
	err      error
}

// Controller runs at most one recording at a time.
type Controller struct {
	cfg    Config
	deps   Deps
	writer *Writer
	log    *logger.Logger
	now    func() time.Time

	mu      sync.Mutex
	state   State
	session *session

	runCtx    context.Context
	runCancel context.CancelFunc
	wg        sync.WaitGroup

	// statusQ feeds publishStatus; transitions are queued under mu and
	// published after it is released.
	statusQ      chan Status
	statusDone   chan struct{}
	statusClosed bool
}

// statusQueueSize bounds the transitions waiting for a slow publisher.
const statusQueueSize = 32

// NewController creates an idle controller.
func NewController(cfg Config, deps Deps, log *logger.Logger) *Controller {
	if deps.Metrics == nil {
		deps.Metrics = observability.NopRecorderMetrics()
	}
	if cfg.StatusTimeout <= 0 {
		cfg.StatusTimeout = 2 * time.Second
	}
	runCtx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		cfg:        cfg,
		deps:       deps,
		writer:     NewWriter(deps.Sink, cfg, deps.Metrics, log),
		log:        log.WithComponent("recorder"),
		now:        time.Now,
		state:      StateIdle,
		runCtx:     runCtx,
		runCancel:  cancel,
		statusDone: make(chan struct{}),
	}
	if deps.Status == nil {
		close(c.statusDone)
		return c
	}
	c.statusQ = make(chan Status, statusQueueSize)
	go c.publishStatus()
	return c
}

// Start begins recording meetingID. Device and sink are opened before it
// returns; capture and writing continue in the background.
func (c *Controller) Start(ctx context.Context, meetingID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateIdle {
		return errors.Conflict("recorder is " + string(c.state)).
			WithDetail(logger.FieldMeetingID, c.session.meetingID)
	}
	log := c.log.WithMeeting(meetingID)

	dev, err := c.deps.Opener(ctx)
	if err != nil {
		log.Error("Open input device failed", logger.ErrorFields("open_device", err))
		return errors.DeviceError("input", err)
	}

	startedAt := c.now()
	key := c.cfg.SinkKey(meetingID, startedAt)
	// The object outlives the command that started it.
	obj, err := c.writer.Open(context.WithoutCancel(ctx), key, startedAt)
	if err != nil {
		_ = dev.Close()
		log.Error("Open sink failed", logger.ErrorFields("open_sink", err))
		return err
	}

	loop := capture.NewLoop(dev, c.cfg.Profile, c.cfg.Capture, c.deps.Metrics, log)
	loop.Start(c.runCtx)

	sess := &session{
		meetingID: meetingID,
		key:       key,
		startedAt: startedAt,
		loop:      loop,
		recorded:  make(chan struct{}),
	}
	c.session = sess
	c.setStateLocked(StateRecording)

	c.wg.Add(1)
	go c.run(sess, dev, obj)

	log.Info("Recording started", map[string]interface{}{
		logger.FieldSinkKey: key,
		"profile":           c.cfg.Profile.String(),
	})
	return nil
}

// Stop ends the active recording and waits until the sink is finalized or
// aborted, or ctx ends. Transcription continues in the background.
func (c *Controller) Stop(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateRecording {
		state := c.state
		c.mu.Unlock()
		return errors.Conflict("recorder is not recording").WithDetail(logger.FieldState, string(state))
	}
	sess := c.session
	c.mu.Unlock()

	c.log.WithMeeting(sess.meetingID).Info("Stopping recording")
	sess.loop.Stop()

	select {
	case <-sess.recorded:
		return sess.err
	case <-ctx.Done():
		return errors.Timeout("stop recording").WithCause(ctx.Err())
	}
}

// Status returns the current state.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.statusLocked()
}

func (c *Controller) statusLocked() Status {
	s := Status{State: c.state, UpdatedAt: c.now()}
	if c.session != nil {
		s.MeetingID = c.session.meetingID
		s.SinkKey = c.session.key
		started := c.session.startedAt
		s.StartedAt = &started
	}
	return s
}

func (c *Controller) setStateLocked(state State) {
	c.state = state
	if state == StateIdle {
		c.session = nil
	}
	if c.statusQ == nil || c.statusClosed {
		return
	}
	select {
	case c.statusQ <- c.statusLocked():
	default:
		c.log.Warn("Status queue full, dropping transition", map[string]interface{}{logger.FieldState: string(state)})
	}
}

// publishStatus delivers queued transitions in order. Each publish gets its
// own deadline so a stalled publisher delays only later notifications.
func (c *Controller) publishStatus() {
	defer close(c.statusDone)
	for st := range c.statusQ {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(c.runCtx), c.cfg.StatusTimeout)
		err := c.deps.Status.PublishStatus(ctx, st)
		cancel()
		if err != nil {
			c.log.Warn("Publish status failed", logger.ErrorFields("publish_status", err))
		}
	}
}

func (c *Controller) closeStatus() {
	c.mu.Lock()
	if c.statusQ != nil && !c.statusClosed {
		c.statusClosed = true
		close(c.statusQ)
	}
	c.mu.Unlock()
}

func (c *Controller) run(sess *session, dev capture.Device, obj storage.ObjectWriter) {
	defer c.wg.Done()
	log := c.log.WithMeeting(sess.meetingID)

	res, err := c.writer.Run(c.runCtx, sess.key, obj, sess.loop)
	<-sess.loop.Done()
	if cerr := dev.Close(); cerr != nil {
		log.Warn("Close input device failed", logger.ErrorFields("close_device", cerr))
	}

	c.mu.Lock()
	sess.err = err
	if err != nil {
		c.deps.Metrics.RecordingFinished(c.runCtx, observability.OutcomeAborted)
		log.Error("Recording aborted", map[string]interface{}{
			logger.FieldError:   err.Error(),
			logger.FieldSinkKey: sess.key,
			"dropped":           sess.loop.Dropped(),
		})
		c.setStateLocked(StateIdle)
		close(sess.recorded)
		c.mu.Unlock()
		return
	}
	c.deps.Metrics.RecordingFinished(c.runCtx, observability.OutcomeFinalized)
	c.setStateLocked(StateTranscribing)
	close(sess.recorded)
	c.mu.Unlock()

	if dropped := sess.loop.Dropped(); dropped > 0 {
		log.Warn("Frames were dropped during capture", map[string]interface{}{"dropped": dropped, "frames": res.Frames})
	}
	c.transcribe(sess, log)

	c.mu.Lock()
	c.setStateLocked(StateIdle)
	c.mu.Unlock()
}

func (c *Controller) transcribe(sess *session, log *logger.Logger) {
	ctx := logger.ContextWithMeetingID(c.runCtx, sess.meetingID)

	if err := c.deps.Meetings.MarkRecordingReady(ctx, sess.meetingID, c.now(), sess.key); err != nil {
		log.Error("Mark recording ready failed", logger.ErrorFields("mark_recording_ready", err))
	}

	segments, err := c.deps.Pipeline.Run(ctx, sess.key)
	if err != nil {
		log.Error("Transcription failed", logger.ErrorFields("transcribe", err))
		return
	}
	if err := c.deps.Meetings.SaveTranscription(ctx, sess.meetingID, segments); err != nil {
		log.Error("Save transcription failed", logger.ErrorFields("save_transcription", err))
		return
	}
	log.Info("Transcription saved", map[string]interface{}{"segments": len(segments)})
}

// Shutdown stops an active recording so the sink is finalized, then waits
// for background work. When ctx ends first, transcription is canceled.
func (c *Controller) Shutdown(ctx context.Context) error {
	if c.Status().State == StateRecording {
		if err := c.Stop(ctx); err != nil && !errors.HasCode(err, errors.ErrCodeConflict) {
			c.log.Warn("Stop during shutdown failed", logger.ErrorFields("shutdown", err))
		}
	}

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		c.runCancel()
		<-done
		c.closeStatus()
		return errors.Timeout("recorder shutdown").WithCause(ctx.Err())
	}

	c.closeStatus()
	select {
	case <-c.statusDone:
	case <-ctx.Done():
	}
	c.runCancel()
	return nil
}

// Lifecycle adapts the controller to the component registry. Stopping the
// component shuts the controller down.
func (c *Controller) Lifecycle() component.Component { return &lifecycle{c: c} }

type lifecycle struct{ c *Controller }

var _ component.Component = (*lifecycle)(nil)

func (l *lifecycle) Name() string                   { return "recorder" }
func (l *lifecycle) Start(context.Context) error    { return nil }
func (l *lifecycle) Stop(ctx context.Context) error { return l.c.Shutdown(ctx) }

func (l *lifecycle) Health(context.Context) component.Health {
	s := l.c.Status()
	return component.Health{Name: "recorder", Status: component.StatusHealthy, Message: string(s.State)}
}

func (l *lifecycle) Describe() component.Description {
	return component.Description{
		Name:    "recorder",
		Type:    "controller",
		Details: l.c.cfg.Profile.String() + " " + l.c.cfg.Capture.Kind,
	}
}
