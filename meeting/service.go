package meeting

import (
	"context"
	"io"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/kbukum/scribe/command"
	"github.com/kbukum/scribe/errors"
	"github.com/kbukum/scribe/logger"
	"github.com/kbukum/scribe/storage"
	"github.com/kbukum/scribe/validation"
)

const maxTitleLength = 200

// CommandPublisher is satisfied by *command.Publisher.
type CommandPublisher interface {
	Publish(ctx context.Context, cmd command.Command) error
}

// Service is the control-plane view of meetings used by scribectl and the
// ops server.
type Service struct {
	store    *Store
	commands CommandPublisher
	sink     storage.Storage
	log      *logger.Logger
	now      func() time.Time
}

func NewService(store *Store, commands CommandPublisher, sink storage.Storage, log *logger.Logger) *Service {
	return &Service{
		store:    store,
		commands: commands,
		sink:     sink,
		log:      log.WithComponent("meeting.service"),
		now:      time.Now,
	}
}

// StartMeeting creates a meeting and asks an agent to record it. Only one
// meeting may be active. If the start command cannot be published the
// meeting is deleted again and COMMAND_TRANSPORT_ERROR is returned.
func (s *Service) StartMeeting(ctx context.Context, title string) (*Meeting, error) {
	title = strings.TrimSpace(title)
	if err := validation.New().Required("title", title).MaxLength("title", title, maxTitleLength).Validate(); err != nil {
		return nil, err
	}

	m := &Meeting{Title: title, StartedAt: s.now().UTC()}
	err := s.store.db.WithTransaction(ctx, func(tx *gorm.DB) error {
		active, err := s.store.findActive(tx)
		switch {
		case err == nil:
			return errors.Conflict("a meeting is already in progress").WithDetail("meeting_id", active.ID.String())
		case !errors.HasCode(err, errors.ErrCodeNotFound):
			return err
		}
		return s.store.create(tx, m)
	})
	if err != nil {
		return nil, err
	}

	id := m.ID.String()
	log := s.log.WithMeeting(id)
	if err := s.commands.Publish(ctx, command.Command{MeetingID: id, Cmd: command.Start}); err != nil {
		if delErr := s.store.Delete(context.WithoutCancel(ctx), id); delErr != nil {
			log.Error("Rollback of unstarted meeting failed", logger.ErrorFields("delete", delErr))
		}
		if appErr, ok := errors.AsAppError(err); ok && appErr.Code == errors.ErrCodeCommandTransport {
			return nil, appErr
		}
		return nil, errors.CommandTransportError(err)
	}

	log.Info("Meeting started", map[string]interface{}{"title": title})
	return m, nil
}

// StopMeeting asks the agent to stop recording. The meeting is marked
// stopped by the agent once the recording is finalized.
func (s *Service) StopMeeting(ctx context.Context, id string) (*Meeting, error) {
	m, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !m.Active() {
		return nil, errors.InvalidInput("id", "meeting is already stopped")
	}
	if err := s.commands.Publish(ctx, command.Command{MeetingID: m.ID.String(), Cmd: command.Stop}); err != nil {
		return nil, err
	}
	s.log.WithMeeting(id).Info("Stop requested")
	return m, nil
}

// ForceStop marks an active meeting stopped without contacting an agent.
// It clears a meeting whose recording aborted and was never finalized.
func (s *Service) ForceStop(ctx context.Context, id string) (*Meeting, error) {
	m, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !m.Active() {
		return nil, errors.InvalidInput("id", "meeting is already stopped")
	}
	now := s.now().UTC()
	if err := s.store.MarkStopped(ctx, id, now); err != nil {
		return nil, err
	}
	m.StoppedAt = &now
	s.log.WithMeeting(id).Warn("Meeting force-stopped")
	return m, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Meeting, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]Meeting, error) {
	return s.store.List(ctx)
}

// Delete removes the meeting and its recording. A recording that cannot
// be deleted is logged and left behind.
func (s *Service) Delete(ctx context.Context, id string) error {
	m, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}

	log := s.log.WithMeeting(id)
	if m.RecordingFile != "" && s.sink != nil {
		if err := s.sink.Delete(ctx, m.RecordingFile); err != nil {
			log.Warn("Recording delete failed", map[string]interface{}{
				logger.FieldSinkKey: m.RecordingFile,
				logger.FieldError:   err.Error(),
			})
		}
	}
	log.Info("Meeting deleted")
	return nil
}

// OpenRecording streams the WAV file of a finalized recording. The caller
// closes the reader.
func (s *Service) OpenRecording(ctx context.Context, id string) (io.ReadCloser, *Meeting, error) {
	m, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if !m.RecordingReady || m.RecordingFile == "" {
		return nil, nil, errors.NotFound("recording", id)
	}
	rc, err := s.sink.Download(ctx, m.RecordingFile)
	if err != nil {
		return nil, nil, errors.SinkError(m.RecordingFile, err)
	}
	return rc, m, nil
}
