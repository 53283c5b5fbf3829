package meeting

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kbukum/scribe/database"
	"github.com/kbukum/scribe/errors"
	"github.com/kbukum/scribe/transcript"
	"github.com/kbukum/scribe/validation"
)

const resource = "meeting"

// Store persists meetings. It implements recording.MeetingUpdater.
type Store struct {
	db *database.DB
}

func NewStore(db *database.DB) *Store {
	return &Store{db: db}
}

// Create inserts m, assigning an id when it has none.
func (s *Store) Create(ctx context.Context, m *Meeting) error {
	return s.create(s.db.WithContext(ctx), m)
}

func (s *Store) create(tx *gorm.DB, m *Meeting) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return database.FromDatabase(tx.Create(m).Error, resource, m.ID.String())
}

func (s *Store) Get(ctx context.Context, id string) (*Meeting, error) {
	key, err := validation.ParseUUID("id", id)
	if err != nil {
		return nil, err
	}
	var m Meeting
	if err := s.db.WithContext(ctx).First(&m, "id = ?", key.String()).Error; err != nil {
		return nil, database.FromDatabase(err, resource, id)
	}
	return &m, nil
}

// List returns every meeting, newest first.
func (s *Store) List(ctx context.Context) ([]Meeting, error) {
	var out []Meeting
	if err := s.db.WithContext(ctx).Order("started_at DESC").Find(&out).Error; err != nil {
		return nil, database.FromDatabase(err, resource, "")
	}
	return out, nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	key, err := validation.ParseUUID("id", id)
	if err != nil {
		return err
	}
	res := s.db.WithContext(ctx).Delete(&Meeting{}, "id = ?", key.String())
	if res.Error != nil {
		return database.FromDatabase(res.Error, resource, id)
	}
	if res.RowsAffected == 0 {
		return errors.NotFound(resource, id)
	}
	return nil
}

// FindActive returns the meeting that has not been stopped, or NotFound.
func (s *Store) FindActive(ctx context.Context) (*Meeting, error) {
	return s.findActive(s.db.WithContext(ctx))
}

func (s *Store) findActive(tx *gorm.DB) (*Meeting, error) {
	var m Meeting
	err := tx.Where("stopped_at IS NULL").Order("started_at DESC").First(&m).Error
	if err != nil {
		return nil, database.FromDatabase(err, "active meeting", "")
	}
	return &m, nil
}

// MarkRecordingReady records the stop time and the sink key of a
// finalized recording.
func (s *Store) MarkRecordingReady(ctx context.Context, id string, stoppedAt time.Time, recordingFile string) error {
	return s.update(ctx, id, map[string]any{
		"stopped_at":      stoppedAt.UTC(),
		"recording_ready": true,
		"recording_file":  recordingFile,
	})
}

func (s *Store) SaveTranscription(ctx context.Context, id string, segments []transcript.Segment) error {
	if segments == nil {
		segments = []transcript.Segment{}
	}
	return s.update(ctx, id, map[string]any{
		"transcription_ready":    true,
		"transcription_segments": Segments(segments),
	})
}

// MarkStopped closes a meeting whose recording never finalized.
func (s *Store) MarkStopped(ctx context.Context, id string, stoppedAt time.Time) error {
	return s.update(ctx, id, map[string]any{"stopped_at": stoppedAt.UTC()})
}

func (s *Store) update(ctx context.Context, id string, fields map[string]any) error {
	key, err := validation.ParseUUID("id", id)
	if err != nil {
		return err
	}
	res := s.db.WithContext(ctx).Model(&Meeting{}).Where("id = ?", key.String()).Updates(fields)
	if res.Error != nil {
		return database.FromDatabase(res.Error, resource, id)
	}
	if res.RowsAffected == 0 {
		return errors.NotFound(resource, id)
	}
	return nil
}
