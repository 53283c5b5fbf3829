// Package meeting keeps meeting records and the operations the control
// plane runs on them: start and stop a recording through the command
// channel, list, inspect, delete and download.
package meeting

import (
	"database/sql/driver"
	"embed"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kbukum/scribe/transcript"
)

// Migrations holds the schema, applied by database.Component.
//
//go:embed migrations/*.sql
var Migrations embed.FS

// MigrationsDir is the directory inside Migrations.
const MigrationsDir = "migrations"

// Meeting is one row of the meetings table. StoppedAt is nil while the
// meeting is active.
type Meeting struct {
	ID                    uuid.UUID  `gorm:"type:text;primaryKey" json:"id"`
	Title                 string     `gorm:"not null" json:"title"`
	StartedAt             time.Time  `gorm:"not null" json:"started_at"`
	StoppedAt             *time.Time `json:"stopped_at"`
	RecordingReady        bool       `json:"recording_ready"`
	RecordingFile         string     `json:"recording_file,omitempty"`
	TranscriptionReady    bool       `json:"transcription_ready"`
	TranscriptionSegments Segments   `gorm:"type:text" json:"transcription_segments,omitempty"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
}

func (Meeting) TableName() string { return "meetings" }

// Active reports whether the meeting has not been stopped.
func (m *Meeting) Active() bool { return m.StoppedAt == nil }

// Segments is stored as a JSON array.
type Segments []transcript.Segment

func (s Segments) Value() (driver.Value, error) {
	if s == nil {
		return nil, nil
	}
	b, err := json.Marshal([]transcript.Segment(s))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (s *Segments) Scan(src any) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*s = nil
		return nil
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		return fmt.Errorf("scan segments: unsupported type %T", src)
	}
	return json.Unmarshal(data, (*[]transcript.Segment)(s))
}
