package meeting

import (
	"bytes"
	"context"
	stderrors "errors"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/kbukum/scribe/command"
	"github.com/kbukum/scribe/database"
	"github.com/kbukum/scribe/errors"
	"github.com/kbukum/scribe/logger"
	"github.com/kbukum/scribe/storage"
	"github.com/kbukum/scribe/storage/memory"
	"github.com/kbukum/scribe/transcript"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	cfg := database.Config{
		Enabled:  true,
		DSN:      filepath.Join(t.TempDir(), "meetings.db"),
		Migrate:  true,
		LogLevel: "silent",
	}
	c := database.NewComponent(cfg, logger.NewNop()).WithMigrations(Migrations, MigrationsDir)
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("database start: %v", err)
	}
	t.Cleanup(func() { _ = c.Stop(context.Background()) })
	return NewStore(c.DB())
}

type fakeCommands struct {
	err  error
	sent []command.Command
}

func (f *fakeCommands) Publish(_ context.Context, cmd command.Command) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, cmd)
	return nil
}

type fixture struct {
	store    *Store
	commands *fakeCommands
	sink     *memory.Storage
	svc      *Service
	clock    time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:    newStore(t),
		commands: &fakeCommands{},
		sink:     memory.New(),
		clock:    time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
	}
	f.svc = NewService(f.store, f.commands, f.sink, logger.NewNop())
	f.svc.now = func() time.Time {
		f.clock = f.clock.Add(time.Minute)
		return f.clock
	}
	return f
}

func TestStore_CRUD(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	m := &Meeting{Title: "Weekly sync", StartedAt: time.Now().UTC()}
	if err := s.Create(ctx, m); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if m.ID == uuid.Nil {
		t.Fatal("id not assigned")
	}

	got, err := s.Get(ctx, m.ID.String())
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Title != "Weekly sync" || !got.Active() || got.RecordingReady {
		t.Errorf("Get() = %+v", got)
	}

	if err := s.Delete(ctx, m.ID.String()); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get(ctx, m.ID.String()); !errors.HasCode(err, errors.ErrCodeNotFound) {
		t.Errorf("Get after delete = %v, want NOT_FOUND", err)
	}
	if err := s.Delete(ctx, m.ID.String()); !errors.HasCode(err, errors.ErrCodeNotFound) {
		t.Errorf("second Delete = %v, want NOT_FOUND", err)
	}
}

func TestStore_InvalidID(t *testing.T) {
	s := newStore(t)
	if _, err := s.Get(context.Background(), "not-a-uuid"); !errors.HasCode(err, errors.ErrCodeInvalidInput) {
		t.Errorf("Get() = %v, want INVALID_INPUT", err)
	}
}

func TestStore_ListNewestFirst(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)

	for i, title := range []string{"first", "second", "third"} {
		m := &Meeting{Title: title, StartedAt: base.Add(time.Duration(i) * time.Hour)}
		if err := s.Create(ctx, m); err != nil {
			t.Fatal(err)
		}
	}

	list, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 3 || list[0].Title != "third" || list[2].Title != "first" {
		titles := make([]string, len(list))
		for i := range list {
			titles[i] = list[i].Title
		}
		t.Errorf("List() order = %v", titles)
	}
}

func TestStore_RecordingAndTranscription(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	m := &Meeting{Title: "Retro", StartedAt: time.Now().UTC()}
	if err := s.Create(ctx, m); err != nil {
		t.Fatal(err)
	}
	id := m.ID.String()

	if _, err := s.FindActive(ctx); err != nil {
		t.Fatalf("FindActive: %v", err)
	}

	stopped := time.Date(2024, 3, 1, 11, 0, 0, 0, time.UTC)
	key := "/recordings/meeting_" + id + "_1709290800.wav"
	if err := s.MarkRecordingReady(ctx, id, stopped, key); err != nil {
		t.Fatalf("MarkRecordingReady: %v", err)
	}
	segs := []transcript.Segment{
		{Start: 0.5, End: 2, Trans: "hello", Text: "hallo", Lang: "de", Speaker: "SPEAKER_00"},
		{Start: 2, End: 3, Trans: "", Text: "", Lang: "de", Speaker: transcript.Unknown},
	}
	if err := s.SaveTranscription(ctx, id, segs); err != nil {
		t.Fatalf("SaveTranscription: %v", err)
	}

	got, err := s.Get(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if got.Active() || !got.StoppedAt.Equal(stopped) {
		t.Errorf("StoppedAt = %v", got.StoppedAt)
	}
	if !got.RecordingReady || got.RecordingFile != key {
		t.Errorf("recording = %v %q", got.RecordingReady, got.RecordingFile)
	}
	if !got.TranscriptionReady || len(got.TranscriptionSegments) != 2 || got.TranscriptionSegments[0] != segs[0] {
		t.Errorf("segments = %+v", got.TranscriptionSegments)
	}

	if _, err := s.FindActive(ctx); !errors.HasCode(err, errors.ErrCodeNotFound) {
		t.Errorf("FindActive() = %v, want NOT_FOUND", err)
	}
	if err := s.MarkStopped(ctx, uuid.NewString(), stopped); !errors.HasCode(err, errors.ErrCodeNotFound) {
		t.Errorf("MarkStopped(missing) = %v, want NOT_FOUND", err)
	}
}

func TestStore_EmptyTranscription(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	m := &Meeting{Title: "Silent", StartedAt: time.Now().UTC()}
	if err := s.Create(ctx, m); err != nil {
		t.Fatal(err)
	}
	if err := s.SaveTranscription(ctx, m.ID.String(), nil); err != nil {
		t.Fatal(err)
	}
	got, _ := s.Get(ctx, m.ID.String())
	if !got.TranscriptionReady || got.TranscriptionSegments == nil || len(got.TranscriptionSegments) != 0 {
		t.Errorf("segments = %#v", got.TranscriptionSegments)
	}
}

func TestService_StartMeeting(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	m, err := f.svc.StartMeeting(ctx, "  Planning  ")
	if err != nil {
		t.Fatalf("StartMeeting: %v", err)
	}
	if m.Title != "Planning" {
		t.Errorf("title = %q", m.Title)
	}
	if len(f.commands.sent) != 1 || f.commands.sent[0] != (command.Command{MeetingID: m.ID.String(), Cmd: command.Start}) {
		t.Errorf("sent = %+v", f.commands.sent)
	}

	if _, err := f.svc.StartMeeting(ctx, "Another"); !errors.HasCode(err, errors.ErrCodeConflict) {
		t.Errorf("second StartMeeting = %v, want CONFLICT", err)
	}
}

func TestService_StartMeetingValidation(t *testing.T) {
	f := newFixture(t)
	for _, title := range []string{"", "   ", strings.Repeat("x", 201)} {
		if _, err := f.svc.StartMeeting(context.Background(), title); !errors.HasCode(err, errors.ErrCodeInvalidInput) {
			t.Errorf("StartMeeting(%d chars) = %v, want INVALID_INPUT", len(title), err)
		}
	}
	if len(f.commands.sent) != 0 {
		t.Error("command sent for invalid title")
	}
}

func TestService_StartMeetingRollsBack(t *testing.T) {
	f := newFixture(t)
	f.commands.err = stderrors.New("broker unreachable")
	ctx := context.Background()

	_, err := f.svc.StartMeeting(ctx, "Doomed")
	if !errors.HasCode(err, errors.ErrCodeCommandTransport) {
		t.Fatalf("StartMeeting() = %v, want COMMAND_TRANSPORT_ERROR", err)
	}
	list, _ := f.store.List(ctx)
	if len(list) != 0 {
		t.Errorf("meeting left behind: %+v", list)
	}

	f.commands.err = nil
	if _, err := f.svc.StartMeeting(ctx, "Retry"); err != nil {
		t.Errorf("StartMeeting after rollback = %v", err)
	}
}

func TestService_StopMeeting(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.StopMeeting(ctx, uuid.NewString()); !errors.HasCode(err, errors.ErrCodeNotFound) {
		t.Errorf("StopMeeting(missing) = %v", err)
	}

	m, _ := f.svc.StartMeeting(ctx, "Standup")
	if _, err := f.svc.StopMeeting(ctx, m.ID.String()); err != nil {
		t.Fatalf("StopMeeting: %v", err)
	}
	last := f.commands.sent[len(f.commands.sent)-1]
	if last.Cmd != command.Stop || last.MeetingID != m.ID.String() {
		t.Errorf("last command = %+v", last)
	}

	if err := f.store.MarkRecordingReady(ctx, m.ID.String(), f.clock, "/recordings/x.wav"); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.StopMeeting(ctx, m.ID.String()); !errors.HasCode(err, errors.ErrCodeInvalidInput) {
		t.Errorf("StopMeeting(stopped) = %v, want INVALID_INPUT", err)
	}
}

func TestService_ForceStop(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	m, _ := f.svc.StartMeeting(ctx, "Aborted")
	stopped, err := f.svc.ForceStop(ctx, m.ID.String())
	if err != nil {
		t.Fatalf("ForceStop: %v", err)
	}
	if stopped.Active() {
		t.Error("meeting still active")
	}
	if _, err := f.svc.StartMeeting(ctx, "Next"); err != nil {
		t.Errorf("StartMeeting after force stop = %v", err)
	}
	if _, err := f.svc.ForceStop(ctx, m.ID.String()); !errors.HasCode(err, errors.ErrCodeInvalidInput) {
		t.Errorf("second ForceStop = %v", err)
	}
}

func TestService_RecordingDownloadAndDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	m, _ := f.svc.StartMeeting(ctx, "Demo")
	id := m.ID.String()

	if _, _, err := f.svc.OpenRecording(ctx, id); !errors.HasCode(err, errors.ErrCodeNotFound) {
		t.Errorf("OpenRecording before ready = %v, want NOT_FOUND", err)
	}

	key := "/recordings/meeting_" + id + "_1.wav"
	wav := []byte("RIFF....WAVEfmt ")
	if err := f.sink.Upload(ctx, key, bytes.NewReader(wav), storage.Metadata{}); err != nil {
		t.Fatal(err)
	}
	if err := f.store.MarkRecordingReady(ctx, id, f.clock, key); err != nil {
		t.Fatal(err)
	}

	rc, got, err := f.svc.OpenRecording(ctx, id)
	if err != nil {
		t.Fatalf("OpenRecording: %v", err)
	}
	data, _ := io.ReadAll(rc)
	rc.Close()
	if !bytes.Equal(data, wav) || got.RecordingFile != key {
		t.Errorf("recording = %q from %q", data, got.RecordingFile)
	}

	if err := f.svc.Delete(ctx, id); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok := f.sink.Bytes(key); ok {
		t.Error("recording not deleted from sink")
	}
	if err := f.svc.Delete(ctx, id); !errors.HasCode(err, errors.ErrCodeNotFound) {
		t.Errorf("second Delete = %v", err)
	}
}
