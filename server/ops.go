package server

import (
	"context"
	"io"
	"net/http"
	"path"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/kbukum/scribe/logger"
	"github.com/kbukum/scribe/meeting"
	"github.com/kbukum/scribe/recording"
	"github.com/kbukum/scribe/sse"
)

// StatusSource is satisfied by *recording.Controller.
type StatusSource interface {
	Status() recording.Status
}

// MeetingReader is satisfied by *meeting.Service.
type MeetingReader interface {
	Get(ctx context.Context, id string) (*meeting.Meeting, error)
	List(ctx context.Context) ([]meeting.Meeting, error)
	OpenRecording(ctx context.Context, id string) (io.ReadCloser, *meeting.Meeting, error)
}

// RegisterOps mounts the controller status and the read-only meeting
// routes. A nil meetings skips the meeting routes.
func (s *Server) RegisterOps(status StatusSource, meetings MeetingReader) {
	s.engine.GET("/status", func(c *gin.Context) {
		RespondOK(c, status.Status())
	})
	if meetings == nil {
		return
	}

	h := &meetingHandlers{meetings: meetings, log: s.log}
	g := s.engine.Group("/meetings")
	g.GET("", h.list)
	g.GET("/:id", h.get)
	g.GET("/:id/recording", h.recording)
}

// RegisterStatusStream mounts GET /status/events, which sends the current
// status and then every change as "status" events.
func (s *Server) RegisterStatusStream(status StatusSource, hub *sse.Hub) {
	s.engine.GET("/status/events", func(c *gin.Context) {
		current, err := sse.StatusEvent(status.Status())
		if err != nil {
			RespondWithError(c, err)
			return
		}
		hub.Serve(c.Writer, c.Request, uuid.NewString(), current)
	})
}

type meetingHandlers struct {
	meetings MeetingReader
	log      *logger.Logger
}

func (h *meetingHandlers) list(c *gin.Context) {
	list, err := h.meetings.List(c.Request.Context())
	if err != nil {
		RespondWithError(c, err)
		return
	}
	RespondOK(c, list)
}

func (h *meetingHandlers) get(c *gin.Context) {
	m, err := h.meetings.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondWithError(c, err)
		return
	}
	RespondOK(c, m)
}

func (h *meetingHandlers) recording(c *gin.Context) {
	ctx := c.Request.Context()
	rc, m, err := h.meetings.OpenRecording(ctx, c.Param("id"))
	if err != nil {
		RespondWithError(c, err)
		return
	}
	defer rc.Close()

	c.Header("Content-Type", "audio/wav")
	c.Header("Content-Disposition", `attachment; filename="`+path.Base(m.RecordingFile)+`"`)
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, rc); err != nil {
		h.log.WithContext(ctx).Warn("Recording download interrupted", map[string]interface{}{
			logger.FieldSinkKey: m.RecordingFile,
			logger.FieldError:   err.Error(),
		})
	}
}
