package sse

import (
	"fmt"
	"net/http"
	"time"
)

// Serve streams events to one client until the request ends or the hub
// drops the client. initial events are written before any broadcast.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, clientID string, initial ...Event) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	// Streams outlive the server's write timeout.
	if err := http.NewResponseController(w).SetWriteDeadline(time.Time{}); err != nil {
		h.log.Debug("Could not clear write deadline", map[string]interface{}{"client_id": clientID, "error": err.Error()})
	}

	c := newClient(clientID, h.buffer)
	if !h.Register(c) {
		http.Error(w, "shutting down", http.StatusServiceUnavailable)
		return
	}
	defer h.Unregister(c)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	for _, e := range initial {
		writeEvent(w, e)
	}
	flusher.Flush()

	keepAlive := time.NewTicker(h.keepAlive)
	defer keepAlive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case e, ok := <-c.Events():
			if !ok {
				return
			}
			writeEvent(w, e)
			flusher.Flush()
		case <-keepAlive.C:
			_, _ = fmt.Fprintf(w, ": keepalive %d\n\n", time.Now().Unix())
			flusher.Flush()
		}
	}
}

func writeEvent(w http.ResponseWriter, e Event) {
	if e.Name != "" {
		_, _ = fmt.Fprintf(w, "event: %s\n", e.Name)
	}
	_, _ = fmt.Fprintf(w, "data: %s\n\n", e.Data)
}
