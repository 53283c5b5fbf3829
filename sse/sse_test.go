package sse

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/kbukum/scribe/logger"
	"github.com/kbukum/scribe/recording"
)

func startHub(t *testing.T, opts ...Option) *Hub {
	t.Helper()
	h := NewHub(logger.NewNop(), opts...)
	c := NewComponent(h)
	if err := c.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = c.Stop(context.Background()) })
	return h
}

// readEvent reads one event block, skipping keep-alive comments.
func readEvent(t *testing.T, r *bufio.Reader) (name, data string) {
	t.Helper()
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		line = strings.TrimRight(line, "\n")
		switch {
		case strings.HasPrefix(line, "event: "):
			name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		case line == "" && data != "":
			return name, data
		}
	}
}

func waitClients(t *testing.T, h *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for h.ClientCount() != n {
		if time.Now().After(deadline) {
			t.Fatalf("clients = %d, want %d", h.ClientCount(), n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestServe_InitialThenBroadcast(t *testing.T) {
	h := startHub(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.Serve(w, r, "c1", Event{Name: "hello", Data: []byte(`{"n":0}`)})
	}))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("content type = %q", ct)
	}

	r := bufio.NewReader(resp.Body)
	if name, data := readEvent(t, r); name != "hello" || data != `{"n":0}` {
		t.Errorf("initial = %s %s", name, data)
	}

	if !h.Broadcast(Event{Name: "tick", Data: []byte(`{"n":1}`)}) {
		t.Fatal("broadcast refused")
	}
	if name, data := readEvent(t, r); name != "tick" || data != `{"n":1}` {
		t.Errorf("broadcast = %s %s", name, data)
	}
}

func TestServe_EndsWhenHubStops(t *testing.T) {
	h := NewHub(logger.NewNop())
	c := NewComponent(h)
	_ = c.Start(context.Background())

	done := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer close(done)
		h.Serve(w, r, "c1")
	}))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	waitClients(t, h, 1)

	_ = c.Stop(context.Background())
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not end after Stop")
	}
	if h.Broadcast(Event{Data: []byte("x")}) {
		t.Error("broadcast after Stop must be refused")
	}
	if h.Register(newClient("late", 1)) {
		t.Error("register after Stop must be refused")
	}
}

func TestServe_KeepAlive(t *testing.T) {
	h := startHub(t, WithKeepAlive(10*time.Millisecond))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.Serve(w, r, "c1")
	}))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	line, err := bufio.NewReader(resp.Body).ReadString('\n')
	if err != nil || !strings.HasPrefix(line, ": keepalive ") {
		t.Errorf("line = %q, %v", line, err)
	}
}

func TestClient_LaggingDropsEvents(t *testing.T) {
	c := newClient("slow", 2)
	for i := 0; i < 2; i++ {
		if !c.send(Event{Data: []byte("x")}) {
			t.Fatalf("send %d refused", i)
		}
	}
	if c.send(Event{Data: []byte("overflow")}) {
		t.Error("send to a full client must not block or succeed")
	}
}

func TestStatusBroadcaster(t *testing.T) {
	h := startHub(t)
	c := newClient("c1", 4)
	if !h.Register(c) {
		t.Fatal("register refused")
	}

	b := NewStatusBroadcaster(h)
	st := recording.Status{State: recording.StateRecording, MeetingID: "m-1", UpdatedAt: time.Now()}
	if err := b.PublishStatus(context.Background(), st); err != nil {
		t.Fatal(err)
	}

	select {
	case e := <-c.Events():
		var got recording.Status
		if err := json.Unmarshal(e.Data, &got); err != nil {
			t.Fatal(err)
		}
		if e.Name != EventStatus || got.State != recording.StateRecording || got.MeetingID != "m-1" {
			t.Errorf("event = %s %+v", e.Name, got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no status event")
	}
}
