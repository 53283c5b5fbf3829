package consumer

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/kbukum/scribe/logger"
)

// fakeReader serves queued messages, then blocks until ctx ends or it is
// closed.
type fakeReader struct {
	mu        sync.Mutex
	msgs      []kafkago.Message
	fetchErrs []error
	committed []int64
	closed    chan struct{}
	log       []string
}

func newFakeReader(msgs ...kafkago.Message) *fakeReader {
	return &fakeReader{msgs: msgs, closed: make(chan struct{})}
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafkago.Message, error) {
	r.mu.Lock()
	if len(r.fetchErrs) > 0 {
		err := r.fetchErrs[0]
		r.fetchErrs = r.fetchErrs[1:]
		r.mu.Unlock()
		return kafkago.Message{}, err
	}
	if len(r.msgs) > 0 {
		m := r.msgs[0]
		r.msgs = r.msgs[1:]
		r.log = append(r.log, "fetch")
		r.mu.Unlock()
		return m, nil
	}
	r.mu.Unlock()

	select {
	case <-ctx.Done():
		return kafkago.Message{}, ctx.Err()
	case <-r.closed:
		return kafkago.Message{}, io.EOF
	}
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafkago.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
		r.log = append(r.log, "commit")
	}
	return nil
}

func (r *fakeReader) Close() error {
	close(r.closed)
	return nil
}

func (r *fakeReader) snapshot() ([]int64, []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int64(nil), r.committed...), append([]string(nil), r.log...)
}

func waitCommitted(t *testing.T, r *fakeReader, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if c, _ := r.snapshot(); len(c) >= n {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d commits", n)
}

func TestConsume_HandlesThenCommitsInOrder(t *testing.T) {
	r := newFakeReader(
		kafkago.Message{Offset: 1, Value: []byte("a")},
		kafkago.Message{Offset: 2, Value: []byte("b")},
		kafkago.Message{Offset: 3, Value: []byte("c")},
	)

	var handled []string
	handler := func(_ context.Context, msg kafkago.Message) error {
		r.mu.Lock()
		handled = append(handled, string(msg.Value))
		r.log = append(r.log, "handle")
		r.mu.Unlock()
		if string(msg.Value) == "b" {
			return errors.New("rejected")
		}
		return nil
	}
	c := NewWithReader(r, "cmds", "g", handler, logger.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Consume(ctx) }()

	waitCommitted(t, r, 3)
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Consume() = %v, want context.Canceled", err)
	}

	committed, log := r.snapshot()
	if len(committed) != 3 || committed[0] != 1 || committed[1] != 2 || committed[2] != 3 {
		t.Errorf("committed = %v", committed)
	}
	want := []string{"fetch", "handle", "commit", "fetch", "handle", "commit", "fetch", "handle", "commit"}
	if len(log) != len(want) {
		t.Fatalf("log = %v", log)
	}
	for i := range want {
		if log[i] != want[i] {
			t.Fatalf("log = %v, want %v", log, want)
		}
	}
	if len(handled) != 3 {
		t.Errorf("handled = %v", handled)
	}
}

func TestConsume_PanicIsCommitted(t *testing.T) {
	r := newFakeReader(kafkago.Message{Offset: 7})
	c := NewWithReader(r, "cmds", "g", func(context.Context, kafkago.Message) error {
		panic("boom")
	}, logger.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = c.Consume(ctx) }()

	waitCommitted(t, r, 1)
}

func TestConsume_ReaderClosedEndsCleanly(t *testing.T) {
	r := newFakeReader()
	c := NewWithReader(r, "cmds", "g", func(context.Context, kafkago.Message) error { return nil }, logger.NewNop())

	done := make(chan error, 1)
	go func() { done <- c.Consume(context.Background()) }()

	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Consume() = %v, want nil", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Consume did not return after Close")
	}
}

func TestConsume_FetchErrorBacksOff(t *testing.T) {
	r := newFakeReader(kafkago.Message{Offset: 1})
	r.fetchErrs = []error{errors.New("dial tcp: connection refused")}
	c := NewWithReader(r, "cmds", "g", func(context.Context, kafkago.Message) error { return nil }, logger.NewNop())
	c.backoff.InitialBackoff = time.Millisecond
	c.backoff.MaxBackoff = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = c.Consume(ctx) }()

	waitCommitted(t, r, 1)
}
