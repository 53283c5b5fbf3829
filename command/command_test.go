package command

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"sync"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/kbukum/scribe/errors"
	"github.com/kbukum/scribe/kafka"
	"github.com/kbukum/scribe/logger"
)

type fakeController struct {
	mu       sync.Mutex
	calls    []string
	startErr error
	stopErr  error
	// stopBlock, when set, holds Stop until it is closed or ctx ends.
	stopBlock chan struct{}
}

func (f *fakeController) Start(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "start:"+id)
	return f.startErr
}

func (f *fakeController) Stop(ctx context.Context) error {
	f.mu.Lock()
	f.calls = append(f.calls, "stop")
	block := f.stopBlock
	err := f.stopErr
	f.mu.Unlock()
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return errors.Timeout("stop")
		}
	}
	return err
}

func (f *fakeController) snapshot() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func message(t *testing.T, v any) kafkago.Message {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	return kafkago.Message{Value: data}
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    Command
		wantErr bool
	}{
		{"start", `{"meeting_id":"m-1","cmd":"start"}`, Command{"m-1", Start}, false},
		{"stop", `{"meeting_id":"m-1","cmd":"stop"}`, Command{"m-1", Stop}, false},
		{"cancel", `{"meeting_id":"m-1","cmd":"cancel"}`, Command{"m-1", Cancel}, false},
		{"unknown cmd", `{"meeting_id":"m-1","cmd":"pause"}`, Command{}, true},
		{"missing id", `{"cmd":"start"}`, Command{}, true},
		{"path in id", `{"meeting_id":"../x","cmd":"start"}`, Command{}, true},
		{"not json", `start m-1`, Command{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode([]byte(tt.raw))
			if (err != nil) != tt.wantErr {
				t.Fatalf("Decode() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Decode() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestDecode_ValidationIsInvalidInput(t *testing.T) {
	_, err := Decode([]byte(`{"meeting_id":"m-1","cmd":"pause"}`))
	if !errors.HasCode(err, errors.ErrCodeInvalidInput) {
		t.Errorf("err = %v, want INVALID_INPUT", err)
	}
}

func TestListener_Dispatch(t *testing.T) {
	tests := []struct {
		name      string
		msg       any
		startErr  error
		wantCalls []string
		wantErr   bool
	}{
		{"start", Command{"m-1", Start}, nil, []string{"start:m-1"}, false},
		{"stop", Command{"m-1", Stop}, nil, []string{"stop"}, false},
		{"cancel is a no-op", Command{"m-1", Cancel}, nil, nil, false},
		{"start rejected", Command{"m-2", Start}, errors.Conflict("busy"), []string{"start:m-2"}, true},
		{"invalid never reaches controller", map[string]string{"meeting_id": "m-1", "cmd": "rewind"}, nil, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := &fakeController{startErr: tt.startErr}
			l := NewListener(ctrl, time.Second, logger.NewNop())

			err := l.Handle(context.Background(), message(t, tt.msg))
			if (err != nil) != tt.wantErr {
				t.Fatalf("Handle() error = %v, wantErr %v", err, tt.wantErr)
			}
			calls := ctrl.snapshot()
			if len(calls) != len(tt.wantCalls) {
				t.Fatalf("calls = %v, want %v", calls, tt.wantCalls)
			}
			for i := range calls {
				if calls[i] != tt.wantCalls[i] {
					t.Errorf("calls = %v, want %v", calls, tt.wantCalls)
				}
			}
		})
	}
}

func TestListener_StopWaitsForController(t *testing.T) {
	ctrl := &fakeController{stopBlock: make(chan struct{})}
	l := NewListener(ctrl, time.Second, logger.NewNop())

	done := make(chan error, 1)
	go func() { done <- l.Dispatch(context.Background(), Command{"m-1", Stop}) }()

	select {
	case <-done:
		t.Fatal("stop returned before the controller finished")
	case <-time.After(30 * time.Millisecond):
	}
	close(ctrl.stopBlock)
	if err := <-done; err != nil {
		t.Fatalf("Dispatch() = %v", err)
	}
}

func TestListener_StopTimeout(t *testing.T) {
	ctrl := &fakeController{stopBlock: make(chan struct{})}
	l := NewListener(ctrl, 20*time.Millisecond, logger.NewNop())

	err := l.Dispatch(context.Background(), Command{"m-1", Stop})
	if !errors.HasCode(err, errors.ErrCodeTimeout) {
		t.Errorf("Dispatch() = %v, want TIMEOUT", err)
	}
}

type fakeSender struct {
	err     error
	topic   string
	key     string
	value   any
	headers map[string]string
}

func (f *fakeSender) SendJSON(_ context.Context, topic, key string, value any, headers map[string]string) error {
	f.topic, f.key, f.value, f.headers = topic, key, value, headers
	return f.err
}

func TestPublisher_Publish(t *testing.T) {
	s := &fakeSender{}
	p := NewPublisher(s, "scribe.commands", logger.NewNop())

	ctx := logger.ContextWithCorrelationID(context.Background(), "corr-7")
	if err := p.Publish(ctx, Command{"m-1", Start}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if s.topic != "scribe.commands" || s.key != "m-1" {
		t.Errorf("topic/key = %q/%q", s.topic, s.key)
	}
	if s.headers[kafka.HeaderCorrelationID] != "corr-7" {
		t.Errorf("correlation id = %q", s.headers[kafka.HeaderCorrelationID])
	}
	if s.value.(Command).Cmd != Start {
		t.Errorf("value = %+v", s.value)
	}
}

func TestPublisher_GeneratesCorrelationID(t *testing.T) {
	s := &fakeSender{}
	p := NewPublisher(s, "t", logger.NewNop())

	if err := p.Publish(context.Background(), Command{"m-1", Stop}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if len(s.headers[kafka.HeaderCorrelationID]) != 36 {
		t.Errorf("correlation id = %q, want a uuid", s.headers[kafka.HeaderCorrelationID])
	}
}

func TestPublisher_Errors(t *testing.T) {
	s := &fakeSender{err: stderrors.New("broker down")}
	p := NewPublisher(s, "t", logger.NewNop())

	err := p.Publish(context.Background(), Command{"m-1", Start})
	if !errors.HasCode(err, errors.ErrCodeCommandTransport) {
		t.Errorf("Publish() = %v, want COMMAND_TRANSPORT_ERROR", err)
	}

	s.err = nil
	s.key = ""
	err = p.Publish(context.Background(), Command{"", Start})
	if !errors.HasCode(err, errors.ErrCodeInvalidInput) {
		t.Errorf("Publish() = %v, want INVALID_INPUT", err)
	}
	if s.key != "" {
		t.Error("invalid command was sent")
	}
}
