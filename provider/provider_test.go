package provider

import (
	"context"
	"strings"
	"testing"

	"github.com/kbukum/scribe/logger"
)

type fakeProvider struct {
	name      string
	available bool
}

func (p *fakeProvider) Name() string                      { return p.name }
func (p *fakeProvider) IsAvailable(context.Context) bool { return p.available }

func factoryFor(name string, available bool) Factory[*fakeProvider] {
	return func(map[string]any) (*fakeProvider, error) {
		return &fakeProvider{name: name, available: available}, nil
	}
}

func TestRegistry_CreateAndList(t *testing.T) {
	reg := NewRegistry[*fakeProvider]()
	reg.RegisterFactory("whisper", factoryFor("whisper", true))
	reg.RegisterFactory("faster-whisper", factoryFor("faster-whisper", true))

	p, err := reg.Create("whisper", nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if p.Name() != "whisper" {
		t.Errorf("name = %q", p.Name())
	}

	if _, err := reg.Create("missing", nil); err == nil || !strings.Contains(err.Error(), "not registered") {
		t.Errorf("Create(missing) error = %v", err)
	}

	names := reg.List()
	if len(names) != 2 || names[0] != "faster-whisper" || names[1] != "whisper" {
		t.Errorf("List = %v", names)
	}
}

func TestSelectors(t *testing.T) {
	ctx := context.Background()
	providers := map[string]*fakeProvider{
		"a": {name: "a", available: false},
		"b": {name: "b", available: true},
		"c": {name: "c", available: true},
	}

	tests := []struct {
		name    string
		sel     Selector[*fakeProvider]
		want    string
		wantErr bool
	}{
		{"priority skips unavailable", &PrioritySelector[*fakeProvider]{Priority: []string{"a", "c", "b"}}, "c", false},
		{"priority none available", &PrioritySelector[*fakeProvider]{Priority: []string{"a"}}, "", true},
		{"health check by name", &HealthCheckSelector[*fakeProvider]{}, "b", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := tt.sel.Select(ctx, providers)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Select: %v", err)
			}
			if p.Name() != tt.want {
				t.Errorf("selected %q, want %q", p.Name(), tt.want)
			}
		})
	}
}

func TestManager_DefaultAndSelection(t *testing.T) {
	ctx := context.Background()
	m := NewManager[*fakeProvider](NewRegistry[*fakeProvider](), nil, logger.NewNop())
	m.Register("down", factoryFor("down", false))
	m.Register("up", factoryFor("up", true))

	if err := m.Initialize("down", nil); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if err := m.Initialize("up", nil); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if err := m.Initialize("nope", nil); err == nil {
		t.Error("expected error initializing unregistered provider")
	}

	p, err := m.Get(ctx)
	if err != nil || p.Name() != "up" {
		t.Fatalf("Get = %v, %v; want up", p, err)
	}

	if err := m.SetDefault("down"); err != nil {
		t.Fatalf("SetDefault: %v", err)
	}
	p, err = m.Get(ctx)
	if err != nil || p.Name() != "down" {
		t.Fatalf("Get with default = %v, %v; want down", p, err)
	}

	if err := m.SetDefault("nope"); err == nil {
		t.Error("expected SetDefault error for unknown provider")
	}
	if got := len(m.Available()); got != 2 {
		t.Errorf("Available = %d", got)
	}
}
