package backends

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/kbukum/scribe/component"
	"github.com/kbukum/scribe/logger"
	"github.com/kbukum/scribe/storage"
	"github.com/kbukum/scribe/storage/local"
	"github.com/kbukum/scribe/storage/s3"
)

func TestConfig_Backend(t *testing.T) {
	var cfg Config
	cfg.Provider = storage.ProviderLocal
	if _, ok := cfg.Backend().(*local.Config); !ok {
		t.Errorf("local backend = %T", cfg.Backend())
	}
	cfg.Provider = storage.ProviderS3
	if _, ok := cfg.Backend().(*s3.Config); !ok {
		t.Errorf("s3 backend = %T", cfg.Backend())
	}
	cfg.Provider = storage.ProviderMemory
	if b := cfg.Backend(); b != nil {
		t.Errorf("memory backend = %T, want nil", b)
	}
}

func TestNewComponent_Local(t *testing.T) {
	cfg := &Config{Local: local.Config{BasePath: t.TempDir()}}
	cfg.ApplyDefaults()

	c := NewComponent(cfg, logger.NewNop())
	ctx := context.Background()
	if err := c.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer c.Stop(ctx)

	if h := c.Health(ctx); h.Status != component.StatusHealthy {
		t.Errorf("health = %+v", h)
	}
	if err := c.Storage().Upload(ctx, "/recordings/a.wav", strings.NewReader("RIFF"), nil); err != nil {
		t.Fatalf("Upload: %v", err)
	}
	rc, err := c.Storage().Download(ctx, "/recordings/a.wav")
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	defer rc.Close()
	if b, _ := io.ReadAll(rc); string(b) != "RIFF" {
		t.Errorf("content = %q", b)
	}
}

func TestNewComponent_Memory(t *testing.T) {
	cfg := &Config{}
	cfg.Provider = storage.ProviderMemory

	c := NewComponent(cfg, logger.NewNop())
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if c.Describe().Details != "provider=memory" {
		t.Errorf("describe = %+v", c.Describe())
	}
}
