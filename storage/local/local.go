// Package local stores objects as files under a base directory. Metadata is
// kept in a JSON sidecar next to each object.
package local

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kbukum/scribe/logger"
	"github.com/kbukum/scribe/storage"
)

const (
	metaSuffix    = ".meta.json"
	partialSuffix = ".partial"
)

func init() {
	storage.RegisterFactory(storage.ProviderLocal, func(_ storage.Config, providerCfg any, _ *logger.Logger) (storage.Storage, error) {
		c := &Config{}
		if providerCfg != nil {
			pc, ok := providerCfg.(*Config)
			if !ok {
				return nil, fmt.Errorf("local: expected *local.Config, got %T", providerCfg)
			}
			c = pc
		}
		c.ApplyDefaults()
		if err := c.Validate(); err != nil {
			return nil, err
		}
		return NewStorage(c.BasePath)
	})
}

// Storage implements storage.Storage on the filesystem.
type Storage struct {
	basePath string
}

var _ storage.Storage = (*Storage)(nil)

// NewStorage creates basePath if needed.
func NewStorage(basePath string) (*Storage, error) {
	abs, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve base path: %w", err)
	}
	if err := os.MkdirAll(abs, 0o750); err != nil {
		return nil, fmt.Errorf("storage: create base directory: %w", err)
	}
	return &Storage{basePath: abs}, nil
}

func (s *Storage) fullPath(path string) string {
	return filepath.Join(s.basePath, filepath.Clean("/"+path))
}

// Create writes into a temporary file in the target directory; Close renames
// it into place.
func (s *Storage) Create(_ context.Context, path string, meta storage.Metadata) (storage.ObjectWriter, error) {
	full := s.fullPath(path)
	if err := os.MkdirAll(filepath.Dir(full), 0o750); err != nil {
		return nil, fmt.Errorf("storage: create directory: %w", err)
	}
	f, err := os.CreateTemp(filepath.Dir(full), filepath.Base(full)+".*"+partialSuffix)
	if err != nil {
		return nil, fmt.Errorf("storage: create file: %w", err)
	}
	return &fileWriter{f: f, target: full, meta: meta}, nil
}

func (s *Storage) Upload(ctx context.Context, path string, reader io.Reader, meta storage.Metadata) error {
	w, err := s.Create(ctx, path, meta)
	if err != nil {
		return err
	}
	if _, err := io.Copy(w, reader); err != nil {
		_ = w.Abort()
		return fmt.Errorf("storage: write file: %w", err)
	}
	return w.Close()
}

func (s *Storage) Download(_ context.Context, path string) (io.ReadCloser, error) {
	f, err := os.Open(s.fullPath(path))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, path)
		}
		return nil, fmt.Errorf("storage: open file: %w", err)
	}
	return f, nil
}

func (s *Storage) Stat(_ context.Context, path string) (*storage.FileInfo, error) {
	full := s.fullPath(path)
	st, err := os.Stat(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, path)
		}
		return nil, fmt.Errorf("storage: stat file: %w", err)
	}
	fi := s.info(path, full, st)
	return &fi, nil
}

// Delete removes the object and its metadata sidecar.
func (s *Storage) Delete(_ context.Context, path string) error {
	full := s.fullPath(path)
	for _, p := range []string{full, full + metaSuffix} {
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("storage: delete file: %w", err)
		}
	}
	return nil
}

func (s *Storage) Exists(_ context.Context, path string) (bool, error) {
	_, err := os.Stat(s.fullPath(path))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("storage: stat file: %w", err)
	}
	return true, nil
}

// URL returns a file:// URL.
func (s *Storage) URL(_ context.Context, path string) (string, error) {
	u := &url.URL{Scheme: "file", Path: s.fullPath(path)}
	return u.String(), nil
}

// List walks the base directory. Returned paths are slash-separated and
// rooted at "/", matching the keys objects were created with.
func (s *Storage) List(_ context.Context, prefix string) ([]storage.FileInfo, error) {
	files := []storage.FileInfo{}
	err := filepath.WalkDir(s.basePath, func(full string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.HasSuffix(full, metaSuffix) || strings.HasSuffix(full, partialSuffix) {
			return nil
		}
		rel, err := filepath.Rel(s.basePath, full)
		if err != nil {
			return err
		}
		key := "/" + filepath.ToSlash(rel)
		if !strings.HasPrefix(key, prefix) && !strings.HasPrefix(strings.TrimPrefix(key, "/"), prefix) {
			return nil
		}
		st, err := d.Info()
		if err != nil {
			return err
		}
		files = append(files, s.info(key, full, st))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("storage: list files: %w", err)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

func (s *Storage) info(path, full string, st fs.FileInfo) storage.FileInfo {
	meta := readMeta(full)
	ct := meta["content_type"]
	if ct == "" {
		ct = mime.TypeByExtension(filepath.Ext(full))
	}
	if ct == "" {
		ct = "application/octet-stream"
	}
	return storage.FileInfo{
		Path:         path,
		Size:         st.Size(),
		LastModified: st.ModTime(),
		ContentType:  ct,
		Metadata:     meta,
	}
}

func readMeta(full string) storage.Metadata {
	data, err := os.ReadFile(full + metaSuffix)
	if err != nil {
		return nil
	}
	var meta storage.Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil
	}
	return meta
}

type fileWriter struct {
	f      *os.File
	target string
	meta   storage.Metadata
	done   bool
}

func (w *fileWriter) Write(p []byte) (int, error) {
	if w.done {
		return 0, fmt.Errorf("storage: write to finished object %s", w.target)
	}
	return w.f.Write(p)
}

func (w *fileWriter) Close() error {
	if w.done {
		return fmt.Errorf("storage: object %s already finished", w.target)
	}
	w.done = true

	if err := w.f.Sync(); err != nil {
		w.discard()
		return fmt.Errorf("storage: sync file: %w", err)
	}
	if err := w.f.Close(); err != nil {
		_ = os.Remove(w.f.Name())
		return fmt.Errorf("storage: close file: %w", err)
	}
	if len(w.meta) > 0 {
		data, err := json.Marshal(w.meta)
		if err != nil {
			_ = os.Remove(w.f.Name())
			return fmt.Errorf("storage: encode metadata: %w", err)
		}
		if err := os.WriteFile(w.target+metaSuffix, data, 0o640); err != nil {
			_ = os.Remove(w.f.Name())
			return fmt.Errorf("storage: write metadata: %w", err)
		}
	}
	if err := os.Rename(w.f.Name(), w.target); err != nil {
		_ = os.Remove(w.f.Name())
		return fmt.Errorf("storage: publish file: %w", err)
	}
	return nil
}

func (w *fileWriter) Abort() error {
	if w.done {
		return nil
	}
	w.done = true
	w.discard()
	return nil
}

func (w *fileWriter) discard() {
	_ = w.f.Close()
	_ = os.Remove(w.f.Name())
}
