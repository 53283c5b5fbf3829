// Package memory is an in-process storage backend for tests and dry runs.
package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/kbukum/scribe/logger"
	"github.com/kbukum/scribe/storage"
)

func init() {
	storage.RegisterFactory(storage.ProviderMemory, func(storage.Config, any, *logger.Logger) (storage.Storage, error) {
		return New(), nil
	})
}

type object struct {
	data    []byte
	meta    storage.Metadata
	modTime time.Time
}

// Storage keeps objects in a map.
type Storage struct {
	mu       sync.RWMutex
	objects  map[string]*object
	writeErr error
	openErr  error
}

var _ storage.Storage = (*Storage)(nil)

func New() *Storage {
	return &Storage{objects: make(map[string]*object)}
}

// FailWrites makes every subsequent ObjectWriter.Write return err. Passing
// nil restores normal behavior.
func (s *Storage) FailWrites(err error) {
	s.mu.Lock()
	s.writeErr = err
	s.mu.Unlock()
}

// FailCreate makes Create return err.
func (s *Storage) FailCreate(err error) {
	s.mu.Lock()
	s.openErr = err
	s.mu.Unlock()
}

// Bytes returns a copy of the object at path.
func (s *Storage) Bytes(path string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[path]
	if !ok {
		return nil, false
	}
	return bytes.Clone(obj.data), true
}

// Len is the number of stored objects.
func (s *Storage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}

func (s *Storage) Create(_ context.Context, path string, meta storage.Metadata) (storage.ObjectWriter, error) {
	s.mu.RLock()
	err := s.openErr
	s.mu.RUnlock()
	if err != nil {
		return nil, err
	}
	return &writer{store: s, path: path, meta: meta}, nil
}

func (s *Storage) Upload(ctx context.Context, path string, reader io.Reader, meta storage.Metadata) error {
	w, err := s.Create(ctx, path, meta)
	if err != nil {
		return err
	}
	if _, err := io.Copy(w, reader); err != nil {
		_ = w.Abort()
		return err
	}
	return w.Close()
}

func (s *Storage) Download(_ context.Context, path string) (io.ReadCloser, error) {
	data, ok := s.Bytes(path)
	if !ok {
		return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, path)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *Storage) Stat(_ context.Context, path string) (*storage.FileInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[path]
	if !ok {
		return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, path)
	}
	fi := info(path, obj)
	return &fi, nil
}

func (s *Storage) Delete(_ context.Context, path string) error {
	s.mu.Lock()
	delete(s.objects, path)
	s.mu.Unlock()
	return nil
}

func (s *Storage) Exists(_ context.Context, path string) (bool, error) {
	s.mu.RLock()
	_, ok := s.objects[path]
	s.mu.RUnlock()
	return ok, nil
}

func (s *Storage) URL(_ context.Context, path string) (string, error) {
	return "memory://" + strings.TrimPrefix(path, "/"), nil
}

func (s *Storage) List(_ context.Context, prefix string) ([]storage.FileInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	files := []storage.FileInfo{}
	for path, obj := range s.objects {
		if strings.HasPrefix(path, prefix) {
			files = append(files, info(path, obj))
		}
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

func info(path string, obj *object) storage.FileInfo {
	return storage.FileInfo{
		Path:         path,
		Size:         int64(len(obj.data)),
		LastModified: obj.modTime,
		ContentType:  obj.meta["content_type"],
		Metadata:     obj.meta,
	}
}

type writer struct {
	store *Storage
	path  string
	meta  storage.Metadata
	buf   bytes.Buffer
	done  bool
}

func (w *writer) Write(p []byte) (int, error) {
	if w.done {
		return 0, fmt.Errorf("memory: write to finished object %s", w.path)
	}
	w.store.mu.RLock()
	err := w.store.writeErr
	w.store.mu.RUnlock()
	if err != nil {
		return 0, err
	}
	return w.buf.Write(p)
}

func (w *writer) Close() error {
	if w.done {
		return fmt.Errorf("memory: object %s already finished", w.path)
	}
	w.done = true
	w.store.mu.Lock()
	w.store.objects[w.path] = &object{data: w.buf.Bytes(), meta: w.meta, modTime: time.Now()}
	w.store.mu.Unlock()
	return nil
}

func (w *writer) Abort() error {
	w.done = true
	w.buf.Reset()
	return nil
}
