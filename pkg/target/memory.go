package target

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
)

// MemoryPrefix is the URI prefix conventionally used for in-memory targets.
const MemoryPrefix = "memory://"

// MemoryStore keeps target content in process memory. It is meant for tests
// and single-process pipelines; content is lost when the process exits.
type MemoryStore struct {
	mu      sync.RWMutex
	files   map[string][]byte
	objects map[string]any
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		files:   make(map[string][]byte),
		objects: make(map[string]any),
	}
}

// Paths returns the paths of all stored files, sorted.
func (s *MemoryStore) Paths() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	paths := make([]string, 0, len(s.files))
	for p := range s.files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Get returns a copy of the bytes stored at path.
func (s *MemoryStore) Get(path string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.files[path]
	if !ok {
		return nil, false
	}
	return bytes.Clone(data), true
}

func (s *MemoryStore) put(path string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[path] = data
}

// Target returns a file-system target stored under path.
func (s *MemoryStore) Target(path string) *MemoryTarget {
	return &MemoryTarget{store: s, path: path}
}

// Rule returns a prefix rule routing URIs starting with prefix to this store.
func (s *MemoryStore) Rule(prefix string) PrefixRule {
	return PrefixRule{
		Prefix: prefix,
		New: func(path string) FileSystemTarget {
			return s.Target(path)
		},
	}
}

// MemoryTarget is a FileSystemTarget backed by a MemoryStore.
type MemoryTarget struct {
	store *MemoryStore
	path  string
}

func (t *MemoryTarget) Path() string {
	return t.path
}

func (t *MemoryTarget) Exists(ctx context.Context) (bool, error) {
	_, ok := t.store.Get(t.path)
	return ok, nil
}

func (t *MemoryTarget) OpenRead(ctx context.Context) (io.ReadCloser, error) {
	data, ok := t.store.Get(t.path)
	if !ok {
		return nil, &MissingError{Path: t.path}
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// OpenWrite buffers writes; the content is stored on Commit.
func (t *MemoryTarget) OpenWrite(ctx context.Context) (Writer, error) {
	return &memoryWriter{target: t}, nil
}

type memoryWriter struct {
	target *MemoryTarget
	buf    bytes.Buffer
	closed bool
}

func (w *memoryWriter) Write(p []byte) (int, error) {
	if w.closed {
		return 0, fmt.Errorf("write to closed target %s", w.target.path)
	}
	return w.buf.Write(p)
}

func (w *memoryWriter) Commit() error {
	if w.closed {
		return fmt.Errorf("target %s is already closed", w.target.path)
	}
	w.closed = true
	w.target.store.put(w.target.path, bytes.Clone(w.buf.Bytes()))
	return nil
}

func (w *memoryWriter) Close() error {
	w.closed = true
	w.buf.Reset()
	return nil
}

// MemoryObject is a typed target holding a Go value directly, without
// serialization.
type MemoryObject[T any] struct {
	store *MemoryStore
	key   string
}

// NewMemoryObject returns an object target stored under key.
func NewMemoryObject[T any](store *MemoryStore, key string) *MemoryObject[T] {
	return &MemoryObject[T]{store: store, key: key}
}

func (o *MemoryObject[T]) Exists(ctx context.Context) (bool, error) {
	o.store.mu.RLock()
	defer o.store.mu.RUnlock()
	_, ok := o.store.objects[o.key]
	return ok, nil
}

func (o *MemoryObject[T]) Load(ctx context.Context) (T, error) {
	var zero T

	o.store.mu.RLock()
	v, ok := o.store.objects[o.key]
	o.store.mu.RUnlock()

	if !ok {
		return zero, &MissingError{Path: o.key}
	}
	typed, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("object %s holds %T, not %T", o.key, v, zero)
	}
	return typed, nil
}

func (o *MemoryObject[T]) Save(ctx context.Context, v T) error {
	o.store.mu.Lock()
	defer o.store.mu.Unlock()
	o.store.objects[o.key] = v
	return nil
}
