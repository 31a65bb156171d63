package target

import (
	"context"
	"fmt"
	"io"
	"reflect"
)

// Serializable wraps a FileSystemTarget with a Serializer, giving typed
// Load and Save.
type Serializable[T any] struct {
	wrapped    FileSystemTarget
	serializer Serializer
}

// NewSerializable returns a typed view of wrapped.
func NewSerializable[T any](wrapped FileSystemTarget, serializer Serializer) *Serializable[T] {
	return &Serializable[T]{wrapped: wrapped, serializer: serializer}
}

// Wrapped returns the underlying file-system target.
func (s *Serializable[T]) Wrapped() FileSystemTarget {
	return s.wrapped
}

// Serializer returns the serializer in use.
func (s *Serializable[T]) Serializer() Serializer {
	return s.serializer
}

func (s *Serializable[T]) Path() string {
	return s.wrapped.Path()
}

func (s *Serializable[T]) Exists(ctx context.Context) (bool, error) {
	return s.wrapped.Exists(ctx)
}

func (s *Serializable[T]) OpenRead(ctx context.Context) (io.ReadCloser, error) {
	return s.wrapped.OpenRead(ctx)
}

func (s *Serializable[T]) OpenWrite(ctx context.Context) (Writer, error) {
	return s.wrapped.OpenWrite(ctx)
}

func (s *Serializable[T]) Load(ctx context.Context) (T, error) {
	var zero T
	v, err := s.serializer.Load(ctx, s.wrapped, reflect.TypeFor[T]())
	if err != nil {
		return zero, err
	}
	typed, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("serializer returned %T for %s, want %T", v, s.wrapped.Path(), zero)
	}
	return typed, nil
}

func (s *Serializable[T]) Save(ctx context.Context, v T) error {
	if err := s.serializer.Dump(ctx, v, s.wrapped); err != nil {
		return fmt.Errorf("failed to save %s: %w", s.wrapped.Path(), err)
	}
	return nil
}
