// Package target provides addressable task outputs: existence checks, typed
// load and save through pluggable serializers, and the factory that maps a
// task's relative path onto a configured storage root.
package target

import (
	"context"
	"io"
)

// Target is an addressable resource that may or may not exist yet.
type Target interface {
	Exists(ctx context.Context) (bool, error)
}

// Loadable is a Target whose content can be loaded as a T.
type Loadable[T any] interface {
	Target
	Load(ctx context.Context) (T, error)
}

// Saveable is a Target that can persist a T.
type Saveable[T any] interface {
	Target
	Save(ctx context.Context, v T) error
}

// LoadSaver combines Loadable and Saveable.
type LoadSaver[T any] interface {
	Loadable[T]
	Saveable[T]
}

// FileSystemTarget is a byte-addressable target identified by a path or URI.
type FileSystemTarget interface {
	Target
	Path() string
	OpenRead(ctx context.Context) (io.ReadCloser, error)
	OpenWrite(ctx context.Context) (Writer, error)
}

// Writer is a pending write to a FileSystemTarget. Nothing is visible
// (Exists == true) until Commit returns without error. Close releases the
// writer and discards uncommitted content, so the usual pattern is
//
//	w, err := tgt.OpenWrite(ctx)
//	if err != nil {
//		return err
//	}
//	defer w.Close()
//	if err := produce(w); err != nil {
//		return err
//	}
//	return w.Commit()
type Writer interface {
	io.Writer
	Commit() error
	Close() error
}

// ReadAll reads the complete content of a file-system target.
func ReadAll(ctx context.Context, t FileSystemTarget) ([]byte, error) {
	r, err := t.OpenRead(ctx)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

// WriteAll replaces the content of a file-system target.
func WriteAll(ctx context.Context, t FileSystemTarget, data []byte) error {
	return WriteWith(ctx, t, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
}

// WriteWith streams the output of produce into t. The content is committed
// only if produce succeeds; otherwise t is left as it was.
func WriteWith(ctx context.Context, t FileSystemTarget, produce func(io.Writer) error) error {
	w, err := t.OpenWrite(ctx)
	if err != nil {
		return err
	}
	defer w.Close()

	if err := produce(w); err != nil {
		return err
	}
	return w.Commit()
}
