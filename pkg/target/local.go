package target

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// LocalTarget is a file on the local file system.
type LocalTarget struct {
	path string
}

// NewLocalTarget returns a target for the file at path.
func NewLocalTarget(path string) *LocalTarget {
	return &LocalTarget{path: path}
}

func (t *LocalTarget) Path() string {
	return t.path
}

func (t *LocalTarget) Exists(ctx context.Context) (bool, error) {
	_, err := os.Stat(t.path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("failed to stat %s: %w", t.path, err)
}

func (t *LocalTarget) OpenRead(ctx context.Context) (io.ReadCloser, error) {
	f, err := os.Open(t.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &MissingError{Path: t.path, Err: err}
		}
		return nil, fmt.Errorf("failed to open %s: %w", t.path, err)
	}
	return f, nil
}

// OpenWrite writes to a temporary file next to the final path. Commit renames
// it into place, so readers never see a partially written file.
func (t *LocalTarget) OpenWrite(ctx context.Context) (Writer, error) {
	dir := filepath.Dir(t.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(t.path)+".tmp-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temporary file: %w", err)
	}

	return &atomicFile{tmp: tmp, path: t.path}, nil
}

// outputMode is the permission of committed files. CreateTemp uses 0600.
const outputMode fs.FileMode = 0o644

type atomicFile struct {
	tmp    *os.File
	path   string
	failed bool
	done   bool
}

func (a *atomicFile) Write(p []byte) (int, error) {
	if a.done {
		return 0, fmt.Errorf("write to closed target %s", a.path)
	}
	n, err := a.tmp.Write(p)
	if err != nil {
		a.failed = true
	}
	return n, err
}

func (a *atomicFile) Commit() error {
	if a.done {
		return fmt.Errorf("target %s is already closed", a.path)
	}
	if a.failed {
		a.Close()
		return fmt.Errorf("write to %s failed; output discarded", a.path)
	}
	a.done = true

	name := a.tmp.Name()
	if err := a.tmp.Chmod(outputMode); err != nil {
		a.tmp.Close()
		os.Remove(name)
		return fmt.Errorf("failed to set permissions on %s: %w", a.path, err)
	}
	if err := a.tmp.Close(); err != nil {
		os.Remove(name)
		return fmt.Errorf("failed to close temporary file: %w", err)
	}
	if err := os.Rename(name, a.path); err != nil {
		os.Remove(name)
		return fmt.Errorf("failed to move output into place: %w", err)
	}
	return nil
}

// Close discards the temporary file unless Commit already moved it.
func (a *atomicFile) Close() error {
	if a.done {
		return nil
	}
	a.done = true
	a.tmp.Close()
	if err := os.Remove(a.tmp.Name()); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove temporary file: %w", err)
	}
	return nil
}
