package target

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/dyluth/stardag/pkg/redisstore"
)

// RedisPrefix is the URI prefix conventionally routed to Redis targets.
const RedisPrefix = "redis://"

// RedisTarget stores its bytes as a single Redis value.
type RedisTarget struct {
	client *redisstore.Client
	path   string
}

// NewRedisTarget returns a target stored under path in client's instance namespace.
func NewRedisTarget(client *redisstore.Client, path string) *RedisTarget {
	return &RedisTarget{client: client, path: path}
}

// RedisRule returns a prefix rule routing URIs starting with prefix to client.
func RedisRule(client *redisstore.Client, prefix string) PrefixRule {
	return PrefixRule{
		Prefix: prefix,
		New: func(path string) FileSystemTarget {
			return NewRedisTarget(client, path)
		},
	}
}

func (t *RedisTarget) Path() string {
	return t.path
}

func (t *RedisTarget) Exists(ctx context.Context) (bool, error) {
	return t.client.ObjectExists(ctx, t.path)
}

func (t *RedisTarget) OpenRead(ctx context.Context) (io.ReadCloser, error) {
	data, err := t.client.GetObject(ctx, t.path)
	if err != nil {
		if redisstore.IsNotFound(err) {
			return nil, &MissingError{Path: t.path, Err: err}
		}
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// OpenWrite buffers writes and stores them with one SET on Commit.
func (t *RedisTarget) OpenWrite(ctx context.Context) (Writer, error) {
	return &redisWriter{ctx: ctx, target: t}, nil
}

type redisWriter struct {
	ctx    context.Context
	target *RedisTarget
	buf    bytes.Buffer
	closed bool
}

func (w *redisWriter) Write(p []byte) (int, error) {
	if w.closed {
		return 0, fmt.Errorf("write to closed target %s", w.target.path)
	}
	return w.buf.Write(p)
}

func (w *redisWriter) Commit() error {
	if w.closed {
		return fmt.Errorf("target %s is already closed", w.target.path)
	}
	w.closed = true
	return w.target.client.PutObject(w.ctx, w.target.path, w.buf.Bytes())
}

func (w *redisWriter) Close() error {
	w.closed = true
	w.buf.Reset()
	return nil
}
