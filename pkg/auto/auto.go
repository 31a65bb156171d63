// Package auto gives tasks a content-addressed output location. A task that
// stores a T implements Output with
//
//	func (s *Sum) Output(ctx context.Context) (target.Target, error) {
//		return auto.Output[int](ctx, s)
//	}
//
// and its result lands at
//
//	[base/][namespace/][family/][v{version}/][extra/]{id[0:2]}/{id[2:4]}/{id}[/filename][.ext]
//
// under the "default" target root, with dots in the namespace turned into
// slashes and the extension taken from the serializer picked for T.
package auto

import (
	"context"
	"fmt"
	"strings"

	"github.com/dyluth/stardag/pkg/target"
	"github.com/dyluth/stardag/pkg/task"
)

// RelpathBaser prefixes the relative path.
type RelpathBaser interface {
	RelpathBase() string
}

// RelpathExtraer inserts a segment between the version and the id.
type RelpathExtraer interface {
	RelpathExtra() string
}

// RelpathFilenamer appends a file name below the id directory.
type RelpathFilenamer interface {
	RelpathFilename() string
}

// RootKeyer selects a target root other than "default".
type RootKeyer interface {
	TargetRootKey() string
}

// Option customizes Output.
type Option func(*options)

type options struct {
	serializer target.Serializer
	rootKey    string
}

// WithSerializer pins the serializer instead of picking one for T.
func WithSerializer(s target.Serializer) Option {
	return func(o *options) { o.serializer = s }
}

// WithRootKey stores the output under another target root.
func WithRootKey(key string) Option {
	return func(o *options) { o.rootKey = key }
}

// Output returns the serializable target of t. The task registry is taken
// from ctx; factory and serializers come from ctx or the process defaults.
func Output[T any](ctx context.Context, t task.Task, opts ...Option) (*target.Serializable[T], error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	ser := o.serializer
	if ser == nil {
		var err error
		ser, err = target.SerializerFor[T](target.SerializersFrom(ctx))
		if err != nil {
			return nil, err
		}
	}

	relpath, err := Relpath(ctx, t, ser.Extension())
	if err != nil {
		return nil, err
	}

	rootKey := o.rootKey
	if rootKey == "" {
		if rk, ok := t.(RootKeyer); ok {
			rootKey = rk.TargetRootKey()
		}
	}
	if rootKey == "" {
		rootKey = target.DefaultRootKey
	}

	fst, err := target.FactoryFrom(ctx).Get(relpath, rootKey)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve output of %T: %w", t, err)
	}
	return target.NewSerializable[T](fst, ser), nil
}

// Relpath returns the relative output path of t, ending in ".ext" when ext is
// not empty.
func Relpath(ctx context.Context, t task.Task, ext string) (string, error) {
	reg, err := task.RegistryFrom(ctx)
	if err != nil {
		return "", err
	}
	kind, err := reg.KindOf(t)
	if err != nil {
		return "", err
	}
	id, err := reg.ID(t)
	if err != nil {
		return "", err
	}

	var base, extra, filename, version string
	if b, ok := t.(RelpathBaser); ok {
		base = b.RelpathBase()
	}
	if e, ok := t.(RelpathExtraer); ok {
		extra = e.RelpathExtra()
	}
	if f, ok := t.(RelpathFilenamer); ok {
		filename = f.RelpathFilename()
	}
	if v := task.Version(t); v != "" {
		version = "v" + v
	}

	parts := []string{
		base,
		strings.ReplaceAll(kind.Namespace, ".", "/"),
		kind.Family,
		version,
		extra,
		id[:2],
		id[2:4],
		id,
		filename,
	}
	segments := parts[:0]
	for _, p := range parts {
		if p != "" {
			segments = append(segments, p)
		}
	}

	relpath := strings.Join(segments, "/")
	if ext = strings.TrimLeft(ext, "."); ext != "" {
		relpath += "." + ext
	}
	return relpath, nil
}
