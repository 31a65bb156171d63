package target

import (
	"context"
	"sync"
	"sync/atomic"
)

type factoryKey struct{}

type serializersKey struct{}

var (
	defaultFactory     atomic.Pointer[Factory]
	defaultSerializers atomic.Pointer[Serializers]

	builtinFactory     = sync.OnceValue(func() *Factory { return NewFactory() })
	builtinSerializers = sync.OnceValue(func() *Serializers { return NewSerializers() })
)

// DefaultFactory returns the process-wide factory.
func DefaultFactory() *Factory {
	if f := defaultFactory.Load(); f != nil {
		return f
	}
	return builtinFactory()
}

// SetDefaultFactory replaces the process-wide factory and returns a func that
// restores the previous one. Use it with defer.
func SetDefaultFactory(f *Factory) (restore func()) {
	prev := defaultFactory.Swap(f)
	return func() { defaultFactory.Store(prev) }
}

// WithFactory returns a context whose targets resolve through f.
func WithFactory(ctx context.Context, f *Factory) context.Context {
	return context.WithValue(ctx, factoryKey{}, f)
}

// FactoryFrom returns the factory carried by ctx, or the process-wide default.
func FactoryFrom(ctx context.Context) *Factory {
	if f, ok := ctx.Value(factoryKey{}).(*Factory); ok && f != nil {
		return f
	}
	return DefaultFactory()
}

// DefaultSerializers returns the process-wide serializer chain.
func DefaultSerializers() *Serializers {
	if s := defaultSerializers.Load(); s != nil {
		return s
	}
	return builtinSerializers()
}

// SetDefaultSerializers replaces the process-wide serializer chain and returns
// a func that restores the previous one.
func SetDefaultSerializers(s *Serializers) (restore func()) {
	prev := defaultSerializers.Swap(s)
	return func() { defaultSerializers.Store(prev) }
}

// WithSerializers returns a context whose outputs pick serializers from s.
func WithSerializers(ctx context.Context, s *Serializers) context.Context {
	return context.WithValue(ctx, serializersKey{}, s)
}

// SerializersFrom returns the serializer chain carried by ctx, or the
// process-wide default.
func SerializersFrom(ctx context.Context) *Serializers {
	if s, ok := ctx.Value(serializersKey{}).(*Serializers); ok && s != nil {
		return s
	}
	return DefaultSerializers()
}
