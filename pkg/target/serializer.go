package target

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
)

// Serializer converts values to and from the bytes of a FileSystemTarget.
// Implementations are stateless.
type Serializer interface {
	Dump(ctx context.Context, v any, dst FileSystemTarget) error
	Load(ctx context.Context, src FileSystemTarget, typ reflect.Type) (any, error)
	// Extension is the default file extension without a dot, or "".
	Extension() string
}

// Candidate inspects a type and either returns a Serializer for it or a
// *RejectedError. Any other error aborts selection.
type Candidate func(typ reflect.Type) (Serializer, error)

// Serializers selects a serializer for a type by walking an ordered candidate
// chain. Selection results are cached per type.
type Serializers struct {
	explicit   map[reflect.Type]Serializer
	candidates []Candidate
	cache      sync.Map // reflect.Type -> Serializer
}

// SerializersOption configures a Serializers chain.
type SerializersOption func(*Serializers)

// WithExplicit pins the serializer for typ. Explicit entries take precedence
// over every candidate.
func WithExplicit(typ reflect.Type, s Serializer) SerializersOption {
	return func(c *Serializers) {
		c.explicit[typ] = s
	}
}

// WithCandidates replaces the default candidate chain.
func WithCandidates(candidates ...Candidate) SerializersOption {
	return func(c *Serializers) {
		c.candidates = candidates
	}
}

// NewSerializers builds a chain: explicit entries, then the candidates (by
// default DefaultCandidates).
func NewSerializers(opts ...SerializersOption) *Serializers {
	s := &Serializers{
		explicit:   make(map[reflect.Type]Serializer),
		candidates: DefaultCandidates(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DefaultCandidates returns the built-in chain in precedence order:
// self-serializing types, Table (csv), string kinds (txt), JSON-representable
// types (json), and msgpack as the catch-all.
func DefaultCandidates() []Candidate {
	return []Candidate{
		SelfSerializingCandidate,
		TableCandidate,
		PlainTextCandidate,
		JSONCandidate,
		MsgpackCandidate,
	}
}

// Get returns the serializer for typ.
func (s *Serializers) Get(typ reflect.Type) (Serializer, error) {
	if cached, ok := s.cache.Load(typ); ok {
		return cached.(Serializer), nil
	}

	ser, err := s.selectSerializer(typ)
	if err != nil {
		return nil, err
	}

	actual, _ := s.cache.LoadOrStore(typ, ser)
	return actual.(Serializer), nil
}

func (s *Serializers) selectSerializer(typ reflect.Type) (Serializer, error) {
	if ser, ok := s.explicit[typ]; ok {
		return ser, nil
	}

	var rejected []error
	for _, candidate := range s.candidates {
		ser, err := candidate(typ)
		if err == nil {
			return ser, nil
		}
		var rej *RejectedError
		if errors.As(err, &rej) {
			rejected = append(rejected, err)
			continue
		}
		return nil, fmt.Errorf("failed to select serializer for %v: %w", typ, err)
	}

	return nil, &NoSerializerError{Type: typ, Rejected: rejected}
}

// SerializerFor returns the serializer for T.
func SerializerFor[T any](s *Serializers) (Serializer, error) {
	return s.Get(reflect.TypeFor[T]())
}
