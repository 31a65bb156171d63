package task

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Set is an unordered collection of tasks used as a parameter. Its identity
// is the sorted list of distinct member ids, so construction order does not
// matter.
type Set[T Task] []T

// NewSet returns a set holding tasks.
func NewSet[T Task](tasks ...T) Set[T] {
	s := make(Set[T], len(tasks))
	copy(s, tasks)
	return s
}

// Tasks returns the members as plain tasks, e.g. for Many(s.Tasks()...).
func (s Set[T]) Tasks() []Task {
	out := make([]Task, len(s))
	for i, t := range s {
		out[i] = t
	}
	return out
}

// taskCollection is implemented by task collections with their own identity
// and encoding rules.
type taskCollection interface {
	hashIDs(r *Registry) (any, error)
	encodeRefs(r *Registry) (any, error)
}

// collectionDecoder is implemented by pointers to task collections.
type collectionDecoder interface {
	decodeRefs(r *Registry, raws []json.RawMessage) error
}

type idTask[T Task] struct {
	id   string
	task T
}

// sorted returns the distinct members ordered by id.
func (s Set[T]) sorted(r *Registry) ([]idTask[T], error) {
	seen := make(map[string]bool, len(s))
	out := make([]idTask[T], 0, len(s))
	for _, t := range s {
		id, err := r.ID(t)
		if err != nil {
			return nil, err
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, idTask[T]{id: id, task: t})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out, nil
}

func (s Set[T]) hashIDs(r *Registry) (any, error) {
	members, err := s.sorted(r)
	if err != nil {
		return nil, err
	}
	ids := make([]any, len(members))
	for i, m := range members {
		ids[i] = m.id
	}
	return ids, nil
}

func (s Set[T]) encodeRefs(r *Registry) (any, error) {
	members, err := s.sorted(r)
	if err != nil {
		return nil, err
	}
	refs := make([]any, len(members))
	for i, m := range members {
		ref, err := r.Encode(m.task)
		if err != nil {
			return nil, err
		}
		refs[i] = ref
	}
	return refs, nil
}

func (s *Set[T]) decodeRefs(r *Registry, raws []json.RawMessage) error {
	out := make(Set[T], 0, len(raws))
	for i, raw := range raws {
		t, err := r.decodeRef(raw)
		if err != nil {
			return fmt.Errorf("item %d: %w", i, err)
		}
		typed, ok := t.(T)
		if !ok {
			var zero T
			return fmt.Errorf("item %d: %T is not a %T", i, t, zero)
		}
		out = append(out, typed)
	}
	*s = out
	return nil
}
