package task

import "sort"

// Shape identifies which variant a Deps value holds.
type Shape int

const (
	ShapeNone Shape = iota
	ShapeOne
	ShapeMany
	ShapeKeyed
	ShapeKeyedMany
)

// Deps is the dependency declaration returned by Requires: nothing, one task,
// an ordered list, a keyed map, or a keyed map of lists.
type Deps struct {
	shape     Shape
	one       Task
	many      []Task
	keyed     map[string]Task
	keyedMany map[string][]Task
}

// NoDeps declares no dependencies.
func NoDeps() Deps {
	return Deps{}
}

// One declares a single dependency.
func One(t Task) Deps {
	return Deps{shape: ShapeOne, one: t}
}

// Many declares an ordered list of dependencies.
func Many(tasks ...Task) Deps {
	return Deps{shape: ShapeMany, many: tasks}
}

// Keyed declares named dependencies.
func Keyed(tasks map[string]Task) Deps {
	return Deps{shape: ShapeKeyed, keyed: tasks}
}

// KeyedMany declares named lists of dependencies.
func KeyedMany(tasks map[string][]Task) Deps {
	return Deps{shape: ShapeKeyedMany, keyedMany: tasks}
}

func (d Deps) Shape() Shape {
	return d.shape
}

// Flatten returns the dependencies as one ordered list. Lists keep their
// order; maps are visited in sorted key order. Nil entries are dropped.
func (d Deps) Flatten() []Task {
	var out []Task
	add := func(t Task) {
		if !isNil(t) {
			out = append(out, t)
		}
	}

	switch d.shape {
	case ShapeOne:
		add(d.one)
	case ShapeMany:
		for _, t := range d.many {
			add(t)
		}
	case ShapeKeyed:
		for _, k := range sortedKeys(d.keyed) {
			add(d.keyed[k])
		}
	case ShapeKeyedMany:
		for _, k := range sortedKeys(d.keyedMany) {
			for _, t := range d.keyedMany[k] {
				add(t)
			}
		}
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
