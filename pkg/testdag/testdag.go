// Package testdag holds small task graphs used by tests, the CLI and the
// examples: Range/Sum, a Leaf/Parent/Root DAG, a dependency cycle, tasks with
// dynamic dependencies and an outputless Marker.
package testdag

import (
	"context"
	"reflect"

	"github.com/dyluth/stardag/pkg/task"
)

// Namespace is the namespace of every task in this package.
const Namespace = "examples"

// Registry returns a registry holding the task types of this package.
func Registry(opts ...task.Option) *task.Registry {
	return task.MustRegistry(append(Options(), opts...)...)
}

// Options returns the registration options of this package, for combining
// with other task packages in one registry.
func Options() []task.Option {
	return []task.Option{
		task.WithPackageNamespace(reflect.TypeFor[Range]().PkgPath(), Namespace),
		task.Register[*Range](),
		task.Register[*Sum](),
		task.Register[*Leaf](),
		task.Register[*Parent](),
		task.Register[*Root](),
		task.Register[*Cycle](),
		task.Register[*Dynamic](),
		task.Register[*Marker](),
	}
}

func loadAll[T any](ctx context.Context, tasks []task.Task) ([]T, error) {
	out := make([]T, 0, len(tasks))
	for _, t := range tasks {
		v, err := task.Load[T](ctx, t)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
