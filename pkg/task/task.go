// Package task defines the stardag task contract and the Registry that gives
// every task type its namespace and family, derives content-addressed task
// ids, and encodes tasks as references that decode back into equal values.
//
// A task is a pointer to a struct that embeds Meta and implements Run:
//
//	type Range struct {
//		task.Meta
//		Limit int `json:"limit"`
//	}
//
//	func (r *Range) Run(ctx context.Context) error { ... }
//
// Exported fields are the task's parameters, in declaration order. They are
// named by their json tag and hashed into the task id unless tagged
// `stardag:"exclude"`. Tasks are treated as immutable once constructed.
package task

import (
	"context"
	"fmt"

	"github.com/dyluth/stardag/pkg/target"
)

// Task is a node of a build graph.
type Task interface {
	// Requires returns the tasks that must be complete before Run.
	Requires() Deps
	// Run computes the task's result, usually saving it to its output.
	Run(ctx context.Context) error

	taskMeta() *Meta
}

// Meta carries the fields every task has. Embed it by value.
//
// A `stardag` tag on the embedding field sets class-level overrides, e.g.
//
//	task.Meta `stardag:"namespace=ml,family=train,version=2"`
//
// The tag belongs to the struct that declares it; structs that embed that
// struct do not inherit it.
type Meta struct {
	// Version is a free-form code version. It is a parameter like any other and
	// is part of the task id.
	Version string `json:"version"`
}

func (m *Meta) taskMeta() *Meta { return m }

// Requires returns no dependencies. Task types override it as needed.
func (m *Meta) Requires() Deps { return NoDeps() }

// Version returns the declared version of t.
func Version(t Task) string {
	return t.taskMeta().Version
}

// Outputter is implemented by tasks that persist their result to a target.
type Outputter interface {
	Output(ctx context.Context) (target.Target, error)
}

// Completer is implemented by tasks that decide completeness themselves,
// typically because they have no output.
type Completer interface {
	Complete(ctx context.Context) (bool, error)
}

// Dynamic is implemented by tasks that discover extra dependencies while
// running. Each yield call returns once the yielded tasks are complete.
type Dynamic interface {
	Task
	RunDynamic(ctx context.Context, yield func(deps ...Task) error) error
}

// Complete reports whether t is complete: Completer if implemented, otherwise
// whether its output exists.
func Complete(ctx context.Context, t Task) (bool, error) {
	if c, ok := t.(Completer); ok {
		return c.Complete(ctx)
	}

	o, ok := t.(Outputter)
	if !ok {
		return false, fmt.Errorf("%w: %T", ErrNoCompletion, t)
	}
	out, err := o.Output(ctx)
	if err != nil {
		return false, err
	}
	if out == nil {
		return false, fmt.Errorf("%w: %T returned a nil output", ErrNoCompletion, t)
	}
	return out.Exists(ctx)
}

// Load loads the output of t as a T. The output must implement
// target.Loadable[T].
func Load[T any](ctx context.Context, t Task) (T, error) {
	var zero T

	o, ok := t.(Outputter)
	if !ok {
		return zero, fmt.Errorf("task %T has no output", t)
	}
	out, err := o.Output(ctx)
	if err != nil {
		return zero, err
	}
	loadable, ok := out.(target.Loadable[T])
	if !ok {
		return zero, fmt.Errorf("output of %T (%T) cannot load %T", t, out, zero)
	}
	return loadable.Load(ctx)
}

// RequireComplete returns a yield func for running a Dynamic task outside a
// dynamic-aware executor: it succeeds only if the yielded tasks are already
// complete.
func RequireComplete(ctx context.Context) func(deps ...Task) error {
	return func(deps ...Task) error {
		for _, dep := range deps {
			done, err := Complete(ctx, dep)
			if err != nil {
				return err
			}
			if !done {
				return fmt.Errorf("%w: %T", ErrIncompleteDependency, dep)
			}
		}
		return nil
	}
}
