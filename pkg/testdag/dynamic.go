package testdag

import (
	"context"
	"sort"

	"github.com/dyluth/stardag/pkg/auto"
	"github.com/dyluth/stardag/pkg/target"
	"github.com/dyluth/stardag/pkg/task"
)

// Dynamic stores Value. It requires StaticDeps up front and yields
// DynamicDeps one at a time while running.
type Dynamic struct {
	task.Meta
	Value       string      `json:"value"`
	StaticDeps  []task.Task `json:"static_deps"`
	DynamicDeps []task.Task `json:"dynamic_deps"`
}

func (d *Dynamic) Requires() task.Deps {
	return task.Many(d.StaticDeps...)
}

func (d *Dynamic) Output(ctx context.Context) (target.Target, error) {
	return auto.Output[string](ctx, d)
}

// Run succeeds only when the dynamic dependencies are already complete.
func (d *Dynamic) Run(ctx context.Context) error {
	return d.RunDynamic(ctx, task.RequireComplete(ctx))
}

func (d *Dynamic) RunDynamic(ctx context.Context, yield func(deps ...task.Task) error) error {
	deps, err := sortedByID(ctx, d.DynamicDeps)
	if err != nil {
		return err
	}
	for _, dep := range deps {
		if err := yield(dep); err != nil {
			return err
		}
	}
	out, err := auto.Output[string](ctx, d)
	if err != nil {
		return err
	}
	return out.Save(ctx, d.Value)
}

func sortedByID(ctx context.Context, tasks []task.Task) ([]task.Task, error) {
	ids := make(map[task.Task]string, len(tasks))
	for _, t := range tasks {
		id, err := task.ID(ctx, t)
		if err != nil {
			return nil, err
		}
		ids[t] = id
	}
	out := append([]task.Task(nil), tasks...)
	sort.SliceStable(out, func(i, j int) bool { return ids[out[i]] < ids[out[j]] })
	return out, nil
}

// DynamicDAG returns a two-level graph mixing static and dynamic deps. The
// "31" task is both a static dep of the root and a dynamic dep of its child.
func DynamicDAG() *Dynamic {
	child := &Dynamic{
		Value: "1",
		StaticDeps: []task.Task{
			&Dynamic{Value: "20"},
			&Dynamic{Value: "21"},
		},
		DynamicDeps: []task.Task{
			&Dynamic{Value: "30"},
			&Dynamic{Value: "31"},
		},
	}
	return &Dynamic{
		Value:      "0",
		StaticDeps: []task.Task{child, &Dynamic{Value: "31"}},
	}
}

// Walk calls fn for d and every Dynamic reachable through its static and
// dynamic deps.
func (d *Dynamic) Walk(fn func(*Dynamic)) {
	fn(d)
	for _, dep := range append(append([]task.Task(nil), d.StaticDeps...), d.DynamicDeps...) {
		if child, ok := dep.(*Dynamic); ok {
			child.Walk(fn)
		}
	}
}
