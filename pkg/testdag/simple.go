package testdag

import (
	"context"
	"sort"

	"github.com/dyluth/stardag/pkg/auto"
	"github.com/dyluth/stardag/pkg/target"
	"github.com/dyluth/stardag/pkg/task"
)

// LeafOutput is what a Leaf stores: its own parameters.
type LeafOutput struct {
	Version string `json:"version"`
	ParamA  int    `json:"param_a"`
	ParamB  string `json:"param_b"`
}

// ParentOutput collects the outputs of a Parent's leaves.
type ParentOutput struct {
	LeafTasks []LeafOutput `json:"leaf_tasks"`
}

// RootOutput wraps the output of a Root's parent.
type RootOutput struct {
	ParentTask ParentOutput `json:"parent_task"`
}

type Leaf struct {
	task.Meta
	ParamA int    `json:"param_a"`
	ParamB string `json:"param_b"`
}

func (l *Leaf) Output(ctx context.Context) (target.Target, error) {
	return auto.Output[LeafOutput](ctx, l)
}

func (l *Leaf) Run(ctx context.Context) error {
	out, err := auto.Output[LeafOutput](ctx, l)
	if err != nil {
		return err
	}
	return out.Save(ctx, LeafOutput{Version: l.Version, ParamA: l.ParamA, ParamB: l.ParamB})
}

// Parent depends on an unordered set of leaves.
type Parent struct {
	task.Meta
	Leaves task.Set[*Leaf] `json:"leaves"`
}

func (p *Parent) Requires() task.Deps {
	return task.Many(p.Leaves.Tasks()...)
}

func (p *Parent) Output(ctx context.Context) (target.Target, error) {
	return auto.Output[ParentOutput](ctx, p)
}

func (p *Parent) Run(ctx context.Context) error {
	leaves, err := loadAll[LeafOutput](ctx, p.Leaves.Tasks())
	if err != nil {
		return err
	}
	sort.Slice(leaves, func(i, j int) bool {
		if leaves[i].ParamA != leaves[j].ParamA {
			return leaves[i].ParamA < leaves[j].ParamA
		}
		return leaves[i].ParamB < leaves[j].ParamB
	})
	out, err := auto.Output[ParentOutput](ctx, p)
	if err != nil {
		return err
	}
	return out.Save(ctx, ParentOutput{LeafTasks: leaves})
}

// Root depends on any task whose output loads as a ParentOutput.
type Root struct {
	task.Meta
	ParentTask task.Task `json:"parent_task"`
}

func (r *Root) Requires() task.Deps {
	return task.One(r.ParentTask)
}

func (r *Root) Output(ctx context.Context) (target.Target, error) {
	return auto.Output[RootOutput](ctx, r)
}

func (r *Root) Run(ctx context.Context) error {
	parent, err := task.Load[ParentOutput](ctx, r.ParentTask)
	if err != nil {
		return err
	}
	out, err := auto.Output[RootOutput](ctx, r)
	if err != nil {
		return err
	}
	return out.Save(ctx, RootOutput{ParentTask: parent})
}

// SimpleDAG returns Root <- Parent <- {Leaf(1, "a"), Leaf(2, "b")}.
func SimpleDAG() *Root {
	return &Root{
		ParentTask: &Parent{
			Leaves: task.NewSet(
				&Leaf{ParamA: 1, ParamB: "a"},
				&Leaf{ParamA: 2, ParamB: "b"},
			),
		},
	}
}

// SimpleDAGOutput is the output of SimpleDAG's root once built.
func SimpleDAGOutput() RootOutput {
	return RootOutput{
		ParentTask: ParentOutput{
			LeafTasks: []LeafOutput{
				{ParamA: 1, ParamB: "a"},
				{ParamA: 2, ParamB: "b"},
			},
		},
	}
}
