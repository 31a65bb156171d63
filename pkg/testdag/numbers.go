package testdag

import (
	"context"
	"fmt"

	"github.com/dyluth/stardag/pkg/auto"
	"github.com/dyluth/stardag/pkg/target"
	"github.com/dyluth/stardag/pkg/task"
)

// Range outputs [0, Limit).
type Range struct {
	task.Meta
	Limit int `json:"limit"`
}

func (r *Range) Output(ctx context.Context) (target.Target, error) {
	return auto.Output[[]int](ctx, r)
}

func (r *Range) Run(ctx context.Context) error {
	if r.Limit < 0 {
		return fmt.Errorf("limit must be non-negative, got %d", r.Limit)
	}
	values := make([]int, r.Limit)
	for i := range values {
		values[i] = i
	}
	out, err := auto.Output[[]int](ctx, r)
	if err != nil {
		return err
	}
	return out.Save(ctx, values)
}

// Sum outputs the sum of the integers its dependency outputs.
type Sum struct {
	task.Meta
	Integers task.Task `json:"integers"`
}

func (s *Sum) Requires() task.Deps {
	return task.One(s.Integers)
}

func (s *Sum) Output(ctx context.Context) (target.Target, error) {
	return auto.Output[int](ctx, s)
}

func (s *Sum) Run(ctx context.Context) error {
	integers, err := task.Load[[]int](ctx, s.Integers)
	if err != nil {
		return fmt.Errorf("failed to load integers: %w", err)
	}
	total := 0
	for _, n := range integers {
		total += n
	}
	out, err := auto.Output[int](ctx, s)
	if err != nil {
		return err
	}
	return out.Save(ctx, total)
}
