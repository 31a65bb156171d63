package testdag

import (
	"context"
	"sync"

	"github.com/dyluth/stardag/pkg/auto"
	"github.com/dyluth/stardag/pkg/target"
	"github.com/dyluth/stardag/pkg/task"
)

// Cycle requires Cycle{(Index+1) % Size}, so building any member fails.
type Cycle struct {
	task.Meta
	Index int `json:"index"`
	Size  int `json:"size"`
}

func (c *Cycle) Requires() task.Deps {
	if c.Size <= 0 {
		return task.NoDeps()
	}
	return task.One(&Cycle{Index: (c.Index + 1) % c.Size, Size: c.Size})
}

func (c *Cycle) Output(ctx context.Context) (target.Target, error) {
	return auto.Output[string](ctx, c)
}

func (c *Cycle) Run(ctx context.Context) error {
	out, err := auto.Output[string](ctx, c)
	if err != nil {
		return err
	}
	return out.Save(ctx, "unreachable")
}

// Marks records which markers have run. Marker reads it from the context.
type Marks struct {
	mu    sync.Mutex
	names map[string]int
}

func NewMarks() *Marks {
	return &Marks{names: make(map[string]int)}
}

// Count returns how many times the marker called name has run.
func (m *Marks) Count(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.names[name]
}

func (m *Marks) mark(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.names[name]++
}

type marksKey struct{}

// WithMarks returns a context carrying m.
func WithMarks(ctx context.Context, m *Marks) context.Context {
	return context.WithValue(ctx, marksKey{}, m)
}

func marksFrom(ctx context.Context) *Marks {
	if m, ok := ctx.Value(marksKey{}).(*Marks); ok {
		return m
	}
	return nil
}

// Marker has no output: it is complete once it has run against the Marks
// in the context. Without Marks it is never complete.
type Marker struct {
	task.Meta
	Name string      `json:"name"`
	Deps []task.Task `json:"deps"`
}

func (m *Marker) Requires() task.Deps {
	return task.Many(m.Deps...)
}

func (m *Marker) Complete(ctx context.Context) (bool, error) {
	marks := marksFrom(ctx)
	return marks != nil && marks.Count(m.Name) > 0, nil
}

func (m *Marker) Run(ctx context.Context) error {
	if marks := marksFrom(ctx); marks != nil {
		marks.mark(m.Name)
	}
	return nil
}
