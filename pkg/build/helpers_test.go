package build_test

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/dyluth/stardag/pkg/auto"
	"github.com/dyluth/stardag/pkg/build"
	"github.com/dyluth/stardag/pkg/target"
	"github.com/dyluth/stardag/pkg/task"
	"github.com/dyluth/stardag/pkg/testdag"
)

var errBoom = errors.New("boom")

// Flaky fails while *Fail is true.
type Flaky struct {
	task.Meta
	Name string `json:"name"`
	Fail *bool  `json:"-"`
}

func (f *Flaky) Output(ctx context.Context) (target.Target, error) {
	return auto.Output[string](ctx, f)
}

func (f *Flaky) Run(ctx context.Context) error {
	if f.Fail != nil && *f.Fail {
		return errBoom
	}
	out, err := auto.Output[string](ctx, f)
	if err != nil {
		return err
	}
	return out.Save(ctx, f.Name)
}

type Versioned struct {
	task.Meta `stardag:"version=2"`
}

func (v *Versioned) Complete(context.Context) (bool, error) { return false, nil }
func (v *Versioned) Run(context.Context) error              { return nil }

// Bare has no way to tell whether it is complete.
type Bare struct {
	task.Meta
}

func (b *Bare) Run(context.Context) error { return nil }

// SelfYield dynamically requires a task that requires SelfYield again.
type SelfYield struct {
	task.Meta
	Name string `json:"name"`
}

func (s *SelfYield) Complete(context.Context) (bool, error) { return false, nil }
func (s *SelfYield) Run(ctx context.Context) error {
	return s.RunDynamic(ctx, task.RequireComplete(ctx))
}

func (s *SelfYield) RunDynamic(ctx context.Context, yield func(...task.Task) error) error {
	return yield(&Requirer{Name: s.Name})
}

type Requirer struct {
	task.Meta
	Name string `json:"name"`
}

func (r *Requirer) Requires() task.Deps                    { return task.One(&SelfYield{Name: r.Name}) }
func (r *Requirer) Complete(context.Context) (bool, error) { return false, nil }
func (r *Requirer) Run(context.Context) error              { return nil }

// tracker observes Tracked runs.
type tracker struct {
	mu         sync.Mutex
	runs       map[string]int
	finished   map[string]bool
	failing    map[string]bool
	order      []string
	active     int
	maxActive  int
	violations []string
}

func newTracker() *tracker {
	return &tracker{
		runs:     make(map[string]int),
		finished: make(map[string]bool),
		failing:  make(map[string]bool),
	}
}

func (p *tracker) count(name string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.runs[name]
}

// Tracked records its runs and checks its deps finished before it started.
type Tracked struct {
	task.Meta
	Name string      `json:"name"`
	Deps []task.Task `json:"deps"`
	P    *tracker    `json:"-"`
}

func (p *Tracked) Requires() task.Deps {
	return task.Many(p.Deps...)
}

func (p *Tracked) Complete(context.Context) (bool, error) {
	p.P.mu.Lock()
	defer p.P.mu.Unlock()
	return p.P.finished[p.Name], nil
}

func (p *Tracked) Run(ctx context.Context) error {
	p.P.mu.Lock()
	p.P.runs[p.Name]++
	p.P.active++
	if p.P.active > p.P.maxActive {
		p.P.maxActive = p.P.active
	}
	for _, dep := range p.Deps {
		if d, ok := dep.(*Tracked); ok && !p.P.finished[d.Name] {
			p.P.violations = append(p.P.violations, p.Name+" before "+d.Name)
		}
	}
	p.P.mu.Unlock()

	time.Sleep(5 * time.Millisecond)

	p.P.mu.Lock()
	defer p.P.mu.Unlock()
	p.P.active--
	if p.P.failing[p.Name] {
		return errBoom
	}
	p.P.finished[p.Name] = true
	p.P.order = append(p.P.order, p.Name)
	return nil
}

func newRegistry() *task.Registry {
	return testdag.Registry(
		task.Register[*Flaky](),
		task.Register[*Versioned](),
		task.Register[*SelfYield](),
		task.Register[*Requirer](),
		task.Register[*Tracked](),
	)
}

func setup(t *testing.T) (context.Context, *target.MemoryStore) {
	t.Helper()
	store := target.NewMemoryStore()
	factory := target.NewFactory(
		target.WithRoot(target.DefaultRootKey, "memory://"),
		target.WithPrefix(store.Rule("memory://")),
	)
	ctx := target.WithFactory(context.Background(), factory)
	ctx = task.WithRegistry(ctx, newRegistry())
	return ctx, store
}

func quiet(opts ...build.Option) []build.Option {
	return append([]build.Option{build.WithLogger(log.New(io.Discard, "", 0))}, opts...)
}

func mustID(t *testing.T, ctx context.Context, tk task.Task) string {
	t.Helper()
	id, err := task.ID(ctx, tk)
	if err != nil {
		t.Fatalf("failed to compute id: %v", err)
	}
	return id
}
