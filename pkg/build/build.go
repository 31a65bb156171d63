// Package build runs task graphs. Build is the sequential, depth-first
// orchestrator; Parallel runs independent branches on a bounded worker pool.
// Both skip complete tasks, run every incomplete task at most once per build
// and reject cycles before running anything.
package build

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/dyluth/stardag/pkg/task"
)

// Result summarizes a build.
type Result struct {
	RunID string
	// Ran holds the ids of the tasks that ran, in completion order.
	Ran []string
	// Skipped counts the tasks found complete.
	Skipped int
}

type builder struct {
	cfg      *config
	reg      *task.Registry
	runID    string
	parallel bool

	flight singleflight.Group
	labels sync.Map // task id -> label

	mu     sync.Mutex
	result *Result
}

// Build makes root complete, building incomplete dependencies first in
// declared order. Any error aborts the build; completed tasks stay complete,
// so calling Build again resumes where it stopped. The returned Result is
// valid even when err is not nil.
func Build(ctx context.Context, root task.Task, opts ...Option) (*Result, error) {
	return start(ctx, root, false, opts)
}

// Parallel is Build with up to WithWorkers tasks running at once. A task still
// runs only after all its dependencies completed.
func Parallel(ctx context.Context, root task.Task, opts ...Option) (*Result, error) {
	return start(ctx, root, true, opts)
}

func start(ctx context.Context, root task.Task, parallel bool, opts []Option) (*Result, error) {
	cfg := newConfig(opts)

	reg := cfg.registry
	if reg == nil {
		var err error
		if reg, err = task.RegistryFrom(ctx); err != nil {
			return nil, err
		}
	}

	runID := cfg.runID
	if runID == "" {
		runID = uuid.NewString()
	}

	b := &builder{
		cfg:      cfg,
		reg:      reg,
		runID:    runID,
		parallel: parallel,
		result:   &Result{RunID: runID},
	}

	ctx = task.WithRegistry(ctx, reg)
	ctx = context.WithValue(ctx, runIDKey{}, runID)

	mode := "sequential"
	if parallel {
		mode = fmt.Sprintf("parallel, %d workers", cfg.workers)
	}
	b.logf("Building %s (%s)", reg.Label(root), mode)

	started := time.Now()
	err := b.build(ctx, []task.Task{root}, nil)

	b.mu.Lock()
	ran, skipped := len(b.result.Ran), b.result.Skipped
	b.mu.Unlock()
	if err != nil {
		b.logf("Build failed after %d run(s): %v", ran, err)
		return b.result, err
	}
	b.logf("Build finished: %d run, %d already complete (took %v)", ran, skipped, time.Since(started).Round(time.Millisecond))
	return b.result, nil
}

// build plans roots below the given ancestors and runs the plan.
func (b *builder) build(ctx context.Context, roots []task.Task, ancestors []string) error {
	p, err := b.plan(ctx, roots, ancestors)
	if err != nil {
		return err
	}
	if b.parallel {
		return b.runParallel(ctx, p)
	}
	for _, n := range p.order {
		if err := b.runNode(ctx, n); err != nil {
			return err
		}
	}
	return nil
}

// runNode runs n unless it completed meanwhile. Concurrent calls for the same
// id share one run.
func (b *builder) runNode(ctx context.Context, n *node) error {
	_, err, _ := b.flight.Do(n.id, func() (any, error) {
		if b.cfg.cache.Has(n.id) {
			return nil, nil
		}
		return nil, b.execute(ctx, n)
	})
	return err
}

func (b *builder) execute(ctx context.Context, n *node) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if b.cfg.checkVersions {
		if err := b.reg.CheckVersion(n.task); err != nil {
			return b.taskError(n.task, n.id, OpVersion, err)
		}
	}

	for _, cb := range b.cfg.beforeRun {
		if err := cb(ctx, n.task); err != nil {
			return b.taskError(n.task, n.id, OpCallback, err)
		}
	}

	b.logf("Running %s (%s)", n.label, shortID(n.id))
	started := time.Now()

	var err error
	if dyn, ok := n.task.(task.Dynamic); ok {
		err = dyn.RunDynamic(ctx, func(deps ...task.Task) error {
			return b.build(ctx, deps, n.path)
		})
	} else {
		err = n.task.Run(ctx)
	}
	if err != nil {
		b.logf("Failed %s (%s): %v", n.label, shortID(n.id), err)
		return b.taskError(n.task, n.id, OpRun, err)
	}

	b.cfg.cache.Add(n.id)
	b.mu.Lock()
	b.result.Ran = append(b.result.Ran, n.id)
	b.mu.Unlock()
	b.logf("Completed %s (%s) in %v", n.label, shortID(n.id), time.Since(started).Round(time.Millisecond))

	for _, cb := range b.cfg.afterRun {
		if err := cb(ctx, n.task); err != nil {
			return b.taskError(n.task, n.id, OpCallback, err)
		}
	}
	return nil
}

// taskError wraps err with the location of t, unless err already carries a
// location from deeper in the graph.
func (b *builder) taskError(t task.Task, id, op string, err error) error {
	var located *TaskError
	if errors.As(err, &located) || IsCyclic(err) {
		return err
	}

	te := &TaskError{ID: id, Op: op, Err: err}
	if kind, kerr := b.reg.KindOf(t); kerr == nil {
		te.Namespace, te.Family = kind.Namespace, kind.Family
	} else {
		te.Family = fmt.Sprintf("%T", t)
	}
	return te
}

func (b *builder) logf(format string, args ...any) {
	b.cfg.logger.Printf("[Build %s] "+format, append([]any{shortID(b.runID)}, args...)...)
}
