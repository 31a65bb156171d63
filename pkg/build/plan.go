package build

import (
	"context"
	"slices"

	"github.com/dyluth/stardag/pkg/task"
)

type node struct {
	id    string
	label string
	task  task.Task
	// path holds the ids from the outermost root down to this node.
	path []string
	// deps holds the incomplete dependencies, deduplicated, in declared order.
	deps []*node
}

// plan is the incomplete part of a graph in depth-first post-order:
// dependencies before dependents, siblings in declared order.
type plan struct {
	order []*node
}

type planner struct {
	b      *builder
	ctx    context.Context
	nodes  map[string]*node
	onPath map[string]bool
	order  []*node
}

func (b *builder) plan(ctx context.Context, roots []task.Task, ancestors []string) (*plan, error) {
	p := &planner{
		b:      b,
		ctx:    ctx,
		nodes:  make(map[string]*node),
		onPath: make(map[string]bool, len(ancestors)),
	}
	for _, id := range ancestors {
		p.onPath[id] = true
	}

	for _, root := range roots {
		if _, err := p.visit(root, ancestors); err != nil {
			return nil, err
		}
	}

	if len(p.order) > 0 {
		b.logf("Planned %d task(s) to run", len(p.order))
	}
	return &plan{order: p.order}, nil
}

// visit returns the node of t, or nil when t is complete.
func (p *planner) visit(t task.Task, path []string) (*node, error) {
	id, err := p.b.reg.ID(t)
	if err != nil {
		return nil, p.b.taskError(t, "", OpIdentity, err)
	}
	label := p.b.reg.Label(t)
	p.b.labels.LoadOrStore(id, label)

	if p.onPath[id] {
		return nil, p.b.cycleError(path, id)
	}
	if n, ok := p.nodes[id]; ok {
		return n, nil
	}
	if p.b.cfg.cache.Has(id) {
		return nil, nil
	}

	done, err := task.Complete(p.ctx, t)
	if err != nil {
		return nil, p.b.taskError(t, id, OpComplete, err)
	}
	if done {
		p.b.cfg.cache.Add(id)
		p.b.mu.Lock()
		p.b.result.Skipped++
		p.b.mu.Unlock()
		return nil, nil
	}

	n := &node{id: id, label: label, task: t, path: append(slices.Clone(path), id)}
	p.onPath[id] = true

	seen := make(map[string]bool)
	for _, dep := range t.Requires().Flatten() {
		dn, err := p.visit(dep, n.path)
		if err != nil {
			return nil, err
		}
		if dn != nil && !seen[dn.id] {
			seen[dn.id] = true
			n.deps = append(n.deps, dn)
		}
	}

	delete(p.onPath, id)
	p.nodes[id] = n
	p.order = append(p.order, n)
	return n, nil
}

func (b *builder) cycleError(path []string, id string) error {
	start := slices.Index(path, id)
	if start < 0 {
		start = 0
	}
	cycle := append(slices.Clone(path[start:]), id)

	labels := make([]string, len(cycle))
	for i, cid := range cycle {
		if label, ok := b.labels.Load(cid); ok {
			labels[i] = label.(string)
		}
	}
	return &CyclicDependencyError{Path: cycle, Labels: labels}
}
