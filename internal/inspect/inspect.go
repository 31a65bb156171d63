// Package inspect walks the static dependency graph of a task and reports
// which tasks are already complete.
package inspect

import (
	"context"
	"fmt"
	"io"

	"github.com/dyluth/stardag/internal/printer"
	"github.com/dyluth/stardag/pkg/task"
)

// Node is one task in the tree.
type Node struct {
	ID       string
	Label    string
	Complete bool
	// Err is set when completeness could not be determined.
	Err error
	// Repeat marks a task already shown elsewhere in the tree; its deps are
	// not expanded again.
	Repeat bool
	// Cycle marks a task that is its own ancestor.
	Cycle bool
	Deps  []*Node
}

// Count returns the number of distinct tasks in the tree and how many of them
// are complete.
func (n *Node) Count() (total, complete int) {
	n.walk(func(m *Node) {
		if m.Repeat || m.Cycle {
			return
		}
		total++
		if m.Complete {
			complete++
		}
	})
	return total, complete
}

func (n *Node) walk(fn func(*Node)) {
	fn(n)
	for _, d := range n.Deps {
		d.walk(fn)
	}
}

type walker struct {
	ctx  context.Context
	reg  *task.Registry
	seen map[string]bool
}

// Tree builds the dependency tree of root from Requires. Dependencies a
// dynamic task yields at run time are not known and are not shown.
func Tree(ctx context.Context, reg *task.Registry, root task.Task) (*Node, error) {
	w := &walker{
		ctx:  task.WithRegistry(ctx, reg),
		reg:  reg,
		seen: make(map[string]bool),
	}
	return w.visit(root, nil)
}

func (w *walker) visit(t task.Task, path []string) (*Node, error) {
	id, err := w.reg.ID(t)
	if err != nil {
		return nil, fmt.Errorf("failed to compute id of %s: %w", w.reg.Label(t), err)
	}
	n := &Node{ID: id, Label: w.reg.Label(t)}

	for _, p := range path {
		if p == id {
			n.Cycle = true
			return n, nil
		}
	}

	n.Complete, n.Err = task.Complete(w.ctx, t)
	if w.seen[id] {
		n.Repeat = true
		return n, nil
	}
	w.seen[id] = true

	path = append(path, id)
	for _, dep := range t.Requires().Flatten() {
		child, err := w.visit(dep, path)
		if err != nil {
			return nil, err
		}
		n.Deps = append(n.Deps, child)
	}
	return n, nil
}

// Render writes the tree with one task per line:
//
//	✓ examples.Root 3f2a9c1b
//	├── · examples.Parent 81d0e4aa
//	│   └── ✓ examples.Leaf 0c9b77de
//	└── · examples.Parent 5e11f203 (repeat)
func Render(w io.Writer, root *Node) {
	render(w, root, "", "")
}

func render(w io.Writer, n *Node, prefix, branch string) {
	line := fmt.Sprintf("%s%s %s %s", branch, printer.Mark(n.Complete), n.Label, short(n.ID))
	switch {
	case n.Cycle:
		line += " (cycle)"
	case n.Repeat:
		line += " (repeat)"
	}
	if n.Err != nil {
		line += fmt.Sprintf(" [%v]", n.Err)
	}
	fmt.Fprintln(w, prefix+line)

	childPrefix := prefix
	switch branch {
	case "├── ":
		childPrefix += "│   "
	case "└── ":
		childPrefix += "    "
	}
	for i, d := range n.Deps {
		b := "├── "
		if i == len(n.Deps)-1 {
			b = "└── "
		}
		render(w, d, childPrefix, b)
	}
}

func short(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
