package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/dyluth/stardag/internal/inspect"
	"github.com/dyluth/stardag/internal/printer"
)

func newStatusCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "status <spec.json | task-id>",
		Short: "Show a task's dependency tree and what is already built",
		Long: `Show the dependency tree of a task, marking complete tasks with ✓.

Only dependencies declared up front are shown; dependencies a task discovers
while running appear once it has run.

Examples:
  stardag status dag.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := e.open(context.Background())
			if err != nil {
				return err
			}
			defer s.Close()

			root, err := s.resolveTask(args[0], cmd.InOrStdin())
			if err != nil {
				return err
			}

			tree, err := inspect.Tree(s.ctx, s.reg, root)
			if err != nil {
				return printer.Error("cannot inspect task", err.Error(), nil)
			}

			inspect.Render(printer.Stdout, tree)
			total, complete := tree.Count()
			printer.Info("\n%d of %d tasks complete\n", complete, total)
			return nil
		},
	}
}
