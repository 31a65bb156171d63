package commands

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/dyluth/stardag/internal/catalog"
	"github.com/dyluth/stardag/internal/printer"
	"github.com/dyluth/stardag/pkg/build"
	"github.com/dyluth/stardag/pkg/task"
)

func newBuildCmd(e *env) *cobra.Command {
	var checkVersions bool

	cmd := &cobra.Command{
		Use:   "build <spec.json | task-id>",
		Short: "Build a task and its incomplete dependencies",
		Long: `Build a task, running every incomplete dependency first.

The task is read from a reference JSON file, or, when the catalog is enabled,
looked up by a recorded task id (short ids of 6+ characters are accepted).

With --workers greater than 1, independent tasks run concurrently. A task
never runs before all its dependencies are complete, and never twice.

Examples:
  stardag build sum.json
  stardag build --workers 4 dag.json
  stardag build 3f2a9c`,
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

			if !cmd.Flags().Changed("check-versions") {
				checkVersions = s.cfg.Build.CheckVersions
			}
			return runBuild(s, root, checkVersions)
		},
	}

	cmd.Flags().BoolVar(&checkVersions, "check-versions", false, "Fail tasks whose version differs from their registered version")
	return cmd
}

func runBuild(s *session, root task.Task, checkVersions bool) error {
	workers := *s.cfg.Build.Workers
	opts := []build.Option{
		build.WithRegistry(s.reg),
		build.WithVersionCheck(checkVersions),
		build.WithLogger(log.New(printer.Stderr, "", log.LstdFlags)),
		build.WithWorkers(workers),
	}
	if s.cfg.Catalog.Enabled {
		opts = append(opts, build.WithAfterRun(catalog.Recorder(s.client)))
	}

	run := build.Build
	if workers > 1 {
		run = build.Parallel
	}

	label := s.reg.Label(root)
	res, err := run(s.ctx, root, opts...)
	if err != nil {
		return buildError(label, res, err)
	}

	id, err := s.reg.ID(root)
	if err != nil {
		return err
	}
	printer.Success("Built %s (%s): %d run, %d already complete\n", label, id[:8], len(res.Ran), res.Skipped)
	return nil
}

func buildError(label string, res *build.Result, err error) error {
	details := map[string]string{}
	if res != nil {
		details["Run"] = res.RunID
		details["Completed"] = fmt.Sprintf("%d task(s)", len(res.Ran))
	}

	var cyclic *build.CyclicDependencyError
	if errors.As(err, &cyclic) {
		return printer.ErrorWithContext(
			fmt.Sprintf("cannot build %s: cyclic dependency", label),
			cyclic.Error(),
			details,
			[]string{"Break the cycle in the tasks' Requires"},
		)
	}

	var taskErr *build.TaskError
	if errors.As(err, &taskErr) {
		details["Task"] = taskErr.ID
		return printer.ErrorWithContext(
			fmt.Sprintf("build of %s failed", label),
			err.Error(),
			details,
			[]string{"Fix the failing task and build again; completed tasks are not rerun"},
		)
	}

	return printer.ErrorWithContext(fmt.Sprintf("build of %s failed", label), err.Error(), details, nil)
}
