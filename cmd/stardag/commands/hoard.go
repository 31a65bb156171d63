package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dyluth/stardag/internal/catalog"
	"github.com/dyluth/stardag/internal/printer"
)

type hoardFlags struct {
	output string
	since  string
	until  string
	task   string
	run    string
}

func newHoardCmd(e *env) *cobra.Command {
	f := &hoardFlags{}

	cmd := &cobra.Command{
		Use:   "hoard [TASK_ID]",
		Short: "Inspect recorded task specs",
		Long: `Inspect the specs of tasks recorded by past builds, in list or get mode.
Recording needs a redis section and catalog.enabled in stardag.yml.

List Mode (no TASK_ID):
  Displays recorded tasks matching filters as a table or JSONL stream.

Get Mode (with TASK_ID):
  Displays one record as pretty-printed JSON, including its full spec.
  Supports short IDs (e.g., "3f2a9c" instead of the full 40 characters).

Output Formats (list mode only):
  default - Human-readable table with ID, Task, Version, Run and Spec
  jsonl   - Line-delimited JSON, one record per line

Filters (list mode only):
  --since  - Show tasks recorded after this time
  --until  - Show tasks recorded before this time
  --task   - Filter by "namespace.family" (glob pattern: "examples.*")
  --run    - Filter by build run id

Examples:
  # List everything built in the last two hours
  stardag hoard --since=2h

  # Specs as JSONL for piping to jq
  stardag hoard --output=jsonl | jq -r .spec

  # Show one record, then rebuild it
  stardag hoard 3f2a9c
  stardag build 3f2a9c`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHoard(e, f, args)
		},
	}

	cmd.Flags().StringVarP(&f.output, "output", "o", "default", "Output format: default or jsonl (ignored in get mode)")
	cmd.Flags().StringVar(&f.since, "since", "", "Show tasks recorded after time (duration or RFC3339)")
	cmd.Flags().StringVar(&f.until, "until", "", "Show tasks recorded before time (duration or RFC3339)")
	cmd.Flags().StringVar(&f.task, "task", "", "Filter by namespace.family (glob pattern)")
	cmd.Flags().StringVar(&f.run, "run", "", "Filter by build run id")
	return cmd
}

func runHoard(e *env, f *hoardFlags, args []string) error {
	isGetMode := len(args) > 0

	var outputFormat catalog.OutputFormat
	if !isGetMode {
		switch f.output {
		case "default":
			outputFormat = catalog.OutputFormatDefault
		case "jsonl":
			outputFormat = catalog.OutputFormatJSONL
		default:
			return printer.Error(
				"invalid output format",
				fmt.Sprintf("Unknown format: %s", f.output),
				[]string{"Valid formats: default, jsonl"},
			)
		}
	}

	s, err := e.open(context.Background())
	if err != nil {
		return err
	}
	defer s.Close()
	if err := requireCatalog(s); err != nil {
		return err
	}

	if isGetMode {
		record, err := catalog.Get(s.ctx, s.client, args[0])
		if err != nil {
			return catalogError(args[0], err)
		}
		if err := catalog.FormatSingleJSON(printer.Stdout, record); err != nil {
			return fmt.Errorf("failed to print record: %w", err)
		}
		return nil
	}

	filter, err := catalog.NewFilter(f.since, f.until, f.task, f.run)
	if err != nil {
		return printer.Error(
			"invalid listing filter",
			err.Error(),
			[]string{
				"Use an age like '90m' or '2d', or a timestamp like '2025-10-29T13:00:00Z'",
				"Run ids are the UUIDs printed by 'stardag build'",
			},
		)
	}
	if err := catalog.WriteList(s.ctx, s.client, filter, outputFormat, printer.Stdout); err != nil {
		return fmt.Errorf("failed to list recorded tasks: %w", err)
	}
	return nil
}
