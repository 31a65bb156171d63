package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/dyluth/stardag/internal/printer"
)

func newIDCmd(e *env) *cobra.Command {
	var showPayload bool

	cmd := &cobra.Command{
		Use:   "id <spec.json>",
		Short: "Print the task id of a task spec",
		Long: `Print the task id of the task described by a reference JSON file.

The id is the SHA-1 of the canonical JSON of the task's namespace, family and
significant parameters. Use --payload to print that JSON instead.

Examples:
  stardag id sum.json
  echo '{"__namespace__":"examples","__family__":"Range","limit":3}' | stardag id -`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := e.open(context.Background())
			if err != nil {
				return err
			}
			defer s.Close()

			t, err := s.readSpec(args[0], cmd.InOrStdin())
			if err != nil {
				return err
			}

			if showPayload {
				payload, err := s.reg.IDPayload(t)
				if err != nil {
					return printer.Error("cannot compute id payload", err.Error(), nil)
				}
				printer.Info("%s\n", payload)
				return nil
			}

			id, err := s.reg.ID(t)
			if err != nil {
				return printer.Error("cannot compute task id", err.Error(), nil)
			}
			printer.Info("%s\n", id)
			return nil
		},
	}

	cmd.Flags().BoolVar(&showPayload, "payload", false, "Print the hashed JSON instead of the id")
	return cmd
}
