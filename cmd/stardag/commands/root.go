package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dyluth/stardag/internal/config"
	"github.com/dyluth/stardag/internal/printer"
	"github.com/dyluth/stardag/pkg/task"
)

var (
	versionInfo = "dev"
	registry    *task.Registry
)

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	versionInfo = fmt.Sprintf("%s (commit: %s, built: %s)", v, c, d)
}

// SetRegistry sets the task types the CLI can decode and build.
func SetRegistry(r *task.Registry) {
	registry = r
}

// newRootCmd builds the command tree. Flags and their viper bindings live on
// the returned tree, so each invocation starts from a clean state.
func newRootCmd() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("STARDAG")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	rootCmd := &cobra.Command{
		Use:   "stardag",
		Short: "stardag - build DAGs of content-addressed tasks",
		Long: `stardag builds graphs of parameterized tasks. Every task has a
deterministic id derived from its namespace, family and parameters, and an
output location derived from that id, so a task is built once and found
again by anyone who constructs it with the same parameters.

Tasks are given as reference JSON:
  {"__namespace__": "examples", "__family__": "Range", "limit": 3}`,
		Version: versionInfo,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		// Enable strict flag parsing - unknown flags will cause an error
		FParseErrWhitelist: cobra.FParseErrWhitelist{},
	}

	flags := rootCmd.PersistentFlags()
	flags.String("config", config.DefaultFile, "Path to stardag.yml (env STARDAG_CONFIG)")
	flags.Int("workers", 1, "Tasks to run at once; 1 builds sequentially (env STARDAG_WORKERS)")
	flags.String("root", "", "URI of the default target root (env STARDAG_ROOT)")
	for _, name := range []string{"config", "workers", "root"} {
		if err := v.BindPFlag(name, flags.Lookup(name)); err != nil {
			panic(err)
		}
	}

	e := &env{v: v}
	rootCmd.AddCommand(
		newIDCmd(e),
		newBuildCmd(e),
		newStatusCmd(e),
		newHoardCmd(e),
	)
	return rootCmd
}

// Execute runs the CLI. Errors not already reported through the printer
// package are printed here.
func Execute() error {
	return execute(newRootCmd())
}

func execute(rootCmd *cobra.Command) error {
	// We print formatted colored errors directly in the printer package
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	err := rootCmd.Execute()
	if err != nil && !printer.IsReported(err) {
		printer.Error(fmt.Sprintf("Error: %v", err), "", nil)
	}
	return err
}
