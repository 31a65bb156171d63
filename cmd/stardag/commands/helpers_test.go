package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/require"

	"github.com/dyluth/stardag/internal/printer"
	"github.com/dyluth/stardag/pkg/task"
	"github.com/dyluth/stardag/pkg/testdag"
)

const (
	rangeSpec = `{"__namespace__":"examples","__family__":"Range","limit":3}`
	rangeID   = "70acc737f95ad7732738d53de867c9d6928fe20c"
	sumSpec   = `{"__namespace__":"examples","__family__":"Sum","integers":` + rangeSpec + `}`
	sumID     = "eab432eb80eb7d05410fc4dac9bd24fb132bc536"
)

type result struct {
	stdout string
	stderr string
	err    error
}

// workspace moves the test into an empty directory holding a target root.
func workspace(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.Mkdir(filepath.Join(dir, "outputs"), 0o755))
	return dir
}

func writeFile(t *testing.T, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(name, []byte(content), 0o644))
}

func writeSpec(t *testing.T, name string, root task.Task) {
	t.Helper()
	data, err := testdag.Registry().MarshalTask(root)
	require.NoError(t, err)
	writeFile(t, name, string(data))
}

// run executes the CLI against the example task library.
func run(t *testing.T, stdin string, args ...string) result {
	t.Helper()

	var stdout, stderr bytes.Buffer
	prevOut, prevErr, prevColor, prevReg := printer.Stdout, printer.Stderr, color.NoColor, registry
	printer.Stdout, printer.Stderr, color.NoColor = &stdout, &stderr, true
	registry = testdag.Registry()
	t.Cleanup(func() {
		printer.Stdout, printer.Stderr, color.NoColor, registry = prevOut, prevErr, prevColor, prevReg
	})

	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)

	err := execute(cmd)
	return result{stdout: stdout.String(), stderr: stderr.String(), err: err}
}

// rooted prefixes args with a --root inside the workspace.
func rooted(dir string, args ...string) []string {
	return append([]string{"--root", filepath.Join(dir, "outputs")}, args...)
}
