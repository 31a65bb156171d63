package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyluth/stardag/internal/printer"
)

func TestRootCommand_ShowsHelpWhenNoSubcommand(t *testing.T) {
	res := run(t, "")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "Usage:")
	assert.Contains(t, res.stdout, "stardag")
}

func TestRootCommand_RejectsUnknownFlags(t *testing.T) {
	res := run(t, "", "--goal", "test")
	require.Error(t, res.err)
	assert.Contains(t, res.stderr, "unknown flag: --goal")
}

func TestRootCommand_UnreportedErrorsArePrinted(t *testing.T) {
	res := run(t, "", "id")
	require.Error(t, res.err)
	assert.False(t, printer.IsReported(res.err))
	assert.Contains(t, res.stderr, "Error: accepts 1 arg(s)")
}

func TestSettings(t *testing.T) {
	t.Run("workers flag must be positive", func(t *testing.T) {
		dir := workspace(t)
		writeFile(t, "range.json", rangeSpec)

		res := run(t, "", rooted(dir, "--workers", "0", "build", "range.json")...)
		require.Error(t, res.err)
		assert.True(t, printer.IsReported(res.err))
		assert.Contains(t, res.stderr, "build.workers must be >= 1")
	})

	t.Run("env overrides config file", func(t *testing.T) {
		dir := workspace(t)
		writeFile(t, "stardag.yml", "version: \"1.0\"\nbuild:\n  workers: 1\n")
		writeFile(t, "range.json", rangeSpec)
		t.Setenv("STARDAG_WORKERS", "3")

		res := run(t, "", rooted(dir, "build", "range.json")...)
		require.NoError(t, res.err)
		assert.Contains(t, res.stderr, "parallel, 3 workers")
	})

	t.Run("explicit config must exist", func(t *testing.T) {
		workspace(t)
		writeFile(t, "range.json", rangeSpec)

		res := run(t, "", "--config", "missing.yml", "id", "range.json")
		require.Error(t, res.err)
		assert.Contains(t, res.stderr, "invalid configuration")
	})

	t.Run("invalid config file", func(t *testing.T) {
		workspace(t)
		writeFile(t, "stardag.yml", "version: \"2.0\"\n")
		writeFile(t, "range.json", rangeSpec)

		res := run(t, "", "id", "range.json")
		require.Error(t, res.err)
		assert.Contains(t, res.stderr, "unsupported version")
	})
}
