package printer

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func capture(t *testing.T) (*bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	var out, errOut bytes.Buffer
	prevOut, prevErr, prevColor := Stdout, Stderr, color.NoColor
	Stdout, Stderr, color.NoColor = &out, &errOut, true
	t.Cleanup(func() { Stdout, Stderr, color.NoColor = prevOut, prevErr, prevColor })
	return &out, &errOut
}

func TestError(t *testing.T) {
	t.Run("returns error with title", func(t *testing.T) {
		_, stderr := capture(t)
		err := Error("Build failed", "task examples.Sum failed", nil)
		require.Error(t, err)
		assert.Equal(t, "Build failed", err.Error())
		assert.Equal(t, "Build failed\n\ntask examples.Sum failed\n", stderr.String())
	})

	t.Run("single suggestion", func(t *testing.T) {
		_, stderr := capture(t)
		Error("Build failed", "Explanation", []string{"Fix the task and build again"})
		assert.Contains(t, stderr.String(), "\nFix the task and build again\n")
		assert.NotContains(t, stderr.String(), "Either:")
	})

	t.Run("numbers multiple suggestions", func(t *testing.T) {
		_, stderr := capture(t)
		Error("Build failed", "Explanation", []string{"First option", "Second option"})
		assert.Contains(t, stderr.String(), "Either:\n  1. First option\n  2. Second option\n")
	})
}

func TestErrorWithContext(t *testing.T) {
	_, stderr := capture(t)
	err := ErrorWithContext("Task not found", "", map[string]string{
		"Instance": "default",
		"Id":       "abcdef",
	}, nil)
	require.Error(t, err)
	assert.Equal(t, "Task not found", err.Error())
	assert.Equal(t, "Task not found\n\n\n  Id: abcdef\n  Instance: default\n", stderr.String())
}

func TestMessages(t *testing.T) {
	stdout, stderr := capture(t)

	Success("built %d tasks\n", 2)
	Step("planning\n")
	Info("plain\n")
	Warning("careful\n")

	assert.Equal(t, "✓ built 2 tasks\n→ planning\nplain\n", stdout.String())
	assert.Equal(t, "⚠️  careful\n", stderr.String())
	assert.Equal(t, "✓", Mark(true))
	assert.Equal(t, "·", Mark(false))
}

func TestIsReported(t *testing.T) {
	capture(t)
	err := Error("Build failed", "", nil)
	assert.True(t, IsReported(err))
	assert.True(t, IsReported(fmt.Errorf("wrapped: %w", err)))
	assert.False(t, IsReported(errors.New("plain")))
}
