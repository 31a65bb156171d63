package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIDCommand(t *testing.T) {
	t.Run("spec file", func(t *testing.T) {
		workspace(t)
		writeFile(t, "sum.json", sumSpec)

		res := run(t, "", "id", "sum.json")
		require.NoError(t, res.err)
		assert.Equal(t, sumID+"\n", res.stdout)
	})

	t.Run("stdin", func(t *testing.T) {
		workspace(t)

		res := run(t, rangeSpec, "id", "-")
		require.NoError(t, res.err)
		assert.Equal(t, rangeID+"\n", res.stdout)
	})

	t.Run("payload", func(t *testing.T) {
		workspace(t)

		res := run(t, rangeSpec, "id", "--payload", "-")
		require.NoError(t, res.err)
		assert.Equal(t, `{"family":"Range","namespace":"examples","parameters":{"limit":3,"version":""}}`+"\n", res.stdout)
	})

	t.Run("missing family tag", func(t *testing.T) {
		workspace(t)

		res := run(t, `{"__namespace__":"examples","limit":3}`, "id", "-")
		require.Error(t, res.err)
		assert.Contains(t, res.stderr, "invalid task spec")
		assert.Contains(t, res.stderr, "__family__")
		assert.Contains(t, res.stderr, "examples.Range")
	})

	t.Run("missing file", func(t *testing.T) {
		workspace(t)

		res := run(t, "", "id", "nope.json")
		require.Error(t, res.err)
		assert.Contains(t, res.stderr, "cannot read task spec 'nope.json'")
	})
}
