package task

import (
	"context"
	"runtime"
	"testing"
	"time"
	"weak"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type counter struct {
	Meta
	N int `json:"n"`
}

func (c *counter) Run(context.Context) error { return nil }

func cachedIDs(r *Registry) int {
	n := 0
	r.ids.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

func TestIDCacheReleasesCollectedTasks(t *testing.T) {
	r := MustRegistry(Register[*counter](Namespace("cache")))

	kept := &counter{N: -1}
	keptID, err := r.ID(kept)
	require.NoError(t, err)

	func() {
		for i := range 1000 {
			_, err := r.ID(&counter{N: i})
			require.NoError(t, err)
		}
	}()
	require.GreaterOrEqual(t, cachedIDs(r), 1)

	assert.Eventually(t, func() bool {
		runtime.GC()
		return cachedIDs(r) == 1
	}, 5*time.Second, 10*time.Millisecond)

	again, err := r.ID(kept)
	require.NoError(t, err)
	assert.Equal(t, keptID, again)
	runtime.KeepAlive(kept)
}

func TestIDCacheKeyedByInstance(t *testing.T) {
	r := MustRegistry(Register[*counter](Namespace("cache")))

	a := &counter{N: 1}
	first, err := r.ID(a)
	require.NoError(t, err)

	cached, ok := r.ids.Load(weak.Make(&a.Meta))
	require.True(t, ok)
	assert.Equal(t, first, cached)

	second, err := r.ID(a)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
