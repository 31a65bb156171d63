package target

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/dyluth/stardag/pkg/redisstore"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedisClient(t *testing.T) *redisstore.Client {
	mr := miniredis.NewMiniRedis()
	require.NoError(t, mr.Start())
	t.Cleanup(mr.Close)

	client, err := redisstore.NewClient(&redis.Options{Addr: mr.Addr()}, "test-instance")
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client
}

func TestRedisTarget(t *testing.T) {
	ctx := context.Background()
	client := setupRedisClient(t)

	f := NewFactory(
		WithRoots(map[string]string{"default": "redis://outputs"}),
		WithPrefix(RedisRule(client, RedisPrefix)),
	)

	tgt, err := f.Get("examples/Range/ab/cd/abcd.json", "")
	require.NoError(t, err)
	require.IsType(t, &RedisTarget{}, tgt)
	assert.Equal(t, "redis://outputs/examples/Range/ab/cd/abcd.json", tgt.Path())

	exists, err := tgt.Exists(ctx)
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = tgt.OpenRead(ctx)
	assert.True(t, IsMissing(err))

	typed := NewSerializable[[]int](tgt, JSONSerializer{})

	w, err := tgt.OpenWrite(ctx)
	require.NoError(t, err)
	_, err = w.Write([]byte("[0,1"))
	require.NoError(t, err)
	exists, _ = tgt.Exists(ctx)
	assert.False(t, exists, "nothing stored before commit")
	require.NoError(t, w.Close())
	exists, _ = tgt.Exists(ctx)
	assert.False(t, exists, "close without commit stores nothing")

	require.NoError(t, typed.Save(ctx, []int{0, 1, 2}))
	got, err := typed.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2}, got)

	data, err := client.GetObject(ctx, tgt.Path())
	require.NoError(t, err)
	assert.Equal(t, "[0,1,2]", string(data))
}
