package task_test

import (
	"crypto/sha1"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyluth/stardag/pkg/task"
)

const rangeThreeID = "70acc737f95ad7732738d53de867c9d6928fe20c"

func TestIDPayload(t *testing.T) {
	r := newTestRegistry()

	payload, err := r.IDPayload(&Range{Limit: 3})
	require.NoError(t, err)
	assert.Equal(t, `{"family":"Range","namespace":"examples","parameters":{"limit":3,"version":""}}`, string(payload))

	sum := sha1.Sum(payload)
	id, err := r.ID(&Range{Limit: 3})
	require.NoError(t, err)
	assert.Equal(t, hex.EncodeToString(sum[:]), id)
	assert.Equal(t, rangeThreeID, id)
}

func TestIDNestedTask(t *testing.T) {
	r := newTestRegistry()

	payload, err := r.IDPayload(&Sum{Source: &Range{Limit: 3}, Note: "ignored"})
	require.NoError(t, err)
	assert.Equal(t,
		`{"family":"Sum","namespace":"examples","parameters":{"source":"`+rangeThreeID+`","version":""}}`,
		string(payload))

	id, err := r.ID(&Sum{Source: &Range{Limit: 3}})
	require.NoError(t, err)
	assert.Equal(t, "eab432eb80eb7d05410fc4dac9bd24fb132bc536", id)
}

func TestIDSensitivity(t *testing.T) {
	r := newTestRegistry()
	id := func(tk task.Task) string {
		got, err := r.ID(tk)
		require.NoError(t, err)
		return got
	}

	base := id(&Range{Limit: 3})

	t.Run("same parameters same id", func(t *testing.T) {
		assert.Equal(t, base, id(&Range{Limit: 3}))
	})

	t.Run("parameter change", func(t *testing.T) {
		assert.NotEqual(t, base, id(&Range{Limit: 4}))
	})

	t.Run("version change", func(t *testing.T) {
		assert.NotEqual(t, base, id(&Range{Meta: task.Meta{Version: "1"}, Limit: 3}))
	})

	t.Run("excluded parameter", func(t *testing.T) {
		a := id(&Sum{Source: &Range{Limit: 3}, Note: "a"})
		b := id(&Sum{Source: &Range{Limit: 3}, Note: "b"})
		assert.Equal(t, a, b)
	})

	t.Run("dependency change propagates", func(t *testing.T) {
		a := id(&Sum{Source: &Range{Limit: 3}})
		b := id(&Sum{Source: &Range{Limit: 5}})
		assert.NotEqual(t, a, b)
	})

	t.Run("json dash fields are not parameters", func(t *testing.T) {
		a := id(&WithOptions{Options: Options{Seed: 1, Cache: "x"}, Name: "n"})
		b := id(&WithOptions{Options: Options{Seed: 1, Cache: "y"}, Name: "n"})
		assert.Equal(t, a, b)
		assert.NotEqual(t, a, id(&WithOptions{Options: Options{Seed: 2}, Name: "n"}))
	})
}

func TestIDTaskInsideStruct(t *testing.T) {
	r := newTestRegistry()

	payload, err := r.IDPayload(&Pipeline{Stage: Stage{Dep: &Range{Limit: 3}}})
	require.NoError(t, err)
	assert.Equal(t,
		`{"family":"Pipeline","namespace":"examples","parameters":{"fallback":null,"stage":{"dep":"`+rangeThreeID+`"},"version":""}}`,
		string(payload))

	viaRange, err := r.ID(&Pipeline{Stage: Stage{Dep: &Range{Limit: 3}}})
	require.NoError(t, err)
	viaTwin, err := r.ID(&Pipeline{Stage: Stage{Dep: &Twin{Limit: 3}}})
	require.NoError(t, err)
	assert.NotEqual(t, viaRange, viaTwin)

	fallback, err := r.ID(&Pipeline{Fallback: &Stage{Dep: &Range{Limit: 3}}})
	require.NoError(t, err)
	otherFallback, err := r.ID(&Pipeline{Fallback: &Stage{Dep: &Twin{Limit: 3}}})
	require.NoError(t, err)
	assert.NotEqual(t, fallback, otherFallback)
}

func TestIDTaskInsideAny(t *testing.T) {
	r := newTestRegistry()

	payload, err := r.IDPayload(&Loose{Value: &Range{Limit: 3}})
	require.NoError(t, err)
	assert.Contains(t, string(payload), `"value":"`+rangeThreeID+`"`)
}

func TestIDSetOrder(t *testing.T) {
	r := newTestRegistry()
	a, b, c := &Range{Limit: 1}, &Range{Limit: 2}, &Range{Limit: 3}

	first, err := r.ID(&Gather{Inputs: task.NewSet(a, b, c)})
	require.NoError(t, err)
	second, err := r.ID(&Gather{Inputs: task.NewSet(c, a, b, a)})
	require.NoError(t, err)
	assert.Equal(t, first, second)

	// Lists keep their order
	listA, err := r.ID(&Gather{List: []*Range{a, b}})
	require.NoError(t, err)
	listB, err := r.ID(&Gather{List: []*Range{b, a}})
	require.NoError(t, err)
	assert.NotEqual(t, listA, listB)
}

func TestIDUnregistered(t *testing.T) {
	r := newTestRegistry()

	_, err := r.ID(&Stray{})
	require.Error(t, err)
	assert.ErrorIs(t, err, task.ErrUnregistered)

	_, err = r.ID(nil)
	assert.Error(t, err)
}

func TestIDParamConfig(t *testing.T) {
	r := task.MustRegistry(
		task.WithPackageNamespace(testPkg, "examples"),
		task.Register[*Range](),
		task.Register[*Sum](task.Param("source", task.ParameterConfig{
			Hasher: func(r *task.Registry, v any) (any, error) {
				return "constant", nil
			},
		})),
	)

	a, err := r.ID(&Sum{Source: &Range{Limit: 1}})
	require.NoError(t, err)
	b, err := r.ID(&Sum{Source: &Range{Limit: 2}})
	require.NoError(t, err)
	assert.Equal(t, a, b)

	payload, err := r.IDPayload(&Sum{Source: &Range{Limit: 1}})
	require.NoError(t, err)
	assert.Contains(t, string(payload), `"source":"constant"`)
}

func TestIDConditionalInclude(t *testing.T) {
	r := task.MustRegistry(
		task.WithPackageNamespace(testPkg, "examples"),
		task.Register[*Range](task.Param("limit", task.ParameterConfig{
			Include: func(v any) bool { return v.(int) != 0 },
		})),
	)

	payload, err := r.IDPayload(&Range{})
	require.NoError(t, err)
	assert.Equal(t, `{"family":"Range","namespace":"examples","parameters":{"version":""}}`, string(payload))
}
