package task_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyluth/stardag/pkg/task"
)

func TestMarshalTask(t *testing.T) {
	r := newTestRegistry()

	data, err := r.MarshalTask(&Sum{Source: &Range{Limit: 3}, Note: "hi"})
	require.NoError(t, err)
	assert.Equal(t,
		`{"__family__":"Sum","__namespace__":"examples","note":"hi","source":{"__family__":"Range","__namespace__":"examples","limit":3,"version":""},"version":""}`,
		string(data))
}

func TestRoundTrip(t *testing.T) {
	r := newTestRegistry()

	tests := []struct {
		name string
		task task.Task
	}{
		{"flat", &Range{Meta: task.Meta{Version: "1"}, Limit: 7}},
		{"nested with excluded field", &Sum{Source: &Range{Limit: 3}, Note: "kept in reference"}},
		{"nil nested", &Sum{}},
		{"embedded struct", &WithOptions{Options: Options{Seed: 9}, Name: "n"}},
		{"class tagged", &Tagged{Meta: task.Meta{Version: "2"}, LR: 0.25}},
		{"collections", &Gather{
			List:   []*Range{{Limit: 2}, {Limit: 1}},
			Named:  map[string]task.Task{"a": &Range{Limit: 1}, "b": &Sum{Source: &Range{Limit: 4}}},
			Labels: []string{"x", "y"},
		}},
		{"task inside struct parameter", &Pipeline{
			Stage:    Stage{Dep: &Range{Limit: 3}, Label: "main"},
			Fallback: &Stage{Dep: &Twin{Limit: 3}},
		}},
		{"task inside any parameter", &Loose{Value: &Range{Limit: 3}}},
		{"tasks inside any collections", &Loose{Value: map[string]any{
			"list": []any{&Range{Limit: 1}, "plain", true},
		}}},
		{"plain any parameter", &Loose{Value: map[string]any{"k": []any{"v", false}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := r.MarshalTask(tt.task)
			require.NoError(t, err)

			decoded, err := r.UnmarshalTask(data)
			require.NoError(t, err)
			assert.Equal(t, tt.task, decoded)

			wantID, err := r.ID(tt.task)
			require.NoError(t, err)
			gotID, err := r.ID(decoded)
			require.NoError(t, err)
			assert.Equal(t, wantID, gotID)
		})
	}
}

func TestRoundTripSet(t *testing.T) {
	r := newTestRegistry()
	original := &Gather{Inputs: task.NewSet(&Range{Limit: 3}, &Range{Limit: 1}, &Range{Limit: 3})}

	data, err := r.MarshalTask(original)
	require.NoError(t, err)

	decoded, err := r.UnmarshalTask(data)
	require.NoError(t, err)
	gather, ok := decoded.(*Gather)
	require.True(t, ok)
	assert.Len(t, gather.Inputs, 2)

	wantID, err := r.ID(original)
	require.NoError(t, err)
	gotID, err := r.ID(decoded)
	require.NoError(t, err)
	assert.Equal(t, wantID, gotID)
}

func TestDecode(t *testing.T) {
	r := newTestRegistry()
	want := &Range{Limit: 3}

	t.Run("task passes through", func(t *testing.T) {
		got, err := r.Decode(want)
		require.NoError(t, err)
		assert.Same(t, want, got)
	})

	t.Run("raw message", func(t *testing.T) {
		got, err := r.Decode(json.RawMessage(`{"__namespace__":"examples","__family__":"Range","limit":3}`))
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})

	t.Run("generic map", func(t *testing.T) {
		ref, err := r.Encode(want)
		require.NoError(t, err)
		got, err := r.Decode(ref)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})

	t.Run("unsupported input", func(t *testing.T) {
		_, err := r.Decode(42)
		assert.Error(t, err)
	})
}

func TestDecodeErrors(t *testing.T) {
	r := newTestRegistry()

	t.Run("missing namespace tag", func(t *testing.T) {
		_, err := r.UnmarshalTask([]byte(`{"__family__":"Range","limit":3}`))
		var refErr *task.ReferenceError
		require.True(t, errors.As(err, &refErr))
		assert.Equal(t, "__namespace__", refErr.Missing)
	})

	t.Run("missing family tag", func(t *testing.T) {
		_, err := r.UnmarshalTask([]byte(`{"__namespace__":"examples","limit":3}`))
		var refErr *task.ReferenceError
		require.True(t, errors.As(err, &refErr))
		assert.Equal(t, "__family__", refErr.Missing)
	})

	t.Run("unknown family", func(t *testing.T) {
		_, err := r.UnmarshalTask([]byte(`{"__namespace__":"examples","__family__":"Nope"}`))
		assert.True(t, task.IsNotFound(err))
	})

	t.Run("unknown field", func(t *testing.T) {
		_, err := r.UnmarshalTask([]byte(`{"__namespace__":"examples","__family__":"Range","limit":3,"bogus":1}`))
		var valErr *task.ValidationError
		require.True(t, errors.As(err, &valErr))
		assert.Equal(t, "bogus", valErr.Field)
	})

	t.Run("wrong type", func(t *testing.T) {
		_, err := r.UnmarshalTask([]byte(`{"__namespace__":"examples","__family__":"Range","limit":"three"}`))
		var valErr *task.ValidationError
		require.True(t, errors.As(err, &valErr))
		assert.Equal(t, "limit", valErr.Field)
	})

	t.Run("nested task of the wrong type", func(t *testing.T) {
		_, err := r.UnmarshalTask([]byte(`{"__namespace__":"examples","__family__":"Sum",` +
			`"source":{"__namespace__":"ml","__family__":"train","lr":1}}`))
		var valErr *task.ValidationError
		require.True(t, errors.As(err, &valErr))
		assert.Equal(t, "source", valErr.Field)
		assert.Contains(t, err.Error(), "not assignable")
	})

	t.Run("missing task parameter", func(t *testing.T) {
		_, err := r.UnmarshalTask([]byte(`{"__namespace__":"examples","__family__":"Sum"}`))
		var valErr *task.ValidationError
		require.True(t, errors.As(err, &valErr))
		assert.Equal(t, "source", valErr.Field)
		assert.Contains(t, err.Error(), "missing required task parameter")
	})

	t.Run("null task parameter", func(t *testing.T) {
		got, err := r.UnmarshalTask([]byte(`{"__namespace__":"examples","__family__":"Sum","source":null}`))
		require.NoError(t, err)
		assert.Equal(t, &Sum{}, got)
	})

	t.Run("unknown field in struct parameter", func(t *testing.T) {
		_, err := r.UnmarshalTask([]byte(`{"__namespace__":"examples","__family__":"Pipeline",` +
			`"stage":{"dep":null,"bogus":1}}`))
		var valErr *task.ValidationError
		require.True(t, errors.As(err, &valErr))
		assert.Equal(t, "stage", valErr.Field)
		assert.Contains(t, err.Error(), "unknown field bogus")
	})

	t.Run("not an object", func(t *testing.T) {
		_, err := r.UnmarshalTask([]byte(`[1,2]`))
		assert.Error(t, err)
	})
}
