package auto_test

import (
	"context"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyluth/stardag/pkg/auto"
	"github.com/dyluth/stardag/pkg/target"
	"github.com/dyluth/stardag/pkg/task"
)

type Numbers struct {
	task.Meta
	Limit int `json:"limit"`
}

func (n *Numbers) Run(ctx context.Context) error {
	out, err := auto.Output[[]int](ctx, n)
	if err != nil {
		return err
	}
	values := make([]int, n.Limit)
	for i := range values {
		values[i] = i
	}
	return out.Save(ctx, values)
}

func (n *Numbers) Output(ctx context.Context) (target.Target, error) {
	return auto.Output[[]int](ctx, n)
}

type Report struct {
	task.Meta `stardag:"namespace=team.reports"`
	Title     string `json:"title"`
}

func (r *Report) Run(context.Context) error { return nil }
func (r *Report) RelpathBase() string       { return "base" }
func (r *Report) RelpathExtra() string      { return "extra" }
func (r *Report) RelpathFilename() string   { return "report" }
func (r *Report) TargetRootKey() string     { return "reports" }

const numbersThreeID = "70acc737f95ad7732738d53de867c9d6928fe20c"

func setup(t *testing.T) (context.Context, *target.MemoryStore) {
	reg := task.MustRegistry(
		task.Register[*Numbers](task.Family("Range"), task.Namespace("examples")),
		task.Register[*Report](),
	)
	store := target.NewMemoryStore()
	factory := target.NewFactory(
		target.WithRoots(map[string]string{
			"default": "memory://root",
			"reports": "memory://reports/",
		}),
		target.WithPrefix(store.Rule("memory://")),
	)

	ctx := task.WithRegistry(context.Background(), reg)
	ctx = target.WithFactory(ctx, factory)
	return ctx, store
}

func TestRelpath(t *testing.T) {
	ctx, _ := setup(t)

	t.Run("default layout", func(t *testing.T) {
		got, err := auto.Relpath(ctx, &Numbers{Limit: 3}, "json")
		require.NoError(t, err)
		assert.Equal(t, "examples/Range/70/ac/"+numbersThreeID+".json", got)
	})

	t.Run("version and no extension", func(t *testing.T) {
		got, err := auto.Relpath(ctx, &Numbers{Meta: task.Meta{Version: "2"}, Limit: 3}, "")
		require.NoError(t, err)
		assert.Regexp(t, `^examples/Range/v2/[0-9a-f]{2}/[0-9a-f]{2}/[0-9a-f]{40}$`, got)
	})

	t.Run("hooks and dotted namespace", func(t *testing.T) {
		reg, err := task.RegistryFrom(ctx)
		require.NoError(t, err)
		report := &Report{Title: "q3"}
		id, err := reg.ID(report)
		require.NoError(t, err)

		got, err := auto.Relpath(ctx, report, ".txt")
		require.NoError(t, err)
		assert.Equal(t, "base/team/reports/Report/extra/"+id[:2]+"/"+id[2:4]+"/"+id+"/report.txt", got)
	})

	t.Run("needs a registry", func(t *testing.T) {
		_, err := auto.Relpath(context.Background(), &Numbers{}, "json")
		assert.ErrorIs(t, err, task.ErrNoRegistry)
	})
}

func TestOutput(t *testing.T) {
	ctx, store := setup(t)
	n := &Numbers{Limit: 3}

	out, err := auto.Output[[]int](ctx, n)
	require.NoError(t, err)
	assert.Equal(t, "memory://root/examples/Range/70/ac/"+numbersThreeID+".json", out.Path())
	assert.Equal(t, "json", out.Serializer().Extension())

	done, err := task.Complete(ctx, n)
	require.NoError(t, err)
	assert.False(t, done)

	require.NoError(t, n.Run(ctx))

	data, ok := store.Get(out.Path())
	require.True(t, ok)
	assert.Equal(t, "[0,1,2]", string(data))

	loaded, err := out.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2}, loaded)

	done, err = task.Complete(ctx, n)
	require.NoError(t, err)
	assert.True(t, done)

	viaTask, err := task.Load[[]int](ctx, n)
	require.NoError(t, err)
	assert.Equal(t, loaded, viaTask)
}

func TestOutputOptions(t *testing.T) {
	ctx, _ := setup(t)

	t.Run("task root key", func(t *testing.T) {
		out, err := auto.Output[string](ctx, &Report{Title: "q3"})
		require.NoError(t, err)
		assert.Regexp(t, `^memory://reports/base/team/reports/Report/extra/.*/report\.txt$`, out.Path())
	})

	t.Run("explicit serializer and root", func(t *testing.T) {
		out, err := auto.Output[map[string]int](ctx, &Numbers{Limit: 1},
			auto.WithSerializer(target.YAMLSerializer{}),
			auto.WithRootKey("reports"),
		)
		require.NoError(t, err)
		assert.Regexp(t, `^memory://reports/examples/Range/.*\.yaml$`, out.Path())
	})

	t.Run("unknown root", func(t *testing.T) {
		_, err := auto.Output[string](ctx, &Numbers{}, auto.WithRootKey("nope"))
		var cfgErr *target.ConfigError
		assert.ErrorAs(t, err, &cfgErr)
	})

	t.Run("serializer picked per type", func(t *testing.T) {
		out, err := auto.Output[target.Table](ctx, &Numbers{Limit: 2})
		require.NoError(t, err)
		assert.Equal(t, "csv", out.Serializer().Extension())
		assert.Equal(t, reflect.TypeFor[target.CSVSerializer](), reflect.TypeOf(out.Serializer()))
	})
}
