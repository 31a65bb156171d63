package build

import (
	"context"
	"log"
	"runtime"

	"github.com/dyluth/stardag/pkg/task"
)

// Callback is invoked around each task run. A callback error fails the build.
type Callback func(ctx context.Context, t task.Task) error

// Option configures a build.
type Option func(*config)

type config struct {
	registry      *task.Registry
	cache         *CompletionCache
	beforeRun     []Callback
	afterRun      []Callback
	checkVersions bool
	logger        *log.Logger
	runID         string
	workers       int
}

// WithRegistry sets the registry. Without it the registry is taken from the
// context.
func WithRegistry(r *task.Registry) Option {
	return func(c *config) { c.registry = r }
}

// WithCompletionCache shares a completion cache across builds.
func WithCompletionCache(cache *CompletionCache) Option {
	return func(c *config) { c.cache = cache }
}

// WithBeforeRun adds a callback invoked just before a task runs.
func WithBeforeRun(cb Callback) Option {
	return func(c *config) { c.beforeRun = append(c.beforeRun, cb) }
}

// WithAfterRun adds a callback invoked after a task ran successfully.
func WithAfterRun(cb Callback) Option {
	return func(c *config) { c.afterRun = append(c.afterRun, cb) }
}

// WithVersionCheck refuses to run tasks whose version differs from the one
// their kind expects.
func WithVersionCheck(enabled bool) Option {
	return func(c *config) { c.checkVersions = enabled }
}

// WithLogger sets the logger. Defaults to the standard logger.
func WithLogger(l *log.Logger) Option {
	return func(c *config) { c.logger = l }
}

// WithRunID overrides the generated run id.
func WithRunID(id string) Option {
	return func(c *config) { c.runID = id }
}

// WithWorkers bounds how many tasks Parallel runs at once.
func WithWorkers(n int) Option {
	return func(c *config) { c.workers = n }
}

func newConfig(opts []Option) *config {
	c := &config{}
	for _, opt := range opts {
		opt(c)
	}
	if c.cache == nil {
		c.cache = NewCompletionCache()
	}
	if c.logger == nil {
		c.logger = log.Default()
	}
	if c.workers <= 0 {
		c.workers = runtime.GOMAXPROCS(0)
	}
	return c
}

type runIDKey struct{}

// RunIDFrom returns the id of the build running the task that received ctx.
func RunIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(runIDKey{}).(string)
	return id
}
