package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/dyluth/stardag/internal/catalog"
	"github.com/dyluth/stardag/internal/config"
	"github.com/dyluth/stardag/internal/printer"
	"github.com/dyluth/stardag/pkg/redisstore"
	"github.com/dyluth/stardag/pkg/target"
	"github.com/dyluth/stardag/pkg/task"
)

// env resolves settings from flags, STARDAG_* variables and stardag.yml, in
// that order of precedence.
type env struct {
	v *viper.Viper
}

// session is what a command runs against: the validated config, the task
// registry, and a context carrying the registry and target factory.
type session struct {
	ctx    context.Context
	cfg    *config.Config
	reg    *task.Registry
	client *redisstore.Client
}

func (e *env) open(ctx context.Context) (*session, error) {
	if registry == nil {
		return nil, printer.Error(
			"no task registry",
			"This binary was built without any task types.",
			[]string{"Call commands.SetRegistry before commands.Execute"},
		)
	}

	cfg, err := e.loadConfig()
	if err != nil {
		return nil, err
	}

	s := &session{cfg: cfg, reg: registry}
	if cfg.Redis != nil {
		client, err := redisstore.NewClient(cfg.RedisOptions(), cfg.Redis.Instance)
		if err != nil {
			return nil, fmt.Errorf("failed to create Redis client: %w", err)
		}
		if err := client.Ping(ctx); err != nil {
			client.Close()
			return nil, printer.ErrorWithContext(
				"Redis connection failed",
				fmt.Sprintf("Could not connect to Redis at %s", cfg.Redis.Addr),
				map[string]string{"Instance": cfg.Redis.Instance},
				[]string{"Check that Redis is running, or remove the redis section from stardag.yml"},
			)
		}
		s.client = client
	}

	ctx = target.WithFactory(ctx, cfg.Factory(s.client))
	s.ctx = task.WithRegistry(ctx, s.reg)
	return s, nil
}

func (e *env) loadConfig() (*config.Config, error) {
	path := e.v.GetString("config")

	var cfg *config.Config
	var err error
	if e.v.IsSet("config") {
		cfg, err = config.Load(path)
	} else {
		cfg, err = config.LoadOrDefault(path)
	}
	if err != nil {
		return nil, printer.ErrorWithContext(
			"invalid configuration",
			err.Error(),
			map[string]string{"File": path},
			[]string{fmt.Sprintf("Fix %s, or point --config at another file", path)},
		)
	}

	if e.v.IsSet("root") {
		cfg.TargetRoots[target.DefaultRootKey] = e.v.GetString("root")
	}
	if e.v.IsSet("workers") {
		workers := e.v.GetInt("workers")
		cfg.Build.Workers = &workers
	}
	if err := cfg.Validate(); err != nil {
		return nil, printer.Error("invalid settings", err.Error(), nil)
	}
	return cfg, nil
}

func (s *session) Close() {
	if s.client != nil {
		s.client.Close()
	}
}

// readSpec decodes the reference JSON in path ("-" reads stdin).
func (s *session) readSpec(path string, stdin io.Reader) (task.Task, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, printer.Error(
			fmt.Sprintf("cannot read task spec '%s'", path),
			err.Error(),
			nil,
		)
	}

	t, err := s.reg.UnmarshalTask(data)
	if err != nil {
		return nil, printer.ErrorWithContext(
			"invalid task spec",
			err.Error(),
			map[string]string{"File": path},
			[]string{fmt.Sprintf("Known task kinds:\n  %s", kindList(s.reg))},
		)
	}
	return t, nil
}

// resolveTask reads arg as a spec file, or failing that as a recorded task
// id when the catalog is available.
func (s *session) resolveTask(arg string, stdin io.Reader) (task.Task, error) {
	if _, err := os.Stat(arg); err == nil || arg == "-" || s.client == nil {
		return s.readSpec(arg, stdin)
	}

	t, err := catalog.Load(s.ctx, s.client, s.reg, arg)
	if err != nil {
		return nil, catalogError(arg, err)
	}
	return t, nil
}

func catalogError(id string, err error) error {
	switch {
	case catalog.IsNotFound(err):
		return printer.Error(
			fmt.Sprintf("task '%s' not found", id),
			"No spec file by that name and no recorded task with that id.",
			[]string{"List recorded tasks:\n  stardag hoard"},
		)
	case catalog.IsAmbiguous(err):
		var amb *catalog.AmbiguousError
		if errors.As(err, &amb) {
			return printer.Error(
				amb.Error(),
				"Matching tasks:\n"+amb.Details(),
				[]string{"Use more characters of the id"},
			)
		}
	}
	return printer.Error(fmt.Sprintf("cannot load task '%s'", id), err.Error(), nil)
}

func requireCatalog(s *session) error {
	if s.client == nil {
		return printer.Error(
			"catalog not configured",
			"Recorded tasks are kept in Redis, and stardag.yml has no redis section.",
			[]string{"Add to stardag.yml:\n  redis:\n    addr: localhost:6379\n  catalog:\n    enabled: true"},
		)
	}
	return nil
}

func kindList(reg *task.Registry) string {
	kinds := reg.Kinds()
	keys := make([]string, len(kinds))
	for i, k := range kinds {
		keys[i] = k.Key()
	}
	return strings.Join(keys, "\n  ")
}
