package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/redis/go-redis/v9"
	"gopkg.in/yaml.v3"

	"github.com/dyluth/stardag/pkg/redisstore"
	"github.com/dyluth/stardag/pkg/target"
)

// DefaultFile is the config file looked up in the working directory.
const DefaultFile = "stardag.yml"

// Config represents the top-level stardag.yml configuration
type Config struct {
	Version     string            `yaml:"version"`
	TargetRoots map[string]string `yaml:"target_roots,omitempty"` // root key -> root URI
	Redis       *RedisConfig      `yaml:"redis,omitempty"`
	Build       *BuildConfig      `yaml:"build,omitempty"`
	Catalog     *CatalogConfig    `yaml:"catalog,omitempty"`
}

// RedisConfig enables Redis-backed targets and the spec catalog
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	DB       int    `yaml:"db,omitempty"`
	Instance string `yaml:"instance,omitempty"` // key namespace, default "default"
	Prefix   string `yaml:"prefix,omitempty"`   // URI prefix routed to Redis, default "redis://"
}

// BuildConfig specifies build defaults
type BuildConfig struct {
	Workers       *int `yaml:"workers,omitempty"` // 1 = sequential (default)
	CheckVersions bool `yaml:"check_versions,omitempty"`
}

// CatalogConfig controls recording of built task specs
type CatalogConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	c := &Config{Version: "1.0"}
	if err := c.Validate(); err != nil {
		panic(err)
	}
	return c
}

// Validate performs strict validation and fills in defaults
func (c *Config) Validate() error {
	if c.Version != "1.0" {
		return fmt.Errorf("unsupported version: %s (expected: 1.0)", c.Version)
	}

	roots := make(map[string]string, len(c.TargetRoots)+1)
	for key, uri := range c.TargetRoots {
		if key == "" {
			return fmt.Errorf("target_roots: empty root key")
		}
		if uri == "" {
			return fmt.Errorf("target_roots.%s: root URI is required", key)
		}
		resolved, err := resolveRoot(uri)
		if err != nil {
			return fmt.Errorf("target_roots.%s: %w", key, err)
		}
		roots[key] = resolved
	}
	if _, ok := roots[target.DefaultRootKey]; !ok {
		roots[target.DefaultRootKey] = target.DefaultRoots()[target.DefaultRootKey]
	}
	c.TargetRoots = roots

	if c.Redis != nil {
		if c.Redis.Addr == "" {
			return fmt.Errorf("redis.addr is required when redis is configured")
		}
		if c.Redis.DB < 0 {
			return fmt.Errorf("redis.db must be >= 0, got %d", c.Redis.DB)
		}
		if c.Redis.Instance == "" {
			c.Redis.Instance = "default"
		}
		if c.Redis.Prefix == "" {
			c.Redis.Prefix = target.RedisPrefix
		}
	}

	if c.Build == nil {
		c.Build = &BuildConfig{}
	}
	if c.Build.Workers == nil {
		workers := 1
		c.Build.Workers = &workers
	}
	if *c.Build.Workers < 1 {
		return fmt.Errorf("build.workers must be >= 1, got %d", *c.Build.Workers)
	}

	if c.Catalog == nil {
		c.Catalog = &CatalogConfig{}
	}
	if c.Catalog.Enabled && c.Redis == nil {
		return fmt.Errorf("catalog.enabled requires a redis section")
	}

	return nil
}

// RedisOptions returns the go-redis options, or nil without a redis section.
func (c *Config) RedisOptions() *redis.Options {
	if c.Redis == nil {
		return nil
	}
	return &redis.Options{Addr: c.Redis.Addr, DB: c.Redis.DB}
}

// Factory builds the target factory for the configured roots. Redis targets
// are routed only when client is not nil.
func (c *Config) Factory(client *redisstore.Client, rules ...target.PrefixRule) *target.Factory {
	if client != nil && c.Redis != nil {
		rules = append(rules, target.RedisRule(client, c.Redis.Prefix))
	}
	return target.NewFactory(target.WithRoots(c.TargetRoots), target.WithPrefix(rules...))
}

// Load reads and validates stardag.yml from the specified path
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// LoadOrDefault is Load, falling back to Default when path does not exist.
func LoadOrDefault(path string) (*Config, error) {
	config, err := Load(path)
	if err != nil && errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return config, err
}

// resolveRoot expands "~" and makes local paths absolute, since target URIs
// are matched against absolute-path prefixes. URIs with a scheme pass through.
func resolveRoot(uri string) (string, error) {
	if strings.Contains(uri, "://") {
		return uri, nil
	}
	if uri == "~" || strings.HasPrefix(uri, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to resolve home directory: %w", err)
		}
		uri = filepath.Join(home, strings.TrimPrefix(uri, "~"))
	}
	abs, err := filepath.Abs(uri)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", uri, err)
	}
	return abs, nil
}
