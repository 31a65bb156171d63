package target

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DefaultRootKey is the root used when a task does not ask for another one.
const DefaultRootKey = "default"

// PrefixRule maps URIs starting with Prefix to a target implementation.
type PrefixRule struct {
	Prefix string
	New    func(path string) FileSystemTarget
}

// LocalRule routes absolute file paths to LocalTarget.
func LocalRule() PrefixRule {
	return PrefixRule{
		Prefix: "/",
		New: func(path string) FileSystemTarget {
			return NewLocalTarget(path)
		},
	}
}

// Factory resolves task-relative paths against configured roots and builds
// the target implementation matching the resulting URI.
type Factory struct {
	roots map[string]string
	rules []PrefixRule
}

// FactoryOption configures a Factory.
type FactoryOption func(*Factory)

// WithRoots replaces the root table.
func WithRoots(roots map[string]string) FactoryOption {
	return func(f *Factory) {
		f.roots = make(map[string]string, len(roots))
		for k, v := range roots {
			f.roots[k] = v
		}
	}
}

// WithRoot sets a single root.
func WithRoot(key, uri string) FactoryOption {
	return func(f *Factory) {
		f.roots[key] = uri
	}
}

// WithPrefix adds prefix rules. They are consulted before the built-in local
// rule, in the order given.
func WithPrefix(rules ...PrefixRule) FactoryOption {
	return func(f *Factory) {
		f.rules = append(f.rules, rules...)
	}
}

// NewFactory builds a factory. Without options it has a single "default" root
// under ~/.stardag/target-roots and routes absolute paths to LocalTarget.
func NewFactory(opts ...FactoryOption) *Factory {
	f := &Factory{roots: DefaultRoots()}
	for _, opt := range opts {
		opt(f)
	}
	f.rules = append(f.rules, LocalRule())

	for key, root := range f.roots {
		f.roots[key] = strings.TrimSuffix(root, "/") + "/"
	}

	return f
}

// DefaultRoots returns the built-in root table.
func DefaultRoots() map[string]string {
	base := filepath.Join(".stardag", "target-roots", DefaultRootKey)
	if home, err := os.UserHomeDir(); err == nil {
		base = filepath.Join(home, base)
	} else if abs, err := filepath.Abs(base); err == nil {
		base = abs
	}
	return map[string]string{DefaultRootKey: base}
}

// Roots returns a copy of the normalised root table.
func (f *Factory) Roots() map[string]string {
	roots := make(map[string]string, len(f.roots))
	for k, v := range f.roots {
		roots[k] = v
	}
	return roots
}

// RootKeys returns the configured root keys, sorted.
func (f *Factory) RootKeys() []string {
	keys := make([]string, 0, len(f.roots))
	for k := range f.roots {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Path joins the root for rootKey with relpath. The relative path is appended
// verbatim.
func (f *Factory) Path(relpath, rootKey string) (string, error) {
	if rootKey == "" {
		rootKey = DefaultRootKey
	}
	root, ok := f.roots[rootKey]
	if !ok {
		return "", &ConfigError{Msg: fmt.Sprintf("unknown target root %q (configured: %s)", rootKey, strings.Join(f.RootKeys(), ", "))}
	}
	return root + relpath, nil
}

// Get returns the target for relpath under rootKey.
func (f *Factory) Get(relpath, rootKey string) (FileSystemTarget, error) {
	path, err := f.Path(relpath, rootKey)
	if err != nil {
		return nil, err
	}
	return f.Open(path)
}

// Open returns the target for a full URI using the first matching prefix rule.
func (f *Factory) Open(uri string) (FileSystemTarget, error) {
	for _, rule := range f.rules {
		if strings.HasPrefix(uri, rule.Prefix) {
			return rule.New(uri), nil
		}
	}
	return nil, &ConfigError{Msg: fmt.Sprintf("URI %s does not match any prefixes", uri)}
}
