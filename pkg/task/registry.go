package task

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
)

// Kind is a registered task type.
type Kind struct {
	Namespace       string
	Family          string
	ExpectedVersion string
	Type            reflect.Type // pointer-to-struct type

	params []param
}

// Key returns the kind's namespace_family key.
func (k *Kind) Key() string {
	return Key(k.Namespace, k.Family)
}

// Params returns the parameter names in declaration order.
func (k *Kind) Params() []string {
	names := make([]string, len(k.params))
	for i, p := range k.params {
		names[i] = p.name
	}
	return names
}

// New returns a zero-valued task of this kind.
func (k *Kind) New() Task {
	return reflect.New(k.Type.Elem()).Interface().(Task)
}

// Key joins namespace and family: "ns.family", or "family" for an empty namespace.
func Key(namespace, family string) string {
	if namespace == "" {
		return family
	}
	return namespace + "." + family
}

// Registry maps namespace/family keys to task types. It is built once by
// NewRegistry and read-only afterwards; it is safe for concurrent use.
type Registry struct {
	kinds  map[string]*Kind
	byType map[reflect.Type]*Kind
	ids    sync.Map // weak.Pointer[Meta] -> task id
}

// Option configures NewRegistry.
type Option func(*registryBuilder)

// TypeOption configures the registration of one type.
type TypeOption func(*typeSpec)

type registryBuilder struct {
	packageNamespaces map[string]string
	specs             []*typeSpec
}

type typeSpec struct {
	typ             reflect.Type
	family          *string
	namespace       *string
	expectedVersion *string
	params          map[string]ParameterConfig
}

// Register adds task type T (a pointer to a struct embedding Meta).
func Register[T Task](opts ...TypeOption) Option {
	return func(b *registryBuilder) {
		spec := &typeSpec{
			typ:    reflect.TypeFor[T](),
			params: make(map[string]ParameterConfig),
		}
		for _, opt := range opts {
			opt(spec)
		}
		b.specs = append(b.specs, spec)
	}
}

// WithPackageNamespace sets the namespace for task types declared in pkgPath
// or any package below it. The longest matching package path wins.
func WithPackageNamespace(pkgPath, namespace string) Option {
	return func(b *registryBuilder) {
		b.packageNamespaces[pkgPath] = namespace
	}
}

// Family overrides the family for one registration.
func Family(name string) TypeOption {
	return func(s *typeSpec) { s.family = &name }
}

// Namespace overrides the namespace for one registration. An empty string
// forces the empty namespace.
func Namespace(ns string) TypeOption {
	return func(s *typeSpec) { s.namespace = &ns }
}

// ExpectedVersion sets the version checked runs require.
func ExpectedVersion(v string) TypeOption {
	return func(s *typeSpec) { s.expectedVersion = &v }
}

// Param sets the hashing policy of one parameter.
func Param(name string, cfg ParameterConfig) TypeOption {
	return func(s *typeSpec) { s.params[name] = cfg }
}

// NewRegistry builds a registry. Registering a type twice, or two types under
// the same key, is an error.
func NewRegistry(opts ...Option) (*Registry, error) {
	b := &registryBuilder{packageNamespaces: make(map[string]string)}
	for _, opt := range opts {
		opt(b)
	}

	r := &Registry{
		kinds:  make(map[string]*Kind),
		byType: make(map[reflect.Type]*Kind),
	}

	for _, spec := range b.specs {
		kind, err := b.resolve(spec)
		if err != nil {
			return nil, err
		}
		if existing, ok := r.byType[kind.Type]; ok {
			return nil, &DuplicateError{Key: existing.Key(), Existing: existing.Type, Duplicate: kind.Type}
		}
		if existing, ok := r.kinds[kind.Key()]; ok {
			return nil, &DuplicateError{Key: kind.Key(), Existing: existing.Type, Duplicate: kind.Type}
		}
		r.kinds[kind.Key()] = kind
		r.byType[kind.Type] = kind
	}

	return r, nil
}

// MustRegistry is NewRegistry that panics on error, for package-level setup.
func MustRegistry(opts ...Option) *Registry {
	r, err := NewRegistry(opts...)
	if err != nil {
		panic(err)
	}
	return r
}

func (b *registryBuilder) resolve(spec *typeSpec) (*Kind, error) {
	typ := spec.typ
	if typ.Kind() != reflect.Pointer || typ.Elem().Kind() != reflect.Struct {
		return nil, fmt.Errorf("task type %v must be a pointer to a struct", typ)
	}
	st := typ.Elem()
	class := classTag(st)

	kind := &Kind{Type: typ}

	// family: registration > class tag > type name
	switch {
	case spec.family != nil:
		kind.Family = *spec.family
	case class["family"] != nil && *class["family"] != "":
		kind.Family = *class["family"]
	default:
		kind.Family = st.Name()
	}
	if kind.Family == "" {
		return nil, fmt.Errorf("task type %v has no family", typ)
	}

	// namespace: registration > class tag > package table > empty
	switch {
	case spec.namespace != nil:
		kind.Namespace = *spec.namespace
	case class["namespace"] != nil:
		kind.Namespace = *class["namespace"]
	default:
		kind.Namespace = b.packageNamespace(st.PkgPath())
	}

	switch {
	case spec.expectedVersion != nil:
		kind.ExpectedVersion = *spec.expectedVersion
	case class["version"] != nil:
		kind.ExpectedVersion = *class["version"]
	}

	if err := collectParams(st, nil, &kind.params); err != nil {
		return nil, fmt.Errorf("task type %v: %w", typ, err)
	}

	seen := make(map[string]bool, len(kind.params))
	for _, p := range kind.params {
		if p.name == namespaceTag || p.name == familyTag {
			return nil, fmt.Errorf("task type %v: parameter name %q is reserved", typ, p.name)
		}
		if seen[p.name] {
			return nil, fmt.Errorf("task type %v: duplicate parameter %q", typ, p.name)
		}
		seen[p.name] = true
	}

	for name, cfg := range spec.params {
		found := false
		for i := range kind.params {
			if kind.params[i].name == name {
				kind.params[i].config = cfg
				found = true
			}
		}
		if !found {
			return nil, fmt.Errorf("task type %v has no parameter %q", typ, name)
		}
	}
	for i := range kind.params {
		kind.params[i].config = kind.params[i].config.withDefaults()
	}

	return kind, nil
}

func (b *registryBuilder) packageNamespace(pkgPath string) string {
	best := -1
	ns := ""
	for prefix, namespace := range b.packageNamespaces {
		if pkgPath != prefix && !strings.HasPrefix(pkgPath, prefix+"/") {
			continue
		}
		if len(prefix) > best {
			best = len(prefix)
			ns = namespace
		}
	}
	return ns
}

// Lookup returns the kind registered under namespace and family.
func (r *Registry) Lookup(namespace, family string) (*Kind, error) {
	kind, ok := r.kinds[Key(namespace, family)]
	if !ok {
		return nil, &NotFoundError{Namespace: namespace, Family: family}
	}
	return kind, nil
}

// KindOf returns the kind of t's type.
func (r *Registry) KindOf(t Task) (*Kind, error) {
	typ := reflect.TypeOf(t)
	kind, ok := r.byType[typ]
	if !ok {
		return nil, fmt.Errorf("%w: %v", ErrUnregistered, typ)
	}
	return kind, nil
}

// Namespace returns the namespace of t's kind.
func (r *Registry) Namespace(t Task) (string, error) {
	kind, err := r.KindOf(t)
	if err != nil {
		return "", err
	}
	return kind.Namespace, nil
}

// Family returns the family of t's kind.
func (r *Registry) Family(t Task) (string, error) {
	kind, err := r.KindOf(t)
	if err != nil {
		return "", err
	}
	return kind.Family, nil
}

// Kinds returns all registered kinds sorted by key.
func (r *Registry) Kinds() []*Kind {
	kinds := make([]*Kind, 0, len(r.kinds))
	for _, k := range r.kinds {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i].Key() < kinds[j].Key() })
	return kinds
}

// Label returns "ns.family" for registered tasks and the Go type otherwise.
// Meant for logs and error messages.
func (r *Registry) Label(t Task) string {
	if kind, err := r.KindOf(t); err == nil {
		return kind.Key()
	}
	return fmt.Sprintf("%T", t)
}

// CheckVersion returns a VersionMismatchError if t's declared version differs
// from the version its kind expects.
func (r *Registry) CheckVersion(t Task) error {
	kind, err := r.KindOf(t)
	if err != nil {
		return err
	}
	if actual := Version(t); actual != kind.ExpectedVersion {
		return &VersionMismatchError{
			Namespace: kind.Namespace,
			Family:    kind.Family,
			Expected:  kind.ExpectedVersion,
			Actual:    actual,
		}
	}
	return nil
}
