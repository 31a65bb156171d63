package task

import "context"

type registryKey struct{}

// WithRegistry returns a context carrying r.
func WithRegistry(ctx context.Context, r *Registry) context.Context {
	return context.WithValue(ctx, registryKey{}, r)
}

// RegistryFrom returns the registry carried by ctx.
func RegistryFrom(ctx context.Context) (*Registry, error) {
	r, ok := ctx.Value(registryKey{}).(*Registry)
	if !ok || r == nil {
		return nil, ErrNoRegistry
	}
	return r, nil
}

// ID computes the id of t with the registry carried by ctx.
func ID(ctx context.Context, t Task) (string, error) {
	r, err := RegistryFrom(ctx)
	if err != nil {
		return "", err
	}
	return r.ID(t)
}
