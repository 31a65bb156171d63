package task

import "context"

// RunChecked runs t after checking its declared version against the version
// its kind expects.
func RunChecked(ctx context.Context, r *Registry, t Task) error {
	if err := r.CheckVersion(t); err != nil {
		return err
	}
	return t.Run(ctx)
}
