package catalog

import (
	"errors"
	"fmt"
	"strings"
)

// NotFoundError indicates no recorded task matched the id.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no recorded task matching '%s'", e.ID)
}

// InvalidIDError indicates an id that is not lowercase hex.
type InvalidIDError struct {
	ID string
}

func (e *InvalidIDError) Error() string {
	return fmt.Sprintf("invalid task ID '%s': expected lowercase hex characters", e.ID)
}

// FilterError reports a listing flag that could not be understood.
type FilterError struct {
	Flag  string
	Value string
	Err   error
}

func (e *FilterError) Error() string {
	return fmt.Sprintf("invalid --%s '%s': %v", e.Flag, e.Value, e.Err)
}

func (e *FilterError) Unwrap() error {
	return e.Err
}

// AmbiguousError indicates multiple recorded tasks matched a short id.
type AmbiguousError struct {
	ShortID string
	Matches []string
}

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("ambiguous short ID '%s' matches %d tasks", e.ShortID, len(e.Matches))
}

// Details lists the matching ids, up to 10.
func (e *AmbiguousError) Details() string {
	var b strings.Builder
	shown := min(len(e.Matches), 10)
	for _, id := range e.Matches[:shown] {
		fmt.Fprintf(&b, "  %s\n", id)
	}
	if len(e.Matches) > shown {
		fmt.Fprintf(&b, "  ...and %d more\n", len(e.Matches)-shown)
	}
	return b.String()
}

func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

func IsAmbiguous(err error) bool {
	var amb *AmbiguousError
	return errors.As(err, &amb)
}
