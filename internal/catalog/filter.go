package catalog

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewFilter builds a Filter from the hoard command's flags. since and until
// take an age ("90m", "2d") or a timestamp ("2025-10-29T13:00:00Z" or
// "2025-10-29"); empty strings leave that end open.
func NewFilter(since, until, keyGlob, runID string) (*Filter, error) {
	now := time.Now()
	f := &Filter{KeyGlob: keyGlob, RunID: runID}

	var err error
	if f.SinceMs, err = boundMs(since, now); err != nil {
		return nil, &FilterError{Flag: "since", Value: since, Err: err}
	}
	if f.UntilMs, err = boundMs(until, now); err != nil {
		return nil, &FilterError{Flag: "until", Value: until, Err: err}
	}
	if f.SinceMs > 0 && f.UntilMs > 0 && f.SinceMs >= f.UntilMs {
		return nil, &FilterError{Flag: "until", Value: until, Err: fmt.Errorf("must be later than --since %s", since)}
	}

	if keyGlob != "" {
		if _, err := filepath.Match(keyGlob, ""); err != nil {
			return nil, &FilterError{Flag: "task", Value: keyGlob, Err: err}
		}
	}
	if runID != "" {
		if _, err := uuid.Parse(runID); err != nil {
			return nil, &FilterError{Flag: "run", Value: runID, Err: err}
		}
	}
	return f, nil
}

// boundMs converts a time bound to Unix milliseconds; 0 means unbounded.
func boundMs(spec string, now time.Time) (int64, error) {
	if spec == "" {
		return 0, nil
	}
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, spec); err == nil {
			return t.UnixMilli(), nil
		}
	}

	age, err := parseAge(spec)
	if err != nil {
		return 0, err
	}
	return now.Add(-age).UnixMilli(), nil
}

// parseAge accepts Go durations plus a whole-day suffix, "7d".
func parseAge(spec string) (time.Duration, error) {
	if days, ok := strings.CutSuffix(spec, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("expected an age like 90m or 2d, or a timestamp")
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	d, err := time.ParseDuration(spec)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("expected an age like 90m or 2d, or a timestamp")
	}
	return d, nil
}
