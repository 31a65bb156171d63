package catalog

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/dyluth/stardag/pkg/redisstore"
	"github.com/dyluth/stardag/pkg/task"
)

// OutputFormat specifies how to format the record list output.
type OutputFormat string

const (
	// OutputFormatDefault uses a table format with truncated specs
	OutputFormatDefault OutputFormat = "default"

	// OutputFormatJSONL outputs complete records as line-delimited JSON
	OutputFormatJSONL OutputFormat = "jsonl"
)

// Filter narrows a listing. All criteria are ANDed; zero values match all.
type Filter struct {
	SinceMs int64
	UntilMs int64
	KeyGlob string // glob on "namespace.family"
	RunID   string
}

func (f *Filter) matches(r *redisstore.Record) bool {
	if f.KeyGlob != "" {
		matched, err := filepath.Match(f.KeyGlob, task.Key(r.Namespace, r.Family))
		if err != nil || !matched {
			return false
		}
	}
	if f.RunID != "" && r.RunID != f.RunID {
		return false
	}
	return true
}

// List returns the records matching filter, oldest first.
func List(ctx context.Context, client *redisstore.Client, filter *Filter) ([]*redisstore.Record, error) {
	if filter == nil {
		filter = &Filter{}
	}

	records, err := client.ListRecords(ctx, filter.SinceMs, filter.UntilMs)
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}

	matched := records[:0]
	for _, r := range records {
		if filter.matches(r) {
			matched = append(matched, r)
		}
	}
	return matched, nil
}

// WriteList lists records and writes them in the requested format.
func WriteList(ctx context.Context, client *redisstore.Client, filter *Filter, format OutputFormat, w io.Writer) error {
	records, err := List(ctx, client, filter)
	if err != nil {
		return err
	}

	switch format {
	case OutputFormatDefault, "":
		FormatTable(w, records, client.InstanceName())
	case OutputFormatJSONL:
		if err := FormatJSONL(w, records); err != nil {
			return fmt.Errorf("failed to format JSONL output: %w", err)
		}
	default:
		return fmt.Errorf("unknown output format: %s", format)
	}
	return nil
}
