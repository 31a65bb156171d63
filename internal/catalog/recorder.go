// Package catalog records the reference of every task a build ran in Redis,
// so past builds can be listed, inspected and rebuilt from their specs.
package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/dyluth/stardag/pkg/build"
	"github.com/dyluth/stardag/pkg/redisstore"
	"github.com/dyluth/stardag/pkg/task"
)

// Recorder returns an after-run callback storing a record for each task that
// ran. Records are keyed by task id; rebuilding a task refreshes its record.
func Recorder(client *redisstore.Client) build.Callback {
	return func(ctx context.Context, t task.Task) error {
		record, err := NewRecord(ctx, t)
		if err != nil {
			return err
		}
		if err := client.PutRecord(ctx, record); err != nil {
			return fmt.Errorf("failed to record %s: %w", record.TaskID, err)
		}
		return nil
	}
}

// NewRecord describes t using the registry and run id carried by ctx.
func NewRecord(ctx context.Context, t task.Task) (*redisstore.Record, error) {
	reg, err := task.RegistryFrom(ctx)
	if err != nil {
		return nil, err
	}
	kind, err := reg.KindOf(t)
	if err != nil {
		return nil, err
	}
	id, err := reg.ID(t)
	if err != nil {
		return nil, err
	}
	spec, err := reg.MarshalTask(t)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", kind.Key(), err)
	}

	return &redisstore.Record{
		TaskID:      id,
		Namespace:   kind.Namespace,
		Family:      kind.Family,
		Version:     task.Version(t),
		Spec:        string(spec),
		RunID:       build.RunIDFrom(ctx),
		CreatedAtMs: time.Now().UnixMilli(),
	}, nil
}
