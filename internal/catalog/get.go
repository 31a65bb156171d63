package catalog

import (
	"context"
	"fmt"

	"github.com/dyluth/stardag/pkg/redisstore"
	"github.com/dyluth/stardag/pkg/task"
)

// MinShortIDLength is the minimum required length for short task id prefixes.
const MinShortIDLength = 6

// Get resolves id (full or short) and returns its record.
func Get(ctx context.Context, client *redisstore.Client, id string) (*redisstore.Record, error) {
	full, err := Resolve(ctx, client, id)
	if err != nil {
		return nil, err
	}
	record, err := client.GetRecord(ctx, full)
	if err != nil {
		if redisstore.IsNotFound(err) {
			return nil, &NotFoundError{ID: id}
		}
		return nil, fmt.Errorf("failed to fetch record: %w", err)
	}
	return record, nil
}

// Load decodes the recorded spec of id into a task.
func Load(ctx context.Context, client *redisstore.Client, reg *task.Registry, id string) (task.Task, error) {
	record, err := Get(ctx, client, id)
	if err != nil {
		return nil, err
	}
	t, err := reg.UnmarshalTask([]byte(record.Spec))
	if err != nil {
		return nil, fmt.Errorf("failed to decode recorded spec of %s: %w", record.TaskID, err)
	}
	return t, nil
}

// Resolve expands a short task id prefix to the full id of a recorded task.
func Resolve(ctx context.Context, client *redisstore.Client, id string) (string, error) {
	if redisstore.IsTaskID(id) {
		_, err := client.GetRecord(ctx, id)
		if err != nil {
			if redisstore.IsNotFound(err) {
				return "", &NotFoundError{ID: id}
			}
			return "", fmt.Errorf("failed to verify record existence: %w", err)
		}
		return id, nil
	}

	if !redisstore.IsTaskIDPrefix(id) {
		return "", &InvalidIDError{ID: id}
	}
	if len(id) < MinShortIDLength {
		return "", fmt.Errorf("short ID must be at least %d characters (got %d)", MinShortIDLength, len(id))
	}

	matches, err := client.ScanRecords(ctx, id)
	if err != nil {
		return "", fmt.Errorf("failed to search for record: %w", err)
	}

	switch len(matches) {
	case 0:
		return "", &NotFoundError{ID: id}
	case 1:
		return matches[0], nil
	default:
		return "", &AmbiguousError{ShortID: id, Matches: matches}
	}
}
