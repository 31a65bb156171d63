package redisstore

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"
)

// Client provides instance-scoped Redis operations for stardag.
// All keys are automatically namespaced with the instance name.
// The client is safe for concurrent use.
type Client struct {
	rdb          *redis.Client
	instanceName string
}

// NewClient creates a new store client for the specified instance.
//
// Parameters:
//   - redisOpts: Redis connection options (address, password, DB, etc.)
//   - instanceName: stardag instance identifier (must not be empty)
//
// Returns an error if instanceName is empty.
func NewClient(redisOpts *redis.Options, instanceName string) (*Client, error) {
	if instanceName == "" {
		return nil, fmt.Errorf("instance name cannot be empty")
	}

	return &Client{
		rdb:          redis.NewClient(redisOpts),
		instanceName: instanceName,
	}, nil
}

// InstanceName returns the namespace used for all keys.
func (c *Client) InstanceName() string {
	return c.instanceName
}

// Close closes the Redis connection. Implements io.Closer.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Ping verifies Redis connectivity.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// PutObject stores the bytes of a target object. A single SET, so readers see
// either the previous value or the complete new one.
func (c *Client) PutObject(ctx context.Context, path string, data []byte) error {
	if err := c.rdb.Set(ctx, ObjectKey(c.instanceName, path), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to write object %s: %w", path, err)
	}
	return nil
}

// GetObject returns the bytes of a target object.
// Returns an error wrapping redis.Nil if the object doesn't exist; use IsNotFound.
func (c *Client) GetObject(ctx context.Context, path string) ([]byte, error) {
	data, err := c.rdb.Get(ctx, ObjectKey(c.instanceName, path)).Bytes()
	if err != nil {
		return nil, fmt.Errorf("failed to read object %s: %w", path, err)
	}
	return data, nil
}

// ObjectExists checks if an object exists without fetching it.
func (c *Client) ObjectExists(ctx context.Context, path string) (bool, error) {
	n, err := c.rdb.Exists(ctx, ObjectKey(c.instanceName, path)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check object existence: %w", err)
	}
	return n > 0, nil
}

// DeleteObject removes an object. Deleting a missing object is not an error.
func (c *Client) DeleteObject(ctx context.Context, path string) error {
	if err := c.rdb.Del(ctx, ObjectKey(c.instanceName, path)).Err(); err != nil {
		return fmt.Errorf("failed to delete object %s: %w", path, err)
	}
	return nil
}

// PutRecord validates and stores a spec record, and indexes it by creation time.
// Writing the same task id again replaces the record.
func (c *Client) PutRecord(ctx context.Context, r *Record) error {
	if err := r.Validate(); err != nil {
		return fmt.Errorf("invalid record: %w", err)
	}

	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, RecordKey(c.instanceName, r.TaskID), RecordToHash(r))
		pipe.ZAdd(ctx, RecordIndexKey(c.instanceName), redis.Z{
			Score:  float64(r.CreatedAtMs),
			Member: r.TaskID,
		})
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to write record to Redis: %w", err)
	}

	return nil
}

// GetRecord retrieves a spec record by full task id.
// Returns (nil, redis.Nil) if the record doesn't exist.
func (c *Client) GetRecord(ctx context.Context, taskID string) (*Record, error) {
	hash, err := c.rdb.HGetAll(ctx, RecordKey(c.instanceName, taskID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read record from Redis: %w", err)
	}

	// HGetAll returns an empty map for missing keys
	if len(hash) == 0 {
		return nil, redis.Nil
	}

	r, err := HashToRecord(hash)
	if err != nil {
		return nil, fmt.Errorf("failed to deserialize record: %w", err)
	}
	return r, nil
}

// ListRecords returns records created within [sinceMs, untilMs], oldest first.
// A zero bound means unbounded on that side.
func (c *Client) ListRecords(ctx context.Context, sinceMs, untilMs int64) ([]*Record, error) {
	rng := &redis.ZRangeBy{Min: "-inf", Max: "+inf"}
	if sinceMs > 0 {
		rng.Min = strconv.FormatInt(sinceMs, 10)
	}
	if untilMs > 0 {
		rng.Max = strconv.FormatInt(untilMs, 10)
	}

	ids, err := c.rdb.ZRangeByScore(ctx, RecordIndexKey(c.instanceName), rng).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read record index: %w", err)
	}

	records := make([]*Record, 0, len(ids))
	for _, id := range ids {
		r, err := c.GetRecord(ctx, id)
		if err != nil {
			if IsNotFound(err) {
				// Index entry without a record; skip
				continue
			}
			return nil, err
		}
		records = append(records, r)
	}

	return records, nil
}

// ScanRecords returns the full task ids of records whose id starts with prefix,
// sorted lexicographically.
func (c *Client) ScanRecords(ctx context.Context, prefix string) ([]string, error) {
	// The prefix becomes part of a SCAN pattern
	if !IsTaskIDPrefix(prefix) {
		return nil, fmt.Errorf("task id prefix must be lowercase hex: %q", prefix)
	}
	keyPrefix := RecordKey(c.instanceName, "")
	pattern := keyPrefix + prefix + "*"

	var ids []string
	var cursor uint64
	for {
		keys, next, err := c.rdb.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to scan records: %w", err)
		}
		for _, key := range keys {
			ids = append(ids, strings.TrimPrefix(key, keyPrefix))
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}

	// SCAN may return a key more than once
	sort.Strings(ids)
	return slices.Compact(ids), nil
}

// IsNotFound returns true if the error is a Redis "key not found" error (redis.Nil).
func IsNotFound(err error) bool {
	return errors.Is(err, redis.Nil)
}
