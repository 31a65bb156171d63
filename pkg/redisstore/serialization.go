package redisstore

import (
	"fmt"
	"strconv"
)

// RecordToHash converts a Record to the Redis hash layout.
func RecordToHash(r *Record) map[string]interface{} {
	return map[string]interface{}{
		"task_id":       r.TaskID,
		"namespace":     r.Namespace,
		"family":        r.Family,
		"version":       r.Version,
		"spec":          r.Spec,
		"run_id":        r.RunID,
		"created_at_ms": r.CreatedAtMs,
	}
}

// HashToRecord converts a Redis hash back into a Record.
func HashToRecord(hash map[string]string) (*Record, error) {
	var createdAtMs int64
	if raw := hash["created_at_ms"]; raw != "" {
		ms, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid created_at_ms field: %w", err)
		}
		createdAtMs = ms
	}

	return &Record{
		TaskID:      hash["task_id"],
		Namespace:   hash["namespace"],
		Family:      hash["family"],
		Version:     hash["version"],
		Spec:        hash["spec"],
		RunID:       hash["run_id"],
		CreatedAtMs: createdAtMs,
	}, nil
}
