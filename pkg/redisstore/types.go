// Package redisstore provides the Redis-backed storage used by stardag: raw
// target objects written by tasks, and spec records describing tasks that a
// build has run.
//
// All Redis keys are namespaced by instance name so several stardag
// deployments can share a single Redis server.
package redisstore

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Record describes a task that a build has run. The Spec field holds the
// task's reference JSON, which is enough to decode and rebuild the task later.
type Record struct {
	TaskID      string `json:"task_id"`       // SHA-1 hex task identifier
	Namespace   string `json:"namespace"`     // Task namespace (may be empty)
	Family      string `json:"family"`        // Task family
	Version     string `json:"version"`       // Declared task version (may be empty)
	Spec        string `json:"spec"`          // Task reference JSON
	RunID       string `json:"run_id"`        // UUID of the build invocation that ran the task
	CreatedAtMs int64  `json:"created_at_ms"` // Unix timestamp in milliseconds
}

// Validate checks the record's required fields and formats.
func (r *Record) Validate() error {
	if !IsTaskID(r.TaskID) {
		return fmt.Errorf("task_id must be 40 lowercase hex characters: %q", r.TaskID)
	}

	if r.Family == "" {
		return fmt.Errorf("family is required")
	}

	if r.Spec == "" {
		return fmt.Errorf("spec is required")
	}
	if !json.Valid([]byte(r.Spec)) {
		return fmt.Errorf("spec must be valid JSON")
	}

	if _, err := uuid.Parse(r.RunID); err != nil {
		return fmt.Errorf("run_id must be a valid UUID: %w", err)
	}

	return nil
}

// IsTaskID reports whether s looks like a task identifier (40 lowercase hex chars).
func IsTaskID(s string) bool {
	return len(s) == 40 && isLowerHex(s)
}

// IsTaskIDPrefix reports whether s can be the start of a task identifier.
func IsTaskIDPrefix(s string) bool {
	return len(s) > 0 && len(s) <= 40 && isLowerHex(s)
}

func isLowerHex(s string) bool {
	for _, c := range s {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')) {
			return false
		}
	}
	return true
}
