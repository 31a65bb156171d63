package redisstore

import "fmt"

// Redis key pattern helpers
//
// Key pattern: stardag:{instance_name}:{entity}:{id}

// ObjectKey returns the Redis key holding the bytes of a target object.
// Pattern: stardag:{instance_name}:object:{path}
func ObjectKey(instanceName, path string) string {
	return fmt.Sprintf("stardag:%s:object:%s", instanceName, path)
}

// RecordKey returns the Redis key for a spec record hash.
// Pattern: stardag:{instance_name}:record:{task_id}
func RecordKey(instanceName, taskID string) string {
	return fmt.Sprintf("stardag:%s:record:%s", instanceName, taskID)
}

// RecordIndexKey returns the key of the ZSET indexing records by creation time.
// Pattern: stardag:{instance_name}:records
func RecordIndexKey(instanceName string) string {
	return fmt.Sprintf("stardag:%s:records", instanceName)
}
