package catalog

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/dyluth/stardag/pkg/redisstore"
	"github.com/dyluth/stardag/pkg/task"
)

// FormatTable writes records as a table with columns ID, TASK, VERSION, RUN,
// AGE and SPEC (truncated). Returns the number of records written.
func FormatTable(w io.Writer, records []*redisstore.Record, instanceName string) int {
	if len(records) == 0 {
		fmt.Fprintf(w, "No recorded tasks for instance '%s'\n", instanceName)
		return 0
	}

	fmt.Fprintf(w, "Recorded tasks for instance '%s':\n\n", instanceName)
	fmt.Fprintf(w, "%-10s %-24s %-5s %-8s %-8s %s\n", "ID", "TASK", "VER", "RUN", "AGE", "SPEC")
	fmt.Fprintf(w, "%-10s %-24s %-5s %-8s %-8s %s\n",
		"----------", "------------------------", "-----", "--------", "--------", "----------------------------------------")

	for _, r := range records {
		fmt.Fprintf(w, "%-10s %-24s %-5s %-8s %-8s %s\n",
			truncate(r.TaskID, 8),
			truncateEllipsis(task.Key(r.Namespace, r.Family), 24),
			dash(r.Version),
			dash(truncate(r.RunID, 8)),
			formatAge(r.CreatedAtMs),
			truncateEllipsis(r.Spec, 40),
		)
	}

	noun := "task"
	if len(records) != 1 {
		noun = "tasks"
	}
	fmt.Fprintf(w, "\n%d %s found\n", len(records), noun)
	return len(records)
}

// FormatJSONL writes one compact JSON record per line.
func FormatJSONL(w io.Writer, records []*redisstore.Record) error {
	for _, r := range records {
		data, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("failed to marshal record to JSON: %w", err)
		}
		if _, err := fmt.Fprintf(w, "%s\n", data); err != nil {
			return fmt.Errorf("failed to write JSONL output: %w", err)
		}
	}
	return nil
}

// FormatSingleJSON writes one record as indented JSON, with the spec
// embedded as an object.
func FormatSingleJSON(w io.Writer, r *redisstore.Record) error {
	view := struct {
		*redisstore.Record
		Spec json.RawMessage `json:"spec"`
	}{Record: r, Spec: json.RawMessage(r.Spec)}

	data, err := json.MarshalIndent(view, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal record to JSON: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write JSON output: %w", err)
	}
	fmt.Fprintln(w)
	return nil
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

func truncateEllipsis(s string, n int) string {
	if len(s) > n {
		return s[:n-3] + "..."
	}
	return s
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// formatAge renders a millisecond timestamp relative to now: "5s ago", "2h ago".
func formatAge(ms int64) string {
	if ms == 0 {
		return "-"
	}
	diff := time.Since(time.UnixMilli(ms))
	switch {
	case diff < time.Minute:
		return fmt.Sprintf("%ds ago", int(diff.Seconds()))
	case diff < time.Hour:
		return fmt.Sprintf("%dm ago", int(diff.Minutes()))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(diff.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(diff.Hours()/24))
	}
}
