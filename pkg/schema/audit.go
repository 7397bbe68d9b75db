package schema

import "time"

// AuditLog is one entry in a bug's mutation history.
type AuditLog struct {
	Timestamp time.Time `json:"timestamp"`
	Actor     string    `json:"actor"`
	Action    string    `json:"action"`
	BugID     string    `json:"bug_id"`
	Details   string    `json:"details,omitempty"`
}
