package lifecycle

import (
	"sync"

	"github.com/celerix-dev/celerix-bugs/pkg/schema"
)

// AuditTrail keeps the per-bug mutation history in memory.
type AuditTrail struct {
	mu      sync.RWMutex
	entries map[string][]schema.AuditLog
}

// NewAuditTrail returns an empty trail.
func NewAuditTrail() *AuditTrail {
	return &AuditTrail{entries: make(map[string][]schema.AuditLog)}
}

// Record appends entry to its bug's history.
func (a *AuditTrail) Record(entry schema.AuditLog) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries[entry.BugID] = append(a.entries[entry.BugID], entry)
}

// For returns a copy of the history of bugID, oldest first.
func (a *AuditTrail) For(bugID string) []schema.AuditLog {
	a.mu.RLock()
	defer a.mu.RUnlock()
	src := a.entries[bugID]
	out := make([]schema.AuditLog, len(src))
	copy(out, src)
	return out
}
