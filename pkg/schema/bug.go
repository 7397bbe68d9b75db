package schema

import (
	"fmt"
	"strings"
	"time"
)

// Severity is ordered by ascending urgency.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Severities lists every severity in ascending urgency.
var Severities = []Severity{SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical}

// Rank returns the position of s in Severities, or -1 if s is unknown.
func (s Severity) Rank() int {
	for i, known := range Severities {
		if s == known {
			return i
		}
	}
	return -1
}

// Valid reports whether s is a known severity.
func (s Severity) Valid() bool { return s.Rank() >= 0 }

// ParseSeverity normalizes s and reports whether it names a known severity.
func ParseSeverity(s string) (Severity, error) {
	sev := Severity(strings.ToLower(strings.TrimSpace(s)))
	if !sev.Valid() {
		return "", fmt.Errorf("unknown severity %q", s)
	}
	return sev, nil
}

// Status is the lifecycle state of a bug report.
type Status string

const (
	StatusOpen       Status = "open"
	StatusInProgress Status = "in-progress"
	StatusResolved   Status = "resolved"
	StatusClosed     Status = "closed"
)

// Statuses lists every status in lifecycle order.
var Statuses = []Status{StatusOpen, StatusInProgress, StatusResolved, StatusClosed}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	for _, known := range Statuses {
		if s == known {
			return true
		}
	}
	return false
}

// ParseStatus normalizes s and reports whether it names a known status.
// "in_progress" is accepted as an alias for "in-progress".
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "_", "-"))
	if !st.Valid() {
		return "", fmt.Errorf("unknown status %q", s)
	}
	return st, nil
}

// BugReport is a tracked defect. ID, ReportedBy and CreatedAt never change
// after creation. AssignedTo is nil until a developer or admin claims the bug.
type BugReport struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Severity    Severity  `json:"severity"`
	Status      Status    `json:"status"`
	AssignedTo  *string   `json:"assigned_to,omitempty"`
	ReportedBy  string    `json:"reported_by"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Project     string    `json:"project"`
}

// Assignee returns the assigned actor email and whether one is set.
func (b BugReport) Assignee() (string, bool) {
	if b.AssignedTo == nil {
		return "", false
	}
	return *b.AssignedTo, true
}

// Clone returns a copy that shares no pointers with b.
func (b BugReport) Clone() BugReport {
	if b.AssignedTo != nil {
		a := *b.AssignedTo
		b.AssignedTo = &a
	}
	return b
}

// NewBugReport is the caller-supplied input for creating a bug.
type NewBugReport struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Severity    Severity `json:"severity"`
	Project     string   `json:"project"`
}

// BugFilter narrows a bug listing. Zero-valued fields match everything.
type BugFilter struct {
	Status     Status   `json:"status,omitempty"`
	Severity   Severity `json:"severity,omitempty"`
	Project    string   `json:"project,omitempty"`
	AssignedTo string   `json:"assigned_to,omitempty"`
	Query      string   `json:"query,omitempty"`
}

// Matches reports whether b passes every set field of f. Query is a
// case-insensitive substring match against title and description.
func (f BugFilter) Matches(b BugReport) bool {
	if f.Status != "" && b.Status != f.Status {
		return false
	}
	if f.Severity != "" && b.Severity != f.Severity {
		return false
	}
	if f.Project != "" && !strings.EqualFold(b.Project, f.Project) {
		return false
	}
	if f.AssignedTo != "" {
		a, ok := b.Assignee()
		if !ok || !strings.EqualFold(a, f.AssignedTo) {
			return false
		}
	}
	if q := strings.ToLower(strings.TrimSpace(f.Query)); q != "" {
		if !strings.Contains(strings.ToLower(b.Title), q) && !strings.Contains(strings.ToLower(b.Description), q) {
			return false
		}
	}
	return true
}
