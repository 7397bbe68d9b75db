// Package analytics derives status and severity distributions from a
// point-in-time copy of the bug collection. Nothing here takes a lock.
package analytics

import "github.com/celerix-dev/celerix-bugs/pkg/schema"

func percentage(count, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(count) / float64(total) * 100
}

// StatusDistribution counts bugs per status. Every canonical status is
// present. Bugs carrying an unknown status are counted in the total only.
func StatusDistribution(bugs []schema.BugReport) map[schema.Status]schema.Bucket {
	counts := make(map[schema.Status]int, len(schema.Statuses))
	for _, b := range bugs {
		counts[b.Status]++
	}
	out := make(map[schema.Status]schema.Bucket, len(schema.Statuses))
	for _, s := range schema.Statuses {
		out[s] = schema.Bucket{Count: counts[s], Percentage: percentage(counts[s], len(bugs))}
	}
	return out
}

// SeverityDistribution counts bugs per severity; see StatusDistribution.
func SeverityDistribution(bugs []schema.BugReport) map[schema.Severity]schema.Bucket {
	counts := make(map[schema.Severity]int, len(schema.Severities))
	for _, b := range bugs {
		counts[b.Severity]++
	}
	out := make(map[schema.Severity]schema.Bucket, len(schema.Severities))
	for _, s := range schema.Severities {
		out[s] = schema.Bucket{Count: counts[s], Percentage: percentage(counts[s], len(bugs))}
	}
	return out
}

// Compute builds both distributions over bugs.
func Compute(bugs []schema.BugReport) schema.AnalyticsReport {
	return schema.AnalyticsReport{
		Total:    len(bugs),
		Status:   StatusDistribution(bugs),
		Severity: SeverityDistribution(bugs),
	}
}

// Summarize returns the per-status dashboard counters.
func Summarize(bugs []schema.BugReport) schema.Summary {
	var s schema.Summary
	for _, b := range bugs {
		switch b.Status {
		case schema.StatusOpen:
			s.Open++
		case schema.StatusInProgress:
			s.InProgress++
		case schema.StatusResolved:
			s.Resolved++
		case schema.StatusClosed:
			s.Closed++
		}
	}
	s.Total = len(bugs)
	return s
}
