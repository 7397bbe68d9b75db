package schema

// Bucket is the size of one category. Percentage is count/total*100,
// unrounded, and 0 when the collection is empty. Rounding is left to the
// presentation layer.
type Bucket struct {
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// AnalyticsReport bundles both distributions computed over one snapshot.
type AnalyticsReport struct {
	Total    int                 `json:"total"`
	Status   map[Status]Bucket   `json:"status"`
	Severity map[Severity]Bucket `json:"severity"`
}

// Summary holds the dashboard counters.
type Summary struct {
	Open       int `json:"open"`
	InProgress int `json:"in_progress"`
	Resolved   int `json:"resolved"`
	Closed     int `json:"closed"`
	Total      int `json:"total"`
}

// Session is a resolved actor together with the actions it may perform,
// so a UI can decide which controls to offer.
type Session struct {
	Identity     Identity `json:"identity"`
	Capabilities []string `json:"capabilities"`
}
