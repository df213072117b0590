package reporting

import "time"

type TimeRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// Contains reports whether t falls in [From, To). A zero range contains everything.
func (r TimeRange) Contains(t time.Time) bool {
	if r.From.IsZero() && r.To.IsZero() {
		return true
	}
	if !r.From.IsZero() && t.Before(r.From) {
		return false
	}
	if !r.To.IsZero() && !t.Before(r.To) {
		return false
	}
	return true
}

// WorkloadRequest selects the calls counted by OfficeWorkload.
// Office is optional; empty means every office.
type WorkloadRequest struct {
	Office string    `json:"office,omitempty"`
	Range  TimeRange `json:"range"`
}

// OfficeWorkload is the per-RIO breakdown of calls by bucket.
type OfficeWorkload struct {
	Office string `json:"office"`

	Total int `json:"total"`

	PendingVerification int `json:"pending_verification"`
	FreshSubmissions    int `json:"fresh_submissions"`
	Resubmissions       int `json:"resubmissions"`
	Returned            int `json:"returned"`

	VerifiedOpen int `json:"verified_open"`
	Disposed     int `json:"disposed"`

	// AverageSubmissions is the mean submission count; values above 1 mean rework.
	AverageSubmissions float64 `json:"average_submissions"`
}

// FlaggedFieldCount reports how often a section was flagged on calls currently returned.
type FlaggedFieldCount struct {
	Field string `json:"field"`
	Count int    `json:"count"`
}

type RectificationSummary struct {
	Office        string              `json:"office,omitempty"`
	ReturnedCalls int                 `json:"returned_calls"`
	Fields        []FlaggedFieldCount `json:"fields"`
}
