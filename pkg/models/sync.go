package models

import "time"

// ActionKind classifies what the reconciliation engine decided to do
// with a record.
type ActionKind string

const (
	ActionCreate ActionKind = "create"
	ActionUpdate ActionKind = "update"
	ActionSkip   ActionKind = "skip"
	ActionFail   ActionKind = "fail"
)

// SyncAction is the per-record decision produced by the engine and
// consumed by the batch executor. Exactly one is produced per input
// record; none survive the run.
type SyncAction struct {
	Kind     ActionKind
	Record   *ProductRecord
	Images   ResolvedImage
	RemoteID int64  // set for ActionUpdate
	Reason   string // set for ActionSkip and ActionFail
	Err      error  // set for ActionFail when an error caused it

	// ImagesOnly and DescriptionOnly narrow an update to a field
	// subset, per the configured update mode.
	ImagesOnly      bool
	DescriptionOnly bool
}

// Outcome is the final per-record result recorded in the summary.
type Outcome struct {
	SKU    string     `json:"sku"`
	Row    int        `json:"row,omitempty"`
	Action ActionKind `json:"action"`
	Detail string     `json:"detail,omitempty"`
	Error  string     `json:"error,omitempty"`
}

// RunSummary aggregates a full synchronization run. Every input SKU
// appears exactly once in Outcomes, including failures.
type RunSummary struct {
	RunID       string    `json:"run_id"`
	Created     int       `json:"created"`
	Updated     int       `json:"updated"`
	Skipped     int       `json:"skipped"`
	Failed      int       `json:"failed"`
	Outcomes    []Outcome `json:"outcomes"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
	Aborted     bool      `json:"aborted,omitempty"`
	AbortReason string    `json:"abort_reason,omitempty"`
}

// Total returns the number of records the run accounted for.
func (s *RunSummary) Total() int {
	return s.Created + s.Updated + s.Skipped + s.Failed
}
