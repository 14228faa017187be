package engine

import "github.com/mytua/wcsync/pkg/models"

// Event is a run progress notification. The engine pushes one
// RecordStarted when it takes a record up, one RecordCompleted when the
// record has its final outcome, and one BatchCompleted after every
// batch call. Row errors, rows past the record limit and records swept
// into an abort complete without having started.
type Event interface {
	isEvent()
}

// RecordStarted marks a record entering processing.
type RecordStarted struct {
	Row int
	SKU string
}

// RecordCompleted carries the final outcome of one record.
type RecordCompleted struct {
	Outcome models.Outcome
}

// BatchCompleted reports the running totals after a batch call
// returned. Summary is a snapshot; its Outcomes cover the whole run so
// far.
type BatchCompleted struct {
	Summary models.RunSummary
}

func (RecordStarted) isEvent()   {}
func (RecordCompleted) isEvent() {}
func (BatchCompleted) isEvent()  {}
