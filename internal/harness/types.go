package harness

import "github.com/roach88/roster/internal/student"

// Trace event types.
const (
	EventSnapshot = "snapshot" // a snapshot reached the controller
	EventIntent   = "intent"   // an intent was queued
	EventRejected = "rejected" // an intent was refused at the boundary
	EventFailure  = "failure"  // a queued intent failed in the repository
)

// TraceEvent is one observed step of a scenario run.
type TraceEvent struct {
	Seq      int64             `json:"seq"`
	Type     string            `json:"type"`
	IntentID string            `json:"intent_id,omitempty"`
	Kind     string            `json:"kind,omitempty"`
	Args     *StepArgs         `json:"args,omitempty"`
	Version  uint64            `json:"version,omitempty"`
	Records  *student.Snapshot `json:"records,omitempty"`
	Code     string            `json:"code,omitempty"`
	Message  string            `json:"message,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every expect clause and assertion matched.
	Pass bool `json:"pass"`

	// Trace holds every event in the order it was observed.
	Trace []TraceEvent `json:"trace"`

	// Errors holds one message per mismatch. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// State is the controller's final snapshot.
	State student.Snapshot `json:"state"`

	seq int64
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
		State:  student.Snapshot{},
	}
}

// AddError adds a mismatch and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

func (r *Result) add(ev TraceEvent) {
	r.seq++
	ev.Seq = r.seq
	r.Trace = append(r.Trace, ev)
}

// AddSnapshotTrace records a delivered snapshot.
func (r *Result) AddSnapshotTrace(version uint64, records student.Snapshot) {
	snap := nonNil(records)
	r.add(TraceEvent{Type: EventSnapshot, Version: version, Records: &snap})
}

// AddIntentTrace records a queued intent.
func (r *Result) AddIntentTrace(id, kind string, args StepArgs) {
	r.add(TraceEvent{Type: EventIntent, IntentID: id, Kind: kind, Args: &args})
}

// AddRejectedTrace records an intent refused before dispatch.
func (r *Result) AddRejectedTrace(kind string, args StepArgs, code, message string) {
	r.add(TraceEvent{Type: EventRejected, Kind: kind, Args: &args, Code: code, Message: message})
}

// AddFailureTrace records a queued intent whose write failed.
func (r *Result) AddFailureTrace(id, kind, code, message string) {
	r.add(TraceEvent{Type: EventFailure, IntentID: id, Kind: kind, Code: code, Message: message})
}

// Count returns the number of trace events of the given type.
func (r *Result) Count(eventType string) int {
	n := 0
	for _, ev := range r.Trace {
		if ev.Type == eventType {
			n++
		}
	}
	return n
}

func nonNil(s student.Snapshot) student.Snapshot {
	if s == nil {
		return student.Snapshot{}
	}
	return s
}
