package viewmodel

import (
	"fmt"
	"log/slog"

	"github.com/roach88/roster/internal/student"
)

// IntentKind names the write an intent performs.
type IntentKind string

const (
	IntentAdd    IntentKind = "add"
	IntentUpdate IntentKind = "update"
	IntentDelete IntentKind = "delete"
)

// Intent is one queued write request.
// RecordID is zero for IntentAdd; Name and Course are empty for IntentDelete.
type Intent struct {
	ID       string     `json:"id"`
	Kind     IntentKind `json:"kind"`
	RecordID int64      `json:"record_id,omitempty"`
	Name     string     `json:"name,omitempty"`
	Course   string     `json:"course,omitempty"`
}

// LogValue groups the intent's fields in log output.
func (i Intent) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.String("id", i.ID),
		slog.String("kind", string(i.Kind)),
	}
	if i.RecordID != 0 {
		attrs = append(attrs, slog.Int64("record_id", i.RecordID))
	}
	return slog.GroupValue(attrs...)
}

// IntentError reports a queued intent whose repository call failed.
type IntentError struct {
	Intent Intent
	Err    error
}

func (e *IntentError) Error() string {
	return fmt.Sprintf("%s intent %s: %v", e.Intent.Kind, e.Intent.ID, e.Err)
}

func (e *IntentError) Unwrap() error {
	return e.Err
}

// Code returns the error code of the underlying failure.
func (e *IntentError) Code() student.ErrorCode {
	return student.Code(e.Err)
}

// job is one unit of work for the intent worker. A job with a non-nil
// barrier carries no intent; the worker closes barrier when it reaches it.
type job struct {
	intent  Intent
	barrier chan struct{}
}
