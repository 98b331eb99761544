package student

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Record is a persisted student entry.
type Record struct {
	ID     int64  `json:"id" yaml:"id"`
	Name   string `json:"name" yaml:"name"`
	Course string `json:"course" yaml:"course"`
}

// Draft holds the caller-supplied fields of a record that does not exist yet.
// The store assigns the id on insert.
type Draft struct {
	Name   string `json:"name" yaml:"name"`
	Course string `json:"course" yaml:"course"`
}

// Snapshot is the complete ordered sequence of Records at one instant.
// Order is ascending id, which is insertion order.
type Snapshot []Record

// Feed is a live read channel. It delivers the current Snapshot on
// subscribe and a fresh Snapshot after every mutation until cancelled.
//
// Snapshots closes when delivery ends; Err then reports why (nil after a
// plain Cancel).
type Feed interface {
	Snapshots() <-chan Snapshot
	Err() error
	Cancel()
}

// Normalize trims surrounding whitespace and applies Unicode NFC.
func Normalize(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// NewDraft normalizes name and course and validates the result.
func NewDraft(name, course string) (Draft, error) {
	d := Draft{Name: Normalize(name), Course: Normalize(course)}
	if err := d.Validate(); err != nil {
		return Draft{}, err
	}
	return d, nil
}

// Validate checks that name and course are non-empty after trimming.
func (d Draft) Validate() error {
	return validateFields(d.Name, d.Course)
}

// Validate checks the editable fields of an existing record.
// INVARIANT: ID is not inspected; the store decides whether it exists.
func (r Record) Validate() error {
	return validateFields(r.Name, r.Course)
}

// Normalized returns a copy of r with Name and Course normalized.
func (r Record) Normalized() Record {
	r.Name = Normalize(r.Name)
	r.Course = Normalize(r.Course)
	return r
}

func validateFields(name, course string) error {
	if strings.TrimSpace(name) == "" {
		return &ValidationError{Field: "name", Message: "name cannot be empty"}
	}
	if strings.TrimSpace(course) == "" {
		return &ValidationError{Field: "course", Message: "course cannot be empty"}
	}
	return nil
}

// Clone returns a copy that shares no backing array with s.
// A nil Snapshot clones to an empty, non-nil one so callers can render it
// and serialize it as [] rather than null.
func (s Snapshot) Clone() Snapshot {
	out := make(Snapshot, len(s))
	copy(out, s)
	return out
}

// Find returns the record with the given id.
func (s Snapshot) Find(id int64) (Record, bool) {
	for _, r := range s {
		if r.ID == id {
			return r, true
		}
	}
	return Record{}, false
}

// IDs returns the ids in snapshot order.
func (s Snapshot) IDs() []int64 {
	ids := make([]int64, len(s))
	for i, r := range s {
		ids[i] = r.ID
	}
	return ids
}

// Equal reports whether both snapshots hold the same records in the same order.
func (s Snapshot) Equal(other Snapshot) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}
