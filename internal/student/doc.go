// Package student defines the record model shared by every layer of roster.
//
// A Record is a single student entry (id, name, course). The store assigns
// ids; callers create records from a Draft, which carries no id. A Snapshot
// is the complete ordered set of Records at one instant and is the only
// unit the read path ever delivers: there are no partial or delta updates.
//
// # Text
//
// Names and courses are trimmed and NFC-normalized at the intent boundary
// (see Normalize), so "Zoë" typed with a combining diaeresis and "Zoë"
// typed precomposed are stored identically.
//
// # Errors
//
// Every failure the core can report is one of ValidationError,
// NotFoundError, or StorageError. Use IsValidation, IsNotFound, IsStorage
// or Code to classify a wrapped error.
package student
