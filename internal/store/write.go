package store

import (
	"context"
	"time"

	"github.com/roach88/roster/internal/student"
)

// Write operation names, used for error context and metric labels.
const (
	opInsert = "insert"
	opUpdate = "update"
	opDelete = "delete"
)

// Insert persists a new record and publishes the resulting snapshot.
// The id is assigned by SQLite (AUTOINCREMENT) and is never reused, even
// after the record holding it is deleted.
//
// No validation happens here; callers hand in normalized, validated drafts.
func (s *Store) Insert(ctx context.Context, d student.Draft) (student.Record, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if s.closed.IsSet() {
		return student.Record{}, student.NewStorageError(opInsert, ErrClosed)
	}

	start := time.Now()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO students (name, course) VALUES (?, ?)`,
		d.Name, d.Course,
	)
	if err != nil {
		s.metrics.writeFailed(opInsert)
		return student.Record{}, student.NewStorageError(opInsert, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		s.metrics.writeFailed(opInsert)
		return student.Record{}, student.NewStorageError(opInsert, err)
	}
	s.metrics.wrote(opInsert, start)

	rec := student.Record{ID: id, Name: d.Name, Course: d.Course}
	s.logger.Debug("record inserted", "id", id)

	s.publishLocked(ctx)
	return rec, nil
}

// Update replaces name and course of the record with rec.ID.
// Returns a NotFoundError, and publishes nothing, if the id is absent.
func (s *Store) Update(ctx context.Context, rec student.Record) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if s.closed.IsSet() {
		return student.NewStorageError(opUpdate, ErrClosed)
	}

	start := time.Now()
	res, err := s.db.ExecContext(ctx,
		`UPDATE students SET name = ?, course = ? WHERE id = ?`,
		rec.Name, rec.Course, rec.ID,
	)
	if err != nil {
		s.metrics.writeFailed(opUpdate)
		return student.NewStorageError(opUpdate, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		s.metrics.writeFailed(opUpdate)
		return student.NewStorageError(opUpdate, err)
	}
	if n == 0 {
		return &student.NotFoundError{ID: rec.ID}
	}
	s.metrics.wrote(opUpdate, start)
	s.logger.Debug("record updated", "id", rec.ID)

	s.publishLocked(ctx)
	return nil
}

// Delete removes the record with the given id.
// Returns a NotFoundError, and publishes nothing, if the id is absent.
func (s *Store) Delete(ctx context.Context, id int64) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if s.closed.IsSet() {
		return student.NewStorageError(opDelete, ErrClosed)
	}

	start := time.Now()
	res, err := s.db.ExecContext(ctx, `DELETE FROM students WHERE id = ?`, id)
	if err != nil {
		s.metrics.writeFailed(opDelete)
		return student.NewStorageError(opDelete, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		s.metrics.writeFailed(opDelete)
		return student.NewStorageError(opDelete, err)
	}
	if n == 0 {
		return &student.NotFoundError{ID: id}
	}
	s.metrics.wrote(opDelete, start)
	s.logger.Debug("record deleted", "id", id)

	s.publishLocked(ctx)
	return nil
}

// publishLocked reloads the full snapshot and queues it for every
// subscriber. The write has already committed, so a reload failure does
// not fail the write: it ends every subscription with a StorageError.
// Caller must hold writeMu.
func (s *Store) publishLocked(ctx context.Context) {
	snap, err := s.loadSnapshot(context.WithoutCancel(ctx))
	if err != nil {
		s.logger.Error("snapshot reload failed, ending subscriptions", "error", err)
		s.endAll(student.NewStorageError("query all", err))
		return
	}
	s.broadcast(snap)
}
