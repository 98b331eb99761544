package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/roach88/roster/internal/student"
)

// List returns the current snapshot as a one-shot read.
// Prefer QueryAll wherever the caller needs to stay current.
func (s *Store) List(ctx context.Context) (student.Snapshot, error) {
	snap, err := s.loadSnapshot(ctx)
	if err != nil {
		return nil, student.NewStorageError("list", err)
	}
	return snap, nil
}

// Get returns the record with the given id, or a NotFoundError.
func (s *Store) Get(ctx context.Context, id int64) (student.Record, error) {
	var rec student.Record
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, course FROM students WHERE id = ?`, id,
	).Scan(&rec.ID, &rec.Name, &rec.Course)
	if errors.Is(err, sql.ErrNoRows) {
		return student.Record{}, &student.NotFoundError{ID: id}
	}
	if err != nil {
		return student.Record{}, student.NewStorageError("get", err)
	}
	return rec, nil
}

// loadSnapshot reads every record in id order.
// Returns an empty, non-nil snapshot for an empty table.
func (s *Store) loadSnapshot(ctx context.Context) (student.Snapshot, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, course FROM students ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	snap := student.Snapshot{}
	for rows.Next() {
		var rec student.Record
		if err := rows.Scan(&rec.ID, &rec.Name, &rec.Course); err != nil {
			return nil, err
		}
		snap = append(snap, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return snap, nil
}
