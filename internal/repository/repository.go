// Package repository is the facade the view layer talks to.
//
// It adds nothing to the data access layer: no caching, filtering, retry,
// or error translation. Errors come back exactly as the DAO returned them.
package repository

import (
	"context"

	"github.com/roach88/roster/internal/dao"
	"github.com/roach88/roster/internal/student"
)

// Repository forwards reads and writes to a RecordDAO.
type Repository struct {
	dao dao.RecordDAO
}

// New returns a Repository backed by d.
func New(d dao.RecordDAO) *Repository {
	return &Repository{dao: d}
}

// AllRecords returns the live feed of full snapshots.
func (r *Repository) AllRecords(ctx context.Context) (student.Feed, error) {
	return r.dao.QueryAll(ctx)
}

// Insert adds a record built from d and returns it with its assigned id.
func (r *Repository) Insert(ctx context.Context, d student.Draft) (student.Record, error) {
	return r.dao.Insert(ctx, d)
}

// Update replaces the record with rec.ID.
func (r *Repository) Update(ctx context.Context, rec student.Record) error {
	return r.dao.Update(ctx, rec)
}

// Delete removes the record with the given id.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	return r.dao.Delete(ctx, id)
}
