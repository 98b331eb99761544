// Package dao is the Data Access Interface: the narrow typed contract the
// repository uses to reach the Record Store.
package dao

import (
	"context"

	"github.com/roach88/roster/internal/store"
	"github.com/roach88/roster/internal/student"
)

// RecordDAO is the data access contract for student records.
//
// QueryAll must return a live feed, never a one-shot read: the feed delivers
// the current snapshot at once and a fresh one after every mutation.
type RecordDAO interface {
	QueryAll(ctx context.Context) (student.Feed, error)
	Insert(ctx context.Context, d student.Draft) (student.Record, error)
	Update(ctx context.Context, rec student.Record) error
	Delete(ctx context.Context, id int64) error
}

// SQLite passes every call straight through to a store.Store.
type SQLite struct {
	store *store.Store
}

var _ RecordDAO = (*SQLite)(nil)

// NewSQLite wraps s. The caller keeps ownership of s and closes it.
func NewSQLite(s *store.Store) *SQLite {
	return &SQLite{store: s}
}

func (d *SQLite) QueryAll(ctx context.Context) (student.Feed, error) {
	sub, err := d.store.QueryAll(ctx)
	if err != nil {
		// Return a nil interface, not a typed nil *Subscription.
		return nil, err
	}
	return sub, nil
}

func (d *SQLite) Insert(ctx context.Context, draft student.Draft) (student.Record, error) {
	return d.store.Insert(ctx, draft)
}

func (d *SQLite) Update(ctx context.Context, rec student.Record) error {
	return d.store.Update(ctx, rec)
}

func (d *SQLite) Delete(ctx context.Context, id int64) error {
	return d.store.Delete(ctx, id)
}
