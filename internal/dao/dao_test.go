package dao

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/roster/internal/store"
	"github.com/roach88/roster/internal/student"
)

func newTestDAO(t *testing.T) (*SQLite, *store.Store) {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "dao.db"),
		store.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return NewSQLite(s), s
}

func next(t *testing.T, f student.Feed) student.Snapshot {
	t.Helper()
	select {
	case snap, ok := <-f.Snapshots():
		require.True(t, ok, "feed closed: %v", f.Err())
		return snap
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for snapshot")
		return nil
	}
}

func TestSQLite_QueryAllIsLive(t *testing.T) {
	d, _ := newTestDAO(t)
	ctx := context.Background()

	feed, err := d.QueryAll(ctx)
	require.NoError(t, err)
	defer feed.Cancel()

	assert.Len(t, next(t, feed), 0)

	rec, err := d.Insert(ctx, student.Draft{Name: "Ada", Course: "CS"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), rec.ID)
	assert.Equal(t, student.Snapshot{rec}, next(t, feed))

	rec.Name = "Ada L."
	require.NoError(t, d.Update(ctx, rec))
	assert.Equal(t, student.Snapshot{rec}, next(t, feed))

	require.NoError(t, d.Delete(ctx, rec.ID))
	assert.Len(t, next(t, feed), 0)
}

func TestSQLite_PassesErrorsThrough(t *testing.T) {
	d, _ := newTestDAO(t)
	ctx := context.Background()

	err := d.Update(ctx, student.Record{ID: 5, Name: "A", Course: "B"})
	assert.True(t, student.IsNotFound(err))

	err = d.Delete(ctx, 5)
	var nf *student.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, int64(5), nf.ID)
}

func TestSQLite_QueryAllAfterCloseReturnsNilFeed(t *testing.T) {
	d, s := newTestDAO(t)
	require.NoError(t, s.Close())

	feed, err := d.QueryAll(context.Background())
	assert.ErrorIs(t, err, store.ErrClosed)
	assert.Nil(t, feed)
}
