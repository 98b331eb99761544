package store

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/roster/internal/student"
)

// deliveryTimeout bounds every wait on a subscription.
const deliveryTimeout = 2 * time.Second

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// createTestStore creates a new store in a temporary directory.
func createTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path, append([]Option{WithLogger(discardLogger())}, opts...)...)
	require.NoError(t, err, "Open() failed")
	t.Cleanup(func() { s.Close() })
	return s
}

// mustInsert inserts a record and fails the test on error.
func mustInsert(t *testing.T, s *Store, name, course string) student.Record {
	t.Helper()
	rec, err := s.Insert(context.Background(), student.Draft{Name: name, Course: course})
	require.NoError(t, err)
	return rec
}

// subscribe opens a subscription that is cancelled at test cleanup.
func subscribe(t *testing.T, s *Store) *Subscription {
	t.Helper()
	sub, err := s.QueryAll(context.Background())
	require.NoError(t, err)
	t.Cleanup(sub.Cancel)
	return sub
}

// nextSnapshot waits for the next delivery on sub.
func nextSnapshot(t *testing.T, sub *Subscription) student.Snapshot {
	t.Helper()
	select {
	case snap, ok := <-sub.Snapshots():
		require.True(t, ok, "feed closed unexpectedly (err=%v)", sub.Err())
		return snap
	case <-time.After(deliveryTimeout):
		t.Fatal("timed out waiting for snapshot")
		return nil
	}
}

// assertNoSnapshot fails if sub delivers anything within wait.
func assertNoSnapshot(t *testing.T, sub *Subscription, wait time.Duration) {
	t.Helper()
	select {
	case snap, ok := <-sub.Snapshots():
		if ok {
			t.Fatalf("unexpected snapshot: %+v", snap)
		}
		t.Fatalf("feed closed unexpectedly (err=%v)", sub.Err())
	case <-time.After(wait):
	}
}

// waitClosed waits for sub's channel to close, discarding queued snapshots.
func waitClosed(t *testing.T, sub *Subscription) {
	t.Helper()
	deadline := time.After(deliveryTimeout)
	for {
		select {
		case _, ok := <-sub.Snapshots():
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("timed out waiting for feed to close")
		}
	}
}
