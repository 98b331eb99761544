package viewmodel

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/roster/internal/dao"
	"github.com/roach88/roster/internal/repository"
	"github.com/roach88/roster/internal/store"
	"github.com/roach88/roster/internal/student"
)

const waitTimeout = 2 * time.Second

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestRepository opens an isolated store and wraps it the way the CLI does.
func newTestRepository(t *testing.T) (*repository.Repository, *store.Store) {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "vm.db"), store.WithLogger(discardLogger()))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return repository.New(dao.NewSQLite(s)), s
}

func newTestController(t *testing.T, src Source, opts ...Option) *Controller {
	t.Helper()
	opts = append([]Option{WithLogger(discardLogger())}, opts...)
	c, err := New(context.Background(), src, opts...)
	require.NoError(t, err)
	t.Cleanup(c.Dispose)
	return c
}

// waitForState blocks until pred accepts the controller's records.
func waitForState(t *testing.T, c *Controller, pred func(student.Snapshot) bool) student.Snapshot {
	t.Helper()
	deadline := time.After(waitTimeout)
	for {
		changed := c.Changed()
		if st := c.State(); st.Version > 0 && pred(st.Records) {
			return st.Records
		}
		select {
		case <-changed:
		case <-deadline:
			t.Fatalf("timed out; last state: %+v", c.State())
			return nil
		}
	}
}

func equals(want student.Snapshot) func(student.Snapshot) bool {
	return func(got student.Snapshot) bool { return got.Equal(want) }
}

// failures collects IntentErrors from WithFailureHandler.
type failures struct {
	mu   sync.Mutex
	errs []IntentError
	ch   chan struct{}
}

func newFailures() *failures {
	return &failures{ch: make(chan struct{}, 64)}
}

func (f *failures) handle(ie IntentError) {
	f.mu.Lock()
	f.errs = append(f.errs, ie)
	f.mu.Unlock()
	f.ch <- struct{}{}
}

func (f *failures) next(t *testing.T) IntentError {
	t.Helper()
	select {
	case <-f.ch:
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for intent failure")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.errs[len(f.errs)-1]
}

func (f *failures) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.errs)
}

// fakeFeed is a hand-driven student.Feed.
type fakeFeed struct {
	ch     chan student.Snapshot
	once   sync.Once
	mu     sync.Mutex
	err    error
	cancel chan struct{}
}

func newFakeFeed() *fakeFeed {
	return &fakeFeed{ch: make(chan student.Snapshot), cancel: make(chan struct{})}
}

func (f *fakeFeed) Snapshots() <-chan student.Snapshot { return f.ch }

func (f *fakeFeed) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

func (f *fakeFeed) Cancel() {
	f.once.Do(func() {
		close(f.cancel)
		close(f.ch)
	})
}

// fail ends the feed with err.
func (f *fakeFeed) fail(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
	f.once.Do(func() { close(f.ch) })
}

// fakeSource serves a fakeFeed and records writes. Writes block on gate
// when it is non-nil.
type fakeSource struct {
	feed *fakeFeed
	gate chan struct{}

	mu    sync.Mutex
	calls []string
	err   error
}

func (s *fakeSource) AllRecords(ctx context.Context) (student.Feed, error) {
	return s.feed, nil
}

func (s *fakeSource) record(call string) error {
	if s.gate != nil {
		<-s.gate
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, call)
	return s.err
}

func (s *fakeSource) Insert(ctx context.Context, d student.Draft) (student.Record, error) {
	return student.Record{}, s.record("insert " + d.Name)
}

func (s *fakeSource) Update(ctx context.Context, rec student.Record) error {
	return s.record("update " + rec.Name)
}

func (s *fakeSource) Delete(ctx context.Context, id int64) error {
	return s.record("delete")
}

func (s *fakeSource) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}
