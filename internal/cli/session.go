package cli

import (
	"context"
	"fmt"
	"sync"

	"github.com/roach88/roster/internal/dao"
	"github.com/roach88/roster/internal/repository"
	"github.com/roach88/roster/internal/store"
	"github.com/roach88/roster/internal/student"
	"github.com/roach88/roster/internal/viewmodel"
)

// session is one command's view of the database: a store, the repository
// over it, and a controller subscribed to the full record set.
type session struct {
	store *store.Store
	ctrl  *viewmodel.Controller

	mu       sync.Mutex
	failures []viewmodel.IntentError
}

// openSession opens the store and waits for the controller's first snapshot.
func openSession(ctx context.Context, opts *RootOptions, storeOpts ...store.Option) (*session, error) {
	logger := opts.logger()

	st, err := store.Open(opts.Database, append([]store.Option{store.WithLogger(logger)}, storeOpts...)...)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}

	s := &session{store: st}
	repo := repository.New(dao.NewSQLite(st))

	ctrl, err := viewmodel.New(ctx, repo,
		viewmodel.WithLogger(logger),
		viewmodel.WithFailureHandler(s.recordFailure),
	)
	if err != nil {
		st.Close()
		return nil, WrapExitError(ExitFailure, "failed to subscribe to records", err)
	}
	s.ctrl = ctrl

	select {
	case <-ctrl.Ready():
	case <-ctx.Done():
		s.Close()
		return nil, ctx.Err()
	}
	if err := ctrl.Err(); err != nil {
		s.Close()
		return nil, WrapExitError(ExitFailure, "failed to read records", err)
	}
	return s, nil
}

// Close disposes the controller, lets queued intents finish, and closes
// the store.
func (s *session) Close() error {
	s.ctrl.Dispose()
	<-s.ctrl.Drained()
	return s.store.Close()
}

func (s *session) recordFailure(ie viewmodel.IntentError) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, ie)
}

func (s *session) takeFailures() []viewmodel.IntentError {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.failures
	s.failures = nil
	return out
}

// apply dispatches one intent and waits for its outcome: the rejection,
// the failure, or the snapshot that follows it.
func (s *session) apply(ctx context.Context, dispatch func(*viewmodel.Controller) error) (student.Snapshot, error) {
	before := s.ctrl.State().Version

	if err := dispatch(s.ctrl); err != nil {
		return nil, err
	}
	if err := s.ctrl.Settle(ctx); err != nil {
		return nil, err
	}
	if failures := s.takeFailures(); len(failures) > 0 {
		return nil, &failures[0]
	}
	return s.waitVersion(ctx, before+1)
}

// waitVersion blocks until the controller has applied version v.
func (s *session) waitVersion(ctx context.Context, v uint64) (student.Snapshot, error) {
	return s.waitFor(ctx, func(st viewmodel.State) bool { return st.Version >= v })
}

// waitFor blocks until done reports true for the controller's state.
func (s *session) waitFor(ctx context.Context, done func(viewmodel.State) bool) (student.Snapshot, error) {
	for {
		changed := s.ctrl.Changed()
		st := s.ctrl.State()
		if done(st) {
			return st.Records, nil
		}
		if err := s.ctrl.Err(); err != nil {
			return nil, err
		}

		select {
		case <-changed:
		case <-ctx.Done():
			return nil, fmt.Errorf("waiting for snapshot: %w", ctx.Err())
		}
	}
}

// intentError turns an apply error into an ExitError. Input rejected at the
// intent boundary is a command error; a failed write is a failure.
func intentError(action string, err error) error {
	if student.IsValidation(err) {
		return WrapExitError(ExitCommandError, "invalid record", err)
	}
	return WrapExitError(ExitFailure, action+" failed", err)
}
