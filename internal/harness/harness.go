package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/roster/internal/dao"
	"github.com/roach88/roster/internal/repository"
	"github.com/roach88/roster/internal/store"
	"github.com/roach88/roster/internal/student"
	"github.com/roach88/roster/internal/viewmodel"
)

// StepTimeout bounds the wait for a step's snapshot.
const StepTimeout = 2 * time.Second

// Harness drives one scenario through a controller.
type Harness struct {
	store      *store.Store
	controller *viewmodel.Controller
	logger     *slog.Logger

	mu       sync.Mutex
	failures []viewmodel.IntentError

	version uint64 // last controller version recorded in the trace
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
//
// Execution flow:
//  1. Open an in-memory store and write the setup records
//  2. Subscribe a controller and record the initial snapshot
//  3. Dispatch each flow step and record its outcome
//  4. Evaluate assertions against the trace and final state
func Run(scenario *Scenario) (*Result, error) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	st, err := store.Open(":memory:", store.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	ctx := context.Background()

	for i, d := range scenario.Setup {
		d, err := student.NewDraft(d.Name, d.Course)
		if err != nil {
			return nil, fmt.Errorf("setup[%d]: %w", i, err)
		}
		if _, err := st.Insert(ctx, d); err != nil {
			return nil, fmt.Errorf("setup[%d]: %w", i, err)
		}
	}

	h := &Harness{store: st, logger: logger}

	repo := repository.New(dao.NewSQLite(st))
	c, err := viewmodel.New(ctx, repo,
		viewmodel.WithLogger(logger),
		viewmodel.WithIDGenerator(viewmodel.NewFixedGenerator()),
		viewmodel.WithFailureHandler(h.recordFailure),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start controller: %w", err)
	}
	defer c.Dispose()
	h.controller = c

	result := NewResult()

	if err := h.awaitSnapshot(ctx, result); err != nil {
		return nil, fmt.Errorf("initial snapshot: %w", err)
	}

	for i, step := range scenario.Flow {
		if err := h.executeStep(ctx, i, step, result); err != nil {
			return nil, fmt.Errorf("failed to execute flow[%d]: %w", i, err)
		}
	}

	result.State = c.Records()

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}

	return result, nil
}

func (h *Harness) recordFailure(ie viewmodel.IntentError) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.failures = append(h.failures, ie)
}

func (h *Harness) takeFailures() []viewmodel.IntentError {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := h.failures
	h.failures = nil
	return out
}

// executeStep dispatches one intent, waits for it to run, and records what
// followed: a rejection, a failure, or a snapshot.
func (h *Harness) executeStep(ctx context.Context, index int, step FlowStep, result *Result) error {
	kind := step.Invoke
	args := step.Args

	var err error
	switch kind {
	case InvokeAdd:
		err = h.controller.AddRecord(args.Name, args.Course)
	case InvokeUpdate:
		err = h.controller.UpdateRecord(args.ID, args.Name, args.Course)
	case InvokeDelete:
		err = h.controller.DeleteRecord(args.ID)
	default:
		return fmt.Errorf("unknown invoke %q", kind)
	}

	if err != nil {
		code := string(student.Code(err))
		result.AddRejectedTrace(kind, args, code, err.Error())
		h.checkCase(index, step, code, result)
		return nil
	}

	intentID := fmt.Sprintf("intent-%d", h.intentCount(result)+1)
	result.AddIntentTrace(intentID, kind, args)

	settleCtx, cancel := context.WithTimeout(ctx, StepTimeout)
	defer cancel()
	if err := h.controller.Settle(settleCtx); err != nil {
		return fmt.Errorf("intent did not complete: %w", err)
	}

	if failures := h.takeFailures(); len(failures) > 0 {
		for _, f := range failures {
			result.AddFailureTrace(f.Intent.ID, string(f.Intent.Kind), string(f.Code()), f.Err.Error())
		}
		h.checkCase(index, step, string(failures[0].Code()), result)

		// A failed write publishes nothing.
		if v := h.controller.State().Version; v != h.version {
			result.AddError(fmt.Sprintf("flow[%d]: failed %s produced a snapshot (version %d -> %d)", index, kind, h.version, v))
		}
		return nil
	}

	if err := h.awaitSnapshot(ctx, result); err != nil {
		return err
	}
	h.checkCase(index, step, CaseOK, result)

	if step.Expect != nil && step.Expect.Snapshot != nil {
		got := h.controller.Records()
		if !got.Equal(*step.Expect.Snapshot) {
			result.AddError(fmt.Sprintf("flow[%d]: snapshot mismatch: expected %v, got %v", index, *step.Expect.Snapshot, got))
		}
	}
	return nil
}

// intentCount counts queued intents so far. The controller's FixedGenerator
// numbers intents the same way, so the trace ids match its log output.
func (h *Harness) intentCount(result *Result) int {
	return result.Count(EventIntent)
}

// checkCase compares a step's actual outcome with its expected case.
func (h *Harness) checkCase(index int, step FlowStep, actual string, result *Result) {
	want := CaseOK
	if step.Expect != nil {
		want = step.Expect.Case
	}
	if want != actual {
		result.AddError(fmt.Sprintf("flow[%d]: %s expected case %q, got %q", index, step.Invoke, want, actual))
	}
}

// awaitSnapshot waits for the controller to apply exactly one new snapshot
// and records it.
func (h *Harness) awaitSnapshot(ctx context.Context, result *Result) error {
	ctx, cancel := context.WithTimeout(ctx, StepTimeout)
	defer cancel()

	for {
		changed := h.controller.Changed()
		st := h.controller.State()
		if st.Version > h.version {
			if st.Version != h.version+1 {
				result.AddError(fmt.Sprintf("expected one snapshot, controller advanced %d versions", st.Version-h.version))
			}
			h.version = st.Version
			result.AddSnapshotTrace(st.Version, st.Records)
			return nil
		}
		if err := h.controller.Err(); err != nil {
			return fmt.Errorf("feed ended: %w", err)
		}

		select {
		case <-changed:
		case <-ctx.Done():
			return fmt.Errorf("no snapshot within %s", StepTimeout)
		}
	}
}
