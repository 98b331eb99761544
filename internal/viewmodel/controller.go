package viewmodel

import (
	"context"
	"log/slog"
	"sync"

	"github.com/tevino/abool"

	"github.com/roach88/roster/internal/queue"
	"github.com/roach88/roster/internal/student"
)

// Source is the repository surface the controller depends on.
// Implemented by *repository.Repository.
type Source interface {
	AllRecords(ctx context.Context) (student.Feed, error)
	Insert(ctx context.Context, d student.Draft) (student.Record, error)
	Update(ctx context.Context, rec student.Record) error
	Delete(ctx context.Context, id int64) error
}

// Phase is the controller's lifecycle state.
type Phase int

const (
	PhaseUninitialized Phase = iota
	PhaseSubscribed
	PhaseDisposed
)

func (p Phase) String() string {
	switch p {
	case PhaseUninitialized:
		return "uninitialized"
	case PhaseSubscribed:
		return "subscribed"
	case PhaseDisposed:
		return "disposed"
	default:
		return "unknown"
	}
}

// State is the observable view state.
// Version counts deliveries; it is zero until the first snapshot arrives.
type State struct {
	Records student.Snapshot
	Version uint64
}

// Controller republishes the latest snapshot as observable state and
// dispatches write intents to the repository.
//
// Thread-safety model:
//   - State, Records, Changed, Ready, Err, Phase: safe from any goroutine
//   - AddRecord, UpdateRecord, DeleteRecord, Settle: safe from any goroutine
//   - Dispose: idempotent, safe from any goroutine
type Controller struct {
	source    Source
	logger    *slog.Logger
	ids       IDGenerator
	onFailure func(IntentError)

	feed     student.Feed
	disposed abool.AtomicBool

	mu      sync.Mutex
	phase   Phase
	records student.Snapshot
	version uint64
	err     error
	changed chan struct{}

	ready     chan struct{}
	readyOnce sync.Once
	observed  chan struct{}

	intents *queue.Queue[job]
	drained chan struct{}
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithFailureHandler routes failed intents to fn instead of the warn log.
// fn runs on the intent worker goroutine and must not block for long.
func WithFailureHandler(fn func(IntentError)) Option {
	return func(c *Controller) {
		c.onFailure = fn
	}
}

// WithIDGenerator sets the intent id source. Default: UUIDv7Generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(c *Controller) {
		if g != nil {
			c.ids = g
		}
	}
}

// New subscribes to src.AllRecords and starts the intent worker.
//
// The controller is disposed when ctx is cancelled. Intents still queued at
// that point run with a context that ignores ctx's cancellation.
func New(ctx context.Context, src Source, opts ...Option) (*Controller, error) {
	c := &Controller{
		source:   src,
		logger:   slog.Default(),
		ids:      UUIDv7Generator{},
		phase:    PhaseUninitialized,
		changed:  make(chan struct{}),
		ready:    make(chan struct{}),
		observed: make(chan struct{}),
		intents:  queue.New[job](),
		drained:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}

	feed, err := src.AllRecords(ctx)
	if err != nil {
		return nil, err
	}
	c.feed = feed
	c.phase = PhaseSubscribed

	go c.observe()
	go c.work(context.WithoutCancel(ctx))
	context.AfterFunc(ctx, c.Dispose)

	c.logger.Debug("controller subscribed")
	return c, nil
}

// observe applies every delivered snapshot until the feed ends.
func (c *Controller) observe() {
	defer close(c.observed)
	defer c.readyOnce.Do(func() { close(c.ready) })

	for snap := range c.feed.Snapshots() {
		c.apply(snap)
	}

	if err := c.feed.Err(); err != nil {
		c.logger.Error("record feed ended", "error", err)
		c.mu.Lock()
		c.err = err
		c.notifyLocked()
		c.mu.Unlock()
	}
}

func (c *Controller) apply(snap student.Snapshot) {
	c.mu.Lock()
	if c.phase == PhaseDisposed {
		c.mu.Unlock()
		return
	}
	c.records = snap.Clone()
	c.version++
	c.notifyLocked()
	version := c.version
	c.mu.Unlock()

	c.readyOnce.Do(func() { close(c.ready) })
	c.logger.Debug("state replaced", "version", version, "records", len(snap))
}

// notifyLocked wakes everyone waiting on Changed. Caller must hold mu.
func (c *Controller) notifyLocked() {
	close(c.changed)
	c.changed = make(chan struct{})
}

// State returns a copy of the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return State{Records: c.records.Clone(), Version: c.version}
}

// Records returns a copy of the current snapshot.
func (c *Controller) Records() student.Snapshot {
	return c.State().Records
}

// Changed returns a channel that is closed at the next state change:
// a snapshot delivery, the feed ending with an error, or disposal.
// Call it again after each wake-up to wait for the following change.
func (c *Controller) Changed() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.changed
}

// Ready is closed once the first snapshot has been applied, or the feed
// ended before delivering one (check Err).
func (c *Controller) Ready() <-chan struct{} {
	return c.ready
}

// Err returns the feed's terminal error, if delivery ended with one.
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Phase returns the current lifecycle phase.
func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// Drained is closed after Dispose once every queued intent has run.
func (c *Controller) Drained() <-chan struct{} {
	return c.drained
}

// Dispose cancels the subscription and stops accepting intents.
// Queued intents still run. Safe to call more than once.
func (c *Controller) Dispose() {
	if !c.disposed.SetToIf(false, true) {
		return
	}
	c.mu.Lock()
	c.phase = PhaseDisposed
	c.notifyLocked()
	c.mu.Unlock()

	c.feed.Cancel()
	c.intents.Close()
	c.logger.Debug("controller disposed", "pending_intents", c.intents.Len())
}
