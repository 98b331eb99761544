package store

import (
	"context"
	"sync"

	"github.com/roach88/roster/internal/queue"
	"github.com/roach88/roster/internal/student"
)

// Subscription is a live feed of snapshots from one Store.
//
// Snapshots delivers the snapshot current at subscribe time, then one
// snapshot per successful write, in write order. The channel closes when
// the subscription is cancelled, its context ends, the store is closed,
// or a snapshot reload fails; Err reports the latter two.
type Subscription struct {
	id    uint64
	store *Store
	box   *queue.Queue[student.Snapshot]
	feed  chan student.Snapshot
	done  chan struct{}
	once  sync.Once

	mu  sync.Mutex
	err error
}

// QueryAll subscribes to the full record set.
//
// The current snapshot is queued before QueryAll returns, under the write
// guard, so the first value received is never older than any write that
// completed before the call.
func (s *Store) QueryAll(ctx context.Context) (*Subscription, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if s.closed.IsSet() {
		return nil, student.NewStorageError("query all", ErrClosed)
	}

	snap, err := s.loadSnapshot(ctx)
	if err != nil {
		return nil, student.NewStorageError("query all", err)
	}

	sub := &Subscription{
		store: s,
		box:   queue.New[student.Snapshot](),
		feed:  make(chan student.Snapshot),
		done:  make(chan struct{}),
	}
	sub.box.Enqueue(snap)

	s.subMu.Lock()
	s.nextSub++
	sub.id = s.nextSub
	s.subs[sub.id] = sub
	s.subMu.Unlock()

	s.logger.Debug("subscriber added", "subscription", sub.id, "records", len(snap))

	go sub.run(ctx)
	return sub, nil
}

// Snapshots returns the receive channel.
func (sub *Subscription) Snapshots() <-chan student.Snapshot {
	return sub.feed
}

// Err returns the terminal error once Snapshots is closed.
// It is nil when delivery ended by Cancel or context cancellation.
func (sub *Subscription) Err() error {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	return sub.err
}

// Cancel ends delivery. Safe to call more than once.
func (sub *Subscription) Cancel() {
	sub.once.Do(func() {
		close(sub.done)
	})
	sub.store.unsubscribe(sub.id)
}

// deliver queues a snapshot. Never blocks.
func (sub *Subscription) deliver(snap student.Snapshot) {
	sub.box.Enqueue(snap)
}

// end records err as the terminal error and stops accepting snapshots.
// Snapshots already queued are still delivered before the channel closes.
func (sub *Subscription) end(err error) {
	sub.mu.Lock()
	if sub.err == nil {
		sub.err = err
	}
	sub.mu.Unlock()
	sub.box.Close()
}

// run moves snapshots from the mailbox to the feed channel.
func (sub *Subscription) run(ctx context.Context) {
	defer close(sub.feed)
	defer sub.store.unsubscribe(sub.id)

	for {
		if snap, ok := sub.box.TryDequeue(); ok {
			select {
			case sub.feed <- snap:
			case <-ctx.Done():
				return
			case <-sub.done:
				return
			}
			continue
		}

		select {
		case <-ctx.Done():
			return
		case <-sub.done:
			return
		case <-sub.box.Wait():
			if sub.box.Drained() {
				return
			}
		}
	}
}

// broadcast queues snap for every subscriber.
// Each subscriber gets its own copy. Caller must hold writeMu.
func (s *Store) broadcast(snap student.Snapshot) {
	s.subMu.RLock()
	defer s.subMu.RUnlock()

	for _, sub := range s.subs {
		sub.deliver(snap.Clone())
	}
	s.metrics.published()
}

// endAll ends and removes every subscription. Caller must hold writeMu.
func (s *Store) endAll(err error) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	for id, sub := range s.subs {
		sub.end(err)
		delete(s.subs, id)
	}
}

func (s *Store) unsubscribe(id uint64) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	if sub, ok := s.subs[id]; ok {
		sub.box.Close()
		delete(s.subs, id)
		s.logger.Debug("subscriber removed", "subscription", id)
	}
}

// SubscriberCount returns the number of live subscriptions.
func (s *Store) SubscriberCount() int {
	s.subMu.RLock()
	defer s.subMu.RUnlock()
	return len(s.subs)
}
