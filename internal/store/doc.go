// Package store provides the SQLite-backed Record Store for roster.
//
// The store owns the students table and is the single source of truth for
// reads. It implements publish-on-mutation:
//
//   - QueryAll returns a Subscription that receives the full current
//     Snapshot immediately and again after every successful write.
//   - Each Subscription has its own unbounded mailbox, so every subscriber
//     sees every emission exactly once and in order, and a slow subscriber
//     never blocks a writer or another subscriber.
//   - Writes and publication happen under one mutex, so emissions are
//     totally ordered and no write can slip between a subscriber's
//     registration and its initial snapshot.
//
// # Database Configuration
//
//   - WAL mode: concurrent readers from other processes during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - one pooled connection: the store is the single writer
//
// # External Writers
//
// With WithExternalWatch the store also republishes after commits made by
// other connections (for example a second roster process on the same file).
// It watches the database directory with fsnotify and confirms a real
// change through PRAGMA data_version before publishing.
package store
