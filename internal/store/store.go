package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/hashicorp/go-multierror"
	_ "github.com/mattn/go-sqlite3"
	"github.com/tevino/abool"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 1 - students table
const currentSchemaVersion = 1

// ErrClosed is the terminal error of subscriptions ended by Close, and the
// cause wrapped by writes attempted after Close.
var ErrClosed = errors.New("store closed")

// Store is the durable Record Store.
// Uses SQLite with WAL mode and a single pooled connection.
type Store struct {
	db     *sql.DB
	path   string
	logger *slog.Logger

	// writeMu serializes writes, publication, and subscriber registration.
	writeMu     sync.Mutex
	dataVersion int64 // last PRAGMA data_version seen; guarded by writeMu

	subMu   sync.RWMutex
	subs    map[uint64]*Subscription
	nextSub uint64

	metrics       *storeMetrics
	watchExternal bool
	watcher       *externalWatcher
	closed        abool.AtomicBool
}

// Option configures a Store at Open time.
type Option func(*Store)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithExternalWatch makes the store republish snapshots after commits by
// other connections to the same database file.
func WithExternalWatch() Option {
	return func(s *Store) {
		s.watchExternal = true
	}
}

// Open creates or opens a SQLite database at the given path.
// Applies required pragmas and the schema automatically.
//
// This function is idempotent - safe to call multiple times on one path.
func Open(path string, opts ...Option) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite supports one writer at a time; pragmas and PRAGMA data_version
	// are per connection, so keep exactly one alive.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	s := &Store{
		db:     db,
		path:   path,
		logger: slog.Default(),
		subs:   make(map[uint64]*Subscription),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.metrics = newStoreMetrics(s)

	if s.watchExternal {
		if err := s.startWatcher(); err != nil {
			db.Close()
			return nil, err
		}
	}

	s.logger.Debug("store opened", "path", path, "external_watch", s.watchExternal)
	return s, nil
}

func (s *Store) startWatcher() error {
	if s.path == ":memory:" || strings.HasPrefix(s.path, "file:") {
		return fmt.Errorf("external watch requires a plain file path, got %q", s.path)
	}

	v, err := s.readDataVersion(context.Background())
	if err != nil {
		return fmt.Errorf("read data_version: %w", err)
	}
	s.dataVersion = v

	w, err := newExternalWatcher(s)
	if err != nil {
		return fmt.Errorf("start external watcher: %w", err)
	}
	s.watcher = w
	return nil
}

// Path returns the database path the store was opened with.
func (s *Store) Path() string {
	return s.path
}

// Close ends every subscription with ErrClosed, stops the external watcher,
// and closes the database connection.
// Subsequent calls return nil.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	if !s.closed.SetToIf(false, true) {
		return nil
	}

	var result *multierror.Error
	if s.watcher != nil {
		if err := s.watcher.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("close watcher: %w", err))
		}
	}

	// Take the write guard so no write is publishing while subscriptions end.
	s.writeMu.Lock()
	s.endAll(ErrClosed)
	s.writeMu.Unlock()

	if err := s.db.Close(); err != nil {
		result = multierror.Append(result, fmt.Errorf("close database: %w", err))
	}

	return result.ErrorOrNil()
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// applySchema creates tables if they don't exist and stamps user_version.
// This function is idempotent.
func applySchema(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	if version > currentSchemaVersion {
		return fmt.Errorf("database schema version %d is newer than supported version %d", version, currentSchemaVersion)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	if version < currentSchemaVersion {
		if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
			return fmt.Errorf("set user_version: %w", err)
		}
	}

	return nil
}

// readDataVersion returns PRAGMA data_version for the store's connection.
// The value changes only when another connection commits.
func (s *Store) readDataVersion(ctx context.Context) (int64, error) {
	var v int64
	if err := s.db.QueryRowContext(ctx, "PRAGMA data_version").Scan(&v); err != nil {
		return 0, err
	}
	return v, nil
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	query := fmt.Sprintf("PRAGMA %s", name)
	if err := s.db.QueryRow(query).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
