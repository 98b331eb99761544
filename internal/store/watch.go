package store

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/roach88/roster/internal/student"
)

// externalDebounce coalesces the burst of WAL and main-file writes one
// foreign commit produces.
const externalDebounce = 50 * time.Millisecond

// externalWatcher republishes after commits made by other connections.
type externalWatcher struct {
	store *Store
	fsw   *fsnotify.Watcher
	base  string
	stop  chan struct{}
	done  chan struct{}
}

func newExternalWatcher(s *Store) (*externalWatcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	// Watch the directory: SQLite creates and removes -wal files, which a
	// watch on the file itself would miss.
	if err := fsw.Add(filepath.Dir(s.path)); err != nil {
		_ = fsw.Close()
		return nil, err
	}

	w := &externalWatcher{
		store: s,
		fsw:   fsw,
		base:  filepath.Base(s.path),
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}
	go w.run()
	return w, nil
}

func (w *externalWatcher) run() {
	defer close(w.done)

	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-w.stop:
			return

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !w.relevant(ev) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(externalDebounce)
			} else {
				timer.Reset(externalDebounce)
			}
			fire = timer.C

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.store.logger.Warn("external watcher error", "error", err)

		case <-fire:
			fire = nil
			if err := w.store.refreshExternal(context.Background()); err != nil {
				w.store.logger.Warn("external refresh failed", "error", err)
			}
		}
	}
}

func (w *externalWatcher) relevant(ev fsnotify.Event) bool {
	name := filepath.Base(ev.Name)
	if name != w.base && name != w.base+"-wal" {
		return false
	}
	return ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create)
}

// Close stops the watcher and waits for its goroutine to exit.
func (w *externalWatcher) Close() error {
	close(w.stop)
	err := w.fsw.Close()
	<-w.done
	return err
}

// refreshExternal publishes the current snapshot if another connection
// has committed since the last check.
func (s *Store) refreshExternal(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if s.closed.IsSet() {
		return nil
	}

	v, err := s.readDataVersion(ctx)
	if err != nil {
		return student.NewStorageError("data version", err)
	}
	if v == s.dataVersion {
		return nil
	}
	s.dataVersion = v

	s.logger.Debug("external change detected", "data_version", v)
	s.publishLocked(ctx)
	return nil
}
