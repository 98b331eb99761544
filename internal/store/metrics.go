package store

import (
	"fmt"
	"io"
	"time"

	"github.com/VictoriaMetrics/metrics"
)

// storeMetrics holds the per-store metric set.
// Each Store owns its own set so tests and multiple stores never collide.
type storeMetrics struct {
	set       *metrics.Set
	snapshots *metrics.Counter
}

func newStoreMetrics(s *Store) *storeMetrics {
	set := metrics.NewSet()
	m := &storeMetrics{
		set:       set,
		snapshots: set.NewCounter("roster_store_snapshots_published_total"),
	}
	set.NewGauge("roster_store_subscribers", func() float64 {
		return float64(s.SubscriberCount())
	})
	return m
}

func (m *storeMetrics) wrote(op string, start time.Time) {
	m.set.GetOrCreateCounter(fmt.Sprintf(`roster_store_writes_total{op=%q}`, op)).Inc()
	m.set.GetOrCreateHistogram(fmt.Sprintf(`roster_store_write_duration_seconds{op=%q}`, op)).UpdateDuration(start)
}

func (m *storeMetrics) writeFailed(op string) {
	m.set.GetOrCreateCounter(fmt.Sprintf(`roster_store_write_errors_total{op=%q}`, op)).Inc()
}

func (m *storeMetrics) published() {
	m.snapshots.Inc()
}

// WritePrometheus writes the store's metrics in Prometheus text format.
func (s *Store) WritePrometheus(w io.Writer) {
	s.metrics.set.WritePrometheus(w)
}
