package store

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWritePrometheus(t *testing.T) {
	s := createTestStore(t)
	sub := subscribe(t, s)
	nextSnapshot(t, sub)

	mustInsert(t, s, "Ada", "CS")
	require.Error(t, s.Delete(context.Background(), 99))
	nextSnapshot(t, sub)

	var buf bytes.Buffer
	s.WritePrometheus(&buf)
	out := buf.String()

	assert.Contains(t, out, `roster_store_writes_total{op="insert"} 1`)
	assert.Contains(t, out, `roster_store_snapshots_published_total 1`)
	assert.Contains(t, out, `roster_store_subscribers 1`)
	assert.NotContains(t, out, `roster_store_writes_total{op="delete"}`, "not-found deletes are not counted as writes")
}
