package journal

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/louisbranch/pecking-order/internal/services/game/domain/fact"
	"github.com/louisbranch/pecking-order/internal/services/game/storage"
	"github.com/louisbranch/pecking-order/internal/services/game/storage/memory"
)

// flakyStore fails the first failures writes.
type flakyStore struct {
	*memory.Audit
	mu       sync.Mutex
	failures int
	calls    int
}

func (f *flakyStore) AppendFact(ctx context.Context, rec storage.AuditRecord) error {
	f.mu.Lock()
	f.calls++
	fail := f.calls <= f.failures
	f.mu.Unlock()
	if fail {
		return errors.New("database is locked")
	}
	return f.Audit.AppendFact(ctx, rec)
}

func record(gameID string) storage.AuditRecord {
	return storage.NewAuditRecord(gameID, 1, fact.New(fact.TypeDMSent, "p1", "p2", time.Now(), nil))
}

func fastConfig() Config {
	return Config{BaseBackoff: time.Millisecond, MaxInterval: 2 * time.Millisecond}
}

func TestWriterPersistsInOrder(t *testing.T) {
	store := memory.NewAudit()
	w := New(store, fastConfig())
	for i := 0; i < 10; i++ {
		require.NoError(t, w.Append(record("g1")))
	}
	require.NoError(t, w.Close())
	assert.Len(t, store.Records(), 10)
}

func TestWriterRetriesTransientFailures(t *testing.T) {
	store := &flakyStore{Audit: memory.NewAudit(), failures: 2}
	w := New(store, fastConfig())
	require.NoError(t, w.Append(record("g1")))
	require.NoError(t, w.Close())
	assert.Len(t, store.Records(), 1)
	assert.Equal(t, 3, store.calls)
}

func TestWriterDropsAfterMaxAttempts(t *testing.T) {
	store := &flakyStore{Audit: memory.NewAudit(), failures: 100}
	var dropped []storage.AuditRecord
	cfg := fastConfig()
	cfg.MaxAttempts = 3
	cfg.OnDrop = func(rec storage.AuditRecord, err error) { dropped = append(dropped, rec) }

	w := New(store, cfg)
	require.NoError(t, w.Append(record("g1")))
	require.NoError(t, w.Close())
	assert.Empty(t, store.Records())
	assert.Len(t, dropped, 1)
	assert.Equal(t, 3, store.calls)
}

func TestWriterDoesNotRetryInvalidRecords(t *testing.T) {
	store := memory.NewAudit()
	var dropped int
	cfg := fastConfig()
	cfg.OnDrop = func(storage.AuditRecord, error) { dropped++ }

	w := New(store, cfg)
	require.NoError(t, w.Append(record("")))
	require.NoError(t, w.Close())
	assert.Equal(t, 1, dropped)
}

func TestAppendAfterClose(t *testing.T) {
	w := New(memory.NewAudit(), fastConfig())
	require.NoError(t, w.Close())
	assert.ErrorIs(t, w.Append(record("g1")), ErrClosed)
	assert.NoError(t, w.Close(), "close is idempotent")
}
