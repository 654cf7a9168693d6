// Package memory implements both storage contracts in process memory, for
// tests and single-process development runs.
package memory

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/louisbranch/pecking-order/internal/services/game/domain/fact"
	"github.com/louisbranch/pecking-order/internal/services/game/storage"
)

var (
	_ storage.AuditStore    = (*Audit)(nil)
	_ storage.SnapshotStore = (*Snapshots)(nil)
)

var errStoreRequired = errors.New("memory store is required")

// Audit keeps audit records in insertion order.
type Audit struct {
	mu      sync.Mutex
	records []storage.AuditRecord
}

// NewAudit creates an empty audit store.
func NewAudit() *Audit {
	return &Audit{}
}

// AppendFact stores rec.
func (a *Audit) AppendFact(ctx context.Context, rec storage.AuditRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if a == nil {
		return errStoreRequired
	}
	if strings.TrimSpace(rec.GameID) == "" {
		return storage.ErrGameIDRequired
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.records = append(a.records, rec)
	return nil
}

// LastDMs returns the latest DMs sent by playerID, newest first.
func (a *Audit) LastDMs(ctx context.Context, gameID, playerID string, limit int) ([]storage.AuditRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if a == nil {
		return nil, errStoreRequired
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []storage.AuditRecord
	for i := len(a.records) - 1; i >= 0 && len(out) < limit; i-- {
		rec := a.records[i]
		if rec.GameID == gameID && rec.ActorID == playerID && rec.Type == fact.TypeDMSent {
			out = append(out, rec)
		}
	}
	return out, nil
}

// Records returns a copy of every stored record.
func (a *Audit) Records() []storage.AuditRecord {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]storage.AuditRecord(nil), a.records...)
}

// Close is a no-op.
func (a *Audit) Close() error { return nil }

// Snapshots keeps the latest snapshot per game.
type Snapshots struct {
	mu    sync.Mutex
	games map[string][]byte
}

// NewSnapshots creates an empty snapshot store.
func NewSnapshots() *Snapshots {
	return &Snapshots{games: make(map[string][]byte)}
}

// PutSnapshot stores a copy of data.
func (s *Snapshots) PutSnapshot(ctx context.Context, gameID string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil {
		return errStoreRequired
	}
	if strings.TrimSpace(gameID) == "" {
		return storage.ErrGameIDRequired
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.games[gameID] = append([]byte(nil), data...)
	return nil
}

// GetSnapshot returns a copy of the stored snapshot.
func (s *Snapshots) GetSnapshot(ctx context.Context, gameID string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil {
		return nil, errStoreRequired
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.games[gameID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return append([]byte(nil), data...), nil
}

// ListGames returns the stored game ids, sorted.
func (s *Snapshots) ListGames(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.games))
	for id := range s.games {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Close is a no-op.
func (s *Snapshots) Close() error { return nil }
