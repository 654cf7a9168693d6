package storage

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/louisbranch/pecking-order/internal/services/game/domain/fact"
)

// ErrNotFound indicates a requested record is missing.
var ErrNotFound = errors.New("record not found")

var (
	// ErrGameIDRequired indicates a write or read without a game id.
	ErrGameIDRequired = errors.New("game id is required")
	// ErrNotConfigured indicates a nil or closed store.
	ErrNotConfigured = errors.New("storage is not configured")
)

// AuditRecord is one journaled fact.
type AuditRecord struct {
	GameID    string          `json:"gameId"`
	DayIndex  int             `json:"dayIndex"`
	Type      fact.Type       `json:"type"`
	ActorID   string          `json:"actorId"`
	TargetID  string          `json:"targetId,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewAuditRecord flattens a fact for persistence.
func NewAuditRecord(gameID string, dayIndex int, f fact.Fact) AuditRecord {
	return AuditRecord{
		GameID:    gameID,
		DayIndex:  dayIndex,
		Type:      f.Type,
		ActorID:   f.ActorID,
		TargetID:  f.TargetID,
		Payload:   f.Payload,
		Timestamp: f.Timestamp,
	}
}

// Fact rebuilds the fact the record was written from.
func (r AuditRecord) Fact() fact.Fact {
	return fact.Fact{
		Type:      r.Type,
		ActorID:   r.ActorID,
		TargetID:  r.TargetID,
		Payload:   r.Payload,
		Timestamp: r.Timestamp,
	}
}

// AuditStore persists journalable facts.
type AuditStore interface {
	AppendFact(ctx context.Context, rec AuditRecord) error
	// LastDMs returns up to limit DM_SENT records whose actor is playerID,
	// newest first.
	LastDMs(ctx context.Context, gameID, playerID string, limit int) ([]AuditRecord, error)
	Close() error
}

// SnapshotStore persists the latest snapshot of each game.
type SnapshotStore interface {
	PutSnapshot(ctx context.Context, gameID string, data []byte) error
	// GetSnapshot returns ErrNotFound when the game has no snapshot.
	GetSnapshot(ctx context.Context, gameID string) ([]byte, error)
	ListGames(ctx context.Context) ([]string, error)
	Close() error
}
