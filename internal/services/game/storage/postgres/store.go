// Package postgres implements the audit store on PostgreSQL through a pgx
// connection pool. The schema is created on Open when missing.
package postgres

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/louisbranch/pecking-order/internal/services/game/domain/fact"
	"github.com/louisbranch/pecking-order/internal/services/game/storage"
)

//go:embed schema.sql
var schema string

var _ storage.AuditStore = (*Store)(nil)

// Store is a PostgreSQL-backed audit store.
type Store struct {
	pool *pgxpool.Pool
}

// Open connects to databaseURL and ensures the schema exists.
func Open(ctx context.Context, databaseURL string) (*Store, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("database url is required")
	}
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Close releases the pool. It is nil-safe.
func (s *Store) Close() error {
	if s == nil || s.pool == nil {
		return nil
	}
	s.pool.Close()
	return nil
}

// AppendFact inserts one audit record.
func (s *Store) AppendFact(ctx context.Context, rec storage.AuditRecord) error {
	if s == nil || s.pool == nil {
		return storage.ErrNotConfigured
	}
	if strings.TrimSpace(rec.GameID) == "" {
		return storage.ErrGameIDRequired
	}
	payload := []byte(rec.Payload)
	if len(payload) == 0 {
		payload = nil
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO game_facts (game_id, day_index, type, actor_id, target_id, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, rec.GameID, rec.DayIndex, string(rec.Type), rec.ActorID, rec.TargetID, payload, rec.Timestamp.UTC())
	if err != nil {
		return fmt.Errorf("append fact %s: %w", rec.Type, err)
	}
	return nil
}

// LastDMs returns the latest DMs sent by playerID, newest first.
func (s *Store) LastDMs(ctx context.Context, gameID, playerID string, limit int) ([]storage.AuditRecord, error) {
	if s == nil || s.pool == nil {
		return nil, storage.ErrNotConfigured
	}
	if strings.TrimSpace(gameID) == "" {
		return nil, storage.ErrGameIDRequired
	}
	if limit <= 0 {
		return nil, nil
	}
	rows, err := s.pool.Query(ctx, `
		SELECT game_id, day_index, type, actor_id, target_id, payload, created_at
		FROM game_facts
		WHERE game_id = $1 AND actor_id = $2 AND type = $3
		ORDER BY id DESC
		LIMIT $4
	`, gameID, playerID, string(fact.TypeDMSent), limit)
	if err != nil {
		return nil, fmt.Errorf("query dms: %w", err)
	}
	defer rows.Close()

	var out []storage.AuditRecord
	for rows.Next() {
		var (
			rec     storage.AuditRecord
			typ     string
			payload []byte
		)
		if err := rows.Scan(&rec.GameID, &rec.DayIndex, &typ, &rec.ActorID, &rec.TargetID, &payload, &rec.Timestamp); err != nil {
			return nil, fmt.Errorf("scan dm: %w", err)
		}
		rec.Type = fact.Type(typ)
		rec.Payload = payload
		rec.Timestamp = rec.Timestamp.UTC()
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read dms: %w", err)
	}
	return out, nil
}
