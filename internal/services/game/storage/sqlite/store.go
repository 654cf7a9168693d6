package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/louisbranch/pecking-order/internal/platform/storage/sqlitemigrate"
	"github.com/louisbranch/pecking-order/internal/services/game/domain/fact"
	"github.com/louisbranch/pecking-order/internal/services/game/storage"
	"github.com/louisbranch/pecking-order/internal/services/game/storage/sqlite/migrations"
)

var _ storage.AuditStore = (*Store)(nil)

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Store is a SQLite-backed audit store.
type Store struct {
	sqlDB *sql.DB
}

// Open opens the audit database at path and applies pending migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlitemigrate.Apply(ctx, sqlDB, migrations.AuditFS, "audit"); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the database. It is nil-safe.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// AppendFact inserts one audit record.
func (s *Store) AppendFact(ctx context.Context, rec storage.AuditRecord) error {
	if s == nil || s.sqlDB == nil {
		return storage.ErrNotConfigured
	}
	if strings.TrimSpace(rec.GameID) == "" {
		return storage.ErrGameIDRequired
	}
	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO facts (game_id, day_index, type, actor_id, target_id, payload_json, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.GameID, rec.DayIndex, string(rec.Type), rec.ActorID, rec.TargetID, []byte(rec.Payload), toMillis(rec.Timestamp),
	)
	if err != nil {
		return fmt.Errorf("append fact %s: %w", rec.Type, err)
	}
	return nil
}

// LastDMs returns the latest DMs sent by playerID, newest first.
func (s *Store) LastDMs(ctx context.Context, gameID, playerID string, limit int) ([]storage.AuditRecord, error) {
	if s == nil || s.sqlDB == nil {
		return nil, storage.ErrNotConfigured
	}
	if strings.TrimSpace(gameID) == "" {
		return nil, storage.ErrGameIDRequired
	}
	if limit <= 0 {
		return nil, nil
	}
	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT game_id, day_index, type, actor_id, target_id, payload_json, created_at
FROM facts
WHERE game_id = ? AND actor_id = ? AND type = ?
ORDER BY id DESC
LIMIT ?`, gameID, playerID, string(fact.TypeDMSent), limit)
	if err != nil {
		return nil, fmt.Errorf("query dms: %w", err)
	}
	defer rows.Close()

	var out []storage.AuditRecord
	for rows.Next() {
		var (
			rec       storage.AuditRecord
			typ       string
			payload   []byte
			createdAt int64
		)
		if err := rows.Scan(&rec.GameID, &rec.DayIndex, &typ, &rec.ActorID, &rec.TargetID, &payload, &createdAt); err != nil {
			return nil, fmt.Errorf("scan dm: %w", err)
		}
		rec.Type = fact.Type(typ)
		rec.Payload = payload
		rec.Timestamp = fromMillis(createdAt)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read dms: %w", err)
	}
	return out, nil
}
