// Package redis implements the snapshot store on Redis. Each game is one
// string key; a set indexes the known games.
package redis

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/louisbranch/pecking-order/internal/services/game/storage"
)

const gamesKey = "pecking-order:games"

var _ storage.SnapshotStore = (*Store)(nil)

func snapshotKey(gameID string) string {
	return fmt.Sprintf("pecking-order:game:%s:snapshot", gameID)
}

// Store is a Redis-backed snapshot store.
type Store struct {
	client *redis.Client
	// ttl expires idle snapshots; zero keeps them forever.
	ttl time.Duration
}

// Open parses redisURL, connects and pings the server.
func Open(ctx context.Context, redisURL string, ttl time.Duration) (*Store, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &Store{client: client, ttl: ttl}, nil
}

// Close closes the client. It is nil-safe.
func (s *Store) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}

// PutSnapshot replaces the snapshot of gameID and indexes the game.
func (s *Store) PutSnapshot(ctx context.Context, gameID string, data []byte) error {
	if err := s.check(gameID); err != nil {
		return err
	}
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, snapshotKey(gameID), data, s.ttl)
		pipe.SAdd(ctx, gamesKey, gameID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("put snapshot %s: %w", gameID, err)
	}
	return nil
}

// GetSnapshot returns the stored snapshot.
func (s *Store) GetSnapshot(ctx context.Context, gameID string) ([]byte, error) {
	if err := s.check(gameID); err != nil {
		return nil, err
	}
	data, err := s.client.Get(ctx, snapshotKey(gameID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get snapshot %s: %w", gameID, err)
	}
	return data, nil
}

// ListGames returns the indexed game ids, sorted.
func (s *Store) ListGames(ctx context.Context) ([]string, error) {
	if s == nil || s.client == nil {
		return nil, storage.ErrNotConfigured
	}
	ids, err := s.client.SMembers(ctx, gamesKey).Result()
	if err != nil {
		return nil, fmt.Errorf("list games: %w", err)
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *Store) check(gameID string) error {
	if s == nil || s.client == nil {
		return storage.ErrNotConfigured
	}
	if strings.TrimSpace(gameID) == "" {
		return storage.ErrGameIDRequired
	}
	return nil
}
