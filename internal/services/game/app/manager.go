package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/louisbranch/pecking-order/internal/services/game/domain/orchestrator"
	"github.com/louisbranch/pecking-order/internal/services/game/storage"
)

var (
	// ErrGameNotFound indicates no host and no snapshot exist for a game id.
	ErrGameNotFound = errors.New("game not found")
	// ErrGameExists indicates a create for a game id already hosted.
	ErrGameExists = errors.New("game already exists")
)

// Manager keys independent hosts by game id.
type Manager struct {
	deps Deps

	mu     sync.Mutex
	hosts  map[string]*Host
	closed bool
}

// NewManager returns a manager with no hosts loaded.
func NewManager(deps Deps) *Manager {
	return &Manager{deps: deps, hosts: make(map[string]*Host)}
}

// Create starts a host for a new game and initializes it.
func (m *Manager) Create(ctx context.Context, p orchestrator.InitPayload) (*Host, error) {
	p, err := p.Validate()
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, ErrHostClosed
	}
	if _, ok := m.hosts[p.GameID]; ok {
		m.mu.Unlock()
		return nil, fmt.Errorf("%s: %w", p.GameID, ErrGameExists)
	}
	if m.deps.Snapshots != nil {
		if _, err := m.deps.Snapshots.GetSnapshot(ctx, p.GameID); err == nil {
			m.mu.Unlock()
			return nil, fmt.Errorf("%s: %w", p.GameID, ErrGameExists)
		}
	}
	h := newHost(p.GameID, orchestrator.New(m.deps.orchestratorOptions()), m.deps)
	m.hosts[p.GameID] = h
	m.mu.Unlock()
	m.deps.Metrics.GamesLoaded(m.Len())

	if err := h.Init(ctx, p); err != nil {
		m.remove(p.GameID, h)
		return nil, err
	}
	m.deps.Logger.Info().Str("game_id", p.GameID).Int("players", len(p.Roster)).Msg("game created")
	return h, nil
}

// Get returns the host for gameID, restoring it from its snapshot on first
// access.
func (m *Manager) Get(ctx context.Context, gameID string) (*Host, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrHostClosed
	}
	if h, ok := m.hosts[gameID]; ok {
		return h, nil
	}
	h, err := m.load(ctx, gameID)
	if err != nil {
		return nil, err
	}
	m.hosts[gameID] = h
	m.deps.Metrics.GamesLoaded(len(m.hosts))
	return h, nil
}

// LoadAll restores every game in the snapshot store. Games that fail to
// load are logged and skipped.
func (m *Manager) LoadAll(ctx context.Context) (int, error) {
	if m.deps.Snapshots == nil {
		return 0, nil
	}
	ids, err := m.deps.Snapshots.ListGames(ctx)
	if err != nil {
		return 0, fmt.Errorf("list games: %w", err)
	}
	loaded := 0
	for _, id := range ids {
		if _, err := m.Get(ctx, id); err != nil {
			m.deps.Logger.Error().Err(err).Str("game_id", id).Msg("restore game")
			continue
		}
		loaded++
	}
	return loaded, nil
}

// Len reports how many hosts are running.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.hosts)
}

// Close stops every host. Later calls fail with ErrHostClosed.
func (m *Manager) Close() {
	m.mu.Lock()
	hosts := m.hosts
	m.hosts = make(map[string]*Host)
	m.closed = true
	m.mu.Unlock()
	for _, h := range hosts {
		h.Close()
	}
	m.deps.Metrics.GamesLoaded(0)
}

func (m *Manager) load(ctx context.Context, gameID string) (*Host, error) {
	if m.deps.Snapshots == nil {
		return nil, fmt.Errorf("%s: %w", gameID, ErrGameNotFound)
	}
	data, err := m.deps.Snapshots.GetSnapshot(ctx, gameID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%s: %w", gameID, ErrGameNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot %s: %w", gameID, err)
	}

	var snap orchestrator.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		// Restore resets on an invalid snapshot; an undecodable one is the
		// same case.
		m.deps.Logger.Error().Err(err).Str("game_id", gameID).Msg("decode snapshot")
		snap = orchestrator.Snapshot{}
	}
	orch, status := orchestrator.Restore(snap, m.deps.orchestratorOptions())
	if status == orchestrator.RestoreReset {
		m.deps.Logger.Warn().Str("game_id", gameID).Msg("snapshot reset, game must be re-initialized")
	}
	return newHost(gameID, orch, m.deps), nil
}

func (m *Manager) remove(gameID string, h *Host) {
	m.mu.Lock()
	if m.hosts[gameID] == h {
		delete(m.hosts, gameID)
	}
	n := len(m.hosts)
	m.mu.Unlock()
	h.Close()
	m.deps.Metrics.GamesLoaded(n)
}
