// Package game parses game command flags and starts the game host.
package game

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	entrypoint "github.com/louisbranch/pecking-order/internal/platform/cmd"
	"github.com/louisbranch/pecking-order/internal/platform/logging"
	"github.com/louisbranch/pecking-order/internal/platform/otel"
	"github.com/louisbranch/pecking-order/internal/services/game/app"
	"github.com/louisbranch/pecking-order/internal/services/game/domain/cartridge/catalog"
	"github.com/louisbranch/pecking-order/internal/services/game/observability/metrics"
	"github.com/louisbranch/pecking-order/internal/services/game/storage"
	storagebbolt "github.com/louisbranch/pecking-order/internal/services/game/storage/bbolt"
	"github.com/louisbranch/pecking-order/internal/services/game/storage/journal"
	"github.com/louisbranch/pecking-order/internal/services/game/storage/memory"
	storagepostgres "github.com/louisbranch/pecking-order/internal/services/game/storage/postgres"
	storageredis "github.com/louisbranch/pecking-order/internal/services/game/storage/redis"
	storagesqlite "github.com/louisbranch/pecking-order/internal/services/game/storage/sqlite"
)

// Storage backends.
const (
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendBolt     = "bbolt"
	BackendRedis    = "redis"
	BackendMemory   = "memory"
	BackendNone     = "none"
)

// Config holds game command configuration. Variables carry the
// PECKING_ORDER_ prefix.
type Config struct {
	Port int    `env:"GAME_PORT" envDefault:"8080"`
	Addr string `env:"GAME_ADDR"`

	// AuditBackend is sqlite, postgres or none.
	AuditBackend string `env:"AUDIT_BACKEND" envDefault:"sqlite"`
	AuditDBPath  string `env:"AUDIT_DB_PATH" envDefault:"data/audit.db"`
	DatabaseURL  string `env:"DATABASE_URL"`

	// SnapshotBackend is bbolt, redis or memory.
	SnapshotBackend string        `env:"SNAPSHOT_BACKEND" envDefault:"bbolt"`
	SnapshotDBPath  string        `env:"SNAPSHOT_DB_PATH" envDefault:"data/snapshots.db"`
	RedisURL        string        `env:"REDIS_URL"`
	SnapshotTTL     time.Duration `env:"SNAPSHOT_TTL"`

	AdminToken string `env:"ADMIN_TOKEN"`
	JWTSecret  string `env:"JWT_SECRET"`

	Log       logging.Config
	Telemetry otel.Config
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.IntVar(&cfg.Port, "port", cfg.Port, "The game server port")
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "The game server listen address (overrides -port)")
	fs.StringVar(&cfg.AuditBackend, "audit", cfg.AuditBackend, "Audit store backend: sqlite, postgres or none")
	fs.StringVar(&cfg.SnapshotBackend, "snapshots", cfg.SnapshotBackend, "Snapshot store backend: bbolt, redis or memory")
	fs.StringVar(&cfg.Log.Level, "log-level", cfg.Log.Level, "Log level")
	fs.StringVar(&cfg.Log.Format, "log-format", cfg.Log.Format, "Log format: json or console")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ListenAddr returns Addr, or all interfaces on Port.
func (c Config) ListenAddr() string {
	if c.Addr != "" {
		return c.Addr
	}
	return net.JoinHostPort("", strconv.Itoa(c.Port))
}

// Run starts the game host until ctx ends.
func Run(ctx context.Context, cfg Config) error {
	log, err := logging.New(entrypoint.ServiceGame, cfg.Log)
	if err != nil {
		return err
	}
	options := entrypoint.RunOptions{Telemetry: cfg.Telemetry, Logger: log}
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceGame, options, func(ctx context.Context) error {
		return serve(ctx, cfg, log)
	})
}

func serve(ctx context.Context, cfg Config, log zerolog.Logger) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	registry, err := catalog.New()
	if err != nil {
		return fmt.Errorf("cartridge catalog: %w", err)
	}

	audit, err := openAudit(ctx, cfg)
	if err != nil {
		return err
	}
	if audit != nil {
		defer closeStore(log, "audit", audit)
	}
	snapshots, err := openSnapshots(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore(log, "snapshots", snapshots)

	deps := app.Deps{Registry: registry, Snapshots: snapshots, Metrics: m, Logger: log}
	if audit != nil {
		w := journal.New(audit, journal.Config{
			Logger: log,
			OnDrop: func(storage.AuditRecord, error) { m.Dropped() },
		})
		defer w.Close()
		deps.Journal = w
	} else {
		log.Warn().Msg("audit store disabled, spy perks will see no messages")
	}

	manager := app.NewManager(deps)
	defer manager.Close()
	loaded, err := manager.LoadAll(ctx)
	if err != nil {
		return err
	}
	log.Info().Int("games", loaded).Msg("games restored")

	var tokens *app.Tokens
	if cfg.JWTSecret != "" {
		if tokens, err = app.NewTokens(cfg.JWTSecret); err != nil {
			return err
		}
	} else {
		log.Warn().Msg("no jwt secret, player connections are disabled")
	}
	if cfg.AdminToken == "" {
		log.Warn().Msg("no admin token, admin api is disabled")
	}

	handler := app.NewHandler(app.HandlerConfig{
		Manager:    manager,
		Tokens:     tokens,
		AdminToken: cfg.AdminToken,
		Metrics:    m,
		Gatherer:   reg,
		Logger:     log,
	})
	srv, err := app.NewServer(cfg.ListenAddr(), handler, log)
	if err != nil {
		return err
	}
	return srv.Serve(ctx)
}

// openAudit returns nil for the none backend.
func openAudit(ctx context.Context, cfg Config) (storage.AuditStore, error) {
	switch strings.ToLower(cfg.AuditBackend) {
	case BackendSQLite:
		if err := ensureDir(cfg.AuditDBPath); err != nil {
			return nil, err
		}
		store, err := storagesqlite.Open(ctx, cfg.AuditDBPath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite audit store: %w", err)
		}
		return store, nil
	case BackendPostgres:
		if cfg.DatabaseURL == "" {
			return nil, errors.New("postgres audit store requires PECKING_ORDER_DATABASE_URL")
		}
		store, err := storagepostgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("open postgres audit store: %w", err)
		}
		return store, nil
	case BackendNone:
		return nil, nil
	}
	return nil, fmt.Errorf("unknown audit backend %q", cfg.AuditBackend)
}

func openSnapshots(ctx context.Context, cfg Config) (storage.SnapshotStore, error) {
	switch strings.ToLower(cfg.SnapshotBackend) {
	case BackendBolt:
		if err := ensureDir(cfg.SnapshotDBPath); err != nil {
			return nil, err
		}
		store, err := storagebbolt.Open(cfg.SnapshotDBPath)
		if err != nil {
			return nil, fmt.Errorf("open bbolt snapshot store: %w", err)
		}
		return store, nil
	case BackendRedis:
		if cfg.RedisURL == "" {
			return nil, errors.New("redis snapshot store requires PECKING_ORDER_REDIS_URL")
		}
		store, err := storageredis.Open(ctx, cfg.RedisURL, cfg.SnapshotTTL)
		if err != nil {
			return nil, fmt.Errorf("open redis snapshot store: %w", err)
		}
		return store, nil
	case BackendMemory:
		return memory.NewSnapshots(), nil
	}
	return nil, fmt.Errorf("unknown snapshot backend %q", cfg.SnapshotBackend)
}

func ensureDir(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create storage dir: %w", err)
		}
	}
	return nil
}

func closeStore(log zerolog.Logger, name string, c interface{ Close() error }) {
	if err := c.Close(); err != nil {
		log.Warn().Err(err).Str("store", name).Msg("close store")
	}
}
