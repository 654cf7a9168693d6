// Package journal writes audit records in the background so a slow or
// failing audit store never blocks a game.
//
// Append never blocks: when the queue is full the record is dropped and
// reported. Failed writes are retried with exponential backoff, then dropped.
package journal

import (
	"context"
	"errors"
	"sync"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/louisbranch/pecking-order/internal/services/game/storage"
)

// ErrClosed is returned by Append after Close.
var ErrClosed = errors.New("journal is closed")

// ErrQueueFull is returned by Append when the record was dropped.
var ErrQueueFull = errors.New("journal queue is full")

// Config tunes the writer. Zero fields take defaults.
type Config struct {
	QueueSize    int
	MaxAttempts  int
	BaseBackoff  time.Duration
	MaxInterval  time.Duration
	WriteTimeout time.Duration
	Logger       zerolog.Logger
	// OnDrop is called for every record that was not persisted.
	OnDrop func(rec storage.AuditRecord, err error)
}

func (c Config) withDefaults() Config {
	if c.QueueSize <= 0 {
		c.QueueSize = 1024
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 5
	}
	if c.BaseBackoff <= 0 {
		c.BaseBackoff = 100 * time.Millisecond
	}
	if c.MaxInterval <= 0 {
		c.MaxInterval = 5 * time.Second
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 5 * time.Second
	}
	return c
}

// Writer is an asynchronous AuditStore front end.
type Writer struct {
	store storage.AuditStore
	cfg   Config
	queue chan storage.AuditRecord
	done  chan struct{}
	wg    sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// New starts the writer's worker goroutine.
func New(store storage.AuditStore, cfg Config) *Writer {
	cfg = cfg.withDefaults()
	w := &Writer{
		store: store,
		cfg:   cfg,
		queue: make(chan storage.AuditRecord, cfg.QueueSize),
		done:  make(chan struct{}),
	}
	w.wg.Add(1)
	go w.run()
	return w
}

// Append enqueues rec without blocking.
func (w *Writer) Append(rec storage.AuditRecord) error {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return ErrClosed
	}
	select {
	case w.queue <- rec:
		return nil
	default:
		w.drop(rec, ErrQueueFull)
		return ErrQueueFull
	}
}

// LastDMs reads through to the store.
func (w *Writer) LastDMs(ctx context.Context, gameID, playerID string, limit int) ([]storage.AuditRecord, error) {
	return w.store.LastDMs(ctx, gameID, playerID, limit)
}

// Close stops accepting records, drains the queue and waits for the worker.
// It does not close the underlying store.
func (w *Writer) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	close(w.queue)
	w.mu.Unlock()
	w.wg.Wait()
	return nil
}

func (w *Writer) run() {
	defer w.wg.Done()
	for rec := range w.queue {
		if err := w.write(rec); err != nil {
			w.drop(rec, err)
		}
	}
}

func (w *Writer) write(rec storage.AuditRecord) error {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = w.cfg.BaseBackoff
	exp.MaxInterval = w.cfg.MaxInterval
	exp.Reset()
	policy := backoff.WithMaxRetries(exp, uint64(w.cfg.MaxAttempts-1))

	return backoff.RetryNotify(func() error {
		ctx, cancel := context.WithTimeout(context.Background(), w.cfg.WriteTimeout)
		defer cancel()
		err := w.store.AppendFact(ctx, rec)
		if errors.Is(err, storage.ErrGameIDRequired) {
			return backoff.Permanent(err)
		}
		return err
	}, policy, func(err error, wait time.Duration) {
		w.cfg.Logger.Warn().Err(err).Str("game_id", rec.GameID).Str("fact", string(rec.Type)).
			Dur("retry_in", wait).Msg("audit write failed")
	})
}

func (w *Writer) drop(rec storage.AuditRecord, err error) {
	w.cfg.Logger.Error().Err(err).Str("game_id", rec.GameID).Str("fact", string(rec.Type)).Msg("audit record dropped")
	if w.cfg.OnDrop != nil {
		w.cfg.OnDrop(rec, err)
	}
}
