package app

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/louisbranch/pecking-order/internal/platform/timeouts"
	"github.com/louisbranch/pecking-order/internal/services/game/domain/cartridge"
	"github.com/louisbranch/pecking-order/internal/services/game/domain/event"
	"github.com/louisbranch/pecking-order/internal/services/game/domain/fact"
	"github.com/louisbranch/pecking-order/internal/services/game/domain/manifest"
	"github.com/louisbranch/pecking-order/internal/services/game/domain/orchestrator"
	"github.com/louisbranch/pecking-order/internal/services/game/domain/projection"
	"github.com/louisbranch/pecking-order/internal/services/game/domain/roster"
	"github.com/louisbranch/pecking-order/internal/services/game/domain/schedule"
	"github.com/louisbranch/pecking-order/internal/services/game/domain/session"
	"github.com/louisbranch/pecking-order/internal/services/game/domain/ticker"
	"github.com/louisbranch/pecking-order/internal/services/game/observability/metrics"
	"github.com/louisbranch/pecking-order/internal/services/game/storage"
)

const (
	mailboxSize    = 64
	subscriberSize = 32
)

var (
	// ErrHostClosed is returned by calls made after Close.
	ErrHostClosed = errors.New("game host is closed")
	// ErrEventNotAllowed marks a client event outside the allow-list.
	ErrEventNotAllowed = errors.New("event type is not accepted from clients")
	// ErrUnknownPlayer marks a connection for a player not on the roster.
	ErrUnknownPlayer = errors.New("player is not on the roster")
	// ErrInitRejected indicates SYSTEM.INIT left the game uninitialized.
	ErrInitRejected = errors.New("game init rejected")
)

var tracer = otel.Tracer("github.com/louisbranch/pecking-order/internal/services/game/app")

// Journal persists audited facts and answers spy queries. Append must not
// block; the journal owns drop accounting.
type Journal interface {
	Append(rec storage.AuditRecord) error
	LastDMs(ctx context.Context, gameID, playerID string, limit int) ([]storage.AuditRecord, error)
}

// Deps are shared by every host of a Manager. Nil stores disable the
// matching side effect.
type Deps struct {
	Registry  *cartridge.Registry
	Journal   Journal
	Snapshots storage.SnapshotStore
	Metrics   *metrics.Metrics
	Logger    zerolog.Logger
	Window    schedule.Window
	// Now defaults to time.Now.
	Now func() time.Time
}

func (d Deps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

func (d Deps) orchestratorOptions() orchestrator.Options {
	return orchestrator.Options{Registry: d.Registry, Logger: d.Logger, Window: d.Window}
}

// SpiedDM is one message revealed by the spy perk.
type SpiedDM struct {
	ChannelID   string    `json:"channelId"`
	RecipientID string    `json:"recipientId,omitempty"`
	Content     string    `json:"content"`
	Timestamp   time.Time `json:"timestamp"`
}

// SpyResult is the PERK.RESULT payload.
type SpyResult struct {
	TargetID string    `json:"targetId"`
	Messages []SpiedDM `json:"messages"`
}

// Status summarizes a game for the admin API.
type Status struct {
	GameID     string        `json:"gameId"`
	State      string        `json:"state"`
	DayIndex   int           `json:"dayIndex"`
	Winner     string        `json:"winner,omitempty"`
	GoldPool   int           `json:"goldPool"`
	NextWakeup time.Time     `json:"nextWakeup,omitempty"`
	Roster     roster.Roster `json:"roster"`
	Online     []string      `json:"online"`
}

// Subscription is one player connection. Frames is closed when the host
// drops the connection or shuts down.
type Subscription struct {
	PlayerID string
	frames   chan Frame
	once     sync.Once
}

// Frames returns the outbound frame stream.
func (s *Subscription) Frames() <-chan Frame { return s.frames }

func (s *Subscription) close() {
	s.once.Do(func() { close(s.frames) })
}

// Host runs one game. All orchestrator access happens on its goroutine.
type Host struct {
	gameID   string
	deps     Deps
	log      zerolog.Logger
	orch     *orchestrator.Orchestrator
	tracker  *projection.Tracker
	feed     *ticker.Feed
	subs     map[*Subscription]struct{}
	presence map[string]int
	timer    *time.Timer

	mailbox   chan func()
	done      chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once
}

func newHost(gameID string, orch *orchestrator.Orchestrator, deps Deps) *Host {
	h := &Host{
		gameID:   gameID,
		deps:     deps,
		log:      deps.Logger.With().Str("game_id", gameID).Logger(),
		orch:     orch,
		tracker:  projection.NewTracker(),
		feed:     ticker.NewFeed(nil),
		subs:     make(map[*Subscription]struct{}),
		presence: make(map[string]int),
		mailbox:  make(chan func(), mailboxSize),
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
	go h.run()
	if wake := orch.Context().NextWakeup; !wake.IsZero() {
		h.post(func() { h.schedule(wake) })
	}
	return h
}

// GameID returns the hosted game's id.
func (h *Host) GameID() string { return h.gameID }

func (h *Host) run() {
	defer close(h.stopped)
	for {
		select {
		case fn := <-h.mailbox:
			fn()
		case <-h.done:
			if h.timer != nil {
				h.timer.Stop()
			}
			for sub := range h.subs {
				sub.close()
				h.deps.Metrics.Connected(-1)
			}
			h.subs = nil
			return
		}
	}
}

// Close stops the host goroutine and closes every subscription.
func (h *Host) Close() {
	h.closeOnce.Do(func() { close(h.done) })
	<-h.stopped
}

// do runs fn on the host goroutine and waits for it.
func (h *Host) do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	select {
	case h.mailbox <- func() { fn(); close(finished) }:
	case <-h.done:
		return ErrHostClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-finished:
		return nil
	case <-h.stopped:
		return ErrHostClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// post queues fn without waiting. Used by timers and async callbacks.
func (h *Host) post(fn func()) {
	go func() {
		select {
		case h.mailbox <- fn:
		case <-h.done:
		}
	}()
}

// Init sends SYSTEM.INIT.
func (h *Host) Init(ctx context.Context, p orchestrator.InitPayload) error {
	var state orchestrator.State
	err := h.do(ctx, func() {
		h.dispatch(event.New(event.TypeSystemInit, "", h.deps.now(), p))
		state = h.orch.State()
	})
	if err != nil {
		return err
	}
	if state == orchestrator.StateUninitialized {
		return ErrInitRejected
	}
	return nil
}

// Client forwards an event from a verified player connection. Types
// outside the allow-list are dropped with ErrEventNotAllowed.
func (h *Host) Client(ctx context.Context, playerID string, t event.Type, payload json.RawMessage) error {
	if !event.IsClientAllowed(t) {
		return ErrEventNotAllowed
	}
	evt := event.Event{Type: t, SenderID: playerID, Timestamp: h.deps.now().UTC(), PayloadJSON: payload}
	return h.do(ctx, func() { h.dispatch(evt) })
}

// Advance sends ADMIN.NEXT_STAGE.
func (h *Host) Advance(ctx context.Context) error {
	return h.do(ctx, func() {
		h.dispatch(event.New(event.TypeAdminNextStage, "", h.deps.now(), nil))
	})
}

// Inject sends ADMIN.INJECT_TIMELINE_EVENT.
func (h *Host) Inject(ctx context.Context, p orchestrator.InjectPayload) error {
	return h.do(ctx, func() {
		h.dispatch(event.New(event.TypeAdminInjectTimeline, "", h.deps.now(), p))
	})
}

// Narrator posts a system message into group chat.
func (h *Host) Narrator(ctx context.Context, text string) error {
	payload, err := json.Marshal(session.NarratorPayload{Text: text})
	if err != nil {
		return err
	}
	return h.Inject(ctx, orchestrator.InjectPayload{Action: manifest.ActionNarrator, Payload: payload})
}

// Status reports the game's lifecycle position.
func (h *Host) Status(ctx context.Context) (Status, error) {
	var st Status
	err := h.do(ctx, func() {
		c := h.orch.Context()
		st = Status{
			GameID:     h.gameID,
			State:      string(h.orch.State()),
			DayIndex:   c.DayIndex,
			Winner:     c.Winner,
			GoldPool:   c.GoldPool,
			NextWakeup: c.NextWakeup,
			Roster:     c.Roster,
			Online:     presenceList(h.presence),
		}
	})
	return st, err
}

// Connect registers a player connection. The new subscription immediately
// receives the ticker history, presence and a full view.
func (h *Host) Connect(ctx context.Context, playerID string) (*Subscription, error) {
	var sub *Subscription
	var connectErr error
	err := h.do(ctx, func() {
		if !h.orch.Context().Roster.Has(playerID) {
			connectErr = ErrUnknownPlayer
			return
		}
		sub = &Subscription{PlayerID: playerID, frames: make(chan Frame, subscriberSize)}
		h.subs[sub] = struct{}{}
		h.presence[playerID]++
		h.deps.Metrics.Connected(1)

		h.offer(sub, historyFrame(h.feed.Messages()))
		h.broadcast(presenceFrame(h.presence))
		h.tracker.Forget(playerID)
		h.syncPlayer(playerID)
	})
	if err != nil {
		return nil, err
	}
	return sub, connectErr
}

// Disconnect removes a connection. Presence is broadcast once the player
// has no connection left.
func (h *Host) Disconnect(sub *Subscription) {
	h.post(func() { h.drop(sub) })
}

func (h *Host) drop(sub *Subscription) {
	if _, ok := h.subs[sub]; !ok {
		return
	}
	delete(h.subs, sub)
	sub.close()
	h.deps.Metrics.Connected(-1)
	h.presence[sub.PlayerID]--
	if h.presence[sub.PlayerID] > 0 {
		return
	}
	delete(h.presence, sub.PlayerID)
	h.tracker.Forget(sub.PlayerID)
	h.broadcast(presenceFrame(h.presence))
}

// dispatch runs evt through the orchestrator and performs its effects.
func (h *Host) dispatch(evt event.Event) {
	ctx, span := tracer.Start(context.Background(), "game.event", trace.WithAttributes(
		attribute.String("game.id", h.gameID),
		attribute.String("event.type", string(evt.Type)),
	))
	defer span.End()

	start := time.Now()
	effects := h.orch.Send(evt)
	h.apply(ctx, evt, effects)
	if err := h.persist(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "snapshot")
	}
	h.sync()
	h.deps.Metrics.Event(string(evt.Type), time.Since(start))
	span.SetAttributes(
		attribute.Int("effects", len(effects)),
		attribute.String("game.state", string(h.orch.State())),
	)
}

func (h *Host) apply(ctx context.Context, evt event.Event, effects []orchestrator.Effect) {
	var r roster.Roster
	for _, e := range effects {
		switch e := e.(type) {
		case orchestrator.EffectFact:
			h.deps.Metrics.Fact(string(e.Fact.Type))
			if e.Journal {
				h.journal(e)
			}
			if r == nil {
				r = h.orch.Context().Roster
			}
			if m, ok := h.feed.Fact(e.Fact, r); ok {
				h.broadcast(tickerFrame(m))
			}
		case orchestrator.EffectDeliver:
			if isRejection(e.Event.Type) {
				h.deps.Metrics.Rejection(string(e.Event.Type))
			}
			h.sendTo(e.PlayerID, frameOf(e.Event))
		case orchestrator.EffectQueryDMs:
			h.queryDMs(ctx, e)
		case orchestrator.EffectSchedule:
			h.schedule(e.At)
		case orchestrator.EffectTransition:
			h.log.Info().Str("from", string(e.From)).Str("to", string(e.To)).Msg("state transition")
			if m, ok := h.feed.Transition(string(e.To), h.orch.Context().DayIndex, evt.Timestamp); ok {
				h.broadcast(tickerFrame(m))
			}
		}
	}
}

func isRejection(t event.Type) bool {
	switch t {
	case event.TypeDMRejected, event.TypeSilverTransferRejected, event.TypeChannelRejected,
		event.TypePerkRejected, event.TypeCartridgeRejected:
		return true
	}
	return false
}

func (h *Host) journal(e orchestrator.EffectFact) {
	if h.deps.Journal == nil {
		return
	}
	rec := storage.NewAuditRecord(h.gameID, e.DayIndex, e.Fact)
	if err := h.deps.Journal.Append(rec); err != nil {
		h.log.Warn().Err(err).Str("fact", string(e.Fact.Type)).Msg("journal append")
	}
}

// queryDMs answers a spy purchase off the host goroutine. The answer comes
// back as PERK.RESULT; a failed query yields an empty result.
func (h *Host) queryDMs(ctx context.Context, q orchestrator.EffectQueryDMs) {
	link := trace.LinkFromContext(ctx)
	go func() {
		ctx, span := tracer.Start(context.Background(), "game.query_dms", trace.WithLinks(link))
		defer span.End()
		ctx, cancel := context.WithTimeout(ctx, timeouts.StoreRead)
		defer cancel()

		result := SpyResult{TargetID: q.TargetID, Messages: []SpiedDM{}}
		if h.deps.Journal != nil {
			recs, err := h.deps.Journal.LastDMs(ctx, h.gameID, q.TargetID, q.Limit)
			if err != nil {
				span.RecordError(err)
				h.log.Error().Err(err).Str("target_id", q.TargetID).Msg("spy dm query")
			}
			for _, rec := range recs {
				p, err := fact.Decode[fact.DMSentPayload](rec.Fact())
				if err != nil {
					continue
				}
				result.Messages = append(result.Messages, SpiedDM{
					ChannelID:   p.ChannelID,
					RecipientID: rec.TargetID,
					Content:     p.Content,
					Timestamp:   rec.Timestamp,
				})
			}
		}
		h.post(func() {
			h.dispatch(event.New(event.TypePerkResult, q.RequesterID, h.deps.now(), result))
		})
	}()
}

// schedule arms the single wakeup timer. A past time fires at once.
func (h *Host) schedule(at time.Time) {
	if h.timer != nil {
		h.timer.Stop()
	}
	delay := max(at.Sub(h.deps.now()), 0)
	h.timer = time.AfterFunc(delay, func() {
		h.post(func() {
			h.deps.Metrics.Wakeup()
			h.dispatch(event.New(event.TypeSystemWakeup, "", h.deps.now(), nil))
		})
	})
}

func (h *Host) persist(ctx context.Context) error {
	if h.deps.Snapshots == nil || h.orch.State() == orchestrator.StateUninitialized {
		return nil
	}
	snap, err := h.orch.Snapshot()
	if err != nil {
		h.deps.Metrics.SnapshotFailed()
		h.log.Error().Err(err).Msg("snapshot")
		return err
	}
	data, err := json.Marshal(snap)
	if err != nil {
		h.deps.Metrics.SnapshotFailed()
		h.log.Error().Err(err).Msg("encode snapshot")
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, timeouts.StoreWrite)
	defer cancel()
	if err := h.deps.Snapshots.PutSnapshot(ctx, h.gameID, data); err != nil {
		h.deps.Metrics.SnapshotFailed()
		h.log.Error().Err(err).Msg("persist snapshot")
		return err
	}
	return nil
}

// sync sends a fresh view to every connected player whose view changed.
func (h *Host) sync() {
	for playerID := range h.presence {
		h.syncPlayer(playerID)
	}
}

func (h *Host) syncPlayer(playerID string) {
	data, changed, err := h.tracker.Changed(playerID, h.orch.View(playerID))
	if err != nil {
		h.log.Error().Err(err).Str("player_id", playerID).Msg("build view")
		return
	}
	if changed {
		h.sendTo(playerID, Frame{Type: FrameSync, Payload: data})
	}
}

func (h *Host) sendTo(playerID string, f Frame) {
	for sub := range h.subs {
		if sub.PlayerID == playerID {
			h.offer(sub, f)
		}
	}
}

func (h *Host) broadcast(f Frame) {
	for sub := range h.subs {
		h.offer(sub, f)
	}
}

// offer never blocks the host. A subscriber that cannot keep up is dropped
// and must reconnect for a full view.
func (h *Host) offer(sub *Subscription, f Frame) {
	select {
	case sub.frames <- f:
	default:
		h.log.Warn().Str("player_id", sub.PlayerID).Msg("slow connection dropped")
		h.drop(sub)
	}
}

func presenceList(presence map[string]int) []string {
	out := make([]string, 0, len(presence))
	for id := range presence {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
