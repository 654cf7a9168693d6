// Package orchestrator implements the per-game lifecycle actor.
//
// The orchestrator owns the roster, the economy and the day counter. It hosts
// a Daily Session (or the Post-Game actor) as its only child, folds the facts
// and results the child sends up, and computes when it must be woken next.
// It never performs I/O: Send returns effects that the host interprets.
package orchestrator

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/louisbranch/pecking-order/internal/random"
	"github.com/louisbranch/pecking-order/internal/services/game/domain/cartridge"
	"github.com/louisbranch/pecking-order/internal/services/game/domain/event"
	"github.com/louisbranch/pecking-order/internal/services/game/domain/manifest"
	"github.com/louisbranch/pecking-order/internal/services/game/domain/postgame"
	"github.com/louisbranch/pecking-order/internal/services/game/domain/roster"
	"github.com/louisbranch/pecking-order/internal/services/game/domain/schedule"
	"github.com/louisbranch/pecking-order/internal/services/game/domain/session"
	"github.com/louisbranch/pecking-order/internal/services/game/domain/social"
)

var (
	// ErrRosterRequired indicates an init payload without players.
	ErrRosterRequired = errors.New("roster is required")
	// ErrGameIDRequired indicates an init payload without a game id.
	ErrGameIDRequired = errors.New("game id is required")
)

// State is a lifecycle state. Nested states are dot-separated.
type State string

const (
	StateUninitialized   State = "uninitialized"
	StatePreGame         State = "preGame"
	StateMorningBriefing State = "dayLoop.morningBriefing"
	StateWaitingForChild State = "dayLoop.activeSession.waitingForChild"
	StateRunning         State = "dayLoop.activeSession.running"
	StateNightSummary    State = "dayLoop.nightSummary"
	StateGameSummary     State = "gameSummary"
	StateGameOver        State = "gameOver"
)

// InitPayload is the SYSTEM.INIT payload.
type InitPayload struct {
	GameID     string            `json:"gameId"`
	InviteCode string            `json:"inviteCode,omitempty"`
	Roster     roster.Roster     `json:"roster"`
	Manifest   manifest.Manifest `json:"manifest"`
}

// Validate checks the payload and returns it with a normalized manifest.
func (p InitPayload) Validate() (InitPayload, error) {
	if p.GameID == "" {
		return InitPayload{}, ErrGameIDRequired
	}
	if len(p.Roster) == 0 {
		return InitPayload{}, ErrRosterRequired
	}
	m, err := manifest.Normalize(p.Manifest)
	if err != nil {
		return InitPayload{}, fmt.Errorf("init %s: %w", p.GameID, err)
	}
	p.Manifest = m
	p.Roster = p.Roster.Clone()
	return p, nil
}

// InjectPayload is the ADMIN.INJECT_TIMELINE_EVENT payload.
type InjectPayload struct {
	Action  manifest.Action `json:"action"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Context is the mutable aggregate owned by the orchestrator.
type Context struct {
	GameID             string                     `json:"gameId"`
	InviteCode         string                     `json:"inviteCode,omitempty"`
	Roster             roster.Roster              `json:"roster"`
	Manifest           manifest.Manifest          `json:"manifest"`
	DayIndex           int                        `json:"dayIndex"`
	NextWakeup         time.Time                  `json:"nextWakeup"`
	LastProcessedTime  time.Time                  `json:"lastProcessedTime"`
	PendingElimination *cartridge.Result          `json:"pendingElimination,omitempty"`
	Winner             string                     `json:"winner,omitempty"`
	GoldPool           int                        `json:"goldPool"`
	GameHistory        []cartridge.HistoryEntry   `json:"gameHistory"`
	CompletedPhases    []cartridge.CompletedPhase `json:"completedPhases"`
	LastJournalAt      time.Time                  `json:"lastJournalAt"`
	// ChatLog carries the chat ring buffer from one day to the next.
	ChatLog []social.ChatMessage `json:"chatLog,omitempty"`
}

// Options configure an orchestrator.
type Options struct {
	Registry *cartridge.Registry
	// Logger is the zero value to discard.
	Logger zerolog.Logger
	// Seed initializes the game's PRNG. The zero seed is replaced by a
	// crypto-random one.
	Seed random.Seed
	// NewID mints channel and message ids. Defaults to uuid.NewString.
	NewID  func() string
	Window schedule.Window
}

// Orchestrator is the per-game lifecycle actor. It is not safe for
// concurrent use; the host serializes every call.
type Orchestrator struct {
	state    State
	ctx      Context
	session  *session.Session
	post     *postgame.Actor
	pcg      *rand.PCG
	rng      *rand.Rand
	now      time.Time
	effects  []Effect
	registry *cartridge.Registry
	log      zerolog.Logger
	newID    func() string
	window   schedule.Window
}

// New returns an uninitialized orchestrator.
func New(opts Options) *Orchestrator {
	seed := opts.Seed
	if seed == (random.Seed{}) {
		if s, err := random.NewSeed(); err == nil {
			seed = s
		}
	}
	o := &Orchestrator{
		state:    StateUninitialized,
		registry: opts.Registry,
		log:      opts.Logger,
		newID:    opts.NewID,
		window:   opts.Window,
	}
	if o.newID == nil {
		o.newID = uuid.NewString
	}
	if o.window == (schedule.Window{}) {
		o.window = schedule.DefaultWindow()
	}
	o.pcg = rand.NewPCG(seed.Hi, seed.Lo)
	o.rng = rand.New(o.pcg)
	return o
}

// State returns the current lifecycle state.
func (o *Orchestrator) State() State { return o.state }

// Context returns a copy of the game context.
func (o *Orchestrator) Context() Context {
	c := o.ctx
	c.Roster = o.ctx.Roster.Clone()
	c.GameHistory = append([]cartridge.HistoryEntry(nil), o.ctx.GameHistory...)
	c.CompletedPhases = append([]cartridge.CompletedPhase(nil), o.ctx.CompletedPhases...)
	c.ChatLog = append([]social.ChatMessage(nil), o.ctx.ChatLog...)
	return c
}

// Session returns the live Daily Session, or nil.
func (o *Orchestrator) Session() *session.Session { return o.session }

// Send processes one event to completion and returns the side effects to
// perform. The event timestamp is the orchestrator's clock.
func (o *Orchestrator) Send(evt event.Event) []Effect {
	o.now = evt.Timestamp
	o.effects = nil
	previousWakeup := o.ctx.NextWakeup

	// Spy answers arrive asynchronously and were paid for when requested, so
	// they reach the requester whatever the game state is by then.
	if evt.Type == event.TypePerkResult && o.state != StateUninitialized {
		o.deliver(evt.SenderID, evt)
		o.reschedule(previousWakeup)
		return o.effects
	}

	switch o.state {
	case StateUninitialized:
		if evt.Type == event.TypeSystemInit {
			o.init(evt)
		}
	case StatePreGame:
		if o.advanceRequested(evt) {
			o.startDay()
		}
	case StateRunning:
		o.running(evt)
	case StateNightSummary:
		if o.advanceRequested(evt) {
			o.leaveNight()
		}
	case StateGameSummary:
		if evt.Type == event.TypeAdminNextStage {
			o.transition(StateGameOver)
			break
		}
		o.postGame(evt)
	case StateGameOver:
	}

	o.reschedule(previousWakeup)
	return o.effects
}

func (o *Orchestrator) init(evt event.Event) {
	p, err := event.Decode[InitPayload](evt)
	if err == nil {
		p, err = p.Validate()
	}
	if err != nil {
		o.log.Error().Err(err).Msg("init rejected")
		return
	}
	o.ctx = Context{
		GameID:     p.GameID,
		InviteCode: p.InviteCode,
		Roster:     p.Roster,
		Manifest:   p.Manifest,
	}
	o.log = o.log.With().Str("game_id", p.GameID).Logger()
	o.transition(StatePreGame)
}

// advanceRequested reports whether evt moves a waiting state forward: an
// admin advance, or a wakeup once the scheduled time has arrived.
func (o *Orchestrator) advanceRequested(evt event.Event) bool {
	switch evt.Type {
	case event.TypeAdminNextStage:
		return true
	case event.TypeSystemWakeup:
		wake := o.ctx.NextWakeup
		return !wake.IsZero() && !o.now.Before(wake.Add(-o.window.EarlyTolerance))
	}
	return false
}

func (o *Orchestrator) startDay() {
	o.transition(StateMorningBriefing)
	o.ctx.DayIndex++
	day, ok := o.ctx.Manifest.Day(o.ctx.DayIndex)
	if !ok {
		o.log.Info().Int("day", o.ctx.DayIndex).Msg("no more days configured")
		o.enterGameSummary()
		return
	}

	o.transition(StateWaitingForChild)
	o.session = session.New(session.Input{
		DayIndex: o.ctx.DayIndex,
		Roster:   o.ctx.Roster,
		Day:      day,
		ChatLog:  o.ctx.ChatLog,
	}, o.now, o.sessionOptions())
	o.ctx.ChatLog = nil
	o.transition(StateRunning)

	if o.ctx.Manifest.IsTimeline() {
		o.runTimeline()
	}
}

func (o *Orchestrator) sessionOptions() session.Options {
	return session.Options{Registry: o.registry, Logger: o.log, NewID: o.newID}
}

func (o *Orchestrator) running(evt event.Event) {
	switch {
	case evt.Type == event.TypeSystemWakeup:
		o.toSession(event.New(event.TypeInternalTick, "", o.now, nil))
		if o.state == StateRunning && o.ctx.Manifest.IsTimeline() {
			o.runTimeline()
		}
	case evt.Type == event.TypeAdminNextStage:
		o.endDay("ADMIN")
	case evt.Type == event.TypeAdminInjectTimeline:
		p, err := event.Decode[InjectPayload](evt)
		if err != nil {
			o.log.Warn().Err(err).Msg("inject timeline event")
			return
		}
		o.raise(p.Action, p.Payload, "ADMIN")
	case event.IsSocial(evt.Type), event.IsCartridgeEvent(evt.Type):
		o.toSession(evt)
	default:
		o.log.Debug().Str("type", string(evt.Type)).Msg("event dropped while running")
	}
}

func (o *Orchestrator) toSession(evt event.Event) {
	if o.session == nil {
		return
	}
	o.upward(o.session.Send(session.Env{Now: o.now, Rand: o.rng}, evt))
}

func (o *Orchestrator) endDay(reason string) {
	if o.session != nil {
		o.upward(o.session.Send(session.Env{Now: o.now, Rand: o.rng},
			event.New(event.TypeInternalEndDay, "", o.now, session.EndDayPayload{Reason: reason})))
		o.ctx.ChatLog = o.session.ChatLog()
		o.session = nil
	}
	o.transition(StateNightSummary)
	o.resolveNight()
}

func (o *Orchestrator) leaveNight() {
	if o.ctx.Winner != "" || o.ctx.DayIndex >= len(o.ctx.Manifest.Days) {
		o.enterGameSummary()
		return
	}
	o.startDay()
}

func (o *Orchestrator) enterGameSummary() {
	o.post = postgame.New(o.ctx.Roster, o.ctx.ChatLog, o.now, o.newID)
	o.ctx.ChatLog = nil
	o.transition(StateGameSummary)
}

func (o *Orchestrator) postGame(evt event.Event) {
	if o.post == nil {
		return
	}
	if evt.Type == event.TypeAdminInjectTimeline {
		p, err := event.Decode[InjectPayload](evt)
		if err != nil || p.Action != manifest.ActionNarrator {
			return
		}
		evt = event.Event{Type: event.TypeInternalNarrator, Timestamp: o.now, PayloadJSON: p.Payload}
	}
	o.upward(o.post.Send(o.now, evt))
}

func (o *Orchestrator) transition(to State) {
	if o.state == to {
		return
	}
	o.effects = append(o.effects, EffectTransition{From: o.state, To: to})
	o.state = to
}
