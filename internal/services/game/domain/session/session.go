package session

import (
	"math/rand/v2"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/louisbranch/pecking-order/internal/services/game/domain/cartridge"
	"github.com/louisbranch/pecking-order/internal/services/game/domain/decision"
	"github.com/louisbranch/pecking-order/internal/services/game/domain/economy"
	"github.com/louisbranch/pecking-order/internal/services/game/domain/event"
	"github.com/louisbranch/pecking-order/internal/services/game/domain/fact"
	"github.com/louisbranch/pecking-order/internal/services/game/domain/manifest"
	"github.com/louisbranch/pecking-order/internal/services/game/domain/roster"
	"github.com/louisbranch/pecking-order/internal/services/game/domain/social"
)

// Stage is the Main Stage sub-state.
type Stage string

const (
	StageGroupChat Stage = "groupChat"
	StageDailyGame Stage = "dailyGame"
	StageVoting    Stage = "voting"
)

// EndReasonEndDay is the default reason recorded when a day ends.
const EndReasonEndDay = "END_DAY"

// Env is the per-event context supplied by the parent.
type Env struct {
	Now  time.Time
	Rand *rand.Rand
}

// Options configure a session.
type Options struct {
	Registry *cartridge.Registry
	// Logger receives configuration warnings. The zero value discards.
	Logger zerolog.Logger
	// NewID mints channel and message ids. Defaults to uuid.NewString.
	NewID func() string
}

// Input is the spawn input of a session.
type Input struct {
	DayIndex int
	Roster   roster.Roster
	Day      manifest.DayConfig
	// ChatLog is carried over from the previous day.
	ChatLog []social.ChatMessage
}

// Session is one day's Daily Session actor.
type Session struct {
	dayIndex  int
	day       manifest.DayConfig
	roster    roster.Roster
	social    *social.State
	stage     Stage
	slots     map[cartridge.Kind]cartridge.Actor
	ended     bool
	endReason string

	registry *cartridge.Registry
	log      zerolog.Logger
	newID    func() string
}

// New spawns a session for one day.
func New(in Input, now time.Time, opts Options) *Session {
	s := newSession(opts)
	s.dayIndex = in.DayIndex
	s.day = in.Day
	s.roster = in.Roster.Clone()
	s.social = social.NewState(social.DefaultLimits(in.Day.DMCharsPerPlayer, in.Day.DMPartnersPerPlayer), in.ChatLog, now)
	s.stage = StageGroupChat
	return s
}

func newSession(opts Options) *Session {
	s := &Session{
		slots:    make(map[cartridge.Kind]cartridge.Actor),
		registry: opts.Registry,
		log:      opts.Logger.With().Str("component", "session").Logger(),
		newID:    opts.NewID,
	}
	if s.newID == nil {
		s.newID = uuid.NewString
	}
	return s
}

func (s *Session) DayIndex() int           { return s.dayIndex }
func (s *Session) Day() manifest.DayConfig { return s.day }
func (s *Session) Stage() Stage            { return s.stage }
func (s *Session) Social() *social.State   { return s.social }
func (s *Session) Done() bool              { return s.ended }
func (s *Session) EndReason() string       { return s.endReason }

// Cartridge returns the live cartridge of kind, or nil.
func (s *Session) Cartridge(kind cartridge.Kind) cartridge.Actor {
	return s.slots[kind]
}

// ChatLog returns the chat ring buffer to carry into the next day.
func (s *Session) ChatLog() []social.ChatMessage {
	return append([]social.ChatMessage(nil), s.social.ChatLog...)
}

// Deadline returns the earliest pending cartridge timer, or the zero time.
func (s *Session) Deadline() time.Time {
	var next time.Time
	for _, a := range s.slots {
		d := a.Deadline()
		if d.IsZero() {
			continue
		}
		if next.IsZero() || d.Before(next) {
			next = d
		}
	}
	return next
}

// Send processes one event and returns the events bound for the parent.
// Events addressed to an ended session are dropped.
func (s *Session) Send(env Env, evt event.Event) []event.Event {
	if s.ended {
		return nil
	}
	if event.IsCartridgeEvent(evt.Type) {
		return s.forward(env, evt)
	}
	if event.IsSocial(evt.Type) {
		return s.handleSocial(env, evt)
	}

	switch evt.Type {
	case event.TypeInternalOpenGroupChat:
		s.social.GroupChatOpen = true
	case event.TypeInternalCloseGroupChat:
		s.social.GroupChatOpen = false
	case event.TypeInternalOpenDMs:
		s.social.DMsOpen = true
	case event.TypeInternalCloseDMs:
		s.social.DMsOpen = false

	case event.TypeInternalStartGame:
		return s.startMainStage(env, evt, cartridge.KindGame)
	case event.TypeInternalOpenVoting:
		return s.startMainStage(env, evt, cartridge.KindVoting)
	case event.TypeInternalEndGame:
		return s.close(env, cartridge.KindGame)
	case event.TypeInternalCloseVoting:
		return s.close(env, cartridge.KindVoting)
	case event.TypeInternalInjectPrompt:
		return s.injectPrompt(env, evt)
	case event.TypeInternalEndActivity:
		return s.close(env, cartridge.KindPrompt)

	case event.TypeInternalNarrator:
		p, err := event.Decode[NarratorPayload](evt)
		if err != nil || p.Text == "" {
			s.log.Warn().Err(err).Msg("narrator message without text")
			return nil
		}
		s.social.AppendSystemMessage(s.newID(), p.Text, env.Now)
	case event.TypeInternalRosterSync:
		p, err := event.Decode[RosterSyncPayload](evt)
		if err != nil {
			s.log.Error().Err(err).Msg("roster sync")
			return nil
		}
		s.roster = p.Roster.Clone()
	case event.TypeInternalTick:
		return s.tick(env)
	case event.TypeInternalEndDay:
		return s.endDay(env, evt)
	default:
		s.log.Debug().Str("type", string(evt.Type)).Msg("event ignored by session")
	}
	return nil
}

func (s *Session) cartridgeEnv(env Env) cartridge.Env {
	return cartridge.Env{Now: env.Now, Rand: env.Rand, Roster: s.roster.Clone()}
}

func (s *Session) socialEnv(env Env) social.Env {
	return social.Env{Now: env.Now, Roster: s.roster, NewID: s.newID}
}

func (s *Session) handleSocial(env Env, evt event.Event) []event.Event {
	var (
		d          decision.Decision
		rejectType event.Type
	)
	switch evt.Type {
	case event.TypeSocialSendMsg:
		rejectType = event.TypeDMRejected
		req, err := event.Decode[social.MessageRequest](evt)
		if err != nil {
			d = decodeFailed(err)
			break
		}
		d = social.DecideMessage(s.social, s.socialEnv(env), evt.SenderID, req)
	case event.TypeSocialSendSilver:
		rejectType = event.TypeSilverTransferRejected
		req, err := event.Decode[social.TransferRequest](evt)
		if err != nil {
			d = decodeFailed(err)
			break
		}
		d = social.DecideTransfer(s.socialEnv(env), evt.SenderID, req)
	case event.TypeSocialUsePerk:
		rejectType = event.TypePerkRejected
		req, err := event.Decode[social.PerkRequest](evt)
		if err != nil {
			d = decodeFailed(err)
			break
		}
		d = social.DecidePerk(s.socialEnv(env), evt.SenderID, req)
	case event.TypeSocialCreateChannel:
		rejectType = event.TypeChannelRejected
		req, err := event.Decode[social.ChannelRequest](evt)
		if err != nil {
			d = decodeFailed(err)
			break
		}
		d = social.DecideCreateChannel(s.social, s.socialEnv(env), evt.SenderID, req)
	}
	out := d.Outcome(rejectType, evt.SenderID, env.Now)
	if !d.Rejected() {
		s.fold(out)
	}
	return out
}

func decodeFailed(err error) decision.Decision {
	return decision.Reject(decision.Rejection{Code: decision.RejectionCodePayloadDecodeFailed, Message: err.Error()})
}

// fold applies accepted facts to the day's social state and roster copy.
func (s *Session) fold(events []event.Event) {
	for _, evt := range events {
		if evt.Type != event.TypeFactRecord {
			continue
		}
		f, err := fact.FromEvent(evt)
		if err != nil {
			s.log.Error().Err(err).Msg("fold fact")
			continue
		}
		s.social.Apply(f)
		s.roster = economy.Apply(s.roster, f)
	}
}

// forward delivers a cartridge-prefixed event to the live cartridge of the
// matching region. Events without a live cartridge are dropped.
func (s *Session) forward(env Env, evt event.Event) []event.Event {
	kind, ok := kindFor(event.RouteFor(evt.Type))
	if !ok {
		return nil
	}
	a := s.slots[kind]
	if a == nil {
		s.log.Debug().Str("type", string(evt.Type)).Msg("no live cartridge")
		return nil
	}
	return s.settle(env, kind, a.Handle(s.cartridgeEnv(env), evt))
}

func kindFor(t event.Target) (cartridge.Kind, bool) {
	switch t {
	case event.TargetVoting:
		return cartridge.KindVoting, true
	case event.TargetGame:
		return cartridge.KindGame, true
	case event.TargetActivity:
		return cartridge.KindPrompt, true
	}
	return "", false
}

func (s *Session) startMainStage(env Env, evt event.Event, kind cartridge.Kind) []event.Event {
	if s.stage != StageGroupChat {
		s.log.Warn().Str("type", string(evt.Type)).Str("stage", string(s.stage)).Msg("main stage is busy")
		return nil
	}
	mechanism := s.day.VoteType
	if kind == cartridge.KindGame {
		if !s.day.HasGame() {
			s.log.Info().Int("day", s.dayIndex).Msg("no daily game configured")
			return nil
		}
		mechanism = s.day.GameType
	}
	if p, err := event.Decode[MechanismPayload](evt); err == nil && p.Mechanism != "" {
		mechanism = p.Mechanism
	}
	return s.spawn(env, kind, mechanism, cartridge.Config{})
}

func (s *Session) injectPrompt(env Env, evt event.Event) []event.Event {
	if s.slots[cartridge.KindPrompt] != nil {
		s.log.Warn().Msg("prompt already active")
		return nil
	}
	p, err := event.Decode[PromptPayload](evt)
	if err != nil {
		s.log.Warn().Err(err).Msg("prompt payload")
	}
	return s.spawn(env, cartridge.KindPrompt, p.PromptType, cartridge.Config{
		Prompt: cartridge.PromptConfig{Text: p.PromptText, Options: p.Options},
	})
}

func (s *Session) spawn(env Env, kind cartridge.Kind, mechanism string, cfg cartridge.Config) []event.Event {
	if s.registry == nil {
		s.log.Error().Str("kind", string(kind)).Msg("no cartridge registry")
		return nil
	}
	entry, fellBack, err := s.registry.Resolve(kind, mechanism)
	if err != nil {
		s.log.Error().Err(err).Msg("resolve cartridge")
		return nil
	}
	if fellBack {
		s.log.Warn().
			Str("kind", string(kind)).
			Str("requested", mechanism).
			Str("fallback", entry.Mechanism).
			Msg("unknown mechanism, using default")
	}
	cfg.Mechanism = entry.Mechanism
	cfg.DayIndex = s.dayIndex
	a := entry.New(s.cartridgeEnv(env), cfg)
	s.slots[kind] = a
	switch kind {
	case cartridge.KindGame:
		s.stage = StageDailyGame
	case cartridge.KindVoting:
		s.stage = StageVoting
	}
	var out []event.Event
	if st, ok := a.(cartridge.Starter); ok {
		out = st.Start(s.cartridgeEnv(env))
	}
	return s.settle(env, kind, out)
}

func (s *Session) close(env Env, kind cartridge.Kind) []event.Event {
	a := s.slots[kind]
	if a == nil {
		return nil
	}
	return s.settle(env, kind, a.Close(s.cartridgeEnv(env)))
}

func (s *Session) tick(env Env) []event.Event {
	var out []event.Event
	for _, kind := range s.liveKinds() {
		if a := s.slots[kind]; a != nil {
			out = append(out, s.settle(env, kind, a.Advance(s.cartridgeEnv(env)))...)
		}
	}
	return out
}

// settle interprets a cartridge's output. Game DM requests are handled here;
// everything else goes up. A finished cartridge is torn down and its result
// relayed.
func (s *Session) settle(env Env, kind cartridge.Kind, out []event.Event) []event.Event {
	up := make([]event.Event, 0, len(out)+1)
	for _, evt := range out {
		switch evt.Type {
		case event.TypeChannelGameDMOpen:
			if p, err := event.Decode[cartridge.GameDM](evt); err == nil && p.ChannelID != "" {
				s.social.OpenGameDM(p.ChannelID, p.MemberIDs, env.Now)
			}
		case event.TypeChannelGameDMClose:
			if p, err := event.Decode[cartridge.GameDM](evt); err == nil {
				s.social.CloseGameDM(p.ChannelID)
			}
		default:
			up = append(up, evt)
		}
	}

	a := s.slots[kind]
	if a == nil || !a.Done() {
		return up
	}
	if res := a.Result(); res != nil {
		up = append(up, event.New(kind.ResultType(), cartridge.SystemActor, env.Now, *res))
	}
	delete(s.slots, kind)
	if kind != cartridge.KindPrompt {
		s.stage = StageGroupChat
	}
	return up
}

// maxCloseSignals bounds how many close signals a multi-phase cartridge gets
// when the day ends under it.
const maxCloseSignals = 3

func (s *Session) endDay(env Env, evt event.Event) []event.Event {
	reason := EndReasonEndDay
	if p, err := event.Decode[EndDayPayload](evt); err == nil && p.Reason != "" {
		reason = p.Reason
	}

	var out []event.Event
	for _, kind := range s.liveKinds() {
		for i := 0; i < maxCloseSignals && s.slots[kind] != nil; i++ {
			out = append(out, s.close(env, kind)...)
		}
		if s.slots[kind] != nil {
			s.log.Warn().Str("kind", string(kind)).Msg("cartridge dropped unresolved at end of day")
			delete(s.slots, kind)
		}
	}
	s.stage = StageGroupChat
	s.ended = true
	s.endReason = reason
	return out
}

func (s *Session) liveKinds() []cartridge.Kind {
	kinds := make([]cartridge.Kind, 0, len(s.slots))
	for kind := range s.slots {
		kinds = append(kinds, kind)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}
