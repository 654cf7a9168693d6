package voting

import (
	"time"

	"github.com/louisbranch/pecking-order/internal/services/game/domain/cartridge"
	"github.com/louisbranch/pecking-order/internal/services/game/domain/event"
	"github.com/louisbranch/pecking-order/internal/services/game/domain/fact"
)

// Ballot is the state of one vote cartridge.
type Ballot struct {
	Mech     string   `json:"mechanism"`
	DayIndex int      `json:"dayIndex"`
	Phase    Phase    `json:"phase"`
	Voters   []string `json:"eligibleVoters"`
	Targets  []string `json:"eligibleTargets"`
	// Votes maps voter to target for CAST, ELIMINATE and the executioner PICK.
	Votes map[string]string `json:"votes"`
	// Trusts maps voter to trusted player for TRUST_PAIRS.
	Trusts map[string]string `json:"trusts,omitempty"`
	// Election maps voter to candidate during the EXECUTIONER election.
	Election    map[string]string `json:"election,omitempty"`
	Executioner string            `json:"executioner,omitempty"`

	Results *cartridge.Result `json:"results,omitempty"`

	// pending holds events raised during construction until Start.
	pending []event.Event
}

var (
	_ cartridge.Actor   = (*Ballot)(nil)
	_ cartridge.Starter = (*Ballot)(nil)
)

// New constructs a ballot for cfg.Mechanism. Unknown mechanisms are the
// registry's concern; New assumes a known id.
func New(env cartridge.Env, cfg cartridge.Config) *Ballot {
	rule := mechanisms[cfg.Mechanism]
	voters, targets := rule.eligible(env.Roster)
	b := &Ballot{
		Mech:     cfg.Mechanism,
		DayIndex: cfg.DayIndex,
		Phase:    rule.initial,
		Voters:   nonNil(voters),
		Targets:  nonNil(targets),
		Votes:    make(map[string]string),
	}
	switch cfg.Mechanism {
	case TrustPairs:
		b.Trusts = make(map[string]string)
	case Executioner:
		b.Election = make(map[string]string)
	}

	// Degenerate electorates resolve immediately.
	if (cfg.Mechanism == Finals || cfg.Mechanism == PodiumSacrifice) && len(b.Voters) == 0 {
		b.pending = b.resolve(env)
	}
	return b
}

// Start returns the events raised while the ballot was constructed.
func (b *Ballot) Start(cartridge.Env) []event.Event {
	out := b.pending
	b.pending = nil
	return out
}

func (b *Ballot) Kind() cartridge.Kind      { return cartridge.KindVoting }
func (b *Ballot) Mechanism() string         { return b.Mech }
func (b *Ballot) Done() bool                { return b.Phase == PhaseResolved }
func (b *Ballot) Result() *cartridge.Result { return b.Results }
func (b *Ballot) Deadline() time.Time       { return time.Time{} }

// Advance is a no-op: votes carry no timers.
func (b *Ballot) Advance(cartridge.Env) []event.Event { return nil }

type targetPayload struct {
	TargetID string `json:"targetId"`
}

// Handle records one vote action.
func (b *Ballot) Handle(env cartridge.Env, evt event.Event) []event.Event {
	if b.Done() {
		return nil
	}
	if event.Mechanism(evt.Type) != b.Mech {
		return cartridge.Reject(env, evt, cartridge.RejectUnknownAction, "no such vote is open")
	}
	action := event.Action(evt.Type)
	if !cartridge.Contains(mechanisms[b.Mech].actions[b.Phase], action) {
		return cartridge.Reject(env, evt, cartridge.RejectWrongPhase, "action not accepted now")
	}
	payload, err := event.Decode[targetPayload](evt)
	if err != nil || payload.TargetID == "" {
		return cartridge.Reject(env, evt, cartridge.RejectInvalidPayload, "targetId is required")
	}

	voter, target := evt.SenderID, payload.TargetID
	var ballots map[string]string
	switch action {
	case ActionElect:
		ballots = b.Election
		if !cartridge.Contains(b.Voters, voter) {
			return cartridge.Reject(env, evt, cartridge.RejectNotEligible, "you cannot vote")
		}
	case ActionPick:
		ballots = b.Votes
		if voter != b.Executioner {
			return cartridge.Reject(env, evt, cartridge.RejectNotEligible, "only the executioner picks")
		}
	case ActionTrust:
		ballots = b.Trusts
		if !cartridge.Contains(b.Voters, voter) {
			return cartridge.Reject(env, evt, cartridge.RejectNotEligible, "you cannot vote")
		}
		if voter == target {
			return cartridge.Reject(env, evt, cartridge.RejectInvalidTarget, "cannot target yourself")
		}
	default:
		ballots = b.Votes
		if !cartridge.Contains(b.Voters, voter) {
			return cartridge.Reject(env, evt, cartridge.RejectNotEligible, "you cannot vote")
		}
		if b.Mech == TrustPairs && voter == target {
			return cartridge.Reject(env, evt, cartridge.RejectInvalidTarget, "cannot target yourself")
		}
	}
	if !cartridge.Contains(b.Targets, target) || !env.Roster.IsAlive(target) {
		return cartridge.Reject(env, evt, cartridge.RejectInvalidTarget, "target is not eligible")
	}
	if ballots[voter] != "" {
		// First write wins; repeats are ignored.
		return nil
	}
	ballots[voter] = target

	out := []event.Event{cartridge.RecordFact(env, fact.TypeVoteCast, voter, target, fact.CartridgePayload{
		Mechanism: b.Mech,
		Action:    action,
		DayIndex:  b.DayIndex,
	})}
	return append(out, b.afterVote(env)...)
}

func (b *Ballot) afterVote(env cartridge.Env) []event.Event {
	if b.Phase == PhaseElection {
		if !electionComplete(b) {
			return nil
		}
		b.elect(env)
		if len(b.Targets) == 0 {
			return b.resolve(env)
		}
		return nil
	}
	if mechanisms[b.Mech].complete(b) {
		return b.resolve(env)
	}
	return nil
}

func electionComplete(b *Ballot) bool {
	if len(b.Voters) == 0 {
		return false
	}
	for _, id := range b.Voters {
		if b.Election[id] == "" {
			return false
		}
	}
	return true
}

// elect crowns the election winner and opens the pick phase with targets
// excluding the podium and the executioner.
func (b *Ballot) elect(env cartridge.Env) {
	leaders := cartridge.Leaders(cartridge.Tally(b.Election))
	b.Executioner = cartridge.LowestSilverTieBreak(env.Roster, leaders)
	b.Phase = PhasePick
	b.Targets = nonNil(cartridge.Without(env.Roster.Alive(), append(env.Roster.TopBySilver(podiumSize), b.Executioner)...))
}

// Close resolves the ballot with whatever votes were cast. An executioner
// election closed early records the executioner and eliminates nobody.
func (b *Ballot) Close(env cartridge.Env) []event.Event {
	if b.Done() {
		return nil
	}
	if b.Phase == PhaseElection {
		leaders := cartridge.Leaders(cartridge.Tally(b.Election))
		b.Executioner = cartridge.LowestSilverTieBreak(env.Roster, leaders)
	}
	return b.resolve(env)
}

func (b *Ballot) resolve(env cartridge.Env) []event.Event {
	out := mechanisms[b.Mech].resolve(b, env)
	b.Phase = PhaseResolved
	b.Results = &cartridge.Result{
		Kind:         cartridge.KindVoting,
		Mechanism:    b.Mech,
		DayIndex:     b.DayIndex,
		EliminatedID: out.eliminatedID,
		WinnerID:     out.winnerID,
		Summary:      out.summary,
	}
	return []event.Event{cartridge.ResultFact(env, fact.TypeVoteResult, *b.Results)}
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
