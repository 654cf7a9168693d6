package voting

import (
	"github.com/louisbranch/pecking-order/internal/services/game/domain/cartridge"
	"github.com/louisbranch/pecking-order/internal/services/game/domain/roster"
)

// Mechanism ids.
const (
	Majority        = "MAJORITY"
	Bubble          = "BUBBLE"
	PodiumSacrifice = "PODIUM_SACRIFICE"
	SecondToLast    = "SECOND_TO_LAST"
	Shield          = "SHIELD"
	Executioner     = "EXECUTIONER"
	TrustPairs      = "TRUST_PAIRS"
	Finals          = "FINALS"
)

// Action names, the last segment of VOTE.<MECHANISM>.<ACTION>.
const (
	ActionCast      = "CAST"
	ActionElect     = "ELECT"
	ActionPick      = "PICK"
	ActionTrust     = "TRUST"
	ActionEliminate = "ELIMINATE"
)

// Phase of a ballot.
type Phase string

const (
	PhaseVoting   Phase = "VOTING"
	PhaseElection Phase = "ELECTION"
	PhasePick     Phase = "PICK"
	PhaseResolved Phase = "RESOLVED"
)

// podiumSize is how many top-silver players Bubble protects, Podium
// Sacrifice exposes, and Executioner shields from the pick.
const podiumSize = 3

// outcome is what a resolution rule decides.
type outcome struct {
	eliminatedID string
	winnerID     string
	summary      map[string]any
}

type rules struct {
	initial  Phase
	eligible func(r roster.Roster) (voters, targets []string)
	// actions lists the accepted actions per phase.
	actions  map[Phase][]string
	complete func(b *Ballot) bool
	resolve  func(b *Ballot, env cartridge.Env) outcome
}

var mechanisms = map[string]rules{
	Majority: {
		initial:  PhaseVoting,
		eligible: everyoneAlive,
		actions:  castOnly,
		complete: allVoted,
		resolve:  plurality,
	},
	Bubble: {
		initial: PhaseVoting,
		eligible: func(r roster.Roster) ([]string, []string) {
			return r.Alive(), cartridge.Without(r.Alive(), r.TopBySilver(podiumSize)...)
		},
		actions:  castOnly,
		complete: allVoted,
		resolve:  plurality,
	},
	PodiumSacrifice: {
		initial: PhaseVoting,
		eligible: func(r roster.Roster) ([]string, []string) {
			podium := r.TopBySilver(podiumSize)
			return cartridge.Without(r.Alive(), podium...), podium
		},
		actions:  castOnly,
		complete: allVoted,
		resolve:  plurality,
	},
	SecondToLast: {
		initial: PhaseVoting,
		eligible: func(r roster.Roster) ([]string, []string) {
			return nil, r.Alive()
		},
		actions:  map[Phase][]string{},
		complete: func(*Ballot) bool { return false },
		resolve:  secondToLast,
	},
	Shield: {
		initial:  PhaseVoting,
		eligible: everyoneAlive,
		actions:  castOnly,
		complete: allVoted,
		resolve:  fewestSaves,
	},
	Executioner: {
		initial:  PhaseElection,
		eligible: everyoneAlive,
		actions: map[Phase][]string{
			PhaseElection: {ActionElect},
			PhasePick:     {ActionPick},
		},
		complete: func(b *Ballot) bool {
			return b.Phase == PhasePick && b.Votes[b.Executioner] != ""
		},
		resolve: executionerPick,
	},
	TrustPairs: {
		initial:  PhaseVoting,
		eligible: everyoneAlive,
		actions:  map[Phase][]string{PhaseVoting: {ActionTrust, ActionEliminate}},
		complete: func(b *Ballot) bool {
			for _, id := range b.Voters {
				if b.Votes[id] == "" || b.Trusts[id] == "" {
					return false
				}
			}
			return len(b.Voters) > 0
		},
		resolve: trustPairs,
	},
	Finals: {
		initial: PhaseVoting,
		eligible: func(r roster.Roster) ([]string, []string) {
			return r.Eliminated(), r.Alive()
		},
		actions:  castOnly,
		complete: allVoted,
		resolve:  finals,
	},
}

var castOnly = map[Phase][]string{PhaseVoting: {ActionCast}}

func everyoneAlive(r roster.Roster) ([]string, []string) {
	return r.Alive(), r.Alive()
}

func allVoted(b *Ballot) bool {
	if len(b.Voters) == 0 {
		return false
	}
	for _, id := range b.Voters {
		if b.Votes[id] == "" {
			return false
		}
	}
	return true
}
