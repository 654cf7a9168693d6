package cartridge

import (
	"math/rand/v2"
	"time"

	"github.com/louisbranch/pecking-order/internal/services/game/domain/event"
	"github.com/louisbranch/pecking-order/internal/services/game/domain/roster"
)

// Kind is the region slot a cartridge occupies.
type Kind string

const (
	KindVoting Kind = "VOTING"
	KindGame   Kind = "GAME"
	KindPrompt Kind = "PROMPT"
)

// Prefix returns the event type prefix addressed to cartridges of kind k.
func (k Kind) Prefix() string {
	switch k {
	case KindVoting:
		return event.PrefixVote
	case KindGame:
		return event.PrefixGame
	case KindPrompt:
		return event.PrefixActivity
	}
	return ""
}

// ResultType returns the upward event type carrying a terminal result of kind k.
func (k Kind) ResultType() event.Type {
	switch k {
	case KindVoting:
		return event.TypeCartridgeVoteResult
	case KindGame:
		return event.TypeCartridgeGameResult
	case KindPrompt:
		return event.TypeCartridgePromptResult
	}
	return ""
}

// Env is the per-call context handed to a cartridge.
type Env struct {
	Now time.Time
	// Rand drives shuffles and random tie-breaks. It is owned by the game
	// instance and never shared across games.
	Rand *rand.Rand
	// Roster is a read-only copy reflecting every fact applied so far.
	Roster roster.Roster
}

// Config is the construction input shared by every mechanism.
type Config struct {
	Mechanism string
	DayIndex  int
	Prompt    PromptConfig
}

// PromptConfig carries the admin- or timeline-supplied prompt text.
type PromptConfig struct {
	Text    string   `json:"promptText,omitempty"`
	Options []string `json:"options,omitempty"`
}

// Actor is the contract every cartridge implements.
type Actor interface {
	Kind() Kind
	Mechanism() string
	// Handle processes one event addressed to this cartridge.
	Handle(env Env, evt event.Event) []event.Event
	// Advance fires any timers whose deadline is at or before env.Now.
	Advance(env Env) []event.Event
	// Close delivers the parent's close signal. Multi-phase cartridges may
	// move to their next phase instead of finishing.
	Close(env Env) []event.Event
	Done() bool
	// Result is nil until Done.
	Result() *Result
	// Deadline is the next timer, or the zero time when none is pending.
	Deadline() time.Time
	// Project returns the view of this cartridge visible to viewerID.
	Project(viewerID string) any
}

// Starter is implemented by cartridges that emit events as they are spawned,
// such as a vote whose electorate is empty and resolves on construction.
type Starter interface {
	// Start returns the spawn events once; later calls return nil.
	Start(env Env) []event.Event
}

// Result is the terminal output of a cartridge.
type Result struct {
	Kind             Kind           `json:"kind"`
	Mechanism        string         `json:"mechanism"`
	DayIndex         int            `json:"dayIndex"`
	EliminatedID     string         `json:"eliminatedId,omitempty"`
	WinnerID         string         `json:"winnerId,omitempty"`
	SilverRewards    map[string]int `json:"silverRewards,omitempty"`
	GoldContribution int            `json:"goldContribution,omitempty"`
	Summary          map[string]any `json:"summary,omitempty"`
}

// PlayerGameResult credits one player of an asynchronous game as they finish.
type PlayerGameResult struct {
	PlayerID  string         `json:"playerId"`
	Mechanism string         `json:"mechanism"`
	DayIndex  int            `json:"dayIndex"`
	Silver    int            `json:"silver"`
	Summary   map[string]any `json:"summary,omitempty"`
}
