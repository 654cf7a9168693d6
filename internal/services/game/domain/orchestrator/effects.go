package orchestrator

import (
	"time"

	"github.com/louisbranch/pecking-order/internal/services/game/domain/event"
	"github.com/louisbranch/pecking-order/internal/services/game/domain/fact"
)

// Effect is a side effect requested by a transition. The host performs
// effects after Send returns; their outcome only comes back as new events.
type Effect interface {
	isEffect()
}

// EffectFact reports an applied fact. Journal is set for the audited subset.
type EffectFact struct {
	Fact     fact.Fact
	DayIndex int
	Journal  bool
}

// EffectDeliver sends an event to one player only.
type EffectDeliver struct {
	PlayerID string
	Event    event.Event
}

// EffectQueryDMs asks the audit store for a target's latest DMs. The answer
// comes back as a PERK.RESULT event sent by the requester.
type EffectQueryDMs struct {
	RequesterID string
	TargetID    string
	Limit       int
}

// EffectSchedule asks for a SYSTEM.WAKEUP at At.
type EffectSchedule struct {
	At time.Time
}

// EffectTransition reports a lifecycle state change.
type EffectTransition struct {
	From State
	To   State
}

func (EffectFact) isEffect()       {}
func (EffectDeliver) isEffect()    {}
func (EffectQueryDMs) isEffect()   {}
func (EffectSchedule) isEffect()   {}
func (EffectTransition) isEffect() {}
