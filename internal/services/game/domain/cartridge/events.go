package cartridge

import (
	"github.com/louisbranch/pecking-order/internal/services/game/domain/decision"
	"github.com/louisbranch/pecking-order/internal/services/game/domain/event"
	"github.com/louisbranch/pecking-order/internal/services/game/domain/fact"
)

// SystemActor is the actor id stamped on facts raised by a cartridge itself.
const SystemActor = "SYSTEM"

// Rejection codes returned by cartridges.
const (
	RejectNotEligible    = "NOT_ELIGIBLE"
	RejectInvalidTarget  = "INVALID_TARGET"
	RejectWrongPhase     = "WRONG_PHASE"
	RejectDeadlinePassed = "DEADLINE_PASSED"
	RejectUnknownAction  = "UNKNOWN_ACTION"
	RejectInvalidPayload = "INVALID_PAYLOAD"
)

// Reject builds a CARTRIDGE.REJECTED event addressed to the sender of evt.
func Reject(env Env, evt event.Event, code, message string) []event.Event {
	return []event.Event{event.New(event.TypeCartridgeRejected, evt.SenderID, env.Now,
		decision.RejectionPayload{Reason: code, Message: message})}
}

// RecordFact wraps a new fact as a FACT.RECORD event.
func RecordFact(env Env, t fact.Type, actorID, targetID string, payload any) event.Event {
	return fact.Record(fact.New(t, actorID, targetID, env.Now, payload))
}

// ResultFact builds the fact recorded when a cartridge resolves.
func ResultFact(env Env, t fact.Type, res Result) event.Event {
	target := res.EliminatedID
	if target == "" {
		target = res.WinnerID
	}
	return RecordFact(env, t, SystemActor, target, fact.ResultPayload{
		Mechanism:        res.Mechanism,
		DayIndex:         res.DayIndex,
		EliminatedID:     res.EliminatedID,
		WinnerID:         res.WinnerID,
		SilverRewards:    res.SilverRewards,
		GoldContribution: res.GoldContribution,
		Summary:          res.Summary,
	})
}

// GameDM is the payload of CHANNEL.GAME_DM_OPEN and CHANNEL.GAME_DM_CLOSE.
// MemberIDs is ignored on close.
type GameDM struct {
	ChannelID string   `json:"channelId"`
	MemberIDs []string `json:"memberIds,omitempty"`
}

// OpenGameDM asks the hosting session for a fee-exempt channel.
func OpenGameDM(env Env, channelID string, memberIDs []string) event.Event {
	return event.New(event.TypeChannelGameDMOpen, SystemActor, env.Now, GameDM{ChannelID: channelID, MemberIDs: memberIDs})
}

// CloseGameDM asks the hosting session to remove a channel opened with OpenGameDM.
func CloseGameDM(env Env, channelID string) event.Event {
	return event.New(event.TypeChannelGameDMClose, SystemActor, env.Now, GameDM{ChannelID: channelID})
}
