// Package fact defines facts: immutable records of state-affecting actions.
//
// Facts are the only channel by which session and cartridge actors affect the
// shared roster. They travel upward wrapped in FACT.RECORD events and are
// folded into the roster by the orchestrator.
package fact

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/louisbranch/pecking-order/internal/services/game/domain/event"
)

// ErrNotFactRecord indicates an event that does not carry a fact.
var ErrNotFactRecord = errors.New("event is not a fact record")

// Type identifies a fact kind.
type Type string

const (
	TypeChatMsg          Type = "CHAT_MSG"
	TypeDMSent           Type = "DM_SENT"
	TypeSilverTransfer   Type = "SILVER_TRANSFER"
	TypePerkUsed         Type = "PERK_USED"
	TypeChannelCreated   Type = "CHANNEL_CREATED"
	TypeVoteCast         Type = "VOTE_CAST"
	TypeVoteResult       Type = "VOTE_RESULT"
	TypeGameAnswer       Type = "GAME_ANSWER"
	TypeGameCompleted    Type = "GAME_COMPLETED"
	TypePromptResponse   Type = "PROMPT_RESPONSE"
	TypePromptCompleted  Type = "PROMPT_COMPLETED"
	TypeGameResult       Type = "GAME_RESULT"
	TypePlayerGameResult Type = "PLAYER_GAME_RESULT"
	TypePromptResult     Type = "PROMPT_RESULT"
	TypeElimination      Type = "ELIMINATION"
	TypeWinnerDeclared   Type = "WINNER_DECLARED"
)

var journalable = map[Type]struct{}{
	TypeDMSent:           {},
	TypeSilverTransfer:   {},
	TypePerkUsed:         {},
	TypeChannelCreated:   {},
	TypeVoteCast:         {},
	TypeVoteResult:       {},
	TypeGameResult:       {},
	TypePlayerGameResult: {},
	TypePromptResult:     {},
	TypeElimination:      {},
	TypeWinnerDeclared:   {},
}

// IsJournalable reports whether facts of type t are persisted to the audit store.
func IsJournalable(t Type) bool {
	_, ok := journalable[t]
	return ok
}

// Fact is an immutable record of a state-affecting action.
type Fact struct {
	Type      Type            `json:"type"`
	ActorID   string          `json:"actorId"`
	TargetID  string          `json:"targetId,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// New builds a fact with a JSON-encoded payload.
func New(t Type, actorID, targetID string, now time.Time, payload any) Fact {
	f := Fact{Type: t, ActorID: actorID, TargetID: targetID, Timestamp: now.UTC()}
	if payload != nil {
		if data, err := json.Marshal(payload); err == nil {
			f.Payload = data
		}
	}
	return f
}

// Decode unmarshals the payload of f into a value of type T. An empty payload
// decodes to the zero value.
func Decode[T any](f Fact) (T, error) {
	var out T
	if len(f.Payload) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(f.Payload, &out); err != nil {
		return out, fmt.Errorf("decode %s fact: %w", f.Type, err)
	}
	return out, nil
}

// Record wraps f in a FACT.RECORD event.
func Record(f Fact) event.Event {
	return event.New(event.TypeFactRecord, f.ActorID, f.Timestamp, f)
}

// FromEvent unwraps a FACT.RECORD event.
func FromEvent(evt event.Event) (Fact, error) {
	if evt.Type != event.TypeFactRecord {
		return Fact{}, fmt.Errorf("%s: %w", evt.Type, ErrNotFactRecord)
	}
	return event.Decode[Fact](evt)
}
