package event

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrPayloadRequired indicates an event was decoded without a payload.
var ErrPayloadRequired = errors.New("event payload is required")

// Type identifies an event kind, e.g. "SOCIAL.SEND_MSG" or "VOTE.MAJORITY.CAST".
type Type string

// System and admin control events.
const (
	TypeSystemInit   Type = "SYSTEM.INIT"
	TypeSystemWakeup Type = "SYSTEM.WAKEUP"

	TypeAdminNextStage      Type = "ADMIN.NEXT_STAGE"
	TypeAdminInjectTimeline Type = "ADMIN.INJECT_TIMELINE_EVENT"
)

// Client social events accepted at the boundary.
const (
	TypeSocialSendMsg       Type = "SOCIAL.SEND_MSG"
	TypeSocialSendSilver    Type = "SOCIAL.SEND_SILVER"
	TypeSocialUsePerk       Type = "SOCIAL.USE_PERK"
	TypeSocialCreateChannel Type = "SOCIAL.CREATE_CHANNEL"
)

// Internal signals raised by the orchestrator for its children.
const (
	TypeInternalOpenGroupChat  Type = "INTERNAL.OPEN_GROUP_CHAT"
	TypeInternalCloseGroupChat Type = "INTERNAL.CLOSE_GROUP_CHAT"
	TypeInternalOpenDMs        Type = "INTERNAL.OPEN_DMS"
	TypeInternalCloseDMs       Type = "INTERNAL.CLOSE_DMS"
	TypeInternalStartGame      Type = "INTERNAL.START_GAME"
	TypeInternalEndGame        Type = "INTERNAL.END_GAME"
	TypeInternalOpenVoting     Type = "INTERNAL.OPEN_VOTING"
	TypeInternalCloseVoting    Type = "INTERNAL.CLOSE_VOTING"
	TypeInternalInjectPrompt   Type = "INTERNAL.INJECT_PROMPT"
	TypeInternalEndActivity    Type = "INTERNAL.END_ACTIVITY"
	TypeInternalNarrator       Type = "INTERNAL.NARRATOR"
	TypeInternalEndDay         Type = "INTERNAL.END_DAY"
	TypeInternalRosterSync     Type = "INTERNAL.ROSTER_SYNC"
	TypeInternalTick           Type = "INTERNAL.TICK"
)

// Upward events: facts, cartridge results, rejections and perk traffic.
const (
	TypeFactRecord Type = "FACT.RECORD"

	TypeCartridgeVoteResult       Type = "CARTRIDGE.VOTE_RESULT"
	TypeCartridgeGameResult       Type = "CARTRIDGE.GAME_RESULT"
	TypeCartridgePlayerGameResult Type = "CARTRIDGE.PLAYER_GAME_RESULT"
	TypeCartridgePromptResult     Type = "CARTRIDGE.PROMPT_RESULT"

	TypeDMRejected             Type = "DM.REJECTED"
	TypeSilverTransferRejected Type = "SILVER_TRANSFER.REJECTED"
	TypeChannelRejected        Type = "CHANNEL.REJECTED"
	TypePerkRejected           Type = "PERK.REJECTED"
	TypePerkActivated          Type = "PERK.ACTIVATED"
	TypePerkQueryDMs           Type = "PERK.QUERY_DMS"
	TypePerkResult             Type = "PERK.RESULT"

	TypeCartridgeRejected Type = "CARTRIDGE.REJECTED"

	TypeChannelGameDMOpen  Type = "CHANNEL.GAME_DM_OPEN"
	TypeChannelGameDMClose Type = "CHANNEL.GAME_DM_CLOSE"
)

// Event is the envelope exchanged between actors of one game instance.
//
// SenderID is always stamped by the host from a verified identity for client
// events; for upward events it names the player the event concerns.
type Event struct {
	Type        Type            `json:"type"`
	SenderID    string          `json:"senderId,omitempty"`
	Timestamp   time.Time       `json:"timestamp"`
	PayloadJSON json.RawMessage `json:"payload,omitempty"`
}

// New builds an event with a JSON-encoded payload. A nil payload leaves
// PayloadJSON empty.
func New(t Type, senderID string, now time.Time, payload any) Event {
	evt := Event{Type: t, SenderID: senderID, Timestamp: now.UTC()}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err == nil {
			evt.PayloadJSON = data
		}
	}
	return evt
}

// Decode unmarshals the payload of evt into a value of type T.
func Decode[T any](evt Event) (T, error) {
	var out T
	if len(evt.PayloadJSON) == 0 {
		return out, fmt.Errorf("%s: %w", evt.Type, ErrPayloadRequired)
	}
	if err := json.Unmarshal(evt.PayloadJSON, &out); err != nil {
		return out, fmt.Errorf("decode %s payload: %w", evt.Type, err)
	}
	return out, nil
}

// WithPayload returns a copy of evt with a new JSON payload.
func (e Event) WithPayload(payload any) Event {
	data, err := json.Marshal(payload)
	if err == nil {
		e.PayloadJSON = data
	}
	return e
}
