package session

import "github.com/louisbranch/pecking-order/internal/services/game/domain/roster"

// MechanismPayload optionally overrides the day config's mechanism for
// INTERNAL.START_GAME and INTERNAL.OPEN_VOTING.
type MechanismPayload struct {
	Mechanism string `json:"mechanism,omitempty"`
}

// PromptPayload is the INTERNAL.INJECT_PROMPT payload.
type PromptPayload struct {
	PromptType string   `json:"promptType"`
	PromptText string   `json:"promptText,omitempty"`
	Options    []string `json:"options,omitempty"`
}

// NarratorPayload is the INTERNAL.NARRATOR payload.
type NarratorPayload struct {
	Text string `json:"text"`
}

// EndDayPayload is the INTERNAL.END_DAY payload.
type EndDayPayload struct {
	Reason string `json:"reason,omitempty"`
}

// RosterSyncPayload is the INTERNAL.ROSTER_SYNC payload.
type RosterSyncPayload struct {
	Roster roster.Roster `json:"roster"`
}
