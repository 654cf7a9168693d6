package app

import (
	"encoding/json"

	"github.com/louisbranch/pecking-order/internal/services/game/domain/event"
	"github.com/louisbranch/pecking-order/internal/services/game/domain/ticker"
)

// Frame types pushed to clients in addition to relayed events.
const (
	FrameSync          = "SYSTEM.SYNC"
	FramePresence      = "PRESENCE.UPDATE"
	FrameTicker        = "TICKER.UPDATE"
	FrameTickerHistory = "TICKER.HISTORY"
)

// Frame is the WebSocket message shape in both directions.
type Frame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// PresencePayload lists the connected players.
type PresencePayload struct {
	OnlinePlayers []string `json:"onlinePlayers"`
}

func frameOf(evt event.Event) Frame {
	return Frame{Type: string(evt.Type), Payload: evt.PayloadJSON}
}

func jsonFrame(frameType string, payload any) Frame {
	data, err := json.Marshal(payload)
	if err != nil {
		return Frame{Type: frameType}
	}
	return Frame{Type: frameType, Payload: data}
}

func tickerFrame(m ticker.Message) Frame {
	return jsonFrame(FrameTicker, m)
}

func historyFrame(messages []ticker.Message) Frame {
	if messages == nil {
		messages = []ticker.Message{}
	}
	return jsonFrame(FrameTickerHistory, messages)
}

func presenceFrame(presence map[string]int) Frame {
	return jsonFrame(FramePresence, PresencePayload{OnlinePlayers: presenceList(presence)})
}
