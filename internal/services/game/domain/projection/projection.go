// Package projection builds the per-player synchronization snapshot and
// tracks which players need a fresh copy.
package projection

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/louisbranch/pecking-order/internal/services/game/domain/cartridge"
	"github.com/louisbranch/pecking-order/internal/services/game/domain/manifest"
	"github.com/louisbranch/pecking-order/internal/services/game/domain/roster"
	"github.com/louisbranch/pecking-order/internal/services/game/domain/social"
)

// Input is everything a view is computed from.
type Input struct {
	State           string
	DayIndex        int
	Roster          roster.Roster
	Manifest        manifest.Manifest
	Winner          string
	GoldPool        int
	GameHistory     []cartridge.HistoryEntry
	CompletedPhases []cartridge.CompletedPhase
	// Social is nil when no session or post-game actor is live.
	Social     *social.State
	MainStage  string
	Cartridges map[cartridge.Kind]cartridge.Actor
}

// PlayerView is the snapshot sent to one player.
type PlayerView struct {
	State           string                     `json:"state"`
	DayIndex        int                        `json:"dayIndex"`
	Roster          roster.Roster              `json:"roster"`
	Manifest        manifest.Manifest          `json:"manifest"`
	ChatLog         []social.ChatMessage       `json:"chatLog"`
	Channels        []social.Channel           `json:"channels"`
	MainStage       string                     `json:"mainStage,omitempty"`
	ActiveVote      any                        `json:"activeVote,omitempty"`
	ActiveGame      any                        `json:"activeGame,omitempty"`
	ActivePrompt    any                        `json:"activePrompt,omitempty"`
	Winner          string                     `json:"winner,omitempty"`
	GoldPool        int                        `json:"goldPool"`
	GameHistory     []cartridge.HistoryEntry   `json:"gameHistory"`
	CompletedPhases []cartridge.CompletedPhase `json:"completedPhases"`
	DMStats         *social.DMStats            `json:"dmStats,omitempty"`
	GroupChatOpen   bool                       `json:"groupChatOpen"`
	DMsOpen         bool                       `json:"dmsOpen"`
}

// Build computes the view of viewerID. Other players' real user ids are
// stripped; cartridges project their own secrets away.
func Build(in Input, viewerID string) PlayerView {
	v := PlayerView{
		State:           in.State,
		DayIndex:        in.DayIndex,
		Roster:          publicRoster(in.Roster, viewerID),
		Manifest:        in.Manifest,
		ChatLog:         []social.ChatMessage{},
		Channels:        []social.Channel{},
		MainStage:       in.MainStage,
		Winner:          in.Winner,
		GoldPool:        in.GoldPool,
		GameHistory:     append([]cartridge.HistoryEntry{}, in.GameHistory...),
		CompletedPhases: append([]cartridge.CompletedPhase{}, in.CompletedPhases...),
	}
	if in.Social != nil {
		v.ChatLog = in.Social.VisibleLog(viewerID)
		v.Channels = in.Social.VisibleChannels(viewerID)
		v.GroupChatOpen = in.Social.GroupChatOpen
		v.DMsOpen = in.Social.DMsOpen
		if in.Roster.Has(viewerID) {
			stats := in.Social.Stats(viewerID)
			v.DMStats = &stats
		}
	}
	if a := in.Cartridges[cartridge.KindVoting]; a != nil {
		v.ActiveVote = a.Project(viewerID)
	}
	if a := in.Cartridges[cartridge.KindGame]; a != nil {
		v.ActiveGame = a.Project(viewerID)
	}
	if a := in.Cartridges[cartridge.KindPrompt]; a != nil {
		v.ActivePrompt = a.Project(viewerID)
	}
	return v
}

func publicRoster(r roster.Roster, viewerID string) roster.Roster {
	out := r.Clone()
	for id, p := range out {
		if id != viewerID {
			p.RealUserID = ""
			out[id] = p
		}
	}
	return out
}

// Tracker remembers the last serialized view sent to each player.
type Tracker struct {
	last map[string][]byte
}

// NewTracker returns an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{last: make(map[string][]byte)}
}

// Changed serializes v and reports whether it differs from the last view
// recorded for playerID. The new form is recorded when it differs.
func (t *Tracker) Changed(playerID string, v PlayerView) ([]byte, bool, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, false, fmt.Errorf("encode view for %s: %w", playerID, err)
	}
	if bytes.Equal(t.last[playerID], data) {
		return data, false, nil
	}
	t.last[playerID] = data
	return data, true, nil
}

// Forget drops the recorded view so the next one is always sent.
func (t *Tracker) Forget(playerID string) {
	delete(t.last, playerID)
}
