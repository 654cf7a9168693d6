package cartridge

import "time"

// CompletedPhase records a resolved cartridge for timeline rendering.
type CompletedPhase struct {
	Kind         Kind           `json:"kind"`
	Mechanism    string         `json:"mechanism"`
	DayIndex     int            `json:"dayIndex"`
	CompletedAt  time.Time      `json:"completedAt"`
	EliminatedID string         `json:"eliminatedId,omitempty"`
	WinnerID     string         `json:"winnerId,omitempty"`
	Summary      map[string]any `json:"summary,omitempty"`
}

// HistoryEntry records the economic outcome of a game or prompt for the
// day-by-day history. PlayerID is set for incremental async credits.
type HistoryEntry struct {
	Kind             Kind           `json:"kind"`
	Mechanism        string         `json:"mechanism"`
	DayIndex         int            `json:"dayIndex"`
	PlayerID         string         `json:"playerId,omitempty"`
	SilverRewards    map[string]int `json:"silverRewards,omitempty"`
	GoldContribution int            `json:"goldContribution,omitempty"`
	Summary          map[string]any `json:"summary,omitempty"`
}

// Phase returns the completed-phase record of r.
func (r Result) Phase(at time.Time) CompletedPhase {
	return CompletedPhase{
		Kind:         r.Kind,
		Mechanism:    r.Mechanism,
		DayIndex:     r.DayIndex,
		CompletedAt:  at,
		EliminatedID: r.EliminatedID,
		WinnerID:     r.WinnerID,
		Summary:      r.Summary,
	}
}

// History returns the history entry of r.
func (r Result) History() HistoryEntry {
	return HistoryEntry{
		Kind:             r.Kind,
		Mechanism:        r.Mechanism,
		DayIndex:         r.DayIndex,
		SilverRewards:    r.SilverRewards,
		GoldContribution: r.GoldContribution,
		Summary:          r.Summary,
	}
}

// History returns the history entry of an incremental async credit.
func (p PlayerGameResult) History() HistoryEntry {
	return HistoryEntry{
		Kind:          KindGame,
		Mechanism:     p.Mechanism,
		DayIndex:      p.DayIndex,
		PlayerID:      p.PlayerID,
		SilverRewards: map[string]int{p.PlayerID: p.Silver},
		Summary:       p.Summary,
	}
}
