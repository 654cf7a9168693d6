// Package roster holds the authoritative set of players and their balances.
//
// The orchestrator owns the only writable roster. Everything else receives a
// Clone and must express intended changes as facts.
package roster

import (
	"sort"
)

// Status is a player's standing in the game.
type Status string

const (
	StatusAlive      Status = "ALIVE"
	StatusEliminated Status = "ELIMINATED"
)

// Player is one roster entry.
type Player struct {
	PersonaName string `json:"personaName"`
	AvatarURL   string `json:"avatarUrl,omitempty"`
	Status      Status `json:"status"`
	Silver      int    `json:"silver"`
	Gold        int    `json:"gold"`
	RealUserID  string `json:"realUserId,omitempty"`
}

// Roster maps player id to player.
type Roster map[string]Player

// Clone returns a copy that shares nothing with r.
func (r Roster) Clone() Roster {
	if r == nil {
		return nil
	}
	out := make(Roster, len(r))
	for id, p := range r {
		out[id] = p
	}
	return out
}

// Has reports whether id is on the roster.
func (r Roster) Has(id string) bool {
	_, ok := r[id]
	return ok
}

// IsAlive reports whether id is on the roster and alive.
func (r Roster) IsAlive(id string) bool {
	p, ok := r[id]
	return ok && p.Status == StatusAlive
}

// IDs returns every player id in ascending order.
func (r Roster) IDs() []string {
	ids := make([]string, 0, len(r))
	for id := range r {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Alive returns alive player ids in ascending order.
func (r Roster) Alive() []string {
	ids := make([]string, 0, len(r))
	for id, p := range r {
		if p.Status == StatusAlive {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// Eliminated returns eliminated player ids in ascending order.
func (r Roster) Eliminated() []string {
	ids := make([]string, 0, len(r))
	for id, p := range r {
		if p.Status == StatusEliminated {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// Silver returns the silver balance of id, or zero when absent.
func (r Roster) Silver(id string) int {
	return r[id].Silver
}

// TotalSilver sums silver across the roster.
func (r Roster) TotalSilver() int {
	total := 0
	for _, p := range r {
		total += p.Silver
	}
	return total
}

// Name returns the persona name of id, falling back to the id itself.
func (r Roster) Name(id string) string {
	if p, ok := r[id]; ok && p.PersonaName != "" {
		return p.PersonaName
	}
	return id
}
