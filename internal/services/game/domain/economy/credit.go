package economy

import (
	"github.com/louisbranch/pecking-order/internal/services/game/domain/roster"
)

// Credit adds each reward to the named player's silver. Unknown ids and
// non-positive amounts are skipped.
func Credit(r roster.Roster, rewards map[string]int) roster.Roster {
	next := r.Clone()
	for id, amount := range rewards {
		p, ok := next[id]
		if !ok || amount <= 0 {
			continue
		}
		p.Silver += amount
		next[id] = p
	}
	return next
}

// Eliminate marks id as eliminated. Already-eliminated and unknown ids are
// left untouched.
func Eliminate(r roster.Roster, id string) roster.Roster {
	next := r.Clone()
	p, ok := next[id]
	if !ok || p.Status == roster.StatusEliminated {
		return next
	}
	p.Status = roster.StatusEliminated
	next[id] = p
	return next
}

// PayGold adds amount to the winner's gold.
func PayGold(r roster.Roster, winnerID string, amount int) roster.Roster {
	next := r.Clone()
	p, ok := next[winnerID]
	if !ok || amount <= 0 {
		return next
	}
	p.Gold += amount
	next[winnerID] = p
	return next
}
