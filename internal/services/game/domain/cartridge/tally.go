package cartridge

import (
	"math/rand/v2"
	"sort"

	"github.com/louisbranch/pecking-order/internal/services/game/domain/roster"
)

// Tally counts votes per target. votes maps voter id to target id.
func Tally(votes map[string]string) map[string]int {
	out := make(map[string]int, len(votes))
	for _, target := range votes {
		if target == "" {
			continue
		}
		out[target]++
	}
	return out
}

// Leaders returns the ids with the highest count, sorted.
func Leaders(tallies map[string]int) []string {
	best := 0
	for _, n := range tallies {
		if n > best {
			best = n
		}
	}
	if best == 0 {
		return nil
	}
	out := make([]string, 0, len(tallies))
	for id, n := range tallies {
		if n == best {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

// Fewest returns the candidates with the lowest count (absent counts as
// zero), sorted.
func Fewest(tallies map[string]int, candidates []string) []string {
	if len(candidates) == 0 {
		return nil
	}
	low := -1
	for _, id := range candidates {
		if n := tallies[id]; low < 0 || n < low {
			low = n
		}
	}
	out := make([]string, 0, len(candidates))
	for _, id := range candidates {
		if tallies[id] == low {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

// LowestSilverTieBreak picks the tied candidate with the lowest silver. A
// remaining tie resolves to the first id in sorted order.
func LowestSilverTieBreak(r roster.Roster, tied []string) string {
	if len(tied) == 0 {
		return ""
	}
	sorted := append([]string(nil), tied...)
	sort.Strings(sorted)
	return r.LowestSilver(sorted)[0]
}

// Pick returns a uniformly random element of ids.
func Pick(rng *rand.Rand, ids []string) string {
	switch len(ids) {
	case 0:
		return ""
	case 1:
		return ids[0]
	}
	return ids[rng.IntN(len(ids))]
}

// Contains reports whether id is in ids.
func Contains(ids []string, id string) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}

// Without returns ids minus every id in exclude, preserving order.
func Without(ids []string, exclude ...string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if !Contains(exclude, id) {
			out = append(out, id)
		}
	}
	return out
}
