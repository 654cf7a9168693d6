package roster

import "sort"

// RankBySilver orders ids by silver descending. Equal balances are ordered by
// id ascending so a ranking is stable for a fixed roster.
func (r Roster) RankBySilver(ids []string) []string {
	ranked := append([]string(nil), ids...)
	sort.SliceStable(ranked, func(i, j int) bool {
		si, sj := r[ranked[i]].Silver, r[ranked[j]].Silver
		if si != sj {
			return si > sj
		}
		return ranked[i] < ranked[j]
	})
	return ranked
}

// TopBySilver returns up to n alive players with the most silver.
func (r Roster) TopBySilver(n int) []string {
	ranked := r.RankBySilver(r.Alive())
	if n < len(ranked) {
		ranked = ranked[:n]
	}
	return ranked
}

// LowestSilver returns the candidates holding the minimum silver, preserving
// the order of candidates.
func (r Roster) LowestSilver(candidates []string) []string {
	return r.extremeSilver(candidates, func(a, b int) bool { return a < b })
}

// HighestSilver returns the candidates holding the maximum silver, preserving
// the order of candidates.
func (r Roster) HighestSilver(candidates []string) []string {
	return r.extremeSilver(candidates, func(a, b int) bool { return a > b })
}

func (r Roster) extremeSilver(candidates []string, better func(a, b int) bool) []string {
	if len(candidates) == 0 {
		return nil
	}
	best := r[candidates[0]].Silver
	for _, id := range candidates[1:] {
		if s := r[id].Silver; better(s, best) {
			best = s
		}
	}
	out := make([]string, 0, len(candidates))
	for _, id := range candidates {
		if r[id].Silver == best {
			out = append(out, id)
		}
	}
	return out
}
