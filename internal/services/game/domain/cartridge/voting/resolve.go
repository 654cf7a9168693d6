package voting

import (
	"github.com/louisbranch/pecking-order/internal/services/game/domain/cartridge"
)

func plurality(b *Ballot, env cartridge.Env) outcome {
	tallies := cartridge.Tally(b.Votes)
	summary := map[string]any{"tallies": tallies}
	leaders := cartridge.Leaders(tallies)
	if len(leaders) == 0 {
		return outcome{summary: summary}
	}
	return outcome{
		eliminatedID: cartridge.LowestSilverTieBreak(env.Roster, leaders),
		summary:      summary,
	}
}

func fewestSaves(b *Ballot, env cartridge.Env) outcome {
	tallies := cartridge.Tally(b.Votes)
	summary := map[string]any{"tallies": tallies}
	// With no saves cast every candidate ties on zero.
	candidates := aliveAmong(env, b.Targets)
	lowest := cartridge.Fewest(tallies, candidates)
	summary["tied"] = lowest
	return outcome{eliminatedID: cartridge.Pick(env.Rand, lowest), summary: summary}
}

func secondToLast(b *Ballot, env cartridge.Env) outcome {
	ranked := env.Roster.RankBySilver(aliveAmong(env, b.Targets))
	summary := map[string]any{"ranking": ranked}
	if len(ranked) < 2 {
		return outcome{summary: summary}
	}
	return outcome{eliminatedID: ranked[len(ranked)-2], summary: summary}
}

func executionerPick(b *Ballot, env cartridge.Env) outcome {
	summary := map[string]any{
		"electionTallies": cartridge.Tally(b.Election),
		"executioner":     b.Executioner,
	}
	if b.Phase != PhasePick {
		return outcome{summary: summary}
	}
	pick := b.Votes[b.Executioner]
	if pick != "" {
		summary["tallies"] = map[string]int{pick: 1}
	}
	return outcome{eliminatedID: pick, summary: summary}
}

func trustPairs(b *Ballot, env cartridge.Env) outcome {
	immune := mutualTrust(b.Trusts)
	tallies := make(map[string]int)
	for voter, target := range b.Votes {
		if target == "" || immune[target] {
			continue
		}
		if !cartridge.Contains(b.Voters, voter) {
			continue
		}
		tallies[target]++
	}
	immuneIDs := make([]string, 0, len(immune))
	for _, id := range b.Targets {
		if immune[id] {
			immuneIDs = append(immuneIDs, id)
		}
	}
	summary := map[string]any{"tallies": tallies, "immune": immuneIDs}
	leaders := cartridge.Leaders(tallies)
	if len(leaders) == 0 {
		return outcome{summary: summary}
	}
	return outcome{eliminatedID: cartridge.LowestSilverTieBreak(env.Roster, leaders), summary: summary}
}

func mutualTrust(trusts map[string]string) map[string]bool {
	immune := make(map[string]bool)
	for a, b := range trusts {
		if b != "" && trusts[b] == a {
			immune[a] = true
			immune[b] = true
		}
	}
	return immune
}

func finals(b *Ballot, env cartridge.Env) outcome {
	candidates := aliveAmong(env, b.Targets)
	if len(b.Voters) == 0 {
		return outcome{winnerID: highestThenRandom(env, candidates), summary: map[string]any{"fallback": "HIGHEST_SILVER"}}
	}
	tallies := cartridge.Tally(b.Votes)
	summary := map[string]any{"tallies": tallies}
	leaders := cartridge.Leaders(tallies)
	if len(leaders) == 0 {
		summary["fallback"] = "HIGHEST_SILVER"
		leaders = candidates
	}
	return outcome{winnerID: highestThenRandom(env, leaders), summary: summary}
}

func highestThenRandom(env cartridge.Env, ids []string) string {
	if len(ids) == 0 {
		return ""
	}
	return cartridge.Pick(env.Rand, env.Roster.HighestSilver(ids))
}

// aliveAmong filters ids against the current roster so a player eliminated
// since construction never resolves as a target.
func aliveAmong(env cartridge.Env, ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if env.Roster.IsAlive(id) {
			out = append(out, id)
		}
	}
	return out
}
