package voting

import "github.com/louisbranch/pecking-order/internal/services/game/domain/cartridge"

// DefaultMechanism is spawned when a manifest names an unknown vote.
const DefaultMechanism = Majority

// Entries returns the registry entries for every vote mechanism.
func Entries() []cartridge.Entry {
	ids := []string{Majority, Bubble, PodiumSacrifice, SecondToLast, Shield, Executioner, TrustPairs, Finals}
	out := make([]cartridge.Entry, 0, len(ids))
	for _, id := range ids {
		out = append(out, cartridge.Entry{
			Kind:      cartridge.KindVoting,
			Mechanism: id,
			New: func(env cartridge.Env, cfg cartridge.Config) cartridge.Actor {
				return New(env, cfg)
			},
			Blank: func() cartridge.Actor { return &Ballot{} },
		})
	}
	return out
}
