package prompts

import "github.com/louisbranch/pecking-order/internal/services/game/domain/cartridge"

// DefaultMechanism is spawned when a prompt type is unknown.
const DefaultMechanism = PlayerPick

// Entries returns the registry entries for every prompt mechanism.
func Entries() []cartridge.Entry {
	out := make([]cartridge.Entry, 0, 6)
	for _, id := range []string{PlayerPick, Prediction, WouldYouRather, HotTake} {
		out = append(out, cartridge.Entry{
			Kind:      cartridge.KindPrompt,
			Mechanism: id,
			New: func(env cartridge.Env, cfg cartridge.Config) cartridge.Actor {
				return NewChoice(env, cfg)
			},
			Blank: func() cartridge.Actor { return &Choice{} },
		})
	}
	return append(out,
		cartridge.Entry{
			Kind:      cartridge.KindPrompt,
			Mechanism: Confession,
			New: func(env cartridge.Env, cfg cartridge.Config) cartridge.Actor {
				return NewConfession(env, cfg)
			},
			Blank: func() cartridge.Actor { return &ConfessionPrompt{} },
		},
		cartridge.Entry{
			Kind:      cartridge.KindPrompt,
			Mechanism: GuessWho,
			New: func(env cartridge.Env, cfg cartridge.Config) cartridge.Actor {
				return NewGuessWho(env, cfg)
			},
			Blank: func() cartridge.Actor { return &GuessWhoPrompt{} },
		},
	)
}
