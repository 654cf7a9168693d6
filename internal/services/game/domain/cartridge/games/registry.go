package games

import "github.com/louisbranch/pecking-order/internal/services/game/domain/cartridge"

// DefaultMechanism is spawned when a manifest names an unknown game.
const DefaultMechanism = RealtimeTrivia

// Entries returns the registry entries for every game mechanism.
func Entries() []cartridge.Entry {
	return []cartridge.Entry{
		{
			Kind:      cartridge.KindGame,
			Mechanism: RealtimeTrivia,
			New: func(env cartridge.Env, cfg cartridge.Config) cartridge.Actor {
				return NewRealtime(env, cfg)
			},
			Blank: func() cartridge.Actor { return &Realtime{} },
		},
		{
			Kind:      cartridge.KindGame,
			Mechanism: Trivia,
			New: func(env cartridge.Env, cfg cartridge.Config) cartridge.Actor {
				return NewAsync(env, cfg)
			},
			Blank: func() cartridge.Actor { return &Async{} },
		},
	}
}
