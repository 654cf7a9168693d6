// Package catalog assembles the closed set of cartridge mechanisms a game
// can spawn.
package catalog

import (
	"github.com/louisbranch/pecking-order/internal/services/game/domain/cartridge"
	"github.com/louisbranch/pecking-order/internal/services/game/domain/cartridge/games"
	"github.com/louisbranch/pecking-order/internal/services/game/domain/cartridge/prompts"
	"github.com/louisbranch/pecking-order/internal/services/game/domain/cartridge/voting"
)

// New returns a registry holding every voting, game and prompt mechanism with
// the documented fallback for each kind.
func New() (*cartridge.Registry, error) {
	var entries []cartridge.Entry
	entries = append(entries, voting.Entries()...)
	entries = append(entries, games.Entries()...)
	entries = append(entries, prompts.Entries()...)

	reg, err := cartridge.NewRegistry(entries...)
	if err != nil {
		return nil, err
	}
	defaults := map[cartridge.Kind]string{
		cartridge.KindVoting: voting.DefaultMechanism,
		cartridge.KindGame:   games.DefaultMechanism,
		cartridge.KindPrompt: prompts.DefaultMechanism,
	}
	for kind, mech := range defaults {
		if err := reg.SetDefault(kind, mech); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// MustNew is New for package initialization and tests.
func MustNew() *cartridge.Registry {
	reg, err := New()
	if err != nil {
		panic(err)
	}
	return reg
}
