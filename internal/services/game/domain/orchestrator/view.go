package orchestrator

import (
	"github.com/louisbranch/pecking-order/internal/services/game/domain/cartridge"
	"github.com/louisbranch/pecking-order/internal/services/game/domain/projection"
)

// View returns the synchronization snapshot for one player.
func (o *Orchestrator) View(playerID string) projection.PlayerView {
	in := projection.Input{
		State:           string(o.state),
		DayIndex:        o.ctx.DayIndex,
		Roster:          o.ctx.Roster,
		Manifest:        o.ctx.Manifest,
		Winner:          o.ctx.Winner,
		GoldPool:        o.ctx.GoldPool,
		GameHistory:     o.ctx.GameHistory,
		CompletedPhases: o.ctx.CompletedPhases,
	}
	switch {
	case o.session != nil:
		in.Social = o.session.Social()
		in.MainStage = string(o.session.Stage())
		in.Cartridges = map[cartridge.Kind]cartridge.Actor{}
		for _, kind := range []cartridge.Kind{cartridge.KindVoting, cartridge.KindGame, cartridge.KindPrompt} {
			if a := o.session.Cartridge(kind); a != nil {
				in.Cartridges[kind] = a
			}
		}
	case o.post != nil:
		in.Social = o.post.Social
	}
	return projection.Build(in, playerID)
}
