package orchestrator

import (
	"github.com/louisbranch/pecking-order/internal/services/game/domain/cartridge"
	"github.com/louisbranch/pecking-order/internal/services/game/domain/economy"
	"github.com/louisbranch/pecking-order/internal/services/game/domain/event"
	"github.com/louisbranch/pecking-order/internal/services/game/domain/fact"
	"github.com/louisbranch/pecking-order/internal/services/game/domain/session"
	"github.com/louisbranch/pecking-order/internal/services/game/domain/social"
)

// upward folds the events a child sends to its parent.
func (o *Orchestrator) upward(events []event.Event) {
	synced := false
	for _, evt := range events {
		switch evt.Type {
		case event.TypeFactRecord:
			f, err := fact.FromEvent(evt)
			if err != nil {
				o.log.Error().Err(err).Msg("fact record")
				continue
			}
			o.applyFact(f)

		case event.TypeCartridgeVoteResult:
			res, err := event.Decode[cartridge.Result](evt)
			if err != nil {
				o.log.Error().Err(err).Msg("vote result")
				continue
			}
			o.ctx.PendingElimination = &res
			o.ctx.CompletedPhases = append(o.ctx.CompletedPhases, res.Phase(o.now))

		case event.TypeCartridgeGameResult, event.TypeCartridgePromptResult:
			res, err := event.Decode[cartridge.Result](evt)
			if err != nil {
				o.log.Error().Err(err).Msg("cartridge result")
				continue
			}
			o.creditResult(res, resultFactType(evt.Type))
			synced = true

		case event.TypeCartridgePlayerGameResult:
			res, err := event.Decode[cartridge.PlayerGameResult](evt)
			if err != nil {
				o.log.Error().Err(err).Msg("player game result")
				continue
			}
			o.creditPlayer(res)
			synced = true

		case event.TypePerkQueryDMs:
			q, err := event.Decode[social.QueryDMs](evt)
			if err != nil {
				o.log.Error().Err(err).Msg("spy query")
				continue
			}
			o.effects = append(o.effects, EffectQueryDMs{RequesterID: q.RequesterID, TargetID: q.TargetID, Limit: q.Limit})

		default:
			if event.IsPlayerRelay(evt.Type) {
				o.deliver(evt.SenderID, evt)
				continue
			}
			o.log.Debug().Str("type", string(evt.Type)).Msg("upward event dropped")
		}
	}
	if synced {
		o.syncRoster()
	}
}

func resultFactType(t event.Type) fact.Type {
	if t == event.TypeCartridgePromptResult {
		return fact.TypePromptResult
	}
	return fact.TypeGameResult
}

func (o *Orchestrator) deliver(playerID string, evt event.Event) {
	if playerID == "" {
		return
	}
	o.effects = append(o.effects, EffectDeliver{PlayerID: playerID, Event: evt})
}

// applyFact is the single fold point for facts raised by children.
func (o *Orchestrator) applyFact(f fact.Fact) {
	o.ctx.Roster = economy.Apply(o.ctx.Roster, f)
	o.record(f)
}

// record emits a fact effect and bumps the journal high-water mark.
func (o *Orchestrator) record(f fact.Fact) {
	o.ctx.LastJournalAt = o.now
	o.effects = append(o.effects, EffectFact{Fact: f, DayIndex: o.ctx.DayIndex, Journal: fact.IsJournalable(f.Type)})
}

// creditResult is the economy action for a game or prompt result.
func (o *Orchestrator) creditResult(res cartridge.Result, t fact.Type) {
	o.ctx.Roster = economy.Credit(o.ctx.Roster, res.SilverRewards)
	if res.GoldContribution > 0 {
		o.ctx.GoldPool += res.GoldContribution
	}
	o.ctx.CompletedPhases = append(o.ctx.CompletedPhases, res.Phase(o.now))
	o.ctx.GameHistory = append(o.ctx.GameHistory, res.History())
	o.record(fact.New(t, cartridge.SystemActor, res.WinnerID, o.now, resultPayload(res)))
}

// creditPlayer is the economy action for one player finishing an async game.
func (o *Orchestrator) creditPlayer(res cartridge.PlayerGameResult) {
	rewards := map[string]int{res.PlayerID: res.Silver}
	o.ctx.Roster = economy.Credit(o.ctx.Roster, rewards)
	o.ctx.GameHistory = append(o.ctx.GameHistory, res.History())
	o.record(fact.New(fact.TypePlayerGameResult, res.PlayerID, "", o.now, fact.ResultPayload{
		Mechanism:     res.Mechanism,
		DayIndex:      res.DayIndex,
		SilverRewards: rewards,
		Summary:       res.Summary,
	}))
}

func resultPayload(res cartridge.Result) fact.ResultPayload {
	return fact.ResultPayload{
		Mechanism:        res.Mechanism,
		DayIndex:         res.DayIndex,
		EliminatedID:     res.EliminatedID,
		WinnerID:         res.WinnerID,
		SilverRewards:    res.SilverRewards,
		GoldContribution: res.GoldContribution,
		Summary:          res.Summary,
	}
}

// syncRoster refreshes the session's read-only roster after an economy action.
func (o *Orchestrator) syncRoster() {
	if o.session == nil {
		return
	}
	o.session.Send(session.Env{Now: o.now, Rand: o.rng},
		event.New(event.TypeInternalRosterSync, "", o.now, session.RosterSyncPayload{Roster: o.ctx.Roster}))
}

// resolveNight applies the pending vote result on entering nightSummary.
func (o *Orchestrator) resolveNight() {
	res := o.ctx.PendingElimination
	o.ctx.PendingElimination = nil
	if res == nil {
		return
	}
	if id := res.EliminatedID; id != "" && o.ctx.Roster.IsAlive(id) {
		o.ctx.Roster = economy.Eliminate(o.ctx.Roster, id)
		o.record(fact.New(fact.TypeElimination, cartridge.SystemActor, id, o.now, fact.EliminationPayload{
			DayIndex:  o.ctx.DayIndex,
			Mechanism: res.Mechanism,
		}))
	}
	if id := res.WinnerID; id != "" && o.ctx.Roster.Has(id) {
		paid := o.ctx.GoldPool
		o.ctx.Winner = id
		o.ctx.Roster = economy.PayGold(o.ctx.Roster, id, paid)
		o.ctx.GoldPool = 0
		o.record(fact.New(fact.TypeWinnerDeclared, cartridge.SystemActor, id, o.now, fact.WinnerPayload{
			DayIndex: o.ctx.DayIndex,
			GoldPaid: paid,
		}))
	}
}
