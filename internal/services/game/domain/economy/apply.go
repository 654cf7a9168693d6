package economy

import (
	"github.com/louisbranch/pecking-order/internal/services/game/domain/fact"
	"github.com/louisbranch/pecking-order/internal/services/game/domain/roster"
)

// foldFunc applies one fact to a private copy of the roster.
type foldFunc func(r roster.Roster, f fact.Fact)

// foldEntries is the dispatch table for roster-mutating facts. Facts of any
// other type leave the roster unchanged.
var foldEntries = map[fact.Type]foldFunc{
	fact.TypeDMSent:         foldDMSent,
	fact.TypeSilverTransfer: foldSilverTransfer,
	fact.TypePerkUsed:       foldPerkUsed,
}

// Mutates reports whether facts of type t change the roster.
func Mutates(t fact.Type) bool {
	_, ok := foldEntries[t]
	return ok
}

// Apply folds f into a copy of r and returns the copy.
func Apply(r roster.Roster, f fact.Fact) roster.Roster {
	next := r.Clone()
	if fold, ok := foldEntries[f.Type]; ok {
		fold(next, f)
	}
	return next
}

func foldDMSent(r roster.Roster, f fact.Fact) {
	payload, err := fact.Decode[fact.DMSentPayload](f)
	if err != nil || payload.Exempt {
		return
	}
	debit(r, f.ActorID, DMFee)
}

func foldSilverTransfer(r roster.Roster, f fact.Fact) {
	payload, err := fact.Decode[fact.SilverTransferPayload](f)
	if err != nil || payload.Amount <= 0 {
		return
	}
	sender, ok := r[f.ActorID]
	if !ok {
		return
	}
	receiver, ok := r[f.TargetID]
	if !ok || sender.Silver < payload.Amount {
		return
	}
	sender.Silver -= payload.Amount
	receiver.Silver += payload.Amount
	r[f.ActorID] = sender
	r[f.TargetID] = receiver
}

func foldPerkUsed(r roster.Roster, f fact.Fact) {
	payload, err := fact.Decode[fact.PerkUsedPayload](f)
	if err != nil {
		return
	}
	cost := payload.Cost
	if perk, ok := LookupPerk(PerkType(payload.PerkType)); ok {
		cost = perk.Cost
	}
	debit(r, f.ActorID, cost)
}

// debit removes amount from id, clamping at zero. Guards upstream reject
// requests that would overdraw, so clamping only protects replayed facts.
func debit(r roster.Roster, id string, amount int) {
	p, ok := r[id]
	if !ok || amount <= 0 {
		return
	}
	p.Silver -= amount
	if p.Silver < 0 {
		p.Silver = 0
	}
	r[id] = p
}
