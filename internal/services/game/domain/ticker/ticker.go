// Package ticker turns facts and lifecycle transitions into the humanized
// feed replayed to newly connecting clients.
package ticker

import (
	"io"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/louisbranch/pecking-order/internal/services/game/domain/economy"
	"github.com/louisbranch/pecking-order/internal/services/game/domain/fact"
	"github.com/louisbranch/pecking-order/internal/services/game/domain/roster"
)

// Capacity is the number of messages kept for replay.
const Capacity = 20

// Category groups ticker lines for client styling.
type Category string

const (
	CategoryEconomy     Category = "ECONOMY"
	CategoryVote        Category = "VOTE"
	CategoryGame        Category = "GAME"
	CategoryPrompt      Category = "PROMPT"
	CategoryElimination Category = "ELIMINATION"
	CategoryWinner      Category = "WINNER"
	CategoryPhase       Category = "PHASE"
)

// Message is one ticker line.
type Message struct {
	ID                string    `json:"id"`
	Text              string    `json:"text"`
	Category          Category  `json:"category"`
	Timestamp         time.Time `json:"timestamp"`
	InvolvedPlayerIDs []string  `json:"involvedPlayerIds,omitempty"`
}

// Feed is a ring buffer of the latest messages. It is not safe for
// concurrent use; the owning game host serializes access.
type Feed struct {
	messages []Message
	entropy  io.Reader
	printer  *message.Printer
}

// NewFeed returns an empty feed. A nil entropy source selects
// ulid.DefaultEntropy.
func NewFeed(entropy io.Reader) *Feed {
	if entropy == nil {
		entropy = ulid.DefaultEntropy()
	}
	return &Feed{entropy: entropy, printer: message.NewPrinter(language.English)}
}

// Messages returns the buffered messages, oldest first.
func (f *Feed) Messages() []Message {
	return append([]Message(nil), f.messages...)
}

// Fact appends the line describing fct, if it is worth one. r is the roster
// after the fact was applied.
func (f *Feed) Fact(fct fact.Fact, r roster.Roster) (Message, bool) {
	text, category, involved, ok := f.describe(fct, r)
	if !ok {
		return Message{}, false
	}
	return f.push(fct.Timestamp, text, category, involved), true
}

// Transition appends the line announcing a lifecycle change, if any.
func (f *Feed) Transition(to string, dayIndex int, at time.Time) (Message, bool) {
	var text string
	switch to {
	case "dayLoop.activeSession.running":
		text = f.printer.Sprintf("Day %d begins", dayIndex)
	case "dayLoop.nightSummary":
		text = f.printer.Sprintf("Night falls on day %d", dayIndex)
	case "gameSummary":
		text = "The game is over"
	default:
		return Message{}, false
	}
	return f.push(at, text, CategoryPhase, nil), true
}

func (f *Feed) push(at time.Time, text string, category Category, involved []string) Message {
	m := Message{
		ID:                ulid.MustNew(ulid.Timestamp(at), f.entropy).String(),
		Text:              text,
		Category:          category,
		Timestamp:         at,
		InvolvedPlayerIDs: involved,
	}
	f.messages = append(f.messages, m)
	if over := len(f.messages) - Capacity; over > 0 {
		f.messages = append([]Message(nil), f.messages[over:]...)
	}
	return m
}

func (f *Feed) describe(fct fact.Fact, r roster.Roster) (string, Category, []string, bool) {
	actor, target := r.Name(fct.ActorID), r.Name(fct.TargetID)
	switch fct.Type {
	case fact.TypeSilverTransfer:
		p, err := fact.Decode[fact.SilverTransferPayload](fct)
		if err != nil {
			return "", "", nil, false
		}
		return f.printer.Sprintf("%s sent %d silver to %s", actor, p.Amount, target),
			CategoryEconomy, []string{fct.ActorID, fct.TargetID}, true

	case fact.TypePerkUsed:
		p, err := fact.Decode[fact.PerkUsedPayload](fct)
		if err != nil {
			return "", "", nil, false
		}
		// Spying stays anonymous.
		if p.PerkType == string(economy.PerkSpyDMs) {
			return "Someone is reading other people's mail", CategoryEconomy, nil, true
		}
		return f.printer.Sprintf("%s spent %d silver on a perk", actor, p.Cost),
			CategoryEconomy, []string{fct.ActorID}, true

	case fact.TypeVoteResult:
		return "The votes are in", CategoryVote, nil, true

	case fact.TypeGameResult:
		p, err := fact.Decode[fact.ResultPayload](fct)
		if err != nil {
			return "", "", nil, false
		}
		return f.printer.Sprintf("The daily game is over and added %d gold to the pool", p.GoldContribution),
			CategoryGame, nil, true

	case fact.TypePlayerGameResult:
		p, err := fact.Decode[fact.ResultPayload](fct)
		if err != nil {
			return "", "", nil, false
		}
		return f.printer.Sprintf("%s finished the game and earned %d silver", actor, p.SilverRewards[fct.ActorID]),
			CategoryGame, []string{fct.ActorID}, true

	case fact.TypePromptResult:
		return "The activity has wrapped up", CategoryPrompt, nil, true

	case fact.TypeElimination:
		return f.printer.Sprintf("%s has been eliminated", target),
			CategoryElimination, []string{fct.TargetID}, true

	case fact.TypeWinnerDeclared:
		p, err := fact.Decode[fact.WinnerPayload](fct)
		if err != nil {
			return "", "", nil, false
		}
		return f.printer.Sprintf("%s wins the game and takes %d gold", target, p.GoldPaid),
			CategoryWinner, []string{fct.TargetID}, true
	}
	return "", "", nil, false
}
