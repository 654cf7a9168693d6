package prompts

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/louisbranch/pecking-order/internal/services/game/domain/cartridge"
	"github.com/louisbranch/pecking-order/internal/services/game/domain/event"
)

// GuessWhoPrompt collects anonymous answers, then players guess who wrote
// each one.
type GuessWhoPrompt struct {
	Mech        string                       `json:"mechanism"`
	DayIndex    int                          `json:"dayIndex"`
	PromptText  string                       `json:"promptText"`
	Phase       Phase                        `json:"phase"`
	Players     []string                     `json:"players"`
	Submissions map[string]string            `json:"submissions"`
	Entries     []Entry                      `json:"entries,omitempty"`
	Guesses     map[string]map[string]string `json:"guesses"`
	Results     *cartridge.Result            `json:"results,omitempty"`
}

var _ cartridge.Actor = (*GuessWhoPrompt)(nil)

// NewGuessWho opens the answer phase.
func NewGuessWho(env cartridge.Env, cfg cartridge.Config) *GuessWhoPrompt {
	return &GuessWhoPrompt{
		Mech:        GuessWho,
		DayIndex:    cfg.DayIndex,
		PromptText:  cfg.Prompt.Text,
		Phase:       PhaseAnswer,
		Players:     env.Roster.Alive(),
		Submissions: make(map[string]string),
		Guesses:     make(map[string]map[string]string),
	}
}

func (g *GuessWhoPrompt) Kind() cartridge.Kind                { return cartridge.KindPrompt }
func (g *GuessWhoPrompt) Mechanism() string                   { return g.Mech }
func (g *GuessWhoPrompt) Done() bool                          { return g.Results != nil }
func (g *GuessWhoPrompt) Result() *cartridge.Result           { return g.Results }
func (g *GuessWhoPrompt) Deadline() time.Time                 { return time.Time{} }
func (g *GuessWhoPrompt) Advance(cartridge.Env) []event.Event { return nil }

// Handle accepts ANSWER in the answer phase and GUESS in the guess phase.
func (g *GuessWhoPrompt) Handle(env cartridge.Env, evt event.Event) []event.Event {
	if g.Done() {
		return nil
	}
	if event.Mechanism(evt.Type) != g.Mech {
		return cartridge.Reject(env, evt, cartridge.RejectUnknownAction, "no such prompt action")
	}
	player := evt.SenderID
	if !cartridge.Contains(g.Players, player) {
		return cartridge.Reject(env, evt, cartridge.RejectNotEligible, "you cannot take part")
	}

	switch action := event.Action(evt.Type); {
	case action == ActionAnswer && g.Phase == PhaseAnswer:
		payload, err := event.Decode[textPayload](evt)
		text := strings.TrimSpace(payload.Text)
		if err != nil || text == "" || utf8.RuneCountInString(text) > MaxTextLength {
			return cartridge.Reject(env, evt, cartridge.RejectInvalidPayload, "answer must be 1-280 characters")
		}
		if _, done := g.Submissions[player]; done {
			return nil
		}
		g.Submissions[player] = text
		out := []event.Event{responseFact(env, g.Mech, ActionAnswer, player, g.DayIndex)}
		if len(g.Submissions) == len(g.Players) {
			out = append(out, g.endAnswers(env)...)
		}
		return out

	case action == ActionGuess && g.Phase == PhaseGuess:
		payload, err := event.Decode[entryPayload](evt)
		if err != nil {
			return cartridge.Reject(env, evt, cartridge.RejectInvalidPayload, "entryId and authorId are required")
		}
		entry, ok := findEntry(g.Entries, payload.EntryID)
		if !ok || entry.AuthorID == player || !cartridge.Contains(g.Players, payload.AuthorID) {
			return cartridge.Reject(env, evt, cartridge.RejectInvalidTarget, "guess another player's answer")
		}
		mine := g.Guesses[player]
		if mine == nil {
			mine = make(map[string]string)
			g.Guesses[player] = mine
		}
		if _, guessed := mine[entry.ID]; guessed {
			return nil
		}
		mine[entry.ID] = payload.AuthorID
		out := []event.Event{responseFact(env, g.Mech, ActionGuess, player, g.DayIndex)}
		if g.allGuessed() {
			out = append(out, g.finish(env)...)
		}
		return out

	case action == ActionAnswer || action == ActionGuess:
		return cartridge.Reject(env, evt, cartridge.RejectWrongPhase, "not accepted in this phase")
	}
	return cartridge.Reject(env, evt, cartridge.RejectUnknownAction, "no such prompt action")
}

func (g *GuessWhoPrompt) allGuessed() bool {
	for _, player := range g.Players {
		for _, e := range g.Entries {
			if e.AuthorID == player {
				continue
			}
			if _, ok := g.Guesses[player][e.ID]; !ok {
				return false
			}
		}
	}
	return true
}

// Close moves answers to guesses when at least two answers exist, and
// otherwise resolves.
func (g *GuessWhoPrompt) Close(env cartridge.Env) []event.Event {
	switch {
	case g.Done():
		return nil
	case g.Phase == PhaseAnswer:
		return g.endAnswers(env)
	default:
		return g.finish(env)
	}
}

func (g *GuessWhoPrompt) endAnswers(env cartridge.Env) []event.Event {
	if len(g.Submissions) < 2 {
		return g.finish(env)
	}
	g.Entries = shuffleEntries(env, g.Players, g.Submissions)
	g.Phase = PhaseGuess
	return nil
}

func (g *GuessWhoPrompt) finish(env cartridge.Env) []event.Event {
	rewards := make(map[string]int)
	for author := range g.Submissions {
		addReward(rewards, author, ParticipationReward)
	}
	correct := make(map[string]int)
	fooled := make(map[string]int)
	for guesser, guesses := range g.Guesses {
		for entryID, guess := range guesses {
			entry, ok := findEntry(g.Entries, entryID)
			if !ok {
				continue
			}
			if guess == entry.AuthorID {
				correct[guesser]++
				addReward(rewards, guesser, CorrectGuessReward)
			} else {
				fooled[entry.AuthorID]++
				addReward(rewards, entry.AuthorID, FooledReward)
			}
		}
	}

	g.Phase = PhaseResults
	g.Results = &cartridge.Result{
		Kind:          cartridge.KindPrompt,
		Mechanism:     g.Mech,
		DayIndex:      g.DayIndex,
		SilverRewards: rewards,
		Summary:       map[string]any{"correctGuesses": correct, "fooled": fooled},
	}
	return []event.Event{completedFact(env, g.Mech, g.DayIndex)}
}

// GuessWhoView exposes entries without authors until results.
type GuessWhoView struct {
	Mechanism       string            `json:"mechanism"`
	PromptText      string            `json:"promptText"`
	Phase           Phase             `json:"phase"`
	SubmittedCount  int               `json:"submittedCount"`
	MyAnswer        string            `json:"myAnswer,omitempty"`
	Entries         []PublicEntry     `json:"entries,omitempty"`
	MyGuesses       map[string]string `json:"myGuesses,omitempty"`
	RevealedEntries []Entry           `json:"revealedEntries,omitempty"`
	Results         *cartridge.Result `json:"results,omitempty"`
}

// Project implements cartridge.Actor.
func (g *GuessWhoPrompt) Project(viewerID string) any {
	v := GuessWhoView{
		Mechanism:      g.Mech,
		PromptText:     g.PromptText,
		Phase:          g.Phase,
		SubmittedCount: len(g.Submissions),
		MyAnswer:       g.Submissions[viewerID],
	}
	if mine := g.Guesses[viewerID]; len(mine) > 0 {
		v.MyGuesses = copyPicks(mine)
	}
	if g.Done() {
		v.RevealedEntries = append([]Entry(nil), g.Entries...)
		v.Results = g.Results
	} else {
		v.Entries = publicEntries(g.Entries)
	}
	return v
}
