package prompts

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/louisbranch/pecking-order/internal/services/game/domain/cartridge"
	"github.com/louisbranch/pecking-order/internal/services/game/domain/event"
)

// ConfessionPrompt collects anonymous confessions, then lets players vote for
// their favourite.
type ConfessionPrompt struct {
	Mech        string            `json:"mechanism"`
	DayIndex    int               `json:"dayIndex"`
	PromptText  string            `json:"promptText"`
	Phase       Phase             `json:"phase"`
	Players     []string          `json:"players"`
	Submissions map[string]string `json:"submissions"`
	Entries     []Entry           `json:"entries,omitempty"`
	Votes       map[string]string `json:"votes"`
	Results     *cartridge.Result `json:"results,omitempty"`
}

var _ cartridge.Actor = (*ConfessionPrompt)(nil)

// NewConfession opens the collect phase.
func NewConfession(env cartridge.Env, cfg cartridge.Config) *ConfessionPrompt {
	return &ConfessionPrompt{
		Mech:        Confession,
		DayIndex:    cfg.DayIndex,
		PromptText:  cfg.Prompt.Text,
		Phase:       PhaseCollect,
		Players:     env.Roster.Alive(),
		Submissions: make(map[string]string),
		Votes:       make(map[string]string),
	}
}

func (c *ConfessionPrompt) Kind() cartridge.Kind                { return cartridge.KindPrompt }
func (c *ConfessionPrompt) Mechanism() string                   { return c.Mech }
func (c *ConfessionPrompt) Done() bool                          { return c.Results != nil }
func (c *ConfessionPrompt) Result() *cartridge.Result           { return c.Results }
func (c *ConfessionPrompt) Deadline() time.Time                 { return time.Time{} }
func (c *ConfessionPrompt) Advance(cartridge.Env) []event.Event { return nil }

type textPayload struct {
	Text string `json:"text"`
}

type entryPayload struct {
	EntryID  string `json:"entryId"`
	AuthorID string `json:"authorId"`
}

// Handle accepts SUBMIT in the collect phase and VOTE in the vote phase.
func (c *ConfessionPrompt) Handle(env cartridge.Env, evt event.Event) []event.Event {
	if c.Done() {
		return nil
	}
	if event.Mechanism(evt.Type) != c.Mech {
		return cartridge.Reject(env, evt, cartridge.RejectUnknownAction, "no such prompt action")
	}
	player := evt.SenderID
	if !cartridge.Contains(c.Players, player) {
		return cartridge.Reject(env, evt, cartridge.RejectNotEligible, "you cannot take part")
	}

	switch action := event.Action(evt.Type); {
	case action == ActionSubmit && c.Phase == PhaseCollect:
		payload, err := event.Decode[textPayload](evt)
		text := strings.TrimSpace(payload.Text)
		if err != nil || text == "" || utf8.RuneCountInString(text) > MaxTextLength {
			return cartridge.Reject(env, evt, cartridge.RejectInvalidPayload, "confession must be 1-280 characters")
		}
		if _, done := c.Submissions[player]; done {
			return nil
		}
		c.Submissions[player] = text
		out := []event.Event{responseFact(env, c.Mech, ActionSubmit, player, c.DayIndex)}
		if len(c.Submissions) == len(c.Players) {
			out = append(out, c.endCollect(env)...)
		}
		return out

	case action == ActionVote && c.Phase == PhaseVote:
		payload, err := event.Decode[entryPayload](evt)
		if err != nil {
			return cartridge.Reject(env, evt, cartridge.RejectInvalidPayload, "entryId is required")
		}
		entry, ok := findEntry(c.Entries, payload.EntryID)
		if !ok || entry.AuthorID == player {
			return cartridge.Reject(env, evt, cartridge.RejectInvalidTarget, "vote for someone else's confession")
		}
		if _, voted := c.Votes[player]; voted {
			return nil
		}
		c.Votes[player] = entry.ID
		out := []event.Event{responseFact(env, c.Mech, ActionVote, player, c.DayIndex)}
		if len(c.Votes) == len(c.Players) {
			out = append(out, c.finish(env)...)
		}
		return out

	case action == ActionSubmit || action == ActionVote:
		return cartridge.Reject(env, evt, cartridge.RejectWrongPhase, "not accepted in this phase")
	}
	return cartridge.Reject(env, evt, cartridge.RejectUnknownAction, "no such prompt action")
}

// Close moves collect to vote when at least two confessions exist, and
// otherwise resolves.
func (c *ConfessionPrompt) Close(env cartridge.Env) []event.Event {
	switch {
	case c.Done():
		return nil
	case c.Phase == PhaseCollect:
		return c.endCollect(env)
	default:
		return c.finish(env)
	}
}

func (c *ConfessionPrompt) endCollect(env cartridge.Env) []event.Event {
	if len(c.Submissions) < 2 {
		return c.finish(env)
	}
	c.Entries = shuffleEntries(env, c.Players, c.Submissions)
	c.Phase = PhaseVote
	return nil
}

func (c *ConfessionPrompt) finish(env cartridge.Env) []event.Event {
	rewards := make(map[string]int)
	for author := range c.Submissions {
		addReward(rewards, author, ParticipationReward)
	}
	for voter := range c.Votes {
		addReward(rewards, voter, ConfessionVote)
	}
	tallies := cartridge.Tally(c.Votes)
	summary := map[string]any{"tallies": tallies}

	// Ties go to the entry shown first; entry order is already random.
	winner, best := Entry{}, 0
	for _, e := range c.Entries {
		if n := tallies[e.ID]; n > best {
			winner, best = e, n
		}
	}
	if best > 0 {
		addReward(rewards, winner.AuthorID, ConfessionWinner)
		summary["winningEntry"] = winner.ID
		summary["winnerId"] = winner.AuthorID
	}

	c.Phase = PhaseResults
	c.Results = &cartridge.Result{
		Kind:          cartridge.KindPrompt,
		Mechanism:     c.Mech,
		DayIndex:      c.DayIndex,
		SilverRewards: rewards,
		Summary:       summary,
	}
	return []event.Event{completedFact(env, c.Mech, c.DayIndex)}
}

// ConfessionView exposes entries without authors until results.
type ConfessionView struct {
	Mechanism       string            `json:"mechanism"`
	PromptText      string            `json:"promptText"`
	Phase           Phase             `json:"phase"`
	SubmittedCount  int               `json:"submittedCount"`
	MySubmission    string            `json:"mySubmission,omitempty"`
	Entries         []PublicEntry     `json:"entries,omitempty"`
	MyVote          string            `json:"myVote,omitempty"`
	VoteCount       int               `json:"voteCount"`
	RevealedEntries []Entry           `json:"revealedEntries,omitempty"`
	Results         *cartridge.Result `json:"results,omitempty"`
}

// Project implements cartridge.Actor.
func (c *ConfessionPrompt) Project(viewerID string) any {
	v := ConfessionView{
		Mechanism:      c.Mech,
		PromptText:     c.PromptText,
		Phase:          c.Phase,
		SubmittedCount: len(c.Submissions),
		MySubmission:   c.Submissions[viewerID],
		MyVote:         c.Votes[viewerID],
		VoteCount:      len(c.Votes),
	}
	if c.Done() {
		v.RevealedEntries = append([]Entry(nil), c.Entries...)
		v.Results = c.Results
	} else {
		v.Entries = publicEntries(c.Entries)
	}
	return v
}
