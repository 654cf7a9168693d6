package prompts

import (
	"fmt"

	"github.com/louisbranch/pecking-order/internal/services/game/domain/cartridge"
	"github.com/louisbranch/pecking-order/internal/services/game/domain/event"
	"github.com/louisbranch/pecking-order/internal/services/game/domain/fact"
)

// Mechanism ids.
const (
	PlayerPick     = "PLAYER_PICK"
	Prediction     = "PREDICTION"
	WouldYouRather = "WOULD_YOU_RATHER"
	HotTake        = "HOT_TAKE"
	Confession     = "CONFESSION"
	GuessWho       = "GUESS_WHO"
)

// Actions, the last segment of ACTIVITY.<PROMPT>.<ACTION>.
const (
	ActionSubmit = "SUBMIT"
	ActionVote   = "VOTE"
	ActionAnswer = "ANSWER"
	ActionGuess  = "GUESS"
)

// Phase of a prompt.
type Phase string

const (
	PhaseActive  Phase = "ACTIVE"
	PhaseCollect Phase = "COLLECT"
	PhaseVote    Phase = "VOTE"
	PhaseAnswer  Phase = "ANSWER"
	PhaseGuess   Phase = "GUESS"
	PhaseResults Phase = "RESULTS"
)

// Rewards.
const (
	ParticipationReward = 5
	MutualPickBonus     = 10
	ConsensusBonus      = 5
	MinorityBonus       = 10
	ConfessionVote      = 5
	ConfessionWinner    = 15
	CorrectGuessReward  = 3
	FooledReward        = 2
)

// MaxTextLength caps free-text submissions.
const MaxTextLength = 280

// Entry is an anonymized submission. AuthorID is only exposed in RESULTS.
type Entry struct {
	ID       string `json:"id"`
	Text     string `json:"text"`
	AuthorID string `json:"authorId,omitempty"`
}

// PublicEntry is an entry without authorship.
type PublicEntry struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

func responseFact(env cartridge.Env, mech, action, playerID string, dayIndex int) event.Event {
	return cartridge.RecordFact(env, fact.TypePromptResponse, playerID, "", fact.CartridgePayload{
		Mechanism: mech,
		Action:    action,
		DayIndex:  dayIndex,
	})
}

func completedFact(env cartridge.Env, mech string, dayIndex int) event.Event {
	return cartridge.RecordFact(env, fact.TypePromptCompleted, cartridge.SystemActor, "", fact.CartridgePayload{
		Mechanism: mech,
		DayIndex:  dayIndex,
	})
}

// shuffleEntries assigns opaque ids to submissions in a random order so
// neither order nor id leaks the author.
func shuffleEntries(env cartridge.Env, players []string, submissions map[string]string) []Entry {
	authors := make([]string, 0, len(submissions))
	for _, id := range players {
		if _, ok := submissions[id]; ok {
			authors = append(authors, id)
		}
	}
	env.Rand.Shuffle(len(authors), func(i, j int) { authors[i], authors[j] = authors[j], authors[i] })
	entries := make([]Entry, 0, len(authors))
	for i, author := range authors {
		entries = append(entries, Entry{ID: entryID(i), Text: submissions[author], AuthorID: author})
	}
	return entries
}

func entryID(i int) string {
	return fmt.Sprintf("e%d", i+1)
}

func publicEntries(entries []Entry) []PublicEntry {
	out := make([]PublicEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, PublicEntry{ID: e.ID, Text: e.Text})
	}
	return out
}

func findEntry(entries []Entry, id string) (Entry, bool) {
	for _, e := range entries {
		if e.ID == id {
			return e, true
		}
	}
	return Entry{}, false
}

func addReward(rewards map[string]int, id string, amount int) {
	if amount > 0 {
		rewards[id] += amount
	}
}
