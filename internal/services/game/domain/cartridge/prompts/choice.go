package prompts

import (
	"strconv"
	"time"

	"github.com/louisbranch/pecking-order/internal/services/game/domain/cartridge"
	"github.com/louisbranch/pecking-order/internal/services/game/domain/event"
)

// Choice hosts the single-phase prompts. Picks hold player ids for
// PLAYER_PICK and PREDICTION, option indexes for WOULD_YOU_RATHER and
// HOT_TAKE.
type Choice struct {
	Mech       string            `json:"mechanism"`
	DayIndex   int               `json:"dayIndex"`
	PromptText string            `json:"promptText"`
	Options    []string          `json:"options,omitempty"`
	Phase      Phase             `json:"phase"`
	Players    []string          `json:"players"`
	Picks      map[string]string `json:"picks"`
	Results    *cartridge.Result `json:"results,omitempty"`
}

var _ cartridge.Actor = (*Choice)(nil)

var defaultOptions = map[string][]string{
	WouldYouRather: {"Option A", "Option B"},
	HotTake:        {"Agree", "Disagree"},
}

// NewChoice opens a single-phase prompt for every alive player.
func NewChoice(env cartridge.Env, cfg cartridge.Config) *Choice {
	var options []string
	if defaults, ok := defaultOptions[cfg.Mechanism]; ok {
		options = defaults
		if len(cfg.Prompt.Options) >= 2 {
			options = cfg.Prompt.Options[:2]
		}
	}
	return &Choice{
		Mech:       cfg.Mechanism,
		DayIndex:   cfg.DayIndex,
		PromptText: cfg.Prompt.Text,
		Options:    append([]string(nil), options...),
		Phase:      PhaseActive,
		Players:    env.Roster.Alive(),
		Picks:      make(map[string]string),
	}
}

func (c *Choice) Kind() cartridge.Kind                { return cartridge.KindPrompt }
func (c *Choice) Mechanism() string                   { return c.Mech }
func (c *Choice) Done() bool                          { return c.Results != nil }
func (c *Choice) Result() *cartridge.Result           { return c.Results }
func (c *Choice) Deadline() time.Time                 { return time.Time{} }
func (c *Choice) Advance(cartridge.Env) []event.Event { return nil }

func (c *Choice) picksPlayers() bool {
	return c.Mech == PlayerPick || c.Mech == Prediction
}

type submitPayload struct {
	TargetID    string `json:"targetId"`
	OptionIndex *int   `json:"optionIndex"`
}

// Handle records a player's single submission.
func (c *Choice) Handle(env cartridge.Env, evt event.Event) []event.Event {
	if c.Done() {
		return nil
	}
	if event.Mechanism(evt.Type) != c.Mech || event.Action(evt.Type) != ActionSubmit {
		return cartridge.Reject(env, evt, cartridge.RejectUnknownAction, "no such prompt action")
	}
	player := evt.SenderID
	if !cartridge.Contains(c.Players, player) {
		return cartridge.Reject(env, evt, cartridge.RejectNotEligible, "you cannot answer")
	}
	payload, err := event.Decode[submitPayload](evt)
	if err != nil {
		return cartridge.Reject(env, evt, cartridge.RejectInvalidPayload, "malformed submission")
	}

	var pick string
	if c.picksPlayers() {
		if payload.TargetID == "" || payload.TargetID == player || !cartridge.Contains(c.Players, payload.TargetID) {
			return cartridge.Reject(env, evt, cartridge.RejectInvalidTarget, "pick another player")
		}
		pick = payload.TargetID
	} else {
		if payload.OptionIndex == nil || *payload.OptionIndex < 0 || *payload.OptionIndex >= len(c.Options) {
			return cartridge.Reject(env, evt, cartridge.RejectInvalidTarget, "pick one of the options")
		}
		pick = strconv.Itoa(*payload.OptionIndex)
	}
	if _, answered := c.Picks[player]; answered {
		return nil
	}
	c.Picks[player] = pick

	out := []event.Event{responseFact(env, c.Mech, ActionSubmit, player, c.DayIndex)}
	if len(c.Picks) == len(c.Players) {
		out = append(out, c.finish(env)...)
	}
	return out
}

// Close resolves the prompt with the submissions so far.
func (c *Choice) Close(env cartridge.Env) []event.Event {
	if c.Done() {
		return nil
	}
	return c.finish(env)
}

func (c *Choice) finish(env cartridge.Env) []event.Event {
	rewards := make(map[string]int)
	for player := range c.Picks {
		addReward(rewards, player, ParticipationReward)
	}
	tallies := cartridge.Tally(c.Picks)
	summary := map[string]any{"tallies": tallies, "picks": copyPicks(c.Picks)}

	switch c.Mech {
	case PlayerPick:
		mutual := 0
		for a, b := range c.Picks {
			if a < b && c.Picks[b] == a {
				addReward(rewards, a, MutualPickBonus)
				addReward(rewards, b, MutualPickBonus)
				mutual++
			}
		}
		summary["mutualPairs"] = mutual
	case Prediction:
		if leaders := cartridge.Leaders(tallies); len(leaders) == 1 {
			summary["consensus"] = leaders[0]
			for player, pick := range c.Picks {
				if pick == leaders[0] {
					addReward(rewards, player, ConsensusBonus)
				}
			}
		}
	case WouldYouRather, HotTake:
		if minority, ok := minorityOption(tallies, len(c.Options)); ok {
			summary["minority"] = minority
			for player, pick := range c.Picks {
				if pick == minority {
					addReward(rewards, player, MinorityBonus)
				}
			}
		}
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

// minorityOption returns the strictly least-picked option among those picked
// at least once. A tie, or a single picked option, has no minority.
func minorityOption(tallies map[string]int, optionCount int) (string, bool) {
	best, bestCount, tied := "", 0, false
	for i := 0; i < optionCount; i++ {
		key := strconv.Itoa(i)
		n := tallies[key]
		if n == 0 {
			continue
		}
		switch {
		case best == "" || n < bestCount:
			best, bestCount, tied = key, n, false
		case n == bestCount:
			tied = true
		}
	}
	picked := 0
	for i := 0; i < optionCount; i++ {
		if tallies[strconv.Itoa(i)] > 0 {
			picked++
		}
	}
	if best == "" || tied || picked < 2 {
		return "", false
	}
	return best, true
}

func copyPicks(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// ChoiceView hides other players' picks until results.
type ChoiceView struct {
	Mechanism     string            `json:"mechanism"`
	PromptText    string            `json:"promptText"`
	Options       []string          `json:"options,omitempty"`
	Phase         Phase             `json:"phase"`
	MyPick        string            `json:"myPick,omitempty"`
	ResponseCount int               `json:"responseCount"`
	Picks         map[string]string `json:"picks,omitempty"`
	Results       *cartridge.Result `json:"results,omitempty"`
}

// Project implements cartridge.Actor.
func (c *Choice) Project(viewerID string) any {
	v := ChoiceView{
		Mechanism:     c.Mech,
		PromptText:    c.PromptText,
		Options:       c.Options,
		Phase:         c.Phase,
		MyPick:        c.Picks[viewerID],
		ResponseCount: len(c.Picks),
	}
	if c.Done() {
		v.Picks = copyPicks(c.Picks)
		v.Results = c.Results
	}
	return v
}
