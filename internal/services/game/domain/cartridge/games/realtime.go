package games

import (
	"fmt"
	"sort"
	"time"

	"github.com/louisbranch/pecking-order/internal/services/game/domain/cartridge"
	"github.com/louisbranch/pecking-order/internal/services/game/domain/event"
	"github.com/louisbranch/pecking-order/internal/services/game/domain/fact"
)

// Mechanism ids and actions.
const (
	RealtimeTrivia = "REALTIME_TRIVIA"
	Trivia         = "TRIVIA"

	ActionAnswer = "ANSWER"
	ActionStart  = "START"
)

// Answer is one player's choice in a round.
type Answer struct {
	Index int       `json:"index"`
	At    time.Time `json:"at"`
}

// RoundOutcome is a resolved round, revealed to everyone.
type RoundOutcome struct {
	Round        int            `json:"round"`
	QuestionID   string         `json:"questionId"`
	CorrectIndex int            `json:"correctIndex"`
	Answers      map[string]int `json:"answers"`
	Rewards      map[string]int `json:"rewards"`
}

// Realtime is the synchronous trivia game: every player answers the same
// question inside a shared window.
type Realtime struct {
	Mech           string            `json:"mechanism"`
	DayIndex       int               `json:"dayIndex"`
	Players        []string          `json:"players"`
	Questions      []Question        `json:"questions"`
	Round          int               `json:"round"`
	RoundStartedAt time.Time         `json:"roundStartedAt"`
	RoundDeadline  time.Time         `json:"roundDeadline"`
	Answers        map[string]Answer `json:"answers"`
	LastRound      *RoundOutcome     `json:"lastRound,omitempty"`
	Correct        map[string]int    `json:"correct"`
	Silver         map[string]int    `json:"silver"`
	Results        *cartridge.Result `json:"results,omitempty"`
	// Table is the open table-talk channel id, empty when none is open.
	Table string `json:"table,omitempty"`
}

var (
	_ cartridge.Actor   = (*Realtime)(nil)
	_ cartridge.Starter = (*Realtime)(nil)
)

// TableChannelID names the table-talk channel of a day's realtime trivia.
func TableChannelID(dayIndex int) string {
	return fmt.Sprintf("game:trivia:%d", dayIndex)
}

// NewRealtime deals RoundCount questions and opens the first round.
func NewRealtime(env cartridge.Env, cfg cartridge.Config) *Realtime {
	g := &Realtime{
		Mech:      RealtimeTrivia,
		DayIndex:  cfg.DayIndex,
		Players:   env.Roster.Alive(),
		Questions: deal(env.Rand, RoundCount),
		Answers:   make(map[string]Answer),
		Correct:   make(map[string]int),
		Silver:    make(map[string]int),
	}
	if len(g.Players) == 0 {
		g.finish()
		return g
	}
	g.openRound(env.Now)
	return g
}

// Start opens a fee-exempt table-talk channel for the players while rounds
// run. It needs at least two players.
func (g *Realtime) Start(env cartridge.Env) []event.Event {
	if g.Done() || g.Table != "" || len(g.Players) < 2 {
		return nil
	}
	g.Table = TableChannelID(g.DayIndex)
	return []event.Event{cartridge.OpenGameDM(env, g.Table, g.Players)}
}

func (g *Realtime) Kind() cartridge.Kind      { return cartridge.KindGame }
func (g *Realtime) Mechanism() string         { return g.Mech }
func (g *Realtime) Done() bool                { return g.Results != nil }
func (g *Realtime) Result() *cartridge.Result { return g.Results }

// Deadline is the current round's window end.
func (g *Realtime) Deadline() time.Time {
	if g.Done() {
		return time.Time{}
	}
	return g.RoundDeadline
}

func (g *Realtime) openRound(at time.Time) {
	g.RoundStartedAt = at
	g.RoundDeadline = at.Add(AnswerWindow)
	g.Answers = make(map[string]Answer)
}

type answerPayload struct {
	Round       int `json:"round"`
	AnswerIndex int `json:"answerIndex"`
}

// Handle records an answer for the open round.
func (g *Realtime) Handle(env cartridge.Env, evt event.Event) []event.Event {
	if g.Done() {
		return nil
	}
	if event.Mechanism(evt.Type) != g.Mech || event.Action(evt.Type) != ActionAnswer {
		return cartridge.Reject(env, evt, cartridge.RejectUnknownAction, "no such game action")
	}
	if !cartridge.Contains(g.Players, evt.SenderID) {
		return cartridge.Reject(env, evt, cartridge.RejectNotEligible, "you are not playing")
	}
	payload, err := event.Decode[answerPayload](evt)
	if err != nil {
		return cartridge.Reject(env, evt, cartridge.RejectInvalidPayload, "answerIndex is required")
	}
	if payload.Round != 0 && payload.Round != g.Round+1 {
		return cartridge.Reject(env, evt, cartridge.RejectDeadlinePassed, "that round is closed")
	}
	if env.Now.After(g.RoundDeadline) {
		return cartridge.Reject(env, evt, cartridge.RejectDeadlinePassed, "time is up")
	}
	if _, answered := g.Answers[evt.SenderID]; answered {
		return nil
	}
	g.Answers[evt.SenderID] = Answer{Index: payload.AnswerIndex, At: env.Now}

	out := []event.Event{cartridge.RecordFact(env, fact.TypeGameAnswer, evt.SenderID, "", fact.CartridgePayload{
		Mechanism: g.Mech,
		Action:    ActionAnswer,
		DayIndex:  g.DayIndex,
	})}
	if len(g.Answers) == len(g.Players) {
		out = append(out, g.resolveRound(env, env.Now)...)
	}
	return out
}

// Advance resolves every round whose window has elapsed. Each following
// round opens at the previous deadline so catch-up stays on schedule.
func (g *Realtime) Advance(env cartridge.Env) []event.Event {
	var out []event.Event
	for !g.Done() && !env.Now.Before(g.RoundDeadline) {
		out = append(out, g.resolveRound(env, g.RoundDeadline)...)
	}
	return out
}

// Close resolves the open round with the answers so far and ends the game.
func (g *Realtime) Close(env cartridge.Env) []event.Event {
	if g.Done() {
		return nil
	}
	g.scoreRound()
	g.Round++
	g.finish()
	return g.completed(env)
}

func (g *Realtime) resolveRound(env cartridge.Env, nextStart time.Time) []event.Event {
	g.scoreRound()
	g.Round++
	if g.Round >= len(g.Questions) {
		g.finish()
		return g.completed(env)
	}
	g.openRound(nextStart)
	return nil
}

func (g *Realtime) scoreRound() {
	if g.Round >= len(g.Questions) {
		return
	}
	q := g.Questions[g.Round]
	outcome := &RoundOutcome{
		Round:        g.Round + 1,
		QuestionID:   q.ID,
		CorrectIndex: q.CorrectIndex,
		Answers:      make(map[string]int, len(g.Answers)),
		Rewards:      make(map[string]int),
	}
	for id, a := range g.Answers {
		outcome.Answers[id] = a.Index
		if a.Index != q.CorrectIndex {
			continue
		}
		reward := answerReward(a.At.Sub(g.RoundStartedAt))
		outcome.Rewards[id] = reward
		g.Silver[id] += reward
		g.Correct[id]++
	}
	g.LastRound = outcome
}

func (g *Realtime) finish() {
	rewards := make(map[string]int)
	total := 0
	for _, id := range g.Players {
		total += g.Correct[id]
		silver := g.Silver[id]
		if len(g.Questions) > 0 && g.Correct[id] == len(g.Questions) {
			silver += PerfectBonus
		}
		if silver > 0 {
			rewards[id] = silver
		}
	}
	g.Results = &cartridge.Result{
		Kind:             cartridge.KindGame,
		Mechanism:        g.Mech,
		DayIndex:         g.DayIndex,
		SilverRewards:    rewards,
		GoldContribution: total,
		Summary: map[string]any{
			"correct": copyCounts(g.Correct),
			"rounds":  min(g.Round, len(g.Questions)),
		},
	}
}

func (g *Realtime) completed(env cartridge.Env) []event.Event {
	out := []event.Event{cartridge.RecordFact(env, fact.TypeGameCompleted, cartridge.SystemActor, "", fact.CartridgePayload{
		Mechanism: g.Mech,
		DayIndex:  g.DayIndex,
	})}
	if g.Table != "" {
		out = append(out, cartridge.CloseGameDM(env, g.Table))
		g.Table = ""
	}
	return out
}

// RealtimeView is the per-player projection. The open question never
// carries its correct index.
type RealtimeView struct {
	Mechanism     string            `json:"mechanism"`
	Round         int               `json:"round"`
	TotalRounds   int               `json:"totalRounds"`
	Question      *PublicQuestion   `json:"question,omitempty"`
	Deadline      time.Time         `json:"deadline,omitempty"`
	MyAnswer      *int              `json:"myAnswer,omitempty"`
	AnsweredCount int               `json:"answeredCount"`
	LastRound     *RoundOutcome     `json:"lastRound,omitempty"`
	MySilver      int               `json:"mySilver"`
	MyCorrect     int               `json:"myCorrect"`
	Results       *cartridge.Result `json:"results,omitempty"`
}

// Project implements cartridge.Actor.
func (g *Realtime) Project(viewerID string) any {
	v := RealtimeView{
		Mechanism:     g.Mech,
		Round:         g.Round + 1,
		TotalRounds:   len(g.Questions),
		AnsweredCount: len(g.Answers),
		LastRound:     g.LastRound,
		MySilver:      g.Silver[viewerID],
		MyCorrect:     g.Correct[viewerID],
		Results:       g.Results,
	}
	if !g.Done() && g.Round < len(g.Questions) {
		q := g.Questions[g.Round].public()
		v.Question = &q
		v.Deadline = g.RoundDeadline
		if a, ok := g.Answers[viewerID]; ok {
			idx := a.Index
			v.MyAnswer = &idx
		}
	}
	return v
}

func copyCounts(in map[string]int) map[string]int {
	out := make(map[string]int, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
