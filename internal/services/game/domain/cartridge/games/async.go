package games

import (
	"time"

	"github.com/louisbranch/pecking-order/internal/services/game/domain/cartridge"
	"github.com/louisbranch/pecking-order/internal/services/game/domain/event"
	"github.com/louisbranch/pecking-order/internal/services/game/domain/fact"
)

// Run is one player's private pass through an asynchronous trivia game.
type Run struct {
	Questions  []Question `json:"questions"`
	Current    int        `json:"current"`
	StartedAt  time.Time  `json:"startedAt"`
	Deadline   time.Time  `json:"deadline"`
	Answers    []int      `json:"answers"`
	Correct    int        `json:"correct"`
	Silver     int        `json:"silver"`
	Finished   bool       `json:"finished"`
	Credited   bool       `json:"credited"`
	LastResult *bool      `json:"lastResult,omitempty"`
}

// timedOut marks a question the player never answered.
const timedOut = -1

// Async is the asynchronous trivia game.
type Async struct {
	Mech     string            `json:"mechanism"`
	DayIndex int               `json:"dayIndex"`
	Players  []string          `json:"players"`
	Runs     map[string]*Run   `json:"runs"`
	Results  *cartridge.Result `json:"results,omitempty"`
}

var _ cartridge.Actor = (*Async)(nil)

// NewAsync opens an asynchronous game for every alive player.
func NewAsync(env cartridge.Env, cfg cartridge.Config) *Async {
	return &Async{
		Mech:     Trivia,
		DayIndex: cfg.DayIndex,
		Players:  env.Roster.Alive(),
		Runs:     make(map[string]*Run),
	}
}

func (g *Async) Kind() cartridge.Kind      { return cartridge.KindGame }
func (g *Async) Mechanism() string         { return g.Mech }
func (g *Async) Done() bool                { return g.Results != nil }
func (g *Async) Result() *cartridge.Result { return g.Results }

// Deadline is the earliest pending per-player timer.
func (g *Async) Deadline() time.Time {
	var next time.Time
	for _, run := range g.Runs {
		if run.Finished {
			continue
		}
		if next.IsZero() || run.Deadline.Before(next) {
			next = run.Deadline
		}
	}
	return next
}

// Handle starts a player's run or records their answer.
func (g *Async) Handle(env cartridge.Env, evt event.Event) []event.Event {
	if g.Done() {
		return nil
	}
	if event.Mechanism(evt.Type) != g.Mech {
		return cartridge.Reject(env, evt, cartridge.RejectUnknownAction, "no such game action")
	}
	if !cartridge.Contains(g.Players, evt.SenderID) {
		return cartridge.Reject(env, evt, cartridge.RejectNotEligible, "you are not playing")
	}
	switch event.Action(evt.Type) {
	case ActionStart:
		return g.start(env, evt.SenderID)
	case ActionAnswer:
		return g.answer(env, evt)
	}
	return cartridge.Reject(env, evt, cartridge.RejectUnknownAction, "no such game action")
}

func (g *Async) start(env cartridge.Env, playerID string) []event.Event {
	if _, started := g.Runs[playerID]; started {
		return nil
	}
	g.Runs[playerID] = &Run{
		Questions: deal(env.Rand, RoundCount),
		StartedAt: env.Now,
		Deadline:  env.Now.Add(AnswerWindow),
		Answers:   []int{},
	}
	return nil
}

func (g *Async) answer(env cartridge.Env, evt event.Event) []event.Event {
	run, ok := g.Runs[evt.SenderID]
	if !ok || run.Finished {
		return cartridge.Reject(env, evt, cartridge.RejectWrongPhase, "no question is open for you")
	}
	payload, err := event.Decode[answerPayload](evt)
	if err != nil {
		return cartridge.Reject(env, evt, cartridge.RejectInvalidPayload, "answerIndex is required")
	}
	if env.Now.After(run.Deadline) {
		return cartridge.Reject(env, evt, cartridge.RejectDeadlinePassed, "time is up")
	}

	q := run.Questions[run.Current]
	correct := payload.AnswerIndex == q.CorrectIndex
	if correct {
		run.Silver += answerReward(env.Now.Sub(run.StartedAt))
		run.Correct++
	}
	run.LastResult = &correct
	run.Answers = append(run.Answers, payload.AnswerIndex)

	out := []event.Event{cartridge.RecordFact(env, fact.TypeGameAnswer, evt.SenderID, "", fact.CartridgePayload{
		Mechanism: g.Mech,
		Action:    ActionAnswer,
		DayIndex:  g.DayIndex,
	})}
	out = append(out, g.next(env, evt.SenderID, run, env.Now)...)
	return append(out, g.maybeFinish(env)...)
}

// next moves a run to its following question, finishing it after the last.
func (g *Async) next(env cartridge.Env, playerID string, run *Run, at time.Time) []event.Event {
	run.Current++
	if run.Current < len(run.Questions) {
		run.StartedAt = at
		run.Deadline = at.Add(AnswerWindow)
		return nil
	}
	run.Finished = true
	if len(run.Questions) > 0 && run.Correct == len(run.Questions) {
		run.Silver += PerfectBonus
	}
	run.Credited = true
	return []event.Event{event.New(event.TypeCartridgePlayerGameResult, playerID, env.Now, cartridge.PlayerGameResult{
		PlayerID:  playerID,
		Mechanism: g.Mech,
		DayIndex:  g.DayIndex,
		Silver:    run.Silver,
		Summary:   map[string]any{"correct": run.Correct},
	})}
}

// Advance times out every expired question in player order.
func (g *Async) Advance(env cartridge.Env) []event.Event {
	if g.Done() {
		return nil
	}
	var out []event.Event
	for _, id := range sortedKeys(g.Runs) {
		run := g.Runs[id]
		for !run.Finished && !env.Now.Before(run.Deadline) {
			run.Answers = append(run.Answers, timedOut)
			missed := false
			run.LastResult = &missed
			out = append(out, g.next(env, id, run, run.Deadline)...)
		}
	}
	return append(out, g.maybeFinish(env)...)
}

func (g *Async) maybeFinish(env cartridge.Env) []event.Event {
	if len(g.Players) == 0 {
		return nil
	}
	for _, id := range g.Players {
		run, ok := g.Runs[id]
		if !ok || !run.Finished {
			return nil
		}
	}
	return g.finish(env)
}

// Close ends the game. Players already credited as they finished are not
// credited again; partial runs are paid here.
func (g *Async) Close(env cartridge.Env) []event.Event {
	if g.Done() {
		return nil
	}
	return g.finish(env)
}

func (g *Async) finish(env cartridge.Env) []event.Event {
	rewards := make(map[string]int)
	correct := make(map[string]int)
	finished := make([]string, 0, len(g.Runs))
	total := 0
	for _, id := range sortedKeys(g.Runs) {
		run := g.Runs[id]
		total += run.Correct
		correct[id] = run.Correct
		if run.Finished {
			finished = append(finished, id)
		}
		if !run.Credited && run.Silver > 0 {
			rewards[id] = run.Silver
		}
	}
	g.Results = &cartridge.Result{
		Kind:             cartridge.KindGame,
		Mechanism:        g.Mech,
		DayIndex:         g.DayIndex,
		SilverRewards:    rewards,
		GoldContribution: total,
		Summary:          map[string]any{"correct": correct, "finished": finished},
	}
	return []event.Event{cartridge.RecordFact(env, fact.TypeGameCompleted, cartridge.SystemActor, "", fact.CartridgePayload{
		Mechanism: g.Mech,
		DayIndex:  g.DayIndex,
	})}
}

// AsyncView is the per-player projection of an asynchronous game.
type AsyncView struct {
	Mechanism     string            `json:"mechanism"`
	Started       bool              `json:"started"`
	Question      *PublicQuestion   `json:"question,omitempty"`
	QuestionIndex int               `json:"questionIndex"`
	TotalRounds   int               `json:"totalRounds"`
	Deadline      time.Time         `json:"deadline,omitempty"`
	LastCorrect   *bool             `json:"lastCorrect,omitempty"`
	MySilver      int               `json:"mySilver"`
	MyCorrect     int               `json:"myCorrect"`
	Finished      bool              `json:"finished"`
	FinishedCount int               `json:"finishedCount"`
	Results       *cartridge.Result `json:"results,omitempty"`
}

// Project implements cartridge.Actor.
func (g *Async) Project(viewerID string) any {
	v := AsyncView{Mechanism: g.Mech, TotalRounds: RoundCount, Results: g.Results}
	for _, run := range g.Runs {
		if run.Finished {
			v.FinishedCount++
		}
	}
	run, ok := g.Runs[viewerID]
	if !ok {
		return v
	}
	v.Started = true
	v.QuestionIndex = run.Current
	v.LastCorrect = run.LastResult
	v.MySilver = run.Silver
	v.MyCorrect = run.Correct
	v.Finished = run.Finished
	if !run.Finished && !g.Done() {
		q := run.Questions[run.Current].public()
		v.Question = &q
		v.Deadline = run.Deadline
	}
	return v
}
