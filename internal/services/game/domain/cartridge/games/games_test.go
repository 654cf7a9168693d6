package games

import (
	"encoding/json"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/louisbranch/pecking-order/internal/services/game/domain/cartridge"
	"github.com/louisbranch/pecking-order/internal/services/game/domain/event"
	"github.com/louisbranch/pecking-order/internal/services/game/domain/roster"
)

var start = time.Date(2026, 3, 1, 14, 0, 0, 0, time.UTC)

func players(ids ...string) roster.Roster {
	r := roster.Roster{}
	for _, id := range ids {
		r[id] = roster.Player{Status: roster.StatusAlive, Silver: 10}
	}
	return r
}

func envAt(r roster.Roster, at time.Time) cartridge.Env {
	return cartridge.Env{Now: at, Rand: rand.New(rand.NewPCG(3, 4)), Roster: r}
}

func answer(mech, player string, idx int) event.Event {
	return event.New(event.CartridgeType(event.PrefixGame, mech, ActionAnswer), player, start, map[string]int{"answerIndex": idx})
}

func TestAnswerReward(t *testing.T) {
	cases := map[time.Duration]int{
		0:                       5,
		5 * time.Second:         4,
		7500 * time.Millisecond: 4,
		10 * time.Second:        3,
		AnswerWindow:            2,
		time.Minute:             2,
	}
	for elapsed, want := range cases {
		assert.Equal(t, want, answerReward(elapsed), "elapsed %s", elapsed)
	}
}

func TestBankIsLoaded(t *testing.T) {
	require.GreaterOrEqual(t, len(bank), RoundCount)
	for _, q := range bank {
		assert.Less(t, q.CorrectIndex, len(q.Options), q.ID)
	}
}

func TestRealtime_PerfectScore(t *testing.T) {
	r := players("a", "b")
	env := envAt(r, start)
	g := NewRealtime(env, cartridge.Config{Mechanism: RealtimeTrivia, DayIndex: 2})
	require.Len(t, g.Questions, RoundCount)

	for round := 0; round < RoundCount; round++ {
		correct := g.Questions[g.Round].CorrectIndex
		g.Handle(env, answer(RealtimeTrivia, "a", correct))
		g.Handle(env, answer(RealtimeTrivia, "b", (correct+1)%4))
	}

	require.True(t, g.Done())
	res := g.Result()
	assert.Equal(t, RoundCount*5+PerfectBonus, res.SilverRewards["a"])
	assert.NotContains(t, res.SilverRewards, "b")
	assert.Equal(t, RoundCount, res.GoldContribution)
	assert.Equal(t, 2, res.DayIndex)
}

func TestRealtime_TimerWinsOverLateAnswer(t *testing.T) {
	r := players("a", "b")
	g := NewRealtime(envAt(r, start), cartridge.Config{Mechanism: RealtimeTrivia})

	late := envAt(r, start.Add(AnswerWindow))
	g.Advance(late)
	assert.Equal(t, 1, g.Round)
	require.NotNil(t, g.LastRound)
	assert.Empty(t, g.LastRound.Answers)

	evt := event.New(event.CartridgeType(event.PrefixGame, RealtimeTrivia, ActionAnswer), "a", late.Now,
		map[string]int{"round": 1, "answerIndex": 0})
	out := g.Handle(late, evt)
	require.Len(t, out, 1)
	assert.Equal(t, event.TypeCartridgeRejected, out[0].Type)
	assert.Contains(t, string(out[0].PayloadJSON), cartridge.RejectDeadlinePassed)
}

func TestRealtime_AdvanceCatchesUpEveryRound(t *testing.T) {
	r := players("a")
	g := NewRealtime(envAt(r, start), cartridge.Config{})
	assert.Equal(t, start.Add(AnswerWindow), g.Deadline())

	g.Advance(envAt(r, start.Add(RoundCount*AnswerWindow+time.Second)))
	require.True(t, g.Done())
	assert.True(t, g.Deadline().IsZero())
	assert.Equal(t, 0, g.Result().GoldContribution)
}

func TestRealtime_ProjectionHidesCorrectIndex(t *testing.T) {
	r := players("a", "b")
	env := envAt(r, start)
	g := NewRealtime(env, cartridge.Config{})

	data, err := json.Marshal(g.Project("a"))
	require.NoError(t, err)
	assert.NotContains(t, string(data), "correctIndex")

	g.Handle(env, answer(RealtimeTrivia, "a", 0))
	g.Handle(env, answer(RealtimeTrivia, "b", 1))
	v := g.Project("a").(RealtimeView)
	require.NotNil(t, v.LastRound)
	assert.Equal(t, g.Questions[0].CorrectIndex, v.LastRound.CorrectIndex)
	assert.Nil(t, v.MyAnswer)
}

func TestRealtime_CloseEndsEarly(t *testing.T) {
	r := players("a", "b")
	env := envAt(r, start.Add(3*time.Second))
	g := NewRealtime(envAt(r, start), cartridge.Config{})
	g.Handle(env, answer(RealtimeTrivia, "a", g.Questions[0].CorrectIndex))

	out := g.Close(env)
	require.Len(t, out, 1)
	require.True(t, g.Done())
	assert.Equal(t, 4, g.Result().SilverRewards["a"])
	assert.Equal(t, 1, g.Result().GoldContribution)
}

func TestAsync_CreditsPlayersAsTheyFinish(t *testing.T) {
	r := players("a", "b", "c")
	env := envAt(r, start)
	g := NewAsync(env, cartridge.Config{Mechanism: Trivia, DayIndex: 1})

	g.Handle(env, event.New("GAME.TRIVIA.START", "a", start, map[string]any{}))
	g.Handle(env, event.New("GAME.TRIVIA.START", "b", start, map[string]any{}))

	var credited []event.Event
	for i := 0; i < RoundCount; i++ {
		run := g.Runs["a"]
		out := g.Handle(env, answer(Trivia, "a", run.Questions[run.Current].CorrectIndex))
		for _, evt := range out {
			if evt.Type == event.TypeCartridgePlayerGameResult {
				credited = append(credited, evt)
			}
		}
	}
	require.Len(t, credited, 1)
	payload, err := event.Decode[cartridge.PlayerGameResult](credited[0])
	require.NoError(t, err)
	assert.Equal(t, "a", payload.PlayerID)
	assert.Equal(t, RoundCount*5+PerfectBonus, payload.Silver)
	assert.False(t, g.Done())

	run := g.Runs["b"]
	g.Handle(env, answer(Trivia, "b", run.Questions[0].CorrectIndex))

	g.Close(env)
	require.True(t, g.Done())
	res := g.Result()
	assert.NotContains(t, res.SilverRewards, "a", "already credited")
	assert.Equal(t, 5, res.SilverRewards["b"])
	assert.Equal(t, RoundCount+1, res.GoldContribution)
}

func TestAsync_TimeoutsAdvanceAndFinish(t *testing.T) {
	r := players("a")
	g := NewAsync(envAt(r, start), cartridge.Config{})
	g.Handle(envAt(r, start), event.New("GAME.TRIVIA.START", "a", start, map[string]any{}))
	assert.Equal(t, start.Add(AnswerWindow), g.Deadline())

	g.Advance(envAt(r, start.Add(AnswerWindow)))
	assert.Equal(t, 1, g.Runs["a"].Current)
	assert.Equal(t, start.Add(2*AnswerWindow), g.Deadline())

	out := g.Advance(envAt(r, start.Add(10*AnswerWindow)))
	require.True(t, g.Done())
	assert.Equal(t, []int{timedOut, timedOut, timedOut, timedOut, timedOut}, g.Runs["a"].Answers)
	var types []event.Type
	for _, evt := range out {
		types = append(types, evt.Type)
	}
	assert.Contains(t, types, event.TypeCartridgePlayerGameResult)
	assert.Contains(t, types, event.TypeFactRecord)
}

func TestAsync_RejectsAnswerBeforeStart(t *testing.T) {
	r := players("a")
	env := envAt(r, start)
	g := NewAsync(env, cartridge.Config{})
	out := g.Handle(env, answer(Trivia, "a", 0))
	require.Len(t, out, 1)
	assert.Equal(t, event.TypeCartridgeRejected, out[0].Type)
}

func TestSnapshotRoundTrip(t *testing.T) {
	reg, err := cartridge.NewRegistry(Entries()...)
	require.NoError(t, err)

	r := players("a", "b")
	env := envAt(r, start)
	g := NewRealtime(env, cartridge.Config{DayIndex: 1})
	g.Handle(env, answer(RealtimeTrivia, "a", 1))

	snap, err := cartridge.Save(g)
	require.NoError(t, err)
	restored, err := reg.Restore(snap)
	require.NoError(t, err)

	got := restored.(*Realtime)
	assert.Equal(t, g.Questions, got.Questions)
	assert.Equal(t, g.Answers["a"].Index, got.Answers["a"].Index)
	assert.True(t, g.RoundDeadline.Equal(got.RoundDeadline))
}

func TestRealtime_TableTalkOpensAndCloses(t *testing.T) {
	r := players("a", "b", "c")
	env := envAt(r, start)
	g := NewRealtime(env, cartridge.Config{DayIndex: 3})

	out := g.Start(env)
	require.Len(t, out, 1)
	assert.Equal(t, event.TypeChannelGameDMOpen, out[0].Type)
	dm, err := event.Decode[cartridge.GameDM](out[0])
	require.NoError(t, err)
	assert.Equal(t, TableChannelID(3), dm.ChannelID)
	assert.Equal(t, []string{"a", "b", "c"}, dm.MemberIDs)
	assert.Empty(t, g.Start(env))

	out = g.Close(env)
	require.Len(t, out, 2)
	assert.Equal(t, event.TypeChannelGameDMClose, out[1].Type)
	assert.Empty(t, g.Table)
}

func TestRealtime_SoloGameHasNoTable(t *testing.T) {
	r := players("a")
	env := envAt(r, start)
	g := NewRealtime(env, cartridge.Config{})
	assert.Empty(t, g.Start(env))
	assert.Len(t, g.Close(env), 1)
}
