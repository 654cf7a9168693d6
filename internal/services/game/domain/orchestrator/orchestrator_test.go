package orchestrator

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/louisbranch/pecking-order/internal/random"
	"github.com/louisbranch/pecking-order/internal/services/game/domain/cartridge"
	"github.com/louisbranch/pecking-order/internal/services/game/domain/cartridge/catalog"
	"github.com/louisbranch/pecking-order/internal/services/game/domain/economy"
	"github.com/louisbranch/pecking-order/internal/services/game/domain/event"
	"github.com/louisbranch/pecking-order/internal/services/game/domain/fact"
	"github.com/louisbranch/pecking-order/internal/services/game/domain/manifest"
	"github.com/louisbranch/pecking-order/internal/services/game/domain/roster"
	"github.com/louisbranch/pecking-order/internal/services/game/domain/social"
)

var t0 = time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

func players() roster.Roster {
	r := roster.Roster{}
	for i, id := range []string{"p1", "p2", "p3", "p4"} {
		r[id] = roster.Player{PersonaName: "Player " + id, Status: roster.StatusAlive, Silver: 10 * (i + 1), RealUserID: "user-" + id}
	}
	return r
}

func manualManifest(days ...manifest.DayConfig) manifest.Manifest {
	return manifest.Manifest{ID: "m1", Scheduling: manifest.SchedulingManual, Days: days}
}

type game struct {
	t   *testing.T
	o   *Orchestrator
	now time.Time
	ids int
}

func options(g *game) Options {
	return Options{
		Registry: catalog.MustNew(),
		Seed:     random.Seed{Hi: 3, Lo: 5},
		NewID: func() string {
			g.ids++
			return fmt.Sprintf("id-%d", g.ids)
		},
	}
}

func newGame(t *testing.T, m manifest.Manifest) *game {
	t.Helper()
	g := &game{t: t, now: t0}
	g.o = New(options(g))
	g.send(event.TypeSystemInit, "", InitPayload{GameID: "g1", InviteCode: "ABCD", Roster: players(), Manifest: m})
	require.Equal(t, StatePreGame, g.o.State())
	return g
}

func (g *game) send(t event.Type, sender string, payload any) []Effect {
	return g.o.Send(event.New(t, sender, g.now, payload))
}

func (g *game) inject(action manifest.Action, payload any) []Effect {
	var raw json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		require.NoError(g.t, err)
		raw = b
	}
	return g.send(event.TypeAdminInjectTimeline, "", InjectPayload{Action: action, Payload: raw})
}

func (g *game) vote(mechanism, action, voter, target string) []Effect {
	t := event.CartridgeType(cartridge.KindVoting.Prefix(), mechanism, action)
	return g.send(t, voter, map[string]string{"targetId": target})
}

func factsOf(effects []Effect, t fact.Type) []EffectFact {
	var out []EffectFact
	for _, e := range effects {
		if f, ok := e.(EffectFact); ok && f.Fact.Type == t {
			out = append(out, f)
		}
	}
	return out
}

func deliveries(effects []Effect) []EffectDeliver {
	var out []EffectDeliver
	for _, e := range effects {
		if d, ok := e.(EffectDeliver); ok {
			out = append(out, d)
		}
	}
	return out
}

func schedules(effects []Effect) []EffectSchedule {
	var out []EffectSchedule
	for _, e := range effects {
		if s, ok := e.(EffectSchedule); ok {
			out = append(out, s)
		}
	}
	return out
}

func TestInitRejectsInvalidPayloads(t *testing.T) {
	tests := map[string]InitPayload{
		"missing game id": {Roster: players(), Manifest: manualManifest(manifest.DayConfig{VoteType: "MAJORITY"})},
		"empty roster":    {GameID: "g1", Manifest: manualManifest(manifest.DayConfig{VoteType: "MAJORITY"})},
		"no days":         {GameID: "g1", Roster: players(), Manifest: manifest.Manifest{}},
	}
	for name, payload := range tests {
		t.Run(name, func(t *testing.T) {
			o := New(Options{Registry: catalog.MustNew()})
			effects := o.Send(event.New(event.TypeSystemInit, "", t0, payload))
			assert.Empty(t, effects)
			assert.Equal(t, StateUninitialized, o.State())
		})
	}
}

func TestInitIgnoresOtherEvents(t *testing.T) {
	o := New(Options{Registry: catalog.MustNew()})
	o.Send(event.New(event.TypeAdminNextStage, "", t0, nil))
	assert.Equal(t, StateUninitialized, o.State())
}

func TestManualGameRunsToWinner(t *testing.T) {
	g := newGame(t, manualManifest(
		manifest.DayConfig{VoteType: "MAJORITY", GameType: manifest.GameTypeNone},
		manifest.DayConfig{VoteType: "FINALS", GameType: manifest.GameTypeNone},
	))

	effects := g.send(event.TypeAdminNextStage, "", nil)
	require.Equal(t, StateRunning, g.o.State())
	assert.Equal(t, 1, g.o.Context().DayIndex)
	assert.Contains(t, effects, Effect(EffectTransition{From: StatePreGame, To: StateMorningBriefing}))
	assert.Contains(t, effects, Effect(EffectTransition{From: StateWaitingForChild, To: StateRunning}))
	assert.Empty(t, schedules(effects), "manual games never schedule wakeups")

	g.inject(manifest.ActionOpenGroupChat, nil)
	effects = g.send(event.TypeSocialSendMsg, "p1", social.MessageRequest{Content: "good morning"})
	chat := factsOf(effects, fact.TypeChatMsg)
	require.Len(t, chat, 1)
	assert.False(t, chat[0].Journal)
	assert.Equal(t, 1, chat[0].DayIndex)

	g.inject(manifest.ActionOpenVoting, nil)
	g.vote("MAJORITY", "CAST", "p1", "p4")
	g.vote("MAJORITY", "CAST", "p2", "p4")
	g.vote("MAJORITY", "CAST", "p3", "p4")
	effects = g.vote("MAJORITY", "CAST", "p4", "p1")
	cast := factsOf(effects, fact.TypeVoteCast)
	require.Len(t, cast, 1)
	assert.True(t, cast[0].Journal)
	require.NotNil(t, g.o.Context().PendingElimination)
	assert.Equal(t, "p4", g.o.Context().PendingElimination.EliminatedID)
	assert.True(t, g.o.Context().Roster.IsAlive("p4"), "elimination waits for the night")

	effects = g.send(event.TypeAdminNextStage, "", nil)
	require.Equal(t, StateNightSummary, g.o.State())
	elim := factsOf(effects, fact.TypeElimination)
	require.Len(t, elim, 1)
	assert.Equal(t, "p4", elim[0].Fact.TargetID)
	assert.False(t, g.o.Context().Roster.IsAlive("p4"))
	assert.Nil(t, g.o.Session())
	assert.NotEmpty(t, g.o.Context().ChatLog, "chat carries into the next day")

	g.send(event.TypeAdminNextStage, "", nil)
	require.Equal(t, StateRunning, g.o.State())
	assert.Equal(t, 2, g.o.Context().DayIndex)
	assert.Len(t, g.o.Session().Social().ChatLog, 1)

	g.inject(manifest.ActionOpenVoting, nil)
	g.vote("FINALS", "CAST", "p4", "p2")
	require.NotNil(t, g.o.Context().PendingElimination)
	assert.Equal(t, "p2", g.o.Context().PendingElimination.WinnerID)

	effects = g.send(event.TypeAdminNextStage, "", nil)
	winner := factsOf(effects, fact.TypeWinnerDeclared)
	require.Len(t, winner, 1)
	assert.Equal(t, "p2", g.o.Context().Winner)

	g.send(event.TypeAdminNextStage, "", nil)
	assert.Equal(t, StateGameSummary, g.o.State())

	g.send(event.TypeAdminNextStage, "", nil)
	assert.Equal(t, StateGameOver, g.o.State())
	assert.Empty(t, g.send(event.TypeAdminNextStage, "", nil))
}

func TestWinnerCollectsGoldPool(t *testing.T) {
	g := newGame(t, manualManifest(manifest.DayConfig{VoteType: "FINALS"}))
	g.send(event.TypeAdminNextStage, "", nil)
	g.o.upward([]event.Event{event.New(event.TypeCartridgeGameResult, cartridge.SystemActor, g.now, cartridge.Result{
		Kind:             cartridge.KindGame,
		Mechanism:        "REALTIME_TRIVIA",
		DayIndex:         1,
		SilverRewards:    map[string]int{"p1": 5},
		GoldContribution: 7,
	})})
	assert.Equal(t, 7, g.o.Context().GoldPool)
	assert.Equal(t, 15, g.o.Context().Roster.Silver("p1"))

	g.o.ctx.PendingElimination = &cartridge.Result{Kind: cartridge.KindVoting, Mechanism: "FINALS", WinnerID: "p3"}
	effects := g.send(event.TypeAdminNextStage, "", nil)
	winner := factsOf(effects, fact.TypeWinnerDeclared)
	require.Len(t, winner, 1)
	payload, err := fact.Decode[fact.WinnerPayload](winner[0].Fact)
	require.NoError(t, err)
	assert.Equal(t, 7, payload.GoldPaid)
	assert.Equal(t, 7, g.o.Context().Roster["p3"].Gold)
	assert.Zero(t, g.o.Context().GoldPool)
}

func TestGameResultCreditsAndSyncsSession(t *testing.T) {
	g := newGame(t, manualManifest(manifest.DayConfig{VoteType: "MAJORITY"}))
	g.send(event.TypeAdminNextStage, "", nil)
	g.o.upward([]event.Event{event.New(event.TypeCartridgeGameResult, cartridge.SystemActor, g.now, cartridge.Result{
		Kind:          cartridge.KindGame,
		Mechanism:     "REALTIME_TRIVIA",
		DayIndex:      1,
		WinnerID:      "p1",
		SilverRewards: map[string]int{"p1": 30},
	})})
	ctx := g.o.Context()
	assert.Equal(t, 40, ctx.Roster.Silver("p1"))
	require.Len(t, ctx.GameHistory, 1)
	require.Len(t, ctx.CompletedPhases, 1)
	assert.Equal(t, "p1", ctx.CompletedPhases[0].WinnerID)

	// The session's roster copy sees the credit: p1 can now afford the spy perk twice.
	g.send(event.TypeSocialUsePerk, "p1", social.PerkRequest{PerkType: string(economy.PerkSpyDMs), TargetID: "p2"})
	effects := g.send(event.TypeSocialUsePerk, "p1", social.PerkRequest{PerkType: string(economy.PerkSpyDMs), TargetID: "p3"})
	got := deliveries(effects)
	require.Len(t, got, 1)
	assert.Equal(t, event.TypePerkActivated, got[0].Event.Type)
}

func TestPlayerGameResultCreditsOnePlayer(t *testing.T) {
	g := newGame(t, manualManifest(manifest.DayConfig{VoteType: "MAJORITY", GameType: "TRIVIA"}))
	g.send(event.TypeAdminNextStage, "", nil)

	g.o.upward([]event.Event{event.New(event.TypeCartridgePlayerGameResult, "p2", g.now, cartridge.PlayerGameResult{
		Mechanism: "TRIVIA",
		DayIndex:  1,
		PlayerID:  "p2",
		Silver:    4,
	})})
	assert.Equal(t, 24, g.o.Context().Roster.Silver("p2"))
	results := factsOf(g.o.effects, fact.TypePlayerGameResult)
	require.Len(t, results, 1)
	assert.Equal(t, "p2", results[0].Fact.ActorID)
	assert.True(t, results[0].Journal)
}

func TestRejectionsAreDeliveredToTheSender(t *testing.T) {
	g := newGame(t, manualManifest(manifest.DayConfig{VoteType: "MAJORITY"}))
	g.send(event.TypeAdminNextStage, "", nil)

	effects := g.send(event.TypeSocialSendSilver, "p1", social.TransferRequest{TargetID: "p2", Amount: 500})
	got := deliveries(effects)
	require.Len(t, got, 1)
	assert.Equal(t, "p1", got[0].PlayerID)
	assert.Equal(t, event.TypeSilverTransferRejected, got[0].Event.Type)
	assert.Equal(t, 10, g.o.Context().Roster.Silver("p1"))

	effects = g.send(event.TypeSocialSendMsg, "p2", social.MessageRequest{Content: "anyone?"})
	got = deliveries(effects)
	require.Len(t, got, 1)
	assert.Equal(t, event.TypeDMRejected, got[0].Event.Type)
}

func TestSpyPerkRequestsDMQuery(t *testing.T) {
	g := newGame(t, manualManifest(manifest.DayConfig{VoteType: "MAJORITY"}))
	g.send(event.TypeAdminNextStage, "", nil)

	effects := g.send(event.TypeSocialUsePerk, "p2", social.PerkRequest{PerkType: string(economy.PerkSpyDMs), TargetID: "p3"})
	var query []EffectQueryDMs
	for _, e := range effects {
		if q, ok := e.(EffectQueryDMs); ok {
			query = append(query, q)
		}
	}
	require.Len(t, query, 1)
	assert.Equal(t, EffectQueryDMs{RequesterID: "p2", TargetID: "p3", Limit: economy.SpyDMsLimit}, query[0])
	assert.Equal(t, 15, g.o.Context().Roster.Silver("p2"))

	activated := deliveries(effects)
	require.Len(t, activated, 1)
	assert.Equal(t, event.TypePerkActivated, activated[0].Event.Type)

	effects = g.send(event.TypePerkResult, "p2", map[string]any{"messages": []string{}})
	got := deliveries(effects)
	require.Len(t, got, 1)
	assert.Equal(t, "p2", got[0].PlayerID)
}

func TestUnknownTimelineActionIsSkipped(t *testing.T) {
	g := newGame(t, manualManifest(manifest.DayConfig{VoteType: "MAJORITY"}))
	g.send(event.TypeAdminNextStage, "", nil)

	effects := g.inject(manifest.Action("DANCE_PARTY"), nil)
	assert.Empty(t, effects)
	assert.Equal(t, StateRunning, g.o.State())
}

func TestLastDayEndsTheGameWithoutWinner(t *testing.T) {
	g := newGame(t, manualManifest(manifest.DayConfig{VoteType: "MAJORITY"}))
	g.send(event.TypeAdminNextStage, "", nil)
	g.send(event.TypeAdminNextStage, "", nil)
	require.Equal(t, StateNightSummary, g.o.State())
	assert.Empty(t, g.o.Context().Winner)

	g.send(event.TypeAdminNextStage, "", nil)
	assert.Equal(t, StateGameSummary, g.o.State())
	assert.Equal(t, 1, g.o.Context().DayIndex)
}

func TestPostGameAllowsChatOnly(t *testing.T) {
	g := newGame(t, manualManifest(manifest.DayConfig{VoteType: "MAJORITY"}))
	g.send(event.TypeAdminNextStage, "", nil)
	g.send(event.TypeAdminNextStage, "", nil)
	g.send(event.TypeAdminNextStage, "", nil)
	require.Equal(t, StateGameSummary, g.o.State())

	effects := g.send(event.TypeSocialSendMsg, "p3", social.MessageRequest{Content: "gg"})
	assert.Len(t, factsOf(effects, fact.TypeChatMsg), 1)

	effects = g.send(event.TypeSocialSendSilver, "p3", social.TransferRequest{TargetID: "p1", Amount: 1})
	got := deliveries(effects)
	require.Len(t, got, 1)
	assert.Equal(t, event.TypeSilverTransferRejected, got[0].Event.Type)
	assert.Equal(t, 30, g.o.Context().Roster.Silver("p3"))

	g.inject(manifest.ActionNarrator, map[string]string{"text": "Thanks for playing"})
	view := g.o.View("p3")
	require.NotEmpty(t, view.ChatLog)
	assert.Equal(t, "Thanks for playing", view.ChatLog[len(view.ChatLog)-1].Content)
}

func timelineManifest() manifest.Manifest {
	at := func(d time.Duration, a manifest.Action) manifest.TimelineEntry {
		return manifest.TimelineEntry{Time: t0.Add(d), Action: a}
	}
	return manifest.Manifest{
		ID:         "m2",
		Scheduling: manifest.SchedulingTimeline,
		Days: []manifest.DayConfig{{
			VoteType: "MAJORITY",
			Timeline: []manifest.TimelineEntry{
				at(time.Hour, manifest.ActionOpenGroupChat),
				at(2*time.Hour, manifest.ActionOpenVoting),
				at(3*time.Hour, manifest.ActionCloseVoting),
				at(4*time.Hour, manifest.ActionEndDay),
			},
		}},
	}
}

func TestTimelineDrivesTheDay(t *testing.T) {
	g := &game{t: t, now: t0}
	g.o = New(options(g))
	effects := g.send(event.TypeSystemInit, "", InitPayload{GameID: "g1", Roster: players(), Manifest: timelineManifest()})
	require.Equal(t, []EffectSchedule{{At: t0.Add(time.Hour)}}, schedules(effects))

	g.now = t0.Add(30 * time.Minute)
	g.send(event.TypeSystemWakeup, "", nil)
	assert.Equal(t, StatePreGame, g.o.State(), "early wakeups are ignored")

	// Within the early tolerance the wakeup still counts.
	g.now = t0.Add(time.Hour - time.Second)
	effects = g.send(event.TypeSystemWakeup, "", nil)
	require.Equal(t, StateRunning, g.o.State())
	assert.True(t, g.o.Session().Social().GroupChatOpen)
	assert.Equal(t, []EffectSchedule{{At: t0.Add(2 * time.Hour)}}, schedules(effects))

	g.now = t0.Add(2 * time.Hour)
	g.send(event.TypeSystemWakeup, "", nil)
	assert.NotNil(t, g.o.Session().Cartridge(cartridge.KindVoting))
	g.vote("MAJORITY", "CAST", "p1", "p2")

	g.now = t0.Add(3 * time.Hour)
	g.send(event.TypeSystemWakeup, "", nil)
	require.NotNil(t, g.o.Context().PendingElimination)
	assert.Equal(t, "p2", g.o.Context().PendingElimination.EliminatedID)

	g.now = t0.Add(4 * time.Hour)
	effects = g.send(event.TypeSystemWakeup, "", nil)
	assert.Equal(t, StateNightSummary, g.o.State())
	assert.Len(t, factsOf(effects, fact.TypeElimination), 1)
	assert.Empty(t, schedules(effects), "no next day to wake for")
	assert.True(t, g.o.Context().NextWakeup.IsZero())
}

func TestRestoreCatchesUpMissedEntries(t *testing.T) {
	g := &game{t: t, now: t0.Add(time.Hour)}
	g.o = New(options(g))
	g.send(event.TypeSystemInit, "", InitPayload{GameID: "g1", Roster: players(), Manifest: timelineManifest()})
	g.send(event.TypeSystemWakeup, "", nil)
	require.Equal(t, StateRunning, g.o.State())

	snap, err := g.o.Snapshot()
	require.NoError(t, err)
	b, err := json.Marshal(snap)
	require.NoError(t, err)
	var decoded Snapshot
	require.NoError(t, json.Unmarshal(b, &decoded))

	restored, status := Restore(decoded, options(g))
	require.Equal(t, RestoreOK, status)
	g.o = restored
	assert.Equal(t, StateRunning, g.o.State())
	assert.True(t, g.o.Session().Social().GroupChatOpen)

	// The host was down through the 2h and 3h entries; both run in order.
	g.now = t0.Add(3*time.Hour + time.Minute)
	g.send(event.TypeSystemWakeup, "", nil)
	assert.Nil(t, g.o.Session().Cartridge(cartridge.KindVoting))
	require.NotNil(t, g.o.Context().PendingElimination)
	assert.Empty(t, g.o.Context().PendingElimination.EliminatedID)
	assert.Equal(t, t0.Add(3*time.Hour), g.o.Context().LastProcessedTime)
	assert.Equal(t, t0.Add(4*time.Hour), g.o.Context().NextWakeup)
}

func TestSnapshotKeepsRandomSequence(t *testing.T) {
	g := newGame(t, manualManifest(manifest.DayConfig{VoteType: "MAJORITY"}))
	g.send(event.TypeAdminNextStage, "", nil)

	snap, err := g.o.Snapshot()
	require.NoError(t, err)
	restored, status := Restore(snap, options(g))
	require.Equal(t, RestoreOK, status)

	for range 5 {
		assert.Equal(t, g.o.rng.Uint64(), restored.rng.Uint64())
	}
}

func TestRestoreResetsCorruptSnapshots(t *testing.T) {
	g := newGame(t, manualManifest(manifest.DayConfig{VoteType: "MAJORITY"}))
	g.send(event.TypeAdminNextStage, "", nil)
	snap, err := g.o.Snapshot()
	require.NoError(t, err)

	tests := map[string]func(s *Snapshot){
		"running without session":  func(s *Snapshot) { s.Session = nil },
		"summary without post-game": func(s *Snapshot) { s.State = StateGameSummary },
		"unknown state":             func(s *Snapshot) { s.State = "limbo" },
		"future version":            func(s *Snapshot) { s.Version = SnapshotVersion + 1 },
	}
	for name, corrupt := range tests {
		t.Run(name, func(t *testing.T) {
			s := snap
			corrupt(&s)
			o, status := Restore(s, options(g))
			assert.Equal(t, RestoreReset, status)
			assert.Equal(t, StateUninitialized, o.State())
		})
	}
}

func TestViewHidesOtherPlayersIdentity(t *testing.T) {
	g := newGame(t, manualManifest(manifest.DayConfig{VoteType: "MAJORITY"}))
	g.send(event.TypeAdminNextStage, "", nil)
	g.inject(manifest.ActionOpenVoting, nil)

	view := g.o.View("p1")
	assert.Equal(t, string(StateRunning), view.State)
	assert.Equal(t, "user-p1", view.Roster["p1"].RealUserID)
	assert.Empty(t, view.Roster["p2"].RealUserID)
	assert.Equal(t, "voting", view.MainStage)
	assert.NotNil(t, view.ActiveVote)
	assert.Nil(t, view.ActiveGame)
}

func TestFinalsWithoutVotersJournalsOneResult(t *testing.T) {
	g := newGame(t, manualManifest(manifest.DayConfig{VoteType: "FINALS", GameType: manifest.GameTypeNone}))
	g.send(event.TypeAdminNextStage, "", nil)

	effects := g.inject(manifest.ActionOpenVoting, nil)
	results := factsOf(effects, fact.TypeVoteResult)
	require.Len(t, results, 1)
	assert.True(t, results[0].Journal)
	payload, err := fact.Decode[fact.ResultPayload](results[0].Fact)
	require.NoError(t, err)
	assert.Equal(t, "p4", payload.WinnerID)
	assert.Equal(t, "HIGHEST_SILVER", payload.Summary["fallback"])

	pending := g.o.Context().PendingElimination
	require.NotNil(t, pending)
	assert.Equal(t, "p4", pending.WinnerID)
	assert.Nil(t, g.o.Session().Cartridge(cartridge.KindVoting))
}

func TestSpyResultReachesRequesterAfterDayEnds(t *testing.T) {
	g := newGame(t, manualManifest(manifest.DayConfig{VoteType: "MAJORITY"}, manifest.DayConfig{VoteType: "MAJORITY"}))
	g.send(event.TypeAdminNextStage, "", nil)
	g.send(event.TypeAdminNextStage, "", nil)
	require.Equal(t, StateNightSummary, g.o.State())

	effects := g.send(event.TypePerkResult, "p1", map[string]any{"targetId": "p3", "messages": []string{}})
	got := deliveries(effects)
	require.Len(t, got, 1)
	assert.Equal(t, "p1", got[0].PlayerID)
	assert.Equal(t, event.TypePerkResult, got[0].Event.Type)
	assert.Equal(t, StateNightSummary, g.o.State())
	assert.Empty(t, schedules(effects))
}

func TestSpyResultReachesRequesterInPostGame(t *testing.T) {
	g := newGame(t, manualManifest(manifest.DayConfig{VoteType: "MAJORITY"}))
	g.send(event.TypeAdminNextStage, "", nil)
	g.send(event.TypeAdminNextStage, "", nil)
	g.send(event.TypeAdminNextStage, "", nil)
	require.Equal(t, StateGameSummary, g.o.State())

	got := deliveries(g.send(event.TypePerkResult, "p2", map[string]any{"messages": []string{}}))
	require.Len(t, got, 1)
	assert.Equal(t, "p2", got[0].PlayerID)
}

func TestSpyResultBeforeInitIsIgnored(t *testing.T) {
	o := New(Options{Registry: catalog.MustNew()})
	assert.Empty(t, o.Send(event.New(event.TypePerkResult, "p1", t0, nil)))
}
