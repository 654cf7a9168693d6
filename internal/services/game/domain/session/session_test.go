package session

import (
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/louisbranch/pecking-order/internal/services/game/domain/cartridge"
	"github.com/louisbranch/pecking-order/internal/services/game/domain/cartridge/catalog"
	"github.com/louisbranch/pecking-order/internal/services/game/domain/cartridge/games"
	"github.com/louisbranch/pecking-order/internal/services/game/domain/decision"
	"github.com/louisbranch/pecking-order/internal/services/game/domain/event"
	"github.com/louisbranch/pecking-order/internal/services/game/domain/fact"
	"github.com/louisbranch/pecking-order/internal/services/game/domain/manifest"
	"github.com/louisbranch/pecking-order/internal/services/game/domain/roster"
	"github.com/louisbranch/pecking-order/internal/services/game/domain/social"
)

var dayStart = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func fivePlayers() roster.Roster {
	r := roster.Roster{}
	for i, id := range []string{"p1", "p2", "p3", "p4", "p5"} {
		r[id] = roster.Player{PersonaName: id, Status: roster.StatusAlive, Silver: 10 + i*10}
	}
	return r
}

// tableTalk closes its game DM when the game ends.
type tableTalk struct {
	Mech    string `json:"mechanism"`
	Members []string
	Over    bool
}

func (g *tableTalk) Kind() cartridge.Kind                            { return cartridge.KindGame }
func (g *tableTalk) Mechanism() string                               { return g.Mech }
func (g *tableTalk) Handle(cartridge.Env, event.Event) []event.Event { return nil }
func (g *tableTalk) Advance(cartridge.Env) []event.Event             { return nil }
func (g *tableTalk) Done() bool                                      { return g.Over }
func (g *tableTalk) Deadline() time.Time                             { return time.Time{} }
func (g *tableTalk) Project(string) any                              { return nil }
func (g *tableTalk) Result() *cartridge.Result {
	if !g.Over {
		return nil
	}
	return &cartridge.Result{Kind: cartridge.KindGame, Mechanism: g.Mech}
}
func (g *tableTalk) Close(env cartridge.Env) []event.Event {
	g.Over = true
	return []event.Event{cartridge.CloseGameDM(env, "game:table")}
}

type harness struct {
	s   *Session
	now time.Time
	rng *rand.Rand
	ids int
}

func newHarness(t *testing.T, day manifest.DayConfig) *harness {
	t.Helper()
	reg := catalog.MustNew()
	require.NoError(t, reg.Register(cartridge.Entry{
		Kind:      cartridge.KindGame,
		Mechanism: "TABLE_TALK",
		New: func(env cartridge.Env, cfg cartridge.Config) cartridge.Actor {
			return &tableTalk{Mech: cfg.Mechanism, Members: env.Roster.Alive()}
		},
		Blank: func() cartridge.Actor { return &tableTalk{} },
	}))
	h := &harness{now: dayStart, rng: rand.New(rand.NewPCG(7, 11))}
	h.s = New(Input{DayIndex: day.DayIndex, Roster: fivePlayers(), Day: day}, dayStart, h.options(reg))
	return h
}

func (h *harness) options(reg *cartridge.Registry) Options {
	return Options{Registry: reg, NewID: func() string {
		h.ids++
		return fmt.Sprintf("id-%d", h.ids)
	}}
}

func (h *harness) send(t event.Type, sender string, payload any) []event.Event {
	return h.s.Send(Env{Now: h.now, Rand: h.rng}, event.New(t, sender, h.now, payload))
}

func ofType(events []event.Event, t event.Type) []event.Event {
	var out []event.Event
	for _, e := range events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

func majorityDay() manifest.DayConfig {
	return manifest.DayConfig{DayIndex: 1, VoteType: "MAJORITY", GameType: "REALTIME_TRIVIA"}
}

func TestInjectPromptFromEveryMainStageSubState(t *testing.T) {
	setups := map[Stage]func(h *harness){
		StageGroupChat: func(*harness) {},
		StageDailyGame: func(h *harness) { h.send(event.TypeInternalStartGame, "", nil) },
		StageVoting:    func(h *harness) { h.send(event.TypeInternalOpenVoting, "", nil) },
	}
	for stage, setup := range setups {
		t.Run(string(stage), func(t *testing.T) {
			h := newHarness(t, majorityDay())
			setup(h)
			require.Equal(t, stage, h.s.Stage())

			h.send(event.TypeInternalInjectPrompt, "", PromptPayload{PromptType: "HOT_TAKE", PromptText: "Pineapple belongs on pizza"})
			prompt := h.s.Cartridge(cartridge.KindPrompt)
			require.NotNil(t, prompt)
			assert.Equal(t, "HOT_TAKE", prompt.Mechanism())
			assert.Equal(t, stage, h.s.Stage(), "main stage is untouched")

			out := h.send(event.CartridgeType(event.PrefixActivity, "HOT_TAKE", "SUBMIT"), "p1", map[string]int{"optionIndex": 0})
			assert.Len(t, ofType(out, event.TypeFactRecord), 1)
		})
	}
}

func TestVotingRoundTripsToGroupChat(t *testing.T) {
	h := newHarness(t, majorityDay())
	h.send(event.TypeInternalOpenVoting, "", nil)
	require.Equal(t, StageVoting, h.s.Stage())

	cast := event.CartridgeType(event.PrefixVote, "MAJORITY", "CAST")
	for voter, target := range map[string]string{"p1": "p5", "p2": "p5", "p3": "p5", "p4": "p1", "p5": "p1"} {
		h.send(cast, voter, map[string]string{"targetId": target})
	}
	// Everyone voted, so the ballot resolved without a close signal.
	assert.Equal(t, StageGroupChat, h.s.Stage())
	assert.Nil(t, h.s.Cartridge(cartridge.KindVoting))
}

func TestCloseVotingRelaysResult(t *testing.T) {
	h := newHarness(t, majorityDay())
	h.send(event.TypeInternalOpenVoting, "", nil)
	cast := event.CartridgeType(event.PrefixVote, "MAJORITY", "CAST")
	h.send(cast, "p1", map[string]string{"targetId": "p2"})

	out := h.send(event.TypeInternalCloseVoting, "", nil)
	results := ofType(out, event.TypeCartridgeVoteResult)
	require.Len(t, results, 1)
	res, err := event.Decode[cartridge.Result](results[0])
	require.NoError(t, err)
	assert.Equal(t, "p2", res.EliminatedID)
	assert.Equal(t, StageGroupChat, h.s.Stage())
}

func TestUnknownMechanismFallsBackToDefault(t *testing.T) {
	day := majorityDay()
	day.VoteType = "THUNDERDOME"
	h := newHarness(t, day)
	h.send(event.TypeInternalOpenVoting, "", nil)
	v := h.s.Cartridge(cartridge.KindVoting)
	require.NotNil(t, v)
	assert.Equal(t, "MAJORITY", v.Mechanism())

	h.send(event.TypeInternalInjectPrompt, "", PromptPayload{PromptType: "KARAOKE"})
	assert.Equal(t, "PLAYER_PICK", h.s.Cartridge(cartridge.KindPrompt).Mechanism())
}

func TestMechanismPayloadOverridesDayConfig(t *testing.T) {
	h := newHarness(t, majorityDay())
	h.send(event.TypeInternalOpenVoting, "", MechanismPayload{Mechanism: "SHIELD"})
	assert.Equal(t, "SHIELD", h.s.Cartridge(cartridge.KindVoting).Mechanism())
}

func TestMainStageIsExclusive(t *testing.T) {
	h := newHarness(t, majorityDay())
	h.send(event.TypeInternalStartGame, "", nil)
	h.send(event.TypeInternalOpenVoting, "", nil)
	assert.Equal(t, StageDailyGame, h.s.Stage())
	assert.Nil(t, h.s.Cartridge(cartridge.KindVoting))
}

func TestStartGameWithoutGameIsIgnored(t *testing.T) {
	day := majorityDay()
	day.GameType = manifest.GameTypeNone
	h := newHarness(t, day)
	assert.Empty(t, h.send(event.TypeInternalStartGame, "", nil))
	assert.Equal(t, StageGroupChat, h.s.Stage())
}

func TestCartridgeEventWithoutCartridgeIsDropped(t *testing.T) {
	h := newHarness(t, majorityDay())
	out := h.send(event.CartridgeType(event.PrefixVote, "MAJORITY", "CAST"), "p1", map[string]string{"targetId": "p2"})
	assert.Empty(t, out)
}

func TestTickDrivesGameTimers(t *testing.T) {
	h := newHarness(t, majorityDay())
	h.send(event.TypeInternalStartGame, "", nil)
	require.Equal(t, dayStart.Add(15*time.Second), h.s.Deadline())

	h.now = dayStart.Add(10 * time.Minute)
	out := h.send(event.TypeInternalTick, "", nil)
	assert.Len(t, ofType(out, event.TypeCartridgeGameResult), 1)
	assert.Equal(t, StageGroupChat, h.s.Stage())
	assert.True(t, h.s.Deadline().IsZero())
}

func TestSocialRequests(t *testing.T) {
	h := newHarness(t, majorityDay())

	out := h.send(event.TypeSocialSendMsg, "p1", social.MessageRequest{TargetID: "p2", Content: "hi"})
	require.Len(t, out, 1)
	assert.Equal(t, event.TypeDMRejected, out[0].Type)
	assert.Equal(t, "p1", out[0].SenderID)
	rej, err := event.Decode[decision.RejectionPayload](out[0])
	require.NoError(t, err)
	assert.Equal(t, social.ReasonDMsClosed, rej.Reason)

	h.send(event.TypeInternalOpenDMs, "", nil)
	h.send(event.TypeInternalOpenGroupChat, "", nil)
	out = h.send(event.TypeSocialSendMsg, "p1", social.MessageRequest{TargetID: "p2", Content: "hi"})
	assert.Len(t, ofType(out, event.TypeFactRecord), 2)
	assert.Equal(t, 9, h.s.roster.Silver("p1"), "session roster copy follows its own facts")

	out = h.send(event.TypeSocialSendSilver, "p1", social.TransferRequest{TargetID: "p2", Amount: 100})
	require.Len(t, out, 1)
	assert.Equal(t, event.TypeSilverTransferRejected, out[0].Type)

	out = h.s.Send(Env{Now: h.now, Rand: h.rng}, event.Event{Type: event.TypeSocialUsePerk, SenderID: "p1", Timestamp: h.now})
	require.Len(t, out, 1)
	assert.Equal(t, event.TypePerkRejected, out[0].Type)

	out = h.s.Send(Env{Now: h.now, Rand: h.rng}, event.Event{Type: event.TypeSocialCreateChannel, SenderID: "p1", Timestamp: h.now, PayloadJSON: []byte(`{"memberIds":7}`)})
	require.Len(t, out, 1)
	assert.Equal(t, event.TypeChannelRejected, out[0].Type)
}

func TestNarratorAppendsSystemMessage(t *testing.T) {
	h := newHarness(t, majorityDay())
	h.send(event.TypeInternalNarrator, "", NarratorPayload{Text: "The night is dark"})
	log := h.s.ChatLog()
	require.Len(t, log, 1)
	assert.Equal(t, social.SystemSender, log[0].SenderID)
	assert.Equal(t, social.MainChannelID, log[0].ChannelID)
}

func TestRosterSyncReplacesCopy(t *testing.T) {
	h := newHarness(t, majorityDay())
	r := fivePlayers()
	p := r["p3"]
	p.Status = roster.StatusEliminated
	r["p3"] = p
	h.send(event.TypeInternalRosterSync, "", RosterSyncPayload{Roster: r})

	h.send(event.TypeInternalOpenVoting, "", nil)
	out := h.send(event.CartridgeType(event.PrefixVote, "MAJORITY", "CAST"), "p3", map[string]string{"targetId": "p1"})
	assert.Len(t, ofType(out, event.TypeCartridgeRejected), 1)
}

func TestGameDMLifecycle(t *testing.T) {
	h := newHarness(t, majorityDay())
	h.s.settle(Env{Now: h.now}, cartridge.KindGame, []event.Event{
		cartridge.OpenGameDM(cartridge.Env{Now: h.now}, "game:table", []string{"p1", "p2"}),
	})
	require.Contains(t, h.s.Social().Channels, "game:table")

	h.send(event.TypeInternalStartGame, "", MechanismPayload{Mechanism: "TABLE_TALK"})
	out := h.send(event.TypeSocialSendMsg, "p1", social.MessageRequest{ChannelID: "game:table", Content: "gg"})
	assert.Len(t, ofType(out, event.TypeFactRecord), 1, "game DMs ignore the DMs-open flag")

	out = h.send(event.TypeInternalEndGame, "", nil)
	assert.Len(t, ofType(out, event.TypeCartridgeGameResult), 1)
	assert.Empty(t, ofType(out, event.TypeChannelGameDMClose), "channel requests stay inside the session")
	assert.NotContains(t, h.s.Social().Channels, "game:table")
}

func TestEndDayFlushesCartridges(t *testing.T) {
	h := newHarness(t, majorityDay())
	h.send(event.TypeInternalOpenVoting, "", nil)
	h.send(event.TypeInternalInjectPrompt, "", PromptPayload{PromptType: "CONFESSION"})
	h.send(event.CartridgeType(event.PrefixVote, "MAJORITY", "CAST"), "p1", map[string]string{"targetId": "p4"})

	out := h.send(event.TypeInternalEndDay, "", EndDayPayload{Reason: "manual"})
	assert.Len(t, ofType(out, event.TypeCartridgeVoteResult), 1)
	assert.Len(t, ofType(out, event.TypeCartridgePromptResult), 1)
	assert.True(t, h.s.Done())
	assert.Equal(t, "manual", h.s.EndReason())
	assert.Nil(t, h.s.Cartridge(cartridge.KindVoting))

	assert.Empty(t, h.send(event.TypeInternalNarrator, "", NarratorPayload{Text: "late"}))
	assert.Empty(t, h.s.ChatLog())
}

func TestSnapshotRoundTrip(t *testing.T) {
	h := newHarness(t, majorityDay())
	h.send(event.TypeInternalOpenDMs, "", nil)
	h.send(event.TypeInternalOpenVoting, "", nil)
	h.send(event.CartridgeType(event.PrefixVote, "MAJORITY", "CAST"), "p1", map[string]string{"targetId": "p4"})
	h.send(event.TypeSocialSendMsg, "p2", social.MessageRequest{TargetID: "p3", Content: "alliance?"})

	snap, err := h.s.Snapshot()
	require.NoError(t, err)
	data, err := json.Marshal(snap)
	require.NoError(t, err)
	var decoded Snapshot
	require.NoError(t, json.Unmarshal(data, &decoded))

	restored := Restore(decoded, h.options(catalog.MustNew()))
	assert.Equal(t, StageVoting, restored.Stage())
	assert.Equal(t, h.s.Social().Usage, restored.Social().Usage)
	assert.Equal(t, h.s.roster, restored.roster)

	h.s = restored
	out := h.send(event.TypeInternalCloseVoting, "", nil)
	results := ofType(out, event.TypeCartridgeVoteResult)
	require.Len(t, results, 1)
	res, err := event.Decode[cartridge.Result](results[0])
	require.NoError(t, err)
	assert.Equal(t, "p4", res.EliminatedID)
}

func TestRestoreDropsUnknownCartridge(t *testing.T) {
	h := newHarness(t, majorityDay())
	h.send(event.TypeInternalStartGame, "", MechanismPayload{Mechanism: "TABLE_TALK"})
	snap, err := h.s.Snapshot()
	require.NoError(t, err)

	restored := Restore(snap, h.options(catalog.MustNew()))
	assert.Nil(t, restored.Cartridge(cartridge.KindGame))
	assert.Equal(t, StageGroupChat, restored.Stage())
}

func TestTriviaTableTalkLivesWithTheGame(t *testing.T) {
	h := newHarness(t, majorityDay())
	out := h.send(event.TypeInternalStartGame, "", nil)
	assert.Empty(t, ofType(out, event.TypeChannelGameDMOpen), "channel requests stay inside the session")
	table := games.TableChannelID(1)
	require.Contains(t, h.s.Social().Channels, table)
	assert.Equal(t, social.ChannelGameDM, h.s.Social().Channels[table].Type)

	out = h.send(event.TypeSocialSendMsg, "p2", social.MessageRequest{ChannelID: table, Content: "easy one"})
	assert.Len(t, ofType(out, event.TypeFactRecord), 1)

	h.send(event.TypeInternalEndGame, "", nil)
	assert.NotContains(t, h.s.Social().Channels, table)
}

func TestFinalsWithoutVotersResolvesOnOpen(t *testing.T) {
	day := majorityDay()
	day.VoteType = "FINALS"
	h := newHarness(t, day)

	out := h.send(event.TypeInternalOpenVoting, "", nil)
	var results []fact.Fact
	for _, evt := range ofType(out, event.TypeFactRecord) {
		f, err := fact.FromEvent(evt)
		require.NoError(t, err)
		if f.Type == fact.TypeVoteResult {
			results = append(results, f)
		}
	}
	require.Len(t, results, 1)
	assert.Equal(t, "p5", results[0].TargetID)
	assert.Len(t, ofType(out, event.TypeCartridgeVoteResult), 1)
	assert.Nil(t, h.s.Cartridge(cartridge.KindVoting))
	assert.Equal(t, StageGroupChat, h.s.Stage())
}
