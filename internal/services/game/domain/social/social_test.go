package social

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/louisbranch/pecking-order/internal/services/game/domain/decision"
	"github.com/louisbranch/pecking-order/internal/services/game/domain/economy"
	"github.com/louisbranch/pecking-order/internal/services/game/domain/event"
	"github.com/louisbranch/pecking-order/internal/services/game/domain/fact"
	"github.com/louisbranch/pecking-order/internal/services/game/domain/roster"
)

var now = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func testRoster() roster.Roster {
	return roster.Roster{
		"a": {PersonaName: "Ada", Status: roster.StatusAlive, Silver: 10},
		"b": {PersonaName: "Bo", Status: roster.StatusAlive, Silver: 10},
		"c": {PersonaName: "Cy", Status: roster.StatusAlive, Silver: 10},
		"d": {PersonaName: "Di", Status: roster.StatusAlive, Silver: 0},
		"e": {PersonaName: "Ed", Status: roster.StatusAlive, Silver: 10},
		"x": {PersonaName: "Ex", Status: roster.StatusEliminated, Silver: 10},
	}
}

func testEnv(r roster.Roster) Env {
	n := 0
	return Env{Now: now, Roster: r, NewID: func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}}
}

func openState() *State {
	s := NewState(DefaultLimits(0, 0), nil, now)
	s.GroupChatOpen = true
	s.DMsOpen = true
	return s
}

// accept applies an accepted decision to state and roster the way the
// session and orchestrator do.
func accept(t *testing.T, s *State, r roster.Roster, d decision.Decision) roster.Roster {
	t.Helper()
	require.False(t, d.Rejected(), "unexpected rejection %s", d.Reason())
	for _, evt := range d.Events {
		if evt.Type != event.TypeFactRecord {
			continue
		}
		f, err := fact.FromEvent(evt)
		require.NoError(t, err)
		s.Apply(f)
		r = economy.Apply(r, f)
	}
	return r
}

func TestMessage_ScenarioB_DMsClosed(t *testing.T) {
	s := openState()
	s.DMsOpen = false
	r := testRoster()

	d := DecideMessage(s, testEnv(r), "a", MessageRequest{TargetID: "b", Content: "psst"})
	assert.Equal(t, ReasonDMsClosed, d.Reason())
	assert.Empty(t, d.Events)
	assert.Empty(t, s.ChatLog)
	assert.Equal(t, testRoster(), r)
	assert.Empty(t, s.Usage)
}

func TestMessage_MainChat(t *testing.T) {
	s := openState()
	r := testRoster()
	r = accept(t, s, r, DecideMessage(s, testEnv(r), "a", MessageRequest{Content: " hello "}))

	require.Len(t, s.ChatLog, 1)
	assert.Equal(t, "hello", s.ChatLog[0].Content)
	assert.Equal(t, MainChannelID, s.ChatLog[0].ChannelID)
	assert.Equal(t, 10, r["a"].Silver, "MAIN chat is free")

	s.GroupChatOpen = false
	assert.Equal(t, ReasonGroupChatClosed, DecideMessage(s, testEnv(r), "a", MessageRequest{Content: "hi"}).Reason())
}

func TestMessage_DMLazilyCreatesChannelAndCharges(t *testing.T) {
	s := openState()
	r := testRoster()
	d := DecideMessage(s, testEnv(r), "b", MessageRequest{TargetID: "a", Content: "hey"})
	require.Len(t, d.Events, 2)
	r = accept(t, s, r, d)

	ch, ok := s.Channels["dm:a:b"]
	require.True(t, ok)
	assert.Equal(t, ChannelDM, ch.Type)
	assert.Equal(t, 9, r["b"].Silver)
	assert.Equal(t, 3, s.Usage["b"].CharsUsed)
	assert.Equal(t, []string{"a"}, s.Usage["b"].Partners)
	assert.Zero(t, s.Usage["b"].GroupsCreated)

	d = DecideMessage(s, testEnv(r), "b", MessageRequest{ChannelID: "dm:a:b", Content: "again"})
	assert.Len(t, d.Events, 1, "existing channel is reused")
}

func TestMessage_Rejections(t *testing.T) {
	r := testRoster()
	cases := map[string]struct {
		sender string
		req    MessageRequest
		want   string
	}{
		"empty":             {"a", MessageRequest{Content: "   "}, ReasonEmptyMessage},
		"too long":          {"a", MessageRequest{Content: strings.Repeat("é", 281)}, ReasonMessageTooLong},
		"sender eliminated": {"x", MessageRequest{Content: "hi"}, ReasonSenderEliminated},
		"self dm":           {"a", MessageRequest{TargetID: "a", Content: "hi"}, ReasonSelfDM},
		"unknown target":    {"a", MessageRequest{TargetID: "ghost", Content: "hi"}, ReasonTargetNotFound},
		"target eliminated": {"a", MessageRequest{TargetID: "x", Content: "hi"}, ReasonTargetEliminated},
		"no fee":            {"d", MessageRequest{TargetID: "a", Content: "hi"}, ReasonInsufficient},
		"unknown channel":   {"a", MessageRequest{ChannelID: "nope", Content: "hi"}, ReasonChannelNotFound},
		"no lazy group":     {"a", MessageRequest{MemberIDs: []string{"b", "c"}, Content: "hi"}, ReasonChannelNotFound},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			s := openState()
			d := DecideMessage(s, testEnv(r), tc.sender, tc.req)
			assert.Equal(t, tc.want, d.Reason())
			assert.Empty(t, s.ChatLog)
		})
	}
}

func TestMessage_PartnerLimitAndPerk(t *testing.T) {
	s := openState()
	r := testRoster()
	for _, target := range []string{"b", "c", "d"} {
		r = accept(t, s, r, DecideMessage(s, testEnv(r), "a", MessageRequest{TargetID: target, Content: "hi"}))
	}
	assert.Equal(t, ReasonPartnerLimit, DecideMessage(s, testEnv(r), "a", MessageRequest{TargetID: "e", Content: "hi"}).Reason())
	// Existing partners stay reachable.
	assert.False(t, DecideMessage(s, testEnv(r), "a", MessageRequest{TargetID: "b", Content: "hi"}).Rejected())

	r = accept(t, s, r, DecidePerk(testEnv(r), "a", PerkRequest{PerkType: string(economy.PerkExtraDMPartner)}))
	assert.Equal(t, 4, s.PartnerLimit("a"))
	assert.False(t, DecideMessage(s, testEnv(r), "a", MessageRequest{TargetID: "e", Content: "hi"}).Rejected())
}

func TestMessage_CharLimit(t *testing.T) {
	s := NewState(DefaultLimits(10, 0), nil, now)
	s.DMsOpen = true
	r := testRoster()
	r = accept(t, s, r, DecideMessage(s, testEnv(r), "a", MessageRequest{TargetID: "b", Content: "12345678"}))
	assert.Equal(t, ReasonCharLimit, DecideMessage(s, testEnv(r), "a", MessageRequest{TargetID: "b", Content: "123"}).Reason())

	accept(t, s, r, DecidePerk(testEnv(r), "a", PerkRequest{PerkType: string(economy.PerkExtraDMChars)}))
	assert.Equal(t, 610, s.CharLimit("a"))
}

func TestTransfer(t *testing.T) {
	r := testRoster()
	cases := map[string]struct {
		sender string
		req    TransferRequest
		want   string
	}{
		"self":              {"a", TransferRequest{TargetID: "a", Amount: 1}, ReasonSelfTransfer},
		"zero":              {"a", TransferRequest{TargetID: "b", Amount: 0}, ReasonInvalidAmount},
		"unknown":           {"a", TransferRequest{TargetID: "ghost", Amount: 1}, ReasonTargetNotFound},
		"target eliminated": {"a", TransferRequest{TargetID: "x", Amount: 1}, ReasonTargetEliminated},
		"sender eliminated": {"x", TransferRequest{TargetID: "a", Amount: 1}, ReasonSenderEliminated},
		"overdraw":          {"a", TransferRequest{TargetID: "b", Amount: 11}, ReasonInsufficient},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, DecideTransfer(testEnv(r), tc.sender, tc.req).Reason())
		})
	}

	s := openState()
	after := accept(t, s, r, DecideTransfer(testEnv(r), "a", TransferRequest{TargetID: "b", Amount: 4}))
	assert.Equal(t, 6, after["a"].Silver)
	assert.Equal(t, 14, after["b"].Silver)
	assert.Equal(t, r.TotalSilver(), after.TotalSilver())
}

func TestPerk_ScenarioE_InsufficientSilver(t *testing.T) {
	s := openState()
	r := testRoster()
	d := DecidePerk(testEnv(r), "d", PerkRequest{PerkType: string(economy.PerkExtraDMPartner)})
	assert.Equal(t, ReasonInsufficient, d.Reason())
	assert.Empty(t, d.Events)
	assert.Empty(t, s.Perks)
}

func TestPerk_SpyRaisesQuery(t *testing.T) {
	r := testRoster()
	d := DecidePerk(testEnv(r), "a", PerkRequest{PerkType: string(economy.PerkSpyDMs), TargetID: "b"})
	require.False(t, d.Rejected())
	require.Len(t, d.Events, 3)
	assert.Equal(t, event.TypePerkActivated, d.Events[1].Type)
	q, err := event.Decode[QueryDMs](d.Events[2])
	require.NoError(t, err)
	assert.Equal(t, QueryDMs{RequesterID: "a", TargetID: "b", Limit: 3}, q)

	assert.Equal(t, ReasonInvalidPerk, DecidePerk(testEnv(r), "a", PerkRequest{PerkType: "TELEPORT"}).Reason())
	assert.Equal(t, ReasonTargetNotFound, DecidePerk(testEnv(r), "a", PerkRequest{PerkType: string(economy.PerkSpyDMs)}).Reason())
	assert.Equal(t, ReasonTargetEliminated, DecidePerk(testEnv(r), "a", PerkRequest{PerkType: string(economy.PerkSpyDMs), TargetID: "x"}).Reason())
}

func TestCreateChannel(t *testing.T) {
	s := openState()
	r := testRoster()

	assert.Equal(t, ReasonInvalidMembers, DecideCreateChannel(s, testEnv(r), "a", ChannelRequest{MemberIDs: []string{"b"}}).Reason())
	assert.Equal(t, ReasonInvalidMembers, DecideCreateChannel(s, testEnv(r), "a", ChannelRequest{MemberIDs: []string{"b", "x"}}).Reason())

	r = accept(t, s, r, DecideCreateChannel(s, testEnv(r), "a", ChannelRequest{MemberIDs: []string{"b", "c"}}))
	assert.Equal(t, 1, s.Usage["a"].GroupsCreated)
	assert.Equal(t, ReasonInvalidMembers, DecideCreateChannel(s, testEnv(r), "a", ChannelRequest{MemberIDs: []string{"c", "b"}}).Reason())

	d := DecideMessage(s, testEnv(r), "a", MessageRequest{MemberIDs: []string{"c", "b"}, Content: "team"})
	require.False(t, d.Rejected())
	r = accept(t, s, r, d)
	assert.Equal(t, 9, r["a"].Silver)
	assert.Empty(t, s.VisibleLog("e"))
	assert.Len(t, s.VisibleLog("b"), 1)

	accept(t, s, r, DecideCreateChannel(s, testEnv(r), "a", ChannelRequest{MemberIDs: []string{"b", "d"}}))
	accept(t, s, r, DecideCreateChannel(s, testEnv(r), "a", ChannelRequest{MemberIDs: []string{"b", "e"}}))
	assert.Equal(t, ReasonGroupLimit, DecideCreateChannel(s, testEnv(r), "a", ChannelRequest{MemberIDs: []string{"c", "d"}}).Reason())

	s.DMsOpen = false
	assert.Equal(t, ReasonDMsClosed, DecideCreateChannel(s, testEnv(r), "b", ChannelRequest{MemberIDs: []string{"c", "d"}}).Reason())
}

func TestGameDMIsExempt(t *testing.T) {
	s := openState()
	s.DMsOpen = false
	s.OpenGameDM("game:1", []string{"a", "b"}, now)
	r := testRoster()

	r = accept(t, s, r, DecideMessage(s, testEnv(r), "a", MessageRequest{ChannelID: "game:1", Content: "ours"}))
	assert.Equal(t, 10, r["a"].Silver)
	assert.Zero(t, s.Usage["a"].CharsUsed)

	s.CloseGameDM("game:1")
	assert.Empty(t, s.VisibleLog("a"))
	s.CloseGameDM(MainChannelID)
	assert.Contains(t, s.Channels, MainChannelID)
}

func TestChatLogIsRingBuffered(t *testing.T) {
	s := openState()
	for i := 0; i < MaxChatLog+5; i++ {
		s.AppendSystemMessage(fmt.Sprintf("m%d", i), "line", now)
	}
	require.Len(t, s.ChatLog, MaxChatLog)
	assert.Equal(t, "m5", s.ChatLog[0].ID)
	assert.Len(t, s.MainLog(), MaxChatLog)
}

func TestStatsAndVisibleChannels(t *testing.T) {
	s := openState()
	r := testRoster()
	accept(t, s, r, DecideMessage(s, testEnv(r), "a", MessageRequest{TargetID: "b", Content: "hey"}))

	assert.Equal(t, DMStats{CharsUsed: 3, CharsLimit: 1200, PartnersUsed: 1, PartnersLimit: 3, GroupsLimit: 3}, s.Stats("a"))
	chans := s.VisibleChannels("a")
	require.Len(t, chans, 2)
	assert.Equal(t, MainChannelID, chans[0].ID)
	assert.Len(t, s.VisibleChannels("c"), 1)
}
