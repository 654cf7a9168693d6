package manifest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize_RejectsEmptyDays(t *testing.T) {
	_, err := Normalize(Manifest{})
	require.ErrorIs(t, err, ErrDaysRequired)
}

func TestNormalize_RejectsUnknownScheduling(t *testing.T) {
	_, err := Normalize(Manifest{Scheduling: "HOURLY", Days: []DayConfig{{}}})
	require.ErrorIs(t, err, ErrInvalidScheduling)
}

func TestNormalize_SortsTimelineAndResolvesAliases(t *testing.T) {
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	input := Manifest{Days: []DayConfig{{
		VoteType: "MAJORITY",
		Timeline: []TimelineEntry{
			{Time: base.Add(2 * time.Hour), Action: ActionOpenVoting},
			{Time: base, Action: ActionOpenGroupChat},
			{Time: base.Add(time.Hour), Action: ActionStartActivity},
			{Time: base, Action: ActionOpenDMs},
		},
	}}}

	got, err := Normalize(input)
	require.NoError(t, err)
	assert.Equal(t, SchedulingTimeline, got.Scheduling)
	assert.Equal(t, 1, got.Days[0].DayIndex)

	actions := make([]Action, 0, 4)
	for _, entry := range got.Days[0].Timeline {
		actions = append(actions, entry.Action)
	}
	assert.Equal(t, []Action{ActionOpenGroupChat, ActionOpenDMs, ActionInjectPrompt, ActionOpenVoting}, actions)
	assert.Equal(t, ActionStartActivity, input.Days[0].Timeline[2].Action, "input must not be mutated")
}

func TestDayAndFirstEntryTime(t *testing.T) {
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	m, err := Normalize(Manifest{Scheduling: SchedulingManual, Days: []DayConfig{
		{Timeline: []TimelineEntry{{Time: base, Action: ActionOpenGroupChat}}},
		{GameType: GameTypeNone},
	}})
	require.NoError(t, err)

	_, ok := m.Day(0)
	assert.False(t, ok)
	day, ok := m.Day(2)
	require.True(t, ok)
	assert.False(t, day.HasGame())

	first, ok := m.FirstEntryTime(1)
	require.True(t, ok)
	assert.Equal(t, base, first)
	_, ok = m.FirstEntryTime(2)
	assert.False(t, ok)
	assert.False(t, m.IsTimeline())
}

func TestActionKnown(t *testing.T) {
	assert.True(t, ActionEndDay.Known())
	assert.True(t, ActionNarrator.Known())
	assert.False(t, Action("DANCE").Known())
}
