// Package manifest defines the immutable per-game configuration: the ordered
// day configs, each with its mechanisms and a sorted timeline of actions.
package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"
)

var (
	// ErrDaysRequired indicates a manifest without any day config.
	ErrDaysRequired = errors.New("manifest days are required")
	// ErrInvalidScheduling indicates an unknown scheduling mode.
	ErrInvalidScheduling = errors.New("manifest scheduling is invalid")
)

// Scheduling selects how the day loop advances.
type Scheduling string

const (
	// SchedulingTimeline advances on wall-clock wakeups derived from timelines.
	SchedulingTimeline Scheduling = "TIMELINE"
	// SchedulingManual advances only on admin commands.
	SchedulingManual Scheduling = "MANUAL"
)

// Action is a timeline action name.
type Action string

const (
	ActionOpenGroupChat  Action = "OPEN_GROUP_CHAT"
	ActionCloseGroupChat Action = "CLOSE_GROUP_CHAT"
	ActionOpenDMs        Action = "OPEN_DMS"
	ActionCloseDMs       Action = "CLOSE_DMS"
	ActionStartGame      Action = "START_GAME"
	ActionEndGame        Action = "END_GAME"
	ActionOpenVoting     Action = "OPEN_VOTING"
	ActionCloseVoting    Action = "CLOSE_VOTING"
	ActionInjectPrompt   Action = "INJECT_PROMPT"
	ActionStartActivity  Action = "START_ACTIVITY"
	ActionEndActivity    Action = "END_ACTIVITY"
	ActionNarrator       Action = "NARRATOR"
	ActionEndDay         Action = "END_DAY"
)

// Known reports whether a is one of the defined actions.
func (a Action) Known() bool {
	switch a {
	case ActionOpenGroupChat, ActionCloseGroupChat, ActionOpenDMs, ActionCloseDMs,
		ActionStartGame, ActionEndGame, ActionOpenVoting, ActionCloseVoting,
		ActionInjectPrompt, ActionStartActivity, ActionEndActivity, ActionNarrator, ActionEndDay:
		return true
	}
	return false
}

// GameTypeNone marks a day without a daily game.
const GameTypeNone = "NONE"

// TimelineEntry schedules one action at an absolute time.
type TimelineEntry struct {
	Time    time.Time       `json:"time"`
	Action  Action          `json:"action"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// DayConfig configures one calendar day of the game.
type DayConfig struct {
	DayIndex            int             `json:"dayIndex"`
	Theme               string          `json:"theme,omitempty"`
	VoteType            string          `json:"voteType"`
	GameType            string          `json:"gameType,omitempty"`
	Timeline            []TimelineEntry `json:"timeline,omitempty"`
	DMCharsPerPlayer    int             `json:"dmCharsPerPlayer,omitempty"`
	DMPartnersPerPlayer int             `json:"dmPartnersPerPlayer,omitempty"`
}

// HasGame reports whether the day declares a daily game.
func (d DayConfig) HasGame() bool {
	return d.GameType != "" && d.GameType != GameTypeNone
}

// Manifest is read-only after init.
type Manifest struct {
	ID         string      `json:"id,omitempty"`
	Scheduling Scheduling  `json:"scheduling"`
	Days       []DayConfig `json:"days"`
}

// Normalize validates m and returns a copy with each timeline sorted by time
// and action aliases resolved. Entries sharing a time keep their order.
func Normalize(m Manifest) (Manifest, error) {
	if len(m.Days) == 0 {
		return Manifest{}, ErrDaysRequired
	}
	switch m.Scheduling {
	case "":
		m.Scheduling = SchedulingTimeline
	case SchedulingTimeline, SchedulingManual:
	default:
		return Manifest{}, fmt.Errorf("%w: %q", ErrInvalidScheduling, m.Scheduling)
	}

	days := make([]DayConfig, len(m.Days))
	for i, day := range m.Days {
		if day.DayIndex == 0 {
			day.DayIndex = i + 1
		}
		timeline := make([]TimelineEntry, len(day.Timeline))
		copy(timeline, day.Timeline)
		for j := range timeline {
			if timeline[j].Action == ActionStartActivity {
				timeline[j].Action = ActionInjectPrompt
			}
		}
		sort.SliceStable(timeline, func(a, b int) bool {
			return timeline[a].Time.Before(timeline[b].Time)
		})
		day.Timeline = timeline
		days[i] = day
	}
	m.Days = days
	return m, nil
}

// Day returns the config for a 1-based day index.
func (m Manifest) Day(dayIndex int) (DayConfig, bool) {
	if dayIndex < 1 || dayIndex > len(m.Days) {
		return DayConfig{}, false
	}
	return m.Days[dayIndex-1], true
}

// FirstEntryTime returns the time of the first timeline entry of a day.
func (m Manifest) FirstEntryTime(dayIndex int) (time.Time, bool) {
	day, ok := m.Day(dayIndex)
	if !ok || len(day.Timeline) == 0 {
		return time.Time{}, false
	}
	return day.Timeline[0].Time, true
}

// IsTimeline reports whether the manifest advances on wall-clock wakeups.
func (m Manifest) IsTimeline() bool {
	return m.Scheduling != SchedulingManual
}
