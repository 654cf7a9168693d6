package orchestrator

import (
	"encoding/json"
	"time"

	"github.com/louisbranch/pecking-order/internal/services/game/domain/event"
	"github.com/louisbranch/pecking-order/internal/services/game/domain/manifest"
	"github.com/louisbranch/pecking-order/internal/services/game/domain/schedule"
)

// actionEvents maps timeline actions to the internal signals raised for the
// Daily Session. END_DAY is handled by the orchestrator itself.
var actionEvents = map[manifest.Action]event.Type{
	manifest.ActionOpenGroupChat:  event.TypeInternalOpenGroupChat,
	manifest.ActionCloseGroupChat: event.TypeInternalCloseGroupChat,
	manifest.ActionOpenDMs:        event.TypeInternalOpenDMs,
	manifest.ActionCloseDMs:       event.TypeInternalCloseDMs,
	manifest.ActionStartGame:      event.TypeInternalStartGame,
	manifest.ActionEndGame:        event.TypeInternalEndGame,
	manifest.ActionOpenVoting:     event.TypeInternalOpenVoting,
	manifest.ActionCloseVoting:    event.TypeInternalCloseVoting,
	manifest.ActionInjectPrompt:   event.TypeInternalInjectPrompt,
	manifest.ActionStartActivity:  event.TypeInternalInjectPrompt,
	manifest.ActionEndActivity:    event.TypeInternalEndActivity,
	manifest.ActionNarrator:       event.TypeInternalNarrator,
}

// runTimeline raises every entry of the current day that is due, advancing
// the high-water mark past each one raised.
func (o *Orchestrator) runTimeline() {
	day, ok := o.ctx.Manifest.Day(o.ctx.DayIndex)
	if !ok {
		return
	}
	for _, entry := range schedule.Due(day.Timeline, o.ctx.LastProcessedTime, o.now, o.window) {
		if o.state != StateRunning {
			break
		}
		o.ctx.LastProcessedTime = schedule.HighWater(o.ctx.LastProcessedTime, []manifest.TimelineEntry{entry})
		o.raise(entry.Action, entry.Payload, "TIMELINE")
	}
}

// raise performs one timeline action. Unknown actions are logged and skipped.
func (o *Orchestrator) raise(action manifest.Action, payload json.RawMessage, source string) {
	if action == manifest.ActionEndDay {
		o.endDay(source)
		return
	}
	t, ok := actionEvents[action]
	if !ok {
		o.log.Warn().Str("action", string(action)).Str("source", source).Msg("unknown timeline action skipped")
		return
	}
	o.toSession(event.Event{Type: t, Timestamp: o.now, PayloadJSON: payload})
}

// nextWakeup derives when the host must wake the game next.
func (o *Orchestrator) nextWakeup() time.Time {
	timeline := o.ctx.Manifest.IsTimeline()
	switch o.state {
	case StatePreGame, StateNightSummary:
		if !timeline {
			return time.Time{}
		}
		at, _ := o.ctx.Manifest.FirstEntryTime(o.ctx.DayIndex + 1)
		return at
	case StateRunning:
		var next time.Time
		if timeline {
			if day, ok := o.ctx.Manifest.Day(o.ctx.DayIndex); ok {
				after := o.ctx.LastProcessedTime
				if after.IsZero() {
					after = o.now.Add(-o.window.CatchUp)
				}
				if entry, ok := schedule.Next(day.Timeline, after); ok {
					next = entry.Time
				}
			}
		}
		if o.session != nil {
			next = schedule.Earliest(next, o.session.Deadline())
		}
		return next
	}
	return time.Time{}
}

func (o *Orchestrator) reschedule(previous time.Time) {
	next := o.nextWakeup()
	o.ctx.NextWakeup = next
	if !next.IsZero() && !next.Equal(previous) {
		o.effects = append(o.effects, EffectSchedule{At: next})
	}
}
