// Package postgame implements the actor hosted after a winner is declared.
// Only MAIN chat remains: DMs are closed and the economy is frozen.
package postgame

import (
	"time"

	"github.com/google/uuid"

	"github.com/louisbranch/pecking-order/internal/services/game/domain/decision"
	"github.com/louisbranch/pecking-order/internal/services/game/domain/event"
	"github.com/louisbranch/pecking-order/internal/services/game/domain/fact"
	"github.com/louisbranch/pecking-order/internal/services/game/domain/roster"
	"github.com/louisbranch/pecking-order/internal/services/game/domain/session"
	"github.com/louisbranch/pecking-order/internal/services/game/domain/social"
)

// Actor is the Post-Game actor. Its fields are its snapshot.
type Actor struct {
	Roster roster.Roster `json:"roster"`
	Social *social.State `json:"social"`

	newID func() string
}

// New starts the post-game chat, carrying over the last day's chat log.
func New(r roster.Roster, chatLog []social.ChatMessage, now time.Time, newID func() string) *Actor {
	s := social.NewState(social.DefaultLimits(0, 0), chatLog, now)
	s.GroupChatOpen = true
	a := &Actor{Roster: r.Clone(), Social: s}
	a.SetIDSource(newID)
	return a
}

// SetIDSource replaces the message id source, e.g. after a restore.
// A nil source selects uuid.NewString.
func (a *Actor) SetIDSource(newID func() string) {
	if newID == nil {
		newID = uuid.NewString
	}
	a.newID = newID
}

// Send handles one event and returns the events bound for the parent.
func (a *Actor) Send(now time.Time, evt event.Event) []event.Event {
	if a.newID == nil {
		a.SetIDSource(nil)
	}
	switch evt.Type {
	case event.TypeSocialSendMsg:
		req, err := event.Decode[social.MessageRequest](evt)
		if err != nil {
			return reject(event.TypeDMRejected, evt, decision.RejectionCodePayloadDecodeFailed, err.Error(), now)
		}
		env := social.Env{Now: now, Roster: a.Roster, NewID: a.newID}
		d := social.DecideMessage(a.Social, env, evt.SenderID, req)
		out := d.Outcome(event.TypeDMRejected, evt.SenderID, now)
		if !d.Rejected() {
			for _, e := range out {
				if f, err := fact.FromEvent(e); err == nil {
					a.Social.Apply(f)
				}
			}
		}
		return out
	case event.TypeSocialSendSilver:
		return reject(event.TypeSilverTransferRejected, evt, decision.RejectionCodeGameOver, "the game is over", now)
	case event.TypeSocialUsePerk:
		return reject(event.TypePerkRejected, evt, decision.RejectionCodeGameOver, "the game is over", now)
	case event.TypeSocialCreateChannel:
		return reject(event.TypeChannelRejected, evt, social.ReasonDMsClosed, "direct messages are closed", now)
	case event.TypeInternalNarrator:
		if p, err := event.Decode[session.NarratorPayload](evt); err == nil && p.Text != "" {
			a.Social.AppendSystemMessage(a.newID(), p.Text, now)
		}
	}
	return nil
}

func reject(t event.Type, evt event.Event, code, message string, now time.Time) []event.Event {
	d := decision.Reject(decision.Rejection{Code: code, Message: message})
	return d.RejectionEvents(t, evt.SenderID, now)
}
