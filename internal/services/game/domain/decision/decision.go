package decision

import (
	"errors"
	"time"

	"github.com/louisbranch/pecking-order/internal/services/game/domain/event"
)

// ErrEmptyDecision indicates a decision with neither events nor rejections.
var ErrEmptyDecision = errors.New("decision must contain events or rejections")

// Shared rejection codes. Area-specific codes live next to their deciders.
const (
	RejectionCodePayloadDecodeFailed = "PAYLOAD_DECODE_FAILED"
	RejectionCodeGameOver            = "GAME_OVER"
)

// Decision represents the pure outcome of evaluating a request.
type Decision struct {
	Events     []event.Event
	Rejections []Rejection
}

// Rejection captures a domain-level reason a request was declined.
type Rejection struct {
	Code    string
	Message string
}

// RejectionPayload is the wire shape of a rejection event.
type RejectionPayload struct {
	Reason  string `json:"reason"`
	Message string `json:"message,omitempty"`
}

// Accept returns a decision that emits the provided events.
func Accept(events ...event.Event) Decision {
	return Decision{Events: append([]event.Event(nil), events...)}
}

// Reject returns a decision that carries the provided rejections.
func Reject(rejections ...Rejection) Decision {
	return Decision{Rejections: append([]Rejection(nil), rejections...)}
}

// Rejected reports whether the decision declined the request.
func (d Decision) Rejected() bool {
	return len(d.Rejections) > 0
}

// Validate checks the decision carries an outcome.
func (d Decision) Validate() error {
	if len(d.Events) == 0 && len(d.Rejections) == 0 {
		return ErrEmptyDecision
	}
	return nil
}

// Reason returns the code of the first rejection, or "".
func (d Decision) Reason() string {
	if len(d.Rejections) == 0 {
		return ""
	}
	return d.Rejections[0].Code
}

// RejectionEvents converts rejections into player-addressed events of type t.
func (d Decision) RejectionEvents(t event.Type, playerID string, now time.Time) []event.Event {
	out := make([]event.Event, 0, len(d.Rejections))
	for _, r := range d.Rejections {
		out = append(out, event.New(t, playerID, now, RejectionPayload{Reason: r.Code, Message: r.Message}))
	}
	return out
}

// Outcome flattens the decision into events: accepted events, or rejection
// events of type t addressed to playerID.
func (d Decision) Outcome(t event.Type, playerID string, now time.Time) []event.Event {
	if d.Rejected() {
		return d.RejectionEvents(t, playerID, now)
	}
	return d.Events
}
