package decision

import (
	"testing"
	"time"

	"github.com/louisbranch/pecking-order/internal/services/game/domain/event"
)

func TestAcceptDecision_ReturnsEventsOnly(t *testing.T) {
	d := Accept(event.Event{Type: event.TypeFactRecord, SenderID: "p1"})

	if len(d.Events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(d.Events))
	}
	if d.Events[0].SenderID != "p1" {
		t.Fatalf("event sender = %s, want %s", d.Events[0].SenderID, "p1")
	}
	if d.Rejected() {
		t.Fatal("expected no rejections")
	}
}

func TestRejectDecision_ReturnsRejectionsOnly(t *testing.T) {
	d := Reject(Rejection{Code: "DMS_CLOSED"})

	if !d.Rejected() {
		t.Fatal("expected rejection")
	}
	if d.Reason() != "DMS_CLOSED" {
		t.Fatalf("reason = %s, want DMS_CLOSED", d.Reason())
	}
	if len(d.Events) != 0 {
		t.Fatalf("expected no events, got %d", len(d.Events))
	}
}

func TestDecisionValidate(t *testing.T) {
	if err := (Decision{}).Validate(); err == nil {
		t.Fatal("expected error for empty decision")
	}
	if err := Reject(Rejection{Code: "NOPE"}).Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestOutcome_ConvertsRejectionsToAddressedEvents(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	out := Reject(Rejection{Code: "SELF_DM", Message: "cannot DM yourself"}).
		Outcome(event.TypeDMRejected, "p1", now)

	if len(out) != 1 {
		t.Fatalf("expected 1 event, got %d", len(out))
	}
	if out[0].Type != event.TypeDMRejected || out[0].SenderID != "p1" {
		t.Fatalf("unexpected event %+v", out[0])
	}
	payload, err := event.Decode[RejectionPayload](out[0])
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Reason != "SELF_DM" {
		t.Fatalf("reason = %s, want SELF_DM", payload.Reason)
	}
}

func TestSharedRejectionCodes_FollowConvention(t *testing.T) {
	for _, code := range []string{RejectionCodePayloadDecodeFailed, RejectionCodeGameOver} {
		for _, c := range code {
			if c >= 'a' && c <= 'z' {
				t.Errorf("%q contains lowercase characters", code)
				break
			}
		}
	}
}
