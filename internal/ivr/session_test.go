package ivr

import (
	"encoding/json"
	"testing"
	"time"

	"hvac-backoffice/internal/booking"
)

func TestSession_JSONKeepsTaggedStage(t *testing.T) {
	s := NewSession("co_1", "CA1", "+15551234567", time.Unix(1700000000, 0).UTC(), 10*time.Minute)
	s.Stage = OfferingWindows{
		Name:    "Jane Doe",
		Address: "12 Elm Street",
		Issue:   booking.IssueNoHeat,
		Date:    "2023-11-14",
		Offered: []Offer{{Position: 2, Name: "3-6", Label: "evening, 3 to 6"}},
	}
	s.Retries = 1

	raw, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var got Session
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	off, ok := got.Stage.(OfferingWindows)
	if !ok {
		t.Fatalf("expected OfferingWindows stage, got %T", got.Stage)
	}
	if off.Offered[0].Position != 2 || off.Issue != booking.IssueNoHeat || got.Retries != 1 {
		t.Fatalf("unexpected stage: %+v", off)
	}
	if !got.ExpiresAt.Equal(s.ExpiresAt) {
		t.Fatalf("expected expires_at preserved")
	}
}

func TestSession_UnknownStateRejected(t *testing.T) {
	var s Session
	if err := json.Unmarshal([]byte(`{"state":"dancing"}`), &s); err == nil {
		t.Fatalf("expected error")
	}
}

func TestStateCollecting(t *testing.T) {
	if !StateCollectingIssue.Collecting() || StateOfferingWindows.Collecting() || StateGreeting.Collecting() {
		t.Fatalf("unexpected collecting classification")
	}
}
