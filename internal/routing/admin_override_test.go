package routing

import (
	"context"
	"errors"
	"testing"
	"time"
)

type memAudit struct {
	called bool
	event  OverrideAuditEvent
}

func (m *memAudit) LogOverrideApplied(ctx context.Context, e OverrideAuditEvent) error {
	m.called = true
	m.event = e
	return nil
}

func TestAdminOverrideEngine_AppliesWhenActiveAndSilent(t *testing.T) {
	now := time.Unix(1700000000, 0).UTC()

	store := NewMemoryOverrideStore()
	a := &memAudit{}
	e := NewAdminOverrideEngine(store, a)
	e.Now = func() time.Time { return now }

	if _, err := e.Set(context.Background(), Override{CompanyID: "co_1", ConnectTo: "+15550001111", ExpiresAt: now.Add(5 * time.Minute)}); err != nil {
		t.Fatalf("set: %v", err)
	}

	ctx := WithClientIP(context.Background(), "10.0.0.1")
	dec, applied, err := e.Decide(ctx, TransferRequest{CompanyID: "co_1", CallID: "CA1", From: "+1", To: "+2"})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if !applied {
		t.Fatalf("expected applied")
	}
	if dec.Action != ActionDial || dec.ConnectTo != "+15550001111" {
		t.Fatalf("unexpected decision: %+v", dec)
	}
	if dec.Reason != "" {
		t.Fatalf("expected silent decision (no reason), got %q", dec.Reason)
	}
	if !a.called || a.event.CallID != "CA1" || a.event.IPAddress != "10.0.0.1" || a.event.OverrideID == "" {
		t.Fatalf("expected audit with call and ip, got %+v", a.event)
	}
}

func TestAdminOverrideEngine_IgnoresExpired(t *testing.T) {
	now := time.Unix(1700000000, 0).UTC()
	store := NewMemoryOverrideStore()
	_ = store.SetOverride(context.Background(), Override{CompanyID: "co_1", ConnectTo: "+1555", ExpiresAt: now.Add(-time.Second)}, now)

	a := &memAudit{}
	e := NewAdminOverrideEngine(store, a)
	e.Now = func() time.Time { return now }

	_, applied, err := e.Decide(context.Background(), TransferRequest{CompanyID: "co_1"})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if applied || a.called {
		t.Fatalf("expected not applied")
	}
}

func TestAdminOverrideEngine_OtherCompanyUnaffected(t *testing.T) {
	now := time.Unix(1700000000, 0).UTC()
	e := NewAdminOverrideEngine(NewMemoryOverrideStore(), nil)
	e.Now = func() time.Time { return now }
	_, _ = e.Set(context.Background(), Override{CompanyID: "co_1", ConnectTo: "+1555", ExpiresAt: now.Add(time.Hour)})

	_, applied, err := e.Decide(context.Background(), TransferRequest{CompanyID: "co_2"})
	if err != nil || applied {
		t.Fatalf("expected no override for co_2, applied=%v err=%v", applied, err)
	}
}

func TestAdminOverrideEngine_SetValidates(t *testing.T) {
	now := time.Unix(1700000000, 0).UTC()
	e := NewAdminOverrideEngine(NewMemoryOverrideStore(), nil)
	e.Now = func() time.Time { return now }

	cases := []Override{
		{ConnectTo: "+1555", ExpiresAt: now.Add(time.Hour)},
		{CompanyID: "co_1", ConnectTo: " ", ExpiresAt: now.Add(time.Hour)},
		{CompanyID: "co_1", ConnectTo: "+1555", ExpiresAt: now},
	}
	for i, o := range cases {
		if _, err := e.Set(context.Background(), o); !errors.Is(err, ErrInvalidOverride) {
			t.Fatalf("case %d: expected ErrInvalidOverride, got %v", i, err)
		}
	}
}

func TestAdminOverrideEngine_Clear(t *testing.T) {
	now := time.Unix(1700000000, 0).UTC()
	e := NewAdminOverrideEngine(NewMemoryOverrideStore(), nil)
	e.Now = func() time.Time { return now }
	_, _ = e.Set(context.Background(), Override{CompanyID: "co_1", ConnectTo: "+1555", ExpiresAt: now.Add(time.Hour)})

	if err := e.Clear(context.Background(), "co_1"); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, ok, _ := e.Active(context.Background(), "co_1"); ok {
		t.Fatalf("expected override cleared")
	}
}

type stubOverrideAuditor struct {
	companyID, callID, connectTo, metadata string
}

func (s *stubOverrideAuditor) LogOverride(_ context.Context, companyID, _, _, _, callID, _, connectTo, metadata string) error {
	s.companyID, s.callID, s.connectTo, s.metadata = companyID, callID, connectTo, metadata
	return nil
}

func TestAuditAdapter_FillsMetadata(t *testing.T) {
	s := &stubOverrideAuditor{}
	a := AuditAdapter{Audit: s, ActorUserID: "system", ActorRole: "system"}
	err := a.LogOverrideApplied(context.Background(), OverrideAuditEvent{
		CompanyID: "co_1",
		CallID:    "CA1",
		From:      "+1",
		To:        "+2",
		ConnectTo: "+1555",
		ExpiresAt: time.Unix(1700000000, 0).UTC(),
	})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if s.companyID != "co_1" || s.callID != "CA1" || s.connectTo != "+1555" {
		t.Fatalf("unexpected forwarded event: %+v", s)
	}
	if s.metadata != `{"expires_at":"2023-11-14T22:13:20Z","from":"+1","to":"+2"}` {
		t.Fatalf("unexpected metadata: %s", s.metadata)
	}
}
