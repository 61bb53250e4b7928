package nats

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/nats-io/nats.go"

	"github.com/kirillkom/legal-workflow/internal/core/domain"
)

func testQueue() *Queue {
	return &Queue{prefix: "decisions.confirmed", logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

func sampleDecision() domain.DecisionConfirmed {
	assignee := "9b2e6a4e-7f11-4c1e-8d0f-5a1f7f3b2c10"
	return domain.DecisionConfirmed{
		TenantID:   "tenant-a",
		AuditID:    "audit-1",
		ItemID:     "item-1",
		EventID:    "event-1",
		ActionID:   "action-1",
		Deadline:   &domain.FinalDeadline{DueDate: "2024-03-05"},
		AssigneeID: &assignee,
		UserID:     "user-1",
		OccurredAt: time.Date(2024, 2, 20, 10, 0, 0, 0, time.UTC),
	}
}

func TestDecisionMessageRoutesByTenant(t *testing.T) {
	msg, err := decisionMessage("decisions.confirmed", sampleDecision())
	if err != nil {
		t.Fatalf("decisionMessage() error = %v", err)
	}
	if msg.Subject != "decisions.confirmed.tenant-a" {
		t.Fatalf("unexpected subject %q", msg.Subject)
	}
	if got := msg.Header.Get(nats.MsgIdHdr); got != "audit-1" {
		t.Fatalf("expected audit id as message id, got %q", got)
	}
	if msg.Header.Get(headerTenant) != "tenant-a" || msg.Header.Get(headerUser) != "user-1" {
		t.Fatalf("unexpected headers %v", msg.Header)
	}
}

func TestDecisionEventRoundTripThroughHandler(t *testing.T) {
	event := sampleDecision()
	msg, err := decisionMessage("decisions.confirmed", event)
	if err != nil {
		t.Fatalf("decisionMessage() error = %v", err)
	}

	var got domain.DecisionConfirmed
	testQueue().handle(context.Background(), msg, func(_ context.Context, e domain.DecisionConfirmed) error {
		got = e
		return nil
	})
	if diff := cmp.Diff(event, got); diff != "" {
		t.Fatalf("event mismatch (-want +got):\n%s", diff)
	}
}

func TestDecisionMessageRequiresTenantAndAudit(t *testing.T) {
	event := sampleDecision()
	event.TenantID = ""
	if _, err := decisionMessage("decisions.confirmed", event); err == nil {
		t.Fatalf("expected error without tenant")
	}
}

func TestInvalidDecisionMessageIsDropped(t *testing.T) {
	valid, err := decisionMessage("decisions.confirmed", sampleDecision())
	if err != nil {
		t.Fatalf("decisionMessage() error = %v", err)
	}

	foreignHeader := nats.NewMsg(valid.Subject)
	foreignHeader.Data = valid.Data
	foreignHeader.Header.Set(headerTenant, "tenant-b")

	foreignSubject := nats.NewMsg("decisions.confirmed.tenant-b")
	foreignSubject.Data = valid.Data
	foreignSubject.Header.Set(headerTenant, "tenant-a")

	garbage := nats.NewMsg(valid.Subject)
	garbage.Data = []byte(`not json`)

	incomplete := nats.NewMsg(valid.Subject)
	incomplete.Data = []byte(`{"item_id":"item-1"}`)

	for name, msg := range map[string]*nats.Msg{
		"foreign header":  foreignHeader,
		"foreign subject": foreignSubject,
		"garbage":         garbage,
		"incomplete":      incomplete,
	} {
		called := false
		testQueue().handle(context.Background(), msg, func(context.Context, domain.DecisionConfirmed) error {
			called = true
			return nil
		})
		if called {
			t.Fatalf("%s: handler called for invalid message", name)
		}
	}
}

func TestTransientPublishErrors(t *testing.T) {
	for _, err := range []error{nats.ErrConnectionClosed, nats.ErrNoServers, nats.ErrTimeout} {
		if !transient(err) {
			t.Fatalf("%v should be transient", err)
		}
	}
	if transient(errors.New("bad subject")) || transient(nats.ErrMaxPayload) {
		t.Fatalf("permanent publish errors reported as transient")
	}
}
