package core

import (
	"context"
	"testing"

	"github.com/vortelan/chatsync/internal/api"
	"github.com/vortelan/chatsync/internal/log"
)

func newTestTracker(auth *fakeAuth, receiptAPI *fakeReceiptAPI, ledger *MessageLedger) *ReadReceiptTracker {
	return NewReadReceiptTracker(auth, receiptAPI, ledger, log.Nop())
}

func seedLedger(msgs ...api.MessagePayload) *MessageLedger {
	ledger := NewMessageLedger(&fakeAuth{ok: true}, &fakeLedgerAPI{}, log.Nop())
	for _, m := range msgs {
		ledger.Ingest(MessageFromPayload(m))
	}
	return ledger
}

func TestMarkReadIsMonotonic(t *testing.T) {
	ledger := seedLedger(wireMsg("m1", "", "c1", 0))
	tracker := newTestTracker(&fakeAuth{ok: true, userID: "u1"}, &fakeReceiptAPI{}, ledger)

	req := MarkReadRequest{ChatID: "c1", UserID: "u1"}
	if err := tracker.MarkRead(context.Background(), req); err != nil {
		t.Fatalf("first mark failed: %v", err)
	}
	after1 := len(ledger.Snapshot("c1").Messages[0].ReadBy)

	if err := tracker.MarkRead(context.Background(), req); err != nil {
		t.Fatalf("second mark failed: %v", err)
	}
	after2 := len(ledger.Snapshot("c1").Messages[0].ReadBy)

	if after1 != 1 || after2 != 1 {
		t.Fatalf("read set should stay at 1 after repeated marks, got %d then %d", after1, after2)
	}

	// A different reader grows the set; nothing ever shrinks it.
	if err := tracker.MarkRead(context.Background(), MarkReadRequest{ChatID: "c1", UserID: "u2"}); err != nil {
		t.Fatalf("second reader failed: %v", err)
	}
	if got := len(ledger.Snapshot("c1").Messages[0].ReadBy); got != 2 {
		t.Fatalf("expected read set size 2, got %d", got)
	}
}

func TestMarkReadScopesByChatAndMessage(t *testing.T) {
	ledger := seedLedger(wireMsg("m1", "", "c1", 0), wireMsg("m2", "", "c1", 1), wireMsg("m3", "", "c2", 0))
	tracker := newTestTracker(&fakeAuth{ok: true, userID: "u1"}, &fakeReceiptAPI{}, ledger)

	// Only the named message in the named chat.
	if err := tracker.MarkRead(context.Background(), MarkReadRequest{ChatID: "c1", MessageID: "m2", UserID: "u1"}); err != nil {
		t.Fatalf("mark failed: %v", err)
	}
	led := ledger.Snapshot("c1")
	if len(led.Messages[0].ReadBy) != 0 || len(led.Messages[1].ReadBy) != 1 {
		t.Fatalf("message filter not honored: %+v", led.Messages)
	}
	if got := ledger.Snapshot("c2").Messages[0].ReadBy; len(got) != 0 {
		t.Fatalf("chat filter not honored: %v", got)
	}

	// No chat filter: every ledger in scope.
	if err := tracker.MarkRead(context.Background(), MarkReadRequest{MessageID: "m3", UserID: "u1"}); err != nil {
		t.Fatalf("mark failed: %v", err)
	}
	if got := ledger.Snapshot("c2").Messages[0].ReadBy; len(got) != 1 {
		t.Fatalf("expected cross-ledger mark to land, got %v", got)
	}
}

func TestMarkReadRequiresATarget(t *testing.T) {
	receiptAPI := &fakeReceiptAPI{}
	tracker := newTestTracker(&fakeAuth{ok: true, userID: "u1"}, receiptAPI, seedLedger())

	err := tracker.MarkRead(context.Background(), MarkReadRequest{UserID: "u1"})
	if CodeOf(err) != ErrCodeInvalidTarget {
		t.Fatalf("expected invalid target, got %v", err)
	}
	if receiptAPI.callCount() != 0 {
		t.Fatal("target validation should precede the network call")
	}
}

func TestMarkReadGuardRejectsWithoutNetwork(t *testing.T) {
	receiptAPI := &fakeReceiptAPI{}
	tracker := newTestTracker(&fakeAuth{ok: false}, receiptAPI, seedLedger(wireMsg("m1", "", "c1", 0)))

	err := tracker.MarkRead(context.Background(), MarkReadRequest{ChatID: "c1", UserID: "u1"})
	if CodeOf(err) != ErrCodeUnauthenticated {
		t.Fatalf("expected unauthenticated, got %v", err)
	}
	if receiptAPI.callCount() != 0 {
		t.Fatal("guard failure reached the network")
	}
}

func TestMarkReadSilentStillFails(t *testing.T) {
	receiptAPI := &fakeReceiptAPI{
		markFn: func(api.MarkReadRequest) error { return &api.Error{Status: 500, Message: "boom"} },
	}
	ledger := seedLedger(wireMsg("m1", "", "c1", 0))
	tracker := newTestTracker(&fakeAuth{ok: true, userID: "u1"}, receiptAPI, ledger)

	err := tracker.MarkRead(context.Background(), MarkReadRequest{ChatID: "c1", UserID: "u1", Silent: true})
	if CodeOf(err) != ErrCodeRemoteFailure {
		t.Fatalf("silent must not change the outcome, got %v", err)
	}
	if got := ledger.Snapshot("c1").Messages[0].ReadBy; len(got) != 0 {
		t.Fatalf("failed mark must not mutate state, got %v", got)
	}
}

func TestApplyRoutesLiveEventsThroughSameRules(t *testing.T) {
	ledger := seedLedger(wireMsg("m1", "", "c1", 0))
	tracker := newTestTracker(&fakeAuth{ok: true, userID: "u1"}, &fakeReceiptAPI{}, ledger)

	if applied := tracker.Apply("c1", "m1", "u3"); applied != 1 {
		t.Fatalf("expected 1 mark applied, got %d", applied)
	}
	if applied := tracker.Apply("c1", "m1", "u3"); applied != 0 {
		t.Fatalf("repeated live event must be a no-op, got %d", applied)
	}
}
