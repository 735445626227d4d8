package core

import (
	"context"
	"testing"
	"time"

	"github.com/vortelan/chatsync/internal/api"
	"github.com/vortelan/chatsync/internal/log"
)

func newTestLedger(auth *fakeAuth, ledgerAPI *fakeLedgerAPI) *MessageLedger {
	return NewMessageLedger(auth, ledgerAPI, log.Nop())
}

func TestFetchPageMergeIsIdempotent(t *testing.T) {
	ledgerAPI := &fakeLedgerAPI{
		listFn: func(chatID string, page, limit int) (*api.MessagePage, error) {
			return &api.MessagePage{
				Data:  []api.MessagePayload{wireMsg("m1", "", "c1", 0), wireMsg("m2", "", "c1", 1), wireMsg("m3", "", "c1", 2)},
				Page:  page,
				Limit: limit,
			}, nil
		},
	}
	ledger := newTestLedger(&fakeAuth{ok: true}, ledgerAPI)

	req := FetchPageRequest{ChatID: "c1", Page: 1, Limit: 50, SortAscending: true}
	if err := ledger.FetchPage(context.Background(), req); err != nil {
		t.Fatalf("first fetch failed: %v", err)
	}
	first := ledger.Snapshot("c1")

	if err := ledger.FetchPage(context.Background(), req); err != nil {
		t.Fatalf("second fetch failed: %v", err)
	}
	second := ledger.Snapshot("c1")

	mustIDs(t, first, "m1", "m2", "m3")
	mustIDs(t, second, "m1", "m2", "m3")
	for i := range first.Messages {
		a, b := first.Messages[i], second.Messages[i]
		if a.ID != b.ID || a.Body != b.Body || !a.CreatedAt.Equal(b.CreatedAt) {
			t.Fatalf("re-merge changed entry %d: %+v vs %+v", i, a, b)
		}
	}
	if first.HasMore != second.HasMore || first.Page != second.Page {
		t.Fatalf("re-merge changed ledger metadata: %+v vs %+v", first, second)
	}
}

func TestDedupConvergenceBothOrders(t *testing.T) {
	optimistic := Message{ClientID: "c-abc", ChatID: "c1", Body: "hello", CreatedAt: testBase}
	echo := MessageFromPayload(wireMsg("m1", "c-abc", "c1", 0))

	// Optimistic first, server echo second.
	ledger := newTestLedger(&fakeAuth{ok: true}, &fakeLedgerAPI{})
	ledger.Ingest(optimistic)
	ledger.Ingest(echo)
	forward := ledger.Snapshot("c1")

	// Server echo first, optimistic second.
	ledger = newTestLedger(&fakeAuth{ok: true}, &fakeLedgerAPI{})
	ledger.Ingest(echo)
	ledger.Ingest(optimistic)
	reverse := ledger.Snapshot("c1")

	for name, led := range map[string]Ledger{"forward": forward, "reverse": reverse} {
		if len(led.Messages) != 1 {
			t.Fatalf("%s: expected exactly one entry, got %d", name, len(led.Messages))
		}
		got := led.Messages[0]
		if got.ID != "m1" || got.ClientID != "c-abc" {
			t.Fatalf("%s: expected merged record {m1 c-abc}, got {%s %s}", name, got.ID, got.ClientID)
		}
	}
}

func TestSendStampsClientIDAndMerges(t *testing.T) {
	var sent api.SendMessageRequest
	ledgerAPI := &fakeLedgerAPI{
		sendFn: func(req api.SendMessageRequest) (*api.MessagePayload, error) {
			sent = req
			return &api.MessagePayload{ID: "m9", ClientID: req.ClientID, ChatID: req.ChatID, Body: req.Body, CreatedAt: testBase}, nil
		},
	}
	ledger := newTestLedger(&fakeAuth{ok: true}, ledgerAPI)

	msg, err := ledger.Send(context.Background(), SendRequest{ChatID: "c1", Body: "hi"})
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if sent.ClientID == "" {
		t.Fatal("expected a client id to be stamped on the outgoing payload")
	}
	if msg.ID != "m9" || msg.ClientID != sent.ClientID {
		t.Fatalf("unexpected acknowledged record: %+v", msg)
	}
	mustIDs(t, ledger.Snapshot("c1"), "m9")
}

func TestSendFailureLeavesNoTrace(t *testing.T) {
	ledgerAPI := &fakeLedgerAPI{
		sendFn: func(api.SendMessageRequest) (*api.MessagePayload, error) {
			return nil, &api.Error{Status: 500, Message: "boom"}
		},
	}
	ledger := newTestLedger(&fakeAuth{ok: true}, ledgerAPI)

	if _, err := ledger.Send(context.Background(), SendRequest{ChatID: "c1", Body: "hi"}); err == nil {
		t.Fatal("expected send to fail")
	}
	if got := ledger.Snapshot("c1"); len(got.Messages) != 0 {
		t.Fatalf("failed send left %d entries in the ledger", len(got.Messages))
	}
}

func TestPaginationHasMore(t *testing.T) {
	history := []api.MessagePayload{wireMsg("m1", "", "c1", 0), wireMsg("m2", "", "c1", 1), wireMsg("m3", "", "c1", 2)}
	ledgerAPI := &fakeLedgerAPI{
		listFn: func(_ string, page, limit int) (*api.MessagePage, error) {
			start := (page - 1) * limit
			end := start + limit
			if start > len(history) {
				start = len(history)
			}
			if end > len(history) {
				end = len(history)
			}
			return &api.MessagePage{Data: history[start:end], Page: page, Limit: limit}, nil
		},
	}

	// 3 messages, limit 50: a single page and no more.
	ledger := newTestLedger(&fakeAuth{ok: true}, ledgerAPI)
	if err := ledger.FetchPage(context.Background(), FetchPageRequest{ChatID: "c1", Page: 1, Limit: 50}); err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if led := ledger.Snapshot("c1"); led.HasMore {
		t.Fatal("expected hasMore=false with limit 50")
	}

	// 3 messages, limit 2: page 1 says more, page 2 says done, no duplicates.
	ledger = newTestLedger(&fakeAuth{ok: true}, ledgerAPI)
	if err := ledger.FetchPage(context.Background(), FetchPageRequest{ChatID: "c1", Page: 1, Limit: 2}); err != nil {
		t.Fatalf("page 1 failed: %v", err)
	}
	if led := ledger.Snapshot("c1"); !led.HasMore {
		t.Fatal("expected hasMore=true after page 1 with limit 2")
	}
	if err := ledger.FetchPage(context.Background(), FetchPageRequest{ChatID: "c1", Page: 2, Limit: 2}); err != nil {
		t.Fatalf("page 2 failed: %v", err)
	}
	led := ledger.Snapshot("c1")
	if led.HasMore {
		t.Fatal("expected hasMore=false after page 2")
	}
	mustIDs(t, led, "m1", "m2", "m3")
}

func TestPageOneReplaceKeepsUnacknowledgedOptimistic(t *testing.T) {
	ledgerAPI := &fakeLedgerAPI{
		listFn: func(_ string, page, limit int) (*api.MessagePage, error) {
			return &api.MessagePage{Data: []api.MessagePayload{wireMsg("m1", "", "c1", 0)}, Page: page, Limit: limit}, nil
		},
	}
	ledger := newTestLedger(&fakeAuth{ok: true}, ledgerAPI)

	ledger.Ingest(Message{ClientID: "c-pending", ChatID: "c1", Body: "draft", CreatedAt: testBase.Add(5 * time.Minute)})
	if err := ledger.FetchPage(context.Background(), FetchPageRequest{ChatID: "c1", Page: 1, Limit: 50}); err != nil {
		t.Fatalf("fetch failed: %v", err)
	}

	mustIDs(t, ledger.Snapshot("c1"), "m1", "c-pending")
}

func TestMergePreservesLocalOnlyAttachments(t *testing.T) {
	ledger := newTestLedger(&fakeAuth{ok: true}, &fakeLedgerAPI{})

	ledger.Ingest(Message{
		ClientID:    "c-up",
		ChatID:      "c1",
		CreatedAt:   testBase,
		Attachments: []Attachment{{URL: "file://local/preview.png", Name: "preview.png", Pending: true}},
	})
	merged := ledger.Ingest(MessageFromPayload(wireMsg("m1", "c-up", "c1", 0)))

	if len(merged.Attachments) != 1 || !merged.Attachments[0].Pending {
		t.Fatalf("expected the pending local attachment to survive the merge, got %+v", merged.Attachments)
	}
	if merged.ID != "m1" {
		t.Fatalf("server id should win: %+v", merged)
	}
}

func TestOrderingTieBreakIsStable(t *testing.T) {
	ledger := newTestLedger(&fakeAuth{ok: true}, &fakeLedgerAPI{})

	// Same timestamp; ids decide the order deterministically.
	ledger.Ingest(MessageFromPayload(wireMsg("m2", "", "c1", 0)))
	ledger.Ingest(MessageFromPayload(wireMsg("m1", "", "c1", 0)))

	mustIDs(t, ledger.Snapshot("c1"), "m1", "m2")
}

func TestDeleteRemovesByServerID(t *testing.T) {
	ledger := newTestLedger(&fakeAuth{ok: true}, &fakeLedgerAPI{})
	ledger.Ingest(MessageFromPayload(wireMsg("m1", "", "c1", 0)))
	ledger.Ingest(MessageFromPayload(wireMsg("m2", "", "c1", 1)))

	if err := ledger.Delete(context.Background(), "c1", "m1"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	mustIDs(t, ledger.Snapshot("c1"), "m2")
}

func TestDeleteKeepsStateOnRemoteFailure(t *testing.T) {
	ledgerAPI := &fakeLedgerAPI{
		deleteFn: func(string) error { return &api.Error{Status: 500, Message: "boom"} },
	}
	ledger := newTestLedger(&fakeAuth{ok: true}, ledgerAPI)
	ledger.Ingest(MessageFromPayload(wireMsg("m1", "", "c1", 0)))

	if err := ledger.Delete(context.Background(), "c1", "m1"); err == nil {
		t.Fatal("expected delete to fail")
	}
	mustIDs(t, ledger.Snapshot("c1"), "m1")
}

func TestGuardedLedgerOpsRejectWithoutNetwork(t *testing.T) {
	ledgerAPI := &fakeLedgerAPI{}
	ledger := newTestLedger(&fakeAuth{ok: false}, ledgerAPI)
	ledger.ledgers["c1"] = &Ledger{Messages: []Message{MessageFromPayload(wireMsg("m1", "", "c1", 0))}}

	ops := map[string]func() error{
		"fetch": func() error {
			return ledger.FetchPage(context.Background(), FetchPageRequest{ChatID: "c1", Page: 1, Limit: 50})
		},
		"send": func() error {
			_, err := ledger.Send(context.Background(), SendRequest{ChatID: "c1", Body: "hi"})
			return err
		},
		"delete": func() error { return ledger.Delete(context.Background(), "c1", "m1") },
	}

	for name, op := range ops {
		if err := op(); CodeOf(err) != ErrCodeUnauthenticated {
			t.Fatalf("%s: expected unauthenticated error, got %v", name, err)
		}
	}
	if ledgerAPI.callCount() != 0 {
		t.Fatalf("guard failures reached the network %d times", ledgerAPI.callCount())
	}
	mustIDs(t, ledger.Snapshot("c1"), "m1")
}

func TestClearIsUnguarded(t *testing.T) {
	ledger := newTestLedger(&fakeAuth{ok: false}, &fakeLedgerAPI{})
	ledger.ledgers["c1"] = &Ledger{Messages: []Message{MessageFromPayload(wireMsg("m1", "", "c1", 0))}}
	ledger.ledgers["c2"] = &Ledger{Messages: []Message{MessageFromPayload(wireMsg("m2", "", "c2", 0))}}

	ledger.Clear("c1")
	if got := ledger.Snapshot("c1"); len(got.Messages) != 0 {
		t.Fatal("Clear left messages behind")
	}

	ledger.ClearAll()
	if got := ledger.Snapshot("c2"); len(got.Messages) != 0 {
		t.Fatal("ClearAll left messages behind")
	}
}
