package core

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/vortelan/chatsync/internal/api"
)

var testBase = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

// fakeAuth is a minimal AuthReader for driving guards in tests.
type fakeAuth struct {
	ok     bool
	userID string
}

func (f *fakeAuth) RequireAuth() error {
	if !f.ok {
		return ErrUnauthenticated
	}
	return nil
}

func (f *fakeAuth) UserID() string { return f.userID }

// fakeLedgerAPI counts calls and serves canned pages.
type fakeLedgerAPI struct {
	mu    sync.Mutex
	calls int

	listFn   func(chatID string, page, limit int) (*api.MessagePage, error)
	sendFn   func(req api.SendMessageRequest) (*api.MessagePayload, error)
	deleteFn func(messageID string) error
}

func (f *fakeLedgerAPI) bump() {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
}

func (f *fakeLedgerAPI) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeLedgerAPI) ListMessages(_ context.Context, chatID string, page, limit int, _ bool) (*api.MessagePage, error) {
	f.bump()
	if f.listFn == nil {
		return &api.MessagePage{Page: page, Limit: limit}, nil
	}
	return f.listFn(chatID, page, limit)
}

func (f *fakeLedgerAPI) SendMessage(_ context.Context, req api.SendMessageRequest) (*api.MessagePayload, error) {
	f.bump()
	if f.sendFn == nil {
		return &api.MessagePayload{ID: "srv-1", ClientID: req.ClientID, ChatID: req.ChatID, Body: req.Body, CreatedAt: testBase}, nil
	}
	return f.sendFn(req)
}

func (f *fakeLedgerAPI) DeleteMessage(_ context.Context, messageID string) error {
	f.bump()
	if f.deleteFn == nil {
		return nil
	}
	return f.deleteFn(messageID)
}

// fakeChatAPI counts calls and serves canned chat pages.
type fakeChatAPI struct {
	mu    sync.Mutex
	calls int

	listFn   func(page, limit int) (*api.ChatPage, error)
	accessFn func(peer string) (*api.ChatPayload, error)
	createFn func(req api.CreateGroupRequest) (*api.ChatPayload, error)
	renameFn func(chatID, name string) (*api.ChatPayload, error)
	deleteFn func(chatID string) error
}

func (f *fakeChatAPI) bump() {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
}

func (f *fakeChatAPI) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeChatAPI) ListChats(_ context.Context, page, limit int) (*api.ChatPage, error) {
	f.bump()
	if f.listFn == nil {
		return &api.ChatPage{Page: page, Limit: limit}, nil
	}
	return f.listFn(page, limit)
}

func (f *fakeChatAPI) AccessChat(_ context.Context, peer string) (*api.ChatPayload, error) {
	f.bump()
	return f.accessFn(peer)
}

func (f *fakeChatAPI) CreateGroupChat(_ context.Context, req api.CreateGroupRequest) (*api.ChatPayload, error) {
	f.bump()
	return f.createFn(req)
}

func (f *fakeChatAPI) RenameGroup(_ context.Context, chatID, name string) (*api.ChatPayload, error) {
	f.bump()
	return f.renameFn(chatID, name)
}

func (f *fakeChatAPI) DeleteChat(_ context.Context, chatID string) error {
	f.bump()
	if f.deleteFn == nil {
		return nil
	}
	return f.deleteFn(chatID)
}

// fakeReceiptAPI counts MarkRead calls.
type fakeReceiptAPI struct {
	mu     sync.Mutex
	calls  int
	markFn func(req api.MarkReadRequest) error
}

func (f *fakeReceiptAPI) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeReceiptAPI) MarkRead(_ context.Context, req api.MarkReadRequest) error {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.markFn == nil {
		return nil
	}
	return f.markFn(req)
}

// recordEmitter records room transitions in order.
type recordEmitter struct {
	mu     sync.Mutex
	events []string
}

func (e *recordEmitter) JoinRoom(chatID string, _ uint64) error {
	e.mu.Lock()
	e.events = append(e.events, "join:"+chatID)
	e.mu.Unlock()
	return nil
}

func (e *recordEmitter) LeaveRoom(chatID string) error {
	e.mu.Lock()
	e.events = append(e.events, "leave:"+chatID)
	e.mu.Unlock()
	return nil
}

func (e *recordEmitter) recorded() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.events...)
}

func wireMsg(id, clientID, chatID string, minute int) api.MessagePayload {
	return api.MessagePayload{
		ID:        id,
		ClientID:  clientID,
		ChatID:    chatID,
		SenderID:  "u2",
		Body:      "msg " + id + clientID,
		CreatedAt: testBase.Add(time.Duration(minute) * time.Minute),
	}
}

func directChat(id string, users ...string) api.ChatPayload {
	isGroup := false
	return api.ChatPayload{ID: id, IsGroup: &isGroup, Users: users}
}

func mustIDs(t *testing.T, led Ledger, want ...string) {
	t.Helper()
	if len(led.Messages) != len(want) {
		t.Fatalf("expected %d messages, got %d: %+v", len(want), len(led.Messages), led.Messages)
	}
	for i, id := range want {
		got := led.Messages[i].ID
		if got == "" {
			got = led.Messages[i].ClientID
		}
		if got != id {
			t.Fatalf("position %d: expected %q, got %q", i, id, got)
		}
	}
}
