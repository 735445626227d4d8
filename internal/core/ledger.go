package core

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vortelan/chatsync/internal/api"
)

// Ledger is one chat's ordered, deduplicated message history.
type Ledger struct {
	Messages []Message
	Page     int
	Limit    int
	HasMore  bool
}

// LedgerAPI is the slice of the resource server the ledger depends on.
type LedgerAPI interface {
	ListMessages(ctx context.Context, chatID string, page, limit int, ascending bool) (*api.MessagePage, error)
	SendMessage(ctx context.Context, req api.SendMessageRequest) (*api.MessagePayload, error)
	DeleteMessage(ctx context.Context, messageID string) error
}

// FetchPageRequest parameterizes one history fetch.
type FetchPageRequest struct {
	ChatID        string
	Page          int
	Limit         int
	SortAscending bool
}

// SendRequest is a locally originated message.
type SendRequest struct {
	ChatID      string
	ClientID    string // generated when empty
	Body        string
	Attachments []Attachment
}

// MessageLedger holds the per-chat message collections and owns the merge
// rules that make REST pages, send acknowledgments and live-channel echoes
// converge to one record per logical message.
type MessageLedger struct {
	auth AuthReader
	api  LedgerAPI
	log  *zerolog.Logger

	mu      sync.Mutex
	ledgers map[string]*Ledger
}

// NewMessageLedger creates an empty ledger set.
func NewMessageLedger(auth AuthReader, ledgerAPI LedgerAPI, logger *zerolog.Logger) *MessageLedger {
	return &MessageLedger{
		auth:    auth,
		api:     ledgerAPI,
		log:     logger,
		ledgers: make(map[string]*Ledger),
	}
}

// Snapshot returns a copy of one chat's ledger. The zero Ledger is returned
// for chats with no fetched history.
func (l *MessageLedger) Snapshot(chatID string) Ledger {
	l.mu.Lock()
	defer l.mu.Unlock()
	led, ok := l.ledgers[chatID]
	if !ok {
		return Ledger{}
	}
	out := *led
	out.Messages = append([]Message(nil), led.Messages...)
	return out
}

// FetchPage loads one page of a chat's history and merges it in. Page 1 is
// a replacement merge that still preserves optimistic entries the server
// has not acknowledged; later pages append-merge. The result is always
// re-sorted and deduplicated, so re-applying the same page is a no-op.
func (l *MessageLedger) FetchPage(ctx context.Context, req FetchPageRequest) error {
	if err := l.auth.RequireAuth(); err != nil {
		return err
	}
	if req.ChatID == "" {
		return invalidTarget("chat id required")
	}
	if req.Page == 0 {
		req.Page = 1
	}
	if req.Limit == 0 {
		req.Limit = 50
	}

	resp, err := l.api.ListMessages(ctx, req.ChatID, req.Page, req.Limit, req.SortAscending)
	if err != nil {
		return remoteError(err)
	}

	fetched := messagesFromPayloads(resp.Data)
	page, limit := resp.Page, resp.Limit
	if page == 0 {
		page = req.Page
	}
	if limit == 0 {
		limit = req.Limit
	}

	l.mu.Lock()
	led := l.ledger(req.ChatID)
	if page == 1 {
		led.Messages = replaceMerge(led.Messages, fetched)
	} else {
		led.Messages = appendMerge(led.Messages, fetched)
	}
	sortMessages(led.Messages)
	led.Page = page
	led.Limit = limit
	led.HasMore = len(fetched) == limit
	count := len(led.Messages)
	l.mu.Unlock()

	l.log.Debug().Str("chat_id", req.ChatID).Int("page", page).Int("fetched", len(fetched)).Int("total", count).Msg("messages fetched")
	return nil
}

// Send posts a message and merges the acknowledged record into the target
// ledger. A fresh client id is stamped on the outgoing payload so the REST
// response and any live-channel echo deduplicate to one entry regardless of
// arrival order. On failure nothing is created or removed: this engine
// keeps no unsent drafts.
func (l *MessageLedger) Send(ctx context.Context, req SendRequest) (*Message, error) {
	if err := l.auth.RequireAuth(); err != nil {
		return nil, err
	}
	if req.ChatID == "" {
		return nil, invalidTarget("chat id required")
	}
	if req.ClientID == "" {
		req.ClientID = uuid.NewString()
	}

	wire := api.SendMessageRequest{ChatID: req.ChatID, ClientID: req.ClientID, Body: req.Body}
	for _, a := range req.Attachments {
		wire.Attachments = append(wire.Attachments, api.AttachmentPayload{URL: a.URL, Name: a.Name})
	}

	payload, err := l.api.SendMessage(ctx, wire)
	if err != nil {
		return nil, remoteError(err)
	}

	msg := MessageFromPayload(*payload)
	if msg.ChatID == "" {
		msg.ChatID = req.ChatID
	}
	merged := l.Ingest(msg)
	return &merged, nil
}

// Ingest merges one message into its chat's ledger, whether it came from a
// send acknowledgment or a live-channel echo. Applying the same message
// twice leaves the ledger unchanged. Returns the merged record.
func (l *MessageLedger) Ingest(msg Message) Message {
	l.mu.Lock()
	defer l.mu.Unlock()

	led := l.ledger(msg.ChatID)
	for i := range led.Messages {
		if led.Messages[i].SameLogical(msg) {
			led.Messages[i] = mergeRecord(led.Messages[i], msg)
			merged := led.Messages[i]
			sortMessages(led.Messages)
			return merged
		}
	}
	led.Messages = append(led.Messages, msg)
	sortMessages(led.Messages)
	return msg
}

// Delete removes a message by server id from the chat's ledger, on remote
// success only.
func (l *MessageLedger) Delete(ctx context.Context, chatID, messageID string) error {
	if err := l.auth.RequireAuth(); err != nil {
		return err
	}
	if messageID == "" {
		return invalidTarget("message id required")
	}

	if err := l.api.DeleteMessage(ctx, messageID); err != nil {
		return remoteError(err)
	}

	l.mu.Lock()
	if led, ok := l.ledgers[chatID]; ok {
		kept := led.Messages[:0]
		for _, m := range led.Messages {
			if m.ID != messageID {
				kept = append(kept, m)
			}
		}
		led.Messages = kept
	}
	l.mu.Unlock()
	return nil
}

// Clear drops one chat's ledger. Unguarded: used on chat removal.
func (l *MessageLedger) Clear(chatID string) {
	if chatID == "" {
		return
	}
	l.mu.Lock()
	delete(l.ledgers, chatID)
	l.mu.Unlock()
}

// ClearAll drops every ledger. Unguarded: used on logout teardown.
func (l *MessageLedger) ClearAll() {
	l.mu.Lock()
	l.ledgers = make(map[string]*Ledger)
	l.mu.Unlock()
}

// applyRead appends userID to the read set of every message selected by the
// chat/message filters. Empty chatID selects all ledgers; empty messageID
// selects all messages in scope. The read set only ever grows.
func (l *MessageLedger) applyRead(chatID, messageID, userID string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	applied := 0
	for id, led := range l.ledgers {
		if chatID != "" && id != chatID {
			continue
		}
		for i := range led.Messages {
			m := &led.Messages[i]
			if messageID != "" && m.ID != messageID {
				continue
			}
			if userID != "" && !m.HasReader(userID) {
				m.ReadBy = append(m.ReadBy, userID)
				applied++
			}
		}
	}
	return applied
}

// ledger returns the chat's ledger, creating it if needed. Callers hold mu.
func (l *MessageLedger) ledger(chatID string) *Ledger {
	led, ok := l.ledgers[chatID]
	if !ok {
		led = &Ledger{Page: 1}
		l.ledgers[chatID] = led
	}
	return led
}

// replaceMerge builds a page-1 result: the fetched page wins, but
// optimistic entries not yet acknowledged by the server survive unless the
// page contains their acknowledged counterpart.
func replaceMerge(existing, fetched []Message) []Message {
	out := append([]Message(nil), fetched...)
	for _, old := range existing {
		if old.ID != "" || old.ClientID == "" {
			continue // server-acknowledged entries are replaced by the page
		}
		matched := false
		for i := range out {
			if out[i].SameLogical(old) {
				out[i] = mergeRecord(old, out[i])
				matched = true
				break
			}
		}
		if !matched {
			out = append(out, old)
		}
	}
	return out
}

// appendMerge folds a later page into the existing history, merging
// duplicates by the logical-message identity rule.
func appendMerge(existing, fetched []Message) []Message {
	out := append([]Message(nil), existing...)
	for _, msg := range fetched {
		matched := false
		for i := range out {
			if out[i].SameLogical(msg) {
				out[i] = mergeRecord(out[i], msg)
				matched = true
				break
			}
		}
		if !matched {
			out = append(out, msg)
		}
	}
	return out
}
