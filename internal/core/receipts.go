package core

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/vortelan/chatsync/internal/api"
)

// ReceiptAPI is the slice of the resource server the tracker depends on.
type ReceiptAPI interface {
	MarkRead(ctx context.Context, req api.MarkReadRequest) error
}

// MarkReadRequest selects which messages to mark and for whom. At least one
// of ChatID/MessageID must be set. Silent suppresses failure reporting at
// the caller's surface but never changes what gets mutated.
type MarkReadRequest struct {
	ChatID    string
	MessageID string
	UserID    string
	Silent    bool
}

// ReadReceiptTracker applies read-state updates across the ledgers.
// Read sets are monotonic: no operation ever removes an entry.
type ReadReceiptTracker struct {
	auth   AuthReader
	api    ReceiptAPI
	ledger *MessageLedger
	log    *zerolog.Logger
}

// NewReadReceiptTracker creates a tracker over the given ledger set.
func NewReadReceiptTracker(auth AuthReader, receiptAPI ReceiptAPI, ledger *MessageLedger, logger *zerolog.Logger) *ReadReceiptTracker {
	return &ReadReceiptTracker{auth: auth, api: receiptAPI, ledger: ledger, log: logger}
}

// MarkRead issues the remote update, then applies the mark locally so the
// view does not wait on a push-back event. UserID defaults to the
// authenticated user.
func (t *ReadReceiptTracker) MarkRead(ctx context.Context, req MarkReadRequest) error {
	if err := t.auth.RequireAuth(); err != nil {
		return err
	}
	if req.ChatID == "" && req.MessageID == "" {
		return invalidTarget("chat id or message id required")
	}
	if req.UserID == "" {
		req.UserID = t.auth.UserID()
	}

	err := t.api.MarkRead(ctx, api.MarkReadRequest{ChatID: req.ChatID, MessageID: req.MessageID})
	if err != nil {
		if req.Silent {
			t.log.Debug().Err(err).Msg("mark read failed (silent)")
		}
		return remoteError(err)
	}

	applied := t.ledger.applyRead(req.ChatID, req.MessageID, req.UserID)
	t.log.Debug().Str("chat_id", req.ChatID).Str("message_id", req.MessageID).Int("applied", applied).Msg("read marks applied")
	return nil
}

// Apply records a read mark locally without a remote call. Used for
// read-updated events arriving over the live channel, which follow the
// same monotonic-growth rule as REST-originated marks.
func (t *ReadReceiptTracker) Apply(chatID, messageID, userID string) int {
	return t.ledger.applyRead(chatID, messageID, userID)
}
