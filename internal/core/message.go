package core

import (
	"sort"
	"time"

	"github.com/vortelan/chatsync/internal/api"
)

// Attachment is a message attachment. Pending marks a local upload preview
// the server has not echoed back yet.
type Attachment struct {
	URL     string
	Name    string
	Pending bool
}

// Message is one entry in a chat's ledger. ID is server-assigned and absent
// until acknowledged; ClientID is generated locally on optimistic sends.
type Message struct {
	ID          string
	ClientID    string
	ChatID      string
	SenderID    string
	Body        string
	Attachments []Attachment
	CreatedAt   time.Time
	ReadBy      []string
}

// SameLogical reports whether two records represent the same logical
// message: server ids match, or both carry the same client id.
func (m Message) SameLogical(other Message) bool {
	if m.ID != "" && other.ID != "" && m.ID == other.ID {
		return true
	}
	return m.ClientID != "" && other.ClientID != "" && m.ClientID == other.ClientID
}

// HasReader reports whether the given user is in the read set.
func (m Message) HasReader(userID string) bool {
	for _, id := range m.ReadBy {
		if id == userID {
			return true
		}
	}
	return false
}

// mergeRecord combines two records for the same logical message. Server
// truth wins on conflict; fields absent on the server side but present
// locally (client id, pending attachment previews, read marks already
// applied) survive the merge.
func mergeRecord(local, server Message) Message {
	merged := server
	if merged.ClientID == "" {
		merged.ClientID = local.ClientID
	}
	if len(merged.Attachments) == 0 && len(local.Attachments) > 0 {
		merged.Attachments = local.Attachments
	}
	if merged.ChatID == "" {
		merged.ChatID = local.ChatID
	}
	if merged.CreatedAt.IsZero() {
		merged.CreatedAt = local.CreatedAt
	}
	for _, reader := range local.ReadBy {
		if !merged.HasReader(reader) {
			merged.ReadBy = append(merged.ReadBy, reader)
		}
	}
	return merged
}

// sortMessages orders a ledger's entries: CreatedAt ascending, tie-broken by
// server id, then client id, so equal timestamps produce a stable order.
func sortMessages(msgs []Message) {
	sort.SliceStable(msgs, func(i, j int) bool {
		a, b := msgs[i], msgs[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		ak, bk := a.sortKey(), b.sortKey()
		return ak < bk
	})
}

func (m Message) sortKey() string {
	if m.ID != "" {
		return m.ID
	}
	return m.ClientID
}

// MessageFromPayload converts a wire message into the domain model.
func MessageFromPayload(p api.MessagePayload) Message {
	msg := Message{
		ID:        p.ID,
		ClientID:  p.ClientID,
		ChatID:    p.ChatID,
		SenderID:  p.SenderID,
		Body:      p.Body,
		CreatedAt: p.CreatedAt,
		ReadBy:    append([]string(nil), p.ReadBy...),
	}
	for _, a := range p.Attachments {
		msg.Attachments = append(msg.Attachments, Attachment{URL: a.URL, Name: a.Name})
	}
	return msg
}

func messagesFromPayloads(payloads []api.MessagePayload) []Message {
	msgs := make([]Message, 0, len(payloads))
	for _, p := range payloads {
		msgs = append(msgs, MessageFromPayload(p))
	}
	return msgs
}
