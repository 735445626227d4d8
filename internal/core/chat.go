package core

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/vortelan/chatsync/internal/api"
)

// GroupPlaceholderName is used for group chats the server sends unnamed.
const GroupPlaceholderName = "Group chat"

// Chat is the canonical normalized chat shape. The resource server sends
// two variants (direct and group payloads); NormalizeChat folds both into
// this one.
type Chat struct {
	ID             string
	IsGroup        bool
	Name           string
	ParticipantIDs []string
	LastActivityAt time.Time
}

// NormalizeChat converts either wire variant into the canonical shape.
func NormalizeChat(p api.ChatPayload) Chat {
	isGroup := false
	switch {
	case p.IsGroupChat != nil:
		isGroup = *p.IsGroupChat
	case p.IsGroup != nil:
		isGroup = *p.IsGroup
	}

	participants := p.Users
	if len(participants) == 0 {
		participants = p.AllUsers
	}

	name := p.ChatName
	if name == "" {
		name = p.GroupName
	}
	if name == "" && isGroup {
		name = GroupPlaceholderName
	}

	return Chat{
		ID:             p.ID,
		IsGroup:        isGroup,
		Name:           name,
		ParticipantIDs: append([]string(nil), participants...),
		LastActivityAt: p.UpdatedAt,
	}
}

// Selector is the slice of RoomChannel the registry drives: chat selection
// is owned by the room channel because it is coupled 1:1 to room membership.
type Selector interface {
	Select(chat *Chat) error
	SelectedID() string
}

// ChatAPI is the slice of the resource server the registry depends on.
type ChatAPI interface {
	ListChats(ctx context.Context, page, limit int) (*api.ChatPage, error)
	AccessChat(ctx context.Context, peerUserID string) (*api.ChatPayload, error)
	CreateGroupChat(ctx context.Context, req api.CreateGroupRequest) (*api.ChatPayload, error)
	RenameGroup(ctx context.Context, chatID, name string) (*api.ChatPayload, error)
	DeleteChat(ctx context.Context, chatID string) error
}

// ChatRegistry holds the paginated, normalized chat list.
type ChatRegistry struct {
	auth     AuthReader
	api      ChatAPI
	selector Selector
	log      *zerolog.Logger

	mu      sync.Mutex
	chats   []Chat
	page    int
	limit   int
	hasMore bool
}

// NewChatRegistry creates an empty registry. selector may be nil when no
// room channel is attached (tests exercising the registry alone).
func NewChatRegistry(auth AuthReader, chatAPI ChatAPI, selector Selector, logger *zerolog.Logger) *ChatRegistry {
	return &ChatRegistry{
		auth:     auth,
		api:      chatAPI,
		selector: selector,
		log:      logger,
		page:     1,
		limit:    50,
		hasMore:  true,
	}
}

// Chats returns a copy of the current chat list.
func (r *ChatRegistry) Chats() []Chat {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Chat(nil), r.chats...)
}

// HasMore reports whether another page is expected to exist.
func (r *ChatRegistry) HasMore() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.hasMore
}

// Get looks a chat up by id.
func (r *ChatRegistry) Get(chatID string) (Chat, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.chats {
		if c.ID == chatID {
			return c, true
		}
	}
	return Chat{}, false
}

// Resolve returns the chat with the given id, refreshing the first page
// once when it is not yet known locally.
func (r *ChatRegistry) Resolve(ctx context.Context, chatID string) (Chat, error) {
	if chatID == "" {
		return Chat{}, invalidTarget("chat id required")
	}
	if chat, ok := r.Get(chatID); ok {
		return chat, nil
	}
	if err := r.FetchChats(ctx, 1, 0); err != nil {
		return Chat{}, err
	}
	if chat, ok := r.Get(chatID); ok {
		return chat, nil
	}
	return Chat{}, notFound("unknown chat " + chatID)
}

// FetchChats loads one page of chats. Page 1 replaces the whole set, later
// pages append. Any failure resets the registry to an empty set: callers
// must not assume previous state survives a failed refresh.
func (r *ChatRegistry) FetchChats(ctx context.Context, page, limit int) error {
	if err := r.auth.RequireAuth(); err != nil {
		r.reset()
		return err
	}

	r.mu.Lock()
	if page == 0 {
		page = r.page
	}
	if limit == 0 {
		limit = r.limit
	}
	r.mu.Unlock()

	resp, err := r.api.ListChats(ctx, page, limit)
	if err != nil {
		r.reset()
		return remoteError(err)
	}

	fetched := make([]Chat, 0, len(resp.Data))
	for _, p := range resp.Data {
		fetched = append(fetched, NormalizeChat(p))
	}

	r.mu.Lock()
	if page == 1 {
		r.chats = fetched
	} else {
		r.chats = append(r.chats, fetched...)
	}
	r.page = page
	r.limit = limit
	r.hasMore = len(fetched) == limit
	total := len(r.chats)
	r.mu.Unlock()

	r.log.Debug().Int("page", page).Int("fetched", len(fetched)).Int("total", total).Msg("chats fetched")
	return nil
}

// AccessChat fetches or creates the direct chat with a peer and makes it the
// selection. The upsert is idempotent: an existing chat is replaced in
// place, preserving its position; a new one is prepended.
func (r *ChatRegistry) AccessChat(ctx context.Context, peerUserID string) (*Chat, error) {
	if err := r.auth.RequireAuth(); err != nil {
		return nil, err
	}
	if peerUserID == "" {
		return nil, invalidTarget("peer user id required")
	}

	payload, err := r.api.AccessChat(ctx, peerUserID)
	if err != nil {
		return nil, remoteError(err)
	}
	chat := NormalizeChat(*payload)

	r.mu.Lock()
	replaced := false
	for i := range r.chats {
		if r.chats[i].ID == chat.ID {
			r.chats[i] = chat
			replaced = true
			break
		}
	}
	if !replaced {
		r.chats = append([]Chat{chat}, r.chats...)
	}
	r.mu.Unlock()

	r.selectChat(&chat)
	return &chat, nil
}

// CreateGroupChat creates a group, prepends it and makes it the selection.
func (r *ChatRegistry) CreateGroupChat(ctx context.Context, name string, userIDs []string) (*Chat, error) {
	if err := r.auth.RequireAuth(); err != nil {
		return nil, err
	}

	payload, err := r.api.CreateGroupChat(ctx, api.CreateGroupRequest{Name: name, UserIDs: userIDs})
	if err != nil {
		return nil, remoteError(err)
	}
	chat := NormalizeChat(*payload)

	r.mu.Lock()
	r.chats = append([]Chat{chat}, r.chats...)
	r.mu.Unlock()

	r.selectChat(&chat)
	return &chat, nil
}

// RenameGroup renames a group chat in place. If the renamed chat is the
// current selection, the selection is refreshed to the updated record.
func (r *ChatRegistry) RenameGroup(ctx context.Context, chatID, name string) error {
	if err := r.auth.RequireAuth(); err != nil {
		return err
	}
	if chatID == "" {
		return invalidTarget("chat id required")
	}

	payload, err := r.api.RenameGroup(ctx, chatID, name)
	if err != nil {
		return remoteError(err)
	}
	chat := NormalizeChat(*payload)

	r.mu.Lock()
	for i := range r.chats {
		if r.chats[i].ID == chat.ID {
			r.chats[i] = chat
			break
		}
	}
	r.mu.Unlock()

	if r.selector != nil && r.selector.SelectedID() == chat.ID {
		r.selectChat(&chat)
	}
	return nil
}

// DeleteChat removes a chat. If the deleted chat was selected, the
// selection is cleared.
func (r *ChatRegistry) DeleteChat(ctx context.Context, chatID string) error {
	if err := r.auth.RequireAuth(); err != nil {
		return err
	}
	if chatID == "" {
		return invalidTarget("chat id required")
	}

	if err := r.api.DeleteChat(ctx, chatID); err != nil {
		return remoteError(err)
	}

	r.mu.Lock()
	kept := r.chats[:0]
	for _, c := range r.chats {
		if c.ID != chatID {
			kept = append(kept, c)
		}
	}
	r.chats = kept
	r.mu.Unlock()

	if r.selector != nil && r.selector.SelectedID() == chatID {
		r.selectChat(nil)
	}
	return nil
}

// Reset drops all registry state. Used on logout teardown.
func (r *ChatRegistry) Reset() {
	r.reset()
}

func (r *ChatRegistry) reset() {
	r.mu.Lock()
	r.chats = nil
	r.page = 1
	r.hasMore = false
	r.mu.Unlock()
}

func (r *ChatRegistry) selectChat(chat *Chat) {
	if r.selector == nil {
		return
	}
	if err := r.selector.Select(chat); err != nil {
		r.log.Debug().Err(err).Msg("selection rejected")
	}
}
