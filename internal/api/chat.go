package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

// ListChats fetches one page of the user's chats.
func (c *Client) ListChats(ctx context.Context, page, limit int) (*ChatPage, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("limit", strconv.Itoa(limit))

	var resp ChatPage
	if err := c.do(ctx, http.MethodGet, "/chat", nil, q, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// AccessChat fetches or creates the direct chat with the given peer.
func (c *Client) AccessChat(ctx context.Context, peerUserID string) (*ChatPayload, error) {
	body := struct {
		UserID string `json:"userId"`
	}{UserID: peerUserID}

	var chat ChatPayload
	if err := c.do(ctx, http.MethodPost, "/chat/access", body, nil, &chat); err != nil {
		return nil, err
	}
	return &chat, nil
}

// CreateGroupChat creates a group chat with the given members.
func (c *Client) CreateGroupChat(ctx context.Context, req CreateGroupRequest) (*ChatPayload, error) {
	var chat ChatPayload
	if err := c.do(ctx, http.MethodPost, "/chat/group", req, nil, &chat); err != nil {
		return nil, err
	}
	return &chat, nil
}

// RenameGroup renames a group chat and returns the updated chat.
func (c *Client) RenameGroup(ctx context.Context, chatID, name string) (*ChatPayload, error) {
	body := struct {
		ChatID string `json:"chatId"`
		Name   string `json:"name"`
	}{ChatID: chatID, Name: name}

	var chat ChatPayload
	if err := c.do(ctx, http.MethodPut, "/chat/rename", body, nil, &chat); err != nil {
		return nil, err
	}
	return &chat, nil
}

// DeleteChat removes a chat.
func (c *Client) DeleteChat(ctx context.Context, chatID string) error {
	return c.do(ctx, http.MethodDelete, "/chat/"+chatID, nil, nil, nil)
}
