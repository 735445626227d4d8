package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

// ListMessages fetches one page of a chat's history.
func (c *Client) ListMessages(ctx context.Context, chatID string, page, limit int, ascending bool) (*MessagePage, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("limit", strconv.Itoa(limit))
	sort := "asc"
	if !ascending {
		sort = "desc"
	}
	q.Set("sort", sort)

	var resp MessagePage
	if err := c.do(ctx, http.MethodGet, "/message/"+chatID, nil, q, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SendMessage posts a message and returns the server-acknowledged record.
func (c *Client) SendMessage(ctx context.Context, req SendMessageRequest) (*MessagePayload, error) {
	var msg MessagePayload
	if err := c.do(ctx, http.MethodPost, "/message", req, nil, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// MarkRead records the calling user as having read the selected messages.
func (c *Client) MarkRead(ctx context.Context, req MarkReadRequest) error {
	return c.do(ctx, http.MethodPut, "/message/read", req, nil, nil)
}

// DeleteMessage removes a message by its server id.
func (c *Client) DeleteMessage(ctx context.Context, messageID string) error {
	return c.do(ctx, http.MethodDelete, "/message/"+messageID, nil, nil, nil)
}
