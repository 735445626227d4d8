// Package api is the typed REST client for the chat resource server.
//
// Session carriage is bearer-token only: when a token is set it is attached
// as an Authorization header to every outgoing request. The client maps
// failures into *Error so callers can branch on status semantics without
// touching net/http.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// DefaultTimeout bounds every request unless a custom http.Client is supplied.
const DefaultTimeout = 30 * time.Second

// Client talks to the resource server.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        *zerolog.Logger

	mu    sync.RWMutex
	token string
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the request timeout on the default http.Client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// New creates a client for the given base URL (e.g. "https://host/api").
func New(baseURL string, logger *zerolog.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
		log:        logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetToken sets or clears the bearer token attached to requests.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// Token returns the currently held bearer token, empty if none.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Client) do(ctx context.Context, method, path string, body any, query url.Values, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var bodyReader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return &Error{Message: "encode request: " + err.Error()}
		}
		bodyReader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, bodyReader)
	if err != nil {
		return &Error{Message: "build request: " + err.Error()}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Debug().Err(err).Str("method", method).Str("path", path).Msg("request failed")
		return &Error{Message: err.Error()}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Error{Message: "read response: " + err.Error()}
	}

	if resp.StatusCode >= 400 {
		apiErr := &Error{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		// Server error payloads carry a human-readable message; surface it.
		var payload struct {
			Message           string `json:"message"`
			Error             string `json:"error"`
			NeedsVerification bool   `json:"needsVerification"`
			UserID            string `json:"userId"`
		}
		if json.Unmarshal(data, &payload) == nil {
			if payload.Message != "" {
				apiErr.Message = payload.Message
			} else if payload.Error != "" {
				apiErr.Message = payload.Error
			}
			apiErr.NeedsVerification = payload.NeedsVerification
			apiErr.UserID = payload.UserID
		}
		c.log.Debug().Int("status", resp.StatusCode).Str("method", method).Str("path", path).Str("msg", apiErr.Message).Msg("request rejected")
		return apiErr
	}

	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return &Error{Status: resp.StatusCode, Message: "decode response: " + err.Error()}
		}
	}
	return nil
}
