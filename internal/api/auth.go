package api

import (
	"context"
	"net/http"
)

// CheckAuth probes the session. Returns the authenticated user on success.
func (c *Client) CheckAuth(ctx context.Context) (*UserPayload, error) {
	var user UserPayload
	if err := c.do(ctx, http.MethodGet, "/auth/check", nil, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// LogIn exchanges credentials for a bearer token. The token is not retained
// by the client; the caller decides whether to install it via SetToken.
func (c *Client) LogIn(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	var resp LoginResponse
	if err := c.do(ctx, http.MethodPost, "/auth/login", req, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// LogOut invalidates the session server-side.
func (c *Client) LogOut(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/auth/logout", struct{}{}, nil, nil)
}

// SignUp registers a new account; the account stays unusable until the OTP
// sent to the user is verified.
func (c *Client) SignUp(ctx context.Context, req SignupRequest) (*SignupResponse, error) {
	var resp SignupResponse
	if err := c.do(ctx, http.MethodPost, "/auth/signup", req, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// VerifyUser confirms a pending account with its OTP.
func (c *Client) VerifyUser(ctx context.Context, req VerifyUserRequest) error {
	return c.do(ctx, http.MethodPost, "/auth/verify-user", req, nil, nil)
}

// ResendOTP requests a fresh OTP for a pending account.
func (c *Client) ResendOTP(ctx context.Context, req ResendOTPRequest) error {
	return c.do(ctx, http.MethodPost, "/auth/resend-otp", req, nil, nil)
}
