package core

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/vortelan/chatsync/internal/api"
	"github.com/vortelan/chatsync/internal/store"
)

// User is the cached identity of the authenticated user.
type User struct {
	ID       string
	Username string
}

// AuthReader is the narrow read-only view other components use for guard
// checks. Only SessionGate mutates the underlying state.
type AuthReader interface {
	// RequireAuth fails with an unauthenticated error, without any network
	// call, when no session is established.
	RequireAuth() error
	// UserID returns the authenticated user's id, empty when logged out.
	UserID() string
}

// AuthAPI is the slice of the resource server the gate depends on.
type AuthAPI interface {
	CheckAuth(ctx context.Context) (*api.UserPayload, error)
	LogIn(ctx context.Context, req api.LoginRequest) (*api.LoginResponse, error)
	LogOut(ctx context.Context) error
	SignUp(ctx context.Context, req api.SignupRequest) (*api.SignupResponse, error)
	VerifyUser(ctx context.Context, req api.VerifyUserRequest) error
	ResendOTP(ctx context.Context, req api.ResendOTPRequest) error
	SetToken(token string)
	Token() string
}

// SessionGate owns authentication state. Every mutating operation in every
// other component calls RequireAuth before doing anything else.
type SessionGate struct {
	api   AuthAPI
	creds store.CredentialStore
	log   *zerolog.Logger

	mu            sync.Mutex
	user          *User
	authenticated bool
	pendingUserID string
	teardowns     []func()
}

// NewSessionGate creates a gate. creds may be nil when credential
// persistence is not wanted (tests).
func NewSessionGate(authAPI AuthAPI, creds store.CredentialStore, logger *zerolog.Logger) *SessionGate {
	return &SessionGate{api: authAPI, creds: creds, log: logger}
}

// OnLogout registers a teardown hook run after every successful logout or
// session loss initiated through the gate.
func (g *SessionGate) OnLogout(fn func()) {
	g.mu.Lock()
	g.teardowns = append(g.teardowns, fn)
	g.mu.Unlock()
}

// RequireAuth implements AuthReader. Synchronous, never touches the network.
func (g *SessionGate) RequireAuth() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.authenticated {
		return ErrUnauthenticated
	}
	return nil
}

// Authenticated reports the current session flag.
func (g *SessionGate) Authenticated() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.authenticated
}

// UserID implements AuthReader.
func (g *SessionGate) UserID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.user == nil {
		return ""
	}
	return g.user.ID
}

// CurrentUser returns a copy of the cached identity, nil when logged out.
func (g *SessionGate) CurrentUser() *User {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.user == nil {
		return nil
	}
	u := *g.user
	return &u
}

// CheckAuth performs a single round trip to confirm the session. On any
// failure, including a missing or expired token, the gate drops to
// unauthenticated. It never returns an error for the auth outcome itself;
// callers read the resulting state.
func (g *SessionGate) CheckAuth(ctx context.Context) {
	token := g.api.Token()
	if token == "" || tokenExpired(token) {
		g.setUnauthenticated()
		return
	}

	user, err := g.api.CheckAuth(ctx)
	if err != nil {
		g.log.Debug().Err(err).Msg("auth check failed")
		g.setUnauthenticated()
		return
	}

	g.mu.Lock()
	g.authenticated = true
	g.user = &User{ID: user.ID, Username: user.Username}
	g.mu.Unlock()
	g.log.Debug().Str("user_id", user.ID).Msg("session confirmed")
}

// LogIn exchanges credentials for a token, persists it, then resynchronizes
// via CheckAuth rather than trusting the local result.
func (g *SessionGate) LogIn(ctx context.Context, identifier, password string) error {
	resp, err := g.api.LogIn(ctx, api.LoginRequest{Identifier: identifier, Password: password})
	if err != nil {
		var apiErr *api.Error
		if errors.As(err, &apiErr) && apiErr.NeedsVerification {
			g.mu.Lock()
			g.pendingUserID = apiErr.UserID
			g.mu.Unlock()
		}
		return remoteError(err)
	}

	g.api.SetToken(resp.Token)
	g.saveCredential(ctx, resp.Token)

	g.CheckAuth(ctx)
	if !g.Authenticated() {
		return &Error{Code: ErrCodeRemoteFailure, Message: "session not established after login"}
	}
	return nil
}

// SignUp registers an account and records the pending verification id.
func (g *SessionGate) SignUp(ctx context.Context, username, email, password string) error {
	resp, err := g.api.SignUp(ctx, api.SignupRequest{Username: username, Email: email, Password: password})
	if err != nil {
		return remoteError(err)
	}
	g.mu.Lock()
	g.pendingUserID = resp.UserID
	g.mu.Unlock()
	return nil
}

// BeginVerification records the account awaiting OTP verification. Normally
// set by SignUp or a needs-verification login rejection; exposed for callers
// that carry the pending id across process boundaries.
func (g *SessionGate) BeginVerification(userID string) {
	g.mu.Lock()
	g.pendingUserID = userID
	g.mu.Unlock()
}

// PendingUserID returns the account awaiting verification, empty when none.
func (g *SessionGate) PendingUserID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.pendingUserID
}

// VerifyUser confirms the pending account with its OTP, then resynchronizes.
func (g *SessionGate) VerifyUser(ctx context.Context, otp string) error {
	g.mu.Lock()
	pending := g.pendingUserID
	g.mu.Unlock()
	if pending == "" {
		return invalidTarget("no verification pending")
	}

	if err := g.api.VerifyUser(ctx, api.VerifyUserRequest{UserID: pending, OTP: otp}); err != nil {
		return remoteError(err)
	}

	g.mu.Lock()
	g.pendingUserID = ""
	g.mu.Unlock()

	g.CheckAuth(ctx)
	return nil
}

// ResendOTP requests a fresh OTP for the pending account.
func (g *SessionGate) ResendOTP(ctx context.Context) error {
	g.mu.Lock()
	pending := g.pendingUserID
	g.mu.Unlock()
	if pending == "" {
		return invalidTarget("no verification pending")
	}
	if err := g.api.ResendOTP(ctx, api.ResendOTPRequest{UserID: pending}); err != nil {
		return remoteError(err)
	}
	return nil
}

// LogOut invalidates the session remotely, clears the stored credential and
// runs the registered teardown hooks. The remote call is best effort: local
// teardown happens regardless, so a flaky network cannot pin a session open.
func (g *SessionGate) LogOut(ctx context.Context) error {
	err := g.api.LogOut(ctx)
	if err != nil {
		g.log.Warn().Err(err).Msg("remote logout failed, clearing local session anyway")
	}

	g.api.SetToken("")
	if g.creds != nil {
		if clearErr := g.creds.Clear(ctx); clearErr != nil {
			g.log.Warn().Err(clearErr).Msg("failed to clear stored credential")
		}
	}

	g.CheckAuth(ctx)
	g.runTeardowns()

	if err != nil {
		return remoteError(err)
	}
	return nil
}

func (g *SessionGate) setUnauthenticated() {
	g.mu.Lock()
	g.authenticated = false
	g.user = nil
	g.mu.Unlock()
}

func (g *SessionGate) runTeardowns() {
	g.mu.Lock()
	hooks := append([]func(){}, g.teardowns...)
	g.mu.Unlock()
	for _, fn := range hooks {
		fn()
	}
}

func (g *SessionGate) saveCredential(ctx context.Context, token string) {
	if g.creds == nil {
		return
	}
	cred := &store.Credential{Token: token, SavedAt: time.Now()}
	if claims := parseClaims(token); claims != nil {
		cred.UserID = claims.Subject
	}
	if err := g.creds.Save(ctx, cred); err != nil {
		g.log.Warn().Err(err).Msg("failed to persist credential")
	}
}

// tokenExpired decides locally whether a stored token is already past its
// exp claim. The client holds no signing key, so the parse is unverified;
// the server remains the authority on anything this check lets through.
func tokenExpired(token string) bool {
	claims := parseClaims(token)
	if claims == nil || claims.ExpiresAt == nil {
		return false
	}
	return claims.ExpiresAt.Before(time.Now())
}

func parseClaims(token string) *jwt.RegisteredClaims {
	parser := jwt.NewParser()
	claims := &jwt.RegisteredClaims{}
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return nil
	}
	return claims
}
