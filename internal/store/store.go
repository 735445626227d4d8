package store

import (
	"context"
	"time"
)

// Credential is the persisted session material: the bearer token plus the
// identity it was issued for. This is the only thing the engine persists;
// chats and messages never touch disk.
type Credential struct {
	Token    string
	UserID   string
	Username string
	SavedAt  time.Time
}

// CredentialStore persists the session credential between runs.
type CredentialStore interface {
	// Save stores the credential, replacing any previous one.
	Save(ctx context.Context, cred *Credential) error

	// Load returns the stored credential, or nil when none is stored.
	Load(ctx context.Context) (*Credential, error)

	// Clear removes any stored credential.
	Clear(ctx context.Context) error

	// Close closes the underlying database connection.
	Close() error
}
