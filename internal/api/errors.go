package api

import "fmt"

// Error is a failed call to the resource server. Status 0 means the request
// never produced an HTTP response (transport failure).
type Error struct {
	Status  int    `json:"-"`
	Message string `json:"message"`

	// NeedsVerification and UserID are set when a login is rejected because
	// the account still awaits OTP verification.
	NeedsVerification bool   `json:"needsVerification,omitempty"`
	UserID            string `json:"userId,omitempty"`
}

func (e *Error) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("api: %s", e.Message)
	}
	return fmt.Sprintf("api: %d %s", e.Status, e.Message)
}

// IsTransport reports whether the request failed before an HTTP response.
func (e *Error) IsTransport() bool { return e.Status == 0 }

// IsClient reports whether the server rejected the request with 4xx semantics.
func (e *Error) IsClient() bool { return e.Status >= 400 && e.Status < 500 }

// IsUnauthorized reports a 401 response.
func (e *Error) IsUnauthorized() bool { return e.Status == 401 }
