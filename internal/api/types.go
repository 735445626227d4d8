package api

import "time"

// UserPayload is the user object returned by the auth endpoints.
type UserPayload struct {
	ID       string `json:"_id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
}

// ChatPayload is a chat as the resource server sends it. Direct and group
// chats use different field sets; normalization happens in core.
type ChatPayload struct {
	ID          string    `json:"_id"`
	IsGroupChat *bool     `json:"isGroupChat,omitempty"`
	IsGroup     *bool     `json:"isGroup,omitempty"`
	ChatName    string    `json:"chatName,omitempty"`
	GroupName   string    `json:"groupName,omitempty"`
	Users       []string  `json:"users,omitempty"`
	AllUsers    []string  `json:"allUsers,omitempty"`
	UpdatedAt   time.Time `json:"updatedAt,omitempty"`
}

// ChatPage is one page of the chat list.
type ChatPage struct {
	Data  []ChatPayload `json:"data"`
	Page  int           `json:"page"`
	Limit int           `json:"limit"`
}

// AttachmentPayload is a message attachment on the wire.
type AttachmentPayload struct {
	URL  string `json:"url"`
	Name string `json:"name,omitempty"`
}

// MessagePayload is a message as the resource server sends it.
// ClientID is echoed back verbatim when the sender supplied one.
type MessagePayload struct {
	ID          string              `json:"_id"`
	ClientID    string              `json:"clientId,omitempty"`
	ChatID      string              `json:"chatId"`
	SenderID    string              `json:"senderId"`
	Body        string              `json:"body"`
	Attachments []AttachmentPayload `json:"attachments,omitempty"`
	ReadBy      []string            `json:"readBy,omitempty"`
	CreatedAt   time.Time           `json:"createdAt"`
}

// MessagePage is one page of a chat's message history.
type MessagePage struct {
	Data  []MessagePayload `json:"data"`
	Page  int              `json:"page"`
	Limit int              `json:"limit"`
}

// LoginRequest is the body for POST /auth/login.
type LoginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

// LoginResponse carries the bearer token issued on login.
type LoginResponse struct {
	Token string `json:"token"`
}

// SignupRequest is the body for POST /auth/signup.
type SignupRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignupResponse reports the user pending OTP verification.
type SignupResponse struct {
	UserID  string `json:"userId"`
	Message string `json:"message"`
}

// VerifyUserRequest is the body for POST /auth/verify-user.
type VerifyUserRequest struct {
	UserID string `json:"userId"`
	OTP    string `json:"otp"`
}

// ResendOTPRequest is the body for POST /auth/resend-otp.
type ResendOTPRequest struct {
	UserID string `json:"userId"`
}

// CreateGroupRequest is the body for POST /chat/group.
type CreateGroupRequest struct {
	Name    string   `json:"name"`
	UserIDs []string `json:"users"`
}

// SendMessageRequest is the body for POST /message.
type SendMessageRequest struct {
	ChatID      string              `json:"chatId"`
	ClientID    string              `json:"clientId,omitempty"`
	Body        string              `json:"body"`
	Attachments []AttachmentPayload `json:"attachments,omitempty"`
}

// MarkReadRequest is the body for PUT /message/read.
// At least one of ChatID/MessageID must be set.
type MarkReadRequest struct {
	ChatID    string `json:"chatId,omitempty"`
	MessageID string `json:"messageId,omitempty"`
}
