package api

import (
	"time"

	"github.com/robertkruk/parent-connect-app/modules/chat"
)

// ErrorResponse is the standard error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status  string         `json:"status"`
	Details map[string]any `json:"details,omitempty"`
}

// ServiceInfoResponse is the body of GET /.
type ServiceInfoResponse struct {
	Message  string          `json:"message"`
	Version  string          `json:"version"`
	Status   string          `json:"status"`
	Features map[string]bool `json:"features"`
}

// RegisterRequest is the body of POST /api/auth/register.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone,omitempty"`
}

// LoginRequest is the body of POST /api/auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RefreshRequest is the body of POST /api/auth/refresh.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// UserResponse is the public view of a parent account.
type UserResponse struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Phone      string    `json:"phone,omitempty"`
	Avatar     string    `json:"avatar,omitempty"`
	IsVerified bool      `json:"isVerified"`
	CreatedAt  time.Time `json:"createdAt,omitempty"`
}

// AuthResponse is the body returned by register and login.
type AuthResponse struct {
	Success      bool         `json:"success"`
	Token        string       `json:"token"`
	RefreshToken string       `json:"refreshToken"`
	ExpiresIn    int64        `json:"expiresIn"`
	User         UserResponse `json:"user"`
}

// TokenResponse is the body of POST /api/auth/refresh.
type TokenResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int64  `json:"expiresIn"`
	TokenType    string `json:"tokenType"`
}

// ProfileResponse is the body of GET /api/users/me.
type ProfileResponse struct {
	UserResponse
	Children []chat.ChildPayload `json:"children"`
}

// PresenceResponse is the body of GET /api/users/presence.
type PresenceResponse struct {
	UserID   string    `json:"userId"`
	Status   string    `json:"status"`
	LastSeen time.Time `json:"lastSeen"`
}

// OnlineUsersResponse is the body of GET /api/users/online.
type OnlineUsersResponse struct {
	UserIDs []string `json:"userIds"`
}

// CreateChildRequest is the body of POST /api/children.
type CreateChildRequest struct {
	Name   string `json:"name"`
	Grade  string `json:"grade"`
	School string `json:"school"`
}

// SendMessageRequest is the body of POST /api/chats/:id/messages.
type SendMessageRequest struct {
	Content     string   `json:"content"`
	Type        string   `json:"type,omitempty"`
	Attachments []string `json:"attachments,omitempty"`
	ReplyTo     string   `json:"replyTo,omitempty"`
}

// MessageStatusResponse is the body of GET /api/messages/:id/status.
type MessageStatusResponse struct {
	MessageID string `json:"messageId"`
	Status    string `json:"status"`
}

// SuccessResponse acknowledges a state-changing request.
type SuccessResponse struct {
	Success bool `json:"success"`
}
