// Package handler provides HTTP request handlers for sessguard.
package handler

import "time"

// Response is the standard API response envelope. All JSON responses
// use this format (except /metrics which uses Prometheus format).
type Response struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id"`
	Timestamp int64  `json:"timestamp"`
	Data      any    `json:"data,omitempty"`
	Details   any    `json:"details,omitempty"`
}

// NewResponse creates a success response.
func NewResponse(requestID string, data any) *Response {
	return &Response{
		Code:      "OK",
		Message:   "Success",
		RequestID: requestID,
		Timestamp: time.Now().UnixMilli(),
		Data:      data,
	}
}

// NewErrorResponse creates an error response.
func NewErrorResponse(requestID, code, message string, details any) *Response {
	return &Response{
		Code:      code,
		Message:   message,
		RequestID: requestID,
		Timestamp: time.Now().UnixMilli(),
		Details:   details,
	}
}

// RegisterRequest is the request body for POST /v1/auth/register.
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest is the request body for POST /v1/auth/login. Handle
// accepts a username or an email address.
type LoginRequest struct {
	Handle   string `json:"handle"`
	Password string `json:"password"`
}

// LoginWithCodeRequest is the request body for POST /v1/auth/login/code.
type LoginWithCodeRequest struct {
	UserID string `json:"user_id"`
	Code   string `json:"code"`
}

// UserResponse represents an account in API responses. The credential
// hash never appears here.
type UserResponse struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	AvatarKey string    `json:"avatar_key,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// LoginResponse is the response body for the login endpoints. When
// CodeRequired is set no session was issued; the client must complete
// the flow via POST /v1/auth/login/code.
type LoginResponse struct {
	User         UserResponse `json:"user"`
	CodeRequired bool         `json:"code_required,omitempty"`
	ExpiresAt    time.Time    `json:"expires_at,omitzero"`
}

// SessionResponse represents one session row in API responses.
type SessionResponse struct {
	ID        string    `json:"id"`
	UserAgent string    `json:"user_agent,omitempty"`
	IPAddress string    `json:"ip_address,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	LastUsed  time.Time `json:"last_used"`
	ExpiresAt time.Time `json:"expires_at"`
	State     string    `json:"state"`
	Current   bool      `json:"current"`
}

// ListSessionsResponse is the response body for GET /v1/sessions.
type ListSessionsResponse struct {
	Sessions []SessionResponse `json:"sessions"`
	Total    int               `json:"total"`
}

// LogoutSelectedRequest is the request body for POST /v1/auth/logout/selected.
type LogoutSelectedRequest struct {
	SessionIDs []string `json:"session_ids"`
}

// LogoutResponse is the response body for the logout endpoints.
type LogoutResponse struct {
	Removed int `json:"removed"`
}

// UploadAvatarResponse is the response body for POST /v1/me/avatar.
type UploadAvatarResponse struct {
	AvatarKey string `json:"avatar_key"`
}

// HealthResponse is the response body for GET /healthz.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Commit  string `json:"commit,omitempty"`
}
