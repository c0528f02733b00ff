package api

import "time"

// ErrorResponse is a generic JSON error wrapper.
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code,omitempty"`
	ErrorCode int    `json:"error_code,omitempty"`
}

// RegisterRequest is the payload for POST /api/auth/register.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterResponse acknowledges a new registration.
type RegisterResponse struct {
	Message   string `json:"message"`
	AccountID string `json:"account_id"`
}

// LoginRequest is the payload for POST /api/auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AccountResponse is the public view of one account.
type AccountResponse struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	StorageUsed  int64  `json:"storage_used"`
	StorageLimit int64  `json:"storage_limit"`
}

// LoginResponse carries the bearer token and the authenticated account.
type LoginResponse struct {
	AccessToken string          `json:"access_token"`
	TokenType   string          `json:"token_type"`
	ExpiresAt   time.Time       `json:"expires_at"`
	Account     AccountResponse `json:"account"`
}

// FileResponse is the public view of one cataloged file.
type FileResponse struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	SizeBytes  int64     `json:"size_bytes"`
	MediaType  string    `json:"media_type,omitempty"`
	IsShared   bool      `json:"is_shared"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// UploadResponse acknowledges an admitted file.
type UploadResponse struct {
	Message  string `json:"message"`
	FileID   string `json:"file_id"`
	Filename string `json:"filename"`
}

// DeleteResponse acknowledges a retired file.
type DeleteResponse struct {
	Message string `json:"message"`
	FileID  string `json:"file_id"`
}

// InfoResponse describes the running service.
type InfoResponse struct {
	Service string `json:"service"`
	Version string `json:"version"`
}
