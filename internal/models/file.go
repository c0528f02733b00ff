package models

import "time"

// File is the catalog entry for one stored blob owned by one account.
// StorageKey locates the blob on disk and is never exposed over the API.
type File struct {
	ID         string    `json:"id"`
	AccountID  string    `json:"account_id"`
	Name       string    `json:"name"`
	SizeBytes  int64     `json:"size_bytes"`
	MediaType  string    `json:"media_type"`
	StorageKey string    `json:"-"`
	IsShared   bool      `json:"is_shared"`
	UploadedAt time.Time `json:"uploaded_at"`
}
