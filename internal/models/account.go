package models

import "time"

// DefaultStorageLimit is the per-account quota assigned at registration (1 TiB).
const DefaultStorageLimit int64 = 1 << 40

// Account is an authenticated owner of files and a storage quota.
type Account struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	StorageUsed  int64     `json:"storage_used"`
	StorageLimit int64     `json:"storage_limit"`
	Disabled     bool      `json:"disabled,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// StorageAvailable returns the number of bytes the account may still consume.
func (a *Account) StorageAvailable() int64 {
	if a == nil {
		return 0
	}
	free := a.StorageLimit - a.StorageUsed
	if free < 0 {
		return 0
	}
	return free
}
