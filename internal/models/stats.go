package models

// DashboardStats summarizes one account's storage usage.
// Folders and sharing are reserved surface and always report zero.
type DashboardStats struct {
	TotalFiles    int   `json:"total_files"`
	TotalFolders  int   `json:"total_folders"`
	SharedFiles   int   `json:"shared_files"`
	RecentUploads int   `json:"recent_uploads"`
	StorageUsed   int64 `json:"storage_used"`
	StorageLimit  int64 `json:"storage_limit"`
}
