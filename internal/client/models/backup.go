package models

import "time"

// BackupRecord describes one snapshot file stored in the remote container.
type BackupRecord struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	ModifiedTime time.Time `json:"modifiedTime"`
}
