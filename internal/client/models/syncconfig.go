package models

import (
	"strings"
	"time"

	"github.com/dmitrijs2005/garagekeeper/internal/cloud/credential"
)

// SyncConfig is the cloud sync configuration of this installation.
//
// ServiceAccountKey holds the raw key JSON as supplied by the user; it lives
// only in local settings and is never part of an uploaded snapshot.
type SyncConfig struct {
	ContainerID       string
	ServiceAccountKey string
	LastSync          *time.Time
}

// Credential parses the stored key. It fails with cloud.ErrNotConfigured
// when the key is absent or malformed.
func (c *SyncConfig) Credential() (*credential.Credential, error) {
	return credential.Parse([]byte(c.ServiceAccountKey))
}

// IsConfigured reports whether both a container id and a well-formed key
// are present.
func (c *SyncConfig) IsConfigured() bool {
	if c == nil || strings.TrimSpace(c.ContainerID) == "" {
		return false
	}
	return credential.Valid(c.ServiceAccountKey)
}
