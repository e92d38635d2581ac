package models

import (
	"testing"

	"github.com/dmitrijs2005/garagekeeper/internal/cloud"
	"github.com/dmitrijs2005/garagekeeper/internal/cloud/cloudtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyncConfig_IsConfigured(t *testing.T) {
	key := cloudtest.ServiceAccountJSON(t, "https://oauth2.googleapis.com/token")

	tests := []struct {
		name string
		cfg  *SyncConfig
		want bool
	}{
		{name: "nil", cfg: nil, want: false},
		{name: "empty", cfg: &SyncConfig{}, want: false},
		{name: "container only", cfg: &SyncConfig{ContainerID: "folder"}, want: false},
		{name: "key only", cfg: &SyncConfig{ServiceAccountKey: key}, want: false},
		{name: "blank container", cfg: &SyncConfig{ContainerID: "  ", ServiceAccountKey: key}, want: false},
		{name: "malformed key", cfg: &SyncConfig{ContainerID: "folder", ServiceAccountKey: `{"type":"service_account"}`}, want: false},
		{name: "complete", cfg: &SyncConfig{ContainerID: "folder", ServiceAccountKey: key}, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cfg.IsConfigured())
		})
	}
}

func TestSyncConfig_Credential(t *testing.T) {
	cfg := &SyncConfig{ContainerID: "folder", ServiceAccountKey: cloudtest.ServiceAccountJSON(t, "https://example.test/token")}

	cred, err := cfg.Credential()
	require.NoError(t, err)
	assert.Equal(t, cloudtest.ClientEmail, cred.ClientEmail)

	_, err = (&SyncConfig{}).Credential()
	require.ErrorIs(t, err, cloud.ErrNotConfigured)
}
