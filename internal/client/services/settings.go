package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/garagekeeper/internal/client/models"
	"github.com/dmitrijs2005/garagekeeper/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/garagekeeper/internal/cloud/credential"
	"github.com/dmitrijs2005/garagekeeper/internal/common"
)

// Metadata keys holding the sync configuration.
const (
	KeyContainerID       = "sync.container_id"
	KeyServiceAccountKey = "sync.service_account_key"
	KeyLastSync          = "sync.last_sync"
)

// SettingsService loads and saves the sync configuration in local
// metadata. Setters update both the store and the given config, so a
// BackupService sharing that config sees the change on its next
// operation.
type SettingsService interface {
	Load(ctx context.Context) (*models.SyncConfig, error)
	SetContainerID(ctx context.Context, cfg *models.SyncConfig, containerID string) error
	SetServiceAccountKey(ctx context.Context, cfg *models.SyncConfig, rawKey string) error
	SaveLastSync(ctx context.Context, t time.Time) error
	Reset(ctx context.Context, cfg *models.SyncConfig) error
}

type settingsService struct {
	repo metadata.Repository
}

func NewSettingsService(repo metadata.Repository) SettingsService {
	return &settingsService{repo: repo}
}

// Load reads the stored configuration. Missing keys leave the matching
// fields empty; an unparsable last-sync value is an error.
func (s *settingsService) Load(ctx context.Context) (*models.SyncConfig, error) {
	values, err := s.repo.List(ctx, "sync.")
	if err != nil {
		return nil, fmt.Errorf("load sync settings: %w", err)
	}

	cfg := &models.SyncConfig{
		ContainerID:       values[KeyContainerID],
		ServiceAccountKey: values[KeyServiceAccountKey],
	}

	if raw, ok := values[KeyLastSync]; ok && raw != "" {
		t, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return nil, fmt.Errorf("load sync settings: %s: %w", KeyLastSync, err)
		}
		cfg.LastSync = &t
	}

	return cfg, nil
}

func (s *settingsService) SetContainerID(ctx context.Context, cfg *models.SyncConfig, containerID string) error {
	containerID = strings.TrimSpace(containerID)
	if containerID == "" {
		return fmt.Errorf("%w: container id is empty", common.ErrorInvalidInput)
	}

	if err := s.repo.Set(ctx, KeyContainerID, containerID); err != nil {
		return err
	}
	cfg.ContainerID = containerID
	return nil
}

// SetServiceAccountKey stores rawKey after validating it; an invalid key
// fails with cloud.ErrNotConfigured and leaves the stored key unchanged.
func (s *settingsService) SetServiceAccountKey(ctx context.Context, cfg *models.SyncConfig, rawKey string) error {
	if _, err := credential.Parse([]byte(rawKey)); err != nil {
		return err
	}

	if err := s.repo.Set(ctx, KeyServiceAccountKey, rawKey); err != nil {
		return err
	}
	cfg.ServiceAccountKey = rawKey
	return nil
}

func (s *settingsService) SaveLastSync(ctx context.Context, t time.Time) error {
	return s.repo.Set(ctx, KeyLastSync, t.UTC().Format(time.RFC3339Nano))
}

// Reset forgets the whole sync configuration.
func (s *settingsService) Reset(ctx context.Context, cfg *models.SyncConfig) error {
	if err := s.repo.Delete(ctx, KeyContainerID, KeyServiceAccountKey, KeyLastSync); err != nil {
		return fmt.Errorf("reset sync settings: %w", err)
	}
	*cfg = models.SyncConfig{}
	return nil
}
