package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/garagekeeper/internal/client/models"
	"github.com/dmitrijs2005/garagekeeper/internal/cloud"
	"github.com/dmitrijs2005/garagekeeper/internal/cloud/credential"
	"github.com/dmitrijs2005/garagekeeper/internal/logging"
	"github.com/google/uuid"
)

// Authenticator obtains a bearer token for a credential.
type Authenticator interface {
	AccessToken(ctx context.Context, cred *credential.Credential) (string, error)
}

// Repository is the remote backup store.
type Repository interface {
	List(ctx context.Context, containerID, token string) ([]models.BackupRecord, error)
	GetLatest(ctx context.Context, containerID, token string) (*models.BackupRecord, error)
	Upload(ctx context.Context, containerID, token string, payload []byte) (*models.BackupRecord, error)
	Download(ctx context.Context, containerID, token, fileID string) (json.RawMessage, error)
}

// LastSyncStore persists the time of the last successful sync.
type LastSyncStore interface {
	SaveLastSync(ctx context.Context, t time.Time) error
}

// BackupService is the only entry point the rest of the client uses for
// cloud backups.
//
// Contract:
//   - Operations never return errors. Failures are reported through the
//     bool / nil result and can be inspected with LastError and
//     LastErrorMessage until the next operation starts.
//   - Without a container id and a well-formed key every operation fails
//     with cloud.ErrNotConfigured before any network call, and
//     ListCloudBackups returns an empty list.
//   - Every operation obtains a fresh access token.
//   - Concurrent operations are not serialized; the last one to finish
//     decides LastSync and LastError.
type BackupService interface {
	IsConfigured() bool
	TestConnection(ctx context.Context) bool
	ExportToCloud(ctx context.Context, data map[string]json.RawMessage) bool
	ImportFromCloud(ctx context.Context) (*models.Snapshot, bool)
	ImportSpecific(ctx context.Context, fileID string) (*models.Snapshot, bool)
	ListCloudBackups(ctx context.Context) []models.BackupRecord
	LastError() error
	LastErrorMessage() string
}

// BackupOption configures a BackupService.
type BackupOption func(*backupService)

// WithBackupClock replaces time.Now for snapshot timestamps and LastSync.
func WithBackupClock(now func() time.Time) BackupOption {
	return func(s *backupService) {
		s.now = now
	}
}

type backupService struct {
	cfg    *models.SyncConfig
	store  LastSyncStore
	auth   Authenticator
	repo   Repository
	logger logging.Logger
	now    func() time.Time

	// mu guards cfg.LastSync and lastErr against torn reads.
	mu      sync.Mutex
	lastErr error
}

// NewBackupService builds the orchestrator around cfg. The caller keeps
// ownership of cfg; the service reads the container id and key from it at
// the start of every operation and writes LastSync after a successful
// export or import.
func NewBackupService(cfg *models.SyncConfig, store LastSyncStore, auth Authenticator, repo Repository, logger logging.Logger, opts ...BackupOption) BackupService {
	s := &backupService{
		cfg:    cfg,
		store:  store,
		auth:   auth,
		repo:   repo,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// target is the per-operation view of the configuration.
type target struct {
	containerID string
	cred        *credential.Credential
	token       string
}

func (s *backupService) IsConfigured() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.IsConfigured()
}

func (s *backupService) TestConnection(ctx context.Context) bool {
	return s.run(ctx, "test_connection", func(ctx context.Context, log logging.Logger) error {
		t, err := s.authorize(ctx)
		if err != nil {
			return err
		}
		records, err := s.repo.List(ctx, t.containerID, t.token)
		if err != nil {
			return err
		}
		log.Info(ctx, "connection ok", "identity", t.cred.Identity(), "backups", len(records))
		return nil
	})
}

func (s *backupService) ExportToCloud(ctx context.Context, data map[string]json.RawMessage) bool {
	return s.run(ctx, "export", func(ctx context.Context, log logging.Logger) error {
		t, err := s.authorize(ctx)
		if err != nil {
			return err
		}

		snapshot := models.NewSnapshot(data, s.now())
		payload, err := json.Marshal(snapshot)
		if err != nil {
			return fmt.Errorf("%w: encoding snapshot: %v", cloud.ErrUpload, err)
		}

		rec, err := s.repo.Upload(ctx, t.containerID, t.token, payload)
		if err != nil {
			return err
		}

		log.Info(ctx, "backup uploaded", "file", rec.Name, "file_id", rec.ID, "bytes", len(payload), "collections", len(snapshot.Data))
		s.markSynced(ctx, log)
		return nil
	})
}

func (s *backupService) ImportFromCloud(ctx context.Context) (*models.Snapshot, bool) {
	var snapshot *models.Snapshot
	ok := s.run(ctx, "import_latest", func(ctx context.Context, log logging.Logger) error {
		t, err := s.authorize(ctx)
		if err != nil {
			return err
		}

		latest, err := s.repo.GetLatest(ctx, t.containerID, t.token)
		if err != nil {
			return err
		}
		if latest == nil {
			return cloud.ErrNoBackupFound
		}
		log.Debug(ctx, "latest backup selected", "file", latest.Name, "file_id", latest.ID, "modified", latest.ModifiedTime)

		snapshot, err = s.download(ctx, log, t, latest.ID)
		if err != nil {
			return err
		}

		s.markSynced(ctx, log)
		return nil
	})
	if !ok {
		return nil, false
	}
	return snapshot, true
}

// ImportSpecific downloads fileID. Unlike ImportFromCloud it leaves
// LastSync untouched.
func (s *backupService) ImportSpecific(ctx context.Context, fileID string) (*models.Snapshot, bool) {
	var snapshot *models.Snapshot
	ok := s.run(ctx, "import_specific", func(ctx context.Context, log logging.Logger) error {
		t, err := s.authorize(ctx)
		if err != nil {
			return err
		}

		snapshot, err = s.download(ctx, log, t, fileID)
		return err
	})
	if !ok {
		return nil, false
	}
	return snapshot, true
}

func (s *backupService) ListCloudBackups(ctx context.Context) []models.BackupRecord {
	records := []models.BackupRecord{}
	s.run(ctx, "list", func(ctx context.Context, log logging.Logger) error {
		t, err := s.authorize(ctx)
		if err != nil {
			return err
		}

		listed, err := s.repo.List(ctx, t.containerID, t.token)
		if err != nil {
			return err
		}
		records = listed
		log.Debug(ctx, "backups listed", "count", len(records))
		return nil
	})
	return records
}

func (s *backupService) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// LastErrorMessage returns the most specific description of the last
// failure, or "" after a success.
func (s *backupService) LastErrorMessage() string {
	return cloud.Detail(s.LastError())
}

// run executes one operation with its own operation id, converting the
// returned error into the bool contract.
func (s *backupService) run(ctx context.Context, op string, fn func(context.Context, logging.Logger) error) bool {
	log := s.logger.With("op", op, "op_id", uuid.NewString())
	started := s.now()

	s.setLastError(nil)
	log.Debug(ctx, "operation started")

	if err := fn(ctx, log); err != nil {
		s.setLastError(err)
		if errors.Is(err, cloud.ErrNotConfigured) || errors.Is(err, cloud.ErrNoBackupFound) {
			log.Warn(ctx, "operation skipped", "reason", err.Error())
		} else {
			log.Error(ctx, "operation failed", "error", err, "detail", cloud.Detail(err))
		}
		return false
	}

	log.Info(ctx, "operation succeeded", "elapsed", s.now().Sub(started))
	return true
}

// authorize checks the configuration and obtains a bearer token.
func (s *backupService) authorize(ctx context.Context) (*target, error) {
	s.mu.Lock()
	containerID := s.cfg.ContainerID
	rawKey := s.cfg.ServiceAccountKey
	configured := s.cfg.IsConfigured()
	s.mu.Unlock()

	if !configured {
		return nil, fmt.Errorf("%w: container id and service account key are required", cloud.ErrNotConfigured)
	}

	cred, err := credential.Parse([]byte(rawKey))
	if err != nil {
		return nil, err
	}

	token, err := s.auth.AccessToken(ctx, cred)
	if err != nil {
		return nil, err
	}

	return &target{containerID: containerID, cred: cred, token: token}, nil
}

func (s *backupService) download(ctx context.Context, log logging.Logger, t *target, fileID string) (*models.Snapshot, error) {
	raw, err := s.repo.Download(ctx, t.containerID, t.token, fileID)
	if err != nil {
		return nil, err
	}

	var snapshot models.Snapshot
	if err := json.Unmarshal(raw, &snapshot); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", cloud.ErrInvalidSnapshot, fileID, err)
	}
	if snapshot.Version != models.SnapshotVersion {
		log.Warn(ctx, "unexpected snapshot version", "file_id", fileID, "version", snapshot.Version)
	}

	log.Info(ctx, "backup downloaded", "file_id", fileID, "bytes", len(raw), "collections", len(snapshot.Data), "exported_at", snapshot.ExportedAt)
	return &snapshot, nil
}

// markSynced records the current time as LastSync. A persistence failure
// is logged; the in-memory value is updated regardless.
func (s *backupService) markSynced(ctx context.Context, log logging.Logger) {
	now := s.now().UTC()

	s.mu.Lock()
	s.cfg.LastSync = &now
	s.mu.Unlock()

	if err := s.store.SaveLastSync(ctx, now); err != nil {
		log.Warn(ctx, "failed to persist last sync time", "error", err)
	}
}

func (s *backupService) setLastError(err error) {
	s.mu.Lock()
	s.lastErr = err
	s.mu.Unlock()
}
