package services

import (
	"context"
	"fmt"
)

// NewAutoBackupJob returns the job run by the backup scheduler: capture
// the local collections and export them. A failed export is returned as
// an error carrying the orchestrator's last error.
func NewAutoBackupJob(snapshots SnapshotService, backups BackupService) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		data, err := snapshots.Capture(ctx)
		if err != nil {
			return err
		}
		if !backups.ExportToCloud(ctx, data) {
			return fmt.Errorf("export: %w", backups.LastError())
		}
		return nil
	}
}
