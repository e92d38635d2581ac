package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/dmitrijs2005/garagekeeper/internal/client/models"
	"github.com/dmitrijs2005/garagekeeper/internal/client/scheduler"
	"github.com/dmitrijs2005/garagekeeper/internal/client/services"
	"github.com/dmitrijs2005/garagekeeper/internal/cloud"
	"github.com/dmitrijs2005/garagekeeper/internal/filex"
)

const (
	maxKeyFileSize        = 64 << 10
	maxCollectionFileSize = 32 << 20
	timeLayout            = "2006-01-02 15:04:05 MST"
)

// Status prints the sync configuration without revealing the key.
func (a *App) Status(ctx context.Context) error {
	cfg := a.syncConfig

	containerID := cfg.ContainerID
	if containerID == "" {
		containerID = "(not set)"
	}

	key := "(not set)"
	if cfg.ServiceAccountKey != "" {
		if cred, err := cfg.Credential(); err == nil {
			key = cred.Identity()
		} else {
			key = "(invalid)"
		}
	}

	lastSync := "never"
	if cfg.LastSync != nil {
		lastSync = cfg.LastSync.Local().Format(timeLayout)
	}

	fmt.Fprintf(a.out, "Configured:      %t\n", a.backups.IsConfigured())
	fmt.Fprintf(a.out, "Backup folder:   %s\n", containerID)
	fmt.Fprintf(a.out, "Service account: %s\n", key)
	fmt.Fprintf(a.out, "Last sync:       %s\n", lastSync)
	fmt.Fprintf(a.out, "Schedule:        %s\n", scheduleText(a.config.BackupSchedule))
	return nil
}

// Configure asks for the folder id and the path of a service account key
// file. Empty answers keep the current values.
func (a *App) Configure(ctx context.Context) error {
	containerID, err := GetTextWithDefault(a.reader, "Backup folder id", a.syncConfig.ContainerID, a.out)
	if err != nil {
		return err
	}
	if err := a.settings.SetContainerID(ctx, a.syncConfig, containerID); err != nil {
		return err
	}

	prompt := "Path to service account key file"
	if a.syncConfig.ServiceAccountKey != "" {
		prompt += " (empty keeps the current key)"
	}
	path, err := GetSimpleText(a.reader, prompt, a.out)
	if err != nil {
		return err
	}

	if path != "" {
		raw, err := filex.ReadLimited(path, maxKeyFileSize)
		if err != nil {
			return err
		}
		if err := a.settings.SetServiceAccountKey(ctx, a.syncConfig, string(raw)); err != nil {
			return err
		}
	} else if a.syncConfig.ServiceAccountKey == "" {
		fmt.Fprintln(a.out, "No service account key set; cloud backup stays disabled.")
		return nil
	}

	fmt.Fprintln(a.out, "Sync settings saved. Run 'test' to check access.")
	return nil
}

func (a *App) Test(ctx context.Context) error {
	if !a.backups.TestConnection(ctx) {
		return a.backupFailure("connection test")
	}
	fmt.Fprintln(a.out, "Connection OK.")
	return nil
}

// Export uploads the current local data.
func (a *App) Export(ctx context.Context) error {
	data, err := a.snapshots.Capture(ctx)
	if err != nil {
		return err
	}
	if !a.backups.ExportToCloud(ctx, data) {
		return a.backupFailure("export")
	}
	fmt.Fprintln(a.out, "Backup uploaded.")
	return nil
}

// Import downloads the latest backup, or fileID when given, and replaces
// the local data after confirmation.
func (a *App) Import(ctx context.Context, fileID string) error {
	var (
		snapshot *models.Snapshot
		ok       bool
	)
	if fileID == "" {
		snapshot, ok = a.backups.ImportFromCloud(ctx)
	} else {
		snapshot, ok = a.backups.ImportSpecific(ctx, fileID)
	}
	if !ok {
		if errors.Is(a.backups.LastError(), cloud.ErrNoBackupFound) {
			fmt.Fprintln(a.out, "No backups found in the cloud folder.")
			return nil
		}
		return a.backupFailure("import")
	}

	fmt.Fprintf(a.out, "Backup from %s (version %s)\n", snapshot.ExportedAt.Local().Format(timeLayout), snapshot.Version)
	for _, line := range summarize(snapshot.Data) {
		fmt.Fprintln(a.out, "  "+line)
	}

	yes, err := Confirm(a.reader, "Replace ALL local data with this backup?", a.out)
	if err != nil {
		return err
	}
	if !yes {
		fmt.Fprintln(a.out, "Import cancelled; local data unchanged.")
		return nil
	}

	if err := a.snapshots.Restore(ctx, snapshot); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Local data restored.")
	return nil
}

// List prints the cloud backups, newest first.
func (a *App) List(ctx context.Context) error {
	records := a.backups.ListCloudBackups(ctx)
	if err := a.backups.LastError(); err != nil {
		return a.backupFailure("list")
	}
	if len(records) == 0 {
		fmt.Fprintln(a.out, "No backups found.")
		return nil
	}

	tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tMODIFIED\tID")
	for _, r := range records {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", r.Name, r.ModifiedTime.Local().Format(timeLayout), r.ID)
	}
	return tw.Flush()
}

// Load replaces one local collection with the JSON document in path.
func (a *App) Load(ctx context.Context, collection, path string) error {
	raw, err := filex.ReadLimited(path, maxCollectionFileSize)
	if err != nil {
		return err
	}
	if err := a.snapshots.Put(ctx, collection, raw); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Collection %s loaded (%d bytes).\n", collection, len(raw))
	return nil
}

func (a *App) Reset(ctx context.Context) error {
	yes, err := Confirm(a.reader, "Forget the backup folder, key and last sync time?", a.out)
	if err != nil {
		return err
	}
	if !yes {
		fmt.Fprintln(a.out, "Reset cancelled.")
		return nil
	}
	if err := a.settings.Reset(ctx, a.syncConfig); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Sync settings cleared.")
	return nil
}

// Watch runs scheduled backups until ctx is done or the process receives
// an interrupt.
func (a *App) Watch(ctx context.Context) error {
	if !a.backups.IsConfigured() {
		return fmt.Errorf("%w: run 'configure' first", cloud.ErrNotConfigured)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.scheduler.Start(a.config.BackupSchedule); err != nil {
		if errors.Is(err, scheduler.ErrDisabled) {
			fmt.Fprintln(a.out, "Automatic backups are disabled; set a schedule with -b.")
			return nil
		}
		return err
	}
	defer a.scheduler.Stop()

	fmt.Fprintf(a.out, "Watching (%s), next backup at %s. Press Ctrl+C to stop.\n",
		a.config.BackupSchedule, a.scheduler.Next().Local().Format(timeLayout))

	<-ctx.Done()
	fmt.Fprintln(a.out, "Watch stopped.")
	return nil
}

func (a *App) backupFailure(op string) error {
	msg := a.backups.LastErrorMessage()
	if msg == "" {
		msg = "unknown error"
	}
	return fmt.Errorf("%s failed: %s", op, msg)
}

func scheduleText(schedule string) string {
	if schedule == "" {
		return "disabled"
	}
	return schedule
}

// summarize describes each collection of data, known collections first.
func summarize(data map[string]json.RawMessage) []string {
	var lines []string
	seen := make(map[string]bool, len(data))

	for _, c := range services.Collections {
		seen[c.Name] = true
		raw, ok := data[c.Name]
		if !ok {
			lines = append(lines, fmt.Sprintf("%s: missing", c.Name))
			continue
		}
		lines = append(lines, fmt.Sprintf("%s: %s", c.Name, describeValue(raw)))
	}

	var unknown []string
	for k := range data {
		if !seen[k] {
			unknown = append(unknown, k)
		}
	}
	sort.Strings(unknown)
	if len(unknown) > 0 {
		lines = append(lines, "ignored: "+strings.Join(unknown, ", "))
	}
	return lines
}

func describeValue(raw json.RawMessage) string {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err == nil {
		return fmt.Sprintf("%d items", len(items))
	}
	return "present"
}

