package cli

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/dmitrijs2005/garagekeeper/internal/client/config"
	"github.com/dmitrijs2005/garagekeeper/internal/client/models"
	"github.com/dmitrijs2005/garagekeeper/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/garagekeeper/internal/client/scheduler"
	"github.com/dmitrijs2005/garagekeeper/internal/client/services"
	"github.com/dmitrijs2005/garagekeeper/internal/client/storage"
	"github.com/dmitrijs2005/garagekeeper/internal/cloud/assertion"
	"github.com/dmitrijs2005/garagekeeper/internal/cloud/drive"
	"github.com/dmitrijs2005/garagekeeper/internal/cloud/token"
	"github.com/dmitrijs2005/garagekeeper/internal/common"
	"github.com/dmitrijs2005/garagekeeper/internal/logging"
)

// backupScheduler is the part of *scheduler.Scheduler the CLI drives.
type backupScheduler interface {
	Start(schedule string) error
	Stop()
	Next() time.Time
}

// App holds the wired services behind the REPL.
type App struct {
	config     *config.Config
	db         *sql.DB
	syncConfig *models.SyncConfig

	settings  services.SettingsService
	snapshots services.SnapshotService
	backups   services.BackupService
	scheduler backupScheduler

	logger logging.Logger
	reader *bufio.Reader
	out    io.Writer
}

// NewApp opens the local database, loads the stored sync configuration and
// wires the cloud backup chain according to cfg.
func NewApp(ctx context.Context, cfg *config.Config, logger logging.Logger) (*App, error) {
	db, err := storage.InitDatabase(ctx, cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("init database %s: %w", cfg.DatabasePath, err)
	}

	settings := services.NewSettingsService(metadata.NewSQLiteRepository(db))
	syncConfig, err := settings.Load(ctx)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}

	auth := token.NewAuthenticator(assertion.NewBuilder(cfg.Scope), token.NewExchanger(httpClient))
	repo := drive.NewRepository(
		drive.WithBaseURL(cfg.APIBaseURL),
		drive.WithHTTPClient(httpClient),
		drive.WithRateLimit(cfg.RequestsPerSecond),
	)

	snapshots := services.NewSnapshotService(db, logger.With("component", "snapshots"))
	backups := services.NewBackupService(syncConfig, settings, auth, repo, logger.With("component", "backup"))

	sched := scheduler.New(services.NewAutoBackupJob(snapshots, backups), logger.With("component", "scheduler"))
	sched.SetJobTimeout(10 * cfg.HTTPTimeout)

	return &App{
		config:     cfg,
		db:         db,
		syncConfig: syncConfig,
		settings:   settings,
		snapshots:  snapshots,
		backups:    backups,
		scheduler:  sched,
		logger:     logger,
		reader:     bufio.NewReader(os.Stdin),
		out:        os.Stdout,
	}, nil
}

// Run starts the REPL and blocks until the user exits or stdin is closed.
func (a *App) Run(ctx context.Context) {
	fmt.Fprintf(a.out, "Welcome to %s (type 'help' for commands)\n", common.AppName)
	if !a.backups.IsConfigured() {
		fmt.Fprintln(a.out, "Cloud backup is not configured yet; run 'configure'.")
	}
	runREPL(ctx, a, a.prompt, a.reader, a.out)
}

// Close stops the scheduler and closes the database.
func (a *App) Close() error {
	if a.scheduler != nil {
		a.scheduler.Stop()
	}
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}

func (a *App) prompt() string {
	if !isTerminal() {
		return ""
	}
	state := "not configured"
	if a.backups.IsConfigured() {
		state = "cloud"
	}
	return fmt.Sprintf("gk (%s)> ", state)
}
