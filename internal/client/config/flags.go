package config

import (
	"flag"
	"fmt"
	"io"

	"github.com/dmitrijs2005/garagekeeper/internal/flagx"
)

var knownFlags = []string{"-d", "-u", "-s", "-t", "-r", "-b", "-l"}

// parseFlags overlays cfg with command-line flags:
//
//	-d string    path of the local database file
//	-u string    base URL of the files API
//	-s string    OAuth scope requested for the service account
//	-t duration  timeout of a single HTTP request (e.g. 30s)
//	-r int       max files API requests per second, 0 for unlimited
//	-b string    cron schedule of automatic backups, "" to disable
//	-l string    log level: debug, info, warn, error
//
// Arguments not in this list (including -c/-config) are ignored.
func parseFlags(cfg *Config, args []string) error {
	fs := flag.NewFlagSet("garagekeeper", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.DatabasePath, "d", cfg.DatabasePath, "path of the local database file")
	fs.StringVar(&cfg.APIBaseURL, "u", cfg.APIBaseURL, "base URL of the files API")
	fs.StringVar(&cfg.Scope, "s", cfg.Scope, "OAuth scope")
	fs.DurationVar(&cfg.HTTPTimeout, "t", cfg.HTTPTimeout, "HTTP request timeout")
	fs.IntVar(&cfg.RequestsPerSecond, "r", cfg.RequestsPerSecond, "files API requests per second")
	fs.StringVar(&cfg.BackupSchedule, "b", cfg.BackupSchedule, "automatic backup cron schedule")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")

	if err := fs.Parse(flagx.FilterArgs(args, knownFlags)); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}
	return nil
}
