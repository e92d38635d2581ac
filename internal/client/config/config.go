package config

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/garagekeeper/internal/client/scheduler"
	"github.com/dmitrijs2005/garagekeeper/internal/cloud/assertion"
	"github.com/dmitrijs2005/garagekeeper/internal/cloud/drive"
	"github.com/dmitrijs2005/garagekeeper/internal/common"
	"github.com/go-playground/validator/v10"
)

// Config holds runtime settings of the GarageKeeper client.
//
// HTTPTimeout bounds every token, list, upload and download request.
// RequestsPerSecond limits calls to the files API (0 disables the limit).
// An empty BackupSchedule disables automatic backups.
type Config struct {
	DatabasePath      string        `validate:"required"`
	APIBaseURL        string        `validate:"required,url"`
	Scope             string        `validate:"required"`
	HTTPTimeout       time.Duration `validate:"gt=0"`
	RequestsPerSecond int           `validate:"gte=0"`
	BackupSchedule    string
	LogLevel          string `validate:"oneof=debug info warn error"`
}

// LoadDefaults populates c with the built-in defaults.
func (c *Config) LoadDefaults() {
	c.DatabasePath = common.DefaultDatabaseFile
	c.APIBaseURL = drive.DefaultBaseURL
	c.Scope = assertion.DefaultScope
	c.HTTPTimeout = 30 * time.Second
	c.RequestsPerSecond = drive.DefaultRequestsPerSecond
	c.BackupSchedule = "@daily"
	c.LogLevel = "info"
}

// Validate checks field constraints and the backup schedule syntax.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("%w: %v", common.ErrorInvalidInput, err)
	}
	if c.BackupSchedule != "" {
		if err := scheduler.Validate(c.BackupSchedule); err != nil {
			return fmt.Errorf("%w: %v", common.ErrorInvalidInput, err)
		}
	}
	return nil
}

// Load builds a Config from defaults, then the JSON file named by -c or
// -config, then the remaining flags; later sources win. args excludes the
// program name.
func Load(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if err := parseJson(cfg, args); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
