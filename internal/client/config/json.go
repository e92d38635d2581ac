package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/garagekeeper/internal/flagx"
	"github.com/dmitrijs2005/garagekeeper/internal/timex"
)

// JsonConfig is the on-disk form of Config. Absent fields keep the value
// already in Config; http_timeout accepts "30s" or nanoseconds.
type JsonConfig struct {
	DatabasePath      *string         `json:"database_path"`
	APIBaseURL        *string         `json:"api_base_url"`
	Scope             *string         `json:"scope"`
	HTTPTimeout       *timex.Duration `json:"http_timeout"`
	RequestsPerSecond *int            `json:"requests_per_second"`
	BackupSchedule    *string         `json:"backup_schedule"`
	LogLevel          *string         `json:"log_level"`
}

// parseJson overlays cfg with the JSON file named by -c/-config in args.
// Without that flag it does nothing.
func parseJson(cfg *Config, args []string) error {
	path := flagx.ConfigPath(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	jc.apply(cfg)
	return nil
}

func (jc *JsonConfig) apply(cfg *Config) {
	setIf(&cfg.DatabasePath, jc.DatabasePath)
	setIf(&cfg.APIBaseURL, jc.APIBaseURL)
	setIf(&cfg.Scope, jc.Scope)
	setIf(&cfg.RequestsPerSecond, jc.RequestsPerSecond)
	setIf(&cfg.BackupSchedule, jc.BackupSchedule)
	setIf(&cfg.LogLevel, jc.LogLevel)
	if jc.HTTPTimeout != nil {
		cfg.HTTPTimeout = jc.HTTPTimeout.Duration
	}
}

func setIf[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}
