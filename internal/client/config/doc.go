// Package config loads runtime configuration for the GarageKeeper client.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected with -c or -config.
//  3. Command-line flags, which override earlier values.
//
// Supported flags
//
//	-d string    local database file (default data/garage.db)
//	-u string    files API base URL
//	-s string    OAuth scope for the service account
//	-t duration  HTTP request timeout (default 30s)
//	-r int       files API requests per second (default 5, 0 = unlimited)
//	-b string    automatic backup cron schedule (default @daily, "" = off)
//	-l string    log level (default info)
//
// # JSON schema
//
//	{
//	  "database_path": "/var/lib/garagekeeper/garage.db",
//	  "api_base_url": "https://www.googleapis.com",
//	  "scope": "https://www.googleapis.com/auth/drive.file",
//	  "http_timeout": "45s",
//	  "requests_per_second": 5,
//	  "backup_schedule": "0 2 * * *",
//	  "log_level": "debug"
//	}
//
// The sync target itself (container id and service-account key) is not
// part of this file; it is stored in the local database by the configure
// command.
package config
