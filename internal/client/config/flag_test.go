package config

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    *Config
		wantErr bool
	}{
		{
			name: "all flags",
			args: []string{"-d", "/tmp/g.db", "-u", "http://127.0.0.1:9000", "-s", "scope-x", "-t", "5s", "-r", "0", "-b", "0 2 * * *", "-l", "debug"},
			want: &Config{
				DatabasePath:      "/tmp/g.db",
				APIBaseURL:        "http://127.0.0.1:9000",
				Scope:             "scope-x",
				HTTPTimeout:       5 * time.Second,
				RequestsPerSecond: 0,
				BackupSchedule:    "0 2 * * *",
				LogLevel:          "debug",
			},
		},
		{
			name: "unknown flags and config flag are ignored",
			args: []string{"-c", "cfg.json", "-x", "1", "-l=warn"},
			want: &Config{LogLevel: "warn"},
		},
		{name: "bad duration", args: []string{"-t", "abc"}, wantErr: true},
		{name: "bad int", args: []string{"-r", "many"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{}
			err := parseFlags(cfg, tt.args)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, cfg); diff != "" {
				t.Fatalf("config mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
