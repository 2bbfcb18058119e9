package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

// fileConfig mirrors SyncConfig's shape for TOML decoding; field names are
// kept close to SyncConfig so Load can copy them over directly.
type fileConfig struct {
	SourceURL         string   `toml:"source_url"`
	TargetURL         string   `toml:"target_url"`
	IntervalMinutes   int      `toml:"interval_minutes"`
	ExcludeTables     []string `toml:"exclude_tables"`
	MaxParallelTables int      `toml:"max_parallel_tables"`
	SourceSSLEnabled  *bool    `toml:"source_ssl_enabled"`
	TargetSSLEnabled  *bool    `toml:"target_ssl_enabled"`
	TempRoot          string   `toml:"temp_root"`

	ProgressServer struct {
		Enabled    bool   `toml:"enabled"`
		ListenAddr string `toml:"listen_addr"`
		AuthToken  string `toml:"auth_token"`
	} `toml:"progress_server"`
}

// Load reads a SyncConfig from a TOML file (if path is non-empty),
// applies DBSYNC_* environment overrides on top, and returns the result
// without validating it — callers call Validate() themselves so that CLI
// flag overrides can still be layered on afterward.
func Load(path string) (SyncConfig, error) {
	cfg := Defaults()

	if path != "" {
		var fc fileConfig
		if _, err := toml.DecodeFile(path, &fc); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
		applyFileConfig(&cfg, fc)
	}

	applyEnvOverrides(&cfg)

	return cfg, nil
}

func applyFileConfig(cfg *SyncConfig, fc fileConfig) {
	if fc.SourceURL != "" {
		cfg.SourceURL = fc.SourceURL
	}
	if fc.TargetURL != "" {
		cfg.TargetURL = fc.TargetURL
	}
	if fc.IntervalMinutes != 0 {
		cfg.IntervalMinutes = fc.IntervalMinutes
	}
	if fc.ExcludeTables != nil {
		cfg.ExcludeTables = fc.ExcludeTables
	}
	if fc.MaxParallelTables != 0 {
		cfg.MaxParallelTables = fc.MaxParallelTables
	}
	if fc.SourceSSLEnabled != nil {
		cfg.SourceSSLEnabled = *fc.SourceSSLEnabled
	}
	if fc.TargetSSLEnabled != nil {
		cfg.TargetSSLEnabled = *fc.TargetSSLEnabled
	}
	if fc.TempRoot != "" {
		cfg.TempRoot = fc.TempRoot
	}
	cfg.ProgressServer.Enabled = fc.ProgressServer.Enabled || cfg.ProgressServer.Enabled
	if fc.ProgressServer.ListenAddr != "" {
		cfg.ProgressServer.ListenAddr = fc.ProgressServer.ListenAddr
	}
	if fc.ProgressServer.AuthToken != "" {
		cfg.ProgressServer.AuthToken = fc.ProgressServer.AuthToken
	}
}

// applyEnvOverrides layers DBSYNC_* environment variables over cfg. Env
// overrides sit between the config file and CLI flags in precedence.
func applyEnvOverrides(cfg *SyncConfig) {
	if v := os.Getenv("DBSYNC_SOURCE_URL"); v != "" {
		cfg.SourceURL = v
	}
	if v := os.Getenv("DBSYNC_TARGET_URL"); v != "" {
		cfg.TargetURL = v
	}
	if v := os.Getenv("DBSYNC_INTERVAL_MINUTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.IntervalMinutes = n
		}
	}
	if v := os.Getenv("DBSYNC_MAX_PARALLEL_TABLES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxParallelTables = n
		}
	}
	if v := os.Getenv("DBSYNC_EXCLUDE_TABLES"); v != "" {
		cfg.ExcludeTables = strings.Split(v, ",")
	}
	if v := os.Getenv("DBSYNC_SOURCE_SSL"); v != "" {
		cfg.SourceSSLEnabled = parseBool(v, cfg.SourceSSLEnabled)
	}
	if v := os.Getenv("DBSYNC_TARGET_SSL"); v != "" {
		cfg.TargetSSLEnabled = parseBool(v, cfg.TargetSSLEnabled)
	}
}

func parseBool(v string, fallback bool) bool {
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
