// Package config loads server configuration from environment variables (via
// viper) and an optional .taskorchestrator/config.yaml file (via yaml.v3),
// the same split the teacher's internal/config package makes between
// process-level settings and project-level YAML.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds every process-level setting read at startup.
type Config struct {
	DatabasePath        string
	UseFlyway           bool
	AgentConfigDir      string
	LogLevel            string
	DatabaseMaxConns    int
	DatabaseShowSQL     bool
	BusyTimeout         time.Duration
	MetricsEnabled      bool
	NoteSchemaPath      string
	AutoCascade         bool
	AutoCascadeMaxDepth int
	CompletionCleanup   CompletionCleanupConfig
}

// Load reads environment variables with defaults, the way the teacher's
// internal/config package wraps a package-level viper instance with
// GetString/GetBool helpers. It does not read config.yaml; call
// LoadFileConfig separately once AgentConfigDir is known.
func Load() *Config {
	v := viper.New()
	v.SetEnvPrefix("")
	v.AutomaticEnv()

	v.SetDefault("DATABASE_PATH", "data/current-tasks.db")
	v.SetDefault("AGENT_CONFIG_DIR", ".")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DATABASE_MAX_CONNECTIONS", 1)
	v.SetDefault("DATABASE_SHOW_SQL", false)
	v.SetDefault("BUSY_TIMEOUT_MS", 5000)
	v.SetDefault("METRICS_ENABLED", false)
	v.SetDefault("USE_FLYWAY", true)

	return &Config{
		DatabasePath:        v.GetString("DATABASE_PATH"),
		UseFlyway:           v.GetBool("USE_FLYWAY"),
		AgentConfigDir:      v.GetString("AGENT_CONFIG_DIR"),
		LogLevel:            v.GetString("LOG_LEVEL"),
		DatabaseMaxConns:    v.GetInt("DATABASE_MAX_CONNECTIONS"),
		DatabaseShowSQL:     v.GetBool("DATABASE_SHOW_SQL"),
		BusyTimeout:         time.Duration(v.GetInt("BUSY_TIMEOUT_MS")) * time.Millisecond,
		MetricsEnabled:      v.GetBool("METRICS_ENABLED") || v.GetString("LOG_LEVEL") == "debug",
		AutoCascade:         true,
		AutoCascadeMaxDepth: 3,
		CompletionCleanup:   CompletionCleanupConfig{Enabled: true},
	}
}

// FindConfigYaml walks from dir looking for .taskorchestrator/config.yaml,
// mirroring the teacher's findProjectConfigYaml walk-up-to-root pattern, but
// bounded at dir itself: this server has no project-root git concept to
// anchor an upward walk, so only dir is checked.
func FindConfigYaml(dir string) (string, error) {
	path := filepath.Join(dir, ".taskorchestrator", "config.yaml")
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("no .taskorchestrator/config.yaml under %s: %w", dir, err)
	}
	return path, nil
}
