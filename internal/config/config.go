// Package config loads process-level configuration from the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

const defaultDataDir = "/home/arduino/data"

// Config holds process-level configuration, as opposed to the planner's own
// PlannerConfiguration (a frozen, validated record consumed only by the
// orchestrator; see internal/planner/domain).
type Config struct {
	// DataDir is the directory holding the planner SQLite file. Always an
	// absolute path.
	DataDir string

	// LogLevel is the zerolog level name ("debug", "info", "warn", "error").
	LogLevel string
}

// Load reads configuration from the environment, applying an optional .env
// file first. TRADER_DATA_DIR is the current variable; the legacy DATA_DIR
// name is intentionally ignored so a stale deployment environment can't
// silently redirect storage. An optional cliDataDir argument (e.g. from a
// -data-dir flag) takes precedence over both; an empty string is treated as
// not given.
func Load(cliDataDir ...string) (*Config, error) {
	_ = godotenv.Load()

	var dataDir string
	if len(cliDataDir) > 0 && cliDataDir[0] != "" {
		dataDir = cliDataDir[0]
	} else {
		dataDir = os.Getenv("TRADER_DATA_DIR")
	}
	if dataDir == "" {
		dataDir = defaultDataDir
	}

	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory to absolute path: %w", err)
	}

	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}

	return &Config{
		DataDir:  absDataDir,
		LogLevel: logLevel,
	}, nil
}

// PlannerDBPath returns the path to the planner's SQLite database file.
func (c *Config) PlannerDBPath() string {
	return filepath.Join(c.DataDir, "planner.db")
}
