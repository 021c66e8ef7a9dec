// Package config loads runtime settings from the environment and an optional
// .env file.
package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"

	"github.com/byway-lms/byway-admin/pkg/session"
)

// DirName is the config directory created under the user's home.
const DirName = ".byway-admin"

// LogFileName is where the dashboard logs while it owns the terminal.
const LogFileName = "byway-admin.log"

// Config holds runtime configuration for the admin console.
type Config struct {
	APIURL         string        `env:"BYWAY_API_URL,default=https://kamalalgointern-001-site1.qtempurl.com/api"`
	GoogleClientID string        `env:"BYWAY_GOOGLE_CLIENT_ID"`
	Dir            string        `env:"BYWAY_CONFIG_DIR"`
	HTTPTimeout    time.Duration `env:"BYWAY_HTTP_TIMEOUT,default=30s"`
	DevBypassAuth  bool          `env:"BYWAY_DEV_BYPASS_AUTH,default=false"`
	LogLevel       string        `env:"BYWAY_LOG_LEVEL,default=info"`
	LogFormat      string        `env:"BYWAY_LOG_FORMAT,default=console"`
	OTLPEndpoint   string        `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	MetricsAddr    string        `env:"BYWAY_METRICS_ADDR"`
}

// Load reads envFiles (".env" when none are given) into the process
// environment, then populates a Config from it. Missing env files are ignored.
func Load(ctx context.Context, envFiles ...string) (Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("config.Load: %w", err)
	}
	return LoadFrom(ctx, envconfig.OsLookuper())
}

// LoadFrom populates a Config from l and fills in the derived defaults.
func LoadFrom(ctx context.Context, l envconfig.Lookuper) (Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return Config{}, fmt.Errorf("config.Load: %w", err)
	}
	if cfg.Dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Config{}, fmt.Errorf("config.Load: home dir: %w", err)
		}
		cfg.Dir = filepath.Join(home, DirName)
	}
	if cfg.HTTPTimeout <= 0 {
		return Config{}, fmt.Errorf("config.Load: BYWAY_HTTP_TIMEOUT must be positive, got %s", cfg.HTTPTimeout)
	}
	return cfg, nil
}

// TokenPath is the file holding the session token.
func (c Config) TokenPath() string {
	return filepath.Join(c.Dir, session.TokenFileName)
}

// LogPath is the dashboard's log file.
func (c Config) LogPath() string {
	return filepath.Join(c.Dir, LogFileName)
}
