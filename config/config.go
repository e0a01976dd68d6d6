/*
Package config loads service configuration.

SOURCES (later wins):
  1. DefaultConfig()
  2. TOML file (optional, e.g. commission.toml)
  3. .env in the working directory (optional)
  4. COMMISSION_* environment variables

EXAMPLE FILE:
  [server]
  host = "0.0.0.0"
  port = 8080
  shutdown_timeout = "30s"
  cors_origins = ["http://localhost:5173"]
  uploads_per_minute = 30   # 0 disables upload rate limiting

  [database]
  path = "./data/commission.db"

  [policy]
  file = "./policy.yaml"   # replaces the built-in default policy

  [log]
  level = "info"
  development = false
*/
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// Environment variables that override the file.
const (
	EnvHost       = "COMMISSION_HOST"
	EnvPort       = "COMMISSION_PORT"
	EnvDB         = "COMMISSION_DB"
	EnvPolicyFile = "COMMISSION_POLICY_FILE"
	EnvLogLevel   = "COMMISSION_LOG_LEVEL"
)

type Config struct {
	Server   ServerConfig   `toml:"server"`
	Database DatabaseConfig `toml:"database"`
	Policy   PolicyConfig   `toml:"policy"`
	Log      LogConfig      `toml:"log"`
}

type ServerConfig struct {
	Host             string   `toml:"host"`
	Port             int      `toml:"port"`
	ShutdownTimeout  string   `toml:"shutdown_timeout"`
	CORSOrigins      []string `toml:"cors_origins"`
	UploadsPerMinute int      `toml:"uploads_per_minute"`
}

type DatabaseConfig struct {
	// Path of the SQLite file; ":memory:" keeps everything in memory.
	Path string `toml:"path"`
}

type PolicyConfig struct {
	// File, when set, is the policy used until one is saved via the API.
	File string `toml:"file"`
}

type LogConfig struct {
	Level       string `toml:"level"`
	Development bool   `toml:"development"`
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Host:             "127.0.0.1",
			Port:             8080,
			ShutdownTimeout:  "30s",
			CORSOrigins:      []string{"*"},
			UploadsPerMinute: 30,
		},
		Database: DatabaseConfig{Path: "./data/commission.db"},
		Log:      LogConfig{Level: "info"},
	}
}

// Load builds the configuration from all sources. An empty path skips the
// TOML file; a path that does not exist is an error.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return cfg, fmt.Errorf("read .env: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv() error {
	if v := os.Getenv(EnvHost); v != "" {
		c.Server.Host = v
	}
	if v := os.Getenv(EnvPort); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvPort, err)
		}
		c.Server.Port = port
	}
	if v := os.Getenv(EnvDB); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv(EnvPolicyFile); v != "" {
		c.Policy.File = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Log.Level = v
	}
	return nil
}

// Validate rejects settings the server cannot start with.
func (c Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Server.UploadsPerMinute < 0 {
		return fmt.Errorf("server.uploads_per_minute %d is negative", c.Server.UploadsPerMinute)
	}
	if _, err := time.ParseDuration(c.Server.ShutdownTimeout); err != nil {
		return fmt.Errorf("server.shutdown_timeout: %w", err)
	}
	if c.Database.Path == "" {
		return errors.New("database.path is required")
	}
	if _, err := zap.ParseAtomicLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	return nil
}

// Addr is the listen address.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// ShutdownGrace is the graceful shutdown timeout, 30s if unparsable.
func (s ServerConfig) ShutdownGrace() time.Duration {
	d, err := time.ParseDuration(s.ShutdownTimeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// NewLogger builds a zap logger writing to stderr.
func NewLogger(cfg LogConfig) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if cfg.Development {
		zc = zap.NewDevelopmentConfig()
	}

	level, err := zap.ParseAtomicLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	zc.Level = level
	zc.OutputPaths = []string{"stderr"}
	zc.ErrorOutputPaths = []string{"stderr"}
	return zc.Build()
}
