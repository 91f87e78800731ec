// Package config loads settings for the overridectl binary from a YAML file
// and OVERRIDES_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Storage drivers.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Blob drivers.
const (
	BlobDir = "dir"
	BlobS3  = "s3"
)

// Config is the full binary configuration.
type Config struct {
	Storage      Storage       `yaml:"storage"`
	Logging      Logging       `yaml:"logging"`
	Server       Server        `yaml:"server"`
	Gate         Gate          `yaml:"gate"`
	Blob         Blob          `yaml:"blob"`
	Actor        string        `yaml:"actor"`
	OptionsFile  string        `yaml:"options_file"`
	ApplyTimeout time.Duration `yaml:"apply_timeout"`

	// LoadedFrom lists the sources applied, lowest priority first.
	LoadedFrom []string `yaml:"-"`
}

// Storage selects the persistence backend.
type Storage struct {
	Driver    string        `yaml:"driver"`
	Path      string        `yaml:"path"`
	DSN       string        `yaml:"dsn"`
	Namespace string        `yaml:"namespace"`
	Timeout   time.Duration `yaml:"timeout"`
}

// Logging configures the zap logger.
type Logging struct {
	Level string `yaml:"level"`
}

// Server configures `overridectl serve`.
type Server struct {
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	Metrics         bool          `yaml:"metrics"`
	AllowedOrigins  []string      `yaml:"allowed_origins"`
	// WatchOptions re-registers the options file whenever it changes.
	WatchOptions bool `yaml:"watch_options"`
}

// Gate configures the optional rule gate. An empty expression keeps the
// manual switch.
type Gate struct {
	Expression string `yaml:"expression"`
	Engine     string `yaml:"engine"`
}

// Blob configures where presets are published.
type Blob struct {
	Driver    string `yaml:"driver"`
	Dir       string `yaml:"dir"`
	Prefix    string `yaml:"prefix"`
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	PathStyle bool   `yaml:"path_style"`
}

// Default returns a configuration usable without any file.
func Default() *Config {
	return &Config{
		Storage: Storage{
			Driver:    DriverMemory,
			Namespace: "overrides",
			Timeout:   5 * time.Second,
		},
		Logging: Logging{Level: "info"},
		Server: Server{
			Addr:            ":8080",
			ShutdownTimeout: 10 * time.Second,
			Metrics:         true,
		},
		Gate: Gate{Engine: "expr"},
		Blob: Blob{
			Driver: BlobDir,
			Dir:    "presets",
			Prefix: "presets/",
			Region: "us-east-1",
		},
		Actor:        "overridectl",
		ApplyTimeout: 5 * time.Second,
	}
}

// Validate checks cross-field requirements.
func (c *Config) Validate() error {
	var errs []error
	switch c.Storage.Driver {
	case DriverMemory:
	case DriverSQLite:
		if strings.TrimSpace(c.Storage.Path) == "" {
			errs = append(errs, errors.New("storage.path is required for the sqlite driver"))
		}
	case DriverPostgres:
		if strings.TrimSpace(c.Storage.DSN) == "" {
			errs = append(errs, errors.New("storage.dsn is required for the postgres driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage.driver %q", c.Storage.Driver))
	}
	switch c.Gate.Engine {
	case "", "expr", "cel", "js":
	default:
		errs = append(errs, fmt.Errorf("unknown gate.engine %q", c.Gate.Engine))
	}
	switch c.Blob.Driver {
	case BlobDir:
	case BlobS3:
		if strings.TrimSpace(c.Blob.Bucket) == "" {
			errs = append(errs, errors.New("blob.bucket is required for the s3 driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown blob.driver %q", c.Blob.Driver))
	}
	if c.Storage.Timeout < 0 || c.ApplyTimeout < 0 {
		errs = append(errs, errors.New("timeouts must not be negative"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}
