package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable the loader reads.
const EnvPrefix = "OVERRIDES_"

// Loader layers defaults, an optional YAML file and the environment.
type Loader struct {
	path   string
	getenv func(string) string
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithEnv replaces os.Getenv, mostly for tests.
func WithEnv(getenv func(string) string) LoaderOption {
	return func(l *Loader) {
		if getenv != nil {
			l.getenv = getenv
		}
	}
}

// NewLoader reads path when non-empty. A missing explicit file is an error.
func NewLoader(path string, opts ...LoaderOption) *Loader {
	l := &Loader{path: strings.TrimSpace(path), getenv: os.Getenv}
	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}
	return l
}

// Load is NewLoader(path).Load().
func Load(path string) (*Config, error) {
	return NewLoader(path).Load()
}

// Load applies, lowest priority first: defaults, the YAML file, then
// OVERRIDES_* variables, and validates the result.
func (l *Loader) Load() (*Config, error) {
	cfg := Default()
	cfg.LoadedFrom = []string{"defaults"}

	if l.path != "" {
		file, err := os.Open(l.path)
		if err != nil {
			return nil, fmt.Errorf("config: open %s: %w", l.path, err)
		}
		defer file.Close()
		if err := decodeYAML(file, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", l.path, err)
		}
		cfg.LoadedFrom = append(cfg.LoadedFrom, l.path)
	}

	if err := l.applyEnv(cfg); err != nil {
		return nil, err
	}
	cfg.LoadedFrom = append(cfg.LoadedFrom, "environment")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decodeYAML(r io.Reader, cfg *Config) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (l *Loader) applyEnv(cfg *Config) error {
	var errs []error
	str := func(name string, dst *string) {
		if val := strings.TrimSpace(l.getenv(EnvPrefix + name)); val != "" {
			*dst = val
		}
	}
	boolean := func(name string, dst *bool) {
		if val := strings.TrimSpace(l.getenv(EnvPrefix + name)); val != "" {
			parsed, err := strconv.ParseBool(val)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = parsed
		}
	}
	list := func(name string, dst *[]string) {
		val := strings.TrimSpace(l.getenv(EnvPrefix + name))
		if val == "" {
			return
		}
		var items []string
		for _, item := range strings.Split(val, ",") {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}
		*dst = items
	}
	duration := func(name string, dst *time.Duration) {
		if val := strings.TrimSpace(l.getenv(EnvPrefix + name)); val != "" {
			parsed, err := time.ParseDuration(val)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = parsed
		}
	}

	str("STORAGE_DRIVER", &cfg.Storage.Driver)
	str("STORAGE_PATH", &cfg.Storage.Path)
	str("STORAGE_DSN", &cfg.Storage.DSN)
	str("NAMESPACE", &cfg.Storage.Namespace)
	duration("STORAGE_TIMEOUT", &cfg.Storage.Timeout)

	str("LOG_LEVEL", &cfg.Logging.Level)

	str("HTTP_ADDR", &cfg.Server.Addr)
	boolean("HTTP_METRICS", &cfg.Server.Metrics)
	list("HTTP_ALLOWED_ORIGINS", &cfg.Server.AllowedOrigins)
	boolean("HTTP_WATCH_OPTIONS", &cfg.Server.WatchOptions)

	str("GATE_EXPRESSION", &cfg.Gate.Expression)
	str("GATE_ENGINE", &cfg.Gate.Engine)

	str("BLOB_DRIVER", &cfg.Blob.Driver)
	str("BLOB_DIR", &cfg.Blob.Dir)
	str("BLOB_PREFIX", &cfg.Blob.Prefix)
	str("BLOB_S3_BUCKET", &cfg.Blob.Bucket)
	str("BLOB_S3_REGION", &cfg.Blob.Region)
	str("BLOB_S3_ENDPOINT", &cfg.Blob.Endpoint)
	boolean("BLOB_S3_PATH_STYLE", &cfg.Blob.PathStyle)

	str("ACTOR", &cfg.Actor)
	str("OPTIONS_FILE", &cfg.OptionsFile)
	duration("APPLY_TIMEOUT", &cfg.ApplyTimeout)

	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}
