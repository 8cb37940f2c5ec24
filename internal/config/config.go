package config

import (
	"fmt"
	"net/url"
	"slices"
	"time"

	"github.com/spf13/viper"

	"github.com/Veraticus/suito/internal/common"
)

// Viper keys.
const (
	KeyUser              = "user"
	KeyDatabasePath      = "database.path"
	KeyGeometryURL       = "geometry.url"
	KeyGeometryTimeout   = "geometry.timeout"
	KeyGeometryChunkSize = "geometry.chunk_size"
	KeyPredictionURL     = "prediction.url"
	KeyPredictionTimeout = "prediction.timeout"
	KeyLogLevel          = "logging.level"
	KeyLogFormat         = "logging.format"
)

// Config is the resolved application configuration.
type Config struct {
	User              string
	DatabasePath      string
	GeometryURL       string
	PredictionURL     string
	LogLevel          string
	LogFormat         string
	GeometryTimeout   time.Duration
	PredictionTimeout time.Duration
	GeometryChunkSize int
}

// SetDefaults registers default values on v. Timeouts default to zero, which
// leaves calls unbounded.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyDatabasePath, "~/.local/share/suito/suito.db")
	v.SetDefault(KeyGeometryURL, "http://localhost:8089/")
	v.SetDefault(KeyGeometryTimeout, time.Duration(0))
	v.SetDefault(KeyGeometryChunkSize, 100)
	v.SetDefault(KeyPredictionURL, "http://localhost:5001/predict")
	v.SetDefault(KeyPredictionTimeout, time.Duration(0))
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "console")
}

// Load reads the configuration from v, or the global viper instance when v
// is nil.
func Load(v *viper.Viper) (*Config, error) {
	if v == nil {
		v = viper.GetViper()
	}
	SetDefaults(v)

	cfg := &Config{
		User:              v.GetString(KeyUser),
		DatabasePath:      ExpandPath(v.GetString(KeyDatabasePath)),
		GeometryURL:       v.GetString(KeyGeometryURL),
		GeometryTimeout:   v.GetDuration(KeyGeometryTimeout),
		GeometryChunkSize: v.GetInt(KeyGeometryChunkSize),
		PredictionURL:     v.GetString(KeyPredictionURL),
		PredictionTimeout: v.GetDuration(KeyPredictionTimeout),
		LogLevel:          v.GetString(KeyLogLevel),
		LogFormat:         v.GetString(KeyLogFormat),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration. The user is not required here since
// commands like migrate work without one; see RequireUser.
func (c *Config) Validate() error {
	if c.DatabasePath == "" {
		return fmt.Errorf("%w: database path is required", common.ErrMissingConfig)
	}
	for key, raw := range map[string]string{KeyGeometryURL: c.GeometryURL, KeyPredictionURL: c.PredictionURL} {
		if raw == "" {
			continue
		}
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("%w: %s must be an absolute URL, got %q", common.ErrInvalidConfig, key, raw)
		}
	}
	if c.GeometryTimeout < 0 || c.PredictionTimeout < 0 {
		return fmt.Errorf("%w: timeouts cannot be negative", common.ErrInvalidConfig)
	}
	if c.GeometryChunkSize < 0 {
		return fmt.Errorf("%w: geometry chunk size cannot be negative", common.ErrInvalidConfig)
	}
	if !slices.Contains([]string{"debug", "info", "warn", "error"}, c.LogLevel) {
		return fmt.Errorf("%w: invalid log level: %s", common.ErrInvalidConfig, c.LogLevel)
	}
	if c.LogFormat != "console" && c.LogFormat != "json" {
		return fmt.Errorf("%w: invalid log format: %s", common.ErrInvalidConfig, c.LogFormat)
	}
	return nil
}

// RequireUser reports ErrMissingConfig when no user is configured.
func (c *Config) RequireUser() error {
	if c.User == "" {
		return fmt.Errorf("%w: user is required (set --user or SUITO_USER)", common.ErrMissingConfig)
	}
	return nil
}
