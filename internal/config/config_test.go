package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/suito/internal/common"
)

func TestLoadDefaults(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	cfg, err := Load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, ".local/share/suito/suito.db"), cfg.DatabasePath)
	assert.Equal(t, "http://localhost:8089/", cfg.GeometryURL)
	assert.Equal(t, "http://localhost:5001/predict", cfg.PredictionURL)
	assert.Zero(t, cfg.GeometryTimeout, "calls are unbounded unless configured")
	assert.Zero(t, cfg.PredictionTimeout)
	assert.Equal(t, 100, cfg.GeometryChunkSize)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Empty(t, cfg.User)
	assert.ErrorIs(t, cfg.RequireUser(), common.ErrMissingConfig)
}

func TestLoadOverrides(t *testing.T) {
	v := viper.New()
	v.Set(KeyUser, "farmer@example.com")
	v.Set(KeyDatabasePath, "/tmp/suito/test.db")
	v.Set(KeyPredictionTimeout, "30s")
	v.Set(KeyLogFormat, "json")

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, "farmer@example.com", cfg.User)
	assert.Equal(t, "/tmp/suito/test.db", cfg.DatabasePath)
	assert.Equal(t, 30*time.Second, cfg.PredictionTimeout)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.NoError(t, cfg.RequireUser())
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			DatabasePath:  "/tmp/suito.db",
			GeometryURL:   "http://localhost:8089/",
			PredictionURL: "http://localhost:5001/predict",
			LogLevel:      "info",
			LogFormat:     "console",
		}
	}

	tests := []struct {
		mutate  func(*Config)
		wantIs  error
		name    string
		errMsg  string
		wantErr bool
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "missing database", mutate: func(c *Config) { c.DatabasePath = "" }, wantErr: true, errMsg: "database path", wantIs: common.ErrMissingConfig},
		{name: "relative geometry url", mutate: func(c *Config) { c.GeometryURL = "ows" }, wantErr: true, errMsg: "geometry.url", wantIs: common.ErrInvalidConfig},
		{name: "negative timeout", mutate: func(c *Config) { c.GeometryTimeout = -time.Second }, wantErr: true, errMsg: "negative", wantIs: common.ErrInvalidConfig},
		{name: "bad log level", mutate: func(c *Config) { c.LogLevel = "verbose" }, wantErr: true, errMsg: "invalid log level", wantIs: common.ErrInvalidConfig},
		{name: "bad log format", mutate: func(c *Config) { c.LogFormat = "xml" }, wantErr: true, errMsg: "invalid log format", wantIs: common.ErrInvalidConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
			assert.ErrorIs(t, err, tt.wantIs)
		})
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	t.Setenv("SUITO_TEST_DIR", "/data")

	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"~", home},
		{"~/suito.db", filepath.Join(home, "suito.db")},
		{"$SUITO_TEST_DIR/suito.db", "/data/suito.db"},
		{"/abs/path", "/abs/path"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ExpandPath(tt.in), tt.in)
	}
	assert.Equal(t, filepath.Join(home, ".config", "suito"), DefaultDir())
}
