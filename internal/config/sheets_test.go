package config

import (
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/Veraticus/suito/internal/sheets"
)

func clearSheetsEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"GOOGLE_SHEETS_CLIENT_ID",
		"GOOGLE_SHEETS_CLIENT_SECRET",
		"GOOGLE_SHEETS_REFRESH_TOKEN",
		"GOOGLE_SHEETS_SERVICE_ACCOUNT_PATH",
		"GOOGLE_SHEETS_SPREADSHEET_ID",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadSheetsConfigFromViper(t *testing.T) {
	clearSheetsEnv(t)
	v := viper.New()
	v.Set("sheets.client_id", "id")
	v.Set("sheets.client_secret", "secret")
	v.Set("sheets.refresh_token", "refresh")
	v.Set("sheets.sheet_name", "Fields")

	cfg, err := LoadSheetsConfig(v)
	require.NoError(t, err)
	assert.Equal(t, "id", cfg.ClientID)
	assert.Equal(t, "refresh", cfg.RefreshToken)
	assert.Equal(t, "Fields", cfg.SheetName)
	assert.Equal(t, sheets.DefaultConfig().SpreadsheetName, cfg.SpreadsheetName)
}

func TestLoadSheetsConfigUsesSavedToken(t *testing.T) {
	clearSheetsEnv(t)
	tokenFile := filepath.Join(t.TempDir(), "token.json")
	require.NoError(t, sheets.SaveToken(tokenFile, &oauth2.Token{RefreshToken: "saved"}))

	v := viper.New()
	v.Set("sheets.client_id", "id")
	v.Set("sheets.client_secret", "secret")
	v.Set("sheets.token_file", tokenFile)

	cfg, err := LoadSheetsConfig(v)
	require.NoError(t, err)
	assert.Equal(t, "saved", cfg.RefreshToken)
}

func TestLoadSheetsConfigRequiresAuth(t *testing.T) {
	clearSheetsEnv(t)
	v := viper.New()
	v.Set("sheets.token_file", filepath.Join(t.TempDir(), "missing.json"))

	_, err := LoadSheetsConfig(v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no authentication method configured")
}
