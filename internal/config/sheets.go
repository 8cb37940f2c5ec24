package config

import (
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/Veraticus/suito/internal/sheets"
)

// LoadSheetsConfig loads Google Sheets configuration. It follows this
// precedence:
// 1. Viper configuration (config file or SUITO_ env vars)
// 2. Direct environment variables (GOOGLE_SHEETS_*)
// 3. Default values
// When no refresh token is configured the one saved by "sheets auth" is used.
func LoadSheetsConfig(v *viper.Viper) (*sheets.Config, error) {
	if v == nil {
		v = viper.GetViper()
	}
	cfg := sheets.DefaultConfig()

	if s := v.GetString("sheets.service_account_path"); s != "" {
		cfg.ServiceAccountPath = ExpandPath(s)
	}
	if s := v.GetString("sheets.client_id"); s != "" {
		cfg.ClientID = s
	}
	if s := v.GetString("sheets.client_secret"); s != "" {
		cfg.ClientSecret = s
	}
	if s := v.GetString("sheets.refresh_token"); s != "" {
		cfg.RefreshToken = s
	}
	if s := v.GetString("sheets.spreadsheet_id"); s != "" {
		cfg.SpreadsheetID = s
	}
	if s := v.GetString("sheets.spreadsheet_name"); s != "" {
		cfg.SpreadsheetName = s
	}
	if s := v.GetString("sheets.sheet_name"); s != "" {
		cfg.SheetName = s
	}

	cfg.LoadFromEnv()
	cfg.ServiceAccountPath = ExpandPath(cfg.ServiceAccountPath)

	if cfg.RefreshToken == "" && cfg.ServiceAccountPath == "" {
		if token, err := sheets.LoadToken(TokenFile(v)); err == nil {
			cfg.RefreshToken = token.RefreshToken
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// TokenFile is where "sheets auth" stores the OAuth token.
func TokenFile(v *viper.Viper) string {
	if v == nil {
		v = viper.GetViper()
	}
	if s := v.GetString("sheets.token_file"); s != "" {
		return ExpandPath(s)
	}
	return filepath.Join(DefaultDir(), "sheets-token.json")
}
