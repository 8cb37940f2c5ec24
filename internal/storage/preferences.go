package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Veraticus/suito/internal/common"
	"github.com/Veraticus/suito/internal/model"
	"github.com/Veraticus/suito/internal/palette"
)

// GetVarietyColors returns user's per-variety color overrides.
func (s *SQLiteStorage) GetVarietyColors(ctx context.Context, user string) (map[string]model.Color, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(user, "user"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT variety, color FROM variety_colors WHERE user_id = ?
	`, user)
	if err != nil {
		return nil, fmt.Errorf("failed to query variety colors: %w", err)
	}
	defer func() { _ = rows.Close() }()

	colors := make(map[string]model.Color)
	for rows.Next() {
		var variety, hex string
		if err := rows.Scan(&variety, &hex); err != nil {
			return nil, fmt.Errorf("failed to scan variety color: %w", err)
		}
		c, err := palette.ParseColor(hex)
		if err != nil {
			return nil, fmt.Errorf("variety %s: %w", variety, err)
		}
		colors[variety] = c
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate variety colors: %w", err)
	}
	return colors, nil
}

// SaveVarietyColor stores or replaces one color override.
func (s *SQLiteStorage) SaveVarietyColor(ctx context.Context, user, variety string, color model.Color) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(user, "user"); err != nil {
		return err
	}
	if err := validateString(variety, "variety"); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO variety_colors (user_id, variety, color, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(user_id, variety) DO UPDATE SET
			color = excluded.color,
			updated_at = CURRENT_TIMESTAMP
	`, user, variety, color.Hex())
	if err != nil {
		return fmt.Errorf("failed to save variety color: %w", err)
	}
	return nil
}

// GetWeatherCredentials returns user's weather service credentials. It wraps
// common.ErrNotFound when none are stored.
func (s *SQLiteStorage) GetWeatherCredentials(ctx context.Context, user string) (*model.WeatherCredentials, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(user, "user"); err != nil {
		return nil, err
	}

	var creds model.WeatherCredentials
	err := s.db.QueryRowContext(ctx, `
		SELECT username, password FROM weather_credentials WHERE user_id = ?
	`, user).Scan(&creds.User, &creds.Password)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("weather credentials: %w", common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get weather credentials: %w", err)
	}
	return &creds, nil
}

// SaveWeatherCredentials stores or replaces user's weather service credentials.
func (s *SQLiteStorage) SaveWeatherCredentials(ctx context.Context, user string, creds model.WeatherCredentials) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(user, "user"); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO weather_credentials (user_id, username, password, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(user_id) DO UPDATE SET
			username = excluded.username,
			password = excluded.password,
			updated_at = CURRENT_TIMESTAMP
	`, user, creds.User, creds.Password)
	if err != nil {
		return fmt.Errorf("failed to save weather credentials: %w", err)
	}
	return nil
}
