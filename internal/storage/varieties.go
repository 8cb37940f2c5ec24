package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Veraticus/suito/internal/common"
	"github.com/Veraticus/suito/internal/model"
)

// GetVarieties returns user's custom varieties ordered by name.
func (s *SQLiteStorage) GetVarieties(ctx context.Context, user string) ([]model.Variety, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(user, "user"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, base_variety, adjustment_days, ripening_accumulated_temp, created_at
		FROM varieties
		WHERE user_id = ?
		ORDER BY name
	`, user)
	if err != nil {
		return nil, fmt.Errorf("failed to query varieties: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var varieties []model.Variety
	for rows.Next() {
		var v model.Variety
		if err := rows.Scan(&v.ID, &v.Name, &v.BaseVariety, &v.AdjustmentDays, &v.RipeningAccumulatedTemp, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan variety: %w", err)
		}
		varieties = append(varieties, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate varieties: %w", err)
	}
	return varieties, nil
}

// CreateVariety stores a new custom variety and fills in its ID and CreatedAt.
// A name the user already has wraps common.ErrDuplicateEntry.
func (s *SQLiteStorage) CreateVariety(ctx context.Context, user string, v *model.Variety) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(user, "user"); err != nil {
		return err
	}
	if err := validateVariety(v); err != nil {
		return err
	}

	v.Name = strings.TrimSpace(v.Name)
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	if v.RipeningAccumulatedTemp == 0 {
		v.RipeningAccumulatedTemp = model.DefaultRipeningAccumulatedTemp
	}
	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now().UTC().Truncate(time.Second)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO varieties (id, user_id, name, base_variety, adjustment_days, ripening_accumulated_temp, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, v.ID, user, v.Name, v.BaseVariety, v.AdjustmentDays, v.RipeningAccumulatedTemp, v.CreatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("variety %q: %w", v.Name, common.ErrDuplicateEntry)
	}
	if err != nil {
		return fmt.Errorf("failed to create variety: %w", err)
	}
	return nil
}
