package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Veraticus/suito/internal/common"
	"github.com/Veraticus/suito/internal/model"
	"github.com/Veraticus/suito/internal/service"
)

// Unset patch fields bind NULL, so COALESCE keeps the stored value. Custom
// fields are merged key-wise with json_patch.
const mergeParcelSQL = `
	INSERT INTO parcel_attributes (user_id, polygon_uuid, name, variety, transplant_date, custom_fields, updated_at)
	VALUES (?1, ?2, COALESCE(?3, ''), COALESCE(?4, ''), COALESCE(?5, ''), ?6, CURRENT_TIMESTAMP)
	ON CONFLICT(user_id, polygon_uuid) DO UPDATE SET
		name = COALESCE(?3, name),
		variety = COALESCE(?4, variety),
		transplant_date = COALESCE(?5, transplant_date),
		custom_fields = CASE
			WHEN ?6 IS NULL THEN custom_fields
			ELSE json_patch(COALESCE(custom_fields, '{}'), ?6)
		END,
		updated_at = CURRENT_TIMESTAMP
`

// GetParcelAttributes returns every stored parcel of user.
func (s *SQLiteStorage) GetParcelAttributes(ctx context.Context, user string) ([]model.AttributeRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(user, "user"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT polygon_uuid, name, variety, transplant_date, custom_fields
		FROM parcel_attributes
		WHERE user_id = ?
		ORDER BY polygon_uuid
	`, user)
	if err != nil {
		return nil, fmt.Errorf("failed to query parcel attributes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []model.AttributeRecord
	for rows.Next() {
		var r model.AttributeRecord
		var custom sql.NullString
		if err := rows.Scan(&r.ID, &r.Attributes.Name, &r.Attributes.Variety, &r.Attributes.TransplantDate, &custom); err != nil {
			return nil, fmt.Errorf("failed to scan parcel attributes: %w", err)
		}
		if r.Attributes.Custom, err = decodeCustom(custom); err != nil {
			return nil, fmt.Errorf("parcel %s: %w", r.ID, err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate parcel attributes: %w", err)
	}
	return records, nil
}

// GetParcelAttribute returns one stored parcel. It wraps common.ErrNotFound
// when the parcel has never been saved.
func (s *SQLiteStorage) GetParcelAttribute(ctx context.Context, user, id string) (*model.Attributes, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateUserAndID(user, id); err != nil {
		return nil, err
	}

	var a model.Attributes
	var custom sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT name, variety, transplant_date, custom_fields
		FROM parcel_attributes
		WHERE user_id = ? AND polygon_uuid = ?
	`, user, id).Scan(&a.Name, &a.Variety, &a.TransplantDate, &custom)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("parcel %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get parcel attributes: %w", err)
	}
	if a.Custom, err = decodeCustom(custom); err != nil {
		return nil, fmt.Errorf("parcel %s: %w", id, err)
	}
	return &a, nil
}

// MergeParcelAttributes writes the set fields of patch, creating the row if
// needed. Unset fields keep their stored value.
func (s *SQLiteStorage) MergeParcelAttributes(ctx context.Context, user, id string, patch model.AttributePatch) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateUserAndID(user, id); err != nil {
		return err
	}
	return s.mergeParcelTx(ctx, s.db, user, id, patch)
}

func (s *SQLiteStorage) mergeParcelTx(ctx context.Context, q queryable, user, id string, patch model.AttributePatch) error {
	custom, err := encodeCustom(patch.Custom)
	if err != nil {
		return err
	}
	if _, err := q.ExecContext(ctx, mergeParcelSQL,
		user, id, nullable(patch.Name), nullable(patch.Variety), nullable(patch.TransplantDate), custom,
	); err != nil {
		return fmt.Errorf("failed to merge parcel %s: %w", id, err)
	}
	return nil
}

// BatchMergeParcelAttributes applies writes in one transaction. A failing item
// is reported in its ItemResult and does not stop the others.
func (s *SQLiteStorage) BatchMergeParcelAttributes(ctx context.Context, user string, writes []service.ParcelWrite) ([]service.ItemResult, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(user, "user"); err != nil {
		return nil, err
	}

	return s.batch(ctx, len(writes), func(tx *sql.Tx, i int) service.ItemResult {
		w := writes[i]
		if err := validateString(w.ID, "polygon_uuid"); err != nil {
			return service.ItemResult{ID: w.ID, Err: err}
		}
		return service.ItemResult{ID: w.ID, Err: s.mergeParcelTx(ctx, tx, user, w.ID, w.Patch)}
	})
}

// DeleteParcelAttributes removes one parcel. Deleting a missing parcel is not
// an error.
func (s *SQLiteStorage) DeleteParcelAttributes(ctx context.Context, user, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateUserAndID(user, id); err != nil {
		return err
	}
	return s.deleteParcelTx(ctx, s.db, user, id)
}

func (s *SQLiteStorage) deleteParcelTx(ctx context.Context, q queryable, user, id string) error {
	if _, err := q.ExecContext(ctx,
		`DELETE FROM parcel_attributes WHERE user_id = ? AND polygon_uuid = ?`, user, id,
	); err != nil {
		return fmt.Errorf("failed to delete parcel %s: %w", id, err)
	}
	return nil
}

// BatchDeleteParcelAttributes removes ids in one transaction with per-item
// results.
func (s *SQLiteStorage) BatchDeleteParcelAttributes(ctx context.Context, user string, ids []string) ([]service.ItemResult, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(user, "user"); err != nil {
		return nil, err
	}

	return s.batch(ctx, len(ids), func(tx *sql.Tx, i int) service.ItemResult {
		id := ids[i]
		if err := validateString(id, "polygon_uuid"); err != nil {
			return service.ItemResult{ID: id, Err: err}
		}
		return service.ItemResult{ID: id, Err: s.deleteParcelTx(ctx, tx, user, id)}
	})
}

// batch runs n items in one transaction. SQLite rolls back only the failing
// statement, so the transaction still commits the rest.
func (s *SQLiteStorage) batch(ctx context.Context, n int, item func(*sql.Tx, int) service.ItemResult) ([]service.ItemResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	results := make([]service.ItemResult, n)
	for i := range n {
		results[i] = item(tx, i)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit batch: %w", err)
	}
	return results, nil
}

func encodeCustom(custom map[string]string) (any, error) {
	if len(custom) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(custom)
	if err != nil {
		return nil, fmt.Errorf("failed to encode custom fields: %w", err)
	}
	return string(b), nil
}

func decodeCustom(ns sql.NullString) (map[string]string, error) {
	if !ns.Valid || ns.String == "" || ns.String == "{}" {
		return nil, nil
	}
	var custom map[string]string
	if err := json.Unmarshal([]byte(ns.String), &custom); err != nil {
		return nil, fmt.Errorf("failed to decode custom fields: %w", err)
	}
	return custom, nil
}
