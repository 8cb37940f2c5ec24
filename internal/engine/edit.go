package engine

import (
	"context"
	"slices"
	"strings"

	"github.com/Veraticus/suito/internal/common"
	"github.com/Veraticus/suito/internal/model"
	"github.com/Veraticus/suito/internal/service"
)

// Persistence operations named in PersistenceError.
const (
	OpSave      = "save"
	OpDelete    = "delete"
	OpSaveColor = "save color"
	OpSaveCreds = "save credentials"
)

// SaveParcel writes the name, variety and transplant date of id. Empty values
// clear the field. The local store is updated first and is not rolled back if
// persistence fails.
func (w *Workspace) SaveParcel(ctx context.Context, id string, attrs model.Attributes) error {
	if id == "" {
		return common.NewValidationError(model.PropPolygonUUID, "parcel id is required")
	}
	patch := model.AttributePatch{
		Name:           model.Ptr(attrs.Name),
		Variety:        model.Ptr(attrs.Variety),
		TransplantDate: model.Ptr(attrs.TransplantDate),
	}

	w.attrs.Upsert(id, patch)
	w.refreshStyles()

	if err := w.storage.MergeParcelAttributes(ctx, w.user, id, patch); err != nil {
		w.logger.Error("failed to persist parcel", "parcel", id, "error", err)
		return &common.PersistenceError{Op: OpSave, ParcelID: id, Err: err}
	}
	return nil
}

// BulkSave applies variety and transplant date to every selected parcel. Empty
// values are treated as not provided; if both are empty nothing changes and
// common.ErrNothingToApply is returned. Each persisted parcel gets an
// ItemResult whose Err is a *common.PersistenceError on failure.
func (w *Workspace) BulkSave(ctx context.Context, variety, transplantDate string) ([]service.ItemResult, error) {
	ids := w.layer.Selection()
	if len(ids) == 0 {
		return nil, common.ErrNoSelection
	}

	patch := model.BulkPatch(strings.TrimSpace(variety), strings.TrimSpace(transplantDate))
	if err := w.attrs.BulkUpsert(ids, patch); err != nil {
		return nil, err
	}
	w.refreshStyles()

	writes := make([]service.ParcelWrite, len(ids))
	for i, id := range ids {
		writes[i] = service.ParcelWrite{ID: id, Patch: patch}
	}
	results, err := w.storage.BatchMergeParcelAttributes(ctx, w.user, writes)
	return w.itemResults(OpSave, ids, results, err), nil
}

// DeleteParcel removes the stored attributes of id and clears the selection.
func (w *Workspace) DeleteParcel(ctx context.Context, id string) error {
	if id == "" {
		return common.NewValidationError(model.PropPolygonUUID, "parcel id is required")
	}

	w.attrs.Remove(id)
	w.ClearSelection()

	if err := w.storage.DeleteParcelAttributes(ctx, w.user, id); err != nil {
		w.logger.Error("failed to delete parcel", "parcel", id, "error", err)
		return &common.PersistenceError{Op: OpDelete, ParcelID: id, Err: err}
	}
	return nil
}

// BulkDelete removes the stored attributes of every selected parcel and clears
// the selection.
func (w *Workspace) BulkDelete(ctx context.Context) ([]service.ItemResult, error) {
	ids := w.layer.Selection()
	if len(ids) == 0 {
		return nil, common.ErrNoSelection
	}

	w.attrs.BulkRemove(ids)
	w.ClearSelection()

	results, err := w.storage.BatchDeleteParcelAttributes(ctx, w.user, ids)
	return w.itemResults(OpDelete, ids, results, err), nil
}

// itemResults maps batch outcomes onto ids. A failed batch marks every id as
// failed.
func (w *Workspace) itemResults(op string, ids []string, results []service.ItemResult, batchErr error) []service.ItemResult {
	out := make([]service.ItemResult, len(ids))
	for i, id := range ids {
		out[i].ID = id
		switch {
		case batchErr != nil:
			out[i].Err = &common.PersistenceError{Op: op, ParcelID: id, Err: batchErr}
		case i < len(results) && results[i].Err != nil:
			out[i].Err = &common.PersistenceError{Op: op, ParcelID: id, Err: results[i].Err}
		}
	}

	failed := 0
	for _, r := range out {
		if r.Err != nil {
			failed++
		}
	}
	if failed > 0 {
		w.logger.Error("batch persistence incomplete", "op", op, "failed", failed, "total", len(ids))
	} else {
		w.logger.Info("batch persisted", "op", op, "count", len(ids))
	}
	return out
}

// SetVarietyColor overrides the color of variety and restyles.
func (w *Workspace) SetVarietyColor(ctx context.Context, variety string, color model.Color) error {
	variety = strings.TrimSpace(variety)
	if variety == "" {
		return common.NewValidationError(model.FieldVariety, "variety is required")
	}

	w.colors.SetOverride(variety, color)
	w.refreshStyles()

	if err := w.storage.SaveVarietyColor(ctx, w.user, variety, color); err != nil {
		return &common.PersistenceError{Op: OpSaveColor, Err: err}
	}
	return nil
}

// SaveWeatherCredentials replaces the weather service credentials.
func (w *Workspace) SaveWeatherCredentials(ctx context.Context, creds model.WeatherCredentials) error {
	if !creds.IsComplete() {
		return common.NewValidationError("credentials", "weather service user and password are required")
	}

	w.mu.Lock()
	w.creds = creds
	w.mu.Unlock()

	if err := w.storage.SaveWeatherCredentials(ctx, w.user, creds); err != nil {
		return &common.PersistenceError{Op: OpSaveCreds, Err: err}
	}
	return nil
}

// AddVariety stores a custom variety. The storage layer enforces that the name
// is new and the base is built in.
func (w *Workspace) AddVariety(ctx context.Context, v model.Variety) (model.Variety, error) {
	if err := w.storage.CreateVariety(ctx, w.user, &v); err != nil {
		return model.Variety{}, err
	}

	w.mu.Lock()
	w.varieties = append(w.varieties, v)
	w.mu.Unlock()
	return v, nil
}

// Varieties returns the user's custom varieties.
func (w *Workspace) Varieties() []model.Variety {
	w.mu.Lock()
	defer w.mu.Unlock()
	return slices.Clone(w.varieties)
}

// AvailableVarieties returns the built-in and custom variety names, sorted and
// without duplicates.
func (w *Workspace) AvailableVarieties() []string {
	names := model.BaseVarieties()
	for _, v := range w.Varieties() {
		names = append(names, v.Name)
	}
	slices.Sort(names)
	return slices.Compact(names)
}
