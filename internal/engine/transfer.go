package engine

import (
	"context"
	"fmt"

	"github.com/Veraticus/suito/internal/common"
	"github.com/Veraticus/suito/internal/csvimport"
	"github.com/Veraticus/suito/internal/export"
	"github.com/Veraticus/suito/internal/layer"
	"github.com/Veraticus/suito/internal/model"
	"github.com/Veraticus/suito/internal/service"
)

// ExportTable flattens the selected parcels, their attributes and the recorded
// results.
func (w *Workspace) ExportTable() ([]export.Row, error) {
	selected := w.layer.Selected()
	if len(selected) == 0 {
		return nil, common.ErrNoSelection
	}
	return export.ToTable(selected, w.attrs, w.Results()), nil
}

// ExportGeoJSON builds a feature collection of the selected parcels.
func (w *Workspace) ExportGeoJSON() (model.FeatureCollection, error) {
	selected := w.layer.Selected()
	if len(selected) == 0 {
		return model.FeatureCollection{}, common.ErrNoSelection
	}
	return export.ToGeoJSON(selected, w.attrs, w.Results()), nil
}

// ExportToSheet writes the exported table to sink.
func (w *Workspace) ExportToSheet(ctx context.Context, sink service.TableWriter) (int, error) {
	if sink == nil {
		return 0, fmt.Errorf("%w: table writer", common.ErrMissingConfig)
	}
	rows, err := w.ExportTable()
	if err != nil {
		return 0, err
	}
	if err := sink.WriteTable(ctx, export.Header, export.Records(rows)); err != nil {
		return 0, fmt.Errorf("failed to write table: %w", err)
	}
	return len(rows), nil
}

// ImportResult reports the stages of a CSV import.
type ImportResult struct {
	Legend model.LegendInfo
	Load   layer.LoadResult
	Import csvimport.Result
}

// ImportCSV overlays records on layerID: only their parcels are fetched, the
// usable records become the imported attribute scope once that fetch commits,
// and the layer is colored by field. A failed or superseded fetch leaves the
// attribute scopes untouched. When no record carries a polygon_uuid nothing is
// fetched and the returned error wraps common.ErrNoUsableIDs.
func (w *Workspace) ImportCSV(ctx context.Context, layerID string, records []map[string]string, field string) (ImportResult, error) {
	var out ImportResult
	if layerID == "" {
		return out, common.NewValidationError("layer", "layer id is required")
	}
	if field == "" {
		field = model.FieldPredictedHeading
	}

	imported, err := csvimport.FromRecords(records)
	out.Import = imported
	if err != nil {
		return out, err
	}

	w.clearResults()
	w.mu.Lock()
	w.loadEpoch++
	epoch := w.loadEpoch
	w.mu.Unlock()

	out.Load = w.layer.LoadFiltered(ctx, layerID, imported.IDs)
	switch out.Load.Status {
	case layer.StatusStale:
		return out, nil
	case layer.StatusFailed:
		return out, out.Load.Err
	}

	w.mu.Lock()
	current := epoch == w.loadEpoch
	if current {
		w.attrs.ReconcileImport(imported.Records)
	}
	w.mu.Unlock()
	if !current {
		// A newer layer switch or import owns the scopes now.
		return out, nil
	}
	w.logger.Info("csv imported", "records", len(imported.Records), "dropped", imported.Dropped)

	legend, err := w.layer.RestyleByGradient(field)
	if err != nil {
		return out, err
	}
	out.Legend = legend

	if out.Load.Status == layer.StatusEmpty {
		return out, out.Load.Err
	}
	return out, nil
}
