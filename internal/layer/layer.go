// Package layer owns the loaded parcel geometry of one municipality, the
// current selection over it, and the style projection derived from both.
package layer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"

	"github.com/Veraticus/suito/internal/common"
	"github.com/Veraticus/suito/internal/model"
	"github.com/Veraticus/suito/internal/palette"
	"github.com/Veraticus/suito/internal/service"
)

// LoadStatus classifies the outcome of a load.
type LoadStatus int

// Load outcomes.
const (
	StatusLoaded LoadStatus = iota
	StatusEmpty
	StatusFailed
	StatusStale
)

func (s LoadStatus) String() string {
	switch s {
	case StatusLoaded:
		return "loaded"
	case StatusEmpty:
		return "empty"
	case StatusFailed:
		return "failed"
	case StatusStale:
		return "stale"
	default:
		return fmt.Sprintf("LoadStatus(%d)", int(s))
	}
}

// LoadResult reports what a load did. Err is a *common.FetchError when Status
// is StatusFailed and a *common.EmptyResultNotice when it is StatusEmpty.
type LoadResult struct {
	Err        error
	LayerID    string
	Status     LoadStatus
	Features   int
	Skipped    int
	Generation uint64
}

// AttributeReader is the read side of the attribute store.
type AttributeReader interface {
	Field(id, name string) string
}

// ColorResolver resolves variety colors against the current overrides.
type ColorResolver interface {
	ColorFor(label string) model.Color
}

// Fixed selection-mode styling.
var (
	SelectedFill = model.Color{R: 0x33, G: 0x33, B: 0x33}
	Stroke       = model.Color{R: 0xFF, G: 0xFF, B: 0xFF}
)

const (
	selectionWeight      = 2
	selectionFillOpacity = 0.7
	gradientWeight       = 1
	gradientFillOpacity  = 0.8
)

// Layer is safe for concurrent use. Restyle passes run under the layer lock,
// so they never overlap.
type Layer struct {
	source   service.GeometrySource
	attrs    AttributeReader
	colors   ColorResolver
	logger   *slog.Logger
	features map[string]model.Feature
	selected map[string]struct{}
	styles   map[string]model.Style
	legend   *model.LegendInfo
	layerID  string
	mode     model.StyleMode
	order    []string
	// selection keeps click order; selected mirrors it for lookup.
	selection  []string
	generation uint64
	mu         sync.RWMutex
}

// New creates an empty layer.
func New(source service.GeometrySource, attrs AttributeReader, colors ColorResolver, logger *slog.Logger) *Layer {
	return &Layer{
		source:   source,
		attrs:    attrs,
		colors:   colors,
		logger:   common.OrDefault(logger),
		features: make(map[string]model.Feature),
		selected: make(map[string]struct{}),
		styles:   make(map[string]model.Style),
		mode:     model.ModeSelection,
	}
}

// Load fetches every parcel of layerID and replaces the current feature set.
func (l *Layer) Load(ctx context.Context, layerID string) LoadResult {
	return l.load(ctx, layerID, nil)
}

// LoadFiltered fetches only the parcels whose polygon_uuid is in ids.
func (l *Layer) LoadFiltered(ctx context.Context, layerID string, ids []string) LoadResult {
	if len(ids) == 0 {
		return LoadResult{
			Status:  StatusEmpty,
			LayerID: layerID,
			Err:     &common.EmptyResultNotice{Source: common.SourceGeometry, Detail: "no ids to fetch"},
		}
	}
	return l.load(ctx, layerID, ids)
}

func (l *Layer) load(ctx context.Context, layerID string, ids []string) LoadResult {
	l.mu.Lock()
	l.generation++
	gen := l.generation
	l.mu.Unlock()

	l.logger.Debug("fetching geometry", "layer", layerID, "generation", gen, "filter_ids", len(ids))
	fetched, err := l.source.Fetch(ctx, layerID, ids)

	l.mu.Lock()
	defer l.mu.Unlock()

	if gen != l.generation {
		l.logger.Debug("discarding stale geometry response",
			"layer", layerID, "generation", gen, "current", l.generation)
		return LoadResult{Status: StatusStale, LayerID: layerID, Generation: gen}
	}

	if err != nil {
		var fe *common.FetchError
		if !errors.As(err, &fe) {
			err = &common.FetchError{Source: common.SourceGeometry, Err: err}
		}
		l.logger.Warn("geometry fetch failed", "layer", layerID, "error", err)
		return LoadResult{Status: StatusFailed, LayerID: layerID, Err: err, Generation: gen}
	}

	features := make(map[string]model.Feature, len(fetched))
	order := make([]string, 0, len(fetched))
	skipped := 0
	for _, f := range fetched {
		if f.ID == "" {
			skipped++
			continue
		}
		if _, dup := features[f.ID]; dup {
			skipped++
			continue
		}
		features[f.ID] = f
		order = append(order, f.ID)
	}
	if skipped > 0 {
		l.logger.Warn("skipped features without a usable polygon_uuid", "layer", layerID, "skipped", skipped)
	}

	l.layerID = layerID
	l.features = features
	l.order = order
	l.selection = nil
	l.selected = make(map[string]struct{})
	l.restyleLocked()

	result := LoadResult{
		Status:     StatusLoaded,
		LayerID:    layerID,
		Features:   len(order),
		Skipped:    skipped,
		Generation: gen,
	}
	if len(order) == 0 {
		result.Status = StatusEmpty
		result.Err = &common.EmptyResultNotice{Source: common.SourceGeometry, Detail: "layer " + layerID + " has no parcels"}
	}
	l.logger.Info("layer loaded", "layer", layerID, "features", len(order), "skipped", skipped)
	return result
}

// ToggleSelection flips membership of id and restyles. Unknown ids are
// ignored. It reports whether the selection changed.
func (l *Layer) ToggleSelection(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.features[id]; !ok {
		return false
	}
	if _, ok := l.selected[id]; ok {
		delete(l.selected, id)
		l.selection = slices.DeleteFunc(l.selection, func(s string) bool { return s == id })
	} else {
		l.selected[id] = struct{}{}
		l.selection = append(l.selection, id)
	}
	l.restyleLocked()
	return true
}

// ClearSelection empties the selection and restyles.
func (l *Layer) ClearSelection() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.selection = nil
	l.selected = make(map[string]struct{})
	l.restyleLocked()
}

// Restyle recomputes every feature style in selection mode.
func (l *Layer) Restyle() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.restyleLocked()
}

func (l *Layer) restyleLocked() {
	styles := make(map[string]model.Style, len(l.order))
	for _, id := range l.order {
		st := model.Style{
			StrokeColor: Stroke,
			Weight:      selectionWeight,
			Opacity:     1,
			FillOpacity: selectionFillOpacity,
		}
		if _, ok := l.selected[id]; ok {
			st.FillColor = SelectedFill
			st.Selected = true
		} else {
			st.FillColor = l.colors.ColorFor(l.attrs.Field(id, model.FieldVariety))
		}
		styles[id] = st
	}
	l.styles = styles
	l.mode = model.ModeSelection
	l.legend = nil
}

// RestyleByGradient colors every feature by a predicted-date field and returns
// the legend. Selection highlighting is suspended until the next Restyle.
func (l *Layer) RestyleByGradient(field string) (model.LegendInfo, error) {
	r, err := palette.RampForField(field)
	if err != nil {
		return model.LegendInfo{}, err
	}
	start, end, err := palette.RampEnds(r)
	if err != nil {
		return model.LegendInfo{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	values := make([]string, len(l.order))
	for i, id := range l.order {
		values[i] = l.attrs.Field(id, field)
	}
	minDate, maxDate, ok := palette.ObservedRange(values)

	styles := make(map[string]model.Style, len(l.order))
	for i, id := range l.order {
		fill := palette.NoData
		if ok {
			fill = palette.ColorForDate(values[i], minDate, maxDate, r)
		}
		styles[id] = model.Style{
			FillColor:   fill,
			StrokeColor: Stroke,
			Weight:      gradientWeight,
			Opacity:     1,
			FillOpacity: gradientFillOpacity,
		}
	}

	legend := model.LegendInfo{
		Field:      field,
		Ramp:       r,
		StartColor: start,
		EndColor:   end,
		NoData:     !ok,
	}
	if ok {
		legend.Title = legendTitle(r)
		legend.Min = minDate
		legend.Max = maxDate
		legend.MinLabel = minDate.Format("01/02")
		legend.MaxLabel = maxDate.Format("01/02")
	} else {
		legend.Title = "凡例"
	}

	l.styles = styles
	l.mode = model.ModeGradient
	l.legend = &legend
	return legend, nil
}

func legendTitle(r model.Ramp) string {
	if r == model.RampHeading {
		return "凡例 (出穂期)"
	}
	return "凡例 (成熟期)"
}

// LayerID returns the id of the committed layer.
func (l *Layer) LayerID() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.layerID
}

// Generation returns the latest issued load generation.
func (l *Layer) Generation() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.generation
}

// Mode returns the active styling mode.
func (l *Layer) Mode() model.StyleMode {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.mode
}

// Selection returns the selected ids in click order.
func (l *Layer) Selection() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Clone(l.selection)
}

// IsSelected reports whether id is selected.
func (l *Layer) IsSelected(id string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.selected[id]
	return ok
}

// Selected returns the selected features in click order.
func (l *Layer) Selected() []model.Feature {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]model.Feature, 0, len(l.selection))
	for _, id := range l.selection {
		out = append(out, l.features[id])
	}
	return out
}

// Features returns the loaded features in source order.
func (l *Layer) Features() []model.Feature {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]model.Feature, 0, len(l.order))
	for _, id := range l.order {
		out = append(out, l.features[id])
	}
	return out
}

// Feature looks up one loaded feature.
func (l *Layer) Feature(id string) (model.Feature, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	f, ok := l.features[id]
	return f, ok
}

// Len returns the number of loaded features.
func (l *Layer) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.order)
}

// Style returns the current style of id.
func (l *Layer) Style(id string) (model.Style, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	st, ok := l.styles[id]
	return st, ok
}

// Styles returns a snapshot of every feature style.
func (l *Layer) Styles() map[string]model.Style {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return maps.Clone(l.styles)
}

// Legend returns the legend of the active gradient, if any.
func (l *Layer) Legend() (model.LegendInfo, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.legend == nil {
		return model.LegendInfo{}, false
	}
	return *l.legend, true
}
