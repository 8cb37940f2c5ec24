// Package engine wires the parcel layer, attribute store, palette, prediction
// coordinator and persistence together for one user.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/Veraticus/suito/internal/attributes"
	"github.com/Veraticus/suito/internal/common"
	"github.com/Veraticus/suito/internal/enrich"
	"github.com/Veraticus/suito/internal/layer"
	"github.com/Veraticus/suito/internal/model"
	"github.com/Veraticus/suito/internal/palette"
	"github.com/Veraticus/suito/internal/service"
)

// Deps are the collaborators of a Workspace.
type Deps struct {
	Storage   service.Storage
	Geometry  service.GeometrySource
	Predictor service.Predictor
	Logger    *slog.Logger
	User      string
}

// Workspace is the state of one user's session. It is safe for concurrent use.
type Workspace struct {
	storage     service.Storage
	attrs       *attributes.Store
	colors      *palette.Assigner
	layer       *layer.Layer
	coordinator *enrich.Coordinator
	logger      *slog.Logger
	results     map[string]model.EnrichmentResult
	last        *model.EnrichmentResult
	user        string
	varieties   []model.Variety
	creds       model.WeatherCredentials
	// resultEpoch advances whenever recorded results are dropped; loadEpoch
	// advances whenever a layer switch or import starts.
	resultEpoch uint64
	loadEpoch   uint64
	mu          sync.Mutex
}

// New creates a workspace. Storage, Geometry and User are required.
// Predictor is optional.
func New(deps Deps) (*Workspace, error) {
	switch {
	case deps.Storage == nil:
		return nil, fmt.Errorf("%w: storage", common.ErrMissingConfig)
	case deps.Geometry == nil:
		return nil, fmt.Errorf("%w: geometry source", common.ErrMissingConfig)
	case deps.User == "":
		return nil, fmt.Errorf("%w: user", common.ErrMissingConfig)
	}

	logger := common.OrDefault(deps.Logger).With("user", deps.User)
	attrs := attributes.NewStore()
	colors := palette.NewAssigner(nil)

	w := &Workspace{
		storage: deps.Storage,
		attrs:   attrs,
		colors:  colors,
		layer:   layer.New(deps.Geometry, attrs, colors, logger),
		logger:  logger,
		results: make(map[string]model.EnrichmentResult),
		user:    deps.User,
	}
	// Predictions are unavailable without a predictor.
	if deps.Predictor != nil {
		w.coordinator = enrich.NewCoordinator(deps.Predictor, logger)
	}
	return w, nil
}

// Open loads the user's color overrides, weather credentials, custom varieties
// and attribute snapshot concurrently.
func (w *Workspace) Open(ctx context.Context) error {
	var (
		colors    map[string]model.Color
		creds     *model.WeatherCredentials
		varieties []model.Variety
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		colors, err = w.storage.GetVarietyColors(gctx, w.user)
		return err
	})
	g.Go(func() error {
		var err error
		creds, err = w.storage.GetWeatherCredentials(gctx, w.user)
		if errors.Is(err, common.ErrNotFound) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		var err error
		varieties, err = w.storage.GetVarieties(gctx, w.user)
		return err
	})
	g.Go(func() error {
		return w.refreshAttributes(gctx)
	})
	if err := g.Wait(); err != nil {
		return &common.FetchError{Source: common.SourceAttributes, Err: err}
	}

	w.colors.ReplaceOverrides(colors)

	w.mu.Lock()
	if creds != nil {
		w.creds = *creds
	}
	w.varieties = varieties
	w.mu.Unlock()

	w.refreshStyles()
	w.logger.Debug("workspace opened", "overrides", len(colors), "varieties", len(varieties), "parcels", w.attrs.Len())
	return nil
}

// SelectLayer switches to layerID. The attribute snapshot and the geometry are
// fetched concurrently; recorded prediction results and any CSV import are
// dropped. A geometry failure is reported in the result's Err.
func (w *Workspace) SelectLayer(ctx context.Context, layerID string) (layer.LoadResult, error) {
	if layerID == "" {
		return layer.LoadResult{}, common.NewValidationError("layer", "layer id is required")
	}

	w.clearResults()
	w.mu.Lock()
	w.loadEpoch++
	w.attrs.ClearImport()
	w.mu.Unlock()

	var res layer.LoadResult
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return w.refreshAttributes(gctx)
	})
	g.Go(func() error {
		res = w.layer.Load(gctx, layerID)
		return nil
	})
	if err := g.Wait(); err != nil {
		return res, &common.FetchError{Source: common.SourceAttributes, Err: err}
	}

	// The geometry may have committed before the snapshot landed.
	if res.Status == layer.StatusLoaded {
		w.layer.Restyle()
	}
	return res, nil
}

func (w *Workspace) refreshAttributes(ctx context.Context) error {
	records, err := w.storage.GetParcelAttributes(ctx, w.user)
	if err != nil {
		return fmt.Errorf("failed to load parcel attributes: %w", err)
	}
	w.attrs.Reconcile(records)
	return nil
}

// Toggle flips the selection of id. Recorded results are dropped whenever the
// selection changes.
func (w *Workspace) Toggle(id string) bool {
	if !w.layer.ToggleSelection(id) {
		return false
	}
	w.clearResults()
	return true
}

// ClearSelection empties the selection and drops recorded results.
func (w *Workspace) ClearSelection() {
	w.layer.ClearSelection()
	w.clearResults()
}

// refreshStyles recomputes styles in the current mode.
func (w *Workspace) refreshStyles() {
	if legend, ok := w.layer.Legend(); ok && w.layer.Mode() == model.ModeGradient {
		if _, err := w.layer.RestyleByGradient(legend.Field); err == nil {
			return
		}
	}
	w.layer.Restyle()
}

func (w *Workspace) clearResults() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.results = make(map[string]model.EnrichmentResult)
	w.last = nil
	w.resultEpoch++
}

func (w *Workspace) currentResultEpoch() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.resultEpoch
}

// record stores r unless results were dropped since epoch was read.
func (w *Workspace) record(epoch uint64, r model.EnrichmentResult) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if epoch != w.resultEpoch {
		return false
	}
	w.results[r.ParcelID] = r
	w.last = &r
	return true
}

// Layer returns the parcel layer.
func (w *Workspace) Layer() *layer.Layer {
	return w.layer
}

// Attributes returns the attribute store.
func (w *Workspace) Attributes() *attributes.Store {
	return w.attrs
}

// User returns the workspace's user namespace.
func (w *Workspace) User() string {
	return w.user
}

// Results returns a copy of the recorded prediction results.
func (w *Workspace) Results() map[string]model.EnrichmentResult {
	w.mu.Lock()
	defer w.mu.Unlock()
	return maps.Clone(w.results)
}

// LastResult returns the most recently recorded result.
func (w *Workspace) LastResult() (model.EnrichmentResult, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.last == nil {
		return model.EnrichmentResult{}, false
	}
	return *w.last, true
}

// Credentials returns the weather service credentials in use.
func (w *Workspace) Credentials() model.WeatherCredentials {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.creds
}

// Colors returns the current variety color overrides.
func (w *Workspace) Colors() map[string]model.Color {
	return w.colors.Overrides()
}
