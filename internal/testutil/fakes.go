package testutil

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"

	"github.com/Veraticus/suito/internal/model"
	"github.com/Veraticus/suito/internal/service"
)

// SquareGeometry is a small polygon used by fixture features.
var SquareGeometry = json.RawMessage(`{"type":"Polygon","coordinates":[[[140.4,36.3],[140.5,36.3],[140.5,36.4],[140.4,36.4],[140.4,36.3]]]}`)

// NewFeature builds a feature with a centroid and the fixture polygon.
func NewFeature(id string, lat, lon float64) model.Feature {
	return model.Feature{
		ID: id,
		Properties: map[string]any{
			model.PropPolygonUUID: id,
			model.PropPointLat:    lat,
			model.PropPointLng:    lon,
		},
		Geometry:    SquareGeometry,
		Centroid:    model.Centroid{Lat: lat, Lon: lon},
		HasCentroid: true,
	}
}

// FetchCall records one call to FakeGeometrySource.
type FetchCall struct {
	LayerID string
	IDs     []string
}

// FakeGeometrySource serves canned features per layer. A layer can be gated so
// its fetch blocks until Release is called.
type FakeGeometrySource struct {
	Layers  map[string][]model.Feature
	Errors  map[string]error
	gates   map[string]chan struct{}
	started chan string
	calls   []FetchCall
	mu      sync.Mutex
}

var _ service.GeometrySource = (*FakeGeometrySource)(nil)

// NewFakeGeometrySource creates a source with no layers.
func NewFakeGeometrySource() *FakeGeometrySource {
	return &FakeGeometrySource{
		Layers:  make(map[string][]model.Feature),
		Errors:  make(map[string]error),
		gates:   make(map[string]chan struct{}),
		started: make(chan string, 16),
	}
}

// Gate makes fetches of layerID block until Release(layerID).
func (f *FakeGeometrySource) Gate(layerID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gates[layerID] = make(chan struct{})
}

// Release unblocks a gated layer.
func (f *FakeGeometrySource) Release(layerID string) {
	f.mu.Lock()
	gate, ok := f.gates[layerID]
	delete(f.gates, layerID)
	f.mu.Unlock()
	if ok {
		close(gate)
	}
}

// Started receives the layer id of every fetch as it begins.
func (f *FakeGeometrySource) Started() <-chan string {
	return f.started
}

// Calls returns the recorded fetches.
func (f *FakeGeometrySource) Calls() []FetchCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.calls)
}

// Fetch implements service.GeometrySource.
func (f *FakeGeometrySource) Fetch(ctx context.Context, layerID string, ids []string) ([]model.Feature, error) {
	f.mu.Lock()
	f.calls = append(f.calls, FetchCall{LayerID: layerID, IDs: slices.Clone(ids)})
	gate := f.gates[layerID]
	features := f.Layers[layerID]
	err := f.Errors[layerID]
	f.mu.Unlock()

	select {
	case f.started <- layerID:
	default:
	}

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return slices.Clone(features), nil
	}

	var out []model.Feature
	for _, feat := range features {
		if slices.Contains(ids, feat.ID) {
			out = append(out, feat)
		}
	}
	return out, nil
}

// FakePredictor answers prediction requests from a function and records them.
type FakePredictor struct {
	Fn       func(req service.PredictionRequest) (*service.Prediction, error)
	requests []service.PredictionRequest
	mu       sync.Mutex
}

var _ service.Predictor = (*FakePredictor)(nil)

// Predict implements service.Predictor.
func (p *FakePredictor) Predict(_ context.Context, req service.PredictionRequest) (*service.Prediction, error) {
	p.mu.Lock()
	p.requests = append(p.requests, req)
	p.mu.Unlock()

	if p.Fn == nil {
		return nil, fmt.Errorf("no prediction configured")
	}
	return p.Fn(req)
}

// Requests returns the recorded requests in call order.
func (p *FakePredictor) Requests() []service.PredictionRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.requests)
}

// FakeTableWriter captures exported tables.
type FakeTableWriter struct {
	Err    error
	Header []string
	Rows   [][]string
}

var _ service.TableWriter = (*FakeTableWriter)(nil)

// WriteTable implements service.TableWriter.
func (w *FakeTableWriter) WriteTable(_ context.Context, header []string, rows [][]string) error {
	if w.Err != nil {
		return w.Err
	}
	w.Header = slices.Clone(header)
	w.Rows = rows
	return nil
}
