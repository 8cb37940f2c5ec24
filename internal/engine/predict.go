package engine

import (
	"context"
	"fmt"
	"iter"

	"github.com/Veraticus/suito/internal/common"
	"github.com/Veraticus/suito/internal/model"
)

// PredictSelected predicts the most recently selected parcel and records the
// result as the last result.
func (w *Workspace) PredictSelected(ctx context.Context) (model.EnrichmentResult, error) {
	if w.coordinator == nil {
		return model.EnrichmentResult{}, fmt.Errorf("%w: prediction service", common.ErrMissingConfig)
	}
	ids := w.layer.Selection()
	if len(ids) == 0 {
		return model.EnrichmentResult{}, common.ErrNoSelection
	}

	f, ok := w.layer.Feature(ids[len(ids)-1])
	if !ok {
		return model.EnrichmentResult{}, common.ErrNoSelection
	}

	epoch := w.currentResultEpoch()
	result := w.coordinator.PredictOne(ctx, w.inputFor(f), w.Credentials())
	w.record(epoch, result)
	return result, nil
}

// PredictSelection returns a lazy sequence over every selected parcel in
// selection order. Each result is recorded as it is yielded, so a consumer that
// stops early leaves the already-yielded results in place. Once the selection
// changes, the remaining results are still yielded but no longer recorded.
func (w *Workspace) PredictSelection(ctx context.Context) (iter.Seq2[string, model.EnrichmentResult], int, error) {
	if w.coordinator == nil {
		return nil, 0, fmt.Errorf("%w: prediction service", common.ErrMissingConfig)
	}
	selected := w.layer.Selected()
	if len(selected) == 0 {
		return nil, 0, common.ErrNoSelection
	}

	inputs := make([]model.PredictionInput, len(selected))
	for i, f := range selected {
		inputs[i] = w.inputFor(f)
	}

	epoch := w.currentResultEpoch()
	batch := w.coordinator.PredictBatch(ctx, inputs, w.Credentials())
	seq := func(yield func(string, model.EnrichmentResult) bool) {
		for id, result := range batch {
			w.record(epoch, result)
			if !yield(id, result) {
				return
			}
		}
	}
	return seq, len(inputs), nil
}

func (w *Workspace) inputFor(f model.Feature) model.PredictionInput {
	a, _ := w.attrs.Get(f.ID)
	return model.PredictionInput{
		ID:             f.ID,
		TransplantDate: a.TransplantDate,
		Variety:        a.Variety,
		Centroid:       f.Centroid,
		HasCentroid:    f.HasCentroid,
	}
}
