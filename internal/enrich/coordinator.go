// Package enrich drives prediction lookups for parcels.
package enrich

import (
	"context"
	"errors"
	"iter"
	"log/slog"
	"sync/atomic"

	"github.com/Veraticus/suito/internal/common"
	"github.com/Veraticus/suito/internal/model"
	"github.com/Veraticus/suito/internal/service"
)

// Coordinator holds no state between calls.
type Coordinator struct {
	predictor service.Predictor
	logger    *slog.Logger
}

// NewCoordinator creates a coordinator over predictor.
func NewCoordinator(predictor service.Predictor, logger *slog.Logger) *Coordinator {
	return &Coordinator{predictor: predictor, logger: common.OrDefault(logger)}
}

// Validate checks that in and creds carry everything a prediction needs.
func Validate(in model.PredictionInput, creds model.WeatherCredentials) error {
	switch {
	case !in.HasCentroid:
		return common.NewValidationError("location", "parcel has no centroid")
	case in.TransplantDate == "":
		return common.NewValidationError(model.FieldTransplantDate, "transplant date is required")
	case in.Variety == "":
		return common.NewValidationError(model.FieldVariety, "variety is required")
	case !creds.IsComplete():
		return common.NewValidationError("credentials", "weather service user and password are required")
	}
	return nil
}

// PredictOne requests heading and maturity dates for one parcel. Failures are
// reported in the result's ErrorMessage.
func (c *Coordinator) PredictOne(ctx context.Context, in model.PredictionInput, creds model.WeatherCredentials) model.EnrichmentResult {
	result := model.EnrichmentResult{ParcelID: in.ID}

	if err := Validate(in, creds); err != nil {
		result.ErrorMessage = err.Error()
		return result
	}

	pred, err := c.predictor.Predict(ctx, service.PredictionRequest{
		Lat:             in.Centroid.Lat,
		Lon:             in.Centroid.Lon,
		TransplantDate:  in.TransplantDate,
		Variety:         in.Variety,
		WeatherUser:     creds.User,
		WeatherPassword: creds.Password,
	})
	if err != nil {
		result.ErrorMessage = errorMessage(err)
		c.logger.Warn("prediction failed", "parcel", in.ID, "error", err)
		return result
	}
	if pred == nil {
		result.ErrorMessage = "prediction service returned no result"
		return result
	}

	result.HeadingDate = pred.HeadingDate
	result.MaturityDate = pred.MaturityDate
	return result
}

// errorMessage prefers the service's own error text over the wrapped chain.
func errorMessage(err error) string {
	var se *common.ServiceError
	if errors.As(err, &se) && se.Message != "" {
		return se.Message
	}
	return err.Error()
}

// PredictBatch predicts each input in order, one at a time. The sequence is
// lazy and can be ranged over once; later ranges yield nothing. Iteration stops
// early when ctx is done.
func (c *Coordinator) PredictBatch(ctx context.Context, inputs []model.PredictionInput, creds model.WeatherCredentials) iter.Seq2[string, model.EnrichmentResult] {
	var consumed atomic.Bool
	return func(yield func(string, model.EnrichmentResult) bool) {
		if !consumed.CompareAndSwap(false, true) {
			return
		}
		for i, in := range inputs {
			if ctx.Err() != nil {
				c.logger.Info("prediction batch cancelled", "completed", i, "total", len(inputs))
				return
			}
			if !yield(in.ID, c.PredictOne(ctx, in, creds)) {
				return
			}
		}
	}
}
