package enrich

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/Veraticus/suito/internal/common"
	"github.com/Veraticus/suito/internal/model"
	"github.com/Veraticus/suito/internal/service"
	"github.com/Veraticus/suito/internal/testutil"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var creds = model.WeatherCredentials{User: "u", Password: "p"}

func input(id string) model.PredictionInput {
	return model.PredictionInput{
		ID:             id,
		TransplantDate: "2025-05-01",
		Variety:        model.VarietyKoshihikari,
		Centroid:       model.Centroid{Lat: 36.3, Lon: 140.4},
		HasCentroid:    true,
	}
}

func TestPredictOneValidation(t *testing.T) {
	tests := []struct {
		mutate func(*model.PredictionInput, *model.WeatherCredentials)
		name   string
		field  string
	}{
		{
			name:   "no centroid",
			mutate: func(in *model.PredictionInput, _ *model.WeatherCredentials) { in.HasCentroid = false },
			field:  "location",
		},
		{
			name:   "no transplant date",
			mutate: func(in *model.PredictionInput, _ *model.WeatherCredentials) { in.TransplantDate = "" },
			field:  model.FieldTransplantDate,
		},
		{
			name:   "no variety",
			mutate: func(in *model.PredictionInput, _ *model.WeatherCredentials) { in.Variety = "" },
			field:  model.FieldVariety,
		},
		{
			name:   "no password",
			mutate: func(_ *model.PredictionInput, c *model.WeatherCredentials) { c.Password = "" },
			field:  "credentials",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &testutil.FakePredictor{}
			c := NewCoordinator(p, nil)

			in, cr := input("p1"), creds
			tt.mutate(&in, &cr)

			var ve *common.ValidationError
			require.ErrorAs(t, Validate(in, cr), &ve)
			assert.Equal(t, tt.field, ve.Field)

			res := c.PredictOne(context.Background(), in, cr)
			assert.False(t, res.OK())
			assert.Equal(t, "p1", res.ParcelID)
			assert.Empty(t, p.Requests(), "validation failures never reach the service")
		})
	}
}

func TestPredictOne(t *testing.T) {
	p := &testutil.FakePredictor{Fn: func(req service.PredictionRequest) (*service.Prediction, error) {
		return &service.Prediction{HeadingDate: "2025-08-05", MaturityDate: model.Unpredictable}, nil
	}}
	c := NewCoordinator(p, nil)

	first := c.PredictOne(context.Background(), input("p1"), creds)
	second := c.PredictOne(context.Background(), input("p1"), creds)

	assert.True(t, first.OK())
	assert.Equal(t, "2025-08-05", first.HeadingDate)
	assert.Equal(t, model.Unpredictable, first.MaturityDate)
	assert.Equal(t, first, second)

	reqs := p.Requests()
	require.Len(t, reqs, 2, "no cache between calls")
	assert.Equal(t, service.PredictionRequest{
		Lat: 36.3, Lon: 140.4, TransplantDate: "2025-05-01", Variety: model.VarietyKoshihikari,
		WeatherUser: "u", WeatherPassword: "p",
	}, reqs[0])
}

func TestPredictBatchContinuesPastFailures(t *testing.T) {
	p := &testutil.FakePredictor{Fn: func(req service.PredictionRequest) (*service.Prediction, error) {
		if req.Lat < 0 {
			return nil, &common.ServiceError{Message: "bad coords", StatusCode: 500}
		}
		return &service.Prediction{HeadingDate: "2025-08-05", MaturityDate: "2025-09-20"}, nil
	}}
	c := NewCoordinator(p, nil)

	p2 := input("p2")
	p2.Centroid.Lat = -1
	seq := c.PredictBatch(context.Background(), []model.PredictionInput{input("p1"), p2, input("p3")}, creds)

	var ids []string
	var results []model.EnrichmentResult
	for id, r := range seq {
		ids = append(ids, id)
		results = append(results, r)
	}

	assert.Equal(t, []string{"p1", "p2", "p3"}, ids)
	assert.Equal(t, model.EnrichmentResult{ParcelID: "p1", HeadingDate: "2025-08-05", MaturityDate: "2025-09-20"}, results[0])
	assert.Equal(t, model.EnrichmentResult{ParcelID: "p2", ErrorMessage: "bad coords"}, results[1])
	assert.True(t, results[2].OK())

	for range seq {
		t.Fatal("a consumed batch yields nothing")
	}
	assert.Len(t, p.Requests(), 3)
}

func TestPredictBatchIsLazy(t *testing.T) {
	p := &testutil.FakePredictor{Fn: func(service.PredictionRequest) (*service.Prediction, error) {
		return &service.Prediction{HeadingDate: "2025-08-05", MaturityDate: "2025-09-20"}, nil
	}}
	c := NewCoordinator(p, nil)

	seq := c.PredictBatch(context.Background(), []model.PredictionInput{input("p1"), input("p2"), input("p3")}, creds)
	assert.Empty(t, p.Requests())

	for id := range seq {
		assert.Equal(t, "p1", id)
		break
	}
	assert.Len(t, p.Requests(), 1)
}

func TestPredictBatchStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p := &testutil.FakePredictor{Fn: func(service.PredictionRequest) (*service.Prediction, error) {
		cancel()
		return nil, errors.New("interrupted")
	}}
	c := NewCoordinator(p, nil)

	count := 0
	for _, r := range c.PredictBatch(ctx, []model.PredictionInput{input("p1"), input("p2")}, creds) {
		count++
		assert.Equal(t, "interrupted", r.ErrorMessage)
	}
	assert.Equal(t, 1, count)
}
