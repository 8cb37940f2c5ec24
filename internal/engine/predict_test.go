package engine

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/suito/internal/common"
	"github.com/Veraticus/suito/internal/csvimport"
	"github.com/Veraticus/suito/internal/layer"
	"github.com/Veraticus/suito/internal/model"
	"github.com/Veraticus/suito/internal/palette"
	"github.com/Veraticus/suito/internal/service"
	"github.com/Veraticus/suito/internal/testutil"
)

func (f *fixture) readyForPrediction(t *testing.T, ids ...string) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, f.ws.SaveWeatherCredentials(ctx, model.WeatherCredentials{User: "w", Password: "p"}))
	for _, id := range ids {
		require.NoError(t, f.ws.SaveParcel(ctx, id, model.Attributes{Variety: model.VarietyKoshihikari, TransplantDate: "2025-05-01"}))
	}
}

func TestPredictSelectedUsesLastSelectedParcel(t *testing.T) {
	f := newFixture(t)
	f.open(t)
	f.readyForPrediction(t, "A", "B")

	_, err := f.ws.PredictSelected(context.Background())
	require.ErrorIs(t, err, common.ErrNoSelection)

	f.ws.Toggle("A")
	f.ws.Toggle("B")

	result, err := f.ws.PredictSelected(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "B", result.ParcelID)
	assert.True(t, result.OK())
	assert.Equal(t, "2025-08-01", result.HeadingDate)

	last, ok := f.ws.LastResult()
	require.True(t, ok)
	assert.Equal(t, result, last)

	reqs := f.predictor.Requests()
	require.Len(t, reqs, 1)
	assert.InDelta(t, 36.31, reqs[0].Lat, 1e-9)
	assert.Equal(t, "w", reqs[0].WeatherUser)
}

func TestPredictSelectedValidatesLocally(t *testing.T) {
	f := newFixture(t)
	f.open(t)
	f.ws.Toggle("A")

	result, err := f.ws.PredictSelected(context.Background())
	require.NoError(t, err)
	assert.False(t, result.OK())
	assert.Contains(t, result.ErrorMessage, model.FieldTransplantDate)
	assert.Empty(t, f.predictor.Requests(), "validation failures must not reach the service")
}

func TestPredictSelectionStreamsAndRecords(t *testing.T) {
	f := newFixture(t)
	f.open(t)
	f.readyForPrediction(t, "A", "C")
	f.predictor.Fn = func(req service.PredictionRequest) (*service.Prediction, error) {
		if req.Lat > 36.315 {
			return nil, &common.ServiceError{Message: "気象データ取得に失敗しました", StatusCode: 500}
		}
		return &service.Prediction{HeadingDate: "2025-08-01", MaturityDate: "2025-09-15"}, nil
	}

	f.ws.Toggle("C")
	f.ws.Toggle("B")
	f.ws.Toggle("A")

	seq, total, err := f.ws.PredictSelection(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, total)

	var order []string
	for id, r := range seq {
		order = append(order, id)
		switch id {
		case "A":
			assert.True(t, r.OK())
		case "B":
			assert.Contains(t, r.ErrorMessage, model.FieldTransplantDate)
		case "C":
			assert.Equal(t, "気象データ取得に失敗しました", r.ErrorMessage)
		}
	}
	assert.Equal(t, []string{"C", "B", "A"}, order)
	assert.Len(t, f.ws.Results(), 3)

	// Single use.
	for range seq {
		t.Fatal("second range must yield nothing")
	}
}

func TestPredictSelectionEarlyStop(t *testing.T) {
	f := newFixture(t)
	f.open(t)
	f.readyForPrediction(t, "A", "B", "C")
	f.ws.Toggle("A")
	f.ws.Toggle("B")
	f.ws.Toggle("C")

	seq, _, err := f.ws.PredictSelection(context.Background())
	require.NoError(t, err)
	for range seq {
		break
	}

	assert.Len(t, f.predictor.Requests(), 1)
	assert.Len(t, f.ws.Results(), 1)
}

func TestPredictWithoutPredictor(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ws, err := New(Deps{Storage: db.Storage, Geometry: testutil.NewFakeGeometrySource(), User: db.User})
	require.NoError(t, err)

	_, err = ws.PredictSelected(context.Background())
	assert.ErrorIs(t, err, common.ErrMissingConfig)
	_, _, err = ws.PredictSelection(context.Background())
	assert.ErrorIs(t, err, common.ErrMissingConfig)
}

func TestExportUsesRecordedResults(t *testing.T) {
	f := newFixture(t)
	f.open(t)
	f.readyForPrediction(t, "A")
	f.ws.Toggle("A")
	f.ws.Toggle("B")

	seq, _, err := f.ws.PredictSelection(context.Background())
	require.NoError(t, err)
	for range seq {
	}

	rows, err := f.ws.ExportTable()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "A", rows[0].ID)
	assert.Equal(t, "2025-08-01", rows[0].PredictedHeadingDate)
	assert.Empty(t, rows[1].PredictedHeadingDate)
	assert.NotEmpty(t, rows[1].Error)

	fc, err := f.ws.ExportGeoJSON()
	require.NoError(t, err)
	require.Len(t, fc.Features, 2)
	assert.Equal(t, "2025-08-01", fc.Features[0].Properties["heading_date_pred"])
	assert.NotContains(t, fc.Features[1].Properties, "heading_date_pred")

	sink := &testutil.FakeTableWriter{}
	n, err := f.ws.ExportToSheet(context.Background(), sink)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, "polygon_uuid", sink.Header[0])
	assert.Len(t, sink.Rows, 2)
}

func TestImportCSV(t *testing.T) {
	f := newFixture(t)
	f.open(t)
	ctx := context.Background()

	records, err := csvimport.ReadCSV(strings.NewReader(strings.Join([]string{
		"polygon_uuid,variety,predicted_heading_date",
		"A,コシヒカリ,2025-08-01",
		"C,コシヒカリ,2025-08-21",
		",orphan,2025-08-10",
	}, "\n")))
	require.NoError(t, err)

	res, err := f.ws.ImportCSV(ctx, layerID, records, "")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Import.Dropped)
	assert.Equal(t, 2, res.Load.Features)
	assert.Equal(t, model.ModeGradient, f.ws.Layer().Mode())
	assert.Equal(t, "凡例 (出穂期)", res.Legend.Title)
	assert.Equal(t, "08/01", res.Legend.MinLabel)
	assert.Equal(t, "08/21", res.Legend.MaxLabel)

	calls := f.source.Calls()
	assert.ElementsMatch(t, []string{"A", "C"}, calls[len(calls)-1].IDs)

	// Imported values are not persisted.
	_, err = f.db.Storage.GetParcelAttribute(ctx, f.db.User, "A")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestImportCSVWithoutUsableIDs(t *testing.T) {
	f := newFixture(t)
	f.open(t)
	before := len(f.source.Calls())

	_, err := f.ws.ImportCSV(context.Background(), layerID, []map[string]string{{"variety": "x"}}, "")
	require.ErrorIs(t, err, common.ErrNoUsableIDs)
	assert.True(t, common.IsEmptyResult(err))
	assert.Len(t, f.source.Calls(), before, "nothing should be fetched")
}

func TestPredictSelectionStopsRecordingAfterSelectionChanges(t *testing.T) {
	f := newFixture(t)
	f.open(t)
	f.readyForPrediction(t, "A", "B", "C")
	f.ws.Toggle("A")
	f.ws.Toggle("B")
	f.ws.Toggle("C")

	seq, _, err := f.ws.PredictSelection(context.Background())
	require.NoError(t, err)

	var yielded []string
	for id := range seq {
		yielded = append(yielded, id)
		if id == "A" {
			f.ws.Toggle("C")
		}
	}

	assert.Equal(t, []string{"A", "B", "C"}, yielded)
	assert.Empty(t, f.ws.Results())
	_, ok := f.ws.LastResult()
	assert.False(t, ok)

	rows, err := f.ws.ExportTable()
	require.NoError(t, err)
	for _, row := range rows {
		assert.Empty(t, row.PredictedHeadingDate, row.ID)
	}
}

func TestImportCSVFailedFetchKeepsPersistedAttributes(t *testing.T) {
	f := newFixture(t)
	f.open(t)
	ctx := context.Background()
	require.NoError(t, f.ws.SaveParcel(ctx, "A", model.Attributes{Variety: "X", TransplantDate: "2025-05-01"}))
	f.source.Errors["2025_082023"] = errors.New("connection refused")

	res, err := f.ws.ImportCSV(ctx, "2025_082023", []map[string]string{
		{"polygon_uuid": "A", "variety": "Y", "transplantDate": "2025-06-10"},
	}, "")
	require.Error(t, err)
	assert.Equal(t, layer.StatusFailed, res.Load.Status)
	assert.Equal(t, layerID, f.ws.Layer().LayerID())

	got, ok := f.ws.Attributes().Get("A")
	require.True(t, ok)
	assert.Equal(t, "X", got.Variety)
	assert.Equal(t, "2025-05-01", got.TransplantDate)

	f.ws.Layer().Restyle()
	style, ok := f.ws.Layer().Style("A")
	require.True(t, ok)
	assert.Equal(t, palette.ColorFor("X", nil), style.FillColor)
}
