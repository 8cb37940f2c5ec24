package prediction

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/suito/internal/common"
	"github.com/Veraticus/suito/internal/model"
	"github.com/Veraticus/suito/internal/service"
)

var request = service.PredictionRequest{
	Lat: 36.3, Lon: 140.4, TransplantDate: "2025-05-01", Variety: model.VarietyKoshihikari,
	WeatherUser: "u", WeatherPassword: "p",
}

func TestPredict(t *testing.T) {
	tests := []struct {
		want        *service.Prediction
		name        string
		body        string
		wantMessage string
		status      int
		wantStatus  int
	}{
		{
			name:   "success",
			status: http.StatusOK,
			body:   `{"heading_date":"2025-08-05","maturity_date":"2025-09-20"}`,
			want:   &service.Prediction{HeadingDate: "2025-08-05", MaturityDate: "2025-09-20"},
		},
		{
			name:   "camel case fields",
			status: http.StatusOK,
			body:   `{"headingDate":"2025-08-05","maturityDate":"予測不能"}`,
			want:   &service.Prediction{HeadingDate: "2025-08-05", MaturityDate: model.Unpredictable},
		},
		{
			name:        "error payload on 500",
			status:      http.StatusInternalServerError,
			body:        `{"error":"bad coords"}`,
			wantMessage: "bad coords",
			wantStatus:  http.StatusInternalServerError,
		},
		{
			name:        "error payload on 200",
			status:      http.StatusOK,
			body:        `{"error":"weather data unavailable"}`,
			wantMessage: "weather data unavailable",
			wantStatus:  http.StatusOK,
		},
		{
			name:        "opaque failure",
			status:      http.StatusBadGateway,
			body:        `<html>bad gateway</html>`,
			wantMessage: "prediction API error (status 502)",
			wantStatus:  http.StatusBadGateway,
		},
		{
			name:        "success without dates",
			status:      http.StatusOK,
			body:        `{}`,
			wantMessage: "response has no prediction dates",
			wantStatus:  http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

				var got map[string]any
				assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
				assert.Equal(t, map[string]any{
					"lat": 36.3, "lon": 140.4, "transplantDate": "2025-05-01",
					"variety": model.VarietyKoshihikari, "weatherUser": "u", "weatherPassword": "p",
				}, got)

				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c, err := NewClient(Config{URL: srv.URL + "/predict", HTTPClient: srv.Client()})
			require.NoError(t, err)

			got, err := c.Predict(context.Background(), request)
			if tt.wantMessage == "" {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
				return
			}

			var se *common.ServiceError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, tt.wantMessage, se.Message)
			assert.Equal(t, tt.wantStatus, se.StatusCode)
		})
	}
}

func TestPredictUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := NewClient(Config{URL: url})
	require.NoError(t, err)

	_, err = c.Predict(context.Background(), request)
	var se *common.ServiceError
	require.ErrorAs(t, err, &se)
	assert.Contains(t, se.Message, "request failed")
}

func TestNewClientRequiresURL(t *testing.T) {
	_, err := NewClient(Config{})
	assert.ErrorIs(t, err, common.ErrMissingConfig)
}
