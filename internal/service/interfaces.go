// Package service defines the interfaces between the core and its external collaborators.
package service

import (
	"context"
	"time"

	"github.com/Veraticus/suito/internal/model"
)

// ParcelWrite is one item of a batched attribute merge.
type ParcelWrite struct {
	ID    string
	Patch model.AttributePatch
}

// ItemResult is the per-item outcome of a batched write. Err is nil on success.
type ItemResult struct {
	Err error
	ID  string
}

// Storage defines the contract for the per-user persistence layer.
type Storage interface {
	// Parcel attribute operations
	GetParcelAttributes(ctx context.Context, user string) ([]model.AttributeRecord, error)
	GetParcelAttribute(ctx context.Context, user, id string) (*model.Attributes, error)
	MergeParcelAttributes(ctx context.Context, user, id string, patch model.AttributePatch) error
	BatchMergeParcelAttributes(ctx context.Context, user string, writes []ParcelWrite) ([]ItemResult, error)
	DeleteParcelAttributes(ctx context.Context, user, id string) error
	BatchDeleteParcelAttributes(ctx context.Context, user string, ids []string) ([]ItemResult, error)

	// Variety color preferences
	GetVarietyColors(ctx context.Context, user string) (map[string]model.Color, error)
	SaveVarietyColor(ctx context.Context, user, variety string, color model.Color) error

	// Weather service credentials
	GetWeatherCredentials(ctx context.Context, user string) (*model.WeatherCredentials, error)
	SaveWeatherCredentials(ctx context.Context, user string, creds model.WeatherCredentials) error

	// Custom varieties
	GetVarieties(ctx context.Context, user string) ([]model.Variety, error)
	CreateVariety(ctx context.Context, user string, v *model.Variety) error

	// Database management
	Migrate(ctx context.Context) error
	Close() error
}

// GeometrySource fetches parcel polygons for one municipality layer. A non-empty
// ids restricts the result to those polygon_uuid values.
type GeometrySource interface {
	Fetch(ctx context.Context, layerID string, ids []string) ([]model.Feature, error)
}

// PredictionRequest is the payload sent to the prediction service.
type PredictionRequest struct {
	TransplantDate  string  `json:"transplantDate"`
	Variety         string  `json:"variety"`
	WeatherUser     string  `json:"weatherUser"`
	WeatherPassword string  `json:"weatherPassword"`
	Lat             float64 `json:"lat"`
	Lon             float64 `json:"lon"`
}

// Prediction is a successful prediction response.
type Prediction struct {
	HeadingDate  string
	MaturityDate string
}

// Predictor calls the external growth prediction service.
type Predictor interface {
	Predict(ctx context.Context, req PredictionRequest) (*Prediction, error)
}

// TableWriter receives exported rows, e.g. a spreadsheet.
type TableWriter interface {
	WriteTable(ctx context.Context, header []string, rows [][]string) error
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
