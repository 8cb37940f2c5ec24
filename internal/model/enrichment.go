package model

// Unpredictable is returned by the prediction service when a stage is not
// reached within its simulation window.
const Unpredictable = "予測不能"

// WeatherCredentials authenticate the prediction service against the weather
// data provider.
type WeatherCredentials struct {
	User     string
	Password string
}

// IsComplete reports whether both user and password are set.
func (c WeatherCredentials) IsComplete() bool {
	return c.User != "" && c.Password != ""
}

// PredictionInput is what the prediction service needs for one parcel.
type PredictionInput struct {
	ID             string
	TransplantDate string
	Variety        string
	Centroid       Centroid
	HasCentroid    bool
}

// EnrichmentResult is the transient outcome of one prediction call.
type EnrichmentResult struct {
	ParcelID     string
	HeadingDate  string
	MaturityDate string
	ErrorMessage string
}

// OK reports whether the prediction succeeded.
func (r EnrichmentResult) OK() bool {
	return r.ErrorMessage == ""
}
