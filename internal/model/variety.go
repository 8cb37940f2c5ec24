package model

import (
	"slices"
	"time"
)

// Built-in varieties with calibrated growth parameters on the prediction side.
const (
	VarietyAkitakomachi   = "あきたこまち"
	VarietyKoshihikari    = "コシヒカリ"
	VarietyNijinokirameki = "にじのきらめき"
)

// DefaultRipeningAccumulatedTemp is the default accumulated temperature (°C·day)
// from heading to maturity for a custom variety.
const DefaultRipeningAccumulatedTemp = 1000

// BaseVarieties returns the built-in varieties.
func BaseVarieties() []string {
	return []string{VarietyAkitakomachi, VarietyKoshihikari, VarietyNijinokirameki}
}

// IsBaseVariety reports whether name is built in.
func IsBaseVariety(name string) bool {
	return slices.Contains(BaseVarieties(), name)
}

// Variety is a user-defined variety derived from a base variety.
type Variety struct {
	CreatedAt               time.Time
	ID                      string
	Name                    string
	BaseVariety             string
	AdjustmentDays          int
	RipeningAccumulatedTemp float64
}
