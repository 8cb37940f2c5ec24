package model

import (
	"fmt"
	"time"
)

// Color is an RGB color.
type Color struct {
	R uint8
	G uint8
	B uint8
}

// Hex renders the color as #RRGGBB.
func (c Color) Hex() string {
	return fmt.Sprintf("#%02X%02X%02X", c.R, c.G, c.B)
}

// String renders the color in CSS rgb() form.
func (c Color) String() string {
	return fmt.Sprintf("rgb(%d,%d,%d)", c.R, c.G, c.B)
}

// StyleMode selects which projection governs every feature's style.
type StyleMode string

// Styling modes.
const (
	ModeSelection StyleMode = "selection"
	ModeGradient  StyleMode = "gradient"
)

// Style is the visual projection of one feature.
type Style struct {
	FillColor   Color
	StrokeColor Color
	Weight      float64
	Opacity     float64
	FillOpacity float64
	Selected    bool
}

// Ramp identifies one of the fixed two-stop gradients.
type Ramp string

// Available ramps.
const (
	RampHeading  Ramp = "heading"
	RampMaturity Ramp = "maturity"
)

// LegendInfo describes the active gradient for external legend rendering.
type LegendInfo struct {
	Min        time.Time
	Max        time.Time
	Field      string
	Title      string
	MinLabel   string
	MaxLabel   string
	Ramp       Ramp
	StartColor Color
	EndColor   Color
	NoData     bool
}
