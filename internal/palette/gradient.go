package palette

import (
	"fmt"
	"math"
	"time"

	"github.com/Veraticus/suito/internal/model"
)

// NoData is the fill for dates that are missing, unparseable or out of range.
var NoData = model.Color{R: 0x80, G: 0x80, B: 0x80}

type ramp struct {
	start model.Color
	end   model.Color
}

var ramps = map[model.Ramp]ramp{
	model.RampHeading:  {start: model.Color{R: 0, G: 0, B: 255}, end: model.Color{R: 255, G: 0, B: 0}},
	model.RampMaturity: {start: model.Color{R: 0, G: 255, B: 0}, end: model.Color{R: 255, G: 255, B: 0}},
}

// RampEnds returns the start and end colors of r.
func RampEnds(r model.Ramp) (start, end model.Color, err error) {
	rp, ok := ramps[r]
	if !ok {
		return model.Color{}, model.Color{}, fmt.Errorf("unknown ramp %q", r)
	}
	return rp.start, rp.end, nil
}

// RampForField returns the ramp used to visualize a predicted-date field.
func RampForField(field string) (model.Ramp, error) {
	switch field {
	case model.FieldPredictedHeading:
		return model.RampHeading, nil
	case model.FieldPredictedMaturity:
		return model.RampMaturity, nil
	default:
		return "", fmt.Errorf("field %q has no gradient ramp", field)
	}
}

// ColorForDate places value within [minDate, maxDate] on ramp r.
func ColorForDate(value string, minDate, maxDate time.Time, r model.Ramp) model.Color {
	t, ok := model.ParseDate(value)
	if !ok {
		return NoData
	}
	rp, known := ramps[r]
	if !known {
		return NoData
	}
	if t.Before(minDate) || t.After(maxDate) {
		return NoData
	}

	ratio := 0.0
	if span := maxDate.Sub(minDate); span > 0 {
		ratio = float64(t.Sub(minDate)) / float64(span)
	}
	ratio = math.Max(0, math.Min(1, ratio))

	return model.Color{
		R: lerp(rp.start.R, rp.end.R, ratio),
		G: lerp(rp.start.G, rp.end.G, ratio),
		B: lerp(rp.start.B, rp.end.B, ratio),
	}
}

func lerp(a, b uint8, ratio float64) uint8 {
	return uint8(math.Round(float64(a) + (float64(b)-float64(a))*ratio))
}

// ObservedRange returns the earliest and latest parseable dates in values.
// ok is false when none parse.
func ObservedRange(values []string) (minDate, maxDate time.Time, ok bool) {
	for _, v := range values {
		t, parsed := model.ParseDate(v)
		if !parsed {
			continue
		}
		if !ok || t.Before(minDate) {
			minDate = t
		}
		if !ok || t.After(maxDate) {
			maxDate = t
		}
		ok = true
	}
	return minDate, maxDate, ok
}
