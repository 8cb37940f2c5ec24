package palette

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/suito/internal/model"
)

func date(t *testing.T, s string) time.Time {
	t.Helper()
	d, ok := model.ParseDate(s)
	require.True(t, ok, s)
	return d
}

func TestColorForDateEndpoints(t *testing.T) {
	minDate := date(t, "2025-08-01")
	maxDate := date(t, "2025-08-31")

	for _, r := range []model.Ramp{model.RampHeading, model.RampMaturity} {
		start, end, err := RampEnds(r)
		require.NoError(t, err)

		assert.Equal(t, start, ColorForDate("2025-08-01", minDate, maxDate, r), r)
		assert.Equal(t, end, ColorForDate("2025-08-31", minDate, maxDate, r), r)
	}
}

func TestColorForDateHeadingMidpoint(t *testing.T) {
	minDate := date(t, "2025-08-01")
	maxDate := date(t, "2025-08-03")

	got := ColorForDate("2025-08-02", minDate, maxDate, model.RampHeading)
	assert.Equal(t, model.Color{R: 128, G: 0, B: 128}, got)
}

func TestColorForDateIsMonotonic(t *testing.T) {
	minDate := date(t, "2025-08-01")
	maxDate := date(t, "2025-09-30")

	for _, r := range []model.Ramp{model.RampHeading, model.RampMaturity} {
		prev := -1
		for d := minDate; !d.After(maxDate); d = d.AddDate(0, 0, 1) {
			c := ColorForDate(d.Format(model.DateLayout), minDate, maxDate, r)
			assert.GreaterOrEqual(t, int(c.R), prev, "%s at %s", r, d.Format(model.DateLayout))
			prev = int(c.R)
		}
		assert.Equal(t, 255, prev)
	}
}

func TestColorForDateNeutralCases(t *testing.T) {
	minDate := date(t, "2025-08-01")
	maxDate := date(t, "2025-08-31")

	for _, v := range []string{"", "not a date", "2025-07-31", "2025-09-01", model.Unpredictable} {
		t.Run(v, func(t *testing.T) {
			assert.Equal(t, NoData, ColorForDate(v, minDate, maxDate, model.RampHeading))
			assert.Equal(t, NoData, ColorForDate(v, minDate, maxDate, model.RampMaturity))
		})
	}

	assert.Equal(t, NoData, ColorForDate("2025-08-10", minDate, maxDate, model.Ramp("bogus")))
}

func TestColorForDateDegenerateRange(t *testing.T) {
	d := date(t, "2025-08-15")
	start, _, err := RampEnds(model.RampMaturity)
	require.NoError(t, err)

	assert.Equal(t, start, ColorForDate("2025-08-15", d, d, model.RampMaturity))
}

func TestObservedRange(t *testing.T) {
	minDate, maxDate, ok := ObservedRange([]string{"2025-08-20", "", "garbage", "2025/08/03", "2025-09-01"})
	require.True(t, ok)
	assert.Equal(t, date(t, "2025-08-03"), minDate)
	assert.Equal(t, date(t, "2025-09-01"), maxDate)

	_, _, ok = ObservedRange([]string{"", model.Unpredictable})
	assert.False(t, ok)

	_, _, ok = ObservedRange(nil)
	assert.False(t, ok)
}

func TestRampForField(t *testing.T) {
	r, err := RampForField(model.FieldPredictedHeading)
	require.NoError(t, err)
	assert.Equal(t, model.RampHeading, r)

	r, err = RampForField(model.FieldPredictedMaturity)
	require.NoError(t, err)
	assert.Equal(t, model.RampMaturity, r)

	_, err = RampForField(model.FieldVariety)
	assert.Error(t, err)
}
