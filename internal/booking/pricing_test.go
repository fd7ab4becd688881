package booking_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/museum-booking/internal/booking"
	"github.com/iliyamo/museum-booking/internal/model"
)

func TestPricingCompute(t *testing.T) {
	p := booking.NewPricing(testConfig())

	tests := []struct {
		name      string
		base      *int64
		headcount int
		addOn     model.AddOn
		want      booking.Quote
	}{
		{"base only", cents(5000), 3, model.AddOnNone, booking.Quote{BaseCents: 15000, TotalCents: 15000}},
		{"audio per head", cents(5000), 2, model.AddOnAudioGuide, booking.Quote{BaseCents: 10000, AddOnCents: 4000, RentalFeeCents: 4000, TotalCents: 14000}},
		{"guide flat", cents(5000), 4, model.AddOnGuide, booking.Quote{BaseCents: 20000, AddOnCents: 5000, TotalCents: 25000}},
		{"missing base uses fallback", nil, 2, model.AddOnNone, booking.Quote{BaseCents: 10000, TotalCents: 10000}},
		{"free item", cents(0), 5, model.AddOnGuide, booking.Quote{AddOnCents: 5000, TotalCents: 5000}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := p.Compute(tt.base, tt.headcount, tt.addOn)
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPricingRejectsBadInput(t *testing.T) {
	p := booking.NewPricing(testConfig())

	for _, n := range []int{0, -1} {
		_, err := p.Compute(cents(5000), n, model.AddOnNone)
		requireKind(t, err, booking.KindValidation, booking.CodeInvalidHeadcount)
	}
	_, err := p.Compute(cents(5000), 1, model.AddOn("jetpack"))
	requireKind(t, err, booking.KindValidation, booking.CodeInvalidAddOn)
}

func TestParseHeadcount(t *testing.T) {
	good := map[any]int{float64(3): 3, "4": 4, " 2 ": 2, 1: 1, "5.0": 5}
	for in, want := range good {
		got, err := booking.ParseHeadcount(in)
		assert.NoError(t, err, "%v", in)
		assert.Equal(t, want, got)
	}
	for _, in := range []any{float64(0), float64(-2), 2.5, "abc", "", nil, true, "NaN"} {
		_, err := booking.ParseHeadcount(in)
		requireKind(t, err, booking.KindValidation, booking.CodeInvalidHeadcount)
	}
}

func TestParseScheduleTime(t *testing.T) {
	for _, in := range []string{"2026-11-02T10:00:00Z", "2026-11-02T10:00", "2026-11-02 10:00:00", "2026-11-02"} {
		got, err := booking.ParseScheduleTime(in)
		assert.NoError(t, err, in)
		assert.Equal(t, 2026, got.Year())
		assert.Equal(t, "UTC", got.Location().String())
	}
	got, err := booking.ParseScheduleTime("2026-10-23T19:00:00.4Z")
	require.NoError(t, err)
	assert.Zero(t, got.Nanosecond())
	assert.True(t, time.Date(2026, 10, 23, 19, 0, 0, 0, time.UTC).Equal(got))

	got, err = booking.ParseScheduleTime("2026-10-23T21:00:00.999+02:00")
	require.NoError(t, err)
	assert.True(t, time.Date(2026, 10, 23, 19, 0, 0, 0, time.UTC).Equal(got))

	_, err = booking.ParseScheduleTime("next tuesday")
	requireKind(t, err, booking.KindValidation, booking.CodeInvalidSchedule)
	_, err = booking.ParseScheduleTime("  ")
	requireKind(t, err, booking.KindValidation, booking.CodeInvalidSchedule)
}
