package domain

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateCoordinate(t *testing.T) {
	tests := []struct {
		name    string
		lat     float64
		lng     float64
		wantErr error
		field   string
	}{
		{name: "casablanca", lat: 33.5731, lng: -7.5898},
		{name: "bounds inclusive", lat: -90, lng: 180},
		{name: "latitude too high", lat: 90.0001, lng: 0, wantErr: ErrOutOfRange, field: "latitude"},
		{name: "latitude too low", lat: -91, lng: 0, wantErr: ErrOutOfRange, field: "latitude"},
		{name: "longitude too high", lat: 0, lng: 180.5, wantErr: ErrOutOfRange, field: "longitude"},
		{name: "longitude too low", lat: 0, lng: -200, wantErr: ErrOutOfRange, field: "longitude"},
		{name: "nan latitude", lat: math.NaN(), lng: 0, wantErr: ErrOutOfRange, field: "latitude"},
		{name: "infinite longitude", lat: 0, lng: math.Inf(-1), wantErr: ErrOutOfRange, field: "longitude"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := ValidateCoordinate(tt.lat, tt.lng)
			if tt.wantErr == nil {
				require.NoError(t, err)
				assert.Equal(t, Coordinate{Latitude: tt.lat, Longitude: tt.lng}, c)
				return
			}
			require.ErrorIs(t, err, tt.wantErr)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, KindOutOfRange, verr.Kind)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestParseCoordinate(t *testing.T) {
	c, err := ParseCoordinate(" 33.5731 ", "-7.5898")
	require.NoError(t, err)
	assert.Equal(t, Coordinate{Latitude: 33.5731, Longitude: -7.5898}, c)

	_, err = ParseCoordinate("", "-7.5")
	assert.ErrorIs(t, err, ErrMissingField)

	_, err = ParseCoordinate("33.5", "west")
	assert.ErrorIs(t, err, ErrOutOfRange)

	_, err = ParseCoordinate("95", "0")
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestValidateDateRange(t *testing.T) {
	today := NewDate(2024, time.June, 15)

	tests := []struct {
		name    string
		start   Date
		end     Date
		wantErr error
	}{
		{name: "ten days", start: NewDate(2024, time.January, 1), end: NewDate(2024, time.January, 10)},
		{name: "end is today", start: NewDate(2024, time.June, 1), end: today},
		{name: "exactly 365 days", start: NewDate(2023, time.June, 16), end: today},
		{name: "missing start", end: today, wantErr: ErrMissingField},
		{name: "missing end", start: today, wantErr: ErrMissingField},
		{name: "same day", start: today, end: today, wantErr: ErrOrderError},
		{name: "reversed", start: NewDate(2024, time.March, 2), end: NewDate(2024, time.March, 1), wantErr: ErrOrderError},
		{name: "future end", start: NewDate(2024, time.June, 1), end: NewDate(2024, time.June, 16), wantErr: ErrFutureDate},
		{name: "366 days", start: NewDate(2023, time.June, 15), end: today, wantErr: ErrRangeTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := ValidateDateRange(tt.start, tt.end, today)
			if tt.wantErr == nil {
				require.NoError(t, err)
				assert.Equal(t, tt.start, r.Start)
				assert.Equal(t, tt.end, r.End)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestValidateDateRange_OrderCheckedBeforeFuture(t *testing.T) {
	today := NewDate(2024, time.June, 15)
	_, err := ValidateDateRange(NewDate(2025, time.January, 2), NewDate(2025, time.January, 1), today)
	assert.ErrorIs(t, err, ErrOrderError)
}

func TestValidateDateRange_LeapYear(t *testing.T) {
	today := NewDate(2025, time.January, 1)

	r, err := ValidateDateRange(NewDate(2024, time.January, 1), NewDate(2024, time.December, 31), today)
	require.NoError(t, err)
	assert.Equal(t, 365, r.Days())

	_, err = ValidateDateRange(NewDate(2024, time.January, 1), NewDate(2025, time.January, 1), today)
	assert.ErrorIs(t, err, ErrRangeTooLarge)
}

func TestParseDate(t *testing.T) {
	assert.Equal(t, NewDate(2024, time.January, 10), ParseDate("2024-01-10"))
	assert.True(t, ParseDate("").IsZero())
	assert.True(t, ParseDate("10/01/2024").IsZero())
	assert.True(t, ParseDate("2024-02-30").IsZero())
}

func TestToday_UsesClock(t *testing.T) {
	SetClock(clockwork.NewFakeClockAt(time.Date(2024, time.March, 5, 23, 59, 0, 0, time.UTC)))
	defer SetClock(nil)

	assert.Equal(t, NewDate(2024, time.March, 5), Today())
	assert.Equal(t, "2024-03-05", Today().String())
}

func TestValidationError_Message(t *testing.T) {
	_, err := ValidateCoordinate(100, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "latitude")
	assert.False(t, errors.Is(err, ErrFutureDate))

	empty := EmptyDatasetError()
	assert.ErrorIs(t, empty, ErrEmptyDataset)
	assert.Equal(t, "predictions: no prediction data to export", empty.Error())
}
