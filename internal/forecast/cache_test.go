package forecast

import (
	"context"
	"errors"
	"testing"

	"github.com/couchcryptid/pv-forecast-dashboard/internal/domain"
	"github.com/couchcryptid/pv-forecast-dashboard/internal/observability"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingValidator struct {
	calls  int
	result LocationAvailability
	err    error
}

func (v *countingValidator) ValidateLocationRemotely(_ context.Context, _, _ float64) (LocationAvailability, error) {
	v.calls++
	return v.result, v.err
}

func TestCachedLocationValidator_CachesAvailable(t *testing.T) {
	inner := &countingValidator{result: LocationAvailability{Available: true, Message: "ok"}}
	m := observability.NewMetricsForTesting()
	c := NewCachedLocationValidator(inner, 10, m)

	for range 3 {
		got, err := c.ValidateLocationRemotely(context.Background(), 33.5731, -7.5898)
		require.NoError(t, err)
		assert.True(t, got.Available)
	}
	assert.Equal(t, 1, inner.calls)
	assert.InDelta(t, 2, testutil.ToFloat64(m.LocationCache.WithLabelValues("hit")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.LocationCache.WithLabelValues("miss")), 0)
}

func TestCachedLocationValidator_SkipsUnavailableAndErrors(t *testing.T) {
	inner := &countingValidator{result: LocationAvailability{Available: false}}
	c := NewCachedLocationValidator(inner, 10, observability.NewMetricsForTesting())

	_, _ = c.ValidateLocationRemotely(context.Background(), 1, 1)
	_, _ = c.ValidateLocationRemotely(context.Background(), 1, 1)
	assert.Equal(t, 2, inner.calls)

	inner.err = errors.New("boom")
	_, err := c.ValidateLocationRemotely(context.Background(), 2, 2)
	assert.Error(t, err)
	assert.Equal(t, 3, inner.calls)
}

func TestCachedLocationValidator_RangeCheckedBeforeLookup(t *testing.T) {
	inner := &countingValidator{result: LocationAvailability{Available: true}}
	m := observability.NewMetricsForTesting()
	c := NewCachedLocationValidator(inner, 10, m)

	_, err := c.ValidateLocationRemotely(context.Background(), 90, 0)
	require.NoError(t, err)

	// Rounds to the cached "90.0000,0.0000" key but lies outside [-90, 90].
	got, err := c.ValidateLocationRemotely(context.Background(), 90.00004, 0)
	require.ErrorIs(t, err, domain.ErrOutOfRange)
	assert.False(t, got.Available)

	_, err = c.ValidateLocationRemotely(context.Background(), 0, -180.00001)
	require.ErrorIs(t, err, domain.ErrOutOfRange)

	assert.Equal(t, 1, inner.calls)
	assert.InDelta(t, 2, testutil.ToFloat64(m.ValidationFailures.WithLabelValues(string(domain.KindOutOfRange))), 0)
	assert.InDelta(t, 0, testutil.ToFloat64(m.LocationCache.WithLabelValues("hit")), 0)
}

func TestLRUCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c := newLRUCache(2)
	c.put("a", LocationAvailability{Message: "a"})
	c.put("b", LocationAvailability{Message: "b"})

	_, ok := c.get("a") // a becomes most recent
	require.True(t, ok)

	c.put("c", LocationAvailability{Message: "c"})

	_, ok = c.get("b")
	assert.False(t, ok, "b should have been evicted")
	got, ok := c.get("a")
	assert.True(t, ok)
	assert.Equal(t, "a", got.Message)
	_, ok = c.get("c")
	assert.True(t, ok)
}

func TestLRUCache_UpdateExisting(t *testing.T) {
	c := newLRUCache(1)
	c.put("a", LocationAvailability{Message: "old"})
	c.put("a", LocationAvailability{Message: "new"})

	got, ok := c.get("a")
	require.True(t, ok)
	assert.Equal(t, "new", got.Message)
	assert.Len(t, c.entries, 1)
}
