package forecast

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/couchcryptid/pv-forecast-dashboard/internal/domain"
	"github.com/couchcryptid/pv-forecast-dashboard/internal/observability"
)

// LocationValidator checks remote data availability for a coordinate.
type LocationValidator interface {
	ValidateLocationRemotely(ctx context.Context, lat, lng float64) (LocationAvailability, error)
}

// CachedLocationValidator wraps a LocationValidator with an in-memory LRU cache.
// Keys are coordinates rounded to four decimals, so the range check runs
// before any lookup.
type CachedLocationValidator struct {
	inner   LocationValidator
	cache   *lruCache
	metrics *observability.Metrics
}

// NewCachedLocationValidator creates a cache decorator around a validator.
func NewCachedLocationValidator(inner LocationValidator, maxEntries int, metrics *observability.Metrics) *CachedLocationValidator {
	return &CachedLocationValidator{
		inner:   inner,
		cache:   newLRUCache(maxEntries),
		metrics: metrics,
	}
}

func (c *CachedLocationValidator) ValidateLocationRemotely(ctx context.Context, lat, lng float64) (LocationAvailability, error) {
	if _, err := domain.ValidateCoordinate(lat, lng); err != nil {
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			c.metrics.ValidationFailures.WithLabelValues(string(verr.Kind)).Inc()
		}
		return LocationAvailability{}, err
	}

	key := fmt.Sprintf("%.4f,%.4f", lat, lng)
	if result, ok := c.cache.get(key); ok {
		c.metrics.LocationCache.WithLabelValues("hit").Inc()
		return result, nil
	}
	c.metrics.LocationCache.WithLabelValues("miss").Inc()

	result, err := c.inner.ValidateLocationRemotely(ctx, lat, lng)
	if err != nil {
		return result, err
	}
	// Only positive answers are kept so a location can become available later.
	if result.Available {
		c.cache.put(key, result)
	}
	return result, nil
}

// lruCache is a small thread-safe LRU keyed by rounded coordinate.
type lruCache struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*entry
	head       *entry // most recently used
	tail       *entry // least recently used
}

type entry struct {
	key        string
	value      LocationAvailability
	prev, next *entry
}

func newLRUCache(maxEntries int) *lruCache {
	return &lruCache{
		maxEntries: maxEntries,
		entries:    make(map[string]*entry),
	}
}

func (c *lruCache) get(key string) (LocationAvailability, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return LocationAvailability{}, false
	}
	c.unlink(e)
	c.pushFront(e)
	return e.value, true
}

func (c *lruCache) put(key string, value LocationAvailability) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		c.unlink(e)
		c.pushFront(e)
		return
	}

	e := &entry{key: key, value: value}
	c.entries[key] = e
	c.pushFront(e)

	for len(c.entries) > c.maxEntries && c.tail != nil {
		delete(c.entries, c.tail.key)
		c.unlink(c.tail)
	}
}

func (c *lruCache) pushFront(e *entry) {
	e.prev = nil
	e.next = c.head
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *lruCache) unlink(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
	e.prev, e.next = nil, nil
}
