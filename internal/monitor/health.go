// Package monitor polls the forecast service in the background and answers
// readiness checks from the latest result.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/couchcryptid/pv-forecast-dashboard/internal/domain"
	"github.com/couchcryptid/pv-forecast-dashboard/internal/forecast"
	"github.com/couchcryptid/pv-forecast-dashboard/internal/observability"
)

// ErrNotChecked is reported by CheckReadiness before the first poll completes.
var ErrNotChecked = errors.New("forecast service not checked yet")

// HealthChecker is satisfied by forecast.Service.
type HealthChecker interface {
	CheckHealth(ctx context.Context) (forecast.Health, error)
}

// HealthMonitor runs CheckHealth on a schedule. Polls bypass the session so
// they never touch the user-visible error slot.
type HealthMonitor struct {
	scheduler *gocron.Scheduler
	checker   HealthChecker
	interval  time.Duration
	metrics   *observability.Metrics
	logger    *slog.Logger

	mu        sync.RWMutex
	last      forecast.Health
	lastErr   error
	checkedAt time.Time
}

// NewHealthMonitor creates a monitor polling every interval.
func NewHealthMonitor(checker HealthChecker, interval time.Duration, metrics *observability.Metrics, logger *slog.Logger) *HealthMonitor {
	return &HealthMonitor{
		scheduler: gocron.NewScheduler(time.UTC),
		checker:   checker,
		interval:  interval,
		metrics:   metrics,
		logger:    logger,
	}
}

// Start schedules the poll, running it once immediately.
func (m *HealthMonitor) Start() error {
	_, err := m.scheduler.Every(m.interval).SingletonMode().Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), m.pollTimeout())
		defer cancel()
		m.Poll(ctx)
	})
	if err != nil {
		return fmt.Errorf("schedule health poll: %w", err)
	}
	m.scheduler.StartAsync()
	m.logger.Info("health monitor started", "interval", m.interval)
	return nil
}

// Stop stops the scheduler.
func (m *HealthMonitor) Stop() {
	m.scheduler.Stop()
}

// Poll checks the service once and records the outcome.
func (m *HealthMonitor) Poll(ctx context.Context) {
	h, err := m.checker.CheckHealth(ctx)

	m.mu.Lock()
	wasUp := m.upLocked()
	m.last, m.lastErr, m.checkedAt = h, err, domain.Now()
	up := m.upLocked()
	m.mu.Unlock()

	if up {
		m.metrics.ServiceUp.Set(1)
	} else {
		m.metrics.ServiceUp.Set(0)
	}

	switch {
	case up && !wasUp:
		m.logger.Info("forecast service available", "status", h.Status)
	case !up && err != nil:
		m.logger.Warn("forecast service health check failed", "error", err)
	case !up:
		m.logger.Warn("forecast service not healthy", "status", h.Status, "model_loaded", h.ModelLoaded)
	}
}

// CheckReadiness reports nil when the latest poll found the service healthy
// with a loaded model.
func (m *HealthMonitor) CheckReadiness(_ context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	switch {
	case m.checkedAt.IsZero():
		return ErrNotChecked
	case m.lastErr != nil:
		return fmt.Errorf("forecast service unavailable: %w", m.lastErr)
	case !m.last.Healthy():
		return fmt.Errorf("forecast service not ready: status %q, model loaded %t", m.last.Status, m.last.ModelLoaded)
	}
	return nil
}

func (m *HealthMonitor) upLocked() bool {
	return !m.checkedAt.IsZero() && m.lastErr == nil && m.last.Healthy()
}

// pollTimeout keeps a slow check from overlapping the next tick.
func (m *HealthMonitor) pollTimeout() time.Duration {
	if m.interval > time.Second {
		return m.interval - m.interval/10
	}
	return m.interval
}
