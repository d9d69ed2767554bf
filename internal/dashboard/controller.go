// Package dashboard is the calling layer of a forecast session. Each
// operation reports its failure into the session error slot and clears the
// slot on success, so the UI can always show the most recent problem.
package dashboard

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/couchcryptid/pv-forecast-dashboard/internal/domain"
	"github.com/couchcryptid/pv-forecast-dashboard/internal/export"
	"github.com/couchcryptid/pv-forecast-dashboard/internal/forecast"
	"github.com/couchcryptid/pv-forecast-dashboard/internal/observability"
	"github.com/couchcryptid/pv-forecast-dashboard/internal/session"
)

// ErrSuperseded is returned by Predict when a newer request, or a Clear,
// overtook this one. The response was discarded.
var ErrSuperseded = errors.New("prediction superseded by a newer request")

// Forecaster is the subset of forecast.Service the controller drives.
type Forecaster interface {
	CheckHealth(ctx context.Context) (forecast.Health, error)
	GetModelMetrics(ctx context.Context) (forecast.ModelMetrics, error)
	GetModelHealth(ctx context.Context) (forecast.ModelHealth, error)
	GeneratePredictions(ctx context.Context, req forecast.PredictionRequest) (domain.PredictionResult, error)
}

// Exporter saves the current session as a workbook.
type Exporter interface {
	Export(ctx context.Context) (export.Result, error)
}

// RunRecorder receives an event for every applied prediction run and saved
// export.
type RunRecorder interface {
	Record(ctx context.Context, event domain.RunEvent) error
}

// Controller coordinates the forecast service, the session store, and exports.
type Controller struct {
	service   Forecaster
	locations forecast.LocationValidator
	store     *session.Store
	exporter  Exporter
	recorder  RunRecorder
	metrics   *observability.Metrics
	logger    *slog.Logger
}

// NewController creates a Controller. A nil recorder disables run events.
func NewController(
	service Forecaster,
	locations forecast.LocationValidator,
	store *session.Store,
	exporter Exporter,
	recorder RunRecorder,
	metrics *observability.Metrics,
	logger *slog.Logger,
) *Controller {
	return &Controller{
		service:   service,
		locations: locations,
		store:     store,
		exporter:  exporter,
		recorder:  recorder,
		metrics:   metrics,
		logger:    logger,
	}
}

// View is the session as presented to the UI.
type View struct {
	State       session.State             `json:"state"`
	Predictions []domain.PredictionRecord `json:"predictions"`
	Summary     *domain.SummaryRecord     `json:"summary,omitempty"`
	Metadata    domain.MetadataRecord     `json:"metadata,omitempty"`
	Statistics  *domain.Statistics        `json:"statistics,omitempty"`
	Error       string                    `json:"error,omitempty"`
}

// Health checks the forecast service.
func (c *Controller) Health(ctx context.Context) (forecast.Health, error) {
	h, err := c.service.CheckHealth(ctx)
	return h, c.settle(err)
}

// ModelMetrics fetches the model description.
func (c *Controller) ModelMetrics(ctx context.Context) (forecast.ModelMetrics, error) {
	m, err := c.service.GetModelMetrics(ctx)
	return m, c.settle(err)
}

// ModelHealth fetches the model's detailed self-check.
func (c *Controller) ModelHealth(ctx context.Context) (forecast.ModelHealth, error) {
	h, err := c.service.GetModelHealth(ctx)
	return h, c.settle(err)
}

// ValidateLocation asks the service whether data exists for a coordinate.
func (c *Controller) ValidateLocation(ctx context.Context, lat, lng float64) (forecast.LocationAvailability, error) {
	a, err := c.locations.ValidateLocationRemotely(ctx, lat, lng)
	return a, c.settle(err)
}

// Predict requests a prediction run and installs it in the session. A
// failure keeps the held run. When a newer request has started meanwhile the
// outcome is dropped and ErrSuperseded (or the request's own error) returned.
func (c *Controller) Predict(ctx context.Context, req forecast.PredictionRequest) (domain.PredictionResult, error) {
	ticket := c.store.Begin()

	res, err := c.service.GeneratePredictions(ctx, req)
	if err != nil {
		if !c.store.Fail(ticket, err) {
			c.logger.Debug("stale prediction failure discarded", "error", err)
		}
		return domain.PredictionResult{}, err
	}
	if !c.store.Apply(ticket, res) {
		c.logger.Info("stale prediction response discarded", "days", len(res.Predictions))
		return res, ErrSuperseded
	}

	c.metrics.PredictionDays.Observe(float64(len(res.Predictions)))
	c.logger.Info("prediction run applied",
		"lat", req.Latitude,
		"lng", req.Longitude,
		"start", req.StartDate,
		"end", req.EndDate,
		"days", len(res.Predictions),
	)

	event := c.newEvent(domain.RunPredicted)
	event.Location = &domain.Coordinate{Latitude: req.Latitude, Longitude: req.Longitude}
	event.DateRange = &domain.DateRange{Start: req.StartDate, End: req.EndDate}
	event.CapacityKWp = req.Capacity
	c.fillTotals(&event, res.Predictions)
	c.publish(ctx, event)

	return res, nil
}

// Session returns the current session with derived statistics. Summary is
// the service's, or one built from the statistics when it sent none.
func (c *Controller) Session() View {
	snap := c.store.Snapshot()
	v := View{
		State:       snap.State,
		Predictions: snap.Predictions,
		Summary:     snap.EffectiveSummary(),
		Metadata:    snap.Metadata,
	}
	if v.Predictions == nil {
		v.Predictions = []domain.PredictionRecord{}
	}
	if stats, ok := snap.Statistics(); ok {
		v.Statistics = &stats
	}
	if snap.Err != nil {
		v.Error = snap.Err.Error()
	}
	return v
}

// Clear empties the session and supersedes requests in flight.
func (c *Controller) Clear() {
	c.store.Clear()
	c.logger.Info("session cleared")
}

// Export saves the held run as a workbook.
func (c *Controller) Export(ctx context.Context) (export.Result, error) {
	snap := c.store.Snapshot()

	res, err := c.exporter.Export(ctx)
	if err = c.settle(err); err != nil {
		return export.Result{}, err
	}

	event := c.newEvent(domain.RunExported)
	event.Filename = res.Filename
	event.Bytes = res.Bytes
	c.fillTotals(&event, snap.Predictions)
	c.publish(ctx, event)

	return res, nil
}

// settle records err in the session error slot, or clears the slot.
func (c *Controller) settle(err error) error {
	if err != nil {
		c.store.SetError(err)
		return err
	}
	c.store.ClearError()
	return nil
}

func (c *Controller) newEvent(kind domain.RunEventKind) domain.RunEvent {
	return domain.RunEvent{
		ID:         uuid.NewString(),
		Kind:       kind,
		OccurredAt: domain.Now().UTC(),
	}
}

func (c *Controller) fillTotals(event *domain.RunEvent, records []domain.PredictionRecord) {
	stats, ok := domain.ComputeStatistics(records)
	if !ok {
		return
	}
	event.Days = stats.Days
	event.TotalProductionKWh = stats.TotalProductionKWh
	event.TotalSavingsMAD = stats.TotalSavingsMAD
	if event.DateRange == nil {
		event.DateRange = &domain.DateRange{Start: stats.FirstDate, End: stats.LastDate}
	}
}

// publish hands event to the recorder. Recorder failures are logged only.
func (c *Controller) publish(ctx context.Context, event domain.RunEvent) {
	if c.recorder == nil {
		return
	}
	if err := c.recorder.Record(ctx, event); err != nil {
		c.metrics.RunEvents.WithLabelValues(string(event.Kind), "error").Inc()
		c.logger.Warn("run event not recorded", "kind", event.Kind, "id", event.ID, "error", err)
		return
	}
	c.metrics.RunEvents.WithLabelValues(string(event.Kind), "published").Inc()
}
