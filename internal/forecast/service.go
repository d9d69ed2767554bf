// Package forecast exposes the forecast service operations. Each one
// validates its input locally, sends at most one request through the
// transport client, and maps the response into typed records. Nothing is
// retried.
package forecast

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"

	"github.com/couchcryptid/pv-forecast-dashboard/internal/adapter/forecastapi"
	"github.com/couchcryptid/pv-forecast-dashboard/internal/domain"
	"github.com/couchcryptid/pv-forecast-dashboard/internal/observability"
)

// Forecast service endpoints.
const (
	EndpointHealth           = "/health"
	EndpointModelMetrics     = "/api/model-metrics"
	EndpointModelHealth      = "/api/model-health"
	EndpointValidateLocation = "/api/validate-location"
	EndpointPredictions      = "/api/predictions"
	EndpointExport           = "/api/export"
)

// Sender issues one request to the forecast service.
type Sender interface {
	Send(ctx context.Context, endpoint string, opts forecastapi.Options) (forecastapi.Body, error)
}

// Service composes local validation with forecast service requests.
type Service struct {
	sender  Sender
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewService creates a Service that sends requests through sender.
func NewService(sender Sender, metrics *observability.Metrics, logger *slog.Logger) *Service {
	return &Service{sender: sender, metrics: metrics, logger: logger}
}

// CheckHealth fetches the service liveness report.
func (s *Service) CheckHealth(ctx context.Context) (Health, error) {
	var h Health
	err := s.getJSON(ctx, EndpointHealth, &h)
	return h, err
}

// GetModelMetrics fetches the model description.
func (s *Service) GetModelMetrics(ctx context.Context) (ModelMetrics, error) {
	body, err := s.sendJSON(ctx, EndpointModelMetrics, forecastapi.Options{})
	if err != nil {
		return ModelMetrics{}, err
	}
	var m ModelMetrics
	if err := decode(EndpointModelMetrics, body, &m); err != nil {
		return ModelMetrics{}, err
	}
	m.Raw = body.Raw
	return m, nil
}

// GetModelHealth fetches the detailed model self-check.
func (s *Service) GetModelHealth(ctx context.Context) (ModelHealth, error) {
	var m ModelHealth
	err := s.getJSON(ctx, EndpointModelHealth, &m)
	return m, err
}

// ValidateLocationRemotely asks the service whether weather data exists for
// the coordinate. An invalid coordinate fails without a request.
func (s *Service) ValidateLocationRemotely(ctx context.Context, lat, lng float64) (LocationAvailability, error) {
	c, err := domain.ValidateCoordinate(lat, lng)
	if err != nil {
		return LocationAvailability{}, s.rejected(err)
	}

	body, err := s.sendJSON(ctx, EndpointValidateLocation, forecastapi.Options{
		Method: http.MethodPost,
		JSON:   coordinatePayload{Latitude: c.Latitude, Longitude: c.Longitude},
	})
	if err != nil {
		return LocationAvailability{}, err
	}
	var a LocationAvailability
	if err := decode(EndpointValidateLocation, body, &a); err != nil {
		return LocationAvailability{}, err
	}
	a.Raw = body.Raw
	return a, nil
}

// GeneratePredictions validates the request against today's date and asks
// the service for daily predictions.
func (s *Service) GeneratePredictions(ctx context.Context, req PredictionRequest) (domain.PredictionResult, error) {
	c, err := domain.ValidateCoordinate(req.Latitude, req.Longitude)
	if err != nil {
		return domain.PredictionResult{}, s.rejected(err)
	}
	r, err := domain.ValidateDateRange(req.StartDate, req.EndDate, domain.Today())
	if err != nil {
		return domain.PredictionResult{}, s.rejected(err)
	}
	if req.Capacity != nil && (math.IsNaN(*req.Capacity) || math.IsInf(*req.Capacity, 0) || *req.Capacity <= 0) {
		return domain.PredictionResult{}, s.rejected(&domain.ValidationError{
			Kind:    domain.KindOutOfRange,
			Field:   "capacity",
			Message: "must be a positive number of kWp",
		})
	}

	body, err := s.sendJSON(ctx, EndpointPredictions, forecastapi.Options{
		Method: http.MethodPost,
		JSON: predictionPayload{
			Latitude:  c.Latitude,
			Longitude: c.Longitude,
			StartDate: r.Start.String(),
			EndDate:   r.End.String(),
			Capacity:  req.Capacity,
		},
	})
	if err != nil {
		return domain.PredictionResult{}, err
	}

	var res domain.PredictionResult
	if err := decode(EndpointPredictions, body, &res); err != nil {
		return domain.PredictionResult{}, err
	}
	if !res.Success {
		var failure struct {
			Error string `json:"error"`
		}
		_ = body.Decode(&failure)
		if failure.Error == "" {
			failure.Error = "service reported an unsuccessful prediction run"
		}
		return domain.PredictionResult{}, &forecastapi.TransportError{
			Message:  failure.Error,
			Status:   http.StatusOK,
			Endpoint: EndpointPredictions,
		}
	}

	s.logger.Debug("predictions received",
		"start", r.Start.String(),
		"end", r.End.String(),
		"days", len(res.Predictions),
	)
	return res, nil
}

// ExportPredictions sends the held records back to the service and returns
// the spreadsheet it produces. An empty sequence fails without a request.
func (s *Service) ExportPredictions(ctx context.Context, predictions []domain.PredictionRecord, summary *domain.SummaryRecord, metadata domain.MetadataRecord) (domain.ExportArtifact, error) {
	if len(predictions) == 0 {
		return domain.ExportArtifact{}, s.rejected(domain.EmptyDatasetError())
	}

	payload := exportPayload{Predictions: predictions, Summary: map[string]any{}, Metadata: metadata}
	if summary != nil {
		payload.Summary = summary
	}
	if payload.Metadata == nil {
		payload.Metadata = domain.MetadataRecord{}
	}

	body, err := s.sender.Send(ctx, EndpointExport, forecastapi.Options{Method: http.MethodPost, JSON: payload})
	if err != nil {
		return domain.ExportArtifact{}, err
	}
	bin, ok := body.(forecastapi.BinaryBody)
	if !ok {
		return domain.ExportArtifact{}, unexpectedBody(EndpointExport, body)
	}
	return domain.ExportArtifact{Data: bin.Data, Header: bin.Header}, nil
}

func (s *Service) getJSON(ctx context.Context, endpoint string, v any) error {
	body, err := s.sendJSON(ctx, endpoint, forecastapi.Options{Method: http.MethodGet})
	if err != nil {
		return err
	}
	return decode(endpoint, body, v)
}

func (s *Service) sendJSON(ctx context.Context, endpoint string, opts forecastapi.Options) (forecastapi.JSONBody, error) {
	body, err := s.sender.Send(ctx, endpoint, opts)
	if err != nil {
		return forecastapi.JSONBody{}, err
	}
	jb, ok := body.(forecastapi.JSONBody)
	if !ok {
		return forecastapi.JSONBody{}, unexpectedBody(endpoint, body)
	}
	return jb, nil
}

// rejected counts a local validation failure and passes it through.
func (s *Service) rejected(err error) error {
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		s.metrics.ValidationFailures.WithLabelValues(string(verr.Kind)).Inc()
		s.logger.Debug("request rejected locally", "kind", verr.Kind, "field", verr.Field, "error", verr.Message)
	}
	return err
}

func decode(endpoint string, body forecastapi.JSONBody, v any) error {
	if err := body.Decode(v); err != nil {
		return &forecastapi.TransportError{
			Message:  err.Error(),
			Status:   http.StatusOK,
			Endpoint: endpoint,
			Err:      err,
		}
	}
	return nil
}

func unexpectedBody(endpoint string, body forecastapi.Body) error {
	return &forecastapi.TransportError{
		Message:  fmt.Sprintf("unexpected %s response", bodyName(body)),
		Status:   http.StatusOK,
		Endpoint: endpoint,
	}
}

func bodyName(body forecastapi.Body) string {
	switch body.(type) {
	case forecastapi.JSONBody:
		return "JSON"
	case forecastapi.BinaryBody:
		return "binary"
	case forecastapi.TextBody:
		return "text"
	default:
		return fmt.Sprintf("%T", body)
	}
}
