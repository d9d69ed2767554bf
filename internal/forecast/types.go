package forecast

import (
	"encoding/json"

	"github.com/couchcryptid/pv-forecast-dashboard/internal/domain"
)

// Health is the /health response.
type Health struct {
	Status      string         `json:"status"`
	ModelLoaded bool           `json:"model_loaded"`
	ModelHealth map[string]any `json:"model_health,omitempty"`
	Timestamp   string         `json:"timestamp"`
}

// Healthy reports whether the service is up with a usable model.
func (h Health) Healthy() bool {
	return h.Status == "healthy" && h.ModelLoaded
}

// ModelMetrics is the /api/model-metrics response. Raw keeps the full
// document for keys not modelled here.
type ModelMetrics struct {
	ModelName          string          `json:"model_name"`
	Status             string          `json:"status"`
	ModelType          string          `json:"model_type,omitempty"`
	FeaturesCount      any             `json:"features_count,omitempty"`
	TrainingPeriod     string          `json:"training_period,omitempty"`
	DataSource         string          `json:"data_source,omitempty"`
	TemporalCoverage   string          `json:"temporal_coverage,omitempty"`
	SpatialCoverage    string          `json:"spatial_coverage,omitempty"`
	ParametersUsed     []string        `json:"parameters_used,omitempty"`
	PerformanceMetrics map[string]any  `json:"performance_metrics,omitempty"`
	GeographicInfo     map[string]any  `json:"geographic_info,omitempty"`
	Raw                json.RawMessage `json:"-"`
}

// ModelHealth is the detailed /api/model-health response.
type ModelHealth struct {
	HealthStatus map[string]any `json:"health_status"`
	ModelMetrics map[string]any `json:"model_metrics"`
	Timestamp    string         `json:"timestamp"`
}

// Healthy reports the model's own self-check verdict.
func (m ModelHealth) Healthy() bool {
	ok, _ := m.HealthStatus["healthy"].(bool)
	return ok
}

// LocationAvailability is the /api/validate-location response.
type LocationAvailability struct {
	Available   bool            `json:"available"`
	Message     string          `json:"message"`
	LatestDate  string          `json:"latest_date,omitempty"`
	DataQuality any             `json:"data_quality,omitempty"`
	Raw         json.RawMessage `json:"-"`
}

// PredictionRequest is a prediction run as entered by the user. Capacity is
// the installed system size in kWp; nil lets the service use its default.
type PredictionRequest struct {
	Latitude  float64
	Longitude float64
	StartDate domain.Date
	EndDate   domain.Date
	Capacity  *float64
}

type coordinatePayload struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type predictionPayload struct {
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	StartDate string   `json:"start_date"`
	EndDate   string   `json:"end_date"`
	Capacity  *float64 `json:"capacity,omitempty"`
}

type exportPayload struct {
	Predictions []domain.PredictionRecord `json:"predictions"`
	Summary     any                       `json:"summary"`
	Metadata    domain.MetadataRecord     `json:"metadata"`
}
