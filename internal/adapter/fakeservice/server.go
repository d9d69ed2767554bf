// Package fakeservice is an in-process stand-in for the PV forecast service.
// It answers the same endpoints with deterministic synthetic data, so the
// dashboard can be developed and tested without the model backend.
package fakeservice

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/couchcryptid/pv-forecast-dashboard/internal/domain"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/jonboulle/clockwork"
)

const timestampLayout = "2006-01-02T15:04:05.000000"

// Options configure a Server.
type Options struct {
	ModelLoaded bool
	Clock       clockwork.Clock
	Logger      *slog.Logger
	// DataLagDays is how far behind today the newest weather data is.
	DataLagDays int
}

// Server implements the forecast service HTTP API.
type Server struct {
	mux     *http.ServeMux
	clock   clockwork.Clock
	logger  *slog.Logger
	dataLag int

	mu          sync.Mutex
	modelLoaded bool
	calls       map[string]int
	failures    map[string][]injectedFailure
}

type injectedFailure struct {
	status  int
	message string
}

// New creates a Server.
func New(opts Options) *Server {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.DataLagDays <= 0 {
		opts.DataLagDays = 4
	}

	s := &Server{
		mux:         http.NewServeMux(),
		clock:       opts.Clock,
		logger:      opts.Logger,
		dataLag:     opts.DataLagDays,
		modelLoaded: opts.ModelLoaded,
		calls:       make(map[string]int),
		failures:    make(map[string][]injectedFailure),
	}

	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /api/model-metrics", s.handleModelMetrics)
	s.mux.HandleFunc("GET /api/model-health", s.handleModelHealth)
	s.mux.HandleFunc("POST /api/reload-model", s.handleReloadModel)
	s.mux.HandleFunc("POST /api/validate-location", s.handleValidateLocation)
	s.mux.HandleFunc("POST /api/predictions", s.handlePredictions)
	s.mux.HandleFunc("POST /api/export", s.handleExport)

	return s
}

// ServeHTTP counts the call, applies any injected failure, and dispatches.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.calls[r.URL.Path]++
	var fail *injectedFailure
	if queue := s.failures[r.URL.Path]; len(queue) > 0 {
		fail = &queue[0]
		s.failures[r.URL.Path] = queue[1:]
	}
	s.mu.Unlock()

	s.logger.Debug("fake forecast request", "method", r.Method, "path", r.URL.Path)
	if fail != nil {
		writeError(w, fail.status, fail.message)
		return
	}
	s.mux.ServeHTTP(w, r)
}

// FailNext makes the next request to path fail with status and message.
// Calls queue up.
func (s *Server) FailNext(path string, status int, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[path] = append(s.failures[path], injectedFailure{status: status, message: message})
}

// Calls returns how many requests reached path.
func (s *Server) Calls(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[path]
}

// SetModelLoaded toggles whether prediction endpoints have a model.
func (s *Server) SetModelLoaded(loaded bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.modelLoaded = loaded
}

func (s *Server) loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.modelLoaded
}

func (s *Server) timestamp() string {
	return s.clock.Now().Format(timestampLayout)
}

func (s *Server) modelHealth() map[string]any {
	if !s.loaded() {
		return map[string]any{"healthy": false, "error": "Model not loaded"}
	}
	return map[string]any{
		"healthy":         true,
		"test_prediction": 4.812,
		"message":         "Model validation successful",
	}
}

func (s *Server) modelMetrics() map[string]any {
	status := "not_loaded"
	if s.loaded() {
		status = "loaded"
	}
	return map[string]any{
		"model_name":        "PV Production Ensemble Model",
		"status":            status,
		"model_type":        "synthetic",
		"data_source":       "NASA POWER GEOS-IT",
		"prediction_unit":   "kWh (daily)",
		"financial_unit":    "MAD (Moroccan Dirham)",
		"temporal_coverage": "2020-present (~4-day delay)",
		"spatial_coverage":  "Global",
		"training_period":   "2023-06-01 to 2025-07-31",
		"features_count":    "18 features (inc. Capacity)",
		"performance_metrics": map[string]any{
			"status":           "Model loaded and ready",
			"data_quality":     "High (NASA validated)",
			"update_frequency": "Daily",
			"prediction_unit":  "kWh",
		},
		"parameters_used": []string{
			"System Capacity (kWp)",
			"Temperature (2m)",
			"Wind Speed",
			"Precipitation",
			"Humidity",
			"Solar Irradiance (GHI, DNI, Diffuse)",
			"Cloud Amount",
			"Thermal Radiation",
		},
		"geographic_info": map[string]any{
			"coordinate_system": "WGS84",
			"resolution":        "Point data",
			"lat_range":         "[-90, 90]",
			"lon_range":         "[-180, 180]",
		},
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	sharedobs.WriteJSON(w, http.StatusOK, map[string]any{
		"status":       "healthy",
		"model_loaded": s.loaded(),
		"model_health": s.modelHealth(),
		"timestamp":    s.timestamp(),
	})
}

func (s *Server) handleModelMetrics(w http.ResponseWriter, _ *http.Request) {
	sharedobs.WriteJSON(w, http.StatusOK, s.modelMetrics())
}

func (s *Server) handleModelHealth(w http.ResponseWriter, _ *http.Request) {
	sharedobs.WriteJSON(w, http.StatusOK, map[string]any{
		"health_status": s.modelHealth(),
		"model_metrics": s.modelMetrics(),
		"timestamp":     s.timestamp(),
	})
}

func (s *Server) handleReloadModel(w http.ResponseWriter, _ *http.Request) {
	s.SetModelLoaded(true)
	sharedobs.WriteJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"message":   "Model reloaded successfully",
		"timestamp": s.timestamp(),
	})
}

type coordinateRequest struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

func (c coordinateRequest) valid() bool {
	return c.Latitude != nil && c.Longitude != nil &&
		*c.Latitude >= -90 && *c.Latitude <= 90 &&
		*c.Longitude >= -180 && *c.Longitude <= 180
}

func (s *Server) handleValidateLocation(w http.ResponseWriter, r *http.Request) {
	var req coordinateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Latitude == nil || req.Longitude == nil {
		writeError(w, http.StatusBadRequest, "Location validation failed: latitude and longitude are required")
		return
	}
	if *req.Latitude < -90 || *req.Latitude > 90 {
		writeError(w, http.StatusBadRequest, "Latitude must be between -90 and 90")
		return
	}
	if *req.Longitude < -180 || *req.Longitude > 180 {
		writeError(w, http.StatusBadRequest, "Longitude must be between -180 and 180")
		return
	}

	latest := domain.DateOf(s.clock.Now()).AddDays(-s.dataLag)
	sharedobs.WriteJSON(w, http.StatusOK, map[string]any{
		"available":    true,
		"message":      "NASA POWER GEOS-IT data available for this location",
		"latest_date":  latest.String(),
		"data_quality": "High",
	})
}

type predictionRequest struct {
	coordinateRequest
	Capacity  *float64 `json:"capacity"`
	StartDate string   `json:"start_date"`
	EndDate   string   `json:"end_date"`
}

func (s *Server) handlePredictions(w http.ResponseWriter, r *http.Request) {
	if !s.loaded() {
		writeError(w, http.StatusInternalServerError, "Model not loaded")
		return
	}

	var req predictionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid input format: %v", err))
		return
	}
	if !req.valid() {
		writeError(w, http.StatusBadRequest, "Invalid coordinates")
		return
	}
	start, errStart := time.Parse(domain.DateLayout, req.StartDate)
	end, errEnd := time.Parse(domain.DateLayout, req.EndDate)
	if errStart != nil || errEnd != nil {
		writeError(w, http.StatusBadRequest, "Invalid input format: dates must be YYYY-MM-DD")
		return
	}
	if !start.Before(end) {
		writeError(w, http.StatusBadRequest, "Start date must be before end date")
		return
	}
	if end.Sub(start) > domain.MaxRangeDays*24*time.Hour {
		writeError(w, http.StatusBadRequest, "Date range cannot exceed 1 year")
		return
	}
	capacity := 1.0
	if req.Capacity != nil {
		capacity = *req.Capacity
	}

	lat, lng := *req.Latitude, *req.Longitude
	from, to := domain.DateOf(start), domain.DateOf(end)
	records, raw := generate(lat, lng, capacity, from, to)
	s.logger.Info("fake predictions generated", "lat", lat, "lng", lng, "days", len(records), "capacity", capacity)

	sharedobs.WriteJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"predictions": records,
		"summary":     summarize(raw, from, to),
		"metadata": map[string]any{
			"location":        pyFloat(lat) + ", " + pyFloat(lng),
			"capacity":        capacity,
			"conversion_rate": pyFloat(ConversionRate) + " MAD/kWh",
			"model":           "Final PV Model",
			"data_source":     "NASA POWER GEOS-IT",
		},
	})
}

type exportRequest struct {
	Predictions []ExportRow    `json:"predictions"`
	Summary     map[string]any `json:"summary"`
	Metadata    map[string]any `json:"metadata"`
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	var req exportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Export failed: %v", err))
		return
	}
	if len(req.Predictions) == 0 {
		writeError(w, http.StatusBadRequest, "No prediction data provided")
		return
	}

	data, err := BuildWorkbook(req.Predictions, req.Summary, req.Metadata)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Export failed: %v", err))
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", ContentDisposition(ExportFilename(req.Metadata, req.Summary)))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// pyFloat formats v the way the service's labels do: integral values keep a
// trailing ".0".
func pyFloat(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if v == float64(int64(v)) {
		s += ".0"
	}
	return s
}

func writeError(w http.ResponseWriter, status int, message string) {
	sharedobs.WriteJSON(w, status, map[string]string{"error": message})
}
