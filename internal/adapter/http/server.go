package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/pv-forecast-dashboard/internal/adapter/forecastapi"
	"github.com/couchcryptid/pv-forecast-dashboard/internal/dashboard"
	"github.com/couchcryptid/pv-forecast-dashboard/internal/domain"
	"github.com/couchcryptid/pv-forecast-dashboard/internal/export"
	"github.com/couchcryptid/pv-forecast-dashboard/internal/forecast"
)

const maxRequestBytes = 1 << 20

// Dashboard is the session API the server exposes.
type Dashboard interface {
	Health(ctx context.Context) (forecast.Health, error)
	ModelMetrics(ctx context.Context) (forecast.ModelMetrics, error)
	ModelHealth(ctx context.Context) (forecast.ModelHealth, error)
	ValidateLocation(ctx context.Context, lat, lng float64) (forecast.LocationAvailability, error)
	Predict(ctx context.Context, req forecast.PredictionRequest) (domain.PredictionResult, error)
	Session() dashboard.View
	Clear()
	Export(ctx context.Context) (export.Result, error)
}

// Server exposes the session API alongside health, readiness, and metrics.
type Server struct {
	httpServer *http.Server
	dash       Dashboard
	logger     *slog.Logger
}

// NewServer creates an HTTP server with the session API plus /healthz,
// /readyz, and /metrics routes.
func NewServer(addr string, dash Dashboard, ready sharedobs.ReadinessChecker, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:        addr,
			Handler:     mux,
			ReadTimeout: 10 * time.Second,
			// Prediction and export requests wait on the forecast service.
			WriteTimeout: 5 * time.Minute,
			IdleTimeout:  60 * time.Second,
		},
		dash:   dash,
		logger: logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /api/service/health", s.handleServiceHealth)
	mux.HandleFunc("GET /api/service/model-metrics", s.handleModelMetrics)
	mux.HandleFunc("GET /api/service/model-health", s.handleModelHealth)
	mux.HandleFunc("POST /api/location/validate", s.handleValidateLocation)
	mux.HandleFunc("POST /api/predictions", s.handlePredict)
	mux.HandleFunc("GET /api/session", s.handleSession)
	mux.HandleFunc("DELETE /api/session", s.handleClearSession)
	mux.HandleFunc("POST /api/session/export", s.handleExport)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleServiceHealth(w http.ResponseWriter, r *http.Request) {
	h, err := s.dash.Health(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, h)
}

func (s *Server) handleModelMetrics(w http.ResponseWriter, r *http.Request) {
	m, err := s.dash.ModelMetrics(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeRawOr(w, m.Raw, m)
}

func (s *Server) handleModelHealth(w http.ResponseWriter, r *http.Request) {
	h, err := s.dash.ModelHealth(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, h)
}

func (s *Server) handleValidateLocation(w http.ResponseWriter, r *http.Request) {
	var req locationRequest
	if err := bind(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	a, err := s.dash.ValidateLocation(r.Context(), *req.Latitude, *req.Longitude)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeRawOr(w, a.Raw, a)
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	var req predictionRequest
	if err := bind(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	preq, err := req.toForecast()
	if err != nil {
		s.writeError(w, err)
		return
	}
	res, err := s.dash.Predict(r.Context(), preq)
	if err != nil {
		s.writeError(w, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, res)
}

func (s *Server) handleSession(w http.ResponseWriter, _ *http.Request) {
	sharedobs.WriteJSON(w, http.StatusOK, s.dash.Session())
}

func (s *Server) handleClearSession(w http.ResponseWriter, _ *http.Request) {
	s.dash.Clear()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	res, err := s.dash.Export(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusCreated, res)
}

// writeError maps a failure onto a status code: validation 400, service
// unreachable 503, service-reported failure 502, local save 500.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	var (
		verr *domain.ValidationError
		terr *forecastapi.TransportError
		serr *export.SaveError
	)
	switch {
	case errors.As(err, &verr):
		sharedobs.WriteJSON(w, http.StatusBadRequest, map[string]string{
			"error": err.Error(),
			"kind":  string(verr.Kind),
			"field": verr.Field,
		})
	case errors.As(err, &terr):
		status := http.StatusBadGateway
		if terr.Unreachable() {
			status = http.StatusServiceUnavailable
		}
		sharedobs.WriteJSON(w, status, map[string]any{
			"error":    terr.Message,
			"status":   terr.Status,
			"endpoint": terr.Endpoint,
		})
	case errors.As(err, &serr):
		s.logger.Error("export save failed", "filename", serr.Filename, "error", serr.Err)
		sharedobs.WriteJSON(w, http.StatusInternalServerError, map[string]string{
			"error": err.Error(),
			"kind":  "save_failed",
		})
	case errors.Is(err, dashboard.ErrSuperseded):
		sharedobs.WriteJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	default:
		s.logger.Error("request failed", "error", err)
		sharedobs.WriteJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
}

func writeRawOr(w http.ResponseWriter, raw json.RawMessage, v any) {
	if len(raw) > 0 {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(raw)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, v)
}
