package forecast

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/couchcryptid/pv-forecast-dashboard/internal/adapter/forecastapi"
	"github.com/couchcryptid/pv-forecast-dashboard/internal/domain"
	"github.com/couchcryptid/pv-forecast-dashboard/internal/observability"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sentRequest struct {
	endpoint string
	opts     forecastapi.Options
}

// fakeSender records requests and answers from a per-endpoint table.
type fakeSender struct {
	responses map[string]forecastapi.Body
	errs      map[string]error
	sent      []sentRequest
}

func (f *fakeSender) Send(_ context.Context, endpoint string, opts forecastapi.Options) (forecastapi.Body, error) {
	f.sent = append(f.sent, sentRequest{endpoint: endpoint, opts: opts})
	if err := f.errs[endpoint]; err != nil {
		return nil, err
	}
	return f.responses[endpoint], nil
}

func jsonBody(s string) forecastapi.JSONBody {
	return forecastapi.JSONBody{Raw: json.RawMessage(s)}
}

func newTestService(sender Sender) (*Service, *observability.Metrics) {
	m := observability.NewMetricsForTesting()
	return NewService(sender, m, slog.New(slog.NewTextHandler(io.Discard, nil))), m
}

func pinToday(t *testing.T) {
	t.Helper()
	domain.SetClock(clockwork.NewFakeClockAt(time.Date(2024, time.June, 15, 12, 0, 0, 0, time.UTC)))
	t.Cleanup(func() { domain.SetClock(nil) })
}

func TestService_CheckHealth(t *testing.T) {
	sender := &fakeSender{responses: map[string]forecastapi.Body{
		EndpointHealth: jsonBody(`{"status":"healthy","model_loaded":true,"model_health":{"healthy":true},"timestamp":"2024-06-15T12:00:00"}`),
	}}
	svc, _ := newTestService(sender)

	h, err := svc.CheckHealth(context.Background())
	require.NoError(t, err)
	assert.True(t, h.Healthy())
	assert.Equal(t, true, h.ModelHealth["healthy"])
	require.Len(t, sender.sent, 1)
	assert.Equal(t, http.MethodGet, sender.sent[0].opts.Method)
}

func TestService_CheckHealth_PassesTransportErrorThrough(t *testing.T) {
	terr := &forecastapi.TransportError{Message: "unable to reach forecast service", Endpoint: EndpointHealth}
	svc, _ := newTestService(&fakeSender{errs: map[string]error{EndpointHealth: terr}})

	_, err := svc.CheckHealth(context.Background())
	assert.Same(t, terr, err)
}

func TestService_GetModelMetrics_KeepsRaw(t *testing.T) {
	doc := `{"model_name":"PV Production Ensemble Model","status":"loaded","features_count":"18 features (inc. Capacity)",
		"parameters_used":["Temperature (2m)","Wind Speed"],"geographic_info":{"lat_range":"[-90, 90]"},"extra":1}`
	svc, _ := newTestService(&fakeSender{responses: map[string]forecastapi.Body{EndpointModelMetrics: jsonBody(doc)}})

	m, err := svc.GetModelMetrics(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "PV Production Ensemble Model", m.ModelName)
	assert.Equal(t, "18 features (inc. Capacity)", m.FeaturesCount)
	assert.Equal(t, []string{"Temperature (2m)", "Wind Speed"}, m.ParametersUsed)
	assert.Contains(t, string(m.Raw), `"extra":1`)
}

func TestService_GetModelHealth(t *testing.T) {
	svc, _ := newTestService(&fakeSender{responses: map[string]forecastapi.Body{
		EndpointModelHealth: jsonBody(`{"health_status":{"healthy":false,"error":"Model not loaded"},"model_metrics":{},"timestamp":"t"}`),
	}})

	m, err := svc.GetModelHealth(context.Background())
	require.NoError(t, err)
	assert.False(t, m.Healthy())
	assert.Equal(t, "Model not loaded", m.HealthStatus["error"])
}

func TestService_UnexpectedBodyIsTransportError(t *testing.T) {
	svc, _ := newTestService(&fakeSender{responses: map[string]forecastapi.Body{
		EndpointHealth: forecastapi.TextBody{Text: "<html>proxy</html>"},
	}})

	_, err := svc.CheckHealth(context.Background())
	var terr *forecastapi.TransportError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, "unexpected text response", terr.Message)
	assert.Equal(t, EndpointHealth, terr.Endpoint)
}

func TestService_ValidateLocationRemotely(t *testing.T) {
	sender := &fakeSender{responses: map[string]forecastapi.Body{
		EndpointValidateLocation: jsonBody(`{"available":true,"message":"GEOS-IT data available","latest_date":"2024-06-11","data_quality":"High"}`),
	}}
	svc, _ := newTestService(sender)

	a, err := svc.ValidateLocationRemotely(context.Background(), 33.5731, -7.5898)
	require.NoError(t, err)
	assert.True(t, a.Available)
	assert.Equal(t, "2024-06-11", a.LatestDate)
	require.Len(t, sender.sent, 1)
	assert.Equal(t, http.MethodPost, sender.sent[0].opts.Method)
	assert.Equal(t, coordinatePayload{Latitude: 33.5731, Longitude: -7.5898}, sender.sent[0].opts.JSON)
}

func TestService_ValidateLocationRemotely_RejectsWithoutRequest(t *testing.T) {
	sender := &fakeSender{}
	svc, m := newTestService(sender)

	for _, c := range [][2]float64{{91, 0}, {-90.5, 0}, {0, 181}, {0, -180.01}} {
		_, err := svc.ValidateLocationRemotely(context.Background(), c[0], c[1])
		assert.ErrorIs(t, err, domain.ErrOutOfRange)
	}
	assert.Empty(t, sender.sent)
	assert.InDelta(t, 4, testutil.ToFloat64(m.ValidationFailures.WithLabelValues(string(domain.KindOutOfRange))), 0)
}

func TestService_GeneratePredictions(t *testing.T) {
	pinToday(t)
	sender := &fakeSender{responses: map[string]forecastapi.Body{
		EndpointPredictions: jsonBody(`{"success":true,"predictions":[
			{"date":"2024-01-01","pv_production_kwh":4.1,"financial_savings_mad":4.9},
			{"date":"2024-01-02","pv_production_kwh":3.9,"financial_savings_mad":4.7}],
			"summary":{"total_days":2},"metadata":{"location":"33.5731, -7.5898"}}`),
	}}
	svc, _ := newTestService(sender)

	capacity := 3.5
	res, err := svc.GeneratePredictions(context.Background(), PredictionRequest{
		Latitude:  33.5731,
		Longitude: -7.5898,
		StartDate: domain.NewDate(2024, time.January, 1),
		EndDate:   domain.NewDate(2024, time.January, 2),
		Capacity:  &capacity,
	})
	require.NoError(t, err)
	assert.Len(t, res.Predictions, 2)
	assert.Equal(t, 2, res.Summary.TotalDays)

	require.Len(t, sender.sent, 1)
	payload, err := json.Marshal(sender.sent[0].opts.JSON)
	require.NoError(t, err)
	assert.JSONEq(t, `{"latitude":33.5731,"longitude":-7.5898,"start_date":"2024-01-01","end_date":"2024-01-02","capacity":3.5}`, string(payload))
}

func TestService_GeneratePredictions_OmitsCapacity(t *testing.T) {
	pinToday(t)
	sender := &fakeSender{responses: map[string]forecastapi.Body{
		EndpointPredictions: jsonBody(`{"success":true,"predictions":[]}`),
	}}
	svc, _ := newTestService(sender)

	_, err := svc.GeneratePredictions(context.Background(), PredictionRequest{
		Latitude: 10, Longitude: 10,
		StartDate: domain.NewDate(2024, time.May, 1), EndDate: domain.NewDate(2024, time.May, 2),
	})
	require.NoError(t, err)

	payload, err := json.Marshal(sender.sent[0].opts.JSON)
	require.NoError(t, err)
	assert.NotContains(t, string(payload), "capacity")
}

func TestService_GeneratePredictions_RejectsWithoutRequest(t *testing.T) {
	pinToday(t)
	zero := 0.0
	tests := []struct {
		name string
		req  PredictionRequest
		want error
	}{
		{name: "latitude", req: PredictionRequest{Latitude: 95, StartDate: domain.NewDate(2024, 1, 1), EndDate: domain.NewDate(2024, 1, 10)}, want: domain.ErrOutOfRange},
		{name: "missing start", req: PredictionRequest{EndDate: domain.NewDate(2024, 1, 10)}, want: domain.ErrMissingField},
		{name: "order", req: PredictionRequest{StartDate: domain.NewDate(2024, 1, 10), EndDate: domain.NewDate(2024, 1, 1)}, want: domain.ErrOrderError},
		{name: "future", req: PredictionRequest{StartDate: domain.NewDate(2024, 6, 1), EndDate: domain.NewDate(2024, 6, 16)}, want: domain.ErrFutureDate},
		{name: "too large", req: PredictionRequest{StartDate: domain.NewDate(2023, 1, 1), EndDate: domain.NewDate(2024, 1, 2)}, want: domain.ErrRangeTooLarge},
		{name: "capacity", req: PredictionRequest{StartDate: domain.NewDate(2024, 1, 1), EndDate: domain.NewDate(2024, 1, 2), Capacity: &zero}, want: domain.ErrOutOfRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sender := &fakeSender{}
			svc, _ := newTestService(sender)
			_, err := svc.GeneratePredictions(context.Background(), tt.req)
			assert.ErrorIs(t, err, tt.want)
			assert.Empty(t, sender.sent)
		})
	}
}

func TestService_GeneratePredictions_UnsuccessfulBody(t *testing.T) {
	pinToday(t)
	svc, _ := newTestService(&fakeSender{responses: map[string]forecastapi.Body{
		EndpointPredictions: jsonBody(`{"success":false,"error":"No NASA POWER data available"}`),
	}})

	_, err := svc.GeneratePredictions(context.Background(), PredictionRequest{
		StartDate: domain.NewDate(2024, 1, 1), EndDate: domain.NewDate(2024, 1, 2),
	})
	var terr *forecastapi.TransportError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, "No NASA POWER data available", terr.Message)
}

func TestService_ExportPredictions(t *testing.T) {
	header := http.Header{"Content-Disposition": {`attachment; filename="report_2024.xlsx"`}}
	sender := &fakeSender{responses: map[string]forecastapi.Body{
		EndpointExport: forecastapi.BinaryBody{Data: []byte("xlsx"), Header: header},
	}}
	svc, _ := newTestService(sender)

	preds := []domain.PredictionRecord{{Date: domain.NewDate(2024, 1, 1), PVProductionKWh: 1}}
	art, err := svc.ExportPredictions(context.Background(), preds, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []byte("xlsx"), art.Data)
	assert.Equal(t, header, art.Header)

	payload, err := json.Marshal(sender.sent[0].opts.JSON)
	require.NoError(t, err)
	assert.JSONEq(t, `{"predictions":[{"date":"2024-01-01","pv_production_kwh":1,"financial_savings_mad":0}],"summary":{},"metadata":{}}`, string(payload))
}

func TestService_ExportPredictions_EmptyDataset(t *testing.T) {
	sender := &fakeSender{}
	svc, _ := newTestService(sender)

	_, err := svc.ExportPredictions(context.Background(), nil, nil, nil)
	assert.ErrorIs(t, err, domain.ErrEmptyDataset)
	_, err = svc.ExportPredictions(context.Background(), []domain.PredictionRecord{}, &domain.SummaryRecord{}, domain.MetadataRecord{"a": 1})
	assert.ErrorIs(t, err, domain.ErrEmptyDataset)
	assert.Empty(t, sender.sent)
}

func TestService_ExportPredictions_RequiresBinary(t *testing.T) {
	svc, _ := newTestService(&fakeSender{responses: map[string]forecastapi.Body{
		EndpointExport: jsonBody(`{"ok":true}`),
	}})

	_, err := svc.ExportPredictions(context.Background(), []domain.PredictionRecord{{}}, nil, nil)
	var terr *forecastapi.TransportError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, "unexpected JSON response", terr.Message)
}
