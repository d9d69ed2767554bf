//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"

	"github.com/couchcryptid/pv-forecast-dashboard/internal/adapter/fakeservice"
	"github.com/couchcryptid/pv-forecast-dashboard/internal/adapter/forecastapi"
	"github.com/couchcryptid/pv-forecast-dashboard/internal/adapter/kafka"
	"github.com/couchcryptid/pv-forecast-dashboard/internal/config"
	"github.com/couchcryptid/pv-forecast-dashboard/internal/dashboard"
	"github.com/couchcryptid/pv-forecast-dashboard/internal/domain"
	"github.com/couchcryptid/pv-forecast-dashboard/internal/export"
	"github.com/couchcryptid/pv-forecast-dashboard/internal/forecast"
	"github.com/couchcryptid/pv-forecast-dashboard/internal/observability"
	"github.com/couchcryptid/pv-forecast-dashboard/internal/session"
)

const testRunTopic = "test-pv-forecast-runs"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()
	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0", tckafka.WithClusterID("pv-test"))
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err, "start kafka container")

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

func createTopic(t *testing.T, broker, topic string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)
	cconn, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer cconn.Close()

	require.NoError(t, cconn.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

type runMessage struct {
	Event   domain.RunEvent
	Key     string
	Headers map[string]string
}

func readRun(ctx context.Context, t *testing.T, consumer *kafkago.Reader) runMessage {
	t.Helper()
	readCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	msg, err := consumer.ReadMessage(readCtx)
	require.NoError(t, err, "read from run topic")

	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	var event domain.RunEvent
	require.NoError(t, json.Unmarshal(msg.Value, &event), "unmarshal run event")
	return runMessage{Event: event, Key: string(msg.Key), Headers: headers}
}

// TestRunEventsPublished drives a prediction and an export through the
// controller against the fake service and reads both run events back.
func TestRunEventsPublished(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testRunTopic)

	fake := httptest.NewServer(fakeservice.New(fakeservice.Options{ModelLoaded: true}))
	t.Cleanup(fake.Close)

	cfg := &config.Config{KafkaBrokers: []string{broker}, KafkaRunTopic: testRunTopic}
	publisher := kafka.NewRunPublisher(cfg, discardLogger())
	t.Cleanup(func() { _ = publisher.Close() })

	logger := discardLogger()
	m := observability.NewMetricsForTesting()
	svc := forecast.NewService(forecastapi.NewClient(fake.URL, 10*time.Second, m, logger), m, logger)
	store := session.NewStore(m)
	exporter := export.NewExporter(svc, store, export.DirSaver{Dir: t.TempDir()}, "", m, logger)
	ctrl := dashboard.NewController(svc, svc, store, exporter, publisher, m, logger)

	_, err := ctrl.Predict(ctx, forecast.PredictionRequest{
		Latitude:  33.5731,
		Longitude: -7.5898,
		StartDate: domain.NewDate(2024, time.January, 1),
		EndDate:   domain.NewDate(2024, time.January, 10),
	})
	require.NoError(t, err)
	saved, err := ctrl.Export(ctx)
	require.NoError(t, err)

	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testRunTopic,
		Partition:   0,
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	predicted := readRun(ctx, t, consumer)
	assert.Equal(t, domain.RunPredicted, predicted.Event.Kind)
	assert.Equal(t, predicted.Event.ID, predicted.Key)
	assert.Equal(t, "prediction_completed", predicted.Headers["event_kind"])
	assert.Equal(t, 10, predicted.Event.Days)
	require.NotNil(t, predicted.Event.Location)
	assert.InDelta(t, 33.5731, predicted.Event.Location.Latitude, 1e-9)

	exported := readRun(ctx, t, consumer)
	assert.Equal(t, domain.RunExported, exported.Event.Kind)
	assert.Equal(t, saved.Filename, exported.Event.Filename)
	assert.Equal(t, saved.Bytes, exported.Event.Bytes)
	assert.InDelta(t, 1, testutil.ToFloat64(m.RunEvents.WithLabelValues(string(domain.RunExported), "published")), 0)
}
