//go:build integration

package integration_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	orbgeojson "github.com/paulmach/orb/geojson"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"

	"github.com/couchcryptid/gdelt-geojson/internal/adapter/gdelt"
	"github.com/couchcryptid/gdelt-geojson/internal/adapter/geocode"
	kafkaadapter "github.com/couchcryptid/gdelt-geojson/internal/adapter/kafka"
	"github.com/couchcryptid/gdelt-geojson/internal/config"
	"github.com/couchcryptid/gdelt-geojson/internal/observability"
	"github.com/couchcryptid/gdelt-geojson/internal/pipeline"
	"github.com/couchcryptid/gdelt-geojson/internal/summary"
)

const testSinkTopic = "test-geo-event-features"

const testReport = `GDELT Daily Trend Report
20 November 2024

Location	Event Type	Tone	Mentions
------------------------------------------------------------
Paris, France	Protest	3.2	120
Unknown Atlantis	Conflict	-2.0	15
Khartoum, Sudan	Armed Conflict	-6.1	88
`

var testDate = time.Date(2024, time.November, 20, 0, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startKafka launches a single-node broker container and returns its address.
func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()

	container, err := tckafka.Run(ctx,
		"confluentinc/confluent-local:7.5.0",
		tckafka.WithClusterID("test-cluster"),
	)
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

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

	ctrlConn, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer ctrlConn.Close()

	require.NoError(t, ctrlConn.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

// TestPipelineKafkaSink runs a full conversion against a report served over
// HTTP and verifies the assembled features arrive on the sink topic with the
// expected keys, headers, and payloads.
func TestPipelineKafkaSink(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testSinkTopic)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/20241120.txt", r.URL.Path)
		_, _ = w.Write([]byte(testReport))
	}))
	defer srv.Close()

	logger := discardLogger()
	metrics := observability.NewMetricsForTesting()
	cfg := &config.Config{
		KafkaBrokers:   []string{broker},
		KafkaSinkTopic: testSinkTopic,
	}

	fetcher := gdelt.NewFetcher(srv.URL, 10*time.Second, 3, 100*time.Millisecond, metrics, logger)
	resolver := geocode.NewResolver(nil, 100, metrics, logger)
	engine := summary.NewEngine(nil, 280, metrics, logger)
	writer := kafkaadapter.NewWriter(cfg, logger)
	t.Cleanup(func() { _ = writer.Close() })

	p := pipeline.New(fetcher, gdelt.Parse, resolver, engine, writer, logger, metrics, 4, time.Minute)

	out := filepath.Join(t.TempDir(), "events.geojson")
	result, err := p.Run(ctx, testDate, out)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Features)
	assert.Equal(t, 1, result.Unresolved)

	// The file and the topic carry the same run.
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	fc, err := orbgeojson.UnmarshalFeatureCollection(data)
	require.NoError(t, err)
	require.Len(t, fc.Features, 2)

	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testSinkTopic,
		GroupID:     fmt.Sprintf("test-sink-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	for i := 0; i < result.Features; i++ {
		readCtx, readCancel := context.WithTimeout(ctx, 30*time.Second)
		msg, err := consumer.ReadMessage(readCtx)
		readCancel()
		require.NoError(t, err, "read from sink topic")

		assert.Equal(t, []byte("20241120"), msg.Key)

		headers := make(map[string]string, len(msg.Headers))
		for _, h := range msg.Headers {
			headers[h.Key] = string(h.Value)
		}
		assert.Equal(t, "2024-11-20", headers["report_date"])
		assert.NotEmpty(t, headers["event_type"])

		f, err := orbgeojson.UnmarshalFeature(msg.Value)
		require.NoError(t, err)
		assert.Equal(t, headers["event_type"], f.Properties["event"])
		assert.Equal(t, "2024-11-20", f.Properties["timestamp"])
		assert.NotEmpty(t, f.Properties["summary"])
	}

	// No message for the unresolved row.
	readCtx, readCancel := context.WithTimeout(ctx, 5*time.Second)
	_, err = consumer.ReadMessage(readCtx)
	readCancel()
	assert.Error(t, err, "unresolved events must not reach the sink")
}
