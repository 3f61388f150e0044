//go:build integration

package integration_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"

	"github.com/luxgrid/dimming-reco-service/internal/adapter/csvstore"
	"github.com/luxgrid/dimming-reco-service/internal/adapter/kafkarefresh"
	"github.com/luxgrid/dimming-reco-service/internal/config"
	"github.com/luxgrid/dimming-reco-service/internal/domain"
	"github.com/luxgrid/dimming-reco-service/internal/observability"
)

const testRefreshTopic = "test-reco-refresh"

const seedCSV = `grid_id,existing_lx,recommended_lx,delta_percent,keep_hours
0,100,70,-30,3
1,80,60,-25,3
`

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()

	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0",
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

	controllerConn, err := kafkago.Dial("tcp", fmt.Sprintf("%s:%d", controller.Host, controller.Port))
	require.NoError(t, err)
	defer controllerConn.Close()

	require.NoError(t, controllerConn.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

// TestRefreshConsumer runs the consumer against real Kafka and verifies that
// published model rows land in the table, overriding the CSV snapshot, and
// that a poison message is skipped without wedging the consumer.
func TestRefreshConsumer(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testRefreshTopic)

	cfg := &config.Config{
		KafkaBrokers:      []string{broker},
		KafkaRefreshTopic: testRefreshTopic,
		KafkaGroupID:      fmt.Sprintf("test-refresh-%d", time.Now().UnixNano()),
	}

	metrics := observability.NewTestMetrics()
	store := csvstore.New("unused.csv", domain.SeongsuCenter, domain.DefaultCellSizeMeters,
		discardLogger(), metrics,
		csvstore.WithPayloadLoader(func(context.Context) ([]byte, error) {
			return []byte(seedCSV), nil
		}),
	)

	// Load the snapshot before any refresh arrives.
	rec, err := store.Recommendation(ctx, "0")
	require.NoError(t, err)
	require.NotNil(t, rec)
	require.Equal(t, 70.0, rec.RecommendedLx)

	consumer := kafkarefresh.NewConsumer(cfg, store, discardLogger(), metrics)
	t.Cleanup(func() { _ = consumer.Close() })

	consumerCtx, stopConsumer := context.WithCancel(ctx)
	errCh := make(chan error, 1)
	go func() { errCh <- consumer.Run(consumerCtx) }()

	producer := &kafkago.Writer{
		Addr:  kafkago.TCP(broker),
		Topic: testRefreshTopic,
	}
	t.Cleanup(func() { _ = producer.Close() })

	require.NoError(t, producer.WriteMessages(ctx,
		// Poison first: the consumer must skip it and keep going.
		kafkago.Message{Key: []byte("bad"), Value: []byte("not-json{{{")},
		// Update to an existing grid.
		kafkago.Message{Key: []byte("0"), Value: []byte(`{"grid_id":"0","existing_lx":100,"recommended_lx":45,"delta_percent":-55,"keep_hours":5}`)},
		// A grid the snapshot has never seen.
		kafkago.Message{Key: []byte("9"), Value: []byte(`{"grid_id":9,"existing_lx":60,"recommended_lx":48}`)},
	))

	waitFor(ctx, t, func() bool {
		rec, err := store.Recommendation(ctx, "9")
		return err == nil && rec != nil
	})

	rec, err = store.Recommendation(ctx, "0")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, 45.0, rec.RecommendedLx, "refresh row overrides the snapshot")
	assert.Equal(t, -55.0, rec.DeltaPercent)
	assert.Equal(t, 5.0, rec.DimHours)

	rec, err = store.Recommendation(ctx, "9")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, 48.0, rec.RecommendedLx)
	assert.Equal(t, -20.0, rec.DeltaPercent, "delta derived for the new grid")

	recs, err := store.Recommendations(ctx)
	require.NoError(t, err)
	assert.Len(t, recs, 3, "poison message must not create a row")

	stopConsumer()
	require.NoError(t, <-errCh)
}

func waitFor(ctx context.Context, t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.After(60 * time.Second)
	for {
		if cond() {
			return
		}
		select {
		case <-ctx.Done():
			t.Fatal("context canceled while waiting")
		case <-deadline:
			t.Fatal("timed out waiting for refresh to apply")
		case <-time.After(250 * time.Millisecond):
		}
	}
}
