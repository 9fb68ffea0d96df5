//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/couchcryptid/case-enrichment-etl/internal/adapter/kafka"
	"github.com/couchcryptid/case-enrichment-etl/internal/config"
	"github.com/couchcryptid/case-enrichment-etl/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testTopic = "test-enriched-countries"

// TestKafkaWriter_PublishesRecords publishes a run's records and reads them
// back in order with their headers.
func TestKafkaWriter_PublishesRecords(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testTopic)

	cfg := &config.Config{KafkaBrokers: []string{broker}, KafkaTopic: testTopic}
	writer := kafka.NewWriter(cfg, "run-42", discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	processed := time.Date(2020, 3, 20, 8, 0, 0, 0, time.UTC)
	records := []domain.EnrichedRecord{
		{EntityID: "Italy", Capital: "Rome", Median: 0.2, Mean: 0.25, AverageTemp: 9, AverageHumid: 0.7, TotalCases: 2036, ProcessedAt: processed},
		{EntityID: "China", Capital: "Wuhan", Median: 0.01, Mean: 0.02, AverageTemp: 6, AverageHumid: 0.8, TotalCases: 80304, ProcessedAt: processed},
	}
	require.NoError(t, writer.Load(ctx, records))

	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:   []string{broker},
		Topic:     testTopic,
		Partition: 0,
		MaxWait:   time.Second,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	for i, want := range records {
		msg, err := consumer.ReadMessage(ctx)
		require.NoError(t, err, "read message %d", i)

		headers := make(map[string]string, len(msg.Headers))
		for _, h := range msg.Headers {
			headers[h.Key] = string(h.Value)
		}
		assert.Equal(t, want.EntityID, string(msg.Key))
		assert.Equal(t, "run-42", headers["run_id"])
		assert.Equal(t, processed.Format(time.RFC3339), headers["processed_at"])

		var got domain.EnrichedRecord
		require.NoError(t, json.Unmarshal(msg.Value, &got), fmt.Sprintf("unmarshal %s", want.EntityID))
		assert.Equal(t, want, got)
	}
}
