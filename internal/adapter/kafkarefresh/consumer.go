// Package kafkarefresh keeps the in-memory recommendation table current by
// consuming model-output rows from Kafka. It is feature-flagged off by
// default; without it the table only changes when the process restarts with
// a new CSV export.
package kafkarefresh

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/luxgrid/dimming-reco-service/internal/config"
	"github.com/luxgrid/dimming-reco-service/internal/domain"
	"github.com/luxgrid/dimming-reco-service/internal/observability"
)

// TableUpserter applies one refreshed recommendation row. Implemented by the
// CSV store.
type TableUpserter interface {
	Upsert(rec domain.Recommendation)
}

// Consumer reads refresh messages and applies them to the table.
type Consumer struct {
	reader  *kafkago.Reader
	store   TableUpserter
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewConsumer creates a consumer for the configured refresh topic.
func NewConsumer(cfg *config.Config, store TableUpserter, logger *slog.Logger, metrics *observability.Metrics) *Consumer {
	r := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:  cfg.KafkaBrokers,
		Topic:    cfg.KafkaRefreshTopic,
		GroupID:  cfg.KafkaGroupID,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	return &Consumer{reader: r, store: store, logger: logger, metrics: metrics}
}

// Run consumes until the context is canceled. Malformed messages are skipped
// and counted; a model republishing a bad row must not wedge the consumer.
func (c *Consumer) Run(ctx context.Context) error {
	c.metrics.RefreshEnabled.Set(1)
	defer c.metrics.RefreshEnabled.Set(0)

	c.logger.Info("refresh consumer starting", "topic", c.reader.Config().Topic)
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("read refresh message: %w", err)
		}

		rec, err := decodeRow(msg.Value)
		if err != nil {
			c.metrics.RefreshMessages.WithLabelValues("skipped").Inc()
			c.logger.Warn("skipping malformed refresh message",
				"partition", msg.Partition,
				"offset", msg.Offset,
				"error", err,
			)
			continue
		}

		c.store.Upsert(rec)
		c.metrics.RefreshMessages.WithLabelValues("applied").Inc()
		c.logger.Debug("refresh row applied", "grid_id", rec.GridID)
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}

// decodeRow parses one refresh message. The payload is a JSON object with
// the export's column names; values arrive as strings or bare numbers
// depending on the publisher, so everything funnels through the row
// normalizer used for the CSV itself.
func decodeRow(payload []byte) (domain.Recommendation, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(payload, &fields); err != nil {
		return domain.Recommendation{}, fmt.Errorf("decode refresh row: %w", err)
	}

	row := make(domain.RawRecoRow, len(fields))
	for name, raw := range fields {
		row[name] = rawToString(raw)
	}

	rec, err := domain.NormalizeRecoRow(row)
	if err != nil {
		return domain.Recommendation{}, fmt.Errorf("normalize refresh row: %w", err)
	}
	return rec, nil
}

// rawToString flattens a JSON value to the string form the row normalizer
// expects. Nested arrays (the reasons column) stay as raw JSON.
func rawToString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return string(raw)
}
