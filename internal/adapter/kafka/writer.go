// Package kafka publishes assembled features to the optional sink topic.
package kafka

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	orbgeojson "github.com/paulmach/orb/geojson"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/gdelt-geojson/internal/config"
)

// Writer publishes one message per feature to the sink topic.
// It implements pipeline.FeatureSink.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured sink topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSinkTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// Publish serializes every feature in the collection and produces them in a
// single WriteMessages call, so downstream consumers see either the whole
// run or none of it.
func (w *Writer) Publish(ctx context.Context, reportDate time.Time, fc *orbgeojson.FeatureCollection) error {
	if len(fc.Features) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(fc.Features))
	for i, f := range fc.Features {
		msg, err := serializeToMessage(reportDate, i, f)
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write feature messages: %w", err)
	}
	w.logger.Info("features published", "topic", w.writer.Topic, "count", len(msgs))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a single feature into a Kafka message. The key
// groups a day's features into the same partition ordering domain.
func serializeToMessage(reportDate time.Time, index int, f *orbgeojson.Feature) (kafkago.Message, error) {
	data, err := f.MarshalJSON()
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize feature %d: %w", index, err)
	}

	event, _ := f.Properties["event"].(string)
	return kafkago.Message{
		Key:   []byte(reportDate.Format("20060102")),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "report_date", Value: []byte(reportDate.Format("2006-01-02"))},
			{Key: "event_type", Value: []byte(event)},
		},
	}, nil
}
