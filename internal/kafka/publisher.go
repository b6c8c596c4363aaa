// Package kafka publishes completed analysis reports to a Kafka topic so
// downstream consumers (dashboards, alerting) see each run as it lands.
package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/empirical-ra/riskengine/pkg/models"
	"github.com/empirical-ra/riskengine/pkg/utils/errors"
	"github.com/empirical-ra/riskengine/pkg/utils/logger"
)

// Publisher writes analysis reports to one topic. The zero-broker case is a
// deliberate no-op so batch runs work without a cluster.
type Publisher struct {
	writer *kafka.Writer
	topic  string
	log    *logger.Logger
}

// NewPublisher creates a publisher for the given brokers and topic. With no
// brokers the publisher is disabled and Publish returns immediately.
func NewPublisher(brokers []string, topic string) *Publisher {
	p := &Publisher{topic: topic, log: logger.GetLogger("kafka.publisher")}
	if len(brokers) == 0 {
		p.log.Info("no brokers configured, publisher disabled")
		return p
	}
	p.writer = &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 50 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
		MaxAttempts:  3,
	}
	return p
}

// Enabled reports whether a broker connection is configured
func (p *Publisher) Enabled() bool {
	return p.writer != nil
}

// Publish sends one report as JSON, keyed by generation timestamp
func (p *Publisher) Publish(ctx context.Context, report *models.AnalysisReport) error {
	if p.writer == nil {
		return nil
	}
	payload, err := json.Marshal(report)
	if err != nil {
		return errors.Wrap(err, "marshaling report for kafka")
	}
	msg := kafka.Message{
		Key:   []byte(report.GeneratedAt.UTC().Format(time.RFC3339Nano)),
		Value: payload,
		Time:  time.Now(),
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return errors.Wrap(err, "writing report to kafka")
	}
	p.log.Infow("report published", "topic", p.topic, "bytes", len(payload))
	return nil
}

// Close flushes and closes the underlying writer
func (p *Publisher) Close() error {
	if p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
