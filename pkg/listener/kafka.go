// Copyright 2026 PolicySync Authors
// SPDX-License-Identifier: Apache-2.0

package listener

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/datalift/policysync/pkg/logger"
	"github.com/datalift/policysync/pkg/utils"

	"github.com/IBM/sarama"
)

// KafkaConfig configures the Kafka listener.
type KafkaConfig struct {
	// Brokers is the list of Kafka broker addresses.
	Brokers []string

	// Topic carrying S3 event notifications (default: "s3-events").
	Topic string

	// GroupID is the consumer group (default: "policysync").
	GroupID string

	// TLS enables TLS for broker connections.
	TLS bool

	// SASLUsername/SASLPassword enable SASL/PLAIN when set.
	SASLUsername string
	SASLPassword string
}

// DefaultKafkaConfig returns a KafkaConfig with sensible defaults.
func DefaultKafkaConfig(brokers []string) KafkaConfig {
	return KafkaConfig{
		Brokers: brokers,
		Topic:   "s3-events",
		GroupID: "policysync",
	}
}

// KafkaListener consumes S3 event notifications from a Kafka topic via a
// consumer group, one message per notification.
//
// Offsets are committed for terminal results only; messages failing with a
// server-side error are not marked and redeliver after a rebalance or
// restart.
type KafkaListener struct {
	group   sarama.ConsumerGroup
	topic   string
	handler Handler
}

// NewKafkaListener creates a Kafka listener.
func NewKafkaListener(cfg KafkaConfig, handler Handler) (*KafkaListener, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("at least one Kafka broker is required")
	}
	if cfg.Topic == "" {
		cfg.Topic = "s3-events"
	}
	if cfg.GroupID == "" {
		cfg.GroupID = "policysync"
	}

	config := sarama.NewConfig()
	config.Consumer.Return.Errors = true
	config.Consumer.Offsets.Initial = sarama.OffsetOldest

	if cfg.TLS {
		config.Net.TLS.Enable = true
	}

	if cfg.SASLUsername != "" {
		config.Net.SASL.Enable = true
		config.Net.SASL.Mechanism = sarama.SASLTypePlaintext
		config.Net.SASL.User = cfg.SASLUsername
		config.Net.SASL.Password = cfg.SASLPassword
	}

	group, err := sarama.NewConsumerGroup(cfg.Brokers, cfg.GroupID, config)
	if err != nil {
		return nil, fmt.Errorf("create consumer group: %w", err)
	}

	return &KafkaListener{
		group:   group,
		topic:   cfg.Topic,
		handler: handler,
	}, nil
}

// Run consumes until ctx is cancelled.
func (l *KafkaListener) Run(ctx context.Context) error {
	logger.Ctx(ctx).Info().Str("topic", l.topic).Msg("kafka listener started")

	for {
		err := l.group.Consume(ctx, []string{l.topic}, l)
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			SourceErrorsTotal.WithLabelValues("kafka").Inc()
			logger.Ctx(ctx).Warn().Err(err).Msg("kafka consume failed")
			select {
			case <-time.After(utils.JitterUp(5*time.Second, 0.5)):
			case <-ctx.Done():
				return nil
			}
		}
	}
}

// Close shuts down the consumer group.
func (l *KafkaListener) Close() error {
	return l.group.Close()
}

// Setup implements sarama.ConsumerGroupHandler.
func (l *KafkaListener) Setup(sarama.ConsumerGroupSession) error { return nil }

// Cleanup implements sarama.ConsumerGroupHandler.
func (l *KafkaListener) Cleanup(sarama.ConsumerGroupSession) error { return nil }

// ConsumeClaim implements sarama.ConsumerGroupHandler.
func (l *KafkaListener) ConsumeClaim(sess sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for msg := range claim.Messages() {
		EventsReceivedTotal.WithLabelValues("kafka").Inc()
		res := l.handler.Handle(sess.Context(), msg.Value)

		if res.StatusCode >= http.StatusInternalServerError {
			EventsRequeuedTotal.WithLabelValues("kafka").Inc()
			logger.Ctx(sess.Context()).Warn().
				Int("status", res.StatusCode).
				Str("body", res.Body).
				Msg("not committing offset for failed event")
			continue
		}

		sess.MarkMessage(msg, "")
	}
	return nil
}

var _ sarama.ConsumerGroupHandler = (*KafkaListener)(nil)
