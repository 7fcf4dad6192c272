// Copyright 2026 PolicySync Authors
// SPDX-License-Identifier: Apache-2.0

package listener

import (
	"context"
	"fmt"
	"time"

	"github.com/datalift/policysync/pkg/logger"

	"github.com/redis/go-redis/v9"
)

// RedisConfig configures the Redis Pub/Sub listener.
type RedisConfig struct {
	// Addr is the Redis server address (e.g., "localhost:6379").
	Addr string

	// Password is the Redis password (optional).
	Password string

	// DB is the Redis database number (default 0).
	DB int

	// Channel is the Pub/Sub channel prefix (default "s3:events").
	// Notifications are published per bucket to "{channel}:{bucket}",
	// so the listener pattern-subscribes to "{channel}:*".
	Channel string

	// DialTimeout is the connection timeout (default 5s).
	DialTimeout time.Duration
}

// DefaultRedisConfig returns a RedisConfig with sensible defaults.
func DefaultRedisConfig(addr string) RedisConfig {
	return RedisConfig{
		Addr:        addr,
		Channel:     "s3:events",
		DialTimeout: 5 * time.Second,
	}
}

// RedisListener subscribes to S3 event notifications on Redis Pub/Sub.
//
// Pub/Sub is fire-and-forget: a notification missed while disconnected is
// gone. Use the SQS or Kafka listener where delivery guarantees matter.
type RedisListener struct {
	client  *redis.Client
	channel string
	handler Handler
}

// NewRedisListener creates a Redis listener and verifies connectivity.
func NewRedisListener(cfg RedisConfig, handler Handler) (*RedisListener, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("redis address is required")
	}
	if cfg.Channel == "" {
		cfg.Channel = "s3:events"
	}
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = 5 * time.Second
	}

	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: cfg.DialTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &RedisListener{
		client:  client,
		channel: cfg.Channel,
		handler: handler,
	}, nil
}

// Run subscribes and dispatches until ctx is cancelled.
func (l *RedisListener) Run(ctx context.Context) error {
	sub := l.client.PSubscribe(ctx, l.channel+":*")
	defer sub.Close()

	logger.Ctx(ctx).Info().
		Str("addr", l.client.Options().Addr).
		Str("pattern", l.channel+":*").
		Msg("redis listener started")

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			EventsReceivedTotal.WithLabelValues("redis").Inc()
			res := l.handler.Handle(ctx, []byte(msg.Payload))
			if res.StatusCode >= 500 {
				// No redelivery on Pub/Sub; surfaced via logs/metrics only.
				logger.Ctx(ctx).Warn().
					Int("status", res.StatusCode).
					Str("body", res.Body).
					Msg("event processing failed")
			}
		}
	}
}

// Close releases the Redis connection.
func (l *RedisListener) Close() error {
	return l.client.Close()
}
