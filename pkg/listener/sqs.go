// Copyright 2026 PolicySync Authors
// SPDX-License-Identifier: Apache-2.0

package listener

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/datalift/policysync/pkg/awsclient"
	"github.com/datalift/policysync/pkg/logger"
	"github.com/datalift/policysync/pkg/utils"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"golang.org/x/time/rate"
)

// SQSConfig configures the SQS listener.
type SQSConfig struct {
	// QueueURL is the notification queue to poll.
	QueueURL string

	// MaxMessages per receive call, 1-10 (default 10).
	MaxMessages int32

	// WaitTime is the long-poll duration (default 20s).
	WaitTime time.Duration

	// PollRate caps receive calls per second (default 5).
	PollRate float64
}

// DefaultSQSConfig returns an SQSConfig with sensible defaults.
func DefaultSQSConfig(queueURL string) SQSConfig {
	return SQSConfig{
		QueueURL:    queueURL,
		MaxMessages: 10,
		WaitTime:    20 * time.Second,
		PollRate:    5,
	}
}

// SQSListener long-polls a queue and feeds message bodies to the handler.
//
// Delivery is at-least-once: messages are deleted on any terminal result
// (2xx and 4xx, since a bad event will not improve on retry) and left on the
// queue for redelivery when the handler reports a server-side failure.
// The pipeline is idempotent, so redelivered events converge.
type SQSListener struct {
	client  awsclient.SQSAPI
	cfg     SQSConfig
	handler Handler
	limiter *rate.Limiter
}

// NewSQSListener creates an SQS listener.
func NewSQSListener(client awsclient.SQSAPI, cfg SQSConfig, handler Handler) (*SQSListener, error) {
	if cfg.QueueURL == "" {
		return nil, fmt.Errorf("sqs queue URL is required")
	}
	if cfg.MaxMessages <= 0 || cfg.MaxMessages > 10 {
		cfg.MaxMessages = 10
	}
	if cfg.WaitTime <= 0 {
		cfg.WaitTime = 20 * time.Second
	}
	if cfg.PollRate <= 0 {
		cfg.PollRate = 5
	}
	return &SQSListener{
		client:  client,
		cfg:     cfg,
		handler: handler,
		limiter: rate.NewLimiter(rate.Limit(cfg.PollRate), 1),
	}, nil
}

// Run polls until ctx is cancelled.
func (l *SQSListener) Run(ctx context.Context) error {
	logger.Ctx(ctx).Info().Str("queue", l.cfg.QueueURL).Msg("sqs listener started")

	for {
		if err := l.limiter.Wait(ctx); err != nil {
			return nil
		}

		out, err := l.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
			QueueUrl:            aws.String(l.cfg.QueueURL),
			MaxNumberOfMessages: l.cfg.MaxMessages,
			WaitTimeSeconds:     int32(l.cfg.WaitTime / time.Second),
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			SourceErrorsTotal.WithLabelValues("sqs").Inc()
			logger.Ctx(ctx).Warn().Err(err).Msg("sqs receive failed")
			select {
			case <-time.After(utils.JitterUp(5*time.Second, 0.5)):
			case <-ctx.Done():
				return nil
			}
			continue
		}

		for _, msg := range out.Messages {
			EventsReceivedTotal.WithLabelValues("sqs").Inc()
			res := l.handler.Handle(ctx, []byte(aws.ToString(msg.Body)))

			if res.StatusCode >= http.StatusInternalServerError {
				EventsRequeuedTotal.WithLabelValues("sqs").Inc()
				logger.Ctx(ctx).Warn().
					Int("status", res.StatusCode).
					Str("body", res.Body).
					Msg("leaving message for redelivery")
				continue
			}

			if _, err := l.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
				QueueUrl:      aws.String(l.cfg.QueueURL),
				ReceiptHandle: msg.ReceiptHandle,
			}); err != nil {
				SourceErrorsTotal.WithLabelValues("sqs").Inc()
				logger.Ctx(ctx).Warn().Err(err).Msg("sqs delete failed; message will redeliver")
			}
		}
	}
}
