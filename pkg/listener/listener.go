// Copyright 2026 PolicySync Authors
// SPDX-License-Identifier: Apache-2.0

// Package listener hosts the event sources that deliver S3 upload
// notifications to the pipeline: SQS, Kafka, Redis Pub/Sub, and a plain
// HTTP webhook. Each source feeds raw notification payloads to a Handler
// and maps its result back onto the source's delivery semantics.
package listener

import (
	"context"

	"github.com/datalift/policysync/pkg/pipeline"
)

// Handler processes one raw notification payload. pipeline.Orchestrator
// satisfies this.
type Handler interface {
	Handle(ctx context.Context, raw []byte) pipeline.Result
}
