// Copyright 2026 PolicySync Authors
// SPDX-License-Identifier: Apache-2.0

// Package pipeline orchestrates the reaction to an upload notification:
// convert the report, resolve the bucket's encryption key, derive the
// external grantees, build the access policy, attach it.
//
// One invocation per triggering event; steps run sequentially. Invocations
// for different buckets are safe to run concurrently. Invocations for the
// same bucket race on the final policy write (last writer wins), see
// bucket.Attacher.
package pipeline

import (
	"context"
	"fmt"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/datalift/policysync/pkg/convert"
	"github.com/datalift/policysync/pkg/grants"
	"github.com/datalift/policysync/pkg/logger"
	"github.com/datalift/policysync/pkg/policy"

	"github.com/google/uuid"
)

// Stage identifies how far an invocation progressed. Every failure is
// terminal for the invocation and is reported with the stage it hit.
type Stage string

const (
	StageReceived          Stage = "received"
	StageConverted         Stage = "converted"
	StageKeyResolved       Stage = "key_resolved"
	StageGranteesExtracted Stage = "grantees_extracted"
	StagePolicyBuilt       Stage = "policy_built"
	StageAttached          Stage = "attached"
)

// Result is the invocation outcome returned to the event source.
type Result struct {
	StatusCode int
	Body       string
}

// Converter transcodes an uploaded report into the target bucket.
type Converter interface {
	Convert(ctx context.Context, srcBucket, key string) (*convert.Result, error)
}

// KeyResolver determines which encryption key protects a bucket, if any.
type KeyResolver interface {
	ResolveKey(ctx context.Context, bucket string) (keyID string, ok bool, err error)
}

// GrantReader fetches descriptive metadata for an encryption key.
type GrantReader interface {
	Fetch(ctx context.Context, keyID string) (*grants.KeyMetadata, error)
}

// PolicyAttacher persists a document as the bucket's access policy.
type PolicyAttacher interface {
	Attach(ctx context.Context, bucket string, doc *policy.Document) error
}

// CatalogRefresher triggers a catalog crawl after new data lands.
type CatalogRefresher interface {
	Start(ctx context.Context) error
}

// Orchestrator wires the collaborators together. All dependencies are
// injected; it holds no global state and no caches.
type Orchestrator struct {
	converter Converter
	resolver  KeyResolver
	reader    GrantReader
	builder   *policy.Builder
	attacher  PolicyAttacher
	crawler   CatalogRefresher
}

// OrchestratorConfig carries the collaborators for NewOrchestrator.
// Crawler is optional; a nil Builder gets the default read action set.
type OrchestratorConfig struct {
	Converter Converter
	Resolver  KeyResolver
	Reader    GrantReader
	Builder   *policy.Builder
	Attacher  PolicyAttacher
	Crawler   CatalogRefresher
}

func NewOrchestrator(cfg OrchestratorConfig) *Orchestrator {
	builder := cfg.Builder
	if builder == nil {
		builder = policy.NewBuilder()
	}
	return &Orchestrator{
		converter: cfg.Converter,
		resolver:  cfg.Resolver,
		reader:    cfg.Reader,
		builder:   builder,
		attacher:  cfg.Attacher,
		crawler:   cfg.Crawler,
	}
}

// Handle processes one raw upload notification end to end. It never
// panics on malformed input and never returns a partial policy state:
// conversion failures abort before any policy work, and the policy write
// itself is atomic at the storage service.
//
// Handle is idempotent under at-least-once redelivery: reprocessing the
// same event converts to the same target key and attaches the same
// document.
func (o *Orchestrator) Handle(ctx context.Context, raw []byte) Result {
	start := time.Now()
	defer func() {
		RunDuration.Observe(time.Since(start).Seconds())
	}()

	l := logger.Ctx(ctx).With().Str("invocation_id", uuid.NewString()).Logger()
	ctx = logger.WithLogger(ctx, &l)

	notif, err := ParseNotification(raw)
	if err != nil {
		return o.fail(ctx, StageReceived, err)
	}

	l.Info().Str("bucket", notif.Bucket).Str("key", notif.Key).Msg("processing upload notification")

	if !strings.EqualFold(path.Ext(notif.Key), convert.Extension) {
		RunsTotal.WithLabelValues("rejected").Inc()
		return Result{
			StatusCode: http.StatusBadRequest,
			Body:       "not a spreadsheet file: " + path.Base(notif.Key),
		}
	}

	converted, err := o.converter.Convert(ctx, notif.Bucket, notif.Key)
	if err != nil {
		return o.fail(ctx, StageConverted, err)
	}

	res, attached := o.syncPolicy(ctx, converted.TargetBucket)
	if res.StatusCode != http.StatusOK {
		return res
	}

	if attached {
		res.Body = "file " + path.Base(notif.Key) + " converted and stored as " +
			converted.TargetKey + " in " + converted.TargetBucket + "; " + res.Body
	}

	o.crawl(ctx)
	return res
}

// SyncBucket regenerates the named bucket's access policy from its
// encryption key grants, without any conversion step.
func (o *Orchestrator) SyncBucket(ctx context.Context, bucketName string) Result {
	l := logger.Ctx(ctx).With().Str("bucket", bucketName).Logger()
	ctx = logger.WithLogger(ctx, &l)

	res, _ := o.syncPolicy(ctx, bucketName)
	return res
}

// syncPolicy runs KeyResolved → GranteesExtracted → PolicyBuilt →
// Attached for one bucket. attached reports whether a policy write
// happened (both no-op paths return 200 without one).
func (o *Orchestrator) syncPolicy(ctx context.Context, bucketName string) (res Result, attached bool) {
	keyID, ok, err := o.resolver.ResolveKey(ctx, bucketName)
	if err != nil {
		return o.fail(ctx, StageKeyResolved, err), false
	}
	if !ok {
		RunsTotal.WithLabelValues("noop").Inc()
		logger.Ctx(ctx).Info().Str("bucket", bucketName).Msg("bucket has no customer-managed key")
		return Result{
			StatusCode: http.StatusOK,
			Body:       "no policy change: bucket uses default encryption",
		}, false
	}

	meta, err := o.reader.Fetch(ctx, keyID)
	if err != nil {
		return o.fail(ctx, StageGranteesExtracted, err), false
	}

	external := grants.ExtractExternalGrantees(meta)
	doc := o.builder.Build(bucketName, external.Sorted())

	if len(doc.Statements) == 0 {
		RunsTotal.WithLabelValues("noop").Inc()
		logger.Ctx(ctx).Info().
			Str("bucket", bucketName).
			Str("key_id", keyID).
			Msg("key has no external grantees")
		return Result{
			StatusCode: http.StatusOK,
			Body:       "no policy change: key has no external grantees",
		}, false
	}

	if err := o.attacher.Attach(ctx, bucketName, doc); err != nil {
		return o.fail(ctx, StageAttached, err), false
	}

	RunsTotal.WithLabelValues("done").Inc()
	logger.Ctx(ctx).Info().
		Str("bucket", bucketName).
		Str("key_id", keyID).
		Int("grantees", external.Len()).
		Msg("policy synchronized")

	return Result{
		StatusCode: http.StatusOK,
		Body:       fmt.Sprintf("granted read access to %d external accounts", external.Len()),
	}, true
}

// crawl triggers the catalog refresh. Best effort: the policy work is
// already committed, so a crawl failure is logged and counted but does
// not demote the invocation result.
func (o *Orchestrator) crawl(ctx context.Context) {
	if o.crawler == nil {
		return
	}
	if err := o.crawler.Start(ctx); err != nil {
		CrawlErrorsTotal.Inc()
		logger.Ctx(ctx).Warn().Err(err).Msg("catalog crawl failed")
	}
}

func (o *Orchestrator) fail(ctx context.Context, stage Stage, err error) Result {
	RunsTotal.WithLabelValues("failed").Inc()
	StageFailuresTotal.WithLabelValues(string(stage)).Inc()
	logger.Ctx(ctx).Error().Err(err).Str("stage", string(stage)).Msg("invocation failed")
	return Result{
		StatusCode: http.StatusInternalServerError,
		Body:       err.Error(),
	}
}
