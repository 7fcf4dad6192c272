// Copyright 2026 PolicySync Authors
// SPDX-License-Identifier: Apache-2.0

// Package awsclient builds the AWS service clients from explicit
// configuration and defines the narrow capability interfaces the rest of
// the code depends on. No client is held at module scope; callers own
// their dependencies.
package awsclient

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/credentials/stscreds"
	"github.com/aws/aws-sdk-go-v2/service/glue"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

// Config holds connection settings for AWS.
type Config struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string

	// Endpoint overrides the service endpoints (for LocalStack/testing).
	// When set, S3 requests use path-style addressing.
	Endpoint string

	// RoleARN, when set, is assumed via STS before creating clients.
	RoleARN string

	// Timeout is the per-call HTTP timeout (default 30s). The pipeline
	// does not retry internally, so a bound here is the only thing
	// keeping a wedged transport from stalling an invocation.
	Timeout time.Duration
}

// Clients bundles the service clients used across the pipeline.
type Clients struct {
	S3   *s3.Client
	KMS  *kms.Client
	SQS  *sqs.Client
	Glue *glue.Client
}

// New creates the AWS service clients for cfg.
func New(ctx context.Context, cfg Config) (*Clients, error) {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	opts := []func(*config.LoadOptions) error{
		config.WithHTTPClient(&http.Client{Timeout: timeout}),
	}

	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}

	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(
				cfg.AccessKeyID,
				cfg.SecretAccessKey,
				"",
			),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	if cfg.RoleARN != "" {
		stsClient := sts.NewFromConfig(awsCfg)
		creds := stscreds.NewAssumeRoleProvider(stsClient, cfg.RoleARN)
		awsCfg.Credentials = aws.NewCredentialsCache(creds)
	}

	clients := &Clients{
		S3: s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			if cfg.Endpoint != "" {
				o.BaseEndpoint = aws.String(cfg.Endpoint)
				o.UsePathStyle = true
			}
		}),
		KMS: kms.NewFromConfig(awsCfg, func(o *kms.Options) {
			if cfg.Endpoint != "" {
				o.BaseEndpoint = aws.String(cfg.Endpoint)
			}
		}),
		SQS: sqs.NewFromConfig(awsCfg, func(o *sqs.Options) {
			if cfg.Endpoint != "" {
				o.BaseEndpoint = aws.String(cfg.Endpoint)
			}
		}),
		Glue: glue.NewFromConfig(awsCfg, func(o *glue.Options) {
			if cfg.Endpoint != "" {
				o.BaseEndpoint = aws.String(cfg.Endpoint)
			}
		}),
	}

	return clients, nil
}
