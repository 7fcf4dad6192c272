// Copyright 2026 PolicySync Authors
// SPDX-License-Identifier: Apache-2.0

// Package bucket holds the two S3-facing collaborators of the pipeline:
// resolving which encryption key protects a bucket, and attaching the
// derived access policy.
package bucket

import (
	"context"
	"errors"
	"fmt"

	"github.com/datalift/policysync/pkg/awsclient"
	"github.com/datalift/policysync/pkg/syncerr"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// S3 error codes not modeled as concrete types by the SDK.
const (
	codeNoSuchBucket = "NoSuchBucket"
	codeNoSSEConfig  = "ServerSideEncryptionConfigurationNotFoundError"
	codeAccessDenied = "AccessDenied"
	codeAllAccessOff = "AllAccessDisabled"
)

// Resolver determines which customer-managed KMS key protects a bucket.
type Resolver struct {
	client awsclient.S3API
}

func NewResolver(client awsclient.S3API) *Resolver {
	return &Resolver{client: client}
}

// ResolveKey queries the bucket's server-side-encryption configuration.
// ok is false (with no error) when the bucket has no customer-managed key:
// no encryption configuration at all, or SSE-S3 only.
func (r *Resolver) ResolveKey(ctx context.Context, bucket string) (keyID string, ok bool, err error) {
	out, err := r.client.GetBucketEncryption(ctx, &s3.GetBucketEncryptionInput{
		Bucket: aws.String(bucket),
	})
	if err != nil {
		var ae smithy.APIError
		if errors.As(err, &ae) {
			switch ae.ErrorCode() {
			case codeNoSSEConfig:
				return "", false, nil
			case codeNoSuchBucket:
				return "", false, &syncerr.BucketNotFoundError{Bucket: bucket}
			case codeAccessDenied, codeAllAccessOff:
				return "", false, &syncerr.AccessDeniedError{Op: "s3:GetBucketEncryption", Err: err}
			}
		}
		return "", false, fmt.Errorf("get bucket encryption for %s: %w", bucket, err)
	}

	if out.ServerSideEncryptionConfiguration == nil {
		return "", false, nil
	}

	for _, rule := range out.ServerSideEncryptionConfiguration.Rules {
		def := rule.ApplyServerSideEncryptionByDefault
		if def == nil {
			continue
		}
		if def.SSEAlgorithm == s3types.ServerSideEncryptionAwsKms {
			if id := aws.ToString(def.KMSMasterKeyID); id != "" {
				return id, true, nil
			}
			// aws:kms with no key ID means the AWS-managed default key,
			// which has no grantee metadata to discover.
			return "", false, nil
		}
	}

	return "", false, nil
}
