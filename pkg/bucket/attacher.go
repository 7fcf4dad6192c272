// Copyright 2026 PolicySync Authors
// SPDX-License-Identifier: Apache-2.0

package bucket

import (
	"context"
	"errors"
	"fmt"

	"github.com/datalift/policysync/pkg/awsclient"
	"github.com/datalift/policysync/pkg/logger"
	"github.com/datalift/policysync/pkg/policy"
	"github.com/datalift/policysync/pkg/syncerr"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

// Attacher persists access policy documents as bucket policies.
//
// Attach is a full replace, never a merge: the bucket's previous policy is
// overwritten wholesale. Attaching the same document twice is idempotent.
// Concurrent invocations against the same bucket are not synchronized;
// last writer wins. Both writers derive the policy from live key state, so
// they converge unless the key policy changed between their reads.
type Attacher struct {
	client awsclient.S3API
}

func NewAttacher(client awsclient.S3API) *Attacher {
	return &Attacher{client: client}
}

// Attach serializes doc and writes it as the bucket's access policy.
func (a *Attacher) Attach(ctx context.Context, bucket string, doc *policy.Document) error {
	body, err := doc.JSON()
	if err != nil {
		return &syncerr.AttachPolicyError{Bucket: bucket, Err: fmt.Errorf("marshal document: %w", err)}
	}

	_, err = a.client.PutBucketPolicy(ctx, &s3.PutBucketPolicyInput{
		Bucket: aws.String(bucket),
		Policy: aws.String(body),
	})
	if err != nil {
		var ae smithy.APIError
		if errors.As(err, &ae) && (ae.ErrorCode() == codeAccessDenied || ae.ErrorCode() == codeAllAccessOff) {
			return &syncerr.AttachPolicyError{
				Bucket: bucket,
				Err:    &syncerr.AccessDeniedError{Op: "s3:PutBucketPolicy", Err: err},
			}
		}
		return &syncerr.AttachPolicyError{Bucket: bucket, Err: err}
	}

	logger.Ctx(ctx).Info().
		Str("bucket", bucket).
		Int("statements", len(doc.Statements)).
		Msg("bucket policy attached")

	return nil
}
