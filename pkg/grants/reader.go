// Copyright 2026 PolicySync Authors
// SPDX-License-Identifier: Apache-2.0

package grants

import (
	"context"
	"errors"
	"fmt"

	"github.com/datalift/policysync/pkg/awsclient"
	"github.com/datalift/policysync/pkg/logger"
	"github.com/datalift/policysync/pkg/policy"
	"github.com/datalift/policysync/pkg/syncerr"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	kmstypes "github.com/aws/aws-sdk-go-v2/service/kms/types"
	"github.com/aws/smithy-go"
)

// defaultPolicyName is the only key policy name AWS KMS supports.
const defaultPolicyName = "default"

// Reader fetches key metadata from AWS KMS. Read-only; no retries here,
// redelivery belongs to the invoking platform.
type Reader struct {
	client awsclient.KMSAPI
}

// NewReader creates a Reader backed by the given KMS capability.
func NewReader(client awsclient.KMSAPI) *Reader {
	return &Reader{client: client}
}

// Fetch retrieves metadata for keyID: the owning account from DescribeKey
// and the grantee accounts referenced by the key policy's principals.
func (r *Reader) Fetch(ctx context.Context, keyID string) (*KeyMetadata, error) {
	desc, err := r.client.DescribeKey(ctx, &kms.DescribeKeyInput{
		KeyId: aws.String(keyID),
	})
	if err != nil {
		return nil, mapKMSError("kms:DescribeKey", keyID, err)
	}

	pol, err := r.client.GetKeyPolicy(ctx, &kms.GetKeyPolicyInput{
		KeyId:      aws.String(keyID),
		PolicyName: aws.String(defaultPolicyName),
	})
	if err != nil {
		return nil, mapKMSError("kms:GetKeyPolicy", keyID, err)
	}

	doc, err := policy.Parse([]byte(aws.ToString(pol.Policy)))
	if err != nil {
		return nil, fmt.Errorf("parse key policy for %s: %w", keyID, err)
	}

	meta := &KeyMetadata{
		KeyID:         aws.ToString(desc.KeyMetadata.KeyId),
		OwningAccount: aws.ToString(desc.KeyMetadata.AWSAccountId),
	}

	for _, stmt := range doc.Statements {
		if stmt.Principal == nil {
			continue
		}
		for _, p := range stmt.Principal.AWS {
			if AccountID(p) == "" {
				logger.Ctx(ctx).Warn().
					Str("key_id", keyID).
					Str("principal", p).
					Msg("skipping key policy principal with no account")
				continue
			}
			meta.Grantees = append(meta.Grantees, p)
		}
	}

	return meta, nil
}

func mapKMSError(op, keyID string, err error) error {
	var nfe *kmstypes.NotFoundException
	if errors.As(err, &nfe) {
		return &syncerr.KeyNotFoundError{KeyID: keyID}
	}

	var ae smithy.APIError
	if errors.As(err, &ae) && ae.ErrorCode() == "AccessDeniedException" {
		return &syncerr.AccessDeniedError{Op: op, Err: err}
	}

	return fmt.Errorf("%s %s: %w", op, keyID, err)
}
