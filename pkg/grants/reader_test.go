// Copyright 2026 PolicySync Authors
// SPDX-License-Identifier: Apache-2.0

package grants

import (
	"context"
	"testing"

	"github.com/datalift/policysync/pkg/syncerr"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	kmstypes "github.com/aws/aws-sdk-go-v2/service/kms/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeKMS struct {
	owner       string
	policyJSON  string
	describeErr error
	policyErr   error

	describeCalls int
	policyCalls   int
}

func (f *fakeKMS) DescribeKey(ctx context.Context, params *kms.DescribeKeyInput, optFns ...func(*kms.Options)) (*kms.DescribeKeyOutput, error) {
	f.describeCalls++
	if f.describeErr != nil {
		return nil, f.describeErr
	}
	return &kms.DescribeKeyOutput{
		KeyMetadata: &kmstypes.KeyMetadata{
			KeyId:        params.KeyId,
			AWSAccountId: aws.String(f.owner),
		},
	}, nil
}

func (f *fakeKMS) GetKeyPolicy(ctx context.Context, params *kms.GetKeyPolicyInput, optFns ...func(*kms.Options)) (*kms.GetKeyPolicyOutput, error) {
	f.policyCalls++
	if f.policyErr != nil {
		return nil, f.policyErr
	}
	return &kms.GetKeyPolicyOutput{
		Policy: aws.String(f.policyJSON),
	}, nil
}

func TestReader_Fetch(t *testing.T) {
	t.Parallel()

	client := &fakeKMS{
		owner: "111111111111",
		policyJSON: `{
			"Version": "2012-10-17",
			"Statement": [
				{
					"Sid": "Enable IAM policies",
					"Effect": "Allow",
					"Principal": {"AWS": "arn:aws:iam::111111111111:root"},
					"Action": "kms:*",
					"Resource": "*"
				},
				{
					"Sid": "Allow external use",
					"Effect": "Allow",
					"Principal": {"AWS": [
						"arn:aws:iam::222222222222:root",
						"arn:aws:iam::333333333333:role/reporting"
					]},
					"Action": ["kms:Decrypt", "kms:DescribeKey"],
					"Resource": "*"
				},
				{
					"Sid": "Service statement is ignored",
					"Effect": "Allow",
					"Principal": {"Service": "logs.amazonaws.com"},
					"Action": "kms:GenerateDataKey*",
					"Resource": "*"
				}
			]
		}`,
	}

	reader := NewReader(client)
	meta, err := reader.Fetch(context.Background(), "k1")
	require.NoError(t, err)

	assert.Equal(t, "k1", meta.KeyID)
	assert.Equal(t, "111111111111", meta.OwningAccount)
	assert.Equal(t, []string{
		"arn:aws:iam::111111111111:root",
		"arn:aws:iam::222222222222:root",
		"arn:aws:iam::333333333333:role/reporting",
	}, meta.Grantees)

	set := ExtractExternalGrantees(meta)
	assert.ElementsMatch(t, []string{"222222222222", "333333333333"}, set.Sorted())
}

func TestReader_Fetch_Errors(t *testing.T) {
	t.Parallel()

	t.Run("key not found", func(t *testing.T) {
		t.Parallel()

		client := &fakeKMS{
			describeErr: &kmstypes.NotFoundException{Message: aws.String("no such key")},
		}
		_, err := NewReader(client).Fetch(context.Background(), "missing")

		var nfe *syncerr.KeyNotFoundError
		require.ErrorAs(t, err, &nfe)
		assert.Equal(t, "missing", nfe.KeyID)
		assert.Equal(t, 0, client.policyCalls)
	})

	t.Run("access denied on key policy", func(t *testing.T) {
		t.Parallel()

		client := &fakeKMS{
			owner: "111111111111",
			policyErr: &smithy.GenericAPIError{
				Code:    "AccessDeniedException",
				Message: "not authorized",
			},
		}
		_, err := NewReader(client).Fetch(context.Background(), "k1")

		var ade *syncerr.AccessDeniedError
		require.ErrorAs(t, err, &ade)
		assert.Equal(t, "kms:GetKeyPolicy", ade.Op)
	})

	t.Run("unparseable key policy", func(t *testing.T) {
		t.Parallel()

		client := &fakeKMS{owner: "111111111111", policyJSON: "{not json"}
		_, err := NewReader(client).Fetch(context.Background(), "k1")
		assert.ErrorContains(t, err, "parse key policy")
	})
}
