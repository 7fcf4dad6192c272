// Copyright 2026 PolicySync Authors
// SPDX-License-Identifier: Apache-2.0

package syncerr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMessages(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{
			name:     "bad event",
			err:      &BadEventError{Reason: "missing objectKey"},
			expected: "bad event: missing objectKey",
		},
		{
			name:     "conversion",
			err:      &ConversionError{Key: "reports/sales_20240115.xlsx", Err: errors.New("unsupported extension")},
			expected: "convert reports/sales_20240115.xlsx: unsupported extension",
		},
		{
			name:     "bucket not found",
			err:      &BucketNotFoundError{Bucket: "missing-bucket"},
			expected: "bucket not found: missing-bucket",
		},
		{
			name:     "key not found",
			err:      &KeyNotFoundError{KeyID: "k1"},
			expected: "key not found: k1",
		},
		{
			name:     "access denied",
			err:      &AccessDeniedError{Op: "kms:GetKeyPolicy", Err: errors.New("not authorized")},
			expected: "access denied during kms:GetKeyPolicy: not authorized",
		},
		{
			name:     "attach policy",
			err:      &AttachPolicyError{Bucket: "input-data", Err: errors.New("service unavailable")},
			expected: "attach policy to input-data: service unavailable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestUnwrap(t *testing.T) {
	t.Parallel()

	inner := errors.New("inner")

	assert.ErrorIs(t, &ConversionError{Key: "k", Err: inner}, inner)
	assert.ErrorIs(t, &AccessDeniedError{Op: "op", Err: inner}, inner)
	assert.ErrorIs(t, &AttachPolicyError{Bucket: "b", Err: inner}, inner)

	// Nested: attach wrapping an access denial stays discoverable.
	wrapped := &AttachPolicyError{
		Bucket: "b",
		Err:    &AccessDeniedError{Op: "s3:PutBucketPolicy", Err: inner},
	}
	var ade *AccessDeniedError
	assert.True(t, errors.As(wrapped, &ade))
	assert.ErrorIs(t, wrapped, inner)
}
