// Copyright 2026 PolicySync Authors
// SPDX-License-Identifier: Apache-2.0

// Package syncerr defines the error taxonomy of the policy sync pipeline.
// Every failure surfaced by the pipeline is one of these types; nothing is
// swallowed or silently downgraded on the way up.
package syncerr

import "fmt"

// BadEventError reports a malformed trigger payload. It is raised before
// any external API call is issued.
type BadEventError struct {
	Reason string
}

func (e *BadEventError) Error() string {
	return "bad event: " + e.Reason
}

// ConversionError reports a source file that could not be read, parsed,
// or written back as CSV. Conversion failures abort the run before any
// policy mutation.
type ConversionError struct {
	Key string
	Err error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("convert %s: %v", e.Key, e.Err)
}

func (e *ConversionError) Unwrap() error { return e.Err }

// BucketNotFoundError reports a bucket that does not exist.
type BucketNotFoundError struct {
	Bucket string
}

func (e *BucketNotFoundError) Error() string {
	return "bucket not found: " + e.Bucket
}

// KeyNotFoundError reports a key identifier that does not resolve.
type KeyNotFoundError struct {
	KeyID string
}

func (e *KeyNotFoundError) Error() string {
	return "key not found: " + e.KeyID
}

// AccessDeniedError reports a permission failure on an API call. Op names
// the denied operation (e.g. "kms:GetKeyPolicy").
type AccessDeniedError struct {
	Op  string
	Err error
}

func (e *AccessDeniedError) Error() string {
	return fmt.Sprintf("access denied during %s: %v", e.Op, e.Err)
}

func (e *AccessDeniedError) Unwrap() error { return e.Err }

// AttachPolicyError reports a failed bucket policy write. Attachment is
// atomic at the storage service, so this never leaves a half-written
// policy behind.
type AttachPolicyError struct {
	Bucket string
	Err    error
}

func (e *AttachPolicyError) Error() string {
	return fmt.Sprintf("attach policy to %s: %v", e.Bucket, e.Err)
}

func (e *AttachPolicyError) Unwrap() error { return e.Err }
