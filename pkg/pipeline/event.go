// Copyright 2026 PolicySync Authors
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"encoding/json"
	"net/url"
	"time"

	"github.com/datalift/policysync/pkg/syncerr"
)

// S3Event is an S3 event notification in AWS format.
// See: https://docs.aws.amazon.com/AmazonS3/latest/userguide/notification-content-structure.html
type S3Event struct {
	Records []S3EventRecord `json:"Records"`
}

// S3EventRecord is a single event within an S3 notification.
type S3EventRecord struct {
	EventVersion string    `json:"eventVersion"`
	EventSource  string    `json:"eventSource"`
	AWSRegion    string    `json:"awsRegion"`
	EventTime    time.Time `json:"eventTime"`
	EventName    string    `json:"eventName"`
	S3           S3Entity  `json:"s3"`
}

// S3Entity contains the S3-specific event data.
type S3Entity struct {
	SchemaVersion string         `json:"s3SchemaVersion"`
	Bucket        S3BucketEntity `json:"bucket"`
	Object        S3ObjectEntity `json:"object"`
}

// S3BucketEntity contains bucket information.
type S3BucketEntity struct {
	Name string `json:"name"`
	ARN  string `json:"arn"`
}

// S3ObjectEntity contains object information.
type S3ObjectEntity struct {
	Key  string `json:"key"`
	Size int64  `json:"size"`
	ETag string `json:"eTag"`
}

// Notification is the validated trigger input: the bucket and object key
// of the uploaded file.
type Notification struct {
	Bucket string
	Key    string
}

// ParseNotification decodes and validates a raw S3 event notification.
// Malformed payloads fail with BadEventError before any API call.
func ParseNotification(raw []byte) (*Notification, error) {
	var event S3Event
	if err := json.Unmarshal(raw, &event); err != nil {
		return nil, &syncerr.BadEventError{Reason: "invalid JSON payload"}
	}

	if len(event.Records) == 0 {
		return nil, &syncerr.BadEventError{Reason: "no records"}
	}

	rec := event.Records[0]
	if rec.S3.Bucket.Name == "" {
		return nil, &syncerr.BadEventError{Reason: "missing bucket name"}
	}
	if rec.S3.Object.Key == "" {
		return nil, &syncerr.BadEventError{Reason: "missing objectKey"}
	}

	// S3 URL-encodes object keys in event payloads (spaces become "+").
	key, err := url.QueryUnescape(rec.S3.Object.Key)
	if err != nil {
		key = rec.S3.Object.Key
	}

	return &Notification{
		Bucket: rec.S3.Bucket.Name,
		Key:    key,
	}, nil
}
