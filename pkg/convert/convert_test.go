// Copyright 2026 PolicySync Authors
// SPDX-License-Identifier: Apache-2.0

package convert

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/datalift/policysync/pkg/syncerr"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

type fakeS3 struct {
	objects map[string][]byte
	getErr  error
	putErr  error

	puts map[string][]byte
}

func newFakeS3() *fakeS3 {
	return &fakeS3{
		objects: make(map[string][]byte),
		puts:    make(map[string][]byte),
	}
}

func (f *fakeS3) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	data, ok := f.objects[aws.ToString(params.Bucket)+"/"+aws.ToString(params.Key)]
	if !ok {
		return nil, &smithy.GenericAPIError{Code: "NoSuchKey"}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	data, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	f.puts[aws.ToString(params.Bucket)+"/"+aws.ToString(params.Key)] = data
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetBucketEncryption(ctx context.Context, params *s3.GetBucketEncryptionInput, optFns ...func(*s3.Options)) (*s3.GetBucketEncryptionOutput, error) {
	return &s3.GetBucketEncryptionOutput{}, nil
}

func (f *fakeS3) PutBucketPolicy(ctx context.Context, params *s3.PutBucketPolicyInput, optFns ...func(*s3.Options)) (*s3.PutBucketPolicyOutput, error) {
	return &s3.PutBucketPolicyOutput{}, nil
}

// buildSheet produces an xlsx with an all-empty row and an all-empty
// column, both of which the converter must drop.
func buildSheet(t *testing.T) []byte {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	cells := map[string]string{
		"A1": "Name", "C1": "Region",
		"A3": "alice", "C3": "eu-west-2",
		"A4": "bob", "C4": "us-east-1",
	}
	for cell, value := range cells {
		require.NoError(t, f.SetCellValue(sheet, cell, value))
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestConverter_Convert(t *testing.T) {
	t.Parallel()

	client := newFakeS3()
	client.objects["uploads/reports/sales_20240115.xlsx"] = buildSheet(t)

	conv := New(client, "input-data")
	res, err := conv.Convert(context.Background(), "uploads", "reports/sales_20240115.xlsx")
	require.NoError(t, err)

	assert.Equal(t, "input-data", res.TargetBucket)
	assert.Equal(t, "year=2024/month=01/day=15/sales_20240115.csv", res.TargetKey)
	assert.Equal(t, 2, res.Rows)

	csvData := client.puts["input-data/year=2024/month=01/day=15/sales_20240115.csv"]
	assert.Equal(t, "Name,Region\nalice,eu-west-2\nbob,us-east-1\n", string(csvData))
	assert.Equal(t, int64(len(csvData)), res.Bytes)
}

func TestConverter_Convert_Failures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		key     string
		prepare func(*testing.T, *fakeS3)
		errText string
	}{
		{
			name:    "unsupported extension",
			key:     "reports/sales_20240115.pdf",
			errText: "unsupported extension",
		},
		{
			name:    "missing date segment",
			key:     "reports/sales.xlsx",
			errText: "missing date segment",
		},
		{
			name:    "invalid date segment",
			key:     "reports/sales_2024.xlsx",
			errText: "invalid date segment",
		},
		{
			name:    "source object missing",
			key:     "reports/sales_20240115.xlsx",
			errText: "download",
		},
		{
			name: "not a spreadsheet",
			key:  "reports/sales_20240115.xlsx",
			prepare: func(t *testing.T, f *fakeS3) {
				f.objects["uploads/reports/sales_20240115.xlsx"] = []byte("plain text")
			},
			errText: "open spreadsheet",
		},
		{
			name: "upload fails",
			key:  "reports/sales_20240115.xlsx",
			prepare: func(t *testing.T, f *fakeS3) {
				f.objects["uploads/reports/sales_20240115.xlsx"] = buildSheet(t)
				f.putErr = &smithy.GenericAPIError{Code: "AccessDenied"}
			},
			errText: "upload",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			client := newFakeS3()
			if tt.prepare != nil {
				tt.prepare(t, client)
			}

			_, err := New(client, "input-data").Convert(context.Background(), "uploads", tt.key)

			var ce *syncerr.ConversionError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.key, ce.Key)
			assert.ErrorContains(t, err, tt.errText)
		})
	}
}

func TestDateFromFilename(t *testing.T) {
	t.Parallel()

	date, err := dateFromFilename("sales_20240115")
	require.NoError(t, err)
	assert.Equal(t, 2024, date.Year())
	assert.Equal(t, "January", date.Month().String())
	assert.Equal(t, 15, date.Day())

	// Extra segments after the date are ignored.
	date, err = dateFromFilename("sales_20231231_final")
	require.NoError(t, err)
	assert.Equal(t, 31, date.Day())

	_, err = dateFromFilename("sales")
	assert.Error(t, err)

	_, err = dateFromFilename("sales_janfifteen")
	assert.Error(t, err)
}
