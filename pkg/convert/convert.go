// Copyright 2026 PolicySync Authors
// SPDX-License-Identifier: Apache-2.0

// Package convert transcodes uploaded spreadsheet reports to CSV.
//
// Report filenames carry a date segment ("sales_20240115.xlsx"); the CSV
// lands in the target bucket under a Hive-style date partition so the
// catalog crawler picks the partitions up without configuration.
package convert

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/datalift/policysync/pkg/awsclient"
	"github.com/datalift/policysync/pkg/logger"
	"github.com/datalift/policysync/pkg/syncerr"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dustin/go-humanize"
	"github.com/xuri/excelize/v2"
)

// Extension is the only source format the converter accepts.
const Extension = ".xlsx"

// dateLayout matches the YYYYMMDD segment in report filenames.
const dateLayout = "20060102"

// Result describes where a converted report was written.
type Result struct {
	TargetBucket string
	TargetKey    string
	Rows         int
	Bytes        int64
}

// Converter downloads spreadsheet reports, transcodes them to CSV, and
// uploads the result to the target bucket.
type Converter struct {
	client       awsclient.S3API
	targetBucket string
}

func New(client awsclient.S3API, targetBucket string) *Converter {
	return &Converter{client: client, targetBucket: targetBucket}
}

// TargetBucket returns the bucket converted reports are written to.
func (c *Converter) TargetBucket() string {
	return c.targetBucket
}

// Convert reads bucket/key, transcodes it, and writes the CSV under
// year=/month=/day= partitions in the target bucket. Every failure is a
// ConversionError; nothing downstream of conversion runs when it fails.
func (c *Converter) Convert(ctx context.Context, srcBucket, key string) (*Result, error) {
	filename := path.Base(key)
	ext := strings.ToLower(path.Ext(filename))
	if ext != Extension {
		return nil, &syncerr.ConversionError{Key: key, Err: fmt.Errorf("unsupported extension %q", ext)}
	}
	prefix := strings.TrimSuffix(filename, path.Ext(filename))

	date, err := dateFromFilename(prefix)
	if err != nil {
		return nil, &syncerr.ConversionError{Key: key, Err: err}
	}

	obj, err := c.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(srcBucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, &syncerr.ConversionError{Key: key, Err: fmt.Errorf("download: %w", err)}
	}
	defer obj.Body.Close()

	data, err := io.ReadAll(obj.Body)
	if err != nil {
		return nil, &syncerr.ConversionError{Key: key, Err: fmt.Errorf("read body: %w", err)}
	}

	csvData, rows, err := transcode(data)
	if err != nil {
		return nil, &syncerr.ConversionError{Key: key, Err: err}
	}

	targetKey := fmt.Sprintf("year=%04d/month=%02d/day=%02d/%s.csv",
		date.Year(), date.Month(), date.Day(), prefix)

	_, err = c.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(c.targetBucket),
		Key:         aws.String(targetKey),
		Body:        bytes.NewReader(csvData),
		ContentType: aws.String("text/csv"),
	})
	if err != nil {
		return nil, &syncerr.ConversionError{Key: key, Err: fmt.Errorf("upload %s: %w", targetKey, err)}
	}

	logger.Ctx(ctx).Info().
		Str("source", srcBucket+"/"+key).
		Str("target", c.targetBucket+"/"+targetKey).
		Int("rows", rows).
		Str("size", humanize.Bytes(uint64(len(csvData)))).
		Msg("converted report")

	return &Result{
		TargetBucket: c.targetBucket,
		TargetKey:    targetKey,
		Rows:         rows,
		Bytes:        int64(len(csvData)),
	}, nil
}

// dateFromFilename extracts the date from the segment after the first
// underscore: "sales_20240115" → 2024-01-15.
func dateFromFilename(prefix string) (time.Time, error) {
	parts := strings.Split(prefix, "_")
	if len(parts) < 2 {
		return time.Time{}, fmt.Errorf("filename %q missing date segment (want name_YYYYMMDD)", prefix)
	}
	date, err := time.Parse(dateLayout, parts[1])
	if err != nil {
		return time.Time{}, fmt.Errorf("filename %q has invalid date segment %q", prefix, parts[1])
	}
	return date, nil
}

// transcode converts xlsx bytes to CSV: all-empty rows and columns are
// dropped, the first surviving row becomes the header.
func transcode(data []byte) ([]byte, int, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, 0, fmt.Errorf("open spreadsheet: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, 0, fmt.Errorf("spreadsheet has no sheets")
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, 0, fmt.Errorf("read sheet %q: %w", sheet, err)
	}

	rows = dropEmptyRows(rows)
	if len(rows) == 0 {
		return nil, 0, fmt.Errorf("spreadsheet has no data rows")
	}
	cols := nonEmptyColumns(rows)

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	for _, row := range rows {
		record := make([]string, len(cols))
		for i, col := range cols {
			if col < len(row) {
				record[i] = row[col]
			}
		}
		if err := w.Write(record); err != nil {
			return nil, 0, fmt.Errorf("write csv: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, 0, fmt.Errorf("flush csv: %w", err)
	}

	// Row count excludes the header.
	return buf.Bytes(), len(rows) - 1, nil
}

func dropEmptyRows(rows [][]string) [][]string {
	out := rows[:0]
	for _, row := range rows {
		for _, cell := range row {
			if cell != "" {
				out = append(out, row)
				break
			}
		}
	}
	return out
}

// nonEmptyColumns returns the indexes of columns holding at least one
// value. GetRows trims trailing empty cells per row, so column width
// varies row to row.
func nonEmptyColumns(rows [][]string) []int {
	width := 0
	for _, row := range rows {
		if len(row) > width {
			width = len(row)
		}
	}
	var cols []int
	for c := 0; c < width; c++ {
		for _, row := range rows {
			if c < len(row) && row[c] != "" {
				cols = append(cols, c)
				break
			}
		}
	}
	return cols
}
