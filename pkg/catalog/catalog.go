// Copyright 2026 PolicySync Authors
// SPDX-License-Identifier: Apache-2.0

// Package catalog refreshes the data catalog after new partitions land.
package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/datalift/policysync/pkg/awsclient"
	"github.com/datalift/policysync/pkg/logger"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/glue"
	gluetypes "github.com/aws/aws-sdk-go-v2/service/glue/types"
)

// Crawler triggers a Glue crawler run over the target bucket.
type Crawler struct {
	client awsclient.GlueAPI
	name   string
}

func NewCrawler(client awsclient.GlueAPI, name string) *Crawler {
	return &Crawler{client: client, name: name}
}

// Start kicks off a crawl. A crawler that is already running counts as
// success: the partitions will be picked up by the in-flight run.
func (c *Crawler) Start(ctx context.Context) error {
	_, err := c.client.StartCrawler(ctx, &glue.StartCrawlerInput{
		Name: aws.String(c.name),
	})
	if err != nil {
		var running *gluetypes.CrawlerRunningException
		if errors.As(err, &running) {
			logger.Ctx(ctx).Debug().Str("crawler", c.name).Msg("crawler already running")
			return nil
		}
		return fmt.Errorf("start crawler %s: %w", c.name, err)
	}
	return nil
}
