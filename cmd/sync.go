// Copyright 2026 PolicySync Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/datalift/policysync/pkg/awsclient"
	"github.com/datalift/policysync/pkg/bucket"
	"github.com/datalift/policysync/pkg/grants"
	"github.com/datalift/policysync/pkg/logger"
	"github.com/datalift/policysync/pkg/pipeline"
	"github.com/datalift/policysync/pkg/policy"
	"github.com/datalift/policysync/pkg/utils"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var syncBucketName string

func init() {
	rootCmd.AddCommand(syncCmd)

	syncCmd.Flags().StringVar(&syncBucketName, "bucket", "", "Bucket whose access policy to regenerate")
	syncCmd.MarkFlagRequired("bucket")
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Regenerate one bucket's access policy from its key grants",
	Long: `Resolves the bucket's KMS key, derives the external grantee accounts
from the key policy, and attaches the resulting bucket policy. No file
conversion is involved; this is the policy half of the pipeline, run once.`,
	Run: runSync,
}

func runSync(cmd *cobra.Command, args []string) {
	utils.LoadConfiguration("policysync", false)

	ctx := context.Background()

	clients, err := awsclient.New(ctx, awsclient.Config{
		Region:          viper.GetString("aws.region"),
		AccessKeyID:     viper.GetString("aws.access_key_id"),
		SecretAccessKey: viper.GetString("aws.secret_access_key"),
		Endpoint:        viper.GetString("aws.endpoint"),
		RoleARN:         viper.GetString("aws.role_arn"),
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create AWS clients")
	}

	orch := pipeline.NewOrchestrator(pipeline.OrchestratorConfig{
		Resolver: bucket.NewResolver(clients.S3),
		Reader:   grants.NewReader(clients.KMS),
		Builder:  policy.NewBuilder(viper.GetStringSlice("policy.actions")...),
		Attacher: bucket.NewAttacher(clients.S3),
	})

	res := orch.SyncBucket(ctx, syncBucketName)
	fmt.Println(res.Body)
	if res.StatusCode != http.StatusOK {
		os.Exit(1)
	}
}
