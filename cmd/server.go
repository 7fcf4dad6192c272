// Copyright 2026 PolicySync Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/datalift/policysync/pkg/awsclient"
	"github.com/datalift/policysync/pkg/bucket"
	"github.com/datalift/policysync/pkg/catalog"
	"github.com/datalift/policysync/pkg/convert"
	"github.com/datalift/policysync/pkg/debug"
	"github.com/datalift/policysync/pkg/grants"
	"github.com/datalift/policysync/pkg/listener"
	"github.com/datalift/policysync/pkg/logger"
	"github.com/datalift/policysync/pkg/pipeline"
	"github.com/datalift/policysync/pkg/policy"
	"github.com/datalift/policysync/pkg/utils"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	rootCmd.AddCommand(serverCmd)

	serverCmd.Flags().String("target_bucket", "", "Bucket converted reports and the derived policy go to (overrides config)")
	viper.BindPFlag("target.bucket", serverCmd.Flags().Lookup("target_bucket"))
}

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Run the upload notification listeners",
	Long: `Starts the configured event sources (SQS, Kafka, Redis, webhook) and
processes upload notifications: convert the report, derive the target
bucket's access policy from its KMS key grants, attach it.`,
	Run: runServer,
}

func runServer(cmd *cobra.Command, args []string) {
	utils.LoadConfiguration("policysync", false)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	targetBucket := viper.GetString("target.bucket")
	if targetBucket == "" {
		logger.Fatal().Msg("target.bucket is required")
	}

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

	var crawler pipeline.CatalogRefresher
	if name := viper.GetString("catalog.crawler"); name != "" {
		crawler = catalog.NewCrawler(clients.Glue, name)
	}

	orch := pipeline.NewOrchestrator(pipeline.OrchestratorConfig{
		Converter: convert.New(clients.S3, targetBucket),
		Resolver:  bucket.NewResolver(clients.S3),
		Reader:    grants.NewReader(clients.KMS),
		Builder:   policy.NewBuilder(viper.GetStringSlice("policy.actions")...),
		Attacher:  bucket.NewAttacher(clients.S3),
		Crawler:   crawler,
	})

	var wg sync.WaitGroup
	sources := 0

	if queueURL := viper.GetString("listeners.sqs.queue_url"); queueURL != "" {
		l, err := listener.NewSQSListener(clients.SQS, listener.DefaultSQSConfig(queueURL), orch)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to create SQS listener")
		}
		sources++
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := l.Run(ctx); err != nil {
				logger.Error().Err(err).Msg("sqs listener stopped")
			}
		}()
	}

	if brokers := viper.GetStringSlice("listeners.kafka.brokers"); len(brokers) > 0 {
		cfg := listener.DefaultKafkaConfig(brokers)
		if topic := viper.GetString("listeners.kafka.topic"); topic != "" {
			cfg.Topic = topic
		}
		if group := viper.GetString("listeners.kafka.group_id"); group != "" {
			cfg.GroupID = group
		}
		l, err := listener.NewKafkaListener(cfg, orch)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to create Kafka listener")
		}
		sources++
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer l.Close()
			if err := l.Run(ctx); err != nil {
				logger.Error().Err(err).Msg("kafka listener stopped")
			}
		}()
	}

	if addr := viper.GetString("listeners.redis.addr"); addr != "" {
		cfg := listener.DefaultRedisConfig(addr)
		cfg.Password = viper.GetString("listeners.redis.password")
		if ch := viper.GetString("listeners.redis.channel"); ch != "" {
			cfg.Channel = ch
		}
		l, err := listener.NewRedisListener(cfg, orch)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to create Redis listener")
		}
		sources++
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer l.Close()
			if err := l.Run(ctx); err != nil {
				logger.Error().Err(err).Msg("redis listener stopped")
			}
		}()
	}

	var webhookSrv *http.Server
	if addr := viper.GetString("listeners.webhook.addr"); addr != "" {
		webhookSrv = &http.Server{
			Addr:              addr,
			Handler:           listener.NewWebhook(orch),
			ReadHeaderTimeout: 10 * time.Second,
		}
		sources++
		wg.Add(1)
		go func() {
			defer wg.Done()
			logger.Info().Str("addr", addr).Msg("webhook listener started")
			if err := webhookSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error().Err(err).Msg("webhook server stopped")
			}
		}()
	}

	if sources == 0 {
		logger.Fatal().Msg("no event source configured (sqs, kafka, redis, or webhook)")
	}

	debugAddr := viper.GetString("debug.addr")
	if debugAddr == "" {
		debugAddr = ":9090"
	}
	debugSrv := &http.Server{
		Addr:              debugAddr,
		Handler:           debug.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := debugSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("debug server stopped")
		}
	}()

	debug.SetReady()
	logger.Info().
		Int("sources", sources).
		Str("target_bucket", targetBucket).
		Msg("policysync server started")

	<-ctx.Done()
	debug.SetNotReady()
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if webhookSrv != nil {
		webhookSrv.Shutdown(shutdownCtx)
	}
	debugSrv.Shutdown(shutdownCtx)

	wg.Wait()
}
