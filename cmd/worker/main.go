package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/arc-self/wifi-ingest-worker/internal/applog"
	"github.com/arc-self/wifi-ingest-worker/internal/config"
	"github.com/arc-self/wifi-ingest-worker/internal/delivery"
	"github.com/arc-self/wifi-ingest-worker/internal/dispatch"
	"github.com/arc-self/wifi-ingest-worker/internal/health"
	"github.com/arc-self/wifi-ingest-worker/internal/objectstore"
	"github.com/arc-self/wifi-ingest-worker/internal/pipeline"
	"github.com/arc-self/wifi-ingest-worker/internal/queue"
	"github.com/arc-self/wifi-ingest-worker/internal/transform"
	"github.com/arc-self/wifi-ingest-worker/internal/validate"
)

const shutdownDeadline = 25 * time.Second

func main() {
	cfg := config.Load()

	logger, err := applog.New(cfg.LogJSON)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s3Client, err := objectstore.NewS3Client(ctx, objectstore.S3ClientConfig{
		Region:   cfg.AWSRegion,
		Endpoint: cfg.AWSEndpoint,
	})
	if err != nil {
		logger.Fatal("object store client init failed", zap.Error(err))
	}

	sqsQueue, err := queue.NewSQSQueue(ctx, queue.SQSClientConfig{
		Region:   cfg.AWSRegion,
		Endpoint: cfg.AWSEndpoint,
		QueueURL: cfg.QueueURL,
	})
	if err != nil {
		logger.Fatal("queue client init failed", zap.Error(err))
	}

	kinesisClient, err := delivery.NewKinesisClient(ctx, delivery.KinesisClientConfig{
		Region:   cfg.AWSRegion,
		Endpoint: cfg.AWSEndpoint,
	})
	if err != nil {
		logger.Fatal("stream client init failed", zap.Error(err))
	}
	streamSink := delivery.NewKinesisSink(kinesisClient, cfg.StreamName)

	var deadLetterSink delivery.Sink
	if cfg.DeadLetterStreamName != "" {
		deadLetterSink = delivery.NewKinesisSink(kinesisClient, cfg.DeadLetterStreamName)
	}

	metrics := health.NewMetrics()

	batcher := delivery.New(delivery.Config{
		MaxRecords:    cfg.MaxBatchRecords,
		MaxBatchBytes: cfg.MaxBatchBytes,
		MaxRetries:    cfg.MaxRetries,
		BaseBackoff:   cfg.BaseBackoff,
		MaxBackoff:    cfg.MaxBackoff,
		Workers:       cfg.DeliveryWorkers,
	}, streamSink, deadLetterSink, logger, metrics)

	proc := &pipeline.Processor{
		Getter:  s3Client,
		Batcher: batcher,
		Limits: validate.Limits{
			MaxAccuracyMeters: cfg.MaxAccuracyMeters,
			RSSIMin:           cfg.RSSIMin,
			RSSIMax:           cfg.RSSIMax,
			MaxPastAge:        cfg.MaxPastAge,
			FutureSkew:        cfg.FutureSkew,
		},
		Weights: transform.Weights{
			Connected: cfg.ConnectedWeight,
			Scan:      cfg.ScanWeight,
			LowLink:   cfg.LowLinkSpeedWeight,
		},
		OuiPolicy:      ouiPolicyFrom(cfg),
		MaxRecordBytes: cfg.MaxRecordBytes,
		Logger:         logger,
		Metrics:        metrics,
	}

	dispatcher := dispatch.New(map[string]dispatch.Processor{
		"default": proc,
	})

	probe := health.NewProbe(
		sqsQueue.Reachable,
		func(ctx context.Context) (bool, error) { return delivery.StreamReady(ctx, kinesisClient, cfg.StreamName) },
	)

	consumer := queue.New(queue.Config{
		MaxMessages:       cfg.MaxMessages,
		WaitSeconds:       cfg.WaitSeconds,
		VisibilitySeconds: cfg.VisibilitySeconds,
	}, sqsQueue, dispatcher, logger, metrics, probe)

	httpServer := health.NewServer(metrics, probe)

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := consumer.Run(ctx); err != nil {
			logger.Error("consumer loop exited with error", zap.Error(err))
		}
	}()

	go func() {
		if err := httpServer.Start(cfg.HTTPAddr); err != nil && err != http.ErrServerClosed {
			logger.Error("health server exited with error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received, draining")

	<-done

	batcher.Close(shutdownDeadline)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("health server shutdown error", zap.Error(err))
	}

	logger.Info("worker stopped")
}

func ouiPolicyFrom(cfg config.Config) transform.OuiPolicy {
	if !cfg.OuiEnabled {
		return transform.OuiPolicy{}
	}
	prefixes := make(map[string]struct{}, len(cfg.OuiPrefixes))
	for _, p := range cfg.OuiPrefixes {
		prefixes[p] = struct{}{}
	}
	return transform.OuiPolicy{Enabled: true, Action: cfg.OuiAction, Prefixes: prefixes}
}
