// Package pipeline implements the per-feed Processor capability named in
// spec.md §4.2: one object, read line by line, decoded, parsed,
// validated, transformed, serialized, and submitted for delivery.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/arc-self/wifi-ingest-worker/internal/delivery"
	"github.com/arc-self/wifi-ingest-worker/internal/ingestevent"
	"github.com/arc-self/wifi-ingest-worker/internal/linedecode"
	"github.com/arc-self/wifi-ingest-worker/internal/measurement"
	"github.com/arc-self/wifi-ingest-worker/internal/objectstore"
	"github.com/arc-self/wifi-ingest-worker/internal/scandoc"
	"github.com/arc-self/wifi-ingest-worker/internal/transform"
	"github.com/arc-self/wifi-ingest-worker/internal/validate"
)

// Metrics is the narrow subset of MetricsSink the pipeline reports to.
type Metrics interface {
	LineDecoded()
	LineSkipped(reason string)
	DocumentRejected(reason string)
	ObservationRejected(reason string)
	RecordSerialized()
	ObserveObjectProcessing(seconds float64)
}

// Processor is the concrete FeedDispatcher.Processor implementation
// shared by every feed tag (spec.md §4.2 allows per-tag processors, but
// this service uses one implementation parameterized by nothing feed
// specific — the feed tag only selects which Processor instance handles
// it, and every registered instance runs the same pipeline).
type Processor struct {
	Getter         objectstore.Getter
	Batcher        *delivery.Batcher
	Limits         validate.Limits
	Weights        transform.Weights
	OuiPolicy      transform.OuiPolicy
	MaxRecordBytes int
	Logger         *zap.Logger
	Metrics        Metrics
}

// Process implements dispatch.Processor.
func (p *Processor) Process(ctx context.Context, evt ingestevent.SourceEvent) error {
	started := time.Now()
	logger := p.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("message_id", evt.MessageID), zap.String("bucket", evt.Bucket), zap.String("object_key", evt.ObjectKey))

	batchID := uuid.NewString()
	tctx := transform.Context{
		ProcessingBatchID:  batchID,
		IngestionTimestamp: time.Now().UnixMilli(),
	}
	logger = logger.With(zap.String("processing_batch_id", batchID))

	err := objectstore.OpenLines(ctx, p.Getter, evt.Bucket, evt.ObjectKey, func(line string) error {
		return p.processLine(ctx, line, tctx, logger)
	})

	if p.Metrics != nil {
		p.Metrics.ObserveObjectProcessing(time.Since(started).Seconds())
	}
	if err != nil {
		return fmt.Errorf("pipeline: process %s/%s: %w", evt.Bucket, evt.ObjectKey, err)
	}

	if flushErr := p.Batcher.Flush(ctx); flushErr != nil {
		logger.Error("pipeline: flush failed", zap.Error(flushErr))
	}
	return nil
}

func (p *Processor) processLine(ctx context.Context, line string, tctx transform.Context, logger *zap.Logger) error {
	decoded, err := linedecode.Decode(line)
	if err != nil {
		logger.Warn("pipeline: line decode failed, skipping", zap.Error(err))
		p.skip("decode_error")
		return nil
	}
	if p.Metrics != nil {
		p.Metrics.LineDecoded()
	}

	doc, err := scandoc.Parse(decoded)
	if err != nil {
		logger.Warn("pipeline: document parse failed, skipping", zap.Error(err))
		p.reject("parse_error")
		return nil
	}

	result := transform.Document(doc, tctx, p.Limits, p.Weights, p.OuiPolicy, time.Now())
	for _, rej := range result.Rejections {
		if p.Metrics != nil {
			p.Metrics.ObservationRejected(string(rej.Reason))
		}
	}

	for _, m := range result.Measurements {
		if err := p.emit(ctx, m); err != nil {
			logger.Warn("pipeline: emit failed", zap.Error(err))
		}
	}
	return nil
}

func (p *Processor) emit(ctx context.Context, m measurement.Measurement) error {
	encoded, err := measurement.Encode(m, p.MaxRecordBytes)
	if err != nil {
		if p.Metrics != nil {
			p.Metrics.ObservationRejected("record_too_large")
		}
		return err
	}
	if p.Metrics != nil {
		p.Metrics.RecordSerialized()
	}
	return p.Batcher.Submit(ctx, delivery.Record{Bytes: encoded, PartitionKey: m.BSSID})
}

func (p *Processor) skip(reason string) {
	if p.Metrics != nil {
		p.Metrics.LineSkipped(reason)
	}
}

func (p *Processor) reject(reason string) {
	if p.Metrics != nil {
		p.Metrics.DocumentRejected(reason)
	}
}
