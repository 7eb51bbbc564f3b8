// Package queue implements the Consumer described in spec.md §4.10: a
// long-poll receive loop that extracts, dispatches, and deletes queue
// messages with transient-failure redelivery semantics.
package queue

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/arc-self/wifi-ingest-worker/internal/dispatch"
	"github.com/arc-self/wifi-ingest-worker/internal/ingesterr"
	"github.com/arc-self/wifi-ingest-worker/internal/ingestevent"
)

// Metrics is the narrow subset of MetricsSink the Consumer reports to.
type Metrics interface {
	MessageReceived()
	MessageDeleted()
	ObjectProcessed()
	ObserveReceiveLoop(seconds float64)
}

// ActivityRecorder lets the Consumer drive the health probe's
// consecutive-failure counter without depending on the health package.
type ActivityRecorder interface {
	RecordSuccess()
	RecordFailure()
}

// Config bundles the Consumer's tunables (spec.md §4.10 defaults).
type Config struct {
	MaxMessages       int32
	WaitSeconds       int32
	VisibilitySeconds int32
}

// Consumer runs the single receive loop described in spec.md §4.10.
type Consumer struct {
	cfg        Config
	q          Queue
	dispatcher *dispatch.Dispatcher
	logger     *zap.Logger
	metrics    Metrics
	activity   ActivityRecorder
}

// New builds a Consumer. metrics and activity may be nil.
func New(cfg Config, q Queue, dispatcher *dispatch.Dispatcher, logger *zap.Logger, metrics Metrics, activity ActivityRecorder) *Consumer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Consumer{cfg: cfg, q: q, dispatcher: dispatcher, logger: logger, metrics: metrics, activity: activity}
}

// Run loops until ctx is cancelled, then returns. Cancellation is checked
// before each receive and before each message of a batch; a batch that
// cancellation interrupts is abandoned without deleting any of its
// messages, including those already processed, so the queue redelivers
// them.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		started := time.Now()
		msgs, err := c.q.Receive(ctx, c.cfg.MaxMessages, c.cfg.WaitSeconds, c.cfg.VisibilitySeconds)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.logger.Error("queue: receive failed", zap.Error(err))
			continue
		}
		if len(msgs) == 0 {
			continue
		}
		if c.metrics != nil {
			for range msgs {
				c.metrics.MessageReceived()
			}
		}

		c.processBatch(ctx, msgs)

		if c.metrics != nil {
			c.metrics.ObserveReceiveLoop(time.Since(started).Seconds())
		}
	}
}

// processBatch handles messages one at a time (sequential per file, to
// bound peak memory) and deletes the ones eligible for deletion in a
// single batch call at the end.
func (c *Consumer) processBatch(ctx context.Context, msgs []Message) {
	var toDelete []string

	for _, msg := range msgs {
		select {
		case <-ctx.Done():
			return
		default:
		}

		del := c.processOne(ctx, msg)
		if del {
			toDelete = append(toDelete, msg.ReceiptHandle)
		}
	}

	if len(toDelete) == 0 {
		return
	}
	if err := c.q.DeleteBatch(ctx, toDelete); err != nil {
		c.logger.Error("queue: delete-batch failed", zap.Error(err))
		return
	}
	if c.metrics != nil {
		for range toDelete {
			c.metrics.MessageDeleted()
		}
	}
}

// processOne runs one message through extract -> dispatch and reports
// whether the message is eligible for deletion: always true, except when
// the Processor aborted mid-file with a transient read failure.
func (c *Consumer) processOne(ctx context.Context, msg Message) bool {
	logger := c.logger.With(zap.String("message_id", msg.MessageID))

	evt, err := ingestevent.Extract([]byte(msg.Body), msg.ReceiptHandle, msg.MessageID)
	if err != nil {
		logger.Warn("queue: malformed event, deleting", zap.Error(err))
		return true
	}

	err = c.dispatcher.Dispatch(ctx, evt)
	if err == nil {
		if c.metrics != nil {
			c.metrics.ObjectProcessed()
		}
		if c.activity != nil {
			c.activity.RecordSuccess()
		}
		return true
	}

	if c.activity != nil {
		c.activity.RecordFailure()
	}

	if errors.Is(err, ingesterr.ErrTransientRead) {
		logger.Warn("queue: transient read failure, leaving message for redelivery", zap.Error(err))
		return false
	}

	logger.Error("queue: processing failed, deleting to avoid replay loop", zap.Error(err))
	return true
}
