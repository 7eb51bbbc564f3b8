// Package delivery implements the DeliveryBatcher described in spec.md
// §4.9: size/count-bounded batch accumulation, concurrent dispatch,
// per-record partial-failure retry, and classified backoff.
package delivery

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Record is one serialized line plus the partition key it ships with.
type Record struct {
	Bytes        []byte
	PartitionKey string
}

// Outcome is one record's result from a Sink.PutRecords call. A failed
// outcome must carry ErrorCode so the caller can classify it.
type Outcome struct {
	Success      bool
	ErrorCode    string
	ErrorMessage string
}

// Sink is the downstream bulk-put collaborator. A batch-level error
// (network failure, stream not found) applies to every record in the
// call; a nil error with per-record Outcome.Success=false represents
// partial failure.
type Sink interface {
	PutRecords(ctx context.Context, records []Record) ([]Outcome, error)
}

// Config bundles the DeliveryBatcher's tunables (spec.md §4.9 defaults).
type Config struct {
	MaxRecords    int
	MaxBatchBytes int
	MaxRetries    int
	BaseBackoff   time.Duration
	MaxBackoff    time.Duration
	Workers       int
}

// ErrClosed is returned by Submit once Close has begun.
var ErrClosed = errors.New("delivery: batcher is closed")

// Batcher accumulates records into bounded batches and dispatches them.
// Exactly one batch is open at a time; closing it is atomic under mu.
// Dispatch itself runs outside the lock.
type Batcher struct {
	cfg        Config
	sink       Sink
	deadLetter Sink // optional; nil disables dead-lettering
	logger     *zap.Logger
	metrics    Metrics

	mu           sync.Mutex
	current      []Record
	currentBytes int
	closed       bool

	gate chan struct{}
	wg   sync.WaitGroup
}

// Metrics is the narrow subset of MetricsSink the batcher reports to.
// A nil Metrics value (the zero Batcher.metrics) disables reporting.
type Metrics interface {
	RecordsDelivered(n int)
	RecordsDropped(n int, reason string)
	RecordsRetried(n int)
	BatchDispatched(recordCount, byteSize int, err error)
	ObserveBatchDispatch(seconds float64)
}

// New builds a Batcher. deadLetter may be nil.
func New(cfg Config, sink Sink, deadLetter Sink, logger *zap.Logger, metrics Metrics) *Batcher {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 2
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Batcher{
		cfg:        cfg,
		sink:       sink,
		deadLetter: deadLetter,
		logger:     logger,
		metrics:    metrics,
		gate:       make(chan struct{}, workers),
	}
}

// Submit adds rec to the open batch, closing and dispatching it first if
// adding rec would cross maxRecords or maxBatchBytes. Submit never blocks
// on network I/O directly, but when closing a batch it synchronously
// acquires a dispatch-worker slot before returning: if every worker is
// saturated, Submit blocks the caller right there rather than letting
// closed batches pile up in memory waiting for a free worker (spec.md
// §5's "blocking submit when the delivery worker queue is full"). A
// context cancellation while waiting on that slot surfaces as the
// backpressure outcome the submit contract promises.
func (b *Batcher) Submit(ctx context.Context, rec Record) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrClosed
	}
	if len(b.current) > 0 && (len(b.current)+1 > b.cfg.MaxRecords || b.currentBytes+len(rec.Bytes) > b.cfg.MaxBatchBytes) {
		toSend := b.current
		b.current = nil
		b.currentBytes = 0
		b.mu.Unlock()
		if err := b.dispatchAsync(ctx, toSend, 0, false); err != nil {
			return fmt.Errorf("delivery: backpressure: %w", err)
		}
		b.mu.Lock()
	}
	b.current = append(b.current, rec)
	b.currentBytes += len(rec.Bytes)
	b.mu.Unlock()
	return nil
}

// Flush closes and dispatches any partial batch, waiting for the first
// dispatch attempt (not any resulting retries) to complete. Processors
// call this at end-of-file before acknowledging their source message.
func (b *Batcher) Flush(ctx context.Context) error {
	b.mu.Lock()
	if len(b.current) == 0 {
		b.mu.Unlock()
		return nil
	}
	toSend := b.current
	b.current = nil
	b.currentBytes = 0
	b.mu.Unlock()
	return b.dispatchSync(ctx, toSend, 0, false)
}

// Close refuses new submissions, flushes any partial batch, and awaits
// all in-flight and scheduled retries until shutdownDeadline elapses,
// then stops waiting and logs a warning; the number of records left
// undelivered is not logged.
func (b *Batcher) Close(shutdownDeadline time.Duration) {
	b.mu.Lock()
	b.closed = true
	toSend := b.current
	b.current = nil
	b.currentBytes = 0
	b.mu.Unlock()

	if len(toSend) > 0 {
		if err := b.dispatchAsync(context.Background(), toSend, 0, false); err != nil {
			b.logger.Error("delivery: final flush dispatch failed", zap.Error(err))
		}
	}

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	timer := time.NewTimer(shutdownDeadline)
	defer timer.Stop()
	select {
	case <-done:
	case <-timer.C:
		b.logger.Warn("delivery: shutdown deadline reached, abandoning in-flight batches")
	}
}

// acquireGate blocks until a dispatch-worker slot is free or ctx is done.
// This is the batcher's single back-pressure point: a saturated worker
// pool blocks whoever is trying to start a new dispatch.
func (b *Batcher) acquireGate(ctx context.Context) error {
	select {
	case b.gate <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// dispatchAsync blocks until a worker slot is available (the back-pressure
// point), then runs the dispatch on its own goroutine so the caller isn't
// additionally held for the network round trip and any scheduled retries.
func (b *Batcher) dispatchAsync(ctx context.Context, records []Record, attempt int, partial bool) error {
	if err := b.acquireGate(ctx); err != nil {
		return err
	}
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		defer func() { <-b.gate }()
		b.attempt(ctx, records, attempt, partial)
	}()
	return nil
}

func (b *Batcher) dispatchSync(ctx context.Context, records []Record, attempt int, partial bool) error {
	if err := b.acquireGate(ctx); err != nil {
		return err
	}
	b.wg.Add(1)
	defer b.wg.Done()
	defer func() { <-b.gate }()
	return b.attempt(ctx, records, attempt, partial)
}

// attempt performs one PutRecords call, classifies the result, and
// schedules a retry (asynchronously, never blocking the caller) when the
// classification and retry budget allow it.
func (b *Batcher) attempt(ctx context.Context, records []Record, attemptNum int, partial bool) error {
	start := time.Now()
	outcomes, err := b.sink.PutRecords(ctx, records)
	if b.metrics != nil {
		b.metrics.ObserveBatchDispatch(time.Since(start).Seconds())
	}
	totalBytes := 0
	for _, r := range records {
		totalBytes += len(r.Bytes)
	}
	if b.metrics != nil {
		b.metrics.BatchDispatched(len(records), totalBytes, err)
	}

	if err != nil {
		class := classifyErr(err)
		b.logger.Error("delivery: batch dispatch failed",
			zap.Int("records", len(records)), zap.String("class", string(class)), zap.Error(err))
		return b.handleFailure(ctx, records, attemptNum, partial, class, err.Error())
	}

	var retry []Record
	delivered := 0
	for i, oc := range outcomes {
		if oc.Success {
			delivered++
			continue
		}
		class := classifyCode(oc.ErrorCode)
		if class == Retriable {
			retry = append(retry, records[i])
			continue
		}
		b.logger.Error("delivery: record dropped",
			zap.String("error_code", oc.ErrorCode), zap.String("class", string(class)))
		b.drop(records[i], string(class))
	}
	if delivered > 0 && b.metrics != nil {
		b.metrics.RecordsDelivered(delivered)
	}
	if len(retry) > 0 {
		return b.handleFailure(ctx, retry, attemptNum, true, Retriable, "partial failure")
	}
	return nil
}

func (b *Batcher) handleFailure(ctx context.Context, records []Record, attemptNum int, partial bool, class Class, detail string) error {
	if class != Retriable {
		for _, r := range records {
			b.drop(r, string(class))
		}
		return errors.New("delivery: " + detail)
	}
	if attemptNum >= b.cfg.MaxRetries {
		b.logger.Error("delivery: max retries exhausted, dropping records",
			zap.Int("records", len(records)), zap.Int("attempts", attemptNum))
		for _, r := range records {
			b.drop(r, "RETRIES_EXHAUSTED")
		}
		return errors.New("delivery: retries exhausted")
	}

	floor := time.Duration(0)
	if partial {
		floor = 500 * time.Millisecond
	}
	delay := backoffDelay(b.cfg, attemptNum, floor)
	if b.metrics != nil {
		b.metrics.RecordsRetried(len(records))
	}
	b.wg.Add(1)
	time.AfterFunc(delay, func() {
		defer b.wg.Done()
		if err := b.dispatchAsync(ctx, records, attemptNum+1, partial); err != nil {
			b.logger.Error("delivery: retry dispatch aborted", zap.Int("records", len(records)), zap.Error(err))
		}
	})
	return nil
}

func (b *Batcher) drop(r Record, reason string) {
	if b.metrics != nil {
		b.metrics.RecordsDropped(1, reason)
	}
	if b.deadLetter == nil {
		return
	}
	// Best-effort: a dead-letter write failure is logged, not retried;
	// retrying dead-lettering would reintroduce the problem it exists to
	// avoid.
	if _, err := b.deadLetter.PutRecords(context.Background(), []Record{r}); err != nil {
		b.logger.Error("delivery: dead-letter write failed", zap.Error(err))
	}
}

// backoffDelay computes attempt n's delay: min(base*2^n, max) * uniform(0.75, 1.25),
// floored at floor (used for partial-failure retries, spec.md §4.9).
func backoffDelay(cfg Config, attempt int, floor time.Duration) time.Duration {
	if attempt > 20 {
		attempt = 20
	}
	d := cfg.BaseBackoff << uint(attempt)
	if d <= 0 || d > cfg.MaxBackoff {
		d = cfg.MaxBackoff
	}
	jittered := time.Duration(float64(d) * (0.75 + rand.Float64()*0.5))
	if jittered < floor {
		jittered = floor
	}
	return jittered
}
