package delivery

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSink struct {
	mu      sync.Mutex
	batches [][]Record
	outcome func(records []Record) ([]Outcome, error)
}

func (f *fakeSink) PutRecords(ctx context.Context, records []Record) ([]Outcome, error) {
	f.mu.Lock()
	cp := make([]Record, len(records))
	copy(cp, records)
	f.batches = append(f.batches, cp)
	f.mu.Unlock()
	if f.outcome != nil {
		return f.outcome(records)
	}
	outcomes := make([]Outcome, len(records))
	for i := range outcomes {
		outcomes[i] = Outcome{Success: true}
	}
	return outcomes, nil
}

func (f *fakeSink) batchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.batches)
}

func (f *fakeSink) totalRecords() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, b := range f.batches {
		n += len(b)
	}
	return n
}

func testConfig() Config {
	return Config{
		MaxRecords:    3,
		MaxBatchBytes: 1024,
		MaxRetries:    2,
		BaseBackoff:   5 * time.Millisecond,
		MaxBackoff:    20 * time.Millisecond,
		Workers:       2,
	}
}

func TestBatcher_ClosesOnRecordCountBound(t *testing.T) {
	sink := &fakeSink{}
	b := New(testConfig(), sink, nil, nil, nil)

	for i := 0; i < 4; i++ {
		require.NoError(t, b.Submit(context.Background(), Record{Bytes: []byte("x"), PartitionKey: "k"}))
	}

	require.Eventually(t, func() bool { return sink.batchCount() == 1 }, time.Second, time.Millisecond)

	require.NoError(t, b.Flush(context.Background()))
	assert.Equal(t, 4, sink.totalRecords())
}

func TestBatcher_FlushOnPartialBatch(t *testing.T) {
	sink := &fakeSink{}
	b := New(testConfig(), sink, nil, nil, nil)

	require.NoError(t, b.Submit(context.Background(), Record{Bytes: []byte("x"), PartitionKey: "k"}))
	require.NoError(t, b.Flush(context.Background()))

	assert.Equal(t, 1, sink.batchCount())
	assert.Equal(t, 1, sink.totalRecords())
}

func TestBatcher_PartialFailureRetries(t *testing.T) {
	var attempt int
	var mu sync.Mutex
	sink := &fakeSink{outcome: func(records []Record) ([]Outcome, error) {
		mu.Lock()
		defer mu.Unlock()
		attempt++
		outcomes := make([]Outcome, len(records))
		if attempt == 1 {
			outcomes[0] = Outcome{Success: false, ErrorCode: "ProvisionedThroughputExceededException"}
			for i := 1; i < len(records); i++ {
				outcomes[i] = Outcome{Success: true}
			}
			return outcomes, nil
		}
		for i := range outcomes {
			outcomes[i] = Outcome{Success: true}
		}
		return outcomes, nil
	}}

	b := New(testConfig(), sink, nil, nil, nil)
	require.NoError(t, b.Submit(context.Background(), Record{Bytes: []byte("a"), PartitionKey: "k1"}))
	require.NoError(t, b.Submit(context.Background(), Record{Bytes: []byte("b"), PartitionKey: "k2"}))
	require.NoError(t, b.Flush(context.Background()))

	require.Eventually(t, func() bool { return sink.batchCount() == 2 }, time.Second, time.Millisecond)
}

func TestBatcher_PermanentFailureDropsWithoutRetry(t *testing.T) {
	sink := &fakeSink{outcome: func(records []Record) ([]Outcome, error) {
		outcomes := make([]Outcome, len(records))
		for i := range outcomes {
			outcomes[i] = Outcome{Success: false, ErrorCode: "ResourceNotFoundException"}
		}
		return outcomes, nil
	}}

	b := New(testConfig(), sink, nil, nil, nil)
	require.NoError(t, b.Submit(context.Background(), Record{Bytes: []byte("a"), PartitionKey: "k"}))
	require.NoError(t, b.Flush(context.Background()))

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, sink.batchCount())
}

func TestBatcher_BatchLevelErrorRetriesThenExhausts(t *testing.T) {
	sink := &fakeSink{outcome: func(records []Record) ([]Outcome, error) {
		return nil, errors.New("connection timeout")
	}}

	cfg := testConfig()
	cfg.MaxRetries = 1
	b := New(cfg, sink, nil, nil, nil)
	require.NoError(t, b.Submit(context.Background(), Record{Bytes: []byte("a"), PartitionKey: "k"}))
	require.NoError(t, b.Flush(context.Background()))

	require.Eventually(t, func() bool { return sink.batchCount() == 2 }, time.Second, time.Millisecond)
}

func TestBatcher_SubmitAfterCloseFails(t *testing.T) {
	sink := &fakeSink{}
	b := New(testConfig(), sink, nil, nil, nil)
	b.Close(time.Second)

	err := b.Submit(context.Background(), Record{Bytes: []byte("x"), PartitionKey: "k"})
	assert.ErrorIs(t, err, ErrClosed)
}

func TestBatcher_SubmitBlocksWhenWorkersSaturated(t *testing.T) {
	release := make(chan struct{})
	sink := &fakeSink{outcome: func(records []Record) ([]Outcome, error) {
		<-release
		outcomes := make([]Outcome, len(records))
		for i := range outcomes {
			outcomes[i] = Outcome{Success: true}
		}
		return outcomes, nil
	}}

	cfg := testConfig()
	cfg.MaxRecords = 1
	cfg.Workers = 1
	b := New(cfg, sink, nil, nil, nil)

	// "a" fills the first batch; submitting "b" closes it and dispatches it,
	// occupying the only worker slot with a PutRecords call that won't
	// return until release is closed. "b" becomes the open batch.
	require.NoError(t, b.Submit(context.Background(), Record{Bytes: []byte("a"), PartitionKey: "k"}))
	require.NoError(t, b.Submit(context.Background(), Record{Bytes: []byte("b"), PartitionKey: "k"}))
	require.Eventually(t, func() bool { return sink.batchCount() == 1 }, time.Second, time.Millisecond)

	// Closing the second batch needs the same (only) worker slot, so this
	// Submit must block rather than spawning an unbounded second dispatch.
	submitReturned := make(chan error, 1)
	go func() {
		submitReturned <- b.Submit(context.Background(), Record{Bytes: []byte("c"), PartitionKey: "k"})
	}()

	select {
	case <-submitReturned:
		t.Fatal("Submit returned before the saturated worker pool freed a slot")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)

	select {
	case err := <-submitReturned:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Submit never unblocked after the worker slot freed up")
	}
}

func TestBatcher_SubmitReturnsErrorWhenBackpressureContextCancelled(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	sink := &fakeSink{outcome: func(records []Record) ([]Outcome, error) {
		<-release
		return []Outcome{{Success: true}}, nil
	}}

	cfg := testConfig()
	cfg.MaxRecords = 1
	cfg.Workers = 1
	b := New(cfg, sink, nil, nil, nil)

	require.NoError(t, b.Submit(context.Background(), Record{Bytes: []byte("a"), PartitionKey: "k"}))
	require.NoError(t, b.Submit(context.Background(), Record{Bytes: []byte("b"), PartitionKey: "k"}))
	require.Eventually(t, func() bool { return sink.batchCount() == 1 }, time.Second, time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := b.Submit(ctx, Record{Bytes: []byte("c"), PartitionKey: "k"})
	assert.Error(t, err)
}

func TestBackoffDelay_RespectsFloorAndCeiling(t *testing.T) {
	cfg := Config{BaseBackoff: time.Second, MaxBackoff: 2 * time.Second}
	d := backoffDelay(cfg, 10, 500*time.Millisecond)
	assert.LessOrEqual(t, d, cfg.MaxBackoff*125/100)

	floored := backoffDelay(Config{BaseBackoff: time.Millisecond, MaxBackoff: time.Millisecond}, 0, 500*time.Millisecond)
	assert.GreaterOrEqual(t, floored, 500*time.Millisecond)
}
