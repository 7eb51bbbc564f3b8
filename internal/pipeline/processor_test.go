package pipeline

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/base64"
	"io"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/arc-self/wifi-ingest-worker/internal/delivery"
	"github.com/arc-self/wifi-ingest-worker/internal/ingestevent"
	"github.com/arc-self/wifi-ingest-worker/internal/transform"
	"github.com/arc-self/wifi-ingest-worker/internal/validate"
)

type fakeGetter struct {
	lines []string
}

func (g *fakeGetter) GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewBufferString(joinLines(g.lines))), nil
}

func joinLines(lines []string) string {
	var buf bytes.Buffer
	for _, l := range lines {
		buf.WriteString(l)
		buf.WriteByte('\n')
	}
	return buf.String()
}

func encodeLine(t *testing.T, text string) string {
	t.Helper()
	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	_, err := gw.Write([]byte(text))
	require.NoError(t, err)
	require.NoError(t, gw.Close())
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

type fakeSink struct {
	mu      sync.Mutex
	records []delivery.Record
}

func (f *fakeSink) PutRecords(ctx context.Context, records []delivery.Record) ([]delivery.Outcome, error) {
	f.mu.Lock()
	f.records = append(f.records, records...)
	f.mu.Unlock()
	outcomes := make([]delivery.Outcome, len(records))
	for i := range outcomes {
		outcomes[i] = delivery.Outcome{Success: true}
	}
	return outcomes, nil
}

func (f *fakeSink) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.records)
}

func testLimits() validate.Limits {
	return validate.Limits{
		MaxAccuracyMeters: 150,
		RSSIMin:           -100,
		RSSIMax:           0,
		MaxPastAge:        365 * 24 * time.Hour,
		FutureSkew:        5 * time.Minute,
	}
}

func TestProcessor_Process_EmitsAndFlushes(t *testing.T) {
	now := time.Now()
	doc := `{"scanResults":[{"timestamp":` + strconv.FormatInt(now.Add(-time.Minute).UnixMilli(), 10) + `,"location":{"latitude":37.4,"longitude":-122.1},"results":[{"bssid":"11:22:33:44:55:66","rssi":-70}]}]}`
	line := encodeLine(t, doc)

	sink := &fakeSink{}
	batcher := delivery.New(delivery.Config{MaxRecords: 500, MaxBatchBytes: 4 << 20, MaxRetries: 1, BaseBackoff: time.Millisecond, MaxBackoff: time.Millisecond, Workers: 1}, sink, nil, nil, nil)

	p := &Processor{
		Getter:         &fakeGetter{lines: []string{line}},
		Batcher:        batcher,
		Limits:         testLimits(),
		Weights:        transform.Weights{Connected: 2.0, Scan: 1.0, LowLink: 1.5},
		MaxRecordBytes: 1_000_000,
	}

	err := p.Process(context.Background(), ingestevent.SourceEvent{Bucket: "b", ObjectKey: "k", MessageID: "m"})
	require.NoError(t, err)

	require.Eventually(t, func() bool { return sink.count() == 1 }, time.Second, time.Millisecond)
}
