package delivery

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/kinesis"
	"github.com/aws/aws-sdk-go-v2/service/kinesis/types"
)

// KinesisSink adapts a *kinesis.Client to the Sink contract. A stream
// has its own KinesisSink; the optional dead-letter stream gets a second
// instance with a different StreamName.
type KinesisSink struct {
	client     *kinesis.Client
	streamName string
}

// NewKinesisSink builds a Sink bound to streamName.
func NewKinesisSink(client *kinesis.Client, streamName string) *KinesisSink {
	return &KinesisSink{client: client, streamName: streamName}
}

// PutRecords implements Sink via Kinesis's bulk PutRecords operation.
// The partition key is the record's bssid per spec.md §6, giving
// measurements for the same access point a stable shard affinity.
func (k *KinesisSink) PutRecords(ctx context.Context, records []Record) ([]Outcome, error) {
	if len(records) == 0 {
		return nil, nil
	}
	entries := make([]types.PutRecordsRequestEntry, len(records))
	for i, r := range records {
		entries[i] = types.PutRecordsRequestEntry{
			Data:         r.Bytes,
			PartitionKey: aws.String(r.PartitionKey),
		}
	}

	out, err := k.client.PutRecords(ctx, &kinesis.PutRecordsInput{
		StreamName: aws.String(k.streamName),
		Records:    entries,
	})
	if err != nil {
		return nil, fmt.Errorf("kinesis put-records: %w", err)
	}

	outcomes := make([]Outcome, len(out.Records))
	for i, entry := range out.Records {
		if entry.ErrorCode == nil {
			outcomes[i] = Outcome{Success: true}
			continue
		}
		outcomes[i] = Outcome{
			Success:      false,
			ErrorCode:    aws.ToString(entry.ErrorCode),
			ErrorMessage: aws.ToString(entry.ErrorMessage),
		}
	}
	return outcomes, nil
}

// StreamReady reports whether streamName is ACTIVE, used by the
// readiness probe (SPEC_FULL.md §4.11).
func StreamReady(ctx context.Context, client *kinesis.Client, streamName string) (bool, error) {
	out, err := client.DescribeStream(ctx, &kinesis.DescribeStreamInput{
		StreamName: aws.String(streamName),
	})
	if err != nil {
		return false, fmt.Errorf("kinesis describe-stream: %w", err)
	}
	return out.StreamDescription.StreamStatus == types.StreamStatusActive, nil
}
