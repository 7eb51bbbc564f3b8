package queue

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

// Message is one received queue entry, narrowed to what the Consumer
// needs: the body to extract an event from, and the handle required to
// delete it.
type Message struct {
	Body          string
	ReceiptHandle string
	MessageID     string
}

// Queue is the narrow collaborator contract the Consumer depends on,
// kept to a single SDK method group so it can be faked in tests.
type Queue interface {
	Receive(ctx context.Context, maxMessages, waitSeconds, visibilitySeconds int32) ([]Message, error)
	DeleteBatch(ctx context.Context, receiptHandles []string) error
}

// SQSQueue adapts *sqs.Client to the Queue contract.
type SQSQueue struct {
	client   *sqs.Client
	queueURL string
}

// SQSClientConfig mirrors this codebase's S3 client construction shape
// (region, optional static credentials, optional endpoint override).
type SQSClientConfig struct {
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
	QueueURL  string
}

// NewSQSQueue builds an SQSQueue from the given configuration.
func NewSQSQueue(ctx context.Context, cfg SQSClientConfig) (*SQSQueue, error) {
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("queue: load AWS config: %w", err)
	}

	client := sqs.NewFromConfig(awsCfg, func(o *sqs.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})

	return &SQSQueue{client: client, queueURL: cfg.QueueURL}, nil
}

// Receive long-polls for up to maxMessages messages.
func (q *SQSQueue) Receive(ctx context.Context, maxMessages, waitSeconds, visibilitySeconds int32) ([]Message, error) {
	out, err := q.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(q.queueURL),
		MaxNumberOfMessages: maxMessages,
		WaitTimeSeconds:     waitSeconds,
		VisibilityTimeout:   visibilitySeconds,
	})
	if err != nil {
		return nil, fmt.Errorf("sqs receive-message: %w", err)
	}

	msgs := make([]Message, len(out.Messages))
	for i, m := range out.Messages {
		msgs[i] = Message{
			Body:          aws.ToString(m.Body),
			ReceiptHandle: aws.ToString(m.ReceiptHandle),
			MessageID:     aws.ToString(m.MessageId),
		}
	}
	return msgs, nil
}

// DeleteBatch deletes up to 10 messages per spec.md §4.10's "delete in
// batches" requirement; SQS caps DeleteMessageBatch at 10 entries, so
// callers with more must chunk before calling this.
func (q *SQSQueue) DeleteBatch(ctx context.Context, receiptHandles []string) error {
	if len(receiptHandles) == 0 {
		return nil
	}
	entries := make([]types.DeleteMessageBatchRequestEntry, len(receiptHandles))
	for i, h := range receiptHandles {
		entries[i] = types.DeleteMessageBatchRequestEntry{
			Id:            aws.String(fmt.Sprintf("%d", i)),
			ReceiptHandle: aws.String(h),
		}
	}
	_, err := q.client.DeleteMessageBatch(ctx, &sqs.DeleteMessageBatchInput{
		QueueUrl: aws.String(q.queueURL),
		Entries:  entries,
	})
	if err != nil {
		return fmt.Errorf("sqs delete-message-batch: %w", err)
	}
	return nil
}

// Reachable is a lightweight connectivity check for the readiness probe:
// a receive of at most one message with no wait. A message it returns is
// not processed here.
func (q *SQSQueue) Reachable(ctx context.Context) error {
	_, err := q.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(q.queueURL),
		MaxNumberOfMessages: 1,
		WaitTimeSeconds:     0,
	})
	if err != nil {
		return fmt.Errorf("sqs reachability check: %w", err)
	}
	return nil
}
