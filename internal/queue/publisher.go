package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"github.com/smartoutreach/hub/internal/pkg/logger"
)

// MaxBatchSize is the SQS SendMessageBatch entry limit.
const MaxBatchSize = 10

// Publisher enqueues outbound-SMS work. Implemented by SQSPublisher; tests
// substitute fakes.
type Publisher interface {
	SendCampaignBatch(ctx context.Context, messages []CampaignMessage) error
	SendManual(ctx context.Context, message ManualMessage) error
}

// SQSPublisher publishes to the outbound SMS queue.
type SQSPublisher struct {
	client   *sqs.Client
	queueURL string
}

// NewSQSPublisher creates a publisher bound to one queue URL.
func NewSQSPublisher(client *sqs.Client, queueURL string) *SQSPublisher {
	return &SQSPublisher{client: client, queueURL: queueURL}
}

// SendCampaignBatch enqueues up to MaxBatchSize campaign messages in one
// SendMessageBatch call. Any entry-level rejection fails the whole batch so
// the caller's per-batch accounting stays simple.
func (p *SQSPublisher) SendCampaignBatch(ctx context.Context, messages []CampaignMessage) error {
	if len(messages) == 0 {
		return nil
	}
	if len(messages) > MaxBatchSize {
		return fmt.Errorf("batch of %d exceeds queue limit of %d", len(messages), MaxBatchSize)
	}

	entries := make([]types.SendMessageBatchRequestEntry, 0, len(messages))
	for i, msg := range messages {
		body, err := json.Marshal(msg)
		if err != nil {
			return fmt.Errorf("marshaling campaign message: %w", err)
		}
		entries = append(entries, types.SendMessageBatchRequestEntry{
			Id:          aws.String(fmt.Sprintf("msg-%d", i)),
			MessageBody: aws.String(string(body)),
			MessageAttributes: map[string]types.MessageAttributeValue{
				"messageType": {
					DataType:    aws.String("String"),
					StringValue: aws.String(string(KindCampaign)),
				},
				"campaignId": {
					DataType:    aws.String("String"),
					StringValue: aws.String(msg.CampaignID),
				},
			},
		})
	}

	out, err := p.client.SendMessageBatch(ctx, &sqs.SendMessageBatchInput{
		QueueUrl: aws.String(p.queueURL),
		Entries:  entries,
	})
	if err != nil {
		return fmt.Errorf("sending campaign batch: %w", err)
	}
	if len(out.Failed) > 0 {
		return fmt.Errorf("queue rejected %d of %d batch entries", len(out.Failed), len(entries))
	}

	logger.Debug("enqueued campaign batch", "batch_size", len(entries))
	return nil
}

// SendManual enqueues a single manual message.
func (p *SQSPublisher) SendManual(ctx context.Context, message ManualMessage) error {
	message.MessageType = KindManual
	body, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("marshaling manual message: %w", err)
	}

	_, err = p.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(p.queueURL),
		MessageBody: aws.String(string(body)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"messageType": {
				DataType:    aws.String("String"),
				StringValue: aws.String(string(KindManual)),
			},
		},
	})
	if err != nil {
		return fmt.Errorf("sending manual message: %w", err)
	}
	return nil
}
