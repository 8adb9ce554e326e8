package deliver

import (
	"context"
	"errors"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"github.com/smartoutreach/hub/internal/pkg/logger"
	"github.com/smartoutreach/hub/internal/queue"
)

// Worker long-polls the outbound SMS queue and hands each message to the
// Processor. Acknowledgement is per message: processed messages are deleted,
// failed ones are left for visibility-timeout redelivery (and dead-lettering
// after the queue's receive limit). There is never an all-or-nothing batch
// ack.
type Worker struct {
	sqsClient sqsAPI
	queueURL  string
	processor *Processor
	done      chan struct{}
}

// sqsAPI is the slice of the SQS client the worker uses.
type sqsAPI interface {
	ReceiveMessage(ctx context.Context, in *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, in *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

// NewWorker creates a queue consumer.
func NewWorker(sqsClient sqsAPI, queueURL string, processor *Processor) *Worker {
	return &Worker{
		sqsClient: sqsClient,
		queueURL:  queueURL,
		processor: processor,
		done:      make(chan struct{}),
	}
}

// Start begins polling in a background goroutine.
func (w *Worker) Start(ctx context.Context) {
	logger.Info("delivery worker started", "queue_url", w.queueURL)
	go w.poll(ctx)
}

// Stop ends the polling loop after the current receive returns.
func (w *Worker) Stop() {
	close(w.done)
}

func (w *Worker) poll(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		default:
		}

		out, err := w.sqsClient.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
			QueueUrl:              aws.String(w.queueURL),
			MaxNumberOfMessages:   10,
			WaitTimeSeconds:       20,
			MessageAttributeNames: []string{"messageType"},
		})
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Error("queue receive failed", "error", err.Error())
			time.Sleep(5 * time.Second)
			continue
		}

		for _, raw := range out.Messages {
			w.handleMessage(ctx, raw)
		}
	}
}

func (w *Worker) handleMessage(ctx context.Context, raw types.Message) {
	msg, err := queue.Decode([]byte(aws.ToString(raw.Body)), messageTypeAttr(raw))
	if err != nil {
		var unknown *queue.UnknownKindError
		if errors.As(err, &unknown) {
			// A kind this worker does not understand will not decode on
			// redelivery either. Drop it instead of cycling it to the DLQ.
			logger.Error("dropping queue message of unknown kind", "message_id", aws.ToString(raw.MessageId), "error", err.Error())
			w.deleteMessage(ctx, raw.ReceiptHandle)
			return
		}
		// Undecodable bodies are left for redelivery so they surface in
		// the dead-letter queue instead of vanishing.
		logger.Error("rejecting queue message", "message_id", aws.ToString(raw.MessageId), "error", err.Error())
		return
	}
	msg.ID = aws.ToString(raw.MessageId)

	outcome := w.processor.Process(ctx, msg)
	switch outcome.Status {
	case StatusOK:
		w.deleteMessage(ctx, raw.ReceiptHandle)
	case StatusDegraded:
		// The SMS went out; retrying would send it again. Ack and log.
		logger.Warn("message processed degraded", "message_id", msg.ID, "error", outcome.Err.Error())
		w.deleteMessage(ctx, raw.ReceiptHandle)
	case StatusFailed:
		logger.Error("message processing failed", "message_id", msg.ID, "kind", string(msg.Kind), "error", outcome.Err.Error())
	}
}

func (w *Worker) deleteMessage(ctx context.Context, handle *string) {
	_, err := w.sqsClient.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(w.queueURL),
		ReceiptHandle: handle,
	})
	if err != nil {
		logger.Error("queue delete failed", "error", err.Error())
	}
}

func messageTypeAttr(raw types.Message) string {
	if attr, ok := raw.MessageAttributes["messageType"]; ok {
		return aws.ToString(attr.StringValue)
	}
	return ""
}
