package inbound

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/smartoutreach/hub/internal/pkg/logger"
)

// Worker long-polls the inbound SMS queue. Records that fail are left for
// redelivery; successfully recorded (or deliberately dropped) ones are
// deleted.
type Worker struct {
	sqsClient *sqs.Client
	queueURL  string
	processor *Processor
	done      chan struct{}
}

// NewWorker creates an inbound queue consumer.
func NewWorker(sqsClient *sqs.Client, queueURL string, processor *Processor) *Worker {
	return &Worker{
		sqsClient: sqsClient,
		queueURL:  queueURL,
		processor: processor,
		done:      make(chan struct{}),
	}
}

// Start begins polling in a background goroutine.
func (w *Worker) Start(ctx context.Context) {
	logger.Info("inbound worker started", "queue_url", w.queueURL)
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
			QueueUrl:            aws.String(w.queueURL),
			MaxNumberOfMessages: 10,
			WaitTimeSeconds:     20,
		})
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Error("inbound queue receive failed", "error", err.Error())
			time.Sleep(5 * time.Second)
			continue
		}

		for _, raw := range out.Messages {
			if err := w.processor.ProcessRecord(ctx, []byte(aws.ToString(raw.Body))); err != nil {
				logger.Error("inbound record failed", "message_id", aws.ToString(raw.MessageId), "error", err.Error())
				continue
			}
			_, err := w.sqsClient.DeleteMessage(ctx, &sqs.DeleteMessageInput{
				QueueUrl:      aws.String(w.queueURL),
				ReceiptHandle: raw.ReceiptHandle,
			})
			if err != nil {
				logger.Error("inbound queue delete failed", "error", err.Error())
			}
		}
	}
}
