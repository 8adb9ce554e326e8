// Package gateway wraps the outbound SMS provider (AWS End User Messaging).
// A send never returns an error for delivery failures; the result carries the
// outcome so callers can record it before deciding whether to retry.
package gateway

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/pinpointsmsvoicev2"
	"github.com/aws/aws-sdk-go-v2/service/pinpointsmsvoicev2/types"

	"github.com/smartoutreach/hub/internal/pkg/logger"
	"github.com/smartoutreach/hub/internal/phone"
)

// Result is the outcome of one send attempt.
type Result struct {
	Success           bool
	ExternalMessageID string
	Error             string
}

// Sender sends one SMS. Implemented by SMSGateway; tests substitute fakes.
type Sender interface {
	Send(ctx context.Context, phoneNumber, message string) Result
}

// SMSGateway sends via AWS End User Messaging (Pinpoint SMS Voice v2).
type SMSGateway struct {
	client              *pinpointsmsvoicev2.Client
	originationIdentity string
	messageType         types.MessageType
}

// NewSMSGateway creates a gateway sending from the given origination
// identity. messageType is "PROMOTIONAL" or "TRANSACTIONAL".
func NewSMSGateway(client *pinpointsmsvoicev2.Client, originationIdentity, messageType string) *SMSGateway {
	mt := types.MessageTypePromotional
	if messageType == string(types.MessageTypeTransactional) {
		mt = types.MessageTypeTransactional
	}
	return &SMSGateway{
		client:              client,
		originationIdentity: originationIdentity,
		messageType:         mt,
	}
}

// Send performs the outbound send and reports the outcome.
func (g *SMSGateway) Send(ctx context.Context, phoneNumber, message string) Result {
	out, err := g.client.SendTextMessage(ctx, &pinpointsmsvoicev2.SendTextMessageInput{
		DestinationPhoneNumber: aws.String(phoneNumber),
		OriginationIdentity:    aws.String(g.originationIdentity),
		MessageBody:            aws.String(message),
		MessageType:            g.messageType,
	})
	if err != nil {
		logger.Error("SMS send failed", "phone_number", phone.Mask(phoneNumber), "error", err.Error())
		return Result{Success: false, Error: err.Error()}
	}

	logger.Info("SMS sent", "phone_number", phone.Mask(phoneNumber), "external_message_id", aws.ToString(out.MessageId))
	return Result{Success: true, ExternalMessageID: aws.ToString(out.MessageId)}
}
