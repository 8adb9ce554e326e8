// Package deliver consumes the outbound-SMS queue: it performs the gateway
// send, records every attempt in chat history, and advances per-contact
// delivery state. Failures are reported per message so the queue redelivers
// only what actually failed.
package deliver

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/smartoutreach/hub/internal/gateway"
	"github.com/smartoutreach/hub/internal/metrics"
	"github.com/smartoutreach/hub/internal/model"
	"github.com/smartoutreach/hub/internal/phone"
	"github.com/smartoutreach/hub/internal/pkg/logger"
	"github.com/smartoutreach/hub/internal/queue"
	"github.com/smartoutreach/hub/internal/store"
)

// Status classifies a processing outcome. Degraded means the send itself
// succeeded but a secondary update (enrollment status, metrics) failed;
// callers must not retry degraded messages, the SMS is already out.
type Status int

const (
	StatusOK Status = iota
	StatusDegraded
	StatusFailed
)

// Outcome is the per-message result reported back to the queue.
type Outcome struct {
	Status Status
	Err    error
}

// Retryable reports whether the queue should redeliver the message.
func (o Outcome) Retryable() bool {
	return o.Status == StatusFailed
}

func ok() Outcome                { return Outcome{Status: StatusOK} }
func degraded(err error) Outcome { return Outcome{Status: StatusDegraded, Err: err} }
func failed(err error) Outcome   { return Outcome{Status: StatusFailed, Err: err} }

// Processor handles one decoded queue message at a time. Multiple worker
// instances may run concurrently; the contact store is the only shared
// state and all writes are single-key.
type Processor struct {
	stores     *store.Stores
	sender     gateway.Sender
	aggregator *metrics.Aggregator
}

// NewProcessor wires the delivery dependencies.
func NewProcessor(stores *store.Stores, sender gateway.Sender, aggregator *metrics.Aggregator) *Processor {
	return &Processor{stores: stores, sender: sender, aggregator: aggregator}
}

// Process dispatches on the message kind.
func (p *Processor) Process(ctx context.Context, msg *queue.Message) Outcome {
	switch msg.Kind {
	case queue.KindCampaign:
		return p.processCampaign(ctx, msg.Campaign)
	case queue.KindManual:
		return p.processManual(ctx, msg.Manual)
	case queue.KindAgentResponse:
		return p.processAgentResponse(ctx, msg.Agent, msg.ID)
	default:
		return failed(&queue.UnknownKindError{Kind: string(msg.Kind)})
	}
}

func (p *Processor) processCampaign(ctx context.Context, msg *queue.CampaignMessage) Outcome {
	normalized, err := phone.Normalize(msg.PhoneNumber)
	if err != nil {
		return failed(err)
	}
	if strings.TrimSpace(msg.Message) == "" {
		return failed(model.NewValidationError("message", "empty message body"))
	}

	res := p.sender.Send(ctx, normalized, msg.Message)

	// The attempt is recorded whether or not the send worked; state must be
	// observable even on failure.
	p.appendAttempt(ctx, &model.ChatMessage{
		PhoneNumber:  normalized,
		CampaignID:   msg.CampaignID,
		Message:      msg.Message,
		Direction:    model.DirectionOutbound,
		ResponseType: model.ResponseAutomated,
	}, res)

	enrollmentStatus := model.EnrollmentSent
	if !res.Success {
		enrollmentStatus = model.EnrollmentFailed
	}
	statusErr := p.stores.Enrollments.UpdateStatus(ctx, msg.CampaignID, normalized, enrollmentStatus)
	if statusErr != nil {
		logger.Error("enrollment status update failed",
			"campaign_id", msg.CampaignID,
			"phone_number", phone.Mask(normalized),
			"status", string(enrollmentStatus),
			"error", statusErr.Error())
	}

	if !res.Success {
		// The original send failure wins; the status-update error above is
		// already logged and must not mask it.
		return failed(fmt.Errorf("sending campaign SMS: %s", res.Error))
	}
	if statusErr != nil {
		return degraded(fmt.Errorf("updating enrollment status: %w", statusErr))
	}
	return ok()
}

func (p *Processor) processManual(ctx context.Context, msg *queue.ManualMessage) Outcome {
	normalized, err := phone.Normalize(msg.PhoneNumber)
	if err != nil {
		return failed(err)
	}
	if strings.TrimSpace(msg.Message) == "" {
		return failed(model.NewValidationError("message", "empty message body"))
	}

	res := p.sender.Send(ctx, normalized, msg.Message)

	p.appendAttempt(ctx, &model.ChatMessage{
		PhoneNumber:  normalized,
		Message:      msg.Message,
		Direction:    model.DirectionOutbound,
		ResponseType: model.ResponseManual,
	}, res)

	if !res.Success {
		return failed(fmt.Errorf("sending manual SMS: %s", res.Error))
	}
	return ok()
}

func (p *Processor) processAgentResponse(ctx context.Context, msg *queue.AgentResponseMessage, eventID string) Outcome {
	response := msg.Response()
	if response == nil || strings.TrimSpace(response.ResponseText) == "" {
		return failed(model.NewValidationError("agent_response", "empty response text"))
	}
	normalized, err := phone.Normalize(msg.Phone())
	if err != nil {
		return failed(err)
	}

	res := p.sender.Send(ctx, normalized, response.ResponseText)

	chatMsg := &model.ChatMessage{
		PhoneNumber:   normalized,
		CampaignID:    response.CampaignID,
		Message:       response.ResponseText,
		Direction:     model.DirectionOutbound,
		ResponseType:  model.ResponseAIAgent,
		ShouldHandoff: response.ShouldHandoff,
		HandoffReason: response.HandoffReason,
		UserSentiment: response.UserSentiment,
	}
	p.appendAttempt(ctx, chatMsg, res)

	// Fold the response into campaign counters. An aggregation failure never
	// blocks the fact that the response was recorded above.
	aggErr := p.aggregator.ApplyResponse(ctx, metrics.ResponseEvent{
		CampaignID:    response.CampaignID,
		PhoneNumber:   normalized,
		Sentiment:     response.UserSentiment,
		Handoff:       response.ShouldHandoff,
		HandoffReason: response.HandoffReason,
		EventID:       eventID,
	})
	if aggErr != nil {
		logger.Error("response aggregation failed",
			"campaign_id", response.CampaignID,
			"phone_number", phone.Mask(normalized),
			"error", aggErr.Error())
	}

	if !res.Success {
		return failed(fmt.Errorf("sending agent response SMS: %s", res.Error))
	}
	if aggErr != nil {
		return degraded(fmt.Errorf("aggregating response: %w", aggErr))
	}
	return ok()
}

// appendAttempt writes the chat-history entry for one send attempt. Append
// failures are logged but never override the send outcome.
func (p *Processor) appendAttempt(ctx context.Context, msg *model.ChatMessage, res gateway.Result) {
	if res.Success {
		msg.Status = model.DeliverySent
		now := time.Now().UTC()
		msg.SentAt = &now
	} else {
		msg.Status = model.DeliveryFailed
		msg.ErrorMessage = res.Error
	}
	msg.ExternalMessageID = res.ExternalMessageID

	if err := p.stores.Chat.Append(ctx, msg); err != nil {
		logger.Error("chat history append failed",
			"phone_number", phone.Mask(msg.PhoneNumber),
			"error", err.Error())
	}
}
