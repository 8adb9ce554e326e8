// Package inbound records messages customers send back: it maintains the
// customer record and appends the inbound chat-history entry. Generating the
// automated reply is the upstream agent's job, not this pipeline's.
package inbound

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/smartoutreach/hub/internal/model"
	"github.com/smartoutreach/hub/internal/phone"
	"github.com/smartoutreach/hub/internal/pkg/logger"
	"github.com/smartoutreach/hub/internal/store"
)

// snsEnvelope is the SNS notification wrapper the SMS webhook delivers
// through the inbound queue.
type snsEnvelope struct {
	MessageID string `json:"MessageId"`
	Message   string `json:"Message"`
	Timestamp string `json:"Timestamp"`
}

// smsEvent is the provider's inbound SMS payload inside the SNS message.
type smsEvent struct {
	OriginationNumber string `json:"originationNumber"`
	DestinationNumber string `json:"destinationNumber"`
	MessageBody       string `json:"messageBody"`
	InboundMessageID  string `json:"inboundMessageId"`
}

// Processor handles inbound SMS events.
type Processor struct {
	stores *store.Stores
}

// NewProcessor creates an inbound processor.
func NewProcessor(stores *store.Stores) *Processor {
	return &Processor{stores: stores}
}

// ProcessRecord unwraps one SNS-wrapped inbound event and records it.
// Events without a usable origination number are dropped with a log entry;
// store failures are returned so the queue redelivers.
func (p *Processor) ProcessRecord(ctx context.Context, body []byte) error {
	var envelope snsEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return fmt.Errorf("parsing SNS envelope: %w", err)
	}

	var event smsEvent
	if err := json.Unmarshal([]byte(envelope.Message), &event); err != nil {
		return fmt.Errorf("parsing inbound SMS event: %w", err)
	}

	if event.OriginationNumber == "" {
		logger.Info("skipping inbound event without origination number", "sns_message_id", envelope.MessageID)
		return nil
	}

	normalized, err := phone.Normalize(event.OriginationNumber)
	if err != nil {
		logger.Error("invalid inbound phone number", "phone_number", phone.Mask(event.OriginationNumber))
		return nil
	}

	customer, err := p.ensureCustomer(ctx, normalized)
	if err != nil {
		return err
	}

	msg := &model.ChatMessage{
		PhoneNumber:       normalized,
		CampaignID:        customer.MostRecentCampaignID,
		Message:           event.MessageBody,
		Direction:         model.DirectionInbound,
		ExternalMessageID: event.InboundMessageID,
	}
	if err := p.stores.Chat.Append(ctx, msg); err != nil {
		return fmt.Errorf("recording inbound message: %w", err)
	}

	logger.Info("inbound message recorded",
		"phone_number", phone.Mask(normalized),
		"campaign_id", customer.MostRecentCampaignID,
		"message_id", msg.ID)
	return nil
}

// ensureCustomer loads the customer or creates a stub on first contact.
// A customer a human agent was handling flips back to needs_response when
// they write again.
func (p *Processor) ensureCustomer(ctx context.Context, phoneNumber string) (*model.Customer, error) {
	customer, err := p.stores.Customers.Get(ctx, phoneNumber)
	if err == nil {
		if customer.Status == model.CustomerAgentResponding {
			needsResponse := model.CustomerNeedsResponse
			if err := p.stores.Customers.Update(ctx, phoneNumber, store.CustomerUpdate{Status: &needsResponse}); err != nil {
				logger.Error("customer status update failed", "phone_number", phone.Mask(phoneNumber), "error", err.Error())
			} else {
				customer.Status = needsResponse
			}
		}
		return customer, nil
	}
	if !errors.Is(err, model.ErrCustomerNotFound) {
		// Transient read failures must not clobber an existing record
		// with a first-contact stub. Leave the event for redelivery.
		return nil, fmt.Errorf("loading customer: %w", err)
	}

	customer = &model.Customer{
		PhoneNumber: phoneNumber,
		FirstName:   "Unknown",
		LastName:    "Customer",
		Status:      model.CustomerNeedsResponse,
	}
	if err := p.stores.Customers.Put(ctx, customer); err != nil {
		return nil, fmt.Errorf("creating customer on first contact: %w", err)
	}
	logger.Info("created customer on first contact", "phone_number", phone.Mask(phoneNumber))
	return customer, nil
}
