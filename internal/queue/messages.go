// Package queue defines the outbound-SMS queue contract: a tagged-union
// message envelope and an SQS publisher with batched enqueue. Delivery,
// visibility-timeout retry and dead-lettering after three attempts are queue
// policy, owned outside this process.
package queue

import (
	"encoding/json"
	"fmt"

	"github.com/smartoutreach/hub/internal/model"
)

// Kind discriminates queue message payloads.
type Kind string

const (
	KindCampaign      Kind = "campaign"
	KindManual        Kind = "manual"
	KindAgentResponse Kind = "agent_response"
)

// CampaignMessage is one rendered campaign send for one contact.
type CampaignMessage struct {
	PhoneNumber string `json:"phoneNumber"`
	Message     string `json:"message"`
	CampaignID  string `json:"campaignId"`
	CustomerID  string `json:"customerId"`
	MessageType Kind   `json:"messageType"`
}

// ManualMessage is a one-off operator-initiated send.
type ManualMessage struct {
	PhoneNumber string `json:"phoneNumber"`
	Message     string `json:"message"`
	MessageType Kind   `json:"messageType"`
	MessageID   string `json:"messageId,omitempty"`
}

// AgentResponse carries the upstream agent's reply plus its sentiment and
// handoff classification.
type AgentResponse struct {
	ResponseText  string          `json:"response_text"`
	ShouldHandoff bool            `json:"should_handoff"`
	HandoffReason string          `json:"handoff_reason,omitempty"`
	UserSentiment model.Sentiment `json:"user_sentiment,omitempty"`
	CampaignID    string          `json:"campaign_id,omitempty"`
}

// AgentResponseMessage is the legacy agent event shape. The producer spells
// the outer fields inconsistently across versions, so both spellings decode.
type AgentResponseMessage struct {
	PhoneNumber   string         `json:"phoneNumber"`
	AgentResponse *AgentResponse `json:"agentResponse"`
	Timestamp     string         `json:"timestamp,omitempty"`

	// legacy snake_case spellings
	PhoneNumberLegacy   string         `json:"phone_number,omitempty"`
	AgentResponseLegacy *AgentResponse `json:"agent_response,omitempty"`
}

// Phone returns the phone number regardless of which spelling was used.
func (m *AgentResponseMessage) Phone() string {
	if m.PhoneNumber != "" {
		return m.PhoneNumber
	}
	return m.PhoneNumberLegacy
}

// Response returns the agent response regardless of which spelling was used.
func (m *AgentResponseMessage) Response() *AgentResponse {
	if m.AgentResponse != nil {
		return m.AgentResponse
	}
	return m.AgentResponseLegacy
}

// Message is the decoded union. Exactly one payload field is non-nil,
// matching Kind. ID is the queue's message id; it is stable across
// redeliveries, which makes it the dedup key for response events.
type Message struct {
	ID       string
	Kind     Kind
	Campaign *CampaignMessage
	Manual   *ManualMessage
	Agent    *AgentResponseMessage
}

// UnknownKindError marks a message whose discriminator is missing or not one
// of the three known kinds. Such messages are rejected, not retried.
type UnknownKindError struct {
	Kind string
}

func (e *UnknownKindError) Error() string {
	if e.Kind == "" {
		return "queue message has no messageType discriminator"
	}
	return fmt.Sprintf("unknown queue message type %q", e.Kind)
}

// Decode parses a queue message body into the union. attrKind is the
// messageType message attribute when present; older producers only set the
// discriminator inside the body, so that is the fallback.
func Decode(body []byte, attrKind string) (*Message, error) {
	kind := Kind(attrKind)
	if kind == "" {
		var probe struct {
			MessageType Kind `json:"messageType"`
		}
		if err := json.Unmarshal(body, &probe); err != nil {
			return nil, fmt.Errorf("parsing queue message body: %w", err)
		}
		kind = probe.MessageType
	}

	switch kind {
	case KindCampaign:
		var msg CampaignMessage
		if err := json.Unmarshal(body, &msg); err != nil {
			return nil, fmt.Errorf("parsing campaign message: %w", err)
		}
		msg.MessageType = KindCampaign
		return &Message{Kind: KindCampaign, Campaign: &msg}, nil
	case KindManual:
		var msg ManualMessage
		if err := json.Unmarshal(body, &msg); err != nil {
			return nil, fmt.Errorf("parsing manual message: %w", err)
		}
		msg.MessageType = KindManual
		return &Message{Kind: KindManual, Manual: &msg}, nil
	case KindAgentResponse:
		var msg AgentResponseMessage
		if err := json.Unmarshal(body, &msg); err != nil {
			return nil, fmt.Errorf("parsing agent response message: %w", err)
		}
		if msg.Phone() == "" || msg.Response() == nil {
			return nil, &model.ValidationError{Field: "agent_response", Msg: "missing phone number or agent response"}
		}
		return &Message{Kind: KindAgentResponse, Agent: &msg}, nil
	default:
		return nil, &UnknownKindError{Kind: string(kind)}
	}
}
