package model

import "time"

// CustomerStatus tracks who is currently handling a customer's conversation.
type CustomerStatus string

const (
	CustomerAutomated       CustomerStatus = "automated"
	CustomerNeedsResponse   CustomerStatus = "needs_response"
	CustomerAgentResponding CustomerStatus = "agent_responding"
)

// Customer is keyed by normalized E.164 phone number. Customers are never
// deleted by the pipeline.
type Customer struct {
	PhoneNumber          string         `dynamodbav:"phone_number" json:"phone_number"`
	FirstName            string         `dynamodbav:"first_name" json:"first_name"`
	LastName             string         `dynamodbav:"last_name" json:"last_name"`
	MostRecentCampaignID string         `dynamodbav:"most_recent_campaign_id,omitempty" json:"most_recent_campaign_id,omitempty"`
	Status               CustomerStatus `dynamodbav:"status" json:"status"`
	CreatedAt            time.Time      `dynamodbav:"created_at" json:"created_at"`
	UpdatedAt            time.Time      `dynamodbav:"updated_at" json:"updated_at"`
}

// CampaignStatus is the campaign-level lifecycle.
type CampaignStatus string

const (
	CampaignDraft               CampaignStatus = "draft"
	CampaignReady               CampaignStatus = "ready"
	CampaignSending             CampaignStatus = "sending"
	CampaignSendingPersonalized CampaignStatus = "sending_personalized"
	CampaignSent                CampaignStatus = "sent"
	CampaignCompleted           CampaignStatus = "completed"
)

// Campaign holds the template plus aggregate metric counters. Counters are
// monotonically non-decreasing; they are only ever written through additive
// MetricsDelta updates.
type Campaign struct {
	CampaignID      string         `dynamodbav:"campaign_id" json:"campaign_id"`
	Name            string         `dynamodbav:"name" json:"name"`
	MessageTemplate string         `dynamodbav:"message_template" json:"message_template"`
	CampaignDetails string         `dynamodbav:"campaign_details,omitempty" json:"campaign_details,omitempty"`
	TotalContacts   int            `dynamodbav:"total_contacts" json:"total_contacts"`
	SentCount       int            `dynamodbav:"sent_count" json:"sent_count"`
	Status          CampaignStatus `dynamodbav:"status" json:"status"`

	ResponseCount              int `dynamodbav:"response_count" json:"response_count"`
	PositiveHandoffCount       int `dynamodbav:"positive_handoff_count" json:"positive_handoff_count"`
	NeutralHandoffCount        int `dynamodbav:"neutral_handoff_count" json:"neutral_handoff_count"`
	NegativeHandoffCount       int `dynamodbav:"negative_handoff_count" json:"negative_handoff_count"`
	PositiveResponseCount      int `dynamodbav:"positive_response_count" json:"positive_response_count"`
	NeutralResponseCount       int `dynamodbav:"neutral_response_count" json:"neutral_response_count"`
	NegativeResponseCount      int `dynamodbav:"negative_response_count" json:"negative_response_count"`
	FirstResponsePositiveCount int `dynamodbav:"first_response_positive_count" json:"first_response_positive_count"`
	FirstResponseNeutralCount  int `dynamodbav:"first_response_neutral_count" json:"first_response_neutral_count"`
	FirstResponseNegativeCount int `dynamodbav:"first_response_negative_count" json:"first_response_negative_count"`

	SentAt    *time.Time `dynamodbav:"sent_at,omitempty" json:"sent_at,omitempty"`
	CreatedAt time.Time  `dynamodbav:"created_at" json:"created_at"`
	UpdatedAt time.Time  `dynamodbav:"updated_at" json:"updated_at"`
}

// EnrollmentStatus is the authoritative per-contact state machine:
//
//	pending -> processing -> sent -> processed
//	                      \-> failed
//
// Status only moves forward; "processed" is terminal for the first-response
// transition, though later handoff events still bump campaign counters.
type EnrollmentStatus string

const (
	EnrollmentPending    EnrollmentStatus = "pending"
	EnrollmentProcessing EnrollmentStatus = "processing"
	EnrollmentSent       EnrollmentStatus = "sent"
	EnrollmentFailed     EnrollmentStatus = "failed"
	EnrollmentProcessed  EnrollmentStatus = "processed"
)

// Enrollment is the (campaign, phone) join record tracking one contact's
// per-campaign delivery state.
type Enrollment struct {
	CampaignID  string           `dynamodbav:"campaign_id" json:"campaign_id"`
	PhoneNumber string           `dynamodbav:"phone_number" json:"phone_number"`
	Status      EnrollmentStatus `dynamodbav:"status" json:"status"`
	CreatedAt   time.Time        `dynamodbav:"created_at" json:"created_at"`
	UpdatedAt   time.Time        `dynamodbav:"updated_at" json:"updated_at"`
}

// Sentiment classifies an inbound response.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
	SentimentNegative Sentiment = "negative"
)

// Valid reports whether s is one of the three known sentiment values.
func (s Sentiment) Valid() bool {
	switch s {
	case SentimentPositive, SentimentNeutral, SentimentNegative:
		return true
	}
	return false
}

// MessageDirection distinguishes outbound sends from inbound replies.
type MessageDirection string

const (
	DirectionOutbound MessageDirection = "outbound"
	DirectionInbound  MessageDirection = "inbound"
)

// ResponseType records who authored an outbound message.
type ResponseType string

const (
	ResponseAutomated ResponseType = "automated"
	ResponseManual    ResponseType = "manual"
	ResponseAIAgent   ResponseType = "ai_agent"
)

// DeliveryStatus is the gateway-reported state of a chat message.
type DeliveryStatus string

const (
	DeliveryQueued    DeliveryStatus = "queued"
	DeliverySent      DeliveryStatus = "sent"
	DeliveryDelivered DeliveryStatus = "delivered"
	DeliveryFailed    DeliveryStatus = "failed"
)

// ChatMessage is an immutable append-only log entry, one per send/receive
// attempt. Written once, never mutated.
type ChatMessage struct {
	ID                string           `dynamodbav:"id" json:"id"`
	PhoneNumber       string           `dynamodbav:"phone_number" json:"phone_number"`
	CampaignID        string           `dynamodbav:"campaign_id,omitempty" json:"campaign_id,omitempty"`
	Message           string           `dynamodbav:"message" json:"message"`
	Direction         MessageDirection `dynamodbav:"direction" json:"direction"`
	ResponseType      ResponseType     `dynamodbav:"response_type,omitempty" json:"response_type,omitempty"`
	ShouldHandoff     bool             `dynamodbav:"should_handoff,omitempty" json:"should_handoff,omitempty"`
	HandoffReason     string           `dynamodbav:"handoff_reason,omitempty" json:"handoff_reason,omitempty"`
	UserSentiment     Sentiment        `dynamodbav:"user_sentiment,omitempty" json:"user_sentiment,omitempty"`
	Status            DeliveryStatus   `dynamodbav:"status,omitempty" json:"status,omitempty"`
	ExternalMessageID string           `dynamodbav:"external_message_id,omitempty" json:"external_message_id,omitempty"`
	ErrorMessage      string           `dynamodbav:"error_message,omitempty" json:"error_message,omitempty"`
	Timestamp         time.Time        `dynamodbav:"timestamp" json:"timestamp"`
	SentAt            *time.Time       `dynamodbav:"sent_at,omitempty" json:"sent_at,omitempty"`
}
