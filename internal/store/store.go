// Package store provides the contact store: DynamoDB-backed repositories for
// customers, campaigns, enrollments and chat history. The pipeline only ever
// talks to these interfaces; nothing holds a global client.
package store

import (
	"context"
	"time"

	"github.com/smartoutreach/hub/internal/model"
)

// CustomerUpdate describes a partial customer update. Nil fields are left
// untouched; updated_at is always stamped.
type CustomerUpdate struct {
	FirstName            *string
	LastName             *string
	Status               *model.CustomerStatus
	MostRecentCampaignID *string
}

// CustomerStore persists customers keyed by normalized phone number.
type CustomerStore interface {
	Get(ctx context.Context, phoneNumber string) (*model.Customer, error)
	Put(ctx context.Context, customer *model.Customer) error
	Update(ctx context.Context, phoneNumber string, upd CustomerUpdate) error
}

// CampaignUpdate describes a partial campaign update. Counter fields are
// deliberately absent: counters move only through AddMetrics.
type CampaignUpdate struct {
	Status        *model.CampaignStatus
	SentCount     *int
	TotalContacts *int
	SentAt        *time.Time
}

// CampaignStore persists campaigns keyed by campaign id.
type CampaignStore interface {
	Get(ctx context.Context, campaignID string) (*model.Campaign, error)
	Put(ctx context.Context, campaign *model.Campaign) error
	Update(ctx context.Context, campaignID string, upd CampaignUpdate) error

	// AddMetrics applies all counter increments of one response event as a
	// single additive write. Safe under concurrent responses.
	AddMetrics(ctx context.Context, campaignID string, delta model.MetricsDelta) error
}

// EnrollmentStore persists the (campaign, phone) join records.
type EnrollmentStore interface {
	Get(ctx context.Context, campaignID, phoneNumber string) (*model.Enrollment, error)
	Put(ctx context.Context, enrollment *model.Enrollment) error
	ListByCampaign(ctx context.Context, campaignID string) ([]model.Enrollment, error)
	UpdateStatus(ctx context.Context, campaignID, phoneNumber string, status model.EnrollmentStatus) error

	// ClaimPending transitions pending -> processing with a conditional
	// write, so a re-dispatched campaign cannot re-enqueue contacts that
	// another run already claimed. Returns model.ErrConditionFailed when the
	// enrollment is no longer pending.
	ClaimPending(ctx context.Context, campaignID, phoneNumber string) error
}

// ChatStore appends to the immutable chat-history log.
type ChatStore interface {
	Append(ctx context.Context, msg *model.ChatMessage) error
	ListByPhone(ctx context.Context, phoneNumber string) ([]model.ChatMessage, error)
}

// Stores bundles the four repositories for injection.
type Stores struct {
	Customers   CustomerStore
	Campaigns   CampaignStore
	Enrollments EnrollmentStore
	Chat        ChatStore
}
