package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/smartoutreach/hub/internal/model"
)

// NewMemoryStores returns mutex-guarded in-memory repositories. Used for
// local development and tests; semantics mirror the DynamoDB implementations
// including conditional claims and additive metric updates.
func NewMemoryStores() *Stores {
	return &Stores{
		Customers:   &memCustomerStore{customers: make(map[string]model.Customer)},
		Campaigns:   &memCampaignStore{campaigns: make(map[string]model.Campaign)},
		Enrollments: &memEnrollmentStore{enrollments: make(map[string]model.Enrollment)},
		Chat:        &memChatStore{},
	}
}

type memCustomerStore struct {
	mu        sync.RWMutex
	customers map[string]model.Customer
}

func (s *memCustomerStore) Get(ctx context.Context, phoneNumber string) (*model.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.customers[phoneNumber]
	if !ok {
		return nil, model.ErrCustomerNotFound
	}
	return &c, nil
}

func (s *memCustomerStore) Put(ctx context.Context, customer *model.Customer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	if customer.CreatedAt.IsZero() {
		customer.CreatedAt = now
	}
	customer.UpdatedAt = now
	s.customers[customer.PhoneNumber] = *customer
	return nil
}

func (s *memCustomerStore) Update(ctx context.Context, phoneNumber string, upd CustomerUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.customers[phoneNumber]
	if !ok {
		return model.ErrCustomerNotFound
	}
	if upd.FirstName != nil {
		c.FirstName = *upd.FirstName
	}
	if upd.LastName != nil {
		c.LastName = *upd.LastName
	}
	if upd.Status != nil {
		c.Status = *upd.Status
	}
	if upd.MostRecentCampaignID != nil {
		c.MostRecentCampaignID = *upd.MostRecentCampaignID
	}
	c.UpdatedAt = time.Now().UTC()
	s.customers[phoneNumber] = c
	return nil
}

type memCampaignStore struct {
	mu        sync.RWMutex
	campaigns map[string]model.Campaign
}

func (s *memCampaignStore) Get(ctx context.Context, campaignID string) (*model.Campaign, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.campaigns[campaignID]
	if !ok {
		return nil, model.ErrCampaignNotFound
	}
	return &c, nil
}

func (s *memCampaignStore) Put(ctx context.Context, campaign *model.Campaign) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	if campaign.CampaignID == "" {
		campaign.CampaignID = uuid.NewString()
	}
	if campaign.CreatedAt.IsZero() {
		campaign.CreatedAt = now
	}
	campaign.UpdatedAt = now
	s.campaigns[campaign.CampaignID] = *campaign
	return nil
}

func (s *memCampaignStore) Update(ctx context.Context, campaignID string, upd CampaignUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.campaigns[campaignID]
	if !ok {
		return model.ErrCampaignNotFound
	}
	if upd.Status != nil {
		c.Status = *upd.Status
	}
	if upd.SentCount != nil {
		c.SentCount = *upd.SentCount
	}
	if upd.TotalContacts != nil {
		c.TotalContacts = *upd.TotalContacts
	}
	if upd.SentAt != nil {
		c.SentAt = upd.SentAt
	}
	c.UpdatedAt = time.Now().UTC()
	s.campaigns[campaignID] = c
	return nil
}

func (s *memCampaignStore) AddMetrics(ctx context.Context, campaignID string, delta model.MetricsDelta) error {
	if delta.IsZero() {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.campaigns[campaignID]
	if !ok {
		return model.ErrCampaignNotFound
	}
	c.ResponseCount += delta.ResponseCount
	c.PositiveHandoffCount += delta.PositiveHandoffCount
	c.NeutralHandoffCount += delta.NeutralHandoffCount
	c.NegativeHandoffCount += delta.NegativeHandoffCount
	c.PositiveResponseCount += delta.PositiveResponseCount
	c.NeutralResponseCount += delta.NeutralResponseCount
	c.NegativeResponseCount += delta.NegativeResponseCount
	c.FirstResponsePositiveCount += delta.FirstResponsePositiveCount
	c.FirstResponseNeutralCount += delta.FirstResponseNeutralCount
	c.FirstResponseNegativeCount += delta.FirstResponseNegativeCount
	c.UpdatedAt = time.Now().UTC()
	s.campaigns[campaignID] = c
	return nil
}

type memEnrollmentStore struct {
	mu          sync.RWMutex
	enrollments map[string]model.Enrollment
	order       []string
}

func memEnrollmentKey(campaignID, phoneNumber string) string {
	return campaignID + "#" + phoneNumber
}

func (s *memEnrollmentStore) Get(ctx context.Context, campaignID, phoneNumber string) (*model.Enrollment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.enrollments[memEnrollmentKey(campaignID, phoneNumber)]
	if !ok {
		return nil, model.ErrEnrollmentNotFound
	}
	return &e, nil
}

func (s *memEnrollmentStore) Put(ctx context.Context, enrollment *model.Enrollment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	if enrollment.CreatedAt.IsZero() {
		enrollment.CreatedAt = now
	}
	enrollment.UpdatedAt = now
	key := memEnrollmentKey(enrollment.CampaignID, enrollment.PhoneNumber)
	if _, exists := s.enrollments[key]; !exists {
		s.order = append(s.order, key)
	}
	s.enrollments[key] = *enrollment
	return nil
}

func (s *memEnrollmentStore) ListByCampaign(ctx context.Context, campaignID string) ([]model.Enrollment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Enrollment
	for _, key := range s.order {
		e := s.enrollments[key]
		if e.CampaignID == campaignID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *memEnrollmentStore) UpdateStatus(ctx context.Context, campaignID, phoneNumber string, status model.EnrollmentStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := memEnrollmentKey(campaignID, phoneNumber)
	e, ok := s.enrollments[key]
	if !ok {
		return model.ErrEnrollmentNotFound
	}
	e.Status = status
	e.UpdatedAt = time.Now().UTC()
	s.enrollments[key] = e
	return nil
}

func (s *memEnrollmentStore) ClaimPending(ctx context.Context, campaignID, phoneNumber string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := memEnrollmentKey(campaignID, phoneNumber)
	e, ok := s.enrollments[key]
	if !ok {
		return model.ErrEnrollmentNotFound
	}
	if e.Status != model.EnrollmentPending {
		return model.ErrConditionFailed
	}
	e.Status = model.EnrollmentProcessing
	e.UpdatedAt = time.Now().UTC()
	s.enrollments[key] = e
	return nil
}

type memChatStore struct {
	mu       sync.RWMutex
	messages []model.ChatMessage
}

func (s *memChatStore) Append(ctx context.Context, msg *model.ChatMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}
	s.messages = append(s.messages, *msg)
	return nil
}

func (s *memChatStore) ListByPhone(ctx context.Context, phoneNumber string) ([]model.ChatMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.ChatMessage
	for _, m := range s.messages {
		if m.PhoneNumber == phoneNumber {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}
