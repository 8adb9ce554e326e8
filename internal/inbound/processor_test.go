package inbound

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartoutreach/hub/internal/model"
	"github.com/smartoutreach/hub/internal/store"
)

func wrapSNS(t *testing.T, event smsEvent) []byte {
	t.Helper()
	inner, err := json.Marshal(event)
	require.NoError(t, err)
	body, err := json.Marshal(snsEnvelope{
		MessageID: "sns-1",
		Message:   string(inner),
		Timestamp: "2026-02-11T10:00:00Z",
	})
	require.NoError(t, err)
	return body
}

func TestProcessRecord_KnownCustomer(t *testing.T) {
	ctx := context.Background()
	stores := store.NewMemoryStores()
	require.NoError(t, stores.Customers.Put(ctx, &model.Customer{
		PhoneNumber:          "+12125551234",
		FirstName:            "Ada",
		LastName:             "Lovelace",
		MostRecentCampaignID: "camp-1",
		Status:               model.CustomerAutomated,
	}))

	p := NewProcessor(stores)
	err := p.ProcessRecord(ctx, wrapSNS(t, smsEvent{
		OriginationNumber: "+12125551234",
		DestinationNumber: "+18885550000",
		MessageBody:       "Yes, tell me more",
		InboundMessageID:  "in-1",
	}))
	require.NoError(t, err)

	history, err := stores.Chat.ListByPhone(ctx, "+12125551234")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, model.DirectionInbound, history[0].Direction)
	assert.Equal(t, "Yes, tell me more", history[0].Message)
	// The inbound message is attributed to the customer's latest campaign.
	assert.Equal(t, "camp-1", history[0].CampaignID)
	assert.Equal(t, "in-1", history[0].ExternalMessageID)
}

func TestProcessRecord_FirstContactCreatesCustomer(t *testing.T) {
	ctx := context.Background()
	stores := store.NewMemoryStores()
	p := NewProcessor(stores)

	err := p.ProcessRecord(ctx, wrapSNS(t, smsEvent{
		OriginationNumber: "2125551234",
		MessageBody:       "Who is this?",
	}))
	require.NoError(t, err)

	customer, err := stores.Customers.Get(ctx, "+12125551234")
	require.NoError(t, err)
	assert.Equal(t, "Unknown", customer.FirstName)
	assert.Equal(t, model.CustomerNeedsResponse, customer.Status)

	history, err := stores.Chat.ListByPhone(ctx, "+12125551234")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Empty(t, history[0].CampaignID)
}

// flakyCustomerStore fails the next Get with a transient error, then
// delegates to the wrapped store.
type flakyCustomerStore struct {
	store.CustomerStore
	failNext bool
}

func (s *flakyCustomerStore) Get(ctx context.Context, phoneNumber string) (*model.Customer, error) {
	if s.failNext {
		s.failNext = false
		return nil, errors.New("connection reset")
	}
	return s.CustomerStore.Get(ctx, phoneNumber)
}

func TestProcessRecord_TransientReadErrorKeepsCustomer(t *testing.T) {
	ctx := context.Background()
	stores := store.NewMemoryStores()
	require.NoError(t, stores.Customers.Put(ctx, &model.Customer{
		PhoneNumber:          "+12125551234",
		FirstName:            "Ana",
		LastName:             "Lee",
		MostRecentCampaignID: "camp-1",
		Status:               model.CustomerAgentResponding,
	}))
	flaky := &flakyCustomerStore{CustomerStore: stores.Customers, failNext: true}
	stores.Customers = flaky

	p := NewProcessor(stores)
	err := p.ProcessRecord(ctx, wrapSNS(t, smsEvent{
		OriginationNumber: "+12125551234",
		MessageBody:       "Any update?",
	}))
	require.Error(t, err)

	// The existing record survives a failed read so redelivery can retry.
	customer, err := flaky.CustomerStore.Get(ctx, "+12125551234")
	require.NoError(t, err)
	assert.Equal(t, "Ana", customer.FirstName)
	assert.Equal(t, "camp-1", customer.MostRecentCampaignID)
	assert.Equal(t, model.CustomerAgentResponding, customer.Status)

	history, err := stores.Chat.ListByPhone(ctx, "+12125551234")
	require.NoError(t, err)
	assert.Empty(t, history)

	// Redelivery after the transient error records the message normally.
	require.NoError(t, p.ProcessRecord(ctx, wrapSNS(t, smsEvent{
		OriginationNumber: "+12125551234",
		MessageBody:       "Any update?",
	})))
	history, err = stores.Chat.ListByPhone(ctx, "+12125551234")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "camp-1", history[0].CampaignID)
}

func TestProcessRecord_AgentRespondingFlipsToNeedsResponse(t *testing.T) {
	ctx := context.Background()
	stores := store.NewMemoryStores()
	require.NoError(t, stores.Customers.Put(ctx, &model.Customer{
		PhoneNumber: "+12125551234",
		Status:      model.CustomerAgentResponding,
	}))

	p := NewProcessor(stores)
	require.NoError(t, p.ProcessRecord(ctx, wrapSNS(t, smsEvent{
		OriginationNumber: "+12125551234",
		MessageBody:       "Any update?",
	})))

	customer, err := stores.Customers.Get(ctx, "+12125551234")
	require.NoError(t, err)
	assert.Equal(t, model.CustomerNeedsResponse, customer.Status)
}

func TestProcessRecord_DroppedEvents(t *testing.T) {
	tests := []struct {
		name  string
		event smsEvent
	}{
		{"no origination number", smsEvent{MessageBody: "hello"}},
		{"unparseable phone", smsEvent{OriginationNumber: "garbage", MessageBody: "hello"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stores := store.NewMemoryStores()
			p := NewProcessor(stores)

			// Dropped, not retried.
			require.NoError(t, p.ProcessRecord(context.Background(), wrapSNS(t, tt.event)))
		})
	}
}

func TestProcessRecord_MalformedEnvelope(t *testing.T) {
	stores := store.NewMemoryStores()
	p := NewProcessor(stores)

	assert.Error(t, p.ProcessRecord(context.Background(), []byte(`{not json`)))
	assert.Error(t, p.ProcessRecord(context.Background(), []byte(`{"MessageId":"x","Message":"{bad"}`)))
}
