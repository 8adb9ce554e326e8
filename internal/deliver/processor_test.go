package deliver

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartoutreach/hub/internal/gateway"
	"github.com/smartoutreach/hub/internal/metrics"
	"github.com/smartoutreach/hub/internal/model"
	"github.com/smartoutreach/hub/internal/queue"
	"github.com/smartoutreach/hub/internal/store"
)

// fakeSender records sends and returns a scripted result.
type fakeSender struct {
	mu     sync.Mutex
	sent   []string
	result gateway.Result
}

func (s *fakeSender) Send(ctx context.Context, phoneNumber, message string) gateway.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, message)
	return s.result
}

func okSender() *fakeSender {
	return &fakeSender{result: gateway.Result{Success: true, ExternalMessageID: "ext-1"}}
}

func failSender() *fakeSender {
	return &fakeSender{result: gateway.Result{Success: false, Error: "carrier rejected"}}
}

func newTestProcessor(stores *store.Stores, sender gateway.Sender) *Processor {
	agg := metrics.New(stores.Campaigns, stores.Enrollments, nil)
	return NewProcessor(stores, sender, agg)
}

func seedDelivery(t *testing.T, stores *store.Stores) (campaignID, phoneNumber string) {
	t.Helper()
	ctx := context.Background()

	campaign := &model.Campaign{Name: "spring sale", MessageTemplate: "hi", Status: model.CampaignSending}
	require.NoError(t, stores.Campaigns.Put(ctx, campaign))

	phoneNumber = "+12125551234"
	require.NoError(t, stores.Enrollments.Put(ctx, &model.Enrollment{
		CampaignID:  campaign.CampaignID,
		PhoneNumber: phoneNumber,
		Status:      model.EnrollmentProcessing,
	}))
	return campaign.CampaignID, phoneNumber
}

func TestProcessCampaign_Success(t *testing.T) {
	ctx := context.Background()
	stores := store.NewMemoryStores()
	campaignID, phoneNumber := seedDelivery(t, stores)
	sender := okSender()
	p := newTestProcessor(stores, sender)

	outcome := p.Process(ctx, &queue.Message{
		ID:   "sqs-1",
		Kind: queue.KindCampaign,
		Campaign: &queue.CampaignMessage{
			PhoneNumber: phoneNumber,
			Message:     "Hi Ada!",
			CampaignID:  campaignID,
		},
	})

	assert.Equal(t, StatusOK, outcome.Status)
	assert.False(t, outcome.Retryable())
	assert.Equal(t, []string{"Hi Ada!"}, sender.sent)

	enrollment, err := stores.Enrollments.Get(ctx, campaignID, phoneNumber)
	require.NoError(t, err)
	assert.Equal(t, model.EnrollmentSent, enrollment.Status)

	history, err := stores.Chat.ListByPhone(ctx, phoneNumber)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, model.DeliverySent, history[0].Status)
	assert.Equal(t, model.DirectionOutbound, history[0].Direction)
	assert.Equal(t, model.ResponseAutomated, history[0].ResponseType)
	assert.Equal(t, "ext-1", history[0].ExternalMessageID)
	require.NotNil(t, history[0].SentAt)
}

func TestProcessCampaign_SendFailure(t *testing.T) {
	ctx := context.Background()
	stores := store.NewMemoryStores()
	campaignID, phoneNumber := seedDelivery(t, stores)
	p := newTestProcessor(stores, failSender())

	outcome := p.Process(ctx, &queue.Message{
		Kind: queue.KindCampaign,
		Campaign: &queue.CampaignMessage{
			PhoneNumber: phoneNumber,
			Message:     "Hi!",
			CampaignID:  campaignID,
		},
	})

	assert.Equal(t, StatusFailed, outcome.Status)
	assert.True(t, outcome.Retryable())

	// The attempt is still recorded and the enrollment marked failed.
	enrollment, err := stores.Enrollments.Get(ctx, campaignID, phoneNumber)
	require.NoError(t, err)
	assert.Equal(t, model.EnrollmentFailed, enrollment.Status)

	history, err := stores.Chat.ListByPhone(ctx, phoneNumber)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, model.DeliveryFailed, history[0].Status)
	assert.Equal(t, "carrier rejected", history[0].ErrorMessage)
}

func TestProcessCampaign_InvalidInput(t *testing.T) {
	tests := []struct {
		name string
		msg  queue.CampaignMessage
	}{
		{"bad phone", queue.CampaignMessage{PhoneNumber: "garbage", Message: "hi"}},
		{"empty message", queue.CampaignMessage{PhoneNumber: "+12125551234", Message: "   "}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stores := store.NewMemoryStores()
			sender := okSender()
			p := newTestProcessor(stores, sender)

			msg := tt.msg
			outcome := p.Process(context.Background(), &queue.Message{Kind: queue.KindCampaign, Campaign: &msg})

			assert.Equal(t, StatusFailed, outcome.Status)
			assert.True(t, model.IsValidation(outcome.Err))
			assert.Empty(t, sender.sent)
		})
	}
}

func TestProcessManual(t *testing.T) {
	ctx := context.Background()
	stores := store.NewMemoryStores()
	sender := okSender()
	p := newTestProcessor(stores, sender)

	outcome := p.Process(ctx, &queue.Message{
		Kind: queue.KindManual,
		Manual: &queue.ManualMessage{
			PhoneNumber: "+12125551234",
			Message:     "Following up on your question",
		},
	})

	assert.Equal(t, StatusOK, outcome.Status)

	history, err := stores.Chat.ListByPhone(ctx, "+12125551234")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, model.ResponseManual, history[0].ResponseType)
	assert.Empty(t, history[0].CampaignID)
}

func TestProcessAgentResponse(t *testing.T) {
	ctx := context.Background()
	stores := store.NewMemoryStores()
	campaignID, phoneNumber := seedDelivery(t, stores)
	require.NoError(t, stores.Enrollments.UpdateStatus(ctx, campaignID, phoneNumber, model.EnrollmentSent))

	sender := okSender()
	p := newTestProcessor(stores, sender)

	outcome := p.Process(ctx, &queue.Message{
		ID:   "sqs-42",
		Kind: queue.KindAgentResponse,
		Agent: &queue.AgentResponseMessage{
			PhoneNumber: phoneNumber,
			AgentResponse: &queue.AgentResponse{
				ResponseText:  "Happy to help with pricing!",
				ShouldHandoff: true,
				HandoffReason: "pricing question",
				UserSentiment: model.SentimentPositive,
				CampaignID:    campaignID,
			},
		},
	})

	assert.Equal(t, StatusOK, outcome.Status)
	assert.Equal(t, []string{"Happy to help with pricing!"}, sender.sent)

	// The reply lands in chat history with its classification.
	history, err := stores.Chat.ListByPhone(ctx, phoneNumber)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, model.ResponseAIAgent, history[0].ResponseType)
	assert.True(t, history[0].ShouldHandoff)
	assert.Equal(t, model.SentimentPositive, history[0].UserSentiment)

	// The response was folded into campaign counters.
	campaign, err := stores.Campaigns.Get(ctx, campaignID)
	require.NoError(t, err)
	assert.Equal(t, 1, campaign.ResponseCount)
	assert.Equal(t, 1, campaign.PositiveResponseCount)
	assert.Equal(t, 1, campaign.FirstResponsePositiveCount)
	assert.Equal(t, 1, campaign.PositiveHandoffCount)

	enrollment, err := stores.Enrollments.Get(ctx, campaignID, phoneNumber)
	require.NoError(t, err)
	assert.Equal(t, model.EnrollmentProcessed, enrollment.Status)
}

func TestProcessAgentResponse_EmptyText(t *testing.T) {
	stores := store.NewMemoryStores()
	p := newTestProcessor(stores, okSender())

	outcome := p.Process(context.Background(), &queue.Message{
		Kind: queue.KindAgentResponse,
		Agent: &queue.AgentResponseMessage{
			PhoneNumber:   "+12125551234",
			AgentResponse: &queue.AgentResponse{ResponseText: "  "},
		},
	})

	assert.Equal(t, StatusFailed, outcome.Status)
	assert.True(t, model.IsValidation(outcome.Err))
}

func TestProcess_UnknownKind(t *testing.T) {
	stores := store.NewMemoryStores()
	p := newTestProcessor(stores, okSender())

	outcome := p.Process(context.Background(), &queue.Message{Kind: queue.Kind("fax")})
	assert.Equal(t, StatusFailed, outcome.Status)

	var unknownErr *queue.UnknownKindError
	assert.ErrorAs(t, outcome.Err, &unknownErr)
}
