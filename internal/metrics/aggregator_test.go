package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartoutreach/hub/internal/model"
	"github.com/smartoutreach/hub/internal/store"
)

func seedEnrollment(t *testing.T, stores *store.Stores, status model.EnrollmentStatus) (campaignID, phoneNumber string) {
	t.Helper()
	ctx := context.Background()

	campaign := &model.Campaign{Name: "spring sale", MessageTemplate: "hi", Status: model.CampaignSent}
	require.NoError(t, stores.Campaigns.Put(ctx, campaign))

	phoneNumber = "+12125551234"
	require.NoError(t, stores.Enrollments.Put(ctx, &model.Enrollment{
		CampaignID:  campaign.CampaignID,
		PhoneNumber: phoneNumber,
		Status:      status,
	}))
	return campaign.CampaignID, phoneNumber
}

func TestApplyResponse_FirstResponse(t *testing.T) {
	ctx := context.Background()
	stores := store.NewMemoryStores()
	campaignID, phoneNumber := seedEnrollment(t, stores, model.EnrollmentSent)

	agg := New(stores.Campaigns, stores.Enrollments, nil)
	err := agg.ApplyResponse(ctx, ResponseEvent{
		CampaignID:  campaignID,
		PhoneNumber: phoneNumber,
		Sentiment:   model.SentimentPositive,
	})
	require.NoError(t, err)

	campaign, err := stores.Campaigns.Get(ctx, campaignID)
	require.NoError(t, err)
	assert.Equal(t, 1, campaign.ResponseCount)
	assert.Equal(t, 1, campaign.PositiveResponseCount)
	assert.Equal(t, 1, campaign.FirstResponsePositiveCount)
	assert.Equal(t, 0, campaign.PositiveHandoffCount)

	// First response flips the enrollment to processed.
	enrollment, err := stores.Enrollments.Get(ctx, campaignID, phoneNumber)
	require.NoError(t, err)
	assert.Equal(t, model.EnrollmentProcessed, enrollment.Status)
}

func TestApplyResponse_SecondResponseSkipsFirstCounters(t *testing.T) {
	ctx := context.Background()
	stores := store.NewMemoryStores()
	campaignID, phoneNumber := seedEnrollment(t, stores, model.EnrollmentProcessed)

	agg := New(stores.Campaigns, stores.Enrollments, nil)
	require.NoError(t, agg.ApplyResponse(ctx, ResponseEvent{
		CampaignID:  campaignID,
		PhoneNumber: phoneNumber,
		Sentiment:   model.SentimentNegative,
	}))

	campaign, err := stores.Campaigns.Get(ctx, campaignID)
	require.NoError(t, err)
	assert.Equal(t, 0, campaign.ResponseCount)
	assert.Equal(t, 1, campaign.NegativeResponseCount)
	assert.Equal(t, 0, campaign.FirstResponseNegativeCount)
}

func TestApplyResponse_HandoffWindow(t *testing.T) {
	tests := []struct {
		name           string
		status         model.EnrollmentStatus
		expectHandoff  int
		expectResponse int
	}{
		{"sent counts handoff", model.EnrollmentSent, 1, 1},
		{"processed counts handoff", model.EnrollmentProcessed, 1, 1},
		{"pending skips handoff", model.EnrollmentPending, 0, 1},
		{"processing skips handoff", model.EnrollmentProcessing, 0, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			stores := store.NewMemoryStores()
			campaignID, phoneNumber := seedEnrollment(t, stores, tt.status)

			agg := New(stores.Campaigns, stores.Enrollments, nil)
			require.NoError(t, agg.ApplyResponse(ctx, ResponseEvent{
				CampaignID:  campaignID,
				PhoneNumber: phoneNumber,
				Sentiment:   model.SentimentPositive,
				Handoff:     true,
			}))

			campaign, err := stores.Campaigns.Get(ctx, campaignID)
			require.NoError(t, err)
			assert.Equal(t, tt.expectHandoff, campaign.PositiveHandoffCount)
			assert.Equal(t, tt.expectResponse, campaign.PositiveResponseCount)
		})
	}
}

func TestApplyResponse_InvalidSentimentDefaultsNeutral(t *testing.T) {
	ctx := context.Background()
	stores := store.NewMemoryStores()
	campaignID, phoneNumber := seedEnrollment(t, stores, model.EnrollmentSent)

	agg := New(stores.Campaigns, stores.Enrollments, nil)
	require.NoError(t, agg.ApplyResponse(ctx, ResponseEvent{
		CampaignID:  campaignID,
		PhoneNumber: phoneNumber,
		Sentiment:   model.Sentiment("enthusiastic"),
	}))

	campaign, err := stores.Campaigns.Get(ctx, campaignID)
	require.NoError(t, err)
	assert.Equal(t, 1, campaign.NeutralResponseCount)
	assert.Equal(t, 1, campaign.FirstResponseNeutralCount)
}

func TestApplyResponse_MissingLinkageIsNoOp(t *testing.T) {
	ctx := context.Background()
	stores := store.NewMemoryStores()
	agg := New(stores.Campaigns, stores.Enrollments, nil)

	// No campaign id at all.
	require.NoError(t, agg.ApplyResponse(ctx, ResponseEvent{PhoneNumber: "+12125551234"}))

	// Campaign exists but the enrollment does not.
	campaign := &model.Campaign{Name: "x", MessageTemplate: "hi"}
	require.NoError(t, stores.Campaigns.Put(ctx, campaign))
	require.NoError(t, agg.ApplyResponse(ctx, ResponseEvent{
		CampaignID:  campaign.CampaignID,
		PhoneNumber: "+12125551234",
	}))

	got, err := stores.Campaigns.Get(ctx, campaign.CampaignID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.ResponseCount)
	assert.Equal(t, 0, got.NeutralResponseCount)
}

func TestApplyResponse_DedupSkipsRedelivery(t *testing.T) {
	ctx := context.Background()
	stores := store.NewMemoryStores()
	campaignID, phoneNumber := seedEnrollment(t, stores, model.EnrollmentSent)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	agg := New(stores.Campaigns, stores.Enrollments, NewRedisDeduper(client, time.Hour))

	evt := ResponseEvent{
		CampaignID:  campaignID,
		PhoneNumber: phoneNumber,
		Sentiment:   model.SentimentPositive,
		EventID:     "sqs-msg-1",
	}
	require.NoError(t, agg.ApplyResponse(ctx, evt))
	require.NoError(t, agg.ApplyResponse(ctx, evt))

	campaign, err := stores.Campaigns.Get(ctx, campaignID)
	require.NoError(t, err)
	assert.Equal(t, 1, campaign.ResponseCount)
	assert.Equal(t, 1, campaign.PositiveResponseCount)

	// A different event id still counts.
	evt.EventID = "sqs-msg-2"
	require.NoError(t, agg.ApplyResponse(ctx, evt))
	campaign, err = stores.Campaigns.Get(ctx, campaignID)
	require.NoError(t, err)
	assert.Equal(t, 2, campaign.PositiveResponseCount)
}

func TestRedisDeduper_FirstSeen(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	d := NewRedisDeduper(client, time.Minute)

	first, err := d.FirstSeen(context.Background(), "evt-1")
	require.NoError(t, err)
	assert.True(t, first)

	again, err := d.FirstSeen(context.Background(), "evt-1")
	require.NoError(t, err)
	assert.False(t, again)

	// After the TTL expires the id counts as new again.
	mr.FastForward(2 * time.Minute)
	expired, err := d.FirstSeen(context.Background(), "evt-1")
	require.NoError(t, err)
	assert.True(t, expired)
}
