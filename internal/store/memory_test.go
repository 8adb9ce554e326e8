package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartoutreach/hub/internal/model"
)

func TestMemoryEnrollmentClaimPending(t *testing.T) {
	ctx := context.Background()
	stores := NewMemoryStores()

	require.NoError(t, stores.Enrollments.Put(ctx, &model.Enrollment{
		CampaignID:  "camp-1",
		PhoneNumber: "+12125551234",
		Status:      model.EnrollmentPending,
	}))

	// First claim wins.
	require.NoError(t, stores.Enrollments.ClaimPending(ctx, "camp-1", "+12125551234"))

	e, err := stores.Enrollments.Get(ctx, "camp-1", "+12125551234")
	require.NoError(t, err)
	assert.Equal(t, model.EnrollmentProcessing, e.Status)

	// Second claim hits the condition.
	err = stores.Enrollments.ClaimPending(ctx, "camp-1", "+12125551234")
	assert.ErrorIs(t, err, model.ErrConditionFailed)

	// Claims on terminal states also fail the condition.
	require.NoError(t, stores.Enrollments.UpdateStatus(ctx, "camp-1", "+12125551234", model.EnrollmentSent))
	err = stores.Enrollments.ClaimPending(ctx, "camp-1", "+12125551234")
	assert.ErrorIs(t, err, model.ErrConditionFailed)

	// Missing enrollment is its own error.
	err = stores.Enrollments.ClaimPending(ctx, "camp-1", "+19995550000")
	assert.ErrorIs(t, err, model.ErrEnrollmentNotFound)
}

func TestMemoryCampaignAddMetrics(t *testing.T) {
	ctx := context.Background()
	stores := NewMemoryStores()

	campaign := &model.Campaign{Name: "spring sale", MessageTemplate: "hi"}
	require.NoError(t, stores.Campaigns.Put(ctx, campaign))
	require.NotEmpty(t, campaign.CampaignID)

	var delta model.MetricsDelta
	delta.AddResponse(model.SentimentPositive)
	delta.AddFirstResponse(model.SentimentPositive)
	delta.AddHandoff(model.SentimentPositive)
	require.NoError(t, stores.Campaigns.AddMetrics(ctx, campaign.CampaignID, delta))
	require.NoError(t, stores.Campaigns.AddMetrics(ctx, campaign.CampaignID, model.MetricsDelta{NeutralResponseCount: 1}))

	got, err := stores.Campaigns.Get(ctx, campaign.CampaignID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.ResponseCount)
	assert.Equal(t, 1, got.PositiveResponseCount)
	assert.Equal(t, 1, got.FirstResponsePositiveCount)
	assert.Equal(t, 1, got.PositiveHandoffCount)
	assert.Equal(t, 1, got.NeutralResponseCount)
	assert.Equal(t, 0, got.NegativeResponseCount)
}

func TestMemoryEnrollmentListPreservesOrder(t *testing.T) {
	ctx := context.Background()
	stores := NewMemoryStores()

	phones := []string{"+12125550001", "+12125550002", "+12125550003"}
	for _, p := range phones {
		require.NoError(t, stores.Enrollments.Put(ctx, &model.Enrollment{
			CampaignID:  "camp-1",
			PhoneNumber: p,
			Status:      model.EnrollmentPending,
		}))
	}
	require.NoError(t, stores.Enrollments.Put(ctx, &model.Enrollment{
		CampaignID:  "camp-other",
		PhoneNumber: "+13105550000",
		Status:      model.EnrollmentPending,
	}))

	list, err := stores.Enrollments.ListByCampaign(ctx, "camp-1")
	require.NoError(t, err)
	require.Len(t, list, 3)
	for i, e := range list {
		assert.Equal(t, phones[i], e.PhoneNumber)
	}
}
