package store

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"

	"github.com/smartoutreach/hub/internal/model"
)

// DynamoCampaignStore implements CampaignStore on a DynamoDB table keyed by
// campaign_id.
type DynamoCampaignStore struct {
	client *dynamodb.Client
	table  string
}

func campaignKey(campaignID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"campaign_id": &types.AttributeValueMemberS{Value: campaignID},
	}
}

// Get fetches a campaign, returning model.ErrCampaignNotFound for misses.
func (s *DynamoCampaignStore) Get(ctx context.Context, campaignID string) (*model.Campaign, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.table),
		Key:       campaignKey(campaignID),
	})
	if err != nil {
		return nil, fmt.Errorf("getting campaign: %w", err)
	}
	if out.Item == nil {
		return nil, model.ErrCampaignNotFound
	}

	var campaign model.Campaign
	if err := attributevalue.UnmarshalMap(out.Item, &campaign); err != nil {
		return nil, fmt.Errorf("unmarshaling campaign: %w", err)
	}
	return &campaign, nil
}

// Put writes a full campaign record, generating an id when absent.
func (s *DynamoCampaignStore) Put(ctx context.Context, campaign *model.Campaign) error {
	now := time.Now().UTC()
	if campaign.CampaignID == "" {
		campaign.CampaignID = uuid.New().String()
	}
	if campaign.CreatedAt.IsZero() {
		campaign.CreatedAt = now
	}
	campaign.UpdatedAt = now

	item, err := attributevalue.MarshalMap(campaign)
	if err != nil {
		return fmt.Errorf("marshaling campaign: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("putting campaign: %w", err)
	}
	return nil
}

// Update applies a partial update to a campaign record.
func (s *DynamoCampaignStore) Update(ctx context.Context, campaignID string, upd CampaignUpdate) error {
	b := newUpdateBuilder()
	if upd.Status != nil {
		b.set("status", &types.AttributeValueMemberS{Value: string(*upd.Status)})
	}
	if upd.SentCount != nil {
		b.set("sent_count", &types.AttributeValueMemberN{Value: strconv.Itoa(*upd.SentCount)})
	}
	if upd.TotalContacts != nil {
		b.set("total_contacts", &types.AttributeValueMemberN{Value: strconv.Itoa(*upd.TotalContacts)})
	}
	if upd.SentAt != nil {
		b.set("sent_at", &types.AttributeValueMemberS{Value: upd.SentAt.UTC().Format(time.RFC3339)})
	}
	b.stampUpdatedAt()

	_, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(s.table),
		Key:                       campaignKey(campaignID),
		UpdateExpression:          aws.String(b.expression()),
		ExpressionAttributeNames:  b.names,
		ExpressionAttributeValues: b.values,
	})
	if err != nil {
		return fmt.Errorf("updating campaign: %w", err)
	}
	return nil
}

// AddMetrics folds one response event's counter increments into the campaign
// record with a single ADD expression. ADD is atomic increment-by, so
// interleaved responses cannot lose updates.
func (s *DynamoCampaignStore) AddMetrics(ctx context.Context, campaignID string, delta model.MetricsDelta) error {
	if delta.IsZero() {
		return nil
	}

	expr, values := buildMetricsAdd(delta)
	_, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(s.table),
		Key:                       campaignKey(campaignID),
		UpdateExpression:          aws.String(expr),
		ExpressionAttributeValues: values,
	})
	if err != nil {
		return fmt.Errorf("adding campaign metrics: %w", err)
	}
	return nil
}
