package store

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/smartoutreach/hub/internal/model"
)

// DynamoEnrollmentStore implements EnrollmentStore on a DynamoDB table with
// composite key (campaign_id, phone_number).
type DynamoEnrollmentStore struct {
	client *dynamodb.Client
	table  string
}

func enrollmentKey(campaignID, phoneNumber string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"campaign_id":  &types.AttributeValueMemberS{Value: campaignID},
		"phone_number": &types.AttributeValueMemberS{Value: phoneNumber},
	}
}

// Get fetches one enrollment, returning model.ErrEnrollmentNotFound for
// misses.
func (s *DynamoEnrollmentStore) Get(ctx context.Context, campaignID, phoneNumber string) (*model.Enrollment, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.table),
		Key:       enrollmentKey(campaignID, phoneNumber),
	})
	if err != nil {
		return nil, fmt.Errorf("getting enrollment: %w", err)
	}
	if out.Item == nil {
		return nil, model.ErrEnrollmentNotFound
	}

	var enrollment model.Enrollment
	if err := attributevalue.UnmarshalMap(out.Item, &enrollment); err != nil {
		return nil, fmt.Errorf("unmarshaling enrollment: %w", err)
	}
	return &enrollment, nil
}

// Put writes a full enrollment record, stamping timestamps.
func (s *DynamoEnrollmentStore) Put(ctx context.Context, enrollment *model.Enrollment) error {
	now := time.Now().UTC()
	if enrollment.CreatedAt.IsZero() {
		enrollment.CreatedAt = now
	}
	enrollment.UpdatedAt = now

	item, err := attributevalue.MarshalMap(enrollment)
	if err != nil {
		return fmt.Errorf("marshaling enrollment: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("putting enrollment: %w", err)
	}
	return nil
}

// ListByCampaign returns every enrollment for a campaign, following
// pagination until the query is exhausted. Dispatch loads all enrollments
// up front; the per-chunk bound lives in the customer lookups, not here.
func (s *DynamoEnrollmentStore) ListByCampaign(ctx context.Context, campaignID string) ([]model.Enrollment, error) {
	var enrollments []model.Enrollment
	var startKey map[string]types.AttributeValue

	for {
		out, err := s.client.Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(s.table),
			KeyConditionExpression: aws.String("campaign_id = :cid"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":cid": &types.AttributeValueMemberS{Value: campaignID},
			},
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, fmt.Errorf("querying enrollments: %w", err)
		}

		for _, item := range out.Items {
			var enrollment model.Enrollment
			if err := attributevalue.UnmarshalMap(item, &enrollment); err != nil {
				return nil, fmt.Errorf("unmarshaling enrollment: %w", err)
			}
			enrollments = append(enrollments, enrollment)
		}

		if out.LastEvaluatedKey == nil {
			break
		}
		startKey = out.LastEvaluatedKey
	}

	return enrollments, nil
}

// UpdateStatus sets the enrollment status unconditionally.
func (s *DynamoEnrollmentStore) UpdateStatus(ctx context.Context, campaignID, phoneNumber string, status model.EnrollmentStatus) error {
	b := newUpdateBuilder()
	b.set("status", &types.AttributeValueMemberS{Value: string(status)})
	b.stampUpdatedAt()

	_, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(s.table),
		Key:                       enrollmentKey(campaignID, phoneNumber),
		UpdateExpression:          aws.String(b.expression()),
		ExpressionAttributeNames:  b.names,
		ExpressionAttributeValues: b.values,
	})
	if err != nil {
		return fmt.Errorf("updating enrollment status: %w", err)
	}
	return nil
}

// ClaimPending transitions pending -> processing only when the record is
// still pending. A re-run of dispatch therefore skips contacts a previous
// run already claimed instead of re-enqueueing them.
func (s *DynamoEnrollmentStore) ClaimPending(ctx context.Context, campaignID, phoneNumber string) error {
	_, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(s.table),
		Key:                 enrollmentKey(campaignID, phoneNumber),
		UpdateExpression:    aws.String("SET #status = :processing, updated_at = :now"),
		ConditionExpression: aws.String("#status = :pending"),
		ExpressionAttributeNames: map[string]string{
			"#status": "status",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":processing": &types.AttributeValueMemberS{Value: string(model.EnrollmentProcessing)},
			":pending":    &types.AttributeValueMemberS{Value: string(model.EnrollmentPending)},
			":now":        &types.AttributeValueMemberS{Value: time.Now().UTC().Format(time.RFC3339)},
		},
	})
	if err != nil {
		if isConditionFailed(err) {
			return model.ErrConditionFailed
		}
		return fmt.Errorf("claiming enrollment: %w", err)
	}
	return nil
}
