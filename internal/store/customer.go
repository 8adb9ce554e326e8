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

// DynamoCustomerStore implements CustomerStore on a DynamoDB table keyed by
// phone_number.
type DynamoCustomerStore struct {
	client *dynamodb.Client
	table  string
}

func customerKey(phoneNumber string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"phone_number": &types.AttributeValueMemberS{Value: phoneNumber},
	}
}

// Get fetches a customer, returning model.ErrCustomerNotFound for misses.
func (s *DynamoCustomerStore) Get(ctx context.Context, phoneNumber string) (*model.Customer, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.table),
		Key:       customerKey(phoneNumber),
	})
	if err != nil {
		return nil, fmt.Errorf("getting customer: %w", err)
	}
	if out.Item == nil {
		return nil, model.ErrCustomerNotFound
	}

	var customer model.Customer
	if err := attributevalue.UnmarshalMap(out.Item, &customer); err != nil {
		return nil, fmt.Errorf("unmarshaling customer: %w", err)
	}
	return &customer, nil
}

// Put writes a full customer record, stamping timestamps.
func (s *DynamoCustomerStore) Put(ctx context.Context, customer *model.Customer) error {
	now := time.Now().UTC()
	if customer.CreatedAt.IsZero() {
		customer.CreatedAt = now
	}
	customer.UpdatedAt = now

	item, err := attributevalue.MarshalMap(customer)
	if err != nil {
		return fmt.Errorf("marshaling customer: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("putting customer: %w", err)
	}
	return nil
}

// Update applies a partial update to a customer record.
func (s *DynamoCustomerStore) Update(ctx context.Context, phoneNumber string, upd CustomerUpdate) error {
	b := newUpdateBuilder()
	if upd.FirstName != nil {
		b.set("first_name", &types.AttributeValueMemberS{Value: *upd.FirstName})
	}
	if upd.LastName != nil {
		b.set("last_name", &types.AttributeValueMemberS{Value: *upd.LastName})
	}
	if upd.Status != nil {
		b.set("status", &types.AttributeValueMemberS{Value: string(*upd.Status)})
	}
	if upd.MostRecentCampaignID != nil {
		b.set("most_recent_campaign_id", &types.AttributeValueMemberS{Value: *upd.MostRecentCampaignID})
	}
	b.stampUpdatedAt()

	_, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(s.table),
		Key:                       customerKey(phoneNumber),
		UpdateExpression:          aws.String(b.expression()),
		ExpressionAttributeNames:  b.names,
		ExpressionAttributeValues: b.values,
	})
	if err != nil {
		return fmt.Errorf("updating customer: %w", err)
	}
	return nil
}
