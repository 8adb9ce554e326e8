package store

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"

	"github.com/smartoutreach/hub/internal/model"
)

// DynamoChatStore implements ChatStore on a DynamoDB table keyed by
// (phone_number, timestamp). Entries are append-only; there is no update or
// delete path.
type DynamoChatStore struct {
	client *dynamodb.Client
	table  string
}

// Append writes one chat-history entry, generating id and timestamp.
func (s *DynamoChatStore) Append(ctx context.Context, msg *model.ChatMessage) error {
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}

	item, err := attributevalue.MarshalMap(msg)
	if err != nil {
		return fmt.Errorf("marshaling chat message: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("appending chat message: %w", err)
	}
	return nil
}

// ListByPhone returns the chat history for one phone number in insertion
// order.
func (s *DynamoChatStore) ListByPhone(ctx context.Context, phoneNumber string) ([]model.ChatMessage, error) {
	var messages []model.ChatMessage
	var startKey map[string]types.AttributeValue

	for {
		out, err := s.client.Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(s.table),
			KeyConditionExpression: aws.String("phone_number = :phone"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":phone": &types.AttributeValueMemberS{Value: phoneNumber},
			},
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, fmt.Errorf("querying chat history: %w", err)
		}

		for _, item := range out.Items {
			var msg model.ChatMessage
			if err := attributevalue.UnmarshalMap(item, &msg); err != nil {
				return nil, fmt.Errorf("unmarshaling chat message: %w", err)
			}
			messages = append(messages, msg)
		}

		if out.LastEvaluatedKey == nil {
			break
		}
		startKey = out.LastEvaluatedKey
	}

	return messages, nil
}
