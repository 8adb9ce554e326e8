package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/smartoutreach/hub/internal/config"
)

// NewAWSConfig loads the shared AWS SDK config, honoring an optional named
// profile for local development.
func NewAWSConfig(ctx context.Context, region, profile string) (aws.Config, error) {
	if profile != "" {
		return awsconfig.LoadDefaultConfig(ctx,
			awsconfig.WithRegion(region),
			awsconfig.WithSharedConfigProfile(profile),
		)
	}
	return awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
}

// NewDynamoStores wires the four DynamoDB-backed repositories onto one client.
func NewDynamoStores(client *dynamodb.Client, tables config.TablesConfig) *Stores {
	return &Stores{
		Customers:   &DynamoCustomerStore{client: client, table: tables.Customers},
		Campaigns:   &DynamoCampaignStore{client: client, table: tables.Campaigns},
		Enrollments: &DynamoEnrollmentStore{client: client, table: tables.Enrollments},
		Chat:        &DynamoChatStore{client: client, table: tables.ChatHistory},
	}
}

// CheckConnection verifies each backing table is reachable. Used by the
// health endpoint.
func CheckConnection(ctx context.Context, client *dynamodb.Client, tables config.TablesConfig) error {
	for _, table := range []string{tables.Customers, tables.Campaigns, tables.Enrollments, tables.ChatHistory} {
		_, err := client.DescribeTable(ctx, &dynamodb.DescribeTableInput{
			TableName: aws.String(table),
		})
		if err != nil {
			return fmt.Errorf("describing table %s: %w", table, err)
		}
	}
	return nil
}

// isConditionFailed detects a failed ConditionExpression.
func isConditionFailed(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	return errors.As(err, &ccf)
}
