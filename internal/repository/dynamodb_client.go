package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"llm-tutor/internal/domain"
)

const (
	pkPrefixRun    = "RUN#"
	skPrefixScript = "SCRIPT#"
	ttlDuration    = 30 * 24 * time.Hour // 30-day TTL
)

// dynamodbAPI is the minimal DynamoDB interface required by Client.
type dynamodbAPI interface {
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// Client writes script run audit records to a DynamoDB table.
type Client struct {
	api       dynamodbAPI
	tableName string
	now       func() time.Time
}

// New creates a new repository Client.
func New(api dynamodbAPI, tableName string) (*Client, error) {
	if api == nil {
		return nil, errors.New("repository: api must not be nil")
	}
	if strings.TrimSpace(tableName) == "" {
		return nil, errors.New("repository: table name must not be empty")
	}
	return &Client{api: api, tableName: tableName, now: time.Now}, nil
}

func runPK(runID string) string {
	return pkPrefixRun + runID
}

func scriptSK(script string) string {
	return skPrefixScript + script
}

// RecordRun stores one run. Run ids are never reused, so an existing item is
// treated as an error.
func (c *Client) RecordRun(ctx context.Context, rec domain.RunRecord) error {
	if strings.TrimSpace(rec.RunID) == "" {
		return errors.New("repository: RecordRun: run id is required")
	}
	_, err := c.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(c.tableName),
		Item:                runItem(rec, c.now().Add(ttlDuration).Unix()),
		ConditionExpression: aws.String("attribute_not_exists(PK)"),
	})
	if err != nil {
		return fmt.Errorf("repository: RecordRun: %w", err)
	}
	return nil
}

func runItem(rec domain.RunRecord, ttl int64) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK":            &types.AttributeValueMemberS{Value: runPK(rec.RunID)},
		"SK":            &types.AttributeValueMemberS{Value: scriptSK(rec.Script)},
		"runId":         &types.AttributeValueMemberS{Value: rec.RunID},
		"script":        &types.AttributeValueMemberS{Value: rec.Script},
		"exitCode":      &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", rec.ExitCode)},
		"outcome":       &types.AttributeValueMemberS{Value: string(rec.Outcome)},
		"durationMs":    &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", rec.Duration.Milliseconds())},
		"startedAt":     &types.AttributeValueMemberS{Value: rec.StartedAt.UTC().Format(time.RFC3339Nano)},
		"correlationId": &types.AttributeValueMemberS{Value: rec.CorrelationID},
		"ttl":           &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", ttl)},
	}
}
