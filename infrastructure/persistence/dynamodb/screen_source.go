package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"fieldui/application/ports"
	pkgerrors "fieldui/pkg/errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// ScreenSource serves published screen definitions from DynamoDB. The
// sync service writes a new item per published version; versions are
// immutable once written, which is what makes the loader cache safe.
type ScreenSource struct {
	client    *dynamodb.Client
	tableName string
}

// ScreenRecord represents how screen versions are stored in DynamoDB
type ScreenRecord struct {
	PK          string `dynamodbav:"PK"` // SCREEN#<screen>
	SK          string `dynamodbav:"SK"` // VERSION#<zero-padded version>
	Screen      string `dynamodbav:"Screen"`
	Version     int    `dynamodbav:"Version"`
	Definition  []byte `dynamodbav:"Definition"`
	PublishedAt string `dynamodbav:"PublishedAt,omitempty"`
	PublishedBy string `dynamodbav:"PublishedBy,omitempty"`
}

// NewScreenSource creates a DynamoDB-backed screen source
func NewScreenSource(client *dynamodb.Client, tableName string) *ScreenSource {
	return &ScreenSource{
		client:    client,
		tableName: tableName,
	}
}

var _ ports.ScreenSource = (*ScreenSource)(nil)

// HighestVersion returns the highest published version <= maxVersion,
// 0 when the screen has no eligible version. Version sort keys are
// zero padded so the range query orders numerically.
func (s *ScreenSource) HighestVersion(ctx context.Context, screen string, maxVersion int) (int, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(s.tableName),
		KeyConditionExpression: aws.String("PK = :pk AND SK <= :sk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: fmt.Sprintf("SCREEN#%s", screen)},
			":sk": &types.AttributeValueMemberS{Value: versionSortKey(maxVersion)},
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(1),
	}

	result, err := s.client.Query(ctx, input)
	if err != nil {
		return 0, fmt.Errorf("failed to query screen versions: %w", err)
	}
	if len(result.Items) == 0 {
		return 0, nil
	}

	var record ScreenRecord
	if err := attributevalue.UnmarshalMap(result.Items[0], &record); err != nil {
		return 0, fmt.Errorf("failed to unmarshal screen record: %w", err)
	}
	return record.Version, nil
}

// Fetch reads the raw JSON for an exact screen version
func (s *ScreenSource) Fetch(ctx context.Context, screen string, version int) ([]byte, error) {
	input := &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: fmt.Sprintf("SCREEN#%s", screen)},
			"SK": &types.AttributeValueMemberS{Value: versionSortKey(version)},
		},
	}

	result, err := s.client.GetItem(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to get screen version: %w", err)
	}
	if result.Item == nil {
		return nil, pkgerrors.NewNotFoundError(fmt.Sprintf("screen %q version %d", screen, version))
	}

	var record ScreenRecord
	if err := attributevalue.UnmarshalMap(result.Item, &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal screen record: %w", err)
	}
	return record.Definition, nil
}

// List returns all screen names with at least one published version
func (s *ScreenSource) List(ctx context.Context) ([]string, error) {
	input := &dynamodb.ScanInput{
		TableName:            aws.String(s.tableName),
		FilterExpression:     aws.String("begins_with(PK, :prefix)"),
		ProjectionExpression: aws.String("PK"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":prefix": &types.AttributeValueMemberS{Value: "SCREEN#"},
		},
	}

	seen := make(map[string]struct{})
	for {
		result, err := s.client.Scan(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("failed to scan screens: %w", err)
		}

		for _, item := range result.Items {
			pk, ok := item["PK"].(*types.AttributeValueMemberS)
			if !ok {
				continue
			}
			seen[strings.TrimPrefix(pk.Value, "SCREEN#")] = struct{}{}
		}

		if result.LastEvaluatedKey == nil {
			break
		}
		input.ExclusiveStartKey = result.LastEvaluatedKey
	}

	screens := make([]string, 0, len(seen))
	for screen := range seen {
		screens = append(screens, screen)
	}
	sort.Strings(screens)
	return screens, nil
}

// versionSortKey zero-pads versions so lexicographic SK order matches
// numeric version order
func versionSortKey(version int) string {
	return "VERSION#" + fmt.Sprintf("%06d", version)
}

// Publish writes a new screen version. Publishing an existing version
// is rejected, versions are immutable.
func (s *ScreenSource) Publish(ctx context.Context, screen string, version int, definition []byte, publishedBy string) error {
	if version < 1 {
		return pkgerrors.NewValidationError("version must be >= 1")
	}

	record := ScreenRecord{
		PK:          fmt.Sprintf("SCREEN#%s", screen),
		SK:          versionSortKey(version),
		Screen:      screen,
		Version:     version,
		Definition:  definition,
		PublishedAt: time.Now().UTC().Format(time.RFC3339),
		PublishedBy: publishedBy,
	}

	item, err := attributevalue.MarshalMap(record)
	if err != nil {
		return fmt.Errorf("failed to marshal screen record: %w", err)
	}

	input := &dynamodb.PutItemInput{
		TableName:           aws.String(s.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(PK)"),
	}

	_, err = s.client.PutItem(ctx, input)
	if err != nil {
		var conditionalCheckFailed *types.ConditionalCheckFailedException
		if errors.As(err, &conditionalCheckFailed) {
			return pkgerrors.NewConflictError(
				fmt.Sprintf("screen %q version %d already published", screen, version))
		}
		return fmt.Errorf("failed to publish screen version: %w", err)
	}
	return nil
}
