package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"fieldui/application/ports"
	"fieldui/domain/core/entities"
	"fieldui/domain/core/valueobjects"
	pkgerrors "fieldui/pkg/errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// syncedTTL controls automatic cleanup of synced actions via DynamoDB TTL
const syncedTTL = 30 * 24 * time.Hour

// ActionStore is the sync-service side pending action store. Devices
// queue locally in SQLite; once a batch reaches the service it lands
// here so replays across devices stay idempotent on action ID.
type ActionStore struct {
	client    *dynamodb.Client
	tableName string
	indexName string
}

// ActionRecord represents how pending actions are stored in DynamoDB
type ActionRecord struct {
	PK         string                 `dynamodbav:"PK"` // ACTION#<action_id>
	SK         string                 `dynamodbav:"SK"` // META
	ActionID   string                 `dynamodbav:"ActionID"`
	DeviceID   string                 `dynamodbav:"DeviceID"`
	UserID     string                 `dynamodbav:"UserID,omitempty"`
	ActionName string                 `dynamodbav:"ActionName"`
	Screen     string                 `dynamodbav:"Screen,omitempty"`
	EntityID   string                 `dynamodbav:"EntityID,omitempty"`
	Payload    map[string]interface{} `dynamodbav:"Payload,omitempty"`
	Status     string                 `dynamodbav:"Status"`
	Attempts   int                    `dynamodbav:"Attempts"`
	LastError  string                 `dynamodbav:"LastError,omitempty"`
	CreatedAt  string                 `dynamodbav:"CreatedAt"`
	UpdatedAt  string                 `dynamodbav:"UpdatedAt"`
	SyncedAt   string                 `dynamodbav:"SyncedAt,omitempty"`

	// GSI attributes for the status index
	GSI1PK string `dynamodbav:"GSI1PK"` // STATUS#<status>
	GSI1SK string `dynamodbav:"GSI1SK"` // ACTION#<created_at>#<action_id>

	// TTL for automatic cleanup of synced actions
	TTL int64 `dynamodbav:"TTL,omitempty"`
}

// NewActionStore creates a DynamoDB-backed pending action store.
// indexName is the GSI keyed by status, GSI1PK/GSI1SK.
func NewActionStore(client *dynamodb.Client, tableName, indexName string) *ActionStore {
	return &ActionStore{
		client:    client,
		tableName: tableName,
		indexName: indexName,
	}
}

var _ ports.PendingActionStore = (*ActionStore)(nil)

// Enqueue persists a newly captured action. Re-enqueueing the same
// action ID is a conflict, which is what makes device retries safe.
func (s *ActionStore) Enqueue(ctx context.Context, action *entities.PendingAction) error {
	record := s.actionToRecord(action)

	item, err := attributevalue.MarshalMap(record)
	if err != nil {
		return fmt.Errorf("failed to marshal action record: %w", err)
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
			return pkgerrors.NewConflictError("action already enqueued")
		}
		return fmt.Errorf("failed to enqueue action: %w", err)
	}
	return nil
}

// Get retrieves an action by ID
func (s *ActionStore) Get(ctx context.Context, id valueobjects.ActionID) (*entities.PendingAction, error) {
	input := &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: fmt.Sprintf("ACTION#%s", id.String())},
			"SK": &types.AttributeValueMemberS{Value: "META"},
		},
	}

	result, err := s.client.GetItem(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to get action: %w", err)
	}
	if result.Item == nil {
		return nil, pkgerrors.NewNotFoundError("action")
	}

	var record ActionRecord
	if err := attributevalue.UnmarshalMap(result.Item, &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal action record: %w", err)
	}
	return s.recordToAction(record)
}

// NextPending returns up to limit actions awaiting sync, oldest first.
// Pending and retryable actions live under separate status partitions,
// so both are queried and merged by creation time.
func (s *ActionStore) NextPending(ctx context.Context, limit int) ([]*entities.PendingAction, error) {
	statuses := []entities.ActionStatus{
		entities.StatusPending,
		entities.StatusFailedRetryable,
	}

	var actions []*entities.PendingAction
	for _, status := range statuses {
		batch, err := s.queryByStatus(ctx, status, limit)
		if err != nil {
			return nil, err
		}
		actions = append(actions, batch...)
	}

	sort.SliceStable(actions, func(i, j int) bool {
		return actions[i].CreatedAt().Before(actions[j].CreatedAt())
	})

	if len(actions) > limit {
		actions = actions[:limit]
	}
	return actions, nil
}

// Update persists a state transition
func (s *ActionStore) Update(ctx context.Context, action *entities.PendingAction) error {
	updateExpr := "SET #status = :status, Attempts = :attempts, LastError = :lastError, " +
		"UpdatedAt = :updatedAt, SyncedAt = :syncedAt, GSI1PK = :gsi1pk"
	values := map[string]types.AttributeValue{
		":status":    &types.AttributeValueMemberS{Value: string(action.Status())},
		":attempts":  &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", action.Attempts())},
		":lastError": &types.AttributeValueMemberS{Value: action.LastError()},
		":updatedAt": &types.AttributeValueMemberS{Value: formatRecordTime(action.UpdatedAt())},
		":syncedAt":  &types.AttributeValueMemberS{Value: formatRecordTime(action.SyncedAt())},
		":gsi1pk":    &types.AttributeValueMemberS{Value: fmt.Sprintf("STATUS#%s", action.Status())},
	}

	names := map[string]string{"#status": "Status"}

	// Synced actions pick up a TTL so DynamoDB prunes them
	if action.Status() == entities.StatusSynced {
		updateExpr += ", #ttl = :ttl"
		names["#ttl"] = "TTL"
		values[":ttl"] = &types.AttributeValueMemberN{
			Value: fmt.Sprintf("%d", time.Now().Add(syncedTTL).Unix()),
		}
	}

	input := &dynamodb.UpdateItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: fmt.Sprintf("ACTION#%s", action.ID().String())},
			"SK": &types.AttributeValueMemberS{Value: "META"},
		},
		UpdateExpression:          aws.String(updateExpr),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
		ConditionExpression:       aws.String("attribute_exists(PK)"),
	}

	_, err := s.client.UpdateItem(ctx, input)
	if err != nil {
		var conditionalCheckFailed *types.ConditionalCheckFailedException
		if errors.As(err, &conditionalCheckFailed) {
			return pkgerrors.NewNotFoundError("action")
		}
		return fmt.Errorf("failed to update action: %w", err)
	}
	return nil
}

// List returns actions filtered by status, oldest first
func (s *ActionStore) List(ctx context.Context, status entities.ActionStatus, limit int) ([]*entities.PendingAction, error) {
	if limit <= 0 {
		limit = 100
	}

	if status != "" {
		return s.queryByStatus(ctx, status, limit)
	}

	// No status filter means walking every status partition
	var actions []*entities.PendingAction
	for _, st := range allStatuses() {
		batch, err := s.queryByStatus(ctx, st, limit)
		if err != nil {
			return nil, err
		}
		actions = append(actions, batch...)
	}

	sort.SliceStable(actions, func(i, j int) bool {
		return actions[i].CreatedAt().Before(actions[j].CreatedAt())
	})
	if len(actions) > limit {
		actions = actions[:limit]
	}
	return actions, nil
}

// CountByStatus returns the number of actions per status
func (s *ActionStore) CountByStatus(ctx context.Context) (map[entities.ActionStatus]int, error) {
	counts := make(map[entities.ActionStatus]int)

	for _, status := range allStatuses() {
		expr, err := statusKeyExpression(status)
		if err != nil {
			return nil, err
		}

		input := &dynamodb.QueryInput{
			TableName:                 aws.String(s.tableName),
			IndexName:                 aws.String(s.indexName),
			KeyConditionExpression:    expr.KeyCondition(),
			ExpressionAttributeNames:  expr.Names(),
			ExpressionAttributeValues: expr.Values(),
			Select:                    types.SelectCount,
		}

		total := 0
		for {
			result, err := s.client.Query(ctx, input)
			if err != nil {
				return nil, fmt.Errorf("failed to count actions by status: %w", err)
			}
			total += int(result.Count)
			if result.LastEvaluatedKey == nil {
				break
			}
			input.ExclusiveStartKey = result.LastEvaluatedKey
		}
		if total > 0 {
			counts[status] = total
		}
	}
	return counts, nil
}

// DeleteSynced removes synced actions beyond the keep newest
func (s *ActionStore) DeleteSynced(ctx context.Context, keep int) (int, error) {
	synced, err := s.queryByStatus(ctx, entities.StatusSynced, 0)
	if err != nil {
		return 0, err
	}

	sort.SliceStable(synced, func(i, j int) bool {
		return synced[i].SyncedAt().Before(synced[j].SyncedAt())
	})

	if len(synced) <= keep {
		return 0, nil
	}
	stale := synced[:len(synced)-keep]

	writeRequests := make([]types.WriteRequest, 0, len(stale))
	for _, action := range stale {
		writeRequests = append(writeRequests, types.WriteRequest{
			DeleteRequest: &types.DeleteRequest{
				Key: map[string]types.AttributeValue{
					"PK": &types.AttributeValueMemberS{Value: fmt.Sprintf("ACTION#%s", action.ID().String())},
					"SK": &types.AttributeValueMemberS{Value: "META"},
				},
			},
		})
	}

	// Batch delete, DynamoDB limit is 25 items per batch
	removed := 0
	for i := 0; i < len(writeRequests); i += 25 {
		end := i + 25
		if end > len(writeRequests) {
			end = len(writeRequests)
		}

		batch := writeRequests[i:end]
		input := &dynamodb.BatchWriteItemInput{
			RequestItems: map[string][]types.WriteRequest{
				s.tableName: batch,
			},
		}

		result, err := s.client.BatchWriteItem(ctx, input)
		if err != nil {
			return removed, fmt.Errorf("failed to delete synced actions batch: %w", err)
		}
		removed += len(batch) - len(result.UnprocessedItems[s.tableName])
	}
	return removed, nil
}

// queryByStatus walks one status partition of the GSI in creation
// order, paginating until limit items are collected. limit <= 0 reads
// the whole partition.
func (s *ActionStore) queryByStatus(ctx context.Context, status entities.ActionStatus, limit int) ([]*entities.PendingAction, error) {
	expr, err := statusKeyExpression(status)
	if err != nil {
		return nil, err
	}

	input := &dynamodb.QueryInput{
		TableName:                 aws.String(s.tableName),
		IndexName:                 aws.String(s.indexName),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ScanIndexForward:          aws.Bool(true),
	}
	if limit > 0 {
		input.Limit = aws.Int32(int32(limit))
	}

	var actions []*entities.PendingAction
	for {
		result, err := s.client.Query(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("failed to query actions by status: %w", err)
		}

		for _, item := range result.Items {
			var record ActionRecord
			if err := attributevalue.UnmarshalMap(item, &record); err != nil {
				return nil, fmt.Errorf("failed to unmarshal action record: %w", err)
			}
			action, err := s.recordToAction(record)
			if err != nil {
				return nil, err
			}
			actions = append(actions, action)
			if limit > 0 && len(actions) >= limit {
				return actions, nil
			}
		}

		if result.LastEvaluatedKey == nil {
			return actions, nil
		}
		input.ExclusiveStartKey = result.LastEvaluatedKey
	}
}

// actionToRecord converts a pending action to a DynamoDB record
func (s *ActionStore) actionToRecord(action *entities.PendingAction) *ActionRecord {
	createdAt := formatRecordTime(action.CreatedAt())

	return &ActionRecord{
		PK:         fmt.Sprintf("ACTION#%s", action.ID().String()),
		SK:         "META",
		ActionID:   action.ID().String(),
		DeviceID:   action.DeviceID(),
		UserID:     action.UserID(),
		ActionName: action.ActionName(),
		Screen:     action.Screen(),
		EntityID:   action.EntityID(),
		Payload:    action.Payload(),
		Status:     string(action.Status()),
		Attempts:   action.Attempts(),
		LastError:  action.LastError(),
		CreatedAt:  createdAt,
		UpdatedAt:  formatRecordTime(action.UpdatedAt()),
		SyncedAt:   formatRecordTime(action.SyncedAt()),

		GSI1PK: fmt.Sprintf("STATUS#%s", action.Status()),
		GSI1SK: fmt.Sprintf("ACTION#%s#%s", createdAt, action.ID().String()),
	}
}

// recordToAction converts a DynamoDB record back to a pending action
func (s *ActionStore) recordToAction(record ActionRecord) (*entities.PendingAction, error) {
	id, err := valueobjects.NewActionIDFromString(record.ActionID)
	if err != nil {
		return nil, fmt.Errorf("corrupt action record %q: %w", record.ActionID, err)
	}

	return entities.ReconstructPendingAction(
		id,
		record.DeviceID,
		record.UserID,
		record.ActionName,
		record.Screen,
		record.EntityID,
		record.Payload,
		entities.ActionStatus(record.Status),
		record.Attempts,
		record.LastError,
		parseRecordTime(record.CreatedAt),
		parseRecordTime(record.UpdatedAt),
		parseRecordTime(record.SyncedAt),
	)
}

// statusKeyExpression builds the key condition for one status partition
// of the GSI
func statusKeyExpression(status entities.ActionStatus) (expression.Expression, error) {
	expr, err := expression.NewBuilder().
		WithKeyCondition(expression.Key("GSI1PK").Equal(expression.Value(fmt.Sprintf("STATUS#%s", status)))).
		Build()
	if err != nil {
		return expression.Expression{}, fmt.Errorf("failed to build status key condition: %w", err)
	}
	return expr, nil
}

func allStatuses() []entities.ActionStatus {
	return []entities.ActionStatus{
		entities.StatusPending,
		entities.StatusSyncing,
		entities.StatusSynced,
		entities.StatusFailedRetryable,
		entities.StatusFailedPermanent,
	}
}

func formatRecordTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseRecordTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t
	}
	return time.Time{}
}
