package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

// ErrLockHeld is returned when another holder owns the lease
var ErrLockHeld = errors.New("replay lock already held")

// ReplayLock elects a single replayer instance per queue using DynamoDB
// conditional writes. Sync-state transitions have one writer; when the
// sync service runs more than one instance, only the lease holder
// drains the queue.
type ReplayLock struct {
	client    *dynamodb.Client
	tableName string
	logger    *zap.Logger
}

// LeaseRecord represents a replay lease in DynamoDB
type LeaseRecord struct {
	PK         string `dynamodbav:"PK"` // LEASE#<queue>
	SK         string `dynamodbav:"SK"` // LEASE
	LeaseID    string `dynamodbav:"LeaseID"`
	Holder     string `dynamodbav:"Holder"`
	AcquiredAt string `dynamodbav:"AcquiredAt"`
	ExpiresAt  string `dynamodbav:"ExpiresAt"`
	TTL        int64  `dynamodbav:"TTL"`
}

// NewReplayLock creates a lock manager over the given table
func NewReplayLock(client *dynamodb.Client, tableName string, logger *zap.Logger) *ReplayLock {
	return &ReplayLock{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

// Acquire attempts to take the lease for a queue. An expired lease
// counts as free, so a crashed holder is displaced after at most
// leaseDuration.
func (rl *ReplayLock) Acquire(ctx context.Context, queue, holder string, leaseDuration time.Duration) (*Lease, error) {
	now := time.Now()
	expiresAt := now.Add(leaseDuration)
	leaseID := fmt.Sprintf("%s_%d", holder, now.UnixNano())

	item := map[string]types.AttributeValue{
		"PK":         &types.AttributeValueMemberS{Value: fmt.Sprintf("LEASE#%s", queue)},
		"SK":         &types.AttributeValueMemberS{Value: "LEASE"},
		"LeaseID":    &types.AttributeValueMemberS{Value: leaseID},
		"Holder":     &types.AttributeValueMemberS{Value: holder},
		"AcquiredAt": &types.AttributeValueMemberS{Value: now.Format(time.RFC3339)},
		"ExpiresAt":  &types.AttributeValueMemberS{Value: expiresAt.Format(time.RFC3339)},
		"TTL":        &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", expiresAt.Unix())},
	}

	input := &dynamodb.PutItemInput{
		TableName:           aws.String(rl.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(PK) OR ExpiresAt < :now"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":now": &types.AttributeValueMemberS{Value: now.Format(time.RFC3339)},
		},
	}

	_, err := rl.client.PutItem(ctx, input)
	if err != nil {
		var conditionalCheckFailed *types.ConditionalCheckFailedException
		if errors.As(err, &conditionalCheckFailed) {
			rl.logger.Debug("replay lease held elsewhere",
				zap.String("queue", queue),
				zap.String("holder", holder),
			)
			return nil, ErrLockHeld
		}
		return nil, fmt.Errorf("failed to acquire replay lease: %w", err)
	}

	rl.logger.Debug("replay lease acquired",
		zap.String("queue", queue),
		zap.String("lease_id", leaseID),
		zap.String("holder", holder),
		zap.Duration("duration", leaseDuration),
	)

	return &Lease{
		lock:      rl,
		queue:     queue,
		leaseID:   leaseID,
		holder:    holder,
		expiresAt: expiresAt,
	}, nil
}

// AcquireWithRetry retries Acquire until timeout, backing off between
// attempts
func (rl *ReplayLock) AcquireWithRetry(ctx context.Context, queue, holder string, leaseDuration, timeout time.Duration) (*Lease, error) {
	deadline := time.Now().Add(timeout)
	retryInterval := 100 * time.Millisecond

	for time.Now().Before(deadline) {
		lease, err := rl.Acquire(ctx, queue, holder, leaseDuration)
		if err == nil {
			return lease, nil
		}
		if !errors.Is(err, ErrLockHeld) {
			return nil, err
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(retryInterval):
			if retryInterval < time.Second {
				retryInterval = time.Duration(float64(retryInterval) * 1.5)
			}
		}
	}

	return nil, fmt.Errorf("timeout acquiring replay lease for queue %q", queue)
}

// release deletes the lease only if we still hold it
func (rl *ReplayLock) release(ctx context.Context, queue, leaseID, holder string) error {
	input := &dynamodb.DeleteItemInput{
		TableName: aws.String(rl.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: fmt.Sprintf("LEASE#%s", queue)},
			"SK": &types.AttributeValueMemberS{Value: "LEASE"},
		},
		ConditionExpression: aws.String("LeaseID = :leaseId AND Holder = :holder"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":leaseId": &types.AttributeValueMemberS{Value: leaseID},
			":holder":  &types.AttributeValueMemberS{Value: holder},
		},
	}

	_, err := rl.client.DeleteItem(ctx, input)
	if err != nil {
		var conditionalCheckFailed *types.ConditionalCheckFailedException
		if errors.As(err, &conditionalCheckFailed) {
			// Already expired and taken over, nothing left to release
			rl.logger.Warn("replay lease already displaced",
				zap.String("queue", queue),
				zap.String("lease_id", leaseID),
			)
			return nil
		}
		return fmt.Errorf("failed to release replay lease: %w", err)
	}

	rl.logger.Debug("replay lease released",
		zap.String("queue", queue),
		zap.String("lease_id", leaseID),
	)
	return nil
}

// extend pushes the lease expiry out, only while we still hold it
func (rl *ReplayLock) extend(ctx context.Context, queue, leaseID string, newExpiry time.Time) error {
	input := &dynamodb.UpdateItemInput{
		TableName: aws.String(rl.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: fmt.Sprintf("LEASE#%s", queue)},
			"SK": &types.AttributeValueMemberS{Value: "LEASE"},
		},
		UpdateExpression:    aws.String("SET ExpiresAt = :expiresAt, #ttl = :ttl"),
		ConditionExpression: aws.String("LeaseID = :leaseId"),
		ExpressionAttributeNames: map[string]string{
			"#ttl": "TTL",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":expiresAt": &types.AttributeValueMemberS{Value: newExpiry.Format(time.RFC3339)},
			":ttl":       &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", newExpiry.Unix())},
			":leaseId":   &types.AttributeValueMemberS{Value: leaseID},
		},
	}

	_, err := rl.client.UpdateItem(ctx, input)
	if err != nil {
		var conditionalCheckFailed *types.ConditionalCheckFailedException
		if errors.As(err, &conditionalCheckFailed) {
			return ErrLockHeld
		}
		return fmt.Errorf("failed to extend replay lease: %w", err)
	}
	return nil
}

// Lease is an acquired replay lease
type Lease struct {
	lock      *ReplayLock
	queue     string
	leaseID   string
	holder    string
	expiresAt time.Time
}

// Release gives up the lease
func (l *Lease) Release(ctx context.Context) error {
	return l.lock.release(ctx, l.queue, l.leaseID, l.holder)
}

// Extend pushes expiry out by additional time. Call before the lease
// expires when a batch runs long.
func (l *Lease) Extend(ctx context.Context, additional time.Duration) error {
	newExpiry := l.expiresAt.Add(additional)
	if err := l.lock.extend(ctx, l.queue, l.leaseID, newExpiry); err != nil {
		return err
	}
	l.expiresAt = newExpiry
	return nil
}

// IsExpired reports whether the lease has lapsed
func (l *Lease) IsExpired() bool {
	return time.Now().After(l.expiresAt)
}

// TimeUntilExpiry returns the remaining lease time
func (l *Lease) TimeUntilExpiry() time.Duration {
	if l.IsExpired() {
		return 0
	}
	return time.Until(l.expiresAt)
}
