package eventbridge

import (
	"context"
	"encoding/json"
	"fmt"

	"fieldui/application/ports"
	"fieldui/domain/events"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
	"go.uber.org/zap"
)

// eventSource identifies this service on the bus
const eventSource = "fieldui.sync"

// putEventsBatchLimit is the EventBridge PutEvents entry cap
const putEventsBatchLimit = 10

// Publisher sends domain events to an EventBridge bus. Downstream
// consumers (reporting, notifications, audit) subscribe by detail-type,
// which carries the domain event type verbatim.
type Publisher struct {
	client  *eventbridge.Client
	busName string
	logger  *zap.Logger
}

// NewPublisher creates an EventBridge-backed event publisher
func NewPublisher(client *eventbridge.Client, busName string, logger *zap.Logger) *Publisher {
	return &Publisher{
		client:  client,
		busName: busName,
		logger:  logger,
	}
}

var _ ports.EventPublisher = (*Publisher)(nil)

// Publish sends a single event
func (p *Publisher) Publish(ctx context.Context, event events.DomainEvent) error {
	return p.PublishBatch(ctx, []events.DomainEvent{event})
}

// PublishBatch sends multiple events, chunked to the PutEvents limit
func (p *Publisher) PublishBatch(ctx context.Context, domainEvents []events.DomainEvent) error {
	if len(domainEvents) == 0 {
		return nil
	}

	entries := make([]types.PutEventsRequestEntry, 0, len(domainEvents))
	for _, event := range domainEvents {
		entry, err := p.eventToEntry(event)
		if err != nil {
			return err
		}
		entries = append(entries, entry)
	}

	for i := 0; i < len(entries); i += putEventsBatchLimit {
		end := i + putEventsBatchLimit
		if end > len(entries) {
			end = len(entries)
		}

		result, err := p.client.PutEvents(ctx, &eventbridge.PutEventsInput{
			Entries: entries[i:end],
		})
		if err != nil {
			return fmt.Errorf("failed to publish events: %w", err)
		}

		if result.FailedEntryCount > 0 {
			for _, entry := range result.Entries {
				if entry.ErrorCode != nil {
					p.logger.Warn("event publish rejected",
						zap.String("error_code", aws.ToString(entry.ErrorCode)),
						zap.String("error_message", aws.ToString(entry.ErrorMessage)),
					)
				}
			}
			return fmt.Errorf("failed to publish %d events", result.FailedEntryCount)
		}
	}

	return nil
}

// eventToEntry converts a domain event to a PutEvents entry
func (p *Publisher) eventToEntry(event events.DomainEvent) (types.PutEventsRequestEntry, error) {
	detail, err := json.Marshal(event)
	if err != nil {
		return types.PutEventsRequestEntry{}, fmt.Errorf("failed to marshal event %s: %w", event.GetEventType(), err)
	}

	eventTime := event.GetTimestamp()
	return types.PutEventsRequestEntry{
		EventBusName: aws.String(p.busName),
		Source:       aws.String(eventSource),
		DetailType:   aws.String(event.GetEventType()),
		Detail:       aws.String(string(detail)),
		Time:         &eventTime,
	}, nil
}
