package messaging

import (
	"context"

	"fieldui/application/ports"
	"fieldui/domain/events"

	"go.uber.org/zap"
)

// LogPublisher writes domain events to the log instead of a bus. Used
// in development and on devices, where events only matter for local
// diagnostics.
type LogPublisher struct {
	logger *zap.Logger
}

// NewLogPublisher creates a log-backed event publisher
func NewLogPublisher(logger *zap.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

var _ ports.EventPublisher = (*LogPublisher)(nil)

// Publish logs a single event
func (p *LogPublisher) Publish(ctx context.Context, event events.DomainEvent) error {
	p.logger.Debug("domain event",
		zap.String("event_type", event.GetEventType()),
		zap.String("aggregate_id", event.GetAggregateID()),
		zap.Time("timestamp", event.GetTimestamp()),
	)
	return nil
}

// PublishBatch logs multiple events
func (p *LogPublisher) PublishBatch(ctx context.Context, domainEvents []events.DomainEvent) error {
	for _, event := range domainEvents {
		if err := p.Publish(ctx, event); err != nil {
			return err
		}
	}
	return nil
}
