package events

import (
	"context"
	"fmt"
	"time"

	"github.com/wms-platform/scan-service/internal/domain"
	"github.com/wms-platform/scan-service/pkg/cloudevents"
	"github.com/wms-platform/scan-service/pkg/kafka"
	"github.com/wms-platform/scan-service/pkg/logging"
	"github.com/wms-platform/scan-service/pkg/metrics"
)

// eventSender abstracts the Kafka producer
type eventSender interface {
	PublishEvent(ctx context.Context, topic string, event *cloudevents.WMSCloudEvent) error
}

// Publisher converts domain events to CloudEvents and publishes them to
// the appropriate Kafka topic.
type Publisher struct {
	producer eventSender
	factory  *cloudevents.EventFactory
	logger   *logging.Logger
	metrics  *metrics.Metrics
}

func NewPublisher(producer eventSender, factory *cloudevents.EventFactory, logger *logging.Logger, m *metrics.Metrics) *Publisher {
	return &Publisher{
		producer: producer,
		factory:  factory,
		logger:   logger.WithComponent("event_publisher"),
		metrics:  m,
	}
}

// Publish sends a single domain event.
func (p *Publisher) Publish(ctx context.Context, event domain.DomainEvent) error {
	cloudEvent, topic := p.convert(ctx, event)
	if cloudEvent == nil {
		return fmt.Errorf("unknown domain event type %q", event.EventType())
	}

	start := time.Now()
	err := p.producer.PublishEvent(ctx, topic, cloudEvent)
	p.metrics.RecordKafkaPublish(topic, event.EventType(), err == nil, time.Since(start))

	if err != nil {
		p.logger.WithContext(ctx).WithError(err).Error("failed to publish event",
			"eventType", event.EventType(),
			"topic", topic,
		)
		return err
	}
	return nil
}

// PublishAll sends a batch of domain events, stopping at the first failure.
func (p *Publisher) PublishAll(ctx context.Context, events []domain.DomainEvent) error {
	for _, event := range events {
		if err := p.Publish(ctx, event); err != nil {
			return err
		}
	}
	return nil
}

func (p *Publisher) convert(ctx context.Context, event domain.DomainEvent) (*cloudevents.WMSCloudEvent, string) {
	switch e := event.(type) {
	case *domain.SessionStartedEvent:
		return p.factory.CreateSessionEvent(ctx, e.EventType(), "session/"+e.SessionID, e, e.SessionID, e.DeviceID), kafka.Topics.ScanEvents
	case *domain.ModeSelectedEvent:
		return p.factory.CreateSessionEvent(ctx, e.EventType(), "session/"+e.SessionID, e, e.SessionID, ""), kafka.Topics.ScanEvents
	case *domain.RecordScannedEvent:
		return p.factory.CreateSessionEvent(ctx, e.EventType(), "session/"+e.SessionID, e, e.SessionID, ""), kafka.Topics.ScanEvents
	case *domain.WorkflowConfirmedEvent:
		return p.factory.CreateSessionEvent(ctx, e.EventType(), "session/"+e.SessionID, e, e.SessionID, ""), kafka.Topics.ScanEvents
	case *domain.SessionResetEvent:
		return p.factory.CreateSessionEvent(ctx, e.EventType(), "session/"+e.SessionID, e, e.SessionID, ""), kafka.Topics.ScanEvents
	case *domain.InventoryCountConfirmedEvent:
		return p.factory.CreateSessionEvent(ctx, e.EventType(), "session/"+e.SessionID, e, e.SessionID, ""), kafka.Topics.InventoryEvents
	default:
		return nil, ""
	}
}
