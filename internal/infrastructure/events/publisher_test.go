package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wms-platform/scan-service/internal/domain"
	"github.com/wms-platform/scan-service/pkg/cloudevents"
	"github.com/wms-platform/scan-service/pkg/logging"
	"github.com/wms-platform/scan-service/pkg/metrics"
)

type capturedEvent struct {
	topic string
	event *cloudevents.WMSCloudEvent
}

type stubSender struct {
	published []capturedEvent
	err       error
}

func (s *stubSender) PublishEvent(ctx context.Context, topic string, event *cloudevents.WMSCloudEvent) error {
	if s.err != nil {
		return s.err
	}
	s.published = append(s.published, capturedEvent{topic: topic, event: event})
	return nil
}

func newTestPublisher(sender *stubSender) *Publisher {
	logger := logging.New(&logging.Config{Level: logging.LevelError, ServiceName: "scan-service-test"})
	return NewPublisher(
		sender,
		cloudevents.NewEventFactory(cloudevents.SourceScanService),
		logger,
		metrics.New(metrics.DefaultConfig("scan-service-test")),
	)
}

func TestPublishRoutesScanEvents(t *testing.T) {
	sender := &stubSender{}
	publisher := newTestPublisher(sender)

	err := publisher.Publish(context.Background(), &domain.SessionStartedEvent{
		SessionID: "SES-001",
		DeviceID:  "HT-042",
		StartedAt: time.Now(),
	})
	require.NoError(t, err)
	require.Len(t, sender.published, 1)

	published := sender.published[0]
	assert.Equal(t, "wms.scan.events", published.topic)
	assert.Equal(t, "wms.scan.session-started", published.event.Type)
	assert.Equal(t, "session/SES-001", published.event.Subject)
	assert.Equal(t, "SES-001", published.event.SessionID)
	assert.Equal(t, "HT-042", published.event.DeviceID)
}

func TestPublishRoutesInventoryEvents(t *testing.T) {
	sender := &stubSender{}
	publisher := newTestPublisher(sender)

	err := publisher.Publish(context.Background(), &domain.InventoryCountConfirmedEvent{
		SessionID:     "SES-001",
		LocationID:    55,
		TotalProducts: 4,
		ConfirmedAt:   time.Now(),
	})
	require.NoError(t, err)
	require.Len(t, sender.published, 1)
	assert.Equal(t, "wms.inventory.events", sender.published[0].topic)
	assert.Equal(t, "wms.inventory.count-confirmed", sender.published[0].event.Type)
}

func TestPublishAllStopsOnFirstFailure(t *testing.T) {
	sender := &stubSender{err: errors.New("broker unavailable")}
	publisher := newTestPublisher(sender)

	err := publisher.PublishAll(context.Background(), []domain.DomainEvent{
		&domain.SessionResetEvent{SessionID: "SES-001", ResetAt: time.Now()},
		&domain.ModeSelectedEvent{SessionID: "SES-001", Mode: "prepare", SelectedAt: time.Now()},
	})
	require.Error(t, err)
	assert.Empty(t, sender.published)
}
