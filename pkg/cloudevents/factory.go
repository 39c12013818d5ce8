package cloudevents

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EventFactory creates CloudEvents for scan domain events
type EventFactory struct {
	source string
}

// NewEventFactory creates a new EventFactory for a specific source
func NewEventFactory(source string) *EventFactory {
	return &EventFactory{source: source}
}

// CreateEvent creates a new WMSCloudEvent with the given parameters
func (f *EventFactory) CreateEvent(
	ctx context.Context,
	eventType string,
	subject string,
	data interface{},
) *WMSCloudEvent {
	return &WMSCloudEvent{
		SpecVersion:     "1.0",
		Type:            eventType,
		Source:          f.source,
		Subject:         subject,
		ID:              uuid.New().String(),
		Time:            time.Now().UTC(),
		DataContentType: "application/json",
		Data:            data,
	}
}

// CreateSessionEvent creates an event carrying session correlation extensions
func (f *EventFactory) CreateSessionEvent(
	ctx context.Context,
	eventType string,
	subject string,
	data interface{},
	sessionID string,
	deviceID string,
) *WMSCloudEvent {
	event := f.CreateEvent(ctx, eventType, subject, data)
	event.SessionID = sessionID
	event.DeviceID = deviceID
	return event
}
