package domain

import "context"

// SessionRepository defines the interface for scan session persistence
type SessionRepository interface {
	Save(ctx context.Context, session *ScanSession) error
	FindBySessionID(ctx context.Context, sessionID string) (*ScanSession, error)
	FindActiveByDeviceID(ctx context.Context, deviceID string) (*ScanSession, error)
	Delete(ctx context.Context, sessionID string) error
	Count(ctx context.Context) (int64, error)
}

// HistoryRepository defines the interface for scan history persistence
type HistoryRepository interface {
	Save(ctx context.Context, history *ScanHistory) error
	FindByLocationID(ctx context.Context, locationID int64, limit int) ([]*ScanHistory, error)
}

// EventPublisher defines the interface for publishing domain events
type EventPublisher interface {
	Publish(ctx context.Context, event DomainEvent) error
	PublishAll(ctx context.Context, events []DomainEvent) error
}
