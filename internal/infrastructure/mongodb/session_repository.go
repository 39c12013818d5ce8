package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/wms-platform/scan-service/internal/domain"
	"github.com/wms-platform/scan-service/pkg/metrics"
)

// SessionRepository persists scan sessions.
type SessionRepository struct {
	collection *mongo.Collection
	metrics    *metrics.Metrics
}

func NewSessionRepository(db *mongo.Database, m *metrics.Metrics) *SessionRepository {
	repo := &SessionRepository{
		collection: db.Collection("scan_sessions"),
		metrics:    m,
	}
	repo.ensureIndexes(context.Background())
	return repo
}

func (r *SessionRepository) ensureIndexes(ctx context.Context) {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "sessionId", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "deviceId", Value: 1}, {Key: "updatedAt", Value: -1}}},
	}
	r.collection.Indexes().CreateMany(ctx, indexes)
}

func (r *SessionRepository) observe(operation string, start time.Time, err error) {
	r.metrics.RecordMongoDBOperation("scan_sessions", operation, err == nil, time.Since(start))
}

// Save upserts a session keyed by sessionId.
func (r *SessionRepository) Save(ctx context.Context, session *domain.ScanSession) error {
	start := time.Now()
	session.UpdatedAt = time.Now().UTC()

	opts := options.Update().SetUpsert(true)
	filter := bson.M{"sessionId": session.SessionID}
	update := bson.M{"$set": session}

	_, err := r.collection.UpdateOne(ctx, filter, update, opts)
	r.observe("save", start, err)
	if err != nil {
		return fmt.Errorf("failed to save scan session: %w", err)
	}
	return nil
}

// FindBySessionID returns nil without error when the session does not exist.
func (r *SessionRepository) FindBySessionID(ctx context.Context, sessionID string) (*domain.ScanSession, error) {
	start := time.Now()

	var session domain.ScanSession
	err := r.collection.FindOne(ctx, bson.M{"sessionId": sessionID}).Decode(&session)
	if err == mongo.ErrNoDocuments {
		r.observe("find_by_session_id", start, nil)
		return nil, nil
	}
	r.observe("find_by_session_id", start, err)
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// FindActiveByDeviceID returns the most recently updated session for a device.
func (r *SessionRepository) FindActiveByDeviceID(ctx context.Context, deviceID string) (*domain.ScanSession, error) {
	start := time.Now()

	opts := options.FindOne().SetSort(bson.D{{Key: "updatedAt", Value: -1}})
	var session domain.ScanSession
	err := r.collection.FindOne(ctx, bson.M{"deviceId": deviceID}, opts).Decode(&session)
	if err == mongo.ErrNoDocuments {
		r.observe("find_active_by_device_id", start, nil)
		return nil, nil
	}
	r.observe("find_active_by_device_id", start, err)
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *SessionRepository) Delete(ctx context.Context, sessionID string) error {
	start := time.Now()
	_, err := r.collection.DeleteOne(ctx, bson.M{"sessionId": sessionID})
	r.observe("delete", start, err)
	return err
}

// Count returns the number of stored sessions, used for the active gauge.
func (r *SessionRepository) Count(ctx context.Context) (int64, error) {
	start := time.Now()
	count, err := r.collection.CountDocuments(ctx, bson.M{})
	r.observe("count", start, err)
	return count, err
}
