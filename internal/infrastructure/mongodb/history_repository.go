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

// HistoryRepository persists inventory scan summaries.
type HistoryRepository struct {
	collection *mongo.Collection
	metrics    *metrics.Metrics
}

func NewHistoryRepository(db *mongo.Database, m *metrics.Metrics) *HistoryRepository {
	repo := &HistoryRepository{
		collection: db.Collection("scan_histories"),
		metrics:    m,
	}
	repo.ensureIndexes(context.Background())
	return repo
}

func (r *HistoryRepository) ensureIndexes(ctx context.Context) {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "historyId", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "locationId", Value: 1}, {Key: "createdAt", Value: -1}}},
	}
	r.collection.Indexes().CreateMany(ctx, indexes)
}

func (r *HistoryRepository) Save(ctx context.Context, history *domain.ScanHistory) error {
	start := time.Now()
	_, err := r.collection.InsertOne(ctx, history)
	r.metrics.RecordMongoDBOperation("scan_histories", "save", err == nil, time.Since(start))
	if err != nil {
		return fmt.Errorf("failed to save scan history: %w", err)
	}
	return nil
}

// FindByLocationID returns the most recent scans for a location, newest first.
func (r *HistoryRepository) FindByLocationID(ctx context.Context, locationID int64, limit int) ([]*domain.ScanHistory, error) {
	start := time.Now()

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := r.collection.Find(ctx, bson.M{"locationId": locationID}, opts)
	if err != nil {
		r.metrics.RecordMongoDBOperation("scan_histories", "find_by_location_id", false, time.Since(start))
		return nil, err
	}
	defer cursor.Close(ctx)

	var histories []*domain.ScanHistory
	err = cursor.All(ctx, &histories)
	r.metrics.RecordMongoDBOperation("scan_histories", "find_by_location_id", err == nil, time.Since(start))
	return histories, err
}
