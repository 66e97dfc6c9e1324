package historyRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"reelfeed/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoSeenHistoryRepo implements SeenHistoryRepository using MongoDB.
type MongoSeenHistoryRepo struct {
	coll *mongo.Collection
}

// NewMongoSeenHistoryRepo creates the repository on db.seen_videos.
func NewMongoSeenHistoryRepo(db *mongo.Database) SeenHistoryRepository {
	repo := &MongoSeenHistoryRepo{coll: db.Collection("seen_videos")}
	if err := repo.ensureIndexes(); err != nil {
		fmt.Printf("failed to create indexes: %v\n", err)
	}
	return repo
}

// ensureIndexes creates indexes for fields frequently used in queries.
func (r *MongoSeenHistoryRepo) ensureIndexes() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	indexModels := []mongo.IndexModel{
		{Keys: bson.D{{Key: "viewerId", Value: 1}, {Key: "videoId", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "viewerId", Value: 1}, {Key: "seenAt", Value: -1}}},
	}

	_, err := r.coll.Indexes().CreateMany(ctx, indexModels)
	if err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}

func (r *MongoSeenHistoryRepo) RecordSeen(ctx context.Context, viewerID string, videoIDs []string, at time.Time) error {
	if viewerID == "" {
		return errors.New("seen history requires a viewer id")
	}
	writes := make([]mongo.WriteModel, 0, len(videoIDs))
	for _, videoID := range videoIDs {
		if videoID == "" {
			continue
		}
		filter := bson.M{"viewerId": viewerID, "videoId": videoID}
		update := bson.M{"$set": models.SeenRecord{ViewerID: viewerID, VideoID: videoID, SeenAt: at}}
		writes = append(writes, mongo.NewUpdateOneModel().SetFilter(filter).SetUpdate(update).SetUpsert(true))
	}
	if len(writes) == 0 {
		return nil
	}

	_, err := r.coll.BulkWrite(ctx, writes, options.BulkWrite().SetOrdered(false))
	if err != nil {
		return fmt.Errorf("MongoSeenHistoryRepo: record seen for %s: %w", viewerID, err)
	}
	return nil
}

func (r *MongoSeenHistoryRepo) RecentlySeen(ctx context.Context, viewerID string, limit int) ([]string, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "seenAt", Value: -1}}).
		SetProjection(bson.M{"videoId": 1, "_id": 0})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cursor, err := r.coll.Find(ctx, bson.M{"viewerId": viewerID}, opts)
	if err != nil {
		return nil, fmt.Errorf("MongoSeenHistoryRepo: find seen for %s: %w", viewerID, err)
	}
	defer cursor.Close(ctx)

	var records []models.SeenRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("MongoSeenHistoryRepo: decode seen for %s: %w", viewerID, err)
	}

	ids := make([]string, 0, len(records))
	for _, rec := range records {
		ids = append(ids, rec.VideoID)
	}
	return ids, nil
}
