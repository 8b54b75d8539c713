package mongo

import (
	"context"
	"errors"
	"time"
	"truetestify/backend/internal/domain"
	"truetestify/backend/internal/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const transcodeJobCollectionName = "transcode_jobs"

// mongoTranscodeJobRepository implements repository.TranscodeJobRepository
type mongoTranscodeJobRepository struct {
	collection *mongo.Collection
}

// NewMongoTranscodeJobRepository creates a new TranscodeJob repository backed by MongoDB.
func NewMongoTranscodeJobRepository(db *mongo.Database) repository.TranscodeJobRepository {
	return &mongoTranscodeJobRepository{
		collection: db.Collection(transcodeJobCollectionName),
	}
}

// Create inserts a new job record in the queued state.
func (r *mongoTranscodeJobRepository) Create(ctx context.Context, job *domain.TranscodeJob) (primitive.ObjectID, error) {
	if job.BusinessID == primitive.NilObjectID ||
		job.ReviewID == primitive.NilObjectID ||
		job.InputAssetID == primitive.NilObjectID {
		return primitive.NilObjectID, errors.New("transcode job requires businessId, reviewId, and inputAssetId")
	}

	job.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	job.CreatedAt = now
	job.UpdatedAt = now
	if job.Status == "" {
		job.Status = domain.TranscodeQueued
	}

	result, err := r.collection.InsertOne(ctx, job)
	if err != nil {
		return primitive.NilObjectID, err
	}

	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted ID")
	}

	return insertedID, nil
}

// GetByID retrieves a job record by its ID.
func (r *mongoTranscodeJobRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.TranscodeJob, error) {
	var job domain.TranscodeJob
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&job)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &job, nil
}

// SetStatus transitions a job. errMsg is stored only with the failed status;
// a transition to any other status clears it.
func (r *mongoTranscodeJobRepository) SetStatus(ctx context.Context, id primitive.ObjectID, status domain.TranscodeStatus, errMsg string) error {
	set := bson.M{
		"status":    status,
		"updatedAt": time.Now().UTC(),
	}
	update := bson.M{"$set": set}
	if status == domain.TranscodeFailed {
		set["error"] = errMsg
	} else {
		update["$unset"] = bson.M{"error": ""}
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// EnsureTranscodeJobIndexes creates necessary indexes for the transcode_jobs collection.
func EnsureTranscodeJobIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "businessId", Value: 1}, {Key: "status", Value: 1}},
			Options: options.Index(),
		},
		{
			Keys:    bson.D{{Key: "inputAssetId", Value: 1}},
			Options: options.Index(),
		},
	}

	_, _ = collection.Indexes().CreateMany(ctx, indexes)
}
