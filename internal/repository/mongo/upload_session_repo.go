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

const uploadSessionCollectionName = "upload_sessions"

// mongoUploadSessionRepository implements repository.UploadSessionRepository
type mongoUploadSessionRepository struct {
	collection *mongo.Collection
}

// NewMongoUploadSessionRepository creates a new UploadSession repository backed by MongoDB.
func NewMongoUploadSessionRepository(db *mongo.Database) repository.UploadSessionRepository {
	return &mongoUploadSessionRepository{
		collection: db.Collection(uploadSessionCollectionName),
	}
}

// AppendChunk records a received chunk, creating the session document on
// first use. Chunks live in a map keyed by index, so a re-sent index is a
// single-field $set: last write wins, and two racing retries of the same
// index can never leave duplicate entries the way a pull-then-push would.
func (r *mongoUploadSessionRepository) AppendChunk(ctx context.Context, businessID, reviewID primitive.ObjectID, chunk domain.UploadChunk) error {
	if chunk.Index < 0 || chunk.StorageKey == "" {
		return errors.New("chunk requires a non-negative index and a storage key")
	}

	filter := bson.M{"reviewId": reviewID, "businessId": businessID}
	now := time.Now().UTC()

	_, err := r.collection.UpdateOne(ctx, filter, bson.M{
		"$set": bson.M{
			"chunks." + domain.ChunkKey(chunk.Index): chunk,
			"updatedAt":                              now,
		},
		"$setOnInsert": bson.M{
			"businessId": businessID,
			"reviewId":   reviewID,
			"createdAt":  now,
		},
	}, options.Update().SetUpsert(true))
	return err
}

// GetByReviewID retrieves the chunk session for a review.
func (r *mongoUploadSessionRepository) GetByReviewID(ctx context.Context, reviewID, businessID primitive.ObjectID) (*domain.UploadSession, error) {
	var session domain.UploadSession
	filter := bson.M{"reviewId": reviewID, "businessId": businessID}

	err := r.collection.FindOne(ctx, filter).Decode(&session)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &session, nil
}

// Delete removes a consumed session after finalize.
func (r *mongoUploadSessionRepository) Delete(ctx context.Context, reviewID, businessID primitive.ObjectID) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"reviewId": reviewID, "businessId": businessID})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// EnsureUploadSessionIndexes creates necessary indexes for the upload_sessions collection.
func EnsureUploadSessionIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			// One session per review
			Keys:    bson.D{{Key: "reviewId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}

	_, _ = collection.Indexes().CreateMany(ctx, indexes)
}
