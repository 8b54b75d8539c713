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

const mediaAssetCollectionName = "media_assets"

// mongoMediaAssetRepository implements repository.MediaAssetRepository
type mongoMediaAssetRepository struct {
	collection *mongo.Collection
}

// NewMongoMediaAssetRepository creates a new MediaAsset repository backed by MongoDB.
func NewMongoMediaAssetRepository(db *mongo.Database) repository.MediaAssetRepository {
	return &mongoMediaAssetRepository{
		collection: db.Collection(mediaAssetCollectionName),
	}
}

// Create inserts new media asset metadata into the database.
func (r *mongoMediaAssetRepository) Create(ctx context.Context, asset *domain.MediaAsset) (primitive.ObjectID, error) {
	if asset.ReviewID == primitive.NilObjectID ||
		asset.BusinessID == primitive.NilObjectID ||
		asset.StorageKey == "" {
		return primitive.NilObjectID, errors.New("media asset requires reviewId, businessId, and storageKey")
	}

	asset.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	asset.CreatedAt = now
	asset.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, asset)
	if err != nil {
		return primitive.NilObjectID, err
	}

	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted ID")
	}

	return insertedID, nil
}

// GetByID retrieves asset metadata scoped to its owning business.
func (r *mongoMediaAssetRepository) GetByID(ctx context.Context, id, businessID primitive.ObjectID) (*domain.MediaAsset, error) {
	var asset domain.MediaAsset
	err := r.collection.FindOne(ctx, scoped(id, businessID)).Decode(&asset)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &asset, nil
}

// GetByReviewID retrieves the asset linked to a review. At most one asset
// exists per review once its upload is finalized.
func (r *mongoMediaAssetRepository) GetByReviewID(ctx context.Context, reviewID, businessID primitive.ObjectID) (*domain.MediaAsset, error) {
	var asset domain.MediaAsset
	filter := notDeleted(bson.M{"reviewId": reviewID, "businessId": businessID})

	err := r.collection.FindOne(ctx, filter).Decode(&asset)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &asset, nil
}

// ListByReviewIDs fetches the assets of many reviews in a single query,
// keyed by review ID. Used by the public feed, which would otherwise issue
// one lookup per approved review.
func (r *mongoMediaAssetRepository) ListByReviewIDs(ctx context.Context, businessID primitive.ObjectID, reviewIDs []primitive.ObjectID) (map[primitive.ObjectID]domain.MediaAsset, error) {
	assetsByReview := make(map[primitive.ObjectID]domain.MediaAsset, len(reviewIDs))
	if len(reviewIDs) == 0 {
		return assetsByReview, nil
	}

	filter := notDeleted(bson.M{
		"businessId": businessID,
		"reviewId":   bson.M{"$in": reviewIDs},
	})

	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var assets []domain.MediaAsset
	if err = cursor.All(ctx, &assets); err != nil {
		return nil, err
	}

	for _, asset := range assets {
		assetsByReview[asset.ReviewID] = asset
	}
	return assetsByReview, nil
}

// ApplyTranscodeResult writes back duration and metadata after a transcode
// job completes. This is the single mutation an asset receives in its life.
func (r *mongoMediaAssetRepository) ApplyTranscodeResult(ctx context.Context, id, businessID primitive.ObjectID, durationSec float64, metadata map[string]string) error {
	update := bson.M{
		"$set": bson.M{
			"durationSec": durationSec,
			"metadata":    metadata,
			"updatedAt":   time.Now().UTC(),
		},
	}

	result, err := r.collection.UpdateOne(ctx, scoped(id, businessID), update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// DeleteByReviewID removes all asset rows for a review and returns the
// removed documents so the caller can delete the stored objects too.
func (r *mongoMediaAssetRepository) DeleteByReviewID(ctx context.Context, reviewID, businessID primitive.ObjectID) ([]domain.MediaAsset, error) {
	filter := bson.M{"reviewId": reviewID, "businessId": businessID}

	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var assets []domain.MediaAsset
	if err = cursor.All(ctx, &assets); err != nil {
		return nil, err
	}

	if len(assets) == 0 {
		return nil, nil
	}

	if _, err = r.collection.DeleteMany(ctx, filter); err != nil {
		return nil, err
	}
	return assets, nil
}

// EnsureMediaAssetIndexes creates necessary indexes for the media_assets collection.
func EnsureMediaAssetIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "reviewId", Value: 1}},
			Options: options.Index(),
		},
		{
			Keys:    bson.D{{Key: "businessId", Value: 1}},
			Options: options.Index(),
		},
	}

	_, _ = collection.Indexes().CreateMany(ctx, indexes)
}
