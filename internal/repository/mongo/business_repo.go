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

const businessCollectionName = "businesses"

// mongoBusinessRepository implements repository.BusinessRepository
type mongoBusinessRepository struct {
	collection *mongo.Collection
}

// NewMongoBusinessRepository creates a new Business repository backed by MongoDB.
func NewMongoBusinessRepository(db *mongo.Database) repository.BusinessRepository {
	return &mongoBusinessRepository{
		collection: db.Collection(businessCollectionName),
	}
}

// Create inserts a new business into the database.
func (r *mongoBusinessRepository) Create(ctx context.Context, business *domain.Business) (primitive.ObjectID, error) {
	if business.Name == "" || business.Slug == "" {
		return primitive.NilObjectID, errors.New("business name and slug are required")
	}

	business.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	business.CreatedAt = now
	business.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, business)
	if err != nil {
		// Slug carries a unique index.
		if mongo.IsDuplicateKeyError(err) {
			return primitive.NilObjectID, repository.ErrDuplicate
		}
		return primitive.NilObjectID, err
	}

	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted ID")
	}

	return insertedID, nil
}

// GetBySlug resolves a business by its public slug, excluding soft-deleted rows.
func (r *mongoBusinessRepository) GetBySlug(ctx context.Context, slug string) (*domain.Business, error) {
	var business domain.Business
	filter := notDeleted(bson.M{"slug": slug})

	err := r.collection.FindOne(ctx, filter).Decode(&business)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &business, nil
}

// GetByID retrieves a business by its ID, excluding soft-deleted rows.
func (r *mongoBusinessRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Business, error) {
	var business domain.Business
	filter := notDeleted(bson.M{"_id": id})

	err := r.collection.FindOne(ctx, filter).Decode(&business)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &business, nil
}

// EnsureBusinessIndexes creates necessary indexes for the businesses collection.
func EnsureBusinessIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "slug", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}

	_, _ = collection.Indexes().CreateMany(ctx, indexes)
}
