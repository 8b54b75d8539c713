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

const reviewCollectionName = "reviews"

// mongoReviewRepository implements repository.ReviewRepository
type mongoReviewRepository struct {
	collection *mongo.Collection
}

// NewMongoReviewRepository creates a new Review repository backed by MongoDB.
func NewMongoReviewRepository(db *mongo.Database) repository.ReviewRepository {
	return &mongoReviewRepository{
		collection: db.Collection(reviewCollectionName),
	}
}

// Create inserts a new review. The caller is expected to have validated
// consent and type; the repository only guards structural invariants.
func (r *mongoReviewRepository) Create(ctx context.Context, review *domain.Review) (primitive.ObjectID, error) {
	if review.BusinessID == primitive.NilObjectID {
		return primitive.NilObjectID, errors.New("review requires a business ID")
	}
	if !review.Type.IsValid() {
		return primitive.NilObjectID, errors.New("review type must be video, audio, or text")
	}
	if !review.ConsentChecked {
		// Belt and braces: the service rejects this earlier, but a review
		// without consent must never reach the collection.
		return primitive.NilObjectID, errors.New("review requires consent")
	}

	review.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	if review.SubmittedAt.IsZero() {
		review.SubmittedAt = now
	}
	review.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, review)
	if err != nil {
		return primitive.NilObjectID, err
	}

	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted ID")
	}

	return insertedID, nil
}

// GetByID retrieves a review scoped to its owning business.
func (r *mongoReviewRepository) GetByID(ctx context.Context, id, businessID primitive.ObjectID) (*domain.Review, error) {
	var review domain.Review
	err := r.collection.FindOne(ctx, scoped(id, businessID)).Decode(&review)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &review, nil
}

// ListByBusiness retrieves all reviews for a business, newest first,
// optionally filtered by status.
func (r *mongoReviewRepository) ListByBusiness(ctx context.Context, businessID primitive.ObjectID, status *domain.ReviewStatus) ([]domain.Review, error) {
	filter := notDeleted(bson.M{"businessId": businessID})
	if status != nil {
		filter["status"] = *status
	}

	findOptions := options.Find().SetSort(bson.D{{Key: "submittedAt", Value: -1}})

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var reviews []domain.Review
	if err = cursor.All(ctx, &reviews); err != nil {
		return nil, err
	}
	if err = cursor.Err(); err != nil {
		return nil, err
	}

	return reviews, nil
}

// UpdateFields applies an operator edit. Only content fields are touched;
// type, status and consent never change through this path.
func (r *mongoReviewRepository) UpdateFields(ctx context.Context, id, businessID primitive.ObjectID, patch repository.ReviewPatch) (*domain.Review, error) {
	set := bson.M{"updatedAt": time.Now().UTC()}
	if patch.Title != nil {
		set["title"] = *patch.Title
	}
	if patch.ReviewerName != nil {
		set["reviewerName"] = *patch.ReviewerName
	}
	if patch.ReviewerContact != nil {
		set["reviewerContact"] = patch.ReviewerContact
	}
	if patch.BodyText != nil {
		set["bodyText"] = *patch.BodyText
	}
	if patch.Rating != nil {
		set["rating"] = *patch.Rating
	}

	return r.findOneAndSet(ctx, scoped(id, businessID), set)
}

// SetStatus applies a moderation transition to the primary status.
func (r *mongoReviewRepository) SetStatus(ctx context.Context, id, businessID primitive.ObjectID, status domain.ReviewStatus) (*domain.Review, error) {
	return r.findOneAndSet(ctx, scoped(id, businessID), bson.M{
		"status":    status,
		"updatedAt": time.Now().UTC(),
	})
}

// SetTextStatus applies a moderation transition to the auxiliary text sub-state.
func (r *mongoReviewRepository) SetTextStatus(ctx context.Context, id, businessID primitive.ObjectID, status domain.ReviewStatus) (*domain.Review, error) {
	return r.findOneAndSet(ctx, scoped(id, businessID), bson.M{
		"textStatus": status,
		"updatedAt":  time.Now().UTC(),
	})
}

func (r *mongoReviewRepository) findOneAndSet(ctx context.Context, filter, set bson.M) (*domain.Review, error) {
	var review domain.Review
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	err := r.collection.FindOneAndUpdate(ctx, filter, bson.M{"$set": set}, opts).Decode(&review)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &review, nil
}

// SoftDelete marks a review deleted; it disappears from all reads.
func (r *mongoReviewRepository) SoftDelete(ctx context.Context, id, businessID primitive.ObjectID) error {
	now := time.Now().UTC()
	update := bson.M{"$set": bson.M{"deletedAt": now, "updatedAt": now}}

	result, err := r.collection.UpdateOne(ctx, scoped(id, businessID), update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// HardDelete removes a review row outright. Used by the DELETE moderation
// action on the media target, which is a destructive operation by contract.
func (r *mongoReviewRepository) HardDelete(ctx context.Context, id, businessID primitive.ObjectID) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id, "businessId": businessID})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// EnsureReviewIndexes creates necessary indexes for the reviews collection.
func EnsureReviewIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			// Tenant listing sorted newest first
			Keys:    bson.D{{Key: "businessId", Value: 1}, {Key: "submittedAt", Value: -1}},
			Options: options.Index(),
		},
		{
			// Feed query: approved reviews per tenant
			Keys:    bson.D{{Key: "businessId", Value: 1}, {Key: "status", Value: 1}, {Key: "submittedAt", Value: -1}},
			Options: options.Index(),
		},
	}

	_, _ = collection.Indexes().CreateMany(ctx, indexes)
}
