package repository

import (
	"context"
	"truetestify/backend/internal/domain"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Error constants for repository layer
var (
	ErrNotFound     = RepositoryError("not found")
	ErrDuplicate    = RepositoryError("duplicate key")
	ErrUpdateFailed = RepositoryError("update failed")
	ErrDeleteFailed = RepositoryError("delete failed")
)

// RepositoryError helps distinguish repository errors
type RepositoryError string

func (e RepositoryError) Error() string {
	return string(e)
}

// ReviewPatch carries the fields an operator may edit after submission.
// Type, status and consent are deliberately absent: they can only change
// through their dedicated paths.
type ReviewPatch struct {
	Title           *string
	ReviewerName    *string
	ReviewerContact map[string]string
	BodyText        *string
	Rating          *int
}

// BusinessRepository resolves tenants. All read methods treat soft-deleted
// businesses as nonexistent.
type BusinessRepository interface {
	Create(ctx context.Context, business *domain.Business) (primitive.ObjectID, error)
	GetBySlug(ctx context.Context, slug string) (*domain.Business, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Business, error)
}

// UserRepository defines the interface for dashboard user accounts.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (primitive.ObjectID, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error)
}

// ReviewRepository defines the interface for interacting with review data.
//
// Every method takes the owning business ID and applies it in the query
// filter itself, together with the not-deleted predicate. A review that is
// soft-deleted or owned by another business is indistinguishable from one
// that does not exist.
type ReviewRepository interface {
	Create(ctx context.Context, review *domain.Review) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id, businessID primitive.ObjectID) (*domain.Review, error)
	ListByBusiness(ctx context.Context, businessID primitive.ObjectID, status *domain.ReviewStatus) ([]domain.Review, error)
	UpdateFields(ctx context.Context, id, businessID primitive.ObjectID, patch ReviewPatch) (*domain.Review, error)
	SetStatus(ctx context.Context, id, businessID primitive.ObjectID, status domain.ReviewStatus) (*domain.Review, error)
	SetTextStatus(ctx context.Context, id, businessID primitive.ObjectID, status domain.ReviewStatus) (*domain.Review, error)
	SoftDelete(ctx context.Context, id, businessID primitive.ObjectID) error
	HardDelete(ctx context.Context, id, businessID primitive.ObjectID) error
}

// MediaAssetRepository defines the interface for stored media metadata.
type MediaAssetRepository interface {
	Create(ctx context.Context, asset *domain.MediaAsset) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id, businessID primitive.ObjectID) (*domain.MediaAsset, error)
	GetByReviewID(ctx context.Context, reviewID, businessID primitive.ObjectID) (*domain.MediaAsset, error)
	// ListByReviewIDs fetches the assets of many reviews in one query, keyed
	// by review ID. Reviews without an asset are simply absent from the map.
	ListByReviewIDs(ctx context.Context, businessID primitive.ObjectID, reviewIDs []primitive.ObjectID) (map[primitive.ObjectID]domain.MediaAsset, error)
	// ApplyTranscodeResult writes the duration and metadata produced by the
	// transcode worker. This is the only mutation an asset ever receives.
	ApplyTranscodeResult(ctx context.Context, id, businessID primitive.ObjectID, durationSec float64, metadata map[string]string) error
	// DeleteByReviewID removes all asset rows for a review and returns them
	// so the caller can clean up the blob store.
	DeleteByReviewID(ctx context.Context, reviewID, businessID primitive.ObjectID) ([]domain.MediaAsset, error)
}

// TranscodeJobRepository mirrors queued transcode work for observability.
type TranscodeJobRepository interface {
	Create(ctx context.Context, job *domain.TranscodeJob) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.TranscodeJob, error)
	SetStatus(ctx context.Context, id primitive.ObjectID, status domain.TranscodeStatus, errMsg string) error
}

// UploadSessionRepository tracks chunked upload progress per review.
type UploadSessionRepository interface {
	// AppendChunk records one received chunk, creating the session on first
	// use. A duplicate index replaces the previous entry (last write wins).
	AppendChunk(ctx context.Context, businessID, reviewID primitive.ObjectID, chunk domain.UploadChunk) error
	GetByReviewID(ctx context.Context, reviewID, businessID primitive.ObjectID) (*domain.UploadSession, error)
	Delete(ctx context.Context, reviewID, businessID primitive.ObjectID) error
}
