package service

import (
	"context"
	"errors"
	"time"
	"truetestify/backend/internal/domain"
	"truetestify/backend/internal/repository"
	"truetestify/backend/internal/storage"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// FeedItem is one approved review as rendered in the public widget feed.
// Storage keys never leak; media is exposed only through short-lived URLs.
type FeedItem struct {
	ReviewID     string            `json:"reviewId"`
	Type         domain.ReviewType `json:"type"`
	Title        string            `json:"title,omitempty"`
	BodyText     string            `json:"bodyText,omitempty"`
	Rating       int               `json:"rating,omitempty"`
	ReviewerName string            `json:"reviewerName,omitempty"`
	MediaURL     string            `json:"mediaUrl,omitempty"`
	ViewsCount   int64             `json:"viewsCount"`
	SubmittedAt  time.Time         `json:"submittedAt"`
}

// --- Service Interface ---

// FeedService assembles the public, read-only widget feed.
type FeedService interface {
	PublicFeed(ctx context.Context, slug string) ([]FeedItem, error)
}

// --- Service Implementation ---

// feedService implements the FeedService interface.
type feedService struct {
	businessRepo repository.BusinessRepository
	reviewRepo   repository.ReviewRepository
	assetRepo    repository.MediaAssetRepository
	fileStorage  storage.FileStorage
	log          *zap.Logger
}

// NewFeedService creates a new instance of feedService.
func NewFeedService(
	businessRepo repository.BusinessRepository,
	reviewRepo repository.ReviewRepository,
	assetRepo repository.MediaAssetRepository,
	fileStorage storage.FileStorage,
	log *zap.Logger,
) FeedService {
	return &feedService{
		businessRepo: businessRepo,
		reviewRepo:   reviewRepo,
		assetRepo:    assetRepo,
		fileStorage:  fileStorage,
		log:          log,
	}
}

// PublicFeed returns the approved reviews of a business, newest first.
// Only status == approved rows are ever visible here; written commentary on
// a media review additionally requires an approved text sub-state.
func (s *feedService) PublicFeed(ctx context.Context, slug string) ([]FeedItem, error) {
	business, err := s.businessRepo.GetBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrBusinessNotFound
		}
		return nil, err
	}

	approved := domain.StatusApproved
	reviews, err := s.reviewRepo.ListByBusiness(ctx, business.ID, &approved)
	if err != nil {
		return nil, err
	}

	// One batched asset lookup for the whole page instead of a query per
	// media review.
	mediaReviewIDs := make([]primitive.ObjectID, 0, len(reviews))
	for _, review := range reviews {
		if review.Type.HasMedia() {
			mediaReviewIDs = append(mediaReviewIDs, review.ID)
		}
	}
	assetsByReview, err := s.assetRepo.ListByReviewIDs(ctx, business.ID, mediaReviewIDs)
	if err != nil {
		return nil, err
	}

	items := make([]FeedItem, 0, len(reviews))
	for _, review := range reviews {
		item := FeedItem{
			ReviewID:     review.ID.Hex(),
			Type:         review.Type,
			Title:        review.Title,
			Rating:       review.Rating,
			ReviewerName: review.ReviewerName,
			ViewsCount:   review.ViewsCount,
			SubmittedAt:  review.SubmittedAt,
		}

		if review.Type == domain.ReviewTypeText {
			item.BodyText = review.BodyText
		} else if review.TextStatus == domain.StatusApproved {
			// Auxiliary commentary on a media review has its own gate.
			item.BodyText = review.BodyText
		}

		// An approved media review may lack an asset if its upload never
		// finalized; show what there is.
		if asset, ok := assetsByReview[review.ID]; ok {
			url, err := s.fileStorage.GeneratePresignedDownloadURL(ctx, asset.StorageKey, storage.DefaultPresignedURLExpiry)
			if err != nil {
				s.log.Warn("failed to presign feed media URL",
					zap.String("reviewId", item.ReviewID), zap.Error(err))
			} else {
				item.MediaURL = url
			}
		}

		items = append(items, item)
	}

	return items, nil
}
