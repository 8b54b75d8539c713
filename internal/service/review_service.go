package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
	"truetestify/backend/internal/domain"
	"truetestify/backend/internal/queue"
	"truetestify/backend/internal/repository"
	"truetestify/backend/internal/storage"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// --- Error Definitions ---
var (
	// ErrValidation is the base class for rejected input; specific
	// validation failures wrap it so handlers can map them all to 400.
	ErrValidation = errors.New("validation failed")

	ErrBusinessNotFound = errors.New("business not found")
	ErrReviewNotFound   = errors.New("review not found")

	ErrConsentRequired  = fmt.Errorf("%w: consent is mandatory", ErrValidation)
	ErrInvalidType      = fmt.Errorf("%w: type must be video, audio, or text", ErrValidation)
	ErrBodyTextRequired = fmt.Errorf("%w: body text is required for text reviews", ErrValidation)
	ErrFileTooLarge     = fmt.Errorf("%w: file exceeds the maximum allowed size", ErrValidation)
)

func validationError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// SubmitReviewInput carries the metadata of a public review submission.
type SubmitReviewInput struct {
	Type            string
	Title           string
	BodyText        string
	Rating          int
	ReviewerName    string
	ReviewerContact map[string]string
	ConsentChecked  bool
	Source          string
}

// SubmittedFile is an uploaded file as received by the HTTP layer.
type SubmittedFile struct {
	Reader      io.Reader
	Size        int64
	ContentType string
}

// SubmitResult is returned to the public submitter.
type SubmitResult struct {
	ReviewID string
	Status   domain.ReviewStatus
	Message  string
}

// ReviewWithMedia bundles a review with its asset and a short-lived
// playback URL for dashboard views.
type ReviewWithMedia struct {
	Review   domain.Review
	Media    *domain.MediaAsset
	MediaURL string
}

// --- Service Interface ---
type ReviewService interface {
	Submit(ctx context.Context, slug string, input SubmitReviewInput, file *SubmittedFile) (*SubmitResult, error)
	GetReview(ctx context.Context, businessID, reviewID primitive.ObjectID) (*ReviewWithMedia, error)
	ListByBusiness(ctx context.Context, businessID primitive.ObjectID, statusFilter string) ([]domain.Review, error)
	UpdateReview(ctx context.Context, businessID, reviewID primitive.ObjectID, patch repository.ReviewPatch) (*domain.Review, error)
	SoftDeleteReview(ctx context.Context, businessID, reviewID primitive.ObjectID) error
	Moderate(ctx context.Context, businessID, reviewID primitive.ObjectID, action domain.ModerationAction, target domain.ModerationTarget) (*domain.Review, error)
}

// --- Service Implementation ---

// reviewService implements the ReviewService interface.
type reviewService struct {
	businessRepo repository.BusinessRepository
	reviewRepo   repository.ReviewRepository
	assetRepo    repository.MediaAssetRepository
	jobRepo      repository.TranscodeJobRepository
	fileStorage  storage.FileStorage
	jobQueue     queue.JobQueue
	maxSizeBytes int64
	log          *zap.Logger
}

// NewReviewService creates a new instance of reviewService.
func NewReviewService(
	businessRepo repository.BusinessRepository,
	reviewRepo repository.ReviewRepository,
	assetRepo repository.MediaAssetRepository,
	jobRepo repository.TranscodeJobRepository,
	fileStorage storage.FileStorage,
	jobQueue queue.JobQueue,
	maxSizeBytes int64,
	log *zap.Logger,
) ReviewService {
	return &reviewService{
		businessRepo: businessRepo,
		reviewRepo:   reviewRepo,
		assetRepo:    assetRepo,
		jobRepo:      jobRepo,
		fileStorage:  fileStorage,
		jobQueue:     jobQueue,
		maxSizeBytes: maxSizeBytes,
		log:          log,
	}
}

// Submit handles a public single-shot review submission.
//
// For media types the file is optional: submitting without one creates the
// review in pending state and opens the door for the chunked upload
// protocol (see UploadService), which attaches the media later.
func (s *reviewService) Submit(ctx context.Context, slug string, input SubmitReviewInput, file *SubmittedFile) (*SubmitResult, error) {
	if !input.ConsentChecked {
		return nil, ErrConsentRequired
	}

	reviewType := domain.ReviewType(strings.ToLower(strings.TrimSpace(input.Type)))
	if !reviewType.IsValid() {
		return nil, ErrInvalidType
	}
	if reviewType == domain.ReviewTypeText && strings.TrimSpace(input.BodyText) == "" {
		return nil, ErrBodyTextRequired
	}
	if input.Rating != 0 && (input.Rating < 1 || input.Rating > 5) {
		return nil, validationError("rating must be between 1 and 5")
	}

	if reviewType.HasMedia() && file != nil {
		if !mimetypeAllowed(reviewType, file.ContentType) {
			return nil, validationError("file must be one of: %s",
				strings.Join(allowedMimetypesFor(reviewType), ", "))
		}
		if file.Size > s.maxSizeBytes {
			return nil, ErrFileTooLarge
		}
	}

	business, err := s.businessRepo.GetBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrBusinessNotFound
		}
		return nil, err
	}

	source := input.Source
	if source == "" {
		source = "website"
	}

	review := &domain.Review{
		BusinessID:      business.ID,
		Type:            reviewType,
		Status:          domain.StatusPending,
		Title:           input.Title,
		Rating:          input.Rating,
		ReviewerName:    input.ReviewerName,
		ReviewerContact: input.ReviewerContact,
		ConsentChecked:  true,
		Source:          source,
		SubmittedAt:     time.Now().UTC(),
	}
	if strings.TrimSpace(input.BodyText) != "" {
		review.BodyText = input.BodyText
		// Written commentary is auto-approved only when the business opted
		// into text reviews; otherwise it waits for moderation like the rest.
		if business.AllowTextReviews {
			review.TextStatus = domain.StatusApproved
		} else {
			review.TextStatus = domain.StatusPending
		}
	}

	reviewID, err := s.reviewRepo.Create(ctx, review)
	if err != nil {
		return nil, err
	}
	review.ID = reviewID

	if reviewType == domain.ReviewTypeText {
		return &SubmitResult{
			ReviewID: reviewID.Hex(),
			Status:   domain.StatusPending,
			Message:  "Text review submitted",
		}, nil
	}

	if file == nil {
		// Chunked flow: the client will stream chunks and finalize later.
		return &SubmitResult{
			ReviewID: reviewID.Hex(),
			Status:   domain.StatusPending,
			Message:  "Review created, ready for chunk uploads",
		}, nil
	}

	objectKey := mediaObjectKey(business.ID, reviewID, reviewType, file.ContentType)
	if err := s.fileStorage.Upload(ctx, objectKey, file.Reader, file.Size, normalizeMimetype(file.ContentType)); err != nil {
		return nil, fmt.Errorf("store media object: %w", err)
	}

	asset := &domain.MediaAsset{
		BusinessID: business.ID,
		ReviewID:   reviewID,
		AssetType:  file.ContentType, // Retain the full declared mimetype
		StorageKey: objectKey,
		SizeBytes:  file.Size,
	}
	assetID, err := s.assetRepo.Create(ctx, asset)
	if err != nil {
		return nil, err
	}

	s.enqueueTranscode(ctx, business.ID, reviewID, assetID, domain.TargetForType(reviewType))

	return &SubmitResult{
		ReviewID: reviewID.Hex(),
		Status:   domain.StatusPending,
		Message:  "Review submitted and transcoding queued",
	}, nil
}

// enqueueTranscode records the job and hands it to the queue. The review
// and asset are already durable at this point, so an enqueue failure leaves
// a detectable stuck-pending state rather than rolling anything back.
func (s *reviewService) enqueueTranscode(ctx context.Context, businessID, reviewID, assetID primitive.ObjectID, target string) {
	job := &domain.TranscodeJob{
		BusinessID:   businessID,
		ReviewID:     reviewID,
		InputAssetID: assetID,
		Target:       target,
		Status:       domain.TranscodeQueued,
	}
	jobID, err := s.jobRepo.Create(ctx, job)
	if err != nil {
		s.log.Error("failed to record transcode job",
			zap.String("reviewId", reviewID.Hex()), zap.Error(err))
		return
	}

	err = s.jobQueue.Enqueue(ctx, queue.TranscodePayload{
		JobID:        jobID.Hex(),
		BusinessID:   businessID.Hex(),
		ReviewID:     reviewID.Hex(),
		InputAssetID: assetID.Hex(),
		Target:       target,
	})
	if err != nil {
		s.log.Error("failed to enqueue transcode job",
			zap.String("jobId", jobID.Hex()), zap.Error(err))
	}
}

// GetReview retrieves one review scoped to the calling business, together
// with its media asset and a presigned playback URL when one exists.
func (s *reviewService) GetReview(ctx context.Context, businessID, reviewID primitive.ObjectID) (*ReviewWithMedia, error) {
	review, err := s.reviewRepo.GetByID(ctx, reviewID, businessID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrReviewNotFound
		}
		return nil, err
	}

	result := &ReviewWithMedia{Review: *review}

	asset, err := s.assetRepo.GetByReviewID(ctx, reviewID, businessID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return result, nil // Text review, or upload not finalized yet
		}
		return nil, err
	}
	result.Media = asset

	url, err := s.fileStorage.GeneratePresignedDownloadURL(ctx, asset.StorageKey, storage.DefaultPresignedURLExpiry)
	if err != nil {
		// Playback URL is best effort for dashboard views; the review data
		// itself is still useful without it.
		s.log.Warn("failed to presign media URL",
			zap.String("reviewId", reviewID.Hex()), zap.Error(err))
		return result, nil
	}
	result.MediaURL = url

	return result, nil
}

// ListByBusiness returns the business's reviews, newest first, optionally
// filtered by status.
func (s *reviewService) ListByBusiness(ctx context.Context, businessID primitive.ObjectID, statusFilter string) ([]domain.Review, error) {
	var status *domain.ReviewStatus
	if statusFilter != "" {
		parsed := domain.ReviewStatus(strings.ToLower(statusFilter))
		switch parsed {
		case domain.StatusPending, domain.StatusApproved, domain.StatusRejected, domain.StatusHidden, domain.StatusDeleted:
			status = &parsed
		default:
			return nil, validationError("unknown status filter %q", statusFilter)
		}
	}
	return s.reviewRepo.ListByBusiness(ctx, businessID, status)
}

// UpdateReview applies an operator edit to a review's content fields.
func (s *reviewService) UpdateReview(ctx context.Context, businessID, reviewID primitive.ObjectID, patch repository.ReviewPatch) (*domain.Review, error) {
	if patch.Rating != nil && (*patch.Rating < 1 || *patch.Rating > 5) {
		return nil, validationError("rating must be between 1 and 5")
	}
	if patch.BodyText != nil && strings.TrimSpace(*patch.BodyText) == "" {
		// Never blank out the body of a text review through an edit.
		review, err := s.reviewRepo.GetByID(ctx, reviewID, businessID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, ErrReviewNotFound
			}
			return nil, err
		}
		if review.Type == domain.ReviewTypeText {
			return nil, ErrBodyTextRequired
		}
	}

	review, err := s.reviewRepo.UpdateFields(ctx, reviewID, businessID, patch)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrReviewNotFound
		}
		return nil, err
	}
	return review, nil
}

// SoftDeleteReview hides a review from all subsequent reads.
func (s *reviewService) SoftDeleteReview(ctx context.Context, businessID, reviewID primitive.ObjectID) error {
	err := s.reviewRepo.SoftDelete(ctx, reviewID, businessID)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrReviewNotFound
	}
	return err
}

// Moderate applies an operator action to a review.
//
// Transitions are idempotent: re-applying an action the review already
// reflects simply re-confirms the state. Cross-tenant calls surface as
// not-found so existence never leaks.
func (s *reviewService) Moderate(ctx context.Context, businessID, reviewID primitive.ObjectID, action domain.ModerationAction, target domain.ModerationTarget) (*domain.Review, error) {
	if target == domain.TargetText {
		review, err := s.reviewRepo.SetTextStatus(ctx, reviewID, businessID, action.StatusFor())
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, ErrReviewNotFound
			}
			return nil, err
		}
		return review, nil
	}

	if action == domain.ActionDelete {
		return s.hardDeleteReview(ctx, businessID, reviewID)
	}

	review, err := s.reviewRepo.SetStatus(ctx, reviewID, businessID, action.StatusFor())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrReviewNotFound
		}
		return nil, err
	}
	return review, nil
}

// hardDeleteReview removes the review row outright and cascades to its
// media: asset rows are deleted and the stored objects cleaned up best
// effort. This asymmetry with the soft TEXT delete mirrors the dashboard
// contract for destructive media removal.
//
// The review row goes first. If the cascade fails midway the leftover is an
// orphaned asset or blob, which a sweep can reap; deleting assets first
// could instead leave a live review whose media has vanished.
func (s *reviewService) hardDeleteReview(ctx context.Context, businessID, reviewID primitive.ObjectID) (*domain.Review, error) {
	review, err := s.reviewRepo.GetByID(ctx, reviewID, businessID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrReviewNotFound
		}
		return nil, err
	}

	if err := s.reviewRepo.HardDelete(ctx, reviewID, businessID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrReviewNotFound
		}
		return nil, err
	}

	assets, err := s.assetRepo.DeleteByReviewID(ctx, reviewID, businessID)
	if err != nil {
		return nil, err
	}

	for _, asset := range assets {
		if err := s.fileStorage.DeleteObject(ctx, asset.StorageKey); err != nil {
			s.log.Warn("failed to delete media object for removed review",
				zap.String("key", asset.StorageKey), zap.Error(err))
		}
	}

	review.Status = domain.StatusDeleted
	return review, nil
}
