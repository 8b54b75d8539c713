package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"truetestify/backend/internal/domain"
	"truetestify/backend/internal/queue"
	"truetestify/backend/internal/repository"
	"truetestify/backend/internal/storage"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// --- Error Definitions ---
var (
	ErrChunkNotAllowed  = fmt.Errorf("%w: chunk uploads are not supported for text reviews", ErrValidation)
	ErrTypeMismatch     = fmt.Errorf("%w: type does not match review type", ErrValidation)
	ErrNoChunks         = fmt.Errorf("%w: no chunks were uploaded for this review", ErrValidation)
	ErrAlreadyFinalized = fmt.Errorf("%w: upload already finalized", ErrValidation)
)

// ChunkResult acknowledges one stored chunk.
type ChunkResult struct {
	ChunkIndex int
	Status     string
}

// FinalizeResult acknowledges an assembled upload.
type FinalizeResult struct {
	ReviewID string
	Status   string
	Message  string
}

// --- Service Interface ---

// UploadService implements the chunked half of the upload protocol. The
// review itself is created first through ReviewService.Submit with no file;
// chunks then stream in and finalize assembles them into the MediaAsset.
type UploadService interface {
	UploadChunk(ctx context.Context, slug string, reviewIDHex string, chunkIndex int, chunk SubmittedFile) (*ChunkResult, error)
	FinalizeUpload(ctx context.Context, slug string, reviewIDHex string, declaredType string) (*FinalizeResult, error)
}

// --- Service Implementation ---

// uploadService implements the UploadService interface.
type uploadService struct {
	businessRepo repository.BusinessRepository
	reviewRepo   repository.ReviewRepository
	assetRepo    repository.MediaAssetRepository
	jobRepo      repository.TranscodeJobRepository
	sessionRepo  repository.UploadSessionRepository
	fileStorage  storage.FileStorage
	jobQueue     queue.JobQueue
	maxSizeBytes int64
	log          *zap.Logger
}

// NewUploadService creates a new instance of uploadService.
func NewUploadService(
	businessRepo repository.BusinessRepository,
	reviewRepo repository.ReviewRepository,
	assetRepo repository.MediaAssetRepository,
	jobRepo repository.TranscodeJobRepository,
	sessionRepo repository.UploadSessionRepository,
	fileStorage storage.FileStorage,
	jobQueue queue.JobQueue,
	maxSizeBytes int64,
	log *zap.Logger,
) UploadService {
	return &uploadService{
		businessRepo: businessRepo,
		reviewRepo:   reviewRepo,
		assetRepo:    assetRepo,
		jobRepo:      jobRepo,
		sessionRepo:  sessionRepo,
		fileStorage:  fileStorage,
		jobQueue:     jobQueue,
		maxSizeBytes: maxSizeBytes,
		log:          log,
	}
}

// resolveReview loads the review addressed by a chunk or finalize call,
// scoped to the slug's business. An unknown slug and a malformed or foreign
// review ID all collapse into not-found errors.
func (s *uploadService) resolveReview(ctx context.Context, slug, reviewIDHex string) (*domain.Business, *domain.Review, error) {
	business, err := s.businessRepo.GetBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, ErrBusinessNotFound
		}
		return nil, nil, err
	}

	reviewID, err := primitive.ObjectIDFromHex(reviewIDHex)
	if err != nil {
		return nil, nil, ErrReviewNotFound
	}

	review, err := s.reviewRepo.GetByID(ctx, reviewID, business.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, ErrReviewNotFound
		}
		return nil, nil, err
	}

	return business, review, nil
}

// UploadChunk stores one chunk of an in-progress media upload. Chunks may
// arrive out of order; re-sending an index overwrites the previous bytes.
func (s *uploadService) UploadChunk(ctx context.Context, slug string, reviewIDHex string, chunkIndex int, chunk SubmittedFile) (*ChunkResult, error) {
	if chunkIndex < 0 {
		return nil, validationError("chunk index must not be negative")
	}
	if chunk.Size <= 0 {
		return nil, validationError("chunk is empty")
	}
	if chunk.Size > s.maxSizeBytes {
		return nil, ErrFileTooLarge
	}

	business, review, err := s.resolveReview(ctx, slug, reviewIDHex)
	if err != nil {
		return nil, err
	}

	if review.Type == domain.ReviewTypeText {
		return nil, ErrChunkNotAllowed
	}
	if err := s.ensureNotFinalized(ctx, review.ID, business.ID); err != nil {
		return nil, err
	}

	key := chunkObjectKey(business.ID, review.ID, chunkIndex)
	if err := s.fileStorage.Upload(ctx, key, chunk.Reader, chunk.Size, "application/octet-stream"); err != nil {
		return nil, fmt.Errorf("store chunk object: %w", err)
	}

	err = s.sessionRepo.AppendChunk(ctx, business.ID, review.ID, domain.UploadChunk{
		Index:      chunkIndex,
		StorageKey: key,
		SizeBytes:  chunk.Size,
	})
	if err != nil {
		return nil, err
	}

	return &ChunkResult{ChunkIndex: chunkIndex, Status: "uploaded"}, nil
}

// FinalizeUpload assembles the received chunks, in ascending index order,
// into the review's media object and queues transcoding.
func (s *uploadService) FinalizeUpload(ctx context.Context, slug string, reviewIDHex string, declaredType string) (*FinalizeResult, error) {
	business, review, err := s.resolveReview(ctx, slug, reviewIDHex)
	if err != nil {
		return nil, err
	}

	if review.Type == domain.ReviewTypeText {
		return nil, ErrChunkNotAllowed
	}
	if domain.ReviewType(strings.ToLower(strings.TrimSpace(declaredType))) != review.Type {
		return nil, ErrTypeMismatch
	}
	if !review.ConsentChecked {
		return nil, ErrConsentRequired
	}
	if err := s.ensureNotFinalized(ctx, review.ID, business.ID); err != nil {
		return nil, err
	}

	session, err := s.sessionRepo.GetByReviewID(ctx, review.ID, business.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNoChunks
		}
		return nil, err
	}
	if len(session.Chunks) == 0 {
		return nil, ErrNoChunks
	}

	chunks := session.SortedChunks()

	var totalSize int64
	srcKeys := make([]string, len(chunks))
	for i, c := range chunks {
		srcKeys[i] = c.StorageKey
		totalSize += c.SizeBytes
	}
	if totalSize > s.maxSizeBytes {
		return nil, ErrFileTooLarge
	}

	contentType := defaultMimetypeFor(review.Type)
	finalKey := mediaObjectKey(business.ID, review.ID, review.Type, contentType)

	size, err := s.fileStorage.Compose(ctx, finalKey, srcKeys, contentType)
	if err != nil {
		return nil, fmt.Errorf("assemble chunks: %w", err)
	}

	asset := &domain.MediaAsset{
		BusinessID: business.ID,
		ReviewID:   review.ID,
		AssetType:  contentType,
		StorageKey: finalKey,
		SizeBytes:  size,
	}
	assetID, err := s.assetRepo.Create(ctx, asset)
	if err != nil {
		return nil, err
	}

	s.enqueueTranscode(ctx, business.ID, review.ID, assetID, domain.TargetForType(review.Type))
	s.cleanupSession(ctx, business.ID, review.ID, srcKeys)

	return &FinalizeResult{
		ReviewID: review.ID.Hex(),
		Status:   "finalized",
		Message:  "Upload finalized, transcoding queued",
	}, nil
}

// ensureNotFinalized rejects chunk and finalize calls once a MediaAsset
// exists for the review: the second finalize, or a chunk arriving after
// assembly, has nothing left to contribute.
func (s *uploadService) ensureNotFinalized(ctx context.Context, reviewID, businessID primitive.ObjectID) error {
	_, err := s.assetRepo.GetByReviewID(ctx, reviewID, businessID)
	if err == nil {
		return ErrAlreadyFinalized
	}
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	return err
}

// enqueueTranscode mirrors reviewService.enqueueTranscode: the asset is
// durable, so queue trouble degrades to a stuck-pending review rather than
// failing the finalize.
func (s *uploadService) enqueueTranscode(ctx context.Context, businessID, reviewID, assetID primitive.ObjectID, target string) {
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

// cleanupSession drops the consumed session and the chunk objects. All of
// it is best effort: the assembled object is already durable.
func (s *uploadService) cleanupSession(ctx context.Context, businessID, reviewID primitive.ObjectID, chunkKeys []string) {
	if err := s.sessionRepo.Delete(ctx, reviewID, businessID); err != nil && !errors.Is(err, repository.ErrNotFound) {
		s.log.Warn("failed to delete upload session",
			zap.String("reviewId", reviewID.Hex()), zap.Error(err))
	}
	for _, key := range chunkKeys {
		if err := s.fileStorage.DeleteObject(ctx, key); err != nil {
			s.log.Warn("failed to delete chunk object", zap.String("key", key), zap.Error(err))
		}
	}
}
