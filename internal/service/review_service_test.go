package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"truetestify/backend/internal/domain"
	"truetestify/backend/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const testMaxSize = 30 * 1024 * 1024

type reviewFixture struct {
	businessRepo *fakeBusinessRepo
	reviewRepo   *fakeReviewRepo
	assetRepo    *fakeAssetRepo
	jobRepo      *fakeJobRepo
	storage      *fakeStorage
	queue        *fakeQueue
	svc          ReviewService
}

func newReviewFixture(t *testing.T) *reviewFixture {
	t.Helper()
	f := &reviewFixture{
		businessRepo: newFakeBusinessRepo(),
		reviewRepo:   newFakeReviewRepo(),
		assetRepo:    newFakeAssetRepo(),
		jobRepo:      newFakeJobRepo(),
		storage:      newFakeStorage(),
		queue:        &fakeQueue{},
	}
	f.svc = NewReviewService(
		f.businessRepo, f.reviewRepo, f.assetRepo, f.jobRepo,
		f.storage, f.queue, testMaxSize, zap.NewNop(),
	)
	return f
}

func validTextInput() SubmitReviewInput {
	return SubmitReviewInput{
		Type:           "text",
		BodyText:       "Great service, would recommend.",
		Rating:         5,
		ReviewerName:   "Alice",
		ConsentChecked: true,
	}
}

func TestSubmit_WithoutConsent_PersistsNothing(t *testing.T) {
	f := newReviewFixture(t)
	f.businessRepo.add("Acme", "acme", true)

	input := validTextInput()
	input.ConsentChecked = false

	_, err := f.svc.Submit(context.Background(), "acme", input, nil)
	require.ErrorIs(t, err, ErrConsentRequired)
	assert.ErrorIs(t, err, ErrValidation)
	assert.Empty(t, f.reviewRepo.reviews)
	assert.Empty(t, f.storage.objects)
	assert.Empty(t, f.queue.payloads)
}

func TestSubmit_TextReview(t *testing.T) {
	f := newReviewFixture(t)
	business := f.businessRepo.add("Acme", "acme", true)

	result, err := f.svc.Submit(context.Background(), "acme", validTextInput(), nil)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, result.Status)
	assert.Equal(t, "Text review submitted", result.Message)

	reviewID, err := primitive.ObjectIDFromHex(result.ReviewID)
	require.NoError(t, err)
	review, err := f.reviewRepo.GetByID(context.Background(), reviewID, business.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ReviewTypeText, review.Type)
	assert.Equal(t, domain.StatusPending, review.Status)
	// Text is auto-approved because the business opted into text reviews.
	assert.Equal(t, domain.StatusApproved, review.TextStatus)
	assert.Empty(t, f.queue.payloads, "text reviews never enqueue transcode work")
}

func TestSubmit_TextStatusPendingWhenTextDisallowed(t *testing.T) {
	f := newReviewFixture(t)
	business := f.businessRepo.add("Acme", "acme", false)

	result, err := f.svc.Submit(context.Background(), "acme", validTextInput(), nil)
	require.NoError(t, err)

	reviewID, _ := primitive.ObjectIDFromHex(result.ReviewID)
	review, err := f.reviewRepo.GetByID(context.Background(), reviewID, business.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, review.TextStatus)
}

func TestSubmit_TextReviewRequiresBody(t *testing.T) {
	f := newReviewFixture(t)
	f.businessRepo.add("Acme", "acme", true)

	input := validTextInput()
	input.BodyText = "   "

	_, err := f.svc.Submit(context.Background(), "acme", input, nil)
	require.ErrorIs(t, err, ErrBodyTextRequired)
	assert.Empty(t, f.reviewRepo.reviews)
}

func TestSubmit_InvalidType(t *testing.T) {
	f := newReviewFixture(t)
	f.businessRepo.add("Acme", "acme", true)

	input := validTextInput()
	input.Type = "hologram"

	_, err := f.svc.Submit(context.Background(), "acme", input, nil)
	require.ErrorIs(t, err, ErrInvalidType)
}

func TestSubmit_UnknownSlug(t *testing.T) {
	f := newReviewFixture(t)

	_, err := f.svc.Submit(context.Background(), "nope", validTextInput(), nil)
	require.ErrorIs(t, err, ErrBusinessNotFound)
}

func TestSubmit_VideoWithFile_CreatesOneAssetAndQueuesJob(t *testing.T) {
	f := newReviewFixture(t)
	business := f.businessRepo.add("Acme", "acme", true)

	file := &SubmittedFile{
		Reader:      strings.NewReader("fake video bytes"),
		Size:        16,
		ContentType: "video/webm;codecs=vp8,opus",
	}
	input := SubmitReviewInput{Type: "video", ConsentChecked: true, ReviewerName: "Bob"}

	result, err := f.svc.Submit(context.Background(), "acme", input, file)
	require.NoError(t, err)
	assert.Equal(t, "Review submitted and transcoding queued", result.Message)

	reviewID, _ := primitive.ObjectIDFromHex(result.ReviewID)
	assert.Equal(t, 1, f.assetRepo.countForReview(reviewID), "exactly one asset per submission")

	require.Len(t, f.queue.payloads, 1)
	payload := f.queue.payloads[0]
	assert.Equal(t, result.ReviewID, payload.ReviewID)
	assert.Equal(t, business.ID.Hex(), payload.BusinessID)
	assert.Equal(t, domain.Target720p, payload.Target)

	asset, err := f.assetRepo.GetByReviewID(context.Background(), reviewID, business.ID)
	require.NoError(t, err)
	assert.Contains(t, f.storage.objects, asset.StorageKey)
	assert.Nil(t, asset.DurationSec, "duration is unknown until transcoding completes")
}

func TestSubmit_VideoWithoutFile_OpensChunkedFlow(t *testing.T) {
	f := newReviewFixture(t)
	f.businessRepo.add("Acme", "acme", true)

	input := SubmitReviewInput{Type: "video", ConsentChecked: true}
	result, err := f.svc.Submit(context.Background(), "acme", input, nil)
	require.NoError(t, err)
	assert.Equal(t, "Review created, ready for chunk uploads", result.Message)
	assert.Empty(t, f.queue.payloads)
	assert.Empty(t, f.storage.objects)
}

func TestSubmit_RejectsDisallowedMimetype(t *testing.T) {
	f := newReviewFixture(t)
	f.businessRepo.add("Acme", "acme", true)

	file := &SubmittedFile{Reader: strings.NewReader("x"), Size: 1, ContentType: "video/x-msvideo"}
	input := SubmitReviewInput{Type: "video", ConsentChecked: true}

	_, err := f.svc.Submit(context.Background(), "acme", input, file)
	require.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), "video/webm, video/mp4, video/quicktime")
	assert.Empty(t, f.reviewRepo.reviews)
}

func TestSubmit_RejectsOversizedFile(t *testing.T) {
	f := newReviewFixture(t)
	f.businessRepo.add("Acme", "acme", true)

	file := &SubmittedFile{Reader: strings.NewReader("x"), Size: testMaxSize + 1, ContentType: "audio/wav"}
	input := SubmitReviewInput{Type: "audio", ConsentChecked: true}

	_, err := f.svc.Submit(context.Background(), "acme", input, file)
	require.ErrorIs(t, err, ErrFileTooLarge)
}

func TestSubmit_RejectsOutOfRangeRating(t *testing.T) {
	f := newReviewFixture(t)
	f.businessRepo.add("Acme", "acme", true)

	input := validTextInput()
	input.Rating = 6

	_, err := f.svc.Submit(context.Background(), "acme", input, nil)
	require.ErrorIs(t, err, ErrValidation)
}

func TestGetReview_CrossTenantIsNotFound(t *testing.T) {
	f := newReviewFixture(t)
	f.businessRepo.add("Acme", "acme", true)
	other := f.businessRepo.add("Rival", "rival", true)

	result, err := f.svc.Submit(context.Background(), "acme", validTextInput(), nil)
	require.NoError(t, err)
	reviewID, _ := primitive.ObjectIDFromHex(result.ReviewID)

	_, err = f.svc.GetReview(context.Background(), other.ID, reviewID)
	require.ErrorIs(t, err, ErrReviewNotFound)
}

func TestListByBusiness_RejectsUnknownStatusFilter(t *testing.T) {
	f := newReviewFixture(t)
	business := f.businessRepo.add("Acme", "acme", true)

	_, err := f.svc.ListByBusiness(context.Background(), business.ID, "limbo")
	require.ErrorIs(t, err, ErrValidation)
}

func TestUpdateReview_RejectsBlankingTextBody(t *testing.T) {
	f := newReviewFixture(t)
	business := f.businessRepo.add("Acme", "acme", true)

	result, err := f.svc.Submit(context.Background(), "acme", validTextInput(), nil)
	require.NoError(t, err)
	reviewID, _ := primitive.ObjectIDFromHex(result.ReviewID)

	empty := ""
	_, err = f.svc.UpdateReview(context.Background(), business.ID, reviewID, repository.ReviewPatch{BodyText: &empty})
	require.ErrorIs(t, err, ErrBodyTextRequired)
}

func TestSoftDeleteReview_HidesFromReads(t *testing.T) {
	f := newReviewFixture(t)
	business := f.businessRepo.add("Acme", "acme", true)

	result, err := f.svc.Submit(context.Background(), "acme", validTextInput(), nil)
	require.NoError(t, err)
	reviewID, _ := primitive.ObjectIDFromHex(result.ReviewID)

	require.NoError(t, f.svc.SoftDeleteReview(context.Background(), business.ID, reviewID))

	_, err = f.svc.GetReview(context.Background(), business.ID, reviewID)
	assert.ErrorIs(t, err, ErrReviewNotFound)

	// Second delete sees a nonexistent review.
	err = f.svc.SoftDeleteReview(context.Background(), business.ID, reviewID)
	assert.ErrorIs(t, err, ErrReviewNotFound)
}

func TestModerate_ApproveIsIdempotent(t *testing.T) {
	f := newReviewFixture(t)
	business := f.businessRepo.add("Acme", "acme", true)

	result, err := f.svc.Submit(context.Background(), "acme", validTextInput(), nil)
	require.NoError(t, err)
	reviewID, _ := primitive.ObjectIDFromHex(result.ReviewID)

	review, err := f.svc.Moderate(context.Background(), business.ID, reviewID, domain.ActionApprove, domain.TargetMedia)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusApproved, review.Status)

	review, err = f.svc.Moderate(context.Background(), business.ID, reviewID, domain.ActionApprove, domain.TargetMedia)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusApproved, review.Status)
}

func TestModerate_TextTargetOnlyTouchesTextStatus(t *testing.T) {
	f := newReviewFixture(t)
	business := f.businessRepo.add("Acme", "acme", false)

	result, err := f.svc.Submit(context.Background(), "acme", validTextInput(), nil)
	require.NoError(t, err)
	reviewID, _ := primitive.ObjectIDFromHex(result.ReviewID)

	review, err := f.svc.Moderate(context.Background(), business.ID, reviewID, domain.ActionApprove, domain.TargetText)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusApproved, review.TextStatus)
	assert.Equal(t, domain.StatusPending, review.Status, "primary status untouched")
}

func TestModerate_DeleteMediaHardDeletesAndCleansStorage(t *testing.T) {
	f := newReviewFixture(t)
	business := f.businessRepo.add("Acme", "acme", true)

	file := &SubmittedFile{Reader: strings.NewReader("bytes"), Size: 5, ContentType: "video/mp4"}
	result, err := f.svc.Submit(context.Background(), "acme", SubmitReviewInput{Type: "video", ConsentChecked: true}, file)
	require.NoError(t, err)
	reviewID, _ := primitive.ObjectIDFromHex(result.ReviewID)

	review, err := f.svc.Moderate(context.Background(), business.ID, reviewID, domain.ActionDelete, domain.TargetMedia)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDeleted, review.Status)

	// Row, asset metadata and stored object are all gone.
	_, err = f.reviewRepo.GetByID(context.Background(), reviewID, business.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.Equal(t, 0, f.assetRepo.countForReview(reviewID))
	assert.Empty(t, f.storage.objects)
}

func TestModerate_DeleteMediaRowFailureKeepsAssets(t *testing.T) {
	f := newReviewFixture(t)
	business := f.businessRepo.add("Acme", "acme", true)

	file := &SubmittedFile{Reader: strings.NewReader("bytes"), Size: 5, ContentType: "video/mp4"}
	result, err := f.svc.Submit(context.Background(), "acme", SubmitReviewInput{Type: "video", ConsentChecked: true}, file)
	require.NoError(t, err)
	reviewID, _ := primitive.ObjectIDFromHex(result.ReviewID)

	f.reviewRepo.hardDeleteErr = errors.New("write conflict")
	_, err = f.svc.Moderate(context.Background(), business.ID, reviewID, domain.ActionDelete, domain.TargetMedia)
	require.Error(t, err)

	// The row goes first, so a failed delete leaves everything in place:
	// the review stays live and its media stays reachable.
	kept, err := f.reviewRepo.GetByID(context.Background(), reviewID, business.ID)
	require.NoError(t, err)
	assert.Nil(t, kept.DeletedAt)
	assert.Equal(t, 1, f.assetRepo.countForReview(reviewID))
	assert.Len(t, f.storage.objects, 1)
}

func TestModerate_DeleteTextOnlyFlags(t *testing.T) {
	f := newReviewFixture(t)
	business := f.businessRepo.add("Acme", "acme", true)

	result, err := f.svc.Submit(context.Background(), "acme", validTextInput(), nil)
	require.NoError(t, err)
	reviewID, _ := primitive.ObjectIDFromHex(result.ReviewID)

	review, err := f.svc.Moderate(context.Background(), business.ID, reviewID, domain.ActionDelete, domain.TargetText)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDeleted, review.TextStatus)

	// The review row survives a TEXT delete.
	kept, err := f.reviewRepo.GetByID(context.Background(), reviewID, business.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, kept.Status)
}

func TestModerate_CrossTenantIsNotFound(t *testing.T) {
	f := newReviewFixture(t)
	f.businessRepo.add("Acme", "acme", true)
	other := f.businessRepo.add("Rival", "rival", true)

	result, err := f.svc.Submit(context.Background(), "acme", validTextInput(), nil)
	require.NoError(t, err)
	reviewID, _ := primitive.ObjectIDFromHex(result.ReviewID)

	_, err = f.svc.Moderate(context.Background(), other.ID, reviewID, domain.ActionDelete, domain.TargetMedia)
	require.ErrorIs(t, err, ErrReviewNotFound)

	// Nothing happened to the review.
	assert.Len(t, f.reviewRepo.reviews, 1)
}
