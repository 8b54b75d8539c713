package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"time"
	"truetestify/backend/internal/domain"
	"truetestify/backend/internal/queue"
	"truetestify/backend/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// In-memory fakes implementing the repository, storage and queue contracts.
// They enforce the same tenant scoping and soft-delete visibility rules as
// the Mongo implementations.

// --- Business repository ---

type fakeBusinessRepo struct {
	businesses map[primitive.ObjectID]*domain.Business
}

func newFakeBusinessRepo() *fakeBusinessRepo {
	return &fakeBusinessRepo{businesses: map[primitive.ObjectID]*domain.Business{}}
}

func (r *fakeBusinessRepo) add(name, slug string, allowText bool) *domain.Business {
	b := &domain.Business{
		ID:               primitive.NewObjectID(),
		Name:             name,
		Slug:             slug,
		AllowTextReviews: allowText,
		CreatedAt:        time.Now(),
	}
	r.businesses[b.ID] = b
	return b
}

func (r *fakeBusinessRepo) Create(ctx context.Context, business *domain.Business) (primitive.ObjectID, error) {
	for _, b := range r.businesses {
		if b.Slug == business.Slug {
			return primitive.NilObjectID, repository.ErrDuplicate
		}
	}
	business.ID = primitive.NewObjectID()
	r.businesses[business.ID] = business
	return business.ID, nil
}

func (r *fakeBusinessRepo) GetBySlug(ctx context.Context, slug string) (*domain.Business, error) {
	for _, b := range r.businesses {
		if b.Slug == slug && b.DeletedAt == nil {
			return b, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeBusinessRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Business, error) {
	b, ok := r.businesses[id]
	if !ok || b.DeletedAt != nil {
		return nil, repository.ErrNotFound
	}
	return b, nil
}

// --- User repository ---

type fakeUserRepo struct {
	users map[primitive.ObjectID]*domain.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[primitive.ObjectID]*domain.User{}}
}

func (r *fakeUserRepo) Create(ctx context.Context, user *domain.User) (primitive.ObjectID, error) {
	for _, u := range r.users {
		if u.Email == user.Email {
			return primitive.NilObjectID, repository.ErrDuplicate
		}
	}
	stored := *user
	stored.ID = primitive.NewObjectID()
	r.users[stored.ID] = &stored
	return stored.ID, nil
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	for _, u := range r.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *u
	return &copied, nil
}

// --- Review repository ---

type fakeReviewRepo struct {
	reviews       map[primitive.ObjectID]*domain.Review
	hardDeleteErr error
}

func newFakeReviewRepo() *fakeReviewRepo {
	return &fakeReviewRepo{reviews: map[primitive.ObjectID]*domain.Review{}}
}

func (r *fakeReviewRepo) Create(ctx context.Context, review *domain.Review) (primitive.ObjectID, error) {
	stored := *review
	stored.ID = primitive.NewObjectID()
	stored.UpdatedAt = time.Now()
	r.reviews[stored.ID] = &stored
	return stored.ID, nil
}

func (r *fakeReviewRepo) find(id, businessID primitive.ObjectID) (*domain.Review, error) {
	review, ok := r.reviews[id]
	if !ok || review.BusinessID != businessID || review.DeletedAt != nil {
		return nil, repository.ErrNotFound
	}
	return review, nil
}

func (r *fakeReviewRepo) GetByID(ctx context.Context, id, businessID primitive.ObjectID) (*domain.Review, error) {
	review, err := r.find(id, businessID)
	if err != nil {
		return nil, err
	}
	copied := *review
	return &copied, nil
}

func (r *fakeReviewRepo) ListByBusiness(ctx context.Context, businessID primitive.ObjectID, status *domain.ReviewStatus) ([]domain.Review, error) {
	var out []domain.Review
	for _, review := range r.reviews {
		if review.BusinessID != businessID || review.DeletedAt != nil {
			continue
		}
		if status != nil && review.Status != *status {
			continue
		}
		out = append(out, *review)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SubmittedAt.After(out[j].SubmittedAt) })
	return out, nil
}

func (r *fakeReviewRepo) UpdateFields(ctx context.Context, id, businessID primitive.ObjectID, patch repository.ReviewPatch) (*domain.Review, error) {
	review, err := r.find(id, businessID)
	if err != nil {
		return nil, err
	}
	if patch.Title != nil {
		review.Title = *patch.Title
	}
	if patch.ReviewerName != nil {
		review.ReviewerName = *patch.ReviewerName
	}
	if patch.ReviewerContact != nil {
		review.ReviewerContact = patch.ReviewerContact
	}
	if patch.BodyText != nil {
		review.BodyText = *patch.BodyText
	}
	if patch.Rating != nil {
		review.Rating = *patch.Rating
	}
	review.UpdatedAt = time.Now()
	copied := *review
	return &copied, nil
}

func (r *fakeReviewRepo) SetStatus(ctx context.Context, id, businessID primitive.ObjectID, status domain.ReviewStatus) (*domain.Review, error) {
	review, err := r.find(id, businessID)
	if err != nil {
		return nil, err
	}
	review.Status = status
	review.UpdatedAt = time.Now()
	copied := *review
	return &copied, nil
}

func (r *fakeReviewRepo) SetTextStatus(ctx context.Context, id, businessID primitive.ObjectID, status domain.ReviewStatus) (*domain.Review, error) {
	review, err := r.find(id, businessID)
	if err != nil {
		return nil, err
	}
	review.TextStatus = status
	review.UpdatedAt = time.Now()
	copied := *review
	return &copied, nil
}

func (r *fakeReviewRepo) SoftDelete(ctx context.Context, id, businessID primitive.ObjectID) error {
	review, err := r.find(id, businessID)
	if err != nil {
		return err
	}
	now := time.Now()
	review.DeletedAt = &now
	return nil
}

func (r *fakeReviewRepo) HardDelete(ctx context.Context, id, businessID primitive.ObjectID) error {
	if r.hardDeleteErr != nil {
		return r.hardDeleteErr
	}
	if _, err := r.find(id, businessID); err != nil {
		return err
	}
	delete(r.reviews, id)
	return nil
}

// --- Media asset repository ---

type fakeAssetRepo struct {
	assets              map[primitive.ObjectID]*domain.MediaAsset
	listByReviewIDCalls int
}

func newFakeAssetRepo() *fakeAssetRepo {
	return &fakeAssetRepo{assets: map[primitive.ObjectID]*domain.MediaAsset{}}
}

func (r *fakeAssetRepo) Create(ctx context.Context, asset *domain.MediaAsset) (primitive.ObjectID, error) {
	stored := *asset
	stored.ID = primitive.NewObjectID()
	r.assets[stored.ID] = &stored
	return stored.ID, nil
}

func (r *fakeAssetRepo) GetByID(ctx context.Context, id, businessID primitive.ObjectID) (*domain.MediaAsset, error) {
	asset, ok := r.assets[id]
	if !ok || asset.BusinessID != businessID || asset.DeletedAt != nil {
		return nil, repository.ErrNotFound
	}
	copied := *asset
	return &copied, nil
}

func (r *fakeAssetRepo) GetByReviewID(ctx context.Context, reviewID, businessID primitive.ObjectID) (*domain.MediaAsset, error) {
	for _, asset := range r.assets {
		if asset.ReviewID == reviewID && asset.BusinessID == businessID && asset.DeletedAt == nil {
			copied := *asset
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeAssetRepo) ListByReviewIDs(ctx context.Context, businessID primitive.ObjectID, reviewIDs []primitive.ObjectID) (map[primitive.ObjectID]domain.MediaAsset, error) {
	r.listByReviewIDCalls++
	out := make(map[primitive.ObjectID]domain.MediaAsset, len(reviewIDs))
	for _, reviewID := range reviewIDs {
		for _, asset := range r.assets {
			if asset.ReviewID == reviewID && asset.BusinessID == businessID && asset.DeletedAt == nil {
				out[reviewID] = *asset
			}
		}
	}
	return out, nil
}

func (r *fakeAssetRepo) ApplyTranscodeResult(ctx context.Context, id, businessID primitive.ObjectID, durationSec float64, metadata map[string]string) error {
	asset, ok := r.assets[id]
	if !ok || asset.BusinessID != businessID {
		return repository.ErrNotFound
	}
	asset.DurationSec = &durationSec
	asset.Metadata = metadata
	return nil
}

func (r *fakeAssetRepo) DeleteByReviewID(ctx context.Context, reviewID, businessID primitive.ObjectID) ([]domain.MediaAsset, error) {
	var deleted []domain.MediaAsset
	for id, asset := range r.assets {
		if asset.ReviewID == reviewID && asset.BusinessID == businessID {
			deleted = append(deleted, *asset)
			delete(r.assets, id)
		}
	}
	return deleted, nil
}

func (r *fakeAssetRepo) countForReview(reviewID primitive.ObjectID) int {
	n := 0
	for _, asset := range r.assets {
		if asset.ReviewID == reviewID {
			n++
		}
	}
	return n
}

// --- Transcode job repository ---

type fakeJobRepo struct {
	jobs map[primitive.ObjectID]*domain.TranscodeJob
}

func newFakeJobRepo() *fakeJobRepo {
	return &fakeJobRepo{jobs: map[primitive.ObjectID]*domain.TranscodeJob{}}
}

func (r *fakeJobRepo) Create(ctx context.Context, job *domain.TranscodeJob) (primitive.ObjectID, error) {
	stored := *job
	stored.ID = primitive.NewObjectID()
	r.jobs[stored.ID] = &stored
	return stored.ID, nil
}

func (r *fakeJobRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.TranscodeJob, error) {
	job, ok := r.jobs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *job
	return &copied, nil
}

func (r *fakeJobRepo) SetStatus(ctx context.Context, id primitive.ObjectID, status domain.TranscodeStatus, errMsg string) error {
	job, ok := r.jobs[id]
	if !ok {
		return repository.ErrNotFound
	}
	job.Status = status
	if status == domain.TranscodeFailed {
		job.Error = errMsg
	} else {
		job.Error = ""
	}
	return nil
}

// --- Upload session repository ---

type fakeSessionRepo struct {
	sessions map[primitive.ObjectID]*domain.UploadSession
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: map[primitive.ObjectID]*domain.UploadSession{}}
}

func (r *fakeSessionRepo) AppendChunk(ctx context.Context, businessID, reviewID primitive.ObjectID, chunk domain.UploadChunk) error {
	session, ok := r.sessions[reviewID]
	if !ok {
		session = &domain.UploadSession{
			ID:         primitive.NewObjectID(),
			BusinessID: businessID,
			ReviewID:   reviewID,
		}
		r.sessions[reviewID] = session
	}
	if session.Chunks == nil {
		session.Chunks = map[string]domain.UploadChunk{}
	}
	// Last write wins per index.
	session.Chunks[domain.ChunkKey(chunk.Index)] = chunk
	return nil
}

func (r *fakeSessionRepo) GetByReviewID(ctx context.Context, reviewID, businessID primitive.ObjectID) (*domain.UploadSession, error) {
	session, ok := r.sessions[reviewID]
	if !ok || session.BusinessID != businessID {
		return nil, repository.ErrNotFound
	}
	copied := *session
	copied.Chunks = make(map[string]domain.UploadChunk, len(session.Chunks))
	for k, c := range session.Chunks {
		copied.Chunks[k] = c
	}
	return &copied, nil
}

func (r *fakeSessionRepo) Delete(ctx context.Context, reviewID, businessID primitive.ObjectID) error {
	session, ok := r.sessions[reviewID]
	if !ok || session.BusinessID != businessID {
		return repository.ErrNotFound
	}
	delete(r.sessions, reviewID)
	return nil
}

// --- Blob storage ---

type fakeObject struct {
	data        []byte
	contentType string
}

type fakeStorage struct {
	objects map[string]fakeObject
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{objects: map[string]fakeObject{}}
}

func (s *fakeStorage) Upload(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	s.objects[key] = fakeObject{data: data, contentType: contentType}
	return nil
}

func (s *fakeStorage) Copy(ctx context.Context, srcKey, dstKey string) error {
	obj, ok := s.objects[srcKey]
	if !ok {
		return fmt.Errorf("object %s not found", srcKey)
	}
	s.objects[dstKey] = obj
	return nil
}

func (s *fakeStorage) Compose(ctx context.Context, dstKey string, srcKeys []string, contentType string) (int64, error) {
	var buf bytes.Buffer
	for _, key := range srcKeys {
		obj, ok := s.objects[key]
		if !ok {
			return 0, fmt.Errorf("object %s not found", key)
		}
		buf.Write(obj.data)
	}
	s.objects[dstKey] = fakeObject{data: buf.Bytes(), contentType: contentType}
	return int64(buf.Len()), nil
}

func (s *fakeStorage) DeleteObject(ctx context.Context, objectKey string) error {
	delete(s.objects, objectKey)
	return nil
}

func (s *fakeStorage) GeneratePresignedDownloadURL(ctx context.Context, objectKey string, expires time.Duration) (string, error) {
	if _, ok := s.objects[objectKey]; !ok {
		return "", fmt.Errorf("object %s not found", objectKey)
	}
	return "https://storage.test/" + objectKey, nil
}

func (s *fakeStorage) GeneratePresignedUploadURL(ctx context.Context, objectKey string, contentType string, expires time.Duration) (string, error) {
	return "https://storage.test/upload/" + objectKey, nil
}

// --- Job queue ---

type fakeQueue struct {
	payloads []queue.TranscodePayload
}

func (q *fakeQueue) Enqueue(ctx context.Context, payload queue.TranscodePayload) error {
	q.payloads = append(q.payloads, payload)
	return nil
}

func (q *fakeQueue) Dequeue(ctx context.Context, timeout time.Duration) (*queue.TranscodePayload, error) {
	if len(q.payloads) == 0 {
		return nil, nil
	}
	payload := q.payloads[0]
	q.payloads = q.payloads[1:]
	return &payload, nil
}

func (q *fakeQueue) Close() error { return nil }
