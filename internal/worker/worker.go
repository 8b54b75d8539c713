package worker

import (
	"context"
	"errors"
	"fmt"
	"time"
	"truetestify/backend/internal/domain"
	"truetestify/backend/internal/queue"
	"truetestify/backend/internal/repository"

	"github.com/cenkalti/backoff/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Worker drains the transcode queue. Several loops may run concurrently;
// each payload is delivered to exactly one loop by the queue, so no
// cross-loop coordination is needed.
//
// A job failure is terminal for the job only: the asset keeps its
// placeholder metadata and the owning review's moderation status is never
// touched by transcode outcomes.
type Worker struct {
	queue          queue.JobQueue
	jobRepo        repository.TranscodeJobRepository
	assetRepo      repository.MediaAssetRepository
	businessRepo   repository.BusinessRepository
	transcoder     Transcoder
	log            *zap.Logger
	concurrency    int
	dequeueTimeout time.Duration
}

// New creates a transcode worker.
func New(
	jobQueue queue.JobQueue,
	jobRepo repository.TranscodeJobRepository,
	assetRepo repository.MediaAssetRepository,
	businessRepo repository.BusinessRepository,
	transcoder Transcoder,
	log *zap.Logger,
	concurrency int,
	dequeueTimeout time.Duration,
) *Worker {
	if concurrency < 1 {
		concurrency = 1
	}
	if dequeueTimeout <= 0 {
		dequeueTimeout = 5 * time.Second
	}
	return &Worker{
		queue:          jobQueue,
		jobRepo:        jobRepo,
		assetRepo:      assetRepo,
		businessRepo:   businessRepo,
		transcoder:     transcoder,
		log:            log.With(zap.String("module", "transcode_worker")),
		concurrency:    concurrency,
		dequeueTimeout: dequeueTimeout,
	}
}

// Run starts the worker loops and blocks until the context is canceled.
func (w *Worker) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < w.concurrency; i++ {
		g.Go(func() error {
			return w.loop(ctx)
		})
	}
	return g.Wait()
}

func (w *Worker) loop(ctx context.Context) error {
	// Back off on queue errors (Redis hiccups) instead of hot-looping.
	retry := backoff.NewExponentialBackOff()
	retry.MaxElapsedTime = 0 // Keep retrying until shutdown

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		payload, err := w.queue.Dequeue(ctx, w.dequeueTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			wait := retry.NextBackOff()
			w.log.Warn("dequeue failed, backing off",
				zap.Duration("wait", wait), zap.Error(err))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(wait):
			}
			continue
		}
		retry.Reset()

		if payload == nil {
			continue // Idle poll timeout
		}

		w.Process(ctx, *payload)
	}
}

// Process runs one job to a terminal state. Errors are absorbed into the
// job record; they never propagate to the loop.
func (w *Worker) Process(ctx context.Context, payload queue.TranscodePayload) {
	log := w.log.With(zap.String("jobId", payload.JobID), zap.String("reviewId", payload.ReviewID))

	jobID, err := primitive.ObjectIDFromHex(payload.JobID)
	if err != nil {
		log.Error("discarding payload with malformed job ID", zap.Error(err))
		return
	}

	if err := w.jobRepo.SetStatus(ctx, jobID, domain.TranscodeProcessing, ""); err != nil {
		// A vanished job record is not worth failing the payload over, but a
		// broken database is: either way the job will be visibly stuck.
		log.Error("failed to mark job processing", zap.Error(err))
	}

	if err := w.process(ctx, payload); err != nil {
		log.Warn("transcode job failed", zap.Error(err))
		if statusErr := w.jobRepo.SetStatus(ctx, jobID, domain.TranscodeFailed, err.Error()); statusErr != nil {
			log.Error("failed to mark job failed", zap.Error(statusErr))
		}
		return
	}

	if err := w.jobRepo.SetStatus(ctx, jobID, domain.TranscodeCompleted, ""); err != nil {
		log.Error("failed to mark job completed", zap.Error(err))
		return
	}
	log.Info("transcode job completed")
}

func (w *Worker) process(ctx context.Context, payload queue.TranscodePayload) error {
	businessID, err := primitive.ObjectIDFromHex(payload.BusinessID)
	if err != nil {
		return fmt.Errorf("malformed business ID %q", payload.BusinessID)
	}
	assetID, err := primitive.ObjectIDFromHex(payload.InputAssetID)
	if err != nil {
		return fmt.Errorf("malformed asset ID %q", payload.InputAssetID)
	}

	// The business or the asset may have been deleted between enqueue and
	// processing; that is fatal for the job.
	if _, err := w.businessRepo.GetByID(ctx, businessID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("business %s no longer exists", payload.BusinessID)
		}
		return err
	}

	asset, err := w.assetRepo.GetByID(ctx, assetID, businessID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("media asset %s no longer exists", payload.InputAssetID)
		}
		return err
	}

	result, err := w.transcoder.Transcode(ctx, asset.StorageKey, payload.Target)
	if err != nil {
		return err
	}

	return w.assetRepo.ApplyTranscodeResult(ctx, assetID, businessID, result.DurationSec, result.Metadata)
}
