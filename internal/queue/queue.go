package queue

import (
	"context"
	"time"
)

// TranscodePayload is the wire format of one transcode unit of work.
// JobID references the mirrored TranscodeJob record so the worker can
// report status transitions.
type TranscodePayload struct {
	JobID        string `json:"jobId"`
	BusinessID   string `json:"businessId"`
	ReviewID     string `json:"reviewId"`
	InputAssetID string `json:"inputAssetId"`
	Target       string `json:"target"` // e.g. "720p", "audio_mp3"
}

// JobQueue is the transcode queue contract. It is passed explicitly into
// the services that enqueue work; there is no ambient queue singleton.
//
// Delivery semantics are those of the backing queue infrastructure; the
// core only requires that two workers never receive the same payload.
type JobQueue interface {
	// Enqueue submits one job. Implementations must bound the call with the
	// context deadline and surface failure rather than hang the request.
	Enqueue(ctx context.Context, payload TranscodePayload) error

	// Dequeue blocks up to timeout for the next job. A nil payload with a
	// nil error means the timeout elapsed with nothing to do.
	Dequeue(ctx context.Context, timeout time.Duration) (*TranscodePayload, error)

	Close() error
}
