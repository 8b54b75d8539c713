package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TranscodeStatus is the lifecycle state of an asynchronous transcode job.
type TranscodeStatus string

const (
	TranscodeQueued     TranscodeStatus = "queued"
	TranscodeProcessing TranscodeStatus = "processing"
	TranscodeCompleted  TranscodeStatus = "completed"
	TranscodeFailed     TranscodeStatus = "failed"
)

// Transcode target profiles. Video uploads are normalized to 720p,
// audio uploads to MP3.
const (
	Target720p     = "720p"
	TargetAudioMP3 = "audio_mp3"
)

// TranscodeJob mirrors one queued transcode unit of work in the database so
// operators can inspect job state and failures after the fact. Completed and
// failed are terminal; the core never retries a job on its own.
type TranscodeJob struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	BusinessID   primitive.ObjectID `bson:"businessId" json:"businessId"`
	ReviewID     primitive.ObjectID `bson:"reviewId" json:"reviewId"`
	InputAssetID primitive.ObjectID `bson:"inputAssetId" json:"inputAssetId"`
	Target       string             `bson:"target" json:"target"` // Target720p or TargetAudioMP3
	Status       TranscodeStatus    `bson:"status" json:"status"`
	Error        string             `bson:"error,omitempty" json:"error,omitempty"` // Set iff Status == failed
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// TargetForType returns the transcode profile used for a review type.
func TargetForType(t ReviewType) string {
	if t == ReviewTypeVideo {
		return Target720p
	}
	return TargetAudioMP3
}
