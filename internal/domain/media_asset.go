package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MediaAsset stores metadata about one binary object uploaded for a review.
// The actual bytes live in the blob store under StorageKey.
//
// Lifecycle: created at upload finalize time with a nil duration and empty
// metadata, then mutated exactly once by the transcode worker when its job
// completes. No other actor writes to it.
type MediaAsset struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	BusinessID  primitive.ObjectID `bson:"businessId" json:"businessId"` // Denormalized for tenant-scoped queries
	ReviewID    primitive.ObjectID `bson:"reviewId" json:"reviewId"`
	AssetType   string             `bson:"assetType" json:"assetType"` // Full MIME type as declared at upload
	StorageKey  string             `bson:"storageKey" json:"-"`        // Opaque blob store key, never exposed directly
	SizeBytes   int64              `bson:"sizeBytes" json:"sizeBytes"`
	DurationSec *float64           `bson:"durationSec,omitempty" json:"durationSec,omitempty"` // Unknown until transcoding completes
	Metadata    map[string]string  `bson:"metadata,omitempty" json:"metadata,omitempty"`       // Resolution, bitrate - populated post-transcode
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt" json:"updatedAt"`
	DeletedAt   *time.Time         `bson:"deletedAt,omitempty" json:"-"`
}
