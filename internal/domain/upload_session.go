package domain

import (
	"fmt"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UploadChunk records one received chunk of an in-progress chunked upload.
type UploadChunk struct {
	Index      int    `bson:"index" json:"index"`
	StorageKey string `bson:"storageKey" json:"-"` // Per-chunk sub-key in the blob store
	SizeBytes  int64  `bson:"sizeBytes" json:"sizeBytes"`
}

// ChunkKey is the map key a chunk is stored under in its session. Keying by
// index makes a re-sent chunk a plain field overwrite, so concurrent retries
// of the same index can never leave two entries behind. Zero-padded to match
// the chunk object key format.
func ChunkKey(index int) string {
	return fmt.Sprintf("%05d", index)
}

// UploadSession tracks the chunks received for one review's media upload.
// It is ephemeral plumbing, not a business entity: finalize consumes it to
// assemble the MediaAsset and then deletes it. A session whose review is
// never finalized is simply left orphaned.
type UploadSession struct {
	ID         primitive.ObjectID     `bson:"_id,omitempty" json:"id"`
	BusinessID primitive.ObjectID     `bson:"businessId" json:"businessId"`
	ReviewID   primitive.ObjectID     `bson:"reviewId" json:"reviewId"` // One session per review
	Chunks     map[string]UploadChunk `bson:"chunks" json:"chunks"`     // Keyed by ChunkKey(index)
	CreatedAt  time.Time              `bson:"createdAt" json:"createdAt"`
	UpdatedAt  time.Time              `bson:"updatedAt" json:"updatedAt"`
}

// SortedChunks returns the session's chunks in ascending index order, the
// order finalize assembles them in.
func (s *UploadSession) SortedChunks() []UploadChunk {
	chunks := make([]UploadChunk, 0, len(s.Chunks))
	for _, c := range s.Chunks {
		chunks = append(chunks, c)
	}
	sort.Slice(chunks, func(i, j int) bool { return chunks[i].Index < chunks[j].Index })
	return chunks
}
