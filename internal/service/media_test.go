package service

import (
	"strings"
	"testing"
	"truetestify/backend/internal/domain"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestMimetypeAllowed_StripsCodecParameters(t *testing.T) {
	assert.True(t, mimetypeAllowed(domain.ReviewTypeVideo, "video/webm;codecs=vp8,opus"))
	assert.True(t, mimetypeAllowed(domain.ReviewTypeVideo, "VIDEO/MP4"))
	assert.True(t, mimetypeAllowed(domain.ReviewTypeAudio, "audio/wav"))
	assert.False(t, mimetypeAllowed(domain.ReviewTypeVideo, "audio/webm"))
	assert.False(t, mimetypeAllowed(domain.ReviewTypeAudio, "video/mp4"))
	assert.False(t, mimetypeAllowed(domain.ReviewTypeVideo, "video/x-msvideo"))
}

func TestExtensionForMimetype(t *testing.T) {
	assert.Equal(t, "webm", extensionForMimetype("video/webm;codecs=vp9"))
	assert.Equal(t, "mp4", extensionForMimetype("video/mp4"))
	assert.Equal(t, "mov", extensionForMimetype("video/quicktime"))
	assert.Equal(t, "mp3", extensionForMimetype("audio/mpeg"))
	assert.Equal(t, "wav", extensionForMimetype("audio/wav"))
	assert.Equal(t, "bin", extensionForMimetype("application/pdf"))
}

func TestMediaObjectKey_ScopedAndUnique(t *testing.T) {
	businessID := primitive.NewObjectID()
	reviewID := primitive.NewObjectID()

	key1 := mediaObjectKey(businessID, reviewID, domain.ReviewTypeVideo, "video/mp4")
	key2 := mediaObjectKey(businessID, reviewID, domain.ReviewTypeVideo, "video/mp4")

	prefix := "reviews/video/" + businessID.Hex() + "/" + reviewID.Hex() + "/"
	assert.True(t, strings.HasPrefix(key1, prefix))
	assert.True(t, strings.HasSuffix(key1, ".mp4"))
	assert.NotEqual(t, key1, key2, "keys carry a random component")
}

func TestChunkObjectKey_LexicalOrderMatchesNumeric(t *testing.T) {
	businessID := primitive.NewObjectID()
	reviewID := primitive.NewObjectID()

	key2 := chunkObjectKey(businessID, reviewID, 2)
	key10 := chunkObjectKey(businessID, reviewID, 10)
	assert.True(t, key2 < key10)
	assert.True(t, strings.HasSuffix(key2, "chunk-00002"))
}
