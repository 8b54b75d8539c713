package service

import (
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"truetestify/backend/internal/domain"
)

// Allowed upload MIME types per review type. Browser recorders append codec
// parameters ("video/webm;codecs=vp8,opus"), so declared types are
// normalized before comparison.
var (
	allowedVideoMimetypes = []string{"video/webm", "video/mp4", "video/quicktime"}
	allowedAudioMimetypes = []string{"audio/webm", "audio/mpeg", "audio/wav"}
)

// normalizeMimetype strips codec parameters from a declared content type.
func normalizeMimetype(mimetype string) string {
	normalized, _, _ := strings.Cut(mimetype, ";")
	return strings.ToLower(strings.TrimSpace(normalized))
}

func allowedMimetypesFor(t domain.ReviewType) []string {
	if t == domain.ReviewTypeVideo {
		return allowedVideoMimetypes
	}
	return allowedAudioMimetypes
}

func mimetypeAllowed(t domain.ReviewType, contentType string) bool {
	normalized := normalizeMimetype(contentType)
	for _, allowed := range allowedMimetypesFor(t) {
		if normalized == allowed {
			return true
		}
	}
	return false
}

// defaultMimetypeFor is the content type assumed for chunked uploads, which
// carry no declared type of their own.
func defaultMimetypeFor(t domain.ReviewType) string {
	if t == domain.ReviewTypeVideo {
		return "video/mp4"
	}
	return "audio/mpeg"
}

// extensionForMimetype picks a file extension for the final storage key.
func extensionForMimetype(mimetype string) string {
	switch normalizeMimetype(mimetype) {
	case "video/webm", "audio/webm":
		return "webm"
	case "video/mp4":
		return "mp4"
	case "video/quicktime":
		return "mov"
	case "audio/mpeg":
		return "mp3"
	case "audio/wav":
		return "wav"
	default:
		return "bin"
	}
}

// mediaObjectKey builds the final storage key for a review's media object.
// The key is scoped by tenant and review and carries a random component so
// it can never be guessed from IDs alone.
func mediaObjectKey(businessID, reviewID primitive.ObjectID, reviewType domain.ReviewType, contentType string) string {
	return path.Join(
		"reviews", string(reviewType), businessID.Hex(), reviewID.Hex(),
		fmt.Sprintf("%s.%s", uuid.NewString(), extensionForMimetype(contentType)),
	)
}

// chunkObjectKey builds the deterministic sub-key one chunk is stored under.
// Fixed-width index formatting keeps lexical and numeric order aligned.
func chunkObjectKey(businessID, reviewID primitive.ObjectID, index int) string {
	return path.Join(
		"uploads", "chunks", businessID.Hex(), reviewID.Hex(),
		fmt.Sprintf("chunk-%05d", index),
	)
}
