package worker

import (
	"context"
	"fmt"
	"strings"
	"truetestify/backend/internal/domain"
	"truetestify/backend/internal/storage"
)

// TranscodeResult is what a Transcoder produces for one asset.
type TranscodeResult struct {
	OutputKey   string
	DurationSec float64
	Metadata    map[string]string // Resolution, bitrate etc., keyed by attribute name
}

// Transcoder is the pluggable encode capability of the worker. The job
// orchestration in this package is independent of how the media is actually
// converted; swapping in a real encoder (ffmpeg, a cloud transcoder) only
// requires implementing this interface.
type Transcoder interface {
	Transcode(ctx context.Context, inputKey, target string) (*TranscodeResult, error)
}

const processedPrefix = "reviews/processed/"

// copyTranscoder is the reference stand-in: it copies the raw object to the
// processed prefix and derives metadata from the target profile. Having no
// decoder, it reports a nominal duration estimate; a real implementation
// would extract the true duration from the container.
type copyTranscoder struct {
	store storage.FileStorage
}

// NewCopyTranscoder returns the copy-based reference transcoder.
func NewCopyTranscoder(store storage.FileStorage) Transcoder {
	return &copyTranscoder{store: store}
}

func (t *copyTranscoder) Transcode(ctx context.Context, inputKey, target string) (*TranscodeResult, error) {
	outputKey := processedPrefix + strings.TrimPrefix(inputKey, "reviews/")

	if err := t.store.Copy(ctx, inputKey, outputKey); err != nil {
		return nil, fmt.Errorf("copy %s to processed: %w", inputKey, err)
	}

	metadata := map[string]string{"bitrate": "128kbps"}
	if target == domain.Target720p {
		metadata = map[string]string{
			"resolution": "1280x720",
			"bitrate":    "1.5Mbps",
		}
	}

	return &TranscodeResult{
		OutputKey:   outputKey,
		DurationSec: 30, // Nominal estimate; the copy stand-in cannot probe the media
		Metadata:    metadata,
	}, nil
}
