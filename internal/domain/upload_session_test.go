package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChunkKey(t *testing.T) {
	assert.Equal(t, "00000", ChunkKey(0))
	assert.Equal(t, "00007", ChunkKey(7))
	assert.Equal(t, "00042", ChunkKey(42))
	assert.Equal(t, "12345", ChunkKey(12345))
}

func TestSortedChunks_AscendingIndexOrder(t *testing.T) {
	session := &UploadSession{
		Chunks: map[string]UploadChunk{
			ChunkKey(2): {Index: 2, StorageKey: "c", SizeBytes: 2},
			ChunkKey(0): {Index: 0, StorageKey: "a", SizeBytes: 3},
			ChunkKey(1): {Index: 1, StorageKey: "b", SizeBytes: 4},
		},
	}

	chunks := session.SortedChunks()
	assert.Equal(t, []UploadChunk{
		{Index: 0, StorageKey: "a", SizeBytes: 3},
		{Index: 1, StorageKey: "b", SizeBytes: 4},
		{Index: 2, StorageKey: "c", SizeBytes: 2},
	}, chunks)
}

func TestSortedChunks_EmptySession(t *testing.T) {
	session := &UploadSession{}
	assert.Empty(t, session.SortedChunks())
}
