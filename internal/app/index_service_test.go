package app

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kbretrieval/internal/ai"
	"kbretrieval/internal/pkg/extract"
)

func wordText(n int) string {
	words := make([]string, n)
	for i := range words {
		words[i] = fmt.Sprintf("word%d", i)
	}
	return strings.Join(words, " ")
}

func newIndexService(store *fakeStore, cache *fakeCache) *IndexService {
	var invalidator IndexInvalidator
	if cache != nil {
		invalidator = cache
	}
	return NewIndexService(
		store,
		store,
		ai.NewEmbedder(ai.RemoteConfig{}),
		extract.New(0),
		invalidator,
		IndexConfig{ChunkSizeWords: 500, ChunkOverlapWords: 50},
	)
}

func TestIngestChunksAndEmbeds(t *testing.T) {
	store := newFakeStore()
	cache := &fakeCache{}
	svc := newIndexService(store, cache)

	result, err := svc.Ingest(context.Background(), IngestInput{
		Category: "menu",
		Filename: "menu.txt",
		Content:  wordText(1200),
	})
	require.NoError(t, err)
	assert.Equal(t, 3, result.Document.ChunkCount)
	assert.Equal(t, ai.SourceFallback, result.EmbeddingSource)
	assert.Equal(t, 1, cache.invalidations)

	chunks, err := store.ListByDocumentID(result.Document.ID)
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	for i, c := range chunks {
		assert.Equal(t, i, c.ChunkIndex, "chunk indexes must be contiguous from zero")
		assert.Len(t, c.EmbeddingVector(), ai.FallbackDimensions)
		assert.NotEmpty(t, c.Content)
	}
}

func TestIngestRejectsEmptyContent(t *testing.T) {
	svc := newIndexService(newFakeStore(), nil)
	_, err := svc.Ingest(context.Background(), IngestInput{Category: "menu", Content: "   \n "})
	assert.ErrorIs(t, err, ErrExtractionFailed)
}

func TestIngestRejectsMissingCategory(t *testing.T) {
	svc := newIndexService(newFakeStore(), nil)
	_, err := svc.Ingest(context.Background(), IngestInput{Content: "some text"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestUploadFromPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "policies.txt")
	require.NoError(t, os.WriteFile(path, []byte("no refunds after pickup"), 0o644))

	store := newFakeStore()
	svc := newIndexService(store, nil)

	result, err := svc.UploadFromPath(context.Background(), path, "policies", "")
	require.NoError(t, err)
	assert.Equal(t, "policies.txt", result.Document.Filename)
	assert.Equal(t, "txt", result.Document.FileType)
	assert.Equal(t, int64(len("no refunds after pickup")), result.Document.FileSize)
	assert.Equal(t, 1, result.Document.ChunkCount)

	doc, err := svc.Get(result.Document.ID)
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.Equal(t, path, doc.SourcePath)
}

func TestUploadFromPathMissingFile(t *testing.T) {
	svc := newIndexService(newFakeStore(), nil)
	_, err := svc.UploadFromPath(context.Background(), filepath.Join(t.TempDir(), "gone.txt"), "menu", "")
	assert.ErrorIs(t, err, ErrFileNotFound)
}

func TestDeleteCascadesAndIsIdempotent(t *testing.T) {
	store := newFakeStore()
	cache := &fakeCache{}
	svc := newIndexService(store, cache)

	result, err := svc.Ingest(context.Background(), IngestInput{
		Category: "menu",
		Filename: "menu.txt",
		Content:  wordText(600),
	})
	require.NoError(t, err)
	id := result.Document.ID

	deleted, err := svc.Delete(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, deleted)

	chunks, err := store.ListByDocumentID(id)
	require.NoError(t, err)
	assert.Empty(t, chunks, "cascade delete must remove all chunks")

	deleted, err = svc.Delete(context.Background(), id)
	require.NoError(t, err)
	assert.False(t, deleted, "deleting an unknown id is not an error")
	assert.Equal(t, 2, cache.invalidations, "only the effective delete invalidates")
}

func TestDeleteLogsFailedInvalidation(t *testing.T) {
	store := newFakeStore()
	cache := &fakeCache{invalidateErr: fmt.Errorf("redis gone")}
	svc := newIndexService(store, cache)
	ctx := context.Background()

	result, err := svc.Ingest(ctx, IngestInput{Category: "menu", Filename: "a.txt", Content: wordText(100)})
	require.NoError(t, err)

	var buf bytes.Buffer
	prev := log.Writer()
	log.SetOutput(&buf)
	defer log.SetOutput(prev)

	deleted, err := svc.Delete(ctx, result.Document.ID)
	require.NoError(t, err, "a failed invalidation must not fail the delete")
	assert.True(t, deleted)
	assert.Contains(t, buf.String(), "invalidate retrieval cache failed")
	assert.Contains(t, buf.String(), "redis gone")
}

func TestGetUnknownDocument(t *testing.T) {
	svc := newIndexService(newFakeStore(), nil)
	doc, err := svc.Get(99)
	require.NoError(t, err)
	assert.Nil(t, doc)
}

func TestListByCategory(t *testing.T) {
	store := newFakeStore()
	svc := newIndexService(store, nil)
	ctx := context.Background()

	_, err := svc.Ingest(ctx, IngestInput{Category: "menu", Filename: "a.txt", Content: wordText(600)})
	require.NoError(t, err)
	_, err = svc.Ingest(ctx, IngestInput{Category: "policies", Filename: "b.txt", Content: wordText(100)})
	require.NoError(t, err)

	menu, err := svc.ListByCategory("menu")
	require.NoError(t, err)
	require.Len(t, menu, 1)
	assert.Equal(t, "a.txt", menu[0].Filename)
	assert.Equal(t, 2, menu[0].ChunkCount)

	all, err := svc.ListByCategory("")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestReindexReplacesChunks(t *testing.T) {
	store := newFakeStore()
	svc := newIndexService(store, nil)
	ctx := context.Background()

	result, err := svc.Ingest(ctx, IngestInput{Category: "menu", Filename: "a.txt", Content: wordText(1200)})
	require.NoError(t, err)
	before, err := store.ListByDocumentID(result.Document.ID)
	require.NoError(t, err)

	re, err := svc.Reindex(ctx, result.Document.ID)
	require.NoError(t, err)
	assert.Equal(t, result.Document.ChunkCount, re.Document.ChunkCount)

	after, err := store.ListByDocumentID(result.Document.ID)
	require.NoError(t, err)
	require.Len(t, after, len(before))
	for i := range after {
		assert.Equal(t, before[i].Content, after[i].Content, "same content and settings must rebuild identical chunks")
		assert.Equal(t, before[i].Embedding, after[i].Embedding)
	}
}

func TestReindexUnknownDocument(t *testing.T) {
	svc := newIndexService(newFakeStore(), nil)
	_, err := svc.Reindex(context.Background(), 42)
	assert.ErrorIs(t, err, ErrDocumentNotFound)
}
