package app

import (
	"context"
	"fmt"
	"sort"
	"time"

	"kbretrieval/internal/ai"
	"kbretrieval/internal/model"
)

// fakeStore backs DocumentStore and ChunkStore in memory for service tests.
type fakeStore struct {
	docs   map[uint]model.Document
	chunks map[uint][]model.Chunk
	nextID uint
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		docs:   make(map[uint]model.Document),
		chunks: make(map[uint][]model.Chunk),
	}
}

func (f *fakeStore) CreateWithChunks(doc *model.Document, chunks []model.Chunk) error {
	f.nextID++
	doc.ID = f.nextID
	doc.CreatedAt = time.Now()
	f.docs[doc.ID] = *doc
	stored := make([]model.Chunk, len(chunks))
	for i, c := range chunks {
		c.DocumentID = doc.ID
		stored[i] = c
	}
	f.chunks[doc.ID] = stored
	return nil
}

func (f *fakeStore) ReplaceChunks(documentID uint, chunks []model.Chunk) error {
	if _, ok := f.docs[documentID]; !ok {
		return fmt.Errorf("replace chunks: document %d missing", documentID)
	}
	stored := make([]model.Chunk, len(chunks))
	for i, c := range chunks {
		c.DocumentID = documentID
		stored[i] = c
	}
	f.chunks[documentID] = stored
	return nil
}

func (f *fakeStore) GetByID(id uint) (*model.Document, error) {
	doc, ok := f.docs[id]
	if !ok {
		return nil, nil
	}
	return &doc, nil
}

func (f *fakeStore) ListByCategory(category string) ([]model.Document, error) {
	var out []model.Document
	for _, d := range f.docs {
		if category == "" || d.Category == category {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (f *fakeStore) DeleteWithChunks(id uint) (bool, error) {
	if _, ok := f.docs[id]; !ok {
		return false, nil
	}
	delete(f.docs, id)
	delete(f.chunks, id)
	return true, nil
}

func (f *fakeStore) ListByDocumentIDs(documentIDs []uint) ([]model.Chunk, error) {
	var out []model.Chunk
	for _, id := range documentIDs {
		out = append(out, f.chunks[id]...)
	}
	return out, nil
}

func (f *fakeStore) ListByDocumentID(documentID uint) ([]model.Chunk, error) {
	chunks := append([]model.Chunk(nil), f.chunks[documentID]...)
	sort.Slice(chunks, func(i, j int) bool { return chunks[i].ChunkIndex < chunks[j].ChunkIndex })
	return chunks, nil
}

func (f *fakeStore) CountByDocumentIDs(documentIDs []uint) (map[uint]int, error) {
	counts := make(map[uint]int)
	for _, id := range documentIDs {
		if n := len(f.chunks[id]); n > 0 {
			counts[id] = n
		}
	}
	return counts, nil
}

// fakeCache records invalidations and serves a primed result set.
type fakeCache struct {
	invalidations int
	invalidateErr error
	primed        []Match
	primedSource  ai.EmbeddingSource
	lastSet       []Match
	lastSetSource ai.EmbeddingSource
}

func (f *fakeCache) Invalidate(ctx context.Context) error {
	f.invalidations++
	if f.invalidateErr != nil {
		return f.invalidateErr
	}
	f.primed = nil
	return nil
}

func (f *fakeCache) GetMatches(ctx context.Context, query string, topK int, category string) ([]Match, ai.EmbeddingSource, bool, error) {
	if f.primed == nil {
		return nil, "", false, nil
	}
	return f.primed, f.primedSource, true, nil
}

func (f *fakeCache) SetMatches(ctx context.Context, query string, topK int, category string, matches []Match, source ai.EmbeddingSource) error {
	f.lastSet = matches
	f.lastSetSource = source
	return nil
}

// stubEmbedder returns preset vectors per text, defaulting to the
// deterministic fallback backend. It counts Embed calls so tests can assert
// when no embedding happened at all.
type stubEmbedder struct {
	vectors    map[string][]float32
	embedCalls int
}

func (s *stubEmbedder) Embed(ctx context.Context, text string) ai.Embedding {
	s.embedCalls++
	if v, ok := s.vectors[text]; ok {
		return ai.Embedding{Vector: v, Source: ai.SourceRemote}
	}
	return ai.Embedding{Vector: ai.FallbackEmbed(text), Source: ai.SourceFallback}
}

func (s *stubEmbedder) EmbedAll(ctx context.Context, texts []string) []ai.Embedding {
	out := make([]ai.Embedding, len(texts))
	for i, t := range texts {
		out[i] = s.Embed(ctx, t)
	}
	return out
}
