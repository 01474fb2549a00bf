package app

import (
	"context"
	"sort"
	"strings"

	"kbretrieval/internal/ai"
	"kbretrieval/internal/model"
)

const defaultTopK = 5

// Match is one retrieval hit: the chunk text with its owning document's
// metadata and the similarity score against the query.
type Match struct {
	DocumentID uint    `json:"document_id"`
	ChunkIndex int     `json:"chunk_index"`
	Content    string  `json:"content"`
	Filename   string  `json:"filename"`
	Category   string  `json:"category"`
	Score      float32 `json:"score"`
}

// ResultCache caches scored retrieval results together with the backend that
// embedded the original query, so a hit skips the embedding round-trip
// entirely. Implementations must drop cached entries when Invalidate is
// called so writes are never shadowed.
type ResultCache interface {
	IndexInvalidator
	GetMatches(ctx context.Context, query string, topK int, category string) ([]Match, ai.EmbeddingSource, bool, error)
	SetMatches(ctx context.Context, query string, topK int, category string, matches []Match, source ai.EmbeddingSource) error
}

type RetrieveInput struct {
	Query    string
	TopK     int
	Category string // empty = search all categories
}

// RetrieveResult reports the matches and which backend embedded the query.
type RetrieveResult struct {
	Matches     []Match            `json:"matches"`
	QuerySource ai.EmbeddingSource `json:"query_source"`
}

// RetrievalService answers top-K similarity queries with a linear scan over
// all stored chunk vectors.
type RetrievalService struct {
	docs     DocumentStore
	chunks   ChunkStore
	embedder TextEmbedder
	cache    ResultCache
}

func NewRetrievalService(docs DocumentStore, chunks ChunkStore, embedder TextEmbedder, cache ResultCache) *RetrievalService {
	return &RetrievalService{
		docs:     docs,
		chunks:   chunks,
		embedder: embedder,
		cache:    cache,
	}
}

// Retrieve embeds the query and returns the topK most similar chunks in
// descending score order. An empty index yields an empty result, never an
// error. The order among exactly-equal scores is unspecified.
func (s *RetrievalService) Retrieve(ctx context.Context, input RetrieveInput) (*RetrieveResult, error) {
	query := strings.TrimSpace(input.Query)
	if query == "" {
		return nil, ErrInvalidInput
	}
	topK := input.TopK
	if topK <= 0 {
		topK = defaultTopK
	}
	category := strings.TrimSpace(input.Category)

	if s.cache != nil {
		if cached, source, hit, err := s.cache.GetMatches(ctx, query, topK, category); err == nil && hit {
			return &RetrieveResult{Matches: cached, QuerySource: source}, nil
		}
	}

	queryEmb := s.embedder.Embed(ctx, query)

	docs, err := s.docs.ListByCategory(category)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return &RetrieveResult{Matches: []Match{}, QuerySource: queryEmb.Source}, nil
	}

	docByID := make(map[uint]model.Document, len(docs))
	ids := make([]uint, len(docs))
	for i, d := range docs {
		ids[i] = d.ID
		docByID[d.ID] = d
	}

	allChunks, err := s.chunks.ListByDocumentIDs(ids)
	if err != nil {
		return nil, err
	}
	if len(allChunks) == 0 {
		return &RetrieveResult{Matches: []Match{}, QuerySource: queryEmb.Source}, nil
	}

	matches := make([]Match, len(allChunks))
	for i := range allChunks {
		c := &allChunks[i]
		doc := docByID[c.DocumentID]
		matches[i] = Match{
			DocumentID: c.DocumentID,
			ChunkIndex: c.ChunkIndex,
			Content:    c.Content,
			Filename:   doc.Filename,
			Category:   doc.Category,
			Score:      cosineSimilarity(queryEmb.Vector, c.EmbeddingVector()),
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if topK < len(matches) {
		matches = matches[:topK]
	}

	if s.cache != nil {
		_ = s.cache.SetMatches(ctx, query, topK, category, matches, queryEmb.Source)
	}
	return &RetrieveResult{Matches: matches, QuerySource: queryEmb.Source}, nil
}
