package app

import (
	"context"
	"errors"
	"log"
	"os"
	"path/filepath"
	"strings"

	"kbretrieval/internal/ai"
	"kbretrieval/internal/model"
	"kbretrieval/internal/pkg/chunker"
	"kbretrieval/internal/pkg/extract"
)

var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrFileNotFound     = errors.New("source file not found")
	ErrExtractionFailed = errors.New("no text could be extracted from file")
	ErrDocumentNotFound = errors.New("document not found")
)

// DocumentStore is the persistence surface the indexing side needs. The
// create/replace/delete operations are transactional over document+chunks.
type DocumentStore interface {
	CreateWithChunks(doc *model.Document, chunks []model.Chunk) error
	ReplaceChunks(documentID uint, chunks []model.Chunk) error
	GetByID(id uint) (*model.Document, error)
	ListByCategory(category string) ([]model.Document, error)
	DeleteWithChunks(id uint) (bool, error)
}

type ChunkStore interface {
	ListByDocumentIDs(documentIDs []uint) ([]model.Chunk, error)
	ListByDocumentID(documentID uint) ([]model.Chunk, error)
	CountByDocumentIDs(documentIDs []uint) (map[uint]int, error)
}

// TextEmbedder produces a vector for any text; it never fails (remote
// backends degrade to the deterministic fallback).
type TextEmbedder interface {
	Embed(ctx context.Context, text string) ai.Embedding
	EmbedAll(ctx context.Context, texts []string) []ai.Embedding
}

// IndexInvalidator is notified after any write so cached retrieval results
// are not served against a changed index.
type IndexInvalidator interface {
	Invalidate(ctx context.Context) error
}

type IndexConfig struct {
	ChunkSizeWords    int
	ChunkOverlapWords int
}

type IndexService struct {
	docs        DocumentStore
	chunks      ChunkStore
	embedder    TextEmbedder
	extractor   *extract.Extractor
	invalidator IndexInvalidator
	cfg         IndexConfig
}

func NewIndexService(
	docs DocumentStore,
	chunks ChunkStore,
	embedder TextEmbedder,
	extractor *extract.Extractor,
	invalidator IndexInvalidator,
	cfg IndexConfig,
) *IndexService {
	if cfg.ChunkSizeWords <= 0 {
		cfg.ChunkSizeWords = chunker.DefaultSizeWords
	}
	if cfg.ChunkOverlapWords < 0 {
		cfg.ChunkOverlapWords = chunker.DefaultOverlapWords
	}
	return &IndexService{
		docs:        docs,
		chunks:      chunks,
		embedder:    embedder,
		extractor:   extractor,
		invalidator: invalidator,
		cfg:         cfg,
	}
}

// IngestInput adds a document from already-extracted text.
type IngestInput struct {
	Category   string
	Filename   string
	Content    string
	SourcePath string
	FileSize   int64
	FileType   string
}

// UploadResult summarizes a newly indexed document. EmbeddingSource reports
// whether the chunk vectors came from the remote backend or the deterministic
// fallback.
type UploadResult struct {
	Document        model.DocumentSummary `json:"document"`
	EmbeddingSource ai.EmbeddingSource    `json:"embedding_source"`
}

// UploadFromPath reads a server-local file, extracts its text and indexes it.
func (s *IndexService) UploadFromPath(ctx context.Context, path, category, filename string) (*UploadResult, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrFileNotFound
		}
		return nil, err
	}

	content, err := s.extractor.FromFile(path)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(filename) == "" {
		filename = filepath.Base(path)
	}
	return s.Ingest(ctx, IngestInput{
		Category:   category,
		Filename:   filename,
		Content:    content,
		SourcePath: path,
		FileSize:   info.Size(),
		FileType:   strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), "."),
	})
}

// Ingest chunks the content, embeds each chunk, and persists document plus
// chunks atomically.
func (s *IndexService) Ingest(ctx context.Context, input IngestInput) (*UploadResult, error) {
	content := strings.TrimSpace(input.Content)
	if content == "" {
		return nil, ErrExtractionFailed
	}
	category := strings.TrimSpace(input.Category)
	if category == "" {
		return nil, ErrInvalidInput
	}
	filename := strings.TrimSpace(input.Filename)
	if filename == "" {
		filename = "untitled"
	}

	pieces, embedded, err := s.chunkAndEmbed(ctx, content)
	if err != nil {
		return nil, err
	}

	doc := &model.Document{
		Category:   category,
		Filename:   filename,
		Content:    content,
		SourcePath: input.SourcePath,
		FileSize:   input.FileSize,
		FileType:   input.FileType,
	}
	chunks := buildChunks(pieces, embedded)
	if err := s.docs.CreateWithChunks(doc, chunks); err != nil {
		return nil, err
	}
	s.invalidate(ctx)

	return &UploadResult{
		Document: model.DocumentSummary{
			ID:         doc.ID,
			Category:   doc.Category,
			Filename:   doc.Filename,
			FileSize:   doc.FileSize,
			FileType:   doc.FileType,
			ChunkCount: len(chunks),
			CreatedAt:  doc.CreatedAt,
		},
		EmbeddingSource: embeddingSource(embedded),
	}, nil
}

// Get returns the document or nil when the ID is unknown.
func (s *IndexService) Get(id uint) (*model.Document, error) {
	if id == 0 {
		return nil, ErrInvalidInput
	}
	return s.docs.GetByID(id)
}

// Delete removes a document and all its chunks. Deleting an unknown ID is not
// an error; it reports false.
func (s *IndexService) Delete(ctx context.Context, id uint) (bool, error) {
	if id == 0 {
		return false, ErrInvalidInput
	}
	deleted, err := s.docs.DeleteWithChunks(id)
	if err != nil {
		return false, err
	}
	if deleted {
		s.invalidate(ctx)
	}
	return deleted, nil
}

// ListByCategory returns metadata summaries newest-first; empty category
// lists everything.
func (s *IndexService) ListByCategory(category string) ([]model.DocumentSummary, error) {
	docs, err := s.docs.ListByCategory(strings.TrimSpace(category))
	if err != nil {
		return nil, err
	}
	ids := make([]uint, len(docs))
	for i, d := range docs {
		ids[i] = d.ID
	}
	counts, err := s.chunks.CountByDocumentIDs(ids)
	if err != nil {
		return nil, err
	}

	summaries := make([]model.DocumentSummary, len(docs))
	for i, d := range docs {
		summaries[i] = model.DocumentSummary{
			ID:         d.ID,
			Category:   d.Category,
			Filename:   d.Filename,
			FileSize:   d.FileSize,
			FileType:   d.FileType,
			ChunkCount: counts[d.ID],
			CreatedAt:  d.CreatedAt,
		}
	}
	return summaries, nil
}

// Reindex re-chunks and re-embeds an existing document with the current
// settings, swapping the chunk set transactionally.
func (s *IndexService) Reindex(ctx context.Context, id uint) (*UploadResult, error) {
	doc, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, ErrDocumentNotFound
	}

	pieces, embedded, err := s.chunkAndEmbed(ctx, doc.Content)
	if err != nil {
		return nil, err
	}
	chunks := buildChunks(pieces, embedded)
	if err := s.docs.ReplaceChunks(doc.ID, chunks); err != nil {
		return nil, err
	}
	s.invalidate(ctx)

	return &UploadResult{
		Document: model.DocumentSummary{
			ID:         doc.ID,
			Category:   doc.Category,
			Filename:   doc.Filename,
			FileSize:   doc.FileSize,
			FileType:   doc.FileType,
			ChunkCount: len(chunks),
			CreatedAt:  doc.CreatedAt,
		},
		EmbeddingSource: embeddingSource(embedded),
	}, nil
}

func (s *IndexService) chunkAndEmbed(ctx context.Context, content string) ([]string, []ai.Embedding, error) {
	pieces, err := chunker.Split(content, s.cfg.ChunkSizeWords, s.cfg.ChunkOverlapWords)
	if err != nil {
		return nil, nil, err
	}
	if len(pieces) == 0 {
		return nil, nil, ErrExtractionFailed
	}
	return pieces, s.embedder.EmbedAll(ctx, pieces), nil
}

// invalidate is best-effort: a failed generation bump can serve stale cached
// matches until the TTL expires, so the failure must at least be visible.
func (s *IndexService) invalidate(ctx context.Context) {
	if s.invalidator == nil {
		return
	}
	if err := s.invalidator.Invalidate(ctx); err != nil {
		log.Printf("invalidate retrieval cache failed: %v", err)
	}
}

func buildChunks(pieces []string, embedded []ai.Embedding) []model.Chunk {
	chunks := make([]model.Chunk, len(pieces))
	for i := range pieces {
		chunks[i] = model.Chunk{
			ChunkIndex: i,
			Content:    pieces[i],
		}
		chunks[i].SetEmbedding(embedded[i].Vector)
	}
	return chunks
}

func embeddingSource(embedded []ai.Embedding) ai.EmbeddingSource {
	for _, e := range embedded {
		if e.Source == ai.SourceFallback {
			return ai.SourceFallback
		}
	}
	return ai.SourceRemote
}
