package repository

import (
	"fmt"

	"gorm.io/gorm"

	"kbretrieval/internal/model"
)

type ChunkRepository struct {
	db *gorm.DB
}

func NewChunkRepository(db *gorm.DB) *ChunkRepository {
	return &ChunkRepository{db: db}
}

// ListByDocumentIDs returns all chunks for the given document IDs.
func (r *ChunkRepository) ListByDocumentIDs(documentIDs []uint) ([]model.Chunk, error) {
	if len(documentIDs) == 0 {
		return nil, nil
	}
	var chunks []model.Chunk
	if err := r.db.Where("document_id IN ?", documentIDs).Find(&chunks).Error; err != nil {
		return nil, fmt.Errorf("list chunks by document ids failed: %w", err)
	}
	return chunks, nil
}

// ListByDocumentID returns a document's chunks in window order.
func (r *ChunkRepository) ListByDocumentID(documentID uint) ([]model.Chunk, error) {
	var chunks []model.Chunk
	if err := r.db.Where("document_id = ?", documentID).Order("chunk_index ASC").Find(&chunks).Error; err != nil {
		return nil, fmt.Errorf("list chunks by document failed: %w", err)
	}
	return chunks, nil
}

// CountByDocumentIDs returns chunk counts keyed by document ID.
func (r *ChunkRepository) CountByDocumentIDs(documentIDs []uint) (map[uint]int, error) {
	if len(documentIDs) == 0 {
		return map[uint]int{}, nil
	}
	var rows []struct {
		DocumentID uint
		N          int
	}
	err := r.db.Model(&model.Chunk{}).
		Select("document_id, COUNT(*) AS n").
		Where("document_id IN ?", documentIDs).
		Group("document_id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("count chunks by document ids failed: %w", err)
	}
	counts := make(map[uint]int, len(rows))
	for _, row := range rows {
		counts[row.DocumentID] = row.N
	}
	return counts, nil
}
