package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"kbretrieval/internal/model"
)

type DocumentRepository struct {
	db *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// CreateWithChunks persists the document and all its chunks as one
// transaction, so a crash mid-upload cannot leave a document with partial
// chunks. Chunk DocumentID fields are filled in from the created row.
func (r *DocumentRepository) CreateWithChunks(doc *model.Document, chunks []model.Chunk) error {
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(doc).Error; err != nil {
			return err
		}
		if len(chunks) == 0 {
			return nil
		}
		for i := range chunks {
			chunks[i].DocumentID = doc.ID
		}
		return tx.Create(&chunks).Error
	})
	if err != nil {
		return fmt.Errorf("create document with chunks failed: %w", err)
	}
	return nil
}

// ReplaceChunks swaps a document's chunk set in one transaction; used by
// reindexing so the document is never observable half-indexed.
func (r *DocumentRepository) ReplaceChunks(documentID uint, chunks []model.Chunk) error {
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("document_id = ?", documentID).Delete(&model.Chunk{}).Error; err != nil {
			return err
		}
		if len(chunks) == 0 {
			return nil
		}
		for i := range chunks {
			chunks[i].DocumentID = documentID
		}
		return tx.Create(&chunks).Error
	})
	if err != nil {
		return fmt.Errorf("replace document chunks failed: %w", err)
	}
	return nil
}

func (r *DocumentRepository) GetByID(id uint) (*model.Document, error) {
	var doc model.Document
	if err := r.db.First(&doc, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get document failed: %w", err)
	}
	return &doc, nil
}

// ListByCategory returns documents newest-first; an empty category lists all.
func (r *DocumentRepository) ListByCategory(category string) ([]model.Document, error) {
	q := r.db.Model(&model.Document{})
	if category != "" {
		q = q.Where("category = ?", category)
	}
	var docs []model.Document
	if err := q.Order("created_at DESC").Find(&docs).Error; err != nil {
		return nil, fmt.Errorf("list documents failed: %w", err)
	}
	return docs, nil
}

// DeleteWithChunks removes the document and cascades to its chunks in one
// transaction. Returns false without error when the document does not exist.
func (r *DocumentRepository) DeleteWithChunks(id uint) (bool, error) {
	deleted := false
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var doc model.Document
		if err := tx.First(&doc, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}
		if err := tx.Where("document_id = ?", id).Delete(&model.Chunk{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(&model.Document{}, id).Error; err != nil {
			return err
		}
		deleted = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("delete document failed: %w", err)
	}
	return deleted, nil
}
