package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"kbretrieval/internal/model"
)

type CategoryRepository struct {
	db *gorm.DB
}

func NewCategoryRepository(db *gorm.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

func (r *CategoryRepository) GetByName(name string) (*model.Category, error) {
	var cat model.Category
	if err := r.db.Where("name = ?", name).First(&cat).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get category failed: %w", err)
	}
	return &cat, nil
}

func (r *CategoryRepository) Create(cat *model.Category) error {
	if err := r.db.Create(cat).Error; err != nil {
		return fmt.Errorf("create category failed: %w", err)
	}
	return nil
}

func (r *CategoryRepository) List() ([]model.Category, error) {
	var list []model.Category
	if err := r.db.Order("created_at DESC").Find(&list).Error; err != nil {
		return nil, fmt.Errorf("list categories failed: %w", err)
	}
	return list, nil
}
