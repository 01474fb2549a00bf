package app

import (
	"strings"

	"kbretrieval/internal/model"
)

type CategoryStore interface {
	GetByName(name string) (*model.Category, error)
	Create(cat *model.Category) error
	List() ([]model.Category, error)
}

// CategoryService manages the flat name registry grouping documents.
type CategoryService struct {
	categories CategoryStore
}

func NewCategoryService(categories CategoryStore) *CategoryService {
	return &CategoryService{categories: categories}
}

// Add registers a category name. Adding an existing name is a no-op that
// returns the existing row.
func (s *CategoryService) Add(name, description, icon string) (*model.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidInput
	}

	existing, err := s.categories.GetByName(name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	cat := &model.Category{
		Name:        name,
		Description: strings.TrimSpace(description),
		Icon:        strings.TrimSpace(icon),
	}
	if err := s.categories.Create(cat); err != nil {
		// A concurrent insert can win the unique index; resolve to that row.
		if existing, getErr := s.categories.GetByName(name); getErr == nil && existing != nil {
			return existing, nil
		}
		return nil, err
	}
	return cat, nil
}

func (s *CategoryService) List() ([]model.Category, error) {
	return s.categories.List()
}
