package service

import (
	"context"
	"errors"
	"strings"

	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/internal/app/repository"
	"github.com/ikkim/storefront-backend/pkg/logger"
	"gorm.io/gorm"
)

var (
	ErrCategoryNotFound      = errors.New("category not found")
	ErrCategoryAlreadyExists = errors.New("category with this name already exists")
	ErrCategoryNotDeleted    = errors.New("category is not deleted")
	ErrCategoryNameRequired  = errors.New("category name is required")
)

type CategoryService interface {
	List() ([]model.Category, error)
	GetByID(id uint) (*model.Category, error)
	GetByName(name string) (*model.Category, error)
	Search(query string) ([]model.Category, error)
	Count() (int64, error)
	Create(name, description string) (*model.Category, error)
	Update(id uint, name, description string) (*model.Category, error)
	Delete(id uint) error
	SoftDelete(id uint) error
	Restore(id uint) (*model.Category, error)
}

type categoryService struct {
	categoryRepo repository.CategoryRepository
	cache        Cache
}

// NewCategoryService builds the service. Every write drops the cached filter
// options when cache is set.
func NewCategoryService(categoryRepo repository.CategoryRepository, cache Cache) CategoryService {
	return &categoryService{categoryRepo: categoryRepo, cache: cache}
}

func (s *categoryService) changed() {
	invalidate(context.Background(), s.cache, filterOptionsKey)
}

func (s *categoryService) List() ([]model.Category, error) {
	return s.categoryRepo.FindAllActive()
}

func (s *categoryService) GetByID(id uint) (*model.Category, error) {
	category, err := s.categoryRepo.FindByID(id)
	if err != nil {
		return nil, notFound(err, ErrCategoryNotFound)
	}
	return category, nil
}

func (s *categoryService) GetByName(name string) (*model.Category, error) {
	category, err := s.categoryRepo.FindByName(strings.TrimSpace(name))
	if err != nil {
		return nil, notFound(err, ErrCategoryNotFound)
	}
	return category, nil
}

func (s *categoryService) Search(query string) ([]model.Category, error) {
	if strings.TrimSpace(query) == "" {
		return s.categoryRepo.FindAllActive()
	}
	return s.categoryRepo.SearchByName(query)
}

func (s *categoryService) Count() (int64, error) {
	return s.categoryRepo.CountActive()
}

func (s *categoryService) Create(name, description string) (*model.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrCategoryNameRequired
	}

	exists, err := s.categoryRepo.ExistsActiveByName(name, 0)
	if err != nil {
		return nil, err
	}
	if exists {
		logger.Warn("Category creation failed: name taken", map[string]interface{}{
			"name": name,
		})
		return nil, ErrCategoryAlreadyExists
	}

	category := &model.Category{Name: name, Description: strings.TrimSpace(description)}
	if err := s.categoryRepo.Create(category); err != nil {
		return nil, err
	}

	logger.Info("Category created", map[string]interface{}{
		"category_id": category.ID,
		"name":        category.Name,
	})
	s.changed()
	return category, nil
}

func (s *categoryService) Update(id uint, name, description string) (*model.Category, error) {
	category, err := s.categoryRepo.FindByID(id)
	if err != nil {
		return nil, notFound(err, ErrCategoryNotFound)
	}

	if name = strings.TrimSpace(name); name != "" && !strings.EqualFold(name, category.Name) {
		exists, err := s.categoryRepo.ExistsActiveByName(name, id)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, ErrCategoryAlreadyExists
		}
	}
	if name != "" {
		category.Name = name
	}
	category.Description = strings.TrimSpace(description)

	if err := s.categoryRepo.Update(category); err != nil {
		return nil, err
	}

	logger.Info("Category updated", map[string]interface{}{
		"category_id": id,
	})
	s.changed()
	return category, nil
}

func (s *categoryService) Delete(id uint) error {
	if err := s.categoryRepo.HardDelete(id); err != nil {
		return notFound(err, ErrCategoryNotFound)
	}
	logger.Info("Category deleted permanently", map[string]interface{}{
		"category_id": id,
	})
	s.changed()
	return nil
}

func (s *categoryService) SoftDelete(id uint) error {
	if err := s.categoryRepo.SoftDelete(id); err != nil {
		return notFound(err, ErrCategoryNotFound)
	}
	logger.Info("Category soft deleted", map[string]interface{}{
		"category_id": id,
	})
	s.changed()
	return nil
}

// Restore fails with a conflict if an active category took the name meanwhile.
func (s *categoryService) Restore(id uint) (*model.Category, error) {
	category, err := s.categoryRepo.FindByIDUnscoped(id)
	if err != nil {
		return nil, notFound(err, ErrCategoryNotFound)
	}
	if !category.DeletedAt.Valid {
		return nil, ErrCategoryNotDeleted
	}

	exists, err := s.categoryRepo.ExistsActiveByName(category.Name, id)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrCategoryAlreadyExists
	}

	if err := s.categoryRepo.Restore(id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCategoryNotDeleted
		}
		return nil, err
	}

	logger.Info("Category restored", map[string]interface{}{
		"category_id": id,
	})
	s.changed()
	return s.GetByID(id)
}
