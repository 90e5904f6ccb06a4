package repository

import (
	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/pkg/logger"
	"gorm.io/gorm"
)

type CategoryRepository interface {
	Create(category *model.Category) error
	FindByID(id uint) (*model.Category, error)
	FindByIDUnscoped(id uint) (*model.Category, error)
	FindAllActive() ([]model.Category, error)
	FindByName(name string) (*model.Category, error)
	ExistsActiveByName(name string, excludeID uint) (bool, error)
	SearchByName(query string) ([]model.Category, error)
	ListNames() ([]string, error)
	CountActive() (int64, error)
	Update(category *model.Category) error
	HardDelete(id uint) error
	SoftDelete(id uint) error
	Restore(id uint) error
}

type categoryRepository struct {
	db *gorm.DB
}

func NewCategoryRepository(db *gorm.DB) CategoryRepository {
	return &categoryRepository{db: db}
}

func (r *categoryRepository) Create(category *model.Category) error {
	logger.Debug("Creating category in database", map[string]interface{}{
		"name": category.Name,
	})

	if err := r.db.Create(category).Error; err != nil {
		logger.Error("Failed to create category in database", err, map[string]interface{}{
			"name": category.Name,
		})
		return err
	}
	return nil
}

func (r *categoryRepository) FindByID(id uint) (*model.Category, error) {
	var category model.Category
	if err := r.db.First(&category, id).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

func (r *categoryRepository) FindByIDUnscoped(id uint) (*model.Category, error) {
	var category model.Category
	if err := r.db.Unscoped().First(&category, id).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

func (r *categoryRepository) FindAllActive() ([]model.Category, error) {
	var categories []model.Category
	if err := r.db.Order("name ASC").Find(&categories).Error; err != nil {
		logger.Error("Failed to fetch categories", err)
		return nil, err
	}
	return categories, nil
}

func (r *categoryRepository) FindByName(name string) (*model.Category, error) {
	var category model.Category
	if err := r.db.Where("LOWER(name) = LOWER(?)", name).First(&category).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

func (r *categoryRepository) ExistsActiveByName(name string, excludeID uint) (bool, error) {
	var count int64
	query := r.db.Model(&model.Category{}).Where("LOWER(name) = LOWER(?)", name)
	if excludeID != 0 {
		query = query.Where("id <> ?", excludeID)
	}
	err := query.Count(&count).Error
	return count > 0, err
}

func (r *categoryRepository) SearchByName(query string) ([]model.Category, error) {
	var categories []model.Category
	err := r.db.
		Where("LOWER(name) LIKE ?"+likeEscape, likePattern(query)).
		Order("name ASC").
		Find(&categories).Error
	return categories, err
}

func (r *categoryRepository) ListNames() ([]string, error) {
	var names []string
	err := r.db.Model(&model.Category{}).Order("name ASC").Pluck("name", &names).Error
	return names, err
}

func (r *categoryRepository) CountActive() (int64, error) {
	var count int64
	err := r.db.Model(&model.Category{}).Count(&count).Error
	return count, err
}

func (r *categoryRepository) Update(category *model.Category) error {
	logger.Debug("Updating category in database", map[string]interface{}{
		"category_id": category.ID,
	})
	return r.db.Save(category).Error
}

// HardDelete removes the row and detaches its products.
func (r *categoryRepository) HardDelete(id uint) error {
	logger.Debug("Hard deleting category", map[string]interface{}{
		"category_id": id,
	})

	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Unscoped().Model(&model.Product{}).
			Where("category_id = ?", id).
			Update("category_id", nil).Error; err != nil {
			return err
		}
		result := tx.Unscoped().Delete(&model.Category{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func (r *categoryRepository) SoftDelete(id uint) error {
	result := r.db.Delete(&model.Category{}, id)
	if result.Error != nil {
		logger.Error("Failed to soft delete category", result.Error, map[string]interface{}{
			"category_id": id,
		})
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *categoryRepository) Restore(id uint) error {
	result := r.db.Unscoped().Model(&model.Category{}).
		Where("id = ? AND deleted_at IS NOT NULL", id).
		Update("deleted_at", nil)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
