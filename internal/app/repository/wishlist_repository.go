package repository

import (
	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var wishlistSortColumns = map[string]string{
	"createdAt":  "wishlist_items.created_at",
	"created_at": "wishlist_items.created_at",
	"id":         "wishlist_items.id",
}

type ProductCount struct {
	ProductID uint  `json:"product_id"`
	Count     int64 `json:"count"`
}

type WishlistRepository interface {
	Create(item *model.WishlistItem) error
	FindByUserAndProduct(userID, productID uint) (*model.WishlistItem, error)
	// FindByUserAndProductUnscoped includes soft deleted rows.
	FindByUserAndProductUnscoped(userID, productID uint) (*model.WishlistItem, error)
	FindByIDUnscoped(id uint) (*model.WishlistItem, error)
	FindByUserID(userID uint) ([]model.WishlistItem, error)
	FindPage(userID uint, p Pagination) (*Page[model.WishlistItem], error)
	FindByCategory(userID, categoryID uint) ([]model.WishlistItem, error)
	FindRecent(userID uint, limit int) ([]model.WishlistItem, error)
	ProductIDs(userID uint) ([]uint, error)
	Count(userID uint) (int64, error)
	CountAll(userID uint) (int64, error)
	MostWishlisted(limit int) ([]ProductCount, error)
	Restore(id uint) error
	Delete(userID, productID uint) error
	DeleteAll(userID uint) (int64, error)
	HardDelete(id uint) error
}

type wishlistRepository struct {
	db *gorm.DB
}

func NewWishlistRepository(db *gorm.DB) WishlistRepository {
	return &wishlistRepository{db: db}
}

func (r *wishlistRepository) Create(item *model.WishlistItem) error {
	logger.Debug("Creating wishlist item in database", map[string]interface{}{
		"user_id":    item.UserID,
		"product_id": item.ProductID,
	})

	if err := r.db.Omit(clause.Associations).Create(item).Error; err != nil {
		logger.Error("Failed to create wishlist item in database", err, map[string]interface{}{
			"user_id":    item.UserID,
			"product_id": item.ProductID,
		})
		return err
	}

	logger.Debug("Wishlist item created in database", map[string]interface{}{
		"wishlist_item_id": item.ID,
	})
	return nil
}

func (r *wishlistRepository) withProduct() *gorm.DB {
	return r.db.
		Joins("JOIN products ON products.id = wishlist_items.product_id AND products.deleted_at IS NULL").
		Preload("Product").
		Preload("Product.Skus")
}

func (r *wishlistRepository) FindByUserAndProduct(userID, productID uint) (*model.WishlistItem, error) {
	var item model.WishlistItem
	err := r.db.Where("user_id = ? AND product_id = ?", userID, productID).First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *wishlistRepository) FindByUserAndProductUnscoped(userID, productID uint) (*model.WishlistItem, error) {
	var item model.WishlistItem
	err := r.db.Unscoped().Where("user_id = ? AND product_id = ?", userID, productID).First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *wishlistRepository) FindByIDUnscoped(id uint) (*model.WishlistItem, error) {
	var item model.WishlistItem
	if err := r.db.Unscoped().First(&item, id).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *wishlistRepository) FindByUserID(userID uint) ([]model.WishlistItem, error) {
	logger.Debug("Finding wishlist items by user ID", map[string]interface{}{
		"user_id": userID,
	})

	var items []model.WishlistItem
	err := r.withProduct().
		Where("wishlist_items.user_id = ?", userID).
		Order("wishlist_items.created_at DESC").
		Find(&items).Error
	if err != nil {
		logger.Error("Failed to find wishlist items by user ID", err, map[string]interface{}{
			"user_id": userID,
		})
		return nil, err
	}
	return items, nil
}

func (r *wishlistRepository) FindPage(userID uint, p Pagination) (*Page[model.WishlistItem], error) {
	query := r.db.Model(&model.WishlistItem{}).
		Joins("JOIN products ON products.id = wishlist_items.product_id AND products.deleted_at IS NULL").
		Where("wishlist_items.user_id = ?", userID)

	var items []model.WishlistItem
	total, err := paginate(query, p, orderClause(p, wishlistSortColumns, "wishlist_items.created_at"), &items,
		preloads("Product", "Product.Skus"))
	if err != nil {
		return nil, err
	}
	return NewPage(items, p, total), nil
}

func (r *wishlistRepository) FindByCategory(userID, categoryID uint) ([]model.WishlistItem, error) {
	var items []model.WishlistItem
	err := r.withProduct().
		Where("wishlist_items.user_id = ? AND products.category_id = ?", userID, categoryID).
		Order("wishlist_items.created_at DESC").
		Find(&items).Error
	return items, err
}

func (r *wishlistRepository) FindRecent(userID uint, limit int) ([]model.WishlistItem, error) {
	var items []model.WishlistItem
	err := r.withProduct().
		Where("wishlist_items.user_id = ?", userID).
		Order("wishlist_items.created_at DESC").
		Order("wishlist_items.id DESC").
		Limit(limit).
		Find(&items).Error
	return items, err
}

func (r *wishlistRepository) ProductIDs(userID uint) ([]uint, error) {
	var ids []uint
	err := r.db.Model(&model.WishlistItem{}).Where("user_id = ?", userID).Pluck("product_id", &ids).Error
	return ids, err
}

func (r *wishlistRepository) Count(userID uint) (int64, error) {
	var count int64
	err := r.db.Model(&model.WishlistItem{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}

func (r *wishlistRepository) CountAll(userID uint) (int64, error) {
	var count int64
	err := r.db.Unscoped().Model(&model.WishlistItem{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}

func (r *wishlistRepository) MostWishlisted(limit int) ([]ProductCount, error) {
	var rows []ProductCount
	err := r.db.Model(&model.WishlistItem{}).
		Select("wishlist_items.product_id AS product_id, COUNT(*) AS count").
		Joins("JOIN products ON products.id = wishlist_items.product_id AND products.deleted_at IS NULL").
		Group("wishlist_items.product_id").
		Order("count DESC").
		Order("wishlist_items.product_id ASC").
		Limit(limit).
		Scan(&rows).Error
	return rows, err
}

func (r *wishlistRepository) Restore(id uint) error {
	result := r.db.Unscoped().Model(&model.WishlistItem{}).
		Where("id = ? AND deleted_at IS NOT NULL", id).
		Updates(map[string]interface{}{"deleted_at": nil})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *wishlistRepository) Delete(userID, productID uint) error {
	logger.Debug("Deleting wishlist item from database", map[string]interface{}{
		"user_id":    userID,
		"product_id": productID,
	})

	result := r.db.Where("user_id = ? AND product_id = ?", userID, productID).Delete(&model.WishlistItem{})
	if result.Error != nil {
		logger.Error("Failed to delete wishlist item from database", result.Error, map[string]interface{}{
			"user_id":    userID,
			"product_id": productID,
		})
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *wishlistRepository) DeleteAll(userID uint) (int64, error) {
	result := r.db.Where("user_id = ?", userID).Delete(&model.WishlistItem{})
	return result.RowsAffected, result.Error
}

func (r *wishlistRepository) HardDelete(id uint) error {
	result := r.db.Unscoped().Delete(&model.WishlistItem{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
