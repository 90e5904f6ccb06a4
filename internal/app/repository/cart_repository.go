package repository

import (
	"time"

	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CartStats struct {
	TotalCarts  int64 `json:"total_carts"`
	ActiveCarts int64 `json:"active_carts"`
}

type CartRepository interface {
	GetOrCreate(userID uint) (*model.Cart, error)
	FindByUserID(userID uint) (*model.Cart, error)
	LockByUserID(userID uint) (*model.Cart, error)
	FindItem(cartID, itemID uint) (*model.CartItem, error)
	FindItemBySku(cartID, skuID uint) (*model.CartItem, error)
	CreateItem(item *model.CartItem) error
	UpdateItem(item *model.CartItem) error
	DeleteItem(cartID, itemID uint) error
	DeleteItemsByProduct(cartID, productID uint) (int64, error)
	ClearItems(cartID uint) error
	DeleteItems(cartID uint, itemIDs []uint) (int64, error)
	CountItems(cartID uint) (int64, error)
	Stats() (CartStats, error)
	FindIdleCartIDs(before time.Time) ([]uint, error)
}

type cartRepository struct {
	db *gorm.DB
}

func NewCartRepository(db *gorm.DB) CartRepository {
	return &cartRepository{db: db}
}

func (r *cartRepository) withItems() *gorm.DB {
	return r.db.Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("cart_items.id ASC")
	}).
		Preload("Items.Product").
		Preload("Items.Sku").
		Preload("Items.Sku.SizeAttribute").
		Preload("Items.Sku.ColorAttribute")
}

func (r *cartRepository) GetOrCreate(userID uint) (*model.Cart, error) {
	cart := model.Cart{UserID: userID}
	if err := r.db.Where(model.Cart{UserID: userID}).FirstOrCreate(&cart).Error; err != nil {
		logger.Error("Failed to get or create cart", err, map[string]interface{}{
			"user_id": userID,
		})
		return nil, err
	}
	return r.FindByUserID(userID)
}

func (r *cartRepository) FindByUserID(userID uint) (*model.Cart, error) {
	logger.Debug("Finding cart by user ID in database", map[string]interface{}{
		"user_id": userID,
	})

	var cart model.Cart
	if err := r.withItems().Where("user_id = ?", userID).First(&cart).Error; err != nil {
		return nil, err
	}

	logger.Debug("Cart found by user ID in database", map[string]interface{}{
		"user_id": userID,
		"items":   len(cart.Items),
	})
	return &cart, nil
}

// LockByUserID takes a row lock on the user's cart and then loads it with
// its items. Call it inside a transaction.
func (r *cartRepository) LockByUserID(userID uint) (*model.Cart, error) {
	var locked model.Cart
	if err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ?", userID).
		First(&locked).Error; err != nil {
		return nil, err
	}
	return r.FindByUserID(userID)
}

func (r *cartRepository) FindItem(cartID, itemID uint) (*model.CartItem, error) {
	var item model.CartItem
	err := r.db.Preload("Sku").
		Where("id = ? AND cart_id = ?", itemID, cartID).
		First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *cartRepository) FindItemBySku(cartID, skuID uint) (*model.CartItem, error) {
	var item model.CartItem
	err := r.db.Where("cart_id = ? AND sku_id = ?", cartID, skuID).First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// touch bumps the cart's updated_at so the idle sweeper leaves it alone.
func touch(tx *gorm.DB, cartID uint) error {
	return tx.Model(&model.Cart{}).Where("id = ?", cartID).Update("updated_at", time.Now()).Error
}

func (r *cartRepository) CreateItem(item *model.CartItem) error {
	logger.Debug("Creating cart item in database", map[string]interface{}{
		"cart_id":  item.CartID,
		"sku_id":   item.SkuID,
		"quantity": item.Quantity,
	})

	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(item).Error; err != nil {
			logger.Error("Failed to create cart item in database", err, map[string]interface{}{
				"cart_id": item.CartID,
				"sku_id":  item.SkuID,
			})
			return err
		}
		return touch(tx, item.CartID)
	})
}

func (r *cartRepository) UpdateItem(item *model.CartItem) error {
	logger.Debug("Updating cart item in database", map[string]interface{}{
		"cart_item_id": item.ID,
		"quantity":     item.Quantity,
	})

	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.CartItem{}).
			Where("id = ?", item.ID).
			Update("quantity", item.Quantity).Error; err != nil {
			return err
		}
		return touch(tx, item.CartID)
	})
}

func (r *cartRepository) DeleteItem(cartID, itemID uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		result := tx.Where("id = ? AND cart_id = ?", itemID, cartID).Delete(&model.CartItem{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return touch(tx, cartID)
	})
}

func (r *cartRepository) DeleteItemsByProduct(cartID, productID uint) (int64, error) {
	result := r.db.Where("cart_id = ? AND product_id = ?", cartID, productID).Delete(&model.CartItem{})
	return result.RowsAffected, result.Error
}

func (r *cartRepository) ClearItems(cartID uint) error {
	logger.Debug("Clearing cart items", map[string]interface{}{
		"cart_id": cartID,
	})

	if err := r.db.Where("cart_id = ?", cartID).Delete(&model.CartItem{}).Error; err != nil {
		logger.Error("Failed to clear cart items", err, map[string]interface{}{
			"cart_id": cartID,
		})
		return err
	}
	return nil
}

// DeleteItems removes the listed lines and reports how many were still there.
func (r *cartRepository) DeleteItems(cartID uint, itemIDs []uint) (int64, error) {
	if len(itemIDs) == 0 {
		return 0, nil
	}
	result := r.db.Where("cart_id = ? AND id IN ?", cartID, itemIDs).Delete(&model.CartItem{})
	if result.Error != nil {
		logger.Error("Failed to delete cart items", result.Error, map[string]interface{}{
			"cart_id": cartID,
		})
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func (r *cartRepository) CountItems(cartID uint) (int64, error) {
	var count int64
	err := r.db.Model(&model.CartItem{}).Where("cart_id = ?", cartID).Count(&count).Error
	return count, err
}

func (r *cartRepository) Stats() (CartStats, error) {
	var stats CartStats
	if err := r.db.Model(&model.Cart{}).Count(&stats.TotalCarts).Error; err != nil {
		return stats, err
	}
	err := r.db.Model(&model.Cart{}).
		Where("EXISTS (SELECT 1 FROM cart_items ci WHERE ci.cart_id = carts.id)").
		Count(&stats.ActiveCarts).Error
	return stats, err
}

// FindIdleCartIDs returns non-empty carts last touched before the cutoff.
func (r *cartRepository) FindIdleCartIDs(before time.Time) ([]uint, error) {
	var ids []uint
	err := r.db.Model(&model.Cart{}).
		Where("updated_at < ?", before).
		Where("EXISTS (SELECT 1 FROM cart_items ci WHERE ci.cart_id = carts.id)").
		Order("id").
		Pluck("id", &ids).Error
	return ids, err
}
