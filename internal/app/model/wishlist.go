package model

import (
	"time"

	"gorm.io/gorm"
)

type WishlistItem struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	UserID    uint           `gorm:"not null;index:idx_wishlist_user_product,unique" json:"user_id"`
	ProductID uint           `gorm:"not null;index:idx_wishlist_user_product,unique" json:"product_id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// Associations (loaded with Preload)
	Product *Product `gorm:"foreignKey:ProductID" json:"product,omitempty"`
}

func (WishlistItem) TableName() string {
	return "wishlist_items"
}
