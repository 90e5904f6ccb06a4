package model

import (
	"time"
)

type Cart struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	UserID    uint      `gorm:"uniqueIndex;not null" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Items []CartItem `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE" json:"items"`
}

func (Cart) TableName() string {
	return "carts"
}

// TotalAmount is the sum of price times quantity over all items.
func (c *Cart) TotalAmount() float64 {
	total := 0.0
	for _, item := range c.Items {
		total += item.Subtotal()
	}
	return total
}

// TotalItems is the sum of item quantities.
func (c *Cart) TotalItems() int {
	total := 0
	for _, item := range c.Items {
		total += item.Quantity
	}
	return total
}

type CartItem struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CartID    uint      `gorm:"not null;index" json:"cart_id"`
	ProductID uint      `gorm:"not null;index" json:"product_id"`
	SkuID     uint      `gorm:"not null;index" json:"sku_id"`
	Quantity  int       `gorm:"not null;default:1" json:"quantity"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relationships
	Cart    *Cart       `gorm:"foreignKey:CartID" json:"-"`
	Product *Product    `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	Sku     *ProductSku `gorm:"foreignKey:SkuID" json:"sku,omitempty"`
}

func (CartItem) TableName() string {
	return "cart_items"
}

// Subtotal requires Sku to be loaded.
func (i *CartItem) Subtotal() float64 {
	if i.Sku == nil {
		return 0
	}
	return i.Sku.Price * float64(i.Quantity)
}

// Available reports whether the SKU still has enough stock for this line.
func (i *CartItem) Available() bool {
	return i.Sku != nil && i.Sku.Quantity >= i.Quantity
}
