package model

import (
	"time"

	"gorm.io/gorm"
)

type Product struct {
	ID          uint           `gorm:"primarykey" json:"id"`
	Name        string         `gorm:"type:varchar(255);not null;index" json:"name"`
	Description string         `gorm:"type:text" json:"description"`
	Summary     string         `gorm:"type:varchar(500)" json:"summary"`
	Cover       string         `json:"cover"` // cover image URL
	CategoryID  *uint          `gorm:"index" json:"category_id"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	// Relationships
	Category *Category    `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	Skus     []ProductSku `gorm:"foreignKey:ProductID" json:"skus,omitempty"`
}

func (Product) TableName() string {
	return "products"
}

// PriceRange returns the lowest and highest active SKU price.
func (p *Product) PriceRange() (min, max float64) {
	for i, sku := range p.Skus {
		if i == 0 || sku.Price < min {
			min = sku.Price
		}
		if sku.Price > max {
			max = sku.Price
		}
	}
	return min, max
}

// TotalStock sums the quantity of every loaded SKU.
func (p *Product) TotalStock() int {
	total := 0
	for _, sku := range p.Skus {
		total += sku.Quantity
	}
	return total
}

// InStock reports whether any loaded SKU has stock left.
func (p *Product) InStock() bool {
	for _, sku := range p.Skus {
		if sku.Quantity > 0 {
			return true
		}
	}
	return false
}
