package model

import (
	"time"

	"gorm.io/gorm"
)

type AttributeType string

const (
	AttributeSize  AttributeType = "size"
	AttributeColor AttributeType = "color"
)

// ProductAttribute is a reusable size or color value shared across SKUs.
type ProductAttribute struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	Type      AttributeType  `gorm:"type:varchar(20);not null;index:idx_attribute_type_value" json:"type"`
	Value     string         `gorm:"type:varchar(100);not null;index:idx_attribute_type_value" json:"value"`
	CreatedAt time.Time      `json:"created_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (ProductAttribute) TableName() string {
	return "product_attributes"
}

type ProductSku struct {
	ID               uint           `gorm:"primarykey" json:"id"`
	ProductID        uint           `gorm:"index;not null" json:"product_id"`
	SizeAttributeID  *uint          `gorm:"index" json:"size_attribute_id,omitempty"`
	ColorAttributeID *uint          `gorm:"index" json:"color_attribute_id,omitempty"`
	Sku              string         `gorm:"type:varchar(100);uniqueIndex;not null" json:"sku"`
	Price            float64        `gorm:"type:decimal(10,2);not null" json:"price"`
	Quantity         int            `gorm:"not null;default:0" json:"quantity"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`

	Product        *Product          `gorm:"foreignKey:ProductID" json:"-"`
	SizeAttribute  *ProductAttribute `gorm:"foreignKey:SizeAttributeID" json:"size,omitempty"`
	ColorAttribute *ProductAttribute `gorm:"foreignKey:ColorAttributeID" json:"color,omitempty"`
}

func (ProductSku) TableName() string {
	return "product_skus"
}
