package model

import (
	"time"

	"gorm.io/gorm"
)

type OrderStatus string
type PaymentStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"

	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusCancelled PaymentStatus = "cancelled"
	PaymentStatusRefunded  PaymentStatus = "refunded"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusCompleted, PaymentStatusFailed, PaymentStatusCancelled, PaymentStatusRefunded:
		return true
	}
	return false
}

type Order struct {
	ID              uint           `gorm:"primarykey" json:"id"`
	UserID          uint           `gorm:"not null;index" json:"user_id"`
	TotalAmount     float64        `gorm:"type:decimal(10,2);not null" json:"total_amount"`
	Status          OrderStatus    `gorm:"type:varchar(20);default:'pending'" json:"status"`
	ShippingAddress string         `gorm:"type:text" json:"shipping_address"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`

	OrderItems []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"order_items,omitempty"`
	Payment    *Payment    `gorm:"foreignKey:OrderID" json:"payment,omitempty"`
}

func (Order) TableName() string {
	return "orders"
}

type OrderItem struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	OrderID   uint      `gorm:"not null;index" json:"order_id"`
	ProductID uint      `gorm:"not null;index" json:"product_id"`
	SkuID     uint      `gorm:"not null;index" json:"sku_id"`
	Quantity  int       `gorm:"not null" json:"quantity"`
	Price     float64   `gorm:"type:decimal(10,2);not null" json:"price"` // unit price at checkout
	CreatedAt time.Time `json:"created_at"`

	Product *Product    `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	Sku     *ProductSku `gorm:"foreignKey:SkuID" json:"sku,omitempty"`
}

func (OrderItem) TableName() string {
	return "order_items"
}

type Payment struct {
	ID       uint          `gorm:"primarykey" json:"id"`
	OrderID  uint          `gorm:"uniqueIndex;not null" json:"order_id"`
	Amount   float64       `gorm:"type:decimal(10,2);not null" json:"amount"`
	Provider string        `gorm:"type:varchar(50)" json:"provider"`
	Status   PaymentStatus `gorm:"type:varchar(20);default:'pending'" json:"status"`

	// Set by the hosted checkout gateway.
	TransactionID string     `gorm:"type:varchar(100);index" json:"transaction_id,omitempty"`
	ApprovedAt    *time.Time `json:"approved_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Payment) TableName() string {
	return "payments"
}
