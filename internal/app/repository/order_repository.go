package repository

import (
	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/pkg/logger"
	"gorm.io/gorm"
)

var orderSortColumns = map[string]string{
	"createdAt":   "orders.created_at",
	"created_at":  "orders.created_at",
	"totalAmount": "orders.total_amount",
	"total":       "orders.total_amount",
}

type OrderRepository interface {
	Create(order *model.Order) error
	FindByID(id uint) (*model.Order, error)
	FindByUserID(userID uint, p Pagination) (*Page[model.Order], error)
	FindAll(status *model.OrderStatus, p Pagination) (*Page[model.Order], error)
	UpdateStatus(id uint, status model.OrderStatus) error
	UpdatePaymentStatus(orderID uint, status model.PaymentStatus) error
}

type orderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

func preloadOrder(db *gorm.DB) *gorm.DB {
	return db.Preload("OrderItems", func(db *gorm.DB) *gorm.DB {
		return db.Order("order_items.id ASC")
	}).
		Preload("OrderItems.Product", func(db *gorm.DB) *gorm.DB { return db.Unscoped() }).
		Preload("OrderItems.Sku", func(db *gorm.DB) *gorm.DB { return db.Unscoped() }).
		Preload("Payment")
}

func (r *orderRepository) Create(order *model.Order) error {
	logger.Debug("Creating order in database", map[string]interface{}{
		"user_id":      order.UserID,
		"total_amount": order.TotalAmount,
		"items":        len(order.OrderItems),
	})

	if err := r.db.Omit("OrderItems.Product", "OrderItems.Sku").Create(order).Error; err != nil {
		logger.Error("Failed to create order in database", err, map[string]interface{}{
			"user_id":      order.UserID,
			"total_amount": order.TotalAmount,
		})
		return err
	}

	logger.Debug("Order created in database", map[string]interface{}{
		"order_id": order.ID,
		"user_id":  order.UserID,
	})
	return nil
}

func (r *orderRepository) FindByID(id uint) (*model.Order, error) {
	logger.Debug("Finding order by ID in database", map[string]interface{}{
		"order_id": id,
	})

	var order model.Order
	if err := preloadOrder(r.db).First(&order, id).Error; err != nil {
		logger.Debug("Order not found by ID", map[string]interface{}{
			"order_id": id,
			"error":    err.Error(),
		})
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) FindByUserID(userID uint, p Pagination) (*Page[model.Order], error) {
	query := r.db.Model(&model.Order{}).Where("orders.user_id = ?", userID)

	var orders []model.Order
	total, err := paginate(query, p, orderClause(p, orderSortColumns, "orders.created_at"), &orders, preloadOrder)
	if err != nil {
		logger.Error("Failed to find orders by user ID in database", err, map[string]interface{}{
			"user_id": userID,
		})
		return nil, err
	}
	return NewPage(orders, p, total), nil
}

func (r *orderRepository) FindAll(status *model.OrderStatus, p Pagination) (*Page[model.Order], error) {
	query := r.db.Model(&model.Order{})
	if status != nil {
		query = query.Where("orders.status = ?", *status)
	}

	var orders []model.Order
	total, err := paginate(query, p, orderClause(p, orderSortColumns, "orders.created_at"), &orders, preloadOrder)
	if err != nil {
		return nil, err
	}
	return NewPage(orders, p, total), nil
}

func (r *orderRepository) UpdateStatus(id uint, status model.OrderStatus) error {
	logger.Debug("Updating order status in database", map[string]interface{}{
		"order_id": id,
		"status":   status,
	})

	result := r.db.Model(&model.Order{}).Where("id = ?", id).Update("status", status)
	if result.Error != nil {
		logger.Error("Failed to update order status in database", result.Error, map[string]interface{}{
			"order_id": id,
			"status":   status,
		})
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *orderRepository) UpdatePaymentStatus(orderID uint, status model.PaymentStatus) error {
	logger.Debug("Updating order payment status in database", map[string]interface{}{
		"order_id":       orderID,
		"payment_status": status,
	})

	result := r.db.Model(&model.Payment{}).Where("order_id = ?", orderID).Update("status", status)
	if result.Error != nil {
		logger.Error("Failed to update order payment status in database", result.Error, map[string]interface{}{
			"order_id":       orderID,
			"payment_status": status,
		})
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
