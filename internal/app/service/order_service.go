package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/internal/app/repository"
	"github.com/ikkim/storefront-backend/pkg/events"
	"github.com/ikkim/storefront-backend/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrOrderNotFound           = errors.New("order not found")
	ErrShippingAddressRequired = errors.New("shipping address is required")
	ErrInvalidOrderStatus      = errors.New("invalid order status")
	ErrInvalidPaymentStatus    = errors.New("invalid payment status")
	ErrInvalidStatusTransition = errors.New("order status cannot change from its current state")
	ErrOrderNotCancellable     = errors.New("only pending orders can be cancelled")
)

// LowStockThreshold is the SKU quantity under which checkout raises a
// low_stock live feed event.
const LowStockThreshold = 5

const defaultPaymentProvider = "card"

// OrderPublisher sends order messages to the broker.
type OrderPublisher interface {
	PublishOrderPlaced(ctx context.Context, msg events.OrderPlaced) error
}

type CheckoutInput struct {
	ShippingAddress string
	PaymentProvider string
}

type OrderService interface {
	Checkout(ctx context.Context, userID uint, input CheckoutInput) (*model.Order, error)
	ListUserOrders(userID uint, p repository.Pagination) (*repository.Page[model.Order], error)
	GetUserOrder(userID, orderID uint) (*model.Order, error)
	CancelOrder(ctx context.Context, userID, orderID uint) (*model.Order, error)
	ListAll(status *model.OrderStatus, p repository.Pagination) (*repository.Page[model.Order], error)
	UpdateStatus(ctx context.Context, orderID uint, status model.OrderStatus) (*model.Order, error)
	UpdatePaymentStatus(orderID uint, status model.PaymentStatus) (*model.Order, error)
}

type orderService struct {
	db        *gorm.DB
	orderRepo repository.OrderRepository
	publisher OrderPublisher
	feed      LiveFeed
}

func NewOrderService(db *gorm.DB, orderRepo repository.OrderRepository, publisher OrderPublisher, feed LiveFeed) OrderService {
	return &orderService{
		db:        db,
		orderRepo: orderRepo,
		publisher: publisher,
		feed:      feed,
	}
}

// Checkout turns the user's cart into a pending order. Stock is checked and
// decremented under row locks in the same transaction that creates the order
// and empties the cart. The cart row is locked first so a second submit
// of the same cart waits and then finds it empty.
func (s *orderService) Checkout(ctx context.Context, userID uint, input CheckoutInput) (*model.Order, error) {
	address := strings.TrimSpace(input.ShippingAddress)
	if address == "" {
		return nil, ErrShippingAddressRequired
	}
	provider := strings.TrimSpace(input.PaymentProvider)
	if provider == "" {
		provider = defaultPaymentProvider
	}

	logger.Info("Starting checkout", map[string]interface{}{
		"user_id": userID,
	})

	tx := s.db.Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	cartRepo := repository.NewCartRepository(tx)
	cart, err := cartRepo.LockByUserID(userID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		tx.Rollback()
		return nil, err
	}
	if cart == nil || len(cart.Items) == 0 {
		tx.Rollback()
		logger.Warn("Checkout with empty cart", map[string]interface{}{
			"user_id": userID,
		})
		return nil, ErrCartEmpty
	}

	var (
		total    float64
		items    []model.OrderItem
		lowStock []events.LowStock
	)
	for _, cartItem := range cart.Items {
		if cartItem.Product == nil {
			tx.Rollback()
			return nil, ErrProductNotFound
		}

		var sku model.ProductSku
		if err := tx.
			Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&sku, cartItem.SkuID).Error; err != nil {
			tx.Rollback()
			if errors.Is(err, gorm.ErrRecordNotFound) {
				logger.Warn("SKU not found during checkout", map[string]interface{}{
					"user_id": userID,
					"sku_id":  cartItem.SkuID,
				})
				return nil, ErrSkuNotFound
			}
			return nil, err
		}

		if sku.Quantity < cartItem.Quantity {
			tx.Rollback()
			logger.Warn("Insufficient stock during checkout", map[string]interface{}{
				"user_id":   userID,
				"sku_id":    sku.ID,
				"requested": cartItem.Quantity,
				"available": sku.Quantity,
			})
			return nil, &InsufficientStockError{SkuID: sku.ID, Available: sku.Quantity}
		}

		if err := tx.Model(&model.ProductSku{}).
			Where("id = ?", sku.ID).
			Update("quantity", gorm.Expr("quantity - ?", cartItem.Quantity)).Error; err != nil {
			tx.Rollback()
			logger.Error("Failed to decrement SKU stock", err, map[string]interface{}{
				"sku_id": sku.ID,
			})
			return nil, err
		}

		remaining := sku.Quantity - cartItem.Quantity
		if remaining < LowStockThreshold {
			lowStock = append(lowStock, events.LowStock{
				ProductID: sku.ProductID,
				SkuID:     sku.ID,
				Sku:       sku.Sku,
				Quantity:  remaining,
			})
		}

		total += sku.Price * float64(cartItem.Quantity)
		items = append(items, model.OrderItem{
			ProductID: cartItem.ProductID,
			SkuID:     sku.ID,
			Quantity:  cartItem.Quantity,
			Price:     sku.Price,
		})
	}

	order := &model.Order{
		UserID:          userID,
		TotalAmount:     total,
		Status:          model.OrderStatusPending,
		ShippingAddress: address,
		OrderItems:      items,
		Payment: &model.Payment{
			Amount:   total,
			Provider: provider,
			Status:   model.PaymentStatusPending,
		},
	}
	if err := repository.NewOrderRepository(tx).Create(order); err != nil {
		tx.Rollback()
		return nil, err
	}
	itemIDs := make([]uint, 0, len(cart.Items))
	for _, cartItem := range cart.Items {
		itemIDs = append(itemIDs, cartItem.ID)
	}
	cleared, err := cartRepo.DeleteItems(cart.ID, itemIDs)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if cleared != int64(len(itemIDs)) {
		tx.Rollback()
		logger.Warn("Cart changed during checkout", map[string]interface{}{
			"user_id": userID,
			"cart_id": cart.ID,
			"read":    len(itemIDs),
			"cleared": cleared,
		})
		return nil, ErrCartChanged
	}

	if err := tx.Commit().Error; err != nil {
		logger.Error("Failed to commit checkout", err, map[string]interface{}{
			"user_id": userID,
		})
		return nil, err
	}

	logger.Info("Order placed", map[string]interface{}{
		"order_id":     order.ID,
		"user_id":      userID,
		"total_amount": total,
		"items":        len(items),
	})

	s.announce(ctx, order, lowStock)
	return s.orderRepo.FindByID(order.ID)
}

// announce runs after commit; a failed publish never fails the order.
func (s *orderService) announce(ctx context.Context, order *model.Order, lowStock []events.LowStock) {
	msg := events.OrderPlaced{
		OrderID:     order.ID,
		UserID:      order.UserID,
		TotalAmount: order.TotalAmount,
		PlacedAt:    time.Now(),
	}
	for _, item := range order.OrderItems {
		msg.Items = append(msg.Items, events.OrderLine{
			ProductID: item.ProductID,
			SkuID:     item.SkuID,
			Quantity:  item.Quantity,
			Price:     item.Price,
		})
	}

	if s.publisher != nil {
		if err := s.publisher.PublishOrderPlaced(ctx, msg); err != nil {
			logger.Error("Failed to publish order placed message", err, map[string]interface{}{
				"order_id": order.ID,
			})
		}
	}
	broadcast(s.feed, events.TopicOrderPlaced, msg)
	for _, low := range lowStock {
		broadcast(s.feed, events.TopicLowStock, low)
	}
}

func (s *orderService) ListUserOrders(userID uint, p repository.Pagination) (*repository.Page[model.Order], error) {
	return s.orderRepo.FindByUserID(userID, p)
}

func (s *orderService) GetUserOrder(userID, orderID uint) (*model.Order, error) {
	order, err := s.orderRepo.FindByID(orderID)
	if err != nil {
		return nil, notFound(err, ErrOrderNotFound)
	}
	if order.UserID != userID {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

func (s *orderService) CancelOrder(ctx context.Context, userID, orderID uint) (*model.Order, error) {
	order, err := s.GetUserOrder(userID, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != model.OrderStatusPending {
		return nil, ErrOrderNotCancellable
	}
	return s.UpdateStatus(ctx, orderID, model.OrderStatusCancelled)
}

func (s *orderService) ListAll(status *model.OrderStatus, p repository.Pagination) (*repository.Page[model.Order], error) {
	if status != nil && !status.Valid() {
		return nil, ErrInvalidOrderStatus
	}
	return s.orderRepo.FindAll(status, p)
}

// UpdateStatus moves an order forward. Delivered and cancelled are final.
// Cancelling a pending order puts its quantities back on the SKUs and
// cancels the payment.
func (s *orderService) UpdateStatus(ctx context.Context, orderID uint, status model.OrderStatus) (*model.Order, error) {
	if !status.Valid() {
		return nil, ErrInvalidOrderStatus
	}
	order, err := s.orderRepo.FindByID(orderID)
	if err != nil {
		return nil, notFound(err, ErrOrderNotFound)
	}
	if order.Status == model.OrderStatusDelivered || order.Status == model.OrderStatusCancelled {
		return nil, ErrInvalidStatusTransition
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		orders := repository.NewOrderRepository(tx)
		if status == model.OrderStatusCancelled && order.Status == model.OrderStatusPending {
			for _, item := range order.OrderItems {
				if err := tx.Unscoped().Model(&model.ProductSku{}).
					Where("id = ?", item.SkuID).
					Update("quantity", gorm.Expr("quantity + ?", item.Quantity)).Error; err != nil {
					return err
				}
			}
			if order.Payment != nil {
				if err := orders.UpdatePaymentStatus(orderID, model.PaymentStatusCancelled); err != nil {
					return err
				}
			}
		}
		return orders.UpdateStatus(orderID, status)
	})
	if err != nil {
		logger.Error("Failed to update order status", err, map[string]interface{}{
			"order_id": orderID,
			"status":   status,
		})
		return nil, err
	}

	logger.Info("Order status updated", map[string]interface{}{
		"order_id": orderID,
		"from":     order.Status,
		"to":       status,
	})
	if status == model.OrderStatusCancelled && order.Status == model.OrderStatusPending && order.Payment != nil {
		announcePayment(s.feed, orderID, model.PaymentStatusCancelled, order.Payment.Amount)
	}
	return s.orderRepo.FindByID(orderID)
}

func (s *orderService) UpdatePaymentStatus(orderID uint, status model.PaymentStatus) (*model.Order, error) {
	if !status.Valid() {
		return nil, ErrInvalidPaymentStatus
	}
	if err := s.orderRepo.UpdatePaymentStatus(orderID, status); err != nil {
		return nil, notFound(err, ErrOrderNotFound)
	}
	order, err := s.orderRepo.FindByID(orderID)
	if err != nil {
		return nil, err
	}
	if order.Payment != nil {
		announcePayment(s.feed, orderID, status, order.Payment.Amount)
	}
	return order, nil
}
