package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/internal/app/repository"
	"github.com/ikkim/storefront-backend/pkg/logger"
	"github.com/ikkim/storefront-backend/pkg/payment/kakaopay"
	"gorm.io/gorm"
)

var (
	ErrPaymentUnavailable      = errors.New("online payment is not configured")
	ErrPaymentAlreadyProcessed = errors.New("payment already processed")
	ErrPaymentNotInitiated     = errors.New("payment has not been initiated")
	ErrPaymentNotRefundable    = errors.New("only completed payments of unshipped orders can be refunded")
	ErrPgTokenRequired         = errors.New("pg_token is required")
)

// GatewayProvider is stored on payments settled through the hosted checkout.
const GatewayProvider = "kakaopay"

// PaymentGateway is the hosted checkout API. *kakaopay.Client implements it.
type PaymentGateway interface {
	Ready(ctx context.Context, req kakaopay.ReadyRequest) (*kakaopay.ReadyResponse, error)
	Approve(ctx context.Context, req kakaopay.ApproveRequest) (*kakaopay.ApproveResponse, error)
	Cancel(ctx context.Context, req kakaopay.CancelRequest) (*kakaopay.CancelResponse, error)
}

type PaymentSession struct {
	OrderID           uint   `json:"order_id"`
	TransactionID     string `json:"transaction_id"`
	RedirectPCURL     string `json:"redirect_pc_url"`
	RedirectMobileURL string `json:"redirect_mobile_url"`
	RedirectAppURL    string `json:"redirect_app_url"`
}

type PaymentService interface {
	Initiate(ctx context.Context, userID, orderID uint) (*PaymentSession, error)
	Approve(ctx context.Context, userID, orderID uint, pgToken string) (*model.Order, error)
	Fail(ctx context.Context, userID, orderID uint) (*model.Order, error)
	Refund(ctx context.Context, orderID uint) (*model.Order, error)
}

type paymentService struct {
	db        *gorm.DB
	orderRepo repository.OrderRepository
	gateway   PaymentGateway
	feed      LiveFeed
}

// NewPaymentService returns a service whose operations fail with
// ErrPaymentUnavailable when gateway is nil.
func NewPaymentService(db *gorm.DB, orderRepo repository.OrderRepository, gateway PaymentGateway, feed LiveFeed) PaymentService {
	return &paymentService{
		db:        db,
		orderRepo: orderRepo,
		gateway:   gateway,
		feed:      feed,
	}
}

func partnerIDs(order *model.Order) (orderID, userID string) {
	return fmt.Sprintf("ORDER-%d", order.ID), fmt.Sprintf("USER-%d", order.UserID)
}

func (s *paymentService) userOrder(userID, orderID uint) (*model.Order, error) {
	order, err := s.orderRepo.FindByID(orderID)
	if err != nil {
		return nil, notFound(err, ErrOrderNotFound)
	}
	if order.UserID != userID || order.Payment == nil {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

// Initiate opens a checkout session for a pending order. A failed payment
// may be retried.
func (s *paymentService) Initiate(ctx context.Context, userID, orderID uint) (*PaymentSession, error) {
	if s.gateway == nil {
		return nil, ErrPaymentUnavailable
	}
	order, err := s.userOrder(userID, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != model.OrderStatusPending {
		return nil, ErrPaymentAlreadyProcessed
	}
	if order.Payment.Status != model.PaymentStatusPending && order.Payment.Status != model.PaymentStatusFailed {
		return nil, ErrPaymentAlreadyProcessed
	}

	itemName := "Order"
	quantity := 0
	for _, item := range order.OrderItems {
		quantity += item.Quantity
	}
	if len(order.OrderItems) > 0 && order.OrderItems[0].Product != nil {
		itemName = order.OrderItems[0].Product.Name
		if extra := len(order.OrderItems) - 1; extra > 0 {
			itemName = fmt.Sprintf("%s and %d more", itemName, extra)
		}
	}

	// redirect URLs come from the gateway config
	partnerOrder, partnerUser := partnerIDs(order)
	resp, err := s.gateway.Ready(ctx, kakaopay.ReadyRequest{
		PartnerOrderID: partnerOrder,
		PartnerUserID:  partnerUser,
		ItemName:       itemName,
		Quantity:       quantity,
		TotalAmount:    int64(math.Round(order.TotalAmount)),
	})
	if err != nil {
		logger.Error("Failed to open checkout session", err, map[string]interface{}{
			"order_id": orderID,
		})
		return nil, fmt.Errorf("failed to initiate payment: %w", err)
	}

	err = s.db.Model(&model.Payment{}).Where("order_id = ?", order.ID).Updates(map[string]interface{}{
		"transaction_id": resp.TID,
		"provider":       GatewayProvider,
		"status":         model.PaymentStatusPending,
	}).Error
	if err != nil {
		return nil, err
	}

	logger.Info("Payment initiated", map[string]interface{}{
		"order_id": orderID,
		"tid":      resp.TID,
	})
	return &PaymentSession{
		OrderID:           order.ID,
		TransactionID:     resp.TID,
		RedirectPCURL:     resp.NextRedirectPCURL,
		RedirectMobileURL: resp.NextRedirectMobileURL,
		RedirectAppURL:    resp.NextRedirectAppURL,
	}, nil
}

// Approve captures the payment and confirms the order. A gateway rejection
// marks the payment failed and leaves the order pending.
func (s *paymentService) Approve(ctx context.Context, userID, orderID uint, pgToken string) (*model.Order, error) {
	if s.gateway == nil {
		return nil, ErrPaymentUnavailable
	}
	if pgToken == "" {
		return nil, ErrPgTokenRequired
	}
	order, err := s.userOrder(userID, orderID)
	if err != nil {
		return nil, err
	}
	if order.Payment.TransactionID == "" {
		return nil, ErrPaymentNotInitiated
	}
	if order.Payment.Status != model.PaymentStatusPending || order.Status != model.OrderStatusPending {
		return nil, ErrPaymentAlreadyProcessed
	}

	partnerOrder, partnerUser := partnerIDs(order)
	resp, err := s.gateway.Approve(ctx, kakaopay.ApproveRequest{
		TID:            order.Payment.TransactionID,
		PartnerOrderID: partnerOrder,
		PartnerUserID:  partnerUser,
		PgToken:        pgToken,
	})
	if err != nil {
		logger.Error("Payment approval rejected", err, map[string]interface{}{
			"order_id": orderID,
		})
		if uerr := s.orderRepo.UpdatePaymentStatus(orderID, model.PaymentStatusFailed); uerr != nil {
			logger.Error("Failed to mark payment failed", uerr, map[string]interface{}{
				"order_id": orderID,
			})
		} else {
			announcePayment(s.feed, orderID, model.PaymentStatusFailed, order.Payment.Amount)
		}
		return nil, fmt.Errorf("failed to approve payment: %w", err)
	}

	approvedAt := resp.ApprovedAt.Time
	if approvedAt.IsZero() {
		approvedAt = time.Now()
	}
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.Payment{}).Where("order_id = ?", orderID).Updates(map[string]interface{}{
			"status":      model.PaymentStatusCompleted,
			"approved_at": approvedAt,
		}).Error; err != nil {
			return err
		}
		return repository.NewOrderRepository(tx).UpdateStatus(orderID, model.OrderStatusConfirmed)
	})
	if err != nil {
		logger.Error("Failed to record approved payment", err, map[string]interface{}{
			"order_id": orderID,
			"tid":      resp.TID,
		})
		return nil, err
	}

	logger.Info("Payment approved", map[string]interface{}{
		"order_id": orderID,
		"aid":      resp.AID,
	})
	announcePayment(s.feed, orderID, model.PaymentStatusCompleted, order.Payment.Amount)
	return s.orderRepo.FindByID(orderID)
}

// Fail records a checkout the buyer abandoned or the gateway declined.
func (s *paymentService) Fail(ctx context.Context, userID, orderID uint) (*model.Order, error) {
	if s.gateway == nil {
		return nil, ErrPaymentUnavailable
	}
	order, err := s.userOrder(userID, orderID)
	if err != nil {
		return nil, err
	}
	if order.Payment.Status != model.PaymentStatusPending {
		return nil, ErrPaymentAlreadyProcessed
	}
	if err := s.orderRepo.UpdatePaymentStatus(orderID, model.PaymentStatusFailed); err != nil {
		return nil, err
	}
	logger.Info("Payment failed", map[string]interface{}{
		"order_id": orderID,
	})
	announcePayment(s.feed, orderID, model.PaymentStatusFailed, order.Payment.Amount)
	return s.orderRepo.FindByID(orderID)
}

// Refund returns the full amount of a confirmed order, cancels it and puts
// its quantities back on the SKUs.
func (s *paymentService) Refund(ctx context.Context, orderID uint) (*model.Order, error) {
	if s.gateway == nil {
		return nil, ErrPaymentUnavailable
	}
	order, err := s.orderRepo.FindByID(orderID)
	if err != nil {
		return nil, notFound(err, ErrOrderNotFound)
	}
	if order.Payment == nil || order.Payment.Status != model.PaymentStatusCompleted ||
		order.Payment.TransactionID == "" || order.Status != model.OrderStatusConfirmed {
		return nil, ErrPaymentNotRefundable
	}

	resp, err := s.gateway.Cancel(ctx, kakaopay.CancelRequest{
		TID:          order.Payment.TransactionID,
		CancelAmount: int64(math.Round(order.Payment.Amount)),
	})
	if err != nil {
		logger.Error("Refund rejected", err, map[string]interface{}{
			"order_id": orderID,
		})
		return nil, fmt.Errorf("failed to refund payment: %w", err)
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		for _, item := range order.OrderItems {
			if err := tx.Unscoped().Model(&model.ProductSku{}).
				Where("id = ?", item.SkuID).
				Update("quantity", gorm.Expr("quantity + ?", item.Quantity)).Error; err != nil {
				return err
			}
		}
		orders := repository.NewOrderRepository(tx)
		if err := orders.UpdatePaymentStatus(orderID, model.PaymentStatusRefunded); err != nil {
			return err
		}
		return orders.UpdateStatus(orderID, model.OrderStatusCancelled)
	})
	if err != nil {
		logger.Error("Failed to record refund", err, map[string]interface{}{
			"order_id": orderID,
			"tid":      resp.TID,
		})
		return nil, err
	}

	logger.Info("Payment refunded", map[string]interface{}{
		"order_id": orderID,
		"amount":   resp.CanceledAmount.Total,
	})
	announcePayment(s.feed, orderID, model.PaymentStatusRefunded, order.Payment.Amount)
	return s.orderRepo.FindByID(orderID)
}
