package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/internal/app/service"
	apperrors "github.com/ikkim/storefront-backend/internal/errors"
	"github.com/ikkim/storefront-backend/internal/middleware"
)

type OrderController struct {
	orderService service.OrderService
}

func NewOrderController(orderService service.OrderService) *OrderController {
	return &OrderController{orderService: orderService}
}

type CheckoutRequest struct {
	ShippingAddress string `json:"shipping_address" binding:"required"`
	PaymentProvider string `json:"payment_provider" binding:"max=50"`
}

type UpdateOrderStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// POST /api/v1/orders
func (ctrl *OrderController) Checkout(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.RespondWithBindingError(c, err)
		return
	}

	order, err := ctrl.orderService.Checkout(c.Request.Context(), userID, service.CheckoutInput{
		ShippingAddress: req.ShippingAddress,
		PaymentProvider: req.PaymentProvider,
	})
	if err != nil {
		respondError(c, err, "create order")
		return
	}

	log.Info("Order placed", map[string]interface{}{
		"user_id":      userID,
		"order_id":     order.ID,
		"total_amount": order.TotalAmount,
	})
	c.JSON(http.StatusCreated, order)
}

// GET /api/v1/orders
func (ctrl *OrderController) ListMine(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	page, err := ctrl.orderService.ListUserOrders(userID, parsePagination(c, defaultPageSize))
	if err != nil {
		respondError(c, err, "list orders")
		return
	}
	c.JSON(http.StatusOK, page)
}

// GET /api/v1/orders/:id
func (ctrl *OrderController) GetMine(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	order, err := ctrl.orderService.GetUserOrder(userID, id)
	if err != nil {
		respondError(c, err, "get order")
		return
	}
	c.JSON(http.StatusOK, order)
}

// POST /api/v1/orders/:id/cancel
func (ctrl *OrderController) Cancel(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	order, err := ctrl.orderService.CancelOrder(c.Request.Context(), userID, id)
	if err != nil {
		respondError(c, err, "cancel order")
		return
	}
	c.JSON(http.StatusOK, order)
}

// GET /api/v1/admin/orders?status=
func (ctrl *OrderController) ListAll(c *gin.Context) {
	var status *model.OrderStatus
	if raw := c.Query("status"); raw != "" {
		s := model.OrderStatus(raw)
		if !s.Valid() {
			respondError(c, service.ErrInvalidOrderStatus, "list orders")
			return
		}
		status = &s
	}

	page, err := ctrl.orderService.ListAll(status, parsePagination(c, defaultPageSize))
	if err != nil {
		respondError(c, err, "list orders")
		return
	}
	c.JSON(http.StatusOK, page)
}

// PUT /api/v1/admin/orders/:id/status
func (ctrl *OrderController) UpdateStatus(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.RespondWithBindingError(c, err)
		return
	}

	order, err := ctrl.orderService.UpdateStatus(c.Request.Context(), id, model.OrderStatus(req.Status))
	if err != nil {
		respondError(c, err, "update order")
		return
	}

	middleware.GetLoggerFromContext(c).Info("Order status updated", map[string]interface{}{
		"order_id": id,
		"status":   req.Status,
	})
	c.JSON(http.StatusOK, order)
}

// PUT /api/v1/admin/orders/:id/payment-status
func (ctrl *OrderController) UpdatePaymentStatus(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.RespondWithBindingError(c, err)
		return
	}

	order, err := ctrl.orderService.UpdatePaymentStatus(id, model.PaymentStatus(req.Status))
	if err != nil {
		respondError(c, err, "update payment")
		return
	}
	c.JSON(http.StatusOK, order)
}
