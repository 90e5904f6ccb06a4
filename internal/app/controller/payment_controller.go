package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/storefront-backend/internal/app/service"
	apperrors "github.com/ikkim/storefront-backend/internal/errors"
	"github.com/ikkim/storefront-backend/internal/middleware"
)

type PaymentController struct {
	paymentService service.PaymentService
}

func NewPaymentController(paymentService service.PaymentService) *PaymentController {
	return &PaymentController{
		paymentService: paymentService,
	}
}

type ApprovePaymentRequest struct {
	PgToken string `json:"pg_token" binding:"required"`
}

// Initiate opens a hosted checkout session for the order.
// POST /api/v1/orders/:id/payment
func (ctrl *PaymentController) Initiate(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	session, err := ctrl.paymentService.Initiate(c.Request.Context(), userID, id)
	if err != nil {
		respondError(c, err, "initiate payment")
		return
	}

	middleware.GetLoggerFromContext(c).Info("Payment initiated", map[string]interface{}{
		"user_id":  userID,
		"order_id": id,
		"tid":      session.TransactionID,
	})
	c.JSON(http.StatusOK, session)
}

// Approve is called by the frontend once the gateway redirects back with pg_token.
// POST /api/v1/orders/:id/payment/approve
func (ctrl *PaymentController) Approve(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req ApprovePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid approve payment request", map[string]interface{}{
			"order_id": id,
			"error":    err.Error(),
		})
		apperrors.RespondWithBindingError(c, err)
		return
	}

	order, err := ctrl.paymentService.Approve(c.Request.Context(), userID, id, req.PgToken)
	if err != nil {
		respondError(c, err, "approve payment")
		return
	}

	log.Info("Payment approved", map[string]interface{}{
		"user_id":  userID,
		"order_id": id,
	})
	c.JSON(http.StatusOK, order)
}

// POST /api/v1/orders/:id/payment/fail
func (ctrl *PaymentController) Fail(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	order, err := ctrl.paymentService.Fail(c.Request.Context(), userID, id)
	if err != nil {
		respondError(c, err, "fail payment")
		return
	}
	c.JSON(http.StatusOK, order)
}

// POST /api/v1/admin/orders/:id/refund
func (ctrl *PaymentController) Refund(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	order, err := ctrl.paymentService.Refund(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "refund payment")
		return
	}

	middleware.GetLoggerFromContext(c).Info("Payment refunded", map[string]interface{}{
		"order_id": id,
	})
	c.JSON(http.StatusOK, order)
}
