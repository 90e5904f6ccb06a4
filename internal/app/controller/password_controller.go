package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/storefront-backend/internal/app/service"
	apperrors "github.com/ikkim/storefront-backend/internal/errors"
	"github.com/ikkim/storefront-backend/internal/middleware"
)

type PasswordController struct {
	resetService service.PasswordResetService
}

func NewPasswordController(resetService service.PasswordResetService) *PasswordController {
	return &PasswordController{resetService: resetService}
}

type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type ResetPasswordRequest struct {
	Token       string `json:"token" binding:"required"`
	NewPassword string `json:"new_password" binding:"required"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required"`
}

// Forgot always answers 202 for a well-formed email, whether or not an
// account exists.
// POST /api/v1/auth/password/forgot
func (ctrl *PasswordController) Forgot(c *gin.Context) {
	var req ForgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.RespondWithBindingError(c, err)
		return
	}

	if err := ctrl.resetService.RequestReset(c.Request.Context(), req.Email); err != nil {
		respondError(c, err, "request password reset")
		return
	}
	c.JSON(http.StatusAccepted, gin.H{
		"message": "If the email is registered, a reset link has been sent",
	})
}

// POST /api/v1/auth/password/reset
func (ctrl *PasswordController) Reset(c *gin.Context) {
	var req ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.RespondWithBindingError(c, err)
		return
	}

	if err := ctrl.resetService.ResetPassword(c.Request.Context(), req.Token, req.NewPassword); err != nil {
		respondError(c, err, "reset password")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password has been reset"})
}

// PUT /api/v1/users/me/password
func (ctrl *PasswordController) Change(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.RespondWithBindingError(c, err)
		return
	}

	if err := ctrl.resetService.ChangePassword(c.Request.Context(), userID, req.CurrentPassword, req.NewPassword); err != nil {
		respondError(c, err, "change password")
		return
	}

	middleware.GetLoggerFromContext(c).Info("Password changed", map[string]interface{}{
		"user_id": userID,
	})
	c.JSON(http.StatusOK, gin.H{"message": "Password changed"})
}
