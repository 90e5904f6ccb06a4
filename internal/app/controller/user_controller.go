package controller

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/internal/app/service"
	apperrors "github.com/ikkim/storefront-backend/internal/errors"
	"github.com/ikkim/storefront-backend/internal/middleware"
)

type UserController struct {
	userService service.UserService
}

func NewUserController(userService service.UserService) *UserController {
	return &UserController{userService: userService}
}

// UpdateProfileRequest leaves omitted fields unchanged.
type UpdateProfileRequest struct {
	FirstName *string    `json:"first_name" binding:"omitempty,max=100"`
	LastName  *string    `json:"last_name" binding:"omitempty,max=100"`
	Phone     *string    `json:"phone" binding:"omitempty,max=30"`
	Avatar    *string    `json:"avatar"`
	Email     *string    `json:"email" binding:"omitempty,email"`
	BirthDate *time.Time `json:"birth_date"`
}

type SetRoleRequest struct {
	Role string `json:"role" binding:"required,oneof=user admin"`
}

// GET /api/v1/users/:id
func (ctrl *UserController) GetUser(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	user, err := ctrl.userService.GetByID(id)
	if err != nil {
		respondError(c, err, "get user")
		return
	}
	c.JSON(http.StatusOK, user)
}

// GET /api/v1/users/username/:username
func (ctrl *UserController) GetByUsername(c *gin.Context) {
	user, err := ctrl.userService.GetByUsername(c.Param("username"))
	if err != nil {
		respondError(c, err, "get user")
		return
	}
	c.JSON(http.StatusOK, user)
}

// GET /api/v1/users/email/:email
func (ctrl *UserController) GetByEmail(c *gin.Context) {
	user, err := ctrl.userService.GetByEmail(c.Param("email"))
	if err != nil {
		respondError(c, err, "get user")
		return
	}
	c.JSON(http.StatusOK, user)
}

// GET /api/v1/users/exists?username=&email=
func (ctrl *UserController) Exists(c *gin.Context) {
	username, email := c.Query("username"), c.Query("email")
	if username == "" && email == "" {
		apperrors.BadRequest(c, apperrors.ValidationRequired, "username or email is required")
		return
	}

	resp := gin.H{}
	if username != "" {
		exists, err := ctrl.userService.ExistsByUsername(username)
		if err != nil {
			respondError(c, err, "check username")
			return
		}
		resp["username_exists"] = exists
	}
	if email != "" {
		exists, err := ctrl.userService.ExistsByEmail(email)
		if err != nil {
			respondError(c, err, "check email")
			return
		}
		resp["email_exists"] = exists
	}
	c.JSON(http.StatusOK, resp)
}

// PUT /api/v1/users/me
func (ctrl *UserController) UpdateMe(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid update profile request", map[string]interface{}{
			"user_id": userID,
			"error":   err.Error(),
		})
		apperrors.RespondWithBindingError(c, err)
		return
	}

	user, err := ctrl.userService.UpdateProfile(userID, service.UpdateProfileInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
		Avatar:    req.Avatar,
		Email:     req.Email,
		BirthDate: req.BirthDate,
	})
	if err != nil {
		respondError(c, err, "update user")
		return
	}

	log.Info("User profile updated", map[string]interface{}{
		"user_id": userID,
	})
	c.JSON(http.StatusOK, user)
}

// DELETE /api/v1/users/me
func (ctrl *UserController) DeleteMe(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	if err := ctrl.userService.Delete(userID); err != nil {
		respondError(c, err, "delete user")
		return
	}
	c.Status(http.StatusNoContent)
}

// GET /api/v1/admin/users
func (ctrl *UserController) ListUsers(c *gin.Context) {
	page, err := ctrl.userService.List(parsePagination(c, defaultPageSize))
	if err != nil {
		respondError(c, err, "list users")
		return
	}
	c.JSON(http.StatusOK, page)
}

// PUT /api/v1/admin/users/:id/role
func (ctrl *UserController) SetRole(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req SetRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.RespondWithBindingError(c, err)
		return
	}

	user, err := ctrl.userService.SetRole(id, model.UserRole(req.Role))
	if err != nil {
		respondError(c, err, "update user role")
		return
	}

	middleware.GetLoggerFromContext(c).Info("User role changed", map[string]interface{}{
		"user_id": id,
		"role":    req.Role,
	})
	c.JSON(http.StatusOK, user)
}

// PUT /api/v1/admin/users/:id/activate
func (ctrl *UserController) Activate(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	user, err := ctrl.userService.Activate(id)
	if err != nil {
		respondError(c, err, "activate user")
		return
	}
	c.JSON(http.StatusOK, user)
}

// DELETE /api/v1/admin/users/:id
func (ctrl *UserController) DeleteUser(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := ctrl.userService.Delete(id); err != nil {
		respondError(c, err, "delete user")
		return
	}
	c.Status(http.StatusNoContent)
}

// GET /api/v1/admin/users/stats
func (ctrl *UserController) Stats(c *gin.Context) {
	stats, err := ctrl.userService.Stats()
	if err != nil {
		respondError(c, err, "user stats")
		return
	}
	c.JSON(http.StatusOK, stats)
}
