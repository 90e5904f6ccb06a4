package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/storefront-backend/internal/app/service"
	apperrors "github.com/ikkim/storefront-backend/internal/errors"
	"github.com/ikkim/storefront-backend/internal/middleware"
)

type ReviewController struct {
	reviewService *service.ReviewService
}

func NewReviewController(reviewService *service.ReviewService) *ReviewController {
	return &ReviewController{reviewService: reviewService}
}

// Length limits are enforced by the service so the client gets the specific error.
type CreateReviewRequest struct {
	ProductID uint   `json:"product_id" binding:"required"`
	Rating    int    `json:"rating" binding:"required"`
	Title     string `json:"title"`
	Comment   string `json:"comment"`
}

type UpdateReviewRequest struct {
	Rating  *int    `json:"rating"`
	Title   *string `json:"title"`
	Comment *string `json:"comment"`
}

type ApproveReviewRequest struct {
	Approved *bool `json:"approved" binding:"required"`
}

// POST /api/v1/reviews
func (ctrl *ReviewController) Create(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req CreateReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.RespondWithBindingError(c, err)
		return
	}

	review, err := ctrl.reviewService.CreateReview(c.Request.Context(), userID, service.ReviewInput{
		ProductID: req.ProductID,
		Rating:    req.Rating,
		Title:     req.Title,
		Comment:   req.Comment,
	})
	if err != nil {
		respondError(c, err, "create review")
		return
	}

	log.Info("Review created", map[string]interface{}{
		"review_id":  review.ID,
		"product_id": req.ProductID,
	})
	c.JSON(http.StatusCreated, review)
}

// GET /api/v1/reviews/:id
func (ctrl *ReviewController) Get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	review, err := ctrl.reviewService.GetReview(id)
	if err != nil {
		respondError(c, err, "get review")
		return
	}
	c.JSON(http.StatusOK, review)
}

// PUT /api/v1/reviews/:id
func (ctrl *ReviewController) Update(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req UpdateReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.RespondWithBindingError(c, err)
		return
	}

	review, err := ctrl.reviewService.UpdateReview(c.Request.Context(), userID, id, service.ReviewUpdate{
		Rating:  req.Rating,
		Title:   req.Title,
		Comment: req.Comment,
	})
	if err != nil {
		respondError(c, err, "update review")
		return
	}
	c.JSON(http.StatusOK, review)
}

// DELETE /api/v1/reviews/:id
func (ctrl *ReviewController) Delete(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := ctrl.reviewService.DeleteReview(c.Request.Context(), userID, middleware.IsAdmin(c), id); err != nil {
		respondError(c, err, "delete review")
		return
	}
	c.Status(http.StatusNoContent)
}

// GET /api/v1/reviews/product/:productId
func (ctrl *ReviewController) ListByProduct(c *gin.Context) {
	productID, ok := parseID(c, "productId")
	if !ok {
		return
	}
	page, err := ctrl.reviewService.GetProductReviews(productID, parsePagination(c, defaultPageSize))
	if err != nil {
		respondError(c, err, "list reviews")
		return
	}
	c.JSON(http.StatusOK, page)
}

// GET /api/v1/reviews/product/:productId/verified
func (ctrl *ReviewController) ListVerified(c *gin.Context) {
	productID, ok := parseID(c, "productId")
	if !ok {
		return
	}
	page, err := ctrl.reviewService.GetVerifiedReviews(productID, parsePagination(c, defaultPageSize))
	if err != nil {
		respondError(c, err, "list reviews")
		return
	}
	c.JSON(http.StatusOK, page)
}

// GET /api/v1/reviews/product/:productId/recent
func (ctrl *ReviewController) Recent(c *gin.Context) {
	productID, ok := parseID(c, "productId")
	if !ok {
		return
	}
	reviews, err := ctrl.reviewService.GetRecentReviews(productID, parseLimit(c))
	if err != nil {
		respondError(c, err, "list reviews")
		return
	}
	c.JSON(http.StatusOK, reviews)
}

// GET /api/v1/reviews/product/:productId/helpful
func (ctrl *ReviewController) MostHelpful(c *gin.Context) {
	productID, ok := parseID(c, "productId")
	if !ok {
		return
	}
	reviews, err := ctrl.reviewService.GetMostHelpfulReviews(productID, parseLimit(c))
	if err != nil {
		respondError(c, err, "list reviews")
		return
	}
	c.JSON(http.StatusOK, reviews)
}

// GET /api/v1/reviews/product/:productId/stats
func (ctrl *ReviewController) Statistics(c *gin.Context) {
	productID, ok := parseID(c, "productId")
	if !ok {
		return
	}
	stats, err := ctrl.reviewService.GetProductStatistics(productID)
	if err != nil {
		respondError(c, err, "review stats")
		return
	}
	c.JSON(http.StatusOK, stats)
}

// POST /api/v1/reviews/:id/helpful
func (ctrl *ReviewController) MarkHelpful(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	review, err := ctrl.reviewService.MarkHelpful(c.Request.Context(), id, userID)
	if err != nil {
		respondError(c, err, "mark review helpful")
		return
	}
	c.JSON(http.StatusOK, review)
}

// PUT /api/v1/admin/reviews/:id/approval
func (ctrl *ReviewController) SetApproval(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req ApproveReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.RespondWithBindingError(c, err)
		return
	}

	review, err := ctrl.reviewService.SetApproved(c.Request.Context(), id, *req.Approved)
	if err != nil {
		respondError(c, err, "update review")
		return
	}
	c.JSON(http.StatusOK, review)
}
