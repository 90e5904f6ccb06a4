package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/internal/app/service"
	apperrors "github.com/ikkim/storefront-backend/internal/errors"
	"github.com/ikkim/storefront-backend/internal/middleware"
)

type RecommendationController struct {
	recommendationService service.RecommendationService
}

func NewRecommendationController(recommendationService service.RecommendationService) *RecommendationController {
	return &RecommendationController{recommendationService: recommendationService}
}

type UpdateScoreRequest struct {
	Score *float64 `json:"score" binding:"required"`
}

// GET /api/v1/recommendations
func (ctrl *RecommendationController) List(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var (
		recs []model.ProductRecommendation
		err  error
	)
	if recType := c.Query("type"); recType != "" {
		recs, err = ctrl.recommendationService.ListByType(userID, model.RecommendationType(recType), parseLimit(c))
	} else {
		recs, err = ctrl.recommendationService.List(userID, parseLimit(c))
	}
	if err != nil {
		respondError(c, err, "list recommendations")
		return
	}
	c.JSON(http.StatusOK, gin.H{"recommendations": recs})
}

// GET /api/v1/recommendations/personalized
func (ctrl *RecommendationController) Personalized(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	recs, err := ctrl.recommendationService.ListByType(userID, model.RecommendationPersonalized, parseLimit(c))
	if err != nil {
		respondError(c, err, "list recommendations")
		return
	}
	c.JSON(http.StatusOK, gin.H{"recommendations": recs})
}

// POST /api/v1/recommendations/generate
func (ctrl *RecommendationController) Generate(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	recs, err := ctrl.recommendationService.GenerateForUser(userID)
	if err != nil {
		respondError(c, err, "generate recommendations")
		return
	}

	middleware.GetLoggerFromContext(c).Info("Recommendations generated", map[string]interface{}{
		"user_id": userID,
		"count":   len(recs),
	})
	c.JSON(http.StatusOK, gin.H{"recommendations": recs})
}

// PUT /api/v1/recommendations/:id/viewed
func (ctrl *RecommendationController) MarkViewed(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := ctrl.recommendationService.MarkViewed(userID, id); err != nil {
		respondError(c, err, "update recommendation")
		return
	}
	c.Status(http.StatusNoContent)
}

// PUT /api/v1/recommendations/:id/clicked
func (ctrl *RecommendationController) MarkClicked(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := ctrl.recommendationService.MarkClicked(userID, id); err != nil {
		respondError(c, err, "update recommendation")
		return
	}
	c.Status(http.StatusNoContent)
}

// DELETE /api/v1/recommendations/:id
func (ctrl *RecommendationController) Remove(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := ctrl.recommendationService.Remove(userID, id); err != nil {
		respondError(c, err, "delete recommendation")
		return
	}
	c.Status(http.StatusNoContent)
}

// GET /api/v1/analytics/products/:id
func (ctrl *RecommendationController) ProductAnalytics(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	analytics, err := ctrl.recommendationService.ProductAnalytics(id)
	if err != nil {
		respondError(c, err, "product analytics")
		return
	}
	c.JSON(http.StatusOK, analytics)
}

// PUT /api/v1/admin/recommendations/:id/score
func (ctrl *RecommendationController) UpdateScore(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req UpdateScoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.RespondWithBindingError(c, err)
		return
	}

	rec, err := ctrl.recommendationService.UpdateScore(id, *req.Score)
	if err != nil {
		respondError(c, err, "update recommendation")
		return
	}
	c.JSON(http.StatusOK, rec)
}

// POST /api/v1/admin/recommendations/generate
func (ctrl *RecommendationController) GenerateAll(c *gin.Context) {
	users, err := ctrl.recommendationService.GenerateAll(c.Request.Context())
	if err != nil {
		respondError(c, err, "generate recommendations")
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

// GET /api/v1/admin/recommendations/stats
func (ctrl *RecommendationController) Stats(c *gin.Context) {
	stats, err := ctrl.recommendationService.Stats()
	if err != nil {
		respondError(c, err, "recommendation stats")
		return
	}
	c.JSON(http.StatusOK, stats)
}
