package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/storefront-backend/internal/app/service"
	apperrors "github.com/ikkim/storefront-backend/internal/errors"
	"github.com/ikkim/storefront-backend/internal/middleware"
)

type CategoryController struct {
	categoryService service.CategoryService
}

func NewCategoryController(categoryService service.CategoryService) *CategoryController {
	return &CategoryController{categoryService: categoryService}
}

type CategoryRequest struct {
	Name        string `json:"name" binding:"required,max=100"`
	Description string `json:"description"`
}

// GET /api/v1/categories
func (ctrl *CategoryController) List(c *gin.Context) {
	categories, err := ctrl.categoryService.List()
	if err != nil {
		respondError(c, err, "list categories")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"categories": categories,
		"count":      len(categories),
	})
}

// GET /api/v1/categories/:id
func (ctrl *CategoryController) Get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	category, err := ctrl.categoryService.GetByID(id)
	if err != nil {
		respondError(c, err, "get category")
		return
	}
	c.JSON(http.StatusOK, category)
}

// GET /api/v1/categories/name/:name
func (ctrl *CategoryController) GetByName(c *gin.Context) {
	category, err := ctrl.categoryService.GetByName(c.Param("name"))
	if err != nil {
		respondError(c, err, "get category")
		return
	}
	c.JSON(http.StatusOK, category)
}

// GET /api/v1/categories/search?q=
func (ctrl *CategoryController) Search(c *gin.Context) {
	categories, err := ctrl.categoryService.Search(c.Query("q"))
	if err != nil {
		respondError(c, err, "search categories")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"categories": categories,
		"count":      len(categories),
	})
}

// GET /api/v1/categories/count
func (ctrl *CategoryController) Count(c *gin.Context) {
	count, err := ctrl.categoryService.Count()
	if err != nil {
		respondError(c, err, "count categories")
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": count})
}

// POST /api/v1/admin/categories
func (ctrl *CategoryController) Create(c *gin.Context) {
	var req CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.RespondWithBindingError(c, err)
		return
	}

	category, err := ctrl.categoryService.Create(req.Name, req.Description)
	if err != nil {
		respondError(c, err, "create category")
		return
	}

	middleware.GetLoggerFromContext(c).Info("Category created", map[string]interface{}{
		"category_id": category.ID,
	})
	c.JSON(http.StatusCreated, category)
}

// PUT /api/v1/admin/categories/:id
func (ctrl *CategoryController) Update(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.RespondWithBindingError(c, err)
		return
	}

	category, err := ctrl.categoryService.Update(id, req.Name, req.Description)
	if err != nil {
		respondError(c, err, "update category")
		return
	}
	c.JSON(http.StatusOK, category)
}

// DELETE /api/v1/admin/categories/:id
func (ctrl *CategoryController) Delete(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := ctrl.categoryService.Delete(id); err != nil {
		respondError(c, err, "delete category")
		return
	}
	c.Status(http.StatusNoContent)
}

// DELETE /api/v1/admin/categories/:id/soft
func (ctrl *CategoryController) SoftDelete(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := ctrl.categoryService.SoftDelete(id); err != nil {
		respondError(c, err, "delete category")
		return
	}
	c.Status(http.StatusNoContent)
}

// POST /api/v1/admin/categories/:id/restore
func (ctrl *CategoryController) Restore(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	category, err := ctrl.categoryService.Restore(id)
	if err != nil {
		respondError(c, err, "restore category")
		return
	}
	c.JSON(http.StatusOK, category)
}
