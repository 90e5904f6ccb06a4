package controller

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/storefront-backend/internal/app/service"
	apperrors "github.com/ikkim/storefront-backend/internal/errors"
	"github.com/ikkim/storefront-backend/internal/middleware"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type ProductController struct {
	productService        service.ProductService
	recommendationService service.RecommendationService
}

func NewProductController(productService service.ProductService, recommendationService service.RecommendationService) *ProductController {
	return &ProductController{
		productService:        productService,
		recommendationService: recommendationService,
	}
}

type SkuRequest struct {
	ID       uint    `json:"id"`
	Sku      string  `json:"sku" binding:"max=100"`
	Size     string  `json:"size" binding:"max=50"`
	Color    string  `json:"color" binding:"max=50"`
	Price    float64 `json:"price" binding:"gte=0"`
	Quantity int     `json:"quantity" binding:"gte=0"`
}

func (r SkuRequest) input() service.SkuInput {
	return service.SkuInput{
		ID:       r.ID,
		Sku:      r.Sku,
		Size:     r.Size,
		Color:    r.Color,
		Price:    r.Price,
		Quantity: r.Quantity,
	}
}

// ProductRequest creates or updates a product. On update an omitted skus
// array leaves the SKUs alone.
type ProductRequest struct {
	Name        string       `json:"name" binding:"required,max=200"`
	Description string       `json:"description"`
	Summary     string       `json:"summary" binding:"max=500"`
	Cover       string       `json:"cover"`
	CategoryID  *uint        `json:"category_id"`
	Skus        []SkuRequest `json:"skus" binding:"omitempty,dive"`
}

func (r ProductRequest) input() service.ProductInput {
	input := service.ProductInput{
		Name:        r.Name,
		Description: r.Description,
		Summary:     r.Summary,
		Cover:       r.Cover,
		CategoryID:  r.CategoryID,
	}
	if r.Skus != nil {
		input.Skus = make([]service.SkuInput, 0, len(r.Skus))
		for _, s := range r.Skus {
			input.Skus = append(input.Skus, s.input())
		}
	}
	return input
}

type SkuUpdateRequest struct {
	Price    *float64 `json:"price" binding:"omitempty,gte=0"`
	Quantity *int     `json:"quantity" binding:"omitempty,gte=0"`
}

// GET /api/v1/products
func (ctrl *ProductController) List(c *gin.Context) {
	page, err := ctrl.productService.List(parsePagination(c, publicPageSize))
	if err != nil {
		respondError(c, err, "list products")
		return
	}
	c.JSON(http.StatusOK, page)
}

// GetDetail returns the product page and records the view.
// GET /api/v1/products/:id
func (ctrl *ProductController) GetDetail(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	detail, err := ctrl.productService.GetDetail(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "get product")
		return
	}

	if ctrl.recommendationService != nil {
		view := service.ViewInput{
			ProductID: id,
			IPAddress: c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
		}
		if userID, ok := middleware.GetUserID(c); ok {
			view.UserID = &userID
		}
		if err := ctrl.recommendationService.TrackProductView(c.Request.Context(), view); err != nil {
			log.Warn("Failed to track product view", map[string]interface{}{
				"product_id": id,
				"error":      err.Error(),
			})
		}
	}

	c.JSON(http.StatusOK, detail)
}

// GET /api/v1/products/search?name=
func (ctrl *ProductController) SearchByName(c *gin.Context) {
	page, err := ctrl.productService.SearchByName(c.Query("name"), parsePagination(c, publicPageSize))
	if err != nil {
		respondError(c, err, "search products")
		return
	}
	c.JSON(http.StatusOK, page)
}

// GET /api/v1/products/category/:categoryId
func (ctrl *ProductController) ListByCategory(c *gin.Context) {
	categoryID, ok := parseID(c, "categoryId")
	if !ok {
		return
	}
	page, err := ctrl.productService.ListByCategory(categoryID, parsePagination(c, publicPageSize))
	if err != nil {
		respondError(c, err, "list products")
		return
	}
	c.JSON(http.StatusOK, page)
}

// GET /api/v1/products/price-range?min=&max=
func (ctrl *ProductController) ListByPriceRange(c *gin.Context) {
	min, ok := queryFloat(c, "min")
	if !ok {
		return
	}
	max, ok := queryFloat(c, "max")
	if !ok {
		return
	}
	if min == nil || max == nil {
		apperrors.BadRequest(c, apperrors.ValidationRequired, "min and max are required")
		return
	}

	page, err := ctrl.productService.ListByPriceRange(*min, *max, parsePagination(c, publicPageSize))
	if err != nil {
		respondError(c, err, "list products")
		return
	}
	c.JSON(http.StatusOK, page)
}

// GET /api/v1/products/available
func (ctrl *ProductController) ListAvailable(c *gin.Context) {
	page, err := ctrl.productService.ListAvailable(parsePagination(c, publicPageSize))
	if err != nil {
		respondError(c, err, "list products")
		return
	}
	c.JSON(http.StatusOK, page)
}

// GET /api/v1/products/recent
func (ctrl *ProductController) Recent(c *gin.Context) {
	products, err := ctrl.productService.Recent(parseLimit(c))
	if err != nil {
		respondError(c, err, "list products")
		return
	}
	c.JSON(http.StatusOK, products)
}

// GET /api/v1/products/featured
func (ctrl *ProductController) Featured(c *gin.Context) {
	products, err := ctrl.productService.Featured(parseLimit(c))
	if err != nil {
		respondError(c, err, "list products")
		return
	}
	c.JSON(http.StatusOK, products)
}

// GET /api/v1/products/trending
func (ctrl *ProductController) Trending(c *gin.Context) {
	products, err := ctrl.productService.Trending(parseLimit(c))
	if err != nil {
		respondError(c, err, "list products")
		return
	}
	c.JSON(http.StatusOK, products)
}

// GET /api/v1/products/random
func (ctrl *ProductController) Random(c *gin.Context) {
	products, err := ctrl.productService.Random(parseLimit(c))
	if err != nil {
		respondError(c, err, "list products")
		return
	}
	c.JSON(http.StatusOK, products)
}

// GET /api/v1/products/:id/similar
func (ctrl *ProductController) Similar(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	products, err := ctrl.productService.Similar(id, parseLimit(c))
	if err != nil {
		respondError(c, err, "list products")
		return
	}
	c.JSON(http.StatusOK, products)
}

// POST /api/v1/admin/products
func (ctrl *ProductController) Create(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid create product request", map[string]interface{}{
			"error": err.Error(),
		})
		apperrors.RespondWithBindingError(c, err)
		return
	}

	product, err := ctrl.productService.Create(c.Request.Context(), req.input())
	if err != nil {
		respondError(c, err, "create product")
		return
	}

	log.Info("Product created", map[string]interface{}{
		"product_id": product.ID,
		"skus":       len(product.Skus),
	})
	c.JSON(http.StatusCreated, product)
}

// PUT /api/v1/admin/products/:id
func (ctrl *ProductController) Update(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.RespondWithBindingError(c, err)
		return
	}

	product, err := ctrl.productService.Update(c.Request.Context(), id, req.input())
	if err != nil {
		respondError(c, err, "update product")
		return
	}
	c.JSON(http.StatusOK, product)
}

// DELETE /api/v1/admin/products/:id
func (ctrl *ProductController) Delete(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := ctrl.productService.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err, "delete product")
		return
	}
	c.Status(http.StatusNoContent)
}

// DELETE /api/v1/admin/products/:id/soft
func (ctrl *ProductController) SoftDelete(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := ctrl.productService.SoftDelete(c.Request.Context(), id); err != nil {
		respondError(c, err, "delete product")
		return
	}
	c.Status(http.StatusNoContent)
}

// POST /api/v1/admin/products/:id/restore
func (ctrl *ProductController) Restore(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	product, err := ctrl.productService.Restore(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "restore product")
		return
	}
	c.JSON(http.StatusOK, product)
}

// GET /api/v1/admin/products
func (ctrl *ProductController) ListAll(c *gin.Context) {
	page, err := ctrl.productService.ListAll(parsePagination(c, defaultPageSize))
	if err != nil {
		respondError(c, err, "list products")
		return
	}
	c.JSON(http.StatusOK, page)
}

// GET /api/v1/admin/products/deleted
func (ctrl *ProductController) ListDeleted(c *gin.Context) {
	page, err := ctrl.productService.ListDeleted(parsePagination(c, defaultPageSize))
	if err != nil {
		respondError(c, err, "list products")
		return
	}
	c.JSON(http.StatusOK, page)
}

// GET /api/v1/admin/products/stats
func (ctrl *ProductController) Stats(c *gin.Context) {
	stats, err := ctrl.productService.Stats()
	if err != nil {
		respondError(c, err, "product stats")
		return
	}
	c.JSON(http.StatusOK, stats)
}

// POST /api/v1/admin/products/bulk-delete
func (ctrl *ProductController) BulkSoftDelete(c *gin.Context) {
	var req IDsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.RespondWithBindingError(c, err)
		return
	}
	c.JSON(http.StatusOK, ctrl.productService.BulkSoftDelete(c.Request.Context(), req.IDs))
}

// POST /api/v1/admin/products/bulk-restore
func (ctrl *ProductController) BulkRestore(c *gin.Context) {
	var req IDsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.RespondWithBindingError(c, err)
		return
	}
	c.JSON(http.StatusOK, ctrl.productService.BulkRestore(c.Request.Context(), req.IDs))
}

// GET /api/v1/admin/products/export
func (ctrl *ProductController) Export(c *gin.Context) {
	filename := fmt.Sprintf("products-%s.xlsx", time.Now().Format("20060102"))
	c.Header("Content-Type", xlsxContentType)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

	if err := ctrl.productService.ExportXLSX(c.Writer); err != nil {
		middleware.GetLoggerFromContext(c).Error("Failed to export products", err)
		if !c.Writer.Written() {
			c.Header("Content-Disposition", "")
			apperrors.InternalError(c, "Failed to export products")
		}
	}
}

// Import reads an uploaded workbook in the export layout.
// POST /api/v1/admin/products/import (multipart field "file")
func (ctrl *ProductController) Import(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		apperrors.BadRequest(c, apperrors.ValidationRequired, "file is required")
		return
	}
	file, err := header.Open()
	if err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Unable to read file")
		return
	}
	defer file.Close()

	result, err := ctrl.productService.ImportXLSX(c.Request.Context(), file)
	if err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, capitalize(err.Error()))
		return
	}

	middleware.GetLoggerFromContext(c).Info("Products imported", map[string]interface{}{
		"filename":      header.Filename,
		"success_count": result.SuccessCount,
		"failure_count": result.FailureCount,
	})
	c.JSON(http.StatusOK, result)
}

// POST /api/v1/admin/products/:id/skus
func (ctrl *ProductController) AddSku(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req SkuRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.RespondWithBindingError(c, err)
		return
	}

	sku, err := ctrl.productService.AddSku(c.Request.Context(), id, req.input())
	if err != nil {
		respondError(c, err, "add sku")
		return
	}
	c.JSON(http.StatusCreated, sku)
}

// PUT /api/v1/admin/skus/:skuId
func (ctrl *ProductController) UpdateSku(c *gin.Context) {
	skuID, ok := parseID(c, "skuId")
	if !ok {
		return
	}

	var req SkuUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.RespondWithBindingError(c, err)
		return
	}

	sku, err := ctrl.productService.UpdateSku(c.Request.Context(), skuID, service.SkuUpdate{
		Price:    req.Price,
		Quantity: req.Quantity,
	})
	if err != nil {
		respondError(c, err, "update sku")
		return
	}
	c.JSON(http.StatusOK, sku)
}

// DELETE /api/v1/admin/skus/:skuId
func (ctrl *ProductController) DeleteSku(c *gin.Context) {
	skuID, ok := parseID(c, "skuId")
	if !ok {
		return
	}
	if err := ctrl.productService.DeleteSku(c.Request.Context(), skuID); err != nil {
		respondError(c, err, "delete sku")
		return
	}
	c.Status(http.StatusNoContent)
}
