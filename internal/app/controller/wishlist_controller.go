package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/storefront-backend/internal/app/service"
	apperrors "github.com/ikkim/storefront-backend/internal/errors"
	"github.com/ikkim/storefront-backend/internal/middleware"
)

type WishlistController struct {
	wishlistService service.WishlistService
}

func NewWishlistController(wishlistService service.WishlistService) *WishlistController {
	return &WishlistController{wishlistService: wishlistService}
}

type AddToWishlistRequest struct {
	ProductID uint `json:"product_id" binding:"required"`
}

// GET /api/v1/wishlist
func (ctrl *WishlistController) List(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	items, err := ctrl.wishlistService.List(userID)
	if err != nil {
		respondError(c, err, "list wishlist")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"items": items,
		"count": len(items),
	})
}

// GET /api/v1/wishlist/page
func (ctrl *WishlistController) ListPage(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	page, err := ctrl.wishlistService.ListPage(userID, parsePagination(c, defaultPageSize))
	if err != nil {
		respondError(c, err, "list wishlist")
		return
	}
	c.JSON(http.StatusOK, page)
}

// POST /api/v1/wishlist
func (ctrl *WishlistController) Add(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req AddToWishlistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.RespondWithBindingError(c, err)
		return
	}

	item, err := ctrl.wishlistService.Add(userID, req.ProductID)
	if err != nil {
		respondError(c, err, "add wishlist item")
		return
	}

	middleware.GetLoggerFromContext(c).Info("Product added to wishlist", map[string]interface{}{
		"user_id":    userID,
		"product_id": req.ProductID,
	})
	c.JSON(http.StatusCreated, item)
}

// DELETE /api/v1/wishlist/:productId
func (ctrl *WishlistController) Remove(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	productID, ok := parseID(c, "productId")
	if !ok {
		return
	}
	if err := ctrl.wishlistService.Remove(userID, productID); err != nil {
		respondError(c, err, "remove wishlist item")
		return
	}
	c.Status(http.StatusNoContent)
}

// DELETE /api/v1/wishlist
func (ctrl *WishlistController) Clear(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	removed, err := ctrl.wishlistService.Clear(userID)
	if err != nil {
		respondError(c, err, "clear wishlist")
		return
	}
	c.JSON(http.StatusOK, gin.H{"removed": removed})
}

// GET /api/v1/wishlist/check/:productId
func (ctrl *WishlistController) Check(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	productID, ok := parseID(c, "productId")
	if !ok {
		return
	}
	exists, err := ctrl.wishlistService.Check(userID, productID)
	if err != nil {
		respondError(c, err, "check wishlist")
		return
	}
	c.JSON(http.StatusOK, gin.H{"in_wishlist": exists})
}

// GET /api/v1/wishlist/count
func (ctrl *WishlistController) Count(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	count, err := ctrl.wishlistService.Count(userID)
	if err != nil {
		respondError(c, err, "count wishlist")
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": count})
}

// GET /api/v1/wishlist/empty
func (ctrl *WishlistController) IsEmpty(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	empty, err := ctrl.wishlistService.IsEmpty(userID)
	if err != nil {
		respondError(c, err, "count wishlist")
		return
	}
	c.JSON(http.StatusOK, gin.H{"empty": empty})
}

// GET /api/v1/wishlist/category/:categoryId
func (ctrl *WishlistController) ByCategory(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	categoryID, ok := parseID(c, "categoryId")
	if !ok {
		return
	}
	items, err := ctrl.wishlistService.ByCategory(userID, categoryID)
	if err != nil {
		respondError(c, err, "list wishlist")
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// GET /api/v1/wishlist/recent
func (ctrl *WishlistController) Recent(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	items, err := ctrl.wishlistService.Recent(userID, parseLimit(c))
	if err != nil {
		respondError(c, err, "list wishlist")
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// GET /api/v1/wishlist/popular
func (ctrl *WishlistController) MostWishlisted(c *gin.Context) {
	products, err := ctrl.wishlistService.MostWishlisted(parseLimit(c))
	if err != nil {
		respondError(c, err, "popular wishlist")
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}

// GET /api/v1/wishlist/stats
func (ctrl *WishlistController) Stats(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	stats, err := ctrl.wishlistService.Stats(userID)
	if err != nil {
		respondError(c, err, "wishlist stats")
		return
	}
	c.JSON(http.StatusOK, stats)
}

// POST /api/v1/wishlist/bulk/add
func (ctrl *WishlistController) BulkAdd(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var req IDsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.RespondWithBindingError(c, err)
		return
	}
	c.JSON(http.StatusOK, ctrl.wishlistService.BulkAdd(userID, req.IDs))
}

// POST /api/v1/wishlist/bulk/remove
func (ctrl *WishlistController) BulkRemove(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var req IDsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.RespondWithBindingError(c, err)
		return
	}
	c.JSON(http.StatusOK, ctrl.wishlistService.BulkRemove(userID, req.IDs))
}

// POST /api/v1/wishlist/:productId/move-to-cart
func (ctrl *WishlistController) MoveToCart(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	productID, ok := parseID(c, "productId")
	if !ok {
		return
	}
	cart, err := ctrl.wishlistService.MoveToCart(userID, productID)
	if err != nil {
		respondError(c, err, "move to cart")
		return
	}
	c.JSON(http.StatusOK, newCartResponse(cart))
}

// POST /api/v1/wishlist/move-all-to-cart
func (ctrl *WishlistController) MoveAllToCart(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, ctrl.wishlistService.MoveAllToCart(userID))
}

// POST /api/v1/admin/wishlist/:id/restore
func (ctrl *WishlistController) Restore(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	item, err := ctrl.wishlistService.Restore(id)
	if err != nil {
		respondError(c, err, "restore wishlist item")
		return
	}
	c.JSON(http.StatusOK, item)
}

// DELETE /api/v1/admin/wishlist/:id
func (ctrl *WishlistController) HardDelete(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := ctrl.wishlistService.HardDelete(id); err != nil {
		respondError(c, err, "delete wishlist item")
		return
	}
	c.Status(http.StatusNoContent)
}
