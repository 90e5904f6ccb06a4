package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/internal/app/service"
	apperrors "github.com/ikkim/storefront-backend/internal/errors"
	"github.com/ikkim/storefront-backend/internal/middleware"
)

type CartController struct {
	cartService service.CartService
}

func NewCartController(cartService service.CartService) *CartController {
	return &CartController{cartService: cartService}
}

type AddToCartRequest struct {
	SkuID    uint `json:"sku_id" binding:"required"`
	Quantity int  `json:"quantity" binding:"required,gt=0"`
}

type UpdateCartItemRequest struct {
	Quantity *int `json:"quantity" binding:"required,gte=0"`
}

type BulkAddRequest struct {
	Items []AddToCartRequest `json:"items" binding:"required,min=1,dive"`
}

type BulkUpdateItem struct {
	ItemID   uint `json:"item_id" binding:"required"`
	Quantity int  `json:"quantity" binding:"gte=0"`
}

type BulkUpdateRequest struct {
	Items []BulkUpdateItem `json:"items" binding:"required,min=1,dive"`
}

type MergeCartRequest struct {
	UserID          uint `json:"user_id" binding:"required"`
	SecondaryUserID uint `json:"secondary_user_id" binding:"required"`
}

type CopyCartRequest struct {
	FromUserID uint `json:"from_user_id" binding:"required"`
	ToUserID   uint `json:"to_user_id" binding:"required"`
}

type CartItemResponse struct {
	model.CartItem
	Subtotal  float64 `json:"subtotal"`
	Available bool    `json:"available"`
}

type CartResponse struct {
	ID          uint               `json:"id"`
	UserID      uint               `json:"user_id"`
	Items       []CartItemResponse `json:"items"`
	TotalAmount float64            `json:"total_amount"`
	TotalItems  int                `json:"total_items"`
}

func newCartResponse(cart *model.Cart) CartResponse {
	resp := CartResponse{
		ID:          cart.ID,
		UserID:      cart.UserID,
		Items:       make([]CartItemResponse, 0, len(cart.Items)),
		TotalAmount: cart.TotalAmount(),
		TotalItems:  cart.TotalItems(),
	}
	for i := range cart.Items {
		item := &cart.Items[i]
		resp.Items = append(resp.Items, CartItemResponse{
			CartItem:  *item,
			Subtotal:  item.Subtotal(),
			Available: item.Available(),
		})
	}
	return resp
}

// GET /api/v1/cart
func (ctrl *CartController) GetCart(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	cart, err := ctrl.cartService.GetCart(userID)
	if err != nil {
		respondError(c, err, "get cart")
		return
	}
	c.JSON(http.StatusOK, newCartResponse(cart))
}

// POST /api/v1/cart/items
func (ctrl *CartController) AddItem(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req AddToCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid add to cart request", map[string]interface{}{
			"user_id": userID,
			"error":   err.Error(),
		})
		apperrors.RespondWithBindingError(c, err)
		return
	}

	cart, err := ctrl.cartService.AddItem(userID, req.SkuID, req.Quantity)
	if err != nil {
		respondError(c, err, "add cart item")
		return
	}

	log.Info("Item added to cart", map[string]interface{}{
		"user_id":  userID,
		"sku_id":   req.SkuID,
		"quantity": req.Quantity,
	})
	c.JSON(http.StatusOK, newCartResponse(cart))
}

// PUT /api/v1/cart/items/:itemId
func (ctrl *CartController) UpdateItem(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	itemID, ok := parseID(c, "itemId")
	if !ok {
		return
	}

	var req UpdateCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.RespondWithBindingError(c, err)
		return
	}

	cart, err := ctrl.cartService.UpdateItem(userID, itemID, *req.Quantity)
	if err != nil {
		respondError(c, err, "update cart item")
		return
	}
	c.JSON(http.StatusOK, newCartResponse(cart))
}

// DELETE /api/v1/cart/items/:itemId
func (ctrl *CartController) RemoveItem(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	itemID, ok := parseID(c, "itemId")
	if !ok {
		return
	}

	cart, err := ctrl.cartService.RemoveItem(userID, itemID)
	if err != nil {
		respondError(c, err, "remove cart item")
		return
	}
	c.JSON(http.StatusOK, newCartResponse(cart))
}

// DELETE /api/v1/cart/products/:productId
func (ctrl *CartController) RemoveProduct(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	productID, ok := parseID(c, "productId")
	if !ok {
		return
	}

	cart, err := ctrl.cartService.RemoveProduct(userID, productID)
	if err != nil {
		respondError(c, err, "remove cart product")
		return
	}
	c.JSON(http.StatusOK, newCartResponse(cart))
}

// DELETE /api/v1/cart
func (ctrl *CartController) Clear(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	if err := ctrl.cartService.Clear(userID); err != nil {
		respondError(c, err, "clear cart")
		return
	}
	c.Status(http.StatusNoContent)
}

// GET /api/v1/cart/empty
func (ctrl *CartController) IsEmpty(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	empty, err := ctrl.cartService.IsEmpty(userID)
	if err != nil {
		respondError(c, err, "get cart")
		return
	}
	c.JSON(http.StatusOK, gin.H{"empty": empty})
}

// GET /api/v1/cart/skus/:skuId
func (ctrl *CartController) HasItem(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	skuID, ok := parseID(c, "skuId")
	if !ok {
		return
	}
	exists, err := ctrl.cartService.HasItem(userID, skuID)
	if err != nil {
		respondError(c, err, "get cart")
		return
	}
	c.JSON(http.StatusOK, gin.H{"in_cart": exists})
}

// GET /api/v1/cart/count
func (ctrl *CartController) ItemCount(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	count, err := ctrl.cartService.ItemCount(userID)
	if err != nil {
		respondError(c, err, "get cart")
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": count})
}

// POST /api/v1/cart/bulk/add
func (ctrl *CartController) BulkAdd(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req BulkAddRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.RespondWithBindingError(c, err)
		return
	}

	items := make([]service.CartItemRequest, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, service.CartItemRequest{SkuID: item.SkuID, Quantity: item.Quantity})
	}
	c.JSON(http.StatusOK, ctrl.cartService.BulkAdd(userID, items))
}

// PUT /api/v1/cart/bulk/update
func (ctrl *CartController) BulkUpdate(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req BulkUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.RespondWithBindingError(c, err)
		return
	}

	updates := make([]service.CartItemUpdate, 0, len(req.Items))
	for _, item := range req.Items {
		updates = append(updates, service.CartItemUpdate{ItemID: item.ItemID, Quantity: item.Quantity})
	}
	c.JSON(http.StatusOK, ctrl.cartService.BulkUpdate(userID, updates))
}

// POST /api/v1/cart/bulk/remove
func (ctrl *CartController) BulkRemove(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req IDsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.RespondWithBindingError(c, err)
		return
	}
	c.JSON(http.StatusOK, ctrl.cartService.BulkRemove(userID, req.IDs))
}

// POST /api/v1/admin/carts/merge
func (ctrl *CartController) Merge(c *gin.Context) {
	var req MergeCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.RespondWithBindingError(c, err)
		return
	}

	cart, err := ctrl.cartService.Merge(req.UserID, req.SecondaryUserID)
	if err != nil {
		respondError(c, err, "merge cart")
		return
	}
	c.JSON(http.StatusOK, newCartResponse(cart))
}

// POST /api/v1/admin/carts/copy
func (ctrl *CartController) Copy(c *gin.Context) {
	var req CopyCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.RespondWithBindingError(c, err)
		return
	}

	cart, err := ctrl.cartService.Copy(req.FromUserID, req.ToUserID)
	if err != nil {
		respondError(c, err, "copy cart")
		return
	}
	c.JSON(http.StatusOK, newCartResponse(cart))
}

// GET /api/v1/admin/carts/stats
func (ctrl *CartController) Stats(c *gin.Context) {
	stats, err := ctrl.cartService.Stats()
	if err != nil {
		respondError(c, err, "cart stats")
		return
	}
	c.JSON(http.StatusOK, stats)
}
