package controller

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/internal/app/repository"
	"github.com/ikkim/storefront-backend/internal/app/service"
	"github.com/ikkim/storefront-backend/internal/db"
	apperrors "github.com/ikkim/storefront-backend/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupCartControllerTest(t *testing.T) (*CartController, *gin.Engine, *gorm.DB, *model.User, *model.ProductSku) {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() {
		db.CleanupTestDB(testDB)
	})

	cartService := service.NewCartService(
		repository.NewCartRepository(testDB),
		repository.NewSkuRepository(testDB),
	)
	cartController := NewCartController(cartService)

	user := &model.User{
		Username:     "shopper",
		Email:        "shopper@example.com",
		PasswordHash: "hash",
		Role:         model.RoleUser,
	}
	require.NoError(t, testDB.Create(user).Error)

	product := &model.Product{Name: "Canvas Tote"}
	require.NoError(t, testDB.Create(product).Error)
	sku := &model.ProductSku{
		ProductID: product.ID,
		Sku:       "TOTE-001",
		Price:     20,
		Quantity:  3,
	}
	require.NoError(t, testDB.Create(sku).Error)

	gin.SetMode(gin.TestMode)
	router := gin.New()

	return cartController, router, testDB, user, sku
}

// Helper function to set user ID in context
func setUserIDInContext(c *gin.Context, userID uint) {
	c.Set("user_id", userID)
}

func jsonBody(t *testing.T, v interface{}) *bytes.Reader {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewReader(data)
}

func TestCartController_GetCart_Empty(t *testing.T) {
	controller, router, _, user, _ := setupCartControllerTest(t)

	router.GET("/cart", func(c *gin.Context) {
		setUserIDInContext(c, user.ID)
		controller.GetCart(c)
	})

	req := httptest.NewRequest(http.MethodGet, "/cart", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response CartResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, user.ID, response.UserID)
	assert.Empty(t, response.Items)
	assert.Equal(t, float64(0), response.TotalAmount)
}

func TestCartController_AddItem_Success(t *testing.T) {
	controller, router, _, user, sku := setupCartControllerTest(t)

	router.POST("/cart/items", func(c *gin.Context) {
		setUserIDInContext(c, user.ID)
		controller.AddItem(c)
	})

	req := httptest.NewRequest(http.MethodPost, "/cart/items", jsonBody(t, AddToCartRequest{SkuID: sku.ID, Quantity: 2}))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var response CartResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	require.Len(t, response.Items, 1)
	assert.Equal(t, float64(40), response.TotalAmount)
	assert.Equal(t, 2, response.TotalItems)
	assert.Equal(t, float64(40), response.Items[0].Subtotal)
	assert.True(t, response.Items[0].Available)
}

func TestCartController_AddItem_InsufficientStock(t *testing.T) {
	controller, router, _, user, sku := setupCartControllerTest(t)

	router.POST("/cart/items", func(c *gin.Context) {
		setUserIDInContext(c, user.ID)
		controller.AddItem(c)
	})

	req := httptest.NewRequest(http.MethodPost, "/cart/items", jsonBody(t, AddToCartRequest{SkuID: sku.ID, Quantity: 5}))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var response apperrors.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, apperrors.CartInsufficientStock, response.Error)
	assert.Equal(t, "Insufficient stock. Available: 3", response.Message)
}

func TestCartController_AddItem_ValidationError(t *testing.T) {
	controller, router, _, user, _ := setupCartControllerTest(t)

	router.POST("/cart/items", func(c *gin.Context) {
		setUserIDInContext(c, user.ID)
		controller.AddItem(c)
	})

	req := httptest.NewRequest(http.MethodPost, "/cart/items", bytes.NewBufferString(`{"quantity": 0}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var response apperrors.ValidationError
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, apperrors.ValidationInvalidInput, response.Error)
	assert.Contains(t, response.Fields, "sku_id")
}

func TestCartController_UpdateItem_ZeroRemoves(t *testing.T) {
	controller, router, testDB, user, sku := setupCartControllerTest(t)

	cartService := service.NewCartService(repository.NewCartRepository(testDB), repository.NewSkuRepository(testDB))
	cart, err := cartService.AddItem(user.ID, sku.ID, 1)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)

	router.PUT("/cart/items/:itemId", func(c *gin.Context) {
		setUserIDInContext(c, user.ID)
		controller.UpdateItem(c)
	})

	url := fmt.Sprintf("/cart/items/%d", cart.Items[0].ID)
	req := httptest.NewRequest(http.MethodPut, url, bytes.NewBufferString(`{"quantity": 0}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var response CartResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Empty(t, response.Items)
}

func TestCartController_UpdateItem_InvalidID(t *testing.T) {
	controller, router, _, user, _ := setupCartControllerTest(t)

	router.PUT("/cart/items/:itemId", func(c *gin.Context) {
		setUserIDInContext(c, user.ID)
		controller.UpdateItem(c)
	})

	req := httptest.NewRequest(http.MethodPut, "/cart/items/abc", bytes.NewBufferString(`{"quantity": 1}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), apperrors.ValidationInvalidID)
}

func TestCartController_Unauthenticated(t *testing.T) {
	controller, router, _, _, _ := setupCartControllerTest(t)

	router.GET("/cart", controller.GetCart)

	req := httptest.NewRequest(http.MethodGet, "/cart", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
