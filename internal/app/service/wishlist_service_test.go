package service

import (
	"testing"

	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/internal/app/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestWishlistService(testDB *gorm.DB) (WishlistService, CartService) {
	skus := repository.NewSkuRepository(testDB)
	carts := NewCartService(repository.NewCartRepository(testDB), skus)
	return NewWishlistService(
		repository.NewWishlistRepository(testDB),
		repository.NewProductRepository(testDB),
		skus,
		carts,
	), carts
}

func TestWishlistService_AddRemoveRestore(t *testing.T) {
	testDB := setupTestDB(t)
	svc, _ := newTestWishlistService(testDB)
	user := createUser(t, testDB, "wisher")
	product := createProduct(t, testDB, "Lamp", nil, 1, 30)

	item, err := svc.Add(user.ID, product.ID)
	require.NoError(t, err)
	assert.Equal(t, product.ID, item.ProductID)

	_, err = svc.Add(user.ID, product.ID)
	assert.ErrorIs(t, err, ErrWishlistItemExists)

	_, err = svc.Add(user.ID, 9999)
	assert.ErrorIs(t, err, ErrProductNotFound)

	require.NoError(t, svc.Remove(user.ID, product.ID))
	assert.ErrorIs(t, svc.Remove(user.ID, product.ID), ErrWishlistItemNotFound)

	in, err := svc.Check(user.ID, product.ID)
	require.NoError(t, err)
	assert.False(t, in)

	// re-adding restores the soft-deleted row
	again, err := svc.Add(user.ID, product.ID)
	require.NoError(t, err)
	assert.Equal(t, item.ID, again.ID)

	stats, err := svc.Stats(user.ID)
	require.NoError(t, err)
	assert.Equal(t, &WishlistStats{Total: 1, Active: 1}, stats)
}

func TestWishlistService_QueriesSkipDeletedProducts(t *testing.T) {
	testDB := setupTestDB(t)
	svc, _ := newTestWishlistService(testDB)
	user := createUser(t, testDB, "collector")
	other := createUser(t, testDB, "other")
	decor := createCategory(t, testDB, "Decor")
	vase := createProduct(t, testDB, "Vase", &decor.ID, 1, 40)
	rug := createProduct(t, testDB, "Rug", nil, 1, 90)

	for _, id := range []uint{vase.ID, rug.ID} {
		_, err := svc.Add(user.ID, id)
		require.NoError(t, err)
	}
	_, err := svc.Add(other.ID, vase.ID)
	require.NoError(t, err)

	byCategory, err := svc.ByCategory(user.ID, decor.ID)
	require.NoError(t, err)
	require.Len(t, byCategory, 1)
	assert.Equal(t, vase.ID, byCategory[0].ProductID)

	popular, err := svc.MostWishlisted(5)
	require.NoError(t, err)
	require.Len(t, popular, 2)
	assert.Equal(t, vase.ID, popular[0].Product.ID)
	assert.Equal(t, int64(2), popular[0].WishlistCount)

	require.NoError(t, repository.NewProductRepository(testDB).SoftDelete(rug.ID))
	items, err := svc.List(user.ID)
	require.NoError(t, err)
	assert.Len(t, items, 1)

	page, err := svc.ListPage(user.ID, repository.Pagination{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.TotalElements)
}

func TestWishlistService_Bulk(t *testing.T) {
	testDB := setupTestDB(t)
	svc, _ := newTestWishlistService(testDB)
	user := createUser(t, testDB, "bulk")
	a := createProduct(t, testDB, "A", nil, 1, 1)
	b := createProduct(t, testDB, "B", nil, 1, 1)

	result := svc.BulkAdd(user.ID, []uint{a.ID, b.ID, a.ID, 9999})
	assert.Equal(t, 2, result.SuccessCount)
	assert.Equal(t, 2, result.FailureCount)

	result = svc.BulkRemove(user.ID, []uint{a.ID, 9999})
	assert.Equal(t, 1, result.SuccessCount)
	assert.Equal(t, 1, result.FailureCount)

	removed, err := svc.Clear(user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	empty, err := svc.IsEmpty(user.ID)
	require.NoError(t, err)
	assert.True(t, empty)
}

func TestWishlistService_MoveToCart(t *testing.T) {
	testDB := setupTestDB(t)
	svc, carts := newTestWishlistService(testDB)
	user := createUser(t, testDB, "mover")
	inStock := createProduct(t, testDB, "Mug", nil, 3, 12)
	soldOut := createProduct(t, testDB, "Plate", nil, 0, 8)

	_, err := svc.Add(user.ID, inStock.ID)
	require.NoError(t, err)
	_, err = svc.Add(user.ID, soldOut.ID)
	require.NoError(t, err)

	_, err = svc.MoveToCart(user.ID, soldOut.ID)
	assert.ErrorIs(t, err, ErrNoStockAvailable)

	cart, err := svc.MoveToCart(user.ID, inStock.ID)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, inStock.Skus[0].ID, cart.Items[0].SkuID)
	assert.Equal(t, 1, cart.Items[0].Quantity)

	in, err := svc.Check(user.ID, inStock.ID)
	require.NoError(t, err)
	assert.False(t, in)

	_, err = svc.MoveToCart(user.ID, inStock.ID)
	assert.ErrorIs(t, err, ErrWishlistItemNotFound)

	result := svc.MoveAllToCart(user.ID)
	assert.Zero(t, result.SuccessCount)
	assert.Equal(t, 1, result.FailureCount)

	count, err := carts.ItemCount(user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestWishlistService_AdminRestoreAndHardDelete(t *testing.T) {
	testDB := setupTestDB(t)
	svc, _ := newTestWishlistService(testDB)
	user := createUser(t, testDB, "admin-target")
	product := createProduct(t, testDB, "Clock", nil, 1, 20)

	item, err := svc.Add(user.ID, product.ID)
	require.NoError(t, err)
	require.NoError(t, svc.Remove(user.ID, product.ID))

	restored, err := svc.Restore(item.ID)
	require.NoError(t, err)
	assert.False(t, restored.DeletedAt.Valid)

	_, err = svc.Restore(9999)
	assert.ErrorIs(t, err, ErrWishlistItemNotFound)

	require.NoError(t, svc.HardDelete(item.ID))
	assert.ErrorIs(t, svc.HardDelete(item.ID), ErrWishlistItemNotFound)

	var count int64
	require.NoError(t, testDB.Unscoped().Model(&model.WishlistItem{}).Count(&count).Error)
	assert.Zero(t, count)
}
