package service

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/internal/app/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestProductService(testDB *gorm.DB, cache Cache) ProductService {
	return NewProductService(
		testDB,
		repository.NewProductRepository(testDB),
		repository.NewCategoryRepository(testDB),
		repository.NewSkuRepository(testDB),
		repository.NewReviewRepository(testDB),
		repository.NewAnalyticsRepository(testDB),
		cache,
		time.Minute,
	)
}

func TestProductService_CreateWithSkus(t *testing.T) {
	testDB := setupTestDB(t)
	svc := newTestProductService(testDB, nil)
	ctx := context.Background()
	category := createCategory(t, testDB, "Shirts")

	product, err := svc.Create(ctx, ProductInput{
		Name:       "  Oxford Shirt ",
		Summary:    "Button down",
		CategoryID: &category.ID,
		Skus: []SkuInput{
			{Size: "M", Color: "Blue", Price: 49.5, Quantity: 10},
			{Sku: "OX-L-WHITE", Size: "L", Color: "white", Price: 55, Quantity: 0},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "Oxford Shirt", product.Name)
	require.Len(t, product.Skus, 2)
	assert.Equal(t, "OX-L-WHITE", product.Skus[1].Sku)
	assert.NotEmpty(t, product.Skus[0].Sku)
	require.NotNil(t, product.Skus[0].SizeAttribute)
	assert.Equal(t, "M", product.Skus[0].SizeAttribute.Value)

	min, max := product.PriceRange()
	assert.Equal(t, 49.5, min)
	assert.Equal(t, 55.0, max)
	assert.Equal(t, 10, product.TotalStock())

	// a reused color value resolves to the same attribute
	other, err := svc.Create(ctx, ProductInput{
		Name: "Polo",
		Skus: []SkuInput{{Color: "BLUE", Price: 20, Quantity: 1}},
	})
	require.NoError(t, err)
	require.NotNil(t, other.Skus[0].ColorAttributeID)
	assert.Equal(t, *product.Skus[0].ColorAttributeID, *other.Skus[0].ColorAttributeID)
}

func TestProductService_CreateValidation(t *testing.T) {
	testDB := setupTestDB(t)
	svc := newTestProductService(testDB, nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, ProductInput{Name: " "})
	assert.ErrorIs(t, err, ErrProductNameRequired)

	_, err = svc.Create(ctx, ProductInput{Name: "Bad", Skus: []SkuInput{{Price: -1}}})
	assert.ErrorIs(t, err, ErrInvalidPrice)

	_, err = svc.Create(ctx, ProductInput{Name: "Bad", Skus: []SkuInput{{Price: 1, Quantity: -2}}})
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	missing := uint(999)
	_, err = svc.Create(ctx, ProductInput{Name: "Orphan", CategoryID: &missing})
	assert.ErrorIs(t, err, ErrCategoryNotFound)

	_, err = svc.Create(ctx, ProductInput{Name: "First", Skus: []SkuInput{{Sku: "DUP", Price: 1}}})
	require.NoError(t, err)
	_, err = svc.Create(ctx, ProductInput{Name: "Second", Skus: []SkuInput{{Sku: "DUP", Price: 1}}})
	assert.ErrorIs(t, err, ErrSkuAlreadyExists)

	// the failed create was rolled back
	var count int64
	require.NoError(t, testDB.Model(&model.Product{}).Where("name = ?", "Second").Count(&count).Error)
	assert.Zero(t, count)
}

func TestProductService_UpdateSyncsSkus(t *testing.T) {
	testDB := setupTestDB(t)
	svc := newTestProductService(testDB, nil)
	ctx := context.Background()

	product, err := svc.Create(ctx, ProductInput{
		Name: "Chino",
		Skus: []SkuInput{
			{Sku: "CH-30", Size: "30", Price: 40, Quantity: 3},
			{Sku: "CH-32", Size: "32", Price: 40, Quantity: 3},
		},
	})
	require.NoError(t, err)
	keep := product.Skus[0]

	updated, err := svc.Update(ctx, product.ID, ProductInput{
		Name: "Slim Chino",
		Skus: []SkuInput{
			{ID: keep.ID, Size: "30", Price: 45, Quantity: 7},
			{Sku: "CH-34", Size: "34", Price: 45, Quantity: 2},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "Slim Chino", updated.Name)
	require.Len(t, updated.Skus, 2)
	assert.Equal(t, keep.ID, updated.Skus[0].ID)
	assert.Equal(t, 45.0, updated.Skus[0].Price)
	assert.Equal(t, 7, updated.Skus[0].Quantity)
	assert.Equal(t, "CH-34", updated.Skus[1].Sku)

	var removed model.ProductSku
	require.NoError(t, testDB.Unscoped().Where("sku = ?", "CH-32").First(&removed).Error)
	assert.True(t, removed.DeletedAt.Valid)

	// nil Skus leaves the SKU set alone
	renamed, err := svc.Update(ctx, product.ID, ProductInput{Name: "Chino Classic"})
	require.NoError(t, err)
	assert.Len(t, renamed.Skus, 2)

	_, err = svc.Update(ctx, product.ID, ProductInput{Name: "x", Skus: []SkuInput{{ID: 9999, Price: 1}}})
	assert.ErrorIs(t, err, ErrSkuNotFound)
}

func TestProductService_SoftDeleteRestore(t *testing.T) {
	testDB := setupTestDB(t)
	svc := newTestProductService(testDB, nil)
	ctx := context.Background()
	product := createProduct(t, testDB, "Beanie", nil, 5, 15)

	_, err := svc.Restore(ctx, product.ID)
	assert.ErrorIs(t, err, ErrProductNotDeleted)

	require.NoError(t, svc.SoftDelete(ctx, product.ID))
	_, err = svc.GetByID(product.ID)
	assert.ErrorIs(t, err, ErrProductNotFound)
	assert.ErrorIs(t, svc.SoftDelete(ctx, product.ID), ErrProductNotFound)

	deleted, err := svc.ListDeleted(repository.Pagination{})
	require.NoError(t, err)
	require.Len(t, deleted.Content, 1)

	restored, err := svc.Restore(ctx, product.ID)
	require.NoError(t, err)
	require.Len(t, restored.Skus, 1)

	_, err = svc.Restore(ctx, 9999)
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestProductService_BulkOperations(t *testing.T) {
	testDB := setupTestDB(t)
	svc := newTestProductService(testDB, nil)
	ctx := context.Background()
	a := createProduct(t, testDB, "A", nil, 1, 10)
	b := createProduct(t, testDB, "B", nil, 0, 10)

	result := svc.BulkSoftDelete(ctx, []uint{a.ID, b.ID, 9999})
	assert.Equal(t, 2, result.SuccessCount)
	assert.Equal(t, 1, result.FailureCount)
	assert.Len(t, result.Errors, 1)

	stats, err := svc.Stats()
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.Active)
	assert.Equal(t, int64(2), stats.Deleted)

	result = svc.BulkRestore(ctx, []uint{a.ID, b.ID})
	assert.Equal(t, 2, result.SuccessCount)
	assert.Zero(t, result.FailureCount)

	stats, err = svc.Stats()
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Active)
	assert.Equal(t, int64(1), stats.OutOfStock)
}

func TestProductService_DetailCache(t *testing.T) {
	testDB := setupTestDB(t)
	store := newMemoryStore()
	svc := newTestProductService(testDB, store)
	ctx := context.Background()
	category := createCategory(t, testDB, "Shoes")
	product := createProduct(t, testDB, "Runner", &category.ID, 4, 80, 90)
	createProduct(t, testDB, "Walker", &category.ID, 4, 60)
	user := createUser(t, testDB, "reviewer")
	require.NoError(t, testDB.Create(&model.ProductReview{ProductID: product.ID, UserID: user.ID, Rating: 4}).Error)
	require.NoError(t, testDB.Create(&model.ProductView{ProductID: product.ID, IPAddress: "1.1.1.1", ViewedAt: time.Now()}).Error)

	detail, err := svc.GetDetail(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 80.0, detail.MinPrice)
	assert.Equal(t, 90.0, detail.MaxPrice)
	assert.Equal(t, 8, detail.TotalStock)
	assert.True(t, detail.InStock)
	assert.Equal(t, int64(1), detail.ReviewStats.TotalReviews)
	assert.Len(t, detail.RecentReviews, 1)
	assert.Len(t, detail.SimilarProducts, 1)
	assert.Equal(t, int64(1), detail.ViewCount)
	assert.True(t, store.has(productDetailKey(product.ID)))

	// the view counter stays live on a cache hit
	require.NoError(t, testDB.Create(&model.ProductView{ProductID: product.ID, IPAddress: "2.2.2.2", ViewedAt: time.Now()}).Error)
	cached, err := svc.GetDetail(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), cached.ViewCount)

	price := 70.0
	_, err = svc.UpdateSku(ctx, product.Skus[0].ID, SkuUpdate{Price: &price})
	require.NoError(t, err)
	assert.False(t, store.has(productDetailKey(product.ID)))

	fresh, err := svc.GetDetail(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 70.0, fresh.MinPrice)

	_, err = svc.GetDetail(ctx, 9999)
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestProductService_SkuManagement(t *testing.T) {
	testDB := setupTestDB(t)
	svc := newTestProductService(testDB, nil)
	ctx := context.Background()
	product := createProduct(t, testDB, "Scarf", nil, 2, 25)

	sku, err := svc.AddSku(ctx, product.ID, SkuInput{Color: "Red", Price: 30, Quantity: 1})
	require.NoError(t, err)
	assert.Equal(t, product.ID, sku.ProductID)

	_, err = svc.AddSku(ctx, 9999, SkuInput{Price: 1})
	assert.ErrorIs(t, err, ErrProductNotFound)

	qty := -1
	_, err = svc.UpdateSku(ctx, sku.ID, SkuUpdate{Quantity: &qty})
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	require.NoError(t, svc.DeleteSku(ctx, sku.ID))
	assert.ErrorIs(t, svc.DeleteSku(ctx, sku.ID), ErrSkuNotFound)

	loaded, err := svc.GetByID(product.ID)
	require.NoError(t, err)
	assert.Len(t, loaded.Skus, 1)
}

func TestProductService_Listings(t *testing.T) {
	testDB := setupTestDB(t)
	svc := newTestProductService(testDB, nil)
	tops := createCategory(t, testDB, "Tops")
	createProduct(t, testDB, "Cheap Tee", &tops.ID, 0, 10)
	createProduct(t, testDB, "Fancy Tee", &tops.ID, 3, 120)
	old := createProduct(t, testDB, "Old Coat", nil, 3, 300)
	require.NoError(t, testDB.Model(old).Update("created_at", time.Now().AddDate(0, -2, 0)).Error)

	page, err := svc.SearchByName("tee", repository.Pagination{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.TotalElements)

	page, err = svc.ListByCategory(tops.ID, repository.Pagination{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.TotalElements)

	page, err = svc.ListByPriceRange(100, 400, repository.Pagination{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.TotalElements)

	_, err = svc.ListByPriceRange(50, 10, repository.Pagination{})
	assert.ErrorIs(t, err, ErrInvalidPriceRange)

	page, err = svc.ListAvailable(repository.Pagination{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.TotalElements)

	recent, err := svc.Recent(10)
	require.NoError(t, err)
	assert.Len(t, recent, 2)

	random, err := svc.Random(2)
	require.NoError(t, err)
	assert.Len(t, random, 2)
}

func TestProductService_ExportImportRoundTrip(t *testing.T) {
	testDB := setupTestDB(t)
	svc := newTestProductService(testDB, nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, ProductInput{
		Name: "Parka",
		Skus: []SkuInput{
			{Sku: "PK-S", Size: "S", Price: 150, Quantity: 2},
			{Sku: "PK-M", Size: "M", Price: 160, Quantity: 1},
		},
	})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, svc.ExportXLSX(&buf))
	assert.NotZero(t, buf.Len())

	// a second database receives the export
	target := setupTestDB(t)
	importer := newTestProductService(target, nil)
	result, err := importer.ImportXLSX(ctx, &buf)
	require.NoError(t, err)
	assert.Equal(t, 1, result.SuccessCount)
	assert.Zero(t, result.FailureCount)

	page, err := importer.SearchByName("parka", repository.Pagination{})
	require.NoError(t, err)
	require.Len(t, page.Content, 1)
	assert.Len(t, page.Content[0].Skus, 2)
}
