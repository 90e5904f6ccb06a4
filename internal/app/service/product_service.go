package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/internal/app/repository"
	"github.com/ikkim/storefront-backend/pkg/logger"
	"github.com/ikkim/storefront-backend/pkg/util"
	"gorm.io/gorm"
)

var (
	ErrProductNotFound     = errors.New("product not found")
	ErrProductNotDeleted   = errors.New("product is not deleted")
	ErrProductNameRequired = errors.New("product name is required")
	ErrInvalidPrice        = errors.New("price must not be negative")
	ErrInvalidQuantity     = errors.New("quantity must not be negative")
	ErrInvalidPriceRange   = errors.New("min price must not exceed max price")
	ErrSkuNotFound         = errors.New("sku not found")
	ErrSkuAlreadyExists    = errors.New("sku code already exists")
)

const (
	recentProductWindow = 30 * 24 * time.Hour
	detailRecentReviews = 5
	detailSimilarLimit  = 4
	maxListLimit        = 50
)

type SkuInput struct {
	ID       uint
	Sku      string
	Size     string
	Color    string
	Price    float64
	Quantity int
}

type ProductInput struct {
	Name        string
	Description string
	Summary     string
	Cover       string
	CategoryID  *uint
	// Skus replaces the SKU set on update when non-nil: entries with an ID
	// are updated, entries without are added, and missing ones are deleted.
	Skus []SkuInput
}

type SkuUpdate struct {
	Price    *float64
	Quantity *int
}

type ProductStats = repository.ProductStock

// ProductDetail is the product page payload.
type ProductDetail struct {
	Product         *model.Product          `json:"product"`
	MinPrice        float64                 `json:"min_price"`
	MaxPrice        float64                 `json:"max_price"`
	TotalStock      int                     `json:"total_stock"`
	InStock         bool                    `json:"in_stock"`
	ReviewStats     *repository.ReviewStats `json:"review_stats"`
	RecentReviews   []model.ProductReview   `json:"recent_reviews"`
	SimilarProducts []model.Product         `json:"similar_products"`
	ViewCount       int64                   `json:"view_count"`
}

type ProductService interface {
	List(p repository.Pagination) (*repository.Page[model.Product], error)
	GetByID(id uint) (*model.Product, error)
	GetDetail(ctx context.Context, id uint) (*ProductDetail, error)
	SearchByName(name string, p repository.Pagination) (*repository.Page[model.Product], error)
	ListByCategory(categoryID uint, p repository.Pagination) (*repository.Page[model.Product], error)
	ListByPriceRange(min, max float64, p repository.Pagination) (*repository.Page[model.Product], error)
	ListAvailable(p repository.Pagination) (*repository.Page[model.Product], error)
	Recent(limit int) ([]model.Product, error)
	Featured(limit int) ([]model.Product, error)
	Trending(limit int) ([]model.Product, error)
	Similar(id uint, limit int) ([]model.Product, error)
	Random(limit int) ([]model.Product, error)

	Create(ctx context.Context, input ProductInput) (*model.Product, error)
	Update(ctx context.Context, id uint, input ProductInput) (*model.Product, error)
	Delete(ctx context.Context, id uint) error
	SoftDelete(ctx context.Context, id uint) error
	Restore(ctx context.Context, id uint) (*model.Product, error)
	ListAll(p repository.Pagination) (*repository.Page[model.Product], error)
	ListDeleted(p repository.Pagination) (*repository.Page[model.Product], error)
	Stats() (ProductStats, error)
	BulkSoftDelete(ctx context.Context, ids []uint) *BulkResult
	BulkRestore(ctx context.Context, ids []uint) *BulkResult
	AddSku(ctx context.Context, productID uint, input SkuInput) (*model.ProductSku, error)
	UpdateSku(ctx context.Context, skuID uint, update SkuUpdate) (*model.ProductSku, error)
	DeleteSku(ctx context.Context, skuID uint) error
	ExportXLSX(w io.Writer) error
	ImportXLSX(ctx context.Context, r io.Reader) (*BulkResult, error)
}

type productService struct {
	db            *gorm.DB
	productRepo   repository.ProductRepository
	categoryRepo  repository.CategoryRepository
	skuRepo       repository.SkuRepository
	reviewRepo    *repository.ReviewRepository
	analyticsRepo repository.AnalyticsRepository
	cache         Cache
	cacheTTL      time.Duration
}

func NewProductService(
	db *gorm.DB,
	productRepo repository.ProductRepository,
	categoryRepo repository.CategoryRepository,
	skuRepo repository.SkuRepository,
	reviewRepo *repository.ReviewRepository,
	analyticsRepo repository.AnalyticsRepository,
	cache Cache,
	cacheTTL time.Duration,
) ProductService {
	return &productService{
		db:            db,
		productRepo:   productRepo,
		categoryRepo:  categoryRepo,
		skuRepo:       skuRepo,
		reviewRepo:    reviewRepo,
		analyticsRepo: analyticsRepo,
		cache:         cache,
		cacheTTL:      cacheTTL,
	}
}

func productDetailKey(id uint) string {
	return fmt.Sprintf("product:detail:%d", id)
}

// invalidateProduct drops every cache entry a product write can make stale.
func (s *productService) invalidateProduct(ctx context.Context, id uint) {
	invalidate(ctx, s.cache, productDetailKey(id), filterOptionsKey)
}

func (s *productService) List(p repository.Pagination) (*repository.Page[model.Product], error) {
	return s.productRepo.FindWithFilter(repository.ProductFilter{}, p)
}

func (s *productService) GetByID(id uint) (*model.Product, error) {
	product, err := s.productRepo.FindByID(id, repository.ScopeActive)
	if err != nil {
		return nil, notFound(err, ErrProductNotFound)
	}
	return product, nil
}

func (s *productService) GetDetail(ctx context.Context, id uint) (*ProductDetail, error) {
	var detail ProductDetail
	if s.cache != nil {
		hit, err := s.cache.GetJSON(ctx, productDetailKey(id), &detail)
		if err != nil {
			logger.Warn("Product detail cache read failed", map[string]interface{}{
				"product_id": id,
				"error":      err.Error(),
			})
		}
		if hit {
			return s.withViewCount(&detail), nil
		}
	}

	product, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}

	stats, err := s.reviewRepo.GetProductStatistics(id)
	if err != nil {
		return nil, err
	}
	reviews, err := s.reviewRepo.GetRecentReviews(id, detailRecentReviews)
	if err != nil {
		return nil, err
	}
	similar, err := s.productRepo.FindSimilar(id, product.CategoryID, detailSimilarLimit)
	if err != nil {
		return nil, err
	}

	min, max := product.PriceRange()
	detail = ProductDetail{
		Product:         product,
		MinPrice:        min,
		MaxPrice:        max,
		TotalStock:      product.TotalStock(),
		InStock:         product.InStock(),
		ReviewStats:     stats,
		RecentReviews:   reviews,
		SimilarProducts: similar,
	}

	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, productDetailKey(id), &detail, s.cacheTTL); err != nil {
			logger.Warn("Product detail cache write failed", map[string]interface{}{
				"product_id": id,
				"error":      err.Error(),
			})
		}
	}
	return s.withViewCount(&detail), nil
}

// withViewCount fills the live view counter, which is never cached.
func (s *productService) withViewCount(detail *ProductDetail) *ProductDetail {
	if detail.Product == nil {
		return detail
	}
	count, err := s.analyticsRepo.CountViews(detail.Product.ID)
	if err != nil {
		logger.Warn("Failed to count product views", map[string]interface{}{
			"product_id": detail.Product.ID,
			"error":      err.Error(),
		})
	}
	detail.ViewCount = count
	return detail
}

func (s *productService) SearchByName(name string, p repository.Pagination) (*repository.Page[model.Product], error) {
	return s.productRepo.FindWithFilter(repository.ProductFilter{Query: name, NameOnly: true}, p)
}

func (s *productService) ListByCategory(categoryID uint, p repository.Pagination) (*repository.Page[model.Product], error) {
	return s.productRepo.FindWithFilter(repository.ProductFilter{CategoryIDs: []uint{categoryID}}, p)
}

func (s *productService) ListByPriceRange(min, max float64, p repository.Pagination) (*repository.Page[model.Product], error) {
	if min < 0 || max < 0 {
		return nil, ErrInvalidPrice
	}
	if min > max {
		return nil, ErrInvalidPriceRange
	}
	return s.productRepo.FindWithFilter(repository.ProductFilter{MinPrice: &min, MaxPrice: &max}, p)
}

func (s *productService) ListAvailable(p repository.Pagination) (*repository.Page[model.Product], error) {
	return s.productRepo.FindWithFilter(repository.ProductFilter{AvailableOnly: true}, p)
}

func (s *productService) Recent(limit int) ([]model.Product, error) {
	since := time.Now().Add(-recentProductWindow)
	page, err := s.productRepo.FindWithFilter(
		repository.ProductFilter{CreatedAfter: &since},
		repository.Pagination{Size: clampLimit(limit, 10, maxListLimit)},
	)
	if err != nil {
		return nil, err
	}
	return page.Content, nil
}

func (s *productService) Featured(limit int) ([]model.Product, error) {
	return s.productRepo.FindNewest(clampLimit(limit, 8, maxListLimit))
}

func (s *productService) Trending(limit int) ([]model.Product, error) {
	return s.productRepo.FindNewest(clampLimit(limit, 8, maxListLimit))
}

func (s *productService) Similar(id uint, limit int) ([]model.Product, error) {
	product, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}
	return s.productRepo.FindSimilar(id, product.CategoryID, clampLimit(limit, detailSimilarLimit, maxListLimit))
}

func (s *productService) Random(limit int) ([]model.Product, error) {
	return s.productRepo.FindRandom(clampLimit(limit, 8, maxListLimit))
}

func validateSku(input SkuInput) error {
	if input.Price < 0 {
		return ErrInvalidPrice
	}
	if input.Quantity < 0 {
		return ErrInvalidQuantity
	}
	return nil
}

func (s *productService) checkCategory(categoryID *uint) error {
	if categoryID == nil {
		return nil
	}
	if _, err := s.categoryRepo.FindByID(*categoryID); err != nil {
		return notFound(err, ErrCategoryNotFound)
	}
	return nil
}

// writeSku creates or updates one SKU inside a transaction, resolving its
// size and color values to shared attributes.
func writeSku(tx *gorm.DB, productID uint, input SkuInput) (*model.ProductSku, error) {
	skus := repository.NewSkuRepository(tx)
	attrs := repository.NewAttributeRepository(tx)

	var sku *model.ProductSku
	if input.ID != 0 {
		existing, err := skus.FindByID(input.ID)
		if err != nil || existing.ProductID != productID {
			return nil, ErrSkuNotFound
		}
		sku = existing
	} else {
		sku = &model.ProductSku{ProductID: productID}
	}

	sku.SizeAttributeID, sku.ColorAttributeID = nil, nil
	sku.SizeAttribute, sku.ColorAttribute = nil, nil
	if size := strings.TrimSpace(input.Size); size != "" {
		attr, err := attrs.FindOrCreate(model.AttributeSize, size)
		if err != nil {
			return nil, err
		}
		sku.SizeAttributeID, sku.SizeAttribute = &attr.ID, attr
	}
	if color := strings.TrimSpace(input.Color); color != "" {
		attr, err := attrs.FindOrCreate(model.AttributeColor, color)
		if err != nil {
			return nil, err
		}
		sku.ColorAttributeID, sku.ColorAttribute = &attr.ID, attr
	}
	sku.Price = input.Price
	sku.Quantity = input.Quantity

	code := strings.TrimSpace(input.Sku)
	if sku.ID != 0 && (code == "" || code == sku.Sku) {
		return sku, skus.Update(sku)
	}
	if code == "" {
		code = util.GenerateSKUCode(productID, input.Color, input.Size)
	}
	taken, err := skus.ExistsByCode(code)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrSkuAlreadyExists
	}
	sku.Sku = code

	if sku.ID != 0 {
		return sku, skus.Update(sku)
	}
	return sku, skus.Create(sku)
}

func (s *productService) Create(ctx context.Context, input ProductInput) (*model.Product, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrProductNameRequired
	}
	for _, sku := range input.Skus {
		if err := validateSku(sku); err != nil {
			return nil, err
		}
	}
	if err := s.checkCategory(input.CategoryID); err != nil {
		return nil, err
	}

	logger.Info("Creating product", map[string]interface{}{
		"name":        name,
		"category_id": input.CategoryID,
		"skus":        len(input.Skus),
	})

	product := &model.Product{
		Name:        name,
		Description: input.Description,
		Summary:     input.Summary,
		Cover:       input.Cover,
		CategoryID:  input.CategoryID,
	}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := repository.NewProductRepository(tx).Create(product); err != nil {
			return err
		}
		for _, in := range input.Skus {
			in.ID = 0
			if _, err := writeSku(tx, product.ID, in); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		logger.Error("Failed to create product", err, map[string]interface{}{
			"name": name,
		})
		return nil, err
	}

	s.invalidateProduct(ctx, product.ID)
	logger.Info("Product created", map[string]interface{}{
		"product_id": product.ID,
	})
	return s.GetByID(product.ID)
}

func (s *productService) Update(ctx context.Context, id uint, input ProductInput) (*model.Product, error) {
	product, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrProductNameRequired
	}
	for _, sku := range input.Skus {
		if err := validateSku(sku); err != nil {
			return nil, err
		}
	}
	if err := s.checkCategory(input.CategoryID); err != nil {
		return nil, err
	}

	product.Name = name
	product.Description = input.Description
	product.Summary = input.Summary
	product.Cover = input.Cover
	product.CategoryID = input.CategoryID
	product.Category = nil

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := repository.NewProductRepository(tx).Update(product); err != nil {
			return err
		}
		if input.Skus == nil {
			return nil
		}

		keep := make(map[uint]bool)
		for _, in := range input.Skus {
			sku, err := writeSku(tx, product.ID, in)
			if err != nil {
				return err
			}
			keep[sku.ID] = true
		}
		skus := repository.NewSkuRepository(tx)
		for _, existing := range product.Skus {
			if !keep[existing.ID] {
				if err := skus.SoftDelete(existing.ID); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		logger.Error("Failed to update product", err, map[string]interface{}{
			"product_id": id,
		})
		return nil, err
	}

	s.invalidateProduct(ctx, id)
	logger.Info("Product updated", map[string]interface{}{
		"product_id": id,
	})
	return s.GetByID(id)
}

func (s *productService) Delete(ctx context.Context, id uint) error {
	if err := s.productRepo.HardDelete(id); err != nil {
		return notFound(err, ErrProductNotFound)
	}
	s.invalidateProduct(ctx, id)
	logger.Info("Product deleted permanently", map[string]interface{}{
		"product_id": id,
	})
	return nil
}

func (s *productService) SoftDelete(ctx context.Context, id uint) error {
	if err := s.productRepo.SoftDelete(id); err != nil {
		return notFound(err, ErrProductNotFound)
	}
	s.invalidateProduct(ctx, id)
	logger.Info("Product soft deleted", map[string]interface{}{
		"product_id": id,
	})
	return nil
}

func (s *productService) Restore(ctx context.Context, id uint) (*model.Product, error) {
	if _, err := s.productRepo.FindByID(id, repository.ScopeAll); err != nil {
		return nil, notFound(err, ErrProductNotFound)
	}
	if err := s.productRepo.Restore(id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotDeleted
		}
		return nil, err
	}

	s.invalidateProduct(ctx, id)
	logger.Info("Product restored", map[string]interface{}{
		"product_id": id,
	})
	return s.GetByID(id)
}

func (s *productService) ListAll(p repository.Pagination) (*repository.Page[model.Product], error) {
	return s.productRepo.FindWithFilter(repository.ProductFilter{Scope: repository.ScopeAll}, p)
}

func (s *productService) ListDeleted(p repository.Pagination) (*repository.Page[model.Product], error) {
	return s.productRepo.FindWithFilter(repository.ProductFilter{Scope: repository.ScopeDeleted}, p)
}

func (s *productService) Stats() (ProductStats, error) {
	return s.productRepo.Stock()
}

func (s *productService) BulkSoftDelete(ctx context.Context, ids []uint) *BulkResult {
	result := newBulkResult()
	for _, id := range ids {
		if err := s.SoftDelete(ctx, id); err != nil {
			logger.Warn("Bulk delete skipped product", map[string]interface{}{
				"product_id": id,
				"error":      err.Error(),
			})
			result.fail(fmt.Sprintf("product %d: %v", id, err))
			continue
		}
		result.ok()
	}
	return result
}

func (s *productService) BulkRestore(ctx context.Context, ids []uint) *BulkResult {
	result := newBulkResult()
	for _, id := range ids {
		if _, err := s.Restore(ctx, id); err != nil {
			logger.Warn("Bulk restore skipped product", map[string]interface{}{
				"product_id": id,
				"error":      err.Error(),
			})
			result.fail(fmt.Sprintf("product %d: %v", id, err))
			continue
		}
		result.ok()
	}
	return result
}

func (s *productService) AddSku(ctx context.Context, productID uint, input SkuInput) (*model.ProductSku, error) {
	if _, err := s.GetByID(productID); err != nil {
		return nil, err
	}
	if err := validateSku(input); err != nil {
		return nil, err
	}

	input.ID = 0
	var sku *model.ProductSku
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		sku, err = writeSku(tx, productID, input)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.invalidateProduct(ctx, productID)
	return sku, nil
}

func (s *productService) UpdateSku(ctx context.Context, skuID uint, update SkuUpdate) (*model.ProductSku, error) {
	sku, err := s.skuRepo.FindByID(skuID)
	if err != nil {
		return nil, notFound(err, ErrSkuNotFound)
	}
	if update.Price != nil {
		if *update.Price < 0 {
			return nil, ErrInvalidPrice
		}
		sku.Price = *update.Price
	}
	if update.Quantity != nil {
		if *update.Quantity < 0 {
			return nil, ErrInvalidQuantity
		}
		sku.Quantity = *update.Quantity
	}
	if err := s.skuRepo.Update(sku); err != nil {
		return nil, err
	}

	s.invalidateProduct(ctx, sku.ProductID)
	logger.Info("SKU updated", map[string]interface{}{
		"sku_id":   skuID,
		"price":    sku.Price,
		"quantity": sku.Quantity,
	})
	return sku, nil
}

func (s *productService) DeleteSku(ctx context.Context, skuID uint) error {
	sku, err := s.skuRepo.FindByID(skuID)
	if err != nil {
		return notFound(err, ErrSkuNotFound)
	}
	if err := s.skuRepo.SoftDelete(skuID); err != nil {
		return notFound(err, ErrSkuNotFound)
	}
	s.invalidateProduct(ctx, sku.ProductID)
	return nil
}
