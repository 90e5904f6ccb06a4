package repository

import (
	"strings"
	"time"

	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const minSkuPriceExpr = "(SELECT MIN(ps.price) FROM product_skus ps WHERE ps.product_id = products.id AND ps.deleted_at IS NULL)"

var productSortColumns = map[string]string{
	"id":         "products.id",
	"name":       "products.name",
	"price":      minSkuPriceExpr,
	"createdAt":  "products.created_at",
	"created_at": "products.created_at",
	"updatedAt":  "products.updated_at",
	"updated_at": "products.updated_at",
}

// ProductFilter narrows a product listing. Every set field is ANDed. The SKU
// level fields (price, size, color, availability, stock) must all hold for the
// same active SKU.
type ProductFilter struct {
	Query         string
	NameOnly      bool
	CategoryIDs   []uint
	MinPrice      *float64
	MaxPrice      *float64
	Sizes         []string
	Colors        []string
	AvailableOnly bool
	// OutOfStockOnly keeps products without any active SKU in stock.
	OutOfStockOnly bool
	MinStock       *int
	MaxStock       *int
	CreatedAfter   *time.Time
	ExcludeIDs     []uint
	Scope          DeletedScope
}

type ProductStock struct {
	Active     int64 `json:"active"`
	Deleted    int64 `json:"deleted"`
	OutOfStock int64 `json:"out_of_stock"`
}

type ProductViewCount struct {
	ProductID uint
	Views     int64
}

type ProductRepository interface {
	Create(product *model.Product) error
	FindByID(id uint, scope DeletedScope) (*model.Product, error)
	FindByIDs(ids []uint) ([]model.Product, error)
	FindWithFilter(filter ProductFilter, p Pagination) (*Page[model.Product], error)
	CountWithFilter(filter ProductFilter) (int64, error)
	FindNewest(limit int) ([]model.Product, error)
	FindSimilar(productID uint, categoryID *uint, limit int) ([]model.Product, error)
	FindRandom(limit int) ([]model.Product, error)
	FindInCategories(categoryIDs []uint, excludeIDs []uint, limit int) ([]model.Product, error)
	FindPopularInCategory(categoryID uint, excludeIDs []uint, limit int) ([]model.Product, error)
	SuggestNames(query string, limit int) ([]string, error)
	Stock() (ProductStock, error)
	MostViewedSince(since time.Time, limit int) ([]ProductViewCount, error)
	CategoryIDsByViews(limit int) ([]uint, error)
	Update(product *model.Product) error
	HardDelete(id uint) error
	SoftDelete(id uint) error
	Restore(id uint) error
}

type productRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepository{db: db}
}

func (r *productRepository) Create(product *model.Product) error {
	logger.Debug("Creating product in database", map[string]interface{}{
		"name":        product.Name,
		"category_id": product.CategoryID,
		"skus":        len(product.Skus),
	})

	if err := r.db.Create(product).Error; err != nil {
		logger.Error("Failed to create product in database", err, map[string]interface{}{
			"name":        product.Name,
			"category_id": product.CategoryID,
		})
		return err
	}

	logger.Debug("Product created in database", map[string]interface{}{
		"product_id": product.ID,
		"name":       product.Name,
	})
	return nil
}

// withDetails preloads the category and SKUs. Deleted products keep showing
// the SKUs that were deleted with them.
func withDetails(query *gorm.DB, scope DeletedScope) *gorm.DB {
	query = query.Preload("Category", func(db *gorm.DB) *gorm.DB { return db.Unscoped() })
	if scope == ScopeActive {
		query = query.Preload("Skus", func(db *gorm.DB) *gorm.DB { return db.Order("product_skus.id") })
	} else {
		query = query.Preload("Skus", func(db *gorm.DB) *gorm.DB { return db.Unscoped().Order("product_skus.id") })
	}
	return query.Preload("Skus.SizeAttribute").Preload("Skus.ColorAttribute")
}

func (r *productRepository) FindByID(id uint, scope DeletedScope) (*model.Product, error) {
	var product model.Product
	query := applyScope(r.db.Model(&model.Product{}), "products", scope)
	if err := withDetails(query, scope).First(&product, id).Error; err != nil {
		logger.Debug("Product not found by ID", map[string]interface{}{
			"product_id": id,
			"error":      err.Error(),
		})
		return nil, err
	}
	return &product, nil
}

func (r *productRepository) FindByIDs(ids []uint) ([]model.Product, error) {
	var products []model.Product
	if len(ids) == 0 {
		return products, nil
	}
	err := withDetails(r.db.Model(&model.Product{}), ScopeActive).
		Where("products.id IN ?", ids).
		Find(&products).Error
	return products, err
}

func (r *productRepository) filtered(filter ProductFilter) *gorm.DB {
	query := applyScope(r.db.Model(&model.Product{}), "products", filter.Scope)

	if q := strings.TrimSpace(filter.Query); q != "" {
		pattern := likePattern(q)
		if filter.NameOnly {
			query = query.Where("LOWER(products.name) LIKE ?"+likeEscape, pattern)
		} else {
			query = query.Where(
				"(LOWER(products.name) LIKE ?"+likeEscape+" OR LOWER(products.description) LIKE ?"+likeEscape+")",
				pattern, pattern,
			)
		}
	}
	if len(filter.CategoryIDs) > 0 {
		query = query.Where("products.category_id IN ?", filter.CategoryIDs)
	}
	if filter.CreatedAfter != nil {
		query = query.Where("products.created_at >= ?", *filter.CreatedAfter)
	}
	if len(filter.ExcludeIDs) > 0 {
		query = query.Where("products.id NOT IN ?", filter.ExcludeIDs)
	}
	if filter.OutOfStockOnly {
		query = query.Where("NOT EXISTS (SELECT 1 FROM product_skus o WHERE o.product_id = products.id AND o.quantity > 0 AND o.deleted_at IS NULL)")
	}

	conds := []string{"s.product_id = products.id", "s.deleted_at IS NULL"}
	var args []interface{}
	if filter.MinPrice != nil {
		conds = append(conds, "s.price >= ?")
		args = append(args, *filter.MinPrice)
	}
	if filter.MaxPrice != nil {
		conds = append(conds, "s.price <= ?")
		args = append(args, *filter.MaxPrice)
	}
	if filter.AvailableOnly {
		conds = append(conds, "s.quantity > 0")
	}
	if filter.MinStock != nil {
		conds = append(conds, "s.quantity >= ?")
		args = append(args, *filter.MinStock)
	}
	if filter.MaxStock != nil {
		conds = append(conds, "s.quantity <= ?")
		args = append(args, *filter.MaxStock)
	}
	if values := lowerAll(filter.Sizes); len(values) > 0 {
		conds = append(conds, "s.size_attribute_id IN (SELECT a.id FROM product_attributes a WHERE a.type = ? AND LOWER(a.value) IN ?)")
		args = append(args, model.AttributeSize, values)
	}
	if values := lowerAll(filter.Colors); len(values) > 0 {
		conds = append(conds, "s.color_attribute_id IN (SELECT a.id FROM product_attributes a WHERE a.type = ? AND LOWER(a.value) IN ?)")
		args = append(args, model.AttributeColor, values)
	}
	if len(conds) > 2 {
		query = query.Where("EXISTS (SELECT 1 FROM product_skus s WHERE "+strings.Join(conds, " AND ")+")", args...)
	}

	return query
}

func lowerAll(values []string) []string {
	var out []string
	for _, v := range values {
		if v = strings.ToLower(strings.TrimSpace(v)); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func (r *productRepository) FindWithFilter(filter ProductFilter, p Pagination) (*Page[model.Product], error) {
	logger.Debug("Finding products with filter", map[string]interface{}{
		"query":          filter.Query,
		"category_ids":   filter.CategoryIDs,
		"min_price":      filter.MinPrice,
		"max_price":      filter.MaxPrice,
		"sizes":          filter.Sizes,
		"colors":         filter.Colors,
		"available_only": filter.AvailableOnly,
		"scope":          filter.Scope,
		"page":           p.Page,
		"size":           p.Size,
		"sort_by":        p.SortBy,
	})

	details := func(db *gorm.DB) *gorm.DB { return withDetails(db, filter.Scope) }

	var products []model.Product
	total, err := paginate(r.filtered(filter), p, orderClause(p, productSortColumns, "products.created_at"), &products, details)
	if err != nil {
		logger.Error("Failed to find products with filter", err)
		return nil, err
	}

	logger.Debug("Products found with filter", map[string]interface{}{
		"count": len(products),
		"total": total,
	})
	return NewPage(products, p, total), nil
}

func (r *productRepository) CountWithFilter(filter ProductFilter) (int64, error) {
	var count int64
	err := r.filtered(filter).Count(&count).Error
	return count, err
}

func (r *productRepository) FindNewest(limit int) ([]model.Product, error) {
	var products []model.Product
	err := withDetails(r.db.Model(&model.Product{}), ScopeActive).
		Order("products.created_at DESC").
		Order("products.id DESC").
		Limit(limit).
		Find(&products).Error
	return products, err
}

func (r *productRepository) FindSimilar(productID uint, categoryID *uint, limit int) ([]model.Product, error) {
	var products []model.Product
	if categoryID == nil {
		return products, nil
	}
	err := withDetails(r.db.Model(&model.Product{}), ScopeActive).
		Where("products.category_id = ? AND products.id <> ?", *categoryID, productID).
		Order("products.created_at DESC").
		Limit(limit).
		Find(&products).Error
	return products, err
}

func (r *productRepository) FindRandom(limit int) ([]model.Product, error) {
	var products []model.Product
	err := withDetails(r.db.Model(&model.Product{}), ScopeActive).
		Order("RANDOM()").
		Limit(limit).
		Find(&products).Error
	return products, err
}

func (r *productRepository) FindInCategories(categoryIDs []uint, excludeIDs []uint, limit int) ([]model.Product, error) {
	var products []model.Product
	if len(categoryIDs) == 0 {
		return products, nil
	}
	query := r.db.Model(&model.Product{}).Where("products.category_id IN ?", categoryIDs)
	if len(excludeIDs) > 0 {
		query = query.Where("products.id NOT IN ?", excludeIDs)
	}
	err := query.Order("products.created_at DESC").Limit(limit).Find(&products).Error
	return products, err
}

// FindPopularInCategory ranks the category's products by all-time views,
// newest first on ties.
func (r *productRepository) FindPopularInCategory(categoryID uint, excludeIDs []uint, limit int) ([]model.Product, error) {
	var products []model.Product
	query := r.db.Model(&model.Product{}).
		Select("products.*").
		Joins("LEFT JOIN (SELECT product_id, COUNT(*) AS views FROM product_views GROUP BY product_id) pv ON pv.product_id = products.id").
		Where("products.category_id = ?", categoryID)
	if len(excludeIDs) > 0 {
		query = query.Where("products.id NOT IN ?", excludeIDs)
	}
	err := query.Order("COALESCE(pv.views, 0) DESC, products.created_at DESC, products.id DESC").
		Limit(limit).
		Find(&products).Error
	return products, err
}

func (r *productRepository) SuggestNames(query string, limit int) ([]string, error) {
	var names []string
	err := r.db.Model(&model.Product{}).
		Distinct("name").
		Where("LOWER(name) LIKE ?"+likeEscape, likePattern(query)).
		Order("name ASC").
		Limit(limit).
		Pluck("name", &names).Error
	return names, err
}

func (r *productRepository) Stock() (ProductStock, error) {
	var stock ProductStock
	if err := r.db.Model(&model.Product{}).Count(&stock.Active).Error; err != nil {
		return stock, err
	}
	if err := r.db.Unscoped().Model(&model.Product{}).
		Where("deleted_at IS NOT NULL").
		Count(&stock.Deleted).Error; err != nil {
		return stock, err
	}
	err := r.db.Model(&model.Product{}).
		Where("NOT EXISTS (SELECT 1 FROM product_skus s WHERE s.product_id = products.id AND s.quantity > 0 AND s.deleted_at IS NULL)").
		Count(&stock.OutOfStock).Error
	return stock, err
}

// MostViewedSince ranks active products by views recorded after since.
func (r *productRepository) MostViewedSince(since time.Time, limit int) ([]ProductViewCount, error) {
	var rows []ProductViewCount
	err := r.db.Table("product_views").
		Select("product_views.product_id AS product_id, COUNT(*) AS views").
		Joins("JOIN products ON products.id = product_views.product_id AND products.deleted_at IS NULL").
		Where("product_views.viewed_at >= ?", since).
		Group("product_views.product_id").
		Order("views DESC").
		Limit(limit).
		Scan(&rows).Error
	return rows, err
}

func (r *productRepository) CategoryIDsByViews(limit int) ([]uint, error) {
	var rows []struct {
		CategoryID uint
		Views      int64
	}
	err := r.db.Table("product_views").
		Select("products.category_id AS category_id, COUNT(*) AS views").
		Joins("JOIN products ON products.id = product_views.product_id AND products.deleted_at IS NULL").
		Where("products.category_id IS NOT NULL").
		Group("products.category_id").
		Order("views DESC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	ids := make([]uint, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.CategoryID)
	}
	return ids, nil
}

// Update saves the product columns only; SKUs are written through SkuRepository.
func (r *productRepository) Update(product *model.Product) error {
	logger.Debug("Updating product in database", map[string]interface{}{
		"product_id": product.ID,
	})

	if err := r.db.Omit(clause.Associations).Save(product).Error; err != nil {
		logger.Error("Failed to update product in database", err, map[string]interface{}{
			"product_id": product.ID,
		})
		return err
	}
	return nil
}

// HardDelete removes the product with everything that points at it, except
// order history.
func (r *productRepository) HardDelete(id uint) error {
	logger.Debug("Hard deleting product", map[string]interface{}{
		"product_id": id,
	})

	return r.db.Transaction(func(tx *gorm.DB) error {
		var product model.Product
		if err := tx.Unscoped().Select("id").First(&product, id).Error; err != nil {
			return err
		}

		reviewIDs := tx.Unscoped().Model(&model.ProductReview{}).Select("id").Where("product_id = ?", id)
		if err := tx.Where("review_id IN (?)", reviewIDs).Delete(&model.ReviewHelpfulVote{}).Error; err != nil {
			return err
		}
		dependents := []interface{}{
			&model.CartItem{},
			&model.WishlistItem{},
			&model.ProductRecommendation{},
			&model.ProductView{},
			&model.ProductReview{},
			&model.ProductSku{},
		}
		for _, dep := range dependents {
			if err := tx.Unscoped().Where("product_id = ?", id).Delete(dep).Error; err != nil {
				return err
			}
		}
		return tx.Unscoped().Delete(&model.Product{}, id).Error
	})
}

// SoftDelete marks the product and its active SKUs deleted with one timestamp.
func (r *productRepository) SoftDelete(id uint) error {
	logger.Debug("Soft deleting product", map[string]interface{}{
		"product_id": id,
	})

	now := time.Now()
	return r.db.Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&model.Product{}).
			Where("id = ?", id).
			Update("deleted_at", now)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Model(&model.ProductSku{}).
			Where("product_id = ?", id).
			Update("deleted_at", now).Error
	})
}

// Restore clears deleted_at on the product and on the SKUs deleted together
// with it. SKUs removed individually before that stay deleted.
func (r *productRepository) Restore(id uint) error {
	logger.Debug("Restoring product", map[string]interface{}{
		"product_id": id,
	})

	return r.db.Transaction(func(tx *gorm.DB) error {
		var product model.Product
		if err := tx.Unscoped().
			Where("id = ? AND deleted_at IS NOT NULL", id).
			First(&product).Error; err != nil {
			return err
		}

		if err := tx.Unscoped().Model(&model.ProductSku{}).
			Where("product_id = ? AND deleted_at >= ?", id, product.DeletedAt.Time).
			Update("deleted_at", nil).Error; err != nil {
			return err
		}
		return tx.Unscoped().Model(&model.Product{}).
			Where("id = ?", id).
			Update("deleted_at", nil).Error
	})
}
