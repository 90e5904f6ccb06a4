package repository

import (
	"time"

	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/pkg/logger"
	"gorm.io/gorm"
)

type CategoryCount struct {
	CategoryID uint
	Count      int64
}

// ViewedProduct is a product the user looked at, with its category.
type ViewedProduct struct {
	ProductID  uint
	CategoryID uint
}

type RecommendationTypeStats struct {
	Count   int64 `json:"count"`
	Viewed  int64 `json:"viewed"`
	Clicked int64 `json:"clicked"`
}

type ProductViewStats struct {
	TotalViews     int64
	UniqueViewers  int64
	ViewsLast7Days int64
}

// AnalyticsRepository stores product views and per-user recommendations.
type AnalyticsRepository interface {
	CreateView(view *model.ProductView) error
	ViewStats(productID uint, now time.Time) (ProductViewStats, error)
	CountViews(productID uint) (int64, error)
	// InterestCategories counts the categories of products the user viewed,
	// wishlisted or put in the cart.
	InterestCategories(userID uint) ([]CategoryCount, error)
	// RecentlyViewed lists the distinct categorised products the user
	// viewed, most recent first.
	RecentlyViewed(userID uint, limit int) ([]ViewedProduct, error)

	ReplaceRecommendations(userID uint, recs []model.ProductRecommendation) error
	FindRecommendations(userID uint, recType *model.RecommendationType, limit int) ([]model.ProductRecommendation, error)
	FindRecommendationByID(id uint) (*model.ProductRecommendation, error)
	UpdateRecommendation(id uint, fields map[string]interface{}) error
	DeleteRecommendation(id uint) error
	RecommendationCounts(productID uint) (total int64, clicks int64, err error)
	RecommendationStats() (map[model.RecommendationType]RecommendationTypeStats, error)
}

type analyticsRepository struct {
	db *gorm.DB
}

func NewAnalyticsRepository(db *gorm.DB) AnalyticsRepository {
	return &analyticsRepository{db: db}
}

func (r *analyticsRepository) CreateView(view *model.ProductView) error {
	if view.ViewedAt.IsZero() {
		view.ViewedAt = time.Now()
	}
	if err := r.db.Create(view).Error; err != nil {
		logger.Error("Failed to record product view", err, map[string]interface{}{
			"product_id": view.ProductID,
		})
		return err
	}
	return nil
}

func (r *analyticsRepository) ViewStats(productID uint, now time.Time) (ProductViewStats, error) {
	var stats ProductViewStats
	base := func() *gorm.DB {
		return r.db.Model(&model.ProductView{}).Where("product_id = ?", productID)
	}

	if err := base().Count(&stats.TotalViews).Error; err != nil {
		return stats, err
	}
	// anonymous visitors are told apart by IP
	if err := base().
		Select("COUNT(DISTINCT COALESCE(CAST(user_id AS TEXT), ip_address))").
		Scan(&stats.UniqueViewers).Error; err != nil {
		return stats, err
	}
	err := base().Where("viewed_at >= ?", now.AddDate(0, 0, -7)).Count(&stats.ViewsLast7Days).Error
	return stats, err
}

func (r *analyticsRepository) CountViews(productID uint) (int64, error) {
	var count int64
	err := r.db.Model(&model.ProductView{}).Where("product_id = ?", productID).Count(&count).Error
	return count, err
}

func (r *analyticsRepository) InterestCategories(userID uint) ([]CategoryCount, error) {
	var rows []CategoryCount
	err := r.db.Raw(`
		SELECT p.category_id AS category_id, COUNT(*) AS count
		FROM (
			SELECT product_id FROM product_views WHERE user_id = ?
			UNION ALL
			SELECT product_id FROM wishlist_items WHERE user_id = ? AND deleted_at IS NULL
			UNION ALL
			SELECT ci.product_id FROM cart_items ci JOIN carts c ON c.id = ci.cart_id WHERE c.user_id = ?
		) signals
		JOIN products p ON p.id = signals.product_id AND p.deleted_at IS NULL
		WHERE p.category_id IS NOT NULL
		GROUP BY p.category_id
		ORDER BY count DESC, p.category_id ASC`, userID, userID, userID).
		Scan(&rows).Error
	return rows, err
}

func (r *analyticsRepository) RecentlyViewed(userID uint, limit int) ([]ViewedProduct, error) {
	var rows []ViewedProduct
	err := r.db.Table("product_views").
		Select("product_views.product_id AS product_id, products.category_id AS category_id, MAX(product_views.viewed_at) AS last_viewed").
		Joins("JOIN products ON products.id = product_views.product_id AND products.deleted_at IS NULL").
		Where("product_views.user_id = ? AND products.category_id IS NOT NULL", userID).
		Group("product_views.product_id, products.category_id").
		Order("last_viewed DESC").
		Limit(limit).
		Scan(&rows).Error
	return rows, err
}

// ReplaceRecommendations swaps the user's recommendation set atomically.
func (r *analyticsRepository) ReplaceRecommendations(userID uint, recs []model.ProductRecommendation) error {
	logger.Debug("Replacing recommendations", map[string]interface{}{
		"user_id": userID,
		"count":   len(recs),
	})

	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).Delete(&model.ProductRecommendation{}).Error; err != nil {
			return err
		}
		if len(recs) == 0 {
			return nil
		}
		return tx.Omit("Product").Create(&recs).Error
	})
}

func (r *analyticsRepository) FindRecommendations(userID uint, recType *model.RecommendationType, limit int) ([]model.ProductRecommendation, error) {
	query := r.db.Model(&model.ProductRecommendation{}).
		Joins("JOIN products ON products.id = product_recommendations.product_id AND products.deleted_at IS NULL").
		Preload("Product").
		Preload("Product.Skus").
		Where("product_recommendations.user_id = ?", userID)
	if recType != nil {
		query = query.Where("product_recommendations.type = ?", *recType)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	var recs []model.ProductRecommendation
	err := query.
		Order("product_recommendations.score DESC").
		Order("product_recommendations.id ASC").
		Find(&recs).Error
	return recs, err
}

func (r *analyticsRepository) FindRecommendationByID(id uint) (*model.ProductRecommendation, error) {
	var rec model.ProductRecommendation
	if err := r.db.First(&rec, id).Error; err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *analyticsRepository) UpdateRecommendation(id uint, fields map[string]interface{}) error {
	result := r.db.Model(&model.ProductRecommendation{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *analyticsRepository) DeleteRecommendation(id uint) error {
	result := r.db.Delete(&model.ProductRecommendation{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *analyticsRepository) RecommendationCounts(productID uint) (int64, int64, error) {
	var total, clicks int64
	query := func() *gorm.DB {
		return r.db.Model(&model.ProductRecommendation{}).Where("product_id = ?", productID)
	}
	if err := query().Count(&total).Error; err != nil {
		return 0, 0, err
	}
	if err := query().Where("is_clicked = ?", true).Count(&clicks).Error; err != nil {
		return 0, 0, err
	}
	return total, clicks, nil
}

func (r *analyticsRepository) RecommendationStats() (map[model.RecommendationType]RecommendationTypeStats, error) {
	var rows []struct {
		Type    model.RecommendationType
		Count   int64
		Viewed  int64
		Clicked int64
	}
	err := r.db.Model(&model.ProductRecommendation{}).
		Select(`type,
			COUNT(*) AS count,
			SUM(CASE WHEN is_viewed THEN 1 ELSE 0 END) AS viewed,
			SUM(CASE WHEN is_clicked THEN 1 ELSE 0 END) AS clicked`).
		Group("type").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	stats := make(map[model.RecommendationType]RecommendationTypeStats, len(rows))
	for _, row := range rows {
		stats[row.Type] = RecommendationTypeStats{Count: row.Count, Viewed: row.Viewed, Clicked: row.Clicked}
	}
	return stats, nil
}
