package repository

import (
	"github.com/ikkim/storefront-backend/internal/app/model"
	"gorm.io/gorm"
)

var reviewSortColumns = map[string]string{
	"createdAt":    "product_reviews.created_at",
	"created_at":   "product_reviews.created_at",
	"rating":       "product_reviews.rating",
	"helpfulCount": "product_reviews.helpful_count",
	"helpful":      "product_reviews.helpful_count",
}

// ReviewStats summarises the approved reviews of a product.
type ReviewStats struct {
	TotalReviews  int64         `json:"total_reviews"`
	AverageRating float64       `json:"average_rating"`
	RatingCounts  map[int]int64 `json:"rating_counts"`
	VerifiedCount int64         `json:"verified_count"`
}

type ReviewRepository struct {
	db *gorm.DB
}

func NewReviewRepository(db *gorm.DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

func (r *ReviewRepository) CreateReview(review *model.ProductReview) error {
	return r.db.Omit("Product", "User").Create(review).Error
}

func (r *ReviewRepository) GetReviewByID(id uint) (*model.ProductReview, error) {
	var review model.ProductReview
	if err := r.db.Preload("User").First(&review, id).Error; err != nil {
		return nil, err
	}
	return &review, nil
}

// ExistsByUserAndProduct ignores deleted reviews.
func (r *ReviewRepository) ExistsByUserAndProduct(userID, productID uint) (bool, error) {
	var count int64
	err := r.db.Model(&model.ProductReview{}).
		Where("user_id = ? AND product_id = ?", userID, productID).
		Count(&count).Error
	return count > 0, err
}

func (r *ReviewRepository) approved(productID uint) *gorm.DB {
	return r.db.Model(&model.ProductReview{}).
		Where("product_reviews.product_id = ? AND product_reviews.is_approved = ?", productID, true)
}

// GetReviewsByProductID lists approved reviews, newest first unless sorted otherwise.
func (r *ReviewRepository) GetReviewsByProductID(productID uint, verifiedOnly bool, p Pagination) (*Page[model.ProductReview], error) {
	query := r.approved(productID)
	if verifiedOnly {
		query = query.Where("product_reviews.is_verified_purchase = ?", true)
	}

	var reviews []model.ProductReview
	total, err := paginate(query, p, orderClause(p, reviewSortColumns, "product_reviews.created_at"), &reviews, preloads("User"))
	if err != nil {
		return nil, err
	}
	return NewPage(reviews, p, total), nil
}

func (r *ReviewRepository) GetRecentReviews(productID uint, limit int) ([]model.ProductReview, error) {
	var reviews []model.ProductReview
	err := r.approved(productID).
		Preload("User").
		Order("product_reviews.created_at DESC").
		Order("product_reviews.id DESC").
		Limit(limit).
		Find(&reviews).Error
	return reviews, err
}

func (r *ReviewRepository) GetMostHelpfulReviews(productID uint, limit int) ([]model.ProductReview, error) {
	var reviews []model.ProductReview
	err := r.approved(productID).
		Preload("User").
		Order("product_reviews.helpful_count DESC").
		Order("product_reviews.created_at DESC").
		Limit(limit).
		Find(&reviews).Error
	return reviews, err
}

func (r *ReviewRepository) UpdateReview(review *model.ProductReview) error {
	return r.db.Omit("Product", "User").Save(review).Error
}

// DeleteReview soft deletes the review.
func (r *ReviewRepository) DeleteReview(id uint) error {
	return r.db.Delete(&model.ProductReview{}, id).Error
}

func (r *ReviewRepository) SetApproved(id uint, approved bool) error {
	result := r.db.Model(&model.ProductReview{}).Where("id = ?", id).Update("is_approved", approved)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// GetProductStatistics aggregates approved reviews of a product.
func (r *ReviewRepository) GetProductStatistics(productID uint) (*ReviewStats, error) {
	stats := &ReviewStats{RatingCounts: map[int]int64{1: 0, 2: 0, 3: 0, 4: 0, 5: 0}}

	var rows []struct {
		Rating int
		Count  int64
	}
	if err := r.approved(productID).
		Select("rating, COUNT(*) AS count").
		Group("rating").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	var sum int64
	for _, row := range rows {
		stats.RatingCounts[row.Rating] = row.Count
		stats.TotalReviews += row.Count
		sum += int64(row.Rating) * row.Count
	}
	if stats.TotalReviews > 0 {
		stats.AverageRating = float64(sum) / float64(stats.TotalReviews)
	}

	if err := r.approved(productID).
		Where("product_reviews.is_verified_purchase = ?", true).
		Count(&stats.VerifiedCount).Error; err != nil {
		return nil, err
	}
	return stats, nil
}

// MarkHelpful records one helpful vote per user and bumps the counter.
// It returns false when the user had already voted.
func (r *ReviewRepository) MarkHelpful(reviewID, userID uint) (bool, error) {
	marked := false
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&model.ReviewHelpfulVote{}).
			Where("review_id = ? AND user_id = ?", reviewID, userID).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return nil
		}

		if err := tx.Create(&model.ReviewHelpfulVote{ReviewID: reviewID, UserID: userID}).Error; err != nil {
			return err
		}
		if err := tx.Model(&model.ProductReview{}).
			Where("id = ?", reviewID).
			UpdateColumn("helpful_count", gorm.Expr("helpful_count + ?", 1)).Error; err != nil {
			return err
		}
		marked = true
		return nil
	})
	return marked, err
}

// HasPurchased reports whether the user has a non-cancelled order containing the product.
func (r *ReviewRepository) HasPurchased(userID, productID uint) (bool, error) {
	var count int64
	err := r.db.Model(&model.OrderItem{}).
		Joins("JOIN orders ON orders.id = order_items.order_id AND orders.deleted_at IS NULL").
		Where("orders.user_id = ? AND order_items.product_id = ? AND orders.status <> ?",
			userID, productID, model.OrderStatusCancelled).
		Count(&count).Error
	return count > 0, err
}
