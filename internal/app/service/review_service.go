package service

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/internal/app/repository"
	"github.com/ikkim/storefront-backend/pkg/logger"
)

var (
	ErrReviewNotFound       = errors.New("review not found")
	ErrReviewAlreadyExists  = errors.New("you have already reviewed this product")
	ErrReviewForbidden      = errors.New("you can only modify your own reviews")
	ErrInvalidRating        = errors.New("rating must be between 1 and 5")
	ErrReviewTitleTooLong   = errors.New("title must be at most 200 characters")
	ErrReviewCommentTooLong = errors.New("comment must be at most 2000 characters")
	ErrReviewAlreadyMarked  = errors.New("review already marked as helpful")
)

type ReviewInput struct {
	ProductID uint
	Rating    int
	Title     string
	Comment   string
}

type ReviewUpdate struct {
	Rating  *int
	Title   *string
	Comment *string
}

type ReviewService struct {
	reviewRepo  *repository.ReviewRepository
	productRepo repository.ProductRepository
	cache       Cache
}

func NewReviewService(reviewRepo *repository.ReviewRepository, productRepo repository.ProductRepository, cache Cache) *ReviewService {
	return &ReviewService{
		reviewRepo:  reviewRepo,
		productRepo: productRepo,
		cache:       cache,
	}
}

func validateReview(rating int, title, comment string) error {
	if rating < 1 || rating > 5 {
		return ErrInvalidRating
	}
	if utf8.RuneCountInString(title) > model.MaxReviewTitleLength {
		return ErrReviewTitleTooLong
	}
	if utf8.RuneCountInString(comment) > model.MaxReviewCommentLength {
		return ErrReviewCommentTooLong
	}
	return nil
}

// CreateReview adds the user's single review of an active product. The
// review is flagged verified when the user has ordered the product.
func (s *ReviewService) CreateReview(ctx context.Context, userID uint, input ReviewInput) (*model.ProductReview, error) {
	title := strings.TrimSpace(input.Title)
	comment := strings.TrimSpace(input.Comment)
	if err := validateReview(input.Rating, title, comment); err != nil {
		return nil, err
	}

	if _, err := s.productRepo.FindByID(input.ProductID, repository.ScopeActive); err != nil {
		return nil, notFound(err, ErrProductNotFound)
	}

	exists, err := s.reviewRepo.ExistsByUserAndProduct(userID, input.ProductID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrReviewAlreadyExists
	}

	verified, err := s.reviewRepo.HasPurchased(userID, input.ProductID)
	if err != nil {
		return nil, err
	}

	review := &model.ProductReview{
		ProductID:          input.ProductID,
		UserID:             userID,
		Rating:             input.Rating,
		Title:              title,
		Comment:            comment,
		IsVerifiedPurchase: verified,
		IsApproved:         true,
	}
	if err := s.reviewRepo.CreateReview(review); err != nil {
		logger.Error("Failed to create review", err, map[string]interface{}{
			"user_id":    userID,
			"product_id": input.ProductID,
		})
		return nil, err
	}

	invalidate(ctx, s.cache, productDetailKey(input.ProductID))
	logger.Info("Review created", map[string]interface{}{
		"review_id":  review.ID,
		"product_id": input.ProductID,
		"verified":   verified,
	})
	return s.reviewRepo.GetReviewByID(review.ID)
}

func (s *ReviewService) GetReview(id uint) (*model.ProductReview, error) {
	review, err := s.reviewRepo.GetReviewByID(id)
	if err != nil {
		return nil, notFound(err, ErrReviewNotFound)
	}
	return review, nil
}

func (s *ReviewService) UpdateReview(ctx context.Context, userID, id uint, input ReviewUpdate) (*model.ProductReview, error) {
	review, err := s.GetReview(id)
	if err != nil {
		return nil, err
	}
	if review.UserID != userID {
		return nil, ErrReviewForbidden
	}

	if input.Rating != nil {
		review.Rating = *input.Rating
	}
	if input.Title != nil {
		review.Title = strings.TrimSpace(*input.Title)
	}
	if input.Comment != nil {
		review.Comment = strings.TrimSpace(*input.Comment)
	}
	if err := validateReview(review.Rating, review.Title, review.Comment); err != nil {
		return nil, err
	}

	if err := s.reviewRepo.UpdateReview(review); err != nil {
		return nil, err
	}
	invalidate(ctx, s.cache, productDetailKey(review.ProductID))
	return s.reviewRepo.GetReviewByID(id)
}

// DeleteReview is allowed for the author and for admins.
func (s *ReviewService) DeleteReview(ctx context.Context, userID uint, isAdmin bool, id uint) error {
	review, err := s.GetReview(id)
	if err != nil {
		return err
	}
	if review.UserID != userID && !isAdmin {
		return ErrReviewForbidden
	}
	if err := s.reviewRepo.DeleteReview(id); err != nil {
		return err
	}

	invalidate(ctx, s.cache, productDetailKey(review.ProductID))
	logger.Info("Review deleted", map[string]interface{}{
		"review_id": id,
		"by_user":   userID,
		"admin":     isAdmin,
	})
	return nil
}

func (s *ReviewService) GetProductReviews(productID uint, p repository.Pagination) (*repository.Page[model.ProductReview], error) {
	return s.reviewRepo.GetReviewsByProductID(productID, false, p)
}

func (s *ReviewService) GetVerifiedReviews(productID uint, p repository.Pagination) (*repository.Page[model.ProductReview], error) {
	return s.reviewRepo.GetReviewsByProductID(productID, true, p)
}

func (s *ReviewService) GetRecentReviews(productID uint, limit int) ([]model.ProductReview, error) {
	return s.reviewRepo.GetRecentReviews(productID, clampLimit(limit, 5, maxListLimit))
}

func (s *ReviewService) GetMostHelpfulReviews(productID uint, limit int) ([]model.ProductReview, error) {
	return s.reviewRepo.GetMostHelpfulReviews(productID, clampLimit(limit, 5, maxListLimit))
}

func (s *ReviewService) GetProductStatistics(productID uint) (*repository.ReviewStats, error) {
	return s.reviewRepo.GetProductStatistics(productID)
}

func (s *ReviewService) MarkHelpful(ctx context.Context, reviewID, userID uint) (*model.ProductReview, error) {
	review, err := s.GetReview(reviewID)
	if err != nil {
		return nil, err
	}
	marked, err := s.reviewRepo.MarkHelpful(reviewID, userID)
	if err != nil {
		return nil, err
	}
	if !marked {
		return nil, ErrReviewAlreadyMarked
	}
	invalidate(ctx, s.cache, productDetailKey(review.ProductID))
	return s.reviewRepo.GetReviewByID(reviewID)
}

// SetApproved hides or shows a review in the public listings.
func (s *ReviewService) SetApproved(ctx context.Context, id uint, approved bool) (*model.ProductReview, error) {
	review, err := s.GetReview(id)
	if err != nil {
		return nil, err
	}
	if err := s.reviewRepo.SetApproved(id, approved); err != nil {
		return nil, notFound(err, ErrReviewNotFound)
	}

	invalidate(ctx, s.cache, productDetailKey(review.ProductID))
	logger.Info("Review approval changed", map[string]interface{}{
		"review_id": id,
		"approved":  approved,
	})
	return s.reviewRepo.GetReviewByID(id)
}
