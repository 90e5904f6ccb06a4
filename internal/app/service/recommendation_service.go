package service

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/internal/app/repository"
	"github.com/ikkim/storefront-backend/pkg/events"
	"github.com/ikkim/storefront-backend/pkg/logger"
)

var (
	ErrRecommendationNotFound  = errors.New("recommendation not found")
	ErrRecommendationForbidden = errors.New("recommendation belongs to another user")
	ErrInvalidScore            = errors.New("score must be between 0 and 1")
	ErrInvalidRecommendation   = errors.New("invalid recommendation type")
)

const (
	trendingWindow        = 7 * 24 * time.Hour
	defaultRecommendLimit = 20
	similarPerViewed      = 2
)

// ProductAnalytics aggregates views, recommendation performance and reviews
// of one product.
type ProductAnalytics struct {
	ProductID            uint    `json:"product_id"`
	TotalViews           int64   `json:"total_views"`
	UniqueViewers        int64   `json:"unique_viewers"`
	ViewsLast7Days       int64   `json:"views_last_7_days"`
	RecommendationCount  int64   `json:"recommendation_count"`
	RecommendationClicks int64   `json:"recommendation_clicks"`
	ClickThroughRate     float64 `json:"click_through_rate"`
	AverageRating        float64 `json:"average_rating"`
	ReviewCount          int64   `json:"review_count"`
}

type ViewInput struct {
	ProductID uint
	UserID    *uint
	IPAddress string
	UserAgent string
}

type RecommendationService interface {
	TrackProductView(ctx context.Context, input ViewInput) error
	ProductAnalytics(productID uint) (*ProductAnalytics, error)
	List(userID uint, limit int) ([]model.ProductRecommendation, error)
	ListByType(userID uint, recType model.RecommendationType, limit int) ([]model.ProductRecommendation, error)
	MarkViewed(userID, id uint) error
	MarkClicked(userID, id uint) error
	Remove(userID, id uint) error
	UpdateScore(id uint, score float64) (*model.ProductRecommendation, error)
	GenerateForUser(userID uint) ([]model.ProductRecommendation, error)
	GenerateAll(ctx context.Context) (int, error)
	Stats() (map[model.RecommendationType]repository.RecommendationTypeStats, error)
}

type recommendationService struct {
	analyticsRepo repository.AnalyticsRepository
	productRepo   repository.ProductRepository
	wishlistRepo  repository.WishlistRepository
	reviewRepo    *repository.ReviewRepository
	userRepo      repository.UserRepository
	feed          LiveFeed
	limit         int
}

func NewRecommendationService(
	analyticsRepo repository.AnalyticsRepository,
	productRepo repository.ProductRepository,
	wishlistRepo repository.WishlistRepository,
	reviewRepo *repository.ReviewRepository,
	userRepo repository.UserRepository,
	feed LiveFeed,
	limit int,
) RecommendationService {
	if limit <= 0 {
		limit = defaultRecommendLimit
	}
	return &recommendationService{
		analyticsRepo: analyticsRepo,
		productRepo:   productRepo,
		wishlistRepo:  wishlistRepo,
		reviewRepo:    reviewRepo,
		userRepo:      userRepo,
		feed:          feed,
		limit:         limit,
	}
}

func (s *recommendationService) TrackProductView(ctx context.Context, input ViewInput) error {
	if _, err := s.productRepo.FindByID(input.ProductID, repository.ScopeActive); err != nil {
		return notFound(err, ErrProductNotFound)
	}

	view := &model.ProductView{
		ProductID: input.ProductID,
		UserID:    input.UserID,
		IPAddress: input.IPAddress,
		UserAgent: truncate(input.UserAgent, 500),
		ViewedAt:  time.Now(),
	}
	if err := s.analyticsRepo.CreateView(view); err != nil {
		return err
	}

	broadcast(s.feed, events.TopicProductViewed, events.ProductViewed{
		ProductID: input.ProductID,
		UserID:    input.UserID,
		IPAddress: input.IPAddress,
	})
	return nil
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

func (s *recommendationService) ProductAnalytics(productID uint) (*ProductAnalytics, error) {
	if _, err := s.productRepo.FindByID(productID, repository.ScopeAll); err != nil {
		return nil, notFound(err, ErrProductNotFound)
	}

	views, err := s.analyticsRepo.ViewStats(productID, time.Now())
	if err != nil {
		return nil, err
	}
	total, clicks, err := s.analyticsRepo.RecommendationCounts(productID)
	if err != nil {
		return nil, err
	}
	reviews, err := s.reviewRepo.GetProductStatistics(productID)
	if err != nil {
		return nil, err
	}

	analytics := &ProductAnalytics{
		ProductID:            productID,
		TotalViews:           views.TotalViews,
		UniqueViewers:        views.UniqueViewers,
		ViewsLast7Days:       views.ViewsLast7Days,
		RecommendationCount:  total,
		RecommendationClicks: clicks,
		AverageRating:        reviews.AverageRating,
		ReviewCount:          reviews.TotalReviews,
	}
	if total > 0 {
		analytics.ClickThroughRate = float64(clicks) / float64(total)
	}
	return analytics, nil
}

func (s *recommendationService) List(userID uint, limit int) ([]model.ProductRecommendation, error) {
	return s.analyticsRepo.FindRecommendations(userID, nil, clampLimit(limit, 10, maxListLimit))
}

func (s *recommendationService) ListByType(userID uint, recType model.RecommendationType, limit int) ([]model.ProductRecommendation, error) {
	if !recType.Valid() {
		return nil, ErrInvalidRecommendation
	}
	return s.analyticsRepo.FindRecommendations(userID, &recType, clampLimit(limit, 10, maxListLimit))
}

// owned loads a recommendation and checks it belongs to the user.
func (s *recommendationService) owned(userID, id uint) (*model.ProductRecommendation, error) {
	rec, err := s.analyticsRepo.FindRecommendationByID(id)
	if err != nil {
		return nil, notFound(err, ErrRecommendationNotFound)
	}
	if rec.UserID != userID {
		return nil, ErrRecommendationForbidden
	}
	return rec, nil
}

func (s *recommendationService) MarkViewed(userID, id uint) error {
	if _, err := s.owned(userID, id); err != nil {
		return err
	}
	return s.analyticsRepo.UpdateRecommendation(id, map[string]interface{}{"is_viewed": true})
}

// MarkClicked also marks the recommendation viewed.
func (s *recommendationService) MarkClicked(userID, id uint) error {
	if _, err := s.owned(userID, id); err != nil {
		return err
	}
	return s.analyticsRepo.UpdateRecommendation(id, map[string]interface{}{
		"is_viewed":  true,
		"is_clicked": true,
	})
}

func (s *recommendationService) Remove(userID, id uint) error {
	if _, err := s.owned(userID, id); err != nil {
		return err
	}
	return notFound(s.analyticsRepo.DeleteRecommendation(id), ErrRecommendationNotFound)
}

func (s *recommendationService) UpdateScore(id uint, score float64) (*model.ProductRecommendation, error) {
	if score < 0 || score > 1 {
		return nil, ErrInvalidScore
	}
	if err := s.analyticsRepo.UpdateRecommendation(id, map[string]interface{}{"score": score}); err != nil {
		return nil, notFound(err, ErrRecommendationNotFound)
	}
	return s.analyticsRepo.FindRecommendationByID(id)
}

// candidateSet collects scored products, keeping the first type that
// proposed each product.
type candidateSet struct {
	userID  uint
	exclude map[uint]bool
	recs    []model.ProductRecommendation
}

func (c *candidateSet) add(productID uint, recType model.RecommendationType, score float64, reason string) bool {
	if c.exclude[productID] {
		return false
	}
	c.exclude[productID] = true
	c.recs = append(c.recs, model.ProductRecommendation{
		UserID:    c.userID,
		ProductID: productID,
		Type:      recType,
		Score:     score,
		Reason:    reason,
	})
	return true
}

// top orders recs by score and keeps limit of them. Similar picks are
// always kept so the other types cannot crowd them out.
func (c *candidateSet) top(limit int) []model.ProductRecommendation {
	recs := c.recs
	sort.SliceStable(recs, func(i, j int) bool { return recs[i].Score > recs[j].Score })

	others := limit
	for _, r := range recs {
		if r.Type == model.RecommendationSimilar {
			others--
		}
	}
	kept := make([]model.ProductRecommendation, 0, limit)
	for _, r := range recs {
		if r.Type != model.RecommendationSimilar {
			if others <= 0 {
				continue
			}
			others--
		}
		kept = append(kept, r)
	}
	return kept
}

// GenerateForUser rebuilds the user's recommendations from their views,
// wishlist and cart plus the week's trending products. Wishlisted products
// are never recommended.
func (s *recommendationService) GenerateForUser(userID uint) ([]model.ProductRecommendation, error) {
	wishlisted, err := s.wishlistRepo.ProductIDs(userID)
	if err != nil {
		return nil, err
	}
	set := &candidateSet{userID: userID, exclude: make(map[uint]bool, len(wishlisted))}
	for _, id := range wishlisted {
		set.exclude[id] = true
	}

	// similar goes first so it claims its own candidates: the most viewed
	// products sharing a category with something the user looked at
	viewed, err := s.analyticsRepo.RecentlyViewed(userID, s.limit)
	if err != nil {
		return nil, err
	}
	skip := append([]uint{}, wishlisted...)
	for _, v := range viewed {
		skip = append(skip, v.ProductID)
	}
	similarBudget := s.limit / 4
	if similarBudget < 1 {
		similarBudget = 1
	}
	for _, v := range viewed {
		if similarBudget == 0 {
			break
		}
		products, err := s.productRepo.FindPopularInCategory(v.CategoryID, skip, similarPerViewed)
		if err != nil {
			return nil, err
		}
		for rank, p := range products {
			if similarBudget == 0 {
				break
			}
			if set.add(p.ID, model.RecommendationSimilar, 0.9/float64(rank+1), "Similar to products you viewed") {
				similarBudget--
			}
		}
	}

	interests, err := s.analyticsRepo.InterestCategories(userID)
	if err != nil {
		return nil, err
	}
	if len(interests) > 0 {
		// the strongest interest drives the personalized picks
		top := interests[0]
		products, err := s.productRepo.FindInCategories([]uint{top.CategoryID}, wishlisted, s.limit)
		if err != nil {
			return nil, err
		}
		for _, p := range products {
			set.add(p.ID, model.RecommendationPersonalized, 1, "Picked for you")
		}

		for _, interest := range interests[1:] {
			products, err := s.productRepo.FindInCategories([]uint{interest.CategoryID}, wishlisted, s.limit)
			if err != nil {
				return nil, err
			}
			score := float64(interest.Count) / float64(top.Count)
			for _, p := range products {
				set.add(p.ID, model.RecommendationCategoryBased, score, "From a category you showed interest in")
			}
		}
	}

	trending, err := s.productRepo.MostViewedSince(time.Now().Add(-trendingWindow), s.limit)
	if err != nil {
		return nil, err
	}
	if len(trending) > 0 {
		maxViews := float64(trending[0].Views)
		for _, t := range trending {
			set.add(t.ProductID, model.RecommendationTrending, 0.8*float64(t.Views)/maxViews, "Trending this week")
		}
	}

	recs := set.top(s.limit)

	if err := s.analyticsRepo.ReplaceRecommendations(userID, recs); err != nil {
		logger.Error("Failed to store recommendations", err, map[string]interface{}{
			"user_id": userID,
		})
		return nil, err
	}

	logger.Debug("Recommendations generated", map[string]interface{}{
		"user_id": userID,
		"count":   len(recs),
	})
	return recs, nil
}

// GenerateAll regenerates recommendations for every active user. It stops
// early when ctx is cancelled.
func (s *recommendationService) GenerateAll(ctx context.Context) (int, error) {
	ids, err := s.userRepo.ListActiveIDs()
	if err != nil {
		return 0, err
	}

	generated := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return generated, err
		}
		if _, err := s.GenerateForUser(id); err != nil {
			logger.Warn("Recommendation generation failed for user", map[string]interface{}{
				"user_id": id,
				"error":   err.Error(),
			})
			continue
		}
		generated++
	}

	logger.Info("Recommendations regenerated", map[string]interface{}{
		"users":     len(ids),
		"generated": generated,
	})
	return generated, nil
}

func (s *recommendationService) Stats() (map[model.RecommendationType]repository.RecommendationTypeStats, error) {
	return s.analyticsRepo.RecommendationStats()
}
