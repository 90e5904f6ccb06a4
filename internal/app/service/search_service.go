package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/internal/app/repository"
	"github.com/ikkim/storefront-backend/pkg/logger"
)

const (
	filterOptionsKey  = "filters:options"
	filterOptionsTTL  = 30 * time.Minute
	maxSuggestions    = 20
	maxPopularResults = 50
)

var ErrInvalidStockRange = errors.New("min stock must not exceed max stock")

// SearchRequest is the advanced search input. Empty fields do not filter.
type SearchRequest struct {
	Query         string
	CategoryIDs   []uint
	MinPrice      *float64
	MaxPrice      *float64
	Sizes         []string
	Colors        []string
	AvailableOnly bool
	MinStock      *int
	MaxStock      *int
	Pagination    repository.Pagination
}

func (r SearchRequest) filter() repository.ProductFilter {
	return repository.ProductFilter{
		Query:         r.Query,
		CategoryIDs:   r.CategoryIDs,
		MinPrice:      r.MinPrice,
		MaxPrice:      r.MaxPrice,
		Sizes:         r.Sizes,
		Colors:        r.Colors,
		AvailableOnly: r.AvailableOnly,
		MinStock:      r.MinStock,
		MaxStock:      r.MaxStock,
	}
}

func (r SearchRequest) validate() error {
	if (r.MinPrice != nil && *r.MinPrice < 0) || (r.MaxPrice != nil && *r.MaxPrice < 0) {
		return ErrInvalidPrice
	}
	if r.MinPrice != nil && r.MaxPrice != nil && *r.MinPrice > *r.MaxPrice {
		return ErrInvalidPriceRange
	}
	if r.MinStock != nil && r.MaxStock != nil && *r.MinStock > *r.MaxStock {
		return ErrInvalidStockRange
	}
	return nil
}

type SearchStats struct {
	Total      int64 `json:"total"`
	Available  int64 `json:"available"`
	OutOfStock int64 `json:"out_of_stock"`
}

type PriceRange struct {
	Label string   `json:"label"`
	Min   float64  `json:"min"`
	Max   *float64 `json:"max,omitempty"`
}

type FilterOptions struct {
	Categories  []string     `json:"categories"`
	Sizes       []string     `json:"sizes"`
	Colors      []string     `json:"colors"`
	PriceRanges []PriceRange `json:"price_ranges"`
}

func priceRanges() []PriceRange {
	bound := func(v float64) *float64 { return &v }
	return []PriceRange{
		{Label: "0-50", Min: 0, Max: bound(50)},
		{Label: "50-100", Min: 50, Max: bound(100)},
		{Label: "100-200", Min: 100, Max: bound(200)},
		{Label: "200-500", Min: 200, Max: bound(500)},
		{Label: "500+", Min: 500},
	}
}

type SearchService interface {
	Search(ctx context.Context, req SearchRequest) (*repository.Page[model.Product], error)
	ByName(ctx context.Context, name string, p repository.Pagination) (*repository.Page[model.Product], error)
	ByCategory(categoryID uint, p repository.Pagination) (*repository.Page[model.Product], error)
	ByPriceRange(min, max *float64, p repository.Pagination) (*repository.Page[model.Product], error)
	ByAttributes(sizes, colors []string, p repository.Pagination) (*repository.Page[model.Product], error)
	ByAvailability(available bool, p repository.Pagination) (*repository.Page[model.Product], error)
	ByStockRange(min, max *int, p repository.Pagination) (*repository.Page[model.Product], error)
	Suggestions(query string, limit int) ([]string, error)
	Stats(req SearchRequest) (*SearchStats, error)
	PopularSearches(ctx context.Context, limit int) ([]string, error)
	PopularCategories(limit int) ([]model.Category, error)
	FilterOptions(ctx context.Context) (*FilterOptions, error)
}

type searchService struct {
	productRepo  repository.ProductRepository
	categoryRepo repository.CategoryRepository
	attrRepo     repository.AttributeRepository
	ranking      SearchRanking
	cache        Cache
}

func NewSearchService(
	productRepo repository.ProductRepository,
	categoryRepo repository.CategoryRepository,
	attrRepo repository.AttributeRepository,
	ranking SearchRanking,
	cache Cache,
) SearchService {
	return &searchService{
		productRepo:  productRepo,
		categoryRepo: categoryRepo,
		attrRepo:     attrRepo,
		ranking:      ranking,
		cache:        cache,
	}
}

func (s *searchService) Search(ctx context.Context, req SearchRequest) (*repository.Page[model.Product], error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	s.recordSearch(ctx, req.Query)
	return s.productRepo.FindWithFilter(req.filter(), req.Pagination)
}

// recordSearch bumps the popularity of a non-empty query.
func (s *searchService) recordSearch(ctx context.Context, query string) {
	if s.ranking == nil {
		return
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return
	}
	if err := s.ranking.IncrementSearchTerm(ctx, query); err != nil {
		logger.Warn("Failed to record search term", map[string]interface{}{
			"query": query,
			"error": err.Error(),
		})
	}
}

func (s *searchService) ByName(ctx context.Context, name string, p repository.Pagination) (*repository.Page[model.Product], error) {
	s.recordSearch(ctx, name)
	return s.productRepo.FindWithFilter(repository.ProductFilter{Query: name, NameOnly: true}, p)
}

func (s *searchService) ByCategory(categoryID uint, p repository.Pagination) (*repository.Page[model.Product], error) {
	return s.productRepo.FindWithFilter(repository.ProductFilter{CategoryIDs: []uint{categoryID}}, p)
}

func (s *searchService) ByPriceRange(min, max *float64, p repository.Pagination) (*repository.Page[model.Product], error) {
	req := SearchRequest{MinPrice: min, MaxPrice: max}
	if err := req.validate(); err != nil {
		return nil, err
	}
	return s.productRepo.FindWithFilter(req.filter(), p)
}

func (s *searchService) ByAttributes(sizes, colors []string, p repository.Pagination) (*repository.Page[model.Product], error) {
	return s.productRepo.FindWithFilter(repository.ProductFilter{Sizes: sizes, Colors: colors}, p)
}

func (s *searchService) ByAvailability(available bool, p repository.Pagination) (*repository.Page[model.Product], error) {
	if available {
		return s.productRepo.FindWithFilter(repository.ProductFilter{AvailableOnly: true}, p)
	}
	return s.productRepo.FindWithFilter(repository.ProductFilter{OutOfStockOnly: true}, p)
}

// ByStockRange falls back to the available products when neither bound is set.
func (s *searchService) ByStockRange(min, max *int, p repository.Pagination) (*repository.Page[model.Product], error) {
	if min == nil && max == nil {
		return s.ByAvailability(true, p)
	}
	req := SearchRequest{MinStock: min, MaxStock: max}
	if err := req.validate(); err != nil {
		return nil, err
	}
	return s.productRepo.FindWithFilter(req.filter(), p)
}

func (s *searchService) Suggestions(query string, limit int) ([]string, error) {
	if strings.TrimSpace(query) == "" {
		return []string{}, nil
	}
	names, err := s.productRepo.SuggestNames(query, clampLimit(limit, 10, maxSuggestions))
	if err != nil {
		return nil, err
	}
	if names == nil {
		names = []string{}
	}
	return names, nil
}

func (s *searchService) Stats(req SearchRequest) (*SearchStats, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	filter := req.filter()
	total, err := s.productRepo.CountWithFilter(filter)
	if err != nil {
		return nil, err
	}
	filter.AvailableOnly = true
	available, err := s.productRepo.CountWithFilter(filter)
	if err != nil {
		return nil, err
	}
	return &SearchStats{
		Total:      total,
		Available:  available,
		OutOfStock: total - available,
	}, nil
}

func (s *searchService) PopularSearches(ctx context.Context, limit int) ([]string, error) {
	if s.ranking == nil {
		return []string{}, nil
	}
	terms, err := s.ranking.TopSearchTerms(ctx, clampLimit(limit, 10, maxPopularResults))
	if err != nil {
		return nil, err
	}
	if terms == nil {
		terms = []string{}
	}
	return terms, nil
}

// PopularCategories ranks categories by the views of their products.
func (s *searchService) PopularCategories(limit int) ([]model.Category, error) {
	ids, err := s.productRepo.CategoryIDsByViews(clampLimit(limit, 5, maxPopularResults))
	if err != nil {
		return nil, err
	}
	categories := make([]model.Category, 0, len(ids))
	for _, id := range ids {
		category, err := s.categoryRepo.FindByID(id)
		if err != nil {
			continue
		}
		categories = append(categories, *category)
	}
	return categories, nil
}

func (s *searchService) FilterOptions(ctx context.Context) (*FilterOptions, error) {
	var options FilterOptions
	if s.cache != nil {
		if hit, err := s.cache.GetJSON(ctx, filterOptionsKey, &options); err == nil && hit {
			return &options, nil
		}
	}

	categories, err := s.categoryRepo.ListNames()
	if err != nil {
		return nil, err
	}
	sizes, err := s.attrRepo.DistinctValues(model.AttributeSize)
	if err != nil {
		return nil, err
	}
	colors, err := s.attrRepo.DistinctValues(model.AttributeColor)
	if err != nil {
		return nil, err
	}

	options = FilterOptions{
		Categories:  nonNil(categories),
		Sizes:       nonNil(sizes),
		Colors:      nonNil(colors),
		PriceRanges: priceRanges(),
	}
	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, filterOptionsKey, &options, filterOptionsTTL); err != nil {
			logger.Warn("Filter options cache write failed", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}
	return &options, nil
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
